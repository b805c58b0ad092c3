package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"fintrans/logging"
)

// Client is the language-understanding capability the transfer core calls
// for slot extraction and fuzzy contact matching. It is an interface so
// tests (and deployments that want determinism) can swap in a local matcher.
type Client interface {
	GenerateText(ctx context.Context, system, user string) (string, error)
}

type ClientConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type httpClient struct {
	log        *logging.Logger
	baseURL    string
	apiKey     string
	model      string
	httpc      *http.Client
	breaker    *gobreaker.CircuitBreaker
	maxRetries int
}

// NewClient builds the chat-completions backed client. Calls run behind a
// circuit breaker: once the upstream starts failing consistently the breaker
// opens and turns slow timeouts into immediate errors, which the
// orchestrator surfaces as a recoverable re-prompt.
func NewClient(cfg ClientConfig, log *logging.Logger) Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "nlp",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &httpClient{
		log:        log.With("component", "nlp_client"),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpc:      &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
		maxRetries: 2,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *httpClient) GenerateText(ctx context.Context, system, user string) (string, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.generateOnce(ctx, system, user)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

func (c *httpClient) generateOnce(ctx context.Context, system, user string) (string, error) {
	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpc.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("upstream returned %d", resp.StatusCode)
			c.log.Warn("nlp call retryable failure", "status", resp.StatusCode, "attempt", attempt)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("nlp call failed with status %d", resp.StatusCode)
		}

		var parsed chatResponse
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return "", fmt.Errorf("failed to decode nlp response: %w", err)
		}
		if parsed.Error != nil {
			return "", fmt.Errorf("nlp upstream error: %s", parsed.Error.Message)
		}
		if len(parsed.Choices) == 0 {
			return "", fmt.Errorf("nlp response contained no choices")
		}
		return parsed.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("nlp call failed after %d attempts: %w", c.maxRetries+1, lastErr)
}
