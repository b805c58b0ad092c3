package nlp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"fintrans/logging"
	"fintrans/shared"
)

// Slots is the structured result of extraction. A zero field means the user
// message contained no evidence for it; the extractor never guesses.
type Slots struct {
	Target   string
	Amount   *decimal.Decimal
	Currency shared.Currency
}

// Extractor obtains transfer slots from free text.
type Extractor interface {
	Extract(ctx context.Context, text string) (Slots, error)
}

const extractSystemPrompt = `You are a financial information extractor.

Extract transfer information from the user's message.

[Rules]
1. Return ONLY JSON.
2. If information is missing, return null. Do NOT guess.
3. currency is an ISO code such as KRW, USD, JPY, VND.
4. Normalize colloquial amounts: "5만원" means amount 50000 with currency KRW,
   "10달러" means amount 10 with currency USD, "백만동" means amount 1000000
   with currency VND.

[Output Format]
{
  "target": string | null,
  "amount": number | null,
  "currency": string | null
}`

type llmExtractor struct {
	client Client
	log    *logging.Logger
}

func NewExtractor(client Client, log *logging.Logger) Extractor {
	return &llmExtractor{client: client, log: log.With("component", "extractor")}
}

// Extract calls the language model and decodes its JSON answer. Malformed
// output is deliberately not an error: it degrades to all-nil slots and the
// orchestrator asks for the fields one by one.
func (e *llmExtractor) Extract(ctx context.Context, text string) (Slots, error) {
	raw, err := e.client.GenerateText(ctx, extractSystemPrompt, text)
	if err != nil {
		return Slots{}, err
	}
	return parseSlots(raw, e.log), nil
}

type rawSlots struct {
	Target   *string      `json:"target"`
	Amount   *json.Number `json:"amount"`
	Currency *string      `json:"currency"`
}

func parseSlots(raw string, log *logging.Logger) Slots {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var parsed rawSlots
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		log.Warn("extractor returned malformed JSON, treating all slots as empty", "error", err)
		return Slots{}
	}

	var slots Slots
	if parsed.Target != nil {
		slots.Target = strings.TrimSpace(*parsed.Target)
	}
	if parsed.Amount != nil {
		if amount, err := decimal.NewFromString(parsed.Amount.String()); err == nil {
			slots.Amount = &amount
		}
	}
	if parsed.Currency != nil {
		if currency, ok := NormalizeCurrency(*parsed.Currency); ok {
			slots.Currency = currency
		} else {
			slots.Currency = shared.Currency(strings.ToUpper(strings.TrimSpace(*parsed.Currency)))
		}
	}
	return slots
}
