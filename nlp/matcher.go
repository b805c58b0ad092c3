package nlp

import (
	"context"
	"fmt"
	"strings"

	"fintrans/logging"
)

// noMatchSentinel is what the model must answer when none of the candidates
// fits. Anything outside the candidate set is treated the same way.
const noMatchSentinel = "NO_MATCH"

const matchSystemPrompt = `You match a recipient reference to a saved contact name.

[Rules]
1. You are given a candidate list. Answer with EXACTLY one candidate name,
   copied verbatim, or the single word NO_MATCH.
2. Consider nicknames, honorifics and particles (이, 한테, 에게) when matching.
3. Never invent a name that is not in the list.`

// Matcher is the semantic fallback tier of contact resolution.
type Matcher interface {
	MatchContact(ctx context.Context, input string, candidates []string) (string, bool, error)
}

type llmMatcher struct {
	client Client
	log    *logging.Logger
}

func NewMatcher(client Client, log *logging.Logger) Matcher {
	return &llmMatcher{client: client, log: log.With("component", "matcher")}
}

// MatchContact asks the model to pick one candidate. The answer is
// re-validated against the candidate list before it is trusted: a
// hallucinated name is reported as no match, never passed through.
func (m *llmMatcher) MatchContact(ctx context.Context, input string, candidates []string) (string, bool, error) {
	if len(candidates) == 0 {
		return "", false, nil
	}

	user := fmt.Sprintf("Candidates: %s\nUser reference: %s", strings.Join(candidates, ", "), input)
	raw, err := m.client.GenerateText(ctx, matchSystemPrompt, user)
	if err != nil {
		return "", false, err
	}

	answer := strings.TrimSpace(strings.Trim(strings.TrimSpace(raw), `"'`))
	if answer == "" || strings.EqualFold(answer, noMatchSentinel) {
		return "", false, nil
	}
	for _, candidate := range candidates {
		if strings.EqualFold(answer, candidate) {
			return candidate, true, nil
		}
	}

	m.log.Warn("matcher proposed a name outside the candidate set, discarding", "proposed", answer)
	return "", false, nil
}
