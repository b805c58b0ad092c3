package app

import (
	"context"
	"fmt"
	"strings"

	"fintrans/domain"
	"fintrans/logging"
	"fintrans/nlp"
	"fintrans/store"
)

// ContactResolver maps a free-text recipient reference to an exact stored
// contact name. A nil result with a nil error means no match: the caller
// re-prompts for the target, it is never an error.
type ContactResolver interface {
	Resolve(ctx context.Context, userID, text string) (*domain.Contact, error)
}

type tieredResolver struct {
	contacts store.ContactStore
	matcher  nlp.Matcher
	log      *logging.Logger
}

// NewContactResolver builds the tiered resolver: exact name match, then
// relationship-label match, then the semantic matcher. matcher may be nil,
// which disables the fallback tier (deterministic resolution only).
func NewContactResolver(contacts store.ContactStore, matcher nlp.Matcher, log *logging.Logger) ContactResolver {
	return &tieredResolver{contacts: contacts, matcher: matcher, log: log.With("component", "resolver")}
}

func (r *tieredResolver) Resolve(ctx context.Context, userID, text string) (*domain.Contact, error) {
	reference := strings.TrimSpace(text)
	if reference == "" {
		return nil, nil
	}

	contacts, err := r.contacts.ListContacts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts for resolution: %w", err)
	}
	if len(contacts) == 0 {
		return nil, nil
	}

	// Tier 1: exact display-name match.
	for i := range contacts {
		if strings.EqualFold(contacts[i].Name, reference) {
			return &contacts[i], nil
		}
	}

	// Tier 2: exact relationship-label match ("엄마", "삼촌").
	for i := range contacts {
		if contacts[i].Relationship != "" && strings.EqualFold(contacts[i].Relationship, reference) {
			return &contacts[i], nil
		}
	}

	// Tier 3: semantic match, constrained to the candidate names. The
	// matcher already validates membership; re-check here anyway so a buggy
	// matcher can never introduce a recipient that is not on file.
	if r.matcher == nil {
		return nil, nil
	}
	names := make([]string, len(contacts))
	for i := range contacts {
		names[i] = contacts[i].Name
	}
	matched, ok, err := r.matcher.MatchContact(ctx, reference, names)
	if err != nil {
		return nil, fmt.Errorf("semantic contact match failed: %w", err)
	}
	if !ok {
		return nil, nil
	}
	for i := range contacts {
		if strings.EqualFold(contacts[i].Name, matched) {
			r.log.Debug("contact resolved semantically", "user_id", userID, "resolved", contacts[i].Name)
			return &contacts[i], nil
		}
	}
	return nil, nil
}
