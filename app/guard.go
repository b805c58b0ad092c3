package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"fintrans/domain"
	"fintrans/logging"
	"fintrans/store"
)

// AuthGuard verifies the transfer PIN. The PIN is distinct from the login
// password; only its bcrypt hash is stored. The bounded-attempt counter does
// not live here: it belongs to the TransferContext so it resets with every
// new flow.
type AuthGuard struct {
	members store.MemberStore
	log     *logging.Logger
}

func NewAuthGuard(members store.MemberStore, log *logging.Logger) *AuthGuard {
	return &AuthGuard{members: members, log: log.With("component", "auth_guard")}
}

// Verify compares the presented secret against the stored PIN hash. A
// mismatch is (false, nil); errors are reserved for missing users or broken
// storage.
func (g *AuthGuard) Verify(ctx context.Context, username, presented string) (bool, error) {
	member, err := g.members.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, fmt.Errorf("%w: %s", domain.ErrUserNotFound, username)
		}
		return false, fmt.Errorf("failed to load member for PIN check: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(member.PinHash), []byte(presented)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, fmt.Errorf("PIN comparison failed: %w", err)
	}
	return true, nil
}
