package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"fintrans/domain"
	"fintrans/shared"
)

// ErrNotFound is returned by lookups when no row matches. Callers translate
// it into the appropriate domain error for their entity.
var ErrNotFound = errors.New("record not found")

type MemberStore interface {
	GetByUsername(ctx context.Context, username string) (*domain.Member, error)
	CreateMember(ctx context.Context, member *domain.Member) error
}

type AccountStore interface {
	// GetPrimary returns the single account the transfer core may debit.
	GetPrimary(ctx context.Context, userID string) (*domain.Account, error)
	CreateAccount(ctx context.Context, account *domain.Account) error
}

type ContactStore interface {
	ListContacts(ctx context.Context, userID string) ([]domain.Contact, error)
	ContactByName(ctx context.Context, userID, name string) (*domain.Contact, error)
	CreateContact(ctx context.Context, contact *domain.Contact) error
}

type RateStore interface {
	// LatestRate returns the most recent reference-rate row for the
	// currency, or ErrNotFound if the currency has never been quoted.
	LatestRate(ctx context.Context, currency shared.Currency) (*domain.ExchangeRate, error)
	UpsertRates(ctx context.Context, rows []domain.ExchangeRate) error
}

// CommitParams describes the single debit leg of a confirmed transfer.
// AmountBase is the positive base-currency amount to subtract; the resulting
// ledger entry records it negated.
type CommitParams struct {
	AccountID      string
	ContactID      string
	AmountBase     decimal.Decimal
	ExchangeRate   decimal.Decimal
	TargetAmount   decimal.Decimal
	TargetCurrency shared.Currency
}

type LedgerStore interface {
	// CommitTransfer debits the account and appends exactly one ledger
	// entry as one atomic unit, returning the new balance. The debit is
	// guarded: a balance that no longer covers AmountBase (for example
	// because a concurrent flow committed first) fails with
	// domain.ErrInsufficientFunds and leaves both balance and ledger
	// untouched.
	CommitTransfer(ctx context.Context, params CommitParams) (decimal.Decimal, error)
	LedgerByAccount(ctx context.Context, accountID string) ([]domain.LedgerEntry, error)
}

// Store is the full persistence surface a wired service needs. Both the
// in-memory and the GORM implementations satisfy it.
type Store interface {
	MemberStore
	AccountStore
	ContactStore
	RateStore
	LedgerStore
}
