package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrans/domain"
	"fintrans/shared"
)

// InMemoryStore implements every store contract behind one mutex. The single
// lock is what makes CommitTransfer atomic here: the balance check, the
// debit and the ledger append happen under it, so two interleaved commits
// can never both read the same stale balance.
type InMemoryStore struct {
	sync.RWMutex
	members  map[string]domain.Member // keyed by username
	accounts map[string]domain.Account
	contacts map[string][]domain.Contact // keyed by user ID
	rates    []domain.ExchangeRate
	ledger   map[string][]domain.LedgerEntry // keyed by account ID
}

var _ Store = (*InMemoryStore)(nil)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		members:  make(map[string]domain.Member),
		accounts: make(map[string]domain.Account),
		contacts: make(map[string][]domain.Contact),
		ledger:   make(map[string][]domain.LedgerEntry),
	}
}

func (s *InMemoryStore) GetByUsername(_ context.Context, username string) (*domain.Member, error) {
	s.RLock()
	defer s.RUnlock()

	m, ok := s.members[username]
	if !ok {
		return nil, fmt.Errorf("member %q: %w", username, ErrNotFound)
	}
	copied := m
	return &copied, nil
}

func (s *InMemoryStore) CreateMember(_ context.Context, member *domain.Member) error {
	s.Lock()
	defer s.Unlock()

	if _, exists := s.members[member.Username]; exists {
		return fmt.Errorf("member %q already exists", member.Username)
	}
	if member.UserID == "" {
		member.UserID = uuid.NewString()
	}
	if member.CreatedAt.IsZero() {
		member.CreatedAt = time.Now()
	}
	s.members[member.Username] = *member
	return nil
}

func (s *InMemoryStore) GetPrimary(_ context.Context, userID string) (*domain.Account, error) {
	s.RLock()
	defer s.RUnlock()

	for _, a := range s.accounts {
		if a.UserID == userID && a.IsPrimary {
			copied := a
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("primary account for user %s: %w", userID, ErrNotFound)
}

func (s *InMemoryStore) CreateAccount(_ context.Context, account *domain.Account) error {
	s.Lock()
	defer s.Unlock()

	if account.AccountID == "" {
		account.AccountID = uuid.NewString()
	}
	if _, exists := s.accounts[account.AccountID]; exists {
		return fmt.Errorf("account %q already exists", account.AccountID)
	}
	s.accounts[account.AccountID] = *account
	return nil
}

func (s *InMemoryStore) ListContacts(_ context.Context, userID string) ([]domain.Contact, error) {
	s.RLock()
	defer s.RUnlock()

	contacts := s.contacts[userID]
	copied := make([]domain.Contact, len(contacts))
	copy(copied, contacts)
	return copied, nil
}

func (s *InMemoryStore) ContactByName(_ context.Context, userID, name string) (*domain.Contact, error) {
	s.RLock()
	defer s.RUnlock()

	for _, c := range s.contacts[userID] {
		if strings.EqualFold(c.Name, name) {
			copied := c
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("contact %q for user %s: %w", name, userID, ErrNotFound)
}

func (s *InMemoryStore) CreateContact(_ context.Context, contact *domain.Contact) error {
	s.Lock()
	defer s.Unlock()

	if contact.ContactID == "" {
		contact.ContactID = uuid.NewString()
	}
	s.contacts[contact.UserID] = append(s.contacts[contact.UserID], *contact)
	return nil
}

func (s *InMemoryStore) LatestRate(_ context.Context, currency shared.Currency) (*domain.ExchangeRate, error) {
	s.RLock()
	defer s.RUnlock()

	var latest *domain.ExchangeRate
	for i := range s.rates {
		r := s.rates[i]
		if r.CurrencyCode != currency {
			continue
		}
		if latest == nil || r.ReferenceDate > latest.ReferenceDate {
			copied := r
			latest = &copied
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("rate for %s: %w", currency, ErrNotFound)
	}
	return latest, nil
}

func (s *InMemoryStore) UpsertRates(_ context.Context, rows []domain.ExchangeRate) error {
	s.Lock()
	defer s.Unlock()

	for _, row := range rows {
		replaced := false
		for i := range s.rates {
			if s.rates[i].CurrencyCode == row.CurrencyCode && s.rates[i].ReferenceDate == row.ReferenceDate {
				s.rates[i] = row
				replaced = true
				break
			}
		}
		if !replaced {
			s.rates = append(s.rates, row)
		}
	}
	return nil
}

func (s *InMemoryStore) CommitTransfer(_ context.Context, params CommitParams) (decimal.Decimal, error) {
	s.Lock()
	defer s.Unlock()

	account, ok := s.accounts[params.AccountID]
	if !ok {
		return decimal.Zero, fmt.Errorf("account %s: %w", params.AccountID, ErrNotFound)
	}
	if account.Balance.LessThan(params.AmountBase) {
		return decimal.Zero, fmt.Errorf("%w: requested %s, available %s",
			domain.ErrInsufficientFunds, params.AmountBase.String(), account.Balance.String())
	}

	newBalance := account.Balance.Sub(params.AmountBase)
	account.Balance = newBalance
	s.accounts[params.AccountID] = account

	entry := domain.LedgerEntry{
		EntryID:            uuid.NewString(),
		AccountID:          params.AccountID,
		ContactID:          params.ContactID,
		Type:               domain.EntryTypeTransfer,
		Amount:             params.AmountBase.Neg(),
		BalanceAfter:       newBalance,
		ExchangeRate:       params.ExchangeRate,
		TargetAmount:       params.TargetAmount,
		TargetCurrencyCode: params.TargetCurrency,
		Memo:               domain.TransferMemo,
		Category:           domain.TransferCategory,
		CreatedAt:          time.Now(),
	}
	s.ledger[params.AccountID] = append(s.ledger[params.AccountID], entry)

	return newBalance, nil
}

func (s *InMemoryStore) LedgerByAccount(_ context.Context, accountID string) ([]domain.LedgerEntry, error) {
	s.RLock()
	defer s.RUnlock()

	entries := s.ledger[accountID]
	copied := make([]domain.LedgerEntry, len(entries))
	copy(copied, entries)
	sort.Slice(copied, func(i, j int) bool { return copied[i].CreatedAt.Before(copied[j].CreatedAt) })
	return copied, nil
}
