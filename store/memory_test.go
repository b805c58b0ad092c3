package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"fintrans/domain"
	"fintrans/shared"
)

func newFundedAccount(t *testing.T, s *InMemoryStore, balance string) *domain.Account {
	t.Helper()
	ctx := context.Background()

	member := domain.Member{Username: "tester"}
	if err := s.CreateMember(ctx, &member); err != nil {
		t.Fatalf("CreateMember: %v", err)
	}
	account := domain.Account{
		UserID:       member.UserID,
		Balance:      dec(balance),
		CurrencyCode: shared.BaseCurrency,
		IsPrimary:    true,
	}
	if err := s.CreateAccount(ctx, &account); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	return &account
}

func TestCommitTransfer_DebitsAndAppends(t *testing.T) {
	s := NewInMemoryStore()
	account := newFundedAccount(t, s, "100000")
	ctx := context.Background()

	newBalance, err := s.CommitTransfer(ctx, CommitParams{
		AccountID:      account.AccountID,
		ContactID:      "c-1",
		AmountBase:     dec("30000"),
		ExchangeRate:   dec("1"),
		TargetAmount:   dec("30000"),
		TargetCurrency: shared.KRW,
	})
	if err != nil {
		t.Fatalf("CommitTransfer: %v", err)
	}
	if !newBalance.Equal(dec("70000")) {
		t.Fatalf("expected balance 70000, got %s", newBalance)
	}

	stored, err := s.GetPrimary(ctx, account.UserID)
	if err != nil {
		t.Fatalf("GetPrimary: %v", err)
	}
	if !stored.Balance.Equal(newBalance) {
		t.Errorf("stored balance %s does not match returned %s", stored.Balance, newBalance)
	}

	entries, err := s.LedgerByAccount(ctx, account.AccountID)
	if err != nil {
		t.Fatalf("LedgerByAccount: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one ledger entry, got %d", len(entries))
	}
	entry := entries[0]
	if !entry.Amount.Equal(dec("-30000")) {
		t.Errorf("expected signed amount -30000, got %s", entry.Amount)
	}
	if !entry.BalanceAfter.Equal(newBalance) {
		t.Errorf("balance_after %s does not match balance %s", entry.BalanceAfter, newBalance)
	}
	if entry.Memo != domain.TransferMemo || entry.Category != domain.TransferCategory {
		t.Errorf("unexpected memo/category: %q/%q", entry.Memo, entry.Category)
	}
}

func TestCommitTransfer_InsufficientFunds(t *testing.T) {
	s := NewInMemoryStore()
	account := newFundedAccount(t, s, "100")
	ctx := context.Background()

	_, err := s.CommitTransfer(ctx, CommitParams{
		AccountID:      account.AccountID,
		ContactID:      "c-1",
		AmountBase:     dec("101"),
		ExchangeRate:   dec("1"),
		TargetAmount:   dec("101"),
		TargetCurrency: shared.KRW,
	})
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	stored, err := s.GetPrimary(ctx, account.UserID)
	if err != nil {
		t.Fatalf("GetPrimary: %v", err)
	}
	if !stored.Balance.Equal(dec("100")) {
		t.Errorf("failed commit must not change the balance, got %s", stored.Balance)
	}
	entries, _ := s.LedgerByAccount(ctx, account.AccountID)
	if len(entries) != 0 {
		t.Errorf("failed commit must not append a ledger entry, got %d", len(entries))
	}
}

func TestCommitTransfer_UnknownAccount(t *testing.T) {
	s := NewInMemoryStore()
	_, err := s.CommitTransfer(context.Background(), CommitParams{
		AccountID:  "missing",
		AmountBase: decimal.NewFromInt(1),
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCommitTransfer_ConcurrentDoubleSpend(t *testing.T) {
	// Two concurrent commits of 70 against a balance of 100: exactly one may
	// succeed, and the loser must see insufficient funds.
	s := NewInMemoryStore()
	account := newFundedAccount(t, s, "100")
	ctx := context.Background()

	params := CommitParams{
		AccountID:      account.AccountID,
		ContactID:      "c-1",
		AmountBase:     dec("70"),
		ExchangeRate:   dec("1"),
		TargetAmount:   dec("70"),
		TargetCurrency: shared.KRW,
	}

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = s.CommitTransfer(ctx, params)
		}(i)
	}
	wg.Wait()

	var succeeded, refused int
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrInsufficientFunds):
			refused++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || refused != 1 {
		t.Fatalf("expected exactly one success and one refusal, got %d/%d", succeeded, refused)
	}

	stored, _ := s.GetPrimary(ctx, account.UserID)
	if !stored.Balance.Equal(dec("30")) {
		t.Errorf("expected balance 30 after one commit, got %s", stored.Balance)
	}
	entries, _ := s.LedgerByAccount(ctx, account.AccountID)
	if len(entries) != 1 {
		t.Errorf("expected one ledger entry, got %d", len(entries))
	}
}

func TestUpsertRates_ReplacesSameDayRow(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	if err := s.UpsertRates(ctx, []domain.ExchangeRate{
		{CurrencyCode: shared.USD, SendRate: dec("1400.00"), ReferenceDate: "2026-08-28"},
		{CurrencyCode: shared.USD, SendRate: dec("1390.00"), ReferenceDate: "2026-08-27"},
	}); err != nil {
		t.Fatalf("UpsertRates: %v", err)
	}

	// Same currency and date replaces in place rather than duplicating.
	if err := s.UpsertRates(ctx, []domain.ExchangeRate{
		{CurrencyCode: shared.USD, SendRate: dec("1410.00"), ReferenceDate: "2026-08-28"},
	}); err != nil {
		t.Fatalf("UpsertRates: %v", err)
	}

	latest, err := s.LatestRate(ctx, shared.USD)
	if err != nil {
		t.Fatalf("LatestRate: %v", err)
	}
	if latest.ReferenceDate != "2026-08-28" {
		t.Errorf("expected most recent reference date, got %s", latest.ReferenceDate)
	}
	if !latest.SendRate.Equal(dec("1410.00")) {
		t.Errorf("expected replaced rate 1410.00, got %s", latest.SendRate)
	}
}

func TestLatestRate_UnknownCurrency(t *testing.T) {
	s := NewInMemoryStore()
	_, err := s.LatestRate(context.Background(), shared.EUR)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestContactByName_CaseInsensitive(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()
	contact := domain.Contact{UserID: "u-1", Name: "Nguyen Anh", Relationship: "동료"}
	if err := s.CreateContact(ctx, &contact); err != nil {
		t.Fatalf("CreateContact: %v", err)
	}

	found, err := s.ContactByName(ctx, "u-1", "nguyen anh")
	if err != nil {
		t.Fatalf("ContactByName: %v", err)
	}
	if found.ContactID != contact.ContactID {
		t.Errorf("resolved wrong contact: %s", found.ContactID)
	}

	if _, err := s.ContactByName(ctx, "u-1", "모르는사람"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown name, got %v", err)
	}
}
