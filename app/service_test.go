package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"fintrans/app"
	"fintrans/domain"
	"fintrans/logging"
	"fintrans/nlp"
	"fintrans/shared"
	"fintrans/store"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// fakeExtractor returns canned slots, standing in for the language model.
type fakeExtractor struct {
	slots nlp.Slots
	err   error
}

func (f *fakeExtractor) Extract(context.Context, string) (nlp.Slots, error) {
	return f.slots, f.err
}

type fixture struct {
	service   *app.TransferService
	store     *store.InMemoryStore
	extractor *fakeExtractor
	userID    string
	accountID string
}

// setup seeds one member (PIN 123456), a funded primary account, two
// contacts and a VND rate. USD deliberately has no rate so the unknown-rate
// path is reachable.
func setup(t *testing.T, balance string) *fixture {
	t.Helper()
	ctx := context.Background()
	mem := store.NewInMemoryStore()

	pinHash, err := bcrypt.GenerateFromPassword([]byte("123456"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash test PIN: %v", err)
	}
	member := domain.Member{Username: "user_kr", KoreanName: "김철수", PinHash: string(pinHash)}
	if err := mem.CreateMember(ctx, &member); err != nil {
		t.Fatalf("failed to create member: %v", err)
	}

	account := domain.Account{
		UserID:       member.UserID,
		Balance:      dec(balance),
		CurrencyCode: shared.BaseCurrency,
		IsPrimary:    true,
	}
	if err := mem.CreateAccount(ctx, &account); err != nil {
		t.Fatalf("failed to create account: %v", err)
	}

	contacts := []domain.Contact{
		{UserID: member.UserID, Name: "보람", Relationship: "친구"},
		{UserID: member.UserID, Name: "박민수", Relationship: "삼촌"},
	}
	for i := range contacts {
		if err := mem.CreateContact(ctx, &contacts[i]); err != nil {
			t.Fatalf("failed to create contact: %v", err)
		}
	}

	if err := mem.UpsertRates(ctx, []domain.ExchangeRate{
		{CurrencyCode: shared.VND, SendRate: dec("0.057"), ReferenceDate: "2026-08-01"},
	}); err != nil {
		t.Fatalf("failed to seed rates: %v", err)
	}

	log := logging.NewNop()
	extractor := &fakeExtractor{}
	resolver := app.NewContactResolver(mem, nil, log)
	service := app.NewTransferService(mem, extractor, resolver, log)

	return &fixture{
		service:   service,
		store:     mem,
		extractor: extractor,
		userID:    member.UserID,
		accountID: account.AccountID,
	}
}

func (f *fixture) advance(text string, tctx *domain.TransferContext) app.Response {
	return f.service.Advance(context.Background(), app.Request{
		RawText: text,
		UserID:  "user_kr",
		Context: tctx,
	})
}

// driveToConfirm runs a fresh turn with fully extracted slots up to CONFIRM.
func (f *fixture) driveToConfirm(t *testing.T) app.Response {
	t.Helper()
	f.extractor.slots = nlp.Slots{Target: "보람", Amount: decPtr("50000"), Currency: shared.KRW}
	resp := f.advance("보람이한테 5만원 보내줘", nil)
	if resp.Status != shared.StatusConfirm {
		t.Fatalf("expected CONFIRM, got %s (%s)", resp.Status, resp.Message)
	}
	return resp
}

func (f *fixture) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	account, err := f.store.GetPrimary(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("failed to read balance: %v", err)
	}
	return account.Balance
}

func (f *fixture) ledgerEntries(t *testing.T) []domain.LedgerEntry {
	t.Helper()
	entries, err := f.store.LedgerByAccount(context.Background(), f.accountID)
	if err != nil {
		t.Fatalf("failed to read ledger: %v", err)
	}
	return entries
}

func TestAdvance_FullFlowInBaseCurrency(t *testing.T) {
	// Scenario: "보람이한테 5만원 보내줘" with 보람 on file and sufficient
	// KRW balance reaches CONFIRM with amount 50000 and rate 1.
	f := setup(t, "1000000")
	resp := f.driveToConfirm(t)

	if resp.Context == nil || !resp.Context.AwaitingConfirm() {
		t.Fatal("expected context in confirm stage")
	}
	if resp.UIHint != app.UIHintConfirmButtons {
		t.Errorf("expected confirm_buttons hint, got %q", resp.UIHint)
	}
	if got := resp.Context.AmountBase; got == nil || !got.Equal(dec("50000")) {
		t.Fatalf("expected amount_base 50000, got %v", got)
	}
	if got := resp.Context.ExchangeRate; got == nil || !got.Equal(dec("1")) {
		t.Fatalf("expected rate 1, got %v", got)
	}
}

func TestAdvance_RelationshipTargetAndUnknownRate(t *testing.T) {
	// Scenario: "삼촌한테 10달러 보내줘". 삼촌 resolves via the relationship
	// label, then the missing USD rate ends the flow with the rate error.
	f := setup(t, "1000000")
	f.extractor.slots = nlp.Slots{Target: "삼촌", Amount: decPtr("10"), Currency: shared.USD}

	resp := f.advance("삼촌한테 10달러 보내줘", nil)
	if resp.Status != shared.StatusError {
		t.Fatalf("expected ERROR, got %s", resp.Status)
	}
	if resp.Message != "USD 환율 정보를 찾을 수 없습니다." {
		t.Errorf("unexpected message: %q", resp.Message)
	}
	if resp.Context != nil {
		t.Error("terminal response must not carry a context")
	}
}

func TestAdvance_UnresolvableTargetBeatsUnknownRate(t *testing.T) {
	// With the same unknown currency, a target that does not resolve must
	// come back as NEED_INFO(target) before any rate lookup.
	f := setup(t, "1000000")
	f.extractor.slots = nlp.Slots{Target: "이모", Amount: decPtr("10"), Currency: shared.USD}

	resp := f.advance("이모한테 10달러 보내줘", nil)
	if resp.Status != shared.StatusNeedInfo || resp.Field != shared.FieldTarget {
		t.Fatalf("expected NEED_INFO(target), got %s (%s)", resp.Status, resp.Field)
	}
	if resp.Context == nil {
		t.Fatal("NEED_INFO must retain the context")
	}
}

func TestAdvance_SlotBySlotCollection(t *testing.T) {
	f := setup(t, "1000000")
	f.extractor.slots = nlp.Slots{}

	resp := f.advance("송금해줘", nil)
	if resp.Status != shared.StatusNeedInfo || resp.Field != shared.FieldTarget {
		t.Fatalf("expected NEED_INFO(target), got %s (%s)", resp.Status, resp.Field)
	}

	resp = f.advance("보람", resp.Context)
	if resp.Status != shared.StatusNeedInfo || resp.Field != shared.FieldAmount {
		t.Fatalf("expected NEED_INFO(amount), got %s (%s)", resp.Status, resp.Field)
	}

	resp = f.advance("5만원", resp.Context)
	if resp.Status != shared.StatusNeedInfo || resp.Field != shared.FieldCurrency {
		t.Fatalf("expected NEED_INFO(currency), got %s (%s)", resp.Status, resp.Field)
	}

	resp = f.advance("원", resp.Context)
	if resp.Status != shared.StatusConfirm {
		t.Fatalf("expected CONFIRM, got %s (%s)", resp.Status, resp.Message)
	}
	if got := resp.Context.AmountBase; got == nil || !got.Equal(dec("50000")) {
		t.Fatalf("expected amount_base 50000 from 5만원, got %v", got)
	}
}

func TestAdvance_InvalidAmountIsIdempotent(t *testing.T) {
	f := setup(t, "1000000")
	f.extractor.slots = nlp.Slots{Target: "보람"}

	resp := f.advance("보람한테 보내줘", nil)
	if resp.Status != shared.StatusNeedInfo || resp.Field != shared.FieldAmount {
		t.Fatalf("expected NEED_INFO(amount), got %s (%s)", resp.Status, resp.Field)
	}

	first := f.advance("많이", resp.Context)
	second := f.advance("많이", first.Context)

	for _, r := range []app.Response{first, second} {
		if r.Status != shared.StatusNeedInfo || r.Field != shared.FieldAmount {
			t.Fatalf("expected NEED_INFO(amount), got %s (%s)", r.Status, r.Field)
		}
	}

	firstJSON, _ := json.Marshal(first.Context)
	secondJSON, _ := json.Marshal(second.Context)
	if string(firstJSON) != string(secondJSON) {
		t.Errorf("context changed across identical invalid turns:\n%s\n%s", firstJSON, secondJSON)
	}
}

func TestAdvance_InsufficientFundsDiscardsContext(t *testing.T) {
	f := setup(t, "10000")
	f.extractor.slots = nlp.Slots{Target: "보람", Amount: decPtr("50000"), Currency: shared.KRW}

	resp := f.advance("보람이한테 5만원 보내줘", nil)
	if resp.Status != shared.StatusError {
		t.Fatalf("expected ERROR, got %s", resp.Status)
	}
	if resp.Message != "잔액이 부족합니다." {
		t.Errorf("unexpected message: %q", resp.Message)
	}
	if resp.Context != nil {
		t.Error("insufficient funds must discard the context")
	}
	if !f.balance(t).Equal(dec("10000")) {
		t.Error("balance must be untouched")
	}
}

func TestAdvance_ConfirmRejectCancels(t *testing.T) {
	f := setup(t, "1000000")
	resp := f.driveToConfirm(t)

	resp = f.advance("아니", resp.Context)
	if resp.Status != shared.StatusCancel {
		t.Fatalf("expected CANCEL, got %s", resp.Status)
	}
	if resp.Context != nil {
		t.Error("CANCEL must discard the context")
	}
	if !f.balance(t).Equal(dec("1000000")) || len(f.ledgerEntries(t)) != 0 {
		t.Error("CANCEL must have no side effects")
	}
}

func TestAdvance_AmbiguousConfirmRepromptsUnchanged(t *testing.T) {
	f := setup(t, "1000000")
	confirmResp := f.driveToConfirm(t)

	resp := f.advance("글쎄", confirmResp.Context)
	if resp.Status != shared.StatusConfirm {
		t.Fatalf("expected CONFIRM re-prompt, got %s", resp.Status)
	}
	if resp.Message != confirmResp.Message {
		t.Errorf("re-prompt message changed: %q vs %q", resp.Message, confirmResp.Message)
	}
	if !resp.Context.AwaitingConfirm() {
		t.Error("context must stay in confirm stage")
	}
}

func TestAdvance_OutOfBandConfirmSignals(t *testing.T) {
	f := setup(t, "1000000")

	t.Run("YesSignal", func(t *testing.T) {
		resp := f.driveToConfirm(t)
		resp = f.advance(app.SignalConfirmYes, resp.Context)
		if resp.Status != shared.StatusNeedPassword {
			t.Fatalf("expected NEED_PASSWORD, got %s", resp.Status)
		}
		if !resp.Context.AwaitingPassword() {
			t.Error("context must be in auth stage")
		}
	})

	t.Run("NoSignal", func(t *testing.T) {
		resp := f.driveToConfirm(t)
		resp = f.advance(app.SignalConfirmNo, resp.Context)
		if resp.Status != shared.StatusCancel {
			t.Fatalf("expected CANCEL, got %s", resp.Status)
		}
	})
}

func TestAdvance_PinLockoutAfterFiveAttempts(t *testing.T) {
	// Scenario: confirm, then five wrong PINs. Attempts must increase one
	// by one, FAIL exactly at the fifth, balance and ledger untouched.
	f := setup(t, "1000000")
	resp := f.driveToConfirm(t)
	resp = f.advance("네", resp.Context)
	if resp.Status != shared.StatusNeedPassword {
		t.Fatalf("expected NEED_PASSWORD, got %s", resp.Status)
	}

	for attempt := 1; attempt <= domain.MaxPasswordAttempts; attempt++ {
		resp = f.advance("000000", resp.Context)

		if attempt < domain.MaxPasswordAttempts {
			if resp.Status != shared.StatusNeedPassword {
				t.Fatalf("attempt %d: expected NEED_PASSWORD, got %s", attempt, resp.Status)
			}
			if resp.Context.PasswordAttempts != attempt {
				t.Fatalf("attempt %d: counter is %d", attempt, resp.Context.PasswordAttempts)
			}
		} else {
			if resp.Status != shared.StatusFail {
				t.Fatalf("attempt %d: expected FAIL, got %s", attempt, resp.Status)
			}
			if resp.Context != nil {
				t.Error("FAIL must discard the context")
			}
		}
	}

	if !f.balance(t).Equal(dec("1000000")) {
		t.Error("balance must be untouched after lockout")
	}
	if len(f.ledgerEntries(t)) != 0 {
		t.Error("no ledger entry may exist after lockout")
	}
}

func TestAdvance_SuccessDebitsOnceAndAppendsOneEntry(t *testing.T) {
	// Scenario: confirm, correct PIN. Balance drops by exactly amount_base
	// and exactly one ledger entry records the matching balance_after.
	f := setup(t, "1000000")
	resp := f.driveToConfirm(t)
	resp = f.advance("y", resp.Context)
	resp = f.advance("123456", resp.Context)

	if resp.Status != shared.StatusSuccess {
		t.Fatalf("expected SUCCESS, got %s (%s)", resp.Status, resp.Message)
	}
	if resp.Context != nil {
		t.Error("SUCCESS must discard the context")
	}

	newBalance := f.balance(t)
	if !newBalance.Equal(dec("950000")) {
		t.Fatalf("expected balance 950000, got %s", newBalance)
	}

	entries := f.ledgerEntries(t)
	if len(entries) != 1 {
		t.Fatalf("expected exactly one ledger entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Type != domain.EntryTypeTransfer {
		t.Errorf("expected TRANSFER entry, got %s", entry.Type)
	}
	if !entry.Amount.Equal(dec("-50000")) {
		t.Errorf("expected signed amount -50000, got %s", entry.Amount)
	}
	if !entry.BalanceAfter.Equal(newBalance) {
		t.Errorf("balance_after %s does not match balance %s", entry.BalanceAfter, newBalance)
	}
}

func TestAdvance_CrossCurrencyConversion(t *testing.T) {
	f := setup(t, "1000000")
	f.extractor.slots = nlp.Slots{Target: "보람", Amount: decPtr("100000"), Currency: shared.VND}

	resp := f.advance("보람한테 십만동 보내줘", nil)
	if resp.Status != shared.StatusConfirm {
		t.Fatalf("expected CONFIRM, got %s (%s)", resp.Status, resp.Message)
	}
	if got := resp.Context.AmountBase; got == nil || !got.Equal(dec("5700")) {
		t.Fatalf("expected amount_base 5700 (100000 * 0.057), got %v", got)
	}

	resp = f.advance("응", resp.Context)
	resp = f.advance("123456", resp.Context)
	if resp.Status != shared.StatusSuccess {
		t.Fatalf("expected SUCCESS, got %s (%s)", resp.Status, resp.Message)
	}

	entries := f.ledgerEntries(t)
	if len(entries) != 1 {
		t.Fatalf("expected one ledger entry, got %d", len(entries))
	}
	if entries[0].TargetCurrencyCode != shared.VND || !entries[0].TargetAmount.Equal(dec("100000")) {
		t.Errorf("ledger entry must record the target amount and currency, got %s %s",
			entries[0].TargetAmount, entries[0].TargetCurrencyCode)
	}
}

func TestAdvance_UnknownUser(t *testing.T) {
	f := setup(t, "1000000")
	resp := f.service.Advance(context.Background(), app.Request{RawText: "송금", UserID: "nobody"})
	if resp.Status != shared.StatusError {
		t.Fatalf("expected ERROR, got %s", resp.Status)
	}
	if resp.Message != "사용자를 찾을 수 없습니다." {
		t.Errorf("unexpected message: %q", resp.Message)
	}
}

func TestAdvance_ExtractionFailureIsTerminalWithoutSideEffects(t *testing.T) {
	f := setup(t, "1000000")
	f.extractor.err = errors.New("upstream timeout")

	resp := f.advance("보람이한테 5만원", nil)
	if resp.Status != shared.StatusError {
		t.Fatalf("expected ERROR, got %s", resp.Status)
	}
	if !f.balance(t).Equal(dec("1000000")) || len(f.ledgerEntries(t)) != 0 {
		t.Error("extraction failure must have no side effects")
	}
}
