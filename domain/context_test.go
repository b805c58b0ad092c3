package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"

	"fintrans/shared"
)

func TestTransferContext_StageTransitions(t *testing.T) {
	c := NewTransferContext()
	if c.Stage != StageCollect || c.AwaitingConfirm() || c.AwaitingPassword() {
		t.Fatalf("fresh context must be collecting, got %+v", c)
	}

	amountBase := decimal.NewFromInt(50000)
	rate := decimal.NewFromInt(1)
	c.MissingField = shared.FieldCurrency
	c.BeginConfirm(amountBase, rate, "송금하시겠습니까?")

	if !c.AwaitingConfirm() || c.AwaitingPassword() {
		t.Fatal("BeginConfirm must enter the confirm stage")
	}
	if c.MissingField != "" {
		t.Error("BeginConfirm must clear the missing field")
	}
	if !c.HasResolvedAmounts() {
		t.Error("BeginConfirm must record the resolved amounts")
	}
	if c.ConfirmMessage == "" {
		t.Error("BeginConfirm must keep the question for re-prompts")
	}

	c.BeginAuth()
	if !c.AwaitingPassword() || c.AwaitingConfirm() {
		t.Fatal("BeginAuth must enter the auth stage")
	}
	if c.PasswordAttempts != 0 {
		t.Error("BeginAuth must reset the attempt counter")
	}
	if c.ConfirmMessage != "" {
		t.Error("BeginAuth must drop the confirm question")
	}
}

func TestTransferContext_NilReceiverChecks(t *testing.T) {
	var c *TransferContext
	if c.AwaitingConfirm() || c.AwaitingPassword() || c.HasResolvedAmounts() {
		t.Fatal("nil context must report every stage check false")
	}
}

func TestRecordFailedAttempt(t *testing.T) {
	c := NewTransferContext()
	c.BeginAuth()

	for i := 1; i < MaxPasswordAttempts; i++ {
		if exhausted := c.RecordFailedAttempt(); exhausted {
			t.Fatalf("attempt %d must not exhaust the budget", i)
		}
		if c.RemainingAttempts() != MaxPasswordAttempts-i {
			t.Fatalf("after attempt %d, remaining = %d", i, c.RemainingAttempts())
		}
	}
	if exhausted := c.RecordFailedAttempt(); !exhausted {
		t.Fatalf("attempt %d must exhaust the budget", MaxPasswordAttempts)
	}
	if c.RemainingAttempts() != 0 {
		t.Errorf("remaining after exhaustion = %d", c.RemainingAttempts())
	}
}

func TestTransferContext_JSONRoundTrip(t *testing.T) {
	amount := decimal.NewFromInt(10)
	amountBase := decimal.RequireFromString("14000")
	rate := decimal.RequireFromString("1400.00")
	original := &TransferContext{
		Stage:            StageAuth,
		Target:           "보람",
		Amount:           &amount,
		Currency:         shared.USD,
		AmountBase:       &amountBase,
		ExchangeRate:     &rate,
		PasswordAttempts: 2,
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var restored TransferContext
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if restored.Stage != original.Stage || restored.Target != original.Target ||
		restored.Currency != original.Currency || restored.PasswordAttempts != original.PasswordAttempts {
		t.Errorf("round trip changed scalar fields: %+v", restored)
	}
	if restored.Amount == nil || !restored.Amount.Equal(amount) {
		t.Errorf("round trip changed amount: %v", restored.Amount)
	}
	if restored.AmountBase == nil || !restored.AmountBase.Equal(amountBase) {
		t.Errorf("round trip changed amount_base: %v", restored.AmountBase)
	}
	if restored.ExchangeRate == nil || !restored.ExchangeRate.Equal(rate) {
		t.Errorf("round trip changed exchange_rate: %v", restored.ExchangeRate)
	}
}
