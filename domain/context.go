package domain

import (
	"github.com/shopspring/decimal"

	"fintrans/shared"
)

// Stage is the explicit current-state tag of an in-progress transfer. It
// replaces the free-form awaiting_confirm/awaiting_password/missing_field
// flag soup: exactly one stage is active at a time, so combinations like
// "awaiting confirmation while also missing a field" cannot be represented.
type Stage string

const (
	// StageCollect: slots are still being gathered. MissingField names the
	// one slot the next user turn is expected to fill; empty means the next
	// turn re-runs validation on whatever is already present.
	StageCollect Stage = "collect"
	// StageConfirm: all slots resolved, rate and base amount computed, the
	// confirmation question has been asked.
	StageConfirm Stage = "confirm"
	// StageAuth: the user accepted, the transfer PIN has been requested.
	StageAuth Stage = "auth"
)

// MaxPasswordAttempts bounds the PIN retry loop. Reaching it is a terminal
// FAIL and the pending transfer is abandoned with the balance untouched.
const MaxPasswordAttempts = 5

// TransferContext is the only mutable state of a transfer flow. It is owned
// and mutated exclusively by the orchestrator; callers round-trip it opaquely
// between turns and drop it on any terminal outcome. The attempt counter
// deliberately lives here rather than in storage: a fresh flow starts with a
// clean slate (no cross-session lockout).
type TransferContext struct {
	Stage Stage `json:"stage"`

	Target   string           `json:"target,omitempty"`
	Amount   *decimal.Decimal `json:"amount,omitempty"`
	Currency shared.Currency  `json:"currency,omitempty"`

	// Resolved during the rate/balance step, set before entering
	// StageConfirm.
	AmountBase   *decimal.Decimal `json:"amount_base,omitempty"`
	ExchangeRate *decimal.Decimal `json:"exchange_rate,omitempty"`

	// Collect-stage only.
	MissingField shared.Field `json:"missing_field,omitempty"`

	// Confirm-stage only: kept so an ambiguous answer can re-emit the exact
	// same question.
	ConfirmMessage string `json:"confirm_message,omitempty"`

	// Auth-stage only.
	PasswordAttempts int `json:"password_attempts,omitempty"`
}

// NewTransferContext returns the empty context created at the first message
// of a transfer intent.
func NewTransferContext() *TransferContext {
	return &TransferContext{Stage: StageCollect}
}

// AwaitingConfirm reports whether this turn's input is a confirmation
// accept/reject.
func (c *TransferContext) AwaitingConfirm() bool {
	return c != nil && c.Stage == StageConfirm
}

// AwaitingPassword reports whether this turn's input is the transfer PIN.
func (c *TransferContext) AwaitingPassword() bool {
	return c != nil && c.Stage == StageAuth
}

// HasResolvedAmounts reports whether the rate/balance step has completed.
func (c *TransferContext) HasResolvedAmounts() bool {
	return c != nil && c.AmountBase != nil && c.ExchangeRate != nil
}

// BeginConfirm moves a fully resolved context into the confirmation stage.
func (c *TransferContext) BeginConfirm(amountBase, rate decimal.Decimal, message string) {
	c.Stage = StageConfirm
	c.AmountBase = &amountBase
	c.ExchangeRate = &rate
	c.MissingField = ""
	c.ConfirmMessage = message
	c.PasswordAttempts = 0
}

// BeginAuth moves an accepted confirmation into the PIN stage with a fresh
// attempt counter.
func (c *TransferContext) BeginAuth() {
	c.Stage = StageAuth
	c.ConfirmMessage = ""
	c.PasswordAttempts = 0
}

// RecordFailedAttempt increments the attempt counter and reports whether the
// bounded retry budget is exhausted.
func (c *TransferContext) RecordFailedAttempt() (exhausted bool) {
	c.PasswordAttempts++
	return c.PasswordAttempts >= MaxPasswordAttempts
}

// RemainingAttempts is how many wrong PINs are still tolerated.
func (c *TransferContext) RemainingAttempts() int {
	n := MaxPasswordAttempts - c.PasswordAttempts
	if n < 0 {
		return 0
	}
	return n
}
