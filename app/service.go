package app

import (
	"context"
	"errors"
	"strings"

	"fintrans/domain"
	"fintrans/logging"
	"fintrans/nlp"
	"fintrans/shared"
	"fintrans/store"
)

// TransferService owns the multi-turn transfer state machine. Each Advance
// call handles exactly one user turn synchronously: it inspects the
// round-tripped context to resume mid-flow, sequences the collaborators
// (extractor, resolver, converter, guard, committer) and returns either a
// continuation prompt or a terminal result. The service itself keeps no
// per-flow state; everything lives in the returned context.
type TransferService struct {
	members   store.MemberStore
	accounts  store.AccountStore
	contacts  store.ContactStore
	ledger    store.LedgerStore
	extractor nlp.Extractor
	resolver  ContactResolver
	converter *CurrencyConverter
	guard     *AuthGuard
	log       *logging.Logger
}

func NewTransferService(
	stores store.Store,
	extractor nlp.Extractor,
	resolver ContactResolver,
	log *logging.Logger,
) *TransferService {
	serviceLog := log.With("service", "TransferService")
	return &TransferService{
		members:   stores,
		accounts:  stores,
		contacts:  stores,
		ledger:    stores,
		extractor: extractor,
		resolver:  resolver,
		converter: NewCurrencyConverter(stores),
		guard:     NewAuthGuard(stores, serviceLog),
		log:       serviceLog,
	}
}

// Advance runs one dialogue turn. States are evaluated in priority order:
// awaiting PIN, awaiting confirmation, awaiting a named slot, fresh
// extraction, then validation onward. Terminal responses carry no context.
func (s *TransferService) Advance(ctx context.Context, req Request) Response {
	member, err := s.members.GetByUsername(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return terminal(shared.StatusError, msgUserNotFound)
		}
		s.log.Error("member lookup failed", "user_id", req.UserID, "error", err)
		return terminal(shared.StatusError, msgInternalError)
	}

	tctx := req.Context

	if tctx.AwaitingPassword() {
		return s.handleAuth(ctx, member, tctx, req.RawText)
	}
	if tctx.AwaitingConfirm() {
		return s.handleConfirm(tctx, req.RawText)
	}
	if tctx != nil && tctx.MissingField != "" {
		return s.handleMissingField(ctx, member, tctx, req.RawText)
	}

	if tctx == nil {
		tctx = domain.NewTransferContext()
		slots, err := s.extractor.Extract(ctx, req.RawText)
		if err != nil {
			s.log.Error("slot extraction failed", "user_id", member.UserID, "error", err)
			return terminal(shared.StatusError, msgInternalError)
		}
		tctx.Target = slots.Target
		tctx.Amount = slots.Amount
		tctx.Currency = slots.Currency
	}

	return s.validateAndProceed(ctx, member, tctx)
}

// validateAndProceed checks the slots in fixed order (target, amount,
// currency), asks for the first missing one, and otherwise runs the
// rate/balance step and presents the confirmation question.
func (s *TransferService) validateAndProceed(ctx context.Context, member *domain.Member, tctx *domain.TransferContext) Response {
	if strings.TrimSpace(tctx.Target) == "" {
		tctx.MissingField = shared.FieldTarget
		return needInfo(shared.FieldTarget, msgNeedTarget, tctx)
	}

	contact, err := s.resolver.Resolve(ctx, member.UserID, tctx.Target)
	if err != nil {
		// A flaky semantic tier degrades to "not found": the user is asked
		// to repeat the name, nothing is lost.
		s.log.Warn("contact resolution errored, treating as no match", "user_id", member.UserID, "error", err)
		contact = nil
	}
	if contact == nil {
		tctx.Target = ""
		tctx.MissingField = shared.FieldTarget
		return needInfo(shared.FieldTarget, msgTargetNotFound, tctx)
	}
	tctx.Target = contact.Name

	if tctx.Amount == nil || !tctx.Amount.IsPositive() {
		tctx.Amount = nil
		tctx.MissingField = shared.FieldAmount
		return needInfo(shared.FieldAmount, msgNeedAmount, tctx)
	}

	if tctx.Currency == "" {
		tctx.MissingField = shared.FieldCurrency
		return needInfo(shared.FieldCurrency, msgNeedCurrency, tctx)
	}

	rate, err := s.converter.Rate(ctx, tctx.Currency)
	if err != nil {
		if errors.Is(err, domain.ErrRateNotFound) {
			// Unknown currency ends the flow; the context is deliberately
			// not retained (see DESIGN.md).
			return terminal(shared.StatusError, msgRateNotFound(tctx.Currency))
		}
		s.log.Error("rate lookup failed", "currency", tctx.Currency, "error", err)
		return terminal(shared.StatusError, msgInternalError)
	}

	account, err := s.accounts.GetPrimary(ctx, member.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return terminal(shared.StatusError, msgAccountNotFound)
		}
		s.log.Error("primary account lookup failed", "user_id", member.UserID, "error", err)
		return terminal(shared.StatusError, msgInternalError)
	}

	amountBase := s.converter.ToBase(*tctx.Amount, rate)
	if amountBase.GreaterThan(account.Balance) {
		return terminal(shared.StatusError, msgInsufficient)
	}

	message := msgConfirm(tctx.Target, *tctx.Amount, tctx.Currency, amountBase)
	tctx.BeginConfirm(amountBase, rate, message)
	return confirm(message, tctx)
}

// handleMissingField consumes a turn that answers a single named slot, then
// re-runs validation with the updated context.
func (s *TransferService) handleMissingField(ctx context.Context, member *domain.Member, tctx *domain.TransferContext, input string) Response {
	switch tctx.MissingField {
	case shared.FieldTarget:
		contact, err := s.resolver.Resolve(ctx, member.UserID, input)
		if err != nil {
			s.log.Warn("contact resolution errored, treating as no match", "user_id", member.UserID, "error", err)
			contact = nil
		}
		if contact == nil {
			return needInfo(shared.FieldTarget, msgTargetNotFound, tctx)
		}
		tctx.Target = contact.Name

	case shared.FieldAmount:
		amount, ok := nlp.ParseAmount(input)
		if !ok || !amount.IsPositive() {
			return needInfo(shared.FieldAmount, msgAmountInvalid, tctx)
		}
		tctx.Amount = &amount

	case shared.FieldCurrency:
		// An unknown code is admitted here and rejected by the rate lookup,
		// which owns the authoritative answer to "can we quote this?".
		currency, _ := nlp.NormalizeCurrency(input)
		if currency == "" {
			return needInfo(shared.FieldCurrency, msgNeedCurrency, tctx)
		}
		tctx.Currency = currency
	}

	tctx.MissingField = ""
	return s.validateAndProceed(ctx, member, tctx)
}

// handleConfirm interprets the turn after the confirmation question.
// Anything that is neither an accept nor a reject token re-emits the same
// question with the context unchanged.
func (s *TransferService) handleConfirm(tctx *domain.TransferContext, input string) Response {
	switch classifyConfirmation(input) {
	case confirmYes:
		tctx.BeginAuth()
		return needPassword(msgNeedPassword, tctx)
	case confirmNo:
		return terminal(shared.StatusCancel, msgCancelled)
	default:
		return confirm(tctx.ConfirmMessage, tctx)
	}
}

// handleAuth verifies the PIN and, on success, performs the atomic commit.
func (s *TransferService) handleAuth(ctx context.Context, member *domain.Member, tctx *domain.TransferContext, input string) Response {
	ok, err := s.guard.Verify(ctx, member.Username, strings.TrimSpace(input))
	if err != nil {
		s.log.Error("PIN verification failed", "user_id", member.UserID, "error", err)
		return terminal(shared.StatusError, msgInternalError)
	}
	if !ok {
		if exhausted := tctx.RecordFailedAttempt(); exhausted {
			s.log.Warn("transfer abandoned after exhausted PIN attempts", "user_id", member.UserID)
			return terminal(shared.StatusFail, msgTransferFailed)
		}
		return needPassword(msgWrongPassword(tctx.RemainingAttempts()), tctx)
	}

	return s.commit(ctx, member, tctx)
}

func (s *TransferService) commit(ctx context.Context, member *domain.Member, tctx *domain.TransferContext) Response {
	if !tctx.HasResolvedAmounts() {
		s.log.Error("commit reached without resolved amounts", "user_id", member.UserID)
		return terminal(shared.StatusError, msgInternalError)
	}

	contact, err := s.contacts.ContactByName(ctx, member.UserID, tctx.Target)
	if err != nil {
		s.log.Error("resolved contact vanished before commit", "user_id", member.UserID, "target", tctx.Target, "error", err)
		return terminal(shared.StatusError, msgInternalError)
	}
	account, err := s.accounts.GetPrimary(ctx, member.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return terminal(shared.StatusError, msgAccountNotFound)
		}
		s.log.Error("primary account lookup failed at commit", "user_id", member.UserID, "error", err)
		return terminal(shared.StatusError, msgInternalError)
	}

	newBalance, err := s.ledger.CommitTransfer(ctx, store.CommitParams{
		AccountID:      account.AccountID,
		ContactID:      contact.ContactID,
		AmountBase:     *tctx.AmountBase,
		ExchangeRate:   *tctx.ExchangeRate,
		TargetAmount:   *tctx.Amount,
		TargetCurrency: tctx.Currency,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			// A concurrent flow spent the balance between confirmation and
			// commit; the conditional debit caught it.
			return terminal(shared.StatusError, msgInsufficient)
		}
		s.log.Error("transfer commit failed", "user_id", member.UserID, "account_id", account.AccountID, "error", err)
		return terminal(shared.StatusError, msgInternalError)
	}

	s.log.Info("transfer completed",
		"user_id", member.UserID,
		"account_id", account.AccountID,
		"contact_id", contact.ContactID,
		"amount_base", tctx.AmountBase.String(),
		"balance_after", newBalance.String())
	return terminal(shared.StatusSuccess, msgSuccess(newBalance))
}

type confirmation int

const (
	confirmAmbiguous confirmation = iota
	confirmYes
	confirmNo
)

var (
	affirmativeTokens = []string{"yes", "y", "네", "응", "맞아"}
	negativeTokens    = []string{"no", "n", "아니", "취소"}
)

func classifyConfirmation(input string) confirmation {
	trimmed := strings.TrimSpace(input)
	if trimmed == SignalConfirmYes {
		return confirmYes
	}
	if trimmed == SignalConfirmNo {
		return confirmNo
	}
	lowered := strings.ToLower(trimmed)
	for _, token := range affirmativeTokens {
		if lowered == token {
			return confirmYes
		}
	}
	for _, token := range negativeTokens {
		if lowered == token {
			return confirmNo
		}
	}
	return confirmAmbiguous
}
