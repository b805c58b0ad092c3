package app

import (
	"fintrans/domain"
	"fintrans/shared"
)

// UIHintConfirmButtons tells a graphical caller to render accept/reject
// controls for the confirmation step. The controls answer with the
// out-of-band signals below instead of free text.
const UIHintConfirmButtons = "confirm_buttons"

// Out-of-band confirmation signals emitted by non-text UI controls.
const (
	SignalConfirmYes = "__YES__"
	SignalConfirmNo  = "__NO__"
)

// Request is one user turn. Context is nil on the first message of a
// transfer intent and otherwise carries the opaque state returned by the
// previous turn, unmodified.
type Request struct {
	RawText string                  `json:"raw_text"`
	UserID  string                  `json:"user_id"`
	Context *domain.TransferContext `json:"context"`
}

// Response is the outcome of one turn. Context is non-nil exactly for the
// continuation statuses (NEED_INFO, CONFIRM, NEED_PASSWORD); terminal
// statuses drop it so a finished flow cannot be replayed.
type Response struct {
	Status  shared.Status           `json:"status"`
	Field   shared.Field            `json:"field,omitempty"`
	Message string                  `json:"message"`
	Context *domain.TransferContext `json:"context,omitempty"`
	UIHint  string                  `json:"ui_hint,omitempty"`
}

func needInfo(field shared.Field, message string, ctx *domain.TransferContext) Response {
	return Response{Status: shared.StatusNeedInfo, Field: field, Message: message, Context: ctx}
}

func confirm(message string, ctx *domain.TransferContext) Response {
	return Response{Status: shared.StatusConfirm, Message: message, Context: ctx, UIHint: UIHintConfirmButtons}
}

func needPassword(message string, ctx *domain.TransferContext) Response {
	return Response{Status: shared.StatusNeedPassword, Message: message, Context: ctx}
}

func terminal(status shared.Status, message string) Response {
	return Response{Status: status, Message: message}
}
