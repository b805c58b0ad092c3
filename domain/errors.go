package domain

import "fmt"

type DomainError struct {
	message string
}

func NewDomainError(format string, args ...interface{}) *DomainError {
	return &DomainError{message: fmt.Sprintf(format, args...)}
}

func (e *DomainError) Error() string {
	return e.message
}

var (
	ErrInsufficientFunds = NewDomainError("insufficient funds")
	ErrUserNotFound      = NewDomainError("user not found")
	ErrAccountNotFound   = NewDomainError("primary account not found")
	ErrContactNotFound   = NewDomainError("contact not found")
	ErrRateNotFound      = NewDomainError("exchange rate not found")
)
