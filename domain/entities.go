package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"fintrans/shared"
)

// Member is a registered user. PasswordHash guards login (outside this
// core); PinHash guards transfers and is the only credential the transfer
// flow ever checks. Both are bcrypt.
type Member struct {
	UserID            string    `json:"user_id" gorm:"primaryKey;column:user_id"`
	Username          string    `json:"username" gorm:"uniqueIndex;size:50"`
	KoreanName        string    `json:"korean_name" gorm:"size:50"`
	PasswordHash      string    `json:"-" gorm:"size:255"`
	PinHash           string    `json:"-" gorm:"size:255"`
	PreferredLanguage string    `json:"preferred_language" gorm:"size:10;default:ko"`
	CreatedAt         time.Time `json:"created_at"`
}

// Account holds funds in the base currency. Exactly one account per user is
// primary; the transfer core only ever debits the primary account, and its
// balance is mutated only by the ledger committer.
type Account struct {
	AccountID    string          `json:"account_id" gorm:"primaryKey;column:account_id"`
	UserID       string          `json:"user_id" gorm:"index"`
	Balance      decimal.Decimal `json:"balance" gorm:"type:decimal(18,2)"`
	CurrencyCode shared.Currency `json:"currency_code" gorm:"size:3"`
	IsPrimary    bool            `json:"is_primary"`
}

// Contact is an address-book entry. Read-only from the transfer core.
type Contact struct {
	ContactID          string          `json:"contact_id" gorm:"primaryKey;column:contact_id"`
	UserID             string          `json:"user_id" gorm:"index"`
	Name               string          `json:"name" gorm:"size:50"`
	Relationship       string          `json:"relationship,omitempty" gorm:"size:50"`
	TargetCurrencyCode shared.Currency `json:"target_currency_code,omitempty" gorm:"size:3"`
}

// ExchangeRate is one reference-rate row. Several rows may exist per
// currency; lookups always take the most recent ReferenceDate. SendRate is
// the outgoing-remittance rate used for transfers.
type ExchangeRate struct {
	ID            uint            `json:"-" gorm:"primaryKey"`
	CurrencyCode  shared.Currency `json:"currency_code" gorm:"size:3;index:idx_rate_currency_date"`
	CountryName   string          `json:"country_name,omitempty" gorm:"size:50"`
	BaseRate      decimal.Decimal `json:"base_rate" gorm:"type:decimal(18,2)"`
	SendRate      decimal.Decimal `json:"send_rate" gorm:"type:decimal(18,2)"`
	ReceiveRate   decimal.Decimal `json:"receive_rate" gorm:"type:decimal(18,2)"`
	ReferenceDate string          `json:"reference_date" gorm:"size:10;index:idx_rate_currency_date"`
}

const (
	EntryTypeTransfer = "TRANSFER"

	// Fixed memo/category for transfer entries, carried over from the
	// reference data set.
	TransferMemo     = "송금"
	TransferCategory = "이체"
)

// LedgerEntry is the immutable record of one completed fund movement.
// Amount is signed in the base currency (negative for a debit) and
// BalanceAfter must equal the balance immediately before the entry plus
// Amount. Entries are append-only: never updated or deleted.
type LedgerEntry struct {
	EntryID            string          `json:"entry_id" gorm:"primaryKey;column:entry_id"`
	AccountID          string          `json:"account_id" gorm:"index"`
	ContactID          string          `json:"contact_id"`
	Type               string          `json:"type" gorm:"size:20"`
	Amount             decimal.Decimal `json:"amount" gorm:"type:decimal(18,2)"`
	BalanceAfter       decimal.Decimal `json:"balance_after" gorm:"type:decimal(18,2)"`
	ExchangeRate       decimal.Decimal `json:"exchange_rate" gorm:"type:decimal(18,6)"`
	TargetAmount       decimal.Decimal `json:"target_amount" gorm:"type:decimal(18,2)"`
	TargetCurrencyCode shared.Currency `json:"target_currency_code" gorm:"size:3"`
	Memo               string          `json:"memo" gorm:"size:100"`
	Category           string          `json:"category" gorm:"size:50"`
	CreatedAt          time.Time       `json:"created_at"`
}
