package shared

type Currency string

const (
	KRW Currency = "KRW"
	USD Currency = "USD"
	JPY Currency = "JPY"
	VND Currency = "VND"
	EUR Currency = "EUR"
	IDR Currency = "IDR"
)

// BaseCurrency is the currency account balances and ledger amounts are
// stored in. Its exchange rate is 1.0 by definition.
const BaseCurrency = KRW

// Status is the outcome of one dialogue turn. NEED_INFO, CONFIRM and
// NEED_PASSWORD carry an updated context; the rest are terminal and the
// caller must discard the context.
type Status string

const (
	StatusNeedInfo     Status = "NEED_INFO"
	StatusConfirm      Status = "CONFIRM"
	StatusNeedPassword Status = "NEED_PASSWORD"
	StatusSuccess      Status = "SUCCESS"
	StatusCancel       Status = "CANCEL"
	StatusFail         Status = "FAIL"
	StatusError        Status = "ERROR"
)

// Terminal reports whether the status ends the flow.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusCancel, StatusFail, StatusError:
		return true
	}
	return false
}

// Field names one of the three required transfer slots.
type Field string

const (
	FieldTarget   Field = "target"
	FieldAmount   Field = "amount"
	FieldCurrency Field = "currency"
)
