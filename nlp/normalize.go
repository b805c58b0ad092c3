package nlp

import (
	"strings"

	"github.com/shopspring/decimal"

	"fintrans/shared"
)

// currencyAliases maps colloquial currency words to ISO codes. The extractor
// prompt already asks for ISO codes, but users answering the "which
// currency?" re-prompt type things like "달러", so normalization also runs
// locally on raw slot replies.
var currencyAliases = map[string]shared.Currency{
	"원":      shared.KRW,
	"한국원":    shared.KRW,
	"won":    shared.KRW,
	"달러":     shared.USD,
	"불":      shared.USD,
	"dollar": shared.USD,
	"usd":    shared.USD,
	"엔":      shared.JPY,
	"엔화":     shared.JPY,
	"yen":    shared.JPY,
	"동":      shared.VND,
	"dong":   shared.VND,
	"유로":     shared.EUR,
	"euro":   shared.EUR,
	"루피아":    shared.IDR,
	"rupiah": shared.IDR,
}

// NormalizeCurrency maps free-text currency input to a currency code. It
// accepts ISO codes in any case and the common colloquial aliases; anything
// else comes back as-is, uppercased, with ok=false.
func NormalizeCurrency(text string) (shared.Currency, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", false
	}
	if c, ok := currencyAliases[strings.ToLower(trimmed)]; ok {
		return c, true
	}
	upper := shared.Currency(strings.ToUpper(trimmed))
	switch upper {
	case shared.KRW, shared.USD, shared.JPY, shared.VND, shared.EUR, shared.IDR:
		return upper, true
	}
	return upper, false
}

// magnitude suffixes for Korean colloquial amounts, longest first so 십만
// wins over 만.
var magnitudes = []struct {
	suffix     string
	multiplier int64
}{
	{"백만", 1_000_000},
	{"십만", 100_000},
	{"만", 10_000},
	{"천", 1_000},
	{"백", 100},
}

// ParseAmount turns a free-text amount reply into a decimal. It strips
// thousands separators and the 원 suffix and expands colloquial magnitude
// words, so "5만원", "50,000원" and "50000" all come out as 50000. Returns
// false when the input contains no parseable amount.
func ParseAmount(text string) (decimal.Decimal, bool) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSuffix(cleaned, "원")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return decimal.Zero, false
	}

	for _, m := range magnitudes {
		if rest, found := strings.CutSuffix(cleaned, m.suffix); found {
			rest = strings.TrimSpace(rest)
			if rest == "" {
				return decimal.NewFromInt(m.multiplier), true
			}
			base, err := decimal.NewFromString(rest)
			if err != nil {
				return decimal.Zero, false
			}
			return base.Mul(decimal.NewFromInt(m.multiplier)), true
		}
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return amount, true
}
