// Package rates pulls a reference exchange-rate table from an external feed
// and loads it into the rate store.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"fintrans/domain"
	"fintrans/logging"
	"fintrans/shared"
	"fintrans/store"
)

// per100Currencies are quoted per 100 units by the feed and must be scaled
// down to a per-unit rate before storage.
var per100Currencies = map[shared.Currency]bool{
	shared.JPY: true,
	shared.IDR: true,
	shared.VND: true,
}

// feedRow mirrors one entry of the JSON feed.
type feedRow struct {
	CurrencyCode string          `json:"currency_code"`
	CountryName  string          `json:"country_name"`
	BaseRate     decimal.Decimal `json:"base_rate"`
	SendRate     decimal.Decimal `json:"send_rate"`
	ReceiveRate  decimal.Decimal `json:"receive_rate"`
}

type feedResponse struct {
	ReferenceDate string    `json:"reference_date"`
	Rates         []feedRow `json:"rates"`
}

// Fetcher downloads and persists rate snapshots.
type Fetcher struct {
	url   string
	httpc *http.Client
	rates store.RateStore
	log   *logging.Logger
}

func NewFetcher(url string, rates store.RateStore, log *logging.Logger) *Fetcher {
	return &Fetcher{
		url:   url,
		httpc: &http.Client{Timeout: 10 * time.Second},
		rates: rates,
		log:   log.With("component", "rate_fetcher"),
	}
}

// FetchAndStore downloads the current table, normalizes it and upserts by
// (currency, reference date). Returns the number of rows stored.
func (f *Fetcher) FetchAndStore(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := f.httpc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("rate feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rate feed returned status %d", resp.StatusCode)
	}

	var feed feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return 0, fmt.Errorf("failed to decode rate feed: %w", err)
	}

	rows := normalize(feed)
	if len(rows) == 0 {
		return 0, fmt.Errorf("rate feed contained no usable rows")
	}

	if err := f.rates.UpsertRates(ctx, rows); err != nil {
		return 0, fmt.Errorf("failed to store rates: %w", err)
	}

	f.log.Info("rates stored", "rows", len(rows), "reference_date", feed.ReferenceDate)
	return len(rows), nil
}

// normalize converts feed rows into storable rate rows: per-100 currencies
// are scaled to per-unit, everything is rounded to two decimals and rows
// without a usable code or rate are dropped.
func normalize(feed feedResponse) []domain.ExchangeRate {
	date := feed.ReferenceDate
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	hundred := decimal.NewFromInt(100)
	out := make([]domain.ExchangeRate, 0, len(feed.Rates))
	for _, row := range feed.Rates {
		code := shared.Currency(row.CurrencyCode)
		if len(code) != 3 || !row.SendRate.IsPositive() {
			continue
		}

		base, send, receive := row.BaseRate, row.SendRate, row.ReceiveRate
		if per100Currencies[code] {
			base = base.Div(hundred)
			send = send.Div(hundred)
			receive = receive.Div(hundred)
		}

		out = append(out, domain.ExchangeRate{
			CurrencyCode:  code,
			CountryName:   row.CountryName,
			BaseRate:      base.Round(2),
			SendRate:      send.Round(2),
			ReceiveRate:   receive.Round(2),
			ReferenceDate: date,
		})
	}
	return out
}
