package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"fintrans/rates"
)

var rateFeedURL string

var fetchRatesCmd = &cobra.Command{
	Use:   "fetch-rates",
	Short: "Fetch the reference exchange-rate table and store it",
	Long: `Downloads the current reference rates from the configured JSON feed,
normalizes per-100 quoted currencies (JPY, IDR, VND) to per-unit rates
and upserts them by currency and reference date.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := initRuntime(); err != nil {
			return err
		}
		defer log.Sync()

		url := rateFeedURL
		if url == "" {
			url = cfg.RateFeed.URL
		}
		if url == "" {
			return fmt.Errorf("no rate feed URL configured (--url or rate_feed.url)")
		}

		fetcher := rates.NewFetcher(url, dataStore, log)
		n, err := fetcher.FetchAndStore(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("stored %d rate rows\n", n)
		return nil
	},
}

func init() {
	fetchRatesCmd.Flags().StringVar(&rateFeedURL, "url", "", "rate feed URL (overrides config)")
	rootCmd.AddCommand(fetchRatesCmd)
}
