package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"fintrans/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo members, accounts, contacts and rates",
	Long: `Loads the demo data set into the configured database: three members
(password "1234", transfer PIN "123456"), a funded primary account each,
an address book and a reference-rate snapshot.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := initRuntime(); err != nil {
			return err
		}
		defer log.Sync()

		if cfg.Database.Driver == "memory" {
			// initRuntime already seeded it.
			fmt.Println("in-memory store is seeded on startup; nothing to do")
			return nil
		}

		if err := store.Seed(context.Background(), dataStore); err != nil {
			return err
		}
		fmt.Println("demo data loaded")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
