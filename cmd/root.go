package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fintrans/app"
	"fintrans/config"
	"fintrans/logging"
	"fintrans/nlp"
	"fintrans/store"
)

var (
	cfgPath string

	// Shared runtime, built once per invocation by initRuntime.
	cfg             config.Config
	log             *logging.Logger
	dataStore       store.Store
	transferService *app.TransferService
)

var rootCmd = &cobra.Command{
	Use:   "fintrans",
	Short: "Conversational money-transfer service",
	Long: `fintrans runs the multi-turn, natural-language money transfer flow:
slot extraction, contact resolution, currency conversion, confirmation,
PIN verification and the atomic ledger commit.

Serve it over HTTP, talk to it from a terminal REPL, seed demo data or
refresh the reference exchange rates.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config file")
}

// initRuntime builds the shared service graph: config, logger, store and the
// transfer service with its language-understanding collaborators.
func initRuntime() error {
	var err error
	cfg, err = config.Load(cfgPath)
	if err != nil {
		return err
	}

	log, err = logging.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}

	switch cfg.Database.Driver {
	case "memory":
		mem := store.NewInMemoryStore()
		// The in-memory store starts empty every run; load the demo data so
		// the REPL and a local server are usable immediately.
		if err := store.Seed(context.Background(), mem); err != nil {
			return fmt.Errorf("failed to seed in-memory store: %w", err)
		}
		dataStore = mem
		log.Info("using seeded in-memory store")
	case "sqlite", "postgres":
		dataStore, err = store.OpenGorm(cfg.Database.Driver, cfg.Database.DSN, log)
		if err != nil {
			return err
		}
		log.Info("database connected", "driver", cfg.Database.Driver)
	default:
		return fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	if os.Getenv("OPENAI_API_KEY") == "" && cfg.NLP.BaseURL == "" {
		log.Warn("OPENAI_API_KEY is not set; slot extraction and semantic contact matching will fail")
	}

	client := nlp.NewClient(nlp.ClientConfig{
		BaseURL: cfg.NLP.BaseURL,
		Model:   cfg.NLP.Model,
		Timeout: cfg.NLP.Timeout,
	}, log)
	extractor := nlp.NewExtractor(client, log)
	resolver := app.NewContactResolver(dataStore, nlp.NewMatcher(client, log), log)
	transferService = app.NewTransferService(dataStore, extractor, resolver, log)

	return nil
}
