package cmd

import (
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"fintrans/server"
	"fintrans/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP transfer server",
	Long: `Starts the HTTP server with two surfaces: a stateless turn endpoint
where the caller round-trips the transfer context, and a stateful chat
endpoint that keeps the context per session (in Redis when enabled,
otherwise in process memory).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := initRuntime(); err != nil {
			return err
		}
		defer log.Sync()

		var contexts session.ContextStore
		if cfg.Redis.Enabled {
			client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
			contexts = session.NewRedisStore(client, session.DefaultTTL)
			log.Info("session contexts stored in redis", "addr", cfg.Redis.Addr)
		} else {
			contexts = session.NewMemoryStore(session.DefaultTTL)
			log.Info("session contexts stored in memory")
		}

		srv := server.New(transferService, contexts, log)
		return srv.Run(cfg.Server.Addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
