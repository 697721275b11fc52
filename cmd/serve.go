package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/they4kman/gosweep/server"
	"github.com/they4kman/gosweep/store"
)

var serveFlags struct {
	addr         string
	store        string
	storeDSN     string
	snapshotsDir string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve games over HTTP and WebSocket",
	Long: `Serve one game per browser session. The JSON API lives under /api,
live updates under /ws and Prometheus metrics under /metrics.

Settings are read from the environment (and a .env file); flags override them.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if flags.Changed("addr") {
			settings.Addr = serveFlags.addr
		}
		if flags.Changed("store") {
			settings.Store = serveFlags.store
		}
		if flags.Changed("store-dsn") {
			settings.StoreDSN = serveFlags.storeDSN
		}
		if flags.Changed("snapshots-dir") {
			settings.SnapshotsDir = serveFlags.snapshotsDir
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		gin.SetMode(settings.GinMode)
		log := logrus.StandardLogger()

		bestTimes, err := store.Open(ctx, store.Kind(settings.Store), settings.StoreDSN, log)
		if err != nil {
			return fmt.Errorf("opening best time store: %w", err)
		}
		defer func() {
			if err := bestTimes.Close(); err != nil {
				log.WithError(err).Warn("closing best time store")
			}
		}()

		app := server.New(server.Options{
			Store:          bestTimes,
			SessionTimeout: settings.SessionTimeout,
			CookieMaxAge:   settings.CookieMaxAge,
			RateLimitRPS:   settings.RateLimitRPS,
			RateLimitBurst: settings.RateLimitBurst,
			SnapshotsDir:   settings.SnapshotsDir,
			Production:     settings.IsProduction(),
			Logger:         log,
		})
		defer app.Close()

		return app.Run(ctx, settings.Addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.addr, "addr", ":8080", "Address to listen on (ADDR, or :PORT)")
	serveCmd.Flags().StringVar(&serveFlags.store, "store", string(store.KindMemory),
		"Best time store: memory, file, redis or postgres (BEST_TIME_STORE)")
	serveCmd.Flags().StringVar(&serveFlags.storeDSN, "store-dsn", "",
		"File path or connection URL of the best time store (BEST_TIME_DSN)")
	serveCmd.Flags().StringVar(&serveFlags.snapshotsDir, "snapshots-dir", "",
		"Directory to save the final board of every game in (SNAPSHOTS_DIR)")

	rootCmd.AddCommand(serveCmd)
}
