package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aurumiq/aurumiq/api"
	"github.com/aurumiq/aurumiq/cache"
	"github.com/aurumiq/aurumiq/fyers"
	"github.com/aurumiq/aurumiq/journal"
	"github.com/aurumiq/aurumiq/quotes"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST API and quote poller",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := newLogger(cfg)

	store, err := journal.NewSQLite(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer store.Close()

	broker := fyers.NewClient(fyers.Config{
		ClientID:    cfg.Fyers.ClientID,
		SecretKey:   cfg.Fyers.SecretKey,
		RedirectURI: cfg.Fyers.RedirectURI,
		Cache:       cache.New(cfg.Cache.Path),
		Logger:      log,
	})
	if !broker.IsConfigured() {
		log.Warn("fyers credentials not configured; live prices disabled")
	}

	poller := quotes.NewPoller(broker, cfg.Quotes.PollInterval, log)
	server := api.NewServer(store, broker, poller, log, cfg.Server.Port)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go poller.Run(ctx)
	server.RefreshWatchSet()

	if err := server.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	log.Info("shut down cleanly")
	return nil
}
