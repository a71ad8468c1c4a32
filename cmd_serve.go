package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/tradeloop/internal/countries"
	"github.com/robalobadob/tradeloop/internal/httpserver"
	"github.com/robalobadob/tradeloop/internal/metrics"
	"github.com/robalobadob/tradeloop/internal/store"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP + WebSocket game server",
	Long: `Serves the game API on PORT (default 5175).

Background tasks run alongside the server and stop with it on SIGINT/SIGTERM:
the WebSocket event hub, the idle-session janitor (SESSION_TTL) and, when
WATCH_COUNTRIES is set, the dataset file watcher.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "listen port (overrides PORT)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	port := cfg.Port
	if servePort != "" {
		port = servePort
	}

	catalog, err := countries.NewCatalog(cfg.CountriesFile)
	if err != nil {
		return err
	}
	log.Info().Int("countries", catalog.Graph().Len()).Str("file", cfg.CountriesFile).Msg("dataset loaded")

	best, closeBest, err := openBestStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBest()

	hub := httpserver.NewHub(cfg.ClientOrigin)
	srv := httpserver.New(httpserver.Options{
		JWTSecret:    cfg.JWTSecret,
		ClientOrigin: cfg.ClientOrigin,
		Production:   cfg.Production(),
		Rules:        cfg.Rules,
		DailySalt:    cfg.DailySalt,
	}, catalog, store.NewMemoryStore(), best, hub)

	var watcher *countries.Watcher
	if cfg.WatchCountries {
		if watcher, err = countries.NewWatcher(catalog, countries.DefaultDebounce); err != nil {
			return err
		}
		watcher.OnReload = metrics.DatasetReloaded
		log.Info().Str("file", catalog.Path()).Msg("watching dataset")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return srv.Janitor(cfg.SessionTTL).Run(gctx) })
	g.Go(func() error { return srv.Run(gctx, ":"+port) })
	if watcher != nil {
		g.Go(func() error { return watcher.Run(gctx) })
	}

	log.Info().Str("port", port).Str("env", cfg.Env).Msg("starting tradeloop server")
	return g.Wait()
}
