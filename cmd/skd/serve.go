package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Razue/sammelkarten-sub002/internal/archive"
	"github.com/Razue/sammelkarten-sub002/internal/config"
	"github.com/Razue/sammelkarten-sub002/internal/events"
	"github.com/Razue/sammelkarten-sub002/internal/indexer"
	"github.com/Razue/sammelkarten-sub002/internal/publish"
	"github.com/Razue/sammelkarten-sub002/internal/schema"
	"github.com/Razue/sammelkarten-sub002/internal/server"
	"github.com/Razue/sammelkarten-sub002/internal/signer"
	"github.com/Razue/sammelkarten-sub002/internal/store/postgres"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the sammelkarten API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		slog.SetDefault(logger)

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return err
		}

		adminSigner, err := signer.NewLocal(cfg.AdminSecretKey)
		if err != nil {
			store.Close()
			return err
		}

		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.ConnectNATS(cfg.NATSURL)
			if err != nil {
				store.Close()
				return err
			}
			publisher = pub
			logger.Info("event bus enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = &events.NoopPublisher{}
			logger.Info("event bus disabled (SK_NATS_URL not set)")
		}

		ix := indexer.New(store)
		workflow := publish.New(store, signer.NewAdapter(adminSigner), schema.New(nil), ix, publisher, logger)

		// Build the derived index before serving; a failure leaves the
		// index unavailable rather than blocking startup.
		if err := workflow.RebuildIndex(context.Background()); err != nil {
			logger.Error("initial index rebuild failed", "error", err)
		} else {
			snap := workflow.IndexerState()
			logger.Info("index built", "addresses", snap.Addresses)
		}

		srv := server.New(store, workflow, publisher, cfg.RelayURL, logger)
		httpServer := &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: srv.NewHTTPHandler(cfg.AdminToken),
		}

		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("HTTP server error", "error", err)
			}
		}()

		var scheduler *archive.Scheduler
		if cfg.ArchiveInterval > 0 && cfg.ArchiveS3Bucket != "" {
			dest, err := archive.NewS3Destination(
				context.Background(),
				cfg.ArchiveS3Bucket,
				cfg.ArchiveS3Key,
				cfg.ArchiveS3Region,
				cfg.ArchiveS3Endpoint,
			)
			if err != nil {
				logger.Error("failed to create S3 archive destination", "error", err)
			} else {
				scheduler = archive.NewScheduler(store, []archive.Destination{dest}, cfg.ArchiveInterval, logger)
				scheduler.Start()
				logger.Info("archive scheduler started", "bucket", cfg.ArchiveS3Bucket, "interval", cfg.ArchiveInterval)
			}
		}

		pubkey, _ := adminSigner.GetPublicKey(context.Background())
		logger.Info("sammelkarten server started", "http_addr", cfg.HTTPAddr, "admin_pubkey", pubkey)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		if scheduler != nil {
			scheduler.Stop()
			logger.Info("archive scheduler stopped")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "error", err)
		}
		logger.Info("HTTP server stopped")

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "error", err)
		}
		if err := store.Close(); err != nil {
			logger.Error("error closing store", "error", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}
