package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/emanuelef/yt-mp3-api-go/internal/config"
	"github.com/emanuelef/yt-mp3-api-go/internal/infra/cache"
	"github.com/emanuelef/yt-mp3-api-go/internal/infra/fs"
	"github.com/emanuelef/yt-mp3-api-go/internal/infra/r2"
	"github.com/emanuelef/yt-mp3-api-go/internal/infra/sqlite"
	"github.com/emanuelef/yt-mp3-api-go/internal/service/pipeline"
	transporthttp "github.com/emanuelef/yt-mp3-api-go/internal/transport/http"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg, log := a.cfg, a.logger

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// No request is in flight yet, so leftovers can go.
	if err := fs.PrepareDownloadDir(cfg.DownloadDir, cfg.PurgeOnStart, log); err != nil {
		return err
	}

	ex := a.newExtractor()
	if version, err := ex.CheckYtDlp(ctx); err != nil {
		log.Warn("yt-dlp is not available, downloads will fail", "error", err)
	} else {
		log.Info("yt-dlp found", "version", version)
	}

	cleanerCfg := &fs.CleanerConfig{}
	opts := transporthttp.Options{
		Flashes:     cache.NewFlashStore(cfg.FlashTTL, time.Minute),
		FlashTTL:    cfg.FlashTTL,
		URLExpiry:   cfg.R2URLExpiry,
		AudioFormat: cfg.AudioFormat,
		BitrateKbps: cfg.AudioBitrateKbps,
		Logger:      log,
	}

	var recorder pipeline.Recorder
	if cfg.HistoryEnabled {
		repo, err := sqlite.NewRepository(cfg.DataDir, log)
		if err != nil {
			log.Warn("Request history disabled", "error", err)
		} else {
			defer repo.Close()
			recorder = repo
			opts.History = repo
			cleanerCfg.History = repo
			cleanerCfg.HistoryMaxAge = cfg.HistoryMaxAge
			cleanerCfg.HistoryInterval = time.Hour
		}
	}

	if cfg.DeliveryMode == config.DeliveryR2 {
		client, err := r2.NewClient(ctx, &r2.Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			Endpoint:        cfg.R2Endpoint,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to initialize R2: %w", err)
		}
		opts.Objects = client
		cleanerCfg.Objects = client
		cleanerCfg.ObjectsMaxAge = cfg.R2MaxFileAge
		cleanerCfg.ObjectsInterval = cfg.R2CleanupInterval
	}

	cleaner := fs.NewCleaner(cleanerCfg, log)
	cleaner.Start(ctx)
	defer cleaner.Stop()

	opts.Processor = a.newPipeline(ex, recorder)
	handlers, err := transporthttp.NewHandlers(opts)
	if err != nil {
		return fmt.Errorf("failed to build handlers: %w", err)
	}

	server := transporthttp.NewServer(":"+cfg.Port, transporthttp.NewRouter(cfg, handlers, log), cfg.ExtractTimeout)

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server starting",
			"port", cfg.Port,
			"env", cfg.Env,
			"delivery", cfg.DeliveryMode,
			"download_dir", cfg.DownloadDir,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
