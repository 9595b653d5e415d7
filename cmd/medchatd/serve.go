package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"medchatd/internal/httpapi"
	"medchatd/internal/manager"
	"medchatd/internal/registry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP chat server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd.Flags(), os.Getenv)
	if err != nil {
		return err
	}
	log := newLogger(cfg, os.Stderr)

	model, err := registry.Resolve(cfg.ModelPath)
	if err != nil {
		// The engine loads lazily; a missing artifact surfaces on first use.
		log.Warn().Err(err).Str("model_path", cfg.ModelPath).Msg("model not resolved")
		model.Path = cfg.ModelPath
	} else {
		log.Info().Str("model", model.ID).Str("quant", model.Quant).Int64("size_bytes", model.SizeBytes).Msg("model resolved")
	}

	mgr := newManager(cfg, model.Path, &log)

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	configureHTTPAPI(baseCtx, cfg, log)

	mon := manager.NewMonitor(mgr, monitorConfig(cfg, &log))
	mon.Start(baseCtx)

	if cfg.Preload {
		go func() {
			if err := <-mgr.Preload(baseCtx); err != nil {
				log.Error().Err(err).Msg("preload failed")
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(mgr),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("config", configSummary(cfg)).Msg("medchatd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			mon.Stop()
			mgr.Shutdown(context.Background())
			return err
		}
	case <-sigCtx.Done():
		log.Info().Msg("shutdown requested")
	}

	ctx, cancel := context.WithTimeout(context.Background(), seconds(cfg.ShutdownTimeoutSeconds))
	defer cancel()
	// Streams see the base context canceled and finish with an [ERROR] frame.
	go func() {
		<-ctx.Done()
		cancelBase()
	}()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown incomplete")
	}
	cancelBase()
	mon.Stop()
	// Bounded by the manager's own drain timeout.
	mgr.Shutdown(context.Background())
	log.Info().Msg("stopped")
	return nil
}
