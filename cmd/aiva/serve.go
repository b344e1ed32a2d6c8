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

	httpadapter "github.com/PabloGalante/aiva-chat/internal/adapters/http"
	"github.com/PabloGalante/aiva-chat/internal/adapters/notify"
	"github.com/PabloGalante/aiva-chat/internal/config"
	"github.com/PabloGalante/aiva-chat/internal/observability"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat API over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.Port, "port", cfg.Port, "HTTP port")
	cmd.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	return cmd
}

func runServe(cfg *config.Config) error {
	observability.SetLevel(cfg.LogLevel)
	logger := observability.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notices := notify.NewCenter(cfg.NoticeTTL)
	a := newApp(ctx, cfg, notices)
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("closing storage", "error", err)
		}
	}()

	if err := a.svc.Start(ctx); err != nil {
		// Keep serving: every chat route answers with the configuration error.
		logger.Error("chat disabled", "error", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpadapter.NewServer(a.svc, notices),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("AivaChat API listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case serveErr = <-errCh:
		logger.Error("http server failed", "error", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	a.svc.Flush(shutdownCtx)
	return serveErr
}
