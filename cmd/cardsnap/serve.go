package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Bruhadev45/Cardsnap-AI/internal/assistant"
	"github.com/Bruhadev45/Cardsnap-AI/internal/capture"
	"github.com/Bruhadev45/Cardsnap-AI/internal/ratelimit"
	"github.com/Bruhadev45/Cardsnap-AI/internal/web"
)

const (
	pruneInterval  = time.Minute
	sessionMaxIdle = 30 * time.Minute
	limiterMaxIdle = 10 * time.Minute
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		scans := capture.NewRegistry(a.extractor, a.contacts, a.logger)
		limiter := ratelimit.New(a.cfg.RateLimitRPS, a.cfg.RateLimitBurst)
		server := web.NewServer(a.users, a.contacts, scans, assistant.New(a.chat, a.logger), limiter, a.logger)
		srv := server.HTTPServer(a.cfg.ListenAddr)

		go prune(ctx, scans, limiter, a)

		errCh := make(chan error, 1)
		go func() {
			a.logger.Info("listening", "addr", a.cfg.ListenAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case <-ctx.Done():
			a.logger.Info("shutting down")
		case err := <-errCh:
			if err != nil {
				return err
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

// prune drops abandoned scan sessions and idle rate limiter buckets until ctx
// is done.
func prune(ctx context.Context, scans *capture.Registry, limiter *ratelimit.KeyedRateLimiter, a *app) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := scans.Prune(sessionMaxIdle); n > 0 {
				a.logger.Info("pruned idle scan sessions", "count", n)
			}
			limiter.Prune(limiterMaxIdle)
		}
	}
}
