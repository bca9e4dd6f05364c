// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/ansuz/internal/api"
	"github.com/starford/ansuz/internal/mcpserver"
	"github.com/starford/ansuz/internal/sandbox"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/vault"
	"github.com/starford/ansuz/internal/watch"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Structured JSON logger on stderr: stdout carries the MCP stdio
	// transport and must stay clean.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	roots := append(append([]string{}, cfg.Vault.Roots...), app.roots...)
	if len(roots) == 0 {
		return fmt.Errorf("at least one vault directory is required")
	}

	// Every root must exist and be a directory, or startup fails.
	for i, r := range roots {
		expanded := sandbox.ExpandHome(r)
		info, err := os.Stat(expanded)
		if err != nil {
			return fmt.Errorf("vault directory %s: %w", r, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("vault path %s is not a directory", r)
		}
		roots[i] = expanded
	}

	sb, err := sandbox.New(roots)
	if err != nil {
		return fmt.Errorf("init sandbox: %w", err)
	}

	logger.Info("Configuration loaded",
		slog.Any("vault_roots", sb.Roots()),
		slog.Bool("http_enabled", cfg.App.HTTP.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svc := vault.NewService(sb)
	mcpSrv := mcpserver.New(svc)

	// Signals cancel the group context, which stops the stdio loop and the
	// watcher; the shutdown goroutine below drains the HTTP side.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	var httpServer *http.Server
	var broker *sse.Broker

	if cfg.App.HTTP.Enabled {
		broker = sse.NewBroker()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.RealIP)
		r.Use(middleware.Recoverer)

		// Health check endpoints (unauthenticated).
		r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})

		r.Mount("/api", api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker))

		httpServer = &http.Server{
			Addr:    cfg.App.HTTP.Address(),
			Handler: r,
		}

		// File watcher feeding the SSE broker.
		g.Go(func() error {
			if err := watch.Watch(gCtx, sb.Roots(), logger, broker.PublishNoteEvent); err != nil {
				logger.Warn("watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})

		g.Go(func() error {
			logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})
	}

	// Tool surface over stdio. Listen returns on stdin EOF or when the
	// group context is cancelled.
	g.Go(func() error {
		// stop is a CancelFunc: stdin EOF ends the whole lifecycle, not
		// just this goroutine.
		defer stop()
		logger.Info("Serving MCP tools on stdio")
		if err := mcpSrv.ServeStdio(gCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("mcp server error: %w", err)
		}
		return nil
	})

	// Drain the HTTP side once the group context falls (signal, failure, or
	// stdin EOF ending the stdio loop).
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down")

		if broker != nil {
			broker.Close()
		}
		if httpServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped")
	return nil
}
