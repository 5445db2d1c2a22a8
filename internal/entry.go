// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/starford/connectorstore/internal/catalog"
	"github.com/starford/connectorstore/internal/mcpserver"
)

func setup(opts []Option) (*application, *slog.Logger, error) {
	app := &application{logOutput: os.Stdout, version: "dev"}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	logger := newLogger(app.logOutput, app.config.App.LogLevel)
	slog.SetDefault(logger)
	return app, logger, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

// Run starts the HTTP service with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, logger, err := setup(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("registry_mode", cfg.Registry.Mode),
		slog.String("org", cfg.Registry.Org),
		slog.String("cache_backend", cfg.Cache.Backend),
		slog.Bool("enrich", cfg.Enrich.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	c, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: c.handler(),
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Expire cached pull counts.
	if c.counts != nil {
		g.Go(func() error {
			c.counts.Start()
			return nil
		})
	}

	// Reload the snapshot when the export command replaces it.
	if c.source != nil && cfg.Snapshot.Watch {
		g.Go(func() error {
			if err := catalog.Watch(gCtx, c.source, c.files.Root(), logger, c.onSnapshotReload(gCtx)); err != nil {
				logger.Error("snapshot watcher failed", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		if c.counts != nil {
			c.counts.Stop()
		}
		// Closing the broker ends open event streams so Shutdown can finish.
		c.broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.HTTP.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so the watcher stops along with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the catalog tools over stdio until the client disconnects.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, logger, err := setup(append([]Option{WithLogOutput(os.Stderr)}, opts...))
	if err != nil {
		return err
	}

	c, err := build(ctx, app.config, logger)
	if err != nil {
		return err
	}
	defer c.Close()

	if c.counts != nil {
		go c.counts.Start()
		defer c.counts.Stop()
	}

	logger.Info("MCP server starting on stdio", slog.String("registry_mode", app.config.Registry.Mode))
	if err := mcpserver.New(c.svc, app.version).ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
