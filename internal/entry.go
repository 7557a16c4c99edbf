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

	"github.com/starford/quire/internal/api"
	"github.com/starford/quire/internal/auth"
	"github.com/starford/quire/internal/kv"
	"github.com/starford/quire/internal/mcpserver"
	"github.com/starford/quire/internal/noteservice"
	"github.com/starford/quire/internal/storage"
)

// newApplication applies opts and installs the JSON logger as default.
func newApplication(opts []Option) (*application, *slog.Logger, error) {
	app := &application{logOutput: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(logger)

	return app, logger, nil
}

// openStores opens the metadata and blob backends. The caller closes the
// metadata store.
func openStores(ctx context.Context, cfg *Config) (kv.Store, storage.Provider, error) {
	store, err := kv.Open(ctx, cfg.Metadata)
	if err != nil {
		return nil, nil, fmt.Errorf("init metadata store: %w", err)
	}
	blobs, err := storage.Open(ctx, cfg.Blobs)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("init blob store: %w", err)
	}
	return store, blobs, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, logger, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("metadata_driver", cfg.Metadata.Driver),
		slog.String("blobs_driver", cfg.Blobs.Driver),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, blobs, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	svc := noteservice.NewService(store, blobs)
	gate := auth.NewGate(store, cfg.Auth.SessionTTL)
	throttle := auth.NewThrottle(cfg.Auth.LoginRate.PerMinute, cfg.Auth.LoginRate.Burst)

	if ok, err := gate.Initialized(ctx); err != nil {
		return fmt.Errorf("read config record: %w", err)
	} else if !ok {
		logger.Warn("Not initialized yet; the first visitor sets the password")
	}

	handler := api.NewHandler(svc, blobs, gate, throttle, api.Options{
		PublicURL:         cfg.App.HTTP.PublicURL,
		CookieSecure:      cfg.Auth.CookieSecure,
		MaxUploadBytes:    cfg.Upload.MaxBytes,
		AllowedExtensions: cfg.Upload.AllowedExtensions,
	})

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Mount("/", api.NewRouter(handler))

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the MCP tools on stdin/stdout. Logs must not go to stdout
// here; pass WithLogOutput(os.Stderr).
func RunMCP(ctx context.Context, opts ...Option) error {
	app, logger, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	store, blobs, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	srv := mcpserver.New(noteservice.NewService(store, blobs), blobs, mcpserver.Options{
		PublicURL:         cfg.App.HTTP.PublicURL,
		AllowedExtensions: cfg.Upload.AllowedExtensions,
		MaxUploadBytes:    cfg.Upload.MaxBytes,
	})

	logger.Info("MCP server starting on stdio",
		slog.String("metadata_driver", cfg.Metadata.Driver),
		slog.String("blobs_driver", cfg.Blobs.Driver))
	return srv.ServeStdio()
}

// Initialize sets the operator password without going through the web
// form. It fails if the application is already initialized.
func Initialize(ctx context.Context, password string, opts ...Option) error {
	app, logger, err := newApplication(opts)
	if err != nil {
		return err
	}

	store, err := kv.Open(ctx, app.config.Metadata)
	if err != nil {
		return fmt.Errorf("init metadata store: %w", err)
	}
	defer store.Close()

	if err := auth.NewGate(store, app.config.Auth.SessionTTL).Initialize(ctx, password); err != nil {
		return err
	}
	logger.Info("Initialized", slog.String("metadata_driver", app.config.Metadata.Driver))
	return nil
}
