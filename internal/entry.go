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
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/atrium/internal/api"
	"github.com/starford/atrium/internal/cache"
	"github.com/starford/atrium/internal/mcpserver"
	"github.com/starford/atrium/internal/models"
	"github.com/starford/atrium/internal/notify"
	"github.com/starford/atrium/internal/search"
	"github.com/starford/atrium/internal/sse"
	"github.com/starford/atrium/internal/storage"
	"github.com/starford/atrium/internal/store"
	"github.com/starford/atrium/internal/watcher"
	"github.com/starford/atrium/internal/workspace"
)

// runtime bundles the opened backends and the engine built on them.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	db     *store.DB
	index  *search.Index
	engine *workspace.Engine
}

func (rt *runtime) Close() error {
	return rt.db.Close()
}

// open applies opts, builds the logger and opens storage, store and index.
// logOut receives JSON logs unless a logger was supplied.
func open(logOut io.Writer, sinks []notify.Sink, opts ...Option) (*runtime, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := app.logger
	if logger == nil {
		// Initialize structured JSON logger.
		logger = slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
		slog.SetDefault(logger)
	}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("data_dir", cfg.Data.Dir),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(cfg.Data.ProjectsDir(), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	files, err := storage.NewFS(cfg.Data.Dir)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	ix, err := search.New(db.SQL())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init search index: %w", err)
	}

	engOpts := []workspace.Option{
		workspace.WithLogger(logger),
		workspace.WithNotifier(notify.NewDispatcher(logger, sinks...)),
		workspace.WithDirsPersist(cfg.Workspace.DirsPersist),
	}
	if cfg.Workspace.TreeCache {
		engOpts = append(engOpts, workspace.WithTreeCache(cache.New[workspace.TreeKey, []*models.TreeNode]()))
	}

	return &runtime{
		cfg:    cfg,
		logger: logger,
		db:     db,
		index:  ix,
		engine: workspace.New(db, files, ix, engOpts...),
	}, nil
}

func (rt *runtime) backfill(ctx context.Context) {
	if !rt.cfg.Workspace.DirsPersist {
		return
	}
	n, err := rt.engine.BackfillDirectories(ctx)
	if err != nil {
		rt.logger.Warn("directory backfill failed", slog.String("error", err.Error()))
		return
	}
	rt.logger.Info("directory backfill done", slog.Int("created", n))
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	// SSE broker receives every workspace event.
	broker := sse.NewBroker(cfg.Events.Throttle)
	defer broker.Close()

	rt, err := open(os.Stdout, []notify.Sink{broker}, opts...)
	if err != nil {
		return err
	}
	defer rt.Close()
	logger := rt.logger

	if cfg.Workspace.BackfillOnStart {
		rt.backfill(ctx)
	}

	apiRouter := api.NewRouter(rt.engine, rt.index, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := rt.db.SQL().PingContext(req.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Re-import artifacts edited outside the application.
	if cfg.Workspace.Watch {
		g.Go(func() error {
			if err := watcher.Watch(gCtx, rt.engine, cfg.Data.ProjectsDir(), logger); err != nil {
				logger.Warn("watcher failed", slog.String("error", err.Error()))
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

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Close SSE streams first so Shutdown does not wait on them.
		broker.Close()

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

// RunMCP serves the MCP tools over stdio. Logs go to stderr since stdout
// carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	rt, err := open(os.Stderr, nil, opts...)
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.logger.Info("MCP server starting on stdio")
	return mcpserver.New(rt.engine, rt.index).ServeStdio()
}

// Backfill creates directory rows for every directory implied by file paths
// and exits.
func Backfill(ctx context.Context, opts ...Option) error {
	rt, err := open(os.Stdout, nil, opts...)
	if err != nil {
		return err
	}
	defer rt.Close()

	n, err := rt.engine.BackfillDirectories(ctx)
	if err != nil {
		return fmt.Errorf("backfill directories: %w", err)
	}
	rt.logger.Info("directory backfill done", slog.Int("created", n))
	return nil
}
