// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/anxi/internal/api"
	"github.com/starford/anxi/internal/interpreter"
	"github.com/starford/anxi/internal/journal"
	"github.com/starford/anxi/internal/mcpserver"
	"github.com/starford/anxi/internal/sse"
	"github.com/starford/anxi/internal/storage"
	"github.com/starford/anxi/internal/watch"
)

const greeting = "Hello! I'm Anxi\nWhat can I do for you?"

// runtime is the wired core shared by every entry point.
type runtime struct {
	app     *application
	logger  *slog.Logger
	store   *storage.FS
	journal *journal.DB // nil when disabled
	interp  *interpreter.Interpreter
}

func newApplication(opts []Option) (*application, error) {
	app := &application{
		version: "dev",
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// start builds the logger, store, journal and interpreter. extra options are
// appended to the interpreter options. The caller must call close.
// A load failure is only logged unless extra installs a hook.
func start(app *application, extra ...interpreter.Option) (*runtime, error) {
	cfg := app.config

	// Structured JSON logger on stderr; stdout carries replies and MCP frames.
	logger := slog.New(slog.NewJSONHandler(app.stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("ledger_path", cfg.Storage.Path),
		slog.Bool("journal_enabled", cfg.Journal.Enabled),
		slog.String("journal_path", cfg.Journal.Path),
		slog.Bool("watch_enabled", cfg.Watch.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := storage.NewFS(cfg.Storage.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	rt := &runtime{app: app, logger: logger, store: store}

	opts := []interpreter.Option{interpreter.WithLogger(logger)}
	if cfg.Journal.Enabled {
		db, err := openJournal(cfg.Journal.Path)
		if err != nil {
			return nil, err
		}
		rt.journal = db
		opts = append(opts, interpreter.WithJournal(db))
	}
	opts = append(opts, extra...)

	rt.interp = interpreter.Open(store, opts...)
	logger.Info("Session started", slog.String("session", rt.interp.SessionID()))
	return rt, nil
}

func openJournal(path string) (*journal.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	db, err := journal.Open(path)
	if err != nil {
		return nil, fmt.Errorf("init journal: %w", err)
	}
	return db, nil
}

func (rt *runtime) close() {
	if rt.journal != nil {
		if err := rt.journal.Close(); err != nil {
			rt.logger.Warn("journal close failed", slog.String("error", err.Error()))
		}
	}
}

// watch runs the ledger watcher until ctx is done, if enabled.
func (rt *runtime) watch(ctx context.Context) error {
	cfg := rt.app.config
	if !cfg.Watch.Enabled {
		return nil
	}
	if err := watch.Watch(ctx, rt.store, rt.interp, rt.logger, cfg.Watch.Debounce); err != nil {
		rt.logger.Warn("watcher unavailable", slog.String("error", err.Error()))
	}
	return nil
}

// RunREPL reads commands from stdin and prints each reply until "bye" or
// end of input.
func RunREPL(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	rt, err := start(app, interpreter.WithLoadFailureHook(func(err error) {
		fmt.Fprintf(app.stdout, "Could not load your saved tasks (%v). Starting with an empty list; changes will not be saved until the file can be read.\n", err)
	}))
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error { return rt.watch(gCtx) })

	g.Go(func() error {
		defer cancel()
		fmt.Fprintln(app.stdout, greeting)
		scanner := bufio.NewScanner(app.stdin)
		for scanner.Scan() {
			resp := rt.interp.Submit(scanner.Text())
			fmt.Fprintln(app.stdout, resp.Text)
			if resp.Exit {
				return nil
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// RunMCP serves the MCP tools on stdin/stdout.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	// stdout carries the protocol, so a load failure is reported to the
	// client through the server instead.
	var loadErr error
	rt, err := start(app, interpreter.WithLoadFailureHook(func(err error) { loadErr = err }))
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = rt.watch(ctx) }()

	rt.logger.Info("MCP server starting on stdio")
	return mcpserver.New(rt.interp, app.version, mcpserver.WithLoadFailure(loadErr)).ServeStdio()
}

// RunHistory prints up to limit journal entries, newest first. A non-empty
// term restricts the listing to inputs containing it.
func RunHistory(_ context.Context, limit int, term string, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	if !cfg.Journal.Enabled {
		return fmt.Errorf("journal is disabled in the configuration")
	}
	db, err := openJournal(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	var entries []journal.Entry
	if term != "" {
		entries, err = db.Search(term, limit)
	} else {
		entries, err = db.Recent(limit)
	}
	if err != nil {
		return fmt.Errorf("read journal: %w", err)
	}
	for _, e := range entries {
		fmt.Fprintf(app.stdout, "%s  %-16s  %s\n", e.At.Format(time.DateTime), e.Outcome, e.Input)
	}
	return nil
}

// RunServe starts the HTTP API, the SSE feed and the ledger watcher.
func RunServe(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	broker := sse.NewBroker(cfg.App.HTTP.SSEKeepAlive)
	defer broker.Close()

	rt, err := start(app, interpreter.WithNotifier(broker))
	if err != nil {
		return err
	}
	defer rt.close()
	logger := rt.logger

	var history api.History
	if rt.journal != nil {
		history = rt.journal
	}
	apiRouter := api.NewRouter(rt.interp, history, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Start ledger watcher.
	g.Go(func() error { return rt.watch(gCtx) })

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
		// Close SSE streams first so Shutdown does not wait on them.
		broker.Close()
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

// errShutdown cancels the errgroup context so the watcher stops with the
// server.
var errShutdown = errors.New("shutdown")
