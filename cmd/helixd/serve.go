package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/streamkit/helix"
	"github.com/streamkit/helix/api"
	"github.com/streamkit/helix/auth"
	"github.com/streamkit/helix/instrumentation"
	"github.com/streamkit/helix/roles"
	"github.com/streamkit/helix/security"
	"github.com/streamkit/helix/storage"
	"github.com/streamkit/helix/storage/sqlite"
)

type serveOptions struct {
	clientID     string
	clientSecret string
	redirectURL  string
	dbPath       string
	listenAddr   string
	logLevel     string
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the callback and role query server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.clientID, "client-id", os.Getenv("TWITCH_CLIENT_ID"), "Twitch application client id (env TWITCH_CLIENT_ID)")
	flags.StringVar(&opts.clientSecret, "client-secret", os.Getenv("TWITCH_CLIENT_SECRET"), "Twitch application client secret (env TWITCH_CLIENT_SECRET)")
	flags.StringVar(&opts.redirectURL, "redirect-url", "http://localhost:8080/callback", "OAuth redirect URL registered with the application")
	flags.StringVar(&opts.dbPath, "db", "helix.db", "sqlite database path for encrypted token storage")
	flags.StringVar(&opts.listenAddr, "listen", ":8080", "listen address")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	return cmd
}

func runServe(ctx context.Context, opts *serveOptions) error {
	logger, err := newLogger(opts.logLevel)
	if err != nil {
		return err
	}

	cfg := helix.Config{
		ClientID:     opts.clientID,
		ClientSecret: opts.clientSecret,
		RedirectURL:  opts.redirectURL,
		Logger:       logger,
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	inst, err := instrumentation.New(instrumentation.Config{
		ServiceName:    "helixd",
		ServiceVersion: version,
		Enabled:        true,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize instrumentation: %w", err)
	}
	defer func() {
		if err := inst.Shutdown(context.Background()); err != nil {
			logger.Warn("instrumentation shutdown failed", "error", err)
		}
	}()

	encryptor, err := security.NewEncryptor(security.DeriveKey(opts.clientSecret))
	if err != nil {
		return fmt.Errorf("failed to build token encryptor: %w", err)
	}

	store, err := sqlite.Open(opts.dbPath, storage.NewCodec(encryptor), logger,
		sqlite.WithInstrumentation(inst))
	if err != nil {
		return fmt.Errorf("failed to open token store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("token store close failed", "error", err)
		}
	}()

	apiClient := api.NewClient(opts.clientID,
		api.WithLogger(logger),
		api.WithInstrumentation(inst))

	manager, err := auth.NewManager(cfg, store, apiClient,
		auth.WithInstrumentation(inst))
	if err != nil {
		return fmt.Errorf("failed to build token manager: %w", err)
	}
	defer manager.Close()

	resolver := roles.NewResolver(apiClient, manager,
		roles.WithLogger(logger),
		roles.WithInstrumentation(inst))

	if err := manager.Bootstrap(ctx); err != nil {
		return fmt.Errorf("token bootstrap failed: %w", err)
	}

	cbPath, err := callbackPath(opts.redirectURL)
	if err != nil {
		return err
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Get(cbPath, auth.NewCallbackHandler(manager).ServeHTTP)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Mount("/v1", newQueryRouter(manager, resolver, logger))

	server := &http.Server{
		Addr:              opts.listenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			"addr", opts.listenAddr,
			"callback", cbPath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

func callbackPath(redirectURL string) (string, error) {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return "", fmt.Errorf("invalid redirect URL: %w", err)
	}
	return u.Path, nil
}
