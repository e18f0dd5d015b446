package cmd

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
	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/dverhagen/doorman/account"
	"github.com/dverhagen/doorman/api"
	"github.com/dverhagen/doorman/remember"
	"github.com/dverhagen/doorman/session"
	"github.com/dverhagen/doorman/store"
	bboltstore "github.com/dverhagen/doorman/store/bbolt"
	pgstore "github.com/dverhagen/doorman/store/postgres"
)

var (
	port    int
	dataDir string
)

// serverConfig is read from DOORMAN_* environment variables. Flags
// take precedence over the environment where both are given.
type serverConfig struct {
	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB"`
	PostgresDSN   string        `envconfig:"POSTGRES_DSN"`
	CookiePrefix  string        `envconfig:"COOKIE_PREFIX" default:"doorman"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	RememberFor   time.Duration `envconfig:"REMEMBER_FOR" default:"720h"`
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the authentication server",
	RunE: func(cmd *cobra.Command, args []string) error {
		var cfg serverConfig
		if err := envconfig.Process("DOORMAN", &cfg); err != nil {
			return fmt.Errorf("reading environment configuration: %w", err)
		}

		logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

		// Entity storage: Postgres when configured, BBolt otherwise.
		var (
			accountStore    store.AccountStore
			credentialStore store.CredentialStore
		)
		if cfg.PostgresDSN != "" {
			db, err := pgstore.Open(cmd.Context(), cfg.PostgresDSN)
			if err != nil {
				return fmt.Errorf("opening postgres storage: %w", err)
			}
			defer db.Close()
			accountStore = db.Accounts()
			credentialStore = db.Credentials()
		} else {
			if err := os.MkdirAll(dataDir, 0o700); err != nil {
				return fmt.Errorf("creating data directory: %w", err)
			}
			db, err := bboltstore.Open(dataDir+"/doorman.db", nil)
			if err != nil {
				return fmt.Errorf("opening bbolt storage: %w", err)
			}
			defer db.Close()
			accountStore = db.Accounts()
			credentialStore = db.Credentials()
		}

		// Session backend: Redis when configured, in-memory otherwise.
		var backend session.Backend
		if cfg.RedisAddr != "" {
			client := redis.NewClient(&redis.Options{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			defer client.Close()
			backend = session.NewRedisBackend(client)
		} else {
			memBackend := session.NewMemoryBackend()
			defer memBackend.Close()
			backend = memBackend
		}

		accounts := account.NewService(backend, accountStore, account.Config{
			CookiePrefix: cfg.CookiePrefix,
			SessionTTL:   cfg.SessionTTL,
		})
		rememberMgr := remember.NewManager(credentialStore, remember.Config{
			CookieName: cfg.CookiePrefix + "_remember",
			Duration:   cfg.RememberFor,
		})

		reaper := remember.NewReaper(credentialStore, remember.DefaultReapInterval, logger)
		reaper.Start()
		defer reaper.Stop()

		a := api.New(accounts, rememberMgr, accountStore,
			api.WithLogger(logger),
			api.WithCSRFCookieName(cfg.CookiePrefix+"_csrf"))

		r := chi.NewRouter()
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})
		r.Mount("/api/v1", a.Router())

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		// Graceful shutdown on SIGINT/SIGTERM.
		done := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		logger.Info("server started", "port", port)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("shutting down", "signal", sig.String())
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on")
	serverCmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Directory for persistent data")
}
