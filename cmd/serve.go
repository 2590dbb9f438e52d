package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/bookshelf/internal/catalog"
	"github.com/teemow/bookshelf/internal/config"
	"github.com/teemow/bookshelf/internal/google"
	"github.com/teemow/bookshelf/internal/instrumentation"
	"github.com/teemow/bookshelf/internal/logging"
	"github.com/teemow/bookshelf/internal/server"
	"github.com/teemow/bookshelf/internal/storage/memory"
	"github.com/teemow/bookshelf/internal/storage/sqlite"
)

const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 120 * time.Second
)

// store is what serve needs from a storage backend.
type store interface {
	catalog.BookStore
	catalog.UserStore
	Ping(ctx context.Context) error
	Close() error
}

// serveFlags mirrors the config fields that can be overridden on the command line.
type serveFlags struct {
	envFile        string
	debug          bool
	httpAddr       string
	baseURL        string
	dbPath         string
	storage        string
	requireLogin   bool
	logLevel       string
	logFormat      string
	metricsEnabled bool
	metricsAddr    string
	tlsCertFile    string
	tlsKeyFile     string
}

func newServeCmd() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the catalog web server",
		Long: `Start the bookshelf web server.

Configuration is read from the environment, after loading an optional .env
file. Flags override environment values when set explicitly.

Google Sign-In:
  GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set for login to work.
  The provider must allow <base-url>/login/callback as a redirect URI.

Sessions:
  SECRET_KEY signs the session cookie. Without it a random key is generated
  at startup and every restart signs all users out.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.envFile)
			if err != nil {
				return err
			}
			applyServeFlags(cmd, &flags, &cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runServe(cfg, flags.debug)
		},
	}

	cmd.Flags().StringVar(&flags.envFile, "env-file", config.DefaultEnvFile, "Env file loaded before parsing the environment. Missing files are ignored.")
	cmd.Flags().BoolVar(&flags.debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&flags.httpAddr, "http-addr", ":8080", "HTTP server address. Can also use BOOKSHELF_HTTP_ADDR env var.")
	cmd.Flags().StringVar(&flags.baseURL, "base-url", "", "Public base URL used for the OAuth callback. Derived from each request when empty. Can also use BOOKSHELF_BASE_URL env var. Example: https://books.example.com")
	cmd.Flags().StringVar(&flags.dbPath, "db", sqlite.DefaultPath, "SQLite database file. Can also use BOOKSHELF_DB_PATH env var.")
	cmd.Flags().StringVar(&flags.storage, "storage", config.StorageSQLite, "Storage backend: sqlite or memory. Can also use BOOKSHELF_STORAGE env var.")
	cmd.Flags().BoolVar(&flags.requireLogin, "require-login", true, "Require a signed-in user to create, edit or delete books. Can also use BOOKSHELF_REQUIRE_LOGIN env var.")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "info", "Log level: debug, info, warn or error. Can also use BOOKSHELF_LOG_LEVEL env var.")
	cmd.Flags().StringVar(&flags.logFormat, "log-format", logging.FormatText, "Log format: text or json. Can also use BOOKSHELF_LOG_FORMAT env var.")

	// TLS flags for HTTPS support
	cmd.Flags().StringVar(&flags.tlsCertFile, "tls-cert-file", "", "Path to TLS certificate file (PEM format). If provided with --tls-key-file, enables HTTPS. Can also use TLS_CERT_FILE env var.")
	cmd.Flags().StringVar(&flags.tlsKeyFile, "tls-key-file", "", "Path to TLS private key file (PEM format). If provided with --tls-cert-file, enables HTTPS. Can also use TLS_KEY_FILE env var.")

	// Metrics server flags
	cmd.Flags().BoolVar(&flags.metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// applyServeFlags copies explicitly set flags over the environment config.
// Flags left at their default never override the environment.
func applyServeFlags(cmd *cobra.Command, flags *serveFlags, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("http-addr") {
		cfg.HTTPAddr = flags.httpAddr
	}
	if changed("base-url") {
		cfg.BaseURL = flags.baseURL
	}
	if changed("db") {
		cfg.DBPath = flags.dbPath
	}
	if changed("storage") {
		cfg.Storage = flags.storage
	}
	if changed("require-login") {
		cfg.RequireLogin = flags.requireLogin
	}
	if changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if changed("log-format") {
		cfg.LogFormat = flags.logFormat
	}
	if changed("metrics-enabled") {
		cfg.MetricsEnabled = flags.metricsEnabled
	}
	if changed("metrics-addr") {
		cfg.MetricsAddr = flags.metricsAddr
	}
	if changed("tls-cert-file") {
		cfg.TLSCertFile = flags.tlsCertFile
	}
	if changed("tls-key-file") {
		cfg.TLSKeyFile = flags.tlsKeyFile
	}
}

func newLogger(cfg config.Config, debug bool, w io.Writer) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if debug {
		level = slog.LevelDebug
	}
	return logging.New(level, cfg.LogFormat, w)
}

// openStore opens the configured storage backend.
func openStore(ctx context.Context, cfg config.Config, metrics *instrumentation.Metrics) (store, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return memory.New(), nil
	case config.StorageSQLite, "":
		return sqlite.Open(ctx, sqlite.Config{Path: cfg.DBPath, Metrics: metrics})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}

func runServe(cfg config.Config, debug bool) error {
	logger, err := newLogger(cfg, debug, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	instrConfig, err := instrumentation.LoadConfig()
	if err != nil {
		return err
	}
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	var metricsServer *server.MetricsServer
	if cfg.MetricsEnabled && provider.Enabled() && provider.PrometheusEnabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    cfg.MetricsAddr,
			Path:                    instrConfig.PrometheusEndpoint,
			InstrumentationProvider: provider,
			Logger:                  logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", logging.Err(err))
			}
		}()
	}

	st, err := openStore(ctx, cfg, provider.Metrics())
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("closing storage failed", logging.Err(err))
		}
	}()

	if cfg.GeneratedSecret {
		logger.Warn("SECRET_KEY is not set; using a random session key, sessions end on restart")
	}
	if !cfg.OAuthConfigured() {
		logger.Warn("GOOGLE_CLIENT_ID or GOOGLE_CLIENT_SECRET is not set; login will fail")
	}

	oauthClient := google.NewClient(google.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		DiscoveryURL: cfg.GoogleDiscoveryURL,
		Logger:       logging.NewSlogAdapter(logging.WithComponent(logger, "oauth")),
		Metrics:      provider.Metrics(),
	})

	tlsEnabled := cfg.TLSCertFile != "" && cfg.TLSKeyFile != ""
	srv, err := server.New(server.Options{
		Books:                 catalog.NewService(st),
		Identity:              catalog.NewIdentity(st),
		OAuth:                 oauthClient,
		Sessions:              server.NewCookieStore(cfg.SecretKey, cfg.SessionMaxAge, tlsEnabled || strings.HasPrefix(cfg.BaseURL, "https://")),
		Store:                 st,
		BaseURL:               cfg.BaseURL,
		RequireLoginForWrites: cfg.RequireLogin,
		Logger:                logger,
		AccessLog:             os.Stderr,
		Metrics:               provider.Metrics(),
		Audit:                 provider.Audit(),
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	scheme := "http"
	if tlsEnabled {
		scheme = "https"
	}
	logger.Info("bookshelf starting",
		"addr", cfg.HTTPAddr,
		"scheme", scheme,
		"storage", cfg.Storage,
		"require_login", cfg.RequireLogin,
		"version", version)
	if metricsServer != nil {
		logger.Info("metrics endpoint enabled", "addr", metricsServer.Addr(), "path", instrConfig.PrometheusEndpoint)
	}

	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.HTTPAddr, err)
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		var err error
		if tlsEnabled {
			err = httpServer.ServeTLS(ln, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = httpServer.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()
	srv.Health().SetReady(true)

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}

	srv.Health().MarkShuttingDown()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancelShutdown()

	var errs []error
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("error shutting down HTTP server: %w", err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("error shutting down metrics server: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}
