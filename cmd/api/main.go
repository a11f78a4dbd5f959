// Package main is the entry point for the Kitobchi marketplace API server.
// It wires together configuration, the database connection, and the HTTP router.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/aoideee/kitobchi/internal/auth"
	"github.com/aoideee/kitobchi/internal/config"
	"github.com/aoideee/kitobchi/internal/data"
	"github.com/aoideee/kitobchi/internal/ratelimit"
	"github.com/aoideee/kitobchi/internal/storage"

	_ "github.com/lib/pq" // Register the PostgreSQL driver with database/sql.
)

// appVersion is the current version of the API, shown in logs and on /.
const appVersion = "1.0.0"

// authLimiter is the shared quota applied to the /auth endpoints.
type authLimiter interface {
	Allow(ctx context.Context, key string) bool
}

// applicationDependencies bundles every shared resource that HTTP handlers need.
// A pointer to this struct is passed as the receiver on all handler and route methods.
type applicationDependencies struct {
	config      config.Config
	logger      *slog.Logger
	models      data.Models
	tokens      *auth.TokenIssuer
	authLimiter authLimiter         // nil when Redis is not configured
	images      storage.ObjectStore // nil when object storage is not configured
}

// main parses flags, opens the database, wires up dependencies, and starts the HTTP server.
func main() {
	var (
		configPath string
		port       int
		env        string
		dsn        string
		migrate    bool
	)
	flag.StringVar(&configPath, "config", os.Getenv("KITOBCHI_CONFIG"), "Path to a YAML config file")
	flag.IntVar(&port, "port", 0, "Server port (overrides config)")
	flag.StringVar(&env, "env", "", "Environment(development|staging|production)")
	flag.StringVar(&dsn, "db-dsn", "", "PostgreSQL DSN (overrides config)")
	flag.BoolVar(&migrate, "migrate", false, "Apply pending migrations before serving")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Flags that were passed explicitly win over file and environment.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = port
		case "env":
			cfg.Environment = env
		case "db-dsn":
			cfg.DB.DSN = dsn
		}
	})

	logger := newLogger(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.Auth.SecretKey == "" {
		cfg.Auth.SecretKey = "development-only-secret"
		logger.Warn("SECRET_KEY not set; using an insecure development secret")
	}

	db, err := openDB(cfg.DB)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("database connection pool established")

	if migrate {
		applied, err := data.Migrate(context.Background(), db)
		if err != nil {
			logger.Error("migrate", "error", err)
			os.Exit(1)
		}
		logger.Info("migrations applied", "files", applied)
	}

	tokens, err := auth.NewTokenIssuer(cfg.Auth.SecretKey, cfg.Auth.Issuer, cfg.TokenTTL())
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	app := &applicationDependencies{
		config: cfg,
		logger: logger,
		models: data.NewModels(db),
		tokens: tokens,
	}

	if cfg.Redis.Addr != "" {
		limiter, err := ratelimit.NewFixedWindowLimiter(cfg.Redis.Addr, cfg.Redis.Password,
			cfg.Redis.Prefix, cfg.Redis.AuthRateLimitPerMinute, time.Minute)
		if err != nil {
			logger.Error(err.Error())
			os.Exit(1)
		}
		defer limiter.Close()
		app.authLimiter = limiter
		logger.Info("auth rate limiter enabled", "redis", cfg.Redis.Addr, "per_minute", cfg.Redis.AuthRateLimitPerMinute)
	}

	if cfg.Storage.Endpoint != "" {
		store, err := storage.NewMinioStore(context.Background(), cfg.Storage.Endpoint, cfg.Storage.AccessKey,
			cfg.Storage.SecretKey, cfg.Storage.Bucket, cfg.Storage.UseSSL, cfg.Storage.PublicBaseURL)
		if err != nil {
			logger.Error("object storage", "error", err)
			os.Exit(1)
		}
		app.images = store
		logger.Info("image uploads enabled", "endpoint", cfg.Storage.Endpoint, "bucket", cfg.Storage.Bucket)
	}

	logger.Debug("configuration loaded", "config", cfg.String())

	err = app.serve()
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

// newLogger builds the process logger. format is "text" or "json".
func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// openDB opens a PostgreSQL connection pool, applies the pool limits, then
// pings the database with a 5-second timeout to confirm it is reachable.
func openDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	if idle, err := time.ParseDuration(cfg.MaxIdleTime); err == nil {
		db.SetConnMaxIdleTime(idle)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
