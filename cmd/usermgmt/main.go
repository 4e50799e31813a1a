package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"usermgmt/internal/audit"
	"usermgmt/internal/auth"
	"usermgmt/internal/config"
	"usermgmt/internal/credentials"
	"usermgmt/internal/db"
	"usermgmt/internal/httpserver"
	"usermgmt/internal/logging"
	"usermgmt/internal/ollama"
	"usermgmt/internal/ratelimit"
	"usermgmt/internal/users"
)

type stores struct {
	users       users.Store
	credentials credentials.Store
	audit       audit.Store
	close       func() error
}

func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (*stores, error) {
	if cfg.DBDSN == "" {
		logger.Warn("USERMGMT_DB_DSN not set; using in-memory stores")
		return &stores{
			users:       users.NewMemoryStore(),
			credentials: credentials.NewMemoryStore(),
			audit:       audit.NewMemoryStore(),
			close:       func() error { return nil },
		}, nil
	}

	dbConn, err := db.Open(ctx, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.RunMigrations(ctx, dbConn, cfg.SchemaDir); err != nil {
		dbConn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &stores{
		users:       users.NewPostgresStore(dbConn),
		credentials: credentials.NewPostgresStore(dbConn),
		audit:       audit.NewPostgresStore(dbConn),
		close:       dbConn.Close,
	}, nil
}

func bootstrap(ctx context.Context, cfg config.Config, s *stores, logger *slog.Logger) error {
	admin, err := users.EnsureAdmin(ctx, s.users, cfg.AdminEmail, cfg.AdminPassword, logger)
	if err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}
	if cfg.UsersPath != "" {
		n, err := users.SeedFromFile(ctx, s.users, cfg.UsersPath)
		if err != nil {
			return fmt.Errorf("seed users: %w", err)
		}
		logger.Info("seeded users", "path", cfg.UsersPath, "created", n)
	}
	if _, err := credentials.EnsureBootstrap(ctx, s.credentials, admin.ID, logger); err != nil {
		return fmt.Errorf("bootstrap credential: %w", err)
	}
	return nil
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := logging.New(logging.Options{Format: cfg.LogFormat, Level: cfg.LogLevel})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	slog.SetDefault(logger)

	s, err := openStores(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer s.close()

	if err := bootstrap(ctx, cfg, s, logger); err != nil {
		log.Fatalf("%v", err)
	}

	authSvc := auth.NewService(users.Accounts{Store: s.users}, cfg.JWTSecret, cfg.TokenTTL)

	model := ollama.NewClient(ollama.Config{BaseURL: cfg.OllamaBaseURL, Logger: logger})
	healthCtx, cancelHealth := context.WithTimeout(ctx, 3*time.Second)
	healthy := model.Health(healthCtx)
	cancelHealth()
	if healthy {
		logger.Info("ollama reachable", "base_url", cfg.OllamaBaseURL)
	} else {
		logger.Warn("ollama not reachable; chat and embeddings will fail", "base_url", cfg.OllamaBaseURL)
	}

	handler := httpserver.NewRouter(httpserver.Deps{
		Logger:       logger,
		Auth:         authSvc,
		Users:        s.users,
		Credentials:  s.credentials,
		Audit:        s.audit,
		Ollama:       model,
		LoginLimiter: ratelimit.New(cfg.RateLimitPerMinute),
		UserLimiter:  ratelimit.New(cfg.RateLimitPerMinute),
		CORSOrigins:  cfg.CORSOrigins,

		TrustProxyHeaders: cfg.TrustProxyHeaders,
	})
	server := httpserver.New(httpserver.Options{
		Addr:         cfg.HTTPAddr,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}, handler, logger)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("http server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("shutdown error", "err", err)
	}
}
