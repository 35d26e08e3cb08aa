package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/auth"
	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/config"
	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/identity"
	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/logger"
	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/metrics"
	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/postgres"
	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/server"
	"github.com/chenghaoran14237-lgtm/bytebase-login-demo/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatal("config", zap.Error(err))
	}

	log := logger.Init(logger.Config{
		Env:         cfg.AppEnv,
		Level:       cfg.LogLevel,
		ServiceName: cfg.AppName,
	})
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatal("database", zap.Error(err))
	}
	defer db.Close()

	m := metrics.New()

	verifier, closeCache, err := identity.FromConfig(ctx, cfg.Identity, m.TokenVerifications)
	if err != nil {
		log.Fatal("identity", zap.Error(err))
	}
	defer closeCache() //nolint:errcheck

	users := user.NewService(postgres.NewUserStore(db), user.Options{
		LoginEventTimeout:  cfg.Auth.LoginEventTimeout,
		LoginEventFailures: m.LoginEventFailures,
		Syncs:              m.UserSyncs,
	})

	r := server.NewRouter(cfg, server.Deps{
		Users:   users,
		Auth:    auth.NewAuthenticator(verifier, users),
		DB:      db,
		Metrics: m,
		Logger:  log,
	})
	srv := server.New(cfg, r)

	log.Info("starting",
		zap.String("url", listenURL(cfg.HTTPAddr)),
		zap.Bool("local_jwt", cfg.Identity.JWTSecret != ""),
		zap.Duration("identity_cache_ttl", cfg.Identity.CacheTTL),
	)
	if err := srv.Start(ctx); err != nil {
		log.Fatal("server", zap.Error(err))
	}
}

func listenURL(addr string) string {
	listen := addr
	if strings.HasPrefix(listen, ":") {
		listen = "127.0.0.1" + listen
	} else if strings.HasPrefix(listen, "0.0.0.0:") {
		listen = "127.0.0.1" + listen[len("0.0.0.0"):]
	}
	if !strings.Contains(listen, "://") {
		listen = "http://" + listen
	}
	return listen
}
