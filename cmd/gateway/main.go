package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ecommerce-platform/internal/authremote"
	"ecommerce-platform/internal/config"
	"ecommerce-platform/internal/health"
	"ecommerce-platform/internal/metrics"
	"ecommerce-platform/internal/proxy"
	"ecommerce-platform/internal/ratelimit"
	"ecommerce-platform/internal/signature"
	"ecommerce-platform/internal/token"
	"ecommerce-platform/pkg/logger"
	"ecommerce-platform/pkg/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}
	if err := cfg.ValidateGateway(); err != nil {
		slog.Error("config validation failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env, "api-gateway")
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	tokens, err := token.NewManager(cfg.Security.InternalJWTSecret)
	if err != nil {
		log.Error("token manager init failed", "err", err)
		os.Exit(1)
	}
	codec := signature.NewCodec(cfg.Security.GatewaySecret)

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	prom := metrics.NewProm("gateway")

	composer := proxy.NewComposer(cfg.Services, tokens, codec).WithMetrics(prom)
	limiter := ratelimit.NewLimiter(rdb).WithMetrics(prom)
	authn := authremote.NewAuthenticator(cfg.Services["auth"])
	checker := health.NewChecker(cfg.Services)

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(proxy.GatewayHeaders())
	r.Use(logger.Middleware(log))

	registerRoutes(r, composer, limiter, authn, checker)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("gateway listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
