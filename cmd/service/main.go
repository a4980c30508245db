// Command service is a reference microservice showing how a service behind
// the gateway enforces the trust boundary. Every real service mounts the
// same ingress gate; this binary serves a minimal catalog-shaped API so the
// full path (gateway egress, service ingress, audit sink) can be run locally.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ecommerce-platform/internal/audit"
	"ecommerce-platform/internal/config"
	"ecommerce-platform/internal/identity"
	"ecommerce-platform/internal/ingress"
	"ecommerce-platform/internal/ipallow"
	"ecommerce-platform/internal/signature"
	"ecommerce-platform/internal/token"
	"ecommerce-platform/pkg/logger"
	"ecommerce-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
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

	serviceName := os.Getenv("SERVICE_NAME")
	if serviceName == "" {
		serviceName = "catalog"
	}

	log := logger.New(cfg.App.Env, serviceName+"-service")
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
	allow := ipallow.Parse(cfg.Security.AllowedIPs)

	gate := ingress.NewGate(serviceName, codec, tokens, allow)

	// Audit sink is optional. Without a DB the service still records
	// rejections in memory so local runs can inspect them.
	if cfg.AuditEnabled() {
		db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
		if err != nil {
			log.Error("postgres init failed", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		gate = gate.WithAudit(audit.NewService(audit.NewPostgresRepo(db)))
	} else {
		gate = gate.WithAudit(audit.NewService(audit.NewMemoryRepo()))
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
	})

	api := r.Group("/", gate.Admit())
	api.GET("/products", listProducts)
	api.GET("/me", gate.RequireAuth(), whoAmI)
	api.POST("/products", gate.RequireRole("admin"), createProduct)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("service listening", "addr", srv.Addr, "service", serviceName)
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
}

func listProducts(c *gin.Context) {
	// Personalized pricing would key off the caller here; anonymous
	// callers get the public list.
	resp := gin.H{"products": []gin.H{
		{"id": "p-1001", "name": "USB-C Cable", "price": 12.99},
		{"id": "p-1002", "name": "Mechanical Keyboard", "price": 89.00},
	}}
	if id, ok := identity.FromContext(c.Request.Context()); ok {
		resp["viewer"] = id.UserID
	}
	c.JSON(http.StatusOK, resp)
}

func whoAmI(c *gin.Context) {
	id, _ := identity.FromContext(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"userId": id.UserID,
		"email":  id.Email,
		"role":   id.Role,
	})
}

func createProduct(c *gin.Context) {
	var req struct {
		Name  string  `json:"name" binding:"required"`
		Price float64 `json:"price" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	id, _ := identity.FromContext(c.Request.Context())
	c.JSON(http.StatusCreated, gin.H{
		"id":        "p-" + strings.ReplaceAll(time.Now().UTC().Format("20060102150405.000"), ".", ""),
		"name":      req.Name,
		"price":     req.Price,
		"createdBy": id.UserID,
	})
}
