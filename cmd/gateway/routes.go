package main

import (
	"net/http"

	"ecommerce-platform/internal/authremote"
	"ecommerce-platform/internal/config"
	"ecommerce-platform/internal/health"
	"ecommerce-platform/internal/ingress"
	"ecommerce-platform/internal/metrics"
	"ecommerce-platform/internal/proxy"
	"ecommerce-platform/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

// registerRoutes mounts the gateway surface. Each service prefix gets its
// own rate limit policy and authentication requirement before the proxy
// handler takes over.
func registerRoutes(
	r *gin.Engine,
	composer *proxy.Composer,
	limiter *ratelimit.Limiter,
	authn *authremote.Authenticator,
	checker *health.Checker,
) {
	r.GET("/health", checker.Handler())
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	authLimit := limiter.Middleware(ratelimit.AuthPolicy())
	apiLimit := limiter.Middleware(ratelimit.APIPolicy())
	publicLimit := limiter.Middleware(ratelimit.PublicReadPolicy())

	auth := composer.Handler("auth")
	catalog := composer.Handler("catalog")
	cart := composer.Handler("cart")
	orders := composer.Handler("orders")
	payments := composer.Handler("payments")
	notifications := composer.Handler("notifications")

	// Auth service is the only fully public surface. Login and signup
	// carry the tightest limits.
	r.Any("/api/auth/*path", authLimit, auth)

	// Catalog is hybrid: reads are public with optional identity for
	// personalization, writes and the admin console require an admin.
	r.GET("/api/catalog/products", publicLimit, authn.Optional(), catalog)
	r.GET("/api/catalog/products/*path", publicLimit, authn.Optional(), catalog)
	r.GET("/api/catalog/categories", publicLimit, authn.Optional(), catalog)
	r.GET("/api/catalog/categories/*path", publicLimit, authn.Optional(), catalog)
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		r.Handle(method, "/api/catalog/*path", apiLimit, authn.Required(), ingress.RequireRole("admin"), catalog)
	}
	r.GET("/api/catalog/admin/*path", apiLimit, authn.Required(), ingress.RequireRole("admin"), catalog)

	// Everything below requires an authenticated caller.
	r.Any("/api/cart/*path", apiLimit, authn.Required(), cart)
	r.Any("/api/orders/*path", apiLimit, authn.Required(), orders)
	r.Any("/api/payments/*path", apiLimit, authn.Required(), payments)

	// Notification management is operator-only.
	r.Any("/api/notifications/*path", apiLimit, authn.Required(), ingress.RequireRole("admin"), notifications)

	// Unknown service prefix
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":             "not_found",
			"message":           "The requested resource was not found",
			"availableServices": config.ServiceNames,
		})
	})
}
