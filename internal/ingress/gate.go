package ingress

import (
	"net/http"
	"strconv"
	"time"

	"ecommerce-platform/internal/audit"
	"ecommerce-platform/internal/headers"
	"ecommerce-platform/internal/identity"
	"ecommerce-platform/internal/ipallow"
	"ecommerce-platform/internal/metrics"
	"ecommerce-platform/internal/signature"
	"ecommerce-platform/internal/token"
	"ecommerce-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Machine codes returned in rejection bodies. These are contract; clients
// and dashboards key on them.
const (
	CodeAccessDenied      = "access_denied"
	CodeMissingSignature  = "missing_gateway_signature"
	CodeInvalidSignature  = "invalid_gateway_signature"
	CodeInvalidToken      = "invalid_internal_token"
	CodeAuthRequired      = "authentication_required"
	CodeInsufficientPerms = "insufficient_permissions"
	CodeInternalError     = "internal_error"
)

// Gate is the admission check mounted at a microservice's ingress. It decides
// ADMITTED or REJECTED before any business handler runs; handlers only ever
// observe fully admitted requests.
//
// All fields are read-only after construction, so one Gate serves concurrent
// requests without locking.
type Gate struct {
	service string
	codec   *signature.Codec
	tokens  *token.Manager
	allow   *ipallow.AllowList

	audit   *audit.Service
	metrics metrics.Metrics
	now     func() time.Time
}

func NewGate(service string, codec *signature.Codec, tokens *token.Manager, allow *ipallow.AllowList) *Gate {
	return &Gate{
		service: service,
		codec:   codec,
		tokens:  tokens,
		allow:   allow,
		metrics: metrics.Noop{},
		now:     time.Now,
	}
}

// WithAudit attaches a best-effort security event sink.
func (g *Gate) WithAudit(a *audit.Service) *Gate {
	g.audit = a
	return g
}

func (g *Gate) WithMetrics(m metrics.Metrics) *Gate {
	g.metrics = m
	return g
}

// Admit validates, in order: client IP against the allow-list, gateway
// signature presence and correctness, then (if present) the internal token.
// The IP gate is unconditional; it runs even for optional-auth routes.
//
// A request without an internal token proceeds anonymous; route policies
// (RequireAuth, RequireRole) decide whether that is acceptable.
func (g *Gate) Admit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if g.admit(c) {
			c.Next()
		}
	}
}

// admit runs the checks and reports whether the request may proceed. A panic
// anywhere in validation converts to 500 internal_error; it never reaches the
// client as a stack trace, and business handlers never run.
func (g *Gate) admit(c *gin.Context) (admitted bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.FromGin(c).Error("admission check panic", "panic", r)
			g.reject(c, http.StatusInternalServerError, CodeInternalError, "Failed to validate internal authentication", audit.EventType(""))
			admitted = false
		}
	}()

	ip := ipallow.ClientIP(c.Request)

	if !g.allow.Contains(ip) {
		logger.FromGin(c).Warn("blocked direct access", "ip", ip, "service", g.service)
		g.reject(c, http.StatusForbidden, CodeAccessDenied, "Direct access to microservices is not allowed", audit.EventTypeAccessDenied)
		return false
	}

	sig := c.GetHeader(headers.GatewaySignature)
	tsRaw := c.GetHeader(headers.GatewayTimestamp)
	if sig == "" || tsRaw == "" {
		g.reject(c, http.StatusUnauthorized, CodeMissingSignature, "Gateway signature required", audit.EventTypeInvalidSignature)
		return false
	}

	ts, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil || !g.codec.Verify(sig, c.Request.Method, c.Request.URL.RequestURI(), ts) {
		g.reject(c, http.StatusUnauthorized, CodeInvalidSignature, "Invalid gateway signature", audit.EventTypeInvalidSignature)
		return false
	}

	if raw := c.GetHeader(headers.InternalToken); raw != "" {
		claims, err := g.tokens.Verify(raw, g.now())
		if err != nil {
			g.reject(c, http.StatusUnauthorized, CodeInvalidToken, "Invalid internal authentication token", audit.EventTypeInvalidToken)
			return false
		}

		id := claims.Identity()
		c.Request = c.Request.WithContext(identity.WithIdentity(c.Request.Context(), id))

		// Also store on gin context for handler convenience.
		c.Set("user_id", id.UserID)
		c.Set("email", id.Email)
		c.Set("role", id.Role)
	}

	return true
}

// RequireAuth rejects requests the gate admitted anonymously. The gate
// variant counts rejections; use the package-level RequireAuth on surfaces
// without a gate.
func (g *Gate) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := identity.FromContext(c.Request.Context()); !ok {
			g.reject(c, http.StatusUnauthorized, CodeAuthRequired, "This endpoint requires authentication", "")
			return
		}
		c.Next()
	}
}

// RequireRole admits only callers whose role is in the allowed set.
// Anonymous callers get 401; authenticated callers outside the set get 403
// and leave an audit event naming the denied actor.
func (g *Gate) RequireRole(allowed ...string) gin.HandlerFunc {
	allowedSet := roleSet(allowed)

	return func(c *gin.Context) {
		id, ok := identity.FromContext(c.Request.Context())
		if !ok {
			g.reject(c, http.StatusUnauthorized, CodeAuthRequired, "Authentication required", "")
			return
		}
		if _, ok := allowedSet[id.Role]; !ok {
			g.rejectActor(c, id, http.StatusForbidden, CodeInsufficientPerms, "Insufficient permissions to access this resource", audit.EventTypeInsufficientRole)
			return
		}
		c.Next()
	}
}

// RequireAuth is the gate-less variant for the gateway edge, where identity
// is bound by remote authentication rather than an internal token.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := identity.FromContext(c.Request.Context()); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   CodeAuthRequired,
				"message": "This endpoint requires authentication",
			})
			return
		}
		c.Next()
	}
}

// RequireRole is the gate-less variant for the gateway edge.
func RequireRole(allowed ...string) gin.HandlerFunc {
	allowedSet := roleSet(allowed)

	return func(c *gin.Context) {
		id, ok := identity.FromContext(c.Request.Context())
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   CodeAuthRequired,
				"message": "Authentication required",
			})
			return
		}
		if _, ok := allowedSet[id.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   CodeInsufficientPerms,
				"message": "Insufficient permissions to access this resource",
			})
			return
		}
		c.Next()
	}
}

func roleSet(allowed []string) map[string]struct{} {
	set := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		set[r] = struct{}{}
	}
	return set
}

func (g *Gate) reject(c *gin.Context, status int, code, message string, event audit.EventType) {
	g.metrics.IncAdmissionRejected(code)

	if g.audit != nil && event != "" {
		// Best-effort: an audit failure never changes the admission decision.
		err := g.audit.LogRejection(
			c.Request.Context(),
			event,
			g.service,
			ipallow.ClientIP(c.Request),
			c.Request.Method,
			c.Request.URL.Path,
			c.GetHeader(headers.RequestID),
			message,
		)
		if err != nil {
			logger.FromGin(c).Warn("audit append failed", "err", err)
		}
	}

	c.AbortWithStatusJSON(status, gin.H{"error": code, "message": message})
}

// rejectActor is reject for failures after a token verified: the event names
// the caller whose claims were insufficient.
func (g *Gate) rejectActor(c *gin.Context, id identity.Identity, status int, code, message string, event audit.EventType) {
	g.metrics.IncAdmissionRejected(code)

	if g.audit != nil && event != "" {
		err := g.audit.LogDeniedActor(
			c.Request.Context(),
			event,
			g.service,
			ipallow.ClientIP(c.Request),
			id.UserID,
			id.Role,
			c.GetHeader(headers.RequestID),
			message,
		)
		if err != nil {
			logger.FromGin(c).Warn("audit append failed", "err", err)
		}
	}

	c.AbortWithStatusJSON(status, gin.H{"error": code, "message": message})
}
