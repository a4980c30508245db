// Package authremote terminates public authentication at the gateway by
// validating the caller's bearer token against the auth service. It is the
// out-of-scope collaborator from the ingress gate's point of view: its only
// job is to bind an Identity that the egress composer can re-mint as an
// internal token.
package authremote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"syscall"
	"time"

	"ecommerce-platform/internal/config"
	"ecommerce-platform/internal/identity"
	"ecommerce-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

const bearerPrefix = "Bearer "

var (
	errNoUser      = errors.New("authremote: no user in validate response")
	errUnavailable = errors.New("authremote: auth service unavailable")
	errRejected    = errors.New("authremote: token rejected")
)

type Authenticator struct {
	authURL string
	timeout time.Duration
	client  *http.Client
}

func NewAuthenticator(sc config.ServiceConfig) *Authenticator {
	return &Authenticator{
		authURL: sc.URL,
		timeout: sc.Timeout,
		client:  &http.Client{},
	}
}

type validateRequest struct {
	Token string `json:"token"`
}

type validateResponse struct {
	User *struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"user"`
}

// Required rejects callers without a valid bearer token.
func (a *Authenticator) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearerToken(c)
		if tok == "" {
			logger.FromGin(c).Warn("authentication failed: no token", "path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "access_denied",
				"message": "Token required",
			})
			return
		}

		id, err := a.validate(c.Request.Context(), tok)
		switch {
		case err == nil:
			c.Request = c.Request.WithContext(identity.WithIdentity(c.Request.Context(), id))
			c.Next()
		case errors.Is(err, errUnavailable):
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error":   "service_unavailable",
				"message": "Authentication service is temporarily unavailable",
			})
		case errors.Is(err, errRejected):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_token",
				"message": "Invalid or expired token",
			})
		default:
			logger.FromGin(c).Error("authentication failed", "err", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "authentication_failed",
				"message": "Failed to authenticate token",
			})
		}
	}
}

// Optional binds an identity when a valid bearer token is present and
// otherwise lets the request continue anonymous. Validation errors are
// logged, never surfaced.
func (a *Authenticator) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearerToken(c)
		if tok == "" {
			c.Next()
			return
		}

		id, err := a.validate(c.Request.Context(), tok)
		if err != nil {
			logger.FromGin(c).Debug("optional authentication failed, continuing anonymous", "err", err)
			c.Next()
			return
		}

		c.Request = c.Request.WithContext(identity.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

func (a *Authenticator) validate(ctx context.Context, token string) (identity.Identity, error) {
	body, err := json.Marshal(validateRequest{Token: token})
	if err != nil {
		return identity.Identity{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.authURL+"/api/auth/validate", bytes.NewReader(body))
	if err != nil {
		return identity.Identity{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, context.DeadlineExceeded) {
			return identity.Identity{}, errUnavailable
		}
		return identity.Identity{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return identity.Identity{}, errRejected
	}
	if resp.StatusCode != http.StatusOK {
		return identity.Identity{}, fmt.Errorf("authremote: validate returned %d", resp.StatusCode)
	}

	var vr validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return identity.Identity{}, err
	}
	if vr.User == nil || vr.User.ID == "" {
		return identity.Identity{}, errNoUser
	}

	return identity.Identity{UserID: vr.User.ID, Email: vr.User.Email, Role: vr.User.Role}, nil
}

func bearerToken(c *gin.Context) string {
	raw := strings.TrimSpace(c.GetHeader("Authorization"))
	if !strings.HasPrefix(raw, bearerPrefix) {
		return ""
	}
	return strings.TrimPrefix(raw, bearerPrefix)
}
