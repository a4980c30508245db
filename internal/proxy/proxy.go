package proxy

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"

	"ecommerce-platform/internal/config"
	"ecommerce-platform/internal/headers"
	"ecommerce-platform/internal/identity"
	"ecommerce-platform/internal/metrics"
	"ecommerce-platform/internal/signature"
	"ecommerce-platform/internal/token"
	"ecommerce-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Composer forwards gateway requests upstream with the internal trust
// headers attached. For every proxied request it strips anything the caller
// could have used to spoof identity, mints a fresh internal token when a
// caller identity exists, and signs (method, url, timestamp) with the
// gateway secret.
type Composer struct {
	services map[string]config.ServiceConfig
	tokens   *token.Manager
	codec    *signature.Codec
	client   *http.Client
	metrics  metrics.Metrics
	now      func() time.Time
}

func NewComposer(services map[string]config.ServiceConfig, tokens *token.Manager, codec *signature.Codec) *Composer {
	return &Composer{
		services: services,
		tokens:   tokens,
		codec:    codec,
		// Per-request deadlines come from the service config via context;
		// the client itself carries no timeout.
		client:  &http.Client{},
		metrics: metrics.Noop{},
		now:     time.Now,
	}
}

func (p *Composer) WithMetrics(m metrics.Metrics) *Composer {
	p.metrics = m
	return p
}

// Inbound headers that must never be forwarded as-is: a caller could inject
// any of these to impersonate the gateway or another user.
var strippedRequestHeaders = []string{
	headers.InternalToken,
	headers.GatewaySignature,
	headers.GatewayTimestamp,
}

// Response headers dropped before relaying: the token must not leak back to
// the client, and the transport headers no longer describe the relayed body.
var strippedResponseHeaders = []string{
	headers.InternalToken,
	"Content-Encoding",
	"Content-Length",
	"Transfer-Encoding",
}

// Handler returns the gin handler proxying to the named service. The route
// prefix "/api/<service>" is stripped from the forwarded URL.
func (p *Composer) Handler(service string) gin.HandlerFunc {
	sc := p.services[service]
	prefix := "/api/" + service

	return func(c *gin.Context) {
		start := p.now()
		status := p.forward(c, service, sc, prefix)
		p.metrics.ObserveProxyRequest(service, strconv.Itoa(status), p.now().Sub(start).Seconds())
	}
}

func (p *Composer) forward(c *gin.Context, service string, sc config.ServiceConfig, prefix string) int {
	log := logger.FromGin(c)

	targetPath := strings.TrimPrefix(c.Request.URL.RequestURI(), prefix)
	if targetPath == "" {
		targetPath = "/"
	}
	targetURL := sc.URL + targetPath

	ctx, cancel := context.WithTimeout(c.Request.Context(), sc.Timeout)
	defer cancel()

	out, err := http.NewRequestWithContext(ctx, c.Request.Method, targetURL, c.Request.Body)
	if err != nil {
		log.Error("proxy request build failed", "service", service, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_server_error",
			"message": "An unexpected error occurred while processing the request",
		})
		return http.StatusInternalServerError
	}

	out.Header = sanitizeInbound(c.Request.Header)

	requestID := c.GetHeader(headers.RequestID)
	if requestID == "" {
		requestID = NewRequestID()
	}

	id, authenticated := identity.FromContext(c.Request.Context())
	if authenticated {
		internalToken, err := p.tokens.Issue(p.now(), id)
		if err != nil {
			log.Error("internal token mint failed", "service", service, "err", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_server_error",
				"message": "An unexpected error occurred while processing the request",
			})
			return http.StatusInternalServerError
		}
		out.Header.Set(headers.InternalToken, internalToken)
	}

	ts := p.now().UnixMilli()
	out.Header.Set(headers.GatewaySignature, p.codec.Sign(c.Request.Method, targetPath, ts))
	out.Header.Set(headers.GatewayTimestamp, strconv.FormatInt(ts, 10))
	out.Header.Set(headers.GatewayService, service)
	out.Header.Set(headers.RequestID, requestID)

	log.Info("proxying request",
		"service", service,
		"method", c.Request.Method,
		"target", targetURL,
		"authenticated", authenticated,
		"request_id", requestID,
	)

	resp, err := p.client.Do(out)
	if err != nil {
		return p.relayError(c, service, requestID, err)
	}
	defer resp.Body.Close()

	for key, values := range resp.Header {
		if isStrippedResponseHeader(key) {
			continue
		}
		for _, v := range values {
			c.Writer.Header().Add(key, v)
		}
	}
	c.Status(resp.StatusCode)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		log.Warn("proxy body relay interrupted", "service", service, "err", err)
	}
	return resp.StatusCode
}

// sanitizeInbound copies the caller's headers minus anything spoofable: the
// Host header, every x-user-* header, and all trust headers, whether or not
// they were present. The gateway re-derives all of them.
func sanitizeInbound(in http.Header) http.Header {
	out := make(http.Header, len(in))
	for key, values := range in {
		if strings.EqualFold(key, "Host") || strings.HasPrefix(strings.ToLower(key), "x-user-") {
			continue
		}
		if isStrippedRequestHeader(key) {
			continue
		}
		out[key] = append([]string(nil), values...)
	}
	return out
}

func isStrippedRequestHeader(key string) bool {
	for _, h := range strippedRequestHeaders {
		if strings.EqualFold(key, h) {
			return true
		}
	}
	return false
}

func isStrippedResponseHeader(key string) bool {
	for _, h := range strippedResponseHeaders {
		if strings.EqualFold(key, h) {
			return true
		}
	}
	return false
}

func (p *Composer) relayError(c *gin.Context, service, requestID string, err error) int {
	log := logger.FromGin(c)

	switch {
	case errors.Is(err, context.DeadlineExceeded) || isTimeout(err):
		log.Error("upstream timeout", "service", service, "err", err)
		c.JSON(http.StatusGatewayTimeout, gin.H{
			"error":     "gateway_timeout",
			"message":   service + " service timeout",
			"service":   service,
			"requestId": requestID,
		})
		return http.StatusGatewayTimeout

	case errors.Is(err, syscall.ECONNREFUSED):
		log.Error("upstream unavailable", "service", service, "err", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":     "service_unavailable",
			"message":   service + " service is unavailable",
			"service":   service,
			"requestId": requestID,
		})
		return http.StatusServiceUnavailable

	default:
		log.Error("proxy failed", "service", service, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "internal_server_error",
			"message":   "An unexpected error occurred while processing the request",
			"service":   service,
			"requestId": requestID,
		})
		return http.StatusInternalServerError
	}
}

func isTimeout(err error) bool {
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}

// GatewayHeaders stamps every gateway response, generated or relayed, with
// the gateway identity and the request correlation id.
func GatewayHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(headers.RequestID)
		if requestID == "" {
			requestID = NewRequestID()
			c.Request.Header.Set(headers.RequestID, requestID)
		}
		c.Writer.Header().Set("X-Gateway", "ecommerce-api-gateway")
		c.Writer.Header().Set("X-Gateway-Version", "1.0.0")
		c.Writer.Header().Set(headers.RequestID, requestID)
		c.Next()
	}
}
