package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"ecommerce-platform/internal/config"
	"ecommerce-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Checker aggregates the health of every downstream service behind the
// gateway. Probes fan out concurrently; one slow service delays the answer by
// at most its own timeout.
type Checker struct {
	services  map[string]config.ServiceConfig
	client    *http.Client
	startedAt time.Time
}

func NewChecker(services map[string]config.ServiceConfig) *Checker {
	return &Checker{
		services:  services,
		client:    &http.Client{},
		startedAt: time.Now(),
	}
}

type ServiceHealth struct {
	Service        string `json:"service"`
	Status         string `json:"status"`
	Timestamp      string `json:"timestamp"`
	ResponseTimeMS int64  `json:"responseTime"`
}

// Handler answers the gateway /health endpoint: 200 when every service is
// up, 503 when degraded.
func (h *Checker) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		results := make(map[string]ServiceHealth, len(h.services))
		var mu sync.Mutex
		var wg sync.WaitGroup

		for name, sc := range h.services {
			wg.Add(1)
			go func(name string, sc config.ServiceConfig) {
				defer wg.Done()
				res := h.probe(c.Request.Context(), name, sc)
				mu.Lock()
				results[name] = res
				mu.Unlock()
			}(name, sc)
		}
		wg.Wait()

		allUp := true
		for _, res := range results {
			if res.Status != "up" {
				allUp = false
			}
		}

		status := "healthy"
		code := http.StatusOK
		if !allUp {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		logger.FromGin(c).Info("health check completed", "status", status, "duration_ms", time.Since(start).Milliseconds())

		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"gateway": gin.H{
				"version": "1.0.0",
				"uptime":  time.Since(h.startedAt).Seconds(),
			},
			"services":     results,
			"responseTime": time.Since(start).Milliseconds(),
		})
	}
}

func (h *Checker) probe(ctx context.Context, name string, sc config.ServiceConfig) ServiceHealth {
	start := time.Now()
	out := ServiceHealth{
		Service:   name,
		Status:    "down",
		Timestamp: start.UTC().Format(time.RFC3339),
	}

	ctx, cancel := context.WithTimeout(ctx, sc.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sc.URL+"/health", nil)
	if err != nil {
		return out
	}

	resp, err := h.client.Do(req)
	out.ResponseTimeMS = time.Since(start).Milliseconds()
	if err != nil {
		return out
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		out.Status = "up"
	}
	return out
}
