package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ecommerce-platform/internal/config"

	"github.com/gin-gonic/gin"
)

func upstream(t *testing.T, status int) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("expected /health probe, got %s", r.URL.Path)
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func serve(checker *Checker) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", checker.Handler())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))
	return w
}

func TestHandler_AllUp(t *testing.T) {
	services := map[string]config.ServiceConfig{
		"catalog": {URL: upstream(t, 200), Timeout: 2 * time.Second},
		"orders":  {URL: upstream(t, 200), Timeout: 2 * time.Second},
	}

	w := serve(NewChecker(services))
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d %s", w.Code, w.Body.String())
	}

	var body struct {
		Status   string                   `json:"status"`
		Services map[string]ServiceHealth `json:"services"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "healthy" {
		t.Fatalf("expected healthy, got %q", body.Status)
	}
	if body.Services["catalog"].Status != "up" || body.Services["orders"].Status != "up" {
		t.Fatalf("expected both services up: %+v", body.Services)
	}
}

func TestHandler_DegradedOnDownService(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	down.Close()

	services := map[string]config.ServiceConfig{
		"catalog": {URL: upstream(t, 200), Timeout: 2 * time.Second},
		"orders":  {URL: down.URL, Timeout: time.Second},
	}

	w := serve(NewChecker(services))
	if w.Code != 503 {
		t.Fatalf("expected 503, got %d", w.Code)
	}

	var body struct {
		Status   string                   `json:"status"`
		Services map[string]ServiceHealth `json:"services"`
	}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.Status != "degraded" {
		t.Fatalf("expected degraded, got %q", body.Status)
	}
	if body.Services["orders"].Status != "down" {
		t.Fatalf("expected orders down: %+v", body.Services)
	}
}

func TestHandler_Non200CountsAsDown(t *testing.T) {
	services := map[string]config.ServiceConfig{
		"payments": {URL: upstream(t, 500), Timeout: 2 * time.Second},
	}

	w := serve(NewChecker(services))
	if w.Code != 503 {
		t.Fatalf("expected 503 for erroring service, got %d", w.Code)
	}
}
