package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the gateway process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App      AppConfig
	Security SecurityConfig
	Services map[string]ServiceConfig
	Redis    RedisConfig
	DB       DBConfig
}

type AppConfig struct {
	Env  string
	Port int
}

// SecurityConfig carries the trust-boundary secrets and the allow-list.
// Constructed once at startup and passed by injection; never read from
// ambient globals so the boundary stays testable with swappable secrets.
type SecurityConfig struct {
	InternalJWTSecret string
	GatewaySecret     string

	// AllowedIPs is parsed from a comma-separated list of literal IPs and
	// IPv4 CIDR blocks.
	AllowedIPs []string
}

type ServiceConfig struct {
	URL     string
	Timeout time.Duration

	// Retries is surfaced for the HTTP client owner; neither the gate nor
	// the proxy retries on its own.
	Retries int
}

type RedisConfig struct {
	Host string
	Port int
}

// DBConfig is the audit sink. Optional outside production.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// ServiceNames is the static routing table. Order matters for docs and
// health output only.
var ServiceNames = []string{"auth", "catalog", "cart", "orders", "payments", "notifications"}

var defaultServicePorts = map[string]int{
	"auth":          3001,
	"catalog":       3002,
	"cart":          3003,
	"orders":        3004,
	"payments":      3005,
	"notifications": 3006,
}

var defaultAllowedIPs = []string{
	"127.0.0.1",
	"::1",
	"localhost",
	"172.18.0.0/16", // docker default network
	"10.0.0.0/8",    // kubernetes default network
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.Security.InternalJWTSecret = os.Getenv("INTERNAL_JWT_SECRET")
	c.Security.GatewaySecret = os.Getenv("GATEWAY_SECRET")
	c.Security.AllowedIPs = splitCSV(os.Getenv("ALLOWED_GATEWAY_IPS"))
	if len(c.Security.AllowedIPs) == 0 {
		c.Security.AllowedIPs = defaultAllowedIPs
	}

	c.Services = make(map[string]ServiceConfig, len(ServiceNames))
	for _, name := range ServiceNames {
		prefix := strings.ToUpper(name) + "_SERVICE"
		sc := ServiceConfig{
			URL:     strings.TrimSpace(os.Getenv(prefix + "_URL")),
			Timeout: optDuration(prefix+"_TIMEOUT", 5*time.Second),
			Retries: optInt(prefix+"_RETRIES", 3),
		}
		if sc.URL == "" {
			sc.URL = fmt.Sprintf("http://localhost:%d", defaultServicePorts[name])
		}
		c.Services[name] = sc
	}

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	c.Redis.Port = optInt("REDIS_PORT", 6379)

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	c.DB.Port = optInt("DB_PORT", 5432)
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.Security.InternalJWTSecret == "" {
		errs = append(errs, errors.New("INTERNAL_JWT_SECRET is required"))
	}
	if c.Security.GatewaySecret == "" {
		errs = append(errs, errors.New("GATEWAY_SECRET is required"))
	}
	if len(c.Security.AllowedIPs) == 0 {
		errs = append(errs, errors.New("ALLOWED_GATEWAY_IPS must not be empty"))
	}

	for _, name := range ServiceNames {
		sc, ok := c.Services[name]
		if !ok || sc.URL == "" {
			errs = append(errs, fmt.Errorf("%s service URL is required", name))
			continue
		}
		if sc.Timeout <= 0 {
			errs = append(errs, fmt.Errorf("%s service timeout must be positive", name))
		}
	}

	// Redis backs the gateway rate limiter only; microservice binaries share
	// this env surface without it. ValidateGateway enforces its presence.
	if c.Redis.Host != "" && (c.Redis.Port <= 0 || c.Redis.Port > 65535) {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	// The audit DB is mandatory in production; elsewhere rejects fall back to
	// structured logs only.
	if c.IsProduction() && c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required in production"))
	}
	if c.DB.Host != "" {
		if c.DB.User == "" {
			errs = append(errs, errors.New("DB_USER is required"))
		}
		if c.DB.Name == "" {
			errs = append(errs, errors.New("DB_NAME is required"))
		}
		if c.DB.SSLMode == "" {
			if c.IsProduction() {
				errs = append(errs, errors.New("DB_SSLMODE is required in production"))
			} else {
				c.DB.SSLMode = "disable"
			}
		}
		if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
			errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
		}
	}

	return joinErrors(errs)
}

// ValidateGateway adds the gateway-only requirements on top of Validate.
func (c *Config) ValidateGateway() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Redis.Host == "" {
		return errors.New("REDIS_HOST is required for the gateway")
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func (c Config) AuditEnabled() bool {
	return c.DB.Host != ""
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// optDuration accepts Go duration strings ("5s") or bare milliseconds ("5000").
func optDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}

func splitCSV(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
