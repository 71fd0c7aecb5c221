package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const envPrefix = "STOPWATCH_"

type Config struct {
	ListenPort      string        `validate:"required"` // ex: ":8080"
	ShutdownTimeout time.Duration `validate:"gt=0"`

	LogLevel  string `validate:"oneof=debug info warn error"`
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Upstream departures board
	UpstreamURL    string        `validate:"required,url"` // board URL, stop goes into ?przystanek=
	RenderMode     string        `validate:"oneof=http chrome"`
	RenderSettle   time.Duration `validate:"gte=0"` // wait for dynamic content (chrome mode)
	ChromePath     string        // optional browser binary (chrome mode)
	FetchTimeout   time.Duration `validate:"gt=0"` // per attempt
	RequestTimeout time.Duration `validate:"gt=0"` // whole /departures request

	// Proxy pool
	LivenessURL       string        `validate:"required,url"`
	ProxyListURL      string        `validate:"omitempty,url"`
	ProxyListSelector string        `validate:"required"`
	ProxySeedFile     string        // optional YAML list of candidates
	ProxyListRetry    time.Duration `validate:"gte=0"` // max time spent retrying the list download
	StandardProxies   int           `validate:"gt=0,gtefield=MinimumProxies"`
	MinimumProxies    int           `validate:"gt=0"`
	ProbeTimeout      time.Duration `validate:"gt=0"`

	// Schedules
	FreshnessWindow          time.Duration `validate:"gt=0"`
	ProxyRefillInterval      time.Duration `validate:"gt=0"`
	DepartureRefreshInterval time.Duration `validate:"gt=0"`
	RefreshWorkers           int           `validate:"gt=0"`

	// Rate limiting on /departures
	RateBurst  int `validate:"gte=1"`
	RatePerMin int `validate:"gte=1"`

	// Redis (optional, empty address disables persistence)
	RedisAddr           string
	RedisUser           string
	RedisPassword       string
	RedisDB             int           `validate:"gte=0"`
	RedisDT             time.Duration // dial timeout
	RedisRT             time.Duration // read timeout
	RedisWT             time.Duration // write timeout
	RedisPoolSize       int
	RedisConnectTimeout time.Duration
	RedisRetryInterval  time.Duration
	RedisMaxWait        time.Duration
	RedisPingTimeout    time.Duration
	RedisWarnThreshold  int

	AllowedHosts []string // optional, restrict /departures to these Host headers
	AllowedCIDRS []string // optional, restrict infra endpoints to these IPs/CIDRs
	TrustProxy   bool     // true => trust X-Forwarded-For headers
}

// Load reads .env (if present) and the process environment, then validates the result.
// It panics on invalid configuration: there is nothing useful to run without it.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[WARN] failed to load .env: %v", err)
	}

	cfg := &Config{
		ListenPort:      getenv("LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("SHUTDOWN_TIMEOUT", 5*time.Second),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		PrettyLog: mustBool("PRETTY_LOG", true),

		UpstreamURL:    getenv("UPSTREAM_URL", "http://www.peka.poznan.pl/vm"),
		RenderMode:     getenv("RENDER_MODE", "chrome"),
		RenderSettle:   mustDuration("RENDER_SETTLE", 2*time.Second),
		ChromePath:     getenv("CHROME_PATH", ""),
		FetchTimeout:   mustDuration("FETCH_TIMEOUT", 2*time.Second),
		RequestTimeout: mustDuration("REQUEST_TIMEOUT", 30*time.Second),

		LivenessURL:       getenv("LIVENESS_URL", "https://httpbin.org/ip"),
		ProxyListURL:      getenv("PROXY_LIST_URL", "https://free-proxy-list.net/"),
		ProxyListSelector: getenv("PROXY_LIST_SELECTOR", "#proxylisttable tbody tr"),
		ProxySeedFile:     getenv("PROXY_SEED_FILE", ""),
		ProxyListRetry:    mustDuration("PROXY_LIST_RETRY", 15*time.Second),
		StandardProxies:   getenvInt("PROXY_STANDARD", 15),
		MinimumProxies:    getenvInt("PROXY_MINIMUM", 10),
		ProbeTimeout:      mustDuration("PROBE_TIMEOUT", time.Second),

		FreshnessWindow:          mustDuration("FRESHNESS_WINDOW", 300*time.Second),
		ProxyRefillInterval:      mustDuration("PROXY_REFILL_INTERVAL", 30*time.Second),
		DepartureRefreshInterval: mustDuration("DEPARTURE_REFRESH_INTERVAL", 20*time.Second),
		RefreshWorkers:           getenvInt("REFRESH_WORKERS", 4),

		RateBurst:  getenvInt("RATE_BURST", 20),
		RatePerMin: getenvInt("RATE_PER_MIN", 60),

		RedisAddr:           getenv("REDIS_ADDR", ""),
		RedisUser:           getenv("REDIS_USERNAME", ""),
		RedisPassword:       getenv("REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("REDIS_DB", 0),
		RedisDT:             mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisPoolSize:       getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisWarnThreshold:  getenvInt("REDIS_WARN_THRESHOLD", 3),

		AllowedHosts: splitAndTrim(getenv("ALLOWED_HOSTS", "")),
		AllowedCIDRS: splitAndTrim(getenv("ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("TRUST_PROXY", false),
	}

	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("❌ FATAL: invalid configuration: %v", err))
	}

	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		if cfgCopy.RedisPassword != "" {
			cfgCopy.RedisPassword = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// Validate checks struct constraints.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// RedisEnabled reports whether a Redis address was configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(envPrefix + key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(envPrefix + key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(envPrefix + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
