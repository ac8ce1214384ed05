package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/lbsync/internal/domain"
)

const redacted = "***REDACTED***"

type Config struct {
	ConfigFile string // optional YAML file with non-secret defaults

	// Platform
	CattleURL       string // API endpoint, ex: http://rancher:8080/v1
	CattleAccessKey string
	CattleSecretKey string
	Domain          string // base domain of canonical hostnames
	LBHTTPPort      int    // load balancer HTTP listener
	LBHTTPSPort     int    // load balancer HTTPS listener

	// Reconciliation
	RequestTimeout   time.Duration // per platform API request
	ReconcileRetries int           // extra attempts for transport failures
	RetryInterval    time.Duration // first wait between attempts, grows exponentially
	ResyncInterval   time.Duration // periodic full pass, 0 = disabled
	Subscribe        bool          // true => consume the platform event stream
	EventIdleTimeout time.Duration // redial when the stream is silent for that long

	// Server
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	AllowedHosts    []string      // optional, restrict access to specific Host headers
	AllowedCIDRS    []string      // optional, restrict access to specific IPs/CIDRs
	TrustProxy      bool          // true => trust X-Forwarded-For headers
	EventsBurst     int           // webhook rate limit burst per IP
	EventsPerMin    int           // webhook rate limit refill per IP

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Redis (optional, empty address disables the lock and shared reports)
	RedisAddr           string
	RedisUser           string
	RedisPassword       string
	RedisDB             int
	RedisDT             time.Duration // dial timeout
	RedisRT             time.Duration // read timeout
	RedisWT             time.Duration // write timeout
	RedisMaxWait        time.Duration // max wait between retries
	RedisPingTimeout    time.Duration // timeout for each ping attempt
	RedisPoolSize       int
	RedisConnectTimeout time.Duration // total time to retry connecting
	RedisRetryInterval  time.Duration // initial wait between retries
	RedisWarnThreshold  int           // warn after this many attempts
	LockTTL             time.Duration // distributed reconcile lock lifetime
}

// secretKeys may only come from the environment.
var secretKeys = map[string]bool{
	"CATTLE_ACCESS_KEY":     true,
	"CATTLE_SECRET_KEY":     true,
	"LBSYNC_REDIS_PASSWORD": true,
}

// source resolves a setting from the environment first, then from the
// optional config file.
type source struct {
	file map[string]string
}

// Load reads the configuration. Invalid or missing required settings are
// fatal and panic.
func Load() *Config {
	s := source{}
	path := os.Getenv("LBSYNC_CONFIG_FILE")
	if path != "" {
		file, err := readFile(path)
		if err != nil {
			panic(fmt.Sprintf("❌ FATAL: %v", err))
		}
		s.file = file
	}

	cfg := &Config{
		ConfigFile: path,

		// Platform
		CattleURL:       s.requireEnv("CATTLE_URL"),
		CattleAccessKey: s.getenv("CATTLE_ACCESS_KEY", ""),
		CattleSecretKey: s.getenv("CATTLE_SECRET_KEY", ""),
		Domain:          s.getenv("DOMAIN", domain.DefaultDomain),
		LBHTTPPort:      s.mustPort("LOADBALANCER_HTTP_LISTEN_PORT", domain.DefaultHTTPPort),
		LBHTTPSPort:     s.mustPort("LOADBALANCER_HTTPS_LISTEN_PORT", domain.DefaultHTTPSPort),

		// Reconciliation
		RequestTimeout:   s.mustDuration("LBSYNC_REQUEST_TIMEOUT", 10*time.Second),
		ReconcileRetries: s.getenvInt("LBSYNC_RECONCILE_RETRIES", 2),
		RetryInterval:    s.mustDuration("LBSYNC_RETRY_INTERVAL", time.Second),
		ResyncInterval:   s.mustDuration("LBSYNC_RESYNC_INTERVAL", 0),
		Subscribe:        s.mustBool("LBSYNC_SUBSCRIBE", true),
		EventIdleTimeout: s.mustDuration("LBSYNC_EVENT_IDLE_TIMEOUT", 2*time.Minute),

		// Server settings
		ListenPort:      s.getenv("LBSYNC_LISTEN_PORT", ":8080"),
		ShutdownTimeout: s.mustDuration("LBSYNC_SHUTDOWN_TIMEOUT", 5*time.Second),
		AllowedHosts:    splitAndTrim(s.getenv("LBSYNC_ALLOWED_HOSTS", "")),
		AllowedCIDRS:    splitAndTrim(s.getenv("LBSYNC_ALLOWED_CIDRS", "")),
		TrustProxy:      s.mustBool("LBSYNC_TRUST_PROXY", false),
		EventsBurst:     s.getenvInt("LBSYNC_EVENTS_BURST", 20),
		EventsPerMin:    s.getenvInt("LBSYNC_EVENTS_PER_MIN", 60),

		// Logging
		LogLevel:  s.getenv("LBSYNC_LOG_LEVEL", "info"),
		PrettyLog: s.mustBool("LBSYNC_PRETTY_LOG", false),

		// Redis settings
		RedisAddr:           s.getenv("LBSYNC_REDIS_ADDR", ""),
		RedisUser:           s.getenv("LBSYNC_REDIS_USERNAME", ""),
		RedisPassword:       s.getenv("LBSYNC_REDIS_PASSWORD", ""),
		RedisDB:             s.getenvInt("LBSYNC_REDIS_DB", 0),
		RedisDT:             s.mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             s.mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             s.mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        s.mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    s.mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       s.getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: s.mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  s.mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:  s.getenvInt("REDIS_WARN_THRESHOLD", 3),
		LockTTL:             s.mustDuration("LBSYNC_LOCK_TTL", 2*time.Minute),
	}

	if cfg.ReconcileRetries < 0 {
		panic(fmt.Sprintf("❌ FATAL: LBSYNC_RECONCILE_RETRIES must be >= 0, got %d", cfg.ReconcileRetries))
	}
	if cfg.ResyncInterval < 0 {
		panic(fmt.Sprintf("❌ FATAL: LBSYNC_RESYNC_INTERVAL must be >= 0, got %v", cfg.ResyncInterval))
	}

	return cfg
}

// RouteConfig returns the settings the route builder needs.
func (c *Config) RouteConfig() domain.RouteConfig {
	return domain.RouteConfig{
		Domain:    c.Domain,
		HTTPPort:  c.LBHTTPPort,
		HTTPSPort: c.LBHTTPSPort,
	}
}

// RedisEnabled reports whether a Redis address is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// Redacted returns a copy safe to log.
func (c *Config) Redacted() Config {
	cp := *c
	if cp.CattleAccessKey != "" {
		cp.CattleAccessKey = redacted
	}
	if cp.CattleSecretKey != "" {
		cp.CattleSecretKey = redacted
	}
	if cp.RedisPassword != "" {
		cp.RedisPassword = redacted
	}
	if cp.RedisUser != "" {
		cp.RedisUser = redacted
	}
	return cp
}

// readFile loads a flat YAML mapping of setting names to values, ex:
//
//	DOMAIN: example.org
//	LBSYNC_RESYNC_INTERVAL: 10m
func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	values := make(map[string]string, len(raw))
	for key, node := range raw {
		if secretKeys[key] {
			return nil, fmt.Errorf("config file %s: %s must be set in the environment", path, key)
		}
		if node.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("config file %s: %s must be a scalar", path, key)
		}
		values[key] = node.Value
	}
	return values, nil
}

// helpers
func (s source) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return s.file[key]
}

func (s source) getenv(key, def string) string {
	if v := s.lookup(key); v != "" {
		return v
	}
	return def
}

func (s source) requireEnv(key string) string {
	v := s.lookup(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func (s source) getenvInt(key string, def int) int {
	if v := s.lookup(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func (s source) mustPort(key string, def int) int {
	v := s.lookup(key)
	if v == "" {
		return def
	}
	p, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || p < 1 || p > 65535 {
		panic(fmt.Sprintf("❌ FATAL: Invalid port value for %s: %s", key, v))
	}
	return p
}

func (s source) mustBool(key string, def bool) bool {
	if v := s.lookup(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func (s source) mustDuration(key string, def time.Duration) time.Duration {
	if v := s.lookup(key); v != "" {
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
