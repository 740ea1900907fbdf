// Package config provides application configuration management.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Configuration upper bounds to prevent resource exhaustion.
const (
	maxPoolSize         = 1000
	maxCallTimeout      = 10 * time.Minute
	maxRetryAttempts    = 10
	maxBackoffBase      = 30 * time.Second
	minRotationInterval = 1 * time.Minute
	maxRotationInterval = 24 * time.Hour
)

// Capacity policies for the session pool.
// advisory admits every key and only logs when over capacity, reject refuses
// new keys at capacity, evict closes the least recently active session to
// make room.
const (
	CapacityAdvisory = "advisory"
	CapacityReject   = "reject"
	CapacityEvict    = "evict"
)

// Config holds all application configuration.
// Configuration is loaded from environment variables at startup.
type Config struct {
	// Server settings (stats/health endpoint)
	Host string
	Port int

	// Automation daemon
	AutomationURL string
	UserID        string // isolation id sent with every daemon call

	// Remote call resilience
	CallTimeout      time.Duration
	MaxRetries       int
	RetryBackoffBase time.Duration

	// Proxies
	ProxyList      []string // ordered; may be empty (no proxy use)
	ProxyFile      string   // optional YAML file overriding ProxyList
	ProxyHotReload bool     // watch ProxyFile for changes

	// Session pool
	PoolSize         int
	CapacityPolicy   string // advisory | reject | evict
	RotationInterval time.Duration

	// Fingerprints
	RandSeed int64 // 0 = time-seeded

	// Logging
	LogLevel string

	// Metrics
	PrometheusEnabled bool
	PrometheusPort    int
}

// Load loads configuration from environment variables.
// Returns a Config with values from environment or sensible defaults.
func Load() *Config {
	return &Config{
		// Server - default to localhost for security (prevents accidental exposure)
		Host: getEnvString("HOST", "127.0.0.1"),
		Port: getEnvInt("PORT", 9380),

		// Automation daemon
		AutomationURL: getEnvString("AUTOMATION_URL", "http://localhost:9377"),
		UserID:        getEnvString("AUTOMATION_USER_ID", "oracle"),

		// Remote call resilience
		CallTimeout:      getEnvDuration("CALL_TIMEOUT", 30*time.Second),
		MaxRetries:       getEnvInt("MAX_RETRIES", 3),
		RetryBackoffBase: getEnvDuration("RETRY_BACKOFF_BASE", 1*time.Second),

		// Proxies
		ProxyList:      getEnvStringSlice("PROXY_LIST", nil),
		ProxyFile:      getEnvString("PROXY_FILE", ""),
		ProxyHotReload: getEnvBool("PROXY_HOT_RELOAD", false),

		// Session pool
		PoolSize:         getEnvInt("POOL_SIZE", 10),
		CapacityPolicy:   getEnvString("CAPACITY_POLICY", CapacityAdvisory),
		RotationInterval: getEnvDuration("ROTATION_INTERVAL", 30*time.Minute),

		// Fingerprints
		RandSeed: getEnvInt64("FINGERPRINT_SEED", 0),

		// Logging
		LogLevel: getEnvString("LOG_LEVEL", "info"),

		// Metrics
		PrometheusEnabled: getEnvBool("PROMETHEUS_ENABLED", false),
		PrometheusPort:    getEnvInt("PROMETHEUS_PORT", 9381),
	}
}

// HasProxies returns true if at least one proxy source is configured.
func (c *Config) HasProxies() bool {
	return len(c.ProxyList) > 0 || c.ProxyFile != ""
}

// Validate checks configuration values and logs warnings for invalid values.
// Invalid values are corrected to sensible defaults.
func (c *Config) Validate() {
	// Port validation - allow 0 for system-assigned ports
	if c.Port < 0 || c.Port > 65535 {
		log.Warn().Int("port", c.Port).Msg("Invalid port, using default 9380")
		c.Port = 9380
	}

	// Automation URL validation
	if !strings.Contains(c.AutomationURL, "://") {
		log.Warn().
			Str("url", c.AutomationURL).
			Msg("AUTOMATION_URL missing scheme, assuming http://")
		c.AutomationURL = "http://" + c.AutomationURL
	}
	c.AutomationURL = strings.TrimRight(c.AutomationURL, "/")

	if c.UserID == "" {
		log.Warn().Msg("AUTOMATION_USER_ID is empty, using 'oracle'")
		c.UserID = "oracle"
	}

	// Call timeout validation with upper bound
	if c.CallTimeout < time.Second {
		log.Warn().Dur("timeout", c.CallTimeout).Msg("Call timeout too short, using 30s")
		c.CallTimeout = 30 * time.Second
	} else if c.CallTimeout > maxCallTimeout {
		log.Warn().
			Dur("timeout", c.CallTimeout).
			Dur("max", maxCallTimeout).
			Msg("Call timeout too long, capping to maximum")
		c.CallTimeout = maxCallTimeout
	}

	// Retry validation
	if c.MaxRetries < 1 {
		log.Warn().Int("retries", c.MaxRetries).Msg("Invalid max retries, using 3")
		c.MaxRetries = 3
	} else if c.MaxRetries > maxRetryAttempts {
		log.Warn().
			Int("retries", c.MaxRetries).
			Int("max", maxRetryAttempts).
			Msg("Max retries too high, capping to maximum")
		c.MaxRetries = maxRetryAttempts
	}

	if c.RetryBackoffBase < 10*time.Millisecond {
		log.Warn().Dur("base", c.RetryBackoffBase).Msg("Backoff base too short, using 1s")
		c.RetryBackoffBase = 1 * time.Second
	} else if c.RetryBackoffBase > maxBackoffBase {
		log.Warn().
			Dur("base", c.RetryBackoffBase).
			Dur("max", maxBackoffBase).
			Msg("Backoff base too long, capping to maximum")
		c.RetryBackoffBase = maxBackoffBase
	}

	// Pool size validation with upper bound
	if c.PoolSize < 1 {
		log.Warn().Int("size", c.PoolSize).Msg("Invalid pool size, using default 10")
		c.PoolSize = 10
	} else if c.PoolSize > maxPoolSize {
		log.Warn().
			Int("size", c.PoolSize).
			Int("max", maxPoolSize).
			Msg("Pool size too large, capping to maximum")
		c.PoolSize = maxPoolSize
	}

	// Capacity policy validation
	switch strings.ToLower(c.CapacityPolicy) {
	case CapacityAdvisory, CapacityReject, CapacityEvict:
		c.CapacityPolicy = strings.ToLower(c.CapacityPolicy)
	default:
		log.Warn().
			Str("policy", c.CapacityPolicy).
			Msg("Invalid capacity policy, using 'advisory'")
		c.CapacityPolicy = CapacityAdvisory
	}

	// Rotation interval validation
	if c.RotationInterval < minRotationInterval {
		log.Warn().
			Dur("interval", c.RotationInterval).
			Dur("min", minRotationInterval).
			Msg("Rotation interval too short, using minimum")
		c.RotationInterval = minRotationInterval
	} else if c.RotationInterval > maxRotationInterval {
		log.Warn().
			Dur("interval", c.RotationInterval).
			Dur("max", maxRotationInterval).
			Msg("Rotation interval too long, using maximum")
		c.RotationInterval = maxRotationInterval
	}

	// Proxy URL validation. Credentials should be avoided in PROXY_LIST since
	// the list appears in statistics output.
	validSchemes := map[string]bool{"http": true, "https": true, "socks4": true, "socks5": true}
	kept := c.ProxyList[:0]
	for _, p := range c.ProxyList {
		if !strings.Contains(p, "://") {
			log.Error().
				Str("proxy", p).
				Msg("Proxy missing scheme (http://, https://, socks4://, socks5://), dropping")
			continue
		}
		scheme := strings.ToLower(strings.Split(p, "://")[0])
		if !validSchemes[scheme] {
			log.Error().
				Str("proxy", p).
				Str("scheme", scheme).
				Msg("Proxy has invalid scheme, dropping")
			continue
		}
		if strings.Contains(p, "@") {
			log.Warn().Msg("Proxy URL contains embedded credentials (@) - they will appear in statistics output")
		}
		kept = append(kept, p)
	}
	c.ProxyList = kept

	// Proxy file validation - prevent path traversal
	if c.ProxyFile != "" {
		if strings.Contains(c.ProxyFile, "..") {
			log.Error().
				Str("path", c.ProxyFile).
				Msg("ProxyFile contains path traversal sequence (..), ignoring")
			c.ProxyFile = ""
		} else if !strings.HasPrefix(c.ProxyFile, "/") && !strings.HasPrefix(c.ProxyFile, "C:") && !strings.HasPrefix(c.ProxyFile, "c:") {
			log.Warn().
				Str("path", c.ProxyFile).
				Msg("ProxyFile should be an absolute path")
		}
		if c.ProxyHotReload {
			if _, err := os.Stat(c.ProxyFile); os.IsNotExist(err) {
				log.Warn().
					Str("path", c.ProxyFile).
					Msg("ProxyFile does not exist - hot-reload will watch for file creation")
			}
		}
	}

	// Warn if hot-reload is enabled but no file is set
	if c.ProxyHotReload && c.ProxyFile == "" {
		log.Warn().Msg("PROXY_HOT_RELOAD enabled but PROXY_FILE not set - hot-reload disabled")
		c.ProxyHotReload = false
	}

	// Log level validation
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true,
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		log.Warn().Str("level", c.LogLevel).Msg("Invalid log level, using 'info'")
		c.LogLevel = "info"
	}

	// Port conflict validation
	if c.PrometheusEnabled && c.PrometheusPort == c.Port {
		log.Error().
			Int("port", c.PrometheusPort).
			Msg("PROMETHEUS_PORT conflicts with PORT, disabling metrics server")
		c.PrometheusEnabled = false
	}
}

// Helper functions for environment variable parsing

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		intValue, err := strconv.ParseInt(value, 10, 32)
		if err == nil {
			return int(intValue)
		}
		log.Warn().
			Str("key", key).
			Str("value", value).
			Err(err).
			Int("default", defaultValue).
			Msg("Invalid integer in environment variable, using default")
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
		log.Warn().
			Str("key", key).
			Str("value", value).
			Err(err).
			Int64("default", defaultValue).
			Msg("Invalid integer in environment variable, using default")
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		boolValue, err := strconv.ParseBool(value)
		if err == nil {
			return boolValue
		}
		log.Warn().
			Str("key", key).
			Str("value", value).
			Err(err).
			Bool("default", defaultValue).
			Msg("Invalid boolean in environment variable, using default")
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err == nil {
			if duration > 0 {
				return duration
			}
			log.Warn().
				Str("key", key).
				Str("value", value).
				Dur("default", defaultValue).
				Msg("Duration must be positive, using default")
			return defaultValue
		}
		log.Warn().
			Str("key", key).
			Str("value", value).
			Err(err).
			Dur("default", defaultValue).
			Msg("Invalid duration in environment variable, using default")
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
