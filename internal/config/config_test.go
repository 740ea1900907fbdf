package config

import (
	"testing"
	"time"
)

// clearEnv unsets every variable Load reads so defaults are exercised.
func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"HOST", "PORT", "AUTOMATION_URL", "AUTOMATION_USER_ID",
		"CALL_TIMEOUT", "MAX_RETRIES", "RETRY_BACKOFF_BASE",
		"PROXY_LIST", "PROXY_FILE", "PROXY_HOT_RELOAD",
		"POOL_SIZE", "CAPACITY_POLICY", "ROTATION_INTERVAL",
		"FINGERPRINT_SEED", "LOG_LEVEL",
		"PROMETHEUS_ENABLED", "PROMETHEUS_PORT",
	}
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.Host != "127.0.0.1" {
		t.Errorf("Expected host 127.0.0.1, got %q", cfg.Host)
	}
	if cfg.Port != 9380 {
		t.Errorf("Expected port 9380, got %d", cfg.Port)
	}
	if cfg.AutomationURL != "http://localhost:9377" {
		t.Errorf("Expected default automation URL, got %q", cfg.AutomationURL)
	}
	if cfg.CallTimeout != 30*time.Second {
		t.Errorf("Expected 30s call timeout, got %v", cfg.CallTimeout)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("Expected 3 retries, got %d", cfg.MaxRetries)
	}
	if cfg.PoolSize != 10 {
		t.Errorf("Expected pool size 10, got %d", cfg.PoolSize)
	}
	if cfg.CapacityPolicy != CapacityAdvisory {
		t.Errorf("Expected advisory policy, got %q", cfg.CapacityPolicy)
	}
	if cfg.RotationInterval != 30*time.Minute {
		t.Errorf("Expected 30m rotation interval, got %v", cfg.RotationInterval)
	}
	if cfg.RandSeed != 0 {
		t.Errorf("Expected time-based seed (0), got %d", cfg.RandSeed)
	}
	if cfg.HasProxies() {
		t.Error("Expected no proxies by default")
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("AUTOMATION_URL", "http://daemon:9000")
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("PROXY_LIST", "http://a:1, http://b:1")
	t.Setenv("CAPACITY_POLICY", "evict")
	t.Setenv("FINGERPRINT_SEED", "12345")
	t.Setenv("ROTATION_INTERVAL", "10m")

	cfg := Load()

	if cfg.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Port)
	}
	if cfg.AutomationURL != "http://daemon:9000" {
		t.Errorf("Expected custom automation URL, got %q", cfg.AutomationURL)
	}
	if cfg.MaxRetries != 5 {
		t.Errorf("Expected 5 retries, got %d", cfg.MaxRetries)
	}
	if len(cfg.ProxyList) != 2 || cfg.ProxyList[1] != "http://b:1" {
		t.Errorf("Expected trimmed proxy list, got %v", cfg.ProxyList)
	}
	if cfg.CapacityPolicy != CapacityEvict {
		t.Errorf("Expected evict policy, got %q", cfg.CapacityPolicy)
	}
	if cfg.RandSeed != 12345 {
		t.Errorf("Expected seed 12345, got %d", cfg.RandSeed)
	}
	if cfg.RotationInterval != 10*time.Minute {
		t.Errorf("Expected 10m rotation interval, got %v", cfg.RotationInterval)
	}
}

func TestValidateClampsInvalidValues(t *testing.T) {
	cfg := &Config{
		Port:             -1,
		AutomationURL:    "daemon:9000",
		UserID:           "",
		CallTimeout:      time.Millisecond,
		MaxRetries:       0,
		RetryBackoffBase: time.Nanosecond,
		PoolSize:         0,
		CapacityPolicy:   "bogus",
		RotationInterval: time.Second,
		LogLevel:         "loud",
	}

	cfg.Validate()

	if cfg.Port != 9380 {
		t.Errorf("Expected port clamped to 9380, got %d", cfg.Port)
	}
	if cfg.AutomationURL != "http://daemon:9000" {
		t.Errorf("Expected scheme prepended, got %q", cfg.AutomationURL)
	}
	if cfg.UserID != "oracle" {
		t.Errorf("Expected default user id, got %q", cfg.UserID)
	}
	if cfg.CallTimeout != 30*time.Second {
		t.Errorf("Expected call timeout clamped to 30s, got %v", cfg.CallTimeout)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("Expected retries clamped to 3, got %d", cfg.MaxRetries)
	}
	if cfg.RetryBackoffBase != time.Second {
		t.Errorf("Expected backoff base clamped to 1s, got %v", cfg.RetryBackoffBase)
	}
	if cfg.PoolSize != 10 {
		t.Errorf("Expected pool size clamped to 10, got %d", cfg.PoolSize)
	}
	if cfg.CapacityPolicy != CapacityAdvisory {
		t.Errorf("Expected fallback to advisory, got %q", cfg.CapacityPolicy)
	}
	if cfg.RotationInterval != time.Minute {
		t.Errorf("Expected rotation interval raised to 1m, got %v", cfg.RotationInterval)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected log level info, got %q", cfg.LogLevel)
	}
}

func TestValidateClampsUpperBounds(t *testing.T) {
	cfg := &Config{
		Port:             9380,
		AutomationURL:    "http://localhost:9377",
		UserID:           "oracle",
		CallTimeout:      time.Hour,
		MaxRetries:       50,
		RetryBackoffBase: time.Minute,
		PoolSize:         100000,
		CapacityPolicy:   CapacityReject,
		RotationInterval: 48 * time.Hour,
		LogLevel:         "info",
	}

	cfg.Validate()

	if cfg.CallTimeout != 10*time.Minute {
		t.Errorf("Expected call timeout capped to 10m, got %v", cfg.CallTimeout)
	}
	if cfg.MaxRetries != 10 {
		t.Errorf("Expected retries capped to 10, got %d", cfg.MaxRetries)
	}
	if cfg.RetryBackoffBase != 30*time.Second {
		t.Errorf("Expected backoff base capped to 30s, got %v", cfg.RetryBackoffBase)
	}
	if cfg.PoolSize != 1000 {
		t.Errorf("Expected pool size capped to 1000, got %d", cfg.PoolSize)
	}
	if cfg.RotationInterval != 24*time.Hour {
		t.Errorf("Expected rotation interval capped to 24h, got %v", cfg.RotationInterval)
	}
}

func TestValidateDropsInvalidProxies(t *testing.T) {
	cfg := &Config{
		Port:             9380,
		AutomationURL:    "http://localhost:9377",
		UserID:           "oracle",
		CallTimeout:      30 * time.Second,
		MaxRetries:       3,
		RetryBackoffBase: time.Second,
		PoolSize:         10,
		CapacityPolicy:   CapacityAdvisory,
		RotationInterval: 30 * time.Minute,
		LogLevel:         "info",
		ProxyList: []string{
			"http://good:8080",
			"no-scheme-proxy",
			"ftp://bad-scheme:21",
			"socks5://also-good:1080",
		},
	}

	cfg.Validate()

	if len(cfg.ProxyList) != 2 {
		t.Fatalf("Expected 2 surviving proxies, got %v", cfg.ProxyList)
	}
	if cfg.ProxyList[0] != "http://good:8080" || cfg.ProxyList[1] != "socks5://also-good:1080" {
		t.Errorf("Unexpected surviving proxies: %v", cfg.ProxyList)
	}
}

func TestValidateProxyFileTraversal(t *testing.T) {
	cfg := &Config{
		Port:             9380,
		AutomationURL:    "http://localhost:9377",
		UserID:           "oracle",
		CallTimeout:      30 * time.Second,
		MaxRetries:       3,
		RetryBackoffBase: time.Second,
		PoolSize:         10,
		CapacityPolicy:   CapacityAdvisory,
		RotationInterval: 30 * time.Minute,
		LogLevel:         "info",
		ProxyFile:        "../../etc/proxies.yaml",
		ProxyHotReload:   true,
	}

	cfg.Validate()

	if cfg.ProxyFile != "" {
		t.Errorf("Expected traversal path to be rejected, got %q", cfg.ProxyFile)
	}
	if cfg.ProxyHotReload {
		t.Error("Expected hot-reload disabled when no proxy file remains")
	}
}

func TestValidatePortConflict(t *testing.T) {
	cfg := &Config{
		Port:              9380,
		AutomationURL:     "http://localhost:9377",
		UserID:            "oracle",
		CallTimeout:       30 * time.Second,
		MaxRetries:        3,
		RetryBackoffBase:  time.Second,
		PoolSize:          10,
		CapacityPolicy:    CapacityAdvisory,
		RotationInterval:  30 * time.Minute,
		LogLevel:          "info",
		PrometheusEnabled: true,
		PrometheusPort:    9380,
	}

	cfg.Validate()

	if cfg.PrometheusEnabled {
		t.Error("Expected metrics server disabled on port conflict")
	}
}
