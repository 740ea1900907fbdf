package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/thierry-dev-pro/clawd-ORACLE/internal/metrics"
)

// Manager generates, stores, rotates, and expires per-session-key fingerprints.
// All methods are safe for concurrent use. The random source is seedable so
// tests can reproduce generation; the manager mutex also serializes access to
// it because math/rand.Rand is not goroutine-safe.
type Manager struct {
	mu           sync.Mutex
	rng          *rand.Rand
	fingerprints map[string]*Fingerprint
}

// NewManager creates a fingerprint manager. A seed of 0 selects a
// time-based seed; any other value makes generation reproducible.
func NewManager(seed int64) *Manager {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Manager{
		rng:          rand.New(rand.NewSource(seed)),
		fingerprints: make(map[string]*Fingerprint),
	}
}

// Generate creates a new fingerprint for key, unconditionally overwriting any
// prior entry. Empty arguments default to Chrome on Windows in New York. It is
// total: an unrecognized (browser, os) pair falls back to a generic user agent
// instead of failing.
func (m *Manager) Generate(key string, browser Browser, os OS, timezone string) *Fingerprint {
	if browser == "" {
		browser = Chrome
	}
	if os == "" {
		os = Windows
	}
	if timezone == "" {
		timezone = "America/New_York"
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	fp := m.generateLocked(key, browser, os, timezone)

	log.Debug().
		Str("session_key", key).
		Str("browser", string(browser)).
		Str("os", string(os)).
		Str("timezone", timezone).
		Str("canvas", fp.CanvasFingerprint).
		Msg("Generated fingerprint")

	return fp
}

// generateLocked builds and stores a fingerprint. Must be called with m.mu held.
func (m *Manager) generateLocked(key string, browser Browser, os OS, timezone string) *Fingerprint {
	now := time.Now()

	touchPoints := 0
	if os == IPhone || os == Android {
		touchPoints = 10
	}

	pair := webglPairs[m.rng.Intn(len(webglPairs))]

	fp := &Fingerprint{
		HardwareConcurrency: 4 + m.rng.Intn(13), // 4-16 inclusive
		DeviceMemory:        deviceMemories[m.rng.Intn(len(deviceMemories))],
		MaxTouchPoints:      touchPoints,

		Browser:         browser,
		Platform:        os,
		PlatformVersion: platformVersionFor(os),

		UserAgent:     m.userAgentLocked(browser, os),
		BrowserVendor: browserVendorFor(browser),

		ScreenWidth:      screenWidths[m.rng.Intn(len(screenWidths))],
		ScreenHeight:     screenHeights[m.rng.Intn(len(screenHeights))],
		ScreenColorDepth: colorDepths[m.rng.Intn(len(colorDepths))],

		Timezone:       timezone,
		TimezoneOffset: offsetFor(timezone),
		Language:       languageFor(timezone),
		Languages:      languagesFor(timezone),

		WebGLVendor:   pair.vendor,
		WebGLRenderer: pair.renderer,

		CanvasFingerprint: m.canvasHashLocked(browser, os, timezone),

		DoNotTrack: m.doNotTrackLocked(),
		Plugins:    browserPlugins[browser],

		CreatedAt: now,
		LastUsed:  now,
	}

	m.fingerprints[key] = fp
	metrics.FingerprintsGenerated.Inc()

	return fp
}

// Get returns the fingerprint for key, bumping its use count and last-used
// time as a side effect. A missing key is not an error.
func (m *Manager) Get(key string) (*Fingerprint, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fp, ok := m.fingerprints[key]
	if !ok {
		return nil, false
	}
	fp.LastUsed = time.Now()
	fp.UseCount++
	return fp, true
}

// Rotate generates a replacement fingerprint for each key. When browser or os
// is empty, each key draws them uniformly at random; the timezone is always
// drawn at random from the fixed rotation set. Entries are replaced, never
// merged.
func (m *Manager) Rotate(keys []string, newBrowser Browser, newOS OS) map[string]*Fingerprint {
	m.mu.Lock()
	defer m.mu.Unlock()

	results := make(map[string]*Fingerprint, len(keys))
	for _, key := range keys {
		browser := newBrowser
		if browser == "" {
			browser = allBrowsers[m.rng.Intn(len(allBrowsers))]
		}
		os := newOS
		if os == "" {
			os = allOS[m.rng.Intn(len(allOS))]
		}
		timezone := timezones[m.rng.Intn(len(timezones))]

		results[key] = m.generateLocked(key, browser, os, timezone)
	}

	log.Info().Int("count", len(keys)).Msg("Rotated fingerprints")

	return results
}

// CleanupOld deletes fingerprints whose last use is older than maxAge and
// returns the number removed.
func (m *Manager) CleanupOld(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	threshold := time.Now().Add(-maxAge)
	removed := 0
	for key, fp := range m.fingerprints {
		if fp.LastUsed.Before(threshold) {
			delete(m.fingerprints, key)
			removed++
		}
	}

	if removed > 0 {
		log.Info().
			Int("removed", removed).
			Int("remaining", len(m.fingerprints)).
			Msg("Cleaned up old fingerprints")
	}

	return removed
}

// Count returns the number of stored fingerprints.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.fingerprints)
}

// Statistics returns aggregate counts. The zero-valued Stats is returned when
// the manager is empty.
func (m *Manager) Statistics() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.fingerprints) == 0 {
		return Stats{}
	}

	browsers := make(map[Browser]struct{})
	osTypes := make(map[OS]struct{})
	var totalUse int64

	for _, fp := range m.fingerprints {
		browsers[fp.Browser] = struct{}{}
		osTypes[fp.Platform] = struct{}{}
		totalUse += fp.UseCount
	}

	stats := Stats{
		Total:          len(m.fingerprints),
		AvgUseCount:    float64(totalUse) / float64(len(m.fingerprints)),
		UniqueBrowsers: len(browsers),
		UniqueOS:       len(osTypes),
	}
	for b := range browsers {
		stats.Browsers = append(stats.Browsers, string(b))
	}
	for o := range osTypes {
		stats.OSTypes = append(stats.OSTypes, string(o))
	}

	return stats
}

// RandomBrowser returns a uniformly random supported browser.
func (m *Manager) RandomBrowser() Browser {
	m.mu.Lock()
	defer m.mu.Unlock()
	return allBrowsers[m.rng.Intn(len(allBrowsers))]
}

// RandomOS returns a uniformly random supported platform.
func (m *Manager) RandomOS() OS {
	m.mu.Lock()
	defer m.mu.Unlock()
	return allOS[m.rng.Intn(len(allOS))]
}

// RandomTimezone returns a uniformly random timezone from the rotation set.
func (m *Manager) RandomTimezone() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return timezones[m.rng.Intn(len(timezones))]
}

// userAgentLocked picks a user agent for the (browser, os) pair, falling back
// to the generic agent for unknown pairs. Must be called with m.mu held.
func (m *Manager) userAgentLocked(browser Browser, os OS) string {
	agents, ok := userAgents[uaKey{browser, os}]
	if !ok || len(agents) == 0 {
		return genericUserAgent
	}
	return agents[m.rng.Intn(len(agents))]
}

// canvasHashLocked derives a 16-hex-char canvas hash from the identity tuple
// plus a fresh nonce, making collisions between live fingerprints negligible.
// Must be called with m.mu held.
func (m *Manager) canvasHashLocked(browser Browser, os OS, timezone string) string {
	seed := fmt.Sprintf("%s|%s|%s|%s|%d", os, browser, timezone, uuid.NewString(), m.rng.Int63())
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])[:16]
}

// doNotTrackLocked picks one of the three DNT states: unset, on, off.
// Must be called with m.mu held.
func (m *Manager) doNotTrackLocked() *bool {
	switch m.rng.Intn(3) {
	case 0:
		return nil
	case 1:
		v := true
		return &v
	default:
		v := false
		return &v
	}
}

func browserVendorFor(browser Browser) string {
	if v, ok := browserVendors[browser]; ok {
		return v
	}
	return "Google Inc."
}

func platformVersionFor(os OS) string {
	if v, ok := platformVersions[os]; ok {
		return v
	}
	return "10.0"
}
