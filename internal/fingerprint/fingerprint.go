// Package fingerprint generates and manages synthetic browser fingerprints.
// Each fingerprint is an internally consistent tuple of browser, OS, hardware,
// and locale attributes presented to remote sites to mimic one distinct real
// device. Fingerprints are keyed by session and replaced wholesale on rotation.
package fingerprint

import "time"

// Browser identifies a browser family.
type Browser string

// Supported browsers.
const (
	Chrome  Browser = "Chrome"
	Firefox Browser = "Firefox"
	Safari  Browser = "Safari"
	Edge    Browser = "Edge"
)

// OS identifies a platform as reported by navigator.platform.
type OS string

// Supported platforms.
const (
	Windows OS = "Win32"
	MacOS   OS = "MacIntel"
	Linux   OS = "Linux x86_64"
	IPhone  OS = "iPhone"
	Android OS = "Android"
)

// Fingerprint is a consistent set of attributes presented to a remote site.
// It is a value object: rotation replaces the whole fingerprint, only UseCount
// and LastUsed are mutated in place (by Manager.Get).
//
// Invariants:
//   - UserAgent contains the browser name and matches Platform.
//   - TimezoneOffset and Language are a deterministic function of Timezone.
//   - WebGLVendor and WebGLRenderer are always a matched pair.
//   - CanvasFingerprint is effectively unique per live fingerprint.
type Fingerprint struct {
	// Hardware
	HardwareConcurrency int `json:"hardwareConcurrency"` // CPU cores: 4-16
	DeviceMemory        int `json:"deviceMemory"`        // RAM in GB: 4, 8, 16, or 32
	MaxTouchPoints      int `json:"maxTouchPoints"`      // 0 (desktop) or 10 (mobile)

	// Platform
	Browser         Browser `json:"browser"`
	Platform        OS      `json:"platform"`
	PlatformVersion string  `json:"platformVersion"`

	// Browser identity
	UserAgent     string `json:"userAgent"`
	BrowserVendor string `json:"browserVendor"`

	// Screen
	ScreenWidth      int `json:"screenWidth"`
	ScreenHeight     int `json:"screenHeight"`
	ScreenColorDepth int `json:"screenColorDepth"` // 24 or 32

	// Locale - offset and language are derived from the timezone, never randomized
	Timezone       string   `json:"timezone"`       // IANA id
	TimezoneOffset int      `json:"timezoneOffset"` // minutes from UTC
	Language       string   `json:"language"`
	Languages      []string `json:"languages"`

	// WebGL
	WebGLVendor   string `json:"webglVendor"`
	WebGLRenderer string `json:"webglRenderer"`

	// Canvas
	CanvasFingerprint string `json:"canvasFingerprint"` // 16 hex chars

	// Features
	DoNotTrack *bool    `json:"doNotTrack"` // nil = unset
	Plugins    []string `json:"plugins"`

	// Bookkeeping
	CreatedAt time.Time `json:"createdAt"`
	LastUsed  time.Time `json:"lastUsed"`
	UseCount  int64     `json:"useCount"`
}

// Stats is the aggregate view returned by Manager.Statistics.
// The zero value is returned for an empty manager.
type Stats struct {
	Total          int      `json:"total"`
	AvgUseCount    float64  `json:"avgUseCount"`
	UniqueBrowsers int      `json:"uniqueBrowsers"`
	UniqueOS       int      `json:"uniqueOs"`
	Browsers       []string `json:"browsers,omitempty"`
	OSTypes        []string `json:"osTypes,omitempty"`
}
