package fingerprint

import "strings"

// Static option tables backing fingerprint generation. User agents are keyed
// by (browser, os); locale attributes are keyed by timezone so that two
// fingerprints sharing a timezone always agree on offset and language.

type uaKey struct {
	browser Browser
	os      OS
}

// genericUserAgent is the fallback for unrecognized (browser, os) pairs.
const genericUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"

var userAgents = map[uaKey][]string{
	{Chrome, Windows}: {
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
	},
	{Chrome, MacOS}: {
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	},
	{Chrome, Linux}: {
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	},
	{Firefox, Windows}: {
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:120.0) Gecko/20100101 Firefox/120.0",
	},
	{Firefox, MacOS}: {
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:121.0) Gecko/20100101 Firefox/121.0",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:120.0) Gecko/20100101 Firefox/120.0",
	},
	{Firefox, Linux}: {
		"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
	},
	{Safari, MacOS}: {
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
	},
	{Safari, IPhone}: {
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1",
	},
	{Chrome, Android}: {
		"Mozilla/5.0 (Linux; Android 14) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
	},
	{Edge, Windows}: {
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
	},
}

var browserVendors = map[Browser]string{
	Chrome:  "Google Inc.",
	Firefox: "Mozilla",
	Safari:  "Apple Inc.",
	Edge:    "Microsoft Inc.",
}

var platformVersions = map[OS]string{
	Windows: "10.0",
	MacOS:   "10.15.7",
	Linux:   "5.10.0",
	IPhone:  "17.1",
	Android: "14.0",
}

// webglPair couples a vendor with renderers that physically ship together.
// Vendor and renderer are always drawn as a pair, never mixed.
type webglPair struct {
	vendor   string
	renderer string
}

var webglPairs = []webglPair{
	{"Google Inc.", "ANGLE (Intel HD Graphics 630)"},
	{"Apple Inc.", "Apple M1"},
	{"Intel", "Intel Iris Graphics"},
	{"NVIDIA", "NVIDIA GeForce GTX 1080"},
	{"AMD", "AMD Radeon RX 5700"},
}

// timezones is the fixed rotation set used when no timezone is specified.
var timezones = []string{
	"America/New_York",
	"America/Chicago",
	"America/Denver",
	"America/Los_Angeles",
	"Europe/London",
	"Europe/Paris",
	"Australia/Sydney",
	"Asia/Tokyo",
	"Asia/Kolkata",
}

// timezoneOffsets maps IANA timezone ids to minute offsets from UTC.
// Deterministic: never randomized.
var timezoneOffsets = map[string]int{
	"America/New_York":    -300,
	"America/Chicago":     -360,
	"America/Denver":      -420,
	"America/Los_Angeles": -480,
	"Europe/London":       0,
	"Europe/Paris":        60,
	"Asia/Tokyo":          540,
	"Asia/Kolkata":        330,
	"Australia/Sydney":    600,
}

// timezoneLanguages maps IANA timezone ids to primary languages.
// Deterministic: never randomized.
var timezoneLanguages = map[string]string{
	"America/New_York":    "en-US",
	"America/Chicago":     "en-US",
	"America/Denver":      "en-US",
	"America/Los_Angeles": "en-US",
	"Europe/London":       "en-GB",
	"Europe/Paris":        "fr-FR",
	"Asia/Tokyo":          "ja-JP",
	"Asia/Kolkata":        "hi-IN",
	"Australia/Sydney":    "en-AU",
}

var screenWidths = []int{1920, 2560, 1440, 1366, 1280}
var screenHeights = []int{1080, 1440, 900, 768, 720}
var colorDepths = []int{24, 32}
var deviceMemories = []int{4, 8, 16, 32}

var browserPlugins = map[Browser][]string{
	Chrome: {
		"Chrome PDF Plugin",
		"Chrome PDF Viewer",
		"Native Client Executable",
	},
	Edge: {
		"Chrome PDF Plugin",
		"Chrome PDF Viewer",
	},
	Firefox: {"Shockwave Flash"},
	Safari:  {"Java Plug-in 2 for NPAPI"},
}

var allBrowsers = []Browser{Chrome, Firefox, Safari, Edge}
var allOS = []OS{Windows, MacOS, Linux, IPhone, Android}

// offsetFor returns the deterministic minute offset for a timezone.
// Unknown timezones map to 0.
func offsetFor(timezone string) int {
	return timezoneOffsets[timezone]
}

// languageFor returns the deterministic primary language for a timezone.
// Unknown timezones map to en-US.
func languageFor(timezone string) string {
	if lang, ok := timezoneLanguages[timezone]; ok {
		return lang
	}
	return "en-US"
}

// languagesFor returns the accepted-language list for a timezone: the primary
// language plus an English fallback. English locales fall back to en-US,
// everything else to en-GB.
func languagesFor(timezone string) []string {
	lang := languageFor(timezone)
	en := "en-GB"
	if strings.HasPrefix(lang, "en") {
		en = "en-US"
	}
	if lang == en {
		return []string{lang}
	}
	return []string{lang, en}
}
