// Package session binds fingerprints, proxies, and remote tabs into live
// browsing sessions, and pools them under a configurable capacity policy.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thierry-dev-pro/clawd-ORACLE/internal/automation"
	"github.com/thierry-dev-pro/clawd-ORACLE/internal/fingerprint"
	"github.com/thierry-dev-pro/clawd-ORACLE/internal/metrics"
	"github.com/thierry-dev-pro/clawd-ORACLE/internal/proxy"
	"github.com/thierry-dev-pro/clawd-ORACLE/internal/types"
)

type state int

const (
	stateNew state = iota
	stateStarted
	stateClosed
)

// Session binds one fingerprint, one optional proxy, and one remote tab.
// Its lifecycle is New → Started → Closed; Closed is terminal.
//
// Within one key the owner must issue operations sequentially; the session
// mutex protects against accidental concurrent use but provides no ordering.
type Session struct {
	key    string
	userID string

	fingerprints *fingerprint.Manager
	proxies      *proxy.Rotator
	client       *automation.Client

	// mu serializes operations and is held across remote calls. infoMu
	// guards the identity fields below for the read accessors, so pool
	// bookkeeping never waits on an in-flight remote call; it is only held
	// for field access, never across I/O. Mutators hold both.
	mu     sync.Mutex
	infoMu sync.Mutex
	state  state
	tabID  string
	fp     *fingerprint.Fingerprint
	proxy  string
	url    string

	createdAt    time.Time
	lastActivity atomic.Int64 // unix nanos
	lastRotation atomic.Int64 // unix nanos
}

// New creates an unstarted session for key. The dependencies are shared with
// the owning pool.
func New(key, userID string, fingerprints *fingerprint.Manager, proxies *proxy.Rotator, client *automation.Client) *Session {
	now := time.Now()
	s := &Session{
		key:          key,
		userID:       userID,
		fingerprints: fingerprints,
		proxies:      proxies,
		client:       client,
		createdAt:    now,
	}
	s.lastActivity.Store(now.UnixNano())
	s.lastRotation.Store(now.UnixNano())
	return s
}

// Start provisions a remote tab at url and binds a fresh fingerprint to the
// session. Empty browser, os, or timezone draw random values. When useProxy is
// true the next proxy in rotation is drawn; an empty proxy pool is not an
// error. On failure the session stays unstarted and nothing is bound.
func (s *Session) Start(ctx context.Context, url string, browser fingerprint.Browser, osys fingerprint.OS, timezone string, useProxy bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateStarted:
		return types.ErrSessionAlreadyStarted
	case stateClosed:
		return types.ErrSessionClosed
	}

	if browser == "" {
		browser = s.fingerprints.RandomBrowser()
	}
	if osys == "" {
		osys = s.fingerprints.RandomOS()
	}
	if timezone == "" {
		timezone = s.fingerprints.RandomTimezone()
	}

	var proxyURL string
	if useProxy {
		proxyURL, _ = s.proxies.Next()
	}

	tabID, err := s.client.CreateTab(ctx, s.userID, s.key, url, proxyURL)
	if err != nil {
		return &types.ProvisionError{SessionKey: s.key, Err: err}
	}

	s.infoMu.Lock()
	s.fp = s.fingerprints.Generate(s.key, browser, osys, timezone)
	s.proxy = proxyURL
	s.tabID = tabID
	s.url = url
	s.state = stateStarted
	s.infoMu.Unlock()
	now := time.Now()
	s.lastActivity.Store(now.UnixNano())
	s.lastRotation.Store(now.UnixNano())

	log.Info().
		Str("session_key", s.key).
		Str("tab_id", tabID).
		Str("browser", string(browser)).
		Str("os", string(osys)).
		Str("proxy", proxyURL).
		Msg("Session started")

	return nil
}

// GetSnapshot fetches the current page snapshot and bumps last-activity.
// Requires a started session.
func (s *Session) GetSnapshot(ctx context.Context) (*automation.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireStarted(); err != nil {
		return nil, err
	}

	snap, err := s.client.GetSnapshot(ctx, s.tabID, s.userID)
	if err != nil {
		return nil, err
	}
	s.lastActivity.Store(time.Now().UnixNano())
	return snap, nil
}

// Click clicks the element identified by ref. Single attempt, never retried.
func (s *Session) Click(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireStarted(); err != nil {
		return err
	}
	if err := s.client.Click(ctx, s.tabID, s.userID, ref); err != nil {
		return err
	}
	s.lastActivity.Store(time.Now().UnixNano())
	return nil
}

// TypeText types text into the element identified by ref. Single attempt.
func (s *Session) TypeText(ctx context.Context, ref, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireStarted(); err != nil {
		return err
	}
	if err := s.client.TypeText(ctx, s.tabID, s.userID, ref, text); err != nil {
		return err
	}
	s.lastActivity.Store(time.Now().UnixNano())
	return nil
}

// PressKey sends a keyboard key press to the tab. Single attempt.
func (s *Session) PressKey(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireStarted(); err != nil {
		return err
	}
	if err := s.client.PressKey(ctx, s.tabID, s.userID, key); err != nil {
		return err
	}
	s.lastActivity.Store(time.Now().UnixNano())
	return nil
}

// RotateFingerprint replaces the session's identity in place: it provisions a
// new tab at the session's start URL first, and only after that succeeds
// closes the old tab and swaps in a new fingerprint. rotateProxy draws the
// next proxy in rotation; otherwise the current proxy is kept. On failure the
// session keeps its current live tab and identity.
func (s *Session) RotateFingerprint(ctx context.Context, browser fingerprint.Browser, osys fingerprint.OS, rotateProxy bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireStarted(); err != nil {
		return err
	}

	proxyURL := s.proxy
	if rotateProxy {
		proxyURL, _ = s.proxies.Next()
	}

	newTabID, err := s.client.CreateTab(ctx, s.userID, s.key, s.url, proxyURL)
	if err != nil {
		return &types.ProvisionError{SessionKey: s.key, Err: err}
	}

	oldTabID := s.tabID
	s.client.CloseTab(ctx, oldTabID)

	rotated := s.fingerprints.Rotate([]string{s.key}, browser, osys)
	s.infoMu.Lock()
	s.fp = rotated[s.key]
	s.proxy = proxyURL
	s.tabID = newTabID
	s.infoMu.Unlock()
	now := time.Now()
	s.lastActivity.Store(now.UnixNano())
	s.lastRotation.Store(now.UnixNano())

	metrics.SessionsRotated.Inc()
	log.Info().
		Str("session_key", s.key).
		Str("old_tab_id", oldTabID).
		Str("new_tab_id", newTabID).
		Str("proxy", proxyURL).
		Msg("Session rotated")

	return nil
}

// Close releases the remote tab best-effort and marks the session closed.
// Safe to call multiple times and on unstarted sessions.
func (s *Session) Close(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == stateClosed {
		return
	}
	if s.state == stateStarted && s.tabID != "" {
		s.client.CloseTab(ctx, s.tabID)
	}
	s.infoMu.Lock()
	s.state = stateClosed
	s.tabID = ""
	s.infoMu.Unlock()

	log.Debug().Str("session_key", s.key).Msg("Session closed")
}

func (s *Session) requireStarted() error {
	switch s.state {
	case stateNew:
		return types.ErrSessionNotStarted
	case stateClosed:
		return types.ErrSessionClosed
	}
	return nil
}

// Key returns the session key.
func (s *Session) Key() string { return s.key }

// Started reports whether the session is live. Like the other accessors it
// takes only infoMu and never waits behind an in-flight remote call.
func (s *Session) Started() bool {
	s.infoMu.Lock()
	defer s.infoMu.Unlock()
	return s.state == stateStarted
}

// TabID returns the current remote tab handle, empty when not started.
func (s *Session) TabID() string {
	s.infoMu.Lock()
	defer s.infoMu.Unlock()
	return s.tabID
}

// Fingerprint returns the bound fingerprint, nil when not started.
func (s *Session) Fingerprint() *fingerprint.Fingerprint {
	s.infoMu.Lock()
	defer s.infoMu.Unlock()
	return s.fp
}

// Proxy returns the bound proxy URL, empty when none is in use.
func (s *Session) Proxy() string {
	s.infoMu.Lock()
	defer s.infoMu.Unlock()
	return s.proxy
}

// Duration reports how long the session has existed.
func (s *Session) Duration() time.Duration {
	return time.Since(s.createdAt)
}

// LastActivity reports the time of the last successful remote operation.
func (s *Session) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// LastRotation reports when the identity was last rotated (or the session
// started).
func (s *Session) LastRotation() time.Time {
	return time.Unix(0, s.lastRotation.Load())
}
