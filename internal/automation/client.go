// Package automation provides a resilient REST client for the remote
// browser-automation daemon: tab lifecycle, page snapshots, input actions,
// and health checks.
//
// Idempotent calls (health, tab creation, snapshot reads) are retried with
// exponential backoff; mutating actions (click, type, press) get exactly one
// attempt so the caller keeps at-most-once semantics.
package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/thierry-dev-pro/clawd-ORACLE/internal/metrics"
	"github.com/thierry-dev-pro/clawd-ORACLE/internal/types"
)

const healthTimeout = 5 * time.Second

// Client talks to the automation daemon over HTTP. It also keeps a
// sessionKey→tabID bookkeeping map so tabs can be cleaned up in bulk.
// All methods are safe for concurrent use.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	timeout     time.Duration
	maxRetries  int
	backoffBase time.Duration
	sleep       func(time.Duration) // injectable for backoff tests

	mu   sync.Mutex
	tabs map[string]string // sessionKey -> tabID
}

// NewClient creates a daemon client. baseURL must carry a scheme; a trailing
// slash is tolerated. maxRetries applies to idempotent calls only.
func NewClient(baseURL string, timeout time.Duration, maxRetries int, backoffBase time.Duration) *Client {
	return &Client{
		baseURL:     trimTrailingSlash(baseURL),
		httpClient:  &http.Client{},
		timeout:     timeout,
		maxRetries:  maxRetries,
		backoffBase: backoffBase,
		sleep:       time.Sleep,
		tabs:        make(map[string]string),
	}
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// HealthCheck reports whether the daemon answers GET /health with a 2xx.
// It swallows all failures as false and never returns an error.
func (c *Client) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	if err := c.do(ctx, http.MethodGet, "/health", nil, nil, nil); err != nil {
		log.Debug().Err(err).Msg("Health check failed")
		return false
	}
	return true
}

type createTabRequest struct {
	UserID     string `json:"userId"`
	SessionKey string `json:"sessionKey"`
	URL        string `json:"url"`
	Proxy      string `json:"proxy,omitempty"`
}

type createTabResponse struct {
	TabID string `json:"tabId"`
}

// CreateTab asks the daemon to open a new tab at url, optionally through
// proxy, and records the sessionKey→tabID mapping. Transient transport
// failures are retried; exhaustion surfaces as ErrRemoteUnavailable.
func (c *Client) CreateTab(ctx context.Context, userID, sessionKey, targetURL, proxy string) (string, error) {
	req := createTabRequest{
		UserID:     userID,
		SessionKey: sessionKey,
		URL:        targetURL,
		Proxy:      proxy,
	}
	var resp createTabResponse

	endpoint := "POST /tabs"
	err := c.withRetry(ctx, endpoint, func(callCtx context.Context) error {
		return c.do(callCtx, http.MethodPost, "/tabs", nil, req, &resp)
	})
	if err != nil {
		return "", err
	}
	if resp.TabID == "" {
		return "", types.NewRemoteApplicationError(endpoint, http.StatusOK, "no tabId in response")
	}

	c.mu.Lock()
	c.tabs[sessionKey] = resp.TabID
	c.mu.Unlock()

	metrics.TabsCreated.Inc()
	log.Info().
		Str("tab_id", resp.TabID).
		Str("session_key", sessionKey).
		Msg("Created tab")

	return resp.TabID, nil
}

// GetSnapshot fetches the page snapshot for tabID. Idempotent, retried.
func (c *Client) GetSnapshot(ctx context.Context, tabID, userID string) (*Snapshot, error) {
	query := url.Values{"userId": {userID}}
	var snap Snapshot

	endpoint := "GET /tabs/{tabId}/snapshot"
	err := c.withRetry(ctx, endpoint, func(callCtx context.Context) error {
		return c.do(callCtx, http.MethodGet, "/tabs/"+tabID+"/snapshot", query, nil, &snap)
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// Click clicks the element identified by ref. Mutating, single attempt.
func (c *Client) Click(ctx context.Context, tabID, userID, ref string) error {
	body := map[string]string{"userId": userID, "ref": ref}
	return c.once(ctx, http.MethodPost, "/tabs/"+tabID+"/click", body)
}

// TypeText types text into the element identified by ref. Mutating, single
// attempt.
func (c *Client) TypeText(ctx context.Context, tabID, userID, ref, text string) error {
	body := map[string]string{"userId": userID, "ref": ref, "text": text}
	return c.once(ctx, http.MethodPost, "/tabs/"+tabID+"/type", body)
}

// PressKey sends a keyboard key press to the tab. Mutating, single attempt.
func (c *Client) PressKey(ctx context.Context, tabID, userID, key string) error {
	body := map[string]string{"userId": userID, "key": key}
	return c.once(ctx, http.MethodPost, "/tabs/"+tabID+"/press", body)
}

// CloseTab closes a remote tab best-effort: remote failures are logged and
// swallowed, and the local sessionKey mapping is always cleared.
func (c *Client) CloseTab(ctx context.Context, tabID string) {
	if err := c.do(ctx, http.MethodDelete, "/tabs/"+tabID, nil, nil, nil); err != nil {
		log.Warn().Err(err).Str("tab_id", tabID).Msg("Failed to close tab")
	} else {
		log.Info().Str("tab_id", tabID).Msg("Closed tab")
	}
	metrics.TabsClosed.Inc()

	c.mu.Lock()
	for key, id := range c.tabs {
		if id == tabID {
			delete(c.tabs, key)
		}
	}
	c.mu.Unlock()
}

// CloseAll closes every tracked tab best-effort.
func (c *Client) CloseAll(ctx context.Context) {
	c.mu.Lock()
	ids := make([]string, 0, len(c.tabs))
	for _, id := range c.tabs {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	for _, id := range ids {
		c.CloseTab(ctx, id)
	}

	if len(ids) > 0 {
		log.Info().Int("count", len(ids)).Msg("Closed all tracked tabs")
	}
}

// TabID returns the tab tracked for sessionKey, if any.
func (c *Client) TabID(sessionKey string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.tabs[sessionKey]
	return id, ok
}

// once performs a single-attempt mutating call. Transport failures are not
// retried; they are reported as unavailable after one attempt.
func (c *Client) once(ctx context.Context, method, path string, body any) error {
	endpoint := method + " " + path
	err := c.do(ctx, method, path, nil, body, nil)
	if err == nil {
		return nil
	}
	var remoteErr *types.RemoteError
	if errors.As(err, &remoteErr) {
		metrics.RemoteErrors.WithLabelValues("application").Inc()
		return err
	}
	metrics.RemoteErrors.WithLabelValues("unavailable").Inc()
	return types.NewRemoteUnavailableError(endpoint, 1, err)
}

// withRetry runs fn up to maxRetries times, backing off exponentially
// (base, 2×base, 4×base, ...) between attempts. Application errors and
// parent-context cancellation stop immediately.
func (c *Client) withRetry(ctx context.Context, endpoint string, fn func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if attempt > 1 {
			wait := c.backoffBase << (attempt - 2)
			log.Warn().
				Str("endpoint", endpoint).
				Int("attempt", attempt).
				Int("max", c.maxRetries).
				Dur("wait", wait).
				Err(lastErr).
				Msg("Retrying daemon call")
			metrics.RemoteRetries.Inc()
			c.sleep(wait)
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}

		var remoteErr *types.RemoteError
		if errors.As(err, &remoteErr) {
			// Non-2xx response. Permanent, never retried.
			metrics.RemoteErrors.WithLabelValues("application").Inc()
			return err
		}
		if ctx.Err() != nil {
			metrics.RemoteErrors.WithLabelValues("canceled").Inc()
			return ctx.Err()
		}
		if !isTransient(err) {
			metrics.RemoteErrors.WithLabelValues("unavailable").Inc()
			return types.NewRemoteUnavailableError(endpoint, attempt, err)
		}
		lastErr = err
	}

	metrics.RemoteErrors.WithLabelValues("unavailable").Inc()
	return types.NewRemoteUnavailableError(endpoint, c.maxRetries, lastErr)
}

// isTransient reports whether err looks like a connection or timeout failure
// worth retrying. Anything reaching here is already known not to be an
// application error or a parent cancellation.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// do performs one HTTP exchange: marshal body, send with a correlation id,
// check for 2xx, decode out. Transport errors come back unwrapped for the
// retry classifier; non-2xx responses come back as *types.RemoteError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := method + " " + path

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.RemoteCallDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return types.NewRemoteApplicationError(endpoint, resp.StatusCode, string(bytes.TrimSpace(data)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return types.NewRemoteApplicationError(endpoint, resp.StatusCode, "malformed response body: "+err.Error())
		}
	}
	return nil
}
