package session

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/thierry-dev-pro/clawd-ORACLE/internal/automation"
	"github.com/thierry-dev-pro/clawd-ORACLE/internal/config"
	"github.com/thierry-dev-pro/clawd-ORACLE/internal/fingerprint"
	"github.com/thierry-dev-pro/clawd-ORACLE/internal/metrics"
	"github.com/thierry-dev-pro/clawd-ORACLE/internal/proxy"
	"github.com/thierry-dev-pro/clawd-ORACLE/internal/types"
)

// Pool maintains a bounded set of sessions keyed by an opaque session key.
// Acquire is idempotent per key; capacity behavior is selected by the
// configured policy (advisory, reject, or evict).
type Pool struct {
	fingerprints *fingerprint.Manager
	proxies      *proxy.Rotator
	client       *automation.Client

	userID           string
	size             int
	policy           string
	rotationInterval time.Duration

	mu           sync.Mutex
	sessions     map[string]*Session
	lastRotation time.Time // pool-wide opportunistic rotation clock
}

// SessionInfo is the per-session slice of pool statistics.
type SessionInfo struct {
	DurationSeconds float64   `json:"durationSeconds"`
	LastActivity    time.Time `json:"lastActivity"`
	Fingerprint     string    `json:"fingerprint,omitempty"` // canvas hash
	Proxy           string    `json:"proxy,omitempty"`
	TabID           string    `json:"tabId,omitempty"`
}

// Statistics is a point-in-time view of the pool and its shared resources.
type Statistics struct {
	ActiveSessions int                    `json:"activeSessions"`
	PoolSize       int                    `json:"poolSize"`
	CapacityUsage  float64                `json:"capacityUsage"`
	Fingerprints   fingerprint.Stats      `json:"fingerprints"`
	Proxies        proxy.Stats            `json:"proxies"`
	Sessions       map[string]SessionInfo `json:"sessions"`
}

// NewPool creates a session pool wired to the shared fingerprint manager,
// proxy rotator, and daemon client.
func NewPool(cfg *config.Config, fingerprints *fingerprint.Manager, proxies *proxy.Rotator, client *automation.Client) *Pool {
	return &Pool{
		fingerprints:     fingerprints,
		proxies:          proxies,
		client:           client,
		userID:           cfg.UserID,
		size:             cfg.PoolSize,
		policy:           cfg.CapacityPolicy,
		rotationInterval: cfg.RotationInterval,
		sessions:         make(map[string]*Session),
		lastRotation:     time.Now(),
	}
}

// Acquire returns the session for key, creating one if absent. For an
// existing started session whose rotation interval has elapsed, an in-place
// rotation is attempted opportunistically; a rotation failure is logged and
// the session is still returned.
//
// At capacity, new keys are handled per policy: advisory logs and admits,
// reject returns ErrPoolExhausted, evict closes the least recently active
// session to make room.
func (p *Pool) Acquire(ctx context.Context, key string) (*Session, error) {
	p.mu.Lock()

	if s, ok := p.sessions[key]; ok {
		rotate := p.rotationInterval > 0 &&
			s.Started() &&
			time.Since(p.lastRotation) >= p.rotationInterval
		if rotate {
			// Advance the pool-wide clock before dropping the lock so
			// concurrent acquires do not pile up rotations.
			p.lastRotation = time.Now()
		}
		p.mu.Unlock()

		if rotate {
			if err := s.RotateFingerprint(ctx, "", "", true); err != nil {
				log.Warn().
					Err(err).
					Str("session_key", key).
					Msg("Scheduled rotation failed, keeping current identity")
			}
		}
		return s, nil
	}

	var victim *Session
	if len(p.sessions) >= p.size {
		switch p.policy {
		case config.CapacityReject:
			p.mu.Unlock()
			return nil, types.ErrPoolExhausted
		case config.CapacityEvict:
			victim = p.leastRecentlyActiveLocked()
			if victim != nil {
				delete(p.sessions, victim.Key())
				metrics.SessionsEvicted.Inc()
			}
		default: // advisory
			log.Warn().
				Int("active", len(p.sessions)).
				Int("capacity", p.size).
				Str("session_key", key).
				Msg("Pool over capacity, admitting session anyway")
		}
	}

	s := New(key, p.userID, p.fingerprints, p.proxies, p.client)
	p.sessions[key] = s
	metrics.ActiveSessions.Set(float64(len(p.sessions)))
	p.mu.Unlock()

	if victim != nil {
		log.Info().
			Str("evicted_key", victim.Key()).
			Str("session_key", key).
			Msg("Evicted least recently active session")
		victim.Close(ctx)
	}

	log.Debug().Str("session_key", key).Msg("Session acquired")

	return s, nil
}

// Get returns the session for key without creating one.
func (p *Pool) Get(key string) (*Session, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sessions[key]
	return s, ok
}

// Release closes and removes the session for key. Releasing an absent key is
// a no-op.
func (p *Pool) Release(ctx context.Context, key string) {
	p.mu.Lock()
	s, ok := p.sessions[key]
	if ok {
		delete(p.sessions, key)
		metrics.ActiveSessions.Set(float64(len(p.sessions)))
	}
	p.mu.Unlock()

	if !ok {
		return
	}
	s.Close(ctx)

	log.Debug().Str("session_key", key).Msg("Session released")
}

// ReleaseAll closes every session with bounded parallelism and empties the
// pool. Used on shutdown.
func (p *Pool) ReleaseAll(ctx context.Context) {
	p.mu.Lock()
	sessions := make([]*Session, 0, len(p.sessions))
	for _, s := range p.sessions {
		sessions = append(sessions, s)
	}
	p.sessions = make(map[string]*Session)
	metrics.ActiveSessions.Set(0)
	p.mu.Unlock()

	if len(sessions) == 0 {
		return
	}

	g := new(errgroup.Group)
	g.SetLimit(4)
	for _, s := range sessions {
		s := s
		g.Go(func() error {
			s.Close(ctx)
			return nil
		})
	}
	g.Wait()

	log.Info().Int("count", len(sessions)).Msg("Released all sessions")
}

// Len returns the number of sessions in the pool.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

// Statistics returns nested pool, per-session, fingerprint, and proxy
// statistics.
func (p *Pool) Statistics() Statistics {
	// Copy the session set out under the pool lock and gather per-session
	// info afterwards, so statistics never stall Acquire or Release behind a
	// session whose remote call is in flight.
	p.mu.Lock()
	active := len(p.sessions)
	keys := make([]string, 0, active)
	held := make([]*Session, 0, active)
	for key, s := range p.sessions {
		keys = append(keys, key)
		held = append(held, s)
	}
	p.mu.Unlock()

	infos := make(map[string]SessionInfo, active)
	for i, s := range held {
		info := SessionInfo{
			DurationSeconds: s.Duration().Seconds(),
			LastActivity:    s.LastActivity(),
			Proxy:           s.Proxy(),
			TabID:           s.TabID(),
		}
		if fp := s.Fingerprint(); fp != nil {
			info.Fingerprint = fp.CanvasFingerprint
		}
		infos[keys[i]] = info
	}

	usage := 0.0
	if p.size > 0 {
		usage = float64(active) / float64(p.size)
	}

	return Statistics{
		ActiveSessions: active,
		PoolSize:       p.size,
		CapacityUsage:  usage,
		Fingerprints:   p.fingerprints.Statistics(),
		Proxies:        p.proxies.Statistics(),
		Sessions:       infos,
	}
}

// leastRecentlyActiveLocked picks the eviction victim. Must be called with
// p.mu held.
func (p *Pool) leastRecentlyActiveLocked() *Session {
	var victim *Session
	for _, s := range p.sessions {
		if victim == nil || s.LastActivity().Before(victim.LastActivity()) {
			victim = s
		}
	}
	return victim
}
