// Package proxy provides concurrency-safe upstream proxy rotation with usage
// accounting. Selection strategies are round-robin and least-used; an empty
// pool is not an error, callers simply proceed without a proxy.
package proxy

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/thierry-dev-pro/clawd-ORACLE/internal/metrics"
)

// Rotator holds an ordered list of proxy endpoints and serves selections.
// Usage counters are scoped to one Rotator instance and are monotonically
// non-decreasing while a proxy remains in the pool; removing a proxy discards
// its history permanently.
type Rotator struct {
	mu      sync.Mutex
	proxies []string
	usage   map[string]int64
	cursor  int
}

// Stats is a point-in-time view of proxy usage.
type Stats struct {
	Total     int              `json:"total"`
	Usage     map[string]int64 `json:"usage,omitempty"`
	LeastUsed string           `json:"leastUsed,omitempty"`
	MostUsed  string           `json:"mostUsed,omitempty"`
}

// NewRotator creates a rotator over the given ordered proxy list.
// Duplicates are dropped, keeping the first occurrence.
func NewRotator(proxies []string) *Rotator {
	r := &Rotator{usage: make(map[string]int64)}
	for _, p := range proxies {
		if _, seen := r.usage[p]; seen {
			continue
		}
		r.proxies = append(r.proxies, p)
		r.usage[p] = 0
	}
	return r
}

// Next returns the next proxy in round-robin order and increments its usage
// counter. The cursor wraps modulo pool size. Returns false if the pool is
// empty.
func (r *Rotator) Next() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.proxies) == 0 {
		return "", false
	}

	if r.cursor >= len(r.proxies) {
		r.cursor = 0
	}
	proxy := r.proxies[r.cursor]
	r.cursor = (r.cursor + 1) % len(r.proxies)
	r.usage[proxy]++
	metrics.ProxySelections.WithLabelValues("round_robin").Inc()

	log.Debug().Str("proxy", proxy).Msg("Selected proxy")

	return proxy, true
}

// LeastUsed returns the proxy with the minimum usage counter and increments
// it. Ties are broken by first-occurrence order in the pool. Returns false if
// the pool is empty.
func (r *Rotator) LeastUsed() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.proxies) == 0 {
		return "", false
	}

	best := r.proxies[0]
	for _, p := range r.proxies[1:] {
		if r.usage[p] < r.usage[best] {
			best = p
		}
	}
	r.usage[best]++
	metrics.ProxySelections.WithLabelValues("least_used").Inc()

	return best, true
}

// Add inserts a proxy at the end of the rotation. Adding an existing proxy is
// a no-op.
func (r *Rotator) Add(proxy string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.usage[proxy]; exists {
		return
	}
	r.proxies = append(r.proxies, proxy)
	r.usage[proxy] = 0

	log.Info().Str("proxy", proxy).Int("total", len(r.proxies)).Msg("Added proxy")
}

// Remove deletes a proxy and its usage history. Removing an absent proxy is a
// no-op.
func (r *Rotator) Remove(proxy string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.usage[proxy]; !exists {
		return
	}
	delete(r.usage, proxy)
	for i, p := range r.proxies {
		if p == proxy {
			r.proxies = append(r.proxies[:i], r.proxies[i+1:]...)
			break
		}
	}
	// Keep the cursor pointing at a valid slot after shrinking.
	if len(r.proxies) > 0 {
		r.cursor %= len(r.proxies)
	} else {
		r.cursor = 0
	}

	log.Info().Str("proxy", proxy).Int("total", len(r.proxies)).Msg("Removed proxy")
}

// Replace swaps the pool contents for a new ordered list. Usage counters are
// preserved for proxies present in both lists; everything else starts at zero.
// Used by the file watcher on hot reload.
func (r *Rotator) Replace(proxies []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	usage := make(map[string]int64, len(proxies))
	var kept []string
	for _, p := range proxies {
		if _, seen := usage[p]; seen {
			continue
		}
		kept = append(kept, p)
		usage[p] = r.usage[p] // zero for proxies not previously tracked
	}

	r.proxies = kept
	r.usage = usage
	r.cursor = 0

	log.Info().Int("total", len(r.proxies)).Msg("Replaced proxy list")
}

// Len returns the number of proxies in the pool.
func (r *Rotator) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.proxies)
}

// Statistics returns total count, a copy of per-proxy usage, and the current
// least- and most-used proxies. The zero-valued Stats is returned for an
// empty pool.
func (r *Rotator) Statistics() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.proxies) == 0 {
		return Stats{}
	}

	usage := make(map[string]int64, len(r.usage))
	least, most := r.proxies[0], r.proxies[0]
	for _, p := range r.proxies {
		usage[p] = r.usage[p]
		if r.usage[p] < r.usage[least] {
			least = p
		}
		if r.usage[p] > r.usage[most] {
			most = p
		}
	}

	return Stats{
		Total:     len(r.proxies),
		Usage:     usage,
		LeastUsed: least,
		MostUsed:  most,
	}
}
