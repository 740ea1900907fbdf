package proxy

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// proxyFile is the on-disk YAML document shape:
//
//	proxies:
//	  - http://proxy1.example:8080
//	  - socks5://proxy2.example:1080
type proxyFile struct {
	Proxies []string `yaml:"proxies"`
}

// ReloadStats contains statistics about proxy list reloads.
type ReloadStats struct {
	LastReloadTime time.Time `json:"lastReloadTime,omitempty"`
	ReloadCount    int64     `json:"reloadCount"`
	LastError      error     `json:"-"`
	LastErrorStr   string    `json:"lastError,omitempty"`
}

// Watcher loads a YAML proxy list into a Rotator and optionally hot-reloads it
// when the file changes. On a failed reload the previous list remains in use.
type Watcher struct {
	rotator *Rotator
	path    string
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex // protects reload operations and stats
	stats   ReloadStats
	closed  bool
}

// NewWatcher loads the proxy file into rotator and, if hotReload is true,
// starts watching the file for changes. The initial load must succeed; later
// reload failures only log and keep the previous list.
func NewWatcher(rotator *Rotator, path string, hotReload bool) (*Watcher, error) {
	w := &Watcher{
		rotator: rotator,
		path:    path,
		stopCh:  make(chan struct{}),
	}

	if err := w.Reload(); err != nil {
		return nil, err
	}

	if hotReload {
		if err := w.startWatcher(); err != nil {
			log.Warn().
				Err(err).
				Str("path", path).
				Msg("Failed to start proxy file watcher, hot-reload disabled")
		} else {
			log.Info().Str("path", path).Msg("Hot-reload enabled for proxy file")
		}
	}

	return w, nil
}

// Reload re-reads the proxy file and replaces the rotator contents.
// On parse or read failure the rotator is left untouched.
func (w *Watcher) Reload() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := os.ReadFile(w.path)
	if err != nil {
		w.stats.LastError = err
		return fmt.Errorf("failed to read proxy file: %w", err)
	}

	var pf proxyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		w.stats.LastError = err
		return fmt.Errorf("failed to parse proxy file: %w", err)
	}

	w.rotator.Replace(pf.Proxies)

	w.stats.LastReloadTime = time.Now()
	w.stats.ReloadCount++
	w.stats.LastError = nil

	log.Info().
		Int("proxies", len(pf.Proxies)).
		Int64("reload_count", w.stats.ReloadCount).
		Msg("Proxy list loaded")

	return nil
}

// Stats returns the current reload statistics.
func (w *Watcher) Stats() ReloadStats {
	w.mu.Lock()
	defer w.mu.Unlock()

	stats := w.stats
	if stats.LastError != nil {
		stats.LastErrorStr = stats.LastError.Error()
	}
	return stats
}

// Close stops the file watcher. Safe to call multiple times.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.stopCh)
	w.wg.Wait()

	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

func (w *Watcher) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := watcher.Add(w.path); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch file: %w", err)
	}

	w.watcher = watcher

	w.wg.Add(1)
	go w.watchFile()

	return nil
}

// watchFile watches for file changes and triggers reloads, debouncing rapid
// successive writes.
func (w *Watcher) watchFile() {
	defer w.wg.Done()

	const debounceDelay = 100 * time.Millisecond
	var debounceTimer *time.Timer
	var debouncing bool

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			log.Debug().
				Str("event", event.Op.String()).
				Str("file", event.Name).
				Msg("Proxy file changed")

			if debouncing {
				if !debounceTimer.Stop() {
					select {
					case <-debounceTimer.C:
					default:
					}
				}
				debounceTimer.Reset(debounceDelay)
			} else {
				debouncing = true
				debounceTimer = time.AfterFunc(debounceDelay, func() {
					if err := w.Reload(); err != nil {
						log.Warn().
							Err(err).
							Str("path", w.path).
							Msg("Proxy hot-reload failed, keeping previous list")
					}
					debouncing = false
				})
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Proxy file watcher error")

		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return
		}
	}
}
