package proxy

import (
	"os"
	"path/filepath"
	"testing"
)

func writeProxyFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write proxy file: %v", err)
	}
}

func TestWatcherInitialLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxies.yaml")
	writeProxyFile(t, path, "proxies:\n  - http://a:1\n  - http://b:1\n")

	r := NewRotator(nil)
	w, err := NewWatcher(r, path, false)
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}
	defer w.Close()

	if r.Len() != 2 {
		t.Errorf("Expected 2 proxies loaded, got %d", r.Len())
	}
	if w.Stats().ReloadCount != 1 {
		t.Errorf("Expected reload count 1, got %d", w.Stats().ReloadCount)
	}
}

func TestWatcherMissingFile(t *testing.T) {
	r := NewRotator(nil)
	if _, err := NewWatcher(r, filepath.Join(t.TempDir(), "missing.yaml"), false); err == nil {
		t.Fatal("Expected error for missing proxy file")
	}
}

func TestWatcherReloadReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxies.yaml")
	writeProxyFile(t, path, "proxies:\n  - http://a:1\n")

	r := NewRotator(nil)
	w, err := NewWatcher(r, path, false)
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}
	defer w.Close()

	r.Next() // a: 1

	writeProxyFile(t, path, "proxies:\n  - http://a:1\n  - http://c:1\n")
	if err := w.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	if r.Len() != 2 {
		t.Errorf("Expected 2 proxies after reload, got %d", r.Len())
	}
	if r.Statistics().Usage["http://a:1"] != 1 {
		t.Error("Expected surviving proxy to keep its usage counter across reload")
	}
}

func TestWatcherReloadFailureKeepsPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxies.yaml")
	writeProxyFile(t, path, "proxies:\n  - http://a:1\n")

	r := NewRotator(nil)
	w, err := NewWatcher(r, path, false)
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}
	defer w.Close()

	writeProxyFile(t, path, "proxies: [unbalanced\n")
	if err := w.Reload(); err == nil {
		t.Fatal("Expected reload error for malformed YAML")
	}

	if r.Len() != 1 {
		t.Errorf("Expected previous list to survive failed reload, got %d proxies", r.Len())
	}
	if w.Stats().LastErrorStr == "" {
		t.Error("Expected reload stats to record the error")
	}
}

func TestWatcherCloseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxies.yaml")
	writeProxyFile(t, path, "proxies:\n  - http://a:1\n")

	w, err := NewWatcher(NewRotator(nil), path, true)
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}

	if err := w.Close(); err != nil {
		t.Errorf("First close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Second close failed: %v", err)
	}
}
