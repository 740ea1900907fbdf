package proxy

import (
	"testing"
)

func TestRoundRobinFairness(t *testing.T) {
	proxies := []string{
		"http://proxy1.example:8080",
		"http://proxy2.example:8080",
		"http://proxy3.example:8080",
	}
	r := NewRotator(proxies)

	for round := 0; round < 3; round++ {
		for i, want := range proxies {
			got, ok := r.Next()
			if !ok {
				t.Fatalf("Round %d pick %d: expected a proxy", round, i)
			}
			if got != want {
				t.Errorf("Round %d pick %d: expected %q, got %q", round, i, want, got)
			}
		}
	}

	stats := r.Statistics()
	for _, p := range proxies {
		if stats.Usage[p] != 3 {
			t.Errorf("Expected usage 3 for %q, got %d", p, stats.Usage[p])
		}
	}
}

func TestNewRotatorDedup(t *testing.T) {
	r := NewRotator([]string{"http://a:1", "http://b:1", "http://a:1"})
	if r.Len() != 2 {
		t.Errorf("Expected 2 proxies after dedup, got %d", r.Len())
	}
}

func TestLeastUsed(t *testing.T) {
	r := NewRotator([]string{"http://a:1", "http://b:1"})

	// Skew usage toward a.
	r.Next()

	got, ok := r.LeastUsed()
	if !ok {
		t.Fatal("Expected a proxy")
	}
	if got != "http://b:1" {
		t.Errorf("Expected least-used http://b:1, got %q", got)
	}
}

func TestLeastUsedTieBreak(t *testing.T) {
	r := NewRotator([]string{"http://a:1", "http://b:1", "http://c:1"})

	got, _ := r.LeastUsed()
	if got != "http://a:1" {
		t.Errorf("Expected first-occurrence tie-break to pick http://a:1, got %q", got)
	}
}

func TestEmptyPool(t *testing.T) {
	r := NewRotator(nil)

	if _, ok := r.Next(); ok {
		t.Error("Expected no proxy from empty pool")
	}
	if _, ok := r.LeastUsed(); ok {
		t.Error("Expected no proxy from empty pool")
	}
	if stats := r.Statistics(); stats.Total != 0 {
		t.Errorf("Expected zero stats, got %+v", stats)
	}
}

func TestAddRemove(t *testing.T) {
	r := NewRotator([]string{"http://a:1"})

	r.Add("http://b:1")
	r.Add("http://b:1") // duplicate, no-op
	if r.Len() != 2 {
		t.Errorf("Expected 2 proxies, got %d", r.Len())
	}

	r.Remove("http://a:1")
	r.Remove("http://a:1") // absent, no-op
	if r.Len() != 1 {
		t.Errorf("Expected 1 proxy, got %d", r.Len())
	}

	got, ok := r.Next()
	if !ok || got != "http://b:1" {
		t.Errorf("Expected rotation to continue with http://b:1, got %q", got)
	}
}

func TestRemoveKeepsCursorValid(t *testing.T) {
	r := NewRotator([]string{"http://a:1", "http://b:1", "http://c:1"})

	// Advance the cursor to the end, then shrink the pool under it.
	r.Next()
	r.Next()
	r.Remove("http://c:1")
	r.Remove("http://b:1")

	got, ok := r.Next()
	if !ok || got != "http://a:1" {
		t.Errorf("Expected http://a:1 after shrink, got %q", got)
	}
}

func TestReplacePreservesUsage(t *testing.T) {
	r := NewRotator([]string{"http://a:1", "http://b:1"})
	r.Next() // a: 1
	r.Next() // b: 1
	r.Next() // a: 2

	r.Replace([]string{"http://a:1", "http://c:1"})

	stats := r.Statistics()
	if stats.Total != 2 {
		t.Fatalf("Expected 2 proxies after replace, got %d", stats.Total)
	}
	if stats.Usage["http://a:1"] != 2 {
		t.Errorf("Expected surviving proxy to keep usage 2, got %d", stats.Usage["http://a:1"])
	}
	if stats.Usage["http://c:1"] != 0 {
		t.Errorf("Expected new proxy to start at 0, got %d", stats.Usage["http://c:1"])
	}
	if _, tracked := stats.Usage["http://b:1"]; tracked {
		t.Error("Expected removed proxy to be forgotten")
	}
}

func TestStatisticsExtremes(t *testing.T) {
	r := NewRotator([]string{"http://a:1", "http://b:1"})
	r.Next() // a
	r.Next() // b
	r.Next() // a

	stats := r.Statistics()
	if stats.MostUsed != "http://a:1" {
		t.Errorf("Expected most used http://a:1, got %q", stats.MostUsed)
	}
	if stats.LeastUsed != "http://b:1" {
		t.Errorf("Expected least used http://b:1, got %q", stats.LeastUsed)
	}
}

func TestConcurrentSelection(t *testing.T) {
	r := NewRotator([]string{"http://a:1", "http://b:1", "http://c:1"})

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				r.Next()
				r.LeastUsed()
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	var total int64
	for _, n := range r.Statistics().Usage {
		total += n
	}
	if total != 8*100*2 {
		t.Errorf("Expected %d total selections, got %d", 8*100*2, total)
	}
}
