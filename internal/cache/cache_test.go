package cache

import (
	"sync"
	"testing"
	"time"
)

func TestTTL_GetSet(t *testing.T) {
	t.Parallel()

	c := NewTTL(time.Minute)
	if _, ok := c.Get("missing"); ok {
		t.Error("Get on empty cache returned a value")
	}

	c.Set("k", "v1")
	got, ok := c.Get("k")
	if !ok || got != "v1" {
		t.Fatalf("Get = %v, %v; want v1, true", got, ok)
	}

	// Last writer wins.
	c.Set("k", "v2")
	got, _ = c.Get("k")
	if got != "v2" {
		t.Errorf("Get after overwrite = %v, want v2", got)
	}
}

func TestTTL_Expiry(t *testing.T) {
	t.Parallel()

	c := NewTTL(time.Minute)
	base := time.Now()
	c.now = func() time.Time { return base }

	c.Set("k", "v")
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry missing before expiry")
	}

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, ok := c.Get("k"); ok {
		t.Error("entry still readable after expiry")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0 after lazy removal", c.Len())
	}
}

func TestTTL_Sweep(t *testing.T) {
	t.Parallel()

	c := NewTTL(time.Minute)
	base := time.Now()
	c.now = func() time.Time { return base }

	c.Set("old", 1)
	c.now = func() time.Time { return base.Add(30 * time.Second) }
	c.Set("fresh", 2)

	c.now = func() time.Time { return base.Add(70 * time.Second) }
	c.sweep()

	if _, ok := c.Get("old"); ok {
		t.Error("expired entry survived sweep")
	}
	if _, ok := c.Get("fresh"); !ok {
		t.Error("live entry removed by sweep")
	}
}

func TestTTL_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	c := NewTTL(time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := Fingerprint("worker", string(rune('a'+n)))
				c.Set(key, j)
				c.Get(key)
				c.Delete(key)
			}
		}(i)
	}
	wg.Wait()
}

func TestFingerprint_Stability(t *testing.T) {
	t.Parallel()

	a := Fingerprint("query", "model-x")
	b := Fingerprint("query", "model-x")
	if a != b {
		t.Error("same parts produced different fingerprints")
	}
	if Fingerprint("query", "model-x") == Fingerprint("query", "model-y") {
		t.Error("different parts produced the same fingerprint")
	}
	// Joining must not let part boundaries shift.
	if Fingerprint("ab", "c") == Fingerprint("a", "bc") {
		t.Error("boundary shift produced the same fingerprint")
	}
	if len(a) != 64 {
		t.Errorf("fingerprint length = %d, want 64 hex chars", len(a))
	}
}
