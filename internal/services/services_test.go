package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/eatsalad239/gato-blanco-ops/internal/repositories/kv"
)

// testClock returns a deterministic clock that starts at a fixed instant and
// moves forward one second per reading, so created-at timestamps always fall
// strictly inside report windows ending "now".
func testClock(t *testing.T) func() time.Time {
	t.Helper()
	var mu sync.Mutex
	at := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		at = at.Add(time.Second)
		return at
	}
}

// seqIDs yields "000001", "000002", ... so created records have stable ids.
// Safe for concurrent use.
func seqIDs() func() string {
	var mu sync.Mutex
	var n int
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%06d", n)
	}
}

func newTestRegistry(t *testing.T) *kv.Registry {
	t.Helper()
	registry, err := kv.NewRegistry(kv.NewMemoryStore())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	t.Cleanup(func() { _ = registry.Close(context.Background()) })
	return registry
}
