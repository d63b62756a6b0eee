package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClock_StartsAtEpoch(t *testing.T) {
	clock := NewClock(time.Time{})
	assert.Equal(t, Epoch, clock.Now())
}

func TestClock_DoesNotMoveOnItsOwn(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	clock := NewClock(start)

	assert.Equal(t, start, clock.Now())
	assert.Equal(t, start, clock.Now())
}

func TestClock_AdvanceAndSet(t *testing.T) {
	clock := NewClock(Epoch)

	assert.Equal(t, Epoch.Add(time.Hour), clock.Advance(time.Hour))
	assert.Equal(t, Epoch.Add(time.Hour), clock.Now())

	later := Epoch.AddDate(0, 6, 0)
	clock.Set(later)
	assert.Equal(t, later, clock.Now())
}

func TestClock_ThreadSafe(t *testing.T) {
	clock := NewClock(Epoch)
	const numGoroutines = 50

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			clock.Advance(time.Second)
		}()
	}
	wg.Wait()

	assert.Equal(t, Epoch.Add(numGoroutines*time.Second), clock.Now())
}

func TestSequentialIDs(t *testing.T) {
	gen := NewSequentialIDs("")

	assert.Equal(t, "run-0001", gen.Next())
	assert.Equal(t, "run-0002", gen.Next())

	custom := NewSequentialIDs("audit")
	assert.Equal(t, "audit-0001", custom.Next())
}

func TestSequentialIDs_ThreadSafe(t *testing.T) {
	gen := NewSequentialIDs("x")
	const numGoroutines = 20

	var (
		mu   sync.Mutex
		seen = make(map[string]bool)
		wg   sync.WaitGroup
	)
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			id := gen.Next()
			mu.Lock()
			defer mu.Unlock()
			require.False(t, seen[id], "duplicate id %s", id)
			seen[id] = true
		}()
	}
	wg.Wait()
	assert.Len(t, seen, numGoroutines)
}

func TestRepos_LoadsRelianceSnapshot(t *testing.T) {
	set := Repos(t, RelianceSnapshot)

	assert.Equal(t, 4, set.Pairs.Len())
	assert.Equal(t, 3, set.Tickers.Len())
	assert.Equal(t, 2, set.Alerts.Count("101"))
	assert.True(t, set.Watch.Contains(0, "RELIANCE"))
}
