package lake

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/statelake/internal/value"
)

func TestClock(t *testing.T) {
	tests := []struct {
		name  string
		clock *Clock
		want  []int64
	}{
		{"from zero", NewClock(), []int64{1, 2, 3}},
		{"from offset", NewClockAt(100), []int64{101, 102, 103}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := []int64{tt.clock.Next(), tt.clock.Next(), tt.clock.Next()}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want[2], tt.clock.Current())
		})
	}
}

func TestClock_ConcurrentUnique(t *testing.T) {
	c := NewClock()
	const goroutines, perGoroutine = 50, 100

	var mu sync.Mutex
	seen := make(map[int64]bool, goroutines*perGoroutine)
	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perGoroutine {
				n := c.Next()
				mu.Lock()
				seen[n] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, goroutines*perGoroutine)
	assert.Equal(t, int64(goroutines*perGoroutine), c.Current())
}

func TestClock_ResumesLakeGenerations(t *testing.T) {
	l := New(value.MustFrom(map[string]any{"a": 1}), WithClock(NewClockAt(7)))

	_, err := l.Resolve("a").Set(value.Int(2))
	require.NoError(t, err)
	assert.Equal(t, int64(8), l.Generation())
}
