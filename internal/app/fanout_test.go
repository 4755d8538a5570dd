package app

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestForEach_BoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	items := make([]int, 20)
	seen := make([]bool, len(items))

	forEach(context.Background(), 3, items, func(_ context.Context, i int, _ int) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		seen[i] = true
		inFlight.Add(-1)
	})

	assert.LessOrEqual(t, peak.Load(), int32(3))
	for i, ok := range seen {
		assert.True(t, ok, "item %d not processed", i)
	}
}
