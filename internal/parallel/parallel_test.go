package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForCoversAllIndices(t *testing.T) {
	for _, n := range []int{0, 1, 15, 16, 1000} {
		var count atomic.Int64
		seen := make([]atomic.Bool, n)
		For(n, DefaultConfig(), func(i int) {
			count.Add(1)
			seen[i].Store(true)
		})
		assert.Equal(t, int64(n), count.Load())
		for i := range seen {
			assert.True(t, seen[i].Load(), "index %d not visited", i)
		}
	}
}

func TestForSequentialFallback(t *testing.T) {
	cfg := Config{Enabled: false}
	order := make([]int, 0, 8)
	For(8, cfg, func(i int) { order = append(order, i) })
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, order)
}
