package metrics

import (
	"math"
	"sort"
	"sync"
	"time"
)

// LatencySampler keeps a fixed-size ring of recent latency samples for
// quantile reporting, grounded on the pack's latency sampler.
type LatencySampler struct {
	mu      sync.Mutex
	samples []int64
	index   int
	full    bool
}

func NewLatencySampler(size int) *LatencySampler {
	if size <= 0 {
		size = 128
	}
	return &LatencySampler{samples: make([]int64, size)}
}

func (l *LatencySampler) Add(d time.Duration) {
	l.mu.Lock()
	l.samples[l.index] = d.Nanoseconds()
	l.index++
	if l.index >= len(l.samples) {
		l.index = 0
		l.full = true
	}
	l.mu.Unlock()
}

func (l *LatencySampler) SnapshotQuantiles(quantiles []float64) map[float64]time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := l.index
	if l.full {
		count = len(l.samples)
	}
	if count == 0 {
		return map[float64]time.Duration{}
	}

	values := make([]int64, count)
	copy(values, l.samples[:count])
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	results := make(map[float64]time.Duration, len(quantiles))
	for _, q := range quantiles {
		switch {
		case q <= 0:
			results[q] = time.Duration(values[0])
		case q >= 1:
			results[q] = time.Duration(values[count-1])
		default:
			pos := int(math.Ceil(q*float64(count))) - 1
			if pos < 0 {
				pos = 0
			}
			if pos >= count {
				pos = count - 1
			}
			results[q] = time.Duration(values[pos])
		}
	}
	return results
}
