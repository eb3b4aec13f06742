// Package feature turns raw chain observations into the inputs the fee
// models consume.
package feature

import "fmt"

// Buckets discretizes fee rates into a fixed number of half-open
// ranges. The zero value is not usable; construct with NewBuckets.
type Buckets struct {
	count int
	max   float64
	width float64
}

// NewBuckets returns a builder with count buckets covering [0, max).
// Rates at or above max are counted in the last bucket.
func NewBuckets(count int, max float64) (*Buckets, error) {
	if count <= 0 {
		return nil, fmt.Errorf("feature: bucket count must be positive, got %d", count)
	}
	if max <= 0 {
		return nil, fmt.Errorf("feature: max value must be positive, got %v", max)
	}
	return &Buckets{count: count, max: max, width: max / float64(count)}, nil
}

// Count returns the configured number of buckets.
func (b *Buckets) Count() int { return b.count }

// Build counts how many of the supplied fee rates fall into each
// bucket. A rate exactly on a bucket edge belongs to the higher bucket.
// The result depends only on the multiset of rates, not their order,
// and an empty input yields all zeros.
func (b *Buckets) Build(rates []float64) []uint64 {
	out := make([]uint64, b.count)
	for _, r := range rates {
		idx := int(r / b.width)
		if idx >= b.count {
			idx = b.count - 1
		}
		if idx < 0 {
			idx = 0
		}
		out[idx]++
	}
	return out
}
