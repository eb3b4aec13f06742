package feature

import (
	"math/rand"
	"testing"
)

func TestNewBucketsRejectsBadConfig(t *testing.T) {
	t.Parallel()
	if _, err := NewBuckets(0, 500); err == nil {
		t.Error("expected error for zero bucket count")
	}
	if _, err := NewBuckets(-1, 500); err == nil {
		t.Error("expected error for negative bucket count")
	}
	if _, err := NewBuckets(50, 0); err == nil {
		t.Error("expected error for zero max value")
	}
	if _, err := NewBuckets(50, -500); err == nil {
		t.Error("expected error for negative max value")
	}
}

func TestBuildEmpty(t *testing.T) {
	t.Parallel()
	b, err := NewBuckets(50, 500)
	if err != nil {
		t.Fatal(err)
	}
	got := b.Build(nil)
	if len(got) != 50 {
		t.Fatalf("len = %d, want 50", len(got))
	}
	for i, v := range got {
		if v != 0 {
			t.Errorf("bucket %d = %d, want 0", i, v)
		}
	}
}

func TestBuildRouting(t *testing.T) {
	t.Parallel()
	b, err := NewBuckets(50, 500) // width 10
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		rate   float64
		bucket int
	}{
		{0, 0},
		{9.99, 0},
		{10, 1}, // edge rates go to the higher bucket
		{10.01, 1},
		{499.99, 49},
		{500, 49},  // max lands in the last bucket
		{1234, 49}, // anything above does too
	}
	for _, tc := range cases {
		got := b.Build([]float64{tc.rate})
		for i, v := range got {
			want := uint64(0)
			if i == tc.bucket {
				want = 1
			}
			if v != want {
				t.Errorf("rate %v: bucket %d = %d, want %d", tc.rate, i, v, want)
			}
		}
	}
}

func TestBuildAccumulatesCounts(t *testing.T) {
	t.Parallel()
	b, err := NewBuckets(5, 50) // width 10
	if err != nil {
		t.Fatal(err)
	}
	got := b.Build([]float64{1, 2, 3, 15, 15, 49, 60})
	want := []uint64{3, 2, 0, 0, 2}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("bucket %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestBuildOrderIndependent(t *testing.T) {
	t.Parallel()
	b, err := NewBuckets(50, 500)
	if err != nil {
		t.Fatal(err)
	}

	rng := rand.New(rand.NewSource(42))
	rates := make([]float64, 500)
	for i := range rates {
		rates[i] = rng.Float64() * 600
	}
	first := b.Build(rates)

	rng.Shuffle(len(rates), func(i, j int) { rates[i], rates[j] = rates[j], rates[i] })
	second := b.Build(rates)

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("bucket %d changed with input order: %d vs %d", i, first[i], second[i])
		}
	}
}
