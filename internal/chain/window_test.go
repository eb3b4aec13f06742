package chain

import (
	"testing"
	"time"
)

func TestRollingWindow(t *testing.T) {
	t.Parallel()
	base := time.Date(2021, 2, 17, 12, 0, 0, 0, time.UTC)
	w := NewRollingWindow(10 * time.Minute)

	w.Add(Observation{FeeRate: 1, Ts: base})
	w.Add(Observation{FeeRate: 2, Ts: base.Add(5 * time.Minute)})
	w.Add(Observation{FeeRate: 3, Ts: base.Add(9 * time.Minute)})

	rates := w.Rates(base.Add(9 * time.Minute))
	if len(rates) != 3 {
		t.Fatalf("got %d rates, want 3", len(rates))
	}

	// Eleven minutes after base the first observation has aged out.
	rates = w.Rates(base.Add(11 * time.Minute))
	if len(rates) != 2 {
		t.Fatalf("got %d rates, want 2", len(rates))
	}
	if rates[0] != 2 || rates[1] != 3 {
		t.Errorf("rates = %v, want [2 3]", rates)
	}

	if n := w.Len(base.Add(30 * time.Minute)); n != 0 {
		t.Errorf("Len = %d, want 0 after everything aged out", n)
	}
}

func TestRollingWindowDefaultTTL(t *testing.T) {
	t.Parallel()
	w := NewRollingWindow(0)
	if w.ttl != 100*time.Minute {
		t.Errorf("ttl = %v, want 100m default", w.ttl)
	}
}
