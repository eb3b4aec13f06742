package chain

import (
	"sync"
	"time"
)

// RollingWindow keeps the fee observations seen during the last ttl.
// The models were trained on transactions from roughly the last ten
// blocks, so the daemon uses a ttl of about 100 minutes.
type RollingWindow struct {
	ttl time.Duration
	mu  sync.Mutex
	obs []Observation
}

func NewRollingWindow(ttl time.Duration) *RollingWindow {
	if ttl <= 0 {
		ttl = 100 * time.Minute
	}
	return &RollingWindow{ttl: ttl}
}

func (w *RollingWindow) Add(o Observation) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.obs = append(w.obs, o)
	w.prune(o.Ts)
}

// Rates returns the fee rates still inside the window as of now.
func (w *RollingWindow) Rates(now time.Time) []float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(now)
	rates := make([]float64, len(w.obs))
	for i, o := range w.obs {
		rates[i] = o.FeeRate
	}
	return rates
}

func (w *RollingWindow) Len(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(now)
	return len(w.obs)
}

// prune drops observations older than ttl. Callers hold the lock.
func (w *RollingWindow) prune(now time.Time) {
	cutoff := now.Add(-w.ttl)
	i := 0
	for ; i < len(w.obs); i++ {
		if w.obs[i].Ts.After(cutoff) {
			break
		}
	}
	if i > 0 {
		w.obs = append(w.obs[:0], w.obs[i:]...)
	}
}
