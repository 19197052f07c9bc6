package hook

import (
	"sync"
	"time"
)

// MoveGate rate-limits pointer-move samples to a minimum interval. A sample
// arriving sooner than the interval after the previous accepted sample is
// dropped; the gate only advances on accepted samples. Clicks, scrolls, and
// key events never pass through a gate.
type MoveGate struct {
	mu           sync.Mutex
	minInterval  time.Duration
	lastAccepted time.Time
	now          func() time.Time
}

// NewMoveGate builds a gate admitting at most one sample per interval.
func NewMoveGate(interval time.Duration) *MoveGate {
	return &MoveGate{
		minInterval: interval,
		now:         time.Now,
	}
}

// Allow reports whether a move sample arriving now should be recorded.
func (g *MoveGate) Allow() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	if !g.lastAccepted.IsZero() && now.Sub(g.lastAccepted) < g.minInterval {
		return false
	}
	g.lastAccepted = now
	return true
}
