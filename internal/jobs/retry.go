package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// retryGate parks sweep items that failed so they stop occupying the head
// of a deadline-ordered batch. The wait doubles per consecutive failure.
type retryGate struct {
	mu    sync.Mutex
	base  time.Duration
	max   time.Duration
	items map[string]map[uuid.UUID]parked
}

type parked struct {
	failures int
	until    time.Time
}

func newRetryGate(base, max time.Duration) *retryGate {
	if base <= 0 {
		base = time.Minute
	}
	if max < base {
		max = base
	}
	return &retryGate{base: base, max: max, items: make(map[string]map[uuid.UUID]parked)}
}

// parkedCount returns how many items of job are still waiting at now
func (g *retryGate) parkedCount(job string, now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, p := range g.items[job] {
		if now.Before(p.until) {
			n++
		}
	}
	return n
}

func (g *retryGate) ready(job string, id uuid.UUID, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.items[job][id]
	return !ok || !now.Before(p.until)
}

// fail parks id and returns when it may be retried
func (g *retryGate) fail(job string, id uuid.UUID, now time.Time) time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	byID := g.items[job]
	if byID == nil {
		byID = make(map[uuid.UUID]parked)
		g.items[job] = byID
	}
	p := byID[id]
	p.failures++
	wait := g.base
	for i := 1; i < p.failures && wait < g.max; i++ {
		wait *= 2
	}
	if wait > g.max {
		wait = g.max
	}
	p.until = now.Add(wait)
	byID[id] = p
	return p.until
}

func (g *retryGate) clear(job string, id uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if byID := g.items[job]; byID != nil {
		delete(byID, id)
		if len(byID) == 0 {
			delete(g.items, job)
		}
	}
}
