package bot

import "sync"

// inFlightGuard allows at most one workflow of a kind per mint.
type inFlightGuard struct {
	mu    sync.Mutex
	mints map[string]struct{}
}

func newInFlightGuard() *inFlightGuard {
	return &inFlightGuard{mints: make(map[string]struct{})}
}

// tryAcquire marks mint in flight. It returns false if it already was.
func (g *inFlightGuard) tryAcquire(mint string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.mints[mint]; ok {
		return false
	}
	g.mints[mint] = struct{}{}
	return true
}

func (g *inFlightGuard) release(mint string) {
	g.mu.Lock()
	delete(g.mints, mint)
	g.mu.Unlock()
}

func (g *inFlightGuard) held(mint string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.mints[mint]
	return ok
}
