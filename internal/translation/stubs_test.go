package translation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"horse.fit/prompttranslate/internal/backend"
)

type stubBackend struct {
	kind            backend.Kind
	concurrencySafe bool
	translate       func(ctx context.Context, text, sourceLang string) (string, error)

	mu          sync.Mutex
	inputs      []string
	closed      atomic.Int32
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (b *stubBackend) Translate(ctx context.Context, text, sourceLang, _ string) (string, error) {
	n := b.inFlight.Add(1)
	defer b.inFlight.Add(-1)
	for {
		peak := b.maxInFlight.Load()
		if n <= peak || b.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	b.mu.Lock()
	b.inputs = append(b.inputs, text)
	b.mu.Unlock()

	if b.translate == nil {
		return "EN(" + text + ")", nil
	}
	return b.translate(ctx, text, sourceLang)
}

func (b *stubBackend) ConcurrencySafe() bool {
	return b.concurrencySafe
}

func (b *stubBackend) Close() error {
	b.closed.Add(1)
	return nil
}

func (b *stubBackend) seen() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.inputs...)
}

// stubLoader hands out prebuilt backends and counts loads per kind. A kind
// listed in fail returns that error; gate, when set, blocks every load until
// closed.
type stubLoader struct {
	mu       sync.Mutex
	backends map[backend.Kind]*stubBackend
	fail     map[backend.Kind]error
	loads    map[backend.Kind]int
	gate     chan struct{}
	started  chan backend.Kind
}

func newStubLoader(backends ...*stubBackend) *stubLoader {
	l := &stubLoader{
		backends: make(map[backend.Kind]*stubBackend),
		fail:     make(map[backend.Kind]error),
		loads:    make(map[backend.Kind]int),
	}
	for _, b := range backends {
		l.backends[b.kind] = b
	}
	return l
}

func (l *stubLoader) Load(ctx context.Context, kind backend.Kind) (backend.Backend, error) {
	l.mu.Lock()
	l.loads[kind]++
	gate, started := l.gate, l.started
	failErr := l.fail[kind]
	b := l.backends[kind]
	l.mu.Unlock()

	if started != nil {
		started <- kind
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failErr != nil {
		return nil, failErr
	}
	if b == nil {
		return nil, fmt.Errorf("%w: no %s model installed", backend.ErrUnavailable, kind)
	}
	return b, nil
}

func (l *stubLoader) setFail(kind backend.Kind, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err == nil {
		delete(l.fail, kind)
		return
	}
	l.fail[kind] = err
}

func (l *stubLoader) loadCount(kind backend.Kind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads[kind]
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func totalLeases(r *Registry) int {
	total := 0
	for _, stats := range r.Stats() {
		total += stats.Leases
	}
	return total
}
