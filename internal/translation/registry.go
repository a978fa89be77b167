package translation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"horse.fit/prompttranslate/internal/backend"
	"horse.fit/prompttranslate/internal/globaltime"
)

const (
	DefaultIdleWindow     = 300 * time.Second
	DefaultSweepInterval  = 30 * time.Second
	DefaultLoadTimeout    = 180 * time.Second
	DefaultMaxConcurrency = 2
	minimumSweepInterval  = time.Second
)

// ErrRegistryClosed is returned by Lease after Close.
var ErrRegistryClosed = errors.New("model registry is closed")

// Loader constructs a backend instance. Implementations may block for a long
// time and must honor ctx.
type Loader interface {
	Load(ctx context.Context, kind backend.Kind) (backend.Backend, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, kind backend.Kind) (backend.Backend, error)

func (f LoaderFunc) Load(ctx context.Context, kind backend.Kind) (backend.Backend, error) {
	return f(ctx, kind)
}

// RegistryOptions tunes loading and eviction.
type RegistryOptions struct {
	IdleWindow     time.Duration
	SweepInterval  time.Duration
	LoadTimeout    time.Duration
	MaxConcurrency int64
	Logger         zerolog.Logger
	Now            func() time.Time
}

// Registry owns every backend instance. It loads each kind at most once at a
// time, hands out leases and unloads instances that stay idle with no leases.
type Registry struct {
	loader Loader
	opts   RegistryOptions
	logger zerolog.Logger
	group  singleflight.Group

	mu      sync.Mutex
	entries map[backend.Kind]*entry
	loads   map[backend.Kind]int
	evicted map[backend.Kind]int
	closed  bool
}

type entry struct {
	kind     backend.Kind
	backend  backend.Backend
	sem      *semaphore.Weighted
	loadedAt time.Time
	lastUsed time.Time
	leases   int
	detached bool
}

// Handle is a lease on a loaded backend. Release it through the registry
// exactly once; extra releases are ignored.
type Handle struct {
	registry *Registry
	entry    *entry
	released atomic.Bool
}

// BackendStats is a point-in-time view of one backend kind.
type BackendStats struct {
	Kind      backend.Kind `json:"kind"`
	Loaded    bool         `json:"loaded"`
	Leases    int          `json:"leases"`
	Loads     int          `json:"loads"`
	Evictions int          `json:"evictions"`
	LoadedAt  *time.Time   `json:"loaded_at,omitempty"`
	LastUsed  *time.Time   `json:"last_used,omitempty"`
}

func NewRegistry(loader Loader, opts RegistryOptions) *Registry {
	if opts.IdleWindow <= 0 {
		opts.IdleWindow = DefaultIdleWindow
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.SweepInterval < minimumSweepInterval {
		opts.SweepInterval = minimumSweepInterval
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = DefaultLoadTimeout
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = DefaultMaxConcurrency
	}
	if opts.Now == nil {
		opts.Now = globaltime.Now
	}

	return &Registry{
		loader:  loader,
		opts:    opts,
		logger:  opts.Logger.With().Str("component", "model_registry").Logger(),
		entries: make(map[backend.Kind]*entry),
		loads:   make(map[backend.Kind]int),
		evicted: make(map[backend.Kind]int),
	}
}

// Lease returns a handle on the backend for kind, loading it if needed.
// Concurrent callers share one load. A caller whose ctx ends while waiting
// gets ctx.Err(); the load itself keeps running for the others.
func (r *Registry) Lease(ctx context.Context, kind backend.Kind) (*Handle, error) {
	if r == nil || r.loader == nil {
		return nil, fmt.Errorf("model registry is not initialized")
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown backend kind %q", kind)
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return nil, ErrRegistryClosed
		}
		if e, ok := r.entries[kind]; ok {
			h := r.acquireLocked(e)
			r.mu.Unlock()
			return h, nil
		}
		r.mu.Unlock()

		loadCtx := context.WithoutCancel(ctx)
		ch := r.group.DoChan(string(kind), func() (any, error) {
			return r.load(loadCtx, kind)
		})

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				return nil, res.Err
			}
			e := res.Val.(*entry)

			r.mu.Lock()
			if !r.closed && r.entries[kind] == e {
				h := r.acquireLocked(e)
				r.mu.Unlock()
				return h, nil
			}
			r.mu.Unlock()
			// Evicted or detached before this waiter got a lease; look again.
		}
	}
}

// Release gives a lease back. Releasing nil or an already released handle is
// a no-op.
func (r *Registry) Release(h *Handle) {
	if r == nil || h == nil || h.registry != r {
		return
	}
	if !h.released.CompareAndSwap(false, true) {
		return
	}

	r.mu.Lock()
	e := h.entry
	e.leases--
	e.lastUsed = r.opts.Now()
	closeNow := e.detached && e.leases == 0
	r.mu.Unlock()

	if closeNow {
		r.closeBackend(e, "detached")
	}
}

// Sweep unloads every instance that has no leases and has been idle for at
// least the idle window. It returns the number of instances unloaded.
func (r *Registry) Sweep() int {
	if r == nil {
		return 0
	}
	now := r.opts.Now()

	r.mu.Lock()
	victims := make([]*entry, 0, len(r.entries))
	for kind, e := range r.entries {
		if e.leases > 0 {
			continue
		}
		if now.Sub(e.lastUsed) < r.opts.IdleWindow {
			continue
		}
		delete(r.entries, kind)
		r.evicted[kind]++
		victims = append(victims, e)
	}
	r.mu.Unlock()

	for _, e := range victims {
		r.closeBackend(e, "idle")
	}
	return len(victims)
}

// Run sweeps on the configured interval until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	if r == nil {
		return
	}
	ticker := time.NewTicker(r.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Debug().Int("unloaded", n).Msg("Idle sweep finished")
			}
		}
	}
}

// Loaded reports whether an instance of kind is resident.
func (r *Registry) Loaded(kind backend.Kind) bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[kind]
	return ok
}

// Stats reports both backend kinds in a fixed order.
func (r *Registry) Stats() []BackendStats {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]BackendStats, 0, len(backend.Kinds))
	for _, kind := range backend.Kinds {
		stats := BackendStats{
			Kind:      kind,
			Loads:     r.loads[kind],
			Evictions: r.evicted[kind],
		}
		if e, ok := r.entries[kind]; ok {
			loadedAt, lastUsed := e.loadedAt, e.lastUsed
			stats.Loaded = true
			stats.Leases = e.leases
			stats.LoadedAt = &loadedAt
			stats.LastUsed = &lastUsed
		}
		out = append(out, stats)
	}
	return out
}

// Close unloads idle instances now and the rest on their last release. New
// leases fail with ErrRegistryClosed.
func (r *Registry) Close() error {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	idle := make([]*entry, 0, len(r.entries))
	for kind, e := range r.entries {
		delete(r.entries, kind)
		if e.leases == 0 {
			idle = append(idle, e)
			continue
		}
		e.detached = true
	}
	r.mu.Unlock()

	var errs []error
	for _, e := range idle {
		if err := e.backend.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s backend: %w", e.kind, err))
		}
	}
	return errors.Join(errs...)
}

// Kind reports which backend the handle leases.
func (h *Handle) Kind() backend.Kind {
	if h == nil || h.entry == nil {
		return ""
	}
	return h.entry.kind
}

// Translate runs inference on the leased instance. Instances that are not
// concurrency-safe run one call at a time.
func (h *Handle) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if h == nil || h.entry == nil {
		return "", fmt.Errorf("backend handle is nil")
	}
	if h.released.Load() {
		return "", fmt.Errorf("%s backend handle was already released", h.entry.kind)
	}

	if err := h.entry.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	out, err := h.entry.backend.Translate(ctx, text, sourceLang, targetLang)
	h.entry.sem.Release(1)

	if errors.Is(err, backend.ErrUnavailable) {
		h.registry.detach(h.entry, err)
	}
	return out, err
}

func (r *Registry) acquireLocked(e *entry) *Handle {
	e.leases++
	e.lastUsed = r.opts.Now()
	return &Handle{registry: r, entry: e}
}

func (r *Registry) load(ctx context.Context, kind backend.Kind) (*entry, error) {
	r.mu.Lock()
	if e, ok := r.entries[kind]; ok {
		r.mu.Unlock()
		return e, nil
	}
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.opts.LoadTimeout)
	defer cancel()

	started := globaltime.Now()
	r.logger.Info().Str("backend", kind.String()).Msg("Loading backend")

	b, err := r.loader.Load(ctx, kind)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("backend", kind.String()).
			Dur("elapsed", globaltime.Since(started)).
			Msg("Backend load failed")
		return nil, fmt.Errorf("load %s backend: %w", kind, err)
	}

	weight := int64(1)
	if b.ConcurrencySafe() {
		weight = r.opts.MaxConcurrency
	}
	now := r.opts.Now()
	e := &entry{
		kind:     kind,
		backend:  b,
		sem:      semaphore.NewWeighted(weight),
		loadedAt: now,
		lastUsed: now,
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = b.Close()
		return nil, ErrRegistryClosed
	}
	r.entries[kind] = e
	r.loads[kind]++
	r.mu.Unlock()

	r.logger.Info().
		Str("backend", kind.String()).
		Int64("max_concurrency", weight).
		Dur("elapsed", globaltime.Since(started)).
		Msg("Backend loaded")
	return e, nil
}

// detach removes a failing instance so the next lease reloads it. The
// instance closes once its last lease is released.
func (r *Registry) detach(e *entry, cause error) {
	r.mu.Lock()
	if r.entries[e.kind] != e {
		r.mu.Unlock()
		return
	}
	delete(r.entries, e.kind)
	e.detached = true
	closeNow := e.leases == 0
	r.mu.Unlock()

	r.logger.Warn().Err(cause).Str("backend", e.kind.String()).Msg("Backend became unavailable; detached")
	if closeNow {
		r.closeBackend(e, "detached")
	}
}

func (r *Registry) closeBackend(e *entry, reason string) {
	if err := e.backend.Close(); err != nil {
		r.logger.Warn().Err(err).Str("backend", e.kind.String()).Msg("Backend close failed")
		return
	}
	r.logger.Info().Str("backend", e.kind.String()).Str("reason", reason).Msg("Backend unloaded")
}
