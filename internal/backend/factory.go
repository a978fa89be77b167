package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

const (
	DefaultFailureThreshold = 3
	DefaultCooldown         = 30 * time.Second
)

// Factory builds backend instances from configuration. The model registry is
// its only caller.
//
// Each kind has a circuit breaker around loading: after FailureThreshold
// consecutive unavailable loads, further loads fail fast with ErrUnavailable
// until Cooldown has passed and one trial load succeeds.
type Factory struct {
	Fast    Config
	Quality Config

	FailureThreshold uint32
	Cooldown         time.Duration

	mu       sync.Mutex
	breakers map[Kind]*gobreaker.CircuitBreaker
}

func NewFactory(fast, quality Config) *Factory {
	return &Factory{
		Fast:             fast,
		Quality:          quality,
		FailureThreshold: DefaultFailureThreshold,
		Cooldown:         DefaultCooldown,
	}
}

// Load constructs and probes the backend for kind.
func (f *Factory) Load(ctx context.Context, kind Kind) (Backend, error) {
	if f == nil {
		return nil, fmt.Errorf("backend factory is nil")
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown backend kind %q", kind)
	}

	out, err := f.breaker(kind).Execute(func() (interface{}, error) {
		return f.load(ctx, kind)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, unavailablef("%s backend is cooling down after repeated load failures (%v)", kind, err)
		}
		return nil, err
	}
	b, ok := out.(Backend)
	if !ok || b == nil {
		return nil, unavailablef("%s backend loader returned no instance", kind)
	}
	return b, nil
}

// BreakerState reports the load circuit state for kind.
func (f *Factory) BreakerState(kind Kind) string {
	if f == nil || !kind.Valid() {
		return ""
	}
	return f.breaker(kind).State().String()
}

func (f *Factory) load(ctx context.Context, kind Kind) (Backend, error) {
	switch kind {
	case KindFast:
		b, err := LoadSeq2Seq(ctx, f.Fast)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		b, err := LoadChat(ctx, f.Quality)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}

func (f *Factory) breaker(kind Kind) *gobreaker.CircuitBreaker {
	f.mu.Lock()
	defer f.mu.Unlock()

	if cb, ok := f.breakers[kind]; ok {
		return cb
	}
	if f.breakers == nil {
		f.breakers = make(map[Kind]*gobreaker.CircuitBreaker, len(Kinds))
	}

	threshold := f.FailureThreshold
	if threshold == 0 {
		threshold = DefaultFailureThreshold
	}
	cooldown := f.Cooldown
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        string(kind),
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Only unavailable loads count against the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, ErrUnavailable)
		},
	})
	f.breakers[kind] = cb
	return cb
}

// ModelName reports the model identifier configured for kind.
func (f *Factory) ModelName(kind Kind) string {
	if f == nil {
		return ""
	}
	switch kind {
	case KindFast:
		if f.Fast.Model != "" {
			return f.Fast.Model
		}
		return DefaultFastModel
	case KindHighQuality:
		if f.Quality.Model != "" {
			return f.Quality.Model
		}
		return DefaultQualityModel
	default:
		return ""
	}
}
