package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestFactoryBreakerOpensAfterRepeatedUnavailableLoads(t *testing.T) {
	t.Parallel()

	var healthy atomic.Bool
	var probes atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		probes.Add(1)
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "model": DefaultFastModel})
	}))
	t.Cleanup(server.Close)

	f := NewFactory(Config{Endpoint: server.URL}, Config{})
	f.FailureThreshold = 2
	f.Cooldown = 50 * time.Millisecond

	for i := 0; i < 2; i++ {
		if _, err := f.Load(context.Background(), KindFast); !errors.Is(err, ErrUnavailable) {
			t.Fatalf("load %d: expected ErrUnavailable, got %v", i+1, err)
		}
	}
	if got := f.BreakerState(KindFast); got != "open" {
		t.Fatalf("unexpected breaker state: %s", got)
	}

	_, err := f.Load(context.Background(), KindFast)
	if !errors.Is(err, ErrUnavailable) || !strings.Contains(err.Error(), "cooling down") {
		t.Fatalf("expected fast failure while open, got %v", err)
	}
	if got := probes.Load(); got != 2 {
		t.Fatalf("unexpected probe count while open: %d", got)
	}
	if got := f.BreakerState(KindHighQuality); got != "closed" {
		t.Fatalf("unexpected high quality breaker state: %s", got)
	}

	healthy.Store(true)
	time.Sleep(80 * time.Millisecond)
	b, err := f.Load(context.Background(), KindFast)
	if err != nil {
		t.Fatalf("unexpected load error after cooldown: %v", err)
	}
	_ = b.Close()
	if got := f.BreakerState(KindFast); got != "closed" {
		t.Fatalf("unexpected breaker state after recovery: %s", got)
	}
}

func TestFactoryBreakerIgnoresCancelledLoads(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewFactory(Config{Endpoint: "http://127.0.0.1:1"}, Config{})
	f.FailureThreshold = 1
	for i := 0; i < 3; i++ {
		_, err := f.Load(ctx, KindFast)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("load %d: expected context.Canceled, got %v", i+1, err)
		}
	}
	if got := f.BreakerState(KindFast); got != "closed" {
		t.Fatalf("unexpected breaker state: %s", got)
	}
}
