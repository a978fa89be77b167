package db

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"gorm.io/gorm/logger"

	"horse.fit/prompttranslate/internal/config"
)

func TestResolveGormLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level string
		env   string
		want  logger.LogLevel
	}{
		{level: "debug", want: logger.Info},
		{level: "info", want: logger.Warn},
		{level: "error", want: logger.Error},
		{level: "silent", want: logger.Silent},
		{level: "bogus", env: "local", want: logger.Warn},
		{level: "bogus", env: "production", want: logger.Error},
	}
	for _, tc := range tests {
		if got := resolveGormLogLevel(tc.level, tc.env); got != tc.want {
			t.Fatalf("unexpected gorm level for %q/%q: %v", tc.level, tc.env, got)
		}
	}
}

func TestNewPoolRequiresDatabaseURL(t *testing.T) {
	t.Parallel()

	if _, err := NewPool(context.Background(), &config.Config{}); err == nil {
		t.Fatalf("expected error without DATABASE_URL")
	}
	if _, err := NewPool(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestContentHashIsStable(t *testing.T) {
	t.Parallel()

	a := ContentHash("红色的猫")
	b := ContentHash("红色的猫")
	if !bytes.Equal(a, b) || len(a) != 32 {
		t.Fatalf("unexpected content hash: %x %x", a, b)
	}
	if bytes.Equal(a, ContentHash("红色的狗")) {
		t.Fatalf("expected different prompts to hash differently")
	}
}

func TestNilPoolMethodsFail(t *testing.T) {
	t.Parallel()

	var p *Pool
	ctx := context.Background()
	if _, err := p.ListTranslations(ctx, ListTranslationsParams{}); err == nil {
		t.Fatalf("expected error from nil pool")
	}
	if inserted, err := p.InsertTranslation(ctx, InsertTranslationParams{RequestUUID: "x"}); err == nil || inserted {
		t.Fatalf("unexpected insert result from nil pool: %t %v", inserted, err)
	}
	if _, err := p.GetClientPreference(ctx, "webui-1"); err == nil || errors.Is(err, ErrNoRows) {
		t.Fatalf("expected initialization error from nil pool, got %v", err)
	}
	if err := p.UpsertClientPreference(ctx, ClientPreferenceRow{ClientID: "webui-1"}); err == nil {
		t.Fatalf("expected error from nil pool")
	}
	if err := p.Ping(ctx); err == nil {
		t.Fatalf("expected ping error from nil pool")
	}
	if err := p.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
}

func TestConnLimits(t *testing.T) {
	t.Parallel()

	tests := []struct {
		minConns, maxConns int32
		open, idle         int
	}{
		{minConns: 1, maxConns: 4, open: 4, idle: 1},
		{minConns: 0, maxConns: 0, open: defaultMaxConns, idle: 1},
		{minConns: 6, maxConns: 3, open: 3, idle: 3},
		{minConns: 2, maxConns: 8, open: 8, idle: 2},
	}
	for _, tc := range tests {
		open, idle := connLimits(tc.minConns, tc.maxConns)
		if open != tc.open || idle != tc.idle {
			t.Fatalf("unexpected limits for %d/%d: open=%d idle=%d", tc.minConns, tc.maxConns, open, idle)
		}
	}
}
