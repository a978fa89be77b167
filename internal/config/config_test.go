package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"horse.fit/prompttranslate/internal/translation"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"BACKEND_PREFERENCE", "IDLE_UNLOAD_SECONDS", "ENABLE_POST_OVERLAY",
		"BACKEND_FAILURE_THRESHOLD", "BACKEND_COOLDOWN_SECONDS",
		"FAST_BACKEND_ENDPOINT", "QUALITY_BACKEND_ENDPOINT", "DATABASE_URL",
		"DETECT_HAN_AS_CHINESE",
	} {
		unsetEnv(t, key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Preference() != translation.PreferenceAuto {
		t.Fatalf("unexpected default preference: %s", cfg.Preference())
	}
	if got := cfg.RegistryOptions().IdleWindow; got != 300*time.Second {
		t.Fatalf("unexpected idle window: %s", got)
	}
	if !cfg.EnablePostOverlay || !cfg.EnableBuiltinTerms {
		t.Fatalf("expected overlays enabled by default")
	}
	if cfg.HistoryEnabled() {
		t.Fatalf("did not expect history without DATABASE_URL")
	}
	if cfg.DetectHanAsChinese {
		t.Fatalf("expected Han hint disabled by default")
	}
	if cfg.FastBackend().MaxInputRunes != 1024 || cfg.QualityBackend().Model != "tencent/HY-MT1.5-7B" {
		t.Fatalf("unexpected backend defaults: %+v %+v", cfg.FastBackend(), cfg.QualityBackend())
	}
	factory := cfg.BackendFactory()
	if factory.FailureThreshold != 3 || factory.Cooldown != 30*time.Second {
		t.Fatalf("unexpected breaker defaults: %d %s", factory.FailureThreshold, factory.Cooldown)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BACKEND_PREFERENCE", "hq")
	t.Setenv("IDLE_UNLOAD_SECONDS", "60")
	t.Setenv("ENABLE_POST_OVERLAY", "false")
	t.Setenv("DETECT_HAN_AS_CHINESE", "true")
	unsetEnv(t, "FAST_BACKEND_ENDPOINT")
	unsetEnv(t, "QUALITY_BACKEND_ENDPOINT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Preference() != translation.PreferenceHighQuality {
		t.Fatalf("unexpected preference: %s", cfg.Preference())
	}
	if cfg.EngineOptions().PostOverlay {
		t.Fatalf("expected post overlay disabled")
	}
	if got := cfg.RegistryOptions().IdleWindow; got != time.Minute {
		t.Fatalf("unexpected idle window: %s", got)
	}
	if !cfg.DetectHanAsChinese {
		t.Fatalf("expected Han hint enabled")
	}
}

func TestValidateRejectsRemoteEndpoints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		endpoint string
		ok       bool
	}{
		{endpoint: "http://127.0.0.1:8845/v1", ok: true},
		{endpoint: "localhost:8846", ok: true},
		{endpoint: "http://[::1]:8846", ok: true},
		{endpoint: "https://api.openai.com/v1", ok: false},
		{endpoint: "http://10.0.0.4:8845", ok: false},
	}
	for _, tc := range tests {
		cfg := validConfig()
		cfg.QualityBackendEndpoint = tc.endpoint
		err := cfg.Validate()
		if tc.ok && err != nil {
			t.Fatalf("unexpected error for %q: %v", tc.endpoint, err)
		}
		if !tc.ok && (err == nil || !strings.Contains(err.Error(), "loopback")) {
			t.Fatalf("expected loopback error for %q, got %v", tc.endpoint, err)
		}
	}
}

func TestValidateRanges(t *testing.T) {
	t.Parallel()

	mutations := map[string]func(*Config){
		"preference":  func(c *Config) { c.BackendPreference = "fastest" },
		"idle":        func(c *Config) { c.IdleUnloadSeconds = 0 },
		"confidence":  func(c *Config) { c.DetectMinConfidence = 1.5 },
		"concurrency": func(c *Config) { c.MaxInferenceConc = 0 },
		"db conns":    func(c *Config) { c.DBMinConns = 5; c.DBMaxConns = 2 },
		"threshold":   func(c *Config) { c.BackendFailureThreshold = 0 },
		"cooldown":    func(c *Config) { c.BackendCooldownSeconds = 0 },
	}
	for name, mutate := range mutations {
		cfg := validConfig()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestCORSAllowedOriginsList(t *testing.T) {
	t.Parallel()

	cfg := Config{CORSAllowedOrigins: " http://localhost:5173, ,http://localhost:5173,http://127.0.0.1:7860"}
	got := cfg.CORSAllowedOriginsList()
	if len(got) != 2 || got[1] != "http://127.0.0.1:7860" {
		t.Fatalf("unexpected origins: %q", got)
	}
}

func validConfig() Config {
	return Config{
		Environment:               "local",
		LogLevel:                  "info",
		BackendPreference:         "auto",
		IdleUnloadSeconds:         300,
		SweepIntervalSeconds:      30,
		LoadTimeoutSeconds:        180,
		MaxInferenceConc:          2,
		DetectMinConfidence:       0.5,
		DetectMinLetters:          2,
		AutoHQMinTerms:            1,
		AutoHQMinRunes:            160,
		FastBackendEndpoint:       "http://127.0.0.1:8846",
		FastMaxInputRunes:         1024,
		QualityBackendEndpoint:    "http://127.0.0.1:8845/v1",
		QualityMaxInputRunes:      4096,
		BackendFailureThreshold:   3,
		BackendCooldownSeconds:    30,
		DBMinConns:                1,
		DBMaxConns:                4,
		HTTPRequestTimeoutSeconds: 120,
	}
}

// unsetEnv removes key for the duration of the test so envconfig applies the
// default.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unset %s: %v", key, err)
	}
}
