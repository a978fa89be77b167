package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"horse.fit/prompttranslate/internal/backend"
	"horse.fit/prompttranslate/internal/translation"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	BackendPreference    string `envconfig:"BACKEND_PREFERENCE" default:"auto"`
	IdleUnloadSeconds    int    `envconfig:"IDLE_UNLOAD_SECONDS" default:"300"`
	SweepIntervalSeconds int    `envconfig:"SWEEP_INTERVAL_SECONDS" default:"30"`
	LoadTimeoutSeconds   int    `envconfig:"LOAD_TIMEOUT_SECONDS" default:"180"`
	MaxInferenceConc     int    `envconfig:"MAX_INFERENCE_CONCURRENCY" default:"2"`

	EnablePostOverlay    bool   `envconfig:"ENABLE_POST_OVERLAY" default:"true"`
	TerminologyTablePath string `envconfig:"TERMINOLOGY_TABLE_PATH" default:""`
	EnableBuiltinTerms   bool   `envconfig:"ENABLE_BUILTIN_TERMS" default:"true"`

	DetectMinConfidence float64 `envconfig:"DETECT_MIN_CONFIDENCE" default:"0.5"`
	DetectMinLetters    int     `envconfig:"DETECT_MIN_LETTERS" default:"2"`
	DetectHanAsChinese  bool    `envconfig:"DETECT_HAN_AS_CHINESE" default:"false"`
	AutoHQMinTerms      int     `envconfig:"AUTO_HQ_MIN_TERMS" default:"1"`
	AutoHQMinRunes      int     `envconfig:"AUTO_HQ_MIN_RUNES" default:"160"`

	FastBackendEndpoint string `envconfig:"FAST_BACKEND_ENDPOINT" default:"http://127.0.0.1:8846"`
	FastBackendModel    string `envconfig:"FAST_BACKEND_MODEL" default:"facebook/mbart-large-50-many-to-many-mmt"`
	FastModelDir        string `envconfig:"FAST_MODEL_DIR" default:""`
	FastMaxInputRunes   int    `envconfig:"FAST_MAX_INPUT_RUNES" default:"1024"`

	QualityBackendEndpoint string `envconfig:"QUALITY_BACKEND_ENDPOINT" default:"http://127.0.0.1:8845/v1"`
	QualityBackendModel    string `envconfig:"QUALITY_BACKEND_MODEL" default:"tencent/HY-MT1.5-7B"`
	QualityModelDir        string `envconfig:"QUALITY_MODEL_DIR" default:""`
	QualityMaxInputRunes   int    `envconfig:"QUALITY_MAX_INPUT_RUNES" default:"4096"`

	BackendFailureThreshold int `envconfig:"BACKEND_FAILURE_THRESHOLD" default:"3"`
	BackendCooldownSeconds  int `envconfig:"BACKEND_COOLDOWN_SECONDS" default:"30"`

	DatabaseURL string `envconfig:"DATABASE_URL" default:""`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"4"`

	HTTPRequestTimeoutSeconds int    `envconfig:"HTTP_REQUEST_TIMEOUT_SECONDS" default:"120"`
	CORSAllowedOrigins        string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if _, err := translation.ParsePreference(c.BackendPreference); err != nil {
		return fmt.Errorf("BACKEND_PREFERENCE: %w", err)
	}
	if c.IdleUnloadSeconds < 1 {
		return fmt.Errorf("IDLE_UNLOAD_SECONDS must be >= 1")
	}
	if c.SweepIntervalSeconds < 1 {
		return fmt.Errorf("SWEEP_INTERVAL_SECONDS must be >= 1")
	}
	if c.LoadTimeoutSeconds < 1 {
		return fmt.Errorf("LOAD_TIMEOUT_SECONDS must be >= 1")
	}
	if c.MaxInferenceConc < 1 {
		return fmt.Errorf("MAX_INFERENCE_CONCURRENCY must be >= 1")
	}
	if c.DetectMinConfidence < 0 || c.DetectMinConfidence > 1 {
		return fmt.Errorf("DETECT_MIN_CONFIDENCE must be between 0 and 1")
	}
	if c.DetectMinLetters < 1 {
		return fmt.Errorf("DETECT_MIN_LETTERS must be >= 1")
	}
	if c.AutoHQMinTerms < 0 {
		return fmt.Errorf("AUTO_HQ_MIN_TERMS must be >= 0")
	}
	if c.AutoHQMinRunes < 0 {
		return fmt.Errorf("AUTO_HQ_MIN_RUNES must be >= 0")
	}
	if c.FastMaxInputRunes < 1 {
		return fmt.Errorf("FAST_MAX_INPUT_RUNES must be >= 1")
	}
	if c.QualityMaxInputRunes < 1 {
		return fmt.Errorf("QUALITY_MAX_INPUT_RUNES must be >= 1")
	}
	if err := validateLoopback("FAST_BACKEND_ENDPOINT", c.FastBackendEndpoint); err != nil {
		return err
	}
	if err := validateLoopback("QUALITY_BACKEND_ENDPOINT", c.QualityBackendEndpoint); err != nil {
		return err
	}
	if c.BackendFailureThreshold < 1 {
		return fmt.Errorf("BACKEND_FAILURE_THRESHOLD must be >= 1")
	}
	if c.BackendCooldownSeconds < 1 {
		return fmt.Errorf("BACKEND_COOLDOWN_SECONDS must be >= 1")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) cannot exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.HTTPRequestTimeoutSeconds < 1 {
		return fmt.Errorf("HTTP_REQUEST_TIMEOUT_SECONDS must be >= 1")
	}
	return nil
}

// Preference returns the validated default backend preference.
func (c *Config) Preference() translation.Preference {
	pref, err := translation.ParsePreference(c.BackendPreference)
	if err != nil {
		return translation.PreferenceAuto
	}
	return pref
}

// HistoryEnabled reports whether a database is configured.
func (c *Config) HistoryEnabled() bool {
	return c != nil && strings.TrimSpace(c.DatabaseURL) != ""
}

func (c *Config) FastBackend() backend.Config {
	return backend.Config{
		Endpoint:      c.FastBackendEndpoint,
		Model:         c.FastBackendModel,
		ModelDir:      c.FastModelDir,
		MaxInputRunes: c.FastMaxInputRunes,
		Timeout:       c.RequestTimeout(),
	}
}

func (c *Config) QualityBackend() backend.Config {
	return backend.Config{
		Endpoint:      c.QualityBackendEndpoint,
		Model:         c.QualityBackendModel,
		ModelDir:      c.QualityModelDir,
		MaxInputRunes: c.QualityMaxInputRunes,
		Timeout:       c.RequestTimeout(),
	}
}

// BackendFactory builds the backend factory with its load circuit breakers.
func (c *Config) BackendFactory() *backend.Factory {
	factory := backend.NewFactory(c.FastBackend(), c.QualityBackend())
	factory.FailureThreshold = uint32(c.BackendFailureThreshold)
	factory.Cooldown = time.Duration(c.BackendCooldownSeconds) * time.Second
	return factory
}

func (c *Config) RegistryOptions() translation.RegistryOptions {
	return translation.RegistryOptions{
		IdleWindow:     time.Duration(c.IdleUnloadSeconds) * time.Second,
		SweepInterval:  time.Duration(c.SweepIntervalSeconds) * time.Second,
		LoadTimeout:    time.Duration(c.LoadTimeoutSeconds) * time.Second,
		MaxConcurrency: int64(c.MaxInferenceConc),
	}
}

func (c *Config) EngineOptions() translation.EngineOptions {
	return translation.EngineOptions{
		DefaultPreference: c.Preference(),
		PostOverlay:       c.EnablePostOverlay,
		AutoMinTerms:      c.AutoHQMinTerms,
		AutoMinRunes:      c.AutoHQMinRunes,
	}
}

func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil {
		return nil
	}

	parts := strings.Split(c.CORSAllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		if _, exists := seen[origin]; exists {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	return origins
}

// RequestTimeout bounds one backend call and one API translate request.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTPRequestTimeoutSeconds) * time.Second
}

// validateLoopback rejects endpoints that would leave the machine.
func validateLoopback(name, raw string) error {
	endpoint := strings.TrimSpace(raw)
	if endpoint == "" {
		return fmt.Errorf("%s is required", name)
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	host := parsed.Hostname()
	if strings.EqualFold(host, "localhost") {
		return nil
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("%s must point to a loopback address, got %q", name, host)
	}
	return nil
}
