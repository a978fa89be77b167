package translation

import (
	"fmt"
	"strings"
	"time"

	"horse.fit/prompttranslate/internal/backend"
	"horse.fit/prompttranslate/internal/terminology"
)

// BackendNone marks a result that never reached a backend.
const BackendNone = "none"

// Preference is the caller's backend choice.
type Preference string

const (
	PreferenceAuto        Preference = "auto"
	PreferenceFast        Preference = "fast"
	PreferenceHighQuality Preference = "high_quality"
)

// ParsePreference accepts the canonical names plus short aliases. Empty
// input means auto.
func ParsePreference(raw string) (Preference, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "auto":
		return PreferenceAuto, nil
	case "fast":
		return PreferenceFast, nil
	case "high_quality", "high-quality", "hq", "quality":
		return PreferenceHighQuality, nil
	default:
		return "", fmt.Errorf("unknown backend preference %q (want auto, fast or high_quality)", raw)
	}
}

func (p Preference) String() string {
	return string(p)
}

// Kind maps an explicit preference to its backend kind. Auto has none.
func (p Preference) Kind() (backend.Kind, bool) {
	switch p {
	case PreferenceFast:
		return backend.KindFast, true
	case PreferenceHighQuality:
		return backend.KindHighQuality, true
	default:
		return "", false
	}
}

// Request describes one prompt translation.
type Request struct {
	Text       string
	SourceLang string // ISO 639-1, empty or "auto" to detect
	TargetLang string // only "en"
	Preference Preference
}

// Result is the immutable outcome of a successful translation.
type Result struct {
	RequestID       string              `json:"request_id"`
	Text            string              `json:"text"`
	SourceLang      string              `json:"source_lang"`
	BackendUsed     string              `json:"backend_used"`
	OverriddenTerms []terminology.Entry `json:"overridden_terms"`
	Passthrough     bool                `json:"passthrough"`
	Latency         time.Duration       `json:"latency_ns"`
}
