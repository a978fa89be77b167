package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"horse.fit/prompttranslate/internal/language"
)

// Kind selects one of the fixed backend implementations.
type Kind string

const (
	KindFast        Kind = "fast"
	KindHighQuality Kind = "high_quality"
)

// Kinds lists every backend kind in preference order for probing.
var Kinds = []Kind{KindFast, KindHighQuality}

var (
	// ErrUnavailable reports that a model could not be loaded or its runtime
	// stopped answering.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrInference reports that a loaded model failed to produce a translation.
	ErrInference = errors.New("inference error")
)

const defaultRequestTimeout = 120 * time.Second

// Backend is a loaded translation model.
type Backend interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
	// ConcurrencySafe reports whether Translate may run concurrently on one instance.
	ConcurrencySafe() bool
	Close() error
}

// Config describes how to reach one on-device model runtime.
type Config struct {
	Endpoint      string
	Model         string
	ModelDir      string
	MaxInputRunes int
	Timeout       time.Duration
}

func (k Kind) String() string {
	return string(k)
}

func (k Kind) Valid() bool {
	return k == KindFast || k == KindHighQuality
}

// Alternate returns the other backend kind.
func (k Kind) Alternate() Kind {
	if k == KindFast {
		return KindHighQuality
	}
	return KindFast
}

// ParseKind accepts the canonical kind names plus short aliases.
func ParseKind(raw string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "fast", "mbart":
		return KindFast, nil
	case "high_quality", "high-quality", "hq", "quality":
		return KindHighQuality, nil
	default:
		return "", fmt.Errorf("unknown backend %q (want fast or high_quality)", raw)
	}
}

// Supports reports whether kind can translate from lang.
func Supports(kind Kind, lang string) bool {
	code := language.NormalizeCode(lang)
	switch kind {
	case KindFast:
		_, ok := language.MBartCode(code)
		return ok
	case KindHighQuality:
		_, ok := hymtLanguages[code]
		return ok
	default:
		return false
	}
}

// Languages lists the source languages kind accepts.
func Languages(kind Kind) []string {
	switch kind {
	case KindFast:
		return language.MBartLanguages()
	case KindHighQuality:
		codes := make([]string, 0, len(hymtLanguages))
		for code := range hymtLanguages {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		return codes
	default:
		return nil
	}
}

// HY-MT1.5 language coverage (ISO 639-1 where one exists).
var hymtLanguages = map[string]struct{}{
	"ar": {}, "bn": {}, "bo": {}, "cs": {}, "de": {}, "en": {}, "es": {},
	"fa": {}, "fr": {}, "gu": {}, "he": {}, "hi": {}, "id": {}, "it": {},
	"ja": {}, "kk": {}, "km": {}, "ko": {}, "mn": {}, "mr": {}, "ms": {},
	"my": {}, "nl": {}, "pl": {}, "pt": {}, "ru": {}, "ta": {}, "te": {},
	"th": {}, "tl": {}, "tr": {}, "ug": {}, "uk": {}, "ur": {}, "vi": {},
	"yue": {}, "zh": {},
}

func unavailablef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUnavailable, fmt.Sprintf(format, args...))
}

func inferencef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInference, fmt.Sprintf(format, args...))
}

// checkModelDir verifies that a configured model directory exists and is not
// empty. An empty path skips the check.
func checkModelDir(path string) error {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil
	}
	info, err := os.Stat(trimmed)
	if err != nil {
		return unavailablef("model directory %s: %v", trimmed, err)
	}
	if !info.IsDir() {
		return unavailablef("model path %s is not a directory", trimmed)
	}
	entries, err := os.ReadDir(trimmed)
	if err != nil {
		return unavailablef("read model directory %s: %v", trimmed, err)
	}
	if len(entries) == 0 {
		return unavailablef("model directory %s is empty", trimmed)
	}
	return nil
}

// checkInput applies the shared pre-inference validation.
func checkInput(text string, maxRunes int) error {
	if strings.TrimSpace(text) == "" {
		return inferencef("text is empty")
	}
	if maxRunes > 0 {
		if n := len([]rune(text)); n > maxRunes {
			return inferencef("input has %d runes, limit is %d", n, maxRunes)
		}
	}
	return nil
}

// contextErr returns the caller's cancellation error when ctx is done.
func contextErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

func requestTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return defaultRequestTimeout
	}
	return d
}
