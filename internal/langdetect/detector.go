package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"

	"horse.fit/prompttranslate/internal/language"
)

const (
	// DefaultMinConfidence is the lowest lingua confidence accepted as a detection.
	DefaultMinConfidence = 0.5
	// DefaultMinLetters is the minimum letter count worth classifying.
	DefaultMinLetters = 2
	// maxSampleRunes bounds the text handed to lingua.
	maxSampleRunes = 512
)

// Options tunes the detector. Zero values fall back to the defaults above.
type Options struct {
	MinConfidence float64
	MinLetters    int
	// Languages restricts the candidate set. Empty means all lingua languages.
	Languages []lingua.Language
	// HanAsChinese lets Han-only text below the confidence threshold count
	// as Chinese. Off by default: kanji-only Japanese looks the same.
	HanAsChinese bool
}

// Detector guesses the language of prompt text. Detect never fails: low
// confidence yields language.Unknown.
type Detector struct {
	opts Options

	buildOnce sync.Once
	detector  lingua.LanguageDetector
}

func New(opts Options) *Detector {
	if opts.MinConfidence <= 0 {
		opts.MinConfidence = DefaultMinConfidence
	}
	if opts.MinLetters <= 0 {
		opts.MinLetters = DefaultMinLetters
	}
	return &Detector{opts: opts}
}

// Detect returns an ISO 639-1 code or language.Unknown.
func (d *Detector) Detect(text string) string {
	sample := sampleText(text)
	if sample == "" {
		return language.Unknown
	}
	if countLetters(sample) < d.opts.MinLetters {
		return language.Unknown
	}

	values := d.getDetector().ComputeLanguageConfidenceValues(sample)
	if len(values) > 0 && values[0].Value() >= d.opts.MinConfidence {
		if code := isoCode(values[0].Language()); code != "" {
			return code
		}
	}

	if hint := scriptHint(sample, d.opts.HanAsChinese); hint != "" {
		return hint
	}
	return language.Unknown
}

func (d *Detector) getDetector() lingua.LanguageDetector {
	d.buildOnce.Do(func() {
		builder := lingua.NewLanguageDetectorBuilder()
		var configured lingua.LanguageDetectorBuilder
		if len(d.opts.Languages) >= 2 {
			configured = builder.FromLanguages(d.opts.Languages...)
		} else {
			configured = builder.FromAllLanguages()
		}
		d.detector = configured.WithPreloadedLanguageModels().Build()
	})
	return d.detector
}

func isoCode(lang lingua.Language) string {
	code := strings.ToLower(lang.IsoCode639_1().String())
	if len(code) != 2 {
		return ""
	}
	return code
}

// scriptHint resolves scripts that point at one language. Han without kana
// is ambiguous and only read as Chinese when hanAsChinese is set.
func scriptHint(text string, hanAsChinese bool) string {
	var kana, hangul, thai, han int
	for _, r := range text {
		switch {
		case unicode.In(r, unicode.Hiragana, unicode.Katakana):
			kana++
		case unicode.Is(unicode.Han, r):
			han++
		case unicode.Is(unicode.Hangul, r):
			hangul++
		case unicode.Is(unicode.Thai, r):
			thai++
		}
	}
	switch {
	case kana > 0:
		return "ja"
	case hangul > 0:
		return "ko"
	case thai > 0:
		return "th"
	case han > 0 && hanAsChinese:
		return "zh"
	default:
		return ""
	}
}

func sampleText(text string) string {
	trimmed := strings.TrimSpace(text)
	runes := []rune(trimmed)
	if len(runes) > maxSampleRunes {
		return string(runes[:maxSampleRunes])
	}
	return trimmed
}

func countLetters(text string) int {
	count := 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			count++
		}
	}
	return count
}
