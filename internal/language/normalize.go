package language

import (
	"strings"

	xlanguage "golang.org/x/text/language"
)

const (
	// Auto asks the engine to run detection.
	Auto = "auto"
	// Unknown is returned when a language cannot be identified.
	Unknown = "und"
	// English is the only supported target language.
	English = "en"
)

// NormalizeTag normalizes a language tag to lowercase and "-" separators.
// Returns an empty string when the value is blank or contains invalid characters.
func NormalizeTag(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}

	trimmed = strings.ReplaceAll(trimmed, "_", "-")
	parts := strings.Split(trimmed, "-")
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !isAlphaLower(part) {
			return ""
		}
		normalized = append(normalized, part)
	}

	if len(normalized) == 0 {
		return ""
	}
	return strings.Join(normalized, "-")
}

// NormalizeCode returns the primary language subtag in its shortest ISO form,
// for example "en" from "en-US", "ja" from "ja_XX" and "zh" from "zho".
func NormalizeCode(raw string) string {
	tag := NormalizeTag(raw)
	if tag == "" {
		return ""
	}
	primary := tag
	if dash := strings.IndexByte(tag, '-'); dash >= 0 {
		primary = tag[:dash]
	}
	if primary == Auto || primary == Unknown {
		return primary
	}
	if len(primary) == 3 {
		if base, err := xlanguage.ParseBase(primary); err == nil {
			return base.String()
		}
	}
	return primary
}

// IsAuto reports whether raw requests language detection.
func IsAuto(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	return trimmed == "" || strings.EqualFold(trimmed, Auto)
}

func isAlphaLower(value string) bool {
	for _, r := range value {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
