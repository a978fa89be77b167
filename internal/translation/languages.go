package translation

import (
	"sort"
	"strings"

	"horse.fit/prompttranslate/internal/backend"
	"horse.fit/prompttranslate/internal/language"
)

type LanguageOption struct {
	Code     string         `json:"code"`
	Label    string         `json:"label"`
	Native   string         `json:"native,omitempty"`
	Backends []backend.Kind `json:"backends"`
}

// SourceLanguageOptions lists every source language at least one backend
// accepts, with the backends that accept it. English is excluded since it
// always passes through.
func SourceLanguageOptions() []LanguageOption {
	supported := map[string][]backend.Kind{}
	for _, kind := range backend.Kinds {
		for _, code := range backend.Languages(kind) {
			normalized := language.NormalizeCode(code)
			if normalized == "" || normalized == language.English {
				continue
			}
			supported[normalized] = append(supported[normalized], kind)
		}
	}

	codes := make([]string, 0, len(supported))
	for code := range supported {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	options := make([]LanguageOption, 0, len(codes))
	for _, code := range codes {
		label := language.LabelFor(code)
		option := LanguageOption{
			Code:     code,
			Label:    label.English,
			Backends: supported[code],
		}
		if label.English == code {
			option.Label = strings.ToUpper(code)
		} else {
			option.Native = label.Chinese
		}
		options = append(options, option)
	}
	return options
}

// ViewerLanguageOptions prepends the auto-detect choice.
func ViewerLanguageOptions() []LanguageOption {
	options := []LanguageOption{
		{
			Code:     language.Auto,
			Label:    "Detect automatically",
			Backends: append([]backend.Kind(nil), backend.Kinds...),
		},
	}
	return append(options, SourceLanguageOptions()...)
}
