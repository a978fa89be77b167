package translation

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	parenPlusPattern  = regexp.MustCompile(`\)\s*\+\+|\)\+\+\s*`)
	plusRunPattern    = regexp.MustCompile(`\++`)
	punctuationFolder = strings.NewReplacer(
		"，", ",", "。", ".", "！", "!", "？", "?", "；", ";", "：", ":",
		"‘", "'", "’", "'", "“", "\"", "”", "\"",
		"（", "(", "）", ")", "【", "[", "】", "]", "、", ",",
	)
)

// promptPart is one piece of a prompt. Parts with translate set are sent
// through the overlay and a backend; the rest are copied verbatim.
type promptPart struct {
	text      string
	translate bool
	lead      string
	trail     string
}

func (p promptPart) core() string {
	return p.text[len(p.lead) : len(p.text)-len(p.trail)]
}

// normalizePrompt folds full-width punctuation and compatibility forms to
// ASCII so comma splitting sees one delimiter.
func normalizePrompt(text string) string {
	return width.Fold.String(punctuationFolder.Replace(text))
}

// splitPrompt cuts a normalized prompt into <...> tags, commas and comma
// separated segments. When the prompt mixes scripts only the segments that
// carry non-ASCII text are marked for translation.
func splitPrompt(text string) []promptPart {
	mixed := hasNonASCIILetter(text)
	parts := make([]promptPart, 0, 16)

	emitSegments := func(chunk string) {
		for i, segment := range strings.Split(chunk, ",") {
			if i > 0 {
				parts = append(parts, promptPart{text: ","})
			}
			if segment == "" {
				continue
			}
			part := promptPart{text: segment}
			core := strings.TrimSpace(segment)
			if core != "" && hasLetter(core) && (!mixed || !isASCII(core)) {
				start := strings.Index(segment, core)
				part.translate = true
				part.lead = segment[:start]
				part.trail = segment[start+len(core):]
			}
			parts = append(parts, part)
		}
	}

	last := 0
	for _, loc := range tagPattern.FindAllStringIndex(text, -1) {
		if loc[0] > last {
			emitSegments(text[last:loc[0]])
		}
		parts = append(parts, promptPart{text: text[loc[0]:loc[1]]})
		last = loc[1]
	}
	if last < len(text) {
		emitSegments(text[last:])
	}
	return parts
}

// detectionSample joins the segments marked for translation. Tags and plain
// English keywords would otherwise drown out the language being detected.
func detectionSample(parts []promptPart) string {
	var b strings.Builder
	for _, part := range parts {
		if !part.translate {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		b.WriteString(part.core())
	}
	return b.String()
}

func joinParts(parts []promptPart) string {
	var b strings.Builder
	for _, part := range parts {
		b.WriteString(part.text)
	}
	return b.String()
}

// postProcessPrompt tightens ")  ++" emphasis markers and restores runs of
// "+" from the original prompt when the translation kept the same number of
// runs.
func postProcessPrompt(original, translated string) string {
	clean := parenPlusPattern.ReplaceAllString(translated, ")++")
	return matchPluses(original, clean)
}

func matchPluses(original, translated string) string {
	in := plusRunPattern.FindAllStringIndex(original, -1)
	out := plusRunPattern.FindAllStringIndex(translated, -1)
	if len(in) == 0 || len(in) != len(out) {
		return translated
	}

	var b strings.Builder
	pos := 0
	for i := range out {
		b.WriteString(translated[pos:out[i][0]])
		b.WriteString(original[in[i][0]:in[i][1]])
		pos = out[i][1]
	}
	b.WriteString(translated[pos:])
	return b.String()
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > unicode.MaxASCII {
			return false
		}
	}
	return true
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func hasNonASCIILetter(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII && unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
