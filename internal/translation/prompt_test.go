package translation

import "testing"

func TestNormalizePromptFoldsFullWidthPunctuation(t *testing.T) {
	t.Parallel()

	got := normalizePrompt("红色的猫，（杰作）！【８ｋ】")
	if got != "红色的猫,(杰作)![8k]" {
		t.Fatalf("unexpected normalized prompt: %q", got)
	}
}

func TestSplitPromptMarksOnlyForeignSegmentsInMixedPrompts(t *testing.T) {
	t.Parallel()

	parts := splitPrompt("masterpiece, <lora:gothic_v2:0.8>, 红色的猫 ,8k")
	var translated []string
	for _, part := range parts {
		if part.translate {
			translated = append(translated, part.core())
		}
	}
	if len(translated) != 1 || translated[0] != "红色的猫" {
		t.Fatalf("unexpected translated segments: %q", translated)
	}
	if got := joinParts(parts); got != "masterpiece, <lora:gothic_v2:0.8>, 红色的猫 ,8k" {
		t.Fatalf("split is not lossless: %q", got)
	}
	if got := detectionSample(parts); got != "红色的猫" {
		t.Fatalf("unexpected detection sample: %q", got)
	}
}

func TestSplitPromptTranslatesAllLetterSegmentsInASCIIPrompts(t *testing.T) {
	t.Parallel()

	parts := splitPrompt("chat noir, 1.5, <lora:x>, sous la pluie")
	count := 0
	for _, part := range parts {
		if part.translate {
			count++
		}
	}
	if count != 2 {
		t.Fatalf("unexpected translated segment count: %d", count)
	}
}

func TestSplitPromptKeepsTagCommas(t *testing.T) {
	t.Parallel()

	parts := splitPrompt("<lyco:a,b>猫")
	if len(parts) != 2 || parts[0].text != "<lyco:a,b>" || !parts[1].translate {
		t.Fatalf("unexpected parts: %+v", parts)
	}
}

func TestPostProcessPrompt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		original   string
		translated string
		want       string
	}{
		{original: "(猫)++, 狗", translated: "(cat) ++, dog", want: "(cat)++, dog"},
		{original: "猫+++, 狗+", translated: "cat+, dog++", want: "cat+++, dog+"},
		{original: "猫+++, 狗", translated: "cat, dog", want: "cat, dog"},
	}
	for _, tc := range tests {
		if got := postProcessPrompt(tc.original, tc.translated); got != tc.want {
			t.Fatalf("unexpected post-processed prompt for %q: got %q want %q", tc.original, got, tc.want)
		}
	}
}
