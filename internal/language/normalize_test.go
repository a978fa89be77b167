package language

import "testing"

func TestNormalizeTag(t *testing.T) {
	t.Parallel()

	if got := NormalizeTag(" EN_us "); got != "en-us" {
		t.Fatalf("unexpected normalized tag: %q", got)
	}
	if got := NormalizeTag("zh-Hans"); got != "zh-hans" {
		t.Fatalf("unexpected normalized tag: %q", got)
	}
	if got := NormalizeTag("ja__XX"); got != "ja-xx" {
		t.Fatalf("unexpected collapsed tag: %q", got)
	}
	if got := NormalizeTag("en_123"); got != "" {
		t.Fatalf("expected invalid tag to normalize to empty string, got %q", got)
	}
}

func TestNormalizeCode(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		" EN-us ": "en",
		"zh":      "zh",
		"ja_XX":   "ja",
		"jpn":     "ja",
		"zho":     "zh",
		"AUTO":    "auto",
		"und":     "und",
		" ":       "",
	}
	for input, want := range cases {
		if got := NormalizeCode(input); got != want {
			t.Fatalf("NormalizeCode(%q): got %q want %q", input, got, want)
		}
	}
}

func TestIsAuto(t *testing.T) {
	t.Parallel()

	if !IsAuto("") || !IsAuto("Auto") {
		t.Fatalf("expected blank and auto to request detection")
	}
	if IsAuto("ja") || IsAuto("x1") {
		t.Fatalf("did not expect explicit language to request detection")
	}
}
