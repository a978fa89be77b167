package language

import "testing"

func TestMBartCode(t *testing.T) {
	t.Parallel()

	if got, ok := MBartCode("JA"); !ok || got != "ja_XX" {
		t.Fatalf("unexpected mbart code for ja: %q ok=%t", got, ok)
	}
	if got, ok := MBartCode("zh-Hant"); !ok || got != "zh_CN" {
		t.Fatalf("unexpected mbart code for zh-Hant: %q ok=%t", got, ok)
	}
	if _, ok := MBartCode("qq"); ok {
		t.Fatalf("did not expect mbart code for unknown language")
	}
}

func TestLabelFor(t *testing.T) {
	t.Parallel()

	if got := LabelFor("de").English; got != "German" {
		t.Fatalf("unexpected label: %q", got)
	}
	if got := LabelFor("xx").English; got != "xx" {
		t.Fatalf("expected unknown code to echo, got %q", got)
	}
}
