package terminology

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadCSVSupportsBothLayouts(t *testing.T) {
	t.Parallel()

	raw := strings.Join([]string{
		"source_lang,source_term,canonical_english",
		"# architecture",
		"zh,飞扶壁,flying buttress",
		"",
		"ja,ゴシック,Gothic",
	}, "\n")
	entries, err := LoadCSV(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("load csv: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("unexpected entry count: %d", len(entries))
	}
	if entries[0].SourceLang != "zh" || entries[0].CanonicalEnglish != "flying buttress" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}

	entries, err = LoadCSV(strings.NewReader("8k,8k resolution\nhdr, high dynamic range\n"))
	if err != nil {
		t.Fatalf("load two-column csv: %v", err)
	}
	if len(entries) != 2 || entries[0].SourceLang != Wildcard || entries[1].CanonicalEnglish != "high dynamic range" {
		t.Fatalf("unexpected two-column entries: %+v", entries)
	}
}

func TestLoadCSVRejectsBadRows(t *testing.T) {
	t.Parallel()

	if _, err := LoadCSV(strings.NewReader("zh,a,b,c\n")); err == nil {
		t.Fatalf("expected column count error")
	}
	if _, err := LoadCSV(strings.NewReader("zh,,b\n")); err == nil {
		t.Fatalf("expected empty term error")
	}
}

func TestLoadJSONValidatesSchema(t *testing.T) {
	t.Parallel()

	entries, err := LoadJSON([]byte(`{"version":1,"entries":[{"source_term":"穹顶","source_lang":"zh","canonical_english":"dome"},{"source_term":"4k","canonical_english":"4k resolution"}]}`))
	if err != nil {
		t.Fatalf("load json: %v", err)
	}
	if len(entries) != 2 || entries[1].SourceLang != Wildcard {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	invalid := []string{
		`{"entries":[{"source_term":"","canonical_english":"x"}]}`,
		`{"entries":[{"source_term":"a","canonical_english":"x","extra":true}]}`,
		`{"entries":[]} {"entries":[]}`,
		``,
	}
	for _, raw := range invalid {
		if _, err := LoadJSON([]byte(raw)); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestLoadFileAppliesRowsInOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "terms.csv")
	raw := "zh,建筑,building\nzh,建筑,architecture\n"
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write table: %v", err)
	}

	entries, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	table := NewTable()
	if err := table.RegisterAll(entries); err != nil {
		t.Fatalf("register entries: %v", err)
	}
	if got, _ := table.Apply("建筑", "zh"); got != "architecture" {
		t.Fatalf("unexpected overlay result: %q", got)
	}
}

func TestLoadFileRejectsUnknownExtension(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "terms.txt")
	if err := os.WriteFile(path, []byte("a,b"), 0o600); err != nil {
		t.Fatalf("write table: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}
