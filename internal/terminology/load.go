package terminology

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed terminology.schema.json
var tableSchemaJSON string

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

type tableDocument struct {
	Version int     `json:"version,omitempty"`
	Entries []Entry `json:"entries"`
}

// LoadFile reads a terminology table from a .csv or .json file. Rows are
// returned in file order.
func LoadFile(path string) ([]Entry, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("terminology table path is empty")
	}

	raw, err := os.ReadFile(trimmed)
	if err != nil {
		return nil, fmt.Errorf("read terminology table: %w", err)
	}

	switch strings.ToLower(filepath.Ext(trimmed)) {
	case ".csv":
		entries, err := LoadCSV(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", trimmed, err)
		}
		return entries, nil
	case ".json":
		entries, err := LoadJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", trimmed, err)
		}
		return entries, nil
	default:
		return nil, fmt.Errorf("unsupported terminology table format %q (want .csv or .json)", filepath.Ext(trimmed))
	}
}

// LoadCSV parses rows of either "source_term,canonical_english" (wildcard
// language) or "source_lang,source_term,canonical_english". A header row and
// lines starting with "#" are skipped.
func LoadCSV(r io.Reader) ([]Entry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.Comment = '#'
	reader.TrimLeadingSpace = true

	entries := make([]Entry, 0, 64)
	first := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := reader.FieldPos(0)

		if first {
			first = false
			if isHeaderRecord(record) {
				continue
			}
		}
		if isBlankRecord(record) {
			continue
		}

		var entry Entry
		switch len(record) {
		case 2:
			entry = Entry{SourceLang: Wildcard, SourceTerm: record[0], CanonicalEnglish: record[1]}
		case 3:
			entry = Entry{SourceLang: record[0], SourceTerm: record[1], CanonicalEnglish: record[2]}
		default:
			return nil, fmt.Errorf("line %d: expected 2 or 3 columns, got %d", line, len(record))
		}
		entry.SourceLang = strings.TrimSpace(entry.SourceLang)
		entry.SourceTerm = strings.TrimSpace(entry.SourceTerm)
		entry.CanonicalEnglish = strings.TrimSpace(entry.CanonicalEnglish)
		if entry.SourceTerm == "" || entry.CanonicalEnglish == "" {
			return nil, fmt.Errorf("line %d: source term and english translation must not be empty", line)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// LoadJSON validates raw against the embedded table schema and decodes it.
func LoadJSON(raw []byte) ([]Entry, error) {
	value, err := decodeStrictJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("decode terminology JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var doc tableDocument
	if err := json.Unmarshal(bytes.TrimSpace(raw), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal terminology table: %w", err)
	}
	for i := range doc.Entries {
		if strings.TrimSpace(doc.Entries[i].SourceLang) == "" {
			doc.Entries[i].SourceLang = Wildcard
		}
	}
	return doc.Entries, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		if err := compiler.AddResource("terminology.schema.json", strings.NewReader(tableSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("terminology.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}
		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("table is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("table contains trailing content")
	}
	return value, nil
}

func isHeaderRecord(record []string) bool {
	for _, field := range record {
		switch strings.ToLower(strings.TrimSpace(field)) {
		case "source_term", "canonical_english":
			return true
		}
	}
	return false
}

func isBlankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
