package app

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"horse.fit/prompttranslate/internal/cli"
	"horse.fit/prompttranslate/internal/language"
	"horse.fit/prompttranslate/internal/terminology"
)

func runTerms(args []string) int {
	fs := flag.NewFlagSet("terms", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	table := fs.String("table", "", "Terminology table (.csv or .json); overrides TERMINOLOGY_TABLE_PATH")
	lang := fs.String("lang", "", "Only list entries that apply to this source language")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	filterLang := ""
	if strings.TrimSpace(*lang) != "" {
		filterLang = language.NormalizeCode(*lang)
		if filterLang == "" {
			fmt.Fprintln(os.Stderr, "--lang must be a valid language code")
			return 2
		}
	}

	cfg, _, err := loadConfig(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if strings.TrimSpace(*table) != "" {
		cfg.TerminologyTablePath = *table
	}

	terms, err := buildTerms(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid terminology table: %v\n", err)
		return 1
	}

	entries := filterEntries(terms.Entries(), filterLang)
	if err := writeTerms(os.Stdout, entries, outputFormat); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
		return 1
	}
	return 0
}

func filterEntries(entries []terminology.Entry, lang string) []terminology.Entry {
	if lang == "" {
		return entries
	}
	filtered := make([]terminology.Entry, 0, len(entries))
	for _, entry := range entries {
		if entry.SourceLang == lang || entry.SourceLang == terminology.Wildcard {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

func writeTerms(w io.Writer, entries []terminology.Entry, format string) error {
	if format == outputFormatJSON {
		return printJSON(w, map[string]any{
			"total":   len(entries),
			"entries": entries,
		})
	}

	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			entry.SourceLang,
			truncateForTable(entry.SourceTerm, 40),
			truncateForTable(entry.CanonicalEnglish, 60),
		})
	}
	if err := writeTable(w, []string{"LANG", "SOURCE TERM", "ENGLISH"}, rows); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "terms total=%d\n", len(entries))
	return err
}
