package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"horse.fit/prompttranslate/internal/cli"
	"horse.fit/prompttranslate/internal/db"
	"horse.fit/prompttranslate/internal/language"
)

func runHistory(args []string) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	clientID := fs.String("client", "", "Only list translations recorded for this client id")
	sourceLang := fs.String("source", "", "Only list translations from this source language")
	limit := fs.Int("limit", 20, "Maximum rows to list (1-500)")
	format := fs.String("format", outputFormatTable, "Output format: table or json")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")

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
	if *limit < 1 || *limit > 500 {
		fmt.Fprintln(os.Stderr, "--limit must be between 1 and 500")
		return 2
	}
	params := db.ListTranslationsParams{
		ClientID: strings.TrimSpace(*clientID),
		Limit:    *limit,
	}
	if strings.TrimSpace(*sourceLang) != "" {
		params.SourceLang = language.NormalizeCode(*sourceLang)
		if params.SourceLang == "" {
			fmt.Fprintln(os.Stderr, "--source must be a valid language code")
			return 2
		}
	}

	cfg, logger, err := loadConfig(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if !cfg.HistoryEnabled() {
		fmt.Fprintln(os.Stderr, "history requires DATABASE_URL")
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("history failed to connect to database")
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	rows, err := pool.ListTranslations(ctx, params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list history: %v\n", err)
		return 1
	}
	if err := writeHistory(os.Stdout, rows, outputFormat); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
		return 1
	}
	return 0
}

func writeHistory(w io.Writer, rows []db.TranslationRow, format string) error {
	if format == outputFormatJSON {
		if rows == nil {
			rows = []db.TranslationRow{}
		}
		return printJSON(w, map[string]any{
			"total":        len(rows),
			"translations": rows,
		})
	}

	tableRows := make([][]string, 0, len(rows))
	for _, row := range rows {
		client := ""
		if row.ClientID != nil {
			client = *row.ClientID
		}
		tableRows = append(tableRows, []string{
			formatUTCTimestamp(row.CreatedAt),
			row.SourceLang,
			row.BackendUsed,
			strconv.Itoa(row.LatencyMS) + "ms",
			truncateForTable(client, 16),
			truncateForTable(row.OriginalText, 40),
			truncateForTable(row.TranslatedText, 60),
		})
	}
	return writeTable(w, []string{"CREATED", "LANG", "BACKEND", "LATENCY", "CLIENT", "ORIGINAL", "TRANSLATED"}, tableRows)
}
