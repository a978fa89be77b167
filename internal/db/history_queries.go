package db

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// InsertTranslationParams describes one finished translation.
type InsertTranslationParams struct {
	RequestUUID     string
	ClientID        string
	OriginalText    string
	TranslatedText  string
	SourceLang      string
	BackendUsed     string
	Preference      string
	Passthrough     bool
	OverriddenTerms any
	LatencyMS       int
}

// TranslationRow is one history row for API output.
type TranslationRow struct {
	RequestUUID     string          `json:"request_id"`
	ClientID        *string         `json:"client_id,omitempty"`
	OriginalText    string          `json:"original_text"`
	TranslatedText  string          `json:"translated_text"`
	SourceLang      string          `json:"source_lang"`
	BackendUsed     string          `json:"backend_used"`
	Preference      string          `json:"preference"`
	Passthrough     bool            `json:"passthrough"`
	OverriddenTerms json.RawMessage `json:"overridden_terms"`
	LatencyMS       int             `json:"latency_ms"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ListTranslationsParams filters history listings.
type ListTranslationsParams struct {
	ClientID   string
	SourceLang string
	Limit      int
}

// ContentHash fingerprints prompt text for history lookups.
func ContentHash(text string) []byte {
	sum := sha256.Sum256([]byte(text))
	return sum[:]
}

// InsertTranslation records one translation. It reports false when a row
// with the same request id already exists and nothing was written.
func (p *Pool) InsertTranslation(ctx context.Context, row InsertTranslationParams) (bool, error) {
	if err := p.ready(); err != nil {
		return false, err
	}
	terms := []byte("[]")
	if row.OverriddenTerms != nil {
		encoded, err := json.Marshal(row.OverriddenTerms)
		if err != nil {
			return false, fmt.Errorf("encode overridden terms: %w", err)
		}
		if string(encoded) != "null" {
			terms = encoded
		}
	}

	const q = `
INSERT INTO prompttranslate.prompt_translations (
	request_uuid,
	client_id,
	content_hash,
	original_text,
	translated_text,
	source_lang,
	backend_used,
	preference,
	passthrough,
	overridden_terms,
	latency_ms,
	created_at
)
VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11, now())
ON CONFLICT (request_uuid) DO NOTHING
`

	inserted, err := p.exec(
		ctx,
		q,
		strings.TrimSpace(row.RequestUUID),
		nullableString(row.ClientID),
		ContentHash(row.OriginalText),
		row.OriginalText,
		row.TranslatedText,
		row.SourceLang,
		row.BackendUsed,
		row.Preference,
		row.Passthrough,
		string(terms),
		max(0, row.LatencyMS),
	)
	if err != nil {
		return false, fmt.Errorf("insert prompt translation: %w", err)
	}
	return inserted > 0, nil
}

func (p *Pool) ListTranslations(ctx context.Context, params ListTranslationsParams) ([]TranslationRow, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	limit = min(limit, maxHistoryLimit)

	const q = `
SELECT
	t.request_uuid::text,
	t.client_id,
	t.original_text,
	t.translated_text,
	t.source_lang,
	t.backend_used,
	t.preference,
	t.passthrough,
	t.overridden_terms,
	t.latency_ms,
	t.created_at
FROM prompttranslate.prompt_translations t
WHERE ($1 = '' OR t.client_id = $1)
  AND ($2 = '' OR t.source_lang = $2)
ORDER BY t.created_at DESC, t.translation_id DESC
LIMIT $3
`

	rows, err := p.query(ctx, q, strings.TrimSpace(params.ClientID), strings.TrimSpace(params.SourceLang), limit)
	if err != nil {
		return nil, fmt.Errorf("query prompt translations: %w", err)
	}
	defer rows.Close()

	items := make([]TranslationRow, 0, limit)
	for rows.Next() {
		var row TranslationRow
		var terms []byte
		if err := rows.Scan(
			&row.RequestUUID,
			&row.ClientID,
			&row.OriginalText,
			&row.TranslatedText,
			&row.SourceLang,
			&row.BackendUsed,
			&row.Preference,
			&row.Passthrough,
			&terms,
			&row.LatencyMS,
			&row.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan prompt translation row: %w", err)
		}
		row.OverriddenTerms = json.RawMessage(terms)
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prompt translation rows: %w", err)
	}

	return items, nil
}

func nullableString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
