package db

import (
	"context"
	"fmt"
	"strings"
)

// ClientPreferenceRow is the stored backend choice for one host client.
type ClientPreferenceRow struct {
	ClientID   string `json:"client_id"`
	Preference string `json:"backend_preference"`
	SourceLang string `json:"source_lang"`
}

func (p *Pool) GetClientPreference(ctx context.Context, clientID string) (ClientPreferenceRow, error) {
	if err := p.ready(); err != nil {
		return ClientPreferenceRow{}, err
	}
	const q = `
SELECT
	cp.client_id,
	cp.preference,
	cp.source_lang
FROM prompttranslate.client_preferences cp
WHERE cp.client_id = $1
LIMIT 1
`

	var row ClientPreferenceRow
	err := p.queryRow(ctx, q, strings.TrimSpace(clientID)).Scan(
		&row.ClientID,
		&row.Preference,
		&row.SourceLang,
	)
	if err != nil {
		if isNoRows(err) {
			return ClientPreferenceRow{}, ErrNoRows
		}
		return ClientPreferenceRow{}, fmt.Errorf("query client preference: %w", err)
	}
	return row, nil
}

func (p *Pool) UpsertClientPreference(ctx context.Context, row ClientPreferenceRow) error {
	if err := p.ready(); err != nil {
		return err
	}
	clientID := strings.TrimSpace(row.ClientID)
	if clientID == "" {
		return fmt.Errorf("client id is required")
	}

	const q = `
INSERT INTO prompttranslate.client_preferences (
	client_id,
	preference,
	source_lang,
	updated_at
)
VALUES ($1, $2, $3, now())
ON CONFLICT (client_id)
DO UPDATE SET
	preference = EXCLUDED.preference,
	source_lang = EXCLUDED.source_lang,
	updated_at = now()
`

	if _, err := p.exec(ctx, q, clientID, row.Preference, row.SourceLang); err != nil {
		return fmt.Errorf("upsert client preference: %w", err)
	}
	return nil
}
