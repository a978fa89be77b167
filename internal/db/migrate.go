package db

import (
	"context"
	"fmt"
	"strings"
)

const preAutoMigrateSQL = `CREATE SCHEMA IF NOT EXISTS prompttranslate`

const postAutoMigrateSQL = `
CREATE INDEX IF NOT EXISTS prompt_translations_created_at_idx
	ON prompttranslate.prompt_translations (created_at DESC);
CREATE INDEX IF NOT EXISTS prompt_translations_content_hash_idx
	ON prompttranslate.prompt_translations (content_hash);
`

func (p *Pool) autoMigrate(ctx context.Context) error {
	if p == nil || p.gdb == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	if err := executeMigrationSQL(ctx, p, "pre-auto-migrate", preAutoMigrateSQL); err != nil {
		return err
	}

	if err := p.gdb.WithContext(ctx).AutoMigrate(autoMigrateModels()...); err != nil {
		return fmt.Errorf("gorm auto-migrate models: %w", err)
	}

	if err := executeMigrationSQL(ctx, p, "post-auto-migrate", postAutoMigrateSQL); err != nil {
		return err
	}

	return nil
}

func executeMigrationSQL(ctx context.Context, p *Pool, label, sqlText string) error {
	trimmed := strings.TrimSpace(sqlText)
	if trimmed == "" {
		return nil
	}
	if _, err := p.exec(ctx, trimmed); err != nil {
		return fmt.Errorf("execute %s SQL: %w", label, err)
	}
	return nil
}
