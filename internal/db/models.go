package db

import (
	"encoding/json"
	"time"
)

// PromptTranslation maps prompttranslate.prompt_translations.
type PromptTranslation struct {
	TranslationID   int64           `gorm:"column:translation_id;primaryKey;autoIncrement"`
	RequestUUID     string          `gorm:"column:request_uuid;type:uuid;not null;unique"`
	ClientID        *string         `gorm:"column:client_id;type:text"`
	ContentHash     []byte          `gorm:"column:content_hash;type:bytea;not null"`
	OriginalText    string          `gorm:"column:original_text;type:text;not null"`
	TranslatedText  string          `gorm:"column:translated_text;type:text;not null"`
	SourceLang      string          `gorm:"column:source_lang;type:text;not null;default:und"`
	BackendUsed     string          `gorm:"column:backend_used;type:text;not null"`
	Preference      string          `gorm:"column:preference;type:text;not null;default:auto"`
	Passthrough     bool            `gorm:"column:passthrough;type:boolean;not null;default:false"`
	OverriddenTerms json.RawMessage `gorm:"column:overridden_terms;type:jsonb;not null;default:'[]'"`
	LatencyMS       int             `gorm:"column:latency_ms;type:integer;not null;default:0"`
	CreatedAt       time.Time       `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (PromptTranslation) TableName() string { return "prompttranslate.prompt_translations" }

// ClientPreference maps prompttranslate.client_preferences.
type ClientPreference struct {
	ClientID   string    `gorm:"column:client_id;type:text;primaryKey"`
	Preference string    `gorm:"column:preference;type:text;not null;default:auto"`
	SourceLang string    `gorm:"column:source_lang;type:text;not null;default:auto"`
	UpdatedAt  time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (ClientPreference) TableName() string { return "prompttranslate.client_preferences" }

func autoMigrateModels() []any {
	return []any{
		&PromptTranslation{},
		&ClientPreference{},
	}
}
