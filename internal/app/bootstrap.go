package app

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"horse.fit/prompttranslate/internal/backend"
	"horse.fit/prompttranslate/internal/cli"
	"horse.fit/prompttranslate/internal/config"
	"horse.fit/prompttranslate/internal/langdetect"
	"horse.fit/prompttranslate/internal/logging"
	"horse.fit/prompttranslate/internal/terminology"
	"horse.fit/prompttranslate/internal/translation"
)

// runtime is the wired engine shared by every command.
type runtime struct {
	cfg      *config.Config
	logger   zerolog.Logger
	factory  *backend.Factory
	registry *translation.Registry
	engine   *translation.Engine
}

func loadConfig(envLoader *cli.EnvLoader) (*config.Config, zerolog.Logger, error) {
	envFile := ""
	if envLoader != nil {
		loaded, err := envLoader.Load()
		if err != nil {
			return nil, zerolog.Nop(), fmt.Errorf("failed to load environment: %w", err)
		}
		envFile = loaded
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to initialize logger: %w", err)
	}
	if envFile != "" {
		logger.Debug().Str("env_file", envFile).Msg("Environment loaded")
	}
	return cfg, logger, nil
}

// bootstrap builds the terminology table, backend factory, registry and
// engine from the environment. tablePath overrides TERMINOLOGY_TABLE_PATH.
func bootstrap(envLoader *cli.EnvLoader, tablePath string) (*runtime, error) {
	cfg, logger, err := loadConfig(envLoader)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(tablePath) != "" {
		cfg.TerminologyTablePath = tablePath
	}

	terms, err := buildTerms(cfg)
	if err != nil {
		return nil, err
	}
	logger.Debug().
		Int("entries", terms.Len()).
		Bool("builtin", cfg.EnableBuiltinTerms).
		Str("table", cfg.TerminologyTablePath).
		Msg("Terminology table loaded")

	detector := langdetect.New(langdetect.Options{
		MinConfidence: cfg.DetectMinConfidence,
		MinLetters:    cfg.DetectMinLetters,
		HanAsChinese:  cfg.DetectHanAsChinese,
	})
	factory := cfg.BackendFactory()

	registryOpts := cfg.RegistryOptions()
	registryOpts.Logger = logger
	registry := translation.NewRegistry(factory, registryOpts)

	engineOpts := cfg.EngineOptions()
	engineOpts.Logger = logger
	engine := translation.NewEngine(registry, terms, detector, engineOpts)

	return &runtime{
		cfg:      cfg,
		logger:   logger,
		factory:  factory,
		registry: registry,
		engine:   engine,
	}, nil
}

func (r *runtime) Close() {
	if r == nil || r.registry == nil {
		return
	}
	if err := r.registry.Close(); err != nil {
		r.logger.Warn().Err(err).Msg("closing backends failed")
	}
}

// buildTerms registers the builtin entries first so a user table can
// override any of them.
func buildTerms(cfg *config.Config) (*terminology.Table, error) {
	table := terminology.NewTable()
	if cfg.EnableBuiltinTerms {
		if err := table.RegisterAll(terminology.Builtin()); err != nil {
			return nil, fmt.Errorf("register builtin terminology: %w", err)
		}
	}

	path := strings.TrimSpace(cfg.TerminologyTablePath)
	if path == "" {
		return table, nil
	}
	entries, err := terminology.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load terminology table: %w", err)
	}
	if err := table.RegisterAll(entries); err != nil {
		return nil, fmt.Errorf("register terminology table %s: %w", path, err)
	}
	return table, nil
}
