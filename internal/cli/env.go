package cli

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// EnvFileVar names an env file that wins over every other source.
	EnvFileVar = "PROMPTTRANSLATE_ENV_FILE"
	// legacyEnvFileVar is the shared override older hosts still set.
	legacyEnvFileVar = "HORSE_ENV_FILE"

	userConfigDirName  = "prompttranslate"
	userConfigFileName = "env"
)

// EnvLoader loads settings from .env files. Sources, first match wins:
//   - PROMPTTRANSLATE_ENV_FILE, then HORSE_ENV_FILE
//   - the --env flag when given on the command line
//   - the default path (./.env)
//   - <user config dir>/prompttranslate/env
//
// Only the first two are required to exist.
type EnvLoader struct {
	flags       *flag.FlagSet
	value       *string
	defaultPath string
	configDir   func() (string, error)
}

// AddEnvFlag registers an --env flag and returns an EnvLoader.
func AddEnvFlag(flags *flag.FlagSet, defaultPath, description string) *EnvLoader {
	if flags == nil {
		flags = flag.CommandLine
	}
	if defaultPath == "" {
		defaultPath = ".env"
	}
	if description == "" {
		description = "Path to the .env file"
	}

	return &EnvLoader{
		flags:       flags,
		value:       flags.String("env", defaultPath, description),
		defaultPath: defaultPath,
		configDir:   os.UserConfigDir,
	}
}

// Load applies the first env file found and returns its path. It returns an
// empty path and no error when no optional source exists.
func (l *EnvLoader) Load() (string, error) {
	if l == nil {
		return "", fmt.Errorf("env loader is nil")
	}

	for _, envVar := range []string{EnvFileVar, legacyEnvFileVar} {
		custom := strings.TrimSpace(os.Getenv(envVar))
		if custom == "" {
			continue
		}
		if err := godotenv.Overload(custom); err != nil {
			return "", fmt.Errorf("load %s=%s: %w", envVar, custom, err)
		}
		return custom, nil
	}

	if requested, ok := l.requested(); ok {
		if err := godotenv.Overload(requested); err != nil {
			return "", fmt.Errorf("load env file %s: %w", requested, err)
		}
		return requested, nil
	}

	for _, candidate := range l.optionalPaths() {
		err := godotenv.Overload(candidate)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("load env file %s: %w", candidate, err)
		}
	}
	return "", nil
}

// requested reports the --env value when it was set on the command line.
func (l *EnvLoader) requested() (string, bool) {
	if l.flags == nil || l.value == nil {
		return "", false
	}
	set := false
	l.flags.Visit(func(f *flag.Flag) {
		if f.Name == "env" {
			set = true
		}
	})
	path := strings.TrimSpace(*l.value)
	return path, set && path != ""
}

func (l *EnvLoader) optionalPaths() []string {
	paths := []string{l.defaultPath}
	if l.configDir == nil {
		return paths
	}
	if dir, err := l.configDir(); err == nil && strings.TrimSpace(dir) != "" {
		paths = append(paths, filepath.Join(dir, userConfigDirName, userConfigFileName))
	}
	return paths
}
