package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"horse.fit/prompttranslate/internal/backend"
	"horse.fit/prompttranslate/internal/cli"
	"horse.fit/prompttranslate/internal/globaltime"
	"horse.fit/prompttranslate/internal/translation"
)

type probeResult struct {
	Kind     backend.Kind
	Model    string
	Duration time.Duration
	Err      error
}

func runProbe(args []string) int {
	fs := flag.NewFlagSet("probe", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	backendFlag := fs.String("backend", "all", "Backend to probe: all, fast or high_quality")
	timeout := fs.Duration("timeout", 5*time.Minute, "Command timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	kinds, err := parseProbeKinds(*backendFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	rt, err := bootstrap(envLoader, "")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer rt.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	results := probeBackends(ctx, rt.registry, rt.factory, kinds)
	if writeProbeResults(os.Stdout, results) {
		return 1
	}
	return 0
}

func parseProbeKinds(raw string) ([]backend.Kind, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" || trimmed == "all" {
		return append([]backend.Kind(nil), backend.Kinds...), nil
	}
	kind, err := backend.ParseKind(trimmed)
	if err != nil {
		return nil, fmt.Errorf("--backend: %w", err)
	}
	return []backend.Kind{kind}, nil
}

// probeBackends leases each kind once and releases it straight away.
func probeBackends(ctx context.Context, registry *translation.Registry, factory *backend.Factory, kinds []backend.Kind) []probeResult {
	results := make([]probeResult, 0, len(kinds))
	for _, kind := range kinds {
		started := globaltime.Now()
		h, err := registry.Lease(ctx, kind)
		if err == nil {
			registry.Release(h)
		}
		results = append(results, probeResult{
			Kind:     kind,
			Model:    factory.ModelName(kind),
			Duration: globaltime.Since(started),
			Err:      err,
		})
	}
	return results
}

// writeProbeResults prints one line per backend and reports whether any
// probe failed.
func writeProbeResults(w io.Writer, results []probeResult) bool {
	failed := false
	for _, res := range results {
		status := "ok"
		detail := ""
		if res.Err != nil {
			failed = true
			status = "unavailable"
			detail = " error=" + res.Err.Error()
		}
		fmt.Fprintf(w, "probe backend=%s model=%s status=%s load=%s%s\n",
			res.Kind, res.Model, status, res.Duration.Round(time.Millisecond), detail)
	}
	return failed
}
