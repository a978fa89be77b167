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

	"horse.fit/prompttranslate/internal/cli"
	"horse.fit/prompttranslate/internal/translation"
)

const maxStdinPromptBytes = 1 << 20

type translateOutput struct {
	Prompt         *translation.Result `json:"prompt"`
	NegativePrompt *translation.Result `json:"negative_prompt,omitempty"`
}

func runTranslate(args []string) int {
	fs := flag.NewFlagSet("translate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	backendFlag := fs.String("backend", "", "Backend preference: auto, fast or high_quality (default BACKEND_PREFERENCE)")
	source := fs.String("source", "auto", "Source language (ISO 639-1) or auto")
	negative := fs.String("negative", "", "Negative prompt to translate alongside the prompt")
	timeout := fs.Duration("timeout", 5*time.Minute, "Command timeout")
	format := fs.String("format", "text", "Output format: text or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	outputFormat, err := parseTranslateFormat(*format)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	var pref translation.Preference
	if strings.TrimSpace(*backendFlag) != "" {
		pref, err = translation.ParsePreference(*backendFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "--backend: %v\n", err)
			return 2
		}
	}

	prompt, err := readPrompt(fs.Args(), os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read prompt: %v\n", err)
		return 2
	}
	if strings.TrimSpace(prompt) == "" {
		fmt.Fprintln(os.Stderr, "translate requires prompt text as arguments or on stdin")
		printTranslateUsage()
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

	out, err := translatePrompts(ctx, rt.engine, translation.Request{
		Text:       prompt,
		SourceLang: *source,
		Preference: pref,
	}, *negative)
	if err != nil {
		rt.logger.Error().Err(err).Msg("translate failed")
		fmt.Fprintf(os.Stderr, "Translate failed: %v\n", err)
		if errors.Is(err, translation.ErrInvalidInput) {
			return 2
		}
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(os.Stdout, out); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
			return 1
		}
		return 0
	}
	writeTranslateText(os.Stdout, out)
	return 0
}

// translatePrompts runs the prompt and, when present, the negative prompt
// through the same engine settings.
func translatePrompts(ctx context.Context, engine *translation.Engine, req translation.Request, negative string) (translateOutput, error) {
	texts := []string{req.Text}
	if strings.TrimSpace(negative) != "" {
		texts = append(texts, negative)
	}

	results, err := engine.TranslateAll(ctx, req, texts)
	if err != nil {
		var promptErr *translation.PromptError
		if errors.As(err, &promptErr) {
			if promptErr.Index == 1 {
				return translateOutput{}, fmt.Errorf("negative prompt: %w", promptErr.Err)
			}
			return translateOutput{}, promptErr.Err
		}
		return translateOutput{}, err
	}

	out := translateOutput{Prompt: results[0]}
	if len(results) > 1 {
		out.NegativePrompt = results[1]
	}
	return out, nil
}

func writeTranslateText(w io.Writer, out translateOutput) {
	fmt.Fprintln(w, out.Prompt.Text)
	if out.NegativePrompt != nil {
		fmt.Fprintf(w, "Negative prompt: %s\n", out.NegativePrompt.Text)
	}
	fmt.Fprintln(w, summaryLine(out.Prompt))
}

func summaryLine(res *translation.Result) string {
	terms := make([]string, 0, len(res.OverriddenTerms))
	for _, entry := range res.OverriddenTerms {
		terms = append(terms, entry.CanonicalEnglish)
	}
	return fmt.Sprintf(
		"translate source=%s backend=%s passthrough=%t terms=%d [%s] latency=%s request_id=%s",
		res.SourceLang,
		res.BackendUsed,
		res.Passthrough,
		len(res.OverriddenTerms),
		strings.Join(terms, ", "),
		res.Latency.Round(time.Millisecond),
		res.RequestID,
	)
}

// readPrompt joins positional arguments, or reads stdin when there are none.
func readPrompt(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if stdin == nil {
		return "", nil
	}
	raw, err := io.ReadAll(io.LimitReader(stdin, maxStdinPromptBytes+1))
	if err != nil {
		return "", err
	}
	if len(raw) > maxStdinPromptBytes {
		return "", fmt.Errorf("prompt exceeds %d bytes", maxStdinPromptBytes)
	}
	return strings.TrimRight(string(raw), "\r\n"), nil
}

func parseTranslateFormat(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "text":
		return "text", nil
	case outputFormatJSON:
		return outputFormatJSON, nil
	default:
		return "", fmt.Errorf("--format must be text or json")
	}
}

func printTranslateUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  prompttranslate translate [--backend auto|fast|high_quality] [--source auto] [--negative TEXT] [--format text|json] [--env .env] [TEXT...]")
	fmt.Fprintln(os.Stderr, "  echo '红色的猫' | prompttranslate translate")
}
