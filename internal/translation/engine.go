package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"horse.fit/prompttranslate/internal/backend"
	"horse.fit/prompttranslate/internal/globaltime"
	"horse.fit/prompttranslate/internal/language"
	"horse.fit/prompttranslate/internal/terminology"
)

const (
	// DefaultAutoMinTerms routes a prompt to the high quality backend once it
	// contains this many terminology matches.
	DefaultAutoMinTerms = 1
	// DefaultAutoMinRunes routes a prompt to the high quality backend once it
	// is at least this long.
	DefaultAutoMinRunes = 160
)

// Detector identifies the language of a text sample.
type Detector interface {
	Detect(text string) string
}

// EngineOptions configures backend selection and overlays.
type EngineOptions struct {
	DefaultPreference Preference
	PostOverlay       bool
	// AutoMinTerms <= 0 disables the terminology signal.
	AutoMinTerms int
	// AutoMinRunes <= 0 disables the length signal.
	AutoMinRunes int
	Logger       zerolog.Logger
}

// Engine turns non-English prompts into English ones.
type Engine struct {
	registry *Registry
	terms    *terminology.Table
	detector Detector
	opts     EngineOptions
	logger   zerolog.Logger
}

func NewEngine(registry *Registry, terms *terminology.Table, detector Detector, opts EngineOptions) *Engine {
	if opts.DefaultPreference == "" {
		opts.DefaultPreference = PreferenceAuto
	}
	if terms == nil {
		terms = terminology.NewTable()
	}
	return &Engine{
		registry: registry,
		terms:    terms,
		detector: detector,
		opts:     opts,
		logger:   opts.Logger.With().Str("component", "translation_engine").Logger(),
	}
}

// Terms exposes the terminology table the engine overlays.
func (e *Engine) Terms() *terminology.Table {
	if e == nil {
		return nil
	}
	return e.terms
}

// Registry exposes the model registry backing the engine.
func (e *Engine) Registry() *Registry {
	if e == nil {
		return nil
	}
	return e.registry
}

// TranslatePrompt translates text to English with automatic source detection.
func (e *Engine) TranslatePrompt(ctx context.Context, text string, pref Preference) (*Result, error) {
	return e.Translate(ctx, Request{Text: text, Preference: pref})
}

// PromptError names the prompt of a TranslateAll call that failed.
type PromptError struct {
	Index int
	Err   error
}

func (e *PromptError) Error() string {
	return fmt.Sprintf("prompt %d: %v", e.Index+1, e.Err)
}

func (e *PromptError) Unwrap() error {
	return e.Err
}

// TranslateAll translates several prompts that share the settings of base,
// translating each distinct text once. Repeated texts share one Result.
func (e *Engine) TranslateAll(ctx context.Context, base Request, texts []string) ([]*Result, error) {
	results := make([]*Result, len(texts))
	seen := make(map[string]*Result, len(texts))
	for i, text := range texts {
		if prev, ok := seen[text]; ok {
			results[i] = prev
			continue
		}
		req := base
		req.Text = text
		res, err := e.Translate(ctx, req)
		if err != nil {
			return nil, &PromptError{Index: i, Err: err}
		}
		seen[text] = res
		results[i] = res
	}
	return results, nil
}

// Translate runs one request through detection, backend inference and the
// terminology overlays. Any lease taken is released before it returns.
func (e *Engine) Translate(ctx context.Context, req Request) (*Result, error) {
	if e == nil || e.registry == nil {
		return nil, fmt.Errorf("translation engine is not initialized")
	}
	started := globaltime.Now()
	requestID := uuid.NewString()
	logger := e.logger.With().Str("request_id", requestID).Logger()

	// Received.
	if strings.TrimSpace(req.Text) == "" {
		return nil, invalidInput("text is required")
	}
	if !utf8.ValidString(req.Text) {
		return nil, invalidInput("text is not valid UTF-8")
	}
	target := language.NormalizeCode(req.TargetLang)
	if strings.TrimSpace(req.TargetLang) == "" {
		target = language.English
	}
	if target != language.English {
		return nil, invalidInput("target language %q is not supported (only en)", req.TargetLang)
	}
	pref := req.Preference
	if pref == "" {
		pref = e.opts.DefaultPreference
	}
	pref, err := ParsePreference(string(pref))
	if err != nil {
		return nil, invalidInput("%v", err)
	}
	source := language.Auto
	if !language.IsAuto(req.SourceLang) {
		source = language.NormalizeCode(req.SourceLang)
		if source == "" {
			return nil, invalidInput("source language %q is not a valid code", req.SourceLang)
		}
	}

	// Detecting.
	normalized := normalizePrompt(req.Text)
	parts := splitPrompt(normalized)
	if source == language.Auto {
		sample := detectionSample(parts)
		if sample == "" {
			sample = normalized
		}
		source = language.Unknown
		if e.detector != nil {
			source = language.NormalizeCode(e.detector.Detect(sample))
		}
		if source == "" {
			source = language.Unknown
		}
	}
	logger.Debug().Str("stage", string(StageDetecting)).Str("source_lang", source).Msg("Source language resolved")

	if source == target || source == language.Unknown || !anyTranslatable(parts) {
		logger.Debug().Str("stage", "passthrough").Str("source_lang", source).Msg("Prompt passed through")
		return &Result{
			RequestID:   requestID,
			Text:        req.Text,
			SourceLang:  source,
			BackendUsed: BackendNone,
			Passthrough: true,
			Latency:     globaltime.Since(started),
		}, nil
	}

	// Translating.
	overridden := newTermSet()
	pending := make([]int, 0, len(parts))
	segments := make([]string, len(parts))
	for i, part := range parts {
		if !part.translate {
			continue
		}
		pre, applied := e.terms.Apply(part.core(), source)
		overridden.add(applied)
		segments[i] = pre
		if !e.terms.Covers(part.core(), source) {
			pending = append(pending, i)
		}
	}

	backendUsed := BackendNone
	if len(pending) > 0 {
		primary, alternate := e.chooseKinds(pref, source, normalized)
		logger.Debug().
			Str("stage", string(StageTranslating)).
			Str("preference", pref.String()).
			Str("primary", primary.String()).
			Int("segments", len(pending)).
			Msg("Translating prompt")

		inputs := make([]string, len(pending))
		for j, idx := range pending {
			inputs[j] = segments[idx]
		}
		outputs, used, err := e.translateWithFallback(ctx, logger, primary, alternate, inputs, source)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Error().Err(err).Str("source_lang", source).Msg("Prompt translation failed")
			return nil, err
		}
		for j, idx := range pending {
			segments[idx] = outputs[j]
		}
		backendUsed = used.String()
	}

	// Overlaying.
	for i, part := range parts {
		if !part.translate {
			continue
		}
		text := segments[i]
		if e.opts.PostOverlay {
			var applied []terminology.Entry
			text, applied = e.terms.Apply(text, source)
			overridden.add(applied)
			text, applied = e.terms.Apply(text, language.English)
			overridden.add(applied)
		}
		parts[i].text = part.lead + text + part.trail
	}
	out := postProcessPrompt(normalized, joinParts(parts))

	res := &Result{
		RequestID:       requestID,
		Text:            out,
		SourceLang:      source,
		BackendUsed:     backendUsed,
		OverriddenTerms: overridden.entries,
		Latency:         globaltime.Since(started),
	}
	logger.Debug().
		Str("stage", "done").
		Str("backend", backendUsed).
		Int("overridden_terms", len(res.OverriddenTerms)).
		Dur("latency", res.Latency).
		Msg("Prompt translated")
	return res, nil
}

// chooseKinds picks the primary and fallback backends for a request.
func (e *Engine) chooseKinds(pref Preference, source, text string) (backend.Kind, backend.Kind) {
	primary, explicit := pref.Kind()
	if !explicit {
		primary = backend.KindFast
		if e.prefersHighQuality(source, text) {
			primary = backend.KindHighQuality
		}
	}
	alternate := primary.Alternate()
	if !backend.Supports(primary, source) && backend.Supports(alternate, source) {
		primary, alternate = alternate, primary
	}
	return primary, alternate
}

// prefersHighQuality is the Auto heuristic: prompts dense in domain
// vocabulary or long prompts go to the broad-vocabulary model.
func (e *Engine) prefersHighQuality(source, text string) bool {
	if e.opts.AutoMinTerms > 0 && e.terms.Count(text, source) >= e.opts.AutoMinTerms {
		return true
	}
	if e.opts.AutoMinRunes > 0 && utf8.RuneCountInString(text) >= e.opts.AutoMinRunes {
		return true
	}
	return false
}

func (e *Engine) translateWithFallback(
	ctx context.Context,
	logger zerolog.Logger,
	primary, alternate backend.Kind,
	inputs []string,
	source string,
) ([]string, backend.Kind, error) {
	if !backend.Supports(primary, source) {
		cause := newError(CodeInferenceError, StageTranslating, primary.String(),
			fmt.Errorf("no backend supports source language %q", source))
		return nil, primary, newError(CodeTranslationFailed, StageTranslating, primary.String(), cause)
	}

	outputs, err := e.runBackend(ctx, primary, inputs, source)
	if err == nil {
		return outputs, primary, nil
	}
	if ctx.Err() != nil || !errors.Is(err, ErrBackendUnavailable) {
		return nil, primary, newError(CodeTranslationFailed, StageTranslating, primary.String(), err)
	}
	if !backend.Supports(alternate, source) {
		return nil, primary, newError(CodeTranslationFailed, StageTranslating, primary.String(), err)
	}

	logger.Warn().
		Err(err).
		Str("from", primary.String()).
		Str("to", alternate.String()).
		Msg("Backend unavailable; falling back")

	outputs, altErr := e.runBackend(ctx, alternate, inputs, source)
	if altErr == nil {
		return outputs, alternate, nil
	}
	if errors.Is(altErr, ErrBackendUnavailable) {
		return nil, alternate, newError(CodeTranslationFailed, StageTranslating, alternate.String(), errors.Join(err, altErr))
	}
	return nil, alternate, newError(CodeTranslationFailed, StageTranslating, alternate.String(), altErr)
}

// runBackend leases kind once for the whole prompt and translates every
// pending segment through it.
func (e *Engine) runBackend(ctx context.Context, kind backend.Kind, inputs []string, source string) ([]string, error) {
	h, err := e.registry.Lease(ctx, kind)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, newError(CodeBackendUnavailable, StageTranslating, kind.String(), err)
	}
	defer e.registry.Release(h)

	outputs := make([]string, len(inputs))
	for i, input := range inputs {
		out, err := h.Translate(ctx, input, source, language.English)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if errors.Is(err, backend.ErrUnavailable) {
				return nil, newError(CodeBackendUnavailable, StageTranslating, kind.String(), err)
			}
			return nil, newError(CodeInferenceError, StageTranslating, kind.String(), err)
		}
		outputs[i] = out
	}
	return outputs, nil
}

func anyTranslatable(parts []promptPart) bool {
	for _, part := range parts {
		if part.translate {
			return true
		}
	}
	return false
}

// termSet collects applied entries once each, in first-seen order.
type termSet struct {
	seen    map[string]struct{}
	entries []terminology.Entry
}

func newTermSet() *termSet {
	return &termSet{seen: make(map[string]struct{})}
}

func (s *termSet) add(entries []terminology.Entry) {
	for _, entry := range entries {
		key := entry.SourceLang + "\x00" + strings.ToLower(entry.SourceTerm)
		if _, ok := s.seen[key]; ok {
			continue
		}
		s.seen[key] = struct{}{}
		s.entries = append(s.entries, entry)
	}
}
