package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"horse.fit/prompttranslate/internal/backend"
	"horse.fit/prompttranslate/internal/db"
	"horse.fit/prompttranslate/internal/globaltime"
	"horse.fit/prompttranslate/internal/language"
	"horse.fit/prompttranslate/internal/terminology"
	"horse.fit/prompttranslate/internal/translation"
)

const (
	maxClientIDLength = 128
	maxExtraPrompts   = 32
)

type translateRequest struct {
	Prompt            string   `json:"prompt"`
	NegativePrompt    string   `json:"negative_prompt"`
	Prompts           []string `json:"prompts"`
	BackendPreference string   `json:"backend_preference"`
	SourceLang        string   `json:"source_lang"`
	ClientID          string   `json:"client_id"`
}

type translateResponse struct {
	Prompt         *translation.Result   `json:"prompt"`
	NegativePrompt *translation.Result   `json:"negative_prompt,omitempty"`
	Prompts        []*translation.Result `json:"prompts,omitempty"`
}

type backendStatus struct {
	translation.BackendStats
	Model     string   `json:"model"`
	Breaker   string   `json:"breaker,omitempty"`
	Languages []string `json:"languages"`
}

type preferenceRequest struct {
	BackendPreference string `json:"backend_preference"`
	SourceLang        string `json:"source_lang"`
}

func (s *Server) handleHealth(c echo.Context) error {
	loaded := 0
	for _, stat := range s.engine.Registry().Stats() {
		if stat.Loaded {
			loaded++
		}
	}
	data := map[string]any{
		"service":         "prompttranslate",
		"time":            globaltime.UTC(),
		"history_enabled": s.store != nil,
		"loaded_backends": loaded,
	}
	if s.store != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthPingTimeout)
		defer cancel()
		err := s.store.Ping(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("history database ping failed")
		}
		data["history_ok"] = err == nil
	}
	return success(c, data)
}

func (s *Server) handleBackends(c echo.Context) error {
	stats := s.engine.Registry().Stats()
	items := make([]backendStatus, 0, len(stats))
	for _, stat := range stats {
		item := backendStatus{
			BackendStats: stat,
			Model:        s.opts.ModelNames[stat.Kind],
			Languages:    backend.Languages(stat.Kind),
		}
		if s.opts.BreakerState != nil {
			item.Breaker = s.opts.BreakerState(stat.Kind)
		}
		items = append(items, item)
	}
	return success(c, map[string]any{
		"backends": items,
	})
}

func (s *Server) handleLanguages(c echo.Context) error {
	return success(c, map[string]any{
		"target":    language.English,
		"languages": translation.ViewerLanguageOptions(),
	})
}

func (s *Server) handleTerms(c echo.Context) error {
	entries := s.engine.Terms().Entries()

	rawLang := strings.TrimSpace(c.QueryParam("lang"))
	if rawLang != "" {
		lang := language.NormalizeCode(rawLang)
		if lang == "" {
			return failValidation(c, map[string]string{"lang": "is not a valid language code"})
		}
		filtered := make([]terminology.Entry, 0, len(entries))
		for _, entry := range entries {
			if entry.SourceLang == lang || entry.SourceLang == terminology.Wildcard {
				filtered = append(filtered, entry)
			}
		}
		entries = filtered
	}

	return success(c, map[string]any{
		"total": len(entries),
		"terms": entries,
	})
}

func (s *Server) handleTranslate(c echo.Context) error {
	var req translateRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	validationErrors := map[string]string{}
	if strings.TrimSpace(req.Prompt) == "" {
		validationErrors["prompt"] = "is required"
	}
	if len(req.Prompts) > maxExtraPrompts {
		validationErrors["prompts"] = fmt.Sprintf("must contain at most %d prompts", maxExtraPrompts)
	}
	for i, text := range req.Prompts {
		if strings.TrimSpace(text) == "" {
			validationErrors[fmt.Sprintf("prompts[%d]", i)] = "is required"
		}
	}
	clientID := strings.TrimSpace(req.ClientID)
	if utf8.RuneCountInString(clientID) > maxClientIDLength {
		validationErrors["client_id"] = "is too long"
	}
	if _, err := translation.ParsePreference(req.BackendPreference); err != nil {
		validationErrors["backend_preference"] = err.Error()
	}
	if len(validationErrors) > 0 {
		return failValidation(c, validationErrors)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), s.opts.RequestTimeout)
	defer cancel()

	base := translation.Request{
		SourceLang: req.SourceLang,
		TargetLang: language.English,
	}
	if strings.TrimSpace(req.BackendPreference) != "" {
		base.Preference, _ = translation.ParsePreference(req.BackendPreference)
	}
	s.applyStoredPreference(ctx, clientID, &base)

	// texts is prompt, then the negative prompt if any, then extra prompts.
	texts := make([]string, 0, 2+len(req.Prompts))
	fields := make([]string, 0, cap(texts))
	texts = append(texts, req.Prompt)
	fields = append(fields, "prompt")
	hasNegative := strings.TrimSpace(req.NegativePrompt) != ""
	if hasNegative {
		texts = append(texts, req.NegativePrompt)
		fields = append(fields, "negative_prompt")
	}
	for i, text := range req.Prompts {
		texts = append(texts, text)
		fields = append(fields, fmt.Sprintf("prompts[%d]", i))
	}

	results, err := s.engine.TranslateAll(ctx, base, texts)
	if err != nil {
		field := "prompt"
		var promptErr *translation.PromptError
		if errors.As(err, &promptErr) && promptErr.Index < len(fields) {
			field = fields[promptErr.Index]
		}
		return s.translationErrorResponse(c, field, err)
	}

	resp := translateResponse{Prompt: results[0]}
	rest := results[1:]
	if hasNegative {
		resp.NegativePrompt = rest[0]
		rest = rest[1:]
	}
	if len(rest) > 0 {
		resp.Prompts = rest
	}

	recorded := make(map[string]bool, len(results))
	for i, res := range results {
		if recorded[res.RequestID] {
			continue
		}
		recorded[res.RequestID] = true
		s.recordHistory(c.Request().Context(), clientID, base.Preference, texts[i], res)
	}

	return success(c, resp)
}

// applyStoredPreference fills an auto preference or source language from the
// client's saved preference.
func (s *Server) applyStoredPreference(ctx context.Context, clientID string, req *translation.Request) {
	wantPref := req.Preference == "" || req.Preference == translation.PreferenceAuto
	wantSource := language.IsAuto(req.SourceLang)
	if clientID == "" || s.store == nil || (!wantPref && !wantSource) {
		return
	}

	stored, err := s.store.GetClientPreference(ctx, clientID)
	if err != nil {
		if !errors.Is(err, db.ErrNoRows) {
			s.logger.Warn().Err(err).Str("client_id", clientID).Msg("load client preference failed")
		}
		return
	}
	if pref, err := translation.ParsePreference(stored.Preference); err == nil && wantPref {
		req.Preference = pref
	}
	if wantSource {
		req.SourceLang = stored.SourceLang
	}
}

func (s *Server) handleHistory(c echo.Context) error {
	if s.store == nil {
		return historyDisabled(c)
	}

	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultHistoryLimit, 1, maxHistoryLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}
	params := db.ListTranslationsParams{
		ClientID: strings.TrimSpace(c.QueryParam("client_id")),
		Limit:    limit,
	}
	if rawLang := strings.TrimSpace(c.QueryParam("source_lang")); rawLang != "" {
		params.SourceLang = language.NormalizeCode(rawLang)
		if params.SourceLang == "" {
			return failValidation(c, map[string]string{"source_lang": "is not a valid language code"})
		}
	}

	rows, err := s.store.ListTranslations(c.Request().Context(), params)
	if err != nil {
		s.logger.Error().Err(err).Msg("query translation history failed")
		return internalError(c, "Failed to load translation history")
	}
	if rows == nil {
		rows = []db.TranslationRow{}
	}
	return success(c, map[string]any{
		"total":        len(rows),
		"translations": rows,
	})
}

func (s *Server) handleGetPreference(c echo.Context) error {
	if s.store == nil {
		return historyDisabled(c)
	}
	clientID, ok := clientIDParam(c)
	if !ok {
		return failValidation(c, map[string]string{"client_id": "must be 1 to 128 characters"})
	}

	row, err := s.store.GetClientPreference(c.Request().Context(), clientID)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return failNotFound(c, "Preference not found")
		}
		s.logger.Error().Err(err).Str("client_id", clientID).Msg("query client preference failed")
		return internalError(c, "Failed to load preference")
	}
	return success(c, map[string]any{
		"preference": row,
	})
}

func (s *Server) handlePutPreference(c echo.Context) error {
	if s.store == nil {
		return historyDisabled(c)
	}
	clientID, ok := clientIDParam(c)
	if !ok {
		return failValidation(c, map[string]string{"client_id": "must be 1 to 128 characters"})
	}

	var req preferenceRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	validationErrors := map[string]string{}
	pref, err := translation.ParsePreference(req.BackendPreference)
	if err != nil {
		validationErrors["backend_preference"] = err.Error()
	}
	sourceLang := language.Auto
	if !language.IsAuto(req.SourceLang) {
		sourceLang = language.NormalizeCode(req.SourceLang)
		if sourceLang == "" {
			validationErrors["source_lang"] = "is not a valid language code"
		}
	}
	if len(validationErrors) > 0 {
		return failValidation(c, validationErrors)
	}

	row := db.ClientPreferenceRow{
		ClientID:   clientID,
		Preference: pref.String(),
		SourceLang: sourceLang,
	}
	if err := s.store.UpsertClientPreference(c.Request().Context(), row); err != nil {
		s.logger.Error().Err(err).Str("client_id", clientID).Msg("upsert client preference failed")
		return internalError(c, "Failed to save preference")
	}
	return success(c, map[string]any{
		"preference": row,
	})
}

func (s *Server) recordHistory(ctx context.Context, clientID string, pref translation.Preference, original string, res *translation.Result) {
	if s.store == nil || res == nil {
		return
	}
	if pref == "" {
		pref = translation.PreferenceAuto
	}
	inserted, err := s.store.InsertTranslation(ctx, db.InsertTranslationParams{
		RequestUUID:     res.RequestID,
		ClientID:        clientID,
		OriginalText:    original,
		TranslatedText:  res.Text,
		SourceLang:      res.SourceLang,
		BackendUsed:     res.BackendUsed,
		Preference:      pref.String(),
		Passthrough:     res.Passthrough,
		OverriddenTerms: res.OverriddenTerms,
		LatencyMS:       int(res.Latency.Milliseconds()),
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("request_id", res.RequestID).Msg("record translation history failed")
		return
	}
	if !inserted {
		s.logger.Debug().Str("request_id", res.RequestID).Msg("translation already recorded")
	}
}

func (s *Server) translationErrorResponse(c echo.Context, field string, err error) error {
	if errors.Is(err, translation.ErrInvalidInput) {
		message := err.Error()
		var terr *translation.Error
		if errors.As(err, &terr) && terr.Err != nil {
			message = terr.Err.Error()
		}
		return failValidation(c, map[string]string{field: message})
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errorWithStatus(c, http.StatusGatewayTimeout, "Translation timed out", nil)
	}
	if errors.Is(err, context.Canceled) {
		return errorWithStatus(c, http.StatusServiceUnavailable, "Translation cancelled", nil)
	}

	var terr *translation.Error
	if !errors.As(err, &terr) {
		s.logger.Error().Err(err).Msg("translate prompt failed")
		return internalError(c, "Translation failed")
	}

	status := http.StatusBadGateway
	if errors.Is(err, translation.ErrBackendUnavailable) {
		status = http.StatusServiceUnavailable
	}
	return errorWithStatus(c, status, "Translation failed", map[string]any{
		"code":    terr.Code,
		"stage":   terr.Stage,
		"backend": terr.Backend,
		"detail":  err.Error(),
	})
}

func clientIDParam(c echo.Context) (string, bool) {
	clientID := strings.TrimSpace(c.Param("client_id"))
	if clientID == "" || utf8.RuneCountInString(clientID) > maxClientIDLength {
		return "", false
	}
	return clientID, true
}

func historyDisabled(c echo.Context) error {
	return errorWithStatus(c, http.StatusServiceUnavailable, "History is disabled (DATABASE_URL is not set)", nil)
}
