package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"horse.fit/prompttranslate/internal/language"
)

const (
	// DefaultFastEndpoint is the loopback address of the seq2seq runtime.
	DefaultFastEndpoint = "http://127.0.0.1:8846"
	// DefaultFastModel is the general multilingual seq2seq checkpoint.
	DefaultFastModel = "facebook/mbart-large-50-many-to-many-mmt"
	// DefaultFastMaxInputRunes matches the mBART-50 encoder window.
	DefaultFastMaxInputRunes = 1024
)

// Seq2Seq translates through an mBART-50 model hosted by an on-device
// runtime. One instance handles one request at a time.
type Seq2Seq struct {
	baseURL       string
	model         string
	maxInputRunes int
	client        *http.Client
}

// LoadSeq2Seq checks the model directory, probes the runtime and returns a
// ready adapter.
func LoadSeq2Seq(ctx context.Context, cfg Config) (*Seq2Seq, error) {
	if err := checkModelDir(cfg.ModelDir); err != nil {
		return nil, err
	}

	baseURL, err := normalizeBaseURL(cfg.Endpoint, DefaultFastEndpoint, "")
	if err != nil {
		return nil, unavailablef("fast endpoint: %v", err)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultFastModel
	}
	maxRunes := cfg.MaxInputRunes
	if maxRunes <= 0 {
		maxRunes = DefaultFastMaxInputRunes
	}

	s := &Seq2Seq{
		baseURL:       baseURL,
		model:         model,
		maxInputRunes: maxRunes,
		client:        &http.Client{Timeout: requestTimeout(cfg.Timeout)},
	}
	if err := s.probe(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Seq2Seq) ConcurrencySafe() bool {
	return false
}

func (s *Seq2Seq) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	s.client.CloseIdleConnections()
	return nil
}

func (s *Seq2Seq) Model() string {
	if s == nil {
		return ""
	}
	return s.model
}

func (s *Seq2Seq) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if s == nil {
		return "", unavailablef("fast backend is not loaded")
	}
	if err := checkInput(text, s.maxInputRunes); err != nil {
		return "", err
	}
	srcCode, ok := language.MBartCode(sourceLang)
	if !ok {
		return "", inferencef("fast backend does not support source language %q", sourceLang)
	}
	tgtCode, ok := language.MBartCode(targetLang)
	if !ok {
		return "", inferencef("fast backend does not support target language %q", targetLang)
	}

	body, err := json.Marshal(seq2seqRequest{
		Model:   s.model,
		Text:    text,
		SrcLang: srcCode,
		TgtLang: tgtCode,
	})
	if err != nil {
		return "", inferencef("marshal translation request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return "", inferencef("build translation request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", contextErr(ctx, unavailablef("send translation request: %v", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", contextErr(ctx, unavailablef("read translation response: %v", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(respBody))
		var errPayload seq2seqResponse
		if json.Unmarshal(respBody, &errPayload) == nil && errPayload.Error != nil {
			if m := strings.TrimSpace(errPayload.Error.Message); m != "" {
				msg = m
			}
		}
		if resp.StatusCode == http.StatusServiceUnavailable || resp.StatusCode == http.StatusBadGateway {
			return "", unavailablef("fast runtime status %d: %s", resp.StatusCode, msg)
		}
		return "", inferencef("fast runtime status %d: %s", resp.StatusCode, msg)
	}

	var parsed seq2seqResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", inferencef("decode translation response: %v", err)
	}
	translated := strings.TrimSpace(parsed.Translation)
	if translated == "" {
		return "", inferencef("fast runtime returned an empty translation")
	}
	return translated, nil
}

func (s *Seq2Seq) probe(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/health", nil)
	if err != nil {
		return unavailablef("build health request: %v", err)
	}
	resp, err := s.client.Do(httpReq)
	if err != nil {
		return contextErr(ctx, unavailablef("fast runtime at %s is not reachable: %v", s.baseURL, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return unavailablef("fast runtime health status %d", resp.StatusCode)
	}

	var health seq2seqHealth
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&health); err != nil {
		return unavailablef("decode health response: %v", err)
	}
	if status := strings.ToLower(strings.TrimSpace(health.Status)); status != "" && status != "ok" && status != "ready" {
		return unavailablef("fast runtime reports status %q", health.Status)
	}
	if served := strings.TrimSpace(health.Model); served != "" && !strings.EqualFold(served, s.model) {
		return unavailablef("fast runtime serves %q, want %q", served, s.model)
	}
	return nil
}

type seq2seqRequest struct {
	Model   string `json:"model"`
	Text    string `json:"text"`
	SrcLang string `json:"src_lang"`
	TgtLang string `json:"tgt_lang"`
}

type seq2seqResponse struct {
	Translation string `json:"translation"`
	Error       *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type seq2seqHealth struct {
	Status string `json:"status"`
	Model  string `json:"model"`
}

// normalizeBaseURL trims and validates an endpoint. defaultPath is applied
// when the endpoint has no path.
func normalizeBaseURL(raw, fallback, defaultPath string) (string, error) {
	endpoint := strings.TrimSpace(raw)
	if endpoint == "" {
		endpoint = fallback
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}

	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", raw, err)
	}
	if strings.TrimSpace(parsed.Host) == "" {
		return "", fmt.Errorf("endpoint %q has no host", raw)
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/")
	if parsed.Path == "" {
		parsed.Path = defaultPath
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	return parsed.String(), nil
}
