package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"horse.fit/prompttranslate/internal/language"
)

const (
	// DefaultQualityEndpoint points to a local OpenAI-compatible translation endpoint.
	DefaultQualityEndpoint = "http://127.0.0.1:8845/v1"
	// DefaultQualityModel is the default HY-MT model name.
	DefaultQualityModel = "tencent/HY-MT1.5-7B"
	// DefaultQualityMaxInputRunes bounds one prompt sent to the chat model.
	DefaultQualityMaxInputRunes = 4096
)

// Chat translates by calling an on-device OpenAI-compatible chat completions
// runtime serving HY-MT.
type Chat struct {
	model         string
	maxInputRunes int
	httpClient    *http.Client
	client        *openai.Client
}

// LoadChat checks the model directory, confirms the runtime serves the model
// and returns a ready adapter.
func LoadChat(ctx context.Context, cfg Config) (*Chat, error) {
	if err := checkModelDir(cfg.ModelDir); err != nil {
		return nil, err
	}

	baseURL, err := normalizeBaseURL(cfg.Endpoint, DefaultQualityEndpoint, "/v1")
	if err != nil {
		return nil, unavailablef("quality endpoint: %v", err)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultQualityModel
	}
	maxRunes := cfg.MaxInputRunes
	if maxRunes <= 0 {
		maxRunes = DefaultQualityMaxInputRunes
	}

	httpClient := &http.Client{Timeout: requestTimeout(cfg.Timeout)}
	clientCfg := openai.DefaultConfig("")
	clientCfg.BaseURL = baseURL
	clientCfg.HTTPClient = httpClient

	c := &Chat{
		model:         model,
		maxInputRunes: maxRunes,
		httpClient:    httpClient,
		client:        openai.NewClientWithConfig(clientCfg),
	}
	if err := c.probe(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Chat) ConcurrencySafe() bool {
	return true
}

func (c *Chat) Close() error {
	if c == nil || c.httpClient == nil {
		return nil
	}
	c.httpClient.CloseIdleConnections()
	return nil
}

// Model returns the configured model identifier.
func (c *Chat) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

func (c *Chat) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if c == nil {
		return "", unavailablef("quality backend is not loaded")
	}
	if err := checkInput(text, c.maxInputRunes); err != nil {
		return "", err
	}
	if !Supports(KindHighQuality, sourceLang) {
		return "", inferencef("quality backend does not support source language %q", sourceLang)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildHYMTPrompt(text, sourceLang, targetLang),
			},
		},
		Temperature: 0.7,
		TopP:        0.6,
	})
	if err != nil {
		return "", contextErr(ctx, classifyChatError(err))
	}
	if len(resp.Choices) == 0 {
		return "", inferencef("translation response missing choices")
	}

	translated := strings.TrimSpace(resp.Choices[0].Message.Content)
	if translated == "" {
		return "", inferencef("translation response was empty")
	}
	return translated, nil
}

func (c *Chat) probe(ctx context.Context) error {
	models, err := c.client.ListModels(ctx)
	if err != nil {
		return contextErr(ctx, unavailablef("list models: %v", err))
	}
	if len(models.Models) == 0 {
		return nil
	}
	served := make([]string, 0, len(models.Models))
	for _, model := range models.Models {
		if strings.EqualFold(strings.TrimSpace(model.ID), c.model) {
			return nil
		}
		served = append(served, model.ID)
	}
	return unavailablef("runtime does not serve %q (available: %s)", c.model, strings.Join(served, ", "))
}

// classifyChatError maps client errors onto the backend taxonomy. Transport
// failures and 5xx gateway statuses mean the runtime is gone.
func classifyChatError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if runtimeDown(apiErr.HTTPStatusCode) {
			return unavailablef("quality runtime status %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return inferencef("quality runtime status %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if runtimeDown(reqErr.HTTPStatusCode) {
			return unavailablef("quality runtime status %d: %v", reqErr.HTTPStatusCode, reqErr.Err)
		}
		return inferencef("quality runtime status %d: %v", reqErr.HTTPStatusCode, reqErr.Err)
	}
	return unavailablef("send translation request: %v", err)
}

func runtimeDown(status int) bool {
	return status == http.StatusBadGateway || status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout
}

func buildHYMTPrompt(text, sourceLang, targetLang string) string {
	target := language.LabelFor(targetLang)
	if language.NormalizeCode(sourceLang) == "zh" || language.NormalizeCode(targetLang) == "zh" {
		// HY-MT zh<=>xx template.
		return fmt.Sprintf("将以下文本翻译为%s，注意只需要输出翻译后的结果，不要额外解释：\n\n%s", target.Chinese, text)
	}
	// HY-MT xx<=>xx template.
	return fmt.Sprintf("Translate the following segment into %s, without additional explanation.\n\n%s", target.English, text)
}
