package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"hnlingo/internal/metrics"
)

// ErrMissingAPIKey is the cause recorded when no API key is configured.
var ErrMissingAPIKey = errors.New("translate: missing API key")

// OpenAIConfig describes an OpenAI-compatible chat/completions endpoint
// (OpenRouter by default).
type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	RPS         float64
	Burst       int
	// Optional attribution headers understood by OpenRouter.
	Referer string
	Title   string
}

// OpenAIClient issues one chat completion per Translate call.
type OpenAIClient struct {
	cfg        OpenAIConfig
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewOpenAIClient(cfg OpenAIConfig, httpClient *http.Client) *OpenAIClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &OpenAIClient{
		cfg:        cfg,
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
		httpClient: httpClient,
		limiter:    newLimiter(cfg.RPS, cfg.Burst),
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Translate returns the model's translation of text, or text itself with
// OutcomeOriginal when anything goes wrong.
func (c *OpenAIClient) Translate(ctx context.Context, text, targetLang string) Result {
	if Blank(text) {
		return Result{Outcome: OutcomeEmpty}
	}
	out, err := c.complete(ctx, text, targetLang)
	if err != nil {
		metrics.TranslateCalls.WithLabelValues(OutcomeOriginal.String()).Inc()
		return original(text, err)
	}
	metrics.TranslateCalls.WithLabelValues(OutcomeTranslated.String()).Inc()
	return Result{Text: out, Outcome: OutcomeTranslated}
}

func (c *OpenAIClient) complete(ctx context.Context, text, targetLang string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", ErrMissingAPIKey
	}
	body, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt(targetLang)},
			{Role: "user", Content: UserPrompt(text, targetLang)},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("translate status %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}
	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", errors.New("empty choices")
	}
	out := strings.TrimSpace(cr.Choices[0].Message.Content)
	if out == "" {
		return "", errors.New("empty completion")
	}
	return out, nil
}

// SystemPrompt fixes the translator persona for targetLang.
func SystemPrompt(targetLang string) string {
	return fmt.Sprintf(`You are a professional translation engine. Translate content from English into %[1]s, keeping the original formatting and style.
The translation must read fluently and naturally in %[1]s.
Keep every code snippet, link and special formatting unchanged.
For technical terms use the translation widely accepted in %[1]s and keep it consistent; leave proper technical names untranslated.
Lines of the form ===DIVIDER_...=== are separators: copy them exactly, on their own line.`, targetLang)
}

// UserPrompt carries the literal text to translate.
func UserPrompt(text, targetLang string) string {
	return fmt.Sprintf("Translate the following text into %s:\n\n%s", targetLang, text)
}
