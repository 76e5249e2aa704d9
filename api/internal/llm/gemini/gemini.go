package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"typing-assistant/api/internal/llm"
)

const (
	DefaultModel   = "gemini-2.0-flash"
	DefaultBaseURL = "https://generativelanguage.googleapis.com"

	maxErrBody = 512
)

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Engine calls the generateContent REST method directly.
type Engine struct {
	APIKey  string
	Model   string
	baseURL string
	httpc   *http.Client
	logger  *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Engine {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Model:   strings.TrimSpace(cfg.Model),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpc:   &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float32 `json:"temperature"`
	TopK            int32   `json:"topK"`
	TopP            float32 `json:"topP"`
	MaxOutputTokens int32   `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

// Pointers distinguish "missing" from "empty" so a blank answer is still a valid answer.
type generateResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (e *Engine) endpoint() string {
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent", e.baseURL, url.PathEscape(e.Model))
}

func (e *Engine) Generate(ctx context.Context, prompt string, gen llm.GenerationConfig) (string, error) {
	if e.APIKey == "" {
		return "", fmt.Errorf("%w: GEMINI_API_KEY is empty", llm.ErrTransport)
	}

	body := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     gen.Temperature,
			TopK:            gen.TopK,
			TopP:            gen.TopP,
			MaxOutputTokens: gen.MaxOutputTokens,
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("gemini: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: gemini: build request: %v", llm.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", e.APIKey)

	resp, err := e.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: gemini: %v", llm.ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: gemini: read body: %v", llm.ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: gemini %d: %s", llm.ErrTransport, resp.StatusCode, truncate(raw))
	}

	text, err := firstCandidateText(raw)
	if err != nil {
		e.logger.Warn("gemini response structure unexpected",
			zap.String("model", e.Model),
			zap.String("body", truncate(raw)),
			zap.Error(err),
		)
		return "", err
	}
	return text, nil
}

func firstCandidateText(raw []byte) (string, error) {
	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: gemini: decode: %v", llm.ErrMalformedResponse, err)
	}
	if len(out.Candidates) == 0 {
		return "", fmt.Errorf("%w: gemini: no candidates", llm.ErrMalformedResponse)
	}
	c := out.Candidates[0]
	if c.Content == nil {
		return "", fmt.Errorf("%w: gemini: candidate has no content", llm.ErrMalformedResponse)
	}
	if len(c.Content.Parts) == 0 {
		return "", fmt.Errorf("%w: gemini: content has no parts", llm.ErrMalformedResponse)
	}
	if c.Content.Parts[0].Text == nil {
		return "", fmt.Errorf("%w: gemini: first part has no text", llm.ErrMalformedResponse)
	}
	return *c.Content.Parts[0].Text, nil
}

// truncate caps an upstream body at maxErrBody bytes without splitting a rune.
func truncate(b []byte) string {
	s := strings.ToValidUTF8(strings.TrimSpace(string(b)), "\uFFFD")
	if len(s) <= maxErrBody {
		return s
	}
	cut := maxErrBody
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}

var _ llm.Engine = (*Engine)(nil)
