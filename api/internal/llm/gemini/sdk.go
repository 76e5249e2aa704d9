package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"typing-assistant/api/internal/llm"
)

// SDKEngine talks to Gemini through the generative-ai-go client instead of raw REST.
type SDKEngine struct {
	APIKey   string
	Model    string
	endpoint string
	timeout  time.Duration
	logger   *zap.Logger
}

func NewSDK(cfg Config, logger *zap.Logger) *SDKEngine {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SDKEngine{
		APIKey:   strings.TrimSpace(cfg.APIKey),
		Model:    strings.TrimSpace(cfg.Model),
		endpoint: strings.TrimSpace(cfg.BaseURL),
		timeout:  cfg.Timeout,
		logger:   logger,
	}
}

func (e *SDKEngine) Name() string     { return "gemini-sdk" }
func (e *SDKEngine) GetModel() string { return e.Model }

func (e *SDKEngine) clientOptions() []option.ClientOption {
	opts := []option.ClientOption{option.WithAPIKey(e.APIKey)}
	if e.endpoint != "" {
		opts = append(opts, option.WithEndpoint(e.endpoint))
	}
	return opts
}

func (e *SDKEngine) Generate(ctx context.Context, prompt string, gen llm.GenerationConfig) (string, error) {
	if e.APIKey == "" {
		return "", fmt.Errorf("%w: GEMINI_API_KEY is empty", llm.ErrTransport)
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cl, err := genai.NewClient(ctx, e.clientOptions()...)
	if err != nil {
		return "", fmt.Errorf("%w: gemini-sdk: new client: %v", llm.ErrTransport, err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	if m == nil {
		return "", fmt.Errorf("%w: gemini-sdk: model is nil", llm.ErrTransport)
	}
	m.GenerationConfig = toSDKConfig(gen)

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			e.logger.Warn("gemini-sdk response blocked", zap.String("model", e.Model), zap.Error(err))
			return "", fmt.Errorf("%w: gemini-sdk: %v", llm.ErrMalformedResponse, err)
		}
		return "", fmt.Errorf("%w: gemini-sdk: %v", llm.ErrTransport, err)
	}

	text, err := firstText(resp)
	if err != nil {
		e.logger.Warn("gemini-sdk response structure unexpected", zap.String("model", e.Model), zap.Error(err))
		return "", err
	}
	return text, nil
}

func toSDKConfig(gen llm.GenerationConfig) genai.GenerationConfig {
	return genai.GenerationConfig{
		Temperature:     ptrFloat32(gen.Temperature),
		TopK:            ptrInt32(gen.TopK),
		TopP:            ptrFloat32(gen.TopP),
		MaxOutputTokens: ptrInt32(gen.MaxOutputTokens),
	}
}

func firstText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: gemini-sdk: no candidates", llm.ErrMalformedResponse)
	}
	c := resp.Candidates[0]
	if c == nil || c.Content == nil {
		return "", fmt.Errorf("%w: gemini-sdk: candidate has no content", llm.ErrMalformedResponse)
	}
	if len(c.Content.Parts) == 0 {
		return "", fmt.Errorf("%w: gemini-sdk: content has no parts", llm.ErrMalformedResponse)
	}
	t, ok := c.Content.Parts[0].(genai.Text)
	if !ok {
		return "", fmt.Errorf("%w: gemini-sdk: first part is %T, not text", llm.ErrMalformedResponse, c.Content.Parts[0])
	}
	return string(t), nil
}

func ptrFloat32(v float32) *float32 { return &v }
func ptrInt32(v int32) *int32       { return &v }

var _ llm.Engine = (*SDKEngine)(nil)
