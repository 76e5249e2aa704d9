// Package openai provides an engine backed by any OpenAI-compatible chat completions API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"

	"typing-assistant/api/internal/llm"
)

const DefaultModel = "gpt-4o-mini"

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

type Engine struct {
	APIKey string
	Model  string
	client oai.Client
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Engine {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		// a failed correction is final; the SDK must not retry on its own
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Engine{
		APIKey: strings.TrimSpace(cfg.APIKey),
		Model:  strings.TrimSpace(cfg.Model),
		client: oai.NewClient(opts...),
		logger: logger,
	}
}

func (e *Engine) Name() string     { return "openai" }
func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) Generate(ctx context.Context, prompt string, gen llm.GenerationConfig) (string, error) {
	if e.APIKey == "" {
		return "", fmt.Errorf("%w: OPENAI_API_KEY is empty", llm.ErrTransport)
	}

	resp, err := e.client.Chat.Completions.New(ctx, e.buildParams(prompt, gen))
	if err != nil {
		var apiErr *oai.Error
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%w: openai %d: %v", llm.ErrTransport, apiErr.StatusCode, err)
		}
		return "", fmt.Errorf("%w: openai: %v", llm.ErrTransport, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		e.logger.Warn("openai response has no choices", zap.String("model", e.Model))
		return "", fmt.Errorf("%w: openai: empty choices", llm.ErrMalformedResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

// buildParams maps the generation config; chat completions have no top-k knob.
func (e *Engine) buildParams(prompt string, gen llm.GenerationConfig) oai.ChatCompletionNewParams {
	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(e.Model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.UserMessage(prompt),
		},
	}
	if gen.Temperature != 0 {
		params.Temperature = param.NewOpt(float64(gen.Temperature))
	}
	if gen.TopP != 0 {
		params.TopP = param.NewOpt(float64(gen.TopP))
	}
	if gen.MaxOutputTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(gen.MaxOutputTokens))
	}
	return params
}

var _ llm.Engine = (*Engine)(nil)
