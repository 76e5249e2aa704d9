package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"typing-assistant/api/internal/config"
	"typing-assistant/api/internal/llm"
	"typing-assistant/api/internal/llm/gemini"
	"typing-assistant/api/internal/llm/openai"
)

type rootOptions struct {
	cfgFile  string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "typing-assistant",
		Short: "AI-assisted spelling, grammar, command and spacing correction",
		Long: `typing-assistant sends short texts to a generative model with one of four
fixed correction prompts and scores the answer against the input with
simple word-position metrics.

It runs as a web form + JSON API (serve), optionally with a Telegram bot,
or as a one-shot command (correct).`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "",
		"config file (default: ./typing-assistant.yaml or ~/.typing-assistant/typing-assistant.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level (debug|info|warn|error)")

	cmd.AddCommand(newServeCmd(opts), newCorrectCmd(opts))
	return cmd
}

// load reads and validates the config and builds the logger.
func (o *rootOptions) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, logger, nil
}

// buildEngines creates every engine whose API key is present and returns the
// one selected by llm.engine as the default.
func buildEngines(cfg *config.Config, logger *zap.Logger) (*llm.Engines, llm.Engine, error) {
	var list []llm.Engine
	if cfg.Gemini.APIKey != "" {
		gc := gemini.Config{
			APIKey:  cfg.Gemini.APIKey,
			Model:   cfg.Gemini.Model,
			BaseURL: cfg.Gemini.BaseURL,
			Timeout: cfg.LLM.Timeout,
		}
		list = append(list, gemini.New(gc, logger.Named("gemini")))

		// the SDK dials its own gRPC endpoint; the REST base URL does not apply
		gc.BaseURL = ""
		list = append(list, gemini.NewSDK(gc, logger.Named("gemini-sdk")))
	}
	if cfg.OpenAI.APIKey != "" {
		list = append(list, openai.New(openai.Config{
			APIKey:  cfg.OpenAI.APIKey,
			Model:   cfg.OpenAI.Model,
			BaseURL: cfg.OpenAI.BaseURL,
			Timeout: cfg.LLM.Timeout,
		}, logger.Named("openai")))
	}

	engs := llm.NewEngines(list...)
	def, err := engs.GetEngine(cfg.LLM.Engine)
	if err != nil {
		return nil, nil, err
	}
	return engs, def, nil
}
