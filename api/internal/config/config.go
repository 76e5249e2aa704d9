package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	ErrUnknownEngine    = errors.New("config: unknown llm engine")
	ErrMissingGeminiKey = errors.New("config: GEMINI_API_KEY is required for the gemini engines")
	ErrMissingOpenAIKey = errors.New("config: OPENAI_API_KEY is required for the openai engine")
	ErrInvalidPort      = errors.New("config: port must be between 1 and 65535")
	ErrInvalidTimeout   = errors.New("config: llm timeout must be at least 1s")
)

const (
	EngineGemini    = "gemini"
	EngineGeminiSDK = "gemini-sdk"
	EngineOpenAI    = "openai"
)

type Config struct {
	Port     int
	LLM      LLMConfig
	Gemini   ProviderConfig
	OpenAI   ProviderConfig
	Telegram TelegramConfig
	Database DatabaseConfig
	Log      LogConfig
}

type LLMConfig struct {
	Engine  string
	Timeout time.Duration
}

type ProviderConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type TelegramConfig struct {
	Token      string
	WebhookURL string
}

type DatabaseConfig struct {
	URL string
}

type LogConfig struct {
	Level string
}

// env lists the variables consulted for each key, in priority order.
var env = map[string][]string{
	"port":                 {"TYPO_PORT", "PORT"},
	"llm.engine":           {"TYPO_LLM_ENGINE", "LLM_ENGINE"},
	"llm.timeout":          {"TYPO_LLM_TIMEOUT", "LLM_TIMEOUT"},
	"gemini.api_key":       {"TYPO_GEMINI_API_KEY", "GEMINI_API_KEY"},
	"gemini.model":         {"TYPO_GEMINI_MODEL", "GEMINI_MODEL"},
	"gemini.base_url":      {"TYPO_GEMINI_BASE_URL", "GEMINI_BASE_URL"},
	"openai.api_key":       {"TYPO_OPENAI_API_KEY", "OPENAI_API_KEY"},
	"openai.model":         {"TYPO_OPENAI_MODEL", "OPENAI_MODEL"},
	"openai.base_url":      {"TYPO_OPENAI_BASE_URL", "OPENAI_BASE_URL"},
	"telegram.token":       {"TYPO_TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_TOKEN"},
	"telegram.webhook_url": {"TYPO_WEBHOOK_URL", "WEBHOOK_URL"},
	"database.url":         {"TYPO_DATABASE_URL", "DATABASE_URL"},
	"log.level":            {"TYPO_LOG_LEVEL", "LOG_LEVEL"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", 5000)
	v.SetDefault("llm.engine", EngineGemini)
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("log.level", "info")
}

// Load reads defaults, then the optional YAML file, then the environment.
// An empty cfgFile searches ./typing-assistant.yaml and $HOME/.typing-assistant/.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, names := range env {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("typing-assistant")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.typing-assistant")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	timeout, err := parseTimeout(v.GetString("llm.timeout"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port: v.GetInt("port"),
		LLM: LLMConfig{
			Engine:  strings.ToLower(strings.TrimSpace(v.GetString("llm.engine"))),
			Timeout: timeout,
		},
		Gemini: ProviderConfig{
			APIKey:  strings.TrimSpace(v.GetString("gemini.api_key")),
			Model:   v.GetString("gemini.model"),
			BaseURL: v.GetString("gemini.base_url"),
		},
		OpenAI: ProviderConfig{
			APIKey:  strings.TrimSpace(v.GetString("openai.api_key")),
			Model:   v.GetString("openai.model"),
			BaseURL: v.GetString("openai.base_url"),
		},
		Telegram: TelegramConfig{
			Token:      strings.TrimSpace(v.GetString("telegram.token")),
			WebhookURL: strings.TrimSpace(v.GetString("telegram.webhook_url")),
		},
		Database: DatabaseConfig{URL: strings.TrimSpace(v.GetString("database.url"))},
		Log:      LogConfig{Level: v.GetString("log.level")},
	}
	return cfg, nil
}

const minTimeout = time.Second

// parseTimeout accepts a Go duration ("90s", "2m") or a bare number of seconds.
func parseTimeout(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeout, raw)
	}
	return d, nil
}

// Validate checks only what the selected engine needs; the other provider may stay unset.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return ErrInvalidPort
	}
	if c.LLM.Timeout < minTimeout {
		return ErrInvalidTimeout
	}
	switch c.LLM.Engine {
	case EngineGemini, EngineGeminiSDK:
		if c.Gemini.APIKey == "" {
			return ErrMissingGeminiKey
		}
	case EngineOpenAI:
		if c.OpenAI.APIKey == "" {
			return ErrMissingOpenAIKey
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEngine, c.LLM.Engine)
	}
	return nil
}

func (c *Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }

func (c *Config) TelegramEnabled() bool { return c.Telegram.Token != "" }

func (c *Config) DatabaseEnabled() bool { return c.Database.URL != "" }
