package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"shopping-agent/internal/parser"
	"shopping-agent/internal/suggest"
)

type Config struct {
	Parser           parser.Kind
	OpenAIModel      string
	OpenAIBaseURL    string
	OpenAIAPIKey     string
	ParamPrefix      string
	LLMTimeout       time.Duration
	JournalTable     string
	ListID           string
	SuggestionMode   suggest.Mode
	SuggestionLimit  int
	MaxCommandLength int
	SeedDemoList     bool
	HTTPAddr         string
	AllowedOrigin    string
	LogLevel         string
}

// JournalEnabled reports whether commands are persisted to DynamoDB.
func (c *Config) JournalEnabled() bool {
	return c.JournalTable != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PARSER", string(parser.KindRule))
	v.SetDefault("OPENAI_MODEL", "gpt-3.5-turbo")
	v.SetDefault("OPENAI_BASE_URL", "")
	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("PARAM_PREFIX", "")
	v.SetDefault("LLM_TIMEOUT", "10s")
	v.SetDefault("JOURNAL_TABLE", "")
	v.SetDefault("LIST_ID", "default")
	v.SetDefault("SUGGESTION_MODE", string(suggest.ModeOrdered))
	v.SetDefault("SUGGESTION_LIMIT", suggest.MaxSuggestions)
	v.SetDefault("MAX_COMMAND_LENGTH", 500)
	v.SetDefault("SEED_DEMO_LIST", false)
	v.SetDefault("HTTP_ADDR", ":5000")
	v.SetDefault("ALLOWED_ORIGIN", "*")
	v.SetDefault("LOG_LEVEL", "info")
}

// Load reads configuration from defaults, an optional file named by
// CONFIG_FILE and the environment, in increasing precedence.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := strings.TrimSpace(v.GetString("CONFIG_FILE")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	kind, err := parser.ParseKind(v.GetString("PARSER"))
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	mode, err := suggest.ParseMode(v.GetString("SUGGESTION_MODE"))
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := &Config{
		Parser:           kind,
		OpenAIModel:      strings.TrimSpace(v.GetString("OPENAI_MODEL")),
		OpenAIBaseURL:    strings.TrimSpace(v.GetString("OPENAI_BASE_URL")),
		OpenAIAPIKey:     strings.TrimSpace(v.GetString("OPENAI_API_KEY")),
		ParamPrefix:      strings.TrimSpace(v.GetString("PARAM_PREFIX")),
		LLMTimeout:       v.GetDuration("LLM_TIMEOUT"),
		JournalTable:     strings.TrimSpace(v.GetString("JOURNAL_TABLE")),
		ListID:           strings.TrimSpace(v.GetString("LIST_ID")),
		SuggestionMode:   mode,
		SuggestionLimit:  v.GetInt("SUGGESTION_LIMIT"),
		MaxCommandLength: v.GetInt("MAX_COMMAND_LENGTH"),
		SeedDemoList:     v.GetBool("SEED_DEMO_LIST"),
		HTTPAddr:         strings.TrimSpace(v.GetString("HTTP_ADDR")),
		AllowedOrigin:    strings.TrimSpace(v.GetString("ALLOWED_ORIGIN")),
		LogLevel:         strings.TrimSpace(v.GetString("LOG_LEVEL")),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Parser == parser.KindLLM {
		if c.OpenAIAPIKey == "" && c.ParamPrefix == "" {
			return errors.New("config: PARSER=llm requires OPENAI_API_KEY or PARAM_PREFIX")
		}
		if c.OpenAIModel == "" {
			return errors.New("config: OPENAI_MODEL must not be empty")
		}
	}
	if c.LLMTimeout <= 0 {
		return fmt.Errorf("config: LLM_TIMEOUT must be positive, got %s", c.LLMTimeout)
	}
	if c.ListID == "" {
		return errors.New("config: LIST_ID must not be empty")
	}
	if c.MaxCommandLength <= 0 {
		return fmt.Errorf("config: MAX_COMMAND_LENGTH must be positive, got %d", c.MaxCommandLength)
	}
	return nil
}
