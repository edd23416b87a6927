package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"shopping-agent/internal/parser"
	"shopping-agent/internal/suggest"
)

var configKeys = []string{
	"CONFIG_FILE", "PARSER", "OPENAI_MODEL", "OPENAI_BASE_URL", "OPENAI_API_KEY", "PARAM_PREFIX",
	"LLM_TIMEOUT", "JOURNAL_TABLE", "LIST_ID", "SUGGESTION_MODE", "SUGGESTION_LIMIT",
	"MAX_COMMAND_LENGTH", "SEED_DEMO_LIST", "HTTP_ADDR", "ALLOWED_ORIGIN", "LOG_LEVEL",
}

// clearEnv isolates a test from variables set in the outer environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, parser.KindRule, cfg.Parser)
	require.Equal(t, "gpt-3.5-turbo", cfg.OpenAIModel)
	require.Equal(t, 10*time.Second, cfg.LLMTimeout)
	require.Equal(t, "default", cfg.ListID)
	require.Equal(t, suggest.ModeOrdered, cfg.SuggestionMode)
	require.Equal(t, 4, cfg.SuggestionLimit)
	require.Equal(t, 500, cfg.MaxCommandLength)
	require.False(t, cfg.SeedDemoList)
	require.Equal(t, ":5000", cfg.HTTPAddr)
	require.Equal(t, "*", cfg.AllowedOrigin)
	require.Equal(t, "info", cfg.LogLevel)
	require.False(t, cfg.JournalEnabled())
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PARSER", "LLM")
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("OPENAI_BASE_URL", "http://localhost:8080")
	t.Setenv("LLM_TIMEOUT", "3s")
	t.Setenv("JOURNAL_TABLE", "shopping-journal")
	t.Setenv("SUGGESTION_MODE", "shuffled")
	t.Setenv("SUGGESTION_LIMIT", "2")
	t.Setenv("SEED_DEMO_LIST", "true")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, parser.KindLLM, cfg.Parser)
	require.Equal(t, "sk-env", cfg.OpenAIAPIKey)
	require.Equal(t, "http://localhost:8080", cfg.OpenAIBaseURL)
	require.Equal(t, 3*time.Second, cfg.LLMTimeout)
	require.True(t, cfg.JournalEnabled())
	require.Equal(t, suggest.ModeShuffled, cfg.SuggestionMode)
	require.Equal(t, 2, cfg.SuggestionLimit)
	require.True(t, cfg.SeedDemoList)
}

func TestLoad_ConfigFileWithEnvOverride(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("list_id: kitchen\nlog_level: debug\nallowed_origin: https://file.example\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("ALLOWED_ORIGIN", "https://env.example")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "kitchen", cfg.ListID)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "https://env.example", cfg.AllowedOrigin)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	require.Error(t, err)
	require.Contains(t, err.Error(), "config: read")
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "unknown parser", env: map[string]string{"PARSER": "regex"}, want: "unknown kind"},
		{name: "unknown suggestion mode", env: map[string]string{"SUGGESTION_MODE": "random"}, want: "unknown mode"},
		{name: "llm without credentials", env: map[string]string{"PARSER": "llm"}, want: "requires OPENAI_API_KEY or PARAM_PREFIX"},
		{name: "non-positive timeout", env: map[string]string{"LLM_TIMEOUT": "0s"}, want: "LLM_TIMEOUT"},
		{name: "bad max length", env: map[string]string{"MAX_COMMAND_LENGTH": "-1"}, want: "MAX_COMMAND_LENGTH"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoad_LLMWithParamPrefix(t *testing.T) {
	clearEnv(t)
	t.Setenv("PARSER", "llm")
	t.Setenv("PARAM_PREFIX", "/shopping-agent")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "/shopping-agent", cfg.ParamPrefix)
	require.Empty(t, cfg.OpenAIAPIKey)
}
