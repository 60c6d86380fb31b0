package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("BOOKGEN_TEST_SET", "from-env")

	assert.Equal(t, "a: from-env", expandEnv("a: ${BOOKGEN_TEST_SET}"))
	assert.Equal(t, "a: from-env", expandEnv("a: ${BOOKGEN_TEST_SET:fallback}"))
	assert.Equal(t, "a: fallback", expandEnv("a: ${BOOKGEN_TEST_UNSET_XYZ:fallback}"))
	assert.Equal(t, "a: ", expandEnv("a: ${BOOKGEN_TEST_UNSET_XYZ:}"))
	assert.Equal(t, "a: ${BOOKGEN_TEST_UNSET_XYZ}", expandEnv("a: ${BOOKGEN_TEST_UNSET_XYZ}"))
}

func TestLoadFrom(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_ENV", "test")
	t.Setenv("BOOKGEN_TEST_GEMINI_KEY", "k-123")

	writeConfig(t, dir, "config.yaml", `
llm:
  default_provider: gemini
  providers:
    gemini:
      kind: gemini
      api_key: ${BOOKGEN_TEST_GEMINI_KEY:}
      model: gemini-2.0-flash-exp
pipeline:
  pacing:
    mode: delay
    interval: 1s
`)
	writeConfig(t, dir, "config.test.yaml", `
pipeline:
  pacing:
    mode: none
`)

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "k-123", cfg.LLM.Providers["gemini"].APIKey)
	assert.Equal(t, "gemini-2.0-flash-exp", cfg.LLM.Providers["gemini"].Model)
	assert.Equal(t, "none", cfg.Pipeline.Pacing.Mode)
	assert.Equal(t, time.Second, cfg.Pipeline.Pacing.Interval)
	assert.Equal(t, 50, cfg.Pipeline.BookAnalysisMinWords)
	assert.Equal(t, 1, cfg.Pipeline.OutlineAttempts)
	assert.Equal(t, "bookgen-ai-api", cfg.App.Name)
}

func TestLoadFromRequiresCredentials(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_ENV", "test")

	writeConfig(t, dir, "config.yaml", `
llm:
  default_provider: gemini
  providers:
    gemini:
      kind: gemini
      model: gemini-2.0-flash-exp
`)

	_, err := LoadFrom(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key")
}

func TestValidateRejectsUnknownPacingMode(t *testing.T) {
	cfg := &Config{
		LLM: LLMConfig{
			DefaultProvider: "gemini",
			Providers:       map[string]ProviderConfig{"gemini": {APIKey: "k"}},
		},
		Pipeline: PipelineConfig{Pacing: PacingConfig{Mode: "sleepy"}},
	}
	assert.Error(t, cfg.Validate())
}

func TestLoadFromEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_ENV", "staging")
	t.Setenv("PIPELINE_BOOK_ANALYSIS_MIN_WORDS", "120")

	writeConfig(t, dir, "config.yaml", `
llm:
  default_provider: openai
  providers:
    openai:
      kind: openai
      api_key: sk-test
pipeline:
  book_analysis_min_words: 80
`)

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Pipeline.BookAnalysisMinWords)
	assert.EqualValues(t, 10, cfg.Messaging.RedisStream.DLQAlertThreshold)
	assert.Equal(t, []string{"GET", "POST", "OPTIONS"}, cfg.Security.CORS.AllowedMethods)
}

func TestValidateSampleRate(t *testing.T) {
	cfg := &Config{
		LLM: LLMConfig{
			DefaultProvider: "gemini",
			Providers:       map[string]ProviderConfig{"gemini": {APIKey: "k"}},
		},
	}
	require.NoError(t, cfg.Validate())

	cfg.Observability.Tracing.SampleRate = 1.5
	assert.ErrorContains(t, cfg.Validate(), "sample_rate")
}

func TestLoadFromMissingBaseFile(t *testing.T) {
	_, err := LoadFrom(t.TempDir())
	assert.ErrorContains(t, err, "config.yaml")
}
