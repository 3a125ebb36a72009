package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "gemini", cfg.ScorerProvider)
	assert.Equal(t, defaultGeminiModel, cfg.GeminiModel)
	assert.Equal(t, 75, cfg.ScoreThreshold)
	assert.Equal(t, defaultSources, cfg.Sources)
	assert.Equal(t, ":3000", cfg.ServerAddr)
	assert.Equal(t, "0 */6 * * *", cfg.ScanCron)
	assert.Equal(t, "0 9 * * 1", cfg.DigestCron)
	assert.True(t, cfg.TrustLLMTotal)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SCORER_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("SCORE_THRESHOLD", "80")
	t.Setenv("SCORE_TRUST_LLM_TOTAL", "false")

	cfg := Load()

	assert.Equal(t, "openai", cfg.ScorerProvider)
	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.Equal(t, 80, cfg.ScoreThreshold)
	assert.False(t, cfg.TrustLLMTotal)
}

func TestLoadInvalidThresholdIgnored(t *testing.T) {
	t.Setenv("SCORE_THRESHOLD", "not-a-number")

	cfg := Load()

	assert.Equal(t, defaultThreshold, cfg.ScoreThreshold)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dealflow.yaml")
	err := os.WriteFile(path, []byte("scoreThreshold: 82\nsources: [github, yc]\nserverAddr: \":9999\"\n"), 0o644)
	assert.NoError(t, err)
	t.Setenv("DEALFLOW_CONFIG", path)

	cfg := Load()

	assert.Equal(t, 82, cfg.ScoreThreshold)
	assert.Equal(t, []string{"github", "yc"}, cfg.Sources)
	assert.Equal(t, ":9999", cfg.ServerAddr)
}

func TestEnvBeatsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dealflow.yaml")
	err := os.WriteFile(path, []byte("scoreThreshold: 82\n"), 0o644)
	assert.NoError(t, err)
	t.Setenv("DEALFLOW_CONFIG", path)
	t.Setenv("SCORE_THRESHOLD", "90")

	cfg := Load()

	assert.Equal(t, 90, cfg.ScoreThreshold)
}

func TestValidateReportsMissingKeys(t *testing.T) {
	cfg := &Config{ScorerProvider: "gemini"}

	missing := cfg.Validate()

	assert.Contains(t, missing, "GEMINI_API_KEY")
	assert.Contains(t, missing, "SLACK_WEBHOOK_URL")
	assert.Contains(t, missing, "DATABASE_DSN")
}

func TestValidateProviderDependentKey(t *testing.T) {
	cfg := &Config{
		ScorerProvider:  "openai",
		SlackWebhookURL: "https://hooks.slack.com/x",
		DatabaseDSN:     "host=localhost",
	}

	missing := cfg.Validate()
	assert.Equal(t, []string{"OPENAI_API_KEY"}, missing)

	cfg.OpenAIAPIKey = "sk-test"
	assert.Empty(t, cfg.Validate())
}
