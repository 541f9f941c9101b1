// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-agent/pkg/types"
)

// isolate points every lookup at an empty temp tree.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	for _, k := range []string{"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "DISCORD_WEBHOOK_URL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	return dir
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "research-agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_DefaultsOnly(t *testing.T) {
	isolate(t)

	loaded, err := Load(Options{})
	require.NoError(t, err)
	assert.Empty(t, loaded.File)
	assert.Equal(t, types.DefaultAgentConfig(), loaded.Config)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, `
research:
  interests: [retrieval]
  categories: [cs.IR]
  days_back: 3
  min_significance_score: 0.6
cache:
  ttl: 48h
schedule:
  daily_time: "07:30"
  monitoring_enabled: true
  monitoring_interval: 2h
`)

	loaded, err := Load(Options{File: path})
	require.NoError(t, err)
	cfg := loaded.Config

	assert.Equal(t, path, loaded.File)
	assert.Equal(t, []string{"retrieval"}, cfg.Research.Interests)
	assert.Equal(t, []string{"cs.IR"}, cfg.Research.Categories)
	assert.Equal(t, 3, cfg.Research.DaysBack)
	assert.InDelta(t, 0.6, cfg.Research.MinSignificanceScore, 1e-9)
	assert.Equal(t, 48*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "07:30", cfg.Schedule.DailyTime)
	assert.True(t, cfg.Schedule.MonitoringEnabled)
	assert.Equal(t, 2*time.Hour, cfg.Schedule.MonitoringInterval)

	// Untouched keys keep their defaults.
	def := types.DefaultAgentConfig()
	assert.Equal(t, def.Research.ExcludeKeywords, cfg.Research.ExcludeKeywords)
	assert.Equal(t, def.Analyzer.Concurrency, cfg.Analyzer.Concurrency)
	assert.Equal(t, def.Retry, cfg.Retry)
}

func TestLoad_SearchesWorkingDirectory(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, "research:\n  max_papers_per_day: 12\n")

	loaded, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, 12, loaded.Config.Research.MaxPapersPerDay)
	assert.Equal(t, "research-agent.yaml", filepath.Base(loaded.File))
}

func TestLoad_PlaceholdersAndEnvOverrides(t *testing.T) {
	dir := isolate(t)
	t.Setenv("DIGEST_DIR", "/var/digests")
	t.Setenv("RESEARCH_AGENT_RESEARCH_DAYS_BACK", "5")
	t.Setenv("RESEARCH_AGENT_CACHE_REDIS_URL", "redis://cache:6379/1")
	path := writeConfig(t, dir, `
output:
  dir: ${DIGEST_DIR}
logging:
  level: ${LOG_LEVEL_UNSET:debug}
`)

	loaded, err := Load(Options{File: path})
	require.NoError(t, err)
	assert.Equal(t, "/var/digests", loaded.Config.Output.Dir)
	assert.Equal(t, "debug", loaded.Config.Logging.Level)
	assert.Equal(t, 5, loaded.Config.Research.DaysBack)
	assert.Equal(t, "redis://cache:6379/1", loaded.Config.Cache.RedisURL)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := isolate(t)
	envFile := filepath.Join(dir, "agent.env")
	require.NoError(t, os.WriteFile(envFile, []byte("RESEARCH_AGENT_ANALYZER_CONCURRENCY=7\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("RESEARCH_AGENT_ANALYZER_CONCURRENCY") })

	loaded, err := Load(Options{EnvFile: envFile})
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Config.Analyzer.Concurrency)
}

func TestLoad_Credentials(t *testing.T) {
	dir := isolate(t)
	secretsDir := filepath.Join(dir, "secrets")
	require.NoError(t, os.Mkdir(secretsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(secretsDir, "anthropic-api-key"), []byte("sk-file\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(secretsDir, "discord-webhook-url"), []byte("https://hook.file"), 0o644))
	t.Setenv("DISCORD_WEBHOOK_URL", "https://hook.env")

	loaded, err := Load(Options{SecretsDir: secretsDir})
	require.NoError(t, err)
	assert.Equal(t, "sk-file", loaded.Config.Analyzer.APIKey)
	assert.Equal(t, "https://hook.env", loaded.Config.Notifications.Discord.WebhookURL)
	assert.Equal(t, []string{"anthropic-api-key", "discord-webhook-url"}, loaded.Secrets)
}

func TestLoad_EnvKeyBeatsSecretFile(t *testing.T) {
	dir := isolate(t)
	secretsDir := filepath.Join(dir, "secrets")
	require.NoError(t, os.Mkdir(secretsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(secretsDir, "openai-api-key"), []byte("sk-file"), 0o644))
	t.Setenv("OPENAI_API_KEY", "sk-env")
	path := writeConfig(t, dir, "analyzer:\n  backend: openai\n  model: gpt-4o-mini\n")

	loaded, err := Load(Options{File: path, SecretsDir: secretsDir})
	require.NoError(t, err)
	assert.Equal(t, "sk-env", loaded.Config.Analyzer.APIKey)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"bad yaml", "research: [unclosed", "parsing config"},
		{"bad daily time", "schedule:\n  daily_time: \"25:00\"\n", "daily_time"},
		{"bad weekday", "schedule:\n  weekly_day: Someday\n", "weekly_day"},
		{"bad threshold", "research:\n  min_relevance_score: 1.5\n", "min_relevance_score"},
		{"unknown backend", "analyzer:\n  backend: gemini\n", "backend"},
		{"redis without url", "cache:\n  backend: redis\n", "redis_url"},
		{"archive without bucket", "notifications:\n  object_store:\n    enabled: true\n    endpoint: localhost:9000\n", "bucket"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			path := writeConfig(t, dir, tt.body)
			_, err := Load(Options{File: path})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	dir := isolate(t)
	_, err := Load(Options{File: filepath.Join(dir, "absent.yaml")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file")
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("SET_VAR", "value")
	t.Setenv("EMPTY_VAR", "")
	os.Unsetenv("UNSET_VAR")

	tests := []struct {
		in, want string
	}{
		{"${SET_VAR}", "value"},
		{"${SET_VAR:fallback}", "value"},
		{"${UNSET_VAR:fallback}", "fallback"},
		{"${UNSET_VAR}", ""},
		{"${EMPTY_VAR:fallback}", ""},
		{"a ${SET_VAR} b ${UNSET_VAR:c}", "a value b c"},
		{"$SET_VAR stays", "$SET_VAR stays"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExpandEnv(tt.in), tt.in)
	}
}

func TestValidate_Defaults(t *testing.T) {
	cfg := types.DefaultAgentConfig()
	assert.NoError(t, Validate(&cfg))
}

func TestValidate_DisabledSectionsAreNotChecked(t *testing.T) {
	cfg := types.DefaultAgentConfig()
	cfg.Schedule.WeeklyEnabled = false
	cfg.Schedule.WeeklyDay = "not-a-day"
	cfg.Notifications.ObjectStore.Enabled = false
	cfg.Analyzer.Backend = types.BackendCLI
	cfg.Analyzer.Model = ""
	assert.NoError(t, Validate(&cfg))
}

func TestValidate_ReportsEverySection(t *testing.T) {
	cfg := types.DefaultAgentConfig()
	cfg.Research.MaxPapersPerDay = -1
	cfg.Retry.MaxDelay = time.Second
	cfg.Logging.Format = "xml"

	err := Validate(&cfg)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "research")
	assert.Contains(t, msg, "retry")
	assert.Contains(t, msg, "logging")
}
