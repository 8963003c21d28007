package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envBindings {
		t.Setenv(env, "")
	}
}

func load(t *testing.T) (Config, error) {
	t.Helper()
	v := viper.New()
	Prepare(v)
	return Load(v)
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := load(t)
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Zero(t, cfg.OpenAI.Temperature)
	assert.Equal(t, 60*time.Second, cfg.OpenAI.Timeout)
	assert.True(t, cfg.OpenAI.JSONMode)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, DefaultTranscriptURL, cfg.Transcript.URL)
	assert.Equal(t, 10*time.Second, cfg.Transcript.Timeout)
	assert.Empty(t, cfg.Database.URL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_MissingAPIKey(t *testing.T) {
	clearEnv(t)

	_, err := load(t)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")
	t.Setenv("OPENAI_TEMPERATURE", "0.3")
	t.Setenv("OPENAI_TIMEOUT", "5s")
	t.Setenv("OPENAI_JSON_MODE", "false")
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://localhost/visits")
	t.Setenv("VISIT_SUMMARY_LOG_FORMAT", "console")

	cfg, err := load(t)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.InDelta(t, 0.3, cfg.OpenAI.Temperature, 1e-6)
	assert.Equal(t, 5*time.Second, cfg.OpenAI.Timeout)
	assert.False(t, cfg.OpenAI.JSONMode)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "postgres://localhost/visits", cfg.Database.URL)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "from-env")

	path := filepath.Join(t.TempDir(), "visit-summary.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
openai:
  model: from-file
  temperature: 0.5
server:
  port: "7000"
  compress: false
database:
  notify_channel: extraction_runs
`), 0o644))

	v := viper.New()
	Prepare(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.OpenAI.Model, "env wins over file")
	assert.InDelta(t, 0.5, cfg.OpenAI.Temperature, 1e-6)
	assert.Equal(t, "7000", cfg.Server.Port)
	assert.False(t, cfg.Server.Compress)
	assert.Equal(t, "extraction_runs", cfg.Database.NotifyChannel)
}

func TestValidate(t *testing.T) {
	valid := Config{
		OpenAI: OpenAI{APIKey: "sk", Model: "gpt-4o", Timeout: time.Second},
		Server: Server{MaxBodyBytes: 1024},
		Log:    Log{Format: "json"},
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"blank model", func(c *Config) { c.OpenAI.Model = " " }},
		{"temperature too high", func(c *Config) { c.OpenAI.Temperature = 2.5 }},
		{"negative temperature", func(c *Config) { c.OpenAI.Temperature = -0.1 }},
		{"negative timeout", func(c *Config) { c.OpenAI.Timeout = -time.Second }},
		{"zero body limit", func(c *Config) { c.Server.MaxBodyBytes = 0 }},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestServerAddr(t *testing.T) {
	assert.Equal(t, ":8080", Server{Port: "8080"}.Addr())
	assert.Equal(t, ":9000", Server{Port: ":9000"}.Addr())
}
