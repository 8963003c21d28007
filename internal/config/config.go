// Package config builds the immutable process configuration from defaults,
// an optional config file, and the environment.  It is constructed once at
// startup and passed by value into the components that need it.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces the generic environment overrides, e.g.
// VISIT_SUMMARY_SERVER_PORT.  The conventional names in envBindings
// (OPENAI_API_KEY, PORT, ...) are bound without the prefix.
const EnvPrefix = "VISIT_SUMMARY"

// DefaultTranscriptURL is the mock transcript used until a real
// transcript-retrieval integration exists.
const DefaultTranscriptURL = "https://gist.githubusercontent.com/kevin-x-cs/2fd6edd101fe68a3b20fc82dfb2daa2f/raw/eb3482402e56631d9628c4f556975934fb914427/gistfile1.txt"

// ErrMissingAPIKey is returned by Validate when no model credential is set.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY must be set")

// Config holds all visit-summary configuration.
type Config struct {
	OpenAI     OpenAI     `mapstructure:"openai"`
	Server     Server     `mapstructure:"server"`
	Database   Database   `mapstructure:"database"`
	Transcript Transcript `mapstructure:"transcript"`
	Log        Log        `mapstructure:"log"`
}

// OpenAI configures the upstream model call.
type OpenAI struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	// JSONMode asks the API for a JSON object response.  Disable it for
	// compatible endpoints that reject response_format.
	JSONMode bool `mapstructure:"json_mode"`
}

// Server configures the HTTP listener.
type Server struct {
	Port              string        `mapstructure:"port"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes"`
	Compress          bool          `mapstructure:"compress"`
}

// Database configures the optional extraction-run audit store.  An empty
// URL disables it.
type Database struct {
	URL           string `mapstructure:"url"`
	NotifyChannel string `mapstructure:"notify_channel"`
}

// Transcript configures the transcript source used by the CLI.
type Transcript struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Log configures the zerolog logger.
type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var defaults = map[string]any{
	"openai.model":               "gpt-4o",
	"openai.temperature":         0.0,
	"openai.base_url":            "",
	"openai.timeout":             60 * time.Second,
	"openai.json_mode":           true,
	"server.port":                "8080",
	"server.read_header_timeout": 10 * time.Second,
	"server.max_body_bytes":      int64(1 << 20),
	"server.compress":            true,
	"database.url":               "",
	"database.notify_channel":    "",
	"transcript.url":             DefaultTranscriptURL,
	"transcript.timeout":         10 * time.Second,
	"log.level":                  "info",
	"log.format":                 "json",
}

var envBindings = map[string]string{
	"openai.api_key":          "OPENAI_API_KEY",
	"openai.model":            "OPENAI_MODEL",
	"openai.temperature":      "OPENAI_TEMPERATURE",
	"openai.base_url":         "OPENAI_BASE_URL",
	"openai.timeout":          "OPENAI_TIMEOUT",
	"openai.json_mode":        "OPENAI_JSON_MODE",
	"server.port":             "PORT",
	"database.url":            "DATABASE_URL",
	"database.notify_channel": "POSTGRES_NOTIFY_CHANNEL",
	"transcript.url":          "TRANSCRIPT_URL",
	"log.level":               "LOG_LEVEL",
	"log.format":              "LOG_FORMAT",
}

// Prepare registers defaults and environment bindings on v.  Call it before
// reading a config file so file values sit between defaults and env.
func Prepare(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	// openai.api_key has no default; SetDefault makes the key known to
	// Unmarshal even when only the environment provides it.
	v.SetDefault("openai.api_key", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range envBindings {
		// BindEnv with a fixed name only errors on an empty key.
		_ = v.BindEnv(key, env, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	}
}

// Load unmarshals v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports configuration errors that must stop the process.
func (c Config) Validate() error {
	if strings.TrimSpace(c.OpenAI.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if strings.TrimSpace(c.OpenAI.Model) == "" {
		return errors.New("openai.model must not be empty")
	}
	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		return fmt.Errorf("openai.temperature %v out of range [0,2]", c.OpenAI.Temperature)
	}
	if c.OpenAI.Timeout < 0 {
		return fmt.Errorf("openai.timeout %v must not be negative", c.OpenAI.Timeout)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes %d must be positive", c.Server.MaxBodyBytes)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format %q must be json or console", c.Log.Format)
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (s Server) Addr() string {
	if strings.HasPrefix(s.Port, ":") {
		return s.Port
	}
	return ":" + s.Port
}
