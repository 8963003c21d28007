// Package main is the entry point for the visit-summary CLI.  It serves the
// POST /summary API and can summarise a single transcript from the shell.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"visit-summary/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the visit-summary CLI.
var rootCmd = &cobra.Command{
	Use:   "visit-summary",
	Short: "Turn consultation transcripts into structured visit summaries",
	Long: `visit-summary sends a consultation transcript to an OpenAI chat model and
returns a validated visit summary: diagnosis, medications, referrals,
recommendations, and follow-up details.

Run "serve" for the HTTP API or "summarize" for a one-off summary.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./visit-summary.yaml or ~/.config/visit-summary/config.yaml)")
}

func initConfig() {
	v := viper.GetViper()
	config.Prepare(v)

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("visit-summary")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "visit-summary"))
		}
	}

	if err := v.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", v.ConfigFileUsed())
	}
}

// newLogger builds the process logger.  Format "console" is for humans at a
// terminal; anything else validated by config is JSON.
func newLogger(cfg config.Log, w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log.level: %w", err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	out := w
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Str("service", "visit-summary").Logger(), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
