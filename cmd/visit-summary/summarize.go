package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"visit-summary/internal/config"
	"visit-summary/internal/core"
	"visit-summary/internal/llm"
	"visit-summary/internal/transcript"
	"visit-summary/pkg"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarise one transcript and print the result",
	Long: `Summarize reads a transcript from --file (use "-" for stdin) or, without
--file, fetches it from transcript.url for --session.  The summary is printed
as JSON, YAML, or the patient-facing text message.

--send also runs the delivery step and prints its response.`,
	RunE: runSummarize,
}

func init() {
	summarizeCmd.Flags().String("file", "", `read the transcript from a file ("-" for stdin)`)
	summarizeCmd.Flags().String("session", "", "session id substituted into transcript.url")
	summarizeCmd.Flags().String("format", "json", "output format: json, yaml, or text")
	summarizeCmd.Flags().Bool("send", false, "run summary delivery after printing")

	rootCmd.AddCommand(summarizeCmd)
}

func runSummarize(cmd *cobra.Command, _ []string) error {
	file, _ := cmd.Flags().GetString("file")
	session, _ := cmd.Flags().GetString("session")
	format, _ := cmd.Flags().GetString("format")
	send, _ := cmd.Flags().GetBool("send")

	switch format {
	case "json", "yaml", "text":
	default:
		return fmt.Errorf("unknown --format %q (want json, yaml, or text)", format)
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	src := newSource(cfg.Transcript, file, cmd.InOrStdin())
	text, err := src.Fetch(ctx, session)
	if err != nil {
		return err
	}

	summarizer, err := core.NewSummarizer(llm.NewOpenAIClient(cfg.OpenAI, logger), logger)
	if err != nil {
		return err
	}
	summary, err := summarizer.Summarize(ctx, text)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := render(out, summary, format); err != nil {
		return err
	}
	if !send {
		return nil
	}

	resp, err := core.LogSender{Log: logger}.Send(ctx, summary, core.FormatSummary(summary))
	if err != nil {
		return err
	}
	return render(out, resp, format)
}

func newSource(cfg config.Transcript, file string, stdin io.Reader) transcript.Source {
	if file != "" {
		return transcript.FileSource{Path: file, Stdin: stdin}
	}
	return transcript.NewHTTPSource(cfg.URL, cfg.Timeout)
}

// render writes v in the requested format.  Only a VisitSummary has a text
// form; other values fall back to JSON.
func render(w io.Writer, v any, format string) error {
	switch format {
	case "yaml":
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		_, err = w.Write(data)
		return err
	case "text":
		if s, ok := v.(*pkg.VisitSummary); ok {
			_, err := io.WriteString(w, core.FormatSummary(s))
			return err
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
