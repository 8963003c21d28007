package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"visit-summary/internal/config"
	"visit-summary/internal/core"
	"visit-summary/internal/db"
	httpserver "visit-summary/internal/http"
	"visit-summary/internal/llm"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve POST /summary over HTTP",
	Long: `Serve starts the HTTP API.  When database.url is set every extraction run
is recorded in Postgres (metadata only) and, if database.notify_channel is
set, announced with NOTIFY.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := llm.NewOpenAIClient(cfg.OpenAI, logger)
	summarizer, err := core.NewSummarizer(client, logger)
	if err != nil {
		return err
	}

	var runs httpserver.RunRecorder
	if cfg.Database.URL != "" {
		conn, err := db.Open(ctx, cfg.Database.URL)
		if err != nil {
			logger.Error().Err(err).Msg("audit database unavailable")
			return err
		}
		defer conn.Close()
		runs = db.NewRecorder(conn, cfg.Database.NotifyChannel)
		logger.Info().Str("notify_channel", cfg.Database.NotifyChannel).Msg("recording extraction runs")
	}

	if viper.ConfigFileUsed() != "" {
		viper.OnConfigChange(func(e fsnotify.Event) {
			logger.Warn().Str("file", e.Name).Str("op", e.Op.String()).Msg("config file changed; restart to apply")
		})
		viper.WatchConfig()
	}

	srv := httpserver.NewServer(summarizer, runs, logger, httpserver.Options{
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Compress:     cfg.Server.Compress,
		Model:        client.Model(),
	})
	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", httpSrv.Addr).Str("model", client.Model()).Msg("listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
