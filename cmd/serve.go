package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	cfgpkg "github.com/dataviz-ai/dataviz-go/internal/config"
	"github.com/dataviz-ai/dataviz-go/internal/history"
	"github.com/dataviz-ai/dataviz-go/internal/insight"
	"github.com/dataviz-ai/dataviz-go/internal/server"
)

var flagListenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP analysis server",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Local .env is optional; real environments set variables directly.
		_ = godotenv.Load()

		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if flagListenAddr != "" {
			cfg.ListenAddr = flagListenAddr
		}

		log := logrus.New()
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		if debug {
			log.SetLevel(logrus.DebugLevel)
		}

		var ai *insight.Client
		if cfg.GeminiAPIKey != "" {
			ai = insight.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel,
				time.Duration(cfg.HTTPTimeoutSec)*time.Second,
				cfg.RetryMaxAttempts,
				time.Duration(cfg.RetryBaseDelayMs)*time.Millisecond,
				time.Duration(cfg.RetryMaxDelayMs)*time.Millisecond)
		} else {
			log.Warn("GEMINI_API_KEY not set, AI endpoints will report errors")
		}

		store, err := history.Open(cfg.HistoryDBPath)
		if err != nil {
			log.WithError(err).Warn("upload history disabled")
			store = nil
		} else {
			defer store.Close()
		}

		srv := &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           server.New(cfg, log, ai, store).Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.WithField("addr", cfg.ListenAddr).Info("listening")
			errCh <- srv.ListenAndServe()
		}()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve: %w", err)
			}
		case sig := <-stop:
			log.WithField("signal", sig.String()).Info("shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagListenAddr, "addr", "", "listen address (overrides config, default :8000)")
	rootCmd.AddCommand(serveCmd)
}
