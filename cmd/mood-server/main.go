package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrwolf/mood-server/internal/api"
	"github.com/mrwolf/mood-server/internal/config"
	"github.com/mrwolf/mood-server/internal/db"
	"github.com/mrwolf/mood-server/internal/journal"
	"github.com/mrwolf/mood-server/internal/llm"
	"github.com/mrwolf/mood-server/internal/logger"
	"github.com/mrwolf/mood-server/internal/models"
	"github.com/mrwolf/mood-server/internal/scheduler"
	"github.com/mrwolf/mood-server/internal/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	serve := newServeCmd()
	root := &cobra.Command{
		Use:           "mood-server",
		Short:         "Mood journal with next-day mood prediction",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if configFile != "" {
				return os.Setenv("MOOD_CONFIG_FILE", configFile)
			}
			return nil
		},
		RunE: serve.RunE,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (overrides MOOD_CONFIG_FILE)")

	root.AddCommand(serve)
	root.AddCommand(newRetrainCmd())
	root.AddCommand(newPredictCmd())
	root.AddCommand(newHistoryCmd())
	return root
}

// offline wires a journal over the configured store for one-shot commands.
// The returned cleanup closes the audit database if one was opened.
func offline(quiet bool) (*journal.Service, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	log := logger.Nop()
	if !quiet {
		if log, err = logger.New(cfg.LogMode); err != nil {
			return nil, nil, fmt.Errorf("creating logger: %w", err)
		}
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}

	svc := journal.New(store.New(cfg.StorePath), database, log, journal.Options{Window: cfg.WindowSize})
	cleanup := func() {
		log.Sync()
		database.Close()
	}
	return svc, cleanup, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and scheduled jobs",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()
	log.Info("starting mood-server", "version", api.Version, "store", cfg.StorePath, "db", cfg.DBPath)

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if err := database.Close(); err != nil {
			log.Warn("database close error", "error", err)
		}
	}()

	svc := journal.New(store.New(cfg.StorePath), database, log, journal.Options{Window: cfg.WindowSize})

	// a corrupt store must stop startup rather than serve from nothing
	if err := svc.Bootstrap(ctx); err != nil {
		return fmt.Errorf("training from stored history: %w", err)
	}

	sched, err := scheduler.New(svc, database, log, scheduler.Config{
		Location:    cfg.Location(),
		RefreshCron: cfg.RefreshCron,
		Retention:   cfg.AuditRetention,
	})
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}
	if err := sched.Start(); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}

	if cfg.ChatEnabled() {
		checkOllama(ctx, cfg, log)
	} else {
		log.Info("chat disabled, MOOD_OLLAMA_URL is empty")
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(cfg, svc, database, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", server.Addr, "auth", cfg.AuthEnabled())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down gracefully")
	case serveErr = <-errCh:
		log.Error("server error", "error", serveErr)
	}

	// Give ongoing requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown error", "error", err)
	}

	log.Info("stopping scheduler")
	if err := sched.Stop(); err != nil {
		log.Warn("scheduler shutdown error", "error", err)
	}

	return serveErr
}

// checkOllama only warns: the journal works without the chat backend and
// Ollama may come up after us.
func checkOllama(ctx context.Context, cfg *config.Config, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := llm.NewClient(cfg.OllamaURL, cfg.OllamaModel).HealthCheck(ctx); err != nil {
		log.Warn("ollama not reachable, chat requests will fail until it is", "url", cfg.OllamaURL, "error", err)
		return
	}
	log.Info("ollama reachable", "url", cfg.OllamaURL, "model", cfg.OllamaModel)
}

func newRetrainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retrain",
		Short: "Train on the stored history and print the model status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, cleanup, err := offline(true)
			if err != nil {
				return err
			}
			defer cleanup()

			n, err := svc.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			if n == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no entries")
				return nil
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(svc.Status())
		},
	}
}

func newPredictCmd() *cobra.Command {
	var diary, yesterday string

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the next mood for a diary text",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(diary) == "" {
				return errors.New("--diary is required")
			}
			var prev *models.Mood
			if yesterday != "" {
				mood, err := models.ParseMood(yesterday)
				if err != nil {
					return err
				}
				prev = &mood
			}

			svc, cleanup, err := offline(true)
			if err != nil {
				return err
			}
			defer cleanup()

			if _, err := svc.Refresh(cmd.Context()); err != nil {
				return err
			}
			predicted, err := svc.Predict(cmd.Context(), diary, prev)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), predicted)
			return nil
		},
	}
	cmd.Flags().StringVar(&diary, "diary", "", "today's diary text")
	cmd.Flags().StringVar(&yesterday, "yesterday", "", "yesterday's predicted mood (optional)")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Print the stored entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, cleanup, err := offline(true)
			if err != nil {
				return err
			}
			defer cleanup()

			entries, err := svc.History(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no entries")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "DATE\tMOOD\tPREDICTED\tDIARY")
			for _, e := range entries {
				predicted := "-"
				if e.PredictedNextMood != nil {
					predicted = e.PredictedNextMood.String()
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Date, e.Mood, predicted, truncate(e.Diary, 50))
			}
			return w.Flush()
		},
	}
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
