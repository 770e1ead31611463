package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/kpraghav/orderwatch/internal/auditlog"
	"github.com/kpraghav/orderwatch/internal/classify"
	"github.com/kpraghav/orderwatch/internal/config"
	"github.com/kpraghav/orderwatch/internal/docstore"
	"github.com/kpraghav/orderwatch/internal/feed"
	"github.com/kpraghav/orderwatch/internal/history"
	"github.com/kpraghav/orderwatch/internal/markets"
	"github.com/kpraghav/orderwatch/internal/notify"
	"github.com/kpraghav/orderwatch/internal/pipeline"
)

var configPath = flag.String("config", "orderwatch.toml", "Path to the TOML configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error loading config: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: invalid log level %q: %v\n", cfg.Logging.Level, err)
		os.Exit(1)
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("orderwatch stopped")
	}
	logger.Info().Msg("orderwatch shut down")
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	store, err := history.NewStore(cfg.State.ProcessedFile, logger)
	if err != nil {
		return fmt.Errorf("failed to set up processed store: %w", err)
	}

	classifier, err := classify.NewClassifier(ctx, cfg.Gemini, logger)
	if err != nil {
		return fmt.Errorf("failed to set up classifier: %w", err)
	}

	orch := pipeline.New(pipeline.Deps{
		Feed:       feed.NewClient(cfg.Feed, logger),
		Enricher:   markets.NewEnricher(cfg.Markets, logger),
		Extractor:  docstore.NewExtractor(cfg.DocStore, logger),
		Classifier: classifier,
		Dispatcher: notify.NewDispatcher(cfg.Alerts, logger),
		Store:      store,
		Audit:      auditlog.NewLogger(cfg.State.AuditFile),
	}, cfg.Gate,
		config.MustDuration(cfg.Feed.PollInterval),
		config.MustDuration(cfg.Feed.ItemDelay),
		logger)

	logger.Info().
		Str("feed", cfg.Feed.BaseURL).
		Str("poll_interval", cfg.Feed.PollInterval).
		Int("telegram_targets", len(cfg.Alerts.Telegram)).
		Bool("email", cfg.Alerts.Email.Enabled()).
		Msg("starting orderwatch")

	return orch.Run(ctx)
}
