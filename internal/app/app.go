package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"NewsDigest/internal/classifier"
	"NewsDigest/internal/collector"
	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/infrastructure/feed"
	"NewsDigest/internal/infrastructure/llm"
	"NewsDigest/internal/infrastructure/queue"
	"NewsDigest/internal/infrastructure/scheduler"
	"NewsDigest/internal/infrastructure/storage"
	"NewsDigest/internal/infrastructure/telegram"
	"NewsDigest/internal/logging"
	"NewsDigest/internal/mirror"
	"NewsDigest/internal/ports"
	"NewsDigest/internal/ranking"
	"NewsDigest/internal/usecase"
)

const shutdownTimeout = 30 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	collector *collector.Collector
	pipeline  *usecase.Pipeline
	runs      *storage.RunRepository
	closers   []func() error
}

// New builds the runnable application. Optional collaborators (AI backend,
// Telegram, Redis, audit store) are wired only when configured.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	a := &Application{cfg: cfg, logger: baseLogger}

	pool := mirror.NewPool(cfg.Collector.Instances)
	scanner := feed.NewNitterScanner(
		&http.Client{Timeout: cfg.Collector.Timeout},
		cfg.Collector.CanonicalDomain,
		pool.Hosts(),
		baseLogger.With("component", "feed.nitter"),
	)
	a.collector = collector.New(scanner, pool, collector.Options{
		Accounts:     cfg.Accounts,
		WindowHours:  cfg.Collector.WindowHours,
		Timeout:      cfg.Collector.Timeout,
		AccountDelay: cfg.Collector.AccountDelay,
		Workers:      cfg.Collector.Workers,
	}, baseLogger.With("component", "collector"))

	var gen ports.TextGenerator
	if cfg.AI.APIKey != "" {
		g, err := llm.New(cfg.AI, nil)
		if err != nil {
			return nil, fmt.Errorf("ai backend: %w", err)
		}
		gen = g
	} else {
		baseLogger.Warn("ai api key missing, classification uses keywords only", "provider", cfg.AI.Provider)
	}

	cls := classifier.New(gen, classifier.Options{
		Models:           cfg.AI.Models,
		ModelOverride:    cfg.AI.ModelOverride,
		Timeout:          cfg.AI.Timeout,
		TranslateTimeout: cfg.AI.TranslateTimeout,
		ChunkSize:        cfg.AI.ChunkSize,
		ChunkDelay:       cfg.AI.ChunkDelay,
		BackoffBase:      cfg.AI.BackoffBase,
		MaxAttempts:      cfg.AI.MaxAttempts,
		Temperature:      cfg.AI.Temperature,
		MaxTokens:        cfg.AI.MaxTokens,
		Keywords:         keywordMap(cfg, baseLogger),
	}, baseLogger.With("component", "classifier"))

	rk := ranking.New(rankingWeights(cfg.Ranking.Weights), cfg.Ranking.MaxPerCategory, baseLogger.With("component", "ranker"))

	publishers, err := a.publishers(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	var runs ports.RunRepository
	if cfg.Database.DSN != "" {
		repo, err := storage.Open(ctx, cfg.Database.DSN)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("audit store: %w", err)
		}
		a.runs = repo
		a.closers = append(a.closers, repo.Close)
		runs = repo
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Source:         a.collector,
		Classifier:     cls,
		Ranker:         rk,
		Publishers:     publishers,
		Runs:           runs,
		MinPerCategory: cfg.Ranking.MinPerCategory,
		Logger:         baseLogger.With("component", "pipeline"),
	})
	return a, nil
}

func (a *Application) publishers(ctx context.Context) ([]ports.DigestPublisher, error) {
	var out []ports.DigestPublisher

	tg := a.cfg.Notifications.Telegram
	if tg.BotToken != "" && tg.ChatID != "" {
		out = append(out, telegram.NewNotifier(tg.BotToken, tg.ChatID, a.cfg.Scheduler.Location()))
	} else {
		a.logger.Warn("telegram not configured, digests will not be sent to a channel")
	}

	if a.cfg.Queue.RedisURL != "" {
		pub, err := queue.Connect(ctx, a.cfg.Queue.RedisURL, a.cfg.Queue.Key)
		if err != nil {
			return nil, fmt.Errorf("digest queue: %w", err)
		}
		a.closers = append(a.closers, pub.Close)
		out = append(out, pub)
	}
	return out, nil
}

func keywordMap(cfg config.Config, log *slog.Logger) map[domain.Category][]string {
	out := make(map[domain.Category][]string, len(cfg.Categories))
	for name := range cfg.Categories {
		cat, ok := domain.ParseCategory(name)
		if !ok || !cat.IsTopic() {
			log.Warn("ignoring keywords for unknown category", "category", name)
			continue
		}
		out[cat] = cfg.Keywords(name)
	}
	return out
}

func rankingWeights(w config.WeightsConfig) ranking.Weights {
	return ranking.Weights{
		OverlapMultiplier:   w.OverlapMultiplier,
		OverlapCap:          w.OverlapCap,
		ImportanceWeight:    w.ImportanceWeight,
		RecencyMax:          w.RecencyMax,
		RecencyHorizonHours: w.RecencyHorizonHours,
		EngagementDivisor:   w.EngagementDivisor,
		EngagementCap:       w.EngagementCap,
	}
}

// RunOnce executes a single cycle.
func (a *Application) RunOnce(ctx context.Context) (usecase.CycleResult, error) {
	return a.pipeline.RunCycle(ctx)
}

// RunDaemon runs a cycle now and every configured interval until ctx ends.
func (a *Application) RunDaemon(ctx context.Context) error {
	sched := usecase.NewScheduler(
		scheduler.NewIntervalScheduler(a.cfg.Scheduler.Interval),
		a.pipeline,
		a.logger.With("component", "scheduler"),
	)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("daemon started", "interval", a.cfg.Scheduler.Interval)

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := sched.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	a.logger.Info("daemon stopped")
	return nil
}

// Collect runs only the collection stage.
func (a *Application) Collect(ctx context.Context) (ports.CollectResult, error) {
	return a.collector.Collect(ctx)
}

// RecentRuns lists audited cycles; it requires a configured database.
func (a *Application) RecentRuns(ctx context.Context, limit int) ([]domain.CycleReport, error) {
	if a.runs == nil {
		return nil, errors.New("database dsn is not configured")
	}
	return a.runs.RecentRuns(ctx, limit)
}

// Close releases connections held by optional collaborators.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
