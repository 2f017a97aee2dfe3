package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source         ports.PostSource
	Classifier     ports.PostClassifier
	Ranker         ports.Ranker
	Publishers     []ports.DigestPublisher
	Runs           ports.RunRepository
	MinPerCategory int
	Logger         *slog.Logger
	Now            func() time.Time
}

// Pipeline implements the collect, classify, rank and deliver cycle.
type Pipeline struct {
	source         ports.PostSource
	classifier     ports.PostClassifier
	ranker         ports.Ranker
	publishers     []ports.DigestPublisher
	runs           ports.RunRepository
	minPerCategory int
	logger         *slog.Logger
	now            func() time.Time
}

// CycleResult is the terminal output of one cycle.
type CycleResult struct {
	Report  domain.CycleReport
	Ranking domain.CategoryRanking
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		source:         deps.Source,
		classifier:     deps.Classifier,
		ranker:         deps.Ranker,
		publishers:     deps.Publishers,
		runs:           deps.Runs,
		minPerCategory: deps.MinPerCategory,
		logger:         logger,
		now:            now,
	}
}

// RunCycle executes one batch cycle. Stage failures degrade the output
// instead of aborting; only an empty collection is reported, as
// domain.ErrNoData, after the no-data notice went out.
func (p *Pipeline) RunCycle(ctx context.Context) (CycleResult, error) {
	if p.source == nil || p.classifier == nil || p.ranker == nil {
		return CycleResult{}, fmt.Errorf("pipeline is not fully wired")
	}

	report := domain.CycleReport{
		RunID:     uuid.NewString(),
		StartedAt: p.now().UTC(),
	}
	log := p.logger.With("run_id", report.RunID)
	log.Info("cycle started")

	collected, err := p.source.Collect(ctx)
	if err != nil {
		return CycleResult{Report: report}, fmt.Errorf("collect posts: %w", err)
	}
	report.AccountsTotal = collected.AccountsTotal
	report.AccountsFailed = collected.AccountsFailed
	report.PostsCollected = len(collected.Posts)

	if len(collected.Posts) == 0 {
		log.Warn("no posts collected", "accounts", report.AccountsTotal, "failed_accounts", report.AccountsFailed)
		report.Delivered = p.publishNoData(ctx, log, report)
		report.FinishedAt = p.now().UTC()
		p.saveRun(ctx, log, report)
		return CycleResult{Report: report}, domain.ErrNoData
	}

	items := p.classifier.ClassifyBatch(ctx, collected.Posts)
	report.ItemsClassified = len(items)

	ranking := p.ranker.RankAll(items)
	report.Categories = ranking.Counts()
	p.warnThinCategories(log, ranking)

	report.Delivered = p.publishDigest(ctx, log, report, ranking)
	report.FinishedAt = p.now().UTC()
	p.saveRun(ctx, log, report)

	log.Info("cycle finished",
		"posts", report.PostsCollected,
		"classified", report.ItemsClassified,
		"ranked", ranking.Total(),
		"delivered", report.Delivered,
		"duration", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond),
	)
	return CycleResult{Report: report, Ranking: ranking}, nil
}

func (p *Pipeline) warnThinCategories(log *slog.Logger, ranking domain.CategoryRanking) {
	if p.minPerCategory <= 0 {
		return
	}
	for _, cat := range domain.Topics {
		if n := len(ranking[cat]); n < p.minPerCategory {
			log.Warn("category below minimum", "category", cat.Slug(), "items", n, "min", p.minPerCategory)
		}
	}
}

func (p *Pipeline) publishDigest(ctx context.Context, log *slog.Logger, report domain.CycleReport, ranking domain.CategoryRanking) bool {
	delivered := false
	for _, pub := range p.publishers {
		if err := pub.PublishDigest(ctx, report, ranking); err != nil {
			log.Warn("digest delivery failed", "publisher", pub.Name(), "error", err)
			continue
		}
		log.Info("digest delivered", "publisher", pub.Name())
		delivered = true
	}
	return delivered
}

func (p *Pipeline) publishNoData(ctx context.Context, log *slog.Logger, report domain.CycleReport) bool {
	delivered := false
	for _, pub := range p.publishers {
		if err := pub.PublishNoData(ctx, report); err != nil {
			log.Warn("no-data notice failed", "publisher", pub.Name(), "error", err)
			continue
		}
		delivered = true
	}
	return delivered
}

func (p *Pipeline) saveRun(ctx context.Context, log *slog.Logger, report domain.CycleReport) {
	if p.runs == nil {
		return
	}
	if err := p.runs.SaveRun(ctx, report); err != nil {
		log.Warn("run audit failed", "error", err)
	}
}
