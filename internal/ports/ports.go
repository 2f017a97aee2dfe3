package ports

import (
	"context"
	"time"

	"NewsDigest/internal/domain"
)

// FeedScanner reads one account's feed from one mirror instance. A nil
// error with zero posts means the feed was valid but empty.
type FeedScanner interface {
	Scan(ctx context.Context, instance, account string) ([]domain.Post, error)
}

// PostSource produces the normalized, time-filtered posts for a cycle.
type PostSource interface {
	Collect(ctx context.Context) (CollectResult, error)
}

// CollectResult carries collected posts plus degradation counters.
type CollectResult struct {
	Posts          []domain.NormalizedPost
	AccountsTotal  int
	AccountsFailed int
}

// GenerateRequest is a single call to an AI text-generation service.
type GenerateRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
	JSON         bool
}

// TextGenerator calls an AI service. Implementations wrap
// domain.ErrQuotaExceeded or domain.ErrModelUnsupported where applicable.
type TextGenerator interface {
	Name() string
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// PostClassifier enriches posts with category and synopsis.
type PostClassifier interface {
	ClassifyBatch(ctx context.Context, posts []domain.NormalizedPost) []domain.ClassifiedItem
}

// Ranker turns classified items into the per-category ranking.
type Ranker interface {
	RankAll(items []domain.ClassifiedItem) domain.CategoryRanking
}

// DigestPublisher hands the ranking to a downstream delivery channel.
type DigestPublisher interface {
	Name() string
	PublishDigest(ctx context.Context, report domain.CycleReport, ranking domain.CategoryRanking) error
	PublishNoData(ctx context.Context, report domain.CycleReport) error
}

// RunRepository persists cycle reports for audit.
type RunRepository interface {
	SaveRun(ctx context.Context, report domain.CycleReport) error
	RecentRuns(ctx context.Context, limit int) ([]domain.CycleReport, error)
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
