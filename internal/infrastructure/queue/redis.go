// Package queue hands finished digests to downstream consumers through a
// Redis list.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// DefaultKey is the list consumers BRPOP from.
const DefaultKey = "newsdigest:digests"

const (
	kindDigest = "digest"
	kindNoData = "no_data"
)

type lister interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// Publisher pushes one JSON document per cycle onto a Redis list.
type Publisher struct {
	client lister
	closer func() error
	key    string
	now    func() time.Time
}

var _ ports.DigestPublisher = (*Publisher)(nil)

// Connect parses a redis:// URL (a bare host:port also works) and pings
// the server.
func Connect(ctx context.Context, redisURL, key string) (*Publisher, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{Addr: redisURL}
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opt.Addr, err)
	}
	p := newPublisher(client, key)
	p.closer = client.Close
	return p, nil
}

func newPublisher(client lister, key string) *Publisher {
	if key == "" {
		key = DefaultKey
	}
	return &Publisher{client: client, key: key, now: time.Now}
}

// Name identifies the channel in logs.
func (p *Publisher) Name() string { return "redis" }

// Close releases the connection pool.
func (p *Publisher) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}

// Message is the document written to the list.
type Message struct {
	Kind        string                `json:"kind"`
	RunID       string                `json:"run_id"`
	GeneratedAt time.Time             `json:"generated_at"`
	Report      Report                `json:"report"`
	Categories  map[string][]Headline `json:"categories,omitempty"`
}

// Report mirrors the cycle counters.
type Report struct {
	AccountsTotal   int            `json:"accounts_total"`
	AccountsFailed  int            `json:"accounts_failed"`
	PostsCollected  int            `json:"posts_collected"`
	ItemsClassified int            `json:"items_classified"`
	Counts          map[string]int `json:"counts,omitempty"`
}

// Headline is one ranked item.
type Headline struct {
	Rank         int     `json:"rank"`
	Headline     string  `json:"headline"`
	Summary      string  `json:"summary,omitempty"`
	Analysis     string  `json:"analysis,omitempty"`
	MarketImpact string  `json:"market_impact,omitempty"`
	Importance   int     `json:"importance"`
	Score        float64 `json:"score"`
	Author       string  `json:"author"`
	URL          string  `json:"url"`
}

// PublishDigest pushes the ranking with every topic present.
func (p *Publisher) PublishDigest(ctx context.Context, report domain.CycleReport, ranking domain.CategoryRanking) error {
	msg := p.envelope(kindDigest, report)
	msg.Categories = make(map[string][]Headline, len(domain.Topics))
	for _, cat := range domain.Topics {
		items := ranking[cat]
		out := make([]Headline, 0, len(items))
		for i, item := range items {
			out = append(out, Headline{
				Rank:         i + 1,
				Headline:     item.Headline,
				Summary:      item.Summary,
				Analysis:     item.Analysis,
				MarketImpact: item.MarketImpact,
				Importance:   item.Importance,
				Score:        item.FinalScore,
				Author:       item.Author,
				URL:          item.URL,
			})
		}
		msg.Categories[cat.Slug()] = out
	}
	msg.Report.Counts = ranking.Counts()
	return p.push(ctx, msg)
}

// PublishNoData pushes a marker so consumers know the cycle ran empty.
func (p *Publisher) PublishNoData(ctx context.Context, report domain.CycleReport) error {
	return p.push(ctx, p.envelope(kindNoData, report))
}

func (p *Publisher) envelope(kind string, report domain.CycleReport) Message {
	return Message{
		Kind:        kind,
		RunID:       report.RunID,
		GeneratedAt: p.now().UTC(),
		Report: Report{
			AccountsTotal:   report.AccountsTotal,
			AccountsFailed:  report.AccountsFailed,
			PostsCollected:  report.PostsCollected,
			ItemsClassified: report.ItemsClassified,
		},
	}
}

func (p *Publisher) push(ctx context.Context, msg Message) error {
	if p.client == nil {
		return fmt.Errorf("redis publisher not connected")
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", msg.Kind, err)
	}
	if err := p.client.LPush(ctx, p.key, string(payload)).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", p.key, err)
	}
	return nil
}
