package domain

import "time"

// Post is a single feed entry fetched for a monitored account.
type Post struct {
	ID           string
	Text         string
	Author       string
	CreatedAt    string
	URL          string
	LikeCount    int
	RetweetCount int
	ReplyCount   int
	QuoteCount   int
	ViewCount    int
}

// NormalizedPost is a Post that passed the lookback-window filter.
type NormalizedPost struct {
	Post
	PublishedAt     time.Time
	AgeHours        float64
	EngagementScore float64
}

// ClassifiedItem carries the AI (or keyword fallback) enrichment for a post.
type ClassifiedItem struct {
	NormalizedPost
	Category     Category
	Headline     string
	Summary      string
	Analysis     string
	MarketImpact string
	Importance   int
}

// ScoredItem is a ClassifiedItem with its ranking components attached.
type ScoredItem struct {
	ClassifiedItem
	KeywordScore float64
	RecencyScore float64
	FinalScore   float64
}

// CategoryRanking maps every topic category to its ordered, capped items.
type CategoryRanking map[Category][]ScoredItem

// Total returns the number of ranked items across all categories.
func (r CategoryRanking) Total() int {
	total := 0
	for _, items := range r {
		total += len(items)
	}
	return total
}

// Counts returns per-category item counts keyed by slug.
func (r CategoryRanking) Counts() map[string]int {
	counts := make(map[string]int, len(r))
	for cat, items := range r {
		counts[cat.Slug()] = len(items)
	}
	return counts
}

// CycleReport summarizes one pipeline execution for audit and logs.
type CycleReport struct {
	RunID           string
	StartedAt       time.Time
	FinishedAt      time.Time
	AccountsTotal   int
	AccountsFailed  int
	PostsCollected  int
	ItemsClassified int
	Categories      map[string]int
	Delivered       bool
}
