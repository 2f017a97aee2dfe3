// Package ranking scores classified items and keeps the top items for each
// topic category.
package ranking

import (
	"log/slog"
	"math"
	"slices"

	"NewsDigest/internal/domain"
)

// Weights are the composite score constants.
type Weights struct {
	OverlapMultiplier   float64
	OverlapCap          float64
	ImportanceWeight    float64
	RecencyMax          float64
	RecencyHorizonHours float64
	EngagementDivisor   float64
	EngagementCap       float64
}

// DefaultWeights bound the four terms at 50, 40, 20 and 10.
func DefaultWeights() Weights {
	return Weights{
		OverlapMultiplier:   5,
		OverlapCap:          50,
		ImportanceWeight:    4,
		RecencyMax:          20,
		RecencyHorizonHours: 4,
		EngagementDivisor:   100,
		EngagementCap:       10,
	}
}

// Ranker produces per-category rankings capped at maxPerCategory.
type Ranker struct {
	weights        Weights
	maxPerCategory int
	logger         *slog.Logger
}

// New creates a Ranker. A non-positive cap falls back to 10.
func New(weights Weights, maxPerCategory int, log *slog.Logger) *Ranker {
	if maxPerCategory <= 0 {
		maxPerCategory = 10
	}
	if weights.RecencyHorizonHours <= 0 {
		weights.RecencyHorizonHours = DefaultWeights().RecencyHorizonHours
	}
	if weights.EngagementDivisor <= 0 {
		weights.EngagementDivisor = DefaultWeights().EngagementDivisor
	}
	return &Ranker{weights: weights, maxPerCategory: maxPerCategory, logger: log}
}

func itemKeywords(item domain.ClassifiedItem) map[string]struct{} {
	return ExtractKeywords(item.Text + " " + item.Headline + " " + item.Summary)
}

// OverlapScore sums Jaccard(item, peer) * |intersection| over peers.
func OverlapScore(item map[string]struct{}, peers []map[string]struct{}) float64 {
	if len(item) == 0 {
		return 0
	}
	score := 0.0
	for _, peer := range peers {
		if len(peer) == 0 {
			continue
		}
		jaccard, shared := Jaccard(item, peer)
		score += jaccard * float64(shared)
	}
	return score
}

// CompositeScore scores item against the other items of its category.
func (r *Ranker) CompositeScore(item domain.ClassifiedItem, peers []domain.ClassifiedItem) domain.ScoredItem {
	peerSets := make([]map[string]struct{}, 0, len(peers))
	for _, p := range peers {
		peerSets = append(peerSets, itemKeywords(p))
	}
	return r.score(item, OverlapScore(itemKeywords(item), peerSets))
}

func (r *Ranker) score(item domain.ClassifiedItem, overlap float64) domain.ScoredItem {
	w := r.weights

	keyword := math.Min(overlap*w.OverlapMultiplier, w.OverlapCap)
	importance := float64(clampImportance(item.Importance)) * w.ImportanceWeight

	age := math.Max(item.AgeHours, 0)
	recency := math.Max(0, w.RecencyMax-(age/w.RecencyHorizonHours)*w.RecencyMax)

	engagement := math.Max(0, math.Min(item.EngagementScore/w.EngagementDivisor, w.EngagementCap))

	return domain.ScoredItem{
		ClassifiedItem: item,
		KeywordScore:   keyword,
		RecencyScore:   recency,
		FinalScore:     keyword + importance + recency + engagement,
	}
}

func clampImportance(v int) int {
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}

// RankCategory scores every item against the rest of the group, sorts by
// final score descending (stable) and truncates to the cap.
func (r *Ranker) RankCategory(items []domain.ClassifiedItem) []domain.ScoredItem {
	sets := make([]map[string]struct{}, len(items))
	for i, item := range items {
		sets[i] = itemKeywords(item)
	}

	scored := make([]domain.ScoredItem, 0, len(items))
	peers := make([]map[string]struct{}, 0, len(items))
	for i, item := range items {
		peers = peers[:0]
		for j := range sets {
			if j != i {
				peers = append(peers, sets[j])
			}
		}
		scored = append(scored, r.score(item, OverlapScore(sets[i], peers)))
	}

	slices.SortStableFunc(scored, func(a, b domain.ScoredItem) int {
		switch {
		case a.FinalScore > b.FinalScore:
			return -1
		case a.FinalScore < b.FinalScore:
			return 1
		default:
			return 0
		}
	})

	if len(scored) > r.maxPerCategory {
		scored = scored[:r.maxPerCategory]
	}
	return scored
}

// RankAll groups items by topic, dropping unclassified ones, and ranks each
// group. Every topic is present in the result, possibly with no items.
func (r *Ranker) RankAll(items []domain.ClassifiedItem) domain.CategoryRanking {
	groups := make(map[domain.Category][]domain.ClassifiedItem, len(domain.Topics))
	dropped := 0
	for _, item := range items {
		if !item.Category.IsTopic() {
			dropped++
			continue
		}
		groups[item.Category] = append(groups[item.Category], item)
	}

	ranking := make(domain.CategoryRanking, len(domain.Topics))
	for _, cat := range domain.Topics {
		ranked := r.RankCategory(groups[cat])
		ranking[cat] = ranked

		if r.logger != nil && len(ranked) > 0 {
			top := ranked[0]
			r.logger.Info("category ranked",
				"category", cat.Slug(),
				"candidates", len(groups[cat]),
				"selected", len(ranked),
				"top_score", math.Round(top.FinalScore*10)/10,
				"top_headline", top.Headline,
			)
		}
	}

	if r.logger != nil && dropped > 0 {
		r.logger.Debug("unclassified items excluded", "count", dropped)
	}
	return ranking
}
