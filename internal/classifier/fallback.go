package classifier

import (
	"strings"
	"unicode/utf8"

	"NewsDigest/internal/domain"
)

const (
	fallbackHeadlineRunes = 50
	fallbackSummaryRunes  = 200
	defaultImportance     = 5
)

// KeywordCategory picks the topic whose keyword list has the most entries
// present in text. Ties go to the earlier topic; no match is Unclassified.
func KeywordCategory(text string, keywords map[domain.Category][]string) domain.Category {
	lower := strings.ToLower(text)

	best, bestScore := domain.Unclassified, 0
	for _, cat := range domain.Topics {
		score := 0
		for _, kw := range keywords[cat] {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" && strings.Contains(lower, kw) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = cat, score
		}
	}
	return best
}

// FallbackClassify classifies posts by keyword matching alone. It returns
// exactly one item per post.
func FallbackClassify(posts []domain.NormalizedPost, keywords map[domain.Category][]string) []domain.ClassifiedItem {
	items := make([]domain.ClassifiedItem, 0, len(posts))
	for _, post := range posts {
		items = append(items, fallbackItem(post, keywords))
	}
	return items
}

func fallbackItem(post domain.NormalizedPost, keywords map[domain.Category][]string) domain.ClassifiedItem {
	return domain.ClassifiedItem{
		NormalizedPost: post,
		Category:       KeywordCategory(post.Text, keywords),
		Headline:       truncateRunes(post.Text, fallbackHeadlineRunes, "..."),
		Summary:        truncateRunes(post.Text, fallbackSummaryRunes, ""),
		Importance:     defaultImportance,
	}
}

func truncateRunes(s string, limit int, suffix string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:limit])) + suffix
}
