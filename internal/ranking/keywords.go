package ranking

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var stopwords = toSet(
	"the", "a", "an", "is", "are", "was", "were", "be", "been", "being",
	"have", "has", "had", "do", "does", "did", "will", "would", "could",
	"should", "may", "might", "shall", "can", "need", "dare", "ought",
	"to", "of", "in", "for", "on", "with", "at", "by", "from", "as",
	"into", "through", "during", "before", "after", "above", "below",
	"between", "out", "off", "over", "under", "again", "then", "once",
	"and", "but", "or", "nor", "so", "yet", "both", "either", "neither",
	"not", "no", "only", "own", "same", "than", "too", "very", "just",
	"that", "this", "these", "those", "it", "its", "he", "she", "they",
	"we", "you", "i", "my", "your", "his", "her", "our", "their",
	"what", "which", "who", "whom", "when", "where", "why", "how",
	"all", "each", "every", "few", "more", "most", "other", "some",
	"such", "up", "if", "about", "also", "new", "now", "said", "say",
	"이런", "그런", "하는", "있는", "없는", "에서", "으로", "에게",
)

// ExtractKeywords lower-cases text and returns the set of letter runs of at
// least two characters, minus stop words.
func ExtractKeywords(text string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) < 2 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}

// Jaccard returns |a∩b|/|a∪b| and the intersection size.
func Jaccard(a, b map[string]struct{}) (float64, int) {
	if len(a) > len(b) {
		a, b = b, a
	}
	shared := 0
	for w := range a {
		if _, ok := b[w]; ok {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	if union == 0 {
		return 0, 0
	}
	return float64(shared) / float64(union), shared
}

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
