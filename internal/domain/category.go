package domain

import (
	"fmt"
	"strings"
)

// Category is the closed set of topic tags items are bucketed into.
type Category int

const (
	Unclassified Category = iota
	Geopolitics
	Economy
	Trump
	Crypto
)

// Topics lists the ranked categories in enumeration order.
var Topics = []Category{Geopolitics, Economy, Trump, Crypto}

var categoryNames = map[Category]struct{ slug, label string }{
	Unclassified: {"unclassified", "기타"},
	Geopolitics:  {"geopolitics", "지정학"},
	Economy:      {"economy", "경제"},
	Trump:        {"trump", "트럼프"},
	Crypto:       {"crypto", "암호화폐"},
}

// Slug is the stable ASCII identifier used in config and JSON.
func (c Category) Slug() string {
	if n, ok := categoryNames[c]; ok {
		return n.slug
	}
	return categoryNames[Unclassified].slug
}

// Label is the display name in the output language.
func (c Category) Label() string {
	if n, ok := categoryNames[c]; ok {
		return n.label
	}
	return categoryNames[Unclassified].label
}

func (c Category) String() string {
	return c.Slug()
}

// IsTopic reports whether c is one of the ranked categories.
func (c Category) IsTopic() bool {
	return c != Unclassified && c >= Geopolitics && c <= Crypto
}

// ParseCategory accepts either a slug or a display label. Unknown names
// yield Unclassified and false.
func ParseCategory(name string) (Category, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Unclassified, false
	}
	for cat, n := range categoryNames {
		if name == n.slug || name == n.label {
			return cat, true
		}
	}
	return Unclassified, false
}

// MarshalText encodes the category as its slug.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.Slug()), nil
}

// UnmarshalText decodes a slug or label.
func (c *Category) UnmarshalText(text []byte) error {
	cat, ok := ParseCategory(string(text))
	if !ok {
		return fmt.Errorf("unknown category %q", string(text))
	}
	*c = cat
	return nil
}
