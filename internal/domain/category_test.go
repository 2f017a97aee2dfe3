package domain

import (
	"encoding/json"
	"testing"
)

func TestParseCategory(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"economy", Economy, true},
		{" Crypto ", Crypto, true},
		{"지정학", Geopolitics, true},
		{"트럼프", Trump, true},
		{"기타", Unclassified, true},
		{"sports", Unclassified, false},
		{"", Unclassified, false},
	}

	for _, tc := range cases {
		got, ok := ParseCategory(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ParseCategory(%q) = %v,%v want %v,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestCategoryRankingJSONUsesSlugs(t *testing.T) {
	t.Parallel()

	ranking := CategoryRanking{Economy: {}, Crypto: nil}
	raw, err := json.Marshal(ranking)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := decoded["economy"]; !ok {
		t.Fatalf("expected economy key, got %s", raw)
	}
	if _, ok := decoded["crypto"]; !ok {
		t.Fatalf("expected crypto key, got %s", raw)
	}
}

func TestTopicsExcludeUnclassified(t *testing.T) {
	t.Parallel()

	for _, c := range Topics {
		if !c.IsTopic() {
			t.Fatalf("%s should be a topic", c)
		}
	}
	if Unclassified.IsTopic() {
		t.Fatal("unclassified must not be a topic")
	}
}
