package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"NewsDigest/internal/domain"
)

type chunkResponse struct {
	Results *[]rawResult `json:"results"`
}

type rawResult struct {
	Index        json.Number `json:"index"`
	Category     string      `json:"category"`
	Headline     string      `json:"headline"`
	Summary      string      `json:"summary"`
	Analysis     string      `json:"analysis"`
	Importance   json.Number `json:"importance"`
	MarketImpact string      `json:"market_impact"`
}

// NormalizeResponse strips a single surrounding code fence (with an
// optional language tag) and returns the inner text. Unfenced text is only
// trimmed.
func NormalizeResponse(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	body := strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		tag := strings.TrimSpace(body[:nl])
		if !strings.ContainsAny(tag, "{[") {
			body = body[nl+1:]
		}
	}
	body = stripLanguageTag(strings.TrimSpace(body))
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}

// stripLanguageTag drops a tag written on the fence line itself, as in
// "json{...}", when JSON follows it directly.
func stripLanguageTag(body string) string {
	i := 0
	for i < len(body) && (body[i] >= 'a' && body[i] <= 'z' || body[i] >= 'A' && body[i] <= 'Z') {
		i++
	}
	if i == 0 {
		return body
	}
	rest := strings.TrimLeft(body[i:], " \t")
	if strings.HasPrefix(rest, "{") || strings.HasPrefix(rest, "[") {
		return rest
	}
	return body
}

func parseResults(text string) ([]rawResult, error) {
	var resp chunkResponse
	if err := json.Unmarshal([]byte(NormalizeResponse(text)), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrResponseParse, err)
	}
	if resp.Results == nil {
		return nil, fmt.Errorf("%w: missing results array", domain.ErrResponseParse)
	}
	return *resp.Results, nil
}

func (r rawResult) index() (int, bool) {
	f, err := r.Index.Float64()
	if err != nil || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func (r rawResult) importance() int {
	f, err := r.Importance.Float64()
	if err != nil {
		return defaultImportance
	}
	v := int(math.Round(f))
	if v < 1 {
		return 1
	}
	if v > 10 {
		return 10
	}
	return v
}
