package llm

import (
	"fmt"
	"net/http"
	"strings"

	"NewsDigest/internal/domain"
)

var (
	quotaMarkers       = []string{"resource_exhausted", "quota", "rate limit", "rate_limit", "insufficient_quota", "overloaded"}
	unsupportedMarkers = []string{"not found", "not_found", "not supported", "unsupported", "does not exist", "model_not_found"}
)

// classifyStatus maps a failed HTTP exchange onto the domain sentinels the
// classifier reacts to. Anything else is a plain error.
func classifyStatus(provider, model string, status int, detail string) error {
	detail = strings.TrimSpace(detail)
	lower := strings.ToLower(detail)

	switch {
	case status == http.StatusTooManyRequests || status == 529 || containsAny(lower, quotaMarkers):
		return fmt.Errorf("%s %s: %w (status %d)", provider, model, domain.ErrQuotaExceeded, status)
	case status == http.StatusNotFound || containsAny(lower, unsupportedMarkers):
		return fmt.Errorf("%s %s: %w (status %d)", provider, model, domain.ErrModelUnsupported, status)
	default:
		return fmt.Errorf("%s %s: unexpected status %d: %s", provider, model, status, truncate(detail, 200))
	}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
