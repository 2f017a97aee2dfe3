package classifier

// ComplianceThreshold is the minimum share of Hangul letters a field needs.
const ComplianceThreshold = 0.30

// LanguageRatio returns Hangul syllables / (Hangul syllables + ASCII
// letters). Text without any such letters counts as fully compliant.
func LanguageRatio(text string) float64 {
	var hangul, latin int
	for _, r := range text {
		switch {
		case r >= 0xAC00 && r <= 0xD7A3:
			hangul++
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			latin++
		}
	}
	if hangul+latin == 0 {
		return 1
	}
	return float64(hangul) / float64(hangul+latin)
}

// IsCompliant reports whether text meets the target-language threshold.
func IsCompliant(text string) bool {
	return LanguageRatio(text) >= ComplianceThreshold
}
