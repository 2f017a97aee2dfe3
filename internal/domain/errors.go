package domain

import "errors"

var (
	// ErrFetchFailed means no mirror instance returned a usable feed.
	ErrFetchFailed = errors.New("feed fetch failed")
	// ErrQuotaExceeded is returned by generators on rate or usage limits.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrModelUnsupported is returned when the requested model does not exist.
	ErrModelUnsupported = errors.New("model not supported")
	// ErrResponseParse marks AI output that is not the expected JSON document.
	ErrResponseParse = errors.New("malformed ai response")
	// ErrNoData means the collector produced zero posts for the cycle.
	ErrNoData = errors.New("no posts collected")
)
