package kb

import "errors"

var (
	// ErrNotConfigured means the API key or pipeline index is missing.
	ErrNotConfigured = errors.New("kb: API key or index not configured")

	// ErrQueryFailed wraps transport and server-side retrieval failures.
	ErrQueryFailed = errors.New("kb: query failed")
)
