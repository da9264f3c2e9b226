package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors. Auth failures are never retried and end the run.
	ErrAuthFailed = fmt.Errorf("authentication failed")

	// Request errors. Transient and rate-limit errors are retried with
	// backoff; everything else propagates immediately.
	ErrTransient          = fmt.Errorf("transient request failure")
	ErrRateLimited        = fmt.Errorf("rate limited by service")
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// SearchFailed marks a search that exhausted its retry budget.
	ErrSearchFailed = fmt.Errorf("search failed")

	// Per-track match outcomes, non-fatal and recorded in the report
	ErrTrackNotFound  = fmt.Errorf("track not found")
	ErrAmbiguousMatch = fmt.Errorf("ambiguous match")

	// Catalog and cache errors
	ErrPlaylistNotFound = fmt.Errorf("playlist not found")
	ErrMutationFailed   = fmt.Errorf("playlist mutation failed")
	ErrCacheWrite       = fmt.Errorf("cache write failed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)
