package ratelimit

import (
	"context"
	"time"
)

// Limiter decides whether a keyed request fits its rate budget
type Limiter interface {
	// Allow checks if a request should be allowed for the given key
	Allow(ctx context.Context, key string) (*Info, error)
}

// Info is the rate limit state after a decision
type Info struct {
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// Remaining is the number of requests remaining in the current window
	Remaining int
	// ResetAt is when the window resets
	ResetAt time.Time
	// Allowed indicates whether the request fit the budget
	Allowed bool
}
