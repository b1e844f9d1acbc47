// Package models holds the rate limit decision shared by stores and middleware.
package models

import (
	"math"
	"time"
)

// Result is the outcome of a single sliding-window check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the whole number of seconds until the window frees a slot,
// never less than one.
func (r *Result) RetryAfter(now time.Time) int {
	secs := int(math.Ceil(r.ResetAt.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// Key builds the bucket key for a scope and identifier, e.g. "auth:ip:10.0.0.1".
func Key(scope, kind, identifier string) string {
	return scope + ":" + kind + ":" + identifier
}
