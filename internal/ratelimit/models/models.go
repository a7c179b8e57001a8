package models

import "time"

// Policy is a per-client request budget over a sliding window.
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Key scopes a client identifier to the policy.
func (p Policy) Key(client string) string {
	return "rl:" + p.Name + ":" + client
}

// RateLimitResult is the outcome of one Allow call.
type RateLimitResult struct {
	Allowed   bool      `json:"allowed"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
	// RetryAfter is in whole seconds and only set when not allowed.
	RetryAfter int `json:"retry_after,omitempty"`
}

// RetryAfterSeconds rounds the wait until resetAt up to whole seconds, at
// least one.
func RetryAfterSeconds(now, resetAt time.Time) int {
	wait := resetAt.Sub(now)
	secs := int((wait + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

type RateLimitExceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
}
