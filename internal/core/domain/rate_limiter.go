// Package domain concentra entidades e estruturas centrais da API.
package domain

import "time"

type RateLimitRule struct {
	Requests int
	Window   time.Duration
}

// Valid informa se a regra pode ser aplicada.
func (r RateLimitRule) Valid() bool {
	return r.Requests > 0 && r.Window > 0
}

// RateLimitRequest descreve a origem de uma requisição para fins de rate limiting.
type RateLimitRequest struct {
	Scope  string
	IP     string
	UserID string
}

type Decision struct {
	Allowed      bool
	Remaining    int
	RetryAfter   time.Duration
	Identifier   string
	Key          string
	AppliedRule  RateLimitRule
	CurrentCount int64
}

// RetryAfterSeconds arredonda RetryAfter para cima em segundos, nunca abaixo de um.
func (d Decision) RetryAfterSeconds() int {
	if d.Allowed {
		return 0
	}
	secs := int((d.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
