package domain

import "errors"

var (
	// ErrCounterStore indica falha do counter store compartilhado. É uma falha,
	// não uma decisão de rate limit.
	ErrCounterStore = errors.New("counter store unavailable")

	ErrMissingIdentity = errors.New("rate limit identity is required")

	ErrNoToken          = errors.New("no token provided")
	ErrInvalidToken     = errors.New("invalid token")
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailNotVerified = errors.New("email not verified")

	// ErrUserLookup indica falha do repositório de usuários.
	ErrUserLookup = errors.New("user lookup failed")
)

func IsAuthError(err error) bool {
	return errors.Is(err, ErrNoToken) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrUserNotFound)
}
