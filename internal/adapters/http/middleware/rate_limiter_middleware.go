package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/JosueBrenes/VolunChain-Backend/internal/core/domain"
	"github.com/JosueBrenes/VolunChain-Backend/internal/core/ports"
)

const (
	RateLimitRemainingHeader = "X-RateLimit-Remaining"
	RateLimitLimitHeader     = "X-RateLimit-Limit"

	rateLimitExceededMessage = "Too many requests from this origin, please try again later."
)

type rateLimitResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter string `json:"retryAfter"`
	TraceID    string `json:"traceId,omitempty"`
}

// NewRateLimiterMiddleware aplica o limiter ao escopo informado. Cada escopo
// (ex.: "auth", "wallet") tem seu próprio contador, então o middleware pode ser
// montado em qualquer subconjunto de rotas.
func NewRateLimiterMiddleware(limiter ports.RateLimiter, scope string, onError ErrorHandler, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			ip := extractIP(r)
			req := domain.RateLimitRequest{Scope: scope, IP: ip}
			if user, ok := UserFromContext(r.Context()); ok {
				req.UserID = user.ID
			}

			decision, err := limiter.Allow(r.Context(), req)
			if err != nil {
				// O ErrorHandler registra a falha; o escopo vai na mensagem.
				onError(w, r, fmt.Errorf("rate limit %s: %w", scope, err))
				return
			}

			w.Header().Set(RateLimitLimitHeader, strconv.Itoa(decision.AppliedRule.Requests))
			w.Header().Set(RateLimitRemainingHeader, strconv.Itoa(decision.Remaining))

			if !decision.Allowed {
				traceID := TraceIDFromContext(r.Context())
				retryAfter := decision.RetryAfterSeconds()

				logger.Warn().
					Str("scope", scope).
					Str("key", decision.Key).
					Str("ip", ip).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("trace_id", traceID).
					Int64("count", decision.CurrentCount).
					Int("retry_after_seconds", retryAfter).
					Msg("rate limit exceeded")

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeJSON(w, http.StatusTooManyRequests, rateLimitResponse{
					Error:      http.StatusText(http.StatusTooManyRequests),
					Message:    rateLimitExceededMessage,
					RetryAfter: fmt.Sprintf("%d seconds", retryAfter),
					TraceID:    traceID,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func extractIP(r *http.Request) string {
	xForwardedFor := strings.TrimSpace(r.Header.Get("X-Forwarded-For"))
	if xForwardedFor != "" {
		parts := strings.Split(xForwardedFor, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}

	xRealIP := strings.TrimSpace(r.Header.Get("X-Real-IP"))
	if xRealIP != "" {
		return xRealIP
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}

	return host
}
