package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/JosueBrenes/VolunChain-Backend/internal/core/domain"
	"github.com/JosueBrenes/VolunChain-Backend/internal/core/ports"
)

const (
	noTokenMessage          = "No token provided"
	invalidTokenMessage     = "Invalid token"
	userNotFoundMessage     = "User not found"
	emailNotVerifiedMessage = "Email not verified. Please verify your email before accessing this resource."
)

// NewAuthMiddleware autentica o bearer token e anexa o AuthenticatedUser ao
// contexto. Falhas de autenticação respondem 401, e-mail não verificado 403, e
// falhas do repositório seguem para o ErrorHandler.
func NewAuthMiddleware(auth ports.Authenticator, onError ErrorHandler, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeMessage(w, http.StatusUnauthorized, noTokenMessage)
				return
			}

			user, err := auth.Authenticate(r.Context(), token)
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
			case errors.Is(err, domain.ErrNoToken):
				writeMessage(w, http.StatusUnauthorized, noTokenMessage)
			case errors.Is(err, domain.ErrInvalidToken):
				logger.Debug().Err(err).Str("path", r.URL.Path).Str("trace_id", TraceIDFromContext(r.Context())).Msg("token rejected")
				writeMessage(w, http.StatusUnauthorized, invalidTokenMessage)
			case errors.Is(err, domain.ErrUserNotFound):
				writeMessage(w, http.StatusUnauthorized, userNotFoundMessage)
			case errors.Is(err, domain.ErrEmailNotVerified):
				writeMessage(w, http.StatusForbidden, emailNotVerifiedMessage)
			default:
				onError(w, r, err)
			}
		})
	}
}

// bearerToken extrai a credencial de "Authorization: Bearer <token>".
func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	return token, token != ""
}
