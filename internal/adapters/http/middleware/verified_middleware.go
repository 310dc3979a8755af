package middleware

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/JosueBrenes/VolunChain-Backend/internal/core/domain"
	"github.com/JosueBrenes/VolunChain-Backend/internal/core/ports"
)

const (
	authenticationRequiredMessage = "Authentication required"
	verificationRequiredMessage   = "Email verification required to access this resource"
)

type verificationResponse struct {
	Message            string `json:"message"`
	VerificationNeeded bool   `json:"verificationNeeded"`
}

// NewVerifiedEmailMiddleware reconsulta o status de verificação do usuário a cada
// requisição, sem confiar no valor já presente no contexto. Deve ser montado
// depois do NewAuthMiddleware.
func NewVerifiedEmailMiddleware(auth ports.Authenticator, onError ErrorHandler, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				logger.Error().
					Str("path", r.URL.Path).
					Str("trace_id", TraceIDFromContext(r.Context())).
					Msg("verified email gate reached without an authenticated user")
				writeMessage(w, http.StatusUnauthorized, authenticationRequiredMessage)
				return
			}

			verified, err := auth.IsVerified(r.Context(), user.ID)
			if err != nil {
				// O token pode sobreviver à exclusão do usuário: é falha de
				// autenticação (401), não de infraestrutura.
				if errors.Is(err, domain.ErrUserNotFound) {
					writeMessage(w, http.StatusUnauthorized, userNotFoundMessage)
					return
				}
				onError(w, r, err)
				return
			}

			if !verified {
				writeJSON(w, http.StatusForbidden, verificationResponse{
					Message:            verificationRequiredMessage,
					VerificationNeeded: true,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
