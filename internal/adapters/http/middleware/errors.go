package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

// ErrorHandler recebe falhas de dependências (counter store, busca de usuário)
// que não devem chegar ao cliente como respostas de rate limit ou autenticação.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type errorResponse struct {
	Message string `json:"message"`
	TraceID string `json:"traceId,omitempty"`
}

// NewErrorHandler registra a falha com o trace id da requisição e responde com
// um 500 genérico.
func NewErrorHandler(logger zerolog.Logger) ErrorHandler {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		traceID := TraceIDFromContext(r.Context())

		logger.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("ip", extractIP(r)).
			Str("trace_id", traceID).
			Msg("request failed")

		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Message: http.StatusText(http.StatusInternalServerError),
			TraceID: traceID,
		})
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
