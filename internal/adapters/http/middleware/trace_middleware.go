package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const TraceIDHeader = "X-Request-ID"

const maxTraceIDLength = 128

// TraceID reaproveita o X-Request-ID recebido ou gera um UUID, guardando-o no
// contexto da requisição e devolvendo-o no header da resposta.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := strings.TrimSpace(r.Header.Get(TraceIDHeader))
		if traceID == "" || len(traceID) > maxTraceIDLength {
			traceID = uuid.NewString()
		}

		w.Header().Set(TraceIDHeader, traceID)
		next.ServeHTTP(w, r.WithContext(WithTraceID(r.Context(), traceID)))
	})
}
