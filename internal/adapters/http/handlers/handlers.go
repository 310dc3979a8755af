// Package handlers agrupa os handlers HTTP da API.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/JosueBrenes/VolunChain-Backend/internal/adapters/http/middleware"
)

// Pinger é implementado pelo counter store e pelas demais dependências.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// Health reporta o status de cada dependência registrada. Qualquer dependência
// com falha transforma a resposta em 503.
func Health(deps map[string]Pinger, now func() time.Time) http.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		resp := healthResponse{
			Status:    "ok",
			Timestamp: now().UTC().Format(time.RFC3339),
			Checks:    make(map[string]string, len(deps)),
		}
		for name, dep := range deps {
			if err := dep.Ping(ctx); err != nil {
				resp.Checks[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}

		writeJSON(w, status, resp)
	}
}

// Me devolve o usuário autenticado anexado ao contexto.
func Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Authentication required"})
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Message responde com uma mensagem fixa; usado nas rotas de exemplo.
func Message(message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": message})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
