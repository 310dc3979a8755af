// Package middleware disponibiliza middlewares HTTP específicos da aplicação.
package middleware

import (
	"context"

	"github.com/JosueBrenes/VolunChain-Backend/internal/core/domain"
)

type contextKey int

const (
	userContextKey contextKey = iota
	traceIDContextKey
)

// WithUser devolve uma cópia de ctx com o usuário autenticado.
func WithUser(ctx context.Context, user domain.AuthenticatedUser) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

func UserFromContext(ctx context.Context) (domain.AuthenticatedUser, bool) {
	user, ok := ctx.Value(userContextKey).(domain.AuthenticatedUser)
	return user, ok
}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDContextKey, traceID)
}

// TraceIDFromContext devolve "" quando não há trace id no contexto.
func TraceIDFromContext(ctx context.Context) string {
	traceID, _ := ctx.Value(traceIDContextKey).(string)
	return traceID
}
