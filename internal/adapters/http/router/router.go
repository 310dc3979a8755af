// Package router monta as rotas HTTP e a cadeia de middlewares da API.
package router

import (
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/JosueBrenes/VolunChain-Backend/internal/adapters/http/handlers"
	"github.com/JosueBrenes/VolunChain-Backend/internal/adapters/http/middleware"
	"github.com/JosueBrenes/VolunChain-Backend/internal/config"
	"github.com/JosueBrenes/VolunChain-Backend/internal/core/ports"
)

const apiPrefix = "/api"

type Deps struct {
	Limiter     ports.RateLimiter
	Auth        ports.Authenticator
	RouteLimits []config.RouteLimit
	Health      map[string]handlers.Pinger
	Logger      zerolog.Logger
}

// New monta o handler da API: trace id → rate limit por prefixo → auth → handlers.
func New(d Deps) http.Handler {
	onError := middleware.NewErrorHandler(d.Logger)
	requireAuth := middleware.NewAuthMiddleware(d.Auth, onError, d.Logger)
	requireVerified := middleware.NewVerifiedEmailMiddleware(d.Auth, onError, d.Logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.TraceID)
	// Montado antes do auth: as chaves são sempre por IP, nunca por usuário.
	r.Use(PrefixRateLimits(d.Limiter, withDefaultScope(d.RouteLimits), onError, d.Logger))

	r.Get("/health", handlers.Health(d.Health, nil))

	r.Route(apiPrefix, func(r chi.Router) {
		r.Get("/auth/ping", handlers.Message("pong"))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/users/me", handlers.Me)

			r.Group(func(r chi.Router) {
				r.Use(requireVerified)
				r.Get("/wallet/balance", handlers.Message("wallet access granted"))
				r.Get("/certificates", handlers.Message("certificates access granted"))
			})
		})
	})

	return r
}

// withDefaultScope cobre com a regra padrão as rotas /api que nenhum prefixo
// configurado alcança. O escopo padrão não tem regra própria, então o engine
// aplica a DefaultRule.
func withDefaultScope(routes []config.RouteLimit) []config.RouteLimit {
	for _, rl := range routes {
		if strings.TrimSuffix(rl.Prefix, "/") == apiPrefix {
			return routes
		}
	}
	limits := make([]config.RouteLimit, 0, len(routes)+1)
	limits = append(limits, routes...)
	return append(limits, config.RouteLimit{Scope: config.DefaultScope, Prefix: apiPrefix})
}

type scopedChain struct {
	prefix string
	wrap   func(http.Handler) http.Handler
}

// PrefixRateLimits aplica o rate limit somente às rotas cujo caminho começa com
// um dos prefixos configurados. Vence o prefixo mais longo.
func PrefixRateLimits(limiter ports.RateLimiter, routes []config.RouteLimit, onError middleware.ErrorHandler, logger zerolog.Logger) func(http.Handler) http.Handler {
	chains := make([]scopedChain, 0, len(routes))
	for _, rl := range routes {
		chains = append(chains, scopedChain{
			prefix: strings.TrimSuffix(rl.Prefix, "/"),
			wrap:   middleware.NewRateLimiterMiddleware(limiter, rl.Scope, onError, logger),
		})
	}
	sort.SliceStable(chains, func(i, j int) bool {
		return len(chains[i].prefix) > len(chains[j].prefix)
	})

	return func(next http.Handler) http.Handler {
		wrapped := make([]http.Handler, len(chains))
		for i, c := range chains {
			wrapped[i] = c.wrap(next)
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for i, c := range chains {
				if matchesPrefix(r.URL.Path, c.prefix) {
					wrapped[i].ServeHTTP(w, r)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func matchesPrefix(path, prefix string) bool {
	if prefix == "" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
