package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/JosueBrenes/VolunChain-Backend/internal/core/domain"
	"github.com/JosueBrenes/VolunChain-Backend/internal/core/ports"
)

// Config agrega os limites utilizados pelo serviço de rate limiting.
type Config struct {
	DefaultRule domain.RateLimitRule
	ScopeRules  map[string]domain.RateLimitRule
}

// RateLimiterService implementa a lógica central de rate limiting em janela fixa.
type RateLimiterService struct {
	storage ports.CounterStore
	config  Config
}

var _ ports.RateLimiter = (*RateLimiterService)(nil)

// NewRateLimiterService cria uma nova instância do serviço.
func NewRateLimiterService(storage ports.CounterStore, cfg Config) (*RateLimiterService, error) {
	if storage == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if !cfg.DefaultRule.Valid() {
		return nil, fmt.Errorf("default rule must have positive values")
	}
	rules := make(map[string]domain.RateLimitRule, len(cfg.ScopeRules))
	for scope, rule := range cfg.ScopeRules {
		if !rule.Valid() {
			return nil, fmt.Errorf("rule for scope %q must have positive values", scope)
		}
		rules[normalize(scope)] = rule
	}
	cfg.ScopeRules = rules

	return &RateLimiterService{storage: storage, config: cfg}, nil
}

// Allow avalia se a requisição pode prosseguir de acordo com as regras configuradas.
// Exceder o limite não é um erro: é uma Decision com Allowed=false. Erros indicam
// falha do counter store ou identidade ausente.
func (s *RateLimiterService) Allow(ctx context.Context, req domain.RateLimitRequest) (domain.Decision, error) {
	rule := s.resolveRule(req.Scope)
	keys, err := buildKeys(req)
	if err != nil {
		return domain.Decision{}, err
	}

	count, ttl, err := s.storage.Increment(ctx, keys.counterKey, rule.Window)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("%w: increment %s: %v", domain.ErrCounterStore, keys.counterKey, err)
	}

	decision := domain.Decision{
		Identifier:   keys.identifier,
		Key:          keys.counterKey,
		AppliedRule:  rule,
		CurrentCount: count,
	}

	if count > int64(rule.Requests) {
		retryAfter := ttl
		if retryAfter <= 0 || retryAfter > rule.Window {
			retryAfter = rule.Window
		}
		decision.RetryAfter = retryAfter
		return decision, nil
	}

	decision.Allowed = true
	decision.Remaining = rule.Requests - int(count)
	return decision, nil
}

func (s *RateLimiterService) resolveRule(scope string) domain.RateLimitRule {
	if rule, ok := s.config.ScopeRules[normalize(scope)]; ok {
		return rule
	}
	return s.config.DefaultRule
}

type resolvedKeys struct {
	counterKey string
	identifier string
}

// buildKeys prefere o id do usuário autenticado e usa o IP do cliente como
// alternativa. Toda chave leva o escopo, então grupos de rotas não dividem cota.
func buildKeys(req domain.RateLimitRequest) (resolvedKeys, error) {
	scope := normalize(req.Scope)
	if scope == "" {
		scope = "global"
	}

	if userID := normalize(req.UserID); userID != "" {
		return keysFor(scope, "user", userID), nil
	}
	if ip := normalize(req.IP); ip != "" {
		return keysFor(scope, "ip", ip), nil
	}

	return resolvedKeys{}, domain.ErrMissingIdentity
}

func keysFor(scope, prefix, identifier string) resolvedKeys {
	return resolvedKeys{
		counterKey: fmt.Sprintf("ratelimit:%s:%s:%s", scope, prefix, identifier),
		identifier: identifier,
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
