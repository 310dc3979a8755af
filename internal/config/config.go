// Package config centraliza o carregamento de configurações da aplicação.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/JosueBrenes/VolunChain-Backend/internal/core/domain"
)

const defaultRateLimitRoutes = "auth:/api/auth:5:60,wallet:/api/wallet:20:60"

// DefaultScope é o escopo das rotas /api sem prefixo configurado. Ele usa
// RATE_LIMIT_REQUESTS/RATE_LIMIT_WINDOW_SECONDS e não pode ser declarado em
// RATE_LIMIT_ROUTES.
const DefaultScope = "default"

type Config struct {
	Server      ServerConfig
	Storage     StorageConfig
	Users       UsersConfig
	Auth        AuthConfig
	RateLimiter RateLimiterConfig
	Log         LogConfig
}

type ServerConfig struct {
	Port string
}

type StorageConfig struct {
	Type  string
	Redis RedisConfig
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type UsersConfig struct {
	Type        string
	DatabaseURL string
	Seed        []domain.User
}

// AuthConfig só carrega o segredo: o servidor apenas valida tokens. A validade
// dos tokens emitidos (JWT_TTL_MINUTES) é lida pelo cmd/tokengen.
type AuthConfig struct {
	JWTSecret string
}

// RouteLimit associa um prefixo de rota a um escopo e a uma regra própria.
type RouteLimit struct {
	Scope  string
	Prefix string
	Rule   domain.RateLimitRule
}

type RateLimiterConfig struct {
	DefaultRule domain.RateLimitRule
	Routes      []RouteLimit
}

// ScopeRules indexa as regras das rotas pelo escopo.
func (c RateLimiterConfig) ScopeRules() map[string]domain.RateLimitRule {
	rules := make(map[string]domain.RateLimitRule, len(c.Routes))
	for _, r := range c.Routes {
		rules[r.Scope] = r.Rule
	}
	return rules
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	server := ServerConfig{Port: getEnv("SERVER_PORT", "8080")}

	storageType := getEnv("STORAGE_TYPE", "redis")

	redisConfig, err := buildRedisConfig()
	if err != nil {
		return Config{}, err
	}

	usersConfig, err := buildUsersConfig()
	if err != nil {
		return Config{}, err
	}

	authConfig, err := buildAuthConfig()
	if err != nil {
		return Config{}, err
	}

	rateLimiterConfig, err := buildRateLimiterConfig()
	if err != nil {
		return Config{}, err
	}

	return Config{
		Server: server,
		Storage: StorageConfig{
			Type:  storageType,
			Redis: redisConfig,
		},
		Users:       usersConfig,
		Auth:        authConfig,
		RateLimiter: rateLimiterConfig,
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}, nil
}

func buildRedisConfig() (RedisConfig, error) {
	host := getEnv("REDIS_HOST", "localhost")
	port, err := strconv.Atoi(getEnv("REDIS_PORT", "6379"))
	if err != nil {
		return RedisConfig{}, fmt.Errorf("invalid REDIS_PORT: %w", err)
	}
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return RedisConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	return RedisConfig{
		Host:     host,
		Port:     port,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	}, nil
}

func buildUsersConfig() (UsersConfig, error) {
	storeType := getEnv("USER_STORE_TYPE", "postgres")
	databaseURL := os.Getenv("DATABASE_URL")
	if storeType == "postgres" && strings.TrimSpace(databaseURL) == "" {
		return UsersConfig{}, fmt.Errorf("DATABASE_URL is required when USER_STORE_TYPE=postgres")
	}

	seed, err := buildSeedUsers()
	if err != nil {
		return UsersConfig{}, err
	}

	return UsersConfig{
		Type:        storeType,
		DatabaseURL: strings.TrimSpace(databaseURL),
		Seed:        seed,
	}, nil
}

func buildAuthConfig() (AuthConfig, error) {
	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" {
		return AuthConfig{}, fmt.Errorf("JWT_SECRET is required")
	}

	return AuthConfig{JWTSecret: secret}, nil
}

func buildRateLimiterConfig() (RateLimiterConfig, error) {
	requests, err := strconv.Atoi(getEnv("RATE_LIMIT_REQUESTS", "100"))
	if err != nil {
		return RateLimiterConfig{}, fmt.Errorf("invalid RATE_LIMIT_REQUESTS: %w", err)
	}
	windowSeconds, err := strconv.Atoi(getEnv("RATE_LIMIT_WINDOW_SECONDS", "60"))
	if err != nil {
		return RateLimiterConfig{}, fmt.Errorf("invalid RATE_LIMIT_WINDOW_SECONDS: %w", err)
	}

	routes, err := buildRouteLimits(getEnv("RATE_LIMIT_ROUTES", defaultRateLimitRoutes))
	if err != nil {
		return RateLimiterConfig{}, err
	}

	return RateLimiterConfig{
		DefaultRule: domain.RateLimitRule{
			Requests: requests,
			Window:   time.Duration(windowSeconds) * time.Second,
		},
		Routes: routes,
	}, nil
}

func buildRouteLimits(raw string) ([]RouteLimit, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "none" {
		return nil, nil
	}

	var routes []RouteLimit
	seen := make(map[string]struct{})
	items := strings.Split(raw, ",")

	for _, item := range items {
		parts := strings.Split(strings.TrimSpace(item), ":")
		if len(parts) != 4 {
			return nil, fmt.Errorf("route limit must follow NAME:PREFIX:REQUESTS:WINDOW_SECONDS: %s", item)
		}

		scope := strings.TrimSpace(parts[0])
		prefix := strings.TrimSpace(parts[1])
		if scope == "" || !strings.HasPrefix(prefix, "/") {
			return nil, fmt.Errorf("route limit needs a name and an absolute prefix: %s", item)
		}
		if strings.EqualFold(scope, DefaultScope) {
			return nil, fmt.Errorf("route limit scope %q is reserved", DefaultScope)
		}
		if _, dup := seen[scope]; dup {
			return nil, fmt.Errorf("duplicate route limit scope: %s", scope)
		}
		seen[scope] = struct{}{}

		requests, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, fmt.Errorf("invalid requests for route %s: %w", scope, err)
		}
		windowSeconds, err := strconv.Atoi(parts[3])
		if err != nil {
			return nil, fmt.Errorf("invalid window seconds for route %s: %w", scope, err)
		}

		routes = append(routes, RouteLimit{
			Scope:  scope,
			Prefix: strings.TrimSuffix(prefix, "/"),
			Rule: domain.RateLimitRule{
				Requests: requests,
				Window:   time.Duration(windowSeconds) * time.Second,
			},
		})
	}

	return routes, nil
}

// buildSeedUsers interpreta SEED_USERS no formato ID:EMAIL:ROLE:VERIFIED.
func buildSeedUsers() ([]domain.User, error) {
	raw := strings.TrimSpace(os.Getenv("SEED_USERS"))
	if raw == "" {
		return nil, nil
	}

	var users []domain.User
	for _, item := range strings.Split(raw, ",") {
		parts := strings.Split(strings.TrimSpace(item), ":")
		if len(parts) != 4 {
			return nil, fmt.Errorf("seed user must follow ID:EMAIL:ROLE:VERIFIED: %s", item)
		}

		verified, err := strconv.ParseBool(strings.TrimSpace(parts[3]))
		if err != nil {
			return nil, fmt.Errorf("invalid verified flag for user %s: %w", parts[0], err)
		}

		users = append(users, domain.User{
			ID:         strings.TrimSpace(parts[0]),
			Email:      strings.TrimSpace(parts[1]),
			Role:       strings.TrimSpace(parts[2]),
			IsVerified: verified,
		})
	}

	return users, nil
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}
