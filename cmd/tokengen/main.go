// Command tokengen emite um bearer token assinado com o JWT_SECRET configurado,
// para testar as rotas protegidas localmente. A validade padrão vem de
// JWT_TTL_MINUTES.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/JosueBrenes/VolunChain-Backend/internal/adapters/token"
	"github.com/JosueBrenes/VolunChain-Backend/internal/core/domain"
)

const fallbackTTL = time.Hour

func main() {
	_ = godotenv.Load()

	defaultTTL, err := ttlFromEnv(os.Getenv("JWT_TTL_MINUTES"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "tokengen: %v\n", err)
		os.Exit(1)
	}

	id := flag.String("id", "", "user id placed in the token")
	role := flag.String("role", "volunteer", "role claim")
	ttl := flag.Duration("ttl", defaultTTL, "token lifetime (default from JWT_TTL_MINUTES)")
	flag.Parse()

	if err := run(*id, *role, *ttl, os.Getenv("JWT_SECRET")); err != nil {
		fmt.Fprintf(os.Stderr, "tokengen: %v\n", err)
		os.Exit(1)
	}
}

// ttlFromEnv interpreta JWT_TTL_MINUTES; vazio usa uma hora.
func ttlFromEnv(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallbackTTL, nil
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid JWT_TTL_MINUTES: %w", err)
	}
	if minutes <= 0 {
		return 0, fmt.Errorf("JWT_TTL_MINUTES must be positive")
	}
	return time.Duration(minutes) * time.Minute, nil
}

func run(id, role string, ttl time.Duration, secret string) error {
	jwt, err := token.NewJWT(strings.TrimSpace(secret))
	if err != nil {
		return err
	}

	raw, err := jwt.Issue(domain.DecodedIdentity{ID: id, Role: role}, ttl)
	if err != nil {
		return err
	}

	fmt.Println(raw)
	return nil
}
