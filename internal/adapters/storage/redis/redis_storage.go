// Package redis disponibiliza a implementação do counter store baseada em Redis.
package redis

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/JosueBrenes/VolunChain-Backend/internal/core/ports"
)

// incrementScript executa INCR, inicia a janela no primeiro acesso (ou corrige uma
// chave sem expiração) e devolve {count, pttl} em um único passo atômico.
var incrementScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
local ttl = redis.call("PTTL", KEYS[1])
if count == 1 or ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

type Storage struct {
	client *redis.Client
}

var _ ports.CounterStore = (*Storage)(nil)

type Config struct {
	Addr     string
	Password string
	DB       int
}

func New(cfg Config) (*Storage, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewWithClient(client), nil
}

// NewWithClient reaproveita um client existente. O chamador continua dono dele,
// a menos que Close seja chamado.
func NewWithClient(client *redis.Client) *Storage {
	return &Storage{client: client}
}

func (s *Storage) Close() error {
	return s.client.Close()
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Storage) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if window <= 0 {
		return 0, 0, fmt.Errorf("window must be positive")
	}

	values, err := incrementScript.Run(ctx, s.client, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(values) != 2 {
		return 0, 0, fmt.Errorf("unexpected increment reply of length %d", len(values))
	}

	return values[0], time.Duration(values[1]) * time.Millisecond, nil
}
