// Package ports define contratos que conectam o domínio a implementações externas.
package ports

import (
	"context"
	"time"

	"github.com/JosueBrenes/VolunChain-Backend/internal/core/domain"
)

// CounterStore incrementa um contador com janela de forma atômica. Increment
// devolve a contagem após o incremento e o tempo restante da janela da chave. A
// janela começa no primeiro incremento e não é estendida pelos seguintes.
type CounterStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Ping(ctx context.Context) error
}

type UserRepository interface {
	// FindByID devolve domain.ErrUserNotFound quando não há usuário com o id.
	FindByID(ctx context.Context, id string) (domain.User, error)
	IsVerified(ctx context.Context, id string) (bool, error)
}
