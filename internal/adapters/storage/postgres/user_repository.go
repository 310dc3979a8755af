// Package postgres disponibiliza o repositório de usuários baseado em PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JosueBrenes/VolunChain-Backend/internal/core/domain"
	"github.com/JosueBrenes/VolunChain-Backend/internal/core/ports"
)

const (
	findUserByIDQuery   = `SELECT id, email, role, is_verified FROM users WHERE id = $1`
	isUserVerifiedQuery = `SELECT is_verified FROM users WHERE id = $1`
)

// querier é o subconjunto de pgxpool.Pool usado pelo repositório.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type UserRepository struct {
	db querier
}

var _ ports.UserRepository = (*UserRepository)(nil)

// Connect abre o pool e verifica a conexão.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database url is required")
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return pool, nil
}

func NewUserRepository(db querier) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (domain.User, error) {
	var user domain.User
	err := r.db.QueryRow(ctx, findUserByIDQuery, id).Scan(&user.ID, &user.Email, &user.Role, &user.IsVerified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("query user %s: %w", id, err)
	}
	return user, nil
}

func (r *UserRepository) IsVerified(ctx context.Context, id string) (bool, error) {
	var verified bool
	err := r.db.QueryRow(ctx, isUserVerifiedQuery, id).Scan(&verified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, domain.ErrUserNotFound
		}
		return false, fmt.Errorf("query verification for %s: %w", id, err)
	}
	return verified, nil
}
