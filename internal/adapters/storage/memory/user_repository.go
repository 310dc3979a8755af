package memory

import (
	"context"
	"sync"

	"github.com/JosueBrenes/VolunChain-Backend/internal/core/domain"
	"github.com/JosueBrenes/VolunChain-Backend/internal/core/ports"
)

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

var _ ports.UserRepository = (*UserRepository)(nil)

func NewUserRepository(seed ...domain.User) *UserRepository {
	r := &UserRepository{users: make(map[string]domain.User, len(seed))}
	for _, u := range seed {
		r.users[u.ID] = u
	}
	return r
}

func (r *UserRepository) FindByID(_ context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (r *UserRepository) IsVerified(ctx context.Context, id string) (bool, error) {
	user, err := r.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	return user.IsVerified, nil
}

func (r *UserRepository) Save(user domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
}

func (r *UserRepository) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
}
