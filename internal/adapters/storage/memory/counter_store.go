// Package memory disponibiliza implementações em memória do counter store e do
// repositório de usuários, úteis para desenvolvimento e testes.
//
// O estado é local ao processo: em múltiplas réplicas o limite não é global.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JosueBrenes/VolunChain-Backend/internal/core/ports"
)

type counter struct {
	count     int64
	expiresAt time.Time
}

type CounterStore struct {
	mu       sync.Mutex
	counters map[string]*counter
	now      func() time.Time
}

var _ ports.CounterStore = (*CounterStore)(nil)

func NewCounterStore(now func() time.Time) *CounterStore {
	if now == nil {
		now = time.Now
	}
	return &CounterStore{
		counters: make(map[string]*counter),
		now:      now,
	}
}

func (s *CounterStore) Increment(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if window <= 0 {
		return 0, 0, fmt.Errorf("window must be positive")
	}

	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	if !ok || !now.Before(c.expiresAt) {
		c = &counter{expiresAt: now.Add(window)}
		s.counters[key] = c
	}
	c.count++

	return c.count, c.expiresAt.Sub(now), nil
}

func (s *CounterStore) Ping(context.Context) error {
	return nil
}

// Cleanup remove contadores expirados.
func (s *CounterStore) Cleanup() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, c := range s.counters {
		if !now.Before(c.expiresAt) {
			delete(s.counters, k)
		}
	}
}

// StartJanitor limpa contadores expirados periodicamente até o ctx ser cancelado.
func (s *CounterStore) StartJanitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}

	t := time.NewTicker(every)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}

func (s *CounterStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.counters)
}
