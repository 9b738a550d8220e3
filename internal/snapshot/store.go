// Package snapshot хранит бинарные снимки карты и отдельных чанков
// для отмены и повтора правок.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/annel0/tilemap/internal/errs"
)

// ErrNoSnapshot - снимок с таким идентификатором отсутствует или истёк
var ErrNoSnapshot = errors.New("snapshot not found")

// Store хранит снимки по идентификатору группы.
// Реализации потокобезопасны.
type Store interface {
	Put(ctx context.Context, group string, data []byte) error
	Get(ctx context.Context, group string) ([]byte, error)
	Delete(ctx context.Context, group string) error
}

// MemoryStore хранит не более capacity снимков, вытесняя самые старые
type MemoryStore struct {
	mu       sync.Mutex
	capacity int
	order    []string
	data     map[string][]byte
}

// NewMemoryStore создаёт хранилище в памяти
func NewMemoryStore(capacity int) (*MemoryStore, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("ёмкость %d: %w", capacity, errs.ErrInvalidArgument)
	}
	return &MemoryStore{
		capacity: capacity,
		data:     make(map[string][]byte),
	}, nil
}

func (s *MemoryStore) Put(ctx context.Context, group string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[group]; !exists {
		s.order = append(s.order, group)
	}
	s.data[group] = append([]byte(nil), data...)
	for len(s.order) > s.capacity {
		delete(s.data, s.order[0])
		s.order = s.order[1:]
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, group string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.data[group]
	if !ok {
		return nil, fmt.Errorf("%s: %w", group, ErrNoSnapshot)
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryStore) Delete(ctx context.Context, group string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[group]; !ok {
		return nil
	}
	delete(s.data, group)
	for i, g := range s.order {
		if g == group {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len возвращает количество хранимых снимков
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}
