package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/tilemap/internal/storage"
)

// BadgerStore хранит снимки в той же BadgerDB, что и карты, поэтому
// снимок переживает перезапуск процесса.
type BadgerStore struct {
	repo *storage.Repository
	ttl  time.Duration
}

// NewBadgerStore создаёт хранилище снимков поверх открытого репозитория.
// ttl <= 0 хранит снимки без срока.
func NewBadgerStore(repo *storage.Repository, ttl time.Duration) *BadgerStore {
	return &BadgerStore{repo: repo, ttl: ttl}
}

func (s *BadgerStore) Put(ctx context.Context, group string, data []byte) error {
	return s.repo.PutSnapshot(ctx, group, data, s.ttl)
}

func (s *BadgerStore) Get(ctx context.Context, group string) ([]byte, error) {
	data, err := s.repo.GetSnapshot(ctx, group)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", group, ErrNoSnapshot)
	}
	return data, err
}

func (s *BadgerStore) Delete(ctx context.Context, group string) error {
	return s.repo.DeleteSnapshot(ctx, group)
}
