package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/annel0/tilemap/internal/errs"
	"github.com/dgraph-io/badger/v3"
)

const snapshotPrefix = "snapshot:"

func snapshotKey(group string) []byte { return []byte(snapshotPrefix + group) }

// PutSnapshot сохраняет данные снимка под идентификатором группы.
// При ttl > 0 badger удалит запись по истечении срока.
func (r *Repository) PutSnapshot(ctx context.Context, group string, data []byte, ttl time.Duration) (err error) {
	if group == "" {
		return fmt.Errorf("пустой идентификатор снимка: %w", errs.ErrInvalidArgument)
	}
	if err := r.begin(ctx); err != nil {
		return err
	}
	defer r.mutex.RUnlock()
	defer func() { r.observe("put_snapshot", err) }()

	blob := r.codec.seal(data)
	r.metrics.ObserveBlob("write", len(blob))
	entry := badger.NewEntry(snapshotKey(group), blob)
	if ttl > 0 {
		entry = entry.WithTTL(ttl)
	}
	if err := r.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(entry)
	}); err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	return nil
}

// GetSnapshot возвращает данные снимка или ErrNotFound
func (r *Repository) GetSnapshot(ctx context.Context, group string) (data []byte, err error) {
	if err := r.begin(ctx); err != nil {
		return nil, err
	}
	defer r.mutex.RUnlock()
	defer func() { r.observe("get_snapshot", err) }()

	err = r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(snapshotKey(group))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
		}
		blob, err := item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
		}
		data, err = r.codec.open(blob)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("снимок %s: %w", group, err)
	}
	return data, nil
}

// DeleteSnapshot удаляет снимок, отсутствие снимка не ошибка
func (r *Repository) DeleteSnapshot(ctx context.Context, group string) (err error) {
	if err := r.begin(ctx); err != nil {
		return err
	}
	defer r.mutex.RUnlock()
	defer func() { r.observe("delete_snapshot", err) }()

	if err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(snapshotKey(group))
	}); err != nil {
		return fmt.Errorf("ошибка удаления из BadgerDB: %w", err)
	}
	return nil
}
