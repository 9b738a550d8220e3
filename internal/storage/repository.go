// Package storage сохраняет карты и отдельные чанки в BadgerDB.
//
// Карта хранится как заголовок под ключом map:<name> (карта без чанков)
// и по одному блобу на чанк под ключами chunk:<name>:<key>, так что чанки
// можно перезаписывать независимо.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/annel0/tilemap/internal/coords"
	"github.com/annel0/tilemap/internal/errs"
	"github.com/annel0/tilemap/internal/logging"
	"github.com/annel0/tilemap/internal/metrics"
	"github.com/annel0/tilemap/internal/serial"
	"github.com/annel0/tilemap/internal/world"
	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/ristretto"
)

const (
	mapPrefix   = "map:"
	chunkPrefix = "chunk:"
)

// Options задаёт параметры хранилища
type Options struct {
	Compression Compression
	CacheBytes  int64            // Размер кэша распакованных блобов, 0 - без кэша
	InMemory    bool             // Badger без диска, для тестов
	Registry    *serial.Registry // Адаптеры, по умолчанию world.Adapters()
	Metrics     *metrics.Metrics
	Logger      *logging.Logger
}

// Repository хранит карты в BadgerDB
type Repository struct {
	db      *badger.DB
	dbPath  string
	mutex   sync.RWMutex
	isReady bool

	reg     *serial.Registry
	codec   *codec
	cache   *ristretto.Cache
	metrics *metrics.Metrics
	logger  *logging.Logger
}

// Open открывает или создаёт хранилище в директории path
func Open(path string, opts Options) (*Repository, error) {
	bopts := badger.DefaultOptions(path)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.Logger = nil // Отключаем логирование BadgerDB

	cd, err := newCodec(opts.Compression)
	if err != nil {
		return nil, err
	}

	var cache *ristretto.Cache
	if opts.CacheBytes > 0 {
		cache, err = ristretto.NewCache(&ristretto.Config{
			NumCounters: max(opts.CacheBytes/1024*10, 1000),
			MaxCost:     opts.CacheBytes,
			BufferItems: 64,
		})
		if err != nil {
			cd.close()
			return nil, fmt.Errorf("создание кэша: %w", err)
		}
	}

	db, err := badger.Open(bopts)
	if err != nil {
		cd.close()
		if cache != nil {
			cache.Close()
		}
		return nil, fmt.Errorf("не удалось открыть BadgerDB: %w", err)
	}

	reg := opts.Registry
	if reg == nil {
		reg = world.Adapters()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetStorageLogger()
	}
	logger.Debug("хранилище открыто: %s, сжатие %v, кэш %d байт", path, opts.Compression, opts.CacheBytes)

	return &Repository{
		db:      db,
		dbPath:  path,
		isReady: true,
		reg:     reg,
		codec:   cd,
		cache:   cache,
		metrics: opts.Metrics,
		logger:  logger,
	}, nil
}

// Close закрывает хранилище
func (r *Repository) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.isReady {
		return nil
	}
	r.isReady = false
	r.codec.close()
	if r.cache != nil {
		r.cache.Close()
	}
	r.logger.Debug("хранилище закрыто: %s", r.dbPath)
	return r.db.Close()
}

func mapKey(name string) []byte { return []byte(mapPrefix + name) }

func chunkKeyPrefix(name string) []byte { return []byte(chunkPrefix + name + ":") }

func chunkKey(name string, key coords.Key) []byte {
	return strconv.AppendInt(chunkKeyPrefix(name), int64(key), 10)
}

func validateName(name string) error {
	if name == "" || strings.ContainsAny(name, ":\x00") {
		return fmt.Errorf("имя карты %q: %w", name, errs.ErrInvalidArgument)
	}
	return nil
}

// begin проверяет контекст и готовность хранилища.
// При успехе держит RLock, который снимает вызывающий.
func (r *Repository) begin(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mutex.RLock()
	if !r.isReady {
		r.mutex.RUnlock()
		return ErrClosed
	}
	return nil
}

func (r *Repository) observe(op string, err error) {
	r.metrics.ObserveOp(op, err, ErrNotFound)
}

// encode сериализует значение и упаковывает в блоб
func encode[T any](r *Repository, v T) ([]byte, error) {
	payload, err := serial.ToBinary(v, r.reg)
	if err != nil {
		return nil, err
	}
	blob := r.codec.seal(payload)
	r.metrics.ObserveBlob("write", len(blob))
	return blob, nil
}

// cacheKey привязывает запись кэша к версии значения в badger, поэтому
// читатель со старым снимком не может подменить свежую запись.
func cacheKey(key []byte, version uint64) string {
	return string(strconv.AppendUint(append(key[:len(key):len(key)], '@'), version, 10))
}

// read возвращает полезную нагрузку по ключу, используя кэш
func (r *Repository) read(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}
	ck := cacheKey(key, item.Version())
	if r.cache != nil {
		if v, ok := r.cache.Get(ck); ok {
			return v.([]byte), nil
		}
	}
	blob, err := item.ValueCopy(nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}
	r.metrics.ObserveBlob("read", len(blob))
	payload, err := r.codec.open(blob)
	if err != nil {
		r.logger.Warn("повреждённый блоб %s: %v\n%s", key, err, logging.HexDump(blob))
		return nil, fmt.Errorf("блоб %s: %w", key, err)
	}
	if r.cache != nil {
		r.cache.Set(ck, payload, int64(len(payload)))
	}
	return payload, nil
}

// chunkKeys возвращает ключи badger всех чанков карты
func chunkKeys(txn *badger.Txn, name string) [][]byte {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	prefix := chunkKeyPrefix(name)
	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys
}

func (r *Repository) loadHeader(txn *badger.Txn, name string) (*world.TileMap, error) {
	payload, err := r.read(txn, mapKey(name))
	if err != nil {
		return nil, err
	}
	return serial.FromBinary[*world.TileMap](payload, r.reg)
}

// SaveMap сохраняет карту целиком, заменяя прежнюю версию с тем же именем
func (r *Repository) SaveMap(ctx context.Context, name string, m *world.TileMap) (err error) {
	if err := validateName(name); err != nil {
		return err
	}
	if err := r.begin(ctx); err != nil {
		return err
	}
	defer r.mutex.RUnlock()
	defer func() { r.observe("save_map", err) }()

	if m == nil {
		return fmt.Errorf("карта %s не задана: %w", name, errs.ErrInvalidArgument)
	}
	header, err := world.NewTileMap(m.ChunkSize())
	if err != nil {
		return err
	}
	headerBlob, err := encode(r, header)
	if err != nil {
		return fmt.Errorf("сериализация карты %s: %w", name, err)
	}

	fresh := make(map[string][]byte, m.ChunkCount())
	for _, key := range m.Store().SortedKeys() {
		c, _ := m.Store().TryGetChunk(key)
		blob, err := encode(r, c)
		if err != nil {
			return fmt.Errorf("сериализация чанка %d карты %s: %w", key, name, err)
		}
		fresh[string(chunkKey(name, key))] = blob
	}

	var stale [][]byte
	if err := r.db.View(func(txn *badger.Txn) error {
		for _, k := range chunkKeys(txn, name) {
			if _, ok := fresh[string(k)]; !ok {
				stale = append(stale, k)
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}

	wb := r.db.NewWriteBatch()
	defer wb.Cancel()
	for _, k := range stale {
		if err := wb.Delete(k); err != nil {
			return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
		}
	}
	for k, blob := range fresh {
		if err := wb.Set([]byte(k), blob); err != nil {
			return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
		}
	}
	// заголовок последним: карта видна только после записи чанков
	if err := wb.Set(mapKey(name), headerBlob); err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("ошибка сохранения в BadgerDB: %w", err)
	}

	r.metrics.SetMapStats(m.ChunkCount(), m.TotalCellCount())
	r.logger.Debug("карта %s сохранена: %d чанков, %d клеток", name, m.ChunkCount(), m.TotalCellCount())
	return nil
}

// LoadMap загружает карту со всеми чанками
func (r *Repository) LoadMap(ctx context.Context, name string) (m *world.TileMap, err error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := r.begin(ctx); err != nil {
		return nil, err
	}
	defer r.mutex.RUnlock()
	defer func() { r.observe("load_map", err) }()

	err = r.db.View(func(txn *badger.Txn) error {
		m, err = r.loadHeader(txn, name)
		if err != nil {
			return err
		}
		for _, k := range chunkKeys(txn, name) {
			if err := ctx.Err(); err != nil {
				return err
			}
			payload, err := r.read(txn, k)
			if err != nil {
				return err
			}
			c, err := serial.FromBinary[*world.Chunk](payload, r.reg)
			if err != nil {
				return fmt.Errorf("чанк %s: %w", k, err)
			}
			if !bytes.Equal(k, chunkKey(name, c.Key())) {
				return fmt.Errorf("чанк %v под ключом %s: %w", c.Coord(), k, serial.ErrCorrupt)
			}
			if err := m.PutChunk(c); err != nil {
				return fmt.Errorf("чанк %s: %w: %w", k, serial.ErrCorrupt, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("загрузка карты %s: %w", name, err)
	}
	r.metrics.SetMapStats(m.ChunkCount(), m.TotalCellCount())
	return m, nil
}

// DeleteMap удаляет карту и все её чанки
func (r *Repository) DeleteMap(ctx context.Context, name string) (err error) {
	if err := validateName(name); err != nil {
		return err
	}
	if err := r.begin(ctx); err != nil {
		return err
	}
	defer r.mutex.RUnlock()
	defer func() { r.observe("delete_map", err) }()

	var keys [][]byte
	err = r.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get(mapKey(name)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		keys = chunkKeys(txn, name)
		return nil
	})
	if err != nil {
		return fmt.Errorf("удаление карты %s: %w", name, err)
	}

	wb := r.db.NewWriteBatch()
	defer wb.Cancel()
	if err := wb.Delete(mapKey(name)); err != nil {
		return fmt.Errorf("ошибка удаления из BadgerDB: %w", err)
	}
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return fmt.Errorf("ошибка удаления из BadgerDB: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("ошибка удаления из BadgerDB: %w", err)
	}
	r.logger.Debug("карта %s удалена вместе с %d чанками", name, len(keys))
	return nil
}

// ListMaps возвращает имена сохранённых карт по алфавиту
func (r *Repository) ListMaps(ctx context.Context) ([]string, error) {
	if err := r.begin(ctx); err != nil {
		return nil, err
	}
	defer r.mutex.RUnlock()

	var names []string
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(mapPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			names = append(names, strings.TrimPrefix(string(it.Item().Key()), mapPrefix))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из BadgerDB: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// SaveChunk перезаписывает один чанк существующей карты
func (r *Repository) SaveChunk(ctx context.Context, name string, c *world.Chunk) (err error) {
	if err := validateName(name); err != nil {
		return err
	}
	if err := r.begin(ctx); err != nil {
		return err
	}
	defer r.mutex.RUnlock()
	defer func() { r.observe("save_chunk", err) }()

	if c == nil {
		return fmt.Errorf("чанк карты %s не задан: %w", name, errs.ErrInvalidArgument)
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		header, err := r.loadHeader(txn, name)
		if err != nil {
			return err
		}
		if header.ChunkSize() != c.Size() {
			return fmt.Errorf("чанк размера %v в карте %v: %w", c.Size(), header.ChunkSize(), errs.ErrInvalidArgument)
		}
		blob, err := encode(r, c)
		if err != nil {
			return err
		}
		return txn.Set(chunkKey(name, c.Key()), blob)
	})
	if err != nil {
		return fmt.Errorf("сохранение чанка %v карты %s: %w", c.Coord(), name, err)
	}
	return nil
}

// LoadChunk загружает один чанк карты
func (r *Repository) LoadChunk(ctx context.Context, name string, key coords.Key) (c *world.Chunk, err error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := r.begin(ctx); err != nil {
		return nil, err
	}
	defer r.mutex.RUnlock()
	defer func() { r.observe("load_chunk", err) }()

	err = r.db.View(func(txn *badger.Txn) error {
		payload, err := r.read(txn, chunkKey(name, key))
		if err != nil {
			return err
		}
		c, err = serial.FromBinary[*world.Chunk](payload, r.reg)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("загрузка чанка %d карты %s: %w", key, name, err)
	}
	return c, nil
}

// DeleteChunk удаляет один чанк карты, отсутствие чанка не ошибка
func (r *Repository) DeleteChunk(ctx context.Context, name string, key coords.Key) (err error) {
	if err := validateName(name); err != nil {
		return err
	}
	if err := r.begin(ctx); err != nil {
		return err
	}
	defer r.mutex.RUnlock()
	defer func() { r.observe("delete_chunk", err) }()

	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(chunkKey(name, key))
	})
	if err != nil {
		return fmt.Errorf("ошибка удаления из BadgerDB: %w", err)
	}
	return nil
}

// ChunkKeys возвращает ключи сохранённых чанков карты по возрастанию
func (r *Repository) ChunkKeys(ctx context.Context, name string) ([]coords.Key, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := r.begin(ctx); err != nil {
		return nil, err
	}
	defer r.mutex.RUnlock()

	var keys []coords.Key
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := chunkKeyPrefix(name)
		for _, k := range chunkKeys(txn, name) {
			v, err := strconv.ParseInt(string(k[len(prefix):]), 10, 64)
			if err != nil {
				return fmt.Errorf("ключ %s: %w", k, serial.ErrCorrupt)
			}
			keys = append(keys, coords.Key(v))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ключи чанков карты %s: %w", name, err)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys, nil
}
