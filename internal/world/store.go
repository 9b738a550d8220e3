package world

import (
	"fmt"
	"iter"
	"maps"
	"slices"

	"github.com/annel0/tilemap/internal/coords"
	"github.com/annel0/tilemap/internal/errs"
	"github.com/annel0/tilemap/internal/vec"
)

// ChunkStore владеет чанками карты и адресует их по ключу.
// Хранилище не потокобезопасно.
type ChunkStore struct {
	size   vec.Vec2
	chunks map[coords.Key]*Chunk
}

// NewChunkStore создаёт пустое хранилище для чанков размера size
func NewChunkStore(size vec.Vec2) (*ChunkStore, error) {
	size, err := coords.NormalizeChunkSize(size)
	if err != nil {
		return nil, err
	}
	return &ChunkStore{size: size, chunks: make(map[coords.Key]*Chunk)}, nil
}

// ChunkSize возвращает размер чанков хранилища
func (s *ChunkStore) ChunkSize() vec.Vec2 { return s.size }

// GetOrCreateChunk возвращает чанк по координате, создавая пустой при отсутствии
func (s *ChunkStore) GetOrCreateChunk(coord vec.Vec2) *Chunk {
	key := coords.ChunkKey(coord)
	if c, ok := s.chunks[key]; ok {
		return c
	}
	c := newChunk(coord, s.size)
	s.chunks[key] = c
	return c
}

// TryGetChunk ищет чанк без создания
func (s *ChunkStore) TryGetChunk(key coords.Key) (*Chunk, bool) {
	c, ok := s.chunks[key]
	return c, ok
}

// PutChunk заменяет чанк с той же координатой
func (s *ChunkStore) PutChunk(c *Chunk) error {
	if c == nil {
		return fmt.Errorf("чанк не задан: %w", errs.ErrInvalidArgument)
	}
	if c.size != s.size {
		return fmt.Errorf("чанк %v размера %v в хранилище %v: %w", c.coord, c.size, s.size, errs.ErrInvalidArgument)
	}
	s.chunks[c.Key()] = c
	return nil
}

// RemoveChunk удаляет чанк вместе с содержимым
func (s *ChunkStore) RemoveChunk(key coords.Key) {
	delete(s.chunks, key)
}

// Clear удаляет все чанки
func (s *ChunkStore) Clear() {
	clear(s.chunks)
}

// ChunkCount возвращает количество чанков
func (s *ChunkStore) ChunkCount() int { return len(s.chunks) }

// TotalCellCount суммирует кэшированные счётчики чанков
func (s *ChunkStore) TotalCellCount() int64 {
	var n int64
	for _, c := range s.chunks {
		n += c.cells
	}
	return n
}

// ChunkCellCount возвращает количество непустых клеток чанка, 0 при отсутствии
func (s *ChunkStore) ChunkCellCount(key coords.Key) int64 {
	if c, ok := s.chunks[key]; ok {
		return c.cells
	}
	return 0
}

// ChunkKeys перечисляет ключи в произвольном порядке
func (s *ChunkStore) ChunkKeys() iter.Seq[coords.Key] {
	return maps.Keys(s.chunks)
}

// SortedKeys возвращает ключи по возрастанию
func (s *ChunkStore) SortedKeys() []coords.Key {
	return slices.Sorted(maps.Keys(s.chunks))
}

// Equal сравнивает размер и все чанки
func (s *ChunkStore) Equal(o *ChunkStore) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.size != o.size || len(s.chunks) != len(o.chunks) {
		return false
	}
	for key, c := range s.chunks {
		if !c.Equal(o.chunks[key]) {
			return false
		}
	}
	return true
}
