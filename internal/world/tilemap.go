// Package world хранит карту клеток, разбитую на чанки.
//
// TileMap адресует клетки глобальными координатами сетки и создаёт чанки
// при первой записи. Чанки удаляются только явно.
package world

import (
	"fmt"
	"iter"

	"github.com/annel0/tilemap/internal/coords"
	"github.com/annel0/tilemap/internal/errs"
	"github.com/annel0/tilemap/internal/tile"
	"github.com/annel0/tilemap/internal/vec"
)

// CellWrite - запись одной клетки по координате сетки
type CellWrite struct {
	Pos  vec.Vec3
	Cell tile.Cell
}

// TileMap - карта клеток с API чтения и записи по координатам сетки
type TileMap struct {
	store *ChunkStore
	clamp bool // Прижимать отрицательную высоту к нулю
}

// NewTileMap создаёт пустую карту. Размер чанка меньше 2 по любой оси
// увеличивается до 2, отрицательный размер - ошибка.
func NewTileMap(chunkSize vec.Vec2) (*TileMap, error) {
	store, err := NewChunkStore(chunkSize)
	if err != nil {
		return nil, fmt.Errorf("создание карты: %w", err)
	}
	return &TileMap{store: store}, nil
}

// ChunkSize возвращает размер чанка
func (m *TileMap) ChunkSize() vec.Vec2 { return m.store.size }

// SetClampHeight включает прижатие отрицательной высоты к нулю при адресации
// клеток. Настройка не сериализуется.
func (m *TileMap) SetClampHeight(on bool) { m.clamp = on }

func (m *TileMap) resolve(pos vec.Vec3) (vec.Vec2, coords.Key, vec.Vec3) {
	chunk, key, local := coords.Resolve(pos, m.store.size)
	if m.clamp {
		local = coords.ClampHeight(local)
	}
	return chunk, key, local
}

// Store возвращает хранилище чанков карты
func (m *TileMap) Store() *ChunkStore { return m.store }

// GetCell возвращает клетку по координате сетки, пустую для несозданного чанка
func (m *TileMap) GetCell(pos vec.Vec3) tile.Cell {
	chunk, key, local := m.resolve(pos)
	c, ok := m.store.chunks[key]
	if !ok || c.coord != chunk {
		return tile.Empty
	}
	return c.Cell(local)
}

// SetCell записывает клетку, при необходимости создавая чанк
func (m *TileMap) SetCell(pos vec.Vec3, cell tile.Cell) error {
	if !cell.IsValid() {
		return fmt.Errorf("клетка %v: индекс %d: %w", pos, cell.Index, errs.ErrInvalidArgument)
	}
	chunk, _, local := m.resolve(pos)
	m.store.GetOrCreateChunk(chunk).set(local, cell)
	return nil
}

type layerRef struct {
	chunk vec.Vec2
	y     int32
}

// SetCells записывает пачку клеток. Все клетки проверяются до записи,
// так что при ошибке карта не меняется. Записи группируются по слоям,
// порядок внутри слоя сохраняется.
func (m *TileMap) SetCells(writes []CellWrite) error {
	for i, w := range writes {
		if !w.Cell.IsValid() {
			return fmt.Errorf("запись %d в %v: индекс %d: %w", i, w.Pos, w.Cell.Index, errs.ErrInvalidArgument)
		}
	}
	groups := make(map[layerRef][]tile.LocalCell)
	order := make([]layerRef, 0)
	for _, w := range writes {
		chunk, _, local := m.resolve(w.Pos)
		ref := layerRef{chunk: chunk, y: local.Y}
		if _, ok := groups[ref]; !ok {
			order = append(order, ref)
		}
		groups[ref] = append(groups[ref], tile.LocalCell{X: local.X, Z: local.Z, Cell: w.Cell})
	}
	for _, ref := range order {
		// локальные координаты всегда внутри чанка
		if err := m.store.GetOrCreateChunk(ref.chunk).setMany(ref.y, groups[ref]); err != nil {
			return fmt.Errorf("слой %d чанка %v: %w", ref.y, ref.chunk, err)
		}
	}
	return nil
}

// SetCellsSeq собирает записи из последовательности и применяет их как SetCells
func (m *TileMap) SetCellsSeq(seq iter.Seq2[vec.Vec3, tile.Cell]) error {
	var writes []CellWrite
	for pos, cell := range seq {
		writes = append(writes, CellWrite{Pos: pos, Cell: cell})
	}
	return m.SetCells(writes)
}

// ClearChunk удаляет чанк по координате
func (m *TileMap) ClearChunk(coord vec.Vec2) {
	m.store.RemoveChunk(coords.ChunkKey(coord))
}

// Clear удаляет все чанки
func (m *TileMap) Clear() { m.store.Clear() }

// Chunk возвращает чанк по координате
func (m *TileMap) Chunk(coord vec.Vec2) (*Chunk, bool) {
	return m.store.TryGetChunk(coords.ChunkKey(coord))
}

// PutChunk заменяет чанк целиком, например при восстановлении из снимка
func (m *TileMap) PutChunk(c *Chunk) error {
	return m.store.PutChunk(c)
}

// ChunkKeys перечисляет ключи существующих чанков
func (m *TileMap) ChunkKeys() iter.Seq[coords.Key] { return m.store.ChunkKeys() }

// ChunkCellCount возвращает количество непустых клеток чанка
func (m *TileMap) ChunkCellCount(key coords.Key) int64 { return m.store.ChunkCellCount(key) }

// ChunkCount возвращает количество чанков
func (m *TileMap) ChunkCount() int { return m.store.ChunkCount() }

// TotalCellCount возвращает количество непустых клеток карты
func (m *TileMap) TotalCellCount() int64 { return m.store.TotalCellCount() }

// Equal сравнивает карты по содержимому
func (m *TileMap) Equal(o *TileMap) bool {
	if m == nil || o == nil {
		return m == o
	}
	return m.store.Equal(o.store)
}
