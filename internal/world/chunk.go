package world

import (
	"fmt"
	"maps"
	"slices"

	"github.com/annel0/tilemap/internal/coords"
	"github.com/annel0/tilemap/internal/errs"
	"github.com/annel0/tilemap/internal/tile"
	"github.com/annel0/tilemap/internal/vec"
)

// Chunk - участок карты размером size по X/Z с неограниченной высотой.
// Каждая высота Y хранится отдельным слоем, слой создаётся при первой
// непустой записи.
type Chunk struct {
	coord  vec.Vec2
	size   vec.Vec2
	layers map[int32]*tile.Layer
	cells  int64 // Кэшированный счётчик непустых клеток всех слоёв
}

func newChunk(coord, size vec.Vec2) *Chunk {
	return &Chunk{
		coord:  coord,
		size:   size,
		layers: make(map[int32]*tile.Layer),
	}
}

// Coord возвращает координату чанка
func (c *Chunk) Coord() vec.Vec2 { return c.coord }

// Size возвращает размер чанка
func (c *Chunk) Size() vec.Vec2 { return c.size }

// Key возвращает ключ чанка в хранилище
func (c *Chunk) Key() coords.Key { return coords.ChunkKey(c.coord) }

// CellCount возвращает количество непустых клеток без обхода слоёв
func (c *Chunk) CellCount() int64 { return c.cells }

// LayerCount возвращает количество созданных слоёв
func (c *Chunk) LayerCount() int { return len(c.layers) }

// Heights возвращает высоты созданных слоёв по возрастанию
func (c *Chunk) Heights() []int32 {
	return slices.Sorted(maps.Keys(c.layers))
}

func (c *Chunk) inBounds(local vec.Vec3) bool {
	return local.X >= 0 && local.Z >= 0 && local.X < c.size.X && local.Z < c.size.Z
}

// Cell возвращает клетку по локальной координате.
// Клетки несозданных слоёв и координаты вне чанка пусты.
func (c *Chunk) Cell(local vec.Vec3) tile.Cell {
	l, ok := c.layers[local.Y]
	if !ok || !c.inBounds(local) {
		return tile.Empty
	}
	return l.Get(coords.ToIndex2D(local.X, local.Z, c.size.X))
}

// SetCell записывает клетку по локальной координате с проверкой границ
func (c *Chunk) SetCell(local vec.Vec3, cell tile.Cell) error {
	if !c.inBounds(local) {
		return fmt.Errorf("клетка %v в чанке %v: %w", local, c.coord, errs.ErrIndexOutOfRange)
	}
	if !cell.IsValid() {
		return fmt.Errorf("клетка %v: индекс %d: %w", local, cell.Index, errs.ErrInvalidArgument)
	}
	c.set(local, cell)
	return nil
}

// set пишет клетку без проверок. Запись пустой клетки не создаёт слой.
func (c *Chunk) set(local vec.Vec3, cell tile.Cell) {
	l, ok := c.layers[local.Y]
	if !ok {
		if cell == tile.Empty {
			return
		}
		l = c.layer(local.Y)
	}
	c.cells += int64(l.Set(coords.ToIndex2D(local.X, local.Z, c.size.X), cell))
}

func (c *Chunk) layer(y int32) *tile.Layer {
	l, ok := c.layers[y]
	if !ok {
		// размер чанка уже нормализован
		l, _ = tile.NewLayer(c.size)
		c.layers[y] = l
	}
	return l
}

// setMany пишет пачку клеток одного слоя
func (c *Chunk) setMany(y int32, items []tile.LocalCell) error {
	delta, err := c.layer(y).SetMany(items)
	if err != nil {
		return err
	}
	c.cells += int64(delta)
	return nil
}

// putLayer устанавливает слой, прочитанный из потока
func (c *Chunk) putLayer(y int32, l *tile.Layer) error {
	if l.Size() != c.size {
		return fmt.Errorf("слой %d размера %v в чанке %v: %w", y, l.Size(), c.size, errs.ErrInvalidArgument)
	}
	if old, ok := c.layers[y]; ok {
		c.cells -= int64(old.Count())
	}
	c.layers[y] = l
	c.cells += int64(l.Count())
	return nil
}

// Rescan пересчитывает непустые клетки полным обходом слоёв
func (c *Chunk) Rescan() int64 {
	var n int64
	for _, l := range c.layers {
		n += int64(l.Rescan())
	}
	return n
}

// Cells перечисляет непустые клетки чанка в локальных координатах,
// по возрастанию высоты.
func (c *Chunk) Cells() []CellWrite {
	out := make([]CellWrite, 0, c.cells)
	for _, y := range c.Heights() {
		for _, lc := range c.layers[y].LocalCells() {
			out = append(out, CellWrite{Pos: vec.Vec3{X: lc.X, Y: y, Z: lc.Z}, Cell: lc.Cell})
		}
	}
	return out
}

// Equal сравнивает координату, размер и содержимое. Отсутствующий слой
// равен слою без записанных клеток.
func (c *Chunk) Equal(o *Chunk) bool {
	if c == nil || o == nil {
		return c == o
	}
	if c.coord != o.coord || c.size != o.size || c.cells != o.cells {
		return false
	}
	blank, _ := tile.NewLayer(c.size)
	for y, l := range c.layers {
		other, ok := o.layers[y]
		if !ok {
			other = blank
		}
		if !l.Equal(other) {
			return false
		}
	}
	for y, l := range o.layers {
		if _, ok := c.layers[y]; !ok && !l.Equal(blank) {
			return false
		}
	}
	return true
}
