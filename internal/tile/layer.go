package tile

import (
	"fmt"

	"github.com/annel0/tilemap/internal/coords"
	"github.com/annel0/tilemap/internal/errs"
	"github.com/annel0/tilemap/internal/vec"
)

// Layer - плоский массив клеток одного уровня высоты чанка.
// Пока массив не выделен, слой логически пуст.
// Счётчик непустых клеток поддерживается при каждой записи.
type Layer struct {
	size  vec.Vec2
	cells []Cell
	count int
}

// LocalCell - клетка слоя с локальными координатами
type LocalCell struct {
	X, Z int32
	Cell Cell
}

// NewLayer создаёт слой заданного размера
func NewLayer(size vec.Vec2) (*Layer, error) {
	l := &Layer{}
	if err := l.Resize(size); err != nil {
		return nil, err
	}
	return l, nil
}

// Resize задаёт размер слоя. При нулевой площади массив освобождается,
// иначе выделяется новый массив пустых клеток.
func (l *Layer) Resize(size vec.Vec2) error {
	if size.X < 0 || size.Z < 0 {
		return fmt.Errorf("размер слоя %v: %w", size, errs.ErrInvalidArgument)
	}
	l.size = size
	l.count = 0
	if size.Area() <= 0 {
		l.cells = nil
		return nil
	}
	l.cells = make([]Cell, size.Area())
	return nil
}

// Size возвращает размер слоя
func (l *Layer) Size() vec.Vec2 { return l.size }

// Len возвращает ёмкость массива клеток (0 для невыделенного слоя)
func (l *Layer) Len() int { return len(l.cells) }

// Initialized сообщает, выделен ли массив клеток
func (l *Layer) Initialized() bool { return len(l.cells) > 0 }

// Count возвращает количество непустых клеток
func (l *Layer) Count() int { return l.count }

// Get возвращает клетку по индексу без проверки границ
func (l *Layer) Get(i int) Cell {
	return l.cells[i]
}

// Set записывает клетку по индексу без проверки границ.
// Возвращает изменение счётчика непустых клеток (-1, 0 или 1).
func (l *Layer) Set(i int, c Cell) int {
	delta := occupancy(c) - occupancy(l.cells[i])
	l.cells[i] = c
	l.count += delta
	return delta
}

func occupancy(c Cell) int {
	if c.Occupied() {
		return 1
	}
	return 0
}

func (l *Layer) index(x, z int32) (int, error) {
	if x < 0 || z < 0 || x >= l.size.X || z >= l.size.Z || len(l.cells) == 0 {
		return 0, fmt.Errorf("клетка (%d,%d) в слое %v: %w", x, z, l.size, errs.ErrIndexOutOfRange)
	}
	return coords.ToIndex2D(x, z, l.size.X), nil
}

// At возвращает клетку по локальным координатам с проверкой границ
func (l *Layer) At(x, z int32) (Cell, error) {
	i, err := l.index(x, z)
	if err != nil {
		return Empty, err
	}
	return l.cells[i], nil
}

// SetAt записывает клетку по локальным координатам с проверкой границ
func (l *Layer) SetAt(x, z int32, c Cell) (int, error) {
	i, err := l.index(x, z)
	if err != nil {
		return 0, err
	}
	return l.Set(i, c), nil
}

// SetMany записывает пачку клеток. Сначала проверяются все координаты,
// так что при ошибке слой не меняется. Счётчик обновляется по каждой
// записи, без пересчёта всего слоя.
func (l *Layer) SetMany(items []LocalCell) (int, error) {
	for _, it := range items {
		if _, err := l.index(it.X, it.Z); err != nil {
			return 0, err
		}
	}
	delta := 0
	for _, it := range items {
		delta += l.Set(coords.ToIndex2D(it.X, it.Z, l.size.X), it.Cell)
	}
	return delta, nil
}

// Rescan пересчитывает непустые клетки полным проходом
func (l *Layer) Rescan() int {
	n := 0
	for _, c := range l.cells {
		if c.Occupied() {
			n++
		}
	}
	return n
}

// Equal сравнивает размер и содержимое слоёв.
// Невыделенный слой равен выделенному, если в последнем все клетки пусты.
func (l *Layer) Equal(o *Layer) bool {
	if l == nil || o == nil {
		return l == o
	}
	if l.size != o.size || l.count != o.count {
		return false
	}
	for i := 0; i < max(len(l.cells), len(o.cells)); i++ {
		if cellAt(l.cells, i) != cellAt(o.cells, i) {
			return false
		}
	}
	return true
}

func cellAt(cells []Cell, i int) Cell {
	if i < len(cells) {
		return cells[i]
	}
	return Empty
}

// LocalCells перечисляет непустые клетки слоя с локальными координатами
func (l *Layer) LocalCells() []LocalCell {
	out := make([]LocalCell, 0, l.count)
	for i, c := range l.cells {
		if c.Occupied() {
			p := coords.ToGridCoord(i, l.size.X, 0)
			out = append(out, LocalCell{X: p.X, Z: p.Z, Cell: c})
		}
	}
	return out
}
