package tile

import (
	"fmt"

	"github.com/annel0/tilemap/internal/errs"
	"github.com/annel0/tilemap/internal/serial"
	"github.com/annel0/tilemap/internal/vec"
)

// MaxLayerCells ограничивает площадь слоя при чтении из потока
const MaxLayerCells = 1 << 24

const knownFlags = DirectionMask | FlipMask

// CellAdapter пишет клетку как [index i32][flags u8].
// Версия 1 хранила вместо флагов номер поворота 0..3.
type CellAdapter struct{}

func (CellAdapter) Version() uint8    { return 2 }
func (CellAdapter) MinVersion() uint8 { return 1 }

func (CellAdapter) Encode(e *serial.Encoder, c Cell) error {
	if !c.IsValid() {
		return fmt.Errorf("отрицательный индекс тайла %d: %w", c.Index, errs.ErrInvalidArgument)
	}
	e.WriteInt32(c.Index)
	e.WriteUint8(uint8(c.Flags))
	return nil
}

func (CellAdapter) Decode(d *serial.Decoder, version uint8) (Cell, error) {
	var c Cell
	var err error
	if c.Index, err = d.ReadInt32(); err != nil {
		return Empty, err
	}
	if !c.IsValid() {
		return Empty, fmt.Errorf("отрицательный индекс тайла %d: %w", c.Index, serial.ErrCorrupt)
	}
	b, err := d.ReadUint8()
	if err != nil {
		return Empty, err
	}
	switch version {
	case 1:
		dir, ok := DirectionFromRotation(b)
		if !ok {
			return Empty, fmt.Errorf("поворот %d: %w", b, serial.ErrCorrupt)
		}
		c.Flags = dir
	case 2:
		c.Flags = Flags(b)
		if c.Flags&^knownFlags != 0 {
			return Empty, fmt.Errorf("неизвестные флаги %#x: %w", b, serial.ErrCorrupt)
		}
	default:
		return Empty, serial.UnknownVersion("tile.Cell", version)
	}
	return c, nil
}

// LayerAdapter пишет слой разреженно: размер, количество непустых клеток
// и пары [slot i32][Cell]. Версия 1 писала все клетки подряд.
type LayerAdapter struct{}

func (LayerAdapter) Version() uint8    { return 2 }
func (LayerAdapter) MinVersion() uint8 { return 1 }

func (LayerAdapter) Encode(e *serial.Encoder, l *Layer) error {
	cells, err := serial.AdapterFor[Cell](e.Registry())
	if err != nil {
		return err
	}
	e.WriteInt32(l.size.X)
	e.WriteInt32(l.size.Z)
	n := 0
	for _, c := range l.cells {
		if c != Empty {
			n++
		}
	}
	if err := e.WriteCount(n); err != nil {
		return err
	}
	for i, c := range l.cells {
		if c == Empty {
			continue
		}
		e.WriteInt32(int32(i))
		if err := serial.EncodeWith(e, cells, c); err != nil {
			return fmt.Errorf("клетка %d: %w", i, err)
		}
	}
	return nil
}

func (LayerAdapter) Decode(d *serial.Decoder, version uint8) (*Layer, error) {
	cells, err := serial.AdapterFor[Cell](d.Registry())
	if err != nil {
		return nil, err
	}
	var size vec.Vec2
	if size.X, err = d.ReadInt32(); err != nil {
		return nil, err
	}
	if size.Z, err = d.ReadInt32(); err != nil {
		return nil, err
	}
	if size.X < 0 || size.Z < 0 || int64(size.X)*int64(size.Z) > MaxLayerCells {
		return nil, fmt.Errorf("размер слоя %v: %w", size, serial.ErrCorrupt)
	}
	l, err := NewLayer(size)
	if err != nil {
		return nil, err
	}
	n, err := d.ReadCount()
	if err != nil {
		return nil, err
	}
	switch version {
	case 1:
		if n != 0 && n != l.Len() {
			return nil, fmt.Errorf("слой %v содержит %d клеток: %w", size, n, serial.ErrCorrupt)
		}
		for i := 0; i < n; i++ {
			c, err := serial.DecodeWith(d, cells)
			if err != nil {
				return nil, fmt.Errorf("клетка %d: %w", i, err)
			}
			l.Set(i, c)
		}
	case 2:
		if n > l.Len() {
			return nil, fmt.Errorf("слой %v содержит %d клеток: %w", size, n, serial.ErrCorrupt)
		}
		prev := -1
		for i := 0; i < n; i++ {
			slot, err := d.ReadInt32()
			if err != nil {
				return nil, err
			}
			if int(slot) <= prev || int(slot) >= l.Len() {
				return nil, fmt.Errorf("слот %d: %w", slot, serial.ErrCorrupt)
			}
			prev = int(slot)
			c, err := serial.DecodeWith(d, cells)
			if err != nil {
				return nil, fmt.Errorf("клетка %d: %w", slot, err)
			}
			l.Set(int(slot), c)
		}
	default:
		return nil, serial.UnknownVersion("tile.Layer", version)
	}
	return l, nil
}

// RegisterAdapters добавляет адаптеры пакета в реестр
func RegisterAdapters(r *serial.Registry) {
	serial.Register[Cell](r, CellAdapter{})
	serial.Register[*Layer](r, LayerAdapter{})
}

// Adapters возвращает новый реестр с адаптерами пакета
func Adapters() *serial.Registry {
	r := serial.NewRegistry()
	RegisterAdapters(r)
	return r
}
