package world

import (
	"fmt"

	"github.com/annel0/tilemap/internal/coords"
	"github.com/annel0/tilemap/internal/serial"
	"github.com/annel0/tilemap/internal/tile"
	"github.com/annel0/tilemap/internal/vec"
)

func writeVec2(e *serial.Encoder, v vec.Vec2) {
	e.WriteInt32(v.X)
	e.WriteInt32(v.Z)
}

func readVec2(d *serial.Decoder) (vec.Vec2, error) {
	var v vec.Vec2
	var err error
	if v.X, err = d.ReadInt32(); err != nil {
		return v, err
	}
	v.Z, err = d.ReadInt32()
	return v, err
}

func readChunkSize(d *serial.Decoder) (vec.Vec2, error) {
	size, err := readVec2(d)
	if err != nil {
		return size, err
	}
	if size.X < coords.MinChunkSize || size.Z < coords.MinChunkSize || size.Area() > tile.MaxLayerCells {
		return size, fmt.Errorf("размер чанка %v: %w", size, serial.ErrCorrupt)
	}
	return size, nil
}

// ChunkAdapter пишет чанк как координату, размер, кэшированный счётчик
// и слои по возрастанию высоты. Версия 1 не хранила счётчик.
type ChunkAdapter struct{}

func (ChunkAdapter) Version() uint8    { return 2 }
func (ChunkAdapter) MinVersion() uint8 { return 1 }

func (ChunkAdapter) Encode(e *serial.Encoder, c *Chunk) error {
	layers, err := serial.AdapterFor[*tile.Layer](e.Registry())
	if err != nil {
		return err
	}
	writeVec2(e, c.coord)
	writeVec2(e, c.size)
	e.WriteInt64(c.cells)
	heights := c.Heights()
	if err := e.WriteCount(len(heights)); err != nil {
		return err
	}
	for _, y := range heights {
		e.WriteInt32(y)
		if err := serial.EncodeWith(e, layers, c.layers[y]); err != nil {
			return fmt.Errorf("слой %d: %w", y, err)
		}
	}
	return nil
}

func (ChunkAdapter) Decode(d *serial.Decoder, version uint8) (*Chunk, error) {
	if version != 1 && version != 2 {
		return nil, serial.UnknownVersion("world.Chunk", version)
	}
	layers, err := serial.AdapterFor[*tile.Layer](d.Registry())
	if err != nil {
		return nil, err
	}
	coord, err := readVec2(d)
	if err != nil {
		return nil, err
	}
	size, err := readChunkSize(d)
	if err != nil {
		return nil, err
	}
	var stored int64 = -1
	if version == 2 {
		if stored, err = d.ReadInt64(); err != nil {
			return nil, err
		}
	}
	n, err := d.ReadCount()
	if err != nil {
		return nil, err
	}
	c := newChunk(coord, size)
	for i := 0; i < n; i++ {
		y, err := d.ReadInt32()
		if err != nil {
			return nil, err
		}
		if _, dup := c.layers[y]; dup {
			return nil, fmt.Errorf("слой %d повторяется: %w", y, serial.ErrCorrupt)
		}
		l, err := serial.DecodeWith(d, layers)
		if err != nil {
			return nil, fmt.Errorf("слой %d: %w", y, err)
		}
		if err := c.putLayer(y, l); err != nil {
			return nil, fmt.Errorf("%w: %w", serial.ErrCorrupt, err)
		}
	}
	if stored >= 0 && stored != c.cells {
		return nil, fmt.Errorf("чанк %v: счётчик %d, в слоях %d: %w", coord, stored, c.cells, serial.ErrCorrupt)
	}
	return c, nil
}

// ChunkStoreAdapter пишет размер чанка и чанки по возрастанию ключа.
// Версия 2 не хранила размер и выводила его из первого чанка, версия 1
// к тому же писала перед каждым чанком его ключ, при чтении ключ
// пересчитывается из координаты.
type ChunkStoreAdapter struct{}

func (ChunkStoreAdapter) Version() uint8    { return 3 }
func (ChunkStoreAdapter) MinVersion() uint8 { return 1 }

func (ChunkStoreAdapter) Encode(e *serial.Encoder, s *ChunkStore) error {
	chunks, err := serial.AdapterFor[*Chunk](e.Registry())
	if err != nil {
		return err
	}
	writeVec2(e, s.size)
	keys := s.SortedKeys()
	if err := e.WriteCount(len(keys)); err != nil {
		return err
	}
	for _, key := range keys {
		if err := serial.EncodeWith(e, chunks, s.chunks[key]); err != nil {
			return fmt.Errorf("чанк %d: %w", key, err)
		}
	}
	return nil
}

func (ChunkStoreAdapter) Decode(d *serial.Decoder, version uint8) (*ChunkStore, error) {
	if version < 1 || version > 3 {
		return nil, serial.UnknownVersion("world.ChunkStore", version)
	}
	chunks, err := serial.AdapterFor[*Chunk](d.Registry())
	if err != nil {
		return nil, err
	}
	size := vec.Vec2{X: coords.MinChunkSize, Z: coords.MinChunkSize}
	known := version >= 3
	if known {
		if size, err = readChunkSize(d); err != nil {
			return nil, err
		}
	}
	n, err := d.ReadCount()
	if err != nil {
		return nil, err
	}
	s := &ChunkStore{
		size:   size,
		chunks: make(map[coords.Key]*Chunk, n),
	}
	for i := 0; i < n; i++ {
		if version == 1 {
			// устаревший ключ
			if _, err := d.ReadInt64(); err != nil {
				return nil, err
			}
		}
		c, err := serial.DecodeWith(d, chunks)
		if err != nil {
			return nil, fmt.Errorf("чанк %d: %w", i, err)
		}
		if i == 0 && !known {
			s.size = c.size
		} else if c.size != s.size {
			return nil, fmt.Errorf("чанк %v размера %v, ожидался %v: %w", c.coord, c.size, s.size, serial.ErrCorrupt)
		}
		if _, dup := s.chunks[c.Key()]; dup {
			return nil, fmt.Errorf("чанк %v повторяется: %w", c.coord, serial.ErrCorrupt)
		}
		s.chunks[c.Key()] = c
	}
	return s, nil
}

// TileMapAdapter пишет размер чанка и хранилище
type TileMapAdapter struct{}

func (TileMapAdapter) Version() uint8    { return 1 }
func (TileMapAdapter) MinVersion() uint8 { return 1 }

func (TileMapAdapter) Encode(e *serial.Encoder, m *TileMap) error {
	writeVec2(e, m.store.size)
	return serial.Encode(e, m.store)
}

func (TileMapAdapter) Decode(d *serial.Decoder, version uint8) (*TileMap, error) {
	if version != 1 {
		return nil, serial.UnknownVersion("world.TileMap", version)
	}
	size, err := readChunkSize(d)
	if err != nil {
		return nil, err
	}
	store, err := serial.Decode[*ChunkStore](d)
	if err != nil {
		return nil, err
	}
	if store.ChunkCount() > 0 && store.size != size {
		return nil, fmt.Errorf("чанки размера %v в карте %v: %w", store.size, size, serial.ErrCorrupt)
	}
	store.size = size
	return &TileMap{store: store}, nil
}

// RegisterAdapters добавляет в реестр адаптеры карты и её составляющих
func RegisterAdapters(r *serial.Registry) {
	tile.RegisterAdapters(r)
	serial.Register[*Chunk](r, ChunkAdapter{})
	serial.Register[*ChunkStore](r, ChunkStoreAdapter{})
	serial.Register[*TileMap](r, TileMapAdapter{})
}

// Adapters возвращает новый реестр со всеми адаптерами карты
func Adapters() *serial.Registry {
	r := serial.NewRegistry()
	RegisterAdapters(r)
	return r
}

// Marshal сериализует карту адаптерами по умолчанию
func Marshal(m *TileMap) ([]byte, error) {
	return serial.ToBinary(m, Adapters())
}

// Unmarshal восстанавливает карту адаптерами по умолчанию
func Unmarshal(data []byte) (*TileMap, error) {
	return serial.FromBinary[*TileMap](data, Adapters())
}
