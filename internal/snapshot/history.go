package snapshot

import (
	"context"
	"fmt"

	"github.com/annel0/tilemap/internal/errs"
	"github.com/annel0/tilemap/internal/logging"
	"github.com/annel0/tilemap/internal/serial"
	"github.com/annel0/tilemap/internal/vec"
	"github.com/annel0/tilemap/internal/world"
	"github.com/google/uuid"
)

// Kind - что содержит снимок
type Kind uint8

const (
	KindMap Kind = iota + 1
	KindChunk
	KindNoChunk // на месте чанка не было ничего, хранится только координата
)

func (k Kind) String() string {
	switch k {
	case KindMap:
		return "map"
	case KindChunk:
		return "chunk"
	case KindNoChunk:
		return "no-chunk"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// NewGroupID возвращает новый идентификатор группы снимков
func NewGroupID() string {
	return uuid.NewString()
}

// History сохраняет и восстанавливает снимки карты.
// Снимок хранится как [kind u8][сериализованное значение].
type History struct {
	store  Store
	reg    *serial.Registry
	logger *logging.Logger
}

// NewHistory создаёт историю поверх store. При reg == nil используются
// адаптеры карты по умолчанию.
func NewHistory(store Store, reg *serial.Registry) *History {
	if reg == nil {
		reg = world.Adapters()
	}
	return &History{store: store, reg: reg, logger: logging.GetSnapshotLogger()}
}

func capture[T any](ctx context.Context, h *History, group string, kind Kind, v T) error {
	payload, err := serial.ToBinary(v, h.reg)
	if err != nil {
		return fmt.Errorf("снимок %s %s: %w", kind, group, err)
	}
	data := make([]byte, 0, len(payload)+1)
	data = append(data, byte(kind))
	data = append(data, payload...)
	if err := h.store.Put(ctx, group, data); err != nil {
		return fmt.Errorf("снимок %s %s: %w", kind, group, err)
	}
	h.logger.Debug("снимок %s %s: %d байт", kind, group, len(data))
	return nil
}

func (h *History) load(ctx context.Context, group string) (Kind, []byte, error) {
	data, err := h.store.Get(ctx, group)
	if err != nil {
		return 0, nil, err
	}
	if len(data) == 0 {
		return 0, nil, fmt.Errorf("снимок %s пуст: %w", group, serial.ErrCorrupt)
	}
	return Kind(data[0]), data[1:], nil
}

func restore[T any](ctx context.Context, h *History, group string, kind Kind) (T, error) {
	var zero T
	got, payload, err := h.load(ctx, group)
	if err != nil {
		return zero, err
	}
	if got != kind {
		return zero, fmt.Errorf("снимок %s не является снимком %s: %w", group, kind, serial.ErrCorrupt)
	}
	v, err := serial.FromBinary[T](payload, h.reg)
	if err != nil {
		return zero, fmt.Errorf("снимок %s %s: %w", kind, group, err)
	}
	return v, nil
}

// CaptureMap сохраняет снимок карты целиком
func (h *History) CaptureMap(ctx context.Context, group string, m *world.TileMap) error {
	if m == nil {
		return fmt.Errorf("снимок %s: карта не задана: %w", group, errs.ErrInvalidArgument)
	}
	return capture(ctx, h, group, KindMap, m)
}

// RestoreMap восстанавливает карту из снимка
func (h *History) RestoreMap(ctx context.Context, group string) (*world.TileMap, error) {
	return restore[*world.TileMap](ctx, h, group, KindMap)
}

// CaptureChunk сохраняет снимок одного чанка
func (h *History) CaptureChunk(ctx context.Context, group string, c *world.Chunk) error {
	if c == nil {
		return fmt.Errorf("снимок %s: чанк не задан: %w", group, errs.ErrInvalidArgument)
	}
	return capture(ctx, h, group, KindChunk, c)
}

// CaptureChunkAt сохраняет чанк карты по координате. Если чанка нет,
// сохраняется отметка, по которой RestoreChunk удалит созданный позже чанк.
func (h *History) CaptureChunkAt(ctx context.Context, group string, m *world.TileMap, coord vec.Vec2) error {
	if m == nil {
		return fmt.Errorf("снимок %s: карта не задана: %w", group, errs.ErrInvalidArgument)
	}
	if c, ok := m.Chunk(coord); ok {
		return capture(ctx, h, group, KindChunk, c)
	}
	e := serial.NewEncoder(h.reg)
	e.WriteUint8(byte(KindNoChunk))
	e.WriteInt32(coord.X)
	e.WriteInt32(coord.Z)
	if err := h.store.Put(ctx, group, e.Bytes()); err != nil {
		return fmt.Errorf("снимок %s %s: %w", KindNoChunk, group, err)
	}
	h.logger.Debug("снимок %s %s: чанк %v", KindNoChunk, group, coord)
	return nil
}

func decodeCoord(payload []byte, reg *serial.Registry) (vec.Vec2, error) {
	var coord vec.Vec2
	var err error
	d := serial.NewDecoder(payload, reg)
	if coord.X, err = d.ReadInt32(); err != nil {
		return coord, err
	}
	if coord.Z, err = d.ReadInt32(); err != nil {
		return coord, err
	}
	if d.Remaining() != 0 {
		return coord, fmt.Errorf("%d лишних байт: %w", d.Remaining(), serial.ErrCorrupt)
	}
	return coord, nil
}

// RestoreChunk заменяет чанк карты его снимком, а для отметки об
// отсутствии чанка удаляет чанк из карты
func (h *History) RestoreChunk(ctx context.Context, group string, m *world.TileMap) error {
	if m == nil {
		return fmt.Errorf("снимок %s: карта не задана: %w", group, errs.ErrInvalidArgument)
	}
	kind, payload, err := h.load(ctx, group)
	if err != nil {
		return err
	}
	switch kind {
	case KindChunk:
		c, err := serial.FromBinary[*world.Chunk](payload, h.reg)
		if err != nil {
			return fmt.Errorf("снимок %s %s: %w", kind, group, err)
		}
		if err := m.PutChunk(c); err != nil {
			return fmt.Errorf("снимок %s: %w", group, err)
		}
	case KindNoChunk:
		coord, err := decodeCoord(payload, h.reg)
		if err != nil {
			return fmt.Errorf("снимок %s %s: %w", kind, group, err)
		}
		m.ClearChunk(coord)
	default:
		return fmt.Errorf("снимок %s не является снимком чанка: %w", group, serial.ErrCorrupt)
	}
	return nil
}

// Discard удаляет снимок
func (h *History) Discard(ctx context.Context, group string) error {
	return h.store.Delete(ctx, group)
}
