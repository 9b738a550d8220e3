package snapshot

import (
	"context"
	"testing"

	"github.com/annel0/tilemap/internal/errs"
	"github.com/annel0/tilemap/internal/serial"
	"github.com/annel0/tilemap/internal/tile"
	"github.com/annel0/tilemap/internal/vec"
	"github.com/annel0/tilemap/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHistory(t *testing.T) *History {
	t.Helper()
	s, err := NewMemoryStore(8)
	require.NoError(t, err)
	return NewHistory(s, nil)
}

func TestHistoryMapUndo(t *testing.T) {
	h := newHistory(t)
	ctx := context.Background()

	m, err := world.NewTileMap(vec.Vec2{X: 4, Z: 4})
	require.NoError(t, err)
	require.NoError(t, m.SetCell(vec.Vec3{X: 1, Z: 1}, tile.Cell{Index: tile.GrassIndex}))

	group := NewGroupID()
	require.NoError(t, h.CaptureMap(ctx, group, m))

	require.NoError(t, m.SetCell(vec.Vec3{X: 1, Z: 1}, tile.Cell{Index: tile.WaterIndex}))
	require.NoError(t, m.SetCell(vec.Vec3{X: -20, Z: 3}, tile.Cell{Index: tile.SandIndex}))

	before, err := h.RestoreMap(ctx, group)
	require.NoError(t, err)
	assert.Equal(t, tile.Cell{Index: tile.GrassIndex}, before.GetCell(vec.Vec3{X: 1, Z: 1}))
	assert.Equal(t, 1, before.ChunkCount())
}

func TestHistoryChunk(t *testing.T) {
	h := newHistory(t)
	ctx := context.Background()

	m, err := world.NewTileMap(vec.Vec2{X: 2, Z: 2})
	require.NoError(t, err)
	require.NoError(t, m.SetCell(vec.Vec3{X: 0, Y: 1, Z: 0}, tile.Cell{Index: 3, Flags: tile.West}))
	chunk, ok := m.Chunk(vec.Vec2{})
	require.True(t, ok)

	group := NewGroupID()
	require.NoError(t, h.CaptureChunk(ctx, group, chunk))
	require.NoError(t, m.SetCell(vec.Vec3{X: 0, Y: 1, Z: 0}, tile.Empty))
	require.NoError(t, m.SetCell(vec.Vec3{X: 5, Z: 5}, tile.Cell{Index: 1}))

	require.NoError(t, h.RestoreChunk(ctx, group, m))
	assert.Equal(t, tile.Cell{Index: 3, Flags: tile.West}, m.GetCell(vec.Vec3{X: 0, Y: 1, Z: 0}))
	assert.Equal(t, tile.Cell{Index: 1}, m.GetCell(vec.Vec3{X: 5, Z: 5}), "другие чанки не затронуты")

	_, err = h.RestoreMap(ctx, group)
	assert.ErrorIs(t, err, serial.ErrCorrupt, "снимок чанка не читается как карта")

	require.NoError(t, h.Discard(ctx, group))
	assert.ErrorIs(t, h.RestoreChunk(ctx, group, m), ErrNoSnapshot)
}

func TestNewGroupIDUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := NewGroupID()
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}

func TestHistoryChunkAtMissingChunk(t *testing.T) {
	h := newHistory(t)
	ctx := context.Background()

	m, err := world.NewTileMap(vec.Vec2{X: 4, Z: 4})
	require.NoError(t, err)
	require.NoError(t, m.SetCell(vec.Vec3{X: 9, Z: 9}, tile.Cell{Index: 1}))

	group := NewGroupID()
	require.NoError(t, h.CaptureChunkAt(ctx, group, m, vec.Vec2{X: -1, Z: 0}))
	require.NoError(t, m.SetCell(vec.Vec3{X: -2, Z: 1}, tile.Cell{Index: 2}))
	require.Equal(t, 2, m.ChunkCount())

	require.NoError(t, h.RestoreChunk(ctx, group, m))
	_, ok := m.Chunk(vec.Vec2{X: -1, Z: 0})
	assert.False(t, ok, "чанк, которого не было, удалён")
	assert.Equal(t, tile.Cell{Index: 1}, m.GetCell(vec.Vec3{X: 9, Z: 9}))

	_, err = h.RestoreMap(ctx, group)
	assert.ErrorIs(t, err, serial.ErrCorrupt)
}

func TestHistoryChunkAtExistingChunk(t *testing.T) {
	h := newHistory(t)
	ctx := context.Background()

	m, err := world.NewTileMap(vec.Vec2{X: 4, Z: 4})
	require.NoError(t, err)
	require.NoError(t, m.SetCell(vec.Vec3{X: 1, Z: 1}, tile.Cell{Index: 5}))

	group := NewGroupID()
	require.NoError(t, h.CaptureChunkAt(ctx, group, m, vec.Vec2{}))
	require.NoError(t, m.SetCell(vec.Vec3{X: 1, Z: 1}, tile.Cell{Index: 2}))

	require.NoError(t, h.RestoreChunk(ctx, group, m))
	assert.Equal(t, tile.Cell{Index: 5}, m.GetCell(vec.Vec3{X: 1, Z: 1}))
}

func TestHistoryRejectsNil(t *testing.T) {
	h := newHistory(t)
	ctx := context.Background()

	assert.ErrorIs(t, h.CaptureMap(ctx, "g", nil), errs.ErrInvalidArgument)
	assert.ErrorIs(t, h.CaptureChunk(ctx, "g", nil), errs.ErrInvalidArgument)
	assert.ErrorIs(t, h.CaptureChunkAt(ctx, "g", nil, vec.Vec2{}), errs.ErrInvalidArgument)
	assert.ErrorIs(t, h.RestoreChunk(ctx, "g", nil), errs.ErrInvalidArgument)
}

func TestHistoryRejectsBrokenMarker(t *testing.T) {
	s, err := NewMemoryStore(4)
	require.NoError(t, err)
	h := NewHistory(s, nil)
	ctx := context.Background()
	m, err := world.NewTileMap(vec.Vec2{X: 2, Z: 2})
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "short", []byte{byte(KindNoChunk), 1, 2}))
	assert.ErrorIs(t, h.RestoreChunk(ctx, "short", m), serial.ErrTruncated)

	require.NoError(t, s.Put(ctx, "empty", nil))
	assert.ErrorIs(t, h.RestoreChunk(ctx, "empty", m), serial.ErrCorrupt)

	require.NoError(t, s.Put(ctx, "map", []byte{byte(KindMap)}))
	assert.ErrorIs(t, h.RestoreChunk(ctx, "map", m), serial.ErrCorrupt)
}
