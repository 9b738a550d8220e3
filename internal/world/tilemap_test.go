package world

import (
	"math/rand"
	"testing"

	"github.com/annel0/tilemap/internal/coords"
	"github.com/annel0/tilemap/internal/errs"
	"github.com/annel0/tilemap/internal/tile"
	"github.com/annel0/tilemap/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMap(t *testing.T, w, d int32) *TileMap {
	t.Helper()
	m, err := NewTileMap(vec.Vec2{X: w, Z: d})
	require.NoError(t, err)
	return m
}

func TestNewTileMapSize(t *testing.T) {
	m := newTestMap(t, 1, 0)
	assert.Equal(t, vec.Vec2{X: 2, Z: 2}, m.ChunkSize(), "малый размер увеличивается до 2")

	_, err := NewTileMap(vec.Vec2{X: -4, Z: 4})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestTileMapSetGetCell(t *testing.T) {
	m := newTestMap(t, 2, 2)
	cell := tile.Cell{Index: 7, Flags: tile.North}

	require.NoError(t, m.SetCell(vec.Vec3{X: 3, Y: 0, Z: 5}, cell))
	assert.Equal(t, cell, m.GetCell(vec.Vec3{X: 3, Y: 0, Z: 5}))
	assert.Equal(t, tile.Empty, m.GetCell(vec.Vec3{X: 3, Y: 1, Z: 5}), "другая высота")
	assert.Equal(t, tile.Empty, m.GetCell(vec.Vec3{X: -3, Y: 0, Z: 5}), "несозданный чанк")

	key := coords.ChunkKey(vec.Vec2{X: 1, Z: 2})
	c, ok := m.Store().TryGetChunk(key)
	require.True(t, ok, "чанк создан при записи")
	assert.Equal(t, cell, c.Cell(vec.Vec3{X: 1, Y: 0, Z: 1}))
	assert.Equal(t, int64(1), m.ChunkCellCount(key))

	err := m.SetCell(vec.Vec3{}, tile.Cell{Index: -1})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestTileMapNegativeCoordinates(t *testing.T) {
	m := newTestMap(t, 4, 3)
	var writes []CellWrite
	for x := int32(-9); x <= 9; x++ {
		for z := int32(-7); z <= 7; z++ {
			writes = append(writes, CellWrite{
				Pos:  vec.Vec3{X: x, Y: x - z, Z: z},
				Cell: tile.Cell{Index: 1 + (x+100)*1000 + (z + 100)},
			})
		}
	}
	require.NoError(t, m.SetCells(writes))
	for _, w := range writes {
		assert.Equal(t, w.Cell, m.GetCell(w.Pos), "клетка %v", w.Pos)
	}
	assert.Equal(t, int64(len(writes)), m.TotalCellCount())
}

func TestTileMapSetCellsAtomic(t *testing.T) {
	m := newTestMap(t, 2, 2)
	err := m.SetCells([]CellWrite{
		{Pos: vec.Vec3{X: 0}, Cell: tile.Cell{Index: 1}},
		{Pos: vec.Vec3{X: 1}, Cell: tile.Cell{Index: -5}},
	})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	assert.Equal(t, 0, m.ChunkCount(), "при ошибке карта не меняется")
}

func TestTileMapSetCellsSeq(t *testing.T) {
	m := newTestMap(t, 2, 2)
	seq := func(yield func(vec.Vec3, tile.Cell) bool) {
		for i := int32(0); i < 5; i++ {
			if !yield(vec.Vec3{X: i, Z: -i}, tile.Cell{Index: i + 1}) {
				return
			}
		}
	}
	require.NoError(t, m.SetCellsSeq(seq))
	assert.Equal(t, int64(5), m.TotalCellCount())
	assert.Equal(t, tile.Cell{Index: 5}, m.GetCell(vec.Vec3{X: 4, Z: -4}))
}

func TestTileMapCounterInvariant(t *testing.T) {
	m := newTestMap(t, 3, 3)
	rng := rand.New(rand.NewSource(7))
	pos := func() vec.Vec3 {
		return vec.Vec3{X: int32(rng.Intn(13) - 6), Y: int32(rng.Intn(3) - 1), Z: int32(rng.Intn(13) - 6)}
	}
	for i := 0; i < 500; i++ {
		if i%10 == 0 {
			batch := make([]CellWrite, 20)
			for j := range batch {
				batch[j] = CellWrite{Pos: pos(), Cell: tile.Cell{Index: int32(rng.Intn(3))}}
			}
			require.NoError(t, m.SetCells(batch))
		} else {
			require.NoError(t, m.SetCell(pos(), tile.Cell{Index: int32(rng.Intn(3))}))
		}
	}

	var total int64
	for key := range m.ChunkKeys() {
		c, ok := m.Store().TryGetChunk(key)
		require.True(t, ok)
		assert.Equal(t, c.Rescan(), c.CellCount(), "чанк %v", c.Coord())
		total += c.Rescan()
	}
	assert.Equal(t, total, m.TotalCellCount())
}

func TestTileMapClearChunk(t *testing.T) {
	m := newTestMap(t, 2, 2)
	require.NoError(t, m.SetCell(vec.Vec3{X: 0, Z: 0}, tile.Cell{Index: 1}))
	require.NoError(t, m.SetCell(vec.Vec3{X: 5, Z: 5}, tile.Cell{Index: 2}))

	m.ClearChunk(vec.Vec2{X: 0, Z: 0})
	m.ClearChunk(vec.Vec2{X: 40, Z: 40})
	assert.Equal(t, 1, m.ChunkCount())
	assert.Equal(t, tile.Empty, m.GetCell(vec.Vec3{}))

	_, ok := m.Chunk(vec.Vec2{X: 2, Z: 2})
	assert.True(t, ok)

	m.Clear()
	assert.Equal(t, 0, m.ChunkCount())
	assert.Equal(t, int64(0), m.TotalCellCount())
}

func TestTileMapClampHeight(t *testing.T) {
	m := newTestMap(t, 2, 2)
	m.SetClampHeight(true)
	require.NoError(t, m.SetCell(vec.Vec3{X: 1, Y: -4, Z: 1}, tile.Cell{Index: 3}))
	assert.Equal(t, tile.Cell{Index: 3}, m.GetCell(vec.Vec3{X: 1, Y: 0, Z: 1}))

	m.SetClampHeight(false)
	assert.Equal(t, tile.Empty, m.GetCell(vec.Vec3{X: 1, Y: -4, Z: 1}))
}
