package coords

import (
	"math"
	"testing"

	"github.com/annel0/tilemap/internal/errs"
	"github.com/annel0/tilemap/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridToChunkCoord_NegativeBoundary(t *testing.T) {
	size := vec.Vec2{X: 2, Z: 2}
	cases := []struct {
		grid vec.Vec3
		want vec.Vec2
	}{
		{vec.Vec3{X: -1, Z: -1}, vec.Vec2{X: -1, Z: -1}},
		{vec.Vec3{X: -2, Z: -2}, vec.Vec2{X: -1, Z: -1}},
		{vec.Vec3{X: -3, Z: -3}, vec.Vec2{X: -2, Z: -2}},
		{vec.Vec3{X: -4, Z: -4}, vec.Vec2{X: -2, Z: -2}},
		{vec.Vec3{X: 0, Z: 0}, vec.Vec2{X: 0, Z: 0}},
		{vec.Vec3{X: 1, Z: 1}, vec.Vec2{X: 0, Z: 0}},
		{vec.Vec3{X: 2, Z: 3}, vec.Vec2{X: 1, Z: 1}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, GridToChunkCoord(tc.grid, size), "клетка %v", tc.grid)
	}
}

func TestGridToChunkCoord_Extremes(t *testing.T) {
	size := vec.Vec2{X: 16, Z: 16}
	chunk := GridToChunkCoord(vec.Vec3{X: math.MinInt32, Z: math.MaxInt32}, size)
	assert.Equal(t, int32(math.MinInt32/16), chunk.X)
	assert.Equal(t, int32(math.MaxInt32/16), chunk.Z)

	local := GridToLayerCoord(vec.Vec3{X: math.MinInt32, Z: math.MaxInt32}, size)
	assert.Equal(t, int32(0), local.X)
	assert.Equal(t, int32(15), local.Z)
}

func TestCoordinateInverseLaw(t *testing.T) {
	sizes := []vec.Vec2{{X: 2, Z: 2}, {X: 3, Z: 5}, {X: 16, Z: 16}, {X: 7, Z: 2}}
	for _, size := range sizes {
		for x := int32(-40); x <= 40; x++ {
			for z := int32(-40); z <= 40; z += 3 {
				g := vec.Vec3{X: x, Y: x - z, Z: z}
				chunk := GridToChunkCoord(g, size)
				local := GridToLayerCoord(g, size)

				require.GreaterOrEqual(t, local.X, int32(0))
				require.Less(t, local.X, size.X)
				require.GreaterOrEqual(t, local.Z, int32(0))
				require.Less(t, local.Z, size.Z)
				require.Equal(t, g, LayerToGridCoord(local, chunk, size), "размер %v клетка %v", size, g)
			}
		}
	}
}

func TestGridToLayerCoord_HeightPassThrough(t *testing.T) {
	size := vec.Vec2{X: 2, Z: 2}
	local := GridToLayerCoord(vec.Vec3{X: 3, Y: -4, Z: 5}, size)
	assert.Equal(t, vec.Vec3{X: 1, Y: -4, Z: 1}, local)
	assert.Equal(t, vec.Vec3{X: 1, Y: 0, Z: 1}, ClampHeight(local))
}

func TestNormalizeChunkSize(t *testing.T) {
	got, err := NormalizeChunkSize(vec.Vec2{X: 0, Z: 1})
	require.NoError(t, err)
	assert.Equal(t, vec.Vec2{X: 2, Z: 2}, got)

	got, err = NormalizeChunkSize(vec.Vec2{X: 16, Z: 8})
	require.NoError(t, err)
	assert.Equal(t, vec.Vec2{X: 16, Z: 8}, got)

	_, err = NormalizeChunkSize(vec.Vec2{X: -1, Z: 4})
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestUndersizedChunkIsClamped(t *testing.T) {
	// Размер 1x1 обрабатывается как 2x2
	assert.Equal(t, vec.Vec2{X: -1, Z: 1}, GridToChunkCoord(vec.Vec3{X: -1, Z: 3}, vec.Vec2{X: 1, Z: 1}))
}

func TestIndex2DRoundTrip(t *testing.T) {
	const width = 5
	for z := int32(0); z < 4; z++ {
		for x := int32(0); x < width; x++ {
			idx := ToIndex2D(x, z, width)
			assert.Equal(t, int(z*width+x), idx)
			assert.Equal(t, vec.Vec3{X: x, Y: 9, Z: z}, ToGridCoord(idx, width, 9))
		}
	}
}

func TestIndex2DDegenerateWidth(t *testing.T) {
	for _, width := range []int32{0, -3} {
		assert.NotPanics(t, func() { ToGridCoord(7, width, 0) })
		assert.Equal(t, vec.Vec3{X: 0, Y: 2, Z: 7}, ToGridCoord(7, width, 2), "ширина %d", width)
		assert.Equal(t, 7, ToIndex2D(0, 7, width), "ширина %d", width)
	}
}

func TestWorldPosToGridCoord(t *testing.T) {
	cell := vec.Vec3Float{X: 1, Y: 1, Z: 1}
	assert.Equal(t, vec.Vec3{X: -1, Y: 0, Z: 0}, WorldPosToGridCoord(vec.Vec3Float{X: -0.1, Y: 0.5, Z: 0.99}, cell))

	big := vec.Vec3Float{X: 0.5, Y: 2, Z: 0}
	assert.Equal(t, vec.Vec3{X: -3, Y: 1, Z: 4}, WorldPosToGridCoord(vec.Vec3Float{X: -1.2, Y: 3.9, Z: 4.5}, big))
}
