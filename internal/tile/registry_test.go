package tile

import (
	"testing"

	"github.com/annel0/tilemap/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	def, ok := r.Get(WaterIndex)
	require.True(t, ok)
	assert.Equal(t, "water", def.Name)
	assert.False(t, def.Solid)

	def, ok = r.Lookup("stone")
	require.True(t, ok)
	assert.Equal(t, StoneIndex, def.Index)

	assert.True(t, r.IsValid(0), "пустая клетка")
	assert.False(t, r.IsValid(99))
	assert.Len(t, r.Definitions(), 5)
	assert.Equal(t, StoneIndex, r.Definitions()[0].Index)
}

func TestRegistryRejects(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Definition{Index: 10, Name: "lava"}))

	assert.ErrorIs(t, r.Register(Definition{Index: 0, Name: "air"}), errs.ErrInvalidArgument)
	assert.ErrorIs(t, r.Register(Definition{Index: 10, Name: "magma"}), errs.ErrInvalidArgument)
	assert.ErrorIs(t, r.Register(Definition{Index: 11, Name: "lava"}), errs.ErrInvalidArgument)
	assert.ErrorIs(t, r.Register(Definition{Index: 12}), errs.ErrInvalidArgument)
}
