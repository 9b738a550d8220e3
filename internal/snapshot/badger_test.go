package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/annel0/tilemap/internal/storage"
	"github.com/annel0/tilemap/internal/tile"
	"github.com/annel0/tilemap/internal/vec"
	"github.com/annel0/tilemap/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerStore(t *testing.T) {
	repo, err := storage.Open("", storage.Options{InMemory: true, Compression: storage.CompressionZstd})
	require.NoError(t, err)
	defer repo.Close()
	s := NewBadgerStore(repo, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "g1", []byte{1, 2, 3}))
	data, err := s.Get(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)

	require.NoError(t, s.Delete(ctx, "g1"))
	require.NoError(t, s.Delete(ctx, "g1"))
	_, err = s.Get(ctx, "g1")
	assert.ErrorIs(t, err, ErrNoSnapshot)

	assert.Error(t, s.Put(ctx, "", []byte{1}))
}

func TestBadgerStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	m, err := world.NewTileMap(vec.Vec2{X: 4, Z: 4})
	require.NoError(t, err)
	require.NoError(t, m.SetCell(vec.Vec3{X: 2, Z: 2}, tile.Cell{Index: tile.StoneIndex}))

	repo, err := storage.Open(dir, storage.Options{})
	require.NoError(t, err)
	group := NewGroupID()
	require.NoError(t, NewHistory(NewBadgerStore(repo, 0), nil).CaptureMap(ctx, group, m))
	require.NoError(t, repo.Close())

	repo, err = storage.Open(dir, storage.Options{})
	require.NoError(t, err)
	defer repo.Close()
	restored, err := NewHistory(NewBadgerStore(repo, 0), nil).RestoreMap(ctx, group)
	require.NoError(t, err)
	assert.True(t, m.Equal(restored))
}
