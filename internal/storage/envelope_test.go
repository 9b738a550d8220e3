package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/annel0/tilemap/internal/serial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecSealOpen(t *testing.T) {
	payload := bytes.Repeat([]byte("tilemap"), 500)
	for _, c := range []Compression{CompressionNone, CompressionZstd} {
		cd, err := newCodec(c)
		require.NoError(t, err)

		blob := cd.seal(payload)
		assert.Equal(t, []byte("TMB1"), blob[:4])
		assert.Equal(t, byte(c), blob[4])
		if c == CompressionZstd {
			assert.Less(t, len(blob), len(payload), "повторяющиеся данные сжимаются")
		}

		got, err := cd.open(blob)
		require.NoError(t, err)
		assert.Equal(t, payload, got)
		cd.close()
	}
}

func TestCodecRejects(t *testing.T) {
	cd, err := newCodec(CompressionNone)
	require.NoError(t, err)
	defer cd.close()

	_, err = cd.open([]byte("TMB"))
	assert.ErrorIs(t, err, serial.ErrCorrupt)

	blob := cd.seal([]byte{1, 2, 3})
	bad := append([]byte(nil), blob...)
	bad[0] = 'X'
	_, err = cd.open(bad)
	assert.ErrorIs(t, err, serial.ErrCorrupt, "неверная сигнатура")

	bad = append([]byte(nil), blob...)
	bad[len(bad)-1] = 9
	_, err = cd.open(bad)
	assert.ErrorIs(t, err, ErrChecksum)

	bad = append([]byte(nil), blob...)
	bad[4] = 7
	_, err = cd.open(bad)
	assert.ErrorIs(t, err, serial.ErrCorrupt, "неизвестное сжатие")

	_, err = newCodec(Compression(5))
	assert.Error(t, err)
}

func TestParseCompression(t *testing.T) {
	c, err := ParseCompression("ZSTD")
	require.NoError(t, err)
	assert.Equal(t, CompressionZstd, c)

	c, err = ParseCompression("")
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, c)

	_, err = ParseCompression("lz4")
	assert.Error(t, err)
}

func TestBlobFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export", "map.tmb")
	payload := []byte{1, 0, 0, 0, 2, 0, 0, 0, 9}

	require.NoError(t, WriteBlobFile(path, payload, CompressionZstd))
	got, err := ReadBlobFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "временный файл удалён")

	_, err = ReadBlobFile(filepath.Join(t.TempDir(), "missing.tmb"))
	assert.Error(t, err)
}
