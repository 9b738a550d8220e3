package serial

import (
	"errors"
	"testing"

	"github.com/annel0/tilemap/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// marker в версии 1 хранил имя и устаревший вес, в версии 2 вес удалён
// и добавлен уровень (по умолчанию 1), в версии 3 добавлен флаг активности.
type marker struct {
	Name   string
	Level  int32
	Active bool
}

type markerAdapter struct{}

func (markerAdapter) Version() uint8    { return 3 }
func (markerAdapter) MinVersion() uint8 { return 1 }

func (markerAdapter) Encode(e *Encoder, m marker) error {
	if err := e.WriteString(m.Name); err != nil {
		return err
	}
	e.WriteInt32(m.Level)
	e.WriteBool(m.Active)
	return nil
}

func (markerAdapter) Decode(d *Decoder, version uint8) (marker, error) {
	var m marker
	var err error
	if m.Name, err = d.ReadString(); err != nil {
		return m, err
	}
	switch version {
	case 1:
		if _, err = d.ReadInt64(); err != nil { // вес
			return m, err
		}
		m.Level = 1
		m.Active = true
	case 2:
		if m.Level, err = d.ReadInt32(); err != nil {
			return m, err
		}
		m.Active = true
	case 3:
		if m.Level, err = d.ReadInt32(); err != nil {
			return m, err
		}
		if m.Active, err = d.ReadBool(); err != nil {
			return m, err
		}
	default:
		return m, UnknownVersion("marker", version)
	}
	return m, nil
}

func markerRegistry() *Registry {
	r := NewRegistry()
	Register[marker](r, markerAdapter{})
	return r
}

func TestRoundTrip_Primitives(t *testing.T) {
	i32, err := ToBinary(int32(-123456), nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0xC0, 0x1D, 0xFE, 0xFF}, i32, "версия и little-endian")

	v32, err := FromBinary[int32](i32, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(-123456), v32)

	s, err := ToBinary("чанк", nil)
	require.NoError(t, err)
	vs, err := FromBinary[string](s, nil)
	require.NoError(t, err)
	assert.Equal(t, "чанк", vs)

	b, err := ToBinary([]byte{1, 2, 3}, nil)
	require.NoError(t, err)
	vb, err := FromBinary[[]byte](b, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, vb)

	i64, err := ToBinary(int64(-1), NewRegistry())
	require.NoError(t, err)
	v64, err := FromBinary[int64](i64, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), v64)
}

func TestRoundTrip_CurrentVersion(t *testing.T) {
	reg := markerRegistry()
	in := marker{Name: "spawn", Level: 7, Active: false}

	data, err := ToBinary(in, reg)
	require.NoError(t, err)
	assert.Equal(t, uint8(3), data[0])

	out, err := FromBinary[marker](data, reg)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func encodeRaw(t *testing.T, version uint8, fill func(e *Encoder)) []byte {
	t.Helper()
	e := NewEncoder(nil)
	e.WriteUint8(version)
	fill(e)
	return e.Bytes()
}

func TestVersionGate(t *testing.T) {
	reg := markerRegistry()

	future := encodeRaw(t, 4, func(e *Encoder) { _ = e.WriteString("x") })
	_, err := FromBinary[marker](future, reg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFutureVersion)
	assert.NotErrorIs(t, err, ErrLegacyVersion)

	var verr *VersionError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, uint8(4), verr.Serialized)
	assert.Equal(t, uint8(3), verr.Current)

	legacy := encodeRaw(t, 0, func(e *Encoder) { _ = e.WriteString("x") })
	_, err = FromBinary[marker](legacy, reg)
	assert.ErrorIs(t, err, ErrLegacyVersion)
	assert.NotErrorIs(t, err, ErrFutureVersion)
}

func TestLegacyVersionsAreReconstructed(t *testing.T) {
	reg := markerRegistry()

	v1 := encodeRaw(t, 1, func(e *Encoder) {
		_ = e.WriteString("old")
		e.WriteInt64(99)
	})
	m, err := FromBinary[marker](v1, reg)
	require.NoError(t, err)
	assert.Equal(t, marker{Name: "old", Level: 1, Active: true}, m)

	v2 := encodeRaw(t, 2, func(e *Encoder) {
		_ = e.WriteString("mid")
		e.WriteInt32(5)
	})
	m, err = FromBinary[marker](v2, reg)
	require.NoError(t, err)
	assert.Equal(t, marker{Name: "mid", Level: 5, Active: true}, m)
}

func TestFromBinary_Errors(t *testing.T) {
	reg := markerRegistry()

	data, err := ToBinary(marker{Name: "a", Level: 1}, reg)
	require.NoError(t, err)

	_, err = FromBinary[marker](data[:len(data)-2], reg)
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = FromBinary[marker](append(data, 0), reg)
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = FromBinary[marker](nil, reg)
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = FromBinary[marker](data, nil)
	assert.ErrorIs(t, err, ErrNoAdapter)

	_, err = ToBinary(marker{}, nil)
	assert.ErrorIs(t, err, ErrNoAdapter)
}

func TestReadBool_RejectsGarbage(t *testing.T) {
	_, err := FromBinary[bool]([]byte{1, 2}, nil)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestSlices(t *testing.T) {
	reg := markerRegistry()
	items := []marker{{Name: "a", Level: 1}, {Name: "b", Level: 2, Active: true}}

	e := NewEncoder(reg)
	require.NoError(t, EncodeSlice(e, items))

	d := NewDecoder(e.Bytes(), reg)
	out, err := DecodeSlice[marker](d)
	require.NoError(t, err)
	assert.Equal(t, items, out)
	assert.Equal(t, 0, d.Remaining())

	e = NewEncoder(reg)
	require.NoError(t, EncodeSlice[marker](e, nil))
	d = NewDecoder(e.Bytes(), reg)
	out, err = DecodeSlice[marker](d)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestReadCount_RejectsImpossibleCounts(t *testing.T) {
	e := NewEncoder(nil)
	e.WriteInt32(-1)
	_, err := NewDecoder(e.Bytes(), nil).ReadCount()
	assert.ErrorIs(t, err, ErrCorrupt)

	e = NewEncoder(nil)
	e.WriteInt32(1000)
	_, err = NewDecoder(e.Bytes(), nil).ReadCount()
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestNotImplemented(t *testing.T) {
	reg := NewRegistry()
	Register(reg, NotImplemented[marker](1))

	_, err := ToBinary(marker{}, reg)
	assert.ErrorIs(t, err, errs.ErrNotImplemented)

	_, err = FromBinary[marker]([]byte{1}, reg)
	assert.ErrorIs(t, err, errs.ErrNotImplemented)
}

func TestRegistryOverride(t *testing.T) {
	base := markerRegistry()
	override := base.Clone()
	Register(override, NotImplemented[marker](3))

	_, err := ToBinary(marker{Name: "a"}, base)
	assert.NoError(t, err, "исходный реестр не должен меняться")

	_, err = ToBinary(marker{Name: "a"}, override)
	assert.ErrorIs(t, err, errs.ErrNotImplemented)
	assert.Equal(t, 1, override.Len())

	// Встроенный адаптер можно переопределить
	Register(override, NotImplemented[int32](1))
	_, err = ToBinary(int32(1), override)
	assert.ErrorIs(t, err, errs.ErrNotImplemented)
}

func TestPooledBufferIsNotShared(t *testing.T) {
	a, err := ToBinary("первый", nil)
	require.NoError(t, err)
	b, err := ToBinary("второй", nil)
	require.NoError(t, err)

	va, err := FromBinary[string](a, nil)
	require.NoError(t, err)
	assert.Equal(t, "первый", va)
	assert.NotEqual(t, a, b)
}
