package serial

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
)

// Все многобайтовые значения пишутся в little-endian независимо от платформы.
var order = binary.LittleEndian

// Encoder накапливает сериализованные данные в растущем буфере
type Encoder struct {
	buf []byte
	reg *Registry
}

// NewEncoder создаёт кодировщик, использующий адаптеры из reg
func NewEncoder(reg *Registry) *Encoder {
	return &Encoder{buf: make([]byte, 0, initialBufferSize), reg: reg}
}

// Bytes возвращает записанные данные. Срез действителен до следующей записи.
func (e *Encoder) Bytes() []byte { return e.buf }

// Len возвращает количество записанных байт
func (e *Encoder) Len() int { return len(e.buf) }

// Registry возвращает реестр, с которым работает кодировщик
func (e *Encoder) Registry() *Registry { return e.reg }

func (e *Encoder) WriteUint8(v uint8) { e.buf = append(e.buf, v) }

func (e *Encoder) WriteBool(v bool) {
	if v {
		e.buf = append(e.buf, 1)
		return
	}
	e.buf = append(e.buf, 0)
}

func (e *Encoder) WriteUint16(v uint16) { e.buf = order.AppendUint16(e.buf, v) }
func (e *Encoder) WriteUint32(v uint32) { e.buf = order.AppendUint32(e.buf, v) }
func (e *Encoder) WriteUint64(v uint64) { e.buf = order.AppendUint64(e.buf, v) }
func (e *Encoder) WriteInt32(v int32)   { e.buf = order.AppendUint32(e.buf, uint32(v)) }
func (e *Encoder) WriteInt64(v int64)   { e.buf = order.AppendUint64(e.buf, uint64(v)) }

// WriteCount пишет количество элементов составного значения
func (e *Encoder) WriteCount(n int) error {
	if n < 0 || n > math.MaxInt32 {
		return fmt.Errorf("количество элементов %d: %w", n, ErrCorrupt)
	}
	e.WriteInt32(int32(n))
	return nil
}

// WriteBytes пишет [len i32][data]
func (e *Encoder) WriteBytes(b []byte) error {
	if err := e.WriteCount(len(b)); err != nil {
		return err
	}
	e.buf = append(e.buf, b...)
	return nil
}

func (e *Encoder) WriteString(s string) error {
	if err := e.WriteCount(len(s)); err != nil {
		return err
	}
	e.buf = append(e.buf, s...)
	return nil
}

// Decoder читает данные из среза, сохраняя позицию курсора
type Decoder struct {
	data []byte
	off  int
	reg  *Registry
}

// NewDecoder создаёт декодер над data с адаптерами из reg
func NewDecoder(data []byte, reg *Registry) *Decoder {
	return &Decoder{data: data, reg: reg}
}

// Remaining возвращает количество непрочитанных байт
func (d *Decoder) Remaining() int { return len(d.data) - d.off }

// Offset возвращает текущую позицию курсора
func (d *Decoder) Offset() int { return d.off }

// Registry возвращает реестр, с которым работает декодер
func (d *Decoder) Registry() *Registry { return d.reg }

func (d *Decoder) next(n int, what string) ([]byte, error) {
	if d.Remaining() < n {
		return nil, fmt.Errorf("чтение %s по смещению %d: %w", what, d.off, ErrTruncated)
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b, nil
}

func (d *Decoder) ReadUint8() (uint8, error) {
	b, err := d.next(1, "uint8")
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *Decoder) ReadBool() (bool, error) {
	b, err := d.next(1, "bool")
	if err != nil {
		return false, err
	}
	switch b[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, fmt.Errorf("bool со значением %d: %w", b[0], ErrCorrupt)
}

func (d *Decoder) ReadUint16() (uint16, error) {
	b, err := d.next(2, "uint16")
	if err != nil {
		return 0, err
	}
	return order.Uint16(b), nil
}

func (d *Decoder) ReadUint32() (uint32, error) {
	b, err := d.next(4, "uint32")
	if err != nil {
		return 0, err
	}
	return order.Uint32(b), nil
}

func (d *Decoder) ReadUint64() (uint64, error) {
	b, err := d.next(8, "uint64")
	if err != nil {
		return 0, err
	}
	return order.Uint64(b), nil
}

func (d *Decoder) ReadInt32() (int32, error) {
	v, err := d.ReadUint32()
	return int32(v), err
}

func (d *Decoder) ReadInt64() (int64, error) {
	v, err := d.ReadUint64()
	return int64(v), err
}

// ReadCount читает количество элементов. Каждый элемент занимает хотя бы
// один байт, поэтому счётчик больше остатка потока означает порчу данных.
func (d *Decoder) ReadCount() (int, error) {
	n, err := d.ReadInt32()
	if err != nil {
		return 0, err
	}
	if n < 0 || int(n) > d.Remaining() {
		return 0, fmt.Errorf("количество элементов %d при остатке %d байт: %w", n, d.Remaining(), ErrCorrupt)
	}
	return int(n), nil
}

func (d *Decoder) ReadBytes() ([]byte, error) {
	n, err := d.ReadCount()
	if err != nil {
		return nil, err
	}
	b, err := d.next(n, "bytes")
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

func (d *Decoder) ReadString() (string, error) {
	n, err := d.ReadCount()
	if err != nil {
		return "", err
	}
	b, err := d.next(n, "string")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

const (
	initialBufferSize = 256
	// Буферы больше этого размера не возвращаются в пул
	maxPooledBufferSize = 1 << 20
)

var encoderPool = sync.Pool{
	New: func() any { return &Encoder{buf: make([]byte, 0, initialBufferSize)} },
}

func acquireEncoder(reg *Registry) *Encoder {
	e := encoderPool.Get().(*Encoder)
	e.reg = reg
	return e
}

func releaseEncoder(e *Encoder) {
	if cap(e.buf) > maxPooledBufferSize {
		return
	}
	e.buf = e.buf[:0]
	e.reg = nil
	encoderPool.Put(e)
}
