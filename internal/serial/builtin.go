package serial

import "reflect"

// funcAdapter - адаптер версии 1 для примитивов
type funcAdapter[T any] struct {
	enc func(*Encoder, T) error
	dec func(*Decoder) (T, error)
}

func (f funcAdapter[T]) Version() uint8                        { return 1 }
func (f funcAdapter[T]) MinVersion() uint8                     { return 1 }
func (f funcAdapter[T]) Encode(e *Encoder, v T) error          { return f.enc(e, v) }
func (f funcAdapter[T]) Decode(d *Decoder, _ uint8) (T, error) { return f.dec(d) }

// builtins используется, когда в реестре вызывающей стороны нет адаптера.
// Заполняется один раз и после этого только читается.
var builtins = newBuiltins()

func newBuiltins() *Registry {
	r := &Registry{adapters: make(map[reflect.Type]any)}
	Register[uint8](r, funcAdapter[uint8]{
		enc: func(e *Encoder, v uint8) error { e.WriteUint8(v); return nil },
		dec: (*Decoder).ReadUint8,
	})
	Register[bool](r, funcAdapter[bool]{
		enc: func(e *Encoder, v bool) error { e.WriteBool(v); return nil },
		dec: (*Decoder).ReadBool,
	})
	Register[int32](r, funcAdapter[int32]{
		enc: func(e *Encoder, v int32) error { e.WriteInt32(v); return nil },
		dec: (*Decoder).ReadInt32,
	})
	Register[int64](r, funcAdapter[int64]{
		enc: func(e *Encoder, v int64) error { e.WriteInt64(v); return nil },
		dec: (*Decoder).ReadInt64,
	})
	Register[string](r, funcAdapter[string]{
		enc: (*Encoder).WriteString,
		dec: (*Decoder).ReadString,
	})
	Register[[]byte](r, funcAdapter[[]byte]{
		enc: (*Encoder).WriteBytes,
		dec: (*Decoder).ReadBytes,
	})
	return r
}
