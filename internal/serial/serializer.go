package serial

import "fmt"

// ToBinary сериализует v в новый срез байт.
// Адаптер для T берётся из reg, при его отсутствии - встроенный.
// Буфер берётся из пула и возвращается туда на любом пути выхода.
func ToBinary[T any](v T, reg *Registry) ([]byte, error) {
	e := acquireEncoder(reg)
	defer releaseEncoder(e)

	if err := Encode(e, v); err != nil {
		return nil, err
	}

	out := make([]byte, e.Len())
	copy(out, e.Bytes())
	return out, nil
}

// FromBinary восстанавливает значение T из data.
// Любая ошибка прерывает чтение целиком, частичный результат не возвращается.
func FromBinary[T any](data []byte, reg *Registry) (T, error) {
	var zero T
	d := NewDecoder(data, reg)

	v, err := Decode[T](d)
	if err != nil {
		return zero, err
	}
	if d.Remaining() != 0 {
		return zero, fmt.Errorf("%s: %d лишних байт после значения: %w", typeName[T](), d.Remaining(), ErrCorrupt)
	}
	return v, nil
}
