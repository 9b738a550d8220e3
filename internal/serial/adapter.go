// Package serial реализует версионируемую бинарную сериализацию.
//
// Каждый адаптер первым байтом пишет свою версию формата. При чтении версия
// сравнивается с диапазоном адаптера [MinVersion, Version]: более новые данные
// отвергаются, более старые читаются отдельным путём для каждой версии.
//
// Формат значения: [version u8][payload]. Составные значения:
// [count i32][element]*count, каждый элемент со своим байтом версии.
package serial

import (
	"fmt"
	"reflect"

	"github.com/annel0/tilemap/internal/errs"
)

// Adapter сериализует значения типа T.
// Encode и Decode работают только с полезной нагрузкой, байт версии
// пишут и проверяют EncodeWith/DecodeWith.
type Adapter[T any] interface {
	// Version - версия формата, которую адаптер пишет
	Version() uint8
	// MinVersion - самая старая версия, которую адаптер ещё умеет читать
	MinVersion() uint8
	Encode(e *Encoder, v T) error
	// Decode читает полезную нагрузку, записанную версией version
	Decode(d *Decoder, version uint8) (T, error)
}

// Registry хранит адаптеры по типу значения.
// Нулевой или nil реестр допустим: используются только встроенные адаптеры.
type Registry struct {
	adapters map[reflect.Type]any
}

// NewRegistry создаёт пустой реестр
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[reflect.Type]any)}
}

// Register добавляет или заменяет адаптер для типа T
func Register[T any](r *Registry, a Adapter[T]) {
	if r.adapters == nil {
		r.adapters = make(map[reflect.Type]any)
	}
	r.adapters[reflect.TypeFor[T]()] = a
}

// Clone возвращает копию реестра, в которой можно переопределять адаптеры
func (r *Registry) Clone() *Registry {
	c := NewRegistry()
	if r == nil {
		return c
	}
	for t, a := range r.adapters {
		c.adapters[t] = a
	}
	return c
}

// Len возвращает количество зарегистрированных адаптеров
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.adapters)
}

// Lookup ищет адаптер для T в реестре, затем среди встроенных
func Lookup[T any](r *Registry) (Adapter[T], bool) {
	t := reflect.TypeFor[T]()
	if r != nil {
		if a, ok := r.adapters[t].(Adapter[T]); ok {
			return a, true
		}
	}
	a, ok := builtins.adapters[t].(Adapter[T])
	return a, ok
}

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}

// AdapterFor возвращает адаптер для T или ошибку ErrNoAdapter
func AdapterFor[T any](r *Registry) (Adapter[T], error) {
	a, ok := Lookup[T](r)
	if !ok {
		return nil, fmt.Errorf("%s: %w", typeName[T](), ErrNoAdapter)
	}
	return a, nil
}

// CheckVersion проверяет, может ли адаптер прочитать данные версии serialized
func CheckVersion[T any](a Adapter[T], serialized uint8) error {
	switch {
	case serialized > a.Version():
		return &VersionError{Type: typeName[T](), Kind: FutureVersion, Serialized: serialized, Current: a.Version(), Min: a.MinVersion()}
	case serialized < a.MinVersion():
		return &VersionError{Type: typeName[T](), Kind: LegacyUnsupported, Serialized: serialized, Current: a.Version(), Min: a.MinVersion()}
	}
	return nil
}

// EncodeWith пишет версию адаптера и значение
func EncodeWith[T any](e *Encoder, a Adapter[T], v T) error {
	e.WriteUint8(a.Version())
	if err := a.Encode(e, v); err != nil {
		return fmt.Errorf("%s v%d: %w", typeName[T](), a.Version(), err)
	}
	return nil
}

// DecodeWith читает версию, проверяет её и восстанавливает значение
func DecodeWith[T any](d *Decoder, a Adapter[T]) (T, error) {
	var zero T
	version, err := d.ReadUint8()
	if err != nil {
		return zero, fmt.Errorf("%s: %w", typeName[T](), err)
	}
	if err := CheckVersion(a, version); err != nil {
		return zero, err
	}
	v, err := a.Decode(d, version)
	if err != nil {
		return zero, fmt.Errorf("%s v%d: %w", typeName[T](), version, err)
	}
	return v, nil
}

// Encode пишет v адаптером, найденным в реестре кодировщика
func Encode[T any](e *Encoder, v T) error {
	a, err := AdapterFor[T](e.reg)
	if err != nil {
		return err
	}
	return EncodeWith(e, a, v)
}

// Decode читает значение T адаптером из реестра декодера
func Decode[T any](d *Decoder) (T, error) {
	a, err := AdapterFor[T](d.reg)
	if err != nil {
		var zero T
		return zero, err
	}
	return DecodeWith(d, a)
}

// EncodeSlice пишет [count i32] и затем каждый элемент
func EncodeSlice[T any](e *Encoder, items []T) error {
	a, err := AdapterFor[T](e.reg)
	if err != nil {
		return err
	}
	if err := e.WriteCount(len(items)); err != nil {
		return err
	}
	for i, item := range items {
		if err := EncodeWith(e, a, item); err != nil {
			return fmt.Errorf("элемент %d: %w", i, err)
		}
	}
	return nil
}

// DecodeSlice - обратная операция к EncodeSlice
func DecodeSlice[T any](d *Decoder) ([]T, error) {
	a, err := AdapterFor[T](d.reg)
	if err != nil {
		return nil, err
	}
	n, err := d.ReadCount()
	if err != nil {
		return nil, err
	}
	items := make([]T, 0, n)
	for i := 0; i < n; i++ {
		item, err := DecodeWith(d, a)
		if err != nil {
			return nil, fmt.Errorf("элемент %d: %w", i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

type notImplemented[T any] struct {
	version uint8
}

// NotImplemented возвращает адаптер-заглушку: любая операция
// завершается ошибкой errs.ErrNotImplemented.
func NotImplemented[T any](version uint8) Adapter[T] {
	return notImplemented[T]{version: version}
}

func (n notImplemented[T]) Version() uint8    { return n.version }
func (n notImplemented[T]) MinVersion() uint8 { return n.version }

func (n notImplemented[T]) Encode(*Encoder, T) error {
	return fmt.Errorf("запись %s: %w", typeName[T](), errs.ErrNotImplemented)
}

func (n notImplemented[T]) Decode(*Decoder, uint8) (T, error) {
	var zero T
	return zero, fmt.Errorf("чтение %s: %w", typeName[T](), errs.ErrNotImplemented)
}
