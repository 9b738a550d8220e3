package serial

import (
	"errors"
	"fmt"
)

var (
	// ErrFutureVersion - данные записаны более новой версией адаптера, чем текущий код
	ErrFutureVersion = errors.New("serialized version is newer than adapter")

	// ErrLegacyVersion - данные записаны версией, которую адаптер больше не читает
	ErrLegacyVersion = errors.New("serialized version is no longer supported")

	// ErrTruncated - поток закончился раньше, чем ожидалось
	ErrTruncated = errors.New("unexpected end of data")

	// ErrCorrupt - данные не соответствуют формату
	ErrCorrupt = errors.New("corrupt data")

	// ErrNoAdapter - для типа не зарегистрирован адаптер и нет встроенного
	ErrNoAdapter = errors.New("no adapter registered")
)

// VersionKind различает два вида ошибки версии
type VersionKind uint8

const (
	FutureVersion VersionKind = iota + 1
	LegacyUnsupported
)

// VersionError возвращается, когда версия в потоке не входит в диапазон адаптера.
// Совпадает с ErrFutureVersion или ErrLegacyVersion через errors.Is.
type VersionError struct {
	Type       string
	Kind       VersionKind
	Serialized uint8
	Current    uint8
	Min        uint8
}

func (e *VersionError) Error() string {
	switch e.Kind {
	case FutureVersion:
		return fmt.Sprintf("%s: версия данных %d новее версии адаптера %d: %v", e.Type, e.Serialized, e.Current, ErrFutureVersion)
	default:
		return fmt.Sprintf("%s: версия данных %d старше минимальной %d: %v", e.Type, e.Serialized, e.Min, ErrLegacyVersion)
	}
}

// Is позволяет сравнивать VersionError с ErrFutureVersion/ErrLegacyVersion
func (e *VersionError) Is(target error) bool {
	switch target {
	case ErrFutureVersion:
		return e.Kind == FutureVersion
	case ErrLegacyVersion:
		return e.Kind == LegacyUnsupported
	}
	return false
}

// UnknownVersion используется адаптером, если версия прошла проверку диапазона,
// но для неё нет пути чтения.
func UnknownVersion(typeName string, version uint8) error {
	return fmt.Errorf("%s: нет пути чтения для версии %d: %w", typeName, version, ErrLegacyVersion)
}
