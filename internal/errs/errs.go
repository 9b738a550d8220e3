// Package errs содержит общие для всех пакетов виды ошибок.
// Конкретные ошибки оборачивают их через fmt.Errorf("...: %w", ...),
// вызывающая сторона проверяет вид через errors.Is.
package errs

import "errors"

var (
	// ErrInvalidArgument - некорректный аргумент (отрицательный размер, nil вместо обязательного значения)
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrIndexOutOfRange - локальная координата за пределами слоя
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrNotImplemented - путь (например, адаптер сериализации) ещё не реализован
	ErrNotImplemented = errors.New("not implemented")
)
