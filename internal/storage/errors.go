package storage

import "errors"

var (
	// ErrNotFound - карта или чанк отсутствуют в хранилище
	ErrNotFound = errors.New("not found")

	// ErrChecksum - контрольная сумма блоба не совпала
	ErrChecksum = errors.New("blob checksum mismatch")

	// ErrClosed - хранилище уже закрыто
	ErrClosed = errors.New("хранилище не готово")
)
