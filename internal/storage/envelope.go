package storage

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/annel0/tilemap/internal/serial"
	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
)

// Compression - способ упаковки полезной нагрузки блоба
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionZstd
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression разбирает имя из конфигурации
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(s) {
	case "", "none", "raw":
		return CompressionNone, nil
	case "zstd":
		return CompressionZstd, nil
	}
	return CompressionNone, fmt.Errorf("неизвестное сжатие %q", s)
}

// Формат блоба: [magic "TMB1"][compression u8][xxhash64 u64 LE][body].
// Контрольная сумма считается по body в том виде, как он хранится.
var magic = [4]byte{'T', 'M', 'B', '1'}

const headerSize = len(magic) + 1 + 8

// maxBlobSize ограничивает размер распакованной нагрузки
const maxBlobSize = 1 << 30

type codec struct {
	compression  Compression
	compressor   *zstd.Encoder
	decompressor *zstd.Decoder
}

func newCodec(c Compression) (*codec, error) {
	if c > CompressionZstd {
		return nil, fmt.Errorf("сжатие %v не поддерживается", c)
	}
	cd := &codec{compression: c}
	var err error
	if c == CompressionZstd {
		cd.compressor, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("создание zstd компрессора: %w", err)
		}
	}
	// читать нужно уметь любые блобы, независимо от настройки записи
	cd.decompressor, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxBlobSize))
	if err != nil {
		cd.close()
		return nil, fmt.Errorf("создание zstd декомпрессора: %w", err)
	}
	return cd, nil
}

func (c *codec) close() {
	if c.compressor != nil {
		c.compressor.Close()
	}
	if c.decompressor != nil {
		c.decompressor.Close()
	}
}

// seal упаковывает полезную нагрузку в блоб
func (c *codec) seal(payload []byte) []byte {
	body := payload
	if c.compression == CompressionZstd {
		body = c.compressor.EncodeAll(payload, make([]byte, 0, len(payload)/2+64))
	}
	blob := make([]byte, headerSize, headerSize+len(body))
	copy(blob, magic[:])
	blob[len(magic)] = byte(c.compression)
	binary.LittleEndian.PutUint64(blob[len(magic)+1:], xxhash.Sum64(body))
	return append(blob, body...)
}

// open проверяет заголовок и контрольную сумму и возвращает полезную нагрузку
func (c *codec) open(blob []byte) ([]byte, error) {
	if len(blob) < headerSize || [4]byte(blob[:4]) != magic {
		return nil, fmt.Errorf("заголовок блоба: %w", serial.ErrCorrupt)
	}
	compression := Compression(blob[len(magic)])
	sum := binary.LittleEndian.Uint64(blob[len(magic)+1:])
	body := blob[headerSize:]
	if xxhash.Sum64(body) != sum {
		return nil, ErrChecksum
	}
	switch compression {
	case CompressionNone:
		return body, nil
	case CompressionZstd:
		payload, err := c.decompressor.DecodeAll(body, nil)
		if err != nil {
			return nil, fmt.Errorf("распаковка zstd: %w: %w", serial.ErrCorrupt, err)
		}
		return payload, nil
	}
	return nil, fmt.Errorf("неизвестное сжатие %d: %w", compression, serial.ErrCorrupt)
}

// WriteBlobFile записывает сериализованные данные в файл в формате блоба
func WriteBlobFile(path string, payload []byte, c Compression) error {
	cd, err := newCodec(c)
	if err != nil {
		return err
	}
	defer cd.close()

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("создание директории %s: %w", dir, err)
		}
	}
	// пишем во временный файл, чтобы не оставить обрезанный блоб
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, cd.seal(payload), 0644); err != nil {
		return fmt.Errorf("запись блоба %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("запись блоба %s: %w", path, err)
	}
	return nil
}

// ReadBlobFile читает файл блоба и возвращает полезную нагрузку
func ReadBlobFile(path string) ([]byte, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение блоба %s: %w", path, err)
	}
	cd, err := newCodec(CompressionNone)
	if err != nil {
		return nil, err
	}
	defer cd.close()

	payload, err := cd.open(blob)
	if err != nil {
		return nil, fmt.Errorf("блоб %s: %w", path, err)
	}
	return payload, nil
}
