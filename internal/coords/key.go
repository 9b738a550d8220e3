package coords

import (
	"math/bits"

	"github.com/annel0/tilemap/internal/vec"
)

// Key - 64-битный ключ чанка, единственный ключ в карте чанков
type Key int64

// ChunkKey хеширует координаты чанка в ключ.
//
// X перемешивается 32-битным раундом, затем через XOR попадает в старшее слово
// вместе с Z, и результат перемешивается 64-битным раундом. Каждый шаг обратим,
// поэтому разные пары (X, Z) никогда не дают одинаковый ключ.
func ChunkKey(c vec.Vec2) Key {
	h := uint32(c.X)
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16

	k := uint64(h) ^ uint64(uint32(c.Z))<<32

	k *= 0xff51afd7ed558ccd
	k = bits.RotateLeft64(k, 31)
	k ^= k >> 33
	k *= 0xc4ceb9fe1a85ec53
	k = bits.RotateLeft64(k, 27)
	k ^= k >> 29
	return Key(k)
}
