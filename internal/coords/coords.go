// Package coords переводит координаты между пространствами сетки, чанков
// и слоёв чанка. Все функции чистые и не имеют состояния.
package coords

import (
	"fmt"
	"math"

	"github.com/annel0/tilemap/internal/errs"
	"github.com/annel0/tilemap/internal/vec"
)

// MinChunkSize - минимальный размер чанка по X и Z
const MinChunkSize int32 = 2

// NormalizeChunkSize проверяет размер чанка и поднимает компоненты меньше
// MinChunkSize до минимума. Отрицательные компоненты - ошибка.
func NormalizeChunkSize(size vec.Vec2) (vec.Vec2, error) {
	if size.X < 0 || size.Z < 0 {
		return vec.Vec2{}, fmt.Errorf("размер чанка %v: %w", size, errs.ErrInvalidArgument)
	}
	return clampSize(size), nil
}

func clampSize(size vec.Vec2) vec.Vec2 {
	if size.X < MinChunkSize {
		size.X = MinChunkSize
	}
	if size.Z < MinChunkSize {
		size.Z = MinChunkSize
	}
	return size
}

// floorDiv делит с округлением вниз. Для отрицательных g обычное целочисленное
// деление округляет к нулю, поэтому -1/2 дало бы чанк 0 вместо -1.
func floorDiv(g, size int32) int32 {
	if g < 0 {
		// -(g+1) вместо -g-1: не переполняется на MinInt32
		return -((-(g + 1))/size + 1)
	}
	return g / size
}

// GridToChunkCoord возвращает координаты чанка, содержащего клетку grid
func GridToChunkCoord(grid vec.Vec3, size vec.Vec2) vec.Vec2 {
	size = clampSize(size)
	return vec.Vec2{
		X: floorDiv(grid.X, size.X),
		Z: floorDiv(grid.Z, size.Z),
	}
}

// GridToLayerCoord возвращает локальные координаты клетки внутри её чанка.
// X и Z всегда в [0, size), Y не меняется.
func GridToLayerCoord(grid vec.Vec3, size vec.Vec2) vec.Vec3 {
	size = clampSize(size)
	chunk := GridToChunkCoord(grid, size)
	return vec.Vec3{
		X: int32(int64(grid.X) - int64(chunk.X)*int64(size.X)),
		Y: grid.Y,
		Z: int32(int64(grid.Z) - int64(chunk.Z)*int64(size.Z)),
	}
}

// ClampHeight ограничивает высоту локальной координаты снизу нулём
func ClampHeight(layer vec.Vec3) vec.Vec3 {
	if layer.Y < 0 {
		layer.Y = 0
	}
	return layer
}

// LayerToGridCoord - обратное преобразование к GridToChunkCoord/GridToLayerCoord
func LayerToGridCoord(layer vec.Vec3, chunk vec.Vec2, size vec.Vec2) vec.Vec3 {
	size = clampSize(size)
	return vec.Vec3{
		X: chunk.X*size.X + layer.X,
		Y: layer.Y,
		Z: chunk.Z*size.Z + layer.Z,
	}
}

// Resolve возвращает координаты чанка, его ключ и локальные координаты клетки
func Resolve(grid vec.Vec3, size vec.Vec2) (vec.Vec2, Key, vec.Vec3) {
	chunk := GridToChunkCoord(grid, size)
	return chunk, ChunkKey(chunk), GridToLayerCoord(grid, size)
}

// ToIndex2D переводит (x, z) в индекс плоского массива (построчно по z).
// Ширина меньше 1 считается равной 1.
func ToIndex2D(x, z, width int32) int {
	return int(z)*rowWidth(width) + int(x)
}

// ToGridCoord - обратное к ToIndex2D
func ToGridCoord(index int, width int32, y int32) vec.Vec3 {
	w := rowWidth(width)
	return vec.Vec3{
		X: int32(index % w),
		Y: y,
		Z: int32(index / w),
	}
}

func rowWidth(width int32) int {
	if width < 1 {
		return 1
	}
	return int(width)
}

// WorldPosToGridCoord переводит мировую позицию в клетку сетки.
// Используется floor, а не усечение: x = -0.1 попадает в клетку -1.
// Неположительные компоненты cellSize считаются равными 1.
func WorldPosToGridCoord(pos vec.Vec3Float, cellSize vec.Vec3Float) vec.Vec3 {
	return vec.Vec3{
		X: floorCell(pos.X, cellSize.X),
		Y: floorCell(pos.Y, cellSize.Y),
		Z: floorCell(pos.Z, cellSize.Z),
	}
}

func floorCell(p, cell float64) int32 {
	if cell <= 0 {
		cell = 1
	}
	return int32(math.Floor(p / cell))
}
