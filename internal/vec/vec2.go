package vec

import "fmt"

// Vec2 представляет 2D координаты на плоскости XZ.
// Используется для координат чанка и размера чанка (X - ширина, Z - глубина).
type Vec2 struct {
	X, Z int32
}

// Add складывает два вектора
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Z: v.Z + other.Z}
}

// Mul покомпонентно умножает векторы
func (v Vec2) Mul(other Vec2) Vec2 {
	return Vec2{X: v.X * other.X, Z: v.Z * other.Z}
}

// Area возвращает произведение компонент (количество клеток в прямоугольнике)
func (v Vec2) Area() int {
	return int(v.X) * int(v.Z)
}

// String возвращает строковое представление вектора
func (v Vec2) String() string {
	return fmt.Sprintf("(%d,%d)", v.X, v.Z)
}
