package vec

import "fmt"

// Vec3 представляет трехмерный вектор с целочисленными координатами.
// Y - высота, X и Z - горизонтальная плоскость.
type Vec3 struct {
	X int32
	Y int32
	Z int32
}

// Vec3Float представляет трехмерный вектор с плавающими координатами
// (позиция в мировом пространстве)
type Vec3Float struct {
	X float64
	Y float64
	Z float64
}

// XZ возвращает горизонтальную проекцию вектора
func (v Vec3) XZ() Vec2 {
	return Vec2{X: v.X, Z: v.Z}
}

// Add складывает два вектора
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// String возвращает строковое представление вектора
func (v Vec3) String() string {
	return fmt.Sprintf("(%d,%d,%d)", v.X, v.Y, v.Z)
}
