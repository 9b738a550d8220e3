// Package tile описывает значение клетки и плоский слой клеток чанка.
package tile

import "strings"

// Flags - набор битовых флагов клетки.
// Группа направления (North/East/South/West) и группа отражений (FlipX/FlipZ)
// не пересекаются. Из группы направления канонически выставлен один флаг.
type Flags uint8

const (
	North Flags = 1 << iota
	East
	South
	West
	FlipX
	FlipZ
)

const (
	DirectionMask = North | East | South | West
	FlipMask      = FlipX | FlipZ
	// DefaultDirection используется, когда ни один флаг направления не выставлен
	DefaultDirection = North
)

// Has проверяет, выставлены ли все флаги f
func (fl Flags) Has(f Flags) bool {
	return fl&f == f
}

// Rotation возвращает номер поворота 0..3 (North, East, South, West)
// для канонического направления.
func (fl Flags) Rotation() uint8 {
	switch canonicalDirection(fl) {
	case East:
		return 1
	case South:
		return 2
	case West:
		return 3
	}
	return 0
}

// DirectionFromRotation - обратное к Rotation. Для r > 3 ok == false.
func DirectionFromRotation(r uint8) (dir Flags, ok bool) {
	if r > 3 {
		return 0, false
	}
	return North << r, true
}

var flagNames = []struct {
	flag Flags
	name string
}{
	{North, "north"}, {East, "east"}, {South, "south"}, {West, "west"},
	{FlipX, "flip_x"}, {FlipZ, "flip_z"},
}

// String возвращает флаги в виде "east|flip_x"
func (fl Flags) String() string {
	if fl == 0 {
		return "none"
	}
	parts := make([]string, 0, 3)
	for _, fn := range flagNames {
		if fl&fn.flag != 0 {
			parts = append(parts, fn.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseFlags разбирает строку в формате String
func ParseFlags(s string) (Flags, bool) {
	if s == "" || s == "none" {
		return 0, true
	}
	var fl Flags
	for _, part := range strings.Split(s, "|") {
		found := false
		for _, fn := range flagNames {
			if fn.name == strings.TrimSpace(part) {
				fl |= fn.flag
				found = true
				break
			}
		}
		if !found {
			return 0, false
		}
	}
	return fl, true
}

// canonicalDirection оставляет младший выставленный флаг направления
func canonicalDirection(fl Flags) Flags {
	d := fl & DirectionMask
	if d == 0 {
		return DefaultDirection
	}
	return d & -d
}

// Cell - значение, хранимое в одной клетке сетки.
// Index 0 - пусто, отрицательный индекс недопустим.
type Cell struct {
	Index int32
	Flags Flags
}

// Empty - пустая клетка
var Empty = Cell{}

// Occupied возвращает true для клеток, учитываемых в счётчике непустых
func (c Cell) Occupied() bool {
	return c.Index > 0
}

// IsEmpty возвращает true для пустой или недопустимой клетки
func (c Cell) IsEmpty() bool {
	return c.Index <= 0
}

// IsValid возвращает false для отрицательного индекса
func (c Cell) IsValid() bool {
	return c.Index >= 0
}

// Direction возвращает флаг направления клетки, North если не выставлен
func (c Cell) Direction() Flags {
	return canonicalDirection(c.Flags)
}

// WithDirection возвращает копию клетки с заменённым направлением.
// Флаги отражения сохраняются.
func (c Cell) WithDirection(dir Flags) Cell {
	c.Flags = c.Flags&^DirectionMask | canonicalDirection(dir)
	return c
}

// WithFlip возвращает копию клетки с заменёнными флагами отражения
func (c Cell) WithFlip(flip Flags) Cell {
	c.Flags = c.Flags&^FlipMask | flip&FlipMask
	return c
}
