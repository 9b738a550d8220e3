// Package gen заполняет области карты ландшафтом по шуму Перлина.
package gen

import (
	"fmt"
	"math"
	"sort"

	"github.com/annel0/tilemap/internal/errs"
	"github.com/annel0/tilemap/internal/tile"
	"github.com/annel0/tilemap/internal/vec"
	"github.com/annel0/tilemap/internal/world"
	"github.com/aquilax/go-perlin"
)

// Band сопоставляет диапазон высоты шума тайлу: значения до Max включительно
type Band struct {
	Max   float64
	Index int32
}

// Palette - полосы высот по возрастанию Max
type Palette []Band

// Константы высот для генерации
const (
	ShallowWaterMax = 0.30 // Ниже - вода
	BeachMax        = 0.38 // Ниже - песок
	PlainsMax       = 0.60 // Ниже - трава
	MountainStart   = 0.80 // Выше - камень
)

// DefaultPalette возвращает палитру для базового набора тайлов
func DefaultPalette() Palette {
	return Palette{
		{Max: ShallowWaterMax, Index: tile.WaterIndex},
		{Max: BeachMax, Index: tile.SandIndex},
		{Max: PlainsMax, Index: tile.GrassIndex},
		{Max: MountainStart, Index: tile.DirtIndex},
		{Max: 1, Index: tile.StoneIndex},
	}
}

// Pick возвращает тайл для значения шума
func (p Palette) Pick(v float64) int32 {
	i := sort.Search(len(p), func(i int) bool { return v <= p[i].Max })
	if i == len(p) {
		i = len(p) - 1
	}
	return p[i].Index
}

// Validate проверяет порядок полос и регистрацию тайлов
func (p Palette) Validate(reg *tile.Registry) error {
	if len(p) == 0 {
		return fmt.Errorf("пустая палитра: %w", errs.ErrInvalidArgument)
	}
	for i, b := range p {
		if i > 0 && b.Max <= p[i-1].Max {
			return fmt.Errorf("полоса %d: границы не возрастают: %w", i, errs.ErrInvalidArgument)
		}
		if reg != nil && (b.Index <= 0 || !reg.IsValid(b.Index)) {
			return fmt.Errorf("полоса %d: тайл %d не зарегистрирован: %w", i, b.Index, errs.ErrInvalidArgument)
		}
	}
	return nil
}

// Параметры шума Перлина
const (
	noiseAlpha   = 2.0 // Сглаживание шума
	noiseBeta    = 2.0 // Частота шума
	noiseOctaves = 3   // Количество октав
)

// Generator генерирует ландшафт. У каждого генератора свой экземпляр шума,
// он пересоздаётся при смене Seed. Генератор не потокобезопасен.
type Generator struct {
	Seed    int64
	Scale   float64 // Масштаб шума (высота)
	Palette Palette
	// Relief - высота столбца при значении шума 1. При Relief > 0 под
	// поверхностью столбец заполняется тайлом Filler.
	Relief int32
	Filler int32

	noise     *perlin.Perlin
	noiseSeed int64
}

// NewGenerator создаёт генератор с палитрой по умолчанию
func NewGenerator(seed int64) *Generator {
	return &Generator{
		Seed:    seed,
		Scale:   0.05,
		Palette: DefaultPalette(),
		Filler:  tile.StoneIndex,
	}
}

func (g *Generator) source() *perlin.Perlin {
	if g.noise == nil || g.noiseSeed != g.Seed {
		g.noise = perlin.NewPerlin(noiseAlpha, noiseBeta, noiseOctaves, g.Seed)
		g.noiseSeed = g.Seed
	}
	return g.noise
}

// Noise возвращает значение шума для клетки (от 0 до 1)
func (g *Generator) Noise(x, z int32) float64 {
	v := g.source().Noise2D(float64(x)*g.Scale, float64(z)*g.Scale)
	return math.Min(math.Max((v+1)/2, 0), 1)
}

// Column возвращает записи одного столбца с основанием на высоте base
func (g *Generator) Column(x, z, base int32) []world.CellWrite {
	v := g.Noise(x, z)
	surface := tile.Cell{Index: g.Palette.Pick(v)}
	if g.Relief <= 0 {
		return []world.CellWrite{{Pos: vec.Vec3{X: x, Y: base, Z: z}, Cell: surface}}
	}
	h := int32(v * float64(g.Relief))
	out := make([]world.CellWrite, 0, h+1)
	for y := int32(0); y < h; y++ {
		out = append(out, world.CellWrite{Pos: vec.Vec3{X: x, Y: base + y, Z: z}, Cell: tile.Cell{Index: g.Filler}})
	}
	return append(out, world.CellWrite{Pos: vec.Vec3{X: x, Y: base + h, Z: z}, Cell: surface})
}

// Fill заполняет прямоугольник [from, to) по X/Z с основанием на высоте base.
// Возвращает количество записанных клеток.
func (g *Generator) Fill(m *world.TileMap, from, to vec.Vec2, base int32) (int, error) {
	if to.X < from.X || to.Z < from.Z {
		return 0, fmt.Errorf("область %v..%v: %w", from, to, errs.ErrInvalidArgument)
	}
	if err := g.Palette.Validate(nil); err != nil {
		return 0, err
	}
	writes := make([]world.CellWrite, 0, int(to.X-from.X)*int(to.Z-from.Z))
	for z := from.Z; z < to.Z; z++ {
		for x := from.X; x < to.X; x++ {
			writes = append(writes, g.Column(x, z, base)...)
		}
	}
	if err := m.SetCells(writes); err != nil {
		return 0, fmt.Errorf("генерация %v..%v: %w", from, to, err)
	}
	return len(writes), nil
}
