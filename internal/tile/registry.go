package tile

import (
	"fmt"
	"sort"

	"github.com/annel0/tilemap/internal/errs"
)

// Definition описывает тип тайла, на который ссылается Cell.Index
type Definition struct {
	Index int32
	Name  string
	Solid bool
}

// Registry сопоставляет индексы тайлов их описаниям.
// Реестр передаётся явно тем, кому он нужен, глобального экземпляра нет.
type Registry struct {
	byIndex map[int32]Definition
	byName  map[string]int32
}

// NewRegistry создаёт пустой реестр
func NewRegistry() *Registry {
	return &Registry{
		byIndex: make(map[int32]Definition),
		byName:  make(map[string]int32),
	}
}

// Индексы базовых тайлов
const (
	StoneIndex int32 = iota + 1
	GrassIndex
	WaterIndex
	SandIndex
	DirtIndex
)

// DefaultRegistry возвращает реестр с базовым набором тайлов
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, def := range []Definition{
		{Index: StoneIndex, Name: "stone", Solid: true},
		{Index: GrassIndex, Name: "grass", Solid: true},
		{Index: WaterIndex, Name: "water"},
		{Index: SandIndex, Name: "sand", Solid: true},
		{Index: DirtIndex, Name: "dirt", Solid: true},
	} {
		// индексы и имена уникальны
		_ = r.Register(def)
	}
	return r
}

// Register добавляет описание тайла. Индекс должен быть положительным,
// индекс и имя - уникальными.
func (r *Registry) Register(def Definition) error {
	if def.Index <= 0 || def.Name == "" {
		return fmt.Errorf("тайл %d %q: %w", def.Index, def.Name, errs.ErrInvalidArgument)
	}
	if _, exists := r.byIndex[def.Index]; exists {
		return fmt.Errorf("тайл с индексом %d уже зарегистрирован: %w", def.Index, errs.ErrInvalidArgument)
	}
	if _, exists := r.byName[def.Name]; exists {
		return fmt.Errorf("тайл %q уже зарегистрирован: %w", def.Name, errs.ErrInvalidArgument)
	}
	r.byIndex[def.Index] = def
	r.byName[def.Name] = def.Index
	return nil
}

// Get возвращает описание по индексу
func (r *Registry) Get(index int32) (Definition, bool) {
	def, ok := r.byIndex[index]
	return def, ok
}

// Lookup возвращает описание по имени
func (r *Registry) Lookup(name string) (Definition, bool) {
	idx, ok := r.byName[name]
	if !ok {
		return Definition{}, false
	}
	return r.byIndex[idx], true
}

// IsValid проверяет, зарегистрирован ли индекс. Пустая клетка допустима всегда.
func (r *Registry) IsValid(index int32) bool {
	if index == 0 {
		return true
	}
	_, ok := r.byIndex[index]
	return ok
}

// Definitions возвращает описания, упорядоченные по индексу
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.byIndex))
	for _, def := range r.byIndex {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Index < defs[j].Index })
	return defs
}
