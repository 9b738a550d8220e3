package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/annel0/tilemap/internal/coords"
	"github.com/annel0/tilemap/internal/gen"
	"github.com/annel0/tilemap/internal/logging"
	"github.com/annel0/tilemap/internal/snapshot"
	"github.com/annel0/tilemap/internal/storage"
	"github.com/annel0/tilemap/internal/tile"
	"github.com/annel0/tilemap/internal/vec"
	"github.com/annel0/tilemap/internal/world"
)

// pos возвращает клетку сетки из -x/-y/-z или из мировой позиции -at
func (a *app) pos(o *options) (vec.Vec3, error) {
	if o.at == "" {
		return vec.Vec3{X: int32(o.x), Y: int32(o.y), Z: int32(o.z)}, nil
	}
	parts := strings.Split(o.at, ",")
	if len(parts) != 3 {
		return vec.Vec3{}, fmt.Errorf("-at %q: ожидается x,y,z", o.at)
	}
	var p [3]float64
	for i, s := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return vec.Vec3{}, fmt.Errorf("-at %q: %w", o.at, err)
		}
		p[i] = v
	}
	cell := a.cfg.Map.CellSize
	return coords.WorldPosToGridCoord(
		vec.Vec3Float{X: p[0], Y: p[1], Z: p[2]},
		vec.Vec3Float{X: cell, Y: cell, Z: cell},
	), nil
}

// loadOrCreate загружает карту или создаёт пустую с размером чанка из конфигурации
func (a *app) loadOrCreate(ctx context.Context, name string) (*world.TileMap, error) {
	m, err := a.repo.LoadMap(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		m, err = world.NewTileMap(vec.Vec2{X: a.cfg.Map.ChunkWidth, Z: a.cfg.Map.ChunkDepth})
	}
	if err != nil {
		return nil, err
	}
	m.SetClampHeight(a.cfg.Map.ClampHeight)
	return m, nil
}

func (a *app) generate(ctx context.Context, o *options) error {
	m, err := a.loadOrCreate(ctx, o.mapName)
	if err != nil {
		return err
	}
	g := gen.NewGenerator(o.seed)
	g.Relief = int32(o.relief)
	if err := g.Palette.Validate(tile.DefaultRegistry()); err != nil {
		return err
	}

	from := vec.Vec2{X: int32(o.x), Z: int32(o.z)}
	to := from.Add(vec.Vec2{X: int32(o.width), Z: int32(o.depth)})
	n, err := g.Fill(m, from, to, int32(o.y))
	if err != nil {
		return err
	}
	if err := a.repo.SaveMap(ctx, o.mapName, m); err != nil {
		return err
	}
	logging.Info("карта %s: сгенерировано %d клеток в %v..%v", o.mapName, n, from, to)
	fmt.Fprintf(a.out, "generated %d cells, %d chunks\n", n, m.ChunkCount())
	return nil
}

func (a *app) info(ctx context.Context, o *options) error {
	names, err := a.repo.ListMaps(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		m, err := a.repo.LoadMap(ctx, name)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s: chunk %v, %d chunks, %d cells\n", name, m.ChunkSize(), m.ChunkCount(), m.TotalCellCount())
		if name != o.mapName {
			continue
		}
		for _, key := range m.Store().SortedKeys() {
			c, _ := m.Store().TryGetChunk(key)
			fmt.Fprintf(a.out, "  chunk %v key %d: %d cells, heights %v\n", c.Coord(), key, c.CellCount(), c.Heights())
		}
	}
	return nil
}

func (a *app) get(ctx context.Context, o *options) error {
	m, err := a.loadOrCreate(ctx, o.mapName)
	if err != nil {
		return err
	}
	pos, err := a.pos(o)
	if err != nil {
		return err
	}
	c := m.GetCell(pos)
	reg := tile.DefaultRegistry()
	name := "empty"
	if def, ok := reg.Get(c.Index); ok {
		name = def.Name
	} else if c.Index != 0 {
		name = "unknown"
	}
	fmt.Fprintf(a.out, "%v: index %d (%s), flags %v, direction %v\n", pos, c.Index, name, c.Flags, c.Direction())
	return nil
}

// set меняет клетку и сохраняет снимок её чанка до изменения
func (a *app) set(ctx context.Context, o *options) error {
	flags, ok := tile.ParseFlags(o.flags)
	if !ok {
		return fmt.Errorf("неизвестные флаги %q", o.flags)
	}
	cell := tile.Cell{Index: int32(o.index), Flags: flags}
	if !tile.DefaultRegistry().IsValid(cell.Index) {
		return fmt.Errorf("тайл %d не зарегистрирован", cell.Index)
	}

	m, err := a.loadOrCreate(ctx, o.mapName)
	if err != nil {
		return err
	}
	pos, err := a.pos(o)
	if err != nil {
		return err
	}
	chunk := coords.GridToChunkCoord(pos, m.ChunkSize())
	group := snapshot.NewGroupID()
	if err := a.history.CaptureChunkAt(ctx, group, m, chunk); err != nil {
		return err
	}

	if err := m.SetCell(pos, cell); err != nil {
		return err
	}
	if err := a.repo.SaveMap(ctx, o.mapName, m); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%v = %d %v\n", pos, cell.Index, cell.Flags)
	fmt.Fprintf(a.out, "snapshot %s\n", group)
	return nil
}

func (a *app) undo(ctx context.Context, o *options) error {
	if o.group == "" {
		return errors.New("не задан -group")
	}
	m, err := a.loadOrCreate(ctx, o.mapName)
	if err != nil {
		return err
	}
	if err := a.history.RestoreChunk(ctx, o.group, m); err != nil {
		return err
	}
	if err := a.repo.SaveMap(ctx, o.mapName, m); err != nil {
		return err
	}
	if err := a.history.Discard(ctx, o.group); err != nil {
		logging.Warn("снимок %s не удалён: %v", o.group, err)
	}
	fmt.Fprintf(a.out, "restored %s\n", o.group)
	return nil
}

func (a *app) export(ctx context.Context, o *options) error {
	if o.file == "" {
		return errors.New("не задан -file")
	}
	m, err := a.repo.LoadMap(ctx, o.mapName)
	if err != nil {
		return err
	}
	data, err := world.Marshal(m)
	if err != nil {
		return err
	}
	compression, err := storage.ParseCompression(a.cfg.Storage.Compression)
	if err != nil {
		return err
	}
	if err := storage.WriteBlobFile(o.file, data, compression); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "exported %s to %s (%d bytes)\n", o.mapName, o.file, len(data))
	return nil
}

func (a *app) importMap(ctx context.Context, o *options) error {
	if o.file == "" {
		return errors.New("не задан -file")
	}
	data, err := storage.ReadBlobFile(o.file)
	if err != nil {
		return err
	}
	m, err := world.Unmarshal(data)
	if err != nil {
		return fmt.Errorf("импорт %s: %w", o.file, err)
	}
	if err := a.repo.SaveMap(ctx, o.mapName, m); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "imported %s: %d chunks, %d cells\n", o.mapName, m.ChunkCount(), m.TotalCellCount())
	return nil
}

func (a *app) removeChunk(ctx context.Context, o *options) error {
	m, err := a.repo.LoadMap(ctx, o.mapName)
	if err != nil {
		return err
	}
	pos, err := a.pos(o)
	if err != nil {
		return err
	}
	chunk := coords.GridToChunkCoord(pos, m.ChunkSize())
	if err := a.repo.DeleteChunk(ctx, o.mapName, coords.ChunkKey(chunk)); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "removed chunk %v\n", chunk)
	return nil
}
