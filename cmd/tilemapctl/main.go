package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/annel0/tilemap/internal/config"
	"github.com/annel0/tilemap/internal/logging"
	"github.com/annel0/tilemap/internal/metrics"
	"github.com/annel0/tilemap/internal/snapshot"
	"github.com/annel0/tilemap/internal/storage"
)

const defaultMapName = "default"

// options - разобранные флаги командной строки
type options struct {
	configPath string
	command    string
	mapName    string
	x, y, z    int
	at         string
	index      int
	flags      string
	seed       int64
	width      int
	depth      int
	relief     int
	file       string
	group      string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("tilemapctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{}
	fs.StringVar(&o.configPath, "config", "", "YAML config path (or TILEMAP_CONFIG)")
	fs.StringVar(&o.command, "cmd", "info", "Command: gen, info, get, set, undo, export, import, rm-chunk")
	fs.StringVar(&o.mapName, "map", defaultMapName, "Map name")
	fs.IntVar(&o.x, "x", 0, "Grid X")
	fs.IntVar(&o.y, "y", 0, "Grid Y (height)")
	fs.IntVar(&o.z, "z", 0, "Grid Z")
	fs.StringVar(&o.at, "at", "", "World position x,y,z instead of -x/-y/-z, scaled by map.cell_size")
	fs.IntVar(&o.index, "index", 0, "Tile index for set (0 clears the cell)")
	fs.StringVar(&o.flags, "flags", "", "Cell flags for set, e.g. east|flip_x")
	fs.Int64Var(&o.seed, "seed", 1, "Noise seed for gen")
	fs.IntVar(&o.width, "w", 64, "Generated area width")
	fs.IntVar(&o.depth, "d", 64, "Generated area depth")
	fs.IntVar(&o.relief, "relief", 0, "Column height for gen, 0 - flat")
	fs.StringVar(&o.file, "file", "", "Blob file for export/import")
	fs.StringVar(&o.group, "group", "", "Snapshot group id for undo")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return o, nil
}

// app - открытые ресурсы одного запуска
type app struct {
	cfg     *config.Config
	repo    *storage.Repository
	history *snapshot.History
	metrics *metrics.Metrics
	out     io.Writer
	closers []func() error
}

func newApp(ctx context.Context, o *options, out io.Writer) (*app, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	logOpts := logging.Options{Level: level, FileLevel: logging.DEBUG, File: cfg.Log.File}
	if err := logging.InitDefaultLogger("tilemapctl", logOpts); err != nil {
		return nil, err
	}
	logging.GetLoggerManager().Configure(logOpts)

	a := &app{cfg: cfg, out: out, metrics: metrics.New()}
	a.closers = append(a.closers, func() error {
		logging.CloseDefaultLogger()
		return logging.GetLoggerManager().CloseAll()
	})

	if cfg.Metrics.Addr != "" {
		srv := a.metrics.StartHTTP(cfg.Metrics.Addr)
		a.closers = append(a.closers, func() error {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	compression, err := storage.ParseCompression(cfg.Storage.Compression)
	if err != nil {
		a.close()
		return nil, err
	}
	a.repo, err = storage.Open(cfg.Storage.Path, storage.Options{
		Compression: compression,
		CacheBytes:  cfg.Storage.CacheMB << 20,
		Metrics:     a.metrics,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.closers = append(a.closers, a.repo.Close)

	var store snapshot.Store
	switch cfg.Snapshot.Backend {
	case "redis":
		rs, err := snapshot.NewRedisStore(ctx, &snapshot.RedisConfig{
			Addr:      cfg.Snapshot.RedisAddr,
			KeyPrefix: "tilemap:snapshot:",
			TTL:       cfg.Snapshot.TTL,
		})
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, rs.Close)
		store = rs
	case "memory":
		ms, err := snapshot.NewMemoryStore(cfg.Snapshot.Capacity)
		if err != nil {
			a.close()
			return nil, err
		}
		store = ms
	default:
		store = snapshot.NewBadgerStore(a.repo, cfg.Snapshot.TTL)
	}
	a.history = snapshot.NewHistory(store, nil)
	return a, nil
}

// close освобождает ресурсы в обратном порядке открытия
func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, o, stdout)
	if err != nil {
		return err
	}
	defer a.close()

	switch o.command {
	case "gen":
		return a.generate(ctx, o)
	case "info":
		return a.info(ctx, o)
	case "get":
		return a.get(ctx, o)
	case "set":
		return a.set(ctx, o)
	case "undo":
		return a.undo(ctx, o)
	case "export":
		return a.export(ctx, o)
	case "import":
		return a.importMap(ctx, o)
	case "rm-chunk":
		return a.removeChunk(ctx, o)
	}
	return fmt.Errorf("неизвестная команда %q", o.command)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		stop()
		os.Exit(1)
	}
}
