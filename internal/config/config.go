// Package config читает YAML конфигурацию утилиты и сервисов карты.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации
type Config struct {
	Map      MapConfig      `yaml:"map"`
	Storage  StorageConfig  `yaml:"storage"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

type MapConfig struct {
	ChunkWidth  int32   `yaml:"chunk_width"`
	ChunkDepth  int32   `yaml:"chunk_depth"`
	CellSize    float64 `yaml:"cell_size"`
	ClampHeight bool    `yaml:"clamp_height"`
}

type StorageConfig struct {
	Path        string `yaml:"path"`
	Compression string `yaml:"compression"` // none | zstd
	CacheMB     int64  `yaml:"cache_mb"`
}

type SnapshotConfig struct {
	Backend   string        `yaml:"backend"` // badger | memory | redis
	RedisAddr string        `yaml:"redis_addr"`
	TTL       time.Duration `yaml:"ttl"`
	Capacity  int           `yaml:"capacity"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Значения по умолчанию
const (
	DefaultChunkSize   = 16
	DefaultDataPath    = "data"
	DefaultCompression = "zstd"
	DefaultCacheMB     = 32
	DefaultBackend     = "badger"
	DefaultRedisAddr   = "localhost:6379"
	DefaultSnapshotTTL = 30 * time.Minute
	DefaultCapacity    = 64
	DefaultLogLevel    = "info"
)

// Default возвращает конфигурацию по умолчанию
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults заполняет незаданные поля.
// Приоритет: config -> env -> default.
func (c *Config) applyDefaults() {
	if c.Map.ChunkWidth <= 0 {
		c.Map.ChunkWidth = DefaultChunkSize
	}
	if c.Map.ChunkDepth <= 0 {
		c.Map.ChunkDepth = DefaultChunkSize
	}
	if c.Map.CellSize <= 0 {
		c.Map.CellSize = 1
	}
	c.Storage.Path = withEnvFallback(c.Storage.Path, "TILEMAP_DATA", DefaultDataPath)
	if c.Storage.Compression == "" {
		c.Storage.Compression = DefaultCompression
	}
	if c.Storage.CacheMB <= 0 {
		c.Storage.CacheMB = DefaultCacheMB
	}
	if c.Snapshot.Backend == "" {
		c.Snapshot.Backend = DefaultBackend
	}
	c.Snapshot.RedisAddr = withEnvFallback(c.Snapshot.RedisAddr, "TILEMAP_REDIS", DefaultRedisAddr)
	if c.Snapshot.TTL <= 0 {
		c.Snapshot.TTL = DefaultSnapshotTTL
	}
	if c.Snapshot.Capacity <= 0 {
		c.Snapshot.Capacity = DefaultCapacity
	}
	c.Metrics.Addr = withEnvFallback(c.Metrics.Addr, "TILEMAP_METRICS", "")
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

// withEnvFallback возвращает значение с приоритетом: config -> env -> default
func withEnvFallback(value, envVar, defaultValue string) string {
	if value != "" {
		return value
	}
	if envVal := os.Getenv(envVar); envVal != "" {
		return envVal
	}
	return defaultValue
}

// Validate проверяет допустимые значения перечислений
func (c *Config) Validate() error {
	switch c.Storage.Compression {
	case "none", "zstd":
	default:
		return fmt.Errorf("storage.compression: неизвестное значение %q", c.Storage.Compression)
	}
	switch c.Snapshot.Backend {
	case "badger", "memory", "redis":
	default:
		return fmt.Errorf("snapshot.backend: неизвестное значение %q", c.Snapshot.Backend)
	}
	return nil
}

// Load читает YAML файл конфигурации.
// Если path == "", путь берётся из ENV TILEMAP_CONFIG; если и он не задан,
// возвращается конфигурация по умолчанию.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("TILEMAP_CONFIG")
		if path == "" {
			return Default(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфигурации: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("разбор конфигурации %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
