// Package config loads the modcat configuration file and opens the
// store partitions it describes.
package config

import (
	"context"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/mazrik/modcat/pkg/errors"
	"github.com/mazrik/modcat/pkg/store"
)

// Backend names the supported store implementations.
const (
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

// EnvConfigPath overrides the default config file location.
const EnvConfigPath = "MODCAT_CONFIG"

// Config describes which backend holds the catalog and how to reach it.
type Config struct {
	Backend string `toml:"backend"`
	Redis   Redis  `toml:"redis"`
	Mongo   Mongo  `toml:"mongo"`
}

// Redis holds the Redis backend settings. The two partitions live in
// separate DB numbers of the same instance.
type Redis struct {
	Addr      string `toml:"addr"`
	ModulesDB int    `toml:"modules_db"`
	VendorsDB int    `toml:"vendors_db"`
}

// Mongo holds the MongoDB backend settings. The two partitions live in
// separate collections of the same database.
type Mongo struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// Default returns the configuration used when no config file exists:
// a local Redis with the modules partition in DB 1 and the vendors
// partition in DB 4.
func Default() Config {
	return Config{
		Backend: BackendRedis,
		Redis: Redis{
			Addr:      "localhost:6379",
			ModulesDB: 1,
			VendorsDB: 4,
		},
		Mongo: Mongo{
			URI:      "mongodb://localhost:27017",
			Database: "modcat",
		},
	}
}

// Path returns the config file location: $MODCAT_CONFIG when set,
// otherwise ~/.config/modcat/config.toml.
func Path() string {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".config", "modcat", "config.toml")
}

// Load reads the config file at Path(), layered over Default(). A
// missing file is not an error; the defaults are returned as-is.
func Load() (Config, error) {
	return LoadFile(Path())
}

// LoadFile reads the config file at path, layered over Default().
func LoadFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidInput, err, "read config file")
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config file")
	}

	switch cfg.Backend {
	case BackendRedis, BackendMongo, BackendMemory:
	default:
		return cfg, errors.New(errors.ErrCodeInvalidInput, "unknown backend %q", cfg.Backend)
	}
	return cfg, nil
}

// OpenStores opens the module and vendor partitions for the configured
// backend. Callers own both stores and must close them.
func (c Config) OpenStores(ctx context.Context) (modules, vendors store.Store, err error) {
	switch c.Backend {
	case BackendRedis:
		modules, err = store.NewRedisStore(ctx, "modules", c.Redis.Addr, c.Redis.ModulesDB)
		if err != nil {
			return nil, nil, err
		}
		vendors, err = store.NewRedisStore(ctx, "vendors", c.Redis.Addr, c.Redis.VendorsDB)
		if err != nil {
			_ = modules.Close()
			return nil, nil, err
		}
		return modules, vendors, nil

	case BackendMongo:
		modules, err = store.NewMongoStore(ctx, "modules", c.Mongo.URI, c.Mongo.Database)
		if err != nil {
			return nil, nil, err
		}
		vendors, err = store.NewMongoStore(ctx, "vendors", c.Mongo.URI, c.Mongo.Database)
		if err != nil {
			_ = modules.Close()
			return nil, nil, err
		}
		return modules, vendors, nil

	case BackendMemory:
		return store.NewMemoryStore("modules"), store.NewMemoryStore("vendors"), nil
	}
	return nil, nil, errors.New(errors.ErrCodeInvalidInput, "unknown backend %q", c.Backend)
}
