package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Store backend names accepted in the configuration.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// DefaultServeAddr is the address the HTTP API binds to when the
// configuration does not name one.
const DefaultServeAddr = ":8080"

// Config is the on-disk CLI configuration, read from a TOML file.
//
// Example:
//
//	definitions = ["./blocks/custom.json"]
//
//	[store]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//
//	[serve]
//	addr = ":9090"
type Config struct {
	// Definitions lists extra block definition JSON files loaded on top of
	// the built-in definitions.
	Definitions []string    `toml:"definitions"`
	Store       StoreConfig `toml:"store"`
	Serve       ServeConfig `toml:"serve"`
}

// StoreConfig selects and configures the snapshot store backend.
type StoreConfig struct {
	// Backend is one of "file", "memory", "redis", or "mongo".
	// Empty means "file".
	Backend string `toml:"backend"`

	// Dir is the directory for the file backend. Empty means
	// ~/.config/blockwork/snapshots.
	Dir string `toml:"dir"`

	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`

	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`
}

// ServeConfig configures the serve command.
type ServeConfig struct {
	Addr string `toml:"addr"`
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{Backend: BackendFile},
		Serve: ServeConfig{Addr: DefaultServeAddr},
	}
}

// LoadConfig reads the configuration at path. An empty path means the
// default location (~/.config/blockwork/config.toml); a missing file at the
// default location is not an error and yields DefaultConfig. A path given
// explicitly must exist.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		dir, err := configDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(dir, "config.toml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Serve.Addr == "" {
		cfg.Serve.Addr = DefaultServeAddr
	}
	return cfg, nil
}

// configDir returns the config directory using XDG standard (~/.config/blockwork/).
func configDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}
