// Store configuration.
//
// Config is usually built in code, but LoadConfig also reads it from a
// JSONC or YAML file. Open applies defaults for anything left zero.
package shelf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tailscale/hujson"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// EnvVar selects the environment when Config.Env is empty.
const EnvVar = "SHELF_ENV"

// Defaults applied by Open.
const (
	DefaultEnv       = "development"
	DefaultCacheSize = 128
	DefaultRoot      = "db"
)

// Config holds store configuration options.
type Config struct {
	// DBPath maps environment names to root directories. Each store lives
	// in <root>/<name>. When nil, the root is DefaultRoot/<env>.
	DBPath map[string]string `json:"db_path" yaml:"db_path"`
	Env    string            `json:"env" yaml:"env"`

	// AutoCommit commits after every mutation. Nil means true.
	AutoCommit *bool `json:"auto_commit" yaml:"auto_commit"`

	// CacheSize bounds the record cache. Zero selects DefaultCacheSize; a
	// negative size disables the cache.
	CacheSize int `json:"cache_size" yaml:"cache_size"`

	EncryptionKey        string `json:"encryption_key" yaml:"encryption_key"`
	Compression          bool   `json:"compression" yaml:"compression"`
	CompressionAlgorithm string `json:"compression_algorithm" yaml:"compression_algorithm"` // zstd (default) or lz4
	Format               string `json:"format" yaml:"format"`                               // json (default) or msgpack

	RequiredFields []string `json:"required_fields" yaml:"required_fields"`
	Indexes        []string `json:"indexes" yaml:"indexes"`

	// SyncWrites calls fsync on every record file before it is moved into
	// place.
	SyncWrites bool `json:"sync_writes" yaml:"sync_writes"`

	Logger     *zap.Logger           `json:"-" yaml:"-"`
	Registerer prometheus.Registerer `json:"-" yaml:"-"`
}

// LoadConfig reads a Config from path. Files ending in .yaml or .yml are
// parsed as YAML; anything else as JSON with comments and trailing commas
// allowed.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	cfg, err := parseConfig(filepath.Ext(path), data)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

func parseConfig(ext string, data []byte) (Config, error) {
	var cfg Config
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("invalid YAML: %w", err)
		}
	default:
		std, err := hujson.Standardize(data)
		if err != nil {
			return Config{}, fmt.Errorf("invalid JSONC: %w", err)
		}
		if err := json.Unmarshal(std, &cfg); err != nil {
			return Config{}, fmt.Errorf("invalid JSON: %w", err)
		}
	}
	return cfg, nil
}

// withDefaults returns a copy of c with zero fields filled in.
func (c Config) withDefaults() Config {
	if c.Env == "" {
		c.Env = os.Getenv(EnvVar)
	}
	if c.Env == "" {
		c.Env = DefaultEnv
	}
	if c.AutoCommit == nil {
		on := true
		c.AutoCommit = &on
	}
	if c.CacheSize == 0 {
		c.CacheSize = DefaultCacheSize
	}
	if c.Format == "" {
		c.Format = FormatJSON
	}
	if c.Compression && c.CompressionAlgorithm == "" {
		c.CompressionAlgorithm = CompressZstd
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// root resolves the directory holding every store for the configured
// environment.
func (c Config) root() (string, error) {
	if c.DBPath == nil {
		return filepath.Join(DefaultRoot, c.Env), nil
	}
	dir, ok := c.DBPath[c.Env]
	if !ok || dir == "" {
		return "", fmt.Errorf("%w: no db_path for environment %q", ErrInvalidConfig, c.Env)
	}
	return dir, nil
}

// compression is the codec compression algorithm, empty when disabled.
func (c Config) compression() string {
	if !c.Compression {
		return ""
	}
	return c.CompressionAlgorithm
}
