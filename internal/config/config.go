package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dshills/rigsync/internal/config/layer"
	"github.com/dshills/rigsync/internal/config/loader"
)

// Layer names.
const (
	LayerDefaults    = "defaults"
	LayerFile        = "file"
	LayerEnvironment = "environment"
	LayerFlags       = "flags"
)

// Config provides merged access to the rigsync configuration layers.
type Config struct {
	mu sync.RWMutex

	layers *layer.Manager

	fs        loader.FileSystem
	file      string
	envPrefix string
	environ   []string

	// configErrors stores type errors met by the section accessors.
	configErrors map[string]error
}

// Option configures a Config instance.
type Option func(*Config)

// WithFile sets the configuration file. Its extension selects the format.
func WithFile(path string) Option {
	return func(c *Config) {
		c.file = path
	}
}

// WithFileSystem sets the file system the configuration file is read from.
func WithFileSystem(fsys loader.FileSystem) Option {
	return func(c *Config) {
		c.fs = fsys
	}
}

// WithEnvPrefix sets the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(c *Config) {
		c.envPrefix = prefix
	}
}

// WithEnvironment replaces the process environment with env, given as
// "KEY=value" pairs.
func WithEnvironment(env []string) Option {
	return func(c *Config) {
		c.environ = env
	}
}

// New creates a Config holding the built-in defaults.
func New(opts ...Option) *Config {
	c := &Config{
		layers:    layer.NewManager(),
		fs:        loader.DefaultFS(),
		envPrefix: loader.DefaultEnvPrefix,
	}
	for _, opt := range opts {
		opt(c)
	}

	defaults := layer.NewLayerWithData(LayerDefaults, layer.SourceBuiltin, layer.PriorityBuiltin, defaultConfig())
	defaults.ReadOnly = true
	c.layers.AddLayer(defaults)
	return c
}

// Load reads the configuration file, when set, and the environment.
func (c *Config) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if c.file != "" {
		if err := c.loadFile(); err != nil {
			return err
		}
	}
	return c.loadEnvironment()
}

func (c *Config) loadFile() error {
	l, err := loader.ForPath(c.fs, c.file)
	if err != nil {
		return err
	}
	data, err := l.Load()
	if err != nil {
		return err
	}
	if data == nil {
		return fmt.Errorf("%w: %s", ErrFileNotFound, c.file)
	}

	fl := layer.NewLayerWithData(LayerFile, layer.SourceFile, layer.PriorityFile, data)
	fl.Path = c.file
	if info, err := c.fs.Stat(c.file); err == nil {
		fl.ModTime = info.ModTime()
	}
	c.layers.AddLayer(fl)
	return nil
}

func (c *Config) loadEnvironment() error {
	envLoader := loader.NewEnvLoader(c.envPrefix)
	if c.environ != nil {
		envLoader.WithEnviron(c.environ)
	}
	data, err := envLoader.Load()
	if err != nil {
		return err
	}
	if len(data) > 0 {
		c.layers.AddLayer(layer.NewLayerWithData(LayerEnvironment, layer.SourceEnv, layer.PriorityEnv, data))
	}
	return nil
}

// Get returns the value at the given path from the merged configuration.
func (c *Config) Get(path string) (any, bool) {
	return layer.GetByPath(c.layers.Merge(), path)
}

// GetString returns a string value at the given path.
func (c *Config) GetString(path string) (string, error) {
	v, ok := c.Get(path)
	if !ok {
		return "", ErrSettingNotFound
	}
	s, ok := v.(string)
	if !ok {
		return "", &TypeError{Path: path, Expected: "string", Actual: typeName(v)}
	}
	return s, nil
}

// GetInt returns an integer value at the given path.
func (c *Config) GetInt(path string) (int, error) {
	v, ok := c.Get(path)
	if !ok {
		return 0, ErrSettingNotFound
	}
	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case uint64:
		return int(val), nil
	case float64:
		if val != float64(int(val)) {
			return 0, &TypeError{Path: path, Expected: "int", Actual: typeName(v)}
		}
		return int(val), nil
	default:
		return 0, &TypeError{Path: path, Expected: "int", Actual: typeName(v)}
	}
}

// GetBool returns a boolean value at the given path.
func (c *Config) GetBool(path string) (bool, error) {
	v, ok := c.Get(path)
	if !ok {
		return false, ErrSettingNotFound
	}
	b, ok := v.(bool)
	if !ok {
		return false, &TypeError{Path: path, Expected: "bool", Actual: typeName(v)}
	}
	return b, nil
}

// GetFloat returns a float64 value at the given path.
func (c *Config) GetFloat(path string) (float64, error) {
	v, ok := c.Get(path)
	if !ok {
		return 0, ErrSettingNotFound
	}
	switch val := v.(type) {
	case float64:
		return val, nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	default:
		return 0, &TypeError{Path: path, Expected: "float64", Actual: typeName(v)}
	}
}

// GetDuration returns a duration at the given path. Strings are parsed
// with time.ParseDuration.
func (c *Config) GetDuration(path string) (time.Duration, error) {
	v, ok := c.Get(path)
	if !ok {
		return 0, ErrSettingNotFound
	}
	switch val := v.(type) {
	case time.Duration:
		return val, nil
	case string:
		d, err := time.ParseDuration(val)
		if err != nil {
			return 0, &TypeError{Path: path, Expected: "duration", Actual: fmt.Sprintf("string %q", val)}
		}
		return d, nil
	default:
		return 0, &TypeError{Path: path, Expected: "duration", Actual: typeName(v)}
	}
}

// Set sets a value in the session layer, above every other source.
func (c *Config) Set(path string, value any) {
	c.layers.SetInSession(path, value)
}

// SetFlag sets a value in the flags layer.
func (c *Config) SetFlag(path string, value any) {
	if c.layers.GetLayer(LayerFlags) == nil {
		c.layers.AddLayer(layer.NewLayer(LayerFlags, layer.SourceFlags, layer.PriorityFlags))
	}
	// The flags layer is writable and exists.
	_ = c.layers.Set(LayerFlags, path, value)
}

// Merged returns the fully merged configuration.
func (c *Config) Merged() map[string]any {
	return c.layers.Merge()
}

// Layers returns the configuration layers, lowest priority first.
func (c *Config) Layers() []*layer.Layer {
	return c.layers.Layers()
}

// WhichLayer returns the name of the layer providing path.
func (c *Config) WhichLayer(path string) string {
	return c.layers.WhichLayer(path)
}

// defaultConfig returns the default configuration values.
func defaultConfig() map[string]any {
	return map[string]any{
		"sync": map[string]any{
			"gatedMode":        "EDIT",
			"baselineMode":     "OBJECT",
			"gatedAttribute":   "edit_bones",
			"requeueOnFailure": false,
		},
		"pending": map[string]any{
			"shards":           16,
			"lifeWindow":       "720h",
			"maxEntrySize":     4096,
			"hardMaxCacheSize": 0,
		},
		"logging": map[string]any{
			"level":       "info",
			"format":      "console",
			"development": false,
		},
	}
}

// typeName returns the type name for error messages.
func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	switch v.(type) {
	case string:
		return "string"
	case int, int64, uint64:
		return "int"
	case float64:
		return "float64"
	case bool:
		return "bool"
	case time.Duration:
		return "duration"
	case []any:
		return "[]any"
	case map[string]any:
		return "map"
	default:
		return fmt.Sprintf("%T", v)
	}
}
