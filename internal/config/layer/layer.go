// Package layer stacks configuration maps by priority.
//
// Higher priority layers override values from lower priority layers.
// Nested maps merge key by key; any other value replaces the one below.
package layer

import "time"

// Layer is one configuration source.
type Layer struct {
	// Name identifies the layer ("defaults", "file", "environment", ...).
	Name string

	// Priority determines merge order (higher overrides lower).
	Priority int

	// Source indicates where this layer was loaded from.
	Source Source

	// Path is the file path for file layers.
	Path string

	// Data holds the configuration values as a nested map.
	Data map[string]any

	// ModTime is when the source was read.
	ModTime time.Time

	// ReadOnly prevents modifications through the manager.
	ReadOnly bool
}

// NewLayer creates an empty layer.
func NewLayer(name string, source Source, priority int) *Layer {
	return NewLayerWithData(name, source, priority, make(map[string]any))
}

// NewLayerWithData creates a layer holding data.
func NewLayerWithData(name string, source Source, priority int, data map[string]any) *Layer {
	return &Layer{
		Name:     name,
		Source:   source,
		Priority: priority,
		Data:     data,
		ModTime:  time.Now(),
	}
}

// Clone creates a deep copy of the layer.
func (l *Layer) Clone() *Layer {
	c := *l
	c.Data = cloneMap(l.Data)
	return &c
}

// Source indicates where a configuration layer came from.
type Source uint8

const (
	// SourceBuiltin is the compiled-in defaults.
	SourceBuiltin Source = iota
	// SourceFile is a TOML or YAML configuration file.
	SourceFile
	// SourceEnv is RIGSYNC_ environment variables.
	SourceEnv
	// SourceFlags is command-line flags.
	SourceFlags
	// SourceSession is in-memory overrides.
	SourceSession
)

// Standard priorities, lowest first.
const (
	PriorityBuiltin = 0
	PriorityFile    = 100
	PriorityEnv     = 500
	PriorityFlags   = 600
	PrioritySession = 1000
)

// String returns a human-readable name for the source.
func (s Source) String() string {
	switch s {
	case SourceBuiltin:
		return "builtin"
	case SourceFile:
		return "file"
	case SourceEnv:
		return "environment"
	case SourceFlags:
		return "flags"
	case SourceSession:
		return "session"
	default:
		return "unknown"
	}
}

// DefaultPriority returns the standard priority of source.
func DefaultPriority(source Source) int {
	switch source {
	case SourceBuiltin:
		return PriorityBuiltin
	case SourceFile:
		return PriorityFile
	case SourceEnv:
		return PriorityEnv
	case SourceFlags:
		return PriorityFlags
	case SourceSession:
		return PrioritySession
	default:
		return PriorityBuiltin
	}
}

func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, val := range src {
		dst[key] = cloneValue(val)
	}
	return dst
}

func cloneSlice(src []any) []any {
	if src == nil {
		return nil
	}
	dst := make([]any, len(src))
	for i, val := range src {
		dst[i] = cloneValue(val)
	}
	return dst
}
