package config

import (
	"errors"
	"fmt"
	"math/bits"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"

	"github.com/dshills/rigsync/internal/host"
)

// Section accessor methods return snapshot structs. Mutating the returned
// struct does not modify the underlying configuration.

// SyncConfig holds the rig synchronization settings.
type SyncConfig struct {
	// GatedMode is the mode in which the gated attribute is accessible.
	GatedMode host.Mode

	// BaselineMode is the mode a document left in GatedMode is dropped to
	// before a deferred commit.
	BaselineMode host.Mode

	// GatedAttribute names the attribute only accessible in GatedMode.
	GatedAttribute string

	// RequeueOnFailure stashes bones again when a deferred commit fails.
	RequeueOnFailure bool
}

// PendingConfig holds the pending gated-region store settings.
type PendingConfig struct {
	// Shards is the number of cache shards, a power of two.
	Shards int

	// LifeWindow is how long an uncommitted entry is kept.
	LifeWindow time.Duration

	// MaxEntrySize is the expected encoded size of one entry in bytes.
	MaxEntrySize int

	// HardMaxCacheSize caps the store in MB. Zero means unbounded.
	HardMaxCacheSize int
}

// LoggingConfig holds the logger settings.
type LoggingConfig struct {
	// Level is the minimum level ("debug", "info", "warn", "error").
	Level string

	// Format is "console" or "json".
	Format string

	// Development enables development mode (stack traces on warnings).
	Development bool
}

// Sync returns the synchronization settings.
func (c *Config) Sync() SyncConfig {
	return SyncConfig{
		GatedMode:        c.getModeOr("sync.gatedMode", host.ModeEdit),
		BaselineMode:     c.getModeOr("sync.baselineMode", host.ModeObject),
		GatedAttribute:   c.getStringOr("sync.gatedAttribute", "edit_bones"),
		RequeueOnFailure: c.getBoolOr("sync.requeueOnFailure", false),
	}
}

// Pending returns the pending store settings.
func (c *Config) Pending() PendingConfig {
	return PendingConfig{
		Shards:           c.getIntOr("pending.shards", 16),
		LifeWindow:       c.getDurationOr("pending.lifeWindow", 720*time.Hour),
		MaxEntrySize:     c.getIntOr("pending.maxEntrySize", 4096),
		HardMaxCacheSize: c.getIntOr("pending.hardMaxCacheSize", 0),
	}
}

// Logging returns the logger settings.
func (c *Config) Logging() LoggingConfig {
	return LoggingConfig{
		Level:       c.getStringOr("logging.level", "info"),
		Format:      c.getStringOr("logging.format", "console"),
		Development: c.getBoolOr("logging.development", false),
	}
}

// Validate checks the merged settings and returns every problem found,
// combined. Each problem is a *ValidationError.
func (c *Config) Validate() error {
	var errs error
	invalid := func(path string, code ValidationErrorCode, value any, format string, args ...any) {
		errs = multierr.Append(errs, &ValidationError{
			Path:    path,
			Message: fmt.Sprintf(format, args...),
			Value:   value,
			Code:    code,
		})
	}

	gated, gerr := c.mode("sync.gatedMode")
	if gerr != nil {
		invalid("sync.gatedMode", codeFor(gerr), c.raw("sync.gatedMode"), "%v", gerr)
	} else if !gated.Gated() {
		invalid("sync.gatedMode", ErrCodeInvalidEnum, gated, "mode %s does not gate any attribute", gated)
	}
	baseline, berr := c.mode("sync.baselineMode")
	if berr != nil {
		invalid("sync.baselineMode", codeFor(berr), c.raw("sync.baselineMode"), "%v", berr)
	}
	if gerr == nil && berr == nil && gated == baseline {
		invalid("sync.baselineMode", ErrCodeConflict, baseline, "must differ from sync.gatedMode")
	}
	if attr, err := c.GetString("sync.gatedAttribute"); err != nil || attr == "" {
		invalid("sync.gatedAttribute", ErrCodeTypeMismatch, c.raw("sync.gatedAttribute"), "must be a non-empty string")
	}
	if _, err := c.GetBool("sync.requeueOnFailure"); err != nil {
		invalid("sync.requeueOnFailure", ErrCodeTypeMismatch, c.raw("sync.requeueOnFailure"), "%v", err)
	}

	if shards, err := c.GetInt("pending.shards"); err != nil {
		invalid("pending.shards", ErrCodeTypeMismatch, c.raw("pending.shards"), "%v", err)
	} else if shards <= 0 || bits.OnesCount(uint(shards)) != 1 {
		invalid("pending.shards", ErrCodeOutOfRange, shards, "must be a positive power of two")
	}
	if d, err := c.GetDuration("pending.lifeWindow"); err != nil {
		invalid("pending.lifeWindow", ErrCodeTypeMismatch, c.raw("pending.lifeWindow"), "%v", err)
	} else if d <= 0 {
		invalid("pending.lifeWindow", ErrCodeOutOfRange, d, "must be positive")
	}
	for _, path := range []string{"pending.maxEntrySize", "pending.hardMaxCacheSize"} {
		if n, err := c.GetInt(path); err != nil {
			invalid(path, ErrCodeTypeMismatch, c.raw(path), "%v", err)
		} else if n < 0 {
			invalid(path, ErrCodeOutOfRange, n, "must not be negative")
		}
	}

	if lvl, err := c.GetString("logging.level"); err != nil {
		invalid("logging.level", ErrCodeTypeMismatch, c.raw("logging.level"), "%v", err)
	} else if _, err := zapcore.ParseLevel(lvl); err != nil {
		invalid("logging.level", ErrCodeInvalidEnum, lvl, "unknown level")
	}
	if format, err := c.GetString("logging.format"); err != nil {
		invalid("logging.format", ErrCodeTypeMismatch, c.raw("logging.format"), "%v", err)
	} else if format != "console" && format != "json" {
		invalid("logging.format", ErrCodeInvalidEnum, format, "must be console or json")
	}
	if _, err := c.GetBool("logging.development"); err != nil {
		invalid("logging.development", ErrCodeTypeMismatch, c.raw("logging.development"), "%v", err)
	}

	return errs
}

func (c *Config) raw(path string) any {
	v, _ := c.Get(path)
	return v
}

func codeFor(err error) ValidationErrorCode {
	if errors.Is(err, ErrTypeMismatch) {
		return ErrCodeTypeMismatch
	}
	return ErrCodeInvalidEnum
}

// mode reads a host mode name at path.
func (c *Config) mode(path string) (host.Mode, error) {
	s, err := c.GetString(path)
	if err != nil {
		return "", err
	}
	return host.ParseMode(s)
}

func (c *Config) getModeOr(path string, defaultValue host.Mode) host.Mode {
	m, err := c.mode(path)
	if err != nil {
		if !errors.Is(err, ErrSettingNotFound) {
			c.recordConfigError(path, err)
		}
		return defaultValue
	}
	return m
}

func (c *Config) getStringOr(path string, defaultValue string) string {
	v, err := c.GetString(path)
	if err != nil {
		if !errors.Is(err, ErrSettingNotFound) {
			c.recordConfigError(path, err)
		}
		return defaultValue
	}
	return v
}

func (c *Config) getIntOr(path string, defaultValue int) int {
	v, err := c.GetInt(path)
	if err != nil {
		if !errors.Is(err, ErrSettingNotFound) {
			c.recordConfigError(path, err)
		}
		return defaultValue
	}
	return v
}

func (c *Config) getBoolOr(path string, defaultValue bool) bool {
	v, err := c.GetBool(path)
	if err != nil {
		if !errors.Is(err, ErrSettingNotFound) {
			c.recordConfigError(path, err)
		}
		return defaultValue
	}
	return v
}

func (c *Config) getDurationOr(path string, defaultValue time.Duration) time.Duration {
	v, err := c.GetDuration(path)
	if err != nil {
		if !errors.Is(err, ErrSettingNotFound) {
			c.recordConfigError(path, err)
		}
		return defaultValue
	}
	return v
}

// recordConfigError keeps the first error seen for path.
func (c *Config) recordConfigError(path string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.configErrors == nil {
		c.configErrors = make(map[string]error)
	}
	if _, exists := c.configErrors[path]; !exists {
		c.configErrors[path] = err
	}
}

// ConfigErrors returns the errors met by section accessors, by path.
func (c *Config) ConfigErrors() map[string]error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.configErrors == nil {
		return nil
	}
	result := make(map[string]error, len(c.configErrors))
	for k, v := range c.configErrors {
		result[k] = v
	}
	return result
}

// ClearConfigErrors clears the stored configuration errors.
func (c *Config) ClearConfigErrors() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.configErrors = nil
}
