// Package config provides layered configuration for rigsync.
//
// Configuration is organized in layers with higher layers overriding lower:
//
//	flags        --log-level and friends
//	environment  RIGSYNC_* variables
//	file         --config (TOML or YAML)
//	defaults     built in
//
// A session layer above all of them holds values set with Set.
//
// # Basic Usage
//
//	cfg := config.New(config.WithFile("rigsync.toml"))
//	if err := cfg.Load(ctx); err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//	syncCfg := cfg.Sync()
//
// Section accessors fall back to defaults on type errors and record them;
// see ConfigErrors.
package config
