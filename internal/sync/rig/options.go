package rig

import (
	"go.uber.org/zap"

	"github.com/dshills/rigsync/internal/host"
	"github.com/dshills/rigsync/internal/sync/owner"
)

// DefaultGatedAttribute is the attribute holding the bone hierarchy.
const DefaultGatedAttribute = "edit_bones"

// Options configure a Syncer.
type Options struct {
	// GatedMode is the mode the gated attribute requires.
	GatedMode host.Mode

	// BaselineMode is the mode a deferred commit starts from.
	BaselineMode host.Mode

	// GatedAttribute names the attribute only reachable in GatedMode.
	GatedAttribute string

	// RequeueOnFailure stashes the bones again when a deferred commit
	// fails, so a later pass can retry.
	RequeueOnFailure bool

	// Finder resolves owner objects. Nil scans the document.
	Finder owner.Finder

	// Logger receives diagnostics. Nil disables logging.
	Logger *zap.Logger
}

// DefaultOptions returns the default options.
func DefaultOptions() Options {
	return Options{
		GatedMode:      host.ModeEdit,
		BaselineMode:   host.ModeObject,
		GatedAttribute: DefaultGatedAttribute,
	}
}

// Option modifies Options.
type Option func(*Options)

// WithModes sets the gated and baseline modes.
func WithModes(gated, baseline host.Mode) Option {
	return func(o *Options) {
		o.GatedMode = gated
		o.BaselineMode = baseline
	}
}

// WithGatedAttribute sets the gated attribute name.
func WithGatedAttribute(name string) Option {
	return func(o *Options) {
		o.GatedAttribute = name
	}
}

// WithRequeueOnFailure enables re-stashing after a failed commit.
func WithRequeueOnFailure(requeue bool) Option {
	return func(o *Options) {
		o.RequeueOnFailure = requeue
	}
}

// WithFinder sets the owner resolution strategy.
func WithFinder(f owner.Finder) Option {
	return func(o *Options) {
		o.Finder = f
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}
