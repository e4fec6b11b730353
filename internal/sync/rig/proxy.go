package rig

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/rigsync/internal/host"
	"github.com/dshills/rigsync/internal/proxy"
)

// Proxy mirrors an armature datablock, gated attribute included.
type Proxy struct {
	*proxy.Proxy

	syncer *Syncer

	mu    sync.Mutex
	state State
}

// SaveResult is the outcome of Save. A rejected save has neither
// datablock nor owner.
type SaveResult struct {
	Datablock host.Datablock
	Owner     host.Object
	Rejected  bool
}

// State returns the synchronization state.
func (p *Proxy) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// enter switches to s and returns a function restoring the state found.
func (p *Proxy) enter(s State) func() {
	p.mu.Lock()
	prev := p.state
	p.state = s
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		p.state = prev
		p.mu.Unlock()
	}
}

func (p *Proxy) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Bones returns the captured bone hierarchy.
func (p *Proxy) Bones() ([]host.Bone, bool) {
	v, ok := p.Get(p.syncer.opts.GatedAttribute)
	if !ok {
		return nil, false
	}
	bones, ok := v.([]host.Bone)
	return bones, ok
}

// Load captures db. With an owner, ordinary attributes and the gated
// attribute are read inside the gated mode; without one only ordinary
// attributes are captured and the gated attribute is left unset.
func (p *Proxy) Load(db host.Datablock, ctx *proxy.Context) (_ *Proxy, err error) {
	defer observe("load", time.Now(), &err)
	if db.UUID() != p.UUID() {
		return nil, fmt.Errorf("load %s: %w", db.Name(), proxy.ErrUUIDMismatch)
	}

	s := p.syncer
	gated := s.opts.GatedAttribute
	obj := s.Owner(db)
	if obj == nil {
		s.logger.Debug("loading without gated region",
			zap.String("uuid", db.UUID()),
			zap.NamedError("reason", ErrOwnerNotFound))
		if err = p.Proxy.Load(db, ctx, gated); err != nil {
			return nil, fmt.Errorf("load %s: %w", db.Name(), err)
		}
		p.Delete(gated)
		p.setState(StateCaptured)
		return p, nil
	}

	err = s.guard.With(obj, s.opts.GatedMode, func() error {
		if err := p.Proxy.Load(db, ctx, gated); err != nil {
			return err
		}
		return p.LoadAttribute(db, gated)
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", db.Name(), err)
	}
	p.setState(StateCaptured)
	return p, nil
}

// Diff compares the captured value of key with the live value on db. The
// gated attribute is read inside the gated mode; without an owner it
// compares as unchanged.
func (p *Proxy) Diff(db host.Datablock, key string, ctx *proxy.Context) (_ *proxy.Delta, err error) {
	defer observe("diff", time.Now(), &err)
	defer p.enter(StateDiffing)()

	s := p.syncer
	if !s.IsGated(key) {
		return p.Proxy.Diff(db, key, ctx)
	}

	obj := s.Owner(db)
	if obj == nil {
		s.logger.Warn("skipping gated diff",
			zap.String("uuid", db.UUID()),
			zap.String("key", key),
			zap.NamedError("reason", ErrOwnerNotFound))
		return nil, nil
	}

	var d *proxy.Delta
	err = s.guard.With(obj, s.opts.GatedMode, func() error {
		var derr error
		d, derr = p.Proxy.Diff(db, key, ctx)
		return derr
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// DiffAll diffs every captured or live attribute of db. It returns nil
// when nothing changed.
func (p *Proxy) DiffAll(db host.Datablock, ctx *proxy.Context) (*proxy.Update, error) {
	defer p.enter(StateDiffing)()

	u := &proxy.Update{UUID: p.UUID()}
	err := p.syncer.guarded(db, func() error {
		for _, key := range p.DiffKeys(db) {
			d, err := p.Diff(db, key, ctx)
			if err != nil {
				return err
			}
			if d != nil {
				u.Deltas = append(u.Deltas, d)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if u.Empty() {
		return nil, nil
	}
	return u, nil
}

// Save runs the pre-save hook and writes the ordinary attributes and the
// custom properties to the resulting datablock. The gated attribute is
// stashed in the pending store for ApplyGatedRegion. A rejected save
// writes nothing and returns a result with Rejected set.
func (p *Proxy) Save(db host.Datablock, ctx *proxy.Context) (_ SaveResult, err error) {
	defer observe("save", time.Now(), &err)
	defer p.enter(StateCommitting)()

	s := p.syncer
	target := p.PreSave(db, ctx)
	if target == nil {
		name := ""
		if db != nil {
			name = db.Name()
		}
		s.logger.Warn("save rejected by pre-save hook",
			zap.String("uuid", p.UUID()),
			zap.String("datablock", name))
		return SaveResult{Rejected: true}, nil
	}

	if ctx != nil && ctx.Visit != nil {
		leave, err := ctx.Visit.EnterDatablock(target.UUID())
		if err != nil {
			return SaveResult{}, fmt.Errorf("save %s: %w", target.Name(), err)
		}
		defer leave()
	}

	gated := s.opts.GatedAttribute
	if err = p.WriteAttributes(target, gated); err != nil {
		return SaveResult{}, fmt.Errorf("save %s: %w", target.Name(), err)
	}
	if v, ok := p.Get(gated); ok {
		bones, ok := v.([]host.Bone)
		if !ok {
			return SaveResult{}, fmt.Errorf("save %s: %w: %s holds %T", target.Name(), host.ErrInvalidValue, gated, v)
		}
		if err = s.store.Stash(target.UUID(), bones); err != nil {
			return SaveResult{}, fmt.Errorf("save %s: %w", target.Name(), err)
		}
	}
	p.SaveCustomProperties(target)

	return SaveResult{Datablock: target, Owner: s.Owner(target)}, nil
}

// Apply patches the proxy with update and, when writeThrough is set, db.
// key names db inside parent; a nil parent skips the lookup. The whole
// apply runs inside the gated mode of the owner of db, or unguarded when
// there is none.
func (p *Proxy) Apply(db host.Datablock, parent host.Collection, key string, update *proxy.Update, ctx *proxy.Context, writeThrough bool) (_ *Proxy, err error) {
	defer observe("apply", time.Now(), &err)
	if key == "" {
		return nil, ErrInvalidKey
	}
	if parent != nil && db != nil {
		found, ok := parent.Lookup(key)
		if !ok || found.UUID() != db.UUID() {
			return nil, fmt.Errorf("%w: %q", ErrKeyMismatch, key)
		}
	}

	restore := p.enter(StateCommitting)
	err = p.syncer.guarded(db, func() error {
		return p.Proxy.Apply(db, update, ctx, writeThrough)
	})
	restore()
	if err != nil {
		return nil, fmt.Errorf("apply %s: %w", key, err)
	}
	p.setState(StateCaptured)
	return p, nil
}
