package gate

import (
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/dshills/rigsync/internal/host"
	"github.com/dshills/rigsync/internal/metrics"
)

// Guard serializes gated-mode sections of one document.
type Guard struct {
	doc    host.Document
	logger *zap.Logger

	mu sync.Mutex

	// held is the owner of the open section, nil when none is open.
	held host.Object

	// target is the mode the open section switched to.
	target host.Mode

	// depth counts nested sections for held.
	depth int
}

// New creates a guard for doc.
func New(doc host.Document, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{
		doc:    doc,
		logger: logger.With(zap.String("component", "gate")),
	}
}

// Document returns the guarded document.
func (g *Guard) Document() host.Document {
	return g.doc
}

// Held returns the owner of the open section, or nil.
func (g *Guard) Held() host.Object {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held
}

// snapshot is the selection state recorded when a section opens.
type snapshot struct {
	active       host.Object
	activeMode   host.Mode
	ownerMode    host.Mode
	activeChange bool
}

// With runs body with owner active and the document in target mode.
//
// The recorded mode of owner, the recorded active object and that
// object's mode are restored when body returns, fails or panics.
// When the host refuses to activate owner or to switch to target, body
// is not run and a *TransitionError is returned.
func (g *Guard) With(owner host.Object, target host.Mode, body func() error) (err error) {
	if owner == nil {
		return ErrNoOwner
	}

	nested, err := g.acquire(owner, target)
	if err != nil {
		return err
	}
	defer g.release()
	if nested {
		return body()
	}

	snap, err := g.enter(owner, target)
	if err != nil {
		return err
	}

	defer func() {
		err = multierr.Append(err, g.restore(owner, snap))
	}()
	return body()
}

// acquire opens a section for owner. It reports whether the section is
// nested inside one already open for the same owner and mode.
func (g *Guard) acquire(owner host.Object, target host.Mode) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.held != nil {
		if host.SameObject(g.held, owner) && g.target == target {
			g.depth++
			metrics.GuardSections.Inc()
			return true, nil
		}
		return false, &TransitionError{
			Owner: owner.Name(),
			From:  owner.Mode(),
			To:    target,
			Err:   fmt.Errorf("%w: %s", ErrGuardBusy, g.held.Name()),
		}
	}

	g.held = owner
	g.target = target
	g.depth = 1
	metrics.GuardSections.Inc()
	return false, nil
}

func (g *Guard) release() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.depth--
	if g.depth <= 0 {
		g.held = nil
		g.target = ""
		g.depth = 0
	}
	metrics.GuardSections.Dec()
}

// enter records the selection, activates owner and switches to target.
func (g *Guard) enter(owner host.Object, target host.Mode) (snapshot, error) {
	snap := snapshot{ownerMode: owner.Mode()}
	if active := g.doc.ActiveObject(); active != nil {
		snap.active = active
		snap.activeMode = active.Mode()
	}
	snap.activeChange = !host.SameObject(snap.active, owner)

	if snap.activeChange {
		if err := g.doc.SetActiveObject(owner); err != nil {
			return snap, &TransitionError{
				Owner: owner.Name(),
				From:  snap.ownerMode,
				To:    target,
				Err:   fmt.Errorf("activate: %w", err),
			}
		}
	}

	if err := g.setMode(owner, target); err != nil {
		terr := &TransitionError{Owner: owner.Name(), From: snap.ownerMode, To: target, Err: err}
		if !snap.activeChange {
			return snap, terr
		}
		if rerr := g.doc.SetActiveObject(snap.active); rerr != nil {
			return snap, multierr.Append(terr, fmt.Errorf("restore active object: %w", rerr))
		}
		return snap, terr
	}
	return snap, nil
}

// restore puts back the state recorded by enter.
func (g *Guard) restore(owner host.Object, snap snapshot) error {
	var errs error

	ownerActive := true
	if !host.SameObject(g.doc.ActiveObject(), owner) {
		if err := g.doc.SetActiveObject(owner); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("restore %s: %w", owner.Name(), err))
			ownerActive = false
		}
	}
	if ownerActive && owner.Mode() != snap.ownerMode {
		if err := g.setMode(owner, snap.ownerMode); err != nil {
			errs = multierr.Append(errs, &TransitionError{
				Owner: owner.Name(),
				From:  owner.Mode(),
				To:    snap.ownerMode,
				Err:   err,
			})
		}
	}

	if !snap.activeChange {
		return errs
	}
	if err := g.doc.SetActiveObject(snap.active); err != nil {
		return multierr.Append(errs, fmt.Errorf("restore active object: %w", err))
	}
	if snap.active != nil && snap.active.Mode() != snap.activeMode {
		if err := g.setMode(snap.active, snap.activeMode); err != nil {
			errs = multierr.Append(errs, &TransitionError{
				Owner: snap.active.Name(),
				From:  snap.active.Mode(),
				To:    snap.activeMode,
				Err:   err,
			})
		}
	}
	return errs
}

// Leave switches the active object from a gated mode to mode. It does
// nothing while a section is open or when the document is not in a gated
// mode.
func (g *Guard) Leave(mode host.Mode) error {
	if g.Held() != nil {
		return nil
	}
	active := g.doc.ActiveObject()
	if active == nil || !g.doc.Mode().Gated() {
		return nil
	}
	if err := g.setMode(active, mode); err != nil {
		return &TransitionError{Owner: active.Name(), From: active.Mode(), To: mode, Err: err}
	}
	return nil
}

// setMode switches the active object obj to mode.
func (g *Guard) setMode(obj host.Object, mode host.Mode) error {
	from := obj.Mode()
	err := g.doc.SetMode(mode)
	metrics.ModeTransitions.WithLabelValues(mode.String(), metrics.Result(err)).Inc()
	if err != nil {
		g.logger.Debug("mode transition refused",
			zap.String("object", obj.Name()),
			zap.Stringer("from", from),
			zap.Stringer("to", mode),
			zap.Error(err))
		return err
	}
	g.logger.Debug("mode transition",
		zap.String("object", obj.Name()),
		zap.Stringer("from", from),
		zap.Stringer("to", mode))
	return nil
}
