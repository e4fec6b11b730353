package proxy

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/dshills/rigsync/internal/host"
)

// PreSaveFunc prepares a datablock before captured attributes are written
// to it. Returning nil rejects the save.
type PreSaveFunc func(db host.Datablock, ctx *Context) host.Datablock

// Context carries the state shared by the proxies of one synchronization
// pass.
type Context struct {
	// Visit tracks the datablocks currently being written.
	Visit *VisitState

	// Refs holds references waiting for an object to become resolvable.
	Refs *UnresolvedRefs

	// PreSave runs before Save writes attributes. Nil accepts every
	// datablock unchanged.
	PreSave PreSaveFunc

	// Logger receives diagnostics. Nil disables logging.
	Logger *zap.Logger
}

// NewContext creates a context with empty visit state and reference table.
func NewContext(logger *zap.Logger) *Context {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Context{
		Visit:  NewVisitState(),
		Refs:   NewUnresolvedRefs(),
		Logger: logger,
	}
}

func (c *Context) logger() *zap.Logger {
	if c == nil || c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c *Context) preSave(db host.Datablock) host.Datablock {
	if c == nil || c.PreSave == nil {
		return db
	}
	return c.PreSave(db, c)
}

// VisitState tracks the datablocks entered during a save pass.
type VisitState struct {
	mu    sync.Mutex
	stack []string
}

// NewVisitState creates an empty visit state.
func NewVisitState() *VisitState {
	return &VisitState{}
}

// EnterDatablock marks uuid as being written. It fails when uuid is already
// on the stack, which indicates a reference cycle. The returned function
// leaves the datablock.
func (v *VisitState) EnterDatablock(uuid string) (func(), error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, id := range v.stack {
		if id == uuid {
			return nil, fmt.Errorf("datablock %s already being visited", uuid)
		}
	}
	v.stack = append(v.stack, uuid)
	depth := len(v.stack)

	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		if len(v.stack) >= depth {
			v.stack = v.stack[:depth-1]
		}
	}, nil
}

// Current returns the datablock being written, or "".
func (v *VisitState) Current() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.stack) == 0 {
		return ""
	}
	return v.stack[len(v.stack)-1]
}

// Depth returns the number of datablocks being written.
func (v *VisitState) Depth() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.stack)
}

// ResolveFunc links a referencing value to an object once it is available.
type ResolveFunc func(obj host.Object)

// UnresolvedRefs records references to objects that were not linked yet,
// keyed by the referenced object's UUID.
type UnresolvedRefs struct {
	mu      sync.Mutex
	pending map[string][]ResolveFunc
}

// NewUnresolvedRefs creates an empty table.
func NewUnresolvedRefs() *UnresolvedRefs {
	return &UnresolvedRefs{pending: make(map[string][]ResolveFunc)}
}

// Add registers fn to run when the object uuid is resolved.
func (r *UnresolvedRefs) Add(uuid string, fn ResolveFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[uuid] = append(r.pending[uuid], fn)
}

// Resolve runs and drops every callback waiting for uuid. It returns the
// number of callbacks run.
func (r *UnresolvedRefs) Resolve(uuid string, obj host.Object) int {
	r.mu.Lock()
	fns := r.pending[uuid]
	delete(r.pending, uuid)
	r.mu.Unlock()

	// Run callbacks outside of lock
	for _, fn := range fns {
		fn(obj)
	}
	return len(fns)
}

// Len returns the number of objects with waiting references.
func (r *UnresolvedRefs) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
