package memhost

import (
	"fmt"
	"sync"

	"github.com/dshills/rigsync/internal/host"
)

// ModeChangeCallback is called after an object changes mode.
type ModeChangeCallback func(obj *Object, from, to host.Mode)

// Transition records one successful mode change.
type Transition struct {
	Object string
	From   host.Mode
	To     host.Mode
}

// Document is an in-memory host.Document.
type Document struct {
	mu sync.RWMutex

	objects   []*Object
	armatures []*Armature
	active    *Object

	// refused holds modes the document rejects, for exercising failure paths.
	refused map[host.Mode]error

	callbacks   []ModeChangeCallback
	transitions []Transition
}

var _ host.Document = (*Document)(nil)

// New creates an empty document.
func New() *Document {
	return &Document{
		refused: make(map[host.Mode]error),
	}
}

// AddArmature creates an armature datablock. An empty uuid is generated.
func (d *Document) AddArmature(name, uuid string) *Armature {
	a := newArmature(d, name, uuid)
	d.mu.Lock()
	d.armatures = append(d.armatures, a)
	d.mu.Unlock()
	return a
}

// AddObject creates an object referencing data, which may be nil.
// An empty uuid is generated.
func (d *Document) AddObject(name, uuid string, data host.Datablock) *Object {
	o := newObject(d, name, uuid, data)
	d.mu.Lock()
	d.objects = append(d.objects, o)
	d.mu.Unlock()
	return o
}

// Armatures returns the armature collection.
func (d *Document) Armatures() *Armatures {
	return &Armatures{doc: d}
}

// Object returns the object named name, or nil.
func (d *Document) Object(name string) *Object {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, o := range d.objects {
		if o.name == name {
			return o
		}
	}
	return nil
}

// Objects implements host.Document.
func (d *Document) Objects() []host.Object {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]host.Object, len(d.objects))
	for i, o := range d.objects {
		out[i] = o
	}
	return out
}

// ActiveObject implements host.Document.
func (d *Document) ActiveObject() host.Object {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.active == nil {
		return nil
	}
	return d.active
}

// SetActiveObject implements host.Document.
func (d *Document) SetActiveObject(obj host.Object) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if obj == nil {
		d.active = nil
		return nil
	}
	o := d.findLocked(obj.UUID())
	if o == nil {
		return fmt.Errorf("%w: %s", host.ErrForeignObject, obj.Name())
	}
	d.active = o
	return nil
}

// Mode implements host.Document.
func (d *Document) Mode() host.Mode {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.active == nil {
		return host.ModeObject
	}
	return d.active.mode
}

// SetMode implements host.Document.
func (d *Document) SetMode(mode host.Mode) error {
	d.mu.Lock()

	obj := d.active
	if obj == nil {
		d.mu.Unlock()
		return host.ErrNoActiveObject
	}
	if !mode.Valid() {
		d.mu.Unlock()
		return fmt.Errorf("%w: %q", host.ErrModeUnsupported, mode)
	}
	if err, ok := d.refused[mode]; ok {
		d.mu.Unlock()
		return err
	}
	if mode.Gated() {
		if _, ok := obj.data.(*Armature); !ok {
			d.mu.Unlock()
			return fmt.Errorf("%w: %s has no editable data", host.ErrModeUnsupported, obj.name)
		}
		if holder := d.editingLocked(); holder != nil && holder != obj {
			d.mu.Unlock()
			return fmt.Errorf("%w: %s", host.ErrModeExclusive, holder.name)
		}
	}

	from := obj.mode
	obj.mode = mode
	if from != mode {
		d.transitions = append(d.transitions, Transition{Object: obj.name, From: from, To: mode})
	}

	callbacks := make([]ModeChangeCallback, len(d.callbacks))
	copy(callbacks, d.callbacks)
	d.mu.Unlock()

	if from == mode {
		return nil
	}

	// Notify callbacks outside of lock
	for _, cb := range callbacks {
		if cb != nil {
			cb(obj, from, mode)
		}
	}
	return nil
}

// OnModeChange registers a callback for mode changes.
// Returns a function to unregister the callback.
func (d *Document) OnModeChange(callback ModeChangeCallback) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.callbacks = append(d.callbacks, callback)
	index := len(d.callbacks) - 1

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		// Remove callback by setting to nil (preserves indices)
		if index < len(d.callbacks) {
			d.callbacks[index] = nil
		}
	}
}

// Refuse makes SetMode fail with err for mode. A nil err clears the refusal.
func (d *Document) Refuse(mode host.Mode, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.refused, mode)
		return
	}
	d.refused[mode] = err
}

// Transitions returns the mode changes performed so far.
func (d *Document) Transitions() []Transition {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Transition, len(d.transitions))
	copy(out, d.transitions)
	return out
}

// ResetTransitions clears the transition log.
func (d *Document) ResetTransitions() {
	d.mu.Lock()
	d.transitions = nil
	d.mu.Unlock()
}

func (d *Document) findLocked(uuid string) *Object {
	for _, o := range d.objects {
		if o.uuid == uuid {
			return o
		}
	}
	return nil
}

func (d *Document) editingLocked() *Object {
	for _, o := range d.objects {
		if o.mode.Gated() {
			return o
		}
	}
	return nil
}

// editing reports whether an object referencing a is in the gated mode.
func (d *Document) editing(a *Armature) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	o := d.editingLocked()
	return o != nil && o.data == host.Datablock(a)
}

// Armatures is the armature collection of a Document.
type Armatures struct {
	doc *Document
}

var _ host.Collection = (*Armatures)(nil)

// Lookup implements host.Collection.
func (c *Armatures) Lookup(name string) (host.Datablock, bool) {
	a := c.Get(name)
	if a == nil {
		return nil, false
	}
	return a, true
}

// Get returns the armature named name, or nil.
func (c *Armatures) Get(name string) *Armature {
	c.doc.mu.RLock()
	defer c.doc.mu.RUnlock()
	for _, a := range c.doc.armatures {
		if a.name == name {
			return a
		}
	}
	return nil
}

// ByUUID returns the armature with the given identity token, or nil.
func (c *Armatures) ByUUID(uuid string) *Armature {
	c.doc.mu.RLock()
	defer c.doc.mu.RUnlock()
	for _, a := range c.doc.armatures {
		if a.uuid == uuid {
			return a
		}
	}
	return nil
}

// All returns every armature in creation order.
func (c *Armatures) All() []*Armature {
	c.doc.mu.RLock()
	defer c.doc.mu.RUnlock()
	out := make([]*Armature, len(c.doc.armatures))
	copy(out, c.doc.armatures)
	return out
}
