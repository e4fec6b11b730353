package memhost

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/rigsync/internal/host"
)

// EditBones is the gated attribute holding the bone hierarchy.
const EditBones = "edit_bones"

// Armature is an in-memory armature datablock.
type Armature struct {
	doc  *Document
	uuid string
	name string

	mu        sync.RWMutex
	attrs     map[string]any
	editBones []host.Bone
	custom    map[string]any

	// failWrites makes gated writes fail, for exercising failure paths.
	failWrites error
	writes     int
}

var _ host.Datablock = (*Armature)(nil)

func newArmature(doc *Document, name, id string) *Armature {
	if id == "" {
		id = uuid.NewString()
	}
	return &Armature{
		doc:    doc,
		uuid:   id,
		name:   name,
		attrs:  make(map[string]any),
		custom: make(map[string]any),
	}
}

// UUID implements host.Datablock.
func (a *Armature) UUID() string { return a.uuid }

// Name implements host.Datablock.
func (a *Armature) Name() string { return a.name }

// Kind implements host.Datablock.
func (a *Armature) Kind() host.Kind { return host.KindArmature }

// AttributeNames implements host.Datablock.
func (a *Armature) AttributeNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, 0, len(a.attrs)+1)
	for k := range a.attrs {
		names = append(names, k)
	}
	names = append(names, EditBones)
	sort.Strings(names)
	return names
}

// ReadAttribute implements host.Datablock.
func (a *Armature) ReadAttribute(name string) (any, error) {
	if name == EditBones {
		if !a.doc.editing(a) {
			return nil, fmt.Errorf("%w: %s.%s", host.ErrModeRequired, a.name, name)
		}
		a.mu.RLock()
		defer a.mu.RUnlock()
		return host.CloneBones(a.editBones), nil
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.attrs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", host.ErrAttributeNotFound, a.name, name)
	}
	return cloneValue(v), nil
}

// WriteAttribute implements host.Datablock.
func (a *Armature) WriteAttribute(name string, value any) error {
	if name == EditBones {
		if !a.doc.editing(a) {
			return fmt.Errorf("%w: %s.%s", host.ErrModeRequired, a.name, name)
		}
		bones, ok := value.([]host.Bone)
		if !ok && value != nil {
			return fmt.Errorf("%w: %s.%s expects bones, got %T", host.ErrInvalidValue, a.name, name, value)
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.failWrites != nil {
			return a.failWrites
		}
		a.editBones = host.CloneBones(bones)
		a.writes++
		return nil
	}

	v, err := normalize(value)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", a.name, name, err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if v == nil {
		delete(a.attrs, name)
	} else {
		a.attrs[name] = v
	}
	a.writes++
	return nil
}

// CustomProperties implements host.Datablock.
func (a *Armature) CustomProperties() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return cloneMap(a.custom)
}

// SetCustomProperties implements host.Datablock.
func (a *Armature) SetCustomProperties(props map[string]any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.custom = cloneMap(props)
	if a.custom == nil {
		a.custom = make(map[string]any)
	}
}

// Bones returns the bone hierarchy regardless of mode. It stands in for
// inspecting the document from outside the synchronization layer.
func (a *Armature) Bones() []host.Bone {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return host.CloneBones(a.editBones)
}

// SetBones replaces the bone hierarchy regardless of mode. It stands in
// for an edit made by the local user.
func (a *Armature) SetBones(bones []host.Bone) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.editBones = host.CloneBones(bones)
}

// Set assigns an ordinary attribute regardless of mode.
func (a *Armature) Set(name string, value any) error {
	if name == EditBones {
		bones, ok := value.([]host.Bone)
		if !ok {
			return fmt.Errorf("%w: %s expects bones", host.ErrInvalidValue, name)
		}
		a.SetBones(bones)
		return nil
	}
	v, err := normalize(value)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.attrs[name] = v
	return nil
}

// FailWrites makes gated writes return err. A nil err restores writes.
func (a *Armature) FailWrites(err error) {
	a.mu.Lock()
	a.failWrites = err
	a.mu.Unlock()
}

// Writes returns the number of successful attribute writes.
func (a *Armature) Writes() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.writes
}
