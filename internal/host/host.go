package host

import (
	"fmt"
	"strings"
)

// Mode is the editing mode of an object.
type Mode string

// Supported modes.
const (
	ModeObject      Mode = "OBJECT"
	ModeEdit        Mode = "EDIT"
	ModePose        Mode = "POSE"
	ModeSculpt      Mode = "SCULPT"
	ModeWeightPaint Mode = "WEIGHT_PAINT"
)

var allModes = []Mode{ModeObject, ModeEdit, ModePose, ModeSculpt, ModeWeightPaint}

// Modes returns all supported modes.
func Modes() []Mode {
	out := make([]Mode, len(allModes))
	copy(out, allModes)
	return out
}

// Valid reports whether m is a supported mode.
func (m Mode) Valid() bool {
	for _, v := range allModes {
		if v == m {
			return true
		}
	}
	return false
}

// Gated reports whether m is the exclusive editing mode.
func (m Mode) Gated() bool {
	return m == ModeEdit
}

// String returns the mode name.
func (m Mode) String() string {
	return string(m)
}

// ParseMode parses a mode name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrModeUnsupported, s)
	}
	return m, nil
}

// Kind identifies the type of a datablock.
type Kind string

// Datablock kinds.
const (
	KindArmature Kind = "armature"
	KindMesh     Kind = "mesh"
)

// Datablock is a document object with named attributes.
type Datablock interface {
	// UUID returns the identity token, stable for the session.
	UUID() string

	// Name returns the datablock name inside its collection.
	Name() string

	// Kind returns the datablock type.
	Kind() Kind

	// AttributeNames returns the names of all readable attributes,
	// gated ones included.
	AttributeNames() []string

	// ReadAttribute returns the current value of an attribute.
	ReadAttribute(name string) (any, error)

	// WriteAttribute replaces the value of an attribute.
	WriteAttribute(name string, value any) error

	// CustomProperties returns a copy of the custom properties.
	CustomProperties() map[string]any

	// SetCustomProperties replaces the custom properties.
	SetCustomProperties(props map[string]any)
}

// Object is a document entity that may reference a datablock.
type Object interface {
	UUID() string
	Name() string

	// Data returns the referenced datablock, or nil.
	Data() Datablock

	// Mode returns the current mode of the object.
	Mode() Mode
}

// Document is the host document and its mode switching capability.
// Mode changes always apply to the active object.
type Document interface {
	// Objects returns the top-level objects in document order.
	Objects() []Object

	// ActiveObject returns the active object, or nil.
	ActiveObject() Object

	// SetActiveObject makes obj active. A nil obj clears the selection.
	SetActiveObject(obj Object) error

	// Mode returns the mode of the active object, or ModeObject when
	// there is no active object.
	Mode() Mode

	// SetMode switches the active object to mode.
	SetMode(mode Mode) error
}

// Collection is a named set of datablocks of one kind.
type Collection interface {
	Lookup(name string) (Datablock, bool)
}

// SameObject reports whether a and b refer to the same object.
func SameObject(a, b Object) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.UUID() == b.UUID()
}
