// Package host defines the document model the synchronization core runs
// against.
//
// A Document holds Objects. An Object may reference a Datablock through
// Data(). Every Object has an exclusive Mode, and the document's mode is the
// mode of its active object. Exactly one mode, ModeEdit, is gated: attributes
// listed as gated by a Datablock are only readable and writable while an
// object referencing that datablock is active in ModeEdit.
//
// Attribute values exchanged through Datablock are restricted to:
//
//	nil, bool, float64, string, []float64, []Bone
//
// Custom properties are a map of JSON-compatible values.
package host
