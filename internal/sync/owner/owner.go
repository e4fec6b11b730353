// Package owner finds the object that references a mode-gated datablock.
package owner

import (
	"github.com/dshills/rigsync/internal/host"
)

// Finder resolves the owner object of a datablock.
// Find returns nil when no object references db.
type Finder interface {
	Find(db host.Datablock) host.Object
}

// MultiFinder is a Finder that can also list every object referencing a
// datablock.
type MultiFinder interface {
	Finder
	FindAll(db host.Datablock) []host.Object
}

// Func adapts a function to the Finder interface.
type Func func(db host.Datablock) host.Object

// Find implements Finder.
func (f Func) Find(db host.Datablock) host.Object {
	return f(db)
}

// Resolver scans the objects of a document in document order.
type Resolver struct {
	doc host.Document
}

var _ MultiFinder = (*Resolver)(nil)

// NewResolver creates a resolver over doc.
func NewResolver(doc host.Document) *Resolver {
	return &Resolver{doc: doc}
}

// Find returns the first object whose data is db, or nil.
func (r *Resolver) Find(db host.Datablock) host.Object {
	if db == nil {
		return nil
	}
	for _, obj := range r.doc.Objects() {
		if data := obj.Data(); data != nil && data.UUID() == db.UUID() {
			return obj
		}
	}
	return nil
}

// FindAll returns every object whose data is db, in document order.
func (r *Resolver) FindAll(db host.Datablock) []host.Object {
	if db == nil {
		return nil
	}
	var out []host.Object
	for _, obj := range r.doc.Objects() {
		if data := obj.Data(); data != nil && data.UUID() == db.UUID() {
			out = append(out, obj)
		}
	}
	return out
}
