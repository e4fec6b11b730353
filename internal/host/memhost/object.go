package memhost

import (
	"github.com/google/uuid"

	"github.com/dshills/rigsync/internal/host"
)

// Object is an in-memory host.Object.
type Object struct {
	doc  *Document
	uuid string
	name string
	data host.Datablock
	mode host.Mode
}

var _ host.Object = (*Object)(nil)

func newObject(doc *Document, name, id string, data host.Datablock) *Object {
	if id == "" {
		id = uuid.NewString()
	}
	return &Object{
		doc:  doc,
		uuid: id,
		name: name,
		data: data,
		mode: host.ModeObject,
	}
}

// UUID implements host.Object.
func (o *Object) UUID() string { return o.uuid }

// Name implements host.Object.
func (o *Object) Name() string { return o.name }

// Data implements host.Object.
func (o *Object) Data() host.Datablock {
	o.doc.mu.RLock()
	defer o.doc.mu.RUnlock()
	return o.data
}

// SetData changes the referenced datablock.
func (o *Object) SetData(data host.Datablock) {
	o.doc.mu.Lock()
	o.data = data
	o.doc.mu.Unlock()
}

// Mode implements host.Object.
func (o *Object) Mode() host.Mode {
	o.doc.mu.RLock()
	defer o.doc.mu.RUnlock()
	return o.mode
}
