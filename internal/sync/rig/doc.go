// Package rig synchronizes armature datablocks whose bone hierarchy is
// only reachable in the gated editing mode of an owner object.
//
// A Syncer binds a host document to a mode guard, an owner finder and the
// pending store. Proxies created by the Syncer wrap the generic attribute
// proxy and bracket every access to the gated attribute with a guarded
// mode transition:
//
//	s := rig.NewSyncer(doc, store, rig.WithLogger(logger))
//	p, err := s.Capture(armature, ctx)
//	...
//	res, err := p.Save(armature, ctx)
//	commit := s.ApplyGatedRegion(res.Owner, ctx)
//
// Save does not write the gated attribute. It stashes the captured bones
// in the pending store; ApplyGatedRegion writes them once the owner is
// linked into the document.
package rig
