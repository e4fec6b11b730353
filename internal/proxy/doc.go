// Package proxy mirrors the attributes of a host datablock into an
// in-memory Proxy that can be diffed against the live datablock, patched
// from incoming deltas and written back.
//
// # Lifecycle
//
//	p := proxy.New(db.UUID())
//	p.Load(db, ctx)              // capture every attribute
//	d, _ := p.Diff(db, key, ctx) // compare one attribute with live state
//	p.Apply(db, update, ctx, true)
//	p.WriteAttributes(db)        // write captured attributes back
//
// # Deltas
//
// A Delta describes a change to one attribute. Bone sequences also carry
// per-bone item changes keyed by bone name, so that applying the same delta
// twice leaves the target exactly as applying it once. When item changes
// cannot reproduce the live order the delta carries the whole sequence.
//
// The package has no notion of editing modes. Callers that need a mode
// transition around attribute access wrap these calls themselves.
package proxy
