package proxy

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/dshills/rigsync/internal/host"
)

// Proxy is an in-memory mirror of a datablock's attributes, keyed by the
// datablock's UUID. It owns its values and never aliases host memory.
type Proxy struct {
	mu     sync.RWMutex
	uuid   string
	data   map[string]any
	custom map[string]any
}

// New creates an empty proxy for the datablock uuid.
func New(uuid string) *Proxy {
	return &Proxy{
		uuid:   uuid,
		data:   make(map[string]any),
		custom: make(map[string]any),
	}
}

// UUID returns the identity token of the mirrored datablock.
func (p *Proxy) UUID() string {
	return p.uuid
}

// Keys returns the captured attribute names in sorted order.
func (p *Proxy) Keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	keys := make([]string, 0, len(p.data))
	for k := range p.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of captured attributes.
func (p *Proxy) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.data)
}

// Get returns a copy of the captured value for key.
func (p *Proxy) Get(key string) (any, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.data[key]
	if !ok {
		return nil, false
	}
	return CloneValue(v), true
}

// Set stores a copy of value for key.
func (p *Proxy) Set(key string, value any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data[key] = CloneValue(value)
}

// Delete drops the captured value for key.
func (p *Proxy) Delete(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.data, key)
}

// CustomProperties returns a copy of the captured custom properties.
func (p *Proxy) CustomProperties() map[string]any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return CloneMap(p.custom)
}

// SetCustomProperties replaces the captured custom properties.
func (p *Proxy) SetCustomProperties(props map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.custom = CloneMap(props)
	if p.custom == nil {
		p.custom = make(map[string]any)
	}
}

// Load captures every attribute of db except the excluded names, and the
// custom properties. Attributes no longer present on db are dropped.
func (p *Proxy) Load(db host.Datablock, ctx *Context, exclude ...string) error {
	skip := toSet(exclude)
	names := db.AttributeNames()
	live := make(map[string]bool, len(names))

	for _, name := range names {
		if skip[name] {
			continue
		}
		live[name] = true
		if err := p.LoadAttribute(db, name); err != nil {
			return err
		}
	}

	p.mu.Lock()
	for k := range p.data {
		if !skip[k] && !live[k] {
			delete(p.data, k)
		}
	}
	p.custom = CloneMap(db.CustomProperties())
	if p.custom == nil {
		p.custom = make(map[string]any)
	}
	p.mu.Unlock()

	ctx.logger().Debug("proxy loaded",
		zap.String("uuid", p.uuid),
		zap.Int("attributes", len(live)))
	return nil
}

// LoadAttribute captures a single attribute of db.
func (p *Proxy) LoadAttribute(db host.Datablock, name string) error {
	v, err := db.ReadAttribute(name)
	if err != nil {
		return fmt.Errorf("loading %s: %w", name, err)
	}
	p.Set(name, v)
	return nil
}

// Diff compares the captured value of key with the live value on db.
// It returns nil when they are equal. The proxy is not modified.
func (p *Proxy) Diff(db host.Datablock, key string, ctx *Context) (*Delta, error) {
	live, hasLive, err := readLive(db, key)
	if err != nil {
		return nil, fmt.Errorf("diff %s: %w", key, err)
	}

	p.mu.RLock()
	old, hasOld := p.data[key]
	d := diffValue(key, old, hasOld, live, hasLive)
	p.mu.RUnlock()

	if d != nil {
		ctx.logger().Debug("attribute changed",
			zap.String("uuid", p.uuid),
			zap.String("key", key),
			zap.Stringer("op", d.Op))
	}
	return d, nil
}

// DiffKeys returns the union of captured and live attribute names of db,
// sorted.
func (p *Proxy) DiffKeys(db host.Datablock) []string {
	seen := make(map[string]bool)
	for _, k := range p.Keys() {
		seen[k] = true
	}
	for _, k := range db.AttributeNames() {
		seen[k] = true
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Apply patches the proxy with update. When writeThrough is set the same
// deltas are applied to db; attributes that already hold the resulting
// value are not written.
func (p *Proxy) Apply(db host.Datablock, update *Update, ctx *Context, writeThrough bool) error {
	if update.Empty() {
		return nil
	}
	if update.UUID != "" && update.UUID != p.uuid {
		return fmt.Errorf("%w: %s != %s", ErrUUIDMismatch, update.UUID, p.uuid)
	}

	for _, d := range update.Deltas {
		p.mu.Lock()
		cur, has := p.data[d.Key]
		next, present := applyDelta(cur, has, d)
		if present {
			p.data[d.Key] = next
		} else {
			delete(p.data, d.Key)
		}
		p.mu.Unlock()

		if !writeThrough || db == nil {
			continue
		}
		if err := applyLive(db, d); err != nil {
			return err
		}
	}

	ctx.logger().Debug("update applied",
		zap.String("uuid", p.uuid),
		zap.Int("deltas", len(update.Deltas)),
		zap.Bool("write_through", writeThrough))
	return nil
}

// PreSave runs the context's pre-save hook. A nil result rejects the save.
func (p *Proxy) PreSave(db host.Datablock, ctx *Context) host.Datablock {
	return ctx.preSave(db)
}

// WriteAttribute writes the captured value of key to db.
func (p *Proxy) WriteAttribute(db host.Datablock, key string) error {
	v, ok := p.Get(key)
	if !ok {
		return fmt.Errorf("write %s: %w", key, host.ErrAttributeNotFound)
	}
	if err := db.WriteAttribute(key, v); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// WriteAttributes writes every captured attribute except the excluded
// names to db, in key order.
func (p *Proxy) WriteAttributes(db host.Datablock, exclude ...string) error {
	skip := toSet(exclude)
	for _, k := range p.Keys() {
		if skip[k] {
			continue
		}
		if err := p.WriteAttribute(db, k); err != nil {
			return err
		}
	}
	return nil
}

// SaveCustomProperties writes the captured custom properties to db.
func (p *Proxy) SaveCustomProperties(db host.Datablock) {
	db.SetCustomProperties(p.CustomProperties())
}

// applyLive applies d to the live value on db.
func applyLive(db host.Datablock, d *Delta) error {
	live, hasLive, err := readLive(db, d.Key)
	if err != nil {
		return fmt.Errorf("apply %s: %w", d.Key, err)
	}
	next, present := applyDelta(live, hasLive, d)
	switch {
	case !present && !hasLive:
		return nil
	case !present:
		err = db.WriteAttribute(d.Key, nil)
	case hasLive && Equal(live, next):
		return nil
	default:
		err = db.WriteAttribute(d.Key, next)
	}
	if err != nil {
		return fmt.Errorf("apply %s: %w", d.Key, err)
	}
	return nil
}

// readLive reads key from db, reporting absence separately from failure.
func readLive(db host.Datablock, key string) (any, bool, error) {
	v, err := db.ReadAttribute(key)
	if errors.Is(err, host.ErrAttributeNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
