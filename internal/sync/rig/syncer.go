package rig

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/rigsync/internal/host"
	"github.com/dshills/rigsync/internal/metrics"
	"github.com/dshills/rigsync/internal/proxy"
	"github.com/dshills/rigsync/internal/sync/gate"
	"github.com/dshills/rigsync/internal/sync/owner"
	"github.com/dshills/rigsync/internal/sync/pending"
)

// Syncer creates rig proxies for one document and runs deferred commits.
type Syncer struct {
	doc    host.Document
	guard  *gate.Guard
	finder owner.Finder
	store  *pending.Store
	opts   Options
	logger *zap.Logger
}

// NewSyncer creates a syncer for doc. Captured bones are stashed in store.
func NewSyncer(doc host.Document, store *pending.Store, opts ...Option) *Syncer {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Finder == nil {
		o.Finder = owner.NewResolver(doc)
	}
	if o.GatedAttribute == "" {
		o.GatedAttribute = DefaultGatedAttribute
	}

	return &Syncer{
		doc:    doc,
		guard:  gate.New(doc, o.Logger),
		finder: o.Finder,
		store:  store,
		opts:   o,
		logger: o.Logger.With(zap.String("component", "rig")),
	}
}

// Guard returns the mode guard of the document.
func (s *Syncer) Guard() *gate.Guard {
	return s.guard
}

// Store returns the pending store.
func (s *Syncer) Store() *pending.Store {
	return s.store
}

// Options returns the effective options.
func (s *Syncer) Options() Options {
	return s.opts
}

// IsGated reports whether key names the gated attribute.
func (s *Syncer) IsGated(key string) bool {
	return key == s.opts.GatedAttribute
}

// Owner returns the object referencing db, or nil.
func (s *Syncer) Owner(db host.Datablock) host.Object {
	if db == nil {
		return nil
	}
	return s.finder.Find(db)
}

// NewProxy creates an unsynced proxy for the datablock uuid.
func (s *Syncer) NewProxy(uuid string) *Proxy {
	return &Proxy{
		Proxy:  proxy.New(uuid),
		syncer: s,
		state:  StateUnsynced,
	}
}

// Adopt wraps a proxy captured elsewhere, such as one decoded from the
// wire, as a captured proxy of this syncer.
func (s *Syncer) Adopt(base *proxy.Proxy) *Proxy {
	return &Proxy{
		Proxy:  base,
		syncer: s,
		state:  StateCaptured,
	}
}

// Capture creates a proxy for db and loads it.
func (s *Syncer) Capture(db host.Datablock, ctx *proxy.Context) (*Proxy, error) {
	return s.NewProxy(db.UUID()).Load(db, ctx)
}

// guarded runs fn inside the gated mode of the owner of db. Without an
// owner fn runs directly.
func (s *Syncer) guarded(db host.Datablock, fn func() error) error {
	obj := s.Owner(db)
	if obj == nil {
		return fn()
	}
	return s.guard.With(obj, s.opts.GatedMode, fn)
}

// ApplyGatedRegion writes the stashed bones of the datablock referenced by
// obj. Failures are logged and reported in the result, never returned.
func (s *Syncer) ApplyGatedRegion(obj host.Object, ctx *proxy.Context) CommitResult {
	res := s.applyGatedRegion(obj, ctx)
	metrics.Commits.WithLabelValues(res.Status.String()).Inc()
	return res
}

func (s *Syncer) applyGatedRegion(obj host.Object, ctx *proxy.Context) CommitResult {
	if obj == nil {
		return CommitResult{Status: CommitSkipped}
	}
	res := CommitResult{Owner: obj.Name()}
	db := obj.Data()
	if db == nil || db.Kind() != host.KindArmature {
		res.Status = CommitSkipped
		return res
	}
	res.UUID = db.UUID()
	log := s.logger.With(zap.String("uuid", res.UUID), zap.String("owner", res.Owner))

	bones, ok, err := s.store.Take(res.UUID)
	if err != nil {
		res.Status = CommitFailed
		res.Err = &GatedWriteError{UUID: res.UUID, Owner: res.Owner, Err: err}
		log.Error("reading pending gated region", zap.Error(err))
		return res
	}
	if !ok {
		res.Status = CommitMissing
		res.Err = fmt.Errorf("%w: %s", ErrPendingCommitMissing, res.UUID)
		log.Error("no pending gated region")
		return res
	}
	res.Bones = len(bones)
	if len(bones) == 0 {
		res.Status = CommitEmpty
		return res
	}

	if ctx != nil && ctx.Refs != nil {
		if n := ctx.Refs.Resolve(obj.UUID(), obj); n > 0 {
			log.Debug("resolved references", zap.Int("count", n))
		}
	}

	err = s.guard.Leave(s.opts.BaselineMode)
	if err == nil {
		err = s.guard.With(obj, s.opts.GatedMode, func() error {
			return db.WriteAttribute(s.opts.GatedAttribute, bones)
		})
	}
	if err != nil {
		res.Status = CommitFailed
		res.Err = &GatedWriteError{UUID: res.UUID, Owner: res.Owner, Err: err}
		log.Error("writing gated region", zap.Int("bones", len(bones)), zap.Error(err))
		if s.opts.RequeueOnFailure {
			if serr := s.store.Stash(res.UUID, bones); serr != nil {
				log.Error("requeueing gated region", zap.Error(serr))
			}
		}
		return res
	}

	res.Status = CommitCommitted
	log.Debug("gated region committed", zap.Int("bones", len(bones)))
	return res
}

// CommitAll runs ApplyGatedRegion for every object whose armature has a
// pending gated region. Each datablock is committed once, through the
// first object referencing it.
func (s *Syncer) CommitAll(ctx *proxy.Context) []CommitResult {
	pendingKeys := make(map[string]bool)
	for _, k := range s.store.Keys() {
		pendingKeys[k] = true
	}

	var results []CommitResult
	for _, obj := range s.doc.Objects() {
		db := obj.Data()
		if db == nil || !pendingKeys[db.UUID()] {
			continue
		}
		delete(pendingKeys, db.UUID())
		if mf, ok := s.finder.(owner.MultiFinder); ok {
			if owners := mf.FindAll(db); len(owners) > 1 {
				s.logger.Warn("armature shared by several objects",
					zap.String("uuid", db.UUID()),
					zap.String("owner", obj.Name()),
					zap.Int("objects", len(owners)))
			}
		}
		results = append(results, s.ApplyGatedRegion(obj, ctx))
	}

	if len(pendingKeys) > 0 {
		s.logger.Warn("pending gated regions without owner", zap.Int("count", len(pendingKeys)))
	}
	return results
}

// observe records the outcome of a lifecycle operation. It is deferred
// with a pointer to the operation's error result.
func observe(op string, start time.Time, err *error) {
	metrics.Operations.WithLabelValues(op, metrics.Result(*err)).Inc()
	metrics.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
