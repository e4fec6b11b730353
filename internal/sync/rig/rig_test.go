package rig

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dshills/rigsync/internal/host"
	"github.com/dshills/rigsync/internal/host/memhost"
	"github.com/dshills/rigsync/internal/metrics"
	"github.com/dshills/rigsync/internal/proxy"
	"github.com/dshills/rigsync/internal/proxy/codec"
	"github.com/dshills/rigsync/internal/sync/gate"
	"github.com/dshills/rigsync/internal/sync/owner"
	"github.com/dshills/rigsync/internal/sync/pending"
)

const scene = `
active: Camera
armatures:
  - name: Armature
    uuid: arm-1
    attributes:
      display_type: OCTAHEDRAL
      show_names: true
    custom:
      rig_version: 2
    edit_bones:
      - {name: b1, head: [0, 0, 0], tail: [0, 0, 1]}
      - {name: b2, parent: b1, head: [0, 0, 1], tail: [0, 0, 2], use_connect: true}
  - name: Spare
    uuid: arm-2
    edit_bones:
      - {name: s1, head: [0, 0, 0], tail: [1, 0, 0]}
  - name: Orphan
    uuid: arm-3
    attributes:
      display_type: STICK
    edit_bones:
      - {name: o1, head: [0, 0, 0], tail: [0, 1, 0]}
objects:
  - name: Camera
  - name: Rig
    uuid: obj-1
    data: Armature
  - name: SpareRig
    uuid: obj-2
    data: Spare
`

var b3 = host.Bone{Name: "b3", Parent: "b2", Head: [3]float64{0, 0, 2}, Tail: [3]float64{0, 0, 3}, Connected: true}

type fixture struct {
	doc    *memhost.Document
	arm    *memhost.Armature
	rig    *memhost.Object
	store  *pending.Store
	syncer *Syncer
	logs   *observer.ObservedLogs
	ctx    *proxy.Context
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	doc, err := memhost.LoadScene(strings.NewReader(scene))
	require.NoError(t, err)

	store, err := pending.New(context.Background(), pending.DefaultConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	opts = append([]Option{WithLogger(logger)}, opts...)
	return &fixture{
		doc:    doc,
		arm:    doc.Armatures().Get("Armature"),
		rig:    doc.Object("Rig"),
		store:  store,
		syncer: NewSyncer(doc, store, opts...),
		logs:   logs,
		ctx:    proxy.NewContext(logger),
	}
}

func (f *fixture) capture(t *testing.T) *Proxy {
	t.Helper()
	p, err := f.syncer.Capture(f.arm, f.ctx)
	require.NoError(t, err)
	f.doc.ResetTransitions()
	return p
}

func TestLoadCapturesGatedRegion(t *testing.T) {
	f := newFixture(t)
	live := f.arm.Bones()

	p := f.syncer.NewProxy(f.arm.UUID())
	assert.Equal(t, StateUnsynced, p.State())

	got, err := p.Load(f.arm, f.ctx)
	require.NoError(t, err)
	assert.Same(t, p, got)
	assert.Equal(t, StateCaptured, p.State())

	bones, ok := p.Bones()
	require.True(t, ok)
	assert.Equal(t, live, bones)

	v, ok := p.Get("display_type")
	require.True(t, ok)
	assert.Equal(t, "OCTAHEDRAL", v)
	assert.Equal(t, map[string]any{"rig_version": 2}, p.CustomProperties())

	assert.Equal(t, host.ModeObject, f.rig.Mode())
	assert.Equal(t, "Camera", f.doc.ActiveObject().Name())
	assert.Len(t, f.doc.Transitions(), 2)
}

func TestLoadKeepsOwnerMode(t *testing.T) {
	for _, mode := range []host.Mode{host.ModeObject, host.ModePose, host.ModeWeightPaint, host.ModeEdit} {
		t.Run(mode.String(), func(t *testing.T) {
			f := newFixture(t)
			require.NoError(t, f.doc.SetActiveObject(f.rig))
			require.NoError(t, f.doc.SetMode(mode))

			p, err := f.syncer.Capture(f.arm, f.ctx)
			require.NoError(t, err)

			bones, ok := p.Bones()
			require.True(t, ok)
			assert.Equal(t, f.arm.Bones(), bones)
			assert.Equal(t, mode, f.rig.Mode())
			assert.Equal(t, "Rig", f.doc.ActiveObject().Name())
		})
	}
}

func TestLoadWithoutOwner(t *testing.T) {
	f := newFixture(t)
	orphan := f.doc.Armatures().Get("Orphan")

	p := f.syncer.NewProxy(orphan.UUID())
	p.Set(memhost.EditBones, []host.Bone{{Name: "stale"}})

	_, err := p.Load(orphan, f.ctx)
	require.NoError(t, err)

	_, ok := p.Bones()
	assert.False(t, ok)
	assert.Equal(t, []string{"display_type"}, p.Keys())
	assert.Empty(t, f.doc.Transitions())
}

func TestLoadRefused(t *testing.T) {
	f := newFixture(t)
	f.doc.Refuse(host.ModeEdit, errors.New("no edit"))

	p := f.syncer.NewProxy(f.arm.UUID())
	_, err := p.Load(f.arm, f.ctx)
	assert.ErrorIs(t, err, gate.ErrModeTransition)
	assert.Equal(t, StateUnsynced, p.State())
	assert.Equal(t, host.ModeObject, f.rig.Mode())
}

func TestLoadForeignDatablock(t *testing.T) {
	f := newFixture(t)
	p := f.syncer.NewProxy("arm-2")
	_, err := p.Load(f.arm, f.ctx)
	assert.ErrorIs(t, err, proxy.ErrUUIDMismatch)
}

func TestDiffDetectsInsertedBone(t *testing.T) {
	f := newFixture(t)
	p := f.capture(t)
	assert.Equal(t, host.ModeObject, f.rig.Mode())

	f.arm.SetBones(append(f.arm.Bones(), b3))

	d, err := p.Diff(f.arm, memhost.EditBones, f.ctx)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, proxy.OpUpdate, d.Op)
	assert.Equal(t, []proxy.ItemDelta{{Op: proxy.ItemInsert, Index: 2, Bone: b3}}, d.Items)

	assert.Equal(t, host.ModeObject, f.rig.Mode())
	assert.Equal(t, StateCaptured, p.State())

	bones, _ := p.Bones()
	assert.Len(t, bones, 2, "diff must not modify the proxy")
}

func TestDiffUnchanged(t *testing.T) {
	f := newFixture(t)
	p := f.capture(t)

	d, err := p.Diff(f.arm, memhost.EditBones, f.ctx)
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = p.Diff(f.arm, "display_type", f.ctx)
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestDiffOrdinaryAttributeUnguarded(t *testing.T) {
	f := newFixture(t)
	p := f.capture(t)
	require.NoError(t, f.arm.Set("display_type", "BBONE"))

	d, err := p.Diff(f.arm, "display_type", f.ctx)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "BBONE", d.Value)
	assert.Empty(t, f.doc.Transitions())
}

func TestDiffGatedWithoutOwner(t *testing.T) {
	f := newFixture(t)
	p := f.capture(t)
	f.rig.SetData(nil)

	d, err := p.Diff(f.arm, memhost.EditBones, f.ctx)
	require.NoError(t, err)
	assert.Nil(t, d)
	assert.Equal(t, 1, f.logs.FilterMessage("skipping gated diff").FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestDiffAll(t *testing.T) {
	f := newFixture(t)
	p := f.capture(t)

	require.NoError(t, f.arm.Set("display_type", "BBONE"))
	require.NoError(t, f.arm.Set("show_axes", true))
	f.arm.SetBones(append(f.arm.Bones(), b3))

	u, err := p.DiffAll(f.arm, f.ctx)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "arm-1", u.UUID)
	require.Len(t, u.Deltas, 3)
	assert.Equal(t, proxy.OpUpdate, u.Delta("display_type").Op)
	assert.Equal(t, proxy.OpAdd, u.Delta("show_axes").Op)
	assert.Len(t, u.Delta(memhost.EditBones).Items, 1)

	// One guarded section for the whole pass.
	assert.Len(t, f.doc.Transitions(), 2)
	assert.Equal(t, host.ModeObject, f.rig.Mode())

	f.doc.ResetTransitions()
	p2 := f.capture(t)
	u, err = p2.DiffAll(f.arm, f.ctx)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestAdoptAcrossDocuments(t *testing.T) {
	src := newFixture(t)
	dst := newFixture(t)
	dst.arm.SetBones(append(dst.arm.Bones(), b3))

	data, err := codec.EncodeProxy(src.capture(t).Proxy)
	require.NoError(t, err)
	base, err := codec.DecodeProxy(data)
	require.NoError(t, err)

	p := dst.syncer.Adopt(base)
	assert.Equal(t, StateCaptured, p.State())

	u, err := p.DiffAll(dst.arm, dst.ctx)
	require.NoError(t, err)
	require.NotNil(t, u)
	require.Len(t, u.Deltas, 1)
	assert.Equal(t, []proxy.ItemDelta{{Op: proxy.ItemInsert, Index: 2, Bone: b3}}, u.Delta(memhost.EditBones).Items)
	assert.Len(t, dst.doc.Transitions(), 2)
	assert.Empty(t, src.doc.Transitions())
}

func TestApplyIdempotent(t *testing.T) {
	f := newFixture(t)
	p := f.capture(t)

	update := &proxy.Update{UUID: "arm-1", Deltas: []*proxy.Delta{
		{Op: proxy.OpUpdate, Key: "display_type", Value: "ENVELOPE"},
		{Op: proxy.OpUpdate, Key: memhost.EditBones, Items: []proxy.ItemDelta{
			{Op: proxy.ItemInsert, Index: 2, Bone: b3},
		}},
	}}

	_, err := p.Apply(f.arm, f.doc.Armatures(), "Armature", update, f.ctx, true)
	require.NoError(t, err)

	want := []host.Bone{f.arm.Bones()[0], f.arm.Bones()[1], b3}
	assert.Equal(t, want, f.arm.Bones())
	v, _ := f.arm.ReadAttribute("display_type")
	assert.Equal(t, "ENVELOPE", v)
	writes := f.arm.Writes()
	keys := p.Keys()
	bones, _ := p.Bones()

	_, err = p.Apply(f.arm, f.doc.Armatures(), "Armature", update, f.ctx, true)
	require.NoError(t, err)

	assert.Equal(t, writes, f.arm.Writes())
	assert.Equal(t, want, f.arm.Bones())
	assert.Equal(t, keys, p.Keys())
	again, _ := p.Bones()
	assert.Equal(t, bones, again)

	assert.Equal(t, host.ModeObject, f.rig.Mode())
	assert.Equal(t, "Camera", f.doc.ActiveObject().Name())
	assert.Equal(t, StateCaptured, p.State())
}

func TestApplyProxyOnly(t *testing.T) {
	f := newFixture(t)
	p := f.capture(t)
	before := f.arm.Bones()

	update := &proxy.Update{Deltas: []*proxy.Delta{
		{Op: proxy.OpUpdate, Key: memhost.EditBones, Value: []host.Bone{b3}},
	}}
	_, err := p.Apply(f.arm, nil, "Armature", update, f.ctx, false)
	require.NoError(t, err)

	bones, _ := p.Bones()
	assert.Equal(t, []host.Bone{b3}, bones)
	assert.Equal(t, before, f.arm.Bones())
	assert.Len(t, f.doc.Transitions(), 2, "apply is guarded even without write-through")
}

func TestApplyWithoutOwnerUnguarded(t *testing.T) {
	f := newFixture(t)
	orphan := f.doc.Armatures().Get("Orphan")
	p, err := f.syncer.Capture(orphan, f.ctx)
	require.NoError(t, err)

	update := &proxy.Update{Deltas: []*proxy.Delta{
		{Op: proxy.OpUpdate, Key: "display_type", Value: "WIRE"},
	}}
	_, err = p.Apply(orphan, f.doc.Armatures(), "Orphan", update, f.ctx, true)
	require.NoError(t, err)

	v, _ := orphan.ReadAttribute("display_type")
	assert.Equal(t, "WIRE", v)
	assert.Empty(t, f.doc.Transitions())
}

func TestApplyKeyChecks(t *testing.T) {
	f := newFixture(t)
	p := f.capture(t)
	update := &proxy.Update{Deltas: []*proxy.Delta{{Op: proxy.OpUpdate, Key: "display_type", Value: "WIRE"}}}

	_, err := p.Apply(f.arm, nil, "", update, f.ctx, true)
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = p.Apply(f.arm, f.doc.Armatures(), "Spare", update, f.ctx, true)
	assert.ErrorIs(t, err, ErrKeyMismatch)

	_, err = p.Apply(f.arm, f.doc.Armatures(), "Missing", update, f.ctx, true)
	assert.ErrorIs(t, err, ErrKeyMismatch)

	assert.Zero(t, f.arm.Writes())
}

func TestApplyRefusedTransition(t *testing.T) {
	f := newFixture(t)
	p := f.capture(t)
	f.doc.Refuse(host.ModeEdit, errors.New("no edit"))

	update := &proxy.Update{Deltas: []*proxy.Delta{{Op: proxy.OpUpdate, Key: "display_type", Value: "WIRE"}}}
	_, err := p.Apply(f.arm, nil, "Armature", update, f.ctx, true)
	assert.ErrorIs(t, err, gate.ErrModeTransition)
	assert.Zero(t, f.arm.Writes())
	assert.Equal(t, StateCaptured, p.State())
}

func TestSaveRejected(t *testing.T) {
	f := newFixture(t)
	p := f.capture(t)
	f.ctx.PreSave = func(host.Datablock, *proxy.Context) host.Datablock { return nil }

	res, err := p.Save(f.arm, f.ctx)
	require.NoError(t, err)
	assert.True(t, res.Rejected)
	assert.Nil(t, res.Datablock)
	assert.Nil(t, res.Owner)

	assert.Zero(t, f.arm.Writes())
	assert.Zero(t, f.store.Len())
	assert.Equal(t, 1, f.logs.FilterMessage("save rejected by pre-save hook").Len())
	assert.Equal(t, StateCaptured, p.State())
}

func TestSaveStashesGatedRegion(t *testing.T) {
	f := newFixture(t)
	p := f.capture(t)
	captured, _ := p.Bones()

	res, err := p.Save(f.arm, f.ctx)
	require.NoError(t, err)
	assert.False(t, res.Rejected)
	assert.Same(t, f.arm, res.Datablock)
	assert.Same(t, f.rig, res.Owner)

	pendingBones, ok, err := f.store.Peek("arm-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, captured, pendingBones)
	assert.Empty(t, f.doc.Transitions(), "save does not enter the gated mode")
	assert.Equal(t, 0, f.ctx.Visit.Depth())
}

func TestSaveThenApplyGatedRegion(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.doc.SetActiveObject(f.rig))
	require.NoError(t, f.doc.SetMode(host.ModePose))

	p := f.capture(t)
	captured, _ := p.Bones()

	// Local edits after the capture are overwritten by the commit.
	f.arm.SetBones([]host.Bone{b3})

	res, err := p.Save(f.arm, f.ctx)
	require.NoError(t, err)

	commit := f.syncer.ApplyGatedRegion(res.Owner, f.ctx)
	assert.Equal(t, CommitCommitted, commit.Status)
	assert.NoError(t, commit.Err)
	assert.Equal(t, "arm-1", commit.UUID)
	assert.Equal(t, 2, commit.Bones)
	assert.True(t, commit.OK())

	assert.Equal(t, captured, f.arm.Bones())
	assert.Equal(t, host.ModePose, f.rig.Mode())
	assert.Zero(t, f.store.Len())
}

func TestApplyGatedRegionLatestLoadWins(t *testing.T) {
	f := newFixture(t)
	p := f.capture(t)
	_, err := p.Save(f.arm, f.ctx)
	require.NoError(t, err)

	f.arm.SetBones(append(f.arm.Bones(), b3))
	_, err = p.Load(f.arm, f.ctx)
	require.NoError(t, err)
	latest, _ := p.Bones()
	_, err = p.Save(f.arm, f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.Len())

	f.arm.SetBones(nil)
	commit := f.syncer.ApplyGatedRegion(f.rig, f.ctx)
	require.Equal(t, CommitCommitted, commit.Status)
	assert.Equal(t, latest, f.arm.Bones())
}

func TestApplyGatedRegionMissing(t *testing.T) {
	f := newFixture(t)
	before := f.arm.Bones()
	missing := testutil.ToFloat64(metrics.Commits.WithLabelValues(CommitMissing.String()))

	commit := f.syncer.ApplyGatedRegion(f.rig, f.ctx)
	assert.Equal(t, CommitMissing, commit.Status)
	assert.ErrorIs(t, commit.Err, ErrPendingCommitMissing)
	assert.False(t, commit.OK())

	assert.Equal(t, before, f.arm.Bones())
	assert.Empty(t, f.doc.Transitions())
	assert.Equal(t, 1, f.logs.FilterMessage("no pending gated region").FilterLevelExact(zapcore.ErrorLevel).Len())
	assert.Equal(t, missing+1, testutil.ToFloat64(metrics.Commits.WithLabelValues(CommitMissing.String())))
}

func TestApplyGatedRegionEmpty(t *testing.T) {
	f := newFixture(t)
	before := f.arm.Bones()
	require.NoError(t, f.store.Stash("arm-1", []host.Bone{}))

	commit := f.syncer.ApplyGatedRegion(f.rig, f.ctx)
	assert.Equal(t, CommitEmpty, commit.Status)
	assert.NoError(t, commit.Err)
	assert.Equal(t, before, f.arm.Bones())
	assert.Empty(t, f.doc.Transitions())
	assert.Zero(t, f.store.Len())
}

func TestApplyGatedRegionSkipped(t *testing.T) {
	f := newFixture(t)
	commit := f.syncer.ApplyGatedRegion(f.doc.Object("Camera"), f.ctx)
	assert.Equal(t, CommitSkipped, commit.Status)
	assert.Equal(t, CommitSkipped, f.syncer.ApplyGatedRegion(nil, f.ctx).Status)
}

func TestApplyGatedRegionWriteFailure(t *testing.T) {
	for _, requeue := range []bool{false, true} {
		t.Run(map[bool]string{false: "drop", true: "requeue"}[requeue], func(t *testing.T) {
			f := newFixture(t, WithRequeueOnFailure(requeue))
			p := f.capture(t)
			_, err := p.Save(f.arm, f.ctx)
			require.NoError(t, err)

			disk := errors.New("disk full")
			f.arm.FailWrites(disk)

			commit := f.syncer.ApplyGatedRegion(f.rig, f.ctx)
			assert.Equal(t, CommitFailed, commit.Status)
			assert.ErrorIs(t, commit.Err, ErrGatedWrite)
			assert.ErrorIs(t, commit.Err, disk)

			var werr *GatedWriteError
			require.ErrorAs(t, commit.Err, &werr)
			assert.Equal(t, "arm-1", werr.UUID)
			assert.Equal(t, "Rig", werr.Owner)

			assert.Equal(t, host.ModeObject, f.rig.Mode())
			assert.Equal(t, "Camera", f.doc.ActiveObject().Name())
			assert.Equal(t, 1, f.logs.FilterMessage("writing gated region").Len())

			if requeue {
				assert.Equal(t, 1, f.store.Len())
				f.arm.FailWrites(nil)
				assert.Equal(t, CommitCommitted, f.syncer.ApplyGatedRegion(f.rig, f.ctx).Status)
			} else {
				assert.Zero(t, f.store.Len())
			}
		})
	}
}

func TestApplyGatedRegionLeavesStrayEditMode(t *testing.T) {
	f := newFixture(t)
	spare := f.doc.Object("SpareRig")
	p := f.capture(t)
	_, err := p.Save(f.arm, f.ctx)
	require.NoError(t, err)

	require.NoError(t, f.doc.SetActiveObject(spare))
	require.NoError(t, f.doc.SetMode(host.ModeEdit))

	commit := f.syncer.ApplyGatedRegion(f.rig, f.ctx)
	require.Equal(t, CommitCommitted, commit.Status)
	assert.Equal(t, host.ModeObject, spare.Mode())
	assert.Equal(t, host.ModeObject, f.rig.Mode())
	assert.Equal(t, "SpareRig", f.doc.ActiveObject().Name())
}

func TestApplyGatedRegionResolvesReferences(t *testing.T) {
	f := newFixture(t)
	p := f.capture(t)
	_, err := p.Save(f.arm, f.ctx)
	require.NoError(t, err)

	var linked host.Object
	f.ctx.Refs.Add("obj-1", func(obj host.Object) { linked = obj })

	commit := f.syncer.ApplyGatedRegion(f.rig, f.ctx)
	require.Equal(t, CommitCommitted, commit.Status)
	assert.Same(t, f.rig, linked)
	assert.Zero(t, f.ctx.Refs.Len())
}

func TestCommitAll(t *testing.T) {
	f := newFixture(t)
	spareArm := f.doc.Armatures().Get("Spare")
	orphan := f.doc.Armatures().Get("Orphan")

	for _, db := range []*memhost.Armature{f.arm, spareArm, orphan} {
		p, err := f.syncer.Capture(db, f.ctx)
		require.NoError(t, err)
		_, err = p.Save(db, f.ctx)
		require.NoError(t, err)
	}
	// The orphan has no owner, so nothing was captured for its bones.
	assert.Equal(t, 2, f.store.Len())
	require.NoError(t, f.store.Stash("arm-3", orphan.Bones()))

	f.arm.SetBones(nil)
	spareArm.SetBones(nil)

	results := f.syncer.CommitAll(f.ctx)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, CommitCommitted, r.Status, r.Owner)
	}
	assert.Len(t, f.arm.Bones(), 2)
	assert.Len(t, spareArm.Bones(), 1)
	assert.Equal(t, 1, f.store.Len(), "orphan entry stays pending")
	assert.Equal(t, 1, f.logs.FilterMessage("pending gated regions without owner").Len())
}

func TestCommitAllSharedArmature(t *testing.T) {
	f := newFixture(t)
	f.doc.AddObject("RigCopy", "", f.arm)

	p, err := f.syncer.Capture(f.arm, f.ctx)
	require.NoError(t, err)
	_, err = p.Save(f.arm, f.ctx)
	require.NoError(t, err)

	results := f.syncer.CommitAll(f.ctx)
	require.Len(t, results, 1)
	assert.Equal(t, CommitCommitted, results[0].Status)
	assert.Equal(t, "Rig", results[0].Owner)

	shared := f.logs.FilterMessage("armature shared by several objects").All()
	require.Len(t, shared, 1)
	assert.Equal(t, int64(2), shared[0].ContextMap()["objects"])
}

func TestCustomFinder(t *testing.T) {
	f := newFixture(t)
	spare := f.doc.Object("SpareRig")
	calls := 0
	s := NewSyncer(f.doc, f.store, WithFinder(owner.Func(func(db host.Datablock) host.Object {
		calls++
		if db.UUID() == "arm-2" {
			return spare
		}
		return nil
	})))

	p, err := s.Capture(f.doc.Armatures().Get("Spare"), f.ctx)
	require.NoError(t, err)
	_, ok := p.Bones()
	assert.True(t, ok)

	p, err = s.Capture(f.arm, f.ctx)
	require.NoError(t, err)
	_, ok = p.Bones()
	assert.False(t, ok, "finder knows no owner for arm-1")
	assert.Equal(t, 2, calls)
}

func TestOperationMetrics(t *testing.T) {
	f := newFixture(t)
	before := testutil.ToFloat64(metrics.Operations.WithLabelValues("load", metrics.ResultError))

	f.doc.Refuse(host.ModeEdit, errors.New("no edit"))
	_, err := f.syncer.Capture(f.arm, f.ctx)
	require.Error(t, err)

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.Operations.WithLabelValues("load", metrics.ResultError)))
}

func TestDefaultOptions(t *testing.T) {
	f := newFixture(t, WithModes(host.ModeEdit, host.ModeObject), WithGatedAttribute(""))
	o := f.syncer.Options()
	assert.Equal(t, DefaultGatedAttribute, o.GatedAttribute)
	assert.True(t, f.syncer.IsGated("edit_bones"))
	assert.False(t, f.syncer.IsGated("display_type"))
	assert.Same(t, f.store, f.syncer.Store())
	assert.NotNil(t, f.syncer.Guard())
}
