package owner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/rigsync/internal/host"
	"github.com/dshills/rigsync/internal/host/memhost"
)

func TestResolverFind(t *testing.T) {
	doc := memhost.New()
	arm := doc.AddArmature("Armature", "arm-1")
	lonely := doc.AddArmature("Lonely", "arm-2")
	doc.AddObject("Camera", "", nil)
	first := doc.AddObject("Rig", "obj-1", arm)
	second := doc.AddObject("RigCopy", "obj-2", arm)

	r := NewResolver(doc)

	assert.Same(t, first, r.Find(arm))
	assert.Nil(t, r.Find(lonely))
	assert.Nil(t, r.Find(nil))

	all := r.FindAll(arm)
	if assert.Len(t, all, 2) {
		assert.Same(t, first, all[0])
		assert.Same(t, second, all[1])
	}
	assert.Empty(t, r.FindAll(lonely))
}

func TestResolverFollowsRelink(t *testing.T) {
	doc := memhost.New()
	arm := doc.AddArmature("Armature", "")
	rig := doc.AddObject("Rig", "", nil)

	r := NewResolver(doc)
	assert.Nil(t, r.Find(arm))

	rig.SetData(arm)
	assert.Same(t, rig, r.Find(arm))
}

func TestFunc(t *testing.T) {
	doc := memhost.New()
	arm := doc.AddArmature("Armature", "")
	rig := doc.AddObject("Rig", "", arm)

	var f Finder = Func(func(db host.Datablock) host.Object {
		if db.Name() == "Armature" {
			return rig
		}
		return nil
	})
	assert.Same(t, rig, f.Find(arm))
}
