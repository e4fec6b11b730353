package proxy

import (
	"fmt"
	"sort"

	"github.com/dshills/rigsync/internal/host"
)

// Op is the kind of change a Delta describes.
type Op int

const (
	// OpUpdate replaces an existing attribute value.
	OpUpdate Op = iota
	// OpAdd introduces an attribute that was absent.
	OpAdd
	// OpRemove drops an attribute.
	OpRemove
)

// String returns the operation name.
func (op Op) String() string {
	switch op {
	case OpUpdate:
		return "update"
	case OpAdd:
		return "add"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// ParseOp parses an operation name.
func ParseOp(s string) (Op, error) {
	switch s {
	case "update":
		return OpUpdate, nil
	case "add":
		return OpAdd, nil
	case "remove":
		return OpRemove, nil
	default:
		return 0, fmt.Errorf("unknown delta op %q", s)
	}
}

// ItemOp is the kind of change to one bone of a sequence.
type ItemOp int

const (
	// ItemInsert adds a bone at Index.
	ItemInsert ItemOp = iota
	// ItemUpdate replaces the bone with the same name.
	ItemUpdate
	// ItemRemove drops the bone with the same name.
	ItemRemove
)

// String returns the item operation name.
func (op ItemOp) String() string {
	switch op {
	case ItemInsert:
		return "insert"
	case ItemUpdate:
		return "update"
	case ItemRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// ParseItemOp parses an item operation name.
func ParseItemOp(s string) (ItemOp, error) {
	switch s {
	case "insert":
		return ItemInsert, nil
	case "update":
		return ItemUpdate, nil
	case "remove":
		return ItemRemove, nil
	default:
		return 0, fmt.Errorf("unknown item op %q", s)
	}
}

// ItemDelta is a change to one bone of a sequence.
type ItemDelta struct {
	Op    ItemOp
	Index int
	Bone  host.Bone
}

// Delta describes a change to one attribute. Deltas are not modified after
// creation; Apply works on copies.
type Delta struct {
	Op  Op
	Key string

	// Value is the new attribute value for OpAdd and OpUpdate.
	Value any

	// Items holds per-bone changes when both sides are bone sequences.
	Items []ItemDelta
}

// Update groups the deltas for one datablock.
type Update struct {
	UUID   string
	Deltas []*Delta
}

// Empty reports whether u carries no change.
func (u *Update) Empty() bool {
	return u == nil || len(u.Deltas) == 0
}

// Delta returns the delta for key, or nil.
func (u *Update) Delta(key string) *Delta {
	if u == nil {
		return nil
	}
	for _, d := range u.Deltas {
		if d.Key == key {
			return d
		}
	}
	return nil
}

// diffValue compares a captured value with a live one. It returns nil when
// they are equal.
func diffValue(key string, old any, hasOld bool, live any, hasLive bool) *Delta {
	switch {
	case !hasOld && !hasLive:
		return nil
	case !hasLive:
		return &Delta{Op: OpRemove, Key: key}
	case !hasOld:
		return &Delta{Op: OpAdd, Key: key, Value: CloneValue(live)}
	case Equal(old, live):
		return nil
	}

	d := &Delta{Op: OpUpdate, Key: key, Value: CloneValue(live)}
	oldBones, ok1 := old.([]host.Bone)
	liveBones, ok2 := live.([]host.Bone)
	if ok1 && ok2 {
		// Items matched by name cannot express a reordering; fall back to
		// the whole value when they do not reproduce live.
		items := diffBones(oldBones, liveBones)
		if host.EqualBones(applyBones(oldBones, items), liveBones) {
			d.Items = items
		}
	}
	return d
}

// diffBones lists the item changes turning old into live, bones being
// matched by name.
func diffBones(old, live []host.Bone) []ItemDelta {
	var items []ItemDelta
	for _, b := range old {
		if host.IndexBone(live, b.Name) < 0 {
			items = append(items, ItemDelta{Op: ItemRemove, Index: host.IndexBone(old, b.Name), Bone: b})
		}
	}
	for i, b := range live {
		j := host.IndexBone(old, b.Name)
		switch {
		case j < 0:
			items = append(items, ItemDelta{Op: ItemInsert, Index: i, Bone: b})
		case old[j] != b:
			items = append(items, ItemDelta{Op: ItemUpdate, Index: i, Bone: b})
		}
	}
	return items
}

// applyDelta returns the value resulting from applying d to current.
// The boolean result is false when the attribute ends up absent.
func applyDelta(current any, has bool, d *Delta) (any, bool) {
	if d.Op == OpRemove {
		return nil, false
	}
	bones, ok := current.([]host.Bone)
	if has && ok && len(d.Items) > 0 {
		return applyBones(bones, d.Items), true
	}
	return CloneValue(d.Value), true
}

// applyBones applies item changes by bone name. Removals run first, then
// inserts and updates in index order.
func applyBones(bones []host.Bone, items []ItemDelta) []host.Bone {
	out := host.CloneBones(bones)

	for _, it := range items {
		if it.Op != ItemRemove {
			continue
		}
		if i := host.IndexBone(out, it.Bone.Name); i >= 0 {
			out = append(out[:i], out[i+1:]...)
		}
	}

	rest := make([]ItemDelta, 0, len(items))
	for _, it := range items {
		if it.Op != ItemRemove {
			rest = append(rest, it)
		}
	}
	sort.SliceStable(rest, func(a, b int) bool { return rest[a].Index < rest[b].Index })

	for _, it := range rest {
		if i := host.IndexBone(out, it.Bone.Name); i >= 0 {
			out[i] = it.Bone
			continue
		}
		at := it.Index
		if at < 0 || at > len(out) {
			at = len(out)
		}
		out = append(out, host.Bone{})
		copy(out[at+1:], out[at:])
		out[at] = it.Bone
	}
	return out
}
