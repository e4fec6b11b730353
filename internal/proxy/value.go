package proxy

import (
	"reflect"

	"github.com/dshills/rigsync/internal/host"
)

// CloneValue returns a deep copy of an attribute or custom property value.
func CloneValue(v any) any {
	switch val := v.(type) {
	case []float64:
		out := make([]float64, len(val))
		copy(out, val)
		return out
	case []host.Bone:
		return host.CloneBones(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = CloneValue(item)
		}
		return out
	case map[string]any:
		return CloneMap(val)
	default:
		return val
	}
}

// CloneMap returns a deep copy of m.
func CloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = CloneValue(v)
	}
	return out
}

// Equal reports whether two attribute values are equal.
func Equal(a, b any) bool {
	ab, aok := a.([]host.Bone)
	bb, bok := b.([]host.Bone)
	if aok && bok {
		return host.EqualBones(ab, bb)
	}
	return reflect.DeepEqual(a, b)
}
