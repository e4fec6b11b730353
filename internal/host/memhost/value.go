package memhost

import (
	"fmt"

	"github.com/dshills/rigsync/internal/host"
)

// normalize converts decoded scene values into the attribute value set
// documented in package host.
func normalize(v any) (any, error) {
	switch val := v.(type) {
	case nil, bool, float64, string:
		return val, nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case float32:
		return float64(val), nil
	case []float64:
		out := make([]float64, len(val))
		copy(out, val)
		return out, nil
	case []host.Bone:
		return host.CloneBones(val), nil
	case []any:
		out := make([]float64, len(val))
		for i, item := range val {
			n, err := normalize(item)
			if err != nil {
				return nil, err
			}
			f, ok := n.(float64)
			if !ok {
				return nil, fmt.Errorf("%w: vector element %T", host.ErrInvalidValue, item)
			}
			out[i] = f
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T", host.ErrInvalidValue, v)
	}
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case []float64:
		out := make([]float64, len(val))
		copy(out, val)
		return out
	case []host.Bone:
		return host.CloneBones(val)
	default:
		return val
	}
}

func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		switch val := v.(type) {
		case map[string]any:
			dst[k] = cloneMap(val)
		case []any:
			items := make([]any, len(val))
			copy(items, val)
			dst[k] = items
		default:
			dst[k] = val
		}
	}
	return dst
}
