// Package codec encodes proxies, updates and bone sequences as JSON.
//
// Attribute values are wrapped in a typed envelope so that decoding
// restores the exact Go types the host works with:
//
//	{"type": "vector", "value": [1, 2, 3]}
//	{"type": "bones", "value": [{"name": "root", "head": [0, 0, 0], ...}]}
package codec

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/rigsync/internal/host"
	"github.com/dshills/rigsync/internal/proxy"
)

// ErrMalformed indicates input that is not a valid encoding.
var ErrMalformed = errors.New("malformed encoding")

// Value type tags.
const (
	typeNull   = "null"
	typeBool   = "bool"
	typeNumber = "number"
	typeString = "string"
	typeVector = "vector"
	typeBones  = "bones"
	typeMap    = "map"
	typeList   = "list"
)

// EncodeValue encodes an attribute value in its typed envelope.
func EncodeValue(v any) ([]byte, error) {
	var (
		tag string
		raw []byte
		err error
	)
	switch val := v.(type) {
	case nil:
		tag, raw = typeNull, []byte("null")
	case bool:
		tag = typeBool
	case float64, int, int64:
		tag = typeNumber
	case string:
		tag = typeString
	case []float64:
		tag = typeVector
	case []host.Bone:
		tag = typeBones
		raw, err = EncodeBones(val)
		if err != nil {
			return nil, err
		}
	case map[string]any:
		tag = typeMap
	case []any:
		tag = typeList
	default:
		return nil, fmt.Errorf("encode value: unsupported type %T", v)
	}

	out, err := sjson.SetBytes([]byte(`{}`), "type", tag)
	if err != nil {
		return nil, err
	}
	if raw != nil {
		return sjson.SetRawBytes(out, "value", raw)
	}
	return sjson.SetBytes(out, "value", v)
}

// DecodeValue decodes a typed envelope.
func DecodeValue(data []byte) (any, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrMalformed
	}
	return decodeValue(gjson.ParseBytes(data))
}

func decodeValue(r gjson.Result) (any, error) {
	v := r.Get("value")
	switch tag := r.Get("type").String(); tag {
	case typeNull:
		return nil, nil
	case typeBool:
		return v.Bool(), nil
	case typeNumber:
		return v.Float(), nil
	case typeString:
		return v.String(), nil
	case typeVector:
		if !v.IsArray() {
			return nil, fmt.Errorf("%w: vector is not an array", ErrMalformed)
		}
		arr := v.Array()
		out := make([]float64, len(arr))
		for i, item := range arr {
			out[i] = item.Float()
		}
		return out, nil
	case typeBones:
		return decodeBones(v)
	case typeMap:
		m, ok := v.Value().(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: map is not an object", ErrMalformed)
		}
		return m, nil
	case typeList:
		l, ok := v.Value().([]any)
		if !ok {
			return nil, fmt.Errorf("%w: list is not an array", ErrMalformed)
		}
		return l, nil
	default:
		return nil, fmt.Errorf("%w: unknown value type %q", ErrMalformed, tag)
	}
}

// EncodeBones encodes a bone sequence as a JSON array.
func EncodeBones(bones []host.Bone) ([]byte, error) {
	out := []byte(`{"bones":[]}`)
	for _, b := range bones {
		var err error
		out, err = sjson.SetBytes(out, "bones.-1", b)
		if err != nil {
			return nil, fmt.Errorf("encode bone %s: %w", b.Name, err)
		}
	}
	return []byte(gjson.GetBytes(out, "bones").Raw), nil
}

// DecodeBones decodes a JSON array of bones. An empty array yields an
// empty, non-nil slice.
func DecodeBones(data []byte) ([]host.Bone, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrMalformed
	}
	return decodeBones(gjson.ParseBytes(data))
}

func decodeBones(r gjson.Result) ([]host.Bone, error) {
	if !r.IsArray() {
		return nil, fmt.Errorf("%w: bones is not an array", ErrMalformed)
	}
	bones := make([]host.Bone, 0)
	var err error
	r.ForEach(func(_, b gjson.Result) bool {
		if !b.IsObject() {
			err = fmt.Errorf("%w: bone is not an object", ErrMalformed)
			return false
		}
		bones = append(bones, decodeBone(b))
		return true
	})
	if err != nil {
		return nil, err
	}
	return bones, nil
}

func decodeBone(b gjson.Result) host.Bone {
	return host.Bone{
		Name:      b.Get("name").String(),
		Parent:    b.Get("parent").String(),
		Head:      vec3(b.Get("head")),
		Tail:      vec3(b.Get("tail")),
		Roll:      b.Get("roll").Float(),
		Connected: b.Get("use_connect").Bool(),
		Deform:    b.Get("use_deform").Bool(),
	}
}

func vec3(r gjson.Result) [3]float64 {
	var v [3]float64
	for i, item := range r.Array() {
		if i >= len(v) {
			break
		}
		v[i] = item.Float()
	}
	return v
}

// pathEscaper escapes the characters gjson and sjson treat as path syntax.
var pathEscaper = strings.NewReplacer(
	`\`, `\\`,
	`.`, `\.`,
	`*`, `\*`,
	`?`, `\?`,
	`|`, `\|`,
	`#`, `\#`,
	`@`, `\@`,
)

func escapeKey(key string) string {
	return pathEscaper.Replace(key)
}

// EncodeProxy encodes the captured attributes and custom properties of p.
func EncodeProxy(p *proxy.Proxy) ([]byte, error) {
	out, err := sjson.SetBytes([]byte(`{}`), "uuid", p.UUID())
	if err != nil {
		return nil, err
	}
	out, err = sjson.SetRawBytes(out, "data", []byte(`{}`))
	if err != nil {
		return nil, err
	}
	for _, k := range p.Keys() {
		v, _ := p.Get(k)
		raw, err := EncodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", k, err)
		}
		out, err = sjson.SetRawBytes(out, "data."+escapeKey(k), raw)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", k, err)
		}
	}
	return sjson.SetBytes(out, "custom", p.CustomProperties())
}

// DecodeProxy decodes a proxy encoded by EncodeProxy.
func DecodeProxy(data []byte) (*proxy.Proxy, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrMalformed
	}
	root := gjson.ParseBytes(data)
	uuid := root.Get("uuid")
	if !uuid.Exists() {
		return nil, fmt.Errorf("%w: missing uuid", ErrMalformed)
	}

	p := proxy.New(uuid.String())
	var err error
	root.Get("data").ForEach(func(k, v gjson.Result) bool {
		var val any
		val, err = decodeValue(v)
		if err != nil {
			err = fmt.Errorf("decode %s: %w", k.String(), err)
			return false
		}
		p.Set(k.String(), val)
		return true
	})
	if err != nil {
		return nil, err
	}

	if custom, ok := root.Get("custom").Value().(map[string]any); ok {
		p.SetCustomProperties(custom)
	}
	return p, nil
}
