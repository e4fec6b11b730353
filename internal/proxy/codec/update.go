package codec

import (
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/rigsync/internal/proxy"
)

// EncodeDelta encodes a single delta.
func EncodeDelta(d *proxy.Delta) ([]byte, error) {
	out, err := sjson.SetBytes([]byte(`{}`), "op", d.Op.String())
	if err != nil {
		return nil, err
	}
	if out, err = sjson.SetBytes(out, "key", d.Key); err != nil {
		return nil, err
	}
	if d.Op != proxy.OpRemove {
		raw, err := EncodeValue(d.Value)
		if err != nil {
			return nil, fmt.Errorf("encode delta %s: %w", d.Key, err)
		}
		if out, err = sjson.SetRawBytes(out, "value", raw); err != nil {
			return nil, err
		}
	}
	if len(d.Items) == 0 {
		return out, nil
	}
	if out, err = sjson.SetRawBytes(out, "items", []byte(`[]`)); err != nil {
		return nil, err
	}
	for _, it := range d.Items {
		item, err := sjson.SetBytes([]byte(`{}`), "op", it.Op.String())
		if err != nil {
			return nil, err
		}
		if item, err = sjson.SetBytes(item, "index", it.Index); err != nil {
			return nil, err
		}
		if item, err = sjson.SetBytes(item, "bone", it.Bone); err != nil {
			return nil, err
		}
		if out, err = sjson.SetRawBytes(out, "items.-1", item); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DecodeDelta decodes a delta encoded by EncodeDelta.
func DecodeDelta(data []byte) (*proxy.Delta, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrMalformed
	}
	return decodeDelta(gjson.ParseBytes(data))
}

func decodeDelta(r gjson.Result) (*proxy.Delta, error) {
	op, err := proxy.ParseOp(r.Get("op").String())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	d := &proxy.Delta{Op: op, Key: r.Get("key").String()}
	if d.Key == "" {
		return nil, fmt.Errorf("%w: delta without key", ErrMalformed)
	}
	if v := r.Get("value"); v.Exists() {
		if d.Value, err = decodeValue(v); err != nil {
			return nil, fmt.Errorf("decode delta %s: %w", d.Key, err)
		}
	}
	for _, it := range r.Get("items").Array() {
		iop, err := proxy.ParseItemOp(it.Get("op").String())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		d.Items = append(d.Items, proxy.ItemDelta{
			Op:    iop,
			Index: int(it.Get("index").Int()),
			Bone:  decodeBone(it.Get("bone")),
		})
	}
	return d, nil
}

// EncodeUpdate encodes the deltas for one datablock.
func EncodeUpdate(u *proxy.Update) ([]byte, error) {
	out, err := sjson.SetBytes([]byte(`{}`), "uuid", u.UUID)
	if err != nil {
		return nil, err
	}
	if out, err = sjson.SetRawBytes(out, "deltas", []byte(`[]`)); err != nil {
		return nil, err
	}
	for _, d := range u.Deltas {
		raw, err := EncodeDelta(d)
		if err != nil {
			return nil, err
		}
		if out, err = sjson.SetRawBytes(out, "deltas.-1", raw); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// DecodeUpdate decodes an update encoded by EncodeUpdate.
func DecodeUpdate(data []byte) (*proxy.Update, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrMalformed
	}
	root := gjson.ParseBytes(data)
	u := &proxy.Update{UUID: root.Get("uuid").String()}
	for _, r := range root.Get("deltas").Array() {
		d, err := decodeDelta(r)
		if err != nil {
			return nil, err
		}
		u.Deltas = append(u.Deltas, d)
	}
	return u, nil
}
