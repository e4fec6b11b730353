package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/dshills/rigsync/internal/host"
	"github.com/dshills/rigsync/internal/proxy"
)

var bones = []host.Bone{
	{Name: "root", Tail: [3]float64{0, 0, 1}, Deform: true},
	{Name: "spine", Parent: "root", Head: [3]float64{0, 0, 1}, Tail: [3]float64{0, 0.5, 2}, Roll: 0.25, Connected: true},
}

func TestProxyRoundTrip(t *testing.T) {
	p := proxy.New("arm-1")
	p.Set("display_type", "OCTAHEDRAL")
	p.Set("show_names", true)
	p.Set("scale", []float64{1, 2, 3})
	p.Set("edit_bones", bones)
	p.Set("layers.visible", 3.0)
	p.SetCustomProperties(map[string]any{"rig": "biped"})

	data, err := EncodeProxy(p)
	require.NoError(t, err)
	assert.Equal(t, "bones", gjson.GetBytes(data, `data.edit_bones.type`).String())
	assert.Equal(t, 3.0, gjson.GetBytes(data, `data.layers\.visible.value`).Float())

	got, err := DecodeProxy(data)
	require.NoError(t, err)
	assert.Equal(t, p.UUID(), got.UUID())
	assert.Equal(t, p.Keys(), got.Keys())
	for _, k := range p.Keys() {
		want, _ := p.Get(k)
		have, _ := got.Get(k)
		assert.Equal(t, want, have, k)
	}
	assert.Equal(t, map[string]any{"rig": "biped"}, got.CustomProperties())
}

func TestBonesEmptyIsNotNil(t *testing.T) {
	data, err := EncodeBones(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))

	got, err := DecodeBones(data)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestUpdateRoundTrip(t *testing.T) {
	u := &proxy.Update{UUID: "arm-1", Deltas: []*proxy.Delta{
		{Op: proxy.OpUpdate, Key: "edit_bones", Value: bones, Items: []proxy.ItemDelta{
			{Op: proxy.ItemInsert, Index: 1, Bone: bones[1]},
		}},
		{Op: proxy.OpRemove, Key: "show_names"},
		{Op: proxy.OpAdd, Key: "pose_position", Value: "REST"},
	}}

	data, err := EncodeUpdate(u)
	require.NoError(t, err)

	got, err := DecodeUpdate(data)
	require.NoError(t, err)
	assert.Equal(t, u, got)
}

func TestDecodeMalformed(t *testing.T) {
	_, err := DecodeProxy([]byte(`{"data":`))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeProxy([]byte(`{"data":{}}`))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeValue([]byte(`{"type":"matrix","value":1}`))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeBones([]byte(`{"name":"root"}`))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = DecodeDelta([]byte(`{"op":"move","key":"x"}`))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestEncodeValueUnsupported(t *testing.T) {
	_, err := EncodeValue(struct{}{})
	assert.Error(t, err)
}
