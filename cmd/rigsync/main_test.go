package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/dshills/rigsync/internal/host"
	"github.com/dshills/rigsync/internal/host/memhost"
)

const srcScene = `
active: Camera
armatures:
  - name: Armature
    uuid: arm-1
    attributes:
      display_type: BBONE
    edit_bones:
      - {name: b1, head: [0, 0, 0], tail: [0, 0, 1]}
      - {name: b2, parent: b1, head: [0, 0, 1], tail: [0, 0, 2], use_connect: true}
      - {name: b3, parent: b2, head: [0, 0, 2], tail: [0, 0, 3], use_connect: true}
objects:
  - name: Camera
  - name: Rig
    uuid: obj-1
    data: Armature
`

const dstScene = `
active: Camera
armatures:
  - name: Armature
    uuid: arm-1
    attributes:
      display_type: OCTAHEDRAL
    edit_bones:
      - {name: b1, head: [0, 0, 0], tail: [0, 0, 1]}
      - {name: b2, parent: b1, head: [0, 0, 1], tail: [0, 0, 2], use_connect: true}
objects:
  - name: Camera
  - name: Rig
    uuid: obj-1
    data: Armature
    mode: POSE
`

const otherScene = `
armatures:
  - name: Other
    uuid: arm-9
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestCapture(t *testing.T) {
	out, _, err := execute(t, "capture", writeFile(t, "src.yaml", srcScene))
	require.NoError(t, err)

	require.True(t, gjson.Valid(out), out)
	assert.Equal(t, int64(1), gjson.Get(out, "#").Int())
	assert.Equal(t, "arm-1", gjson.Get(out, "0.uuid").String())
	assert.Equal(t, "BBONE", gjson.Get(out, "0.data.display_type.value").String())
	assert.Equal(t, "bones", gjson.Get(out, "0.data.edit_bones.type").String())
	assert.Equal(t, int64(3), gjson.Get(out, "0.data.edit_bones.value.#").Int())
}

func TestCaptureLogsHostModeChanges(t *testing.T) {
	_, errOut, err := execute(t, "--log-level", "debug", "capture", writeFile(t, "src.yaml", srcScene))
	require.NoError(t, err)
	assert.Contains(t, errOut, "host mode changed")
	assert.Contains(t, errOut, `"to": "EDIT"`)
}

func TestCaptureMissingScene(t *testing.T) {
	_, _, err := execute(t, "capture", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDiff(t *testing.T) {
	src := writeFile(t, "src.yaml", srcScene)
	dst := writeFile(t, "dst.yaml", dstScene)

	out, _, err := execute(t, "diff", dst, src)
	require.NoError(t, err)
	require.True(t, gjson.Valid(out), out)

	assert.Equal(t, int64(1), gjson.Get(out, "#").Int())
	assert.Equal(t, "arm-1", gjson.Get(out, "0.uuid").String())
	assert.Equal(t, int64(2), gjson.Get(out, "0.deltas.#").Int())

	display := gjson.Get(out, `0.deltas.#(key=="display_type")`)
	assert.Equal(t, "update", display.Get("op").String())
	assert.Equal(t, "BBONE", display.Get("value.value").String())

	bones := gjson.Get(out, `0.deltas.#(key=="edit_bones")`)
	assert.Equal(t, "insert", bones.Get("items.0.op").String())
	assert.Equal(t, int64(2), bones.Get("items.0.index").Int())
	assert.Equal(t, "b3", bones.Get("items.0.bone.name").String())
}

func TestDiffUnchanged(t *testing.T) {
	src := writeFile(t, "src.yaml", srcScene)

	out, _, err := execute(t, "diff", src, src)
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(out))
}

func TestDiffMissingArmature(t *testing.T) {
	src := writeFile(t, "src.yaml", srcScene)
	other := writeFile(t, "other.yaml", otherScene)

	out, errOut, err := execute(t, "diff", src, other)
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(out))
	assert.Contains(t, errOut, "armature missing from target scene")
}

func TestReplay(t *testing.T) {
	src := writeFile(t, "src.yaml", srcScene)
	dst := writeFile(t, "dst.yaml", dstScene)

	out, errOut, err := execute(t, "replay", src, dst)
	require.NoError(t, err)
	assert.Contains(t, errOut, "committed arm-1 owner=Rig bones=3")

	doc, err := memhost.LoadScene(strings.NewReader(out))
	require.NoError(t, err)
	want, err := memhost.LoadScene(strings.NewReader(srcScene))
	require.NoError(t, err)

	arm := doc.Armatures().ByUUID("arm-1")
	require.NotNil(t, arm)
	assert.Equal(t, want.Armatures().ByUUID("arm-1").Bones(), arm.Bones())

	v, err := arm.ReadAttribute("display_type")
	require.NoError(t, err)
	assert.Equal(t, "BBONE", v)

	assert.Equal(t, host.ModePose, doc.Object("Rig").Mode())
	assert.Equal(t, "Camera", doc.ActiveObject().Name())
}

func TestReplayReorderedBones(t *testing.T) {
	reordered := strings.Replace(srcScene, `      - {name: b1, head: [0, 0, 0], tail: [0, 0, 1]}
      - {name: b2, parent: b1, head: [0, 0, 1], tail: [0, 0, 2], use_connect: true}
`, `      - {name: b2, parent: b1, head: [0, 0, 1], tail: [0, 0, 2], use_connect: true}
      - {name: b1, head: [0, 0, 0], tail: [0, 0, 1]}
`, 1)
	require.NotEqual(t, srcScene, reordered)
	src := writeFile(t, "src.yaml", reordered)
	dst := writeFile(t, "dst.yaml", dstScene)

	out, _, err := execute(t, "replay", src, dst)
	require.NoError(t, err)

	doc, err := memhost.LoadScene(strings.NewReader(out))
	require.NoError(t, err)
	want, err := memhost.LoadScene(strings.NewReader(reordered))
	require.NoError(t, err)
	assert.Equal(t, want.Armatures().ByUUID("arm-1").Bones(), doc.Armatures().ByUUID("arm-1").Bones())
}

func TestReplayUnchanged(t *testing.T) {
	dst := writeFile(t, "dst.yaml", dstScene)

	out, errOut, err := execute(t, "replay", dst, dst)
	require.NoError(t, err)
	assert.NotContains(t, errOut, "committed")

	doc, err := memhost.LoadScene(strings.NewReader(out))
	require.NoError(t, err)
	assert.Len(t, doc.Armatures().ByUUID("arm-1").Bones(), 2)
}

func TestConfigSources(t *testing.T) {
	cfgPath := writeFile(t, "rigsync.toml", "[pending]\nshards = 8\n")

	out, _, err := execute(t, "config", "--sources", "--config", cfgPath, "--log-level", "debug")
	require.NoError(t, err)
	assert.Contains(t, out, "logging.level = debug (flags)\n")
	assert.Contains(t, out, "pending.shards = 8 (file)\n")
	assert.Contains(t, out, "sync.gatedMode = EDIT (defaults)\n")
}

func TestConfigTOML(t *testing.T) {
	out, _, err := execute(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "[sync]")
	assert.Contains(t, out, "gatedAttribute = ")
	assert.Contains(t, out, "edit_bones")
}

func TestInvalidConfig(t *testing.T) {
	_, _, err := execute(t, "config", "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestMetricsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.prom")

	_, _, err := execute(t, "--metrics-file", path, "capture", writeFile(t, "src.yaml", srcScene))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "rigsync_gate_mode_transitions")
	assert.Contains(t, string(data), `rigsync_rig_operations{op="load",result="ok"}`)
}
