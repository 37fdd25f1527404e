package main

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/gogpu/resman/decode"
	"github.com/gogpu/resman/render"
)

type dirs struct {
	assets   string
	userdata string
}

func newDirs(t *testing.T) dirs {
	t.Helper()
	root := t.TempDir()
	d := dirs{assets: filepath.Join(root, "assets"), userdata: filepath.Join(root, "userdata")}
	require.NoError(t, os.MkdirAll(d.assets, 0o755))
	require.NoError(t, os.MkdirAll(d.userdata, 0o755))

	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(filepath.Join(d.userdata, "brick.png"), buf.Bytes(), 0o644))

	model, err := decode.EncodeModel(&decode.ParsedModel{
		UnitsIndexed: []decode.IndexedUnit{{
			Name: "hull",
			Vertices: []decode.ParsedVertex{
				{Position: [3]float32{0, 0, 0}},
				{Position: [3]float32{1, 0, 0}},
				{Position: [3]float32{0, 1, 0}},
			},
			Indices: []uint32{0, 1, 2},
		}},
		Skeleton: decode.ParsedSkeleton{
			Joints: []decode.ParsedJoint{{Name: "root", Parent: -1, Offset: render.Identity()}},
		},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(d.userdata, "ship.dmd"), model, 0o644))
	return d
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, logs bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &logs
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.Run(append([]string{"resload"}, args...))
	return out.String(), err
}

func states(out string) map[string]string {
	got := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		f := strings.Fields(line)
		if len(f) == 3 {
			got[f[2]] = f[1]
		}
	}
	return got
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var ec cli.ExitCoder
	require.True(t, errors.As(err, &ec), "expected an exit error, got %v", err)
	return ec.ExitCode()
}

func TestLoadReady(t *testing.T) {
	d := newDirs(t)
	out, err := runApp(t, "--assets", d.assets, "--userdata", d.userdata, "--backend", "headless",
		"brick.png", "ship.dmd", "?/brick.png")
	require.NoError(t, err, out)

	got := states(out)
	assert.Equal(t, "ready", got["brick.png"])
	assert.Equal(t, "ready", got["ship.dmd"])
	assert.Equal(t, "ready", got["?/brick.png"])
	assert.Contains(t, out, "backend=headless")
	assert.Contains(t, out, "textures=1", "both spellings share one texture")
}

func TestLoadSkinned(t *testing.T) {
	d := newDirs(t)
	out, err := runApp(t, "--assets", d.assets, "--userdata", d.userdata, "--backend", "headless",
		"--skinned", "--slow", "3", "ship.dmd")
	require.NoError(t, err, out)
	assert.Contains(t, out, "skinned-model")
	assert.Equal(t, "ready", states(out)["ship.dmd"])
}

func TestLoadMissing(t *testing.T) {
	d := newDirs(t)
	out, err := runApp(t, "--assets", d.assets, "--userdata", d.userdata, "--backend", "headless",
		"brick.png", "missing.png")
	require.Error(t, err)
	assert.Equal(t, 1, exitCode(t, err))
	assert.Contains(t, err.Error(), "1 of 2")
	assert.Equal(t, "not-ready", states(out)["missing.png"])
}

func TestLoadConfigFile(t *testing.T) {
	d := newDirs(t)
	cfgPath := filepath.Join(t.TempDir(), "resman.hcl")
	src := `
scheduler { workers = 1 }
assets {
  asset_root    = "` + d.assets + `"
  userdata_root = "` + d.userdata + `"
}
log { level = "debug" }
renderer {
  backend       = "headless"
  prepare_steps = 3
}
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(src), 0o644))

	out, err := runApp(t, "--config", cfgPath, "ship.dmd")
	require.NoError(t, err, out)
	assert.Equal(t, "ready", states(out)["ship.dmd"])
}

func TestLoadErrors(t *testing.T) {
	d := newDirs(t)

	_, err := runApp(t)
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(t, err))

	_, err = runApp(t, "--workers", "0", "brick.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheduler.workers")

	_, err = runApp(t, "--assets", d.assets, "--userdata", d.userdata, "--backend", "vulkan9", "brick.png")
	require.ErrorIs(t, err, render.ErrBackendNotAvailable)

	_, err = runApp(t, "--config", filepath.Join(d.assets, "nope.hcl"), "brick.png")
	assert.Error(t, err)
}
