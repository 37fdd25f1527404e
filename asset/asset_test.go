package asset_test

import (
	"path"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/resman/asset"
)

func writeFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()
	for name, content := range files {
		require.NoError(t, fs.MkdirAll(path.Dir(name), 0o755))
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}
}

func newTestFS(t *testing.T, opts ...asset.FSOption) *asset.FS {
	t.Helper()
	assets := afero.NewMemMapFs()
	userdata := afero.NewMemMapFs()

	writeFiles(t, assets, map[string]string{
		"/image/missing_tex.png":   "missing",
		"/image/brick.png":         "asset brick",
		"/image/walls/stone.png":   "stone",
		"/model/missing_model.dmd": "model",
	})
	writeFiles(t, userdata, map[string]string{
		"/mods/red/brick.png":  "user brick",
		"/mods/blue/grass.png": "grass",
		"/save/slot1.png":      "save",
	})
	return asset.NewFS(assets, userdata, opts...)
}

func TestParsePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"_asset/image/brick.png", "_asset/image/brick.png"},
		{`_asset\image\brick.png`, "_asset/image/brick.png"},
		{"/a//b.png", "a/b.png"},
		{"?/?/b.png", "?/b.png"},
		{"?/*/b.png", "?/b.png"},
		{"*/?/b.png", "?/b.png"},
		{"*/*/b.png", "*/*/b.png"},
		// "e" + combining acute accent is stored as the precomposed form.
		{"cafe\u0301.png", "caf\u00e9.png"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, err := asset.ParsePath(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.String())
		})
	}
}

func TestParsePath_Invalid(t *testing.T) {
	for _, in := range []string{"", "/", "a/?", "a/*", "a/../b.png", "a:b/c.png", "we?rd.png", "x/./y.png"} {
		t.Run(in, func(t *testing.T) {
			_, err := asset.ParsePath(in)
			assert.ErrorIs(t, err, asset.ErrInvalidPath)
		})
	}
}

func TestResPath_Accessors(t *testing.T) {
	p := asset.MustParsePath("_asset/image/brick.png")
	assert.Equal(t, "_asset", p.Namespace())
	assert.True(t, p.IsProtected())
	assert.False(t, p.HasWildcard())
	assert.Equal(t, "_asset/image", p.Dir())
	assert.Equal(t, "brick.png", p.Base())
	assert.Equal(t, []string{"_asset", "image", "brick.png"}, p.Segments())

	var zero asset.ResPath
	assert.False(t, zero.IsValid())
	assert.Equal(t, "", zero.Namespace())

	assert.Panics(t, func() { asset.MustParsePath("") })
}

func TestFS_Resolve(t *testing.T) {
	fs := newTestFS(t)

	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"asset literal", "_asset/image/brick.png", "_asset/image/brick.png", true},
		{"asset any depth", "_asset/?/stone.png", "_asset/image/walls/stone.png", true},
		{"asset one dir", "_asset/*/brick.png", "_asset/image/brick.png", true},
		{"asset one dir too shallow", "_asset/*/stone.png", "", false},
		{"leading any prefers asset", "?/brick.png", "_asset/image/brick.png", true},
		{"leading any falls back to userdata", "?/grass.png", "mods/blue/grass.png", true},
		{"userdata literal", "save/slot1.png", "save/slot1.png", true},
		{"userdata wildcard", "mods/*/brick.png", "mods/red/brick.png", true},
		{"userdata cannot see assets", "image/brick.png", "", false},
		{"missing", "_asset/image/nope.png", "", false},
		{"directory is not a file", "_asset/image/walls", "", false},
		{"namespace only", "_asset/x", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := fs.Resolve(asset.MustParsePath(tt.in))
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got.String())
			}
		})
	}
}

func TestFS_Open(t *testing.T) {
	fs := newTestFS(t)

	f, err := fs.Open(asset.MustParsePath("_asset/image/brick.png"))
	require.NoError(t, err)
	data, err := f.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "asset brick", string(data))

	f, err = fs.Open(asset.MustParsePath("mods/red/brick.png"))
	require.NoError(t, err)
	data, err = f.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "user brick", string(data))

	_, err = fs.Open(asset.MustParsePath("_asset/image/none.png"))
	assert.ErrorIs(t, err, asset.ErrNotFound)

	_, err = fs.Open(asset.MustParsePath("?/brick.png"))
	assert.ErrorIs(t, err, asset.ErrInvalidPath)

	_, err = fs.Open(asset.MustParsePath("_asset/image"))
	assert.ErrorIs(t, err, asset.ErrNotFound)
}

func TestFS_ResolveCache(t *testing.T) {
	fs := newTestFS(t, asset.WithResolveCache(2))

	p := asset.MustParsePath("?/brick.png")
	_, ok := fs.Resolve(p)
	require.True(t, ok)
	_, ok = fs.Resolve(p)
	require.True(t, ok)

	st := fs.CacheStats()
	assert.Equal(t, 1, st.Len)
	assert.Equal(t, uint64(1), st.Hits)
	assert.Equal(t, uint64(1), st.Misses)

	// Failed resolutions are not cached.
	_, ok = fs.Resolve(asset.MustParsePath("nope.png"))
	require.False(t, ok)
	assert.Equal(t, 1, fs.CacheStats().Len)

	// Capacity is enforced by evicting the least recently used entry.
	fs.Resolve(asset.MustParsePath("save/slot1.png"))
	fs.Resolve(asset.MustParsePath("_asset/image/brick.png"))
	assert.Equal(t, 2, fs.CacheStats().Len)

	fs.InvalidateCache()
	assert.Equal(t, 0, fs.CacheStats().Len)
}

func TestFS_NoCache(t *testing.T) {
	fs := newTestFS(t, asset.WithResolveCache(0))
	_, ok := fs.Resolve(asset.MustParsePath("_asset/image/brick.png"))
	assert.True(t, ok)
	assert.Equal(t, asset.CacheStats{}, fs.CacheStats())
}

func TestFS_NilRoots(t *testing.T) {
	fs := asset.NewFS(nil, nil)
	_, ok := fs.Resolve(asset.MustParsePath("?/a.png"))
	assert.False(t, ok)
}
