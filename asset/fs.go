package asset

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// DefaultResolveCacheSize is the resolve cache capacity used by NewFS.
const DefaultResolveCacheSize = 256

// FS is a Store over two afero filesystems.
//
// Paths whose namespace is "_asset" are served from the asset root with the
// namespace stripped. Paths starting with "?" are looked up in the asset
// root first, then in the userdata root. Everything else is served from
// the userdata root as-is.
//
// FS is safe for concurrent use.
type FS struct {
	asset    afero.Fs
	userdata afero.Fs
	cache    *resolveCache
}

// FSOption configures an FS.
type FSOption func(*FS)

// WithResolveCache sets the resolve cache capacity. Zero disables caching.
func WithResolveCache(size int) FSOption {
	return func(f *FS) {
		if size <= 0 {
			f.cache = nil
			return
		}
		f.cache = newResolveCache(size)
	}
}

// NewFS returns a store over the given roots. A nil root is replaced by an
// empty read-only filesystem.
func NewFS(assetRoot, userdataRoot afero.Fs, opts ...FSOption) *FS {
	if assetRoot == nil {
		assetRoot = afero.NewReadOnlyFs(afero.NewMemMapFs())
	}
	if userdataRoot == nil {
		userdataRoot = afero.NewReadOnlyFs(afero.NewMemMapFs())
	}
	f := &FS{
		asset:    assetRoot,
		userdata: userdataRoot,
		cache:    newResolveCache(DefaultResolveCacheSize),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// NewOsFS returns a store over two host directories. The asset root is
// opened read-only.
func NewOsFS(assetDir, userdataDir string, opts ...FSOption) *FS {
	osFs := afero.NewOsFs()
	assetRoot := afero.NewReadOnlyFs(afero.NewBasePathFs(osFs, assetDir))
	userdataRoot := afero.NewBasePathFs(osFs, userdataDir)
	return NewFS(assetRoot, userdataRoot, opts...)
}

// Resolve implements Store.
func (f *FS) Resolve(p ResPath) (ResPath, bool) {
	if !p.IsValid() {
		return ResPath{}, false
	}

	key := p.String()
	if f.cache != nil {
		if r, ok := f.cache.Get(key); ok {
			return r, true
		}
	}

	r, ok := f.resolve(p)
	if ok && f.cache != nil {
		f.cache.Set(key, r)
	}
	return r, ok
}

// InvalidateCache forgets every cached resolution. Call it after files
// were added or removed underneath the store.
func (f *FS) InvalidateCache() {
	if f.cache != nil {
		f.cache.Clear()
	}
}

// CacheStats returns resolve cache statistics.
func (f *FS) CacheStats() CacheStats {
	if f.cache == nil {
		return CacheStats{}
	}
	return f.cache.Stats()
}

func (f *FS) resolve(p ResPath) (ResPath, bool) {
	segs := p.segs
	switch segs[0] {
	case NamespaceAsset:
		return resolveIn(f.asset, segs[1:], NamespaceAsset)
	case AnyDepth:
		if r, ok := resolveIn(f.asset, segs, NamespaceAsset); ok {
			return r, true
		}
		return resolveIn(f.userdata, segs, "")
	default:
		return resolveIn(f.userdata, segs, "")
	}
}

// Open implements Store. Wildcard paths must be resolved first.
func (f *FS) Open(p ResPath) (File, error) {
	if !p.IsValid() || p.HasWildcard() {
		return nil, fmt.Errorf("%w: %q is not a resolved path", ErrInvalidPath, p.String())
	}

	root, rel := f.userdata, p.segs
	if p.Namespace() == NamespaceAsset {
		root, rel = f.asset, p.segs[1:]
	}
	if len(rel) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, p.String())
	}

	name := "/" + strings.Join(rel, "/")
	info, err := root.Stat(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, p.String())
		}
		return nil, fmt.Errorf("asset: stat %q: %w", p.String(), err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %q is a directory", ErrNotFound, p.String())
	}
	return &aferoFile{fs: root, name: name, display: p.String()}, nil
}

// aferoFile reads lazily so that Open stays cheap on the coordinator.
type aferoFile struct {
	fs      afero.Fs
	name    string
	display string
}

func (a *aferoFile) ReadAll() ([]byte, error) {
	data, err := afero.ReadFile(a.fs, a.name)
	if err != nil {
		return nil, fmt.Errorf("asset: read %q: %w", a.display, err)
	}
	return data, nil
}

// resolveIn walks segs inside root and returns the first match, with
// prefix prepended to the result. Directories are visited in lexical order.
// Root-relative names are kept absolute ("/image/a.png") inside the walk.
func resolveIn(root afero.Fs, segs []string, prefix string) (ResPath, bool) {
	if len(segs) == 0 {
		return ResPath{}, false
	}
	rel, ok := walk(root, "/", segs)
	if !ok {
		return ResPath{}, false
	}

	out := strings.Split(strings.TrimPrefix(rel, "/"), "/")
	if prefix != "" {
		out = append([]string{prefix}, out...)
	}
	return ResPath{segs: out}, true
}

func walk(root afero.Fs, dir string, segs []string) (string, bool) {
	seg := segs[0]
	rest := segs[1:]

	switch seg {
	case AnyDepth:
		// Zero directories first, then every subdirectory at any depth.
		if r, ok := walk(root, dir, rest); ok {
			return r, true
		}
		for _, sub := range subdirs(root, dir) {
			if r, ok := walk(root, sub, segs); ok {
				return r, true
			}
		}
		return "", false

	case OneDir:
		for _, sub := range subdirs(root, dir) {
			if r, ok := walk(root, sub, rest); ok {
				return r, true
			}
		}
		return "", false
	}

	name := path.Join(dir, seg)
	info, err := root.Stat(name)
	if err != nil {
		return "", false
	}
	if len(rest) == 0 {
		if info.IsDir() {
			return "", false
		}
		return name, true
	}
	if !info.IsDir() {
		return "", false
	}
	return walk(root, name, rest)
}

func subdirs(root afero.Fs, dir string) []string {
	entries, err := afero.ReadDir(root, dir)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, path.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out
}
