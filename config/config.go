// Package config loads resman settings from HCL files.
//
// A configuration file has up to four blocks. Every block and attribute is
// optional; Default lists the values used for anything left out.
//
//	scheduler { workers = 4 }
//
//	assets {
//	  asset_root       = "./assets"
//	  userdata_root    = "./userdata"
//	  public_key       = "base64 ed25519 key"
//	  fallback_texture = "_asset/image/missing_tex.png"
//	  fallback_model   = "_asset/model/missing_model.dmd"
//	  resolve_cache    = 256
//	}
//
//	log {
//	  level  = "info"
//	  format = "text"
//	}
//
//	renderer {
//	  backend       = "headless"
//	  prepare_steps = 2
//	}
package config

import (
	"encoding/base64"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/spf13/afero"

	"github.com/gogpu/resman/asset"
)

// Config is a complete, defaulted configuration.
type Config struct {
	Scheduler Scheduler
	Assets    Assets
	Log       Log
	Renderer  Renderer
}

// Scheduler configures the task scheduler.
type Scheduler struct {
	Workers int
}

// Assets configures the asset store and the manager's fallbacks.
type Assets struct {
	AssetRoot    string
	UserdataRoot string

	// PublicKey is the base64 encoded ed25519 key that signs "_asset"
	// models. Empty means protected models cannot be loaded.
	PublicKey string

	// Empty fallbacks keep the manager's defaults.
	FallbackTexture string
	FallbackModel   string

	// ResolveCache is the resolve cache capacity. Zero disables it.
	ResolveCache int
}

// Log configures the slog logger built by NewLogger.
type Log struct {
	Level  string
	Format string
}

// Renderer selects the render backend.
type Renderer struct {
	// Backend is a registered backend name. Empty selects the first one
	// that opens.
	Backend      string
	PrepareSteps int
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Scheduler: Scheduler{Workers: max(1, runtime.GOMAXPROCS(0)-1)},
		Assets: Assets{
			AssetRoot:    "assets",
			UserdataRoot: "userdata",
			ResolveCache: asset.DefaultResolveCacheSize,
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

// PublicKeyBytes decodes Assets.PublicKey. An empty key decodes to nil.
func (c *Config) PublicKeyBytes() ([]byte, error) {
	if c.Assets.PublicKey == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(c.Assets.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("config: public_key: %w", err)
	}
	return key, nil
}

// hclFile mirrors the file layout. Pointer attributes stay nil when they
// are not set, so defaults survive.
type hclFile struct {
	Scheduler *hclScheduler `hcl:"scheduler,block"`
	Assets    *hclAssets    `hcl:"assets,block"`
	Log       *hclLog       `hcl:"log,block"`
	Renderer  *hclRenderer  `hcl:"renderer,block"`
}

type hclScheduler struct {
	Workers *int `hcl:"workers,optional"`
}

type hclAssets struct {
	AssetRoot       *string `hcl:"asset_root,optional"`
	UserdataRoot    *string `hcl:"userdata_root,optional"`
	PublicKey       *string `hcl:"public_key,optional"`
	FallbackTexture *string `hcl:"fallback_texture,optional"`
	FallbackModel   *string `hcl:"fallback_model,optional"`
	ResolveCache    *int    `hcl:"resolve_cache,optional"`
}

type hclLog struct {
	Level  *string `hcl:"level,optional"`
	Format *string `hcl:"format,optional"`
}

type hclRenderer struct {
	Backend      *string `hcl:"backend,optional"`
	PrepareSteps *int    `hcl:"prepare_steps,optional"`
}

// Parse decodes HCL source. filename is used in diagnostics only. The
// result is defaulted but not validated.
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("config: failed to parse %s: %w", filename, diags)
	}
	return decode(file.Body, filename)
}

// Load reads and parses the file at path on fsys, then validates it.
// Relative asset roots are resolved against the file's directory.
func Load(fsys afero.Fs, path string) (*Config, error) {
	src, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(src, path)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	cfg.Assets.AssetRoot = relativeTo(dir, cfg.Assets.AssetRoot)
	cfg.Assets.UserdataRoot = relativeTo(dir, cfg.Assets.UserdataRoot)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func relativeTo(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

func decode(body hcl.Body, filename string) (*Config, error) {
	var f hclFile
	if diags := gohcl.DecodeBody(body, nil, &f); diags.HasErrors() {
		return nil, fmt.Errorf("config: failed to decode %s: %w", filename, diags)
	}

	cfg := Default()
	if s := f.Scheduler; s != nil {
		set(&cfg.Scheduler.Workers, s.Workers)
	}
	if a := f.Assets; a != nil {
		set(&cfg.Assets.AssetRoot, a.AssetRoot)
		set(&cfg.Assets.UserdataRoot, a.UserdataRoot)
		set(&cfg.Assets.PublicKey, a.PublicKey)
		set(&cfg.Assets.FallbackTexture, a.FallbackTexture)
		set(&cfg.Assets.FallbackModel, a.FallbackModel)
		set(&cfg.Assets.ResolveCache, a.ResolveCache)
	}
	if l := f.Log; l != nil {
		set(&cfg.Log.Level, l.Level)
		set(&cfg.Log.Format, l.Format)
	}
	if r := f.Renderer; r != nil {
		set(&cfg.Renderer.Backend, r.Backend)
		set(&cfg.Renderer.PrepareSteps, r.PrepareSteps)
	}
	return cfg, nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
