package config

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/gogpu/resman/asset"
)

// Validate reports every problem in c at once.
func (c *Config) Validate() error {
	var errs *multierror.Error

	if c.Scheduler.Workers < 1 {
		errs = multierror.Append(errs, fmt.Errorf("scheduler.workers must be at least 1, got %d", c.Scheduler.Workers))
	}

	if c.Assets.AssetRoot == "" {
		errs = multierror.Append(errs, errors.New("assets.asset_root must not be empty"))
	}
	if c.Assets.UserdataRoot == "" {
		errs = multierror.Append(errs, errors.New("assets.userdata_root must not be empty"))
	}
	if key, err := c.PublicKeyBytes(); err != nil {
		errs = multierror.Append(errs, err)
	} else if key != nil && len(key) != ed25519.PublicKeySize {
		errs = multierror.Append(errs, fmt.Errorf("assets.public_key must be %d bytes, got %d", ed25519.PublicKeySize, len(key)))
	}
	for _, f := range []struct{ name, path string }{
		{"fallback_texture", c.Assets.FallbackTexture},
		{"fallback_model", c.Assets.FallbackModel},
	} {
		if f.path == "" {
			continue
		}
		if _, err := asset.ParsePath(f.path); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("assets.%s: %w", f.name, err))
		}
	}
	if c.Assets.ResolveCache < 0 {
		errs = multierror.Append(errs, fmt.Errorf("assets.resolve_cache must not be negative, got %d", c.Assets.ResolveCache))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = multierror.Append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = multierror.Append(errs, fmt.Errorf("log.format %q is not one of text, json", c.Log.Format))
	}

	if c.Renderer.PrepareSteps < 0 {
		errs = multierror.Append(errs, fmt.Errorf("renderer.prepare_steps must not be negative, got %d", c.Renderer.PrepareSteps))
	}

	return errs.ErrorOrNil()
}
