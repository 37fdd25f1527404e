package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v2"

	"github.com/gogpu/resman"
	"github.com/gogpu/resman/asset"
	"github.com/gogpu/resman/config"
	"github.com/gogpu/resman/render"
	_ "github.com/gogpu/resman/render/halgpu"
	_ "github.com/gogpu/resman/render/headless"
	"github.com/gogpu/resman/sched"
)

const tickInterval = 5 * time.Millisecond

var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "resload",
		Usage:     "Load assets through resman and report their state",
		ArgsUsage: "PATH...",
		Description: `Requests every PATH from a resource manager, ticks it until all loads
have finished or the timeout expires, then prints one line per path.

Settings come from the HCL file given with --config. Flags override it.

Example:
  resload --assets ./assets --userdata ./save ship.dmd ?/brick.png`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "HCL configuration file",
				EnvVars: []string{"RESMAN_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "assets",
				Usage: "Asset root directory (overrides assets.asset_root)",
			},
			&cli.StringFlag{
				Name:  "userdata",
				Usage: "Userdata root directory (overrides assets.userdata_root)",
			},
			&cli.StringFlag{
				Name:    "backend",
				Aliases: []string{"b"},
				Usage:   "Render backend name, empty picks the first that opens",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "Number of scheduler workers",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log format: text or json",
			},
			&cli.BoolFlag{
				Name:  "skinned",
				Usage: "Request model paths as skinned models",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Give up waiting for loads after this long",
				Value: 10 * time.Second,
			},
			&cli.IntFlag{
				Name:  "slow",
				Usage: "Also submit this many synthetic least-wanted tasks",
			},
		},
		Action: runLoad,
	}
}

// loadConfig reads the configuration file, if any, and applies flags.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if p := c.String("config"); p != "" {
		var err error
		if cfg, err = config.Load(afero.NewOsFs(), p); err != nil {
			return nil, err
		}
	}

	if c.IsSet("assets") {
		cfg.Assets.AssetRoot = c.String("assets")
	}
	if c.IsSet("userdata") {
		cfg.Assets.UserdataRoot = c.String("userdata")
	}
	if c.IsSet("backend") {
		cfg.Renderer.Backend = c.String("backend")
	}
	if c.IsSet("workers") {
		cfg.Scheduler.Workers = c.Int("workers")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Log.Format = c.String("log-format")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openBackend(r config.Renderer, logger *slog.Logger) (render.Backend, error) {
	opts := render.Options{PrepareSteps: r.PrepareSteps, Logger: logger}
	if r.Backend == "" {
		return render.Default(opts)
	}
	return render.Open(r.Backend, opts)
}

// loaded is one requested path and its handle's readiness.
type loaded struct {
	kind  string
	path  string
	ready func() bool
}

func request(m *resman.Manager, p string, skinned bool) loaded {
	if imageExts[strings.ToLower(path.Ext(p))] {
		h := m.RequestTexture(p)
		return loaded{kind: "texture", path: p, ready: h.IsReady}
	}
	if skinned {
		h := m.RequestSkinnedModel(p)
		return loaded{kind: "skinned-model", path: p, ready: h.IsReady}
	}
	h := m.RequestModel(p)
	return loaded{kind: "model", path: p, ready: h.IsReady}
}

func runLoad(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("resload: no paths given", 2)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := config.NewLogger(cfg.Log, c.App.ErrWriter)
	publicKey, err := cfg.PublicKeyBytes()
	if err != nil {
		return err
	}

	backend, err := openBackend(cfg.Renderer, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Warn("resload: backend close", "error", err)
		}
	}()

	store := asset.NewOsFS(cfg.Assets.AssetRoot, cfg.Assets.UserdataRoot,
		asset.WithResolveCache(cfg.Assets.ResolveCache))
	s := sched.New(cfg.Scheduler.Workers, sched.WithLogger(logger))
	defer s.Close()

	m := resman.New(store, s,
		resman.WithPublicKey(publicKey),
		resman.WithLogger(logger),
		resman.WithFallbacks(cfg.Assets.FallbackTexture, cfg.Assets.FallbackModel),
	)
	defer m.Close()
	m.SetRenderer(backend)

	for i := 0; i < c.Int("slow"); i++ {
		if err := s.Submit(sched.NewSlowTask(4, time.Millisecond), sched.NoListener); err != nil {
			return err
		}
	}

	results := make([]loaded, 0, c.NArg())
	for _, p := range c.Args().Slice() {
		results = append(results, request(m, p, c.Bool("skinned")))
	}

	start := time.Now()
	ticks, err := tickUntilIdle(c.Context, m, c.Duration("timeout"))
	if err != nil {
		logger.Warn("resload: giving up on pending loads", "error", err, "ticks", ticks)
	}

	failed := 0
	for _, r := range results {
		state := "ready"
		if !r.ready() {
			state = "not-ready"
			failed++
		}
		fmt.Fprintf(c.App.Writer, "%-13s %-9s %s\n", r.kind, state, r.path)
	}
	st := m.Stats()
	fmt.Fprintf(c.App.Writer, "backend=%s ticks=%d elapsed=%s textures=%d models=%d skinned=%d\n",
		st.Backend, ticks, time.Since(start).Round(time.Millisecond), st.Textures, st.Models, st.SkinnedModels)

	if failed > 0 {
		return cli.Exit(fmt.Sprintf("resload: %d of %d assets not ready", failed, len(results)), 1)
	}
	return nil
}

// tickUntilIdle runs Manager.Update until no load is in flight.
func tickUntilIdle(ctx context.Context, m *resman.Manager, timeout time.Duration) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	ticks := 0
	for {
		m.Update()
		ticks++
		if m.Idle() {
			return ticks, nil
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ticks, fmt.Errorf("timed out after %s", timeout)
			}
			return ticks, ctx.Err()
		case <-ticker.C:
		}
	}
}
