// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package headless provides a render backend that keeps every payload in
// memory and talks to no device.
//
// It is used by tests and command-line tools. Model preparation takes a
// configurable number of Prepare calls so amortised setup can be observed.
//
// The backend registers itself as "headless" on import:
//
//	import _ "github.com/gogpu/resman/render/headless"
package headless

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/gogpu/resman/render"
)

// Name is the registry name of the headless backend.
const Name = "headless"

// DefaultPrepareSteps is the number of Prepare calls a model needs when no
// option says otherwise.
const DefaultPrepareSteps = 1

func init() {
	render.Register(Name, func(opts render.Options) (render.Backend, error) {
		steps := opts.PrepareSteps
		if steps <= 0 {
			steps = DefaultPrepareSteps
		}
		return New(WithPrepareSteps(steps), WithLogger(opts.Logger)), nil
	})
}

// Option configures a Backend.
type Option func(*Backend)

// WithPrepareSteps sets the number of Prepare calls a model needs.
// Zero makes models ready as soon as they are initialized.
func WithPrepareSteps(n int) Option {
	return func(b *Backend) {
		b.prepareSteps = max(n, 0)
	}
}

// WithLogger sets the logger. Nil keeps the silent default.
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) {
		if l != nil {
			b.logger = l
		}
	}
}

// Backend is the in-memory backend.
type Backend struct {
	prepareSteps int
	logger       *slog.Logger

	nextID atomic.Uint64

	// live maps object IDs to objects not yet destroyed.
	live *xsync.MapOf[uint64, render.Object]

	uploadErr error

	created   atomic.Uint64
	destroyed atomic.Uint64
	uploads   atomic.Uint64
	waitIdles atomic.Uint64
	closed    atomic.Bool
}

// New returns a headless backend.
func New(opts ...Option) *Backend {
	b := &Backend{
		prepareSteps: DefaultPrepareSteps,
		logger:       slog.New(slog.DiscardHandler),
		live:         xsync.NewMapOf[uint64, render.Object](),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name implements render.Backend.
func (b *Backend) Name() string { return Name }

// WaitIdle implements render.Backend. There is never outstanding work.
func (b *Backend) WaitIdle() error {
	b.waitIdles.Add(1)
	return nil
}

// Close implements render.Backend. It fails if objects are still alive.
func (b *Backend) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	if n := b.live.Size(); n > 0 {
		return fmt.Errorf("headless: closed with %d live objects", n)
	}
	return nil
}

// FailUploads makes every later SetImage and Init return err.
// Nil restores normal behavior.
func (b *Backend) FailUploads(err error) {
	b.uploadErr = err
}

// NewTexture implements render.Backend.
func (b *Backend) NewTexture() render.TextureObject {
	t := &Texture{obj: b.newObj()}
	b.track(t.id, t)
	return t
}

// NewModel implements render.Backend.
func (b *Backend) NewModel() render.ModelObject {
	m := &Model{obj: b.newObj()}
	b.track(m.id, m)
	return m
}

// NewSkinnedModel implements render.Backend.
func (b *Backend) NewSkinnedModel() render.SkinnedModelObject {
	m := &SkinnedModel{obj: b.newObj()}
	b.track(m.id, m)
	return m
}

// NewActor implements render.Backend.
func (b *Backend) NewActor() render.ActorObject {
	a := &Actor{obj: b.newObj()}
	b.track(a.id, a)
	return a
}

// NewSkinnedActor implements render.Backend.
func (b *Backend) NewSkinnedActor() render.SkinnedActorObject {
	a := &SkinnedActor{Actor: Actor{obj: b.newObj()}}
	b.track(a.id, a)
	return a
}

// NewMesh implements render.Backend.
func (b *Backend) NewMesh() render.MeshObject {
	m := &Mesh{obj: b.newObj()}
	b.track(m.id, m)
	return m
}

func (b *Backend) newObj() obj {
	return obj{backend: b, id: b.nextID.Add(1)}
}

func (b *Backend) track(id uint64, o render.Object) {
	b.live.Store(id, o)
	b.created.Add(1)
}

func (b *Backend) release(id uint64) {
	if _, ok := b.live.LoadAndDelete(id); ok {
		b.destroyed.Add(1)
	}
}

// Stats holds backend counters.
type Stats struct {
	Live      int
	Created   uint64
	Destroyed uint64
	Uploads   uint64
	WaitIdles uint64
}

// Stats returns a snapshot of the backend counters.
func (b *Backend) Stats() Stats {
	return Stats{
		Live:      b.live.Size(),
		Created:   b.created.Load(),
		Destroyed: b.destroyed.Load(),
		Uploads:   b.uploads.Load(),
		WaitIdles: b.waitIdles.Load(),
	}
}

// Objects returns the live objects in no particular order.
func (b *Backend) Objects() []render.Object {
	out := make([]render.Object, 0, b.live.Size())
	b.live.Range(func(_ uint64, o render.Object) bool {
		out = append(out, o)
		return true
	})
	return out
}

var _ render.Backend = (*Backend)(nil)
