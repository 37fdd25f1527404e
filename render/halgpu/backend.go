// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package halgpu provides a render backend on top of the gogpu/wgpu HAL.
//
// Textures are uploaded with queue writes, model units get vertex and index
// buffers at Init and a material uniform buffer per Prepare call, and the
// shared material shader is compiled from WGSL with naga the first time a
// model is prepared.
//
// The backend does not create a device of its own. Open it with a device
// and queue, or with a gpucontext.DeviceProvider that also exposes its HAL
// objects:
//
//	b, err := halgpu.FromProvider(provider)
//
// Importing the package registers it as "halgpu". The registry factory
// needs render.Options.Provider to be set.
package halgpu

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/resman/render"
)

// Name is the registry name of the HAL backend.
const Name = "halgpu"

// DefaultWaitTimeout bounds WaitIdle.
const DefaultWaitTimeout = 5 * time.Second

// ErrNoDevice is returned when no usable device was supplied.
var ErrNoDevice = errors.New("halgpu: no HAL device")

func init() {
	render.Register(Name, func(opts render.Options) (render.Backend, error) {
		if opts.Provider == nil {
			return nil, fmt.Errorf("%w: no provider", ErrNoDevice)
		}
		dp, ok := opts.Provider.(gpucontext.DeviceProvider)
		if !ok {
			return nil, fmt.Errorf("%w: provider %T is not a gpucontext.DeviceProvider", ErrNoDevice, opts.Provider)
		}
		return FromProvider(dp, WithLogger(opts.Logger))
	})
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger. Nil keeps the silent default.
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithCompiler replaces the WGSL compiler used for the material shader.
func WithCompiler(c Compiler) Option {
	return func(b *Backend) {
		if c != nil {
			b.compile = c
		}
	}
}

// WithWaitTimeout bounds how long WaitIdle waits for the device.
func WithWaitTimeout(d time.Duration) Option {
	return func(b *Backend) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// Backend is the HAL render backend.
//
// Like every backend, it is used from the coordinator goroutine only.
type Backend struct {
	gpu     gpu
	compile Compiler
	logger  *slog.Logger
	timeout time.Duration

	shader    hal.ShaderModule
	shaderErr error

	stats Stats
}

// Stats counts live device resources.
type Stats struct {
	Textures      int
	Buffers       int
	ShaderModules int
	BytesWritten  uint64
}

// New returns a backend that uses device and queue. The caller keeps
// ownership of both.
func New(device hal.Device, queue hal.Queue, opts ...Option) (*Backend, error) {
	if device == nil || queue == nil {
		return nil, ErrNoDevice
	}
	return newBackend(&halDevice{device: device, queue: queue}, opts...), nil
}

// FromProvider returns a backend that shares the provider's device. The
// provider must also implement HalDevice() any and HalQueue() any returning
// hal.Device and hal.Queue.
func FromProvider(provider gpucontext.DeviceProvider, opts ...Option) (*Backend, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("%w: provider does not expose HAL types", ErrNoDevice)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: provider HalDevice is not hal.Device", ErrNoDevice)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: provider HalQueue is not hal.Queue", ErrNoDevice)
	}
	return New(device, queue, opts...)
}

func newBackend(g gpu, opts ...Option) *Backend {
	b := &Backend{
		gpu:     g,
		compile: CompileWGSL,
		logger:  slog.New(slog.DiscardHandler),
		timeout: DefaultWaitTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name implements render.Backend.
func (b *Backend) Name() string { return Name }

// WaitIdle implements render.Backend.
func (b *Backend) WaitIdle() error {
	return b.gpu.waitIdle(b.timeout)
}

// Close implements render.Backend. It releases the material shader.
func (b *Backend) Close() error {
	if b.shader != nil {
		b.gpu.destroyShaderModule(b.shader)
		b.shader = nil
		b.stats.ShaderModules--
	}
	b.shaderErr = nil
	if b.stats.Textures != 0 || b.stats.Buffers != 0 {
		return fmt.Errorf("halgpu: closed with %d textures and %d buffers alive", b.stats.Textures, b.stats.Buffers)
	}
	return nil
}

// Stats returns the live resource counts.
func (b *Backend) Stats() Stats { return b.stats }

// materialShader compiles and creates the material shader once. A failure
// is remembered so it is reported once per model, not retried every tick.
func (b *Backend) materialShader() (hal.ShaderModule, error) {
	if b.shader != nil || b.shaderErr != nil {
		return b.shader, b.shaderErr
	}

	spirv, err := b.compile(materialShaderWGSL)
	if err != nil {
		b.shaderErr = err
		return nil, err
	}
	module, err := b.gpu.createShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "resman_material",
		Source: hal.ShaderSource{SPIRV: spirv},
	})
	if err != nil {
		b.shaderErr = fmt.Errorf("halgpu: create material shader: %w", err)
		return nil, b.shaderErr
	}
	b.shader = module
	b.stats.ShaderModules++
	b.logger.Debug("halgpu: material shader ready", "spirv_words", len(spirv))
	return module, nil
}

// NewTexture implements render.Backend.
func (b *Backend) NewTexture() render.TextureObject { return &Texture{b: b} }

// NewModel implements render.Backend.
func (b *Backend) NewModel() render.ModelObject { return &Model{modelCore: modelCore{b: b}} }

// NewSkinnedModel implements render.Backend.
func (b *Backend) NewSkinnedModel() render.SkinnedModelObject {
	return &SkinnedModel{modelCore: modelCore{b: b}}
}

// NewActor implements render.Backend.
func (b *Backend) NewActor() render.ActorObject { return &Actor{b: b} }

// NewSkinnedActor implements render.Backend.
func (b *Backend) NewSkinnedActor() render.SkinnedActorObject {
	return &SkinnedActor{Actor: Actor{b: b}}
}

// NewMesh implements render.Backend.
func (b *Backend) NewMesh() render.MeshObject { return &Mesh{b: b} }

var _ render.Backend = (*Backend)(nil)
