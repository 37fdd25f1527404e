package resman

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/gogpu/resman/asset"
	"github.com/gogpu/resman/load"
	"github.com/gogpu/resman/render"
	"github.com/gogpu/resman/sched"
)

// ErrNoRenderer is the panic value of requests made without a renderer.
var ErrNoRenderer = errors.New("resman: no renderer attached")

// tracked is a handle together with the path it was loaded from.
type tracked[O render.Object] struct {
	path   asset.ResPath
	handle *render.Handle[O]
}

// meshEntry keeps a mesh with the generator that fills it.
type meshEntry struct {
	handle *render.Mesh
	gen    render.MeshGenerator
}

// Manager owns every resource handle and drives the load pipelines.
//
// A Manager is not safe for concurrent use; every method must be called
// from the same goroutine.
type Manager struct {
	store   asset.Store
	sched   *sched.Scheduler
	opts    options
	log     *slog.Logger
	backend render.Backend

	texturePipe *load.TexturePipeline
	modelPipe   *load.ModelPipeline
	skinnedPipe *load.SkinnedModelPipeline

	textures      map[string]tracked[render.TextureObject]
	models        map[string]tracked[render.ModelObject]
	skinnedModels map[string]tracked[render.SkinnedModelObject]
	actors        []*render.Actor
	skinnedActors []*render.SkinnedActor
	meshes        []meshEntry

	missingTexture      *render.Texture
	missingModel        *render.Model
	missingSkinnedModel *render.SkinnedModel
}

// New creates a Manager that reads assets from store and runs loads on s.
// The Manager starts without a renderer; call SetRenderer before requesting
// resources. The Manager's logger reaches every load task; the scheduler
// keeps the logger it was created with, so pass sched.WithLogger to sched.New
// to share one.
func New(store asset.Store, s *sched.Scheduler, opts ...Option) *Manager {
	if store == nil || s == nil {
		panic("resman: New requires an asset store and a scheduler")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	m := &Manager{
		store:         store,
		sched:         s,
		opts:          o,
		log:           o.logger,
		textures:      make(map[string]tracked[render.TextureObject]),
		models:        make(map[string]tracked[render.ModelObject]),
		skinnedModels: make(map[string]tracked[render.SkinnedModelObject]),
	}

	env := load.Env{
		Store:     store,
		Verifier:  o.verifier,
		PublicKey: o.publicKey,
		Logger:    o.logger,
	}
	m.texturePipe = load.NewTexturePipeline(s, env)
	m.modelPipe = load.NewModelPipeline(s, env)
	m.skinnedPipe = load.NewSkinnedModelPipeline(s, env)
	return m
}

// Renderer returns the attached backend, or nil.
func (m *Manager) Renderer() render.Backend {
	return m.backend
}

// SetRenderer attaches b. Every tracked handle gets a fresh object from b
// and every tracked path is loaded again. A previously attached renderer is
// invalidated first. Passing nil is the same as InvalidateRenderer.
func (m *Manager) SetRenderer(b render.Backend) {
	if m.backend != nil {
		m.InvalidateRenderer()
	}
	if b == nil {
		return
	}

	m.backend = b
	m.texturePipe.SetRenderer(b)
	m.modelPipe.SetRenderer(b)
	m.skinnedPipe.SetRenderer(b)

	for _, key := range slices.Sorted(maps.Keys(m.textures)) {
		e := m.textures[key]
		e.handle.Attach(b.NewTexture())
		m.texturePipe.Start(e.path, e.handle)
	}
	for _, key := range slices.Sorted(maps.Keys(m.models)) {
		e := m.models[key]
		e.handle.Attach(b.NewModel())
		m.modelPipe.Start(e.path, e.handle)
	}
	for _, key := range slices.Sorted(maps.Keys(m.skinnedModels)) {
		e := m.skinnedModels[key]
		e.handle.Attach(b.NewSkinnedModel())
		m.skinnedPipe.Start(e.path, e.handle)
	}

	for _, h := range m.actors {
		h.Attach(b.NewActor())
		m.initActor(h)
	}
	for _, h := range m.skinnedActors {
		h.Attach(b.NewSkinnedActor())
		m.initSkinnedActor(h)
	}
	for _, e := range m.meshes {
		e.handle.Attach(b.NewMesh())
		m.initMesh(e)
	}

	m.missingTexture = requestFallback(m, m.RequestTexture, m.opts.missingTexture, "texture",
		func() *render.Texture { return render.CreateTexture(b) })
	m.missingModel = requestFallback(m, m.RequestModel, m.opts.missingModel, "model",
		func() *render.Model { return render.CreateModel(b) })
	m.missingSkinnedModel = requestFallback(m, m.RequestSkinnedModel, m.opts.missingModel, "skinned model",
		func() *render.SkinnedModel { return render.CreateSkinnedModel(b) })

	m.log.Info("resman: renderer attached", "backend", b.Name(),
		"textures", len(m.textures), "models", len(m.models), "skinned_models", len(m.skinnedModels))
}

// requestFallback requests a fallback resource. When the fallback path
// itself is missing an empty handle stands in, so requests never return nil.
func requestFallback[H any](m *Manager, request func(string) *H, path, kind string, empty func() *H) *H {
	if h := request(path); h != nil {
		return h
	}
	m.log.Error("resman: fallback not found, using an empty "+kind, "path", path)
	return empty()
}

// InvalidateRenderer waits for the device, destroys every payload and
// detaches the renderer. Handles stay valid and keep their identity.
// Loads still in flight complete into nothing.
func (m *Manager) InvalidateRenderer() {
	if m.backend == nil {
		return
	}
	if err := m.backend.WaitIdle(); err != nil {
		m.log.Warn("resman: wait idle failed", "backend", m.backend.Name(), "error", err)
	}

	// Fallbacks that did not resolve are not in the tables.
	if m.missingTexture != nil {
		m.missingTexture.Destroy()
	}
	if m.missingModel != nil {
		m.missingModel.Destroy()
	}
	if m.missingSkinnedModel != nil {
		m.missingSkinnedModel.Destroy()
	}
	m.missingTexture, m.missingModel, m.missingSkinnedModel = nil, nil, nil

	m.texturePipe.InvalidateRenderer()
	m.modelPipe.InvalidateRenderer()
	m.skinnedPipe.InvalidateRenderer()

	for _, e := range m.textures {
		e.handle.Destroy()
	}
	for _, e := range m.models {
		e.handle.Destroy()
	}
	for _, e := range m.skinnedModels {
		e.handle.Destroy()
	}
	for _, h := range m.actors {
		h.Destroy()
	}
	for _, h := range m.skinnedActors {
		h.Destroy()
	}
	for _, e := range m.meshes {
		e.handle.Destroy()
	}

	m.log.Info("resman: renderer detached", "backend", m.backend.Name())
	m.backend = nil
}

func (m *Manager) mustHaveRenderer(what string) {
	if m.backend == nil {
		panic(fmt.Errorf("%w: %s", ErrNoRenderer, what))
	}
}

// resolve parses and resolves path, logging why it failed if it did.
func (m *Manager) resolve(path, kind string) (asset.ResPath, bool) {
	p, err := asset.ParsePath(path)
	if err != nil {
		m.log.Error("resman: invalid "+kind+" path", "path", path, "error", err)
		return asset.ResPath{}, false
	}
	r, ok := m.store.Resolve(p)
	if !ok {
		m.log.Error("resman: failed to find "+kind+" file", "path", path)
		return asset.ResPath{}, false
	}
	return r, true
}

// request is the shared body of the path-based requests.
func request[O render.Object](
	m *Manager,
	path, kind string,
	table map[string]tracked[O],
	fallback *render.Handle[O],
	create func() *render.Handle[O],
	start func(asset.ResPath, *render.Handle[O]),
) *render.Handle[O] {
	m.mustHaveRenderer("request " + kind)

	p, ok := m.resolve(path, kind)
	if !ok {
		return fallback
	}
	key := p.String()
	if e, ok := table[key]; ok {
		return e.handle
	}

	h := create()
	table[key] = tracked[O]{path: p, handle: h}
	start(p, h)
	return h
}

// RequestTexture returns the texture for path, starting its load on first
// request. An unresolvable path yields the fallback texture.
// It panics when no renderer is attached.
func (m *Manager) RequestTexture(path string) *render.Texture {
	return request(m, path, "texture", m.textures, m.missingTexture,
		func() *render.Texture { return render.CreateTexture(m.backend) },
		m.texturePipe.Start)
}

// RequestModel returns the static model for path, starting its load on
// first request. An unresolvable path yields the fallback model.
// It panics when no renderer is attached.
func (m *Manager) RequestModel(path string) *render.Model {
	return request(m, path, "model", m.models, m.missingModel,
		func() *render.Model { return render.CreateModel(m.backend) },
		m.modelPipe.Start)
}

// RequestSkinnedModel returns the skinned model for path, starting its load
// on first request. An unresolvable path yields the fallback skinned model.
// It panics when no renderer is attached.
func (m *Manager) RequestSkinnedModel(path string) *render.SkinnedModel {
	return request(m, path, "skinned model", m.skinnedModels, m.missingSkinnedModel,
		func() *render.SkinnedModel { return render.CreateSkinnedModel(m.backend) },
		m.skinnedPipe.Start)
}

// RequestActor returns a new actor. Actors are recreated with every renderer.
func (m *Manager) RequestActor() *render.Actor {
	m.mustHaveRenderer("request actor")
	h := render.CreateActor(m.backend)
	m.actors = append(m.actors, h)
	m.initActor(h)
	return h
}

// RequestSkinnedActor returns a new skinned actor.
func (m *Manager) RequestSkinnedActor() *render.SkinnedActor {
	m.mustHaveRenderer("request skinned actor")
	h := render.CreateSkinnedActor(m.backend)
	m.skinnedActors = append(m.skinnedActors, h)
	m.initSkinnedActor(h)
	return h
}

// RequestMesh returns a mesh filled by gen. The generator is kept and run
// again whenever a new renderer is attached.
func (m *Manager) RequestMesh(gen render.MeshGenerator) *render.Mesh {
	m.mustHaveRenderer("request mesh")
	if gen == nil {
		panic("resman: RequestMesh with nil generator")
	}
	e := meshEntry{handle: render.CreateMesh(m.backend), gen: gen}
	m.meshes = append(m.meshes, e)
	m.initMesh(e)
	return e.handle
}

func (m *Manager) initActor(h *render.Actor) {
	if obj, ok := h.Object(); ok {
		if err := obj.Init(); err != nil {
			m.log.Error("resman: actor init failed", "error", err)
		}
	}
}

func (m *Manager) initSkinnedActor(h *render.SkinnedActor) {
	if obj, ok := h.Object(); ok {
		if err := obj.Init(); err != nil {
			m.log.Error("resman: skinned actor init failed", "error", err)
		}
	}
}

func (m *Manager) initMesh(e meshEntry) {
	obj, ok := e.handle.Object()
	if !ok {
		return
	}
	data, err := e.gen()
	if err != nil {
		m.log.Error("resman: mesh generation failed", "error", err)
		return
	}
	if err := obj.Init(data); err != nil {
		m.log.Error("resman: mesh upload failed", "error", err)
	}
}

// Update runs one coordinator tick: finished loads are delivered to their
// pipelines, then every model still being prepared gets one Prepare call.
// It returns the number of completions delivered.
func (m *Manager) Update() int {
	n := m.sched.Drain()
	m.texturePipe.Update()
	m.modelPipe.Update()
	m.skinnedPipe.Update()
	return n
}

// Idle reports whether no load is pending and no model is being prepared.
func (m *Manager) Idle() bool {
	return m.texturePipe.Pending() == 0 &&
		m.modelPipe.Pending() == 0 && m.modelPipe.Preparing() == 0 &&
		m.skinnedPipe.Pending() == 0 && m.skinnedPipe.Preparing() == 0
}

// Close invalidates the renderer and stops receiving completions.
// The scheduler is not closed; it belongs to the caller.
func (m *Manager) Close() {
	m.InvalidateRenderer()
	m.texturePipe.Close()
	m.modelPipe.Close()
	m.skinnedPipe.Close()
}

// Stats holds registry sizes and pipeline counters.
type Stats struct {
	Backend string

	Textures      int
	Models        int
	SkinnedModels int
	Actors        int
	SkinnedActors int
	Meshes        int

	PendingTextures      int
	PendingModels        int
	PendingSkinnedModels int
	PreparingModels      int
	PreparingSkinned     int
}

// Stats returns a snapshot of the Manager's counters.
func (m *Manager) Stats() Stats {
	s := Stats{
		Textures:             len(m.textures),
		Models:               len(m.models),
		SkinnedModels:        len(m.skinnedModels),
		Actors:               len(m.actors),
		SkinnedActors:        len(m.skinnedActors),
		Meshes:               len(m.meshes),
		PendingTextures:      m.texturePipe.Pending(),
		PendingModels:        m.modelPipe.Pending(),
		PendingSkinnedModels: m.skinnedPipe.Pending(),
		PreparingModels:      m.modelPipe.Preparing(),
		PreparingSkinned:     m.skinnedPipe.Preparing(),
	}
	if m.backend != nil {
		s.Backend = m.backend.Name()
	}
	return s
}
