package load

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/gogpu/resman/asset"
	"github.com/gogpu/resman/render"
	"github.com/gogpu/resman/sched"
)

// Scheduler is the part of *sched.Scheduler a pipeline needs.
type Scheduler interface {
	RegisterListener(l sched.Listener) sched.ListenerID
	UnregisterListener(id sched.ListenerID)
	Submit(t sched.Task, id sched.ListenerID) error
}

// waitEntry is a handle waiting for its load. The task pointer ties the
// entry to one submission so completions of older submissions are ignored.
type waitEntry[O render.Object] struct {
	handle *render.Handle[O]
	task   *Task
}

// pipeline is the kind-independent part of every load pipeline.
type pipeline[O render.Object] struct {
	kind    Kind
	sched   Scheduler
	id      sched.ListenerID
	env     Env
	log     *slog.Logger
	backend render.Backend

	waiting   map[string]waitEntry[O]
	preparing []*render.Handle[O]

	// upload moves a finished task's payload into obj.
	upload func(obj O, t *Task) error

	// prepare does one slice of GPU-side preparation and reports whether
	// more remains. Nil for kinds that are ready right after upload.
	prepare func(obj O) bool
}

func newPipeline[O render.Object](kind Kind, s Scheduler, env Env, l sched.Listener) *pipeline[O] {
	p := &pipeline[O]{
		kind:    kind,
		sched:   s,
		env:     env,
		log:     env.logger().With("pipeline", kind.String()),
		waiting: make(map[string]waitEntry[O]),
	}
	p.id = s.RegisterListener(l)
	return p
}

// SetRenderer attaches the backend new loads upload into.
func (p *pipeline[O]) SetRenderer(b render.Backend) {
	p.backend = b
}

// InvalidateRenderer forgets every pending load and preparation. Loads
// still running complete into nothing.
func (p *pipeline[O]) InvalidateRenderer() {
	clear(p.waiting)
	p.preparing = nil
	p.backend = nil
}

// Renderer returns the attached backend, or nil.
func (p *pipeline[O]) Renderer() render.Backend {
	return p.backend
}

// Start begins loading path into h. A load already pending for path into
// the same handle is left alone. Start panics when no backend is attached.
func (p *pipeline[O]) Start(path asset.ResPath, h *render.Handle[O]) {
	if p.backend == nil {
		panic(fmt.Sprintf("load: %s pipeline started without a renderer", p.kind))
	}

	key := path.String()
	if e, ok := p.waiting[key]; ok && e.handle == h {
		return
	}

	t := newTask(p.kind, path, p.env)
	p.waiting[key] = waitEntry[O]{handle: h, task: t}
	if err := p.sched.Submit(t, p.id); err != nil {
		delete(p.waiting, key)
		p.log.Error("load: submit failed", "path", key, "error", err)
	}
}

// NotifyTaskDone implements sched.Listener.
func (p *pipeline[O]) NotifyTaskDone(st sched.Task) {
	t, ok := st.(*Task)
	if !ok || t.kind != p.kind {
		p.log.Error("load: unexpected task delivered", "task", fmt.Sprintf("%T", st))
		return
	}

	key := t.path.String()
	e, ok := p.waiting[key]
	if !ok || e.task != t {
		p.log.Debug("load: stale completion ignored", "path", key)
		return
	}
	delete(p.waiting, key)

	if err := t.Err(); err != nil {
		p.log.Error("load: failed to load", "path", key, "error", err)
		return
	}

	obj, ok := e.handle.Object()
	if !ok {
		return
	}
	if err := p.upload(obj, t); err != nil {
		p.log.Error("load: upload failed", "path", key, "error", err)
		return
	}
	p.log.Info("load: loaded", "path", key)

	if p.prepare != nil && !slices.Contains(p.preparing, e.handle) {
		p.preparing = append(p.preparing, e.handle)
	}
}

// Update gives every handle still being prepared one Prepare call.
func (p *pipeline[O]) Update() {
	if p.prepare == nil || len(p.preparing) == 0 {
		return
	}

	keep := p.preparing[:0]
	for _, h := range p.preparing {
		obj, ok := h.Object()
		if !ok || obj.IsReady() {
			continue
		}
		if more := p.prepare(obj); !more {
			if !obj.IsReady() {
				p.log.Warn("load: preparation finished but object is not ready")
			}
			continue
		}
		keep = append(keep, h)
	}
	clear(p.preparing[len(keep):])
	p.preparing = keep
}

// Pending returns the number of loads waiting for their task.
func (p *pipeline[O]) Pending() int { return len(p.waiting) }

// Preparing returns the number of handles still being prepared.
func (p *pipeline[O]) Preparing() int { return len(p.preparing) }

// Has reports whether a load for path is pending.
func (p *pipeline[O]) Has(path asset.ResPath) bool {
	_, ok := p.waiting[path.String()]
	return ok
}

// Close stops receiving completions.
func (p *pipeline[O]) Close() {
	p.sched.UnregisterListener(p.id)
	p.id = sched.NoListener
}

// TexturePipeline loads images into textures.
type TexturePipeline struct {
	*pipeline[render.TextureObject]
}

// NewTexturePipeline returns a texture pipeline registered with s.
func NewTexturePipeline(s Scheduler, env Env) *TexturePipeline {
	tp := &TexturePipeline{}
	tp.pipeline = newPipeline[render.TextureObject](LoadImage, s, env, tp)
	tp.upload = func(obj render.TextureObject, t *Task) error {
		img, err := t.Image()
		if err != nil {
			return err
		}
		return obj.SetImage(img)
	}
	return tp
}

// ModelPipeline loads static models.
type ModelPipeline struct {
	*pipeline[render.ModelObject]
}

// NewModelPipeline returns a model pipeline registered with s.
func NewModelPipeline(s Scheduler, env Env) *ModelPipeline {
	mp := &ModelPipeline{}
	mp.pipeline = newPipeline[render.ModelObject](LoadModel, s, env, mp)
	mp.upload = func(obj render.ModelObject, t *Task) error {
		data, err := t.Model()
		if err != nil {
			return err
		}
		return obj.Init(data, t.path.Namespace())
	}
	mp.prepare = func(obj render.ModelObject) bool { return obj.Prepare() }
	return mp
}

// SkinnedModelPipeline loads models with a skeleton and animations.
type SkinnedModelPipeline struct {
	*pipeline[render.SkinnedModelObject]
}

// NewSkinnedModelPipeline returns a skinned model pipeline registered with s.
func NewSkinnedModelPipeline(s Scheduler, env Env) *SkinnedModelPipeline {
	sp := &SkinnedModelPipeline{}
	sp.pipeline = newPipeline[render.SkinnedModelObject](LoadSkinnedModel, s, env, sp)
	sp.upload = func(obj render.SkinnedModelObject, t *Task) error {
		data, err := t.SkinnedModel()
		if err != nil {
			return err
		}
		for i := range data.Animations {
			a := &data.Animations[i]
			if !a.CompatibleWith(&data.Skeleton) {
				sp.log.Warn("load: animation does not match skeleton", "path", t.path.String(), "animation", a.Name)
			}
		}
		return obj.Init(data, t.path.Namespace())
	}
	sp.prepare = func(obj render.SkinnedModelObject) bool { return obj.Prepare() }
	return sp
}
