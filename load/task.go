package load

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gogpu/resman/asset"
	"github.com/gogpu/resman/decode"
	"github.com/gogpu/resman/render"
	"github.com/gogpu/resman/sched"
)

// Kind selects what a Task loads.
type Kind uint8

const (
	// LoadImage reads and decodes an image for a texture.
	LoadImage Kind = iota

	// LoadModel reads and converts a static model.
	LoadModel

	// LoadSkinnedModel reads and converts a model with skeleton and animations.
	LoadSkinnedModel
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case LoadImage:
		return "image"
	case LoadModel:
		return "model"
	case LoadSkinnedModel:
		return "skinned-model"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Task errors.
var (
	// ErrNotFinished is returned when a result is read before the task is done.
	ErrNotFinished = errors.New("load: task not finished")

	// ErrWrongKind is returned when a result is read for another kind.
	ErrWrongKind = errors.New("load: wrong task kind")
)

// Stage counts per kind. A task at its kind's final stage is done.
const (
	imageStages   = 2
	modelStages   = 5
	skinnedStages = 7
)

// Task loads one asset in small steps. Each blocking read or decode is its
// own step, so a worker is never held for more than one of them.
//
// A Task is owned by whoever holds it: the submitter before Submit, one
// worker at a time while queued, the listener after delivery.
type Task struct {
	kind     Kind
	path     asset.ResPath
	env      Env
	log      *slog.Logger
	priority sched.PriorityClass

	stage int
	err   error

	raw    []byte
	parsed *decode.ParsedModel

	image   *render.Image
	model   *render.ModelData
	skinned *render.SkinnedModelData
}

func newTask(kind Kind, path asset.ResPath, env Env) *Task {
	return &Task{
		kind:     kind,
		path:     path,
		env:      env,
		log:      env.logger().With("kind", kind.String(), "path", path.String()),
		priority: sched.CanBeDelayed,
	}
}

// NewImageTask returns a task that loads the image at path.
func NewImageTask(path asset.ResPath, env Env) *Task {
	return newTask(LoadImage, path, env)
}

// NewModelTask returns a task that loads the static model at path.
func NewModelTask(path asset.ResPath, env Env) *Task {
	return newTask(LoadModel, path, env)
}

// NewSkinnedModelTask returns a task that loads the skinned model at path.
func NewSkinnedModelTask(path asset.ResPath, env Env) *Task {
	return newTask(LoadSkinnedModel, path, env)
}

// Kind returns what the task loads.
func (t *Task) Kind() Kind { return t.kind }

// Path returns the resolved path being loaded.
func (t *Task) Path() asset.ResPath { return t.path }

// Stage implements sched.Task.
func (t *Task) Stage() int { return t.stage }

// Priority implements sched.Task.
func (t *Task) Priority() sched.PriorityClass { return t.priority }

// SetPriority changes the class the task is queued at.
// It has no effect once the task is submitted.
func (t *Task) SetPriority(p sched.PriorityClass) { t.priority = p }

// Done reports whether the task has reached its last stage.
func (t *Task) Done() bool { return t.stage >= t.lastStage() }

// Err returns the failure, or nil.
func (t *Task) Err() error { return t.err }

// Fail implements sched.Failer. The task jumps to its last stage and drops
// any partial result.
func (t *Task) Fail(err error) {
	t.err = err
	t.raw, t.parsed = nil, nil
	t.image, t.model, t.skinned = nil, nil, nil
	t.stage = t.lastStage()
}

// Image returns the decoded image of a finished LoadImage task.
func (t *Task) Image() (*render.Image, error) {
	if err := t.result(LoadImage); err != nil {
		return nil, err
	}
	return t.image, nil
}

// Model returns the converted model of a finished LoadModel task.
func (t *Task) Model() (*render.ModelData, error) {
	if err := t.result(LoadModel); err != nil {
		return nil, err
	}
	return t.model, nil
}

// SkinnedModel returns the converted model of a finished LoadSkinnedModel task.
func (t *Task) SkinnedModel() (*render.SkinnedModelData, error) {
	if err := t.result(LoadSkinnedModel); err != nil {
		return nil, err
	}
	return t.skinned, nil
}

func (t *Task) result(want Kind) error {
	if t.kind != want {
		return fmt.Errorf("%w: have %s, want %s", ErrWrongKind, t.kind, want)
	}
	if !t.Done() {
		return ErrNotFinished
	}
	return t.err
}

func (t *Task) lastStage() int {
	switch t.kind {
	case LoadImage:
		return imageStages
	case LoadModel:
		return modelStages
	case LoadSkinnedModel:
		return skinnedStages
	default:
		panic(fmt.Sprintf("load: unknown task kind %d", t.kind))
	}
}

// Step implements sched.Task.
func (t *Task) Step() sched.StepResult {
	if t.Done() {
		return sched.Done
	}

	start := time.Now()
	stage := t.stage

	var err error
	switch t.kind {
	case LoadImage:
		err = t.stepImage()
	case LoadModel:
		err = t.stepModel()
	case LoadSkinnedModel:
		err = t.stepSkinned()
	default:
		panic(fmt.Sprintf("load: unknown task kind %d", t.kind))
	}

	if err != nil {
		t.Fail(fmt.Errorf("load %s %s: %w", t.kind, t.path, err))
		return sched.Done
	}
	t.stage++

	if t.log.Enabled(context.Background(), slog.LevelDebug) {
		t.log.Debug("load: stage done", "stage", stage, "elapsed", time.Since(start))
	}
	if t.Done() {
		t.raw, t.parsed = nil, nil
		return sched.Done
	}
	return sched.Continue
}

// ---- shared stages ----

func (t *Task) read() error {
	if t.env.Store == nil {
		return errors.New("no asset store")
	}
	f, err := t.env.Store.Open(t.path)
	if err != nil {
		return err
	}
	data, err := f.ReadAll()
	if err != nil {
		return err
	}
	t.raw = data
	return nil
}

// parse decodes the model file. Models under the protected namespace must
// carry a valid signature.
func (t *Task) parse() error {
	var (
		m   *decode.ParsedModel
		err error
	)
	if t.path.IsProtected() {
		m, err = decode.DecodeVerifiedModel(t.raw, t.env.verifier(), t.env.PublicKey)
	} else {
		m, err = decode.DecodeModel(t.raw)
	}
	if err != nil {
		return err
	}
	t.raw = nil
	t.parsed = m
	return nil
}

func (t *Task) warnStraightUnits() {
	if n := len(t.parsed.UnitsStraight); n > 0 {
		t.log.Warn("load: vertex data not supported", "layout", "straight", "units", n)
	}
	if n := len(t.parsed.UnitsStraightJoint); n > 0 {
		t.log.Warn("load: vertex data not supported", "layout", "straight joint", "units", n)
	}
}

// ---- image ----

func (t *Task) stepImage() error {
	switch t.stage {
	case 0:
		return t.read()
	case 1:
		img, err := decode.DecodeImage(t.raw)
		if err != nil {
			return err
		}
		t.raw = nil
		t.image = img
		return nil
	}
	return nil
}

// ---- model ----

func (t *Task) stepModel() error {
	switch t.stage {
	case 0:
		return t.read()
	case 1:
		if err := t.parse(); err != nil {
			return err
		}
		t.model = &render.ModelData{}
	case 2:
		for i := range t.parsed.UnitsIndexed {
			t.model.Units = append(t.model.Units, convertUnit(&t.parsed.UnitsIndexed[i]))
		}
	case 3:
		// Joint influences are meaningless for a static model.
		for i := range t.parsed.UnitsIndexedJoint {
			t.model.Units = append(t.model.Units, convertJointUnitStatic(&t.parsed.UnitsIndexedJoint[i]))
		}
	case 4:
		t.warnStraightUnits()
	}
	return nil
}

// ---- skinned model ----

func (t *Task) stepSkinned() error {
	switch t.stage {
	case 0:
		return t.read()
	case 1:
		if err := t.parse(); err != nil {
			return err
		}
		t.skinned = &render.SkinnedModelData{}
	case 2:
		for i := range t.parsed.UnitsIndexed {
			t.skinned.Units = append(t.skinned.Units, convertUnitSkinned(&t.parsed.UnitsIndexed[i]))
		}
	case 3:
		for i := range t.parsed.UnitsIndexedJoint {
			t.skinned.Units = append(t.skinned.Units, convertJointUnit(&t.parsed.UnitsIndexedJoint[i]))
		}
	case 4:
		for i := range t.parsed.Animations {
			t.skinned.Animations = append(t.skinned.Animations, t.convertAnimation(&t.parsed.Animations[i]))
		}
	case 5:
		t.skinned.Skeleton = convertSkeleton(&t.parsed.Skeleton)
		if n := len(t.skinned.Skeleton.Joints); n > render.MaxJointCount {
			t.log.Warn("load: skeleton joint count over limit",
				"joints", n, "limit", render.MaxJointCount)
			t.skinned.Skeleton.Joints = t.skinned.Skeleton.Joints[:render.MaxJointCount]
			if dropped := dropOverflowInfluences(t.skinned.Units); dropped > 0 {
				t.log.Warn("load: vertex influences on dropped joints removed", "influences", dropped)
			}
		}
	case 6:
		if err := t.skinned.Skeleton.ComputeGlobals(); err != nil {
			return err
		}
		for i := range t.skinned.Animations {
			a := &t.skinned.Animations[i]
			if dropped := a.Bind(&t.skinned.Skeleton); dropped > 0 {
				t.log.Warn("load: animation tracks reference unknown joints",
					"animation", a.Name, "dropped", dropped)
			}
		}
		t.warnStraightUnits()
	}
	return nil
}

func (t *Task) convertAnimation(src *decode.ParsedAnimation) render.Animation {
	joints := src.Joints
	if len(joints) > render.MaxJointCount {
		t.log.Warn("load: animation joint count over limit",
			"animation", src.Name, "joints", len(joints), "limit", render.MaxJointCount)
		joints = joints[:render.MaxJointCount]
	}

	a := render.Animation{
		Name:           src.Name,
		TicksPerSecond: src.TicksPerSec,
		Duration:       src.DurationTicks(),
		Tracks:         make([]render.JointTrack, len(joints)),
	}
	for i, j := range joints {
		keys := make([]render.Keyframe, len(j.Keyframes))
		for k, kf := range j.Keyframes {
			keys[k] = render.Keyframe{
				Time:        kf.Time,
				Translation: kf.Translation,
				Rotation:    kf.Rotation,
				Scale:       kf.Scale,
			}
		}
		a.Tracks[i] = render.JointTrack{Joint: j.Name, Keyframes: keys}
	}
	return a
}

// ---- conversion helpers ----

func convertMaterial(m *decode.ParsedMaterial) render.Material {
	return render.Material{
		AlbedoMap:     m.AlbedoMap,
		Roughness:     m.Roughness,
		Metallic:      m.Metallic,
		AlphaBlending: m.Transparency,
	}
}

func convertVertex(v *decode.ParsedVertex) render.Vertex {
	return render.Vertex{Pos: v.Position, Normal: v.Normal, UV: v.UV}
}

func convertJointVertex(v *decode.ParsedJointVertex) render.Vertex {
	return render.Vertex{Pos: v.Position, Normal: v.Normal, UV: v.UV}
}

// weightCenter is the mean vertex position.
func weightCenter(n int, pos func(i int) [3]float32) [3]float32 {
	var c [3]float32
	if n == 0 {
		return c
	}
	for i := range n {
		p := pos(i)
		c[0] += p[0]
		c[1] += p[1]
		c[2] += p[2]
	}
	inv := 1 / float32(n)
	return [3]float32{c[0] * inv, c[1] * inv, c[2] * inv}
}

func convertUnit(u *decode.IndexedUnit) render.Unit {
	out := render.Unit{
		Vertices: make([]render.Vertex, len(u.Vertices)),
		Indices:  u.Indices,
		Material: convertMaterial(&u.Material),
	}
	for i := range u.Vertices {
		out.Vertices[i] = convertVertex(&u.Vertices[i])
	}
	out.WeightCenter = weightCenter(len(u.Vertices), func(i int) [3]float32 { return u.Vertices[i].Position })
	return out
}

func convertJointUnitStatic(u *decode.IndexedJointUnit) render.Unit {
	out := render.Unit{
		Vertices: make([]render.Vertex, len(u.Vertices)),
		Indices:  u.Indices,
		Material: convertMaterial(&u.Material),
	}
	for i := range u.Vertices {
		out.Vertices[i] = convertJointVertex(&u.Vertices[i])
	}
	out.WeightCenter = weightCenter(len(u.Vertices), func(i int) [3]float32 { return u.Vertices[i].Position })
	return out
}

var noJoints = [4]int32{-1, -1, -1, -1}

func convertUnitSkinned(u *decode.IndexedUnit) render.SkinnedUnit {
	out := render.SkinnedUnit{
		Vertices: make([]render.SkinnedVertex, len(u.Vertices)),
		Indices:  u.Indices,
		Material: convertMaterial(&u.Material),
	}
	for i := range u.Vertices {
		out.Vertices[i] = render.SkinnedVertex{
			Vertex:   convertVertex(&u.Vertices[i]),
			JointIDs: noJoints,
		}
	}
	out.WeightCenter = weightCenter(len(u.Vertices), func(i int) [3]float32 { return u.Vertices[i].Position })
	return out
}

func convertJointUnit(u *decode.IndexedJointUnit) render.SkinnedUnit {
	out := render.SkinnedUnit{
		Vertices: make([]render.SkinnedVertex, len(u.Vertices)),
		Indices:  u.Indices,
		Material: convertMaterial(&u.Material),
	}
	for i := range u.Vertices {
		v := &u.Vertices[i]
		out.Vertices[i] = render.SkinnedVertex{
			Vertex:       convertJointVertex(v),
			JointIDs:     v.JointIndices,
			JointWeights: v.JointWeights,
		}
	}
	out.WeightCenter = weightCenter(len(u.Vertices), func(i int) [3]float32 { return u.Vertices[i].Position })
	return out
}

// convertSkeleton copies the joint hierarchy. The file's root transform is
// folded into every root joint; an all-zero root transform means identity.
func convertSkeleton(src *decode.ParsedSkeleton) render.Skeleton {
	root := render.Mat4(src.RootTransform)
	if root == (render.Mat4{}) {
		root = render.Identity()
	}

	s := render.Skeleton{Joints: make([]render.Joint, len(src.Joints))}
	for i, j := range src.Joints {
		off := render.Mat4(j.Offset)
		if j.Parent < 0 {
			off = root.Mul(off)
		}
		s.Joints[i] = render.Joint{Name: j.Name, Parent: j.Parent, Offset: off}
	}
	return s
}

// dropOverflowInfluences clears joint slots that point past
// render.MaxJointCount and returns how many were cleared. Parents precede
// their children, so truncating the joint list keeps every remaining
// parent index valid.
func dropOverflowInfluences(units []render.SkinnedUnit) int {
	dropped := 0
	for u := range units {
		vs := units[u].Vertices
		for i := range vs {
			v := &vs[i]
			for k, id := range v.JointIDs {
				if id >= render.MaxJointCount {
					v.JointIDs[k] = -1
					v.JointWeights[k] = 0
					dropped++
				}
			}
		}
	}
	return dropped
}

var _ sched.Failer = (*Task)(nil)
