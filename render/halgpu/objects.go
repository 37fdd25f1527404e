// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/resman/render"
)

// ErrInvalidImage is returned for images whose pixel data does not match
// their size.
var ErrInvalidImage = errors.New("halgpu: invalid image")

// minBufferSize keeps zero-length uploads valid.
const minBufferSize = 4

// newBuffer creates a buffer sized for data and writes data into it.
func (b *Backend) newBuffer(label string, usage gputypes.BufferUsage, data []byte) (hal.Buffer, error) {
	size := max(uint64(len(data)), minBufferSize)
	buf, err := b.gpu.createBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("halgpu: create %s buffer: %w", label, err)
	}
	b.stats.Buffers++
	if len(data) > 0 {
		b.gpu.writeBuffer(buf, data)
		b.stats.BytesWritten += uint64(len(data))
	}
	return buf, nil
}

func (b *Backend) releaseBuffer(buf hal.Buffer) {
	if buf == nil {
		return
	}
	b.gpu.destroyBuffer(buf)
	b.stats.Buffers--
}

// Texture is a sampled RGBA8 texture.
type Texture struct {
	b   *Backend
	tex hal.Texture
}

// SetImage implements render.TextureObject. A previous image is replaced.
func (t *Texture) SetImage(img *render.Image) error {
	if img == nil || img.Width <= 0 || img.Height <= 0 || len(img.Pix) < img.Stride()*img.Height {
		return ErrInvalidImage
	}
	t.release()

	w, h := uint32(img.Width), uint32(img.Height) //nolint:gosec // checked positive above
	size := hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1}
	tex, err := t.b.gpu.createTexture(&hal.TextureDescriptor{
		Label:         "resman_texture",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("halgpu: create texture: %w", err)
	}
	t.b.stats.Textures++

	t.b.gpu.writeTexture(
		&hal.ImageCopyTexture{Texture: tex, MipLevel: 0},
		img.Pix,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: w * 4, RowsPerImage: h},
		&size,
	)
	t.b.stats.BytesWritten += uint64(len(img.Pix))
	t.tex = tex
	return nil
}

// IsReady implements render.Object.
func (t *Texture) IsReady() bool { return t.tex != nil }

// Destroy implements render.Object.
func (t *Texture) Destroy() { t.release() }

func (t *Texture) release() {
	if t.tex == nil {
		return
	}
	t.b.gpu.destroyTexture(t.tex)
	t.b.stats.Textures--
	t.tex = nil
}

// gpuUnit is one draw call's buffers.
type gpuUnit struct {
	vertex     hal.Buffer
	index      hal.Buffer
	material   hal.Buffer
	indexCount int
}

// modelCore is shared by static and skinned models: geometry is uploaded
// at Init, then Prepare creates one material buffer per call.
type modelCore struct {
	b *Backend

	namespace string
	units     []gpuUnit
	materials []render.Material
	extra     []hal.Buffer
	prepared  int
	shaderOK  bool
	inited    bool
	failed    bool
}

func (m *modelCore) addUnit(label string, vertices []byte, indices []uint32, mat render.Material) error {
	vb, err := m.b.newBuffer(label+"_vertex", gputypes.BufferUsageVertex, vertices)
	if err != nil {
		return err
	}
	ib, err := m.b.newBuffer(label+"_index", gputypes.BufferUsageIndex, encodeIndices(indices))
	if err != nil {
		m.b.releaseBuffer(vb)
		return err
	}
	m.units = append(m.units, gpuUnit{vertex: vb, index: ib, indexCount: len(indices)})
	m.materials = append(m.materials, mat)
	return nil
}

// Prepare implements render.ModelObject.
func (m *modelCore) Prepare() bool {
	if !m.inited || m.failed {
		return false
	}
	if !m.shaderOK {
		if _, err := m.b.materialShader(); err != nil {
			m.b.logger.Error("halgpu: model cannot be prepared", "namespace", m.namespace, "error", err)
			m.failed = true
			return false
		}
		m.shaderOK = true
	}
	if m.prepared < len(m.units) {
		u := &m.units[m.prepared]
		buf, err := m.b.newBuffer("material", gputypes.BufferUsageUniform, encodeMaterial(&m.materials[m.prepared]))
		if err != nil {
			m.b.logger.Error("halgpu: material upload failed", "namespace", m.namespace, "error", err)
			m.failed = true
			return false
		}
		u.material = buf
		m.prepared++
	}
	return m.prepared < len(m.units)
}

// IsReady implements render.Object.
func (m *modelCore) IsReady() bool {
	return m.inited && !m.failed && m.shaderOK && m.prepared == len(m.units)
}

// Destroy implements render.Object.
func (m *modelCore) Destroy() {
	for i := range m.units {
		u := &m.units[i]
		m.b.releaseBuffer(u.vertex)
		m.b.releaseBuffer(u.index)
		m.b.releaseBuffer(u.material)
	}
	for _, buf := range m.extra {
		m.b.releaseBuffer(buf)
	}
	*m = modelCore{b: m.b}
}

// Model is a static model.
type Model struct {
	modelCore
}

// Init implements render.ModelObject.
func (m *Model) Init(data *render.ModelData, namespace string) error {
	if data == nil {
		return errors.New("halgpu: nil model data")
	}
	m.Destroy()
	m.namespace = namespace
	for i := range data.Units {
		u := &data.Units[i]
		if err := m.addUnit("model", encodeVertices(u.Vertices), u.Indices, u.Material); err != nil {
			m.Destroy()
			return err
		}
	}
	m.inited = true
	return nil
}

// SkinnedModel is a model with a joint palette.
type SkinnedModel struct {
	modelCore

	joints int
}

// Init implements render.SkinnedModelObject. The bind pose palette is
// uploaded with the geometry.
func (m *SkinnedModel) Init(data *render.SkinnedModelData, namespace string) error {
	if data == nil {
		return errors.New("halgpu: nil skinned model data")
	}
	if n := len(data.Skeleton.Joints); n > render.MaxJointCount {
		return fmt.Errorf("halgpu: %d joints exceed limit %d", n, render.MaxJointCount)
	}
	m.Destroy()
	m.namespace = namespace
	for i := range data.Units {
		u := &data.Units[i]
		if err := m.addUnit("skinned", encodeSkinnedVertices(u.Vertices), u.Indices, u.Material); err != nil {
			m.Destroy()
			return err
		}
	}
	palette, err := m.b.newBuffer("bind_pose", gputypes.BufferUsageUniform, encodeMat4s(data.Skeleton.Globals))
	if err != nil {
		m.Destroy()
		return err
	}
	m.extra = append(m.extra, palette)
	m.joints = len(data.Skeleton.Joints)
	m.inited = true
	return nil
}

// Actor is a placed model instance with its own transform buffer.
type Actor struct {
	b         *Backend
	transform hal.Buffer
}

// Init implements render.ActorObject.
func (a *Actor) Init() error {
	a.Destroy()
	id := render.Identity()
	buf, err := a.b.newBuffer("actor_transform", gputypes.BufferUsageUniform, encodeMat4s([]render.Mat4{id}))
	if err != nil {
		return err
	}
	a.transform = buf
	return nil
}

// SetTransform implements render.ActorObject.
func (a *Actor) SetTransform(m render.Mat4) {
	if a.transform == nil {
		return
	}
	data := encodeMat4s([]render.Mat4{m})
	a.b.gpu.writeBuffer(a.transform, data)
	a.b.stats.BytesWritten += uint64(len(data))
}

// IsReady implements render.Object.
func (a *Actor) IsReady() bool { return a.transform != nil }

// Destroy implements render.Object.
func (a *Actor) Destroy() {
	a.b.releaseBuffer(a.transform)
	a.transform = nil
}

// SkinnedActor adds a joint palette buffer to an actor.
type SkinnedActor struct {
	Actor

	joints hal.Buffer
}

// Init implements render.SkinnedActorObject.
func (a *SkinnedActor) Init() error {
	a.Destroy()
	if err := a.Actor.Init(); err != nil {
		return err
	}
	palette := make([]render.Mat4, render.MaxJointCount)
	for i := range palette {
		palette[i] = render.Identity()
	}
	buf, err := a.b.newBuffer("actor_joints", gputypes.BufferUsageUniform, encodeMat4s(palette))
	if err != nil {
		a.Actor.Destroy()
		return err
	}
	a.joints = buf
	return nil
}

// SetJointTransforms implements render.SkinnedActorObject. Joints past
// render.MaxJointCount are ignored.
func (a *SkinnedActor) SetJointTransforms(joints []render.Mat4) {
	if a.joints == nil {
		return
	}
	data := encodeMat4s(joints[:min(len(joints), render.MaxJointCount)])
	a.b.gpu.writeBuffer(a.joints, data)
	a.b.stats.BytesWritten += uint64(len(data))
}

// IsReady implements render.Object.
func (a *SkinnedActor) IsReady() bool { return a.Actor.IsReady() && a.joints != nil }

// Destroy implements render.Object.
func (a *SkinnedActor) Destroy() {
	a.Actor.Destroy()
	a.b.releaseBuffer(a.joints)
	a.joints = nil
}

// Mesh is generated geometry.
type Mesh struct {
	b *Backend

	vertex hal.Buffer
	index  hal.Buffer
}

// Init implements render.MeshObject.
func (m *Mesh) Init(data *render.MeshData) error {
	if data == nil {
		return errors.New("halgpu: nil mesh data")
	}
	m.Destroy()
	vb, err := m.b.newBuffer("mesh_vertex", gputypes.BufferUsageVertex, encodeVertices(data.Vertices))
	if err != nil {
		return err
	}
	ib, err := m.b.newBuffer("mesh_index", gputypes.BufferUsageIndex, encodeIndices(data.Indices))
	if err != nil {
		m.b.releaseBuffer(vb)
		return err
	}
	m.vertex, m.index = vb, ib
	return nil
}

// IsReady implements render.Object.
func (m *Mesh) IsReady() bool { return m.vertex != nil && m.index != nil }

// Destroy implements render.Object.
func (m *Mesh) Destroy() {
	m.b.releaseBuffer(m.vertex)
	m.b.releaseBuffer(m.index)
	m.vertex, m.index = nil, nil
}

var (
	_ render.TextureObject      = (*Texture)(nil)
	_ render.ModelObject        = (*Model)(nil)
	_ render.SkinnedModelObject = (*SkinnedModel)(nil)
	_ render.ActorObject        = (*Actor)(nil)
	_ render.SkinnedActorObject = (*SkinnedActor)(nil)
	_ render.MeshObject         = (*Mesh)(nil)
)
