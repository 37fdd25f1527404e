// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package headless

import (
	"errors"
	"fmt"

	"github.com/gogpu/resman/render"
)

// ErrDestroyed is returned when a destroyed object is written to.
var ErrDestroyed = errors.New("headless: object destroyed")

// obj is the state every headless object shares.
type obj struct {
	backend   *Backend
	id        uint64
	destroyed bool
}

// ID returns the object's backend-unique identifier.
func (o *obj) ID() uint64 { return o.id }

// Destroyed reports whether Destroy was called.
func (o *obj) Destroyed() bool { return o.destroyed }

// Destroy implements render.Object.
func (o *obj) Destroy() {
	if o.destroyed {
		return
	}
	o.destroyed = true
	o.backend.release(o.id)
}

func (o *obj) beginUpload() error {
	if o.destroyed {
		return ErrDestroyed
	}
	if err := o.backend.uploadErr; err != nil {
		return err
	}
	o.backend.uploads.Add(1)
	return nil
}

// Texture holds an uploaded image.
type Texture struct {
	obj

	img *render.Image
}

// SetImage implements render.TextureObject.
func (t *Texture) SetImage(img *render.Image) error {
	if img == nil {
		return errors.New("headless: nil image")
	}
	if err := t.beginUpload(); err != nil {
		return err
	}
	t.img = img
	return nil
}

// Image returns the uploaded image, or nil.
func (t *Texture) Image() *render.Image { return t.img }

// IsReady implements render.Object.
func (t *Texture) IsReady() bool { return !t.destroyed && t.img != nil }

// Destroy implements render.Object.
func (t *Texture) Destroy() {
	t.img = nil
	t.obj.Destroy()
}

// preparer counts down the Prepare calls a model still needs.
type preparer struct {
	remaining int
	prepares  int
}

func (p *preparer) step() bool {
	p.prepares++
	if p.remaining > 0 {
		p.remaining--
	}
	return p.remaining > 0
}

// Model holds an uploaded static model.
type Model struct {
	obj
	preparer

	data      *render.ModelData
	namespace string
}

// Init implements render.ModelObject.
func (m *Model) Init(data *render.ModelData, namespace string) error {
	if data == nil {
		return errors.New("headless: nil model data")
	}
	if err := m.beginUpload(); err != nil {
		return err
	}
	m.data, m.namespace = data, namespace
	m.remaining = m.backend.prepareSteps
	return nil
}

// Prepare implements render.ModelObject.
func (m *Model) Prepare() bool {
	if m.data == nil || m.destroyed {
		return false
	}
	return m.step()
}

// Data returns the uploaded model, or nil.
func (m *Model) Data() *render.ModelData { return m.data }

// Namespace returns the namespace passed to Init.
func (m *Model) Namespace() string { return m.namespace }

// Prepares returns how many times Prepare was called.
func (m *Model) Prepares() int { return m.prepares }

// IsReady implements render.Object.
func (m *Model) IsReady() bool { return !m.destroyed && m.data != nil && m.remaining == 0 }

// Destroy implements render.Object.
func (m *Model) Destroy() {
	m.data = nil
	m.obj.Destroy()
}

// SkinnedModel holds an uploaded skinned model.
type SkinnedModel struct {
	obj
	preparer

	data      *render.SkinnedModelData
	namespace string
}

// Init implements render.SkinnedModelObject.
func (m *SkinnedModel) Init(data *render.SkinnedModelData, namespace string) error {
	if data == nil {
		return errors.New("headless: nil skinned model data")
	}
	if len(data.Skeleton.Joints) > render.MaxJointCount {
		return fmt.Errorf("headless: %d joints exceed limit %d", len(data.Skeleton.Joints), render.MaxJointCount)
	}
	if err := m.beginUpload(); err != nil {
		return err
	}
	m.data, m.namespace = data, namespace
	m.remaining = m.backend.prepareSteps
	return nil
}

// Prepare implements render.SkinnedModelObject.
func (m *SkinnedModel) Prepare() bool {
	if m.data == nil || m.destroyed {
		return false
	}
	return m.step()
}

// Data returns the uploaded model, or nil.
func (m *SkinnedModel) Data() *render.SkinnedModelData { return m.data }

// Namespace returns the namespace passed to Init.
func (m *SkinnedModel) Namespace() string { return m.namespace }

// Prepares returns how many times Prepare was called.
func (m *SkinnedModel) Prepares() int { return m.prepares }

// IsReady implements render.Object.
func (m *SkinnedModel) IsReady() bool { return !m.destroyed && m.data != nil && m.remaining == 0 }

// Destroy implements render.Object.
func (m *SkinnedModel) Destroy() {
	m.data = nil
	m.obj.Destroy()
}

// Actor is a placed model instance.
type Actor struct {
	obj

	initialized bool
	transform   render.Mat4
}

// Init implements render.ActorObject.
func (a *Actor) Init() error {
	if a.destroyed {
		return ErrDestroyed
	}
	a.initialized = true
	a.transform = render.Identity()
	return nil
}

// SetTransform implements render.ActorObject.
func (a *Actor) SetTransform(m render.Mat4) { a.transform = m }

// Transform returns the last transform set.
func (a *Actor) Transform() render.Mat4 { return a.transform }

// IsReady implements render.Object.
func (a *Actor) IsReady() bool { return !a.destroyed && a.initialized }

// SkinnedActor is a placed skinned model instance.
type SkinnedActor struct {
	Actor

	joints []render.Mat4
}

// SetJointTransforms implements render.SkinnedActorObject.
func (a *SkinnedActor) SetJointTransforms(joints []render.Mat4) {
	a.joints = append(a.joints[:0], joints[:min(len(joints), render.MaxJointCount)]...)
}

// JointTransforms returns the joint palette.
func (a *SkinnedActor) JointTransforms() []render.Mat4 { return a.joints }

// Mesh holds generated geometry.
type Mesh struct {
	obj

	data *render.MeshData
}

// Init implements render.MeshObject.
func (m *Mesh) Init(data *render.MeshData) error {
	if data == nil {
		return errors.New("headless: nil mesh data")
	}
	if err := m.beginUpload(); err != nil {
		return err
	}
	m.data = data
	return nil
}

// Data returns the uploaded mesh, or nil.
func (m *Mesh) Data() *render.MeshData { return m.data }

// IsReady implements render.Object.
func (m *Mesh) IsReady() bool { return !m.destroyed && m.data != nil }

// Destroy implements render.Object.
func (m *Mesh) Destroy() {
	m.data = nil
	m.obj.Destroy()
}

var (
	_ render.TextureObject      = (*Texture)(nil)
	_ render.ModelObject        = (*Model)(nil)
	_ render.SkinnedModelObject = (*SkinnedModel)(nil)
	_ render.ActorObject        = (*Actor)(nil)
	_ render.SkinnedActorObject = (*SkinnedActor)(nil)
	_ render.MeshObject         = (*Mesh)(nil)
)
