// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

// Backend creates backend objects and synchronizes with the device.
//
// All methods except Name are called from the coordinator goroutine only.
type Backend interface {
	// Name returns the backend identifier (e.g., "headless", "halgpu").
	Name() string

	// WaitIdle blocks until the device has finished all submitted work.
	// It is called before every object is destroyed on invalidation.
	WaitIdle() error

	NewTexture() TextureObject
	NewModel() ModelObject
	NewSkinnedModel() SkinnedModelObject
	NewActor() ActorObject
	NewSkinnedActor() SkinnedActorObject
	NewMesh() MeshObject

	// Close releases backend-wide resources. Objects created by the backend
	// must have been destroyed first.
	Close() error
}

// TextureObject receives decoded pixels.
type TextureObject interface {
	Object

	// SetImage uploads img. The texture is ready once it returns nil.
	SetImage(img *Image) error
}

// ModelObject receives a static model and prepares it over several ticks.
type ModelObject interface {
	Object

	// Init uploads vertex and index data. namespace is the asset namespace
	// of the model file, used to resolve material texture paths.
	Init(data *ModelData, namespace string) error

	// Prepare performs one slice of GPU-side setup and reports whether
	// more work remains.
	Prepare() (more bool)
}

// SkinnedModelObject receives a skinned model and prepares it over
// several ticks.
type SkinnedModelObject interface {
	Object

	Init(data *SkinnedModelData, namespace string) error
	Prepare() (more bool)
}

// ActorObject is a placed instance of a model.
type ActorObject interface {
	Object

	Init() error
	SetTransform(m Mat4)
}

// SkinnedActorObject is a placed instance of a skinned model with its own
// joint palette.
type SkinnedActorObject interface {
	ActorObject

	SetJointTransforms(joints []Mat4)
}

// MeshObject receives procedurally generated geometry.
type MeshObject interface {
	Object

	Init(data *MeshData) error
}

// MeshGenerator produces mesh geometry. Generators are kept with their
// mesh handle and run again when a new backend is attached.
type MeshGenerator func() (*MeshData, error)

// CreateTexture returns a new texture handle with an object from b.
func CreateTexture(b Backend) *Texture {
	h := new(Texture)
	h.Attach(b.NewTexture())
	return h
}

// CreateModel returns a new model handle with an object from b.
func CreateModel(b Backend) *Model {
	h := new(Model)
	h.Attach(b.NewModel())
	return h
}

// CreateSkinnedModel returns a new skinned model handle with an object from b.
func CreateSkinnedModel(b Backend) *SkinnedModel {
	h := new(SkinnedModel)
	h.Attach(b.NewSkinnedModel())
	return h
}

// CreateActor returns a new actor handle with an object from b.
func CreateActor(b Backend) *Actor {
	h := new(Actor)
	h.Attach(b.NewActor())
	return h
}

// CreateSkinnedActor returns a new skinned actor handle with an object from b.
func CreateSkinnedActor(b Backend) *SkinnedActor {
	h := new(SkinnedActor)
	h.Attach(b.NewSkinnedActor())
	return h
}

// CreateMesh returns a new mesh handle with an object from b.
func CreateMesh(b Backend) *Mesh {
	h := new(Mesh)
	h.Attach(b.NewMesh())
	return h
}
