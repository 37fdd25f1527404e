// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"github.com/gogpu/gputypes"
)

// MaxJointCount is the size of the joint palette every backend supports.
// Skinned models with more joints are truncated when loaded.
const MaxJointCount = 128

// Image is a decoded 2D image ready for upload.
type Image struct {
	Width  int
	Height int

	// Format is always gputypes.TextureFormatRGBA8Unorm for decoded assets.
	Format gputypes.TextureFormat

	// Pix holds Height rows of Width*4 bytes, no padding.
	Pix []byte
}

// Stride returns the number of bytes per row.
func (img *Image) Stride() int {
	return img.Width * 4
}

// Vertex is a static mesh vertex.
type Vertex struct {
	Pos    [3]float32
	Normal [3]float32
	UV     [2]float32
}

// SkinnedVertex is a vertex influenced by up to four joints.
// Unused joint slots hold -1 with weight 0.
type SkinnedVertex struct {
	Vertex

	JointIDs     [4]int32
	JointWeights [4]float32
}

// Material describes how a render unit is shaded.
type Material struct {
	// AlbedoMap is an asset path relative to the model's namespace.
	// Empty means a flat white albedo.
	AlbedoMap string

	Roughness     float32
	Metallic      float32
	AlphaBlending bool
}

// Unit is one draw call of a static model.
type Unit struct {
	Vertices     []Vertex
	Indices      []uint32
	Material     Material
	WeightCenter [3]float32
}

// SkinnedUnit is one draw call of a skinned model.
type SkinnedUnit struct {
	Vertices     []SkinnedVertex
	Indices      []uint32
	Material     Material
	WeightCenter [3]float32
}

// ModelData is the CPU-side content of a static model.
type ModelData struct {
	Units []Unit
}

// VertexCount returns the number of vertices over all units.
func (m *ModelData) VertexCount() int {
	n := 0
	for i := range m.Units {
		n += len(m.Units[i].Vertices)
	}
	return n
}

// SkinnedModelData is the CPU-side content of a skinned model.
type SkinnedModelData struct {
	Units      []SkinnedUnit
	Skeleton   Skeleton
	Animations []Animation
}

// VertexCount returns the number of vertices over all units.
func (m *SkinnedModelData) VertexCount() int {
	n := 0
	for i := range m.Units {
		n += len(m.Units[i].Vertices)
	}
	return n
}

// MeshData is procedurally generated geometry.
type MeshData struct {
	Vertices []Vertex
	Indices  []uint32
	Material Material
}
