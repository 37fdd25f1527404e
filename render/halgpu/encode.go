// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halgpu

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/resman/render"
)

// Byte sizes of the GPU-side layouts.
const (
	vertexSize        = 8 * 4  // pos, normal, uv
	skinnedVertexSize = 16 * 4 // vertex, 4 joint ids, 4 weights
	mat4Size          = 16 * 4
	materialSize      = 4 * 4
)

func putF32(b []byte, f float32) []byte {
	return binary.LittleEndian.AppendUint32(b, math.Float32bits(f))
}

func appendVertex(b []byte, v *render.Vertex) []byte {
	for _, f := range v.Pos {
		b = putF32(b, f)
	}
	for _, f := range v.Normal {
		b = putF32(b, f)
	}
	for _, f := range v.UV {
		b = putF32(b, f)
	}
	return b
}

func encodeVertices(vs []render.Vertex) []byte {
	b := make([]byte, 0, len(vs)*vertexSize)
	for i := range vs {
		b = appendVertex(b, &vs[i])
	}
	return b
}

func encodeSkinnedVertices(vs []render.SkinnedVertex) []byte {
	b := make([]byte, 0, len(vs)*skinnedVertexSize)
	for i := range vs {
		v := &vs[i]
		b = appendVertex(b, &v.Vertex)
		for _, j := range v.JointIDs {
			b = binary.LittleEndian.AppendUint32(b, uint32(j)) //nolint:gosec // -1 marks an unused slot
		}
		for _, w := range v.JointWeights {
			b = putF32(b, w)
		}
	}
	return b
}

func encodeIndices(idx []uint32) []byte {
	b := make([]byte, 0, len(idx)*4)
	for _, i := range idx {
		b = binary.LittleEndian.AppendUint32(b, i)
	}
	return b
}

func encodeMat4s(ms []render.Mat4) []byte {
	b := make([]byte, 0, len(ms)*mat4Size)
	for i := range ms {
		for _, f := range ms[i] {
			b = putF32(b, f)
		}
	}
	return b
}

func encodeMaterial(m *render.Material) []byte {
	alpha := float32(1)
	if m.AlphaBlending {
		alpha = 0.5
	}
	b := make([]byte, 0, materialSize)
	b = putF32(b, m.Roughness)
	b = putF32(b, m.Metallic)
	b = putF32(b, alpha)
	return putF32(b, 0)
}
