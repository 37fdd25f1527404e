// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halgpu

import (
	"fmt"

	"github.com/gogpu/naga"
)

// materialShaderWGSL shades model units with a flat PBR approximation.
// The material uniform layout matches encodeMaterial.
const materialShaderWGSL = `
struct Camera {
    view_proj: mat4x4<f32>,
}

struct Material {
    roughness: f32,
    metallic: f32,
    alpha: f32,
    _pad: f32,
}

@group(0) @binding(0) var<uniform> camera: Camera;
@group(1) @binding(0) var<uniform> model: mat4x4<f32>;
@group(2) @binding(0) var<uniform> material: Material;

struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) normal: vec3<f32>,
    @location(1) uv: vec2<f32>,
}

@vertex
fn vs_main(
    @location(0) pos: vec3<f32>,
    @location(1) normal: vec3<f32>,
    @location(2) uv: vec2<f32>,
) -> VertexOutput {
    var out: VertexOutput;
    out.position = camera.view_proj * model * vec4<f32>(pos, 1.0);
    out.normal = normal;
    out.uv = uv;
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    let light = max(dot(normalize(in.normal), vec3<f32>(0.0, 0.0, 1.0)), 0.1);
    let shade = light * (1.0 - material.roughness * 0.5) + material.metallic * 0.1;
    return vec4<f32>(vec3<f32>(shade), material.alpha);
}
`

// Compiler turns WGSL source into SPIR-V words.
type Compiler func(wgsl string) ([]uint32, error)

// CompileWGSL compiles WGSL to SPIR-V with naga.
func CompileWGSL(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("halgpu: compile shader: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("halgpu: SPIR-V length %d is not a multiple of 4", len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}
