// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render defines the contract between resman and a render backend.
//
// A backend turns decoded CPU-side payloads (images, models, meshes) into
// GPU objects. resman never talks to a GPU API directly; it only holds
// handles and calls the small object interfaces declared here.
//
// # Handles
//
// Every resource is represented by a handle ([Texture], [Model],
// [SkinnedModel], [Actor], [SkinnedActor], [Mesh]). A handle is a pointer
// with stable identity: consumers may keep it for as long as they like.
// The handle owns at most one backend object. When the backend goes away
// the object is destroyed and the handle becomes empty; when a new backend
// is attached a fresh object is registered into the same handle.
//
//	tex := render.CreateTexture(backend)
//	tex.IsReady() // false until the pixels were uploaded
//
// # Backends
//
// Backends implement [Backend]. Two ship with resman:
//
//   - render/headless: in-memory objects, used by tests and tools
//   - render/halgpu: wgpu/hal device and queue supplied by the host
//
// Backends register a factory with [Register] so that configuration can
// select them by name (see [Open]).
//
// # Payloads
//
// [Image], [ModelData], [SkinnedModelData] and [MeshData] are plain
// CPU-side values. They are produced on worker goroutines and handed to the
// coordinator goroutine, which uploads them through the object interfaces.
package render
