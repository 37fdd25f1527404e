// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"sync"
	"sync/atomic"
)

// Object is the part every backend object has in common.
type Object interface {
	// IsReady reports whether the object holds a complete GPU payload.
	IsReady() bool

	// Destroy releases the GPU payload. The object must not be used after.
	Destroy()
}

// Handle is a stable reference to a backend object that may not exist yet.
//
// The zero value is an empty, not-ready handle. Handles are always used by
// pointer; copying one after first use is a bug.
//
// Attach, Destroy and Object are safe for concurrent use, but the object
// returned by Object is not: backend objects are only touched from the
// coordinator goroutine.
type Handle[O Object] struct {
	mu  sync.RWMutex
	obj O
	set bool

	// generation counts Attach calls. Tests use it to observe re-registration.
	generation atomic.Uint64
}

// Attach installs obj as the handle's payload object, replacing any previous
// one without destroying it. Callers destroy the old object first.
func (h *Handle[O]) Attach(obj O) {
	h.mu.Lock()
	h.obj = obj
	h.set = true
	h.mu.Unlock()
	h.generation.Add(1)
}

// Object returns the attached object, if any.
func (h *Handle[O]) Object() (O, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.obj, h.set
}

// IsReady reports whether an object is attached and that object is ready.
// A handle with no object is never ready.
func (h *Handle[O]) IsReady() bool {
	obj, ok := h.Object()
	return ok && obj.IsReady()
}

// Attached reports whether an object is attached, ready or not.
func (h *Handle[O]) Attached() bool {
	_, ok := h.Object()
	return ok
}

// Generation returns how many objects have been attached over the handle's
// lifetime.
func (h *Handle[O]) Generation() uint64 {
	return h.generation.Load()
}

// Destroy destroys the attached object and leaves the handle empty.
// Destroy on an empty handle is a no-op.
func (h *Handle[O]) Destroy() {
	h.mu.Lock()
	obj, ok := h.obj, h.set
	var zero O
	h.obj = zero
	h.set = false
	h.mu.Unlock()

	if ok {
		obj.Destroy()
	}
}

// Resource handle kinds.
type (
	Texture      = Handle[TextureObject]
	Model        = Handle[ModelObject]
	SkinnedModel = Handle[SkinnedModelObject]
	Actor        = Handle[ActorObject]
	SkinnedActor = Handle[SkinnedActorObject]
	Mesh         = Handle[MeshObject]
)
