// Package resman loads GPU resources asynchronously and keeps them alive
// across renderer changes.
//
// # Overview
//
// A [Manager] hands out handles for textures, models and skinned models by
// asset path. The first request for a path allocates an empty handle and
// starts a load on a [sched.Scheduler]; later requests for the same resolved
// path return the same handle. Handles become ready once their payload has
// been decoded on a worker and uploaded on the coordinator goroutine.
//
// # Quick Start
//
//	s := sched.New(4)
//	defer s.Close()
//
//	store := asset.NewOsFS("./assets", "./userdata")
//	m := resman.New(store, s)
//	defer m.Close()
//
//	m.SetRenderer(headless.New())
//	tex := m.RequestTexture("image/brick.png")
//
//	for !tex.IsReady() {
//	    m.Update() // once per frame
//	}
//
// # Renderer Changes
//
// [Manager.InvalidateRenderer] waits for the device, destroys every payload
// and drops pending loads. Handles stay valid. [Manager.SetRenderer] attaches
// fresh backend objects to every tracked handle and loads everything again.
// Completions of loads started before the invalidation are ignored.
//
// # Fallbacks
//
// A request for a path that does not resolve logs an error and returns the
// fallback handle of its kind, by default _asset/image/missing_tex.png for
// textures and _asset/model/missing_model.dmd for both model kinds.
//
// # Concurrency
//
// A Manager is driven from one goroutine, usually the render loop. Workers
// only ever touch tasks; payloads reach handles inside [Manager.Update].
package resman

// Version is the current version of the module.
const Version = "0.1.0"
