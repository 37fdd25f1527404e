// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package headless

import (
	"errors"
	"testing"

	"github.com/gogpu/resman/render"
)

func TestRegistered(t *testing.T) {
	if !render.IsRegistered(Name) {
		t.Fatalf("%q backend should be registered on import", Name)
	}
	b, err := render.Open(Name, render.Options{PrepareSteps: 3})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if b.Name() != Name {
		t.Errorf("Name() = %q, want %q", b.Name(), Name)
	}
	if hb := b.(*Backend); hb.prepareSteps != 3 {
		t.Errorf("prepareSteps = %d, want 3", hb.prepareSteps)
	}
}

func TestTexture(t *testing.T) {
	b := New()
	h := render.CreateTexture(b)
	if h.IsReady() {
		t.Fatal("new texture should not be ready")
	}

	obj, _ := h.Object()
	img := &render.Image{Width: 1, Height: 1, Pix: []byte{1, 2, 3, 4}}
	if err := obj.SetImage(img); err != nil {
		t.Fatalf("SetImage() error = %v", err)
	}
	if !h.IsReady() {
		t.Error("texture should be ready after SetImage")
	}
	if got := obj.(*Texture).Image(); got != img {
		t.Error("Image() should return the uploaded image")
	}

	h.Destroy()
	if h.IsReady() {
		t.Error("destroyed texture should not be ready")
	}
	if err := obj.SetImage(img); !errors.Is(err, ErrDestroyed) {
		t.Errorf("SetImage() after Destroy error = %v, want ErrDestroyed", err)
	}

	s := b.Stats()
	if s.Live != 0 || s.Created != 1 || s.Destroyed != 1 || s.Uploads != 1 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestModelPrepareSteps(t *testing.T) {
	tests := []struct {
		steps        int
		wantPrepares int
	}{
		{0, 0},
		{1, 1},
		{3, 3},
	}
	for _, tt := range tests {
		b := New(WithPrepareSteps(tt.steps))
		m := b.NewModel()
		if err := m.Init(&render.ModelData{}, "_asset"); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		n := 0
		for !m.IsReady() {
			n++
			more := m.Prepare()
			if n > 10 {
				t.Fatalf("steps=%d: model never became ready", tt.steps)
			}
			if more == m.IsReady() {
				t.Fatalf("steps=%d: Prepare() more=%v but IsReady()=%v", tt.steps, more, m.IsReady())
			}
		}
		if n != tt.wantPrepares {
			t.Errorf("steps=%d: ready after %d Prepare calls, want %d", tt.steps, n, tt.wantPrepares)
		}
		if got := m.(*Model).Namespace(); got != "_asset" {
			t.Errorf("Namespace() = %q", got)
		}
	}
}

func TestPrepareBeforeInit(t *testing.T) {
	m := New(WithPrepareSteps(2)).NewModel()
	if m.Prepare() {
		t.Error("Prepare() before Init should report no work")
	}
	if m.IsReady() {
		t.Error("model without data should not be ready")
	}
}

func TestSkinnedModelJointLimit(t *testing.T) {
	b := New()
	m := b.NewSkinnedModel()
	data := &render.SkinnedModelData{}
	data.Skeleton.Joints = make([]render.Joint, render.MaxJointCount+1)
	if err := m.Init(data, "x"); err == nil {
		t.Error("Init() with too many joints should fail")
	}
}

func TestFailUploads(t *testing.T) {
	b := New()
	boom := errors.New("boom")
	b.FailUploads(boom)

	if err := b.NewMesh().Init(&render.MeshData{}); !errors.Is(err, boom) {
		t.Errorf("Init() error = %v, want boom", err)
	}
	b.FailUploads(nil)
	if err := b.NewMesh().Init(&render.MeshData{}); err != nil {
		t.Errorf("Init() error = %v", err)
	}
}

func TestActors(t *testing.T) {
	b := New()
	a := b.NewSkinnedActor()
	if a.IsReady() {
		t.Error("actor should not be ready before Init")
	}
	if err := a.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if !a.IsReady() {
		t.Error("actor should be ready after Init")
	}
	if got := a.(*SkinnedActor).Transform(); got != render.Identity() {
		t.Error("Init should reset the transform to identity")
	}

	a.SetJointTransforms(make([]render.Mat4, render.MaxJointCount+5))
	if got := len(a.(*SkinnedActor).JointTransforms()); got != render.MaxJointCount {
		t.Errorf("joint palette length = %d, want %d", got, render.MaxJointCount)
	}

	a.Destroy()
	a.Destroy()
	if s := b.Stats(); s.Destroyed != 1 {
		t.Errorf("Destroyed = %d, want 1 (Destroy is idempotent)", s.Destroyed)
	}
}

func TestCloseWithLiveObjects(t *testing.T) {
	b := New()
	tex := b.NewTexture()
	if err := b.Close(); err == nil {
		t.Error("Close() with live objects should fail")
	}
	tex.Destroy()
	if err := b.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if len(b.Objects()) != 0 {
		t.Error("Objects() should be empty")
	}
}

func TestWaitIdle(t *testing.T) {
	b := New()
	_ = b.WaitIdle()
	_ = b.WaitIdle()
	if got := b.Stats().WaitIdles; got != 2 {
		t.Errorf("WaitIdles = %d, want 2", got)
	}
}
