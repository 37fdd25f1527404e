// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"
)

// ErrSkeletonOrder is returned when a joint's parent does not precede it.
var ErrSkeletonOrder = errors.New("render: joint parent must precede the joint")

// Joint is a node of a skeleton. Parent is -1 for roots.
type Joint struct {
	Name   string
	Parent int

	// Offset is the joint's transform relative to its parent.
	Offset Mat4
}

// Skeleton is an ordered joint hierarchy. Parents always come before their
// children, so a single forward pass computes global transforms.
type Skeleton struct {
	Joints []Joint

	// Globals holds each joint's model-space transform after ComputeGlobals.
	Globals []Mat4
}

// Find returns the index of the joint called name, or -1.
func (s *Skeleton) Find(name string) int {
	for i := range s.Joints {
		if s.Joints[i].Name == name {
			return i
		}
	}
	return -1
}

// ComputeGlobals fills Globals. A root's global transform is its offset;
// every other joint's is its parent's global times its offset.
func (s *Skeleton) ComputeGlobals() error {
	globals := make([]Mat4, len(s.Joints))
	for i := range s.Joints {
		j := &s.Joints[i]
		switch {
		case j.Parent < 0:
			globals[i] = j.Offset
		case j.Parent >= i:
			return fmt.Errorf("%w: joint %d %q has parent %d", ErrSkeletonOrder, i, j.Name, j.Parent)
		default:
			globals[i] = globals[j.Parent].Mul(j.Offset)
		}
	}
	s.Globals = globals
	return nil
}

// Keyframe is one sampled pose of a joint.
type Keyframe struct {
	Time        float32
	Translation [3]float32
	Rotation    [4]float32 // quaternion x, y, z, w
	Scale       [3]float32
}

// JointTrack animates one joint, referenced by name.
type JointTrack struct {
	Joint     string
	Keyframes []Keyframe
}

// Animation is a named clip of joint tracks.
type Animation struct {
	Name           string
	TicksPerSecond float32
	Duration       float32
	Tracks         []JointTrack

	// JointIndex maps Tracks[i] to a joint of the bound skeleton.
	// It is nil until Bind is called.
	JointIndex []int
}

// Bind resolves track joint names against s. Tracks that name a joint the
// skeleton does not have are removed; the number removed is returned.
func (a *Animation) Bind(s *Skeleton) (dropped int) {
	tracks := a.Tracks[:0]
	index := make([]int, 0, len(a.Tracks))
	for _, tr := range a.Tracks {
		j := s.Find(tr.Joint)
		if j < 0 {
			dropped++
			continue
		}
		tracks = append(tracks, tr)
		index = append(index, j)
	}
	a.Tracks = tracks
	a.JointIndex = index
	return dropped
}

// CompatibleWith reports whether the animation was bound to a skeleton with
// the same joint names as s.
func (a *Animation) CompatibleWith(s *Skeleton) bool {
	if len(a.JointIndex) != len(a.Tracks) {
		return false
	}
	for i, j := range a.JointIndex {
		if j < 0 || j >= len(s.Joints) || s.Joints[j].Name != a.Tracks[i].Joint {
			return false
		}
	}
	return true
}
