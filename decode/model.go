package decode

import (
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// ModelVersion is the only model file version this package reads.
const ModelVersion = 1

// Model errors.
var (
	// ErrModelVersion is returned for files written by an unknown encoder.
	ErrModelVersion = errors.New("decode: unsupported model version")

	// ErrMalformedModel is returned when the decoded structure is inconsistent.
	ErrMalformedModel = errors.New("decode: malformed model")
)

// ParsedModel is the on-disk model structure.
//
// Units come in four layouts. Indexed units share vertices through an index
// list; straight units list every triangle's vertices in order. Only the
// indexed layouts are uploaded, straight units are reported and skipped.
type ParsedModel struct {
	Version int `msgpack:"version"`

	UnitsIndexed       []IndexedUnit      `msgpack:"units_indexed"`
	UnitsIndexedJoint  []IndexedJointUnit `msgpack:"units_indexed_joint"`
	UnitsStraight      []StraightUnit     `msgpack:"units_straight"`
	UnitsStraightJoint []StraightUnit     `msgpack:"units_straight_joint"`

	Skeleton   ParsedSkeleton    `msgpack:"skeleton"`
	Animations []ParsedAnimation `msgpack:"animations"`
}

// ParsedVertex is a vertex without joint influence.
type ParsedVertex struct {
	Position [3]float32 `msgpack:"p"`
	Normal   [3]float32 `msgpack:"n"`
	UV       [2]float32 `msgpack:"uv"`
}

// ParsedJointVertex is a vertex influenced by up to four joints.
type ParsedJointVertex struct {
	Position     [3]float32 `msgpack:"p"`
	Normal       [3]float32 `msgpack:"n"`
	UV           [2]float32 `msgpack:"uv"`
	JointIndices [4]int32   `msgpack:"ji"`
	JointWeights [4]float32 `msgpack:"jw"`
}

// ParsedMaterial is a unit's material.
type ParsedMaterial struct {
	AlbedoMap    string  `msgpack:"albedo_map"`
	Roughness    float32 `msgpack:"roughness"`
	Metallic     float32 `msgpack:"metallic"`
	Transparency bool    `msgpack:"transparency"`
}

// IndexedUnit is an indexed mesh without joints.
type IndexedUnit struct {
	Name     string         `msgpack:"name"`
	Vertices []ParsedVertex `msgpack:"vertices"`
	Indices  []uint32       `msgpack:"indices"`
	Material ParsedMaterial `msgpack:"material"`
}

// IndexedJointUnit is an indexed mesh with joint influences.
type IndexedJointUnit struct {
	Name     string              `msgpack:"name"`
	Vertices []ParsedJointVertex `msgpack:"vertices"`
	Indices  []uint32            `msgpack:"indices"`
	Material ParsedMaterial      `msgpack:"material"`
}

// StraightUnit is a non-indexed mesh. Vertex data is kept opaque.
type StraightUnit struct {
	Name        string         `msgpack:"name"`
	VertexCount int            `msgpack:"vertex_count"`
	Data        []byte         `msgpack:"data"`
	Material    ParsedMaterial `msgpack:"material"`
}

// ParsedSkeleton is the joint hierarchy.
type ParsedSkeleton struct {
	RootTransform [16]float32   `msgpack:"root_transform"`
	Joints        []ParsedJoint `msgpack:"joints"`
}

// ParsedJoint is one skeleton joint. Parent indexes Joints, -1 for roots.
type ParsedJoint struct {
	Name   string      `msgpack:"name"`
	Parent int         `msgpack:"parent"`
	Offset [16]float32 `msgpack:"offset"`
}

// ParsedAnimation is an animation clip.
type ParsedAnimation struct {
	Name        string             `msgpack:"name"`
	TicksPerSec float32            `msgpack:"ticks_per_sec"`
	Joints      []ParsedJointTrack `msgpack:"joints"`
}

// ParsedJointTrack holds the keyframes of one joint.
type ParsedJointTrack struct {
	Name      string           `msgpack:"name"`
	Keyframes []ParsedKeyframe `msgpack:"keyframes"`
}

// ParsedKeyframe is one sampled pose.
type ParsedKeyframe struct {
	Time        float32    `msgpack:"t"`
	Translation [3]float32 `msgpack:"pos"`
	Rotation    [4]float32 `msgpack:"rot"`
	Scale       [3]float32 `msgpack:"scale"`
}

// DurationTicks returns the time of the last keyframe over all tracks.
func (a *ParsedAnimation) DurationTicks() float32 {
	var d float32
	for i := range a.Joints {
		for _, k := range a.Joints[i].Keyframes {
			d = max(d, k.Time)
		}
	}
	return d
}

// DecodeModel decodes an unsigned model file.
func DecodeModel(data []byte) (*ParsedModel, error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}

	var m ParsedModel
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode: model: %w", err)
	}
	if m.Version != ModelVersion {
		return nil, fmt.Errorf("%w: %d", ErrModelVersion, m.Version)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// EncodeModel encodes m as an unsigned model file. A zero Version is
// written as ModelVersion.
func EncodeModel(m *ParsedModel) ([]byte, error) {
	if m.Version == 0 {
		c := *m
		c.Version = ModelVersion
		m = &c
	}
	data, err := msgpack.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("decode: encode model: %w", err)
	}
	return data, nil
}

// validate checks index ranges so later stages can trust the data.
func (m *ParsedModel) validate() error {
	for i, u := range m.UnitsIndexed {
		if err := checkIndices(u.Indices, len(u.Vertices)); err != nil {
			return fmt.Errorf("%w: indexed unit %d %q: %w", ErrMalformedModel, i, u.Name, err)
		}
	}
	for i, u := range m.UnitsIndexedJoint {
		if err := checkIndices(u.Indices, len(u.Vertices)); err != nil {
			return fmt.Errorf("%w: indexed joint unit %d %q: %w", ErrMalformedModel, i, u.Name, err)
		}
	}
	for i, j := range m.Skeleton.Joints {
		if j.Parent >= len(m.Skeleton.Joints) || j.Parent < -1 {
			return fmt.Errorf("%w: joint %d %q has parent %d", ErrMalformedModel, i, j.Name, j.Parent)
		}
	}
	return nil
}

func checkIndices(indices []uint32, vertexCount int) error {
	for _, idx := range indices {
		if int(idx) >= vertexCount {
			return fmt.Errorf("index %d out of range [0, %d)", idx, vertexCount)
		}
	}
	return nil
}
