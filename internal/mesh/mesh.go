// Package mesh builds coloured triangle meshes from projected point grids.
package mesh

import (
	"image/color"

	"github.com/Faultbox/depthmesh/pkg/math"
)

// Mesh is an indexed triangle list ready for GPU upload. Vertices, Colors and
// (when present) Normals are parallel slices; every three Indices form one
// triangle.
type Mesh struct {
	Vertices []math.Vec3
	Colors   []color.RGBA
	Normals  []math.Vec3
	Indices  []uint32
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min math.Vec3
	Max math.Vec3
}

// Center returns the middle of the box.
func (b Bounds) Center() math.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the extent of the box.
func (b Bounds) Size() math.Vec3 {
	return b.Max.Sub(b.Min)
}

// Reset empties the mesh but keeps its storage.
func (m *Mesh) Reset() {
	m.Vertices = m.Vertices[:0]
	m.Colors = m.Colors[:0]
	m.Normals = m.Normals[:0]
	m.Indices = m.Indices[:0]
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Empty reports whether the mesh has no triangles.
func (m *Mesh) Empty() bool {
	return len(m.Indices) == 0
}

// Bounds returns the bounding box of all vertices. An empty mesh has zero bounds.
func (m *Mesh) Bounds() Bounds {
	if len(m.Vertices) == 0 {
		return Bounds{}
	}
	b := Bounds{Min: m.Vertices[0], Max: m.Vertices[0]}
	for _, v := range m.Vertices[1:] {
		b.Min = b.Min.Min(v)
		b.Max = b.Max.Max(v)
	}
	return b
}

// Clone returns a deep copy.
func (m *Mesh) Clone() *Mesh {
	return &Mesh{
		Vertices: append([]math.Vec3(nil), m.Vertices...),
		Colors:   append([]color.RGBA(nil), m.Colors...),
		Normals:  append([]math.Vec3(nil), m.Normals...),
		Indices:  append([]uint32(nil), m.Indices...),
	}
}
