package mesh

import (
	"github.com/Faultbox/depthmesh/internal/projection"
	"github.com/Faultbox/depthmesh/pkg/math"
)

// DefaultMaxEdgeLength is the default discontinuity guard in centimetres.
const DefaultMaxEdgeLength = 8

// Triangulate rebuilds dst from grid, reusing dst's storage.
//
// Each 2x2 block of lattice cells with corners P00 (i, j), P01 (i, j+1),
// P10 (i+1, j) and P11 (i+1, j+1) becomes two triangles when every corner is
// valid and in front of the sensor, and P00, P10 and P11 each lie less than
// maxEdgeLength from P01 along the forward axis. Blocks never share
// vertices: each emits its own four.
func Triangulate(dst *Mesh, grid *projection.Grid, maxEdgeLength float32) {
	dst.Reset()

	for j := 0; j+1 < grid.Rows; j++ {
		for i := 0; i+1 < grid.Cols; i++ {
			p00 := grid.At(i, j)
			p01 := grid.At(i, j+1)
			p10 := grid.At(i+1, j)
			p11 := grid.At(i+1, j+1)

			if !p00.Valid || !p01.Valid || !p10.Valid || !p11.Valid {
				continue
			}
			if p00.Position.X <= 0 || p01.Position.X <= 0 || p10.Position.X <= 0 || p11.Position.X <= 0 {
				continue
			}
			ref := p01.Position.X
			if absf(p00.Position.X-ref) >= maxEdgeLength ||
				absf(p10.Position.X-ref) >= maxEdgeLength ||
				absf(p11.Position.X-ref) >= maxEdgeLength {
				continue
			}

			n := uint32(len(dst.Vertices))
			dst.Vertices = append(dst.Vertices, p00.Position, p01.Position, p10.Position, p11.Position)
			dst.Colors = append(dst.Colors, p00.Color, p01.Color, p10.Color, p11.Color)
			dst.Indices = append(dst.Indices,
				n, n+1, n+2,
				n+1, n+3, n+2,
			)
		}
	}
}

// Normals fills m.Normals with per-vertex normals averaged from the
// triangles each vertex belongs to.
func Normals(m *Mesh) {
	if cap(m.Normals) < len(m.Vertices) {
		m.Normals = make([]math.Vec3, len(m.Vertices))
	}
	m.Normals = m.Normals[:len(m.Vertices)]
	for i := range m.Normals {
		m.Normals[i] = math.Vec3{}
	}

	for t := 0; t+2 < len(m.Indices); t += 3 {
		a, b, c := m.Indices[t], m.Indices[t+1], m.Indices[t+2]
		face := m.Vertices[b].Sub(m.Vertices[a]).Cross(m.Vertices[c].Sub(m.Vertices[a]))
		m.Normals[a] = m.Normals[a].Add(face)
		m.Normals[b] = m.Normals[b].Add(face)
		m.Normals[c] = m.Normals[c].Add(face)
	}
	for i := range m.Normals {
		m.Normals[i] = m.Normals[i].Normalize()
	}
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
