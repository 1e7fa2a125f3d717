// Package fusion drives an external volumetric fusion engine and converts
// the meshes it extracts into renderable meshes.
package fusion

import (
	"context"
	"errors"
	"fmt"
	"image/color"

	"github.com/golang/geo/r3"
	"go.uber.org/multierr"

	"github.com/Faultbox/depthmesh/internal/mesh"
	"github.com/Faultbox/depthmesh/pkg/math"
)

var (
	// ErrNoMesh is returned by Engine.CalculateMesh when no mesh is ready
	// yet. It is not logged.
	ErrNoMesh = errors.New("fusion mesh not ready")
	// ErrInvalidMesh reports an extracted mesh that cannot be converted.
	ErrInvalidMesh = errors.New("invalid fusion mesh")
)

// ColorMesh is a mesh extracted from the fusion volume. Positions and
// normals are in sensor camera space, metres. Colours are packed
// 0xAARRGGBB. Release must be called once the mesh has been read.
type ColorMesh interface {
	Vertices() []r3.Vector
	Normals() []r3.Vector
	TriangleIndices() []int32
	Colors() []uint32
	Release()
}

// Engine is a volumetric fusion engine.
type Engine interface {
	Start(ctx context.Context, params Params) error
	CalculateMesh(ctx context.Context) (ColorMesh, error)
	Stop() error
}

// Params configures the reconstruction volume and camera tracking.
type Params struct {
	VoxelsPerMeter float32
	VoxelCountX    int
	VoxelCountY    int
	VoxelCountZ    int

	MinDepthThreshold    float32 // metres
	MaxDepthThreshold    float32 // metres
	MirrorDepthFrame     bool
	MaxIntegrationWeight int

	CaptureColor             bool
	ColorIntegrationInterval int

	AutoResetWhenLost          bool
	AutoFindCameraPoseWhenLost bool

	SmoothingKernelWidth       int     // 0 copies, 1 is 3x3, 2 is 5x5
	SmoothingDistanceThreshold float32 // metres
	MaxTranslationDelta        float32 // metres per frame
	MaxRotationDelta           float32 // degrees per frame
}

// DefaultParams returns a 3 m cube at 128 voxels per metre.
func DefaultParams() Params {
	return Params{
		VoxelsPerMeter:             128,
		VoxelCountX:                384,
		VoxelCountY:                384,
		VoxelCountZ:                384,
		MinDepthThreshold:          0.35,
		MaxDepthThreshold:          8,
		MaxIntegrationWeight:       200,
		CaptureColor:               true,
		ColorIntegrationInterval:   3,
		AutoResetWhenLost:          true,
		AutoFindCameraPoseWhenLost: true,
		SmoothingKernelWidth:       1,
		SmoothingDistanceThreshold: 0.04,
		MaxTranslationDelta:        0.3,
		MaxRotationDelta:           20,
	}
}

// Validate reports every unusable parameter.
func (p Params) Validate() error {
	var err error
	if p.VoxelsPerMeter <= 0 {
		err = multierr.Append(err, fmt.Errorf("voxels per meter must be positive, got %v", p.VoxelsPerMeter))
	}
	if p.VoxelCountX <= 0 || p.VoxelCountY <= 0 || p.VoxelCountZ <= 0 {
		err = multierr.Append(err, fmt.Errorf("voxel counts must be positive, got %dx%dx%d", p.VoxelCountX, p.VoxelCountY, p.VoxelCountZ))
	}
	if p.MinDepthThreshold < 0 || p.MaxDepthThreshold <= p.MinDepthThreshold {
		err = multierr.Append(err, fmt.Errorf("depth thresholds %v..%v are not a range", p.MinDepthThreshold, p.MaxDepthThreshold))
	}
	if p.SmoothingKernelWidth < 0 {
		err = multierr.Append(err, fmt.Errorf("smoothing kernel width must not be negative"))
	}
	return err
}

// Convert copies cm into a renderable mesh. Positions become centimetres
// with X forward, Y right and Z up; normals are remapped the same way and
// normalised.
func Convert(cm ColorMesh) (*mesh.Mesh, error) {
	verts := cm.Vertices()
	indices := cm.TriangleIndices()
	n := len(verts)

	if n == 0 || len(indices) == 0 || n%3 != 0 || n != len(indices) {
		return nil, fmt.Errorf("%w: %d vertices, %d indices", ErrInvalidMesh, n, len(indices))
	}
	normals := cm.Normals()
	colors := cm.Colors()
	if len(normals) != n || len(colors) != n {
		return nil, fmt.Errorf("%w: %d vertices, %d normals, %d colors", ErrInvalidMesh, n, len(normals), len(colors))
	}

	out := &mesh.Mesh{
		Vertices: make([]math.Vec3, n),
		Normals:  make([]math.Vec3, n),
		Colors:   make([]color.RGBA, n),
		Indices:  make([]uint32, len(indices)),
	}
	for i, v := range verts {
		out.Vertices[i] = remap(v).Scale(100)
		out.Normals[i] = remap(normals[i]).Normalize()
		out.Colors[i] = unpackARGB(colors[i])
	}
	for i, idx := range indices {
		if idx < 0 || int(idx) >= n {
			return nil, fmt.Errorf("%w: index %d out of range", ErrInvalidMesh, idx)
		}
		out.Indices[i] = uint32(idx)
	}
	return out, nil
}

func remap(v r3.Vector) math.Vec3 {
	return math.Vec3{X: float32(v.Z), Y: float32(-v.X), Z: float32(-v.Y)}
}

func unpackARGB(c uint32) color.RGBA {
	return color.RGBA{
		A: uint8(c >> 24),
		R: uint8(c >> 16),
		G: uint8(c >> 8),
		B: uint8(c),
	}
}
