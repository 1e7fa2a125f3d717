// Package sensor defines the frame grids produced by a depth sensor, the
// FrameSource and CoordinateMapper contracts a driver implements, and a
// pinhole coordinate mapper.
package sensor

import "fmt"

// NoBody marks a body-index cell that belongs to no tracked body.
const NoBody uint8 = 255

// BGRA is one colour pixel in the sensor's native channel order.
type BGRA struct {
	B, G, R, A uint8
}

// Size is a grid size in cells.
type Size struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Cells returns Width*Height.
func (s Size) Cells() int {
	return s.Width * s.Height
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// DepthGrid holds one depth frame in millimetres, row-major. Zero means no reading.
type DepthGrid struct {
	Width  int
	Height int
	Data   []uint16
}

// NewDepthGrid allocates a zeroed depth grid.
func NewDepthGrid(width, height int) *DepthGrid {
	return &DepthGrid{Width: width, Height: height, Data: make([]uint16, width*height)}
}

// At returns the depth at (x, y).
func (g *DepthGrid) At(x, y int) uint16 {
	return g.Data[y*g.Width+x]
}

// Set writes the depth at (x, y).
func (g *DepthGrid) Set(x, y int, v uint16) {
	g.Data[y*g.Width+x] = v
}

// Size returns the grid dimensions.
func (g *DepthGrid) Size() Size {
	return Size{g.Width, g.Height}
}

// CopyFrom replaces the contents of g with src. Dimensions must match.
func (g *DepthGrid) CopyFrom(src *DepthGrid) error {
	if g.Width != src.Width || g.Height != src.Height {
		return fmt.Errorf("depth grid size mismatch: %s != %s", g.Size(), src.Size())
	}
	copy(g.Data, src.Data)
	return nil
}

// ColorGrid holds one colour frame, row-major.
type ColorGrid struct {
	Width  int
	Height int
	Pix    []BGRA
}

// NewColorGrid allocates a zeroed colour grid.
func NewColorGrid(width, height int) *ColorGrid {
	return &ColorGrid{Width: width, Height: height, Pix: make([]BGRA, width*height)}
}

// At returns the pixel at (x, y).
func (g *ColorGrid) At(x, y int) BGRA {
	return g.Pix[y*g.Width+x]
}

// Set writes the pixel at (x, y).
func (g *ColorGrid) Set(x, y int, c BGRA) {
	g.Pix[y*g.Width+x] = c
}

// Size returns the grid dimensions.
func (g *ColorGrid) Size() Size {
	return Size{g.Width, g.Height}
}

// CopyFrom replaces the contents of g with src, reallocating only when the
// size differs.
func (g *ColorGrid) CopyFrom(src *ColorGrid) {
	if g.Width != src.Width || g.Height != src.Height {
		g.Width, g.Height = src.Width, src.Height
		g.Pix = make([]BGRA, len(src.Pix))
	}
	copy(g.Pix, src.Pix)
}

// BodyIndexGrid maps each depth cell to a body slot, or NoBody.
type BodyIndexGrid struct {
	Width  int
	Height int
	Data   []uint8
}

// NewBodyIndexGrid allocates a grid with every cell set to NoBody.
func NewBodyIndexGrid(width, height int) *BodyIndexGrid {
	g := &BodyIndexGrid{Width: width, Height: height, Data: make([]uint8, width*height)}
	for i := range g.Data {
		g.Data[i] = NoBody
	}
	return g
}

// At returns the body index at (x, y).
func (g *BodyIndexGrid) At(x, y int) uint8 {
	return g.Data[y*g.Width+x]
}

// Size returns the grid dimensions.
func (g *BodyIndexGrid) Size() Size {
	return Size{g.Width, g.Height}
}
