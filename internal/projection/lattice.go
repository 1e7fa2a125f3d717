package projection

import "math"

// Lattice is the set of depth cells sampled for triangulation: a centred
// viewport window walked with a fixed stride. Cell (i, j) of the lattice is
// depth cell (StartX + i*Step, StartY + j*Step).
type Lattice struct {
	StartX int
	StartY int
	Step   int
	Cols   int
	Rows   int
}

// NewLattice builds the lattice for a depth grid of width x height.
// viewportW and viewportH are the fractions of the grid kept around its
// centre, clamped to [0, 1]. Blocks start at every stride step strictly
// below size-stride-start, and each needs its right and lower neighbour, so
// the lattice has one more column and row than there are block origins.
func NewLattice(width, height int, viewportW, viewportH float64, stride int) Lattice {
	step := max(stride, 1)
	startX, cols := axis(width, viewportW, step)
	startY, rows := axis(height, viewportH, step)
	if cols == 0 || rows == 0 {
		cols, rows = 0, 0
	}
	return Lattice{StartX: startX, StartY: startY, Step: step, Cols: cols, Rows: rows}
}

func axis(size int, fraction float64, step int) (start, cells int) {
	fraction = math.Max(0, math.Min(1, fraction))
	start = int(math.Round((float64(size) - fraction*float64(size)) / 2))
	end := size - step - start
	if end <= start {
		return start, 0
	}
	origins := (end - start + step - 1) / step
	return start, origins + 1
}

// Cell returns the depth coordinates of lattice cell (i, j).
func (l Lattice) Cell(i, j int) (x, y int) {
	return l.StartX + i*l.Step, l.StartY + j*l.Step
}

// Blocks returns the number of 2x2 blocks the lattice spans.
func (l Lattice) Blocks() int {
	if l.Cols < 2 || l.Rows < 2 {
		return 0
	}
	return (l.Cols - 1) * (l.Rows - 1)
}
