package sensor

import (
	"errors"
	"math"
	"testing"

	"github.com/golang/geo/r3"
)

func testPinhole() *Pinhole {
	return &Pinhole{
		Depth: Intrinsics{Width: 512, Height: 424, Fx: 365, Fy: 365, Ppx: 256, Ppy: 212},
		Color: Intrinsics{Width: 640, Height: 480, Fx: 460, Fy: 460, Ppx: 320, Ppy: 240},
	}
}

func TestPinholeCentre(t *testing.T) {
	p := testPinhole()

	pt := p.DepthToCamera(256, 212, 1500)
	if pt != (r3.Vector{X: 0, Y: 0, Z: 1.5}) {
		t.Errorf("DepthToCamera(centre) = %v, want (0, 0, 1.5)", pt)
	}

	cx, cy := p.DepthToColor(256, 212, 1500)
	if cx != 320 || cy != 240 {
		t.Errorf("DepthToColor(centre) = (%v, %v), want (320, 240)", cx, cy)
	}
}

func TestPinholeAxes(t *testing.T) {
	p := testPinhole()

	// Right of centre is +X, above centre is +Y.
	pt := p.DepthToCamera(300, 100, 1000)
	if pt.X <= 0 {
		t.Errorf("X = %v, want > 0", pt.X)
	}
	if pt.Y <= 0 {
		t.Errorf("Y = %v, want > 0", pt.Y)
	}
}

func TestPinholeRoundTrip(t *testing.T) {
	in := testPinhole().Depth
	pt := in.PixelToPoint(100, 50, 2)
	x, y := in.PointToPixel(pt)

	if math.Abs(x-100) > 1e-9 || math.Abs(y-50) > 1e-9 {
		t.Errorf("round trip = (%v, %v), want (100, 50)", x, y)
	}
}

func TestZeroDepthMapsOutside(t *testing.T) {
	cx, cy := testPinhole().DepthToColor(10, 10, 0)
	if cx >= 0 || cy >= 0 {
		t.Errorf("zero depth mapped to (%v, %v)", cx, cy)
	}
}

func TestIntrinsicsCheckValid(t *testing.T) {
	tests := []struct {
		name string
		in   *Intrinsics
		ok   bool
	}{
		{"nil", nil, false},
		{"zero size", &Intrinsics{Fx: 1, Fy: 1}, false},
		{"bad fx", &Intrinsics{Width: 1, Height: 1, Fy: 1}, false},
		{"bad fy", &Intrinsics{Width: 1, Height: 1, Fx: 1}, false},
		{"valid", &Intrinsics{Width: 1, Height: 1, Fx: 1, Fy: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.CheckValid()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrNoIntrinsics) {
				t.Errorf("expected ErrNoIntrinsics, got %v", err)
			}
		})
	}
}

func TestToWorld(t *testing.T) {
	got := ToWorld(r3.Vector{X: 0.1, Y: 0.2, Z: 1.5})
	if math.Abs(float64(got.X-150)) > 1e-4 || math.Abs(float64(got.Y-10)) > 1e-4 || math.Abs(float64(got.Z-20)) > 1e-4 {
		t.Errorf("ToWorld = %v, want (150, 10, 20)", got)
	}
}

func TestRoundPixel(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0.49, 0}, {0.5, 1}, {-0.5, 0}, {-0.51, -1}, {2.0, 2},
	}
	for _, tt := range tests {
		if got := RoundPixel(tt.in); got != tt.want {
			t.Errorf("RoundPixel(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSessionError(t *testing.T) {
	base := errors.New("device busy")
	err := StageError(StageDepthReader, base)

	var se *SessionError
	if !errors.As(err, &se) {
		t.Fatal("StageError should produce a SessionError")
	}
	if se.Stage != StageDepthReader {
		t.Errorf("Stage = %q", se.Stage)
	}
	if !errors.Is(err, base) {
		t.Error("SessionError should unwrap to the cause")
	}
	if err.Error() != "open depth reader: device busy" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestGrids(t *testing.T) {
	d := NewDepthGrid(3, 2)
	d.Set(2, 1, 700)
	if d.At(2, 1) != 700 || d.Data[5] != 700 {
		t.Error("depth Set/At disagree with row-major layout")
	}
	if err := d.CopyFrom(NewDepthGrid(2, 3)); err == nil {
		t.Error("expected size mismatch error")
	}

	bi := NewBodyIndexGrid(2, 2)
	for i, v := range bi.Data {
		if v != NoBody {
			t.Errorf("cell %d = %d, want NoBody", i, v)
		}
	}

	c := NewColorGrid(1, 1)
	src := NewColorGrid(2, 2)
	src.Set(1, 1, BGRA{B: 1, G: 2, R: 3, A: 4})
	c.CopyFrom(src)
	if c.Width != 2 || c.At(1, 1) != (BGRA{1, 2, 3, 4}) {
		t.Errorf("ColorGrid.CopyFrom = %+v", c)
	}
}
