package texture

import (
	"image/color"
	"testing"

	"github.com/Faultbox/depthmesh/internal/sensor"
)

func grid(w, h int) *sensor.ColorGrid {
	g := sensor.NewColorGrid(w, h)
	for i := range g.Pix {
		g.Pix[i] = sensor.BGRA{B: 1, G: 2, R: 3, A: 0}
	}
	return g
}

func TestAssembleChannelOrder(t *testing.T) {
	tests := []struct {
		format PixelFormat
		want   [4]byte
	}{
		{FormatBGRA, [4]byte{1, 2, 3, 255}},
		{FormatRGBA, [4]byte{3, 2, 1, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			buf := NewAssembler(tt.format, 255).Assemble(grid(2, 3))
			if len(buf) != 2*3*4 {
				t.Fatalf("len = %d, want 24", len(buf))
			}
			for i := 0; i < len(buf); i += 4 {
				if got := [4]byte(buf[i : i+4]); got != tt.want {
					t.Fatalf("pixel %d = %v, want %v", i/4, got, tt.want)
				}
			}
		})
	}
}

func TestAssembleReusesBuffer(t *testing.T) {
	a := NewAssembler(FormatBGRA, 255)
	first := a.Assemble(grid(4, 4))
	second := a.Assemble(grid(4, 4))
	if &first[0] != &second[0] {
		t.Error("buffer reallocated for an unchanged size")
	}

	third := a.Assemble(grid(8, 2))
	if len(third) != 8*2*4 {
		t.Errorf("len = %d after resize, want 64", len(third))
	}
	if _, w, h := a.Buffer(); w != 8 || h != 2 {
		t.Errorf("Buffer size = %dx%d", w, h)
	}
}

func TestToImage(t *testing.T) {
	a := NewAssembler(FormatBGRA, 255)
	buf := a.Assemble(grid(2, 2))

	img, err := ToImage(buf, 2, 2, a.Format())
	if err != nil {
		t.Fatal(err)
	}
	if got := img.RGBAAt(1, 1); got != (color.RGBA{R: 3, G: 2, B: 1, A: 255}) {
		t.Errorf("pixel = %+v", got)
	}
	if buf[0] != 1 {
		t.Error("ToImage modified the source buffer")
	}

	if _, err := ToImage(buf, 3, 3, FormatBGRA); err == nil {
		t.Error("expected size error")
	}
}

func TestParsePixelFormat(t *testing.T) {
	for in, want := range map[string]PixelFormat{"bgra": FormatBGRA, "rgba": FormatRGBA, "": FormatBGRA} {
		got, err := ParsePixelFormat(in)
		if err != nil || got != want {
			t.Errorf("ParsePixelFormat(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParsePixelFormat("argb"); err == nil {
		t.Error("expected error")
	}
}
