package playback

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Faultbox/depthmesh/internal/sensor"
)

func testManifest() Manifest {
	return Manifest{
		FPS: 10,
		Mapper: sensor.Pinhole{
			Depth: sensor.Intrinsics{Width: 4, Height: 3, Fx: 3, Fy: 3, Ppx: 2, Ppy: 1.5},
			Color: sensor.Intrinsics{Width: 2, Height: 2, Fx: 1.5, Fy: 1.5, Ppx: 1, Ppy: 1},
		},
	}
}

func record(t *testing.T, dir string, frames int, withIndex bool) {
	t.Helper()
	w, err := NewWriter(dir, testManifest())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	for n := 0; n < frames; n++ {
		depth := sensor.NewDepthGrid(4, 3)
		for i := range depth.Data {
			depth.Data[i] = uint16(1000*(n+1) + i)
		}
		col := sensor.NewColorGrid(2, 2)
		col.Set(1, 0, sensor.BGRA{B: 10, G: 20, R: uint8(30 + n), A: 255})
		var index *sensor.BodyIndexGrid
		if withIndex {
			index = sensor.NewBodyIndexGrid(4, 3)
			index.Data[5] = uint8(n)
		}
		if err := w.WriteFrame(depth, col, index); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}
	if w.Frames() != frames {
		t.Errorf("Frames() = %d, want %d", w.Frames(), frames)
	}
}

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	record(t, dir, 2, true)

	now := time.Unix(0, 0)
	src := New(dir, nil)
	src.clock = func() time.Time { return now }

	desc, err := src.Open(context.Background(), sensor.OpenOptions{BodyIndex: true})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if desc.Depth != (sensor.Size{Width: 4, Height: 3}) || desc.Color != (sensor.Size{Width: 2, Height: 2}) {
		t.Fatalf("desc = %+v", desc)
	}
	if src.FrameCount() != 2 {
		t.Errorf("FrameCount = %d, want 2", src.FrameCount())
	}

	depth := sensor.NewDepthGrid(4, 3)
	col := sensor.NewColorGrid(2, 2)
	index := sensor.NewBodyIndexGrid(4, 3)

	if err := src.AcquireDepth(depth); err != nil {
		t.Fatalf("AcquireDepth: %v", err)
	}
	if depth.Data[7] != 1007 {
		t.Errorf("depth[7] = %d, want 1007", depth.Data[7])
	}
	if err := src.AcquireColor(col); err != nil {
		t.Fatalf("AcquireColor: %v", err)
	}
	if got := col.At(1, 0); got.R != 30 || got.G != 20 || got.B != 10 {
		t.Errorf("color(1,0) = %+v", got)
	}
	if err := src.AcquireBodyIndex(index); err != nil {
		t.Fatalf("AcquireBodyIndex: %v", err)
	}
	if index.Data[5] != 0 || index.Data[0] != sensor.NoBody {
		t.Errorf("body index = %v", index.Data)
	}

	if err := src.AcquireDepth(depth); !errors.Is(err, sensor.ErrFrameNotReady) {
		t.Errorf("repeat acquire = %v, want ErrFrameNotReady", err)
	}

	// Second frame after one period, then loop back to the first.
	now = now.Add(100 * time.Millisecond)
	if err := src.AcquireDepth(depth); err != nil {
		t.Fatal(err)
	}
	if depth.Data[0] != 2000 {
		t.Errorf("frame 1 depth[0] = %d, want 2000", depth.Data[0])
	}
	now = now.Add(100 * time.Millisecond)
	if err := src.AcquireDepth(depth); err != nil {
		t.Fatal(err)
	}
	if depth.Data[0] != 1000 {
		t.Errorf("looped depth[0] = %d, want 1000", depth.Data[0])
	}
}

func TestOpenErrors(t *testing.T) {
	t.Run("missing manifest", func(t *testing.T) {
		_, err := New(t.TempDir(), nil).Open(context.Background(), sensor.OpenOptions{})
		assertStage(t, err, sensor.StageOpen)
	})

	t.Run("no frames", func(t *testing.T) {
		dir := t.TempDir()
		if _, err := NewWriter(dir, testManifest()); err != nil {
			t.Fatal(err)
		}
		_, err := New(dir, nil).Open(context.Background(), sensor.OpenOptions{})
		assertStage(t, err, sensor.StageDepthReader)
	})

	t.Run("missing body index", func(t *testing.T) {
		dir := t.TempDir()
		record(t, dir, 1, false)
		_, err := New(dir, nil).Open(context.Background(), sensor.OpenOptions{BodyIndex: true})
		assertStage(t, err, sensor.StageBodyIndexReader)
	})

	t.Run("missing color", func(t *testing.T) {
		dir := t.TempDir()
		record(t, dir, 1, false)
		if err := os.Remove(filepath.Join(dir, "color_00000.bmp")); err != nil {
			t.Fatal(err)
		}
		_, err := New(dir, nil).Open(context.Background(), sensor.OpenOptions{})
		assertStage(t, err, sensor.StageColorReader)
	})
}

func assertStage(t *testing.T, err error, stage string) {
	t.Helper()
	var se *sensor.SessionError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want SessionError", err)
	}
	if se.Stage != stage {
		t.Errorf("stage = %q, want %q", se.Stage, stage)
	}
}

// tgaHeader builds an 18 byte header for a 2x2 image.
func tgaHeader(imageType, bpp, descriptor byte) []byte {
	return []byte{0, 0, imageType, 0, 0, 0, 0, 0, 0, 0, 0, 0, 2, 0, 2, 0, bpp, descriptor}
}

func TestDecodeTGA(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{
			name: "uncompressed bottom-up",
			data: append(tgaHeader(2, 24, 0),
				// bottom row
				1, 2, 3, 4, 5, 6,
				// top row
				7, 8, 9, 10, 11, 12),
		},
		{
			name: "rle top-down",
			data: append(tgaHeader(10, 24, 0x20),
				// raw packet of 2 pixels (top row)
				0x01, 7, 8, 9, 10, 11, 12,
				// raw packet of 2 pixels (bottom row)
				0x01, 1, 2, 3, 4, 5, 6),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := sensor.NewColorGrid(2, 2)
			if err := decodeTGA(tt.data, g); err != nil {
				t.Fatalf("decodeTGA: %v", err)
			}
			if got := g.At(0, 0); got != (sensor.BGRA{B: 7, G: 8, R: 9, A: 255}) {
				t.Errorf("top-left = %+v", got)
			}
			if got := g.At(1, 1); got != (sensor.BGRA{B: 4, G: 5, R: 6, A: 255}) {
				t.Errorf("bottom-right = %+v", got)
			}
		})
	}
}

func TestDecodeTGARunPacket(t *testing.T) {
	data := append(tgaHeader(10, 32, 0x20), 0x83, 1, 2, 3, 128)
	g := sensor.NewColorGrid(2, 2)
	if err := decodeTGA(data, g); err != nil {
		t.Fatalf("decodeTGA: %v", err)
	}
	for i, p := range g.Pix {
		if p != (sensor.BGRA{B: 1, G: 2, R: 3, A: 128}) {
			t.Errorf("pixel %d = %+v", i, p)
		}
	}
}

func TestDecodeTGAErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"short", []byte{0, 0, 2}},
		{"color mapped", append([]byte{0, 1}, tgaHeader(2, 24, 0)[2:]...)},
		{"grayscale", tgaHeader(3, 24, 0)},
		{"16 bit", tgaHeader(2, 16, 0)},
		{"truncated", append(tgaHeader(2, 24, 0), 1, 2, 3)},
		{"wrong size", []byte{0, 0, 2, 0, 0, 0, 0, 0, 0, 0, 0, 0, 3, 0, 2, 0, 24, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := decodeTGA(tt.data, sensor.NewColorGrid(2, 2)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
