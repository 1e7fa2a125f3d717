package debug

import (
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Faultbox/depthmesh/internal/texture"
)

func fixedCapture(t *testing.T) *ScreenshotCapture {
	sc := NewScreenshotCapture(filepath.Join(t.TempDir(), "shots"), "depthmesh")
	sc.now = func() time.Time { return time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC) }
	return sc
}

func TestCaptureFromPixelsFlips(t *testing.T) {
	sc := fixedCapture(t)

	// 1x2 image read back bottom-up: first row is the bottom (red).
	pixels := []byte{
		255, 0, 0, 255,
		0, 0, 255, 255,
	}
	name, err := sc.CaptureFromPixels(pixels, 1, 2)
	if err != nil {
		t.Fatalf("CaptureFromPixels: %v", err)
	}

	f, err := os.Open(name)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if got := color.RGBAModel.Convert(img.At(0, 0)).(color.RGBA); got != (color.RGBA{B: 255, A: 255}) {
		t.Errorf("top pixel = %v, want blue", got)
	}
	if got := color.RGBAModel.Convert(img.At(0, 1)).(color.RGBA); got != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("bottom pixel = %v, want red", got)
	}
}

func TestCaptureSizeMismatch(t *testing.T) {
	if _, err := fixedCapture(t).CaptureFromPixels(make([]byte, 7), 1, 2); err == nil {
		t.Error("expected size mismatch error")
	}
}

func TestCaptureCamera(t *testing.T) {
	sc := fixedCapture(t)
	// BGRA red pixel
	name, err := sc.CaptureCamera([]byte{0, 0, 255, 255}, 1, 1, texture.FormatBGRA)
	if err != nil {
		t.Fatalf("CaptureCamera: %v", err)
	}
	if _, err := os.Stat(name); err != nil {
		t.Errorf("screenshot missing: %v", err)
	}
}

func TestGenerateFilenameUnique(t *testing.T) {
	sc := fixedCapture(t)
	a, b := sc.GenerateFilename(), sc.GenerateFilename()
	if a == b {
		t.Errorf("names repeat: %s", a)
	}
	if filepath.Base(a) != "depthmesh_2024-03-01_12-30-00_001.png" {
		t.Errorf("name = %s", filepath.Base(a))
	}
}
