package playback

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/bmp"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/depthmesh/internal/sensor"
)

// Writer records frames into a directory readable by Source.
type Writer struct {
	dir   string
	frame int
}

// NewWriter creates dir and writes the manifest.
func NewWriter(dir string, m Manifest) (*Writer, error) {
	if err := m.Mapper.CheckValid(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), data, 0644); err != nil {
		return nil, err
	}
	return &Writer{dir: dir}, nil
}

// Frames returns the number of frames written so far.
func (w *Writer) Frames() int {
	return w.frame
}

// WriteFrame appends one frame. bodyIndex may be nil.
func (w *Writer) WriteFrame(depth *sensor.DepthGrid, colorGrid *sensor.ColorGrid, bodyIndex *sensor.BodyIndexGrid) error {
	id := fmt.Sprintf("%05d", w.frame)

	dimg := image.NewGray16(image.Rect(0, 0, depth.Width, depth.Height))
	for i, v := range depth.Data {
		dimg.Pix[2*i] = uint8(v >> 8)
		dimg.Pix[2*i+1] = uint8(v)
	}
	if err := w.writePNG("depth_"+id+".png", dimg); err != nil {
		return err
	}

	cimg := image.NewNRGBA(image.Rect(0, 0, colorGrid.Width, colorGrid.Height))
	for i, p := range colorGrid.Pix {
		cimg.SetNRGBA(i%colorGrid.Width, i/colorGrid.Width, color.NRGBA{R: p.R, G: p.G, B: p.B, A: 255})
	}
	if err := w.create("color_"+id+".bmp", func(f *os.File) error { return bmp.Encode(f, cimg) }); err != nil {
		return err
	}

	if bodyIndex != nil {
		bimg := image.NewGray(image.Rect(0, 0, bodyIndex.Width, bodyIndex.Height))
		copy(bimg.Pix, bodyIndex.Data)
		if err := w.writePNG("bodyindex_"+id+".png", bimg); err != nil {
			return err
		}
	}

	w.frame++
	return nil
}

func (w *Writer) writePNG(name string, img image.Image) error {
	return w.create(name, func(f *os.File) error { return png.Encode(f, img) })
}

func (w *Writer) create(name string, encode func(*os.File) error) error {
	f, err := os.Create(filepath.Join(w.dir, name))
	if err != nil {
		return err
	}
	if err := encode(f); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	return f.Close()
}
