// Package texture converts colour frames into display-ready pixel buffers.
package texture

import (
	"fmt"
	"image"

	"github.com/Faultbox/depthmesh/internal/sensor"
)

// PixelFormat is the byte order of an assembled buffer.
type PixelFormat int

const (
	// FormatBGRA keeps the sensor's channel order.
	FormatBGRA PixelFormat = iota
	// FormatRGBA swaps red and blue.
	FormatRGBA
)

// ParsePixelFormat parses "bgra" or "rgba".
func ParsePixelFormat(s string) (PixelFormat, error) {
	switch s {
	case "bgra", "":
		return FormatBGRA, nil
	case "rgba":
		return FormatRGBA, nil
	}
	return 0, fmt.Errorf("unknown pixel format %q", s)
}

func (f PixelFormat) String() string {
	if f == FormatRGBA {
		return "rgba"
	}
	return "bgra"
}

// Assembler packs colour grids into a 4-byte-per-pixel buffer it owns.
type Assembler struct {
	format PixelFormat
	alpha  uint8
	width  int
	height int
	buf    []byte
}

// NewAssembler returns an assembler writing format with a constant alpha.
func NewAssembler(format PixelFormat, alpha uint8) *Assembler {
	return &Assembler{format: format, alpha: alpha}
}

// Assemble converts src into the assembler's buffer and returns it. The
// buffer is reallocated only when the frame size changes, so the returned
// slice is overwritten by the next call.
func (a *Assembler) Assemble(src *sensor.ColorGrid) []byte {
	if src.Width != a.width || src.Height != a.height || a.buf == nil {
		a.width, a.height = src.Width, src.Height
		a.buf = make([]byte, src.Width*src.Height*4)
	}

	buf := a.buf
	switch a.format {
	case FormatRGBA:
		for i, p := range src.Pix {
			o := i * 4
			buf[o], buf[o+1], buf[o+2], buf[o+3] = p.R, p.G, p.B, a.alpha
		}
	default:
		for i, p := range src.Pix {
			o := i * 4
			buf[o], buf[o+1], buf[o+2], buf[o+3] = p.B, p.G, p.R, a.alpha
		}
	}
	return buf
}

// Buffer returns the last assembled buffer and its size.
func (a *Assembler) Buffer() ([]byte, int, int) {
	return a.buf, a.width, a.height
}

// Alpha returns the constant alpha written to every pixel.
func (a *Assembler) Alpha() uint8 {
	return a.alpha
}

// Format returns the output pixel format.
func (a *Assembler) Format() PixelFormat {
	return a.format
}

// ToImage copies an assembled buffer into a new RGBA image.
func ToImage(buf []byte, width, height int, format PixelFormat) (*image.RGBA, error) {
	if len(buf) != width*height*4 {
		return nil, fmt.Errorf("buffer holds %d bytes, %dx%d needs %d", len(buf), width, height, width*height*4)
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	copy(img.Pix, buf)
	if format == FormatBGRA {
		for i := 0; i < len(img.Pix); i += 4 {
			img.Pix[i], img.Pix[i+2] = img.Pix[i+2], img.Pix[i]
		}
	}
	return img, nil
}
