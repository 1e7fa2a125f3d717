package playback

import (
	"errors"
	"fmt"

	"github.com/Faultbox/depthmesh/internal/sensor"
)

// TGA image types.
const (
	tgaTypeUncompressed = 2
	tgaTypeRLE          = 10
)

// decodeTGA decodes an uncompressed or RLE true-colour TGA straight into
// dst, which must already have the image's dimensions. TGA stores pixels
// in BGR(A) order so no channel swizzle is needed.
func decodeTGA(data []byte, dst *sensor.ColorGrid) error {
	if len(data) < 18 {
		return errors.New("tga: data too short")
	}

	idLength := int(data[0])
	colorMapType := data[1]
	imageType := data[2]
	width := int(data[12]) | int(data[13])<<8
	height := int(data[14]) | int(data[15])<<8
	bpp := int(data[16])
	topToBottom := data[17]&0x20 != 0

	if colorMapType != 0 {
		return errors.New("tga: color-mapped images not supported")
	}
	if imageType != tgaTypeUncompressed && imageType != tgaTypeRLE {
		return fmt.Errorf("tga: unsupported image type %d", imageType)
	}
	if bpp != 24 && bpp != 32 {
		return fmt.Errorf("tga: unsupported bit depth %d", bpp)
	}
	if width != dst.Width || height != dst.Height {
		return fmt.Errorf("tga: image is %dx%d, stream is %dx%d", width, height, dst.Width, dst.Height)
	}

	offset := 18 + idLength
	if offset > len(data) {
		return errors.New("tga: data truncated")
	}
	pixels := data[offset:]
	stride := bpp / 8

	// Rows are stored bottom-up unless the descriptor says otherwise.
	put := func(i int, p []byte) {
		x, y := i%width, i/width
		if !topToBottom {
			y = height - 1 - y
		}
		c := sensor.BGRA{B: p[0], G: p[1], R: p[2], A: 255}
		if stride == 4 {
			c.A = p[3]
		}
		dst.Pix[y*width+x] = c
	}

	count := width * height
	if imageType == tgaTypeUncompressed {
		if len(pixels) < count*stride {
			return errors.New("tga: pixel data truncated")
		}
		for i := 0; i < count; i++ {
			put(i, pixels[i*stride:])
		}
		return nil
	}

	i, pos := 0, 0
	for i < count {
		if pos >= len(pixels) {
			return errors.New("tga: rle data truncated")
		}
		packet := pixels[pos]
		pos++
		run := int(packet&0x7F) + 1

		if packet&0x80 != 0 {
			if pos+stride > len(pixels) {
				return errors.New("tga: rle data truncated")
			}
			for n := 0; n < run && i < count; n++ {
				put(i, pixels[pos:])
				i++
			}
			pos += stride
			continue
		}

		for n := 0; n < run && i < count; n++ {
			if pos+stride > len(pixels) {
				return errors.New("tga: rle data truncated")
			}
			put(i, pixels[pos:])
			pos += stride
			i++
		}
	}
	return nil
}
