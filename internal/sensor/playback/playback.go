// Package playback replays a recorded session from a directory as a
// sensor.FrameSource.
//
// A recording holds a manifest (intrinsics.yaml) and, per frame N,
// depth_N.png (16-bit grey, millimetres), color_N.bmp or color_N.tga, and
// optionally bodyindex_N.png (8-bit grey).
package playback

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/image/bmp"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/depthmesh/internal/logger"
	"github.com/Faultbox/depthmesh/internal/sensor"
)

// ManifestFile is the name of the recording manifest.
const ManifestFile = "intrinsics.yaml"

// Manifest describes a recording.
type Manifest struct {
	FPS    float64        `yaml:"fps"`
	Mapper sensor.Pinhole `yaml:"mapper"`
}

type frameFiles struct {
	depth     string
	color     string
	bodyIndex string
}

// Source replays a recording directory in a loop at the recorded rate.
type Source struct {
	dir    string
	log    *zap.Logger
	clock  func() time.Time
	opts   sensor.OpenOptions
	opened bool

	manifest Manifest
	frames   []frameFiles
	start    time.Time

	lastDepth int
	lastColor int
	lastIndex int
}

// New returns a source for the recording in dir.
func New(dir string, log *zap.Logger) *Source {
	return &Source{
		dir:   dir,
		log:   logger.OrNop(log),
		clock: time.Now,
	}
}

// LoadManifest reads the manifest of the recording in dir.
func LoadManifest(dir string) (Manifest, error) {
	var m Manifest
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return m, err
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parsing %s: %w", ManifestFile, err)
	}
	if m.FPS <= 0 {
		m.FPS = 30
	}
	return m, m.Mapper.CheckValid()
}

// Open implements sensor.FrameSource.
func (s *Source) Open(ctx context.Context, opts sensor.OpenOptions) (sensor.Description, error) {
	if err := ctx.Err(); err != nil {
		return sensor.Description{}, sensor.StageError(sensor.StageOpen, err)
	}

	m, err := LoadManifest(s.dir)
	if err != nil {
		return sensor.Description{}, sensor.StageError(sensor.StageOpen, err)
	}

	frames, err := s.scan()
	if err != nil {
		return sensor.Description{}, sensor.StageError(sensor.StageDepthReader, err)
	}
	if len(frames) == 0 {
		return sensor.Description{}, sensor.StageError(sensor.StageDepthReader, errors.New("recording has no depth frames"))
	}
	for _, f := range frames {
		if f.color == "" {
			return sensor.Description{}, sensor.StageError(sensor.StageColorReader,
				fmt.Errorf("no color frame for %s", filepath.Base(f.depth)))
		}
		if opts.BodyIndex && f.bodyIndex == "" {
			return sensor.Description{}, sensor.StageError(sensor.StageBodyIndexReader,
				fmt.Errorf("no body index frame for %s", filepath.Base(f.depth)))
		}
	}
	if opts.Bodies {
		return sensor.Description{}, sensor.StageError(sensor.StageBodyReader, errors.New("recordings carry no skeletons"))
	}

	s.manifest = m
	s.frames = frames
	s.opts = opts
	s.opened = true
	s.start = s.clock()
	s.lastDepth, s.lastColor, s.lastIndex = -1, -1, -1

	s.log.Info("recording opened",
		zap.String("dir", s.dir),
		zap.Int("frames", len(frames)),
		zap.Float64("fps", m.FPS))

	desc := sensor.Description{
		Depth: sensor.Size{Width: m.Mapper.Depth.Width, Height: m.Mapper.Depth.Height},
		Color: sensor.Size{Width: m.Mapper.Color.Width, Height: m.Mapper.Color.Height},
	}
	if opts.BodyIndex {
		desc.BodyIndex = desc.Depth
	}
	return desc, nil
}

// scan pairs the frame files of the recording by frame number.
func (s *Source) scan() ([]frameFiles, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	byFrame := make(map[string]*frameFiles)
	get := func(id string) *frameFiles {
		f, ok := byFrame[id]
		if !ok {
			f = &frameFiles{}
			byFrame[id] = f
		}
		return f
	}

	for _, e := range entries {
		name := e.Name()
		ext := filepath.Ext(name)
		stem := strings.TrimSuffix(name, ext)
		path := filepath.Join(s.dir, name)
		switch {
		case strings.HasPrefix(stem, "depth_") && ext == ".png":
			get(strings.TrimPrefix(stem, "depth_")).depth = path
		case strings.HasPrefix(stem, "color_") && (ext == ".bmp" || ext == ".tga"):
			get(strings.TrimPrefix(stem, "color_")).color = path
		case strings.HasPrefix(stem, "bodyindex_") && ext == ".png":
			get(strings.TrimPrefix(stem, "bodyindex_")).bodyIndex = path
		}
	}

	ids := make([]string, 0, len(byFrame))
	for id, f := range byFrame {
		if f.depth != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	frames := make([]frameFiles, len(ids))
	for i, id := range ids {
		frames[i] = *byFrame[id]
	}
	return frames, nil
}

// Mapper implements sensor.FrameSource.
func (s *Source) Mapper() (sensor.CoordinateMapper, error) {
	if !s.opened {
		return nil, errors.New("recording not open")
	}
	return &s.manifest.Mapper, nil
}

// Close implements sensor.FrameSource.
func (s *Source) Close() error {
	s.opened = false
	return nil
}

func (s *Source) currentFrame() int {
	n := int(s.clock().Sub(s.start).Seconds() * s.manifest.FPS)
	return n % len(s.frames)
}

// next returns the frame to decode for a stream whose last delivered frame
// is *last, or ErrFrameNotReady.
func (s *Source) next(last *int) (frameFiles, error) {
	if !s.opened {
		return frameFiles{}, errors.New("recording not open")
	}
	n := s.currentFrame()
	if n == *last {
		return frameFiles{}, sensor.ErrFrameNotReady
	}
	*last = n
	return s.frames[n], nil
}

// AcquireDepth implements sensor.FrameSource.
func (s *Source) AcquireDepth(dst *sensor.DepthGrid) error {
	f, err := s.next(&s.lastDepth)
	if err != nil {
		return err
	}
	img, err := decodePNG(f.depth, dst.Width, dst.Height)
	if err != nil {
		return err
	}
	if g, ok := img.(*image.Gray16); ok {
		for y := 0; y < dst.Height; y++ {
			row := g.Pix[y*g.Stride:]
			for x := 0; x < dst.Width; x++ {
				dst.Data[y*dst.Width+x] = uint16(row[2*x])<<8 | uint16(row[2*x+1])
			}
		}
		return nil
	}
	for y := 0; y < dst.Height; y++ {
		for x := 0; x < dst.Width; x++ {
			dst.Data[y*dst.Width+x] = color.Gray16Model.Convert(img.At(x, y)).(color.Gray16).Y
		}
	}
	return nil
}

// AcquireColor implements sensor.FrameSource.
func (s *Source) AcquireColor(dst *sensor.ColorGrid) error {
	f, err := s.next(&s.lastColor)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(f.color)
	if err != nil {
		return err
	}
	if filepath.Ext(f.color) == ".tga" {
		if err := decodeTGA(data, dst); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(f.color), err)
		}
		return nil
	}

	img, err := bmp.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(f.color), err)
	}
	if err := checkBounds(img, dst.Width, dst.Height); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(f.color), err)
	}
	b := img.Bounds()
	for y := 0; y < dst.Height; y++ {
		for x := 0; x < dst.Width; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			dst.Pix[y*dst.Width+x] = sensor.BGRA{B: c.B, G: c.G, R: c.R, A: c.A}
		}
	}
	return nil
}

// AcquireBodyIndex implements sensor.FrameSource.
func (s *Source) AcquireBodyIndex(dst *sensor.BodyIndexGrid) error {
	if !s.opts.BodyIndex {
		return errors.New("body index stream not open")
	}
	f, err := s.next(&s.lastIndex)
	if err != nil {
		return err
	}
	img, err := decodePNG(f.bodyIndex, dst.Width, dst.Height)
	if err != nil {
		return err
	}
	for y := 0; y < dst.Height; y++ {
		for x := 0; x < dst.Width; x++ {
			dst.Data[y*dst.Width+x] = color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
		}
	}
	return nil
}

func decodePNG(path string, width, height int) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if err := checkBounds(img, width, height); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return img, nil
}

func checkBounds(img image.Image, width, height int) error {
	b := img.Bounds()
	if b.Dx() != width || b.Dy() != height {
		return fmt.Errorf("image is %dx%d, stream is %dx%d", b.Dx(), b.Dy(), width, height)
	}
	return nil
}

// FrameCount returns the number of frames found by Open.
func (s *Source) FrameCount() int {
	return len(s.frames)
}
