// Package renderer draws reconstructed meshes and the camera image with
// OpenGL.
package renderer

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/depthmesh/internal/engine/lighting"
	"github.com/Faultbox/depthmesh/internal/engine/shader"
	"github.com/Faultbox/depthmesh/internal/engine/shader/shaders"
	"github.com/Faultbox/depthmesh/internal/logger"
	"github.com/Faultbox/depthmesh/internal/mesh"
	"github.com/Faultbox/depthmesh/internal/texture"
	"github.com/Faultbox/depthmesh/pkg/math"
)

// Config holds renderer configuration.
type Config struct {
	Width  int
	Height int
	Light  lighting.Directional
}

// floats per interleaved vertex: position, colour, normal
const vertexStride = 9

// WorldToView maps mesh space (X forward, Y right, Z up, centimetres) to
// the view's right-handed Y-up space.
var WorldToView = math.Mat4{
	0, 0, -1, 0, // X forward -> -Z
	1, 0, 0, 0, // Y right -> X
	0, 1, 0, 0, // Z up -> Y
	0, 0, 0, 1,
}

// Renderer handles all OpenGL rendering.
type Renderer struct {
	config Config
	log    *zap.Logger

	meshProgram *shader.Program
	meshVAO     uint32
	meshVBO     uint32
	meshEBO     uint32
	indexCount  int32
	vertices    []float32
	normals     mesh.Mesh

	insetProgram *shader.Program
	insetVAO     uint32
	insetVBO     uint32
	cameraTex    uint32
	cameraW      int
	cameraH      int
}

// New creates a new renderer.
// IMPORTANT: Must be called AFTER OpenGL context is created!
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{
		config: cfg,
		log:    logger.Named("renderer"),
	}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	r.log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.ClearColor(0.1, 0.1, 0.15, 1.0)

	var err error
	if r.meshProgram, err = shader.NewProgram(shaders.MeshVertexShader, shaders.MeshFragmentShader); err != nil {
		return nil, fmt.Errorf("mesh shader: %w", err)
	}
	if r.insetProgram, err = shader.NewProgram(shaders.InsetVertexShader, shaders.InsetFragmentShader); err != nil {
		r.meshProgram.Delete()
		return nil, fmt.Errorf("inset shader: %w", err)
	}

	r.createMeshBuffers()
	r.createInset()
	gl.Viewport(0, 0, int32(cfg.Width), int32(cfg.Height))
	return r, nil
}

// Close cleans up renderer resources.
func (r *Renderer) Close() {
	r.log.Info("closing renderer")
	gl.DeleteVertexArrays(1, &r.meshVAO)
	gl.DeleteBuffers(1, &r.meshVBO)
	gl.DeleteBuffers(1, &r.meshEBO)
	gl.DeleteVertexArrays(1, &r.insetVAO)
	gl.DeleteBuffers(1, &r.insetVBO)
	gl.DeleteTextures(1, &r.cameraTex)
	r.meshProgram.Delete()
	r.insetProgram.Delete()
}

// Resize handles window resize.
func (r *Renderer) Resize(width, height int) {
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	r.log.Debug("renderer resized", zap.Int("width", width), zap.Int("height", height))
}

// Size returns the framebuffer size.
func (r *Renderer) Size() (int, int) {
	return r.config.Width, r.config.Height
}

// Begin starts a new frame.
func (r *Renderer) Begin() {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

func (r *Renderer) createMeshBuffers() {
	gl.GenVertexArrays(1, &r.meshVAO)
	gl.BindVertexArray(r.meshVAO)

	gl.GenBuffers(1, &r.meshVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.meshVBO)
	gl.GenBuffers(1, &r.meshEBO)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, r.meshEBO)

	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, vertexStride*4, 0)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, vertexStride*4, 3*4)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(2, 3, gl.FLOAT, false, vertexStride*4, 6*4)
	gl.EnableVertexAttribArray(2)

	gl.BindVertexArray(0)
}

// UploadMesh replaces the GPU copy of the mesh. Meshes without normals get
// averaged vertex normals.
func (r *Renderer) UploadMesh(m *mesh.Mesh) {
	normals := m.Normals
	if len(normals) != len(m.Vertices) {
		r.normals.Vertices = m.Vertices
		r.normals.Indices = m.Indices
		mesh.Normals(&r.normals)
		normals = r.normals.Normals
	}

	r.vertices = r.vertices[:0]
	for i, v := range m.Vertices {
		c := m.Colors[i]
		n := normals[i]
		r.vertices = append(r.vertices,
			v.X, v.Y, v.Z,
			float32(c.R)/255, float32(c.G)/255, float32(c.B)/255,
			n.X, n.Y, n.Z,
		)
	}
	r.indexCount = int32(len(m.Indices))

	gl.BindVertexArray(r.meshVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.meshVBO)
	if len(r.vertices) > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, len(r.vertices)*4, unsafe.Pointer(&r.vertices[0]), gl.STREAM_DRAW)
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(m.Indices)*4, unsafe.Pointer(&m.Indices[0]), gl.STREAM_DRAW)
	}
	gl.BindVertexArray(0)
}

// DrawMesh draws the uploaded mesh with the given view-projection matrix.
func (r *Renderer) DrawMesh(viewProj math.Mat4) {
	if r.indexCount == 0 {
		return
	}
	model := WorldToView
	mvp := viewProj.Mul(model)

	r.meshProgram.Use()
	r.meshProgram.SetMat4("uMVP", (*[16]float32)(&mvp))
	r.meshProgram.SetMat4("uModel", (*[16]float32)(&model))
	ray := model.TransformVec3(r.config.Light.Ray())
	r.meshProgram.SetVec3("uLightDir", ray.X, ray.Y, ray.Z)
	r.meshProgram.SetFloat("uAmbient", r.config.Light.Ambient)

	gl.BindVertexArray(r.meshVAO)
	gl.DrawElementsWithOffset(gl.TRIANGLES, r.indexCount, gl.UNSIGNED_INT, 0)
	gl.BindVertexArray(0)
}

func (r *Renderer) createInset() {
	quad := []float32{
		// pos   uv (camera rows run top to bottom)
		0, 0, 0, 1,
		1, 0, 1, 1,
		0, 1, 0, 0,
		1, 1, 1, 0,
	}

	gl.GenVertexArrays(1, &r.insetVAO)
	gl.BindVertexArray(r.insetVAO)
	gl.GenBuffers(1, &r.insetVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.insetVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(quad)*4, unsafe.Pointer(&quad[0]), gl.STATIC_DRAW)
	gl.VertexAttribPointerWithOffset(0, 2, gl.FLOAT, false, 4*4, 0)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 2, gl.FLOAT, false, 4*4, 2*4)
	gl.EnableVertexAttribArray(1)
	gl.BindVertexArray(0)

	gl.GenTextures(1, &r.cameraTex)
	gl.BindTexture(gl.TEXTURE_2D, r.cameraTex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

// UploadCamera copies an assembled camera buffer into the inset texture.
func (r *Renderer) UploadCamera(pix []byte, width, height int, format texture.PixelFormat) {
	if len(pix) == 0 || len(pix) != width*height*4 {
		return
	}
	src := uint32(gl.BGRA)
	if format == texture.FormatRGBA {
		src = gl.RGBA
	}

	gl.BindTexture(gl.TEXTURE_2D, r.cameraTex)
	if width != r.cameraW || height != r.cameraH {
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0, src, gl.UNSIGNED_BYTE, unsafe.Pointer(&pix[0]))
		r.cameraW, r.cameraH = width, height
	} else {
		gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(width), int32(height), src, gl.UNSIGNED_BYTE, unsafe.Pointer(&pix[0]))
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

// DrawCameraInset draws the camera image in the lower right corner,
// scaled to a quarter of the window width.
func (r *Renderer) DrawCameraInset() {
	if r.cameraW == 0 || r.config.Width == 0 || r.config.Height == 0 {
		return
	}
	w := float32(0.5) // clip space spans 2 units
	h := w * float32(r.cameraH) / float32(r.cameraW) * float32(r.config.Width) / float32(r.config.Height)

	gl.Disable(gl.DEPTH_TEST)
	defer gl.Enable(gl.DEPTH_TEST)

	r.insetProgram.Use()
	r.insetProgram.SetVec4("uRect", 1-w-0.02, -1+0.02, w, h)
	r.insetProgram.SetInt("uTexture", 0)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, r.cameraTex)
	gl.BindVertexArray(r.insetVAO)
	gl.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)
	gl.BindVertexArray(0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

// ReadPixels returns the default framebuffer as bottom-up RGBA rows.
func (r *Renderer) ReadPixels() ([]byte, int, int) {
	w, h := r.config.Width, r.config.Height
	pix := make([]byte, w*h*4)
	if len(pix) == 0 {
		return pix, w, h
	}
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(w), int32(h), gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&pix[0]))
	return pix, w, h
}
