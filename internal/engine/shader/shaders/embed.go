// Package shaders provides embedded GLSL shader sources.
package shaders

import _ "embed"

// MeshVertexShader transforms reconstructed mesh vertices.
//
//go:embed mesh.vert
var MeshVertexShader string

// MeshFragmentShader shades mesh vertices with their colour and a
// headlight.
//
//go:embed mesh.frag
var MeshFragmentShader string

// InsetVertexShader draws a screen-space textured quad.
//
//go:embed inset.vert
var InsetVertexShader string

// InsetFragmentShader samples the camera texture.
//
//go:embed inset.frag
var InsetFragmentShader string
