package vkres

import (
	"fmt"

	"github.com/gogpu/naga"
)

// The MSAA load shaders draw a fullscreen quad that copies a resolve
// texture back into the MSAA attachment at the start of a pass, standing
// in for a load operation the hardware cannot express for multisampled
// targets. Vertex positions arrive as a pre-baked two-triangle quad in
// clip space; the fragment stage reads the resolve texture by pixel
// position. The stages are compiled as separate modules so each can be
// destroyed independently at provider shutdown.
const msaaLoadVertexWGSL = `
struct VSOut {
    @builtin(position) position: vec4<f32>,
};

@vertex
fn vs_main(@location(0) pos: vec2<f32>) -> VSOut {
    var out: VSOut;
    out.position = vec4<f32>(pos, 0.0, 1.0);
    return out;
}
`

const msaaLoadFragmentWGSL = `
@group(0) @binding(0) var src: texture_2d<f32>;

@fragment
fn fs_main(@builtin(position) pos: vec4<f32>) -> @location(0) vec4<f32> {
    return textureLoad(src, vec2<i32>(pos.xy), 0);
}
`

// compileWGSL compiles WGSL source to SPIR-V words.
// SPIR-V is little-endian 32-bit words.
func compileWGSL(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("vkres: compile shader: %w", err)
	}

	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}
