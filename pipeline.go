package vkres

import "github.com/gogpu/vkres/hal"

// GraphicsPipelineDesc describes a graphics pipeline request. Pipelines
// are not cached by the provider; the driver-level pipeline cache blob
// absorbs redundant compilation instead.
type GraphicsPipelineDesc struct {
	// Label is an optional debug name.
	Label string

	// VertexShader and FragmentShader are the stage modules. Entry points
	// default to "vs_main" and "fs_main".
	VertexShader       hal.ShaderModule
	VertexEntryPoint   string
	FragmentShader     hal.ShaderModule
	FragmentEntryPoint string

	// RenderPass describes the target attachments. The provider resolves
	// it to a compatible-only render pass for pipeline creation.
	RenderPass RenderPassDesc

	// Bindings describes the pipeline's single descriptor set layout.
	Bindings []DescriptorData

	// SampleCount is the rasterization sample count (1 for non-MSAA).
	SampleCount uint32

	// VertexStride and VertexAttributes describe the vertex input. A zero
	// stride means the pipeline consumes no vertex buffer.
	VertexStride     uint64
	VertexAttributes []hal.VertexAttribute
}

// ComputePipelineDesc describes a compute pipeline request. The provider
// rejects every request; the type exists so the operation has a stable
// signature.
type ComputePipelineDesc struct {
	Label string
}
