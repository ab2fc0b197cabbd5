// Package hal defines the capability interface vkres uses to talk to a
// native graphics API. One implementation exists per backend (see
// hal/vulkan); tests supply fakes. Every call is synchronous and fallible:
// it either returns a live driver object or an error, never both.
//
// Key-building and cache logic in the root package is backend-agnostic and
// touches the driver only through Device.
package hal

import "github.com/gogpu/gputypes"

// Opaque driver handles. Each backend supplies its own concrete values;
// callers never inspect them.
type (
	// DescriptorSetLayout is a driver descriptor-set-layout handle.
	DescriptorSetLayout any

	// DescriptorPool is a driver descriptor-pool handle.
	DescriptorPool any

	// DescriptorSet is a driver descriptor-set handle.
	DescriptorSet any

	// RenderPass is a driver render-pass handle.
	RenderPass any

	// ShaderModule is a driver shader-module handle.
	ShaderModule any

	// PipelineLayout is a driver pipeline-layout handle.
	PipelineLayout any

	// PipelineCache is a driver pipeline-cache blob handle.
	PipelineCache any

	// Pipeline is a driver pipeline handle.
	Pipeline any

	// Sampler is a driver sampler handle.
	Sampler any

	// YcbcrConversion is a driver sampler-ycbcr-conversion handle.
	YcbcrConversion any

	// Framebuffer is a driver framebuffer handle.
	Framebuffer any

	// ImageView is a driver image-view handle, supplied by the texture
	// layer when creating framebuffers.
	ImageView any

	// Buffer is a driver buffer handle.
	Buffer any
)

// DescriptorType classifies a descriptor binding.
type DescriptorType uint8

const (
	// DescriptorTypeUniformBuffer is a uniform buffer binding.
	DescriptorTypeUniformBuffer DescriptorType = iota

	// DescriptorTypeStorageBuffer is a storage buffer binding.
	DescriptorTypeStorageBuffer

	// DescriptorTypeCombinedTextureSampler is a combined image+sampler
	// binding.
	DescriptorTypeCombinedTextureSampler

	// DescriptorTypeTexture is a sampled image binding.
	DescriptorTypeTexture

	// DescriptorTypeInputAttachment is an input attachment binding.
	DescriptorTypeInputAttachment
)

// DescriptorSetLayoutBinding describes one binding slot in a descriptor
// set layout.
type DescriptorSetLayoutBinding struct {
	// Binding is the slot index within the set.
	Binding uint32

	// Type is the descriptor kind bound at this slot.
	Type DescriptorType

	// Count is the number of descriptors in the slot (arrays > 1).
	Count uint32
}

// DescriptorPoolSize declares how many descriptors of one type a pool can
// serve across all its sets.
type DescriptorPoolSize struct {
	Type  DescriptorType
	Count uint32
}

// Attachment describes a single render-pass attachment.
// A zero Format marks the attachment as absent.
type Attachment struct {
	Format      gputypes.TextureFormat
	SampleCount uint32
	LoadOp      gputypes.LoadOp
	StoreOp     gputypes.StoreOp
}

// Valid reports whether the attachment is present.
func (a Attachment) Valid() bool {
	return a.Format != gputypes.TextureFormatUndefined
}

// RenderPassCreateInfo describes a render pass to create.
//
// CompatibleOnly requests a layout-only pass: attachment formats and sample
// counts are honored but load/store operations are ignored by the backend.
// Compatible passes are sufficient for pipeline creation; full passes drive
// actual rendering.
type RenderPassCreateInfo struct {
	Color          Attachment
	ColorResolve   Attachment
	DepthStencil   Attachment
	CompatibleOnly bool
}

// VertexAttribute describes one vertex attribute in a pipeline's single
// vertex buffer.
type VertexAttribute struct {
	// Location is the attribute location in the shader.
	Location uint32

	// Format is the attribute data format.
	Format gputypes.VertexFormat

	// Offset is the byte offset from the start of the vertex.
	Offset uint64
}

// GraphicsPipelineCreateInfo describes a graphics pipeline to create.
type GraphicsPipelineCreateInfo struct {
	// Label is an optional debug name.
	Label string

	// VertexShader is the vertex stage module.
	VertexShader ShaderModule

	// VertexEntryPoint is the vertex entry function name.
	// Defaults to "vs_main" if empty.
	VertexEntryPoint string

	// FragmentShader is the fragment stage module.
	FragmentShader ShaderModule

	// FragmentEntryPoint is the fragment entry function name.
	// Defaults to "fs_main" if empty.
	FragmentEntryPoint string

	// Layout is the pipeline layout.
	Layout PipelineLayout

	// RenderPass is a render pass the pipeline must be compatible with.
	RenderPass RenderPass

	// SampleCount is the rasterization sample count (1 for non-MSAA).
	SampleCount uint32

	// VertexStride is the byte stride of the vertex buffer. Zero means the
	// pipeline consumes no vertex input.
	VertexStride uint64

	// VertexAttributes describes the vertex buffer's attributes.
	VertexAttributes []VertexAttribute
}

// SamplerCreateInfo describes a sampler to create. An immutable format
// conversion, when required, is passed separately to CreateSampler.
type SamplerCreateInfo struct {
	MagFilter    gputypes.FilterMode
	MinFilter    gputypes.FilterMode
	AddressModeU gputypes.AddressMode
	AddressModeV gputypes.AddressMode
}

// YcbcrConversionInfo describes a sampler ycbcr format conversion.
// The zero value is invalid and means "no conversion".
type YcbcrConversionInfo struct {
	// Format is the image format the conversion samples. Undefined when an
	// external format is used instead.
	Format gputypes.TextureFormat

	// ExternalFormat is a platform external format identifier; non-zero
	// only when Format is undefined.
	ExternalFormat uint64

	// Model is the color model conversion (native enum value).
	Model uint32

	// Range is the color range (native enum value).
	Range uint32

	// XChromaOffset and YChromaOffset locate chroma samples (native enum
	// values).
	XChromaOffset uint32
	YChromaOffset uint32

	// ChromaFilter filters chroma reconstruction.
	ChromaFilter gputypes.FilterMode

	// ForceExplicitReconstruction forces explicit chroma reconstruction.
	ForceExplicitReconstruction bool
}

// Valid reports whether the conversion info describes a usable conversion:
// exactly one of Format and ExternalFormat must identify the source format.
func (i YcbcrConversionInfo) Valid() bool {
	if i.Format == gputypes.TextureFormatUndefined {
		return i.ExternalFormat != 0
	}
	return i.ExternalFormat == 0
}

// Caps is the device capability surface used for pre-call validation.
type Caps struct {
	// MaxUniformBufferRange is the largest binding size accepted for a
	// uniform buffer descriptor.
	MaxUniformBufferRange uint64

	// ProtectedMemory reports whether the device operates on protected
	// memory.
	ProtectedMemory bool
}

// Device is the native-API binding layer. All methods are synchronous;
// creation methods return an error on driver failure and callers are
// responsible for destroying everything they successfully created.
//
// Device implementations do not retain references to the create-info
// structures after a call returns.
type Device interface {
	// Caps returns the device capability surface.
	Caps() Caps

	CreateDescriptorSetLayout(bindings []DescriptorSetLayoutBinding) (DescriptorSetLayout, error)
	DestroyDescriptorSetLayout(layout DescriptorSetLayout)

	CreateDescriptorPool(sizes []DescriptorPoolSize, maxSets uint32) (DescriptorPool, error)
	DestroyDescriptorPool(pool DescriptorPool)

	// AllocateDescriptorSet allocates one set from the pool. Sets are
	// reclaimed by destroying their pool; there is no per-set free.
	AllocateDescriptorSet(pool DescriptorPool, layout DescriptorSetLayout) (DescriptorSet, error)

	// UpdateBufferDescriptorSet points one binding slot of a set at a
	// buffer range. One driver call per slot; see the provider for why
	// updates are never batched.
	UpdateBufferDescriptorSet(set DescriptorSet, binding uint32, typ DescriptorType, count uint32,
		buffer Buffer, offset, size uint64) error

	CreateRenderPass(info RenderPassCreateInfo) (RenderPass, error)
	DestroyRenderPass(rp RenderPass)

	CreateShaderModule(spirv []uint32) (ShaderModule, error)
	DestroyShaderModule(module ShaderModule)

	CreatePipelineLayout(layouts []DescriptorSetLayout) (PipelineLayout, error)
	DestroyPipelineLayout(layout PipelineLayout)

	CreatePipelineCache() (PipelineCache, error)
	DestroyPipelineCache(pc PipelineCache)

	// CreateGraphicsPipeline builds a pipeline, optionally against a
	// pipeline cache blob (pc may be nil).
	CreateGraphicsPipeline(info GraphicsPipelineCreateInfo, pc PipelineCache) (Pipeline, error)
	DestroyPipeline(p Pipeline)

	// CreateSampler builds a sampler; conv, when non-nil, is an immutable
	// format conversion the sampler is permanently associated with.
	CreateSampler(info SamplerCreateInfo, conv YcbcrConversion) (Sampler, error)
	DestroySampler(s Sampler)

	CreateYcbcrConversion(info YcbcrConversionInfo) (YcbcrConversion, error)
	DestroyYcbcrConversion(conv YcbcrConversion)

	CreateFramebuffer(rp RenderPass, attachments []ImageView, width, height uint32) (Framebuffer, error)
	DestroyFramebuffer(fb Framebuffer)

	CreateBuffer(size uint64, usage gputypes.BufferUsage) (Buffer, error)
	DestroyBuffer(b Buffer)
}
