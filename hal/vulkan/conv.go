package vulkan

import (
	"github.com/gogpu/gputypes"
	vk "github.com/goki/vulkan"

	"github.com/gogpu/vkres/hal"
)

// Pure value mappings between the portable enums and the Vulkan ones.
// Unknown inputs fall to a conservative default rather than panicking.

func textureFormat(f gputypes.TextureFormat) vk.Format {
	switch f {
	case gputypes.TextureFormatRGBA8Unorm:
		return vk.FormatR8g8b8a8Unorm
	case gputypes.TextureFormatBGRA8Unorm:
		return vk.FormatB8g8r8a8Unorm
	case gputypes.TextureFormatR8Unorm:
		return vk.FormatR8Unorm
	case gputypes.TextureFormatDepth24PlusStencil8:
		return vk.FormatD24UnormS8Uint
	default:
		return vk.FormatUndefined
	}
}

func loadOp(op gputypes.LoadOp) vk.AttachmentLoadOp {
	switch op {
	case gputypes.LoadOpClear:
		return vk.AttachmentLoadOpClear
	case gputypes.LoadOpLoad:
		return vk.AttachmentLoadOpLoad
	default:
		return vk.AttachmentLoadOpDontCare
	}
}

func storeOp(op gputypes.StoreOp) vk.AttachmentStoreOp {
	if op == gputypes.StoreOpStore {
		return vk.AttachmentStoreOpStore
	}
	return vk.AttachmentStoreOpDontCare
}

func sampleCount(n uint32) vk.SampleCountFlagBits {
	switch n {
	case 2:
		return vk.SampleCount2Bit
	case 4:
		return vk.SampleCount4Bit
	case 8:
		return vk.SampleCount8Bit
	case 16:
		return vk.SampleCount16Bit
	default:
		return vk.SampleCount1Bit
	}
}

func filterMode(f gputypes.FilterMode) vk.Filter {
	if f == gputypes.FilterModeLinear {
		return vk.FilterLinear
	}
	return vk.FilterNearest
}

func addressMode(m gputypes.AddressMode) vk.SamplerAddressMode {
	if m == gputypes.AddressModeClampToEdge {
		return vk.SamplerAddressModeClampToEdge
	}
	return vk.SamplerAddressModeRepeat
}

// descriptorType maps the portable descriptor kinds. Uniform buffers map
// to the dynamic variant: descriptors are written once at offset zero and
// per-draw offsets are supplied at bind time.
func descriptorType(t hal.DescriptorType) vk.DescriptorType {
	switch t {
	case hal.DescriptorTypeUniformBuffer:
		return vk.DescriptorTypeUniformBufferDynamic
	case hal.DescriptorTypeStorageBuffer:
		return vk.DescriptorTypeStorageBuffer
	case hal.DescriptorTypeCombinedTextureSampler:
		return vk.DescriptorTypeCombinedImageSampler
	case hal.DescriptorTypeTexture:
		return vk.DescriptorTypeSampledImage
	case hal.DescriptorTypeInputAttachment:
		return vk.DescriptorTypeInputAttachment
	default:
		return vk.DescriptorTypeUniformBufferDynamic
	}
}

func vertexFormat(f gputypes.VertexFormat) vk.Format {
	switch f {
	case gputypes.VertexFormatFloat32:
		return vk.FormatR32Sfloat
	case gputypes.VertexFormatFloat32x2:
		return vk.FormatR32g32Sfloat
	case gputypes.VertexFormatFloat32x4:
		return vk.FormatR32g32b32a32Sfloat
	default:
		return vk.FormatUndefined
	}
}

func vkBool(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}
