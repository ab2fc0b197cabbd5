package vulkan

import (
	"testing"

	"github.com/gogpu/gputypes"
	vk "github.com/goki/vulkan"

	"github.com/gogpu/vkres/hal"
)

func TestTextureFormat(t *testing.T) {
	cases := []struct {
		in   gputypes.TextureFormat
		want vk.Format
	}{
		{gputypes.TextureFormatRGBA8Unorm, vk.FormatR8g8b8a8Unorm},
		{gputypes.TextureFormatBGRA8Unorm, vk.FormatB8g8r8a8Unorm},
		{gputypes.TextureFormatR8Unorm, vk.FormatR8Unorm},
		{gputypes.TextureFormatDepth24PlusStencil8, vk.FormatD24UnormS8Uint},
		{gputypes.TextureFormatUndefined, vk.FormatUndefined},
	}
	for _, c := range cases {
		if got := textureFormat(c.in); got != c.want {
			t.Errorf("textureFormat(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestLoadStoreOps(t *testing.T) {
	if loadOp(gputypes.LoadOpClear) != vk.AttachmentLoadOpClear {
		t.Error("clear must map to clear")
	}
	if loadOp(gputypes.LoadOpLoad) != vk.AttachmentLoadOpLoad {
		t.Error("load must map to load")
	}
	if storeOp(gputypes.StoreOpStore) != vk.AttachmentStoreOpStore {
		t.Error("store must map to store")
	}
	if storeOp(gputypes.StoreOpDiscard) != vk.AttachmentStoreOpDontCare {
		t.Error("discard must map to don't-care")
	}
}

func TestSampleCount(t *testing.T) {
	cases := map[uint32]vk.SampleCountFlagBits{
		0:  vk.SampleCount1Bit,
		1:  vk.SampleCount1Bit,
		2:  vk.SampleCount2Bit,
		4:  vk.SampleCount4Bit,
		8:  vk.SampleCount8Bit,
		16: vk.SampleCount16Bit,
		3:  vk.SampleCount1Bit,
	}
	for in, want := range cases {
		if got := sampleCount(in); got != want {
			t.Errorf("sampleCount(%d) = %v, want %v", in, got, want)
		}
	}
}

func TestDescriptorType(t *testing.T) {
	// Uniform buffers use the dynamic variant: offsets arrive at bind
	// time.
	if descriptorType(hal.DescriptorTypeUniformBuffer) != vk.DescriptorTypeUniformBufferDynamic {
		t.Error("uniform buffers must be dynamic")
	}
	if descriptorType(hal.DescriptorTypeCombinedTextureSampler) != vk.DescriptorTypeCombinedImageSampler {
		t.Error("combined sampler mapping")
	}
	if descriptorType(hal.DescriptorTypeTexture) != vk.DescriptorTypeSampledImage {
		t.Error("texture mapping")
	}
	if descriptorType(hal.DescriptorTypeInputAttachment) != vk.DescriptorTypeInputAttachment {
		t.Error("input attachment mapping")
	}
}

func TestVertexFormat(t *testing.T) {
	if vertexFormat(gputypes.VertexFormatFloat32x2) != vk.FormatR32g32Sfloat {
		t.Error("float32x2 mapping")
	}
	if vertexFormat(gputypes.VertexFormatFloat32x4) != vk.FormatR32g32b32a32Sfloat {
		t.Error("float32x4 mapping")
	}
}

func TestBufferUsage(t *testing.T) {
	got := bufferUsage(gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst)
	want := vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit | vk.BufferUsageTransferDstBit)
	if got != want {
		t.Errorf("bufferUsage = %#x, want %#x", got, want)
	}
}
