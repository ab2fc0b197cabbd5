// Package vulkan implements the vkres device binding on the Vulkan API
// via github.com/goki/vulkan.
//
// The binding is a thin translation layer: it owns no caching or
// ref-counting of its own, and every handle it returns is destroyed by
// exactly one matching Destroy call from the provider layer.
package vulkan

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/gogpu/gputypes"
	vk "github.com/goki/vulkan"

	"github.com/gogpu/vkres/hal"
)

// ErrExternalFormat is returned for ycbcr conversions that name a platform
// external format; those exist only on Android and are not supported here.
var ErrExternalFormat = errors.New("vulkan: external formats are not supported")

// Device implements hal.Device on a Vulkan logical device.
type Device struct {
	dev      vk.Device
	gpu      vk.PhysicalDevice
	memProps vk.PhysicalDeviceMemoryProperties
	caps     hal.Caps
}

var _ hal.Device = (*Device)(nil)

// New wraps an existing logical device. The caller retains ownership of
// the device and physical device; Close-ing the provider does not destroy
// them.
func New(device vk.Device, gpu vk.PhysicalDevice, protected bool) *Device {
	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(gpu, &props)
	props.Deref()
	props.Limits.Deref()

	var memProps vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(gpu, &memProps)
	memProps.Deref()

	return &Device{
		dev:      device,
		gpu:      gpu,
		memProps: memProps,
		caps: hal.Caps{
			MaxUniformBufferRange: uint64(props.Limits.MaxUniformBufferRange),
			ProtectedMemory:       protected,
		},
	}
}

// Caps returns the capability surface read from the physical device.
func (d *Device) Caps() hal.Caps { return d.caps }

func (d *Device) CreateDescriptorSetLayout(bindings []hal.DescriptorSetLayoutBinding) (hal.DescriptorSetLayout, error) {
	binds := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, b := range bindings {
		binds[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  descriptorType(b.Type),
			DescriptorCount: b.Count,
			StageFlags:      vk.ShaderStageFlags(vk.ShaderStageVertexBit | vk.ShaderStageFragmentBit),
		}
	}
	var layout vk.DescriptorSetLayout
	ret := vk.CreateDescriptorSetLayout(d.dev, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(binds)),
		PBindings:    binds,
	}, nil, &layout)
	if ret != vk.Success {
		return nil, fmt.Errorf("vulkan: create descriptor set layout: %w", vk.Error(ret))
	}
	return layout, nil
}

func (d *Device) DestroyDescriptorSetLayout(layout hal.DescriptorSetLayout) {
	vk.DestroyDescriptorSetLayout(d.dev, layout.(vk.DescriptorSetLayout), nil)
}

func (d *Device) CreateDescriptorPool(sizes []hal.DescriptorPoolSize, maxSets uint32) (hal.DescriptorPool, error) {
	poolSizes := make([]vk.DescriptorPoolSize, len(sizes))
	for i, s := range sizes {
		poolSizes[i] = vk.DescriptorPoolSize{
			Type:            descriptorType(s.Type),
			DescriptorCount: s.Count,
		}
	}
	var pool vk.DescriptorPool
	ret := vk.CreateDescriptorPool(d.dev, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}, nil, &pool)
	if ret != vk.Success {
		return nil, fmt.Errorf("vulkan: create descriptor pool: %w", vk.Error(ret))
	}
	return pool, nil
}

func (d *Device) DestroyDescriptorPool(pool hal.DescriptorPool) {
	vk.DestroyDescriptorPool(d.dev, pool.(vk.DescriptorPool), nil)
}

func (d *Device) AllocateDescriptorSet(pool hal.DescriptorPool, layout hal.DescriptorSetLayout) (hal.DescriptorSet, error) {
	var set vk.DescriptorSet
	ret := vk.AllocateDescriptorSets(d.dev, &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool.(vk.DescriptorPool),
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout.(vk.DescriptorSetLayout)},
	}, &set)
	if ret != vk.Success {
		return nil, fmt.Errorf("vulkan: allocate descriptor set: %w", vk.Error(ret))
	}
	return set, nil
}

func (d *Device) UpdateBufferDescriptorSet(set hal.DescriptorSet, binding uint32, typ hal.DescriptorType,
	count uint32, buffer hal.Buffer, offset, size uint64) error {
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set.(vk.DescriptorSet),
		DstBinding:      binding,
		DescriptorCount: count,
		DescriptorType:  descriptorType(typ),
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: buffer.(*bufferHandle).buf,
			Offset: vk.DeviceSize(offset),
			Range:  vk.DeviceSize(size),
		}},
	}
	vk.UpdateDescriptorSets(d.dev, 1, []vk.WriteDescriptorSet{write}, 0, nil)
	return nil
}

func (d *Device) CreateRenderPass(info hal.RenderPassCreateInfo) (hal.RenderPass, error) {
	var attachments []vk.AttachmentDescription
	subpass := vk.SubpassDescription{
		PipelineBindPoint: vk.PipelineBindPointGraphics,
	}

	addAttachment := func(a hal.Attachment, layout vk.ImageLayout) vk.AttachmentReference {
		load := loadOp(a.LoadOp)
		store := storeOp(a.StoreOp)
		if info.CompatibleOnly {
			load = vk.AttachmentLoadOpDontCare
			store = vk.AttachmentStoreOpDontCare
		}
		initial := vk.ImageLayoutUndefined
		if load == vk.AttachmentLoadOpLoad {
			initial = layout
		}
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         textureFormat(a.Format),
			Samples:        sampleCount(a.SampleCount),
			LoadOp:         load,
			StoreOp:        store,
			StencilLoadOp:  load,
			StencilStoreOp: store,
			InitialLayout:  initial,
			FinalLayout:    layout,
		})
		return vk.AttachmentReference{
			Attachment: uint32(len(attachments) - 1),
			Layout:     layout,
		}
	}

	if info.Color.Valid() {
		ref := addAttachment(info.Color, vk.ImageLayoutColorAttachmentOptimal)
		subpass.ColorAttachmentCount = 1
		subpass.PColorAttachments = []vk.AttachmentReference{ref}
	}
	if info.ColorResolve.Valid() {
		ref := addAttachment(info.ColorResolve, vk.ImageLayoutColorAttachmentOptimal)
		subpass.PResolveAttachments = []vk.AttachmentReference{ref}
	}
	if info.DepthStencil.Valid() {
		ref := addAttachment(info.DepthStencil, vk.ImageLayoutDepthStencilAttachmentOptimal)
		subpass.PDepthStencilAttachment = &ref
	}

	var rp vk.RenderPass
	ret := vk.CreateRenderPass(d.dev, &vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
	}, nil, &rp)
	if ret != vk.Success {
		return nil, fmt.Errorf("vulkan: create render pass: %w", vk.Error(ret))
	}
	return rp, nil
}

func (d *Device) DestroyRenderPass(rp hal.RenderPass) {
	vk.DestroyRenderPass(d.dev, rp.(vk.RenderPass), nil)
}

func (d *Device) CreateShaderModule(spirv []uint32) (hal.ShaderModule, error) {
	var module vk.ShaderModule
	ret := vk.CreateShaderModule(d.dev, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(spirv) * 4),
		PCode:    spirv,
	}, nil, &module)
	if ret != vk.Success {
		return nil, fmt.Errorf("vulkan: create shader module: %w", vk.Error(ret))
	}
	return module, nil
}

func (d *Device) DestroyShaderModule(module hal.ShaderModule) {
	vk.DestroyShaderModule(d.dev, module.(vk.ShaderModule), nil)
}

func (d *Device) CreatePipelineLayout(layouts []hal.DescriptorSetLayout) (hal.PipelineLayout, error) {
	setLayouts := make([]vk.DescriptorSetLayout, len(layouts))
	for i, l := range layouts {
		setLayouts[i] = l.(vk.DescriptorSetLayout)
	}
	var layout vk.PipelineLayout
	ret := vk.CreatePipelineLayout(d.dev, &vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(setLayouts)),
		PSetLayouts:    setLayouts,
	}, nil, &layout)
	if ret != vk.Success {
		return nil, fmt.Errorf("vulkan: create pipeline layout: %w", vk.Error(ret))
	}
	return layout, nil
}

func (d *Device) DestroyPipelineLayout(layout hal.PipelineLayout) {
	vk.DestroyPipelineLayout(d.dev, layout.(vk.PipelineLayout), nil)
}

func (d *Device) CreatePipelineCache() (hal.PipelineCache, error) {
	var pc vk.PipelineCache
	ret := vk.CreatePipelineCache(d.dev, &vk.PipelineCacheCreateInfo{
		SType: vk.StructureTypePipelineCacheCreateInfo,
	}, nil, &pc)
	if ret != vk.Success {
		return nil, fmt.Errorf("vulkan: create pipeline cache: %w", vk.Error(ret))
	}
	return pc, nil
}

func (d *Device) DestroyPipelineCache(pc hal.PipelineCache) {
	vk.DestroyPipelineCache(d.dev, pc.(vk.PipelineCache), nil)
}

func (d *Device) CreateGraphicsPipeline(info hal.GraphicsPipelineCreateInfo, pc hal.PipelineCache) (hal.Pipeline, error) {
	vertEntry := info.VertexEntryPoint
	if vertEntry == "" {
		vertEntry = "vs_main"
	}
	fragEntry := info.FragmentEntryPoint
	if fragEntry == "" {
		fragEntry = "fs_main"
	}
	stages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: info.VertexShader.(vk.ShaderModule),
			PName:  vertEntry + "\x00",
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: info.FragmentShader.(vk.ShaderModule),
			PName:  fragEntry + "\x00",
		},
	}

	vertexInput := &vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}
	if info.VertexStride > 0 {
		attrs := make([]vk.VertexInputAttributeDescription, len(info.VertexAttributes))
		for i, a := range info.VertexAttributes {
			attrs[i] = vk.VertexInputAttributeDescription{
				Location: a.Location,
				Binding:  0,
				Format:   vertexFormat(a.Format),
				Offset:   uint32(a.Offset),
			}
		}
		vertexInput.VertexBindingDescriptionCount = 1
		vertexInput.PVertexBindingDescriptions = []vk.VertexInputBindingDescription{{
			Binding:   0,
			Stride:    uint32(info.VertexStride),
			InputRate: vk.VertexInputRateVertex,
		}}
		vertexInput.VertexAttributeDescriptionCount = uint32(len(attrs))
		vertexInput.PVertexAttributeDescriptions = attrs
	}

	blend := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.True,
		SrcColorBlendFactor: vk.BlendFactorOne,
		DstColorBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorOne,
		DstAlphaBlendFactor: vk.BlendFactorOneMinusSrcAlpha,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask:      0xF,
	}

	var cache vk.PipelineCache
	if pc != nil {
		cache = pc.(vk.PipelineCache)
	}

	ci := vk.GraphicsPipelineCreateInfo{
		SType:             vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:        uint32(len(stages)),
		PStages:           stages,
		PVertexInputState: vertexInput,
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology: vk.PrimitiveTopologyTriangleList,
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			ScissorCount:  1,
		},
		PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
			SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
			PolygonMode: vk.PolygonModeFill,
			CullMode:    vk.CullModeFlags(vk.CullModeNone),
			FrontFace:   vk.FrontFaceCounterClockwise,
			LineWidth:   1.0,
		},
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: sampleCount(info.SampleCount),
		},
		PColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
			SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
			AttachmentCount: 1,
			PAttachments:    []vk.PipelineColorBlendAttachmentState{blend},
		},
		PDynamicState: &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: 2,
			PDynamicStates: []vk.DynamicState{
				vk.DynamicStateViewport,
				vk.DynamicStateScissor,
			},
		},
		Layout:     info.Layout.(vk.PipelineLayout),
		RenderPass: info.RenderPass.(vk.RenderPass),
	}

	pipelines := make([]vk.Pipeline, 1)
	ret := vk.CreateGraphicsPipelines(d.dev, cache, 1, []vk.GraphicsPipelineCreateInfo{ci}, nil, pipelines)
	if ret != vk.Success {
		return nil, fmt.Errorf("vulkan: create graphics pipeline: %w", vk.Error(ret))
	}
	return pipelines[0], nil
}

func (d *Device) DestroyPipeline(p hal.Pipeline) {
	vk.DestroyPipeline(d.dev, p.(vk.Pipeline), nil)
}

func (d *Device) CreateSampler(info hal.SamplerCreateInfo, conv hal.YcbcrConversion) (hal.Sampler, error) {
	ci := vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MagFilter:    filterMode(info.MagFilter),
		MinFilter:    filterMode(info.MinFilter),
		AddressModeU: addressMode(info.AddressModeU),
		AddressModeV: addressMode(info.AddressModeV),
		AddressModeW: vk.SamplerAddressModeClampToEdge,
		MipmapMode:   vk.SamplerMipmapModeNearest,
		BorderColor:  vk.BorderColorFloatTransparentBlack,
	}
	if conv != nil {
		chain := vk.SamplerYcbcrConversionInfo{
			SType:      vk.StructureTypeSamplerYcbcrConversionInfo,
			Conversion: conv.(vk.SamplerYcbcrConversion),
		}
		ref, _ := chain.PassRef()
		ci.PNext = unsafe.Pointer(ref)
	}

	var sampler vk.Sampler
	ret := vk.CreateSampler(d.dev, &ci, nil, &sampler)
	if ret != vk.Success {
		return nil, fmt.Errorf("vulkan: create sampler: %w", vk.Error(ret))
	}
	return sampler, nil
}

func (d *Device) DestroySampler(s hal.Sampler) {
	vk.DestroySampler(d.dev, s.(vk.Sampler), nil)
}

func (d *Device) CreateYcbcrConversion(info hal.YcbcrConversionInfo) (hal.YcbcrConversion, error) {
	if info.ExternalFormat != 0 {
		return nil, ErrExternalFormat
	}

	var conv vk.SamplerYcbcrConversion
	ret := vk.CreateSamplerYcbcrConversion(d.dev, &vk.SamplerYcbcrConversionCreateInfo{
		SType:      vk.StructureTypeSamplerYcbcrConversionCreateInfo,
		Format:     textureFormat(info.Format),
		YcbcrModel: vk.SamplerYcbcrModelConversion(info.Model),
		YcbcrRange: vk.SamplerYcbcrRange(info.Range),
		Components: vk.ComponentMapping{
			R: vk.ComponentSwizzleIdentity,
			G: vk.ComponentSwizzleIdentity,
			B: vk.ComponentSwizzleIdentity,
			A: vk.ComponentSwizzleIdentity,
		},
		XChromaOffset:               vk.ChromaLocation(info.XChromaOffset),
		YChromaOffset:               vk.ChromaLocation(info.YChromaOffset),
		ChromaFilter:                filterMode(info.ChromaFilter),
		ForceExplicitReconstruction: vkBool(info.ForceExplicitReconstruction),
	}, nil, &conv)
	if ret != vk.Success {
		return nil, fmt.Errorf("vulkan: create ycbcr conversion: %w", vk.Error(ret))
	}
	return conv, nil
}

func (d *Device) DestroyYcbcrConversion(conv hal.YcbcrConversion) {
	vk.DestroySamplerYcbcrConversion(d.dev, conv.(vk.SamplerYcbcrConversion), nil)
}

func (d *Device) CreateFramebuffer(rp hal.RenderPass, attachments []hal.ImageView, width, height uint32) (hal.Framebuffer, error) {
	views := make([]vk.ImageView, len(attachments))
	for i, a := range attachments {
		views[i] = a.(vk.ImageView)
	}
	var fb vk.Framebuffer
	ret := vk.CreateFramebuffer(d.dev, &vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      rp.(vk.RenderPass),
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           width,
		Height:          height,
		Layers:          1,
	}, nil, &fb)
	if ret != vk.Success {
		return nil, fmt.Errorf("vulkan: create framebuffer: %w", vk.Error(ret))
	}
	return fb, nil
}

func (d *Device) DestroyFramebuffer(fb hal.Framebuffer) {
	vk.DestroyFramebuffer(d.dev, fb.(vk.Framebuffer), nil)
}

// bufferHandle pairs a buffer with its backing allocation so destroy can
// free both.
type bufferHandle struct {
	buf vk.Buffer
	mem vk.DeviceMemory
}

func (d *Device) CreateBuffer(size uint64, usage gputypes.BufferUsage) (hal.Buffer, error) {
	var buf vk.Buffer
	ret := vk.CreateBuffer(d.dev, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       bufferUsage(usage),
		SharingMode: vk.SharingModeExclusive,
	}, nil, &buf)
	if ret != vk.Success {
		return nil, fmt.Errorf("vulkan: create buffer: %w", vk.Error(ret))
	}

	var memReqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.dev, buf, &memReqs)
	memReqs.Deref()

	memType, ok := d.findMemoryType(memReqs.MemoryTypeBits, vk.MemoryPropertyDeviceLocalBit)
	if !ok {
		vk.DestroyBuffer(d.dev, buf, nil)
		return nil, errors.New("vulkan: no suitable memory type for buffer")
	}

	var mem vk.DeviceMemory
	ret = vk.AllocateMemory(d.dev, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReqs.Size,
		MemoryTypeIndex: memType,
	}, nil, &mem)
	if ret != vk.Success {
		vk.DestroyBuffer(d.dev, buf, nil)
		return nil, fmt.Errorf("vulkan: allocate buffer memory: %w", vk.Error(ret))
	}

	if ret := vk.BindBufferMemory(d.dev, buf, mem, 0); ret != vk.Success {
		vk.FreeMemory(d.dev, mem, nil)
		vk.DestroyBuffer(d.dev, buf, nil)
		return nil, fmt.Errorf("vulkan: bind buffer memory: %w", vk.Error(ret))
	}

	return &bufferHandle{buf: buf, mem: mem}, nil
}

func (d *Device) DestroyBuffer(b hal.Buffer) {
	h := b.(*bufferHandle)
	vk.DestroyBuffer(d.dev, h.buf, nil)
	vk.FreeMemory(d.dev, h.mem, nil)
}

func (d *Device) findMemoryType(typeBits uint32, props vk.MemoryPropertyFlagBits) (uint32, bool) {
	for i := uint32(0); i < vk.MaxMemoryTypes; i++ {
		if typeBits&(1<<i) == 0 {
			continue
		}
		d.memProps.MemoryTypes[i].Deref()
		if d.memProps.MemoryTypes[i].PropertyFlags&vk.MemoryPropertyFlags(props) == vk.MemoryPropertyFlags(props) {
			return i, true
		}
	}
	return 0, false
}

func bufferUsage(usage gputypes.BufferUsage) vk.BufferUsageFlags {
	var flags vk.BufferUsageFlagBits
	if usage&gputypes.BufferUsageUniform != 0 {
		flags |= vk.BufferUsageUniformBufferBit
	}
	if usage&gputypes.BufferUsageStorage != 0 {
		flags |= vk.BufferUsageStorageBufferBit
	}
	if usage&gputypes.BufferUsageVertex != 0 {
		flags |= vk.BufferUsageVertexBufferBit
	}
	if usage&gputypes.BufferUsageCopySrc != 0 {
		flags |= vk.BufferUsageTransferSrcBit
	}
	if usage&gputypes.BufferUsageCopyDst != 0 {
		flags |= vk.BufferUsageTransferDstBit
	}
	return vk.BufferUsageFlags(flags)
}
