package vkres

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/vkres/cache"
	"github.com/gogpu/vkres/hal"
)

// maxCachedBindGroups bounds the secondary descriptor-set cache keyed by
// bound buffer contents. Beyond this many distinct buffer combinations the
// least recently used entry is released back to the shared cache.
const maxCachedBindGroups = 1024

// MaxUniformBuffers is the number of uniform buffer slots a uniform
// descriptor set can bind (intrinsic, step and paint uniforms).
const MaxUniformBuffers = 3

// bindGroupKeyType tags the internal key for the buffer-contents cache.
var bindGroupKeyType = cache.NextKeyType()

// ProviderOption configures a ResourceProvider during creation.
type ProviderOption func(*providerOptions)

type providerOptions struct {
	budget             uint64
	bindGroupCacheSize int
	sharedCache        *cache.ResourceCache
	intrinsicUniforms  *Buffer
	loadMSAAVertex     *Buffer
	protected          bool
}

func defaultProviderOptions() providerOptions {
	return providerOptions{
		budget:             0, // unlimited
		bindGroupCacheSize: maxCachedBindGroups,
	}
}

// WithBudget sets the shared resource cache budget in bytes.
// Zero (the default) means unlimited. Ignored when the provider is built
// on a shared cache, whose budget was fixed at its creation.
func WithBudget(bytes uint64) ProviderOption {
	return func(o *providerOptions) { o.budget = bytes }
}

// WithBindGroupCacheSize overrides the capacity of the secondary
// descriptor-set cache. Zero or negative means unlimited.
func WithBindGroupCacheSize(n int) ProviderOption {
	return func(o *providerOptions) { o.bindGroupCacheSize = n }
}

// WithSharedCache builds the provider on an externally owned resource
// cache instead of a private one. Several providers over the same device
// may share one cache; resources inserted by one become findable by the
// others. Closing a provider leaves a shared cache and its contents
// untouched.
func WithSharedCache(c *cache.ResourceCache) ProviderOption {
	return func(o *providerOptions) { o.sharedCache = c }
}

// WithIntrinsicUniformBuffer hands the provider the caller-owned buffer
// holding the per-draw intrinsic uniforms. The provider keeps a reference
// for its lifetime and exposes the buffer through IntrinsicUniformBuffer;
// the caller retains ownership.
func WithIntrinsicUniformBuffer(b *Buffer) ProviderOption {
	return func(o *providerOptions) { o.intrinsicUniforms = b }
}

// WithLoadMSAAVertexBuffer hands the provider the caller-owned vertex
// buffer holding the fullscreen quad used by the MSAA load pipelines. The
// provider keeps a reference for its lifetime and exposes the buffer
// through LoadMSAAVertexBuffer; the caller retains ownership.
func WithLoadMSAAVertexBuffer(b *Buffer) ProviderOption {
	return func(o *providerOptions) { o.loadMSAAVertex = b }
}

// WithProtectedContext marks the provider as serving a protected memory
// context. Operations that allocate device memory first verify that the
// device supports protected memory.
func WithProtectedContext() ProviderOption {
	return func(o *providerOptions) { o.protected = true }
}

// BufferBinding names one uniform buffer bound by a descriptor set.
// Descriptors are always written at offset zero; per-draw offsets are
// supplied dynamically at bind time.
type BufferBinding struct {
	// Buffer is the bound buffer, or nil for an unused slot.
	Buffer *Buffer

	// Size is the bound range in bytes.
	Size uint64
}

// ResourceProvider creates and caches the device objects a recording
// needs: descriptor sets, render passes, pipelines, samplers and buffers.
//
// A provider has single-recorder affinity: all methods must be called from
// one goroutine at a time. The shared resource cache underneath is
// separately locked, so resources released on other goroutines are safe.
type ResourceProvider struct {
	dev   hal.Device
	cache *cache.ResourceCache

	// ownsCache is set when the cache is private to this provider. Close
	// releases a private cache; a shared one stays with its owner.
	ownsCache bool

	// bindGroups is the secondary cache of fully written uniform
	// descriptor sets, keyed by which buffers they bind. Entries hold one
	// reference each; eviction releases it.
	bindGroups *cache.LRU[string, *DescriptorSet]

	// pipelineCache is created lazily on first pipeline build. A nil
	// handle after a failed attempt is retried on the next build.
	pipelineCache hal.PipelineCache

	msaa msaaLoadObjects

	// intrinsicUniforms and loadMSAAVertex are caller-owned permanent
	// buffers the provider refers to but never destroys.
	intrinsicUniforms *Buffer
	loadMSAAVertex    *Buffer

	protected bool

	closed bool
}

// NewResourceProvider creates a provider on top of a device binding.
func NewResourceProvider(dev hal.Device, opts ...ProviderOption) *ResourceProvider {
	o := defaultProviderOptions()
	for _, opt := range opts {
		opt(&o)
	}
	p := &ResourceProvider{
		dev:               dev,
		cache:             o.sharedCache,
		intrinsicUniforms: o.intrinsicUniforms,
		loadMSAAVertex:    o.loadMSAAVertex,
		protected:         o.protected,
	}
	if p.cache == nil {
		p.cache = cache.NewResourceCache(o.budget)
		p.ownsCache = true
	}
	if p.intrinsicUniforms != nil {
		p.intrinsicUniforms.Ref()
	}
	if p.loadMSAAVertex != nil {
		p.loadMSAAVertex.Ref()
	}
	p.bindGroups = cache.NewLRU(o.bindGroupCacheSize, func(_ string, ds *DescriptorSet) {
		ds.Unref()
	})
	return p
}

// Device returns the underlying device binding.
func (p *ResourceProvider) Device() hal.Device { return p.dev }

// Cache returns the shared resource cache, for budget inspection and
// manual purging.
func (p *ResourceProvider) Cache() *cache.ResourceCache { return p.cache }

// IntrinsicUniformBuffer returns the caller-owned buffer holding the
// per-draw intrinsic uniforms, or nil if none was supplied.
func (p *ResourceProvider) IntrinsicUniformBuffer() *Buffer { return p.intrinsicUniforms }

// LoadMSAAVertexBuffer returns the caller-owned vertex buffer the MSAA
// load pipelines draw with, or nil if none was supplied.
func (p *ResourceProvider) LoadMSAAVertexBuffer() *Buffer { return p.loadMSAAVertex }

// checkProtected verifies that the device can back a protected context
// before any allocation is attempted. A no-op for unprotected providers.
func (p *ResourceProvider) checkProtected() error {
	if p.protected && !p.dev.Caps().ProtectedMemory {
		return ErrProtectedMemoryUnsupported
	}
	return nil
}

// FindOrCreateDescriptorSet returns a descriptor set matching the given
// bindings. Sets with the same bindings share one layout key; each call
// hands out an instance no other holder is using, allocating a fresh pool
// of MaxNumSets sets when none is free. Release the set with Unref.
func (p *ResourceProvider) FindOrCreateDescriptorSet(descs []DescriptorData) (*DescriptorSet, error) {
	if p.closed {
		return nil, ErrProviderClosed
	}
	if len(descs) == 0 {
		return nil, ErrNoDescriptors
	}

	key := descriptorSetKey(descs)
	if r := p.cache.FindAndRef(key); r != nil {
		return r.(*DescriptorSet), nil
	}

	pool, err := newDescriptorPool(p.dev, descs)
	if err != nil {
		return nil, err
	}
	// The sets keep the pool alive; drop the creation reference once all
	// allocations are done (or abandoned).
	defer pool.unref()

	first, err := pool.allocateSet()
	if err != nil {
		return nil, err
	}
	first.setKey(key)
	p.cache.Insert(first)

	// Fill the rest of the pool so subsequent lookups of this layout hit
	// the cache instead of allocating. A partial fill is not fatal; the
	// sets already allocated still serve.
	for i := 1; i < MaxNumSets; i++ {
		ds, err := pool.allocateSet()
		if err != nil {
			Logger().Warn("descriptor pool partially filled",
				"allocated", i, "max", MaxNumSets, "err", err)
			break
		}
		ds.setKey(key)
		p.cache.Insert(ds)
		ds.Unref()
	}
	return first, nil
}

// bindGroupCacheKey identifies a uniform descriptor set by the buffers it
// binds: one {buffer ID, binding size} pair per slot, zero for unused
// slots.
func bindGroupCacheKey(bindings []BufferBinding) string {
	b := cache.NewBuilder(bindGroupKeyType, cache.NotShareable)
	for i := range MaxUniformBuffers {
		if i < len(bindings) && bindings[i].Buffer != nil {
			b.PushUint32(uint32(bindings[i].Buffer.ID()))
			b.PushUint32(uint32(bindings[i].Size))
		} else {
			b.PushUint32(0)
			b.PushUint32(0)
		}
	}
	return b.Finish().Canonical()
}

// FindOrCreateUniformBuffersDescriptorSet returns a descriptor set with
// the given uniform buffers already written. Sets are cached by buffer
// identity, so re-binding the same buffers costs no descriptor writes.
// descs and bindings are parallel; a nil binding buffer leaves its slot
// unwritten. Release the set with Unref.
func (p *ResourceProvider) FindOrCreateUniformBuffersDescriptorSet(
	descs []DescriptorData, bindings []BufferBinding) (*DescriptorSet, error) {
	if p.closed {
		return nil, ErrProviderClosed
	}
	if len(descs) == 0 {
		return nil, ErrNoDescriptors
	}
	if len(bindings) > len(descs) {
		return nil, fmt.Errorf("vkres: %d buffer bindings for %d descriptors", len(bindings), len(descs))
	}

	maxRange := p.dev.Caps().MaxUniformBufferRange
	for i := range bindings {
		if bindings[i].Buffer == nil {
			continue
		}
		if descs[i].Type == hal.DescriptorTypeUniformBuffer && maxRange > 0 && bindings[i].Size > maxRange {
			return nil, fmt.Errorf("%w: binding %d size %d, limit %d",
				ErrBindingTooLarge, descs[i].Binding, bindings[i].Size, maxRange)
		}
	}

	key := bindGroupCacheKey(bindings)
	if ds, ok := p.bindGroups.Get(key); ok {
		ds.Ref()
		return ds, nil
	}

	ds, err := p.FindOrCreateDescriptorSet(descs)
	if err != nil {
		return nil, err
	}

	// One driver update call per binding. Batching all bindings into a
	// single call corrupts descriptor contents on some drivers, so each
	// slot is written individually.
	for i := range bindings {
		if bindings[i].Buffer == nil {
			continue
		}
		err := p.dev.UpdateBufferDescriptorSet(ds.Handle(), descs[i].Binding, descs[i].Type,
			descs[i].Count, bindings[i].Buffer.Handle(), 0, bindings[i].Size)
		if err != nil {
			ds.Unref()
			return nil, fmt.Errorf("vkres: write uniform descriptor %d: %w", descs[i].Binding, err)
		}
	}

	ds.Ref()
	p.bindGroups.Set(key, ds)
	return ds, nil
}

// FindOrCreateRenderPass returns a render pass for the described
// attachments. With compatibleOnly set, load and store operations are
// ignored and every layout-equal request shares one pass. Release with
// Unref.
func (p *ResourceProvider) FindOrCreateRenderPass(desc RenderPassDesc, compatibleOnly bool) (*RenderPass, error) {
	if p.closed {
		return nil, ErrProviderClosed
	}
	return p.findOrCreateRenderPassWithKey(desc, compatibleOnly, renderPassKey(desc, compatibleOnly))
}

// findOrCreateRenderPassWithKey is the shared lookup used when the caller
// has already built the key.
func (p *ResourceProvider) findOrCreateRenderPassWithKey(desc RenderPassDesc, compatibleOnly bool,
	key cache.Key) (*RenderPass, error) {
	if !desc.valid() {
		return nil, ErrInvalidRenderPass
	}

	if r := p.cache.FindAndRef(key); r != nil {
		return r.(*RenderPass), nil
	}

	info := hal.RenderPassCreateInfo{
		Color:          desc.Color,
		ColorResolve:   desc.ColorResolve,
		DepthStencil:   desc.DepthStencil,
		CompatibleOnly: compatibleOnly,
	}
	if compatibleOnly {
		for _, a := range []*hal.Attachment{&info.Color, &info.ColorResolve, &info.DepthStencil} {
			a.LoadOp = 0
			a.StoreOp = 0
		}
	}
	handle, err := p.dev.CreateRenderPass(info)
	if err != nil {
		return nil, fmt.Errorf("vkres: create render pass: %w", err)
	}

	rp := newRenderPass(p.dev, handle, compatibleOnly)
	rp.setKey(key)
	p.cache.Insert(rp)
	return rp, nil
}

// CreateGraphicsPipeline builds a graphics pipeline. Pipelines are not
// cached as resources; redundant compilation is absorbed by the driver
// pipeline cache instead. The caller owns the returned pipeline.
func (p *ResourceProvider) CreateGraphicsPipeline(desc GraphicsPipelineDesc) (*GraphicsPipeline, error) {
	if p.closed {
		return nil, ErrProviderClosed
	}

	rp, err := p.FindOrCreateRenderPass(desc.RenderPass, true)
	if err != nil {
		return nil, err
	}

	bindings := make([]hal.DescriptorSetLayoutBinding, len(desc.Bindings))
	for i, d := range desc.Bindings {
		bindings[i] = hal.DescriptorSetLayoutBinding{Binding: d.Binding, Type: d.Type, Count: d.Count}
	}
	setLayout, err := p.dev.CreateDescriptorSetLayout(bindings)
	if err != nil {
		rp.Unref()
		return nil, fmt.Errorf("vkres: create descriptor set layout: %w", err)
	}

	layout, err := p.dev.CreatePipelineLayout([]hal.DescriptorSetLayout{setLayout})
	// The set layout is only needed for pipeline layout creation.
	p.dev.DestroyDescriptorSetLayout(setLayout)
	if err != nil {
		rp.Unref()
		return nil, fmt.Errorf("vkres: create pipeline layout: %w", err)
	}

	info := hal.GraphicsPipelineCreateInfo{
		Label:              desc.Label,
		VertexShader:       desc.VertexShader,
		VertexEntryPoint:   desc.VertexEntryPoint,
		FragmentShader:     desc.FragmentShader,
		FragmentEntryPoint: desc.FragmentEntryPoint,
		Layout:             layout,
		RenderPass:         rp.Handle(),
		SampleCount:        desc.SampleCount,
		VertexStride:       desc.VertexStride,
		VertexAttributes:   desc.VertexAttributes,
	}
	handle, err := p.dev.CreateGraphicsPipeline(info, p.pipelineCacheHandle())
	if err != nil {
		p.dev.DestroyPipelineLayout(layout)
		rp.Unref()
		return nil, fmt.Errorf("vkres: create graphics pipeline: %w", err)
	}

	// The pipeline adopts the render pass reference and the layout.
	return newGraphicsPipeline(p.dev, handle, layout, true, rp), nil
}

// CreateComputePipeline reports that compute pipelines are unsupported.
// The provider serves a rasterization backend only.
func (p *ResourceProvider) CreateComputePipeline(ComputePipelineDesc) (*ComputePipeline, error) {
	if p.closed {
		return nil, ErrProviderClosed
	}
	return nil, ErrComputePipelinesUnsupported
}

// FindOrCreateSampler returns a sampler for the description, creating the
// sampler's format conversion first when one is requested. Release with
// Unref.
func (p *ResourceProvider) FindOrCreateSampler(desc SamplerDesc) (*Sampler, error) {
	if p.closed {
		return nil, ErrProviderClosed
	}

	hasConv := desc.Ycbcr != (hal.YcbcrConversionInfo{})
	if hasConv && !desc.Ycbcr.Valid() {
		return nil, ErrInvalidYcbcrConversion
	}

	key := samplerKey(desc)
	if r := p.cache.FindAndRef(key); r != nil {
		return r.(*Sampler), nil
	}

	var conv *YcbcrConversion
	var convHandle hal.YcbcrConversion
	if hasConv {
		var err error
		conv, err = p.FindOrCreateYcbcrConversion(desc.Ycbcr)
		if err != nil {
			return nil, err
		}
		convHandle = conv.Handle()
	}

	handle, err := p.dev.CreateSampler(desc.halInfo(), convHandle)
	if err != nil {
		if conv != nil {
			conv.Unref()
		}
		return nil, fmt.Errorf("vkres: create sampler: %w", err)
	}

	// The sampler adopts the conversion reference.
	s := newSampler(p.dev, handle, conv)
	s.setKey(key)
	p.cache.Insert(s)
	return s, nil
}

// FindOrCreateYcbcrConversion returns the shared format conversion for the
// given description. Release with Unref.
func (p *ResourceProvider) FindOrCreateYcbcrConversion(info hal.YcbcrConversionInfo) (*YcbcrConversion, error) {
	if p.closed {
		return nil, ErrProviderClosed
	}
	if !info.Valid() {
		return nil, ErrInvalidYcbcrConversion
	}

	key := ycbcrKey(info)
	if r := p.cache.FindAndRef(key); r != nil {
		return r.(*YcbcrConversion), nil
	}

	handle, err := p.dev.CreateYcbcrConversion(info)
	if err != nil {
		return nil, fmt.Errorf("vkres: create ycbcr conversion: %w", err)
	}

	c := newYcbcrConversion(p.dev, handle)
	c.setKey(key)
	p.cache.Insert(c)
	return c, nil
}

// CreateBuffer creates an uncached device buffer. The caller owns it.
func (p *ResourceProvider) CreateBuffer(size uint64, usage gputypes.BufferUsage) (*Buffer, error) {
	if p.closed {
		return nil, ErrProviderClosed
	}
	if err := p.checkProtected(); err != nil {
		return nil, err
	}
	handle, err := p.dev.CreateBuffer(size, usage)
	if err != nil {
		return nil, fmt.Errorf("vkres: create buffer: %w", err)
	}
	return newBuffer(p.dev, handle, size, usage), nil
}

// CreateFramebuffer creates an uncached framebuffer over a render pass.
// The caller owns it.
//
// TODO: cache framebuffers by target identity once render targets carry
// stable IDs, so re-rendering to the same target skips recreation.
func (p *ResourceProvider) CreateFramebuffer(rp *RenderPass, attachments []hal.ImageView,
	width, height uint32) (*Framebuffer, error) {
	if p.closed {
		return nil, ErrProviderClosed
	}
	if rp == nil {
		return nil, ErrInvalidRenderPass
	}
	if err := p.checkProtected(); err != nil {
		return nil, err
	}
	handle, err := p.dev.CreateFramebuffer(rp.Handle(), attachments, width, height)
	if err != nil {
		return nil, fmt.Errorf("vkres: create framebuffer: %w", err)
	}
	return newFramebuffer(p.dev, handle, width, height), nil
}

// pipelineCacheHandle returns the lazily created driver pipeline cache,
// or nil if creation keeps failing. Pipeline builds proceed uncached in
// that case; the next build retries.
func (p *ResourceProvider) pipelineCacheHandle() hal.PipelineCache {
	if p.pipelineCache != nil {
		return p.pipelineCache
	}
	pc, err := p.dev.CreatePipelineCache()
	if err != nil {
		Logger().Warn("pipeline cache unavailable", "err", err)
		return nil
	}
	p.pipelineCache = pc
	return pc
}

// PurgeResources drops every cached object not currently in use: the
// bind-group cache releases its sets and the shared cache destroys all
// idle resources.
func (p *ResourceProvider) PurgeResources() {
	p.bindGroups.Clear()
	p.cache.PurgeIdle()
}

// Close tears down everything the provider owns: the bind-group cache,
// the MSAA load objects and the driver pipeline cache. A private resource
// cache is released too; a shared one and its contents stay with its
// owner. The permanent buffers go back to the caller. Resources still
// referenced by callers stay alive until their last Unref. Close is
// idempotent.
func (p *ResourceProvider) Close() {
	if p.closed {
		return
	}
	p.closed = true

	p.bindGroups.Clear()
	p.msaa.teardown(p.dev)

	if p.pipelineCache != nil {
		p.dev.DestroyPipelineCache(p.pipelineCache)
		p.pipelineCache = nil
	}

	if p.intrinsicUniforms != nil {
		p.intrinsicUniforms.Unref()
		p.intrinsicUniforms = nil
	}
	if p.loadMSAAVertex != nil {
		p.loadMSAAVertex.Unref()
		p.loadMSAAVertex = nil
	}

	if p.ownsCache {
		p.cache.ReleaseAll()
	}
}
