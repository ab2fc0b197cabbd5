package vkres

import (
	"sync/atomic"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/vkres/cache"
	"github.com/gogpu/vkres/hal"
)

// UniqueID identifies a resource instance for the lifetime of the process.
// IDs are never reused, so a stale ID can never alias a live resource.
type UniqueID uint64

var uniqueIDCounter atomic.Uint64

func nextUniqueID() UniqueID {
	return UniqueID(uniqueIDCounter.Add(1))
}

// resource is the shared ref-counting core embedded by every provider
// resource. A resource starts with one reference owned by its creator;
// when the count reaches zero the release hook destroys the native object.
//
// The count is atomic so holders on different goroutines can release
// independently, but the release hook itself runs exactly once.
type resource struct {
	refs    atomic.Int32
	key     cache.Key
	size    uint64
	id      UniqueID
	release func()
}

func (r *resource) init(size uint64, release func()) {
	r.size = size
	r.id = nextUniqueID()
	r.release = release
	r.refs.Store(1)
}

// Ref adds a reference.
func (r *resource) Ref() { r.refs.Add(1) }

// Unref drops a reference. The last Unref destroys the native object.
func (r *resource) Unref() {
	n := r.refs.Add(-1)
	if n == 0 {
		if r.release != nil {
			r.release()
		}
		return
	}
	if n < 0 {
		panic("vkres: resource ref count went negative")
	}
}

// RefCount returns the current reference count.
func (r *resource) RefCount() int32 { return r.refs.Load() }

// Key returns the cache key, or the zero key if the resource was never
// inserted into a cache.
func (r *resource) Key() cache.Key { return r.key }

func (r *resource) setKey(k cache.Key) { r.key = k }

// Size returns the resource's budget contribution in bytes.
func (r *resource) Size() uint64 { return r.size }

// ID returns the process-unique resource identifier.
func (r *resource) ID() UniqueID { return r.id }

// Buffer wraps a device buffer.
type Buffer struct {
	resource
	handle hal.Buffer
	usage  gputypes.BufferUsage
}

func newBuffer(dev hal.Device, handle hal.Buffer, size uint64, usage gputypes.BufferUsage) *Buffer {
	b := &Buffer{handle: handle, usage: usage}
	b.init(size, func() { dev.DestroyBuffer(handle) })
	return b
}

// Handle returns the native buffer handle.
func (b *Buffer) Handle() hal.Buffer { return b.handle }

// Usage returns the buffer's usage flags.
func (b *Buffer) Usage() gputypes.BufferUsage { return b.usage }

// RenderPass wraps a device render pass. A compatible-only pass carries
// layout information without load/store operations and is sufficient for
// pipeline creation.
type RenderPass struct {
	resource
	handle         hal.RenderPass
	compatibleOnly bool
}

func newRenderPass(dev hal.Device, handle hal.RenderPass, compatibleOnly bool) *RenderPass {
	rp := &RenderPass{handle: handle, compatibleOnly: compatibleOnly}
	rp.init(0, func() { dev.DestroyRenderPass(handle) })
	return rp
}

// Handle returns the native render pass handle.
func (rp *RenderPass) Handle() hal.RenderPass { return rp.handle }

// CompatibleOnly reports whether the pass carries layout information only.
func (rp *RenderPass) CompatibleOnly() bool { return rp.compatibleOnly }

// YcbcrConversion wraps an immutable sampler format conversion. Samplers
// built with a conversion hold a reference to it, so a conversion outlives
// every sampler that uses it.
type YcbcrConversion struct {
	resource
	handle hal.YcbcrConversion
}

func newYcbcrConversion(dev hal.Device, handle hal.YcbcrConversion) *YcbcrConversion {
	c := &YcbcrConversion{handle: handle}
	c.init(0, func() { dev.DestroyYcbcrConversion(handle) })
	return c
}

// Handle returns the native conversion handle.
func (c *YcbcrConversion) Handle() hal.YcbcrConversion { return c.handle }

// Sampler wraps a device sampler, together with the format conversion it
// was created against (nil for ordinary samplers).
type Sampler struct {
	resource
	handle hal.Sampler
	conv   *YcbcrConversion
}

func newSampler(dev hal.Device, handle hal.Sampler, conv *YcbcrConversion) *Sampler {
	s := &Sampler{handle: handle, conv: conv}
	s.init(0, func() {
		dev.DestroySampler(handle)
		if conv != nil {
			conv.Unref()
		}
	})
	return s
}

// Handle returns the native sampler handle.
func (s *Sampler) Handle() hal.Sampler { return s.handle }

// Conversion returns the sampler's format conversion, or nil.
func (s *Sampler) Conversion() *YcbcrConversion { return s.conv }

// GraphicsPipeline wraps a device graphics pipeline. The pipeline keeps
// the render pass it was built against alive and, unless it was built on a
// shared layout, owns its pipeline layout.
type GraphicsPipeline struct {
	resource
	handle     hal.Pipeline
	layout     hal.PipelineLayout
	ownsLayout bool
	rp         *RenderPass
}

func newGraphicsPipeline(dev hal.Device, handle hal.Pipeline, layout hal.PipelineLayout,
	ownsLayout bool, rp *RenderPass) *GraphicsPipeline {
	p := &GraphicsPipeline{handle: handle, layout: layout, ownsLayout: ownsLayout, rp: rp}
	p.init(0, func() {
		dev.DestroyPipeline(handle)
		if ownsLayout {
			dev.DestroyPipelineLayout(layout)
		}
		if rp != nil {
			rp.Unref()
		}
	})
	return p
}

// Handle returns the native pipeline handle.
func (p *GraphicsPipeline) Handle() hal.Pipeline { return p.handle }

// Layout returns the pipeline layout the pipeline was built with.
func (p *GraphicsPipeline) Layout() hal.PipelineLayout { return p.layout }

// ComputePipeline is the compute pipeline resource type. The provider
// never constructs one; CreateComputePipeline reports
// ErrComputePipelinesUnsupported.
type ComputePipeline struct {
	resource
	handle hal.Pipeline
}

// Framebuffer wraps a device framebuffer.
type Framebuffer struct {
	resource
	handle        hal.Framebuffer
	width, height uint32
}

func newFramebuffer(dev hal.Device, handle hal.Framebuffer, width, height uint32) *Framebuffer {
	fb := &Framebuffer{handle: handle, width: width, height: height}
	fb.init(0, func() { dev.DestroyFramebuffer(handle) })
	return fb
}

// Handle returns the native framebuffer handle.
func (fb *Framebuffer) Handle() hal.Framebuffer { return fb.handle }

// Dimensions returns the framebuffer extent.
func (fb *Framebuffer) Dimensions() (width, height uint32) { return fb.width, fb.height }
