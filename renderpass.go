package vkres

import (
	"github.com/gogpu/vkres/cache"
	"github.com/gogpu/vkres/hal"
)

// renderPassKeyType tags cache keys for render passes. Render passes are
// immutable once created, so they are shared by every holder.
var renderPassKeyType = cache.NextKeyType()

// RenderPassDesc describes the attachment set of a render pass request.
// Absent attachments stay zero.
type RenderPassDesc struct {
	Color        hal.Attachment
	ColorResolve hal.Attachment
	DepthStencil hal.Attachment
}

func (d RenderPassDesc) valid() bool {
	return d.Color.Valid() || d.ColorResolve.Valid() || d.DepthStencil.Valid()
}

// renderPassKey builds the shared key for a render pass. A compatible-only
// pass ignores load/store operations, so those fields are zeroed out of the
// key and every full pass with the same attachment layout maps to the same
// compatible pass.
func renderPassKey(desc RenderPassDesc, compatibleOnly bool) cache.Key {
	b := cache.NewBuilder(renderPassKeyType, cache.Shared)
	b.PushBool(compatibleOnly)
	for _, a := range []hal.Attachment{desc.Color, desc.ColorResolve, desc.DepthStencil} {
		b.PushBool(a.Valid())
		b.PushUint32(uint32(a.Format))
		b.PushUint32(a.SampleCount)
		if compatibleOnly {
			b.PushUint8(0)
			b.PushUint8(0)
		} else {
			b.PushUint8(uint8(a.LoadOp))
			b.PushUint8(uint8(a.StoreOp))
		}
	}
	return b.Finish()
}
