package vkres

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/vkres/cache"
	"github.com/gogpu/vkres/hal"
)

// samplerKeyType and ycbcrKeyType tag cache keys for samplers and their
// format conversions. Both are immutable, so both are shared.
var (
	samplerKeyType = cache.NextKeyType()
	ycbcrKeyType   = cache.NextKeyType()
)

// SamplerDesc describes a sampler request. A zero Ycbcr means no format
// conversion; a non-zero Ycbcr makes the provider find or create the
// matching conversion and bind the sampler to it permanently.
type SamplerDesc struct {
	MagFilter    gputypes.FilterMode
	MinFilter    gputypes.FilterMode
	AddressModeU gputypes.AddressMode
	AddressModeV gputypes.AddressMode
	Ycbcr        hal.YcbcrConversionInfo
}

func (d SamplerDesc) halInfo() hal.SamplerCreateInfo {
	return hal.SamplerCreateInfo{
		MagFilter:    d.MagFilter,
		MinFilter:    d.MinFilter,
		AddressModeU: d.AddressModeU,
		AddressModeV: d.AddressModeV,
	}
}

// pushYcbcr appends the conversion description to a key builder. Called
// for both the conversion's own key and the enclosing sampler key, so two
// samplers differing only in conversion settings never collide.
func pushYcbcr(b *cache.Builder, info hal.YcbcrConversionInfo) {
	b.PushUint32(uint32(info.Format))
	b.PushUint32(uint32(info.ExternalFormat))
	b.PushUint32(uint32(info.ExternalFormat >> 32))
	b.PushUint32(info.Model)
	b.PushUint32(info.Range)
	b.PushUint32(info.XChromaOffset)
	b.PushUint32(info.YChromaOffset)
	b.PushUint8(uint8(info.ChromaFilter))
	b.PushBool(info.ForceExplicitReconstruction)
}

func ycbcrKey(info hal.YcbcrConversionInfo) cache.Key {
	b := cache.NewBuilder(ycbcrKeyType, cache.Shared)
	pushYcbcr(b, info)
	return b.Finish()
}

func samplerKey(desc SamplerDesc) cache.Key {
	b := cache.NewBuilder(samplerKeyType, cache.Shared)
	b.PushUint8(uint8(desc.MagFilter))
	b.PushUint8(uint8(desc.MinFilter))
	b.PushUint8(uint8(desc.AddressModeU))
	b.PushUint8(uint8(desc.AddressModeV))
	hasConv := desc.Ycbcr != (hal.YcbcrConversionInfo{})
	b.PushBool(hasConv)
	if hasConv {
		pushYcbcr(b, desc.Ycbcr)
	}
	return b.Finish()
}
