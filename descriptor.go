package vkres

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/vkres/cache"
	"github.com/gogpu/vkres/hal"
)

// MaxNumSets is how many descriptor sets a single pool serves. Allocating
// the whole pool up front amortizes pool creation across MaxNumSets
// lookups of the same layout.
const MaxNumSets = 512

// descriptorSetKeyType tags cache keys for descriptor sets. Sets are
// never shareable: a set handed to one recording cannot be rewritten by
// another holder.
var descriptorSetKeyType = cache.NextKeyType()

// DescriptorData describes one binding slot of a requested descriptor set.
type DescriptorData struct {
	// Type is the descriptor kind at this slot.
	Type hal.DescriptorType

	// Binding is the slot index within the set.
	Binding uint32

	// Count is the number of descriptors in the slot.
	Count uint32
}

// descriptorSetKey builds the shared key for every set with this layout.
// One word of element count, then one packed word per binding:
// {kind:8, binding:8, count:16}.
func descriptorSetKey(descs []DescriptorData) cache.Key {
	b := cache.NewBuilder(descriptorSetKeyType, cache.NotShareable)
	b.PushUint32(uint32(len(descs)))
	for _, d := range descs {
		b.PushUint8(uint8(d.Type))
		b.PushUint8(uint8(d.Binding))
		b.PushUint16(uint16(d.Count))
	}
	return b.Finish()
}

// descriptorPool owns one driver pool and the set layout its sets were
// allocated against. Individual sets are never freed back; the pool is
// destroyed once every set allocated from it has been released.
type descriptorPool struct {
	refs   atomic.Int32
	dev    hal.Device
	pool   hal.DescriptorPool
	layout hal.DescriptorSetLayout
}

// newDescriptorPool creates a set layout and a pool sized for MaxNumSets
// sets of that layout. The returned pool carries one reference owned by
// the caller.
func newDescriptorPool(dev hal.Device, descs []DescriptorData) (*descriptorPool, error) {
	bindings := make([]hal.DescriptorSetLayoutBinding, len(descs))
	for i, d := range descs {
		bindings[i] = hal.DescriptorSetLayoutBinding{
			Binding: d.Binding,
			Type:    d.Type,
			Count:   d.Count,
		}
	}
	layout, err := dev.CreateDescriptorSetLayout(bindings)
	if err != nil {
		return nil, fmt.Errorf("vkres: create descriptor set layout: %w", err)
	}

	sizes := make([]hal.DescriptorPoolSize, len(descs))
	for i, d := range descs {
		sizes[i] = hal.DescriptorPoolSize{
			Type:  d.Type,
			Count: d.Count * MaxNumSets,
		}
	}
	pool, err := dev.CreateDescriptorPool(sizes, MaxNumSets)
	if err != nil {
		dev.DestroyDescriptorSetLayout(layout)
		return nil, fmt.Errorf("vkres: create descriptor pool: %w", err)
	}

	p := &descriptorPool{dev: dev, pool: pool, layout: layout}
	p.refs.Store(1)
	return p, nil
}

func (p *descriptorPool) ref() { p.refs.Add(1) }

func (p *descriptorPool) unref() {
	n := p.refs.Add(-1)
	if n == 0 {
		p.dev.DestroyDescriptorPool(p.pool)
		p.dev.DestroyDescriptorSetLayout(p.layout)
		return
	}
	if n < 0 {
		panic("vkres: descriptor pool ref count went negative")
	}
}

// allocateSet allocates one set from the pool and wraps it. The wrapper
// refs the pool; destroying the last set (and dropping the provider's
// pool reference) destroys the pool.
func (p *descriptorPool) allocateSet() (*DescriptorSet, error) {
	handle, err := p.dev.AllocateDescriptorSet(p.pool, p.layout)
	if err != nil {
		return nil, fmt.Errorf("vkres: allocate descriptor set: %w", err)
	}
	p.ref()
	ds := &DescriptorSet{handle: handle, pool: p}
	ds.init(0, func() { p.unref() })
	return ds, nil
}

// DescriptorSet wraps one allocated descriptor set. Sets are reclaimed by
// destroying their pool, so a set's release only drops its pool reference.
type DescriptorSet struct {
	resource
	handle hal.DescriptorSet
	pool   *descriptorPool
}

// Handle returns the native descriptor set handle.
func (ds *DescriptorSet) Handle() hal.DescriptorSet { return ds.handle }
