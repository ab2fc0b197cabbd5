package vkres

import (
	"testing"

	"github.com/gogpu/vkres/hal"
)

func TestDescriptorSetKeyLayout(t *testing.T) {
	key := descriptorSetKey([]DescriptorData{
		{Type: hal.DescriptorTypeCombinedTextureSampler, Binding: 3, Count: 16},
	})

	words := key.Words()
	if len(words) != 2 {
		t.Fatalf("expected count word + one packed word, got %d words", len(words))
	}
	if words[0] != 1 {
		t.Errorf("word 0 is the binding count, got %#x", words[0])
	}
	want := uint32(hal.DescriptorTypeCombinedTextureSampler)<<24 | uint32(3)<<16 | uint32(16)
	if words[1] != want {
		t.Errorf("expected packed binding %#x, got %#x", want, words[1])
	}
	if key.Shareable() {
		t.Error("descriptor set keys are never shareable")
	}
}

func TestDescriptorSetKeyOrderAndContent(t *testing.T) {
	a := descriptorSetKey(uniformDescs())
	b := descriptorSetKey(uniformDescs())
	if !a.Equal(b) {
		t.Error("identical layouts must share one key")
	}

	reversed := uniformDescs()
	reversed[0], reversed[2] = reversed[2], reversed[0]
	if a.Equal(descriptorSetKey(reversed)) {
		t.Error("binding order is part of the key")
	}

	texture := uniformDescs()
	texture[1].Type = hal.DescriptorTypeTexture
	if a.Equal(descriptorSetKey(texture)) {
		t.Error("descriptor type is part of the key")
	}
}

func TestBindGroupCacheKeyZeroFills(t *testing.T) {
	dev := newFakeDevice()
	p := NewResourceProvider(dev)
	defer p.Close()

	b1, _ := p.CreateBuffer(64, 0)
	defer b1.Unref()

	one := bindGroupCacheKey([]BufferBinding{{Buffer: b1, Size: 32}})
	padded := bindGroupCacheKey([]BufferBinding{{Buffer: b1, Size: 32}, {}, {}})
	if one != padded {
		t.Error("missing slots must key identically to explicit empty slots")
	}

	resized := bindGroupCacheKey([]BufferBinding{{Buffer: b1, Size: 16}})
	if one == resized {
		t.Error("binding size is part of the key")
	}
}
