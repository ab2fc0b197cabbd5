package cache

import "testing"

func TestNextKeyTypeUnique(t *testing.T) {
	a := NextKeyType()
	b := NextKeyType()
	if a == b {
		t.Fatalf("expected distinct key types, got %d twice", a)
	}
}

func TestBuilderDeterminism(t *testing.T) {
	typ := NextKeyType()
	build := func() Key {
		b := NewBuilder(typ, NotShareable)
		b.PushUint32(3)
		b.PushUint8(1)
		b.PushUint8(2)
		b.PushUint16(7)
		return b.Finish()
	}

	k1 := build()
	k2 := build()
	if !k1.Equal(k2) {
		t.Error("identical push sequences should produce equal keys")
	}
	if k1.Canonical() != k2.Canonical() {
		t.Error("canonical forms should be byte-identical")
	}
}

func TestBuilderOrderMatters(t *testing.T) {
	typ := NextKeyType()

	b1 := NewBuilder(typ, Shared)
	b1.PushUint8(1)
	b1.PushUint8(2)
	k1 := b1.Finish()

	b2 := NewBuilder(typ, Shared)
	b2.PushUint8(2)
	b2.PushUint8(1)
	k2 := b2.Finish()

	if k1.Equal(k2) {
		t.Error("field order must be significant")
	}
}

func TestBuilderWordPacking(t *testing.T) {
	// An 8+8+16 push sequence must pack MSB-first into one word:
	// {kind:8, binding:8, count:16}.
	b := NewBuilder(NextKeyType(), NotShareable)
	b.PushUint32(1)
	b.PushUint8(0xAB)
	b.PushUint8(0x03)
	b.PushUint16(0x0010)
	k := b.Finish()

	words := k.Words()
	if len(words) != 2 {
		t.Fatalf("expected 2 words, got %d", len(words))
	}
	if words[0] != 1 {
		t.Errorf("word 0: expected element count 1, got %#x", words[0])
	}
	want := uint32(0xAB)<<24 | uint32(0x03)<<16 | uint32(0x0010)
	if words[1] != want {
		t.Errorf("word 1: expected %#x, got %#x", want, words[1])
	}
}

func TestBuilderPartialWordFlush(t *testing.T) {
	// A partial word is flushed left-aligned before a full-word push.
	b := NewBuilder(NextKeyType(), Shared)
	b.PushUint8(0xFF)
	b.PushUint32(42)
	k := b.Finish()

	words := k.Words()
	if len(words) != 2 {
		t.Fatalf("expected 2 words, got %d", len(words))
	}
	if words[0] != 0xFF000000 {
		t.Errorf("expected left-aligned partial word 0xFF000000, got %#x", words[0])
	}
	if words[1] != 42 {
		t.Errorf("expected 42, got %d", words[1])
	}
}

func TestBuilderPushBool(t *testing.T) {
	b1 := NewBuilder(1, Shared)
	b1.PushBool(true)
	b1.PushUint32(9)
	k1 := b1.Finish()

	b2 := NewBuilder(1, Shared)
	b2.PushBool(false)
	b2.PushUint32(9)
	k2 := b2.Finish()

	if k1.Equal(k2) {
		t.Error("a single flag bit must distinguish keys")
	}
}

func TestKeyTypeDistinguishesKeys(t *testing.T) {
	t1, t2 := NextKeyType(), NextKeyType()

	b1 := NewBuilder(t1, Shared)
	b1.PushUint32(5)
	k1 := b1.Finish()

	b2 := NewBuilder(t2, Shared)
	b2.PushUint32(5)
	k2 := b2.Finish()

	if k1.Equal(k2) {
		t.Error("same words under different type tags must not collide")
	}
}

func TestZeroKeyInvalid(t *testing.T) {
	var k Key
	if k.Valid() {
		t.Error("zero key should be invalid")
	}
	b := NewBuilder(NextKeyType(), Shared)
	b.PushUint32(0)
	if !b.Finish().Valid() {
		t.Error("built key should be valid")
	}
}
