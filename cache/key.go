// Package cache provides the caching primitives used by vkres: structural
// resource keys and a budgeted, reference-counted resource cache.
//
// Keys are built from typed field pushes and are byte-exact: two resource
// descriptions with the same fields pushed in the same order produce
// identical keys, and any difference in content or order produces different
// keys. This determinism is what makes keys safe to use for equality-based
// deduplication (as opposed to hashing, which could collide).
package cache

import (
	"encoding/binary"
	"sync/atomic"
)

// KeyType tags a key with the kind of resource it describes, so that keys
// for different resource kinds can never collide even when their word
// sequences happen to match.
type KeyType uint32

// keyTypeCounter generates process-unique key types.
var keyTypeCounter atomic.Uint32

// NextKeyType returns a new process-unique key type. Each resource kind
// calls this once at package init.
func NextKeyType() KeyType {
	return KeyType(keyTypeCounter.Add(1))
}

// Shareable controls how many holders may receive the same cached instance.
type Shareable bool

const (
	// NotShareable keys form a multiset: multiple distinct instances may be
	// stored under one key value, and a lookup only returns an instance that
	// no external holder currently references. Used for pool members such as
	// descriptor sets.
	NotShareable Shareable = false

	// Shared keys return the same instance to any number of holders.
	Shared Shareable = true
)

// Key is an immutable structural resource key: a type tag plus an ordered
// sequence of 32-bit words. The zero Key is invalid.
type Key struct {
	typ       KeyType
	shareable Shareable
	words     []uint32
	str       string
}

// Type returns the key's resource type tag.
func (k Key) Type() KeyType { return k.typ }

// Shareable reports whether any number of holders may share one cached
// instance under this key.
func (k Key) Shareable() bool { return bool(k.shareable) }

// Valid reports whether the key was produced by a Builder.
func (k Key) Valid() bool { return k.str != "" }

// Words returns the key's 32-bit words. The returned slice must not be
// modified.
func (k Key) Words() []uint32 { return k.words }

// Canonical returns the key's canonical byte form as a string, suitable for
// map keying. Two keys are equal exactly when their canonical forms are.
func (k Key) Canonical() string { return k.str }

// Equal reports whether two keys are byte-identical.
func (k Key) Equal(o Key) bool { return k.str == o.str }

// Builder assembles a Key from typed field pushes. Fields are packed
// MSB-first into 32-bit words in push order; a partially filled word is
// flushed (left-aligned, zero-padded) before any full-word push and on
// Finish. The zero Builder is not usable; call NewBuilder.
type Builder struct {
	typ       KeyType
	shareable Shareable
	words     []uint32
	cur       uint32
	curBits   uint
}

// NewBuilder creates a key builder for the given resource type tag.
func NewBuilder(typ KeyType, shareable Shareable) *Builder {
	return &Builder{typ: typ, shareable: shareable}
}

// PushUint32 appends a full 32-bit word.
func (b *Builder) PushUint32(v uint32) {
	b.flush()
	b.words = append(b.words, v)
}

// PushUint16 packs a 16-bit field into the current word.
func (b *Builder) PushUint16(v uint16) { b.push(16, uint32(v)) }

// PushUint8 packs an 8-bit field into the current word.
func (b *Builder) PushUint8(v uint8) { b.push(8, uint32(v)) }

// PushBool packs a single bit into the current word.
func (b *Builder) PushBool(v bool) {
	var bit uint32
	if v {
		bit = 1
	}
	b.push(1, bit)
}

// push packs the low `bits` bits of v into the accumulator, flushing first
// if the field would straddle a word boundary.
func (b *Builder) push(bits uint, v uint32) {
	if b.curBits+bits > 32 {
		b.flush()
	}
	b.cur = b.cur<<bits | v
	b.curBits += bits
	if b.curBits == 32 {
		b.words = append(b.words, b.cur)
		b.cur = 0
		b.curBits = 0
	}
}

// flush emits a partially filled word, left-aligned.
func (b *Builder) flush() {
	if b.curBits == 0 {
		return
	}
	b.words = append(b.words, b.cur<<(32-b.curBits))
	b.cur = 0
	b.curBits = 0
}

// Finish seals the builder and returns the completed key. The builder must
// not be reused afterwards.
func (b *Builder) Finish() Key {
	b.flush()
	buf := make([]byte, 0, 5+4*len(b.words))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(b.typ))
	if b.shareable {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	for _, w := range b.words {
		buf = binary.LittleEndian.AppendUint32(buf, w)
	}
	return Key{
		typ:       b.typ,
		shareable: b.shareable,
		words:     b.words,
		str:       string(buf),
	}
}
