// Package bitmap implements the 128-bit free-block map used by the block
// filesystem's superblock. Bit i corresponds to block i; the underlying byte
// layout is MSB-first within each byte. Storage is a github.com/boljen/go-bitmap
// byte slice, but Get/Set/Clear compute the MSB-first position themselves
// rather than using the library's own bit order, so the in-memory bitmap can
// be serialized to disk with no transposition.
package bitmap

import (
	"fmt"

	"github.com/boljen/go-bitmap"
)

// NumBlocks is the total number of blocks tracked by the map, including the
// reserved block 0.
const NumBlocks = 128

// SizeBytes is the on-disk size of the free-block list.
const SizeBytes = NumBlocks / 8

// Bitmap is a 128-bit free-block map, one bit per block.
type Bitmap struct {
	bits bitmap.Bitmap
}

// New creates an all-clear bitmap.
func New() Bitmap {
	return Bitmap{bits: bitmap.New(NumBlocks)}
}

// FromBytes wraps an existing 16-byte free-block list without copying it;
// mutations made through the returned Bitmap are visible in raw.
func FromBytes(raw []byte) (Bitmap, error) {
	if len(raw) != SizeBytes {
		return Bitmap{}, fmt.Errorf(
			"free-block list must be %d bytes, got %d", SizeBytes, len(raw))
	}
	return Bitmap{bits: bitmap.Bitmap(raw)}, nil
}

// Bytes returns the backing 16-byte slice. It aliases the Bitmap's storage.
func (b Bitmap) Bytes() []byte {
	return []byte(b.bits)
}

// Get, Set and Clear address bit i as byte i/8, mask 0x80>>(i%8), so block 0
// is the most significant bit of byte 0.
func (b Bitmap) Get(i int) bool {
	return b.bits[i/8]&(0x80>>uint(i%8)) != 0
}

func (b Bitmap) Set(i int) {
	b.bits[i/8] |= 0x80 >> uint(i%8)
}

func (b Bitmap) Clear(i int) {
	b.bits[i/8] &^= 0x80 >> uint(i%8)
}

// FindRun returns the lowest block index b such that blocks [b, b+length)
// are all clear, and b+length <= NumBlocks. ok is false if no such run
// exists. The scan is linear and first-fit, matching the teacher's
// Allocator.findRun/BlockManager.findRun.
func (b Bitmap) FindRun(length int) (start int, ok bool) {
	runLength := 0
	runStart := 0

	for i := 0; i < NumBlocks; i++ {
		if b.Get(i) {
			runLength = 0
			continue
		}

		if runLength == 0 {
			runStart = i
		}
		runLength++
		if runLength == length {
			return runStart, true
		}
	}
	return 0, false
}

// FindRunExcluding behaves like FindRun but treats the blocks in
// [selfStart, selfStart+selfLength) as clear regardless of their actual
// state. This lets resize-grow and defrag ask "is there room for me,
// ignoring the space I already occupy" without allocating a scratch bitmap.
func (b Bitmap) FindRunExcluding(length, selfStart, selfLength int) (start int, ok bool) {
	runLength := 0
	runStart := 0
	selfEnd := selfStart + selfLength

	for i := 0; i < NumBlocks; i++ {
		free := !b.Get(i) || (i >= selfStart && i < selfEnd)
		if !free {
			runLength = 0
			continue
		}

		if runLength == 0 {
			runStart = i
		}
		runLength++
		if runLength == length {
			return runStart, true
		}
	}
	return 0, false
}
