package blockmgr

import (
	"testing"

	"github.com/dargueta/blockfs/image"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateMarksBitsAndReturnsStart(t *testing.T) {
	img := image.New()
	start, err := Allocate(img, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, start)
	for b := 1; b <= 3; b++ {
		assert.True(t, img.Bitmap().Get(b))
	}
	assert.False(t, img.Bitmap().Get(4))
}

func TestAllocateFailsWhenNoSpace(t *testing.T) {
	img := image.New()
	for b := 1; b < 128; b++ {
		img.Bitmap().Set(b)
	}
	_, err := Allocate(img, 1)
	assert.Error(t, err)
}

func TestFreeClearsBitsAndZeroesBlocks(t *testing.T) {
	img := image.New()
	start, err := Allocate(img, 2)
	require.NoError(t, err)
	img.Blocks[start][0] = 0x55
	img.Blocks[start+1][1023] = 0xAA

	Free(img, start, 2)

	assert.False(t, img.Bitmap().Get(start))
	assert.False(t, img.Bitmap().Get(start+1))
	assert.Equal(t, [image.BlockSize]byte{}, img.Blocks[start])
	assert.Equal(t, [image.BlockSize]byte{}, img.Blocks[start+1])
}

func TestRelocateHandlesOverlap(t *testing.T) {
	img := image.New()
	start, err := Allocate(img, 4) // blocks 1-4
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		img.Blocks[start+i][0] = byte(i + 1)
	}

	newStart := start + 2 // blocks 3-6, overlapping the source
	Relocate(img, start, 4, newStart, 4)

	for i := 0; i < 4; i++ {
		assert.Equal(t, byte(i+1), img.Blocks[newStart+i][0], "block %d content must survive the overlapping copy", i)
	}
	assert.False(t, img.Bitmap().Get(start), "source block fully outside the new range must be cleared")
	assert.False(t, img.Bitmap().Get(start+1))
	assert.True(t, img.Bitmap().Get(newStart+3))
}

func TestRelocateToDisjointRange(t *testing.T) {
	img := image.New()
	start, err := Allocate(img, 2)
	require.NoError(t, err)
	img.Blocks[start][0] = 0xAB
	img.Blocks[start+1][0] = 0xCD

	newStart := 50
	Relocate(img, start, 2, newStart, 2)

	assert.False(t, img.Bitmap().Get(start))
	assert.False(t, img.Bitmap().Get(start+1))
	assert.True(t, img.Bitmap().Get(newStart))
	assert.True(t, img.Bitmap().Get(newStart+1))
	assert.Equal(t, byte(0xAB), img.Blocks[newStart][0])
	assert.Equal(t, byte(0xCD), img.Blocks[newStart+1][0])
	assert.Equal(t, [image.BlockSize]byte{}, img.Blocks[start])
}

func TestCanExtendInPlace(t *testing.T) {
	img := image.New()
	start, err := Allocate(img, 2)
	require.NoError(t, err)

	assert.True(t, CanExtendInPlace(img, start, 2, 4))

	img.Bitmap().Set(start + 3)
	assert.False(t, CanExtendInPlace(img, start, 2, 4))
}
