// Package image implements the on-disk layout of a block filesystem image:
// a 1 KiB superblock (16-byte free-block bitmap + 126 fixed-size inode
// records) followed by 127 1 KiB data blocks. Encode/Decode are byte-exact
// inverses of each other, mirroring the approach the teacher's
// file_systems/unixv1/format.go takes to (de)serializing a superblock with
// encoding/binary and a bytewriter.
package image

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/dargueta/blockfs/bitmap"
	"github.com/noxer/bytewriter"
)

const (
	NumInodes  = 126
	NumBlocks  = 127
	BlockSize  = 1024
	NameSize   = 5
	InodeSize  = NameSize + 1 + 1 + 1 // name + used_size + start_block + dir_parent
	RootIndex  = 127
	RootName   = "root"
	Superblock = bitmap.SizeBytes + NumInodes*InodeSize // 1024
	Size       = Superblock + NumBlocks*BlockSize        // 131072 (128 KiB)

	stateInUseMask  = 0x80
	sizeMask        = 0x7F
	modeDirMask     = 0x80
	parentMask      = 0x7F
	ParentIsRoot    = 127
	forbiddenParent = 126
)

// Inode is the 8-byte on-disk inode record.
type Inode struct {
	Name       [NameSize]byte
	UsedSize   byte
	StartBlock byte
	DirParent  byte
}

// InUse reports whether the inode's high state bit is set.
func (n Inode) InUse() bool { return n.UsedSize&stateInUseMask != 0 }

// IsDir reports whether the inode's mode bit marks it as a directory.
func (n Inode) IsDir() bool { return n.DirParent&modeDirMask != 0 }

// Size returns the file size in blocks (meaningful only for files).
func (n Inode) Size() int { return int(n.UsedSize & sizeMask) }

// Parent returns the low 7 bits of dir_parent: 0..125, or 127 for root.
func (n Inode) Parent() int { return int(n.DirParent & parentMask) }

// IsZero reports whether all eight bytes of the inode are zero.
func (n Inode) IsZero() bool {
	return n.Name == [NameSize]byte{} && n.UsedSize == 0 && n.StartBlock == 0 && n.DirParent == 0
}

// NameString returns the name with trailing NULs trimmed.
func (n Inode) NameString() string {
	return string(bytes.TrimRight(n.Name[:], "\x00"))
}

// Clear zeroes every field of the inode in place.
func (n *Inode) Clear() {
	*n = Inode{}
}

// SetName copies up to NameSize bytes of name into the inode, zero-padding
// any remainder.
func (n *Inode) SetName(name string) {
	n.Name = [NameSize]byte{}
	copy(n.Name[:], name)
}

// MakeDirectory configures the inode as an in-use, empty directory with the
// given parent.
func (n *Inode) MakeDirectory(name string, parent int) {
	n.SetName(name)
	n.UsedSize = stateInUseMask
	n.StartBlock = 0
	n.DirParent = byte(parent) | modeDirMask
}

// MakeFile configures the inode as an in-use file with the given size (in
// blocks), start block, and parent.
func (n *Inode) MakeFile(name string, size, startBlock, parent int) {
	n.SetName(name)
	n.UsedSize = byte(size) | stateInUseMask
	n.StartBlock = byte(startBlock)
	n.DirParent = byte(parent)
}

// SetSize overwrites only the size field of a file inode, preserving the
// in-use bit.
func (n *Inode) SetSize(size int) {
	n.UsedSize = byte(size) | stateInUseMask
}

// Image is the fully decoded representation of a mounted disk.
type Image struct {
	FreeBlockList [bitmap.SizeBytes]byte
	Inodes        [NumInodes]Inode
	Blocks        [NumBlocks][BlockSize]byte
}

// Bitmap returns a view over the image's free-block list. Mutations through
// it are visible in the Image.
func (img *Image) Bitmap() bitmap.Bitmap {
	b, err := bitmap.FromBytes(img.FreeBlockList[:])
	if err != nil {
		// FreeBlockList is a fixed-size array of exactly bitmap.SizeBytes;
		// this can never happen.
		panic(err)
	}
	return b
}

// New returns a freshly zeroed image with only block 0 marked allocated.
func New() *Image {
	img := &Image{}
	img.Bitmap().Set(0)
	return img
}

// Encode serializes the image to its exact 131072-byte on-disk form.
func Encode(img *Image) []byte {
	out := make([]byte, Size)
	w := bytewriter.New(out)

	w.Write(img.FreeBlockList[:])
	for i := range img.Inodes {
		n := &img.Inodes[i]
		w.Write(n.Name[:])
		binary.Write(w, binary.LittleEndian, n.UsedSize)
		binary.Write(w, binary.LittleEndian, n.StartBlock)
		binary.Write(w, binary.LittleEndian, n.DirParent)
	}
	for i := range img.Blocks {
		w.Write(img.Blocks[i][:])
	}
	return out
}

// Stat is a platform-independent snapshot of image health, modeled on the
// teacher's disko.FSStat but trimmed to the fields this fixed-geometry
// filesystem can actually report. It exists purely for diagnostics and test
// assertions; it is never part of the command grammar or CLI output.
type Stat struct {
	// BlockSize is the size of a logical block, in bytes.
	BlockSize int64
	// TotalBlocks is the number of data blocks on the image, including the
	// permanently reserved block 0.
	TotalBlocks uint64
	// BlocksFree is the number of unallocated blocks.
	BlocksFree uint64
	// InodeCount is the total number of inode slots.
	InodeCount uint64
	// InodesFree is the number of unused inode slots.
	InodesFree uint64
}

// Stat computes a Stat snapshot by scanning the bitmap and inode table.
func (img *Image) Stat() Stat {
	freeBlocks := uint64(0)
	b := img.Bitmap()
	for i := 0; i < NumBlocks; i++ {
		if !b.Get(i) {
			freeBlocks++
		}
	}

	usedInodes := uint64(0)
	for i := range img.Inodes {
		if img.Inodes[i].InUse() {
			usedInodes++
		}
	}

	return Stat{
		BlockSize:   BlockSize,
		TotalBlocks: NumBlocks,
		BlocksFree:  freeBlocks,
		InodeCount:  NumInodes,
		InodesFree:  NumInodes - usedInodes,
	}
}

// Decode is the exact inverse of Encode. If raw is shorter than Size, the
// remaining fields are left zeroed, mirroring the original program's
// behavior when reading a short or freshly-truncated image file.
func Decode(raw []byte) *Image {
	img := &Image{}
	r := bytes.NewReader(raw)

	io.ReadFull(r, img.FreeBlockList[:])
	for i := range img.Inodes {
		n := &img.Inodes[i]
		io.ReadFull(r, n.Name[:])
		binary.Read(r, binary.LittleEndian, &n.UsedSize)
		binary.Read(r, binary.LittleEndian, &n.StartBlock)
		binary.Read(r, binary.LittleEndian, &n.DirParent)
	}
	for i := range img.Blocks {
		io.ReadFull(r, img.Blocks[i][:])
	}
	return img
}
