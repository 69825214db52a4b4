// Package verify implements the six ordered consistency checks every disk
// image must pass before mount() will adopt it, translated from the six
// inline checks in the original fs_mount routine.
package verify

import (
	"fmt"

	"github.com/dargueta/blockfs/bitmap"
	"github.com/dargueta/blockfs/image"
	"github.com/hashicorp/go-multierror"
)

// Code identifies which of the six checks failed first. 0 means the image
// is consistent.
type Code int

const (
	OK Code = 0
	// ErrBitmapMismatch covers double-allocation and any other disagreement
	// between the stored free-block list and the one built from inode state.
	ErrBitmapMismatch Code = 1
	ErrDuplicateName  Code = 2
	ErrFreeInodeDirty Code = 3
	ErrBadStartBlock  Code = 4
	ErrDirtyDirectory Code = 5
	ErrBadParent      Code = 6
)

// Result is the outcome of running all six checks against an image. Code is
// the first check that failed (or OK). Details, when non-nil, records every
// failing check (not just the first) for diagnostic tooling such as `blockfs
// fsck --verbose`.
type Result struct {
	Code    Code
	Details *multierror.Error
}

// Run applies the six checks in order and returns the first failing code,
// along with a fuller multierror recording every check that failed.
func Run(img *image.Image) Result {
	var details *multierror.Error
	first := OK

	fail := func(c Code, reason string) {
		details = multierror.Append(details, fmt.Errorf("check %d: %s", c, reason))
		if first == OK {
			first = c
		}
	}

	checkBitmapAgreement(img, fail)
	checkNameUniqueness(img, fail)
	checkFreeInodesZeroed(img, fail)
	checkFileStartBlockRange(img, fail)
	checkDirectoryZeroFields(img, fail)
	checkParentValidity(img, fail)

	return Result{Code: first, Details: details}
}

type failFunc func(c Code, reason string)

// checkBitmapAgreement rebuilds the expected free-block bitmap from inode
// state and compares it byte-for-byte against the stored one.
func checkBitmapAgreement(img *image.Image, fail failFunc) {
	expected := bitmap.New()
	doubleAllocated := false

	for i := range img.Inodes {
		n := &img.Inodes[i]
		if !n.InUse() || n.IsDir() {
			continue
		}
		start := int(n.StartBlock)
		if start < 1 || start > 127 {
			continue // out-of-range start blocks are check 4's job
		}
		size := n.Size()
		for b := start; b < start+size; b++ {
			if b >= bitmap.NumBlocks {
				continue
			}
			if expected.Get(b) {
				doubleAllocated = true
			}
			expected.Set(b)
		}
	}
	expected.Set(0)

	stored := img.Bitmap()
	mismatch := doubleAllocated
	if !mismatch {
		for i := 0; i < bitmap.NumBlocks; i++ {
			if expected.Get(i) != stored.Get(i) {
				mismatch = true
				break
			}
		}
	}
	if mismatch {
		fail(ErrBitmapMismatch, "stored free-block list disagrees with inode allocations")
	}
}

// checkNameUniqueness groups in-use inodes by parent and requires distinct
// 5-byte names within each group.
func checkNameUniqueness(img *image.Image, fail failFunc) {
	byParent := make(map[int][]int)
	for i := range img.Inodes {
		n := &img.Inodes[i]
		if !n.InUse() {
			continue
		}
		byParent[n.Parent()] = append(byParent[n.Parent()], i)
	}

	for _, siblings := range byParent {
		seen := make(map[[image.NameSize]byte]bool)
		for _, idx := range siblings {
			name := img.Inodes[idx].Name
			if seen[name] {
				fail(ErrDuplicateName, "duplicate name within a directory")
				return
			}
			seen[name] = true
		}
	}
}

// checkFreeInodesZeroed requires free inodes to be all-zero and in-use
// inodes to have a nonzero name.
func checkFreeInodesZeroed(img *image.Image, fail failFunc) {
	for i := range img.Inodes {
		n := &img.Inodes[i]
		if !n.InUse() {
			if !n.IsZero() {
				fail(ErrFreeInodeDirty, "free inode has nonzero bytes")
				return
			}
		} else if n.Name == [image.NameSize]byte{} {
			fail(ErrFreeInodeDirty, "in-use inode has an all-NUL name")
			return
		}
	}
}

// checkFileStartBlockRange requires every in-use file's start_block to be
// in 1..127.
func checkFileStartBlockRange(img *image.Image, fail failFunc) {
	for i := range img.Inodes {
		n := &img.Inodes[i]
		if n.InUse() && !n.IsDir() {
			if n.StartBlock < 1 || n.StartBlock > 127 {
				fail(ErrBadStartBlock, "file start_block out of range")
				return
			}
		}
	}
}

// checkDirectoryZeroFields requires every in-use directory to have size=0
// and start_block=0.
func checkDirectoryZeroFields(img *image.Image, fail failFunc) {
	for i := range img.Inodes {
		n := &img.Inodes[i]
		if n.InUse() && n.IsDir() {
			if n.Size() != 0 || n.StartBlock != 0 {
				fail(ErrDirtyDirectory, "directory has nonzero size or start_block")
				return
			}
		}
	}
}

// checkParentValidity requires every in-use inode's parent to be 127 or an
// in-use directory index in 0..125; 126 is always invalid.
func checkParentValidity(img *image.Image, fail failFunc) {
	for i := range img.Inodes {
		n := &img.Inodes[i]
		if !n.InUse() {
			continue
		}
		parent := n.Parent()
		if parent == image.ParentIsRoot {
			continue
		}
		if parent < 0 || parent >= len(img.Inodes) || parent == 126 {
			fail(ErrBadParent, "parent index is forbidden or out of range")
			return
		}
		parentNode := &img.Inodes[parent]
		if !parentNode.InUse() || !parentNode.IsDir() {
			fail(ErrBadParent, "parent inode is not an in-use directory")
			return
		}
	}
}
