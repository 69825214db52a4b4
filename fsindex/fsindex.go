// Package fsindex maintains the in-memory parent-to-children mapping used
// to resolve (directory, name) -> inode index.
//
// The original program keyed this map by the 5-byte directory *name*, which
// breaks as soon as two unrelated directories anywhere in the tree share a
// name (names are only required to be unique within a single parent). This
// implementation keys by parent *inode index* instead (with
// image.RootIndex standing in for the root), which is the corrected
// semantics called for by the filesystem's design notes.
package fsindex

import "github.com/dargueta/blockfs/image"

// Index maps a parent inode index (image.RootIndex for the root) to the
// ordered list of its children's inode indices.
type Index struct {
	children map[int][]int
}

// New returns an empty index.
func New() *Index {
	return &Index{children: make(map[int][]int)}
}

// Build rebuilds the index from scratch by scanning every in-use inode in
// img, the way mount() does after a successful verification.
func Build(img *image.Image) *Index {
	idx := New()
	for i := range img.Inodes {
		n := &img.Inodes[i]
		if !n.InUse() {
			continue
		}
		idx.children[n.Parent()] = append(idx.children[n.Parent()], i)
	}
	return idx
}

// Children returns the ordered list of child inode indices for the given
// parent (image.RootIndex for the root).
func (idx *Index) Children(parent int) []int {
	return idx.children[parent]
}

// Resolve scans the children of parent for a 5-byte name match, returning
// the child's inode index and true, or false if not found.
func (idx *Index) Resolve(img *image.Image, parent int, name [image.NameSize]byte) (int, bool) {
	for _, child := range idx.children[parent] {
		if img.Inodes[child].Name == name {
			return child, true
		}
	}
	return 0, false
}

// Add appends a freshly-created inode to its parent's child list.
func (idx *Index) Add(parent, child int) {
	idx.children[parent] = append(idx.children[parent], child)
}

// Remove deletes child from parent's child list, preserving the order of
// the remaining siblings.
func (idx *Index) Remove(parent, child int) {
	siblings := idx.children[parent]
	for i, c := range siblings {
		if c == child {
			idx.children[parent] = append(siblings[:i], siblings[i+1:]...)
			return
		}
	}
}
