package fsindex

import (
	"testing"

	"github.com/dargueta/blockfs/image"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildGroupsByParent(t *testing.T) {
	img := image.New()
	img.Inodes[0].MakeDirectory("a", image.RootIndex)
	img.Inodes[1].MakeFile("f", 1, 1, 0)
	img.Inodes[2].MakeFile("g", 1, 2, 0)

	idx := Build(img)
	assert.Equal(t, []int{0}, idx.Children(image.RootIndex))
	assert.ElementsMatch(t, []int{1, 2}, idx.Children(0))
}

func TestResolveDistinguishesSameNameAcrossParents(t *testing.T) {
	// Two unrelated directories that happen to share a name ("p") each have
	// a child of their own. A map keyed by the *parent's name* (the
	// original bug) would merge both parents' child lists under the single
	// key "p", so looking up "y" under parent 0 would wrongly find the
	// child that actually belongs to parent 1. Keyed by parent inode index,
	// the two parents' children must stay distinct.
	img := image.New()
	img.Inodes[0].MakeDirectory("p", image.RootIndex)
	img.Inodes[1].MakeDirectory("p", image.RootIndex) // different inode, same name as 0
	img.Inodes[2].MakeFile("x", 1, 1, 0)               // child of parent 0
	img.Inodes[3].MakeFile("y", 1, 2, 1)               // child of parent 1

	idx := Build(img)

	childOfZero, found := idx.Resolve(img, 0, nameOf("x"))
	require.True(t, found)
	assert.Equal(t, 2, childOfZero)

	childOfOne, found := idx.Resolve(img, 1, nameOf("y"))
	require.True(t, found)
	assert.Equal(t, 3, childOfOne)

	_, crossFound := idx.Resolve(img, 0, nameOf("y"))
	assert.False(t, crossFound, "y belongs to parent 1, not parent 0")

	_, crossFound2 := idx.Resolve(img, 1, nameOf("x"))
	assert.False(t, crossFound2, "x belongs to parent 0, not parent 1")

	assert.Equal(t, []int{2}, idx.Children(0))
	assert.Equal(t, []int{3}, idx.Children(1))
}

func TestAddAndRemovePreserveSiblingOrder(t *testing.T) {
	img := image.New()
	img.Inodes[0].MakeFile("a", 1, 1, image.RootIndex)
	img.Inodes[1].MakeFile("b", 1, 2, image.RootIndex)
	img.Inodes[2].MakeFile("c", 1, 3, image.RootIndex)

	idx := Build(img)
	idx.Remove(image.RootIndex, 1)
	assert.Equal(t, []int{0, 2}, idx.Children(image.RootIndex))

	idx.Add(image.RootIndex, 3)
	assert.Equal(t, []int{0, 2, 3}, idx.Children(image.RootIndex))
}

func nameOf(s string) [image.NameSize]byte {
	var n [image.NameSize]byte
	copy(n[:], s)
	return n
}
