// Package session holds the process-wide mounted-filesystem state — image,
// directory index, current working directory, mounted path, and I/O
// buffer — and implements the nine filesystem operations against it. This
// mirrors the teacher's pattern of a single driver struct owning a mounted
// volume's state (see drivers/common/basedriver before it was trimmed);
// here there is exactly one mountable volume instead of a registry of them.
package session

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/dargueta/blockfs/blockmgr"
	blockerrors "github.com/dargueta/blockfs/errors"
	"github.com/dargueta/blockfs/fsindex"
	"github.com/dargueta/blockfs/image"
	"github.com/dargueta/blockfs/verify"
)

// opError pairs one of the package's sentinel DiskoError kinds with the
// exact diagnostic text spec.md requires, so callers that care can test
// the kind with errors.Is while the session still prints the literal
// message verbatim.
type opError struct {
	kind blockerrors.DiskoError
	text string
}

func (e opError) Error() string { return e.text }
func (e opError) Unwrap() error { return e.kind }

// FileSource abstracts reading and (re)writing the file backing a mounted
// image, so tests can substitute an in-memory stream for a real path on
// disk without Session knowing the difference.
type FileSource interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
}

// osFileSource is the default FileSource, backed by the real filesystem.
type osFileSource struct{}

func (osFileSource) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }
func (osFileSource) WriteFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

// Session is the entire process-wide state: at most one mounted image, the
// current working directory, the path it was mounted from, and the 1 KiB
// I/O buffer shared by read/write/buff.
type Session struct {
	Img      *image.Image
	Idx      *fsindex.Index
	Cwd      int
	DiskName string
	Buffer   [1024]byte

	Files FileSource
	Out   io.Writer
	Errw  io.Writer
}

// New returns an unmounted session writing diagnostics/listings to the
// given streams.
func New(out, errw io.Writer) *Session {
	return &Session{Files: osFileSource{}, Out: out, Errw: errw, Cwd: image.RootIndex}
}

// Mounted reports whether a disk is currently mounted.
func (s *Session) Mounted() bool { return s.DiskName != "" }

func toName(raw string) [image.NameSize]byte {
	var n [image.NameSize]byte
	copy(n[:], raw)
	return n
}

// persistCurrent writes the in-memory image back to its mounted path,
// printing a diagnostic on failure without unmounting.
func (s *Session) persistCurrent() {
	if !s.Mounted() {
		return
	}
	if err := s.Files.WriteFile(s.DiskName, image.Encode(s.Img)); err != nil {
		fmt.Fprintf(s.Errw, "Error: Failure to write to disk %s\n", s.DiskName)
	}
}

func (s *Session) report(err opError) { fmt.Fprintln(s.Errw, err.Error()) }

// Persist is exported so the command front-end can trigger it after a
// successful mutating command, per the "persist after every successful
// mutation" rule.
func (s *Session) Persist() { s.persistCurrent() }

// Mount persists any currently-mounted image, then opens, decodes, and
// verifies path. On success it replaces the mounted image, resets cwd to
// root, and preserves the I/O buffer. On failure the prior mount (if any)
// stays active. Returns true on success.
func (s *Session) Mount(path string) bool {
	s.persistCurrent()

	raw, err := s.Files.ReadFile(path)
	if err != nil {
		s.report(opError{blockerrors.ErrNoDevice, fmt.Sprintf("Error: Cannot find disk %s", path)})
		return false
	}

	img := image.Decode(raw)
	result := verify.Run(img)
	if result.Code != verify.OK {
		s.report(opError{
			blockerrors.ErrFileSystemCorrupted,
			fmt.Sprintf("Error: File system in %s is inconsistent (error code: %d)", path, result.Code),
		})
		return false
	}

	s.Img = img
	s.Idx = fsindex.Build(img)
	s.Cwd = image.RootIndex
	s.DiskName = path
	return true
}

// Create implements §4.6 create: directories when size == 0, contiguously
// allocated files otherwise.
func (s *Session) Create(name string, size int) bool {
	free := -1
	for i := range s.Img.Inodes {
		if !s.Img.Inodes[i].InUse() {
			free = i
			break
		}
	}
	if free == -1 {
		s.report(opError{
			blockerrors.ErrSuperblockFull,
			fmt.Sprintf("Error: Superblock in disk %s is full, cannot create %s", s.DiskName, name),
		})
		return false
	}

	key := toName(name)
	if _, found := s.Idx.Resolve(s.Img, s.Cwd, key); found {
		s.report(opError{blockerrors.ErrExists, fmt.Sprintf("Error: File or directory %s already exists", name)})
		return false
	}

	if size == 0 {
		s.Img.Inodes[free].MakeDirectory(name, s.Cwd)
		s.Idx.Add(s.Cwd, free)
		return true
	}

	start, err := blockmgr.Allocate(s.Img, size)
	if err != nil {
		s.report(opError{
			blockerrors.ErrNoSpaceOnDevice,
			fmt.Sprintf("Error: Cannot allocate %d KB on %s", size, s.DiskName),
		})
		return false
	}
	s.Img.Inodes[free].MakeFile(name, size, start, s.Cwd)
	s.Idx.Add(s.Cwd, free)
	return true
}

// Delete implements §4.6 delete: recursive post-order removal for
// directories, block/bitmap release for files. Never fails once the name
// resolves.
func (s *Session) Delete(name string) bool {
	idx, found := s.Idx.Resolve(s.Img, s.Cwd, toName(name))
	if !found {
		s.report(opError{blockerrors.ErrNotFound, fmt.Sprintf("Error: File or directory %s does not exist", name)})
		return false
	}
	s.deleteInode(idx)
	return true
}

func (s *Session) deleteInode(idx int) {
	n := &s.Img.Inodes[idx]
	parent := n.Parent()

	if n.IsDir() {
		children := append([]int(nil), s.Idx.Children(idx)...)
		for _, child := range children {
			s.deleteInode(child)
		}
	} else {
		blockmgr.Free(s.Img, int(n.StartBlock), n.Size())
	}

	s.Idx.Remove(parent, idx)
	n.Clear()
}

// Read implements §4.6 read: copies block k of name into the I/O buffer.
func (s *Session) Read(name string, k int) bool {
	n, err := s.resolveFile(name)
	if err != nil {
		s.report(err.(opError))
		return false
	}
	if k < 0 || k >= n.Size() {
		s.report(opError{blockerrors.ErrInvalidArgument, fmt.Sprintf("Error: %s does not have block %d", name, k)})
		return false
	}
	s.Buffer = s.Img.Blocks[int(n.StartBlock)+k]
	return true
}

// Write implements §4.6 write: copies the I/O buffer into block k of name.
func (s *Session) Write(name string, k int) bool {
	n, err := s.resolveFile(name)
	if err != nil {
		s.report(err.(opError))
		return false
	}
	if k < 0 || k >= n.Size() {
		s.report(opError{blockerrors.ErrInvalidArgument, fmt.Sprintf("Error: %s does not have block %d", name, k)})
		return false
	}
	s.Img.Blocks[int(n.StartBlock)+k] = s.Buffer
	return true
}

// resolveFile resolves name in cwd and requires it to be a file, tagging a
// directory hit with ErrIsADirectory even though both cases render the
// same "does not exist" text per spec.md.
func (s *Session) resolveFile(name string) (*image.Inode, error) {
	idx, found := s.Idx.Resolve(s.Img, s.Cwd, toName(name))
	if !found {
		return nil, opError{blockerrors.ErrNotFound, fmt.Sprintf("Error: File %s does not exist", name)}
	}
	n := &s.Img.Inodes[idx]
	if n.IsDir() {
		return nil, opError{blockerrors.ErrIsADirectory, fmt.Sprintf("Error: File %s does not exist", name)}
	}
	return n, nil
}

// Buff implements §4.6 buff: zeroes the I/O buffer, then copies up to 1024
// bytes of payload into its prefix. Never fails.
func (s *Session) Buff(payload []byte) bool {
	s.Buffer = [1024]byte{}
	copy(s.Buffer[:], payload)
	return true
}

// Ls implements §4.6 ls, writing directory-listing lines to s.Out.
func (s *Session) Ls() {
	children := s.Idx.Children(s.Cwd)

	parent := s.Cwd
	if s.Cwd != image.RootIndex {
		parent = s.Img.Inodes[s.Cwd].Parent()
	}
	var parentCount int
	if s.Cwd == image.RootIndex {
		parentCount = len(children)
	} else {
		parentCount = len(s.Idx.Children(parent))
	}

	fmt.Fprintf(s.Out, "%-5.5s   %3d\n", ".", len(children))
	fmt.Fprintf(s.Out, "%-5.5s   %3d\n", "..", parentCount)

	for _, idx := range children {
		n := &s.Img.Inodes[idx]
		if n.IsDir() {
			fmt.Fprintf(s.Out, "%-5.5s   %3d\n", n.NameString(), len(s.Idx.Children(idx)))
		} else {
			fmt.Fprintf(s.Out, "%-5.5s   %3d KB\n", n.NameString(), n.Size())
		}
	}
}

// Resize implements §4.6 resize, including the corrected shrink bit-clear
// and grow-in-place-then-relocate logic.
func (s *Session) Resize(name string, newSize int) bool {
	n, err := s.resolveFile(name)
	if err != nil {
		s.report(err.(opError))
		return false
	}
	oldSize := n.Size()
	start := int(n.StartBlock)

	switch {
	case newSize < oldSize:
		blockmgr.Free(s.Img, start+newSize, oldSize-newSize)
		n.SetSize(newSize)

	case newSize > oldSize:
		if blockmgr.CanExtendInPlace(s.Img, start, oldSize, newSize) {
			for b := start + oldSize; b < start+newSize; b++ {
				s.Img.Bitmap().Set(b)
			}
			n.SetSize(newSize)
			return true
		}

		newStart, ok := s.Img.Bitmap().FindRunExcluding(newSize, start, oldSize)
		if !ok {
			s.report(opError{
				blockerrors.ErrNoSpaceOnDevice,
				fmt.Sprintf("Error: File %s cannot expand to size %d", name, newSize),
			})
			return false
		}
		blockmgr.Relocate(s.Img, start, oldSize, newStart, newSize)
		n.StartBlock = byte(newStart)
		n.SetSize(newSize)
	}
	return true
}

type defragEntry struct {
	start int
	idx   int
}

// Defrag implements §4.6 defrag: slides every in-use file's data toward
// low block indices, in ascending start_block order, without disturbing
// relative order.
func (s *Session) Defrag() {
	var files []defragEntry
	for i := range s.Img.Inodes {
		n := &s.Img.Inodes[i]
		if n.InUse() && !n.IsDir() {
			files = append(files, defragEntry{start: int(n.StartBlock), idx: i})
		}
	}
	sort.Slice(files, func(a, b int) bool { return files[a].start < files[b].start })

	for _, f := range files {
		n := &s.Img.Inodes[f.idx]
		start := int(n.StartBlock)
		size := n.Size()

		target, ok := s.Img.Bitmap().FindRunExcluding(size, start, size)
		if !ok || target >= start {
			continue
		}
		blockmgr.Relocate(s.Img, start, size, target, size)
		n.StartBlock = byte(target)
	}
}

// Cd implements §4.6 cd: "." is a no-op, ".." moves to the parent (root
// stays put), anything else must resolve to a directory in cwd.
func (s *Session) Cd(name string) bool {
	switch name {
	case ".":
		return true
	case "..":
		if s.Cwd != image.RootIndex {
			s.Cwd = s.Img.Inodes[s.Cwd].Parent()
		}
		return true
	}

	idx, found := s.Idx.Resolve(s.Img, s.Cwd, toName(name))
	if !found {
		s.report(opError{blockerrors.ErrNotFound, fmt.Sprintf("Error: Directory %s does not exist", name)})
		return false
	}
	if !s.Img.Inodes[idx].IsDir() {
		s.report(opError{blockerrors.ErrNotADirectory, fmt.Sprintf("Error: Directory %s does not exist", name)})
		return false
	}
	s.Cwd = idx
	return true
}
