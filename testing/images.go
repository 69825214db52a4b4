// Package testing holds helpers shared by the project's test suites: an
// in-memory FileSource so sessions can mount images without touching the
// real filesystem, plus convenience builders for hand-crafted images. This
// replaces the teacher's compressed-fixture loader (utilities/compression
// no longer exists in this module) with a lighter byte-buffer approach,
// since our images are a fixed 128 KiB rather than the teacher's
// variable-geometry disks.
package testing

import (
	"testing"

	"github.com/dargueta/blockfs/image"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// MemFS is an in-memory session.FileSource keyed by path, backed by
// xaionaro-go/bytesextra read-write-seekers the way the teacher's test
// helpers wrap raw byte slices for driver tests.
type MemFS struct {
	files map[string][]byte
}

// NewMemFS returns an empty in-memory file source.
func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string][]byte)}
}

// Put seeds path with the given contents, as if it had already been
// written to disk.
func (m *MemFS) Put(path string, contents []byte) {
	m.files[path] = append([]byte(nil), contents...)
}

// Get returns the current contents of path, or nil if it was never
// written.
func (m *MemFS) Get(path string) []byte {
	return m.files[path]
}

// ReadFile implements session.FileSource by copying out of an in-memory
// bytesextra stream, exercising the same io.ReadWriteSeeker surface a real
// os.File would present.
func (m *MemFS) ReadFile(path string) ([]byte, error) {
	raw, ok := m.files[path]
	if !ok {
		return nil, &fsError{path}
	}
	stream := bytesextra.NewReadWriteSeeker(append([]byte(nil), raw...))
	out := make([]byte, len(raw))
	if _, err := stream.Read(out); err != nil && len(out) > 0 {
		return nil, err
	}
	return out, nil
}

// WriteFile implements session.FileSource by replacing path's contents
// wholesale, mirroring persist's truncate-then-write-everything semantics.
func (m *MemFS) WriteFile(path string, data []byte) error {
	m.files[path] = append([]byte(nil), data...)
	return nil
}

type fsError struct{ path string }

func (e *fsError) Error() string { return "no such file: " + e.path }

// FreshImage returns an all-zero image with only block 0 marked used, the
// state a brand-new disk starts from.
func FreshImage(t *testing.T) *image.Image {
	t.Helper()
	img := image.New()
	require.Equal(t, byte(0x80), img.FreeBlockList[0], "block 0 must be marked used")
	return img
}
