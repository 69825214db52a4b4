package command

import (
	"bytes"
	"testing"

	"github.com/dargueta/blockfs/image"
	"github.com/dargueta/blockfs/session"
	dt "github.com/dargueta/blockfs/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFrontend(t *testing.T) (*Frontend, *session.Session, *dt.MemFS, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	fs := dt.NewMemFS()
	fs.Put("disk0", image.Encode(image.New()))

	var out, errw bytes.Buffer
	sess := session.New(&out, &errw)
	sess.Files = fs

	f := New(sess, "script.txt")
	return f, sess, fs, &out, &errw
}

func TestMountThenCreateThenList(t *testing.T) {
	f, sess, _, out, errw := newFrontend(t)

	f.Run([]string{"M disk0", "C a 3", "L"})

	assert.Empty(t, errw.String())
	assert.True(t, sess.Mounted())
	assert.Contains(t, out.String(), "a         3 KB")
}

func TestUnmountedCommandReportsNoFileSystem(t *testing.T) {
	f, _, _, _, errw := newFrontend(t)
	f.Run([]string{"C a 3"})
	assert.Contains(t, errw.String(), "Error: No file system is mounted")
}

func TestBadSyntaxReportsCommandError(t *testing.T) {
	f, _, _, _, errw := newFrontend(t)
	f.Run([]string{"M disk0", "C toolong 3"})
	assert.Contains(t, errw.String(), "Command Error: script.txt, 2")
}

func TestCreateOutOfRangeSizeReportsCommandError(t *testing.T) {
	f, _, _, _, errw := newFrontend(t)
	f.Run([]string{"M disk0", "C a 200"})
	assert.Contains(t, errw.String(), "Command Error: script.txt, 2")
}

func TestPersistsAfterMutatingCommand(t *testing.T) {
	f, _, fs, _, _ := newFrontend(t)
	f.Run([]string{"M disk0", "C a 3"})

	persisted := image.Decode(fs.Get("disk0"))
	assert.Equal(t, byte(0x83), persisted.Inodes[0].UsedSize)
}

func TestBuffConcatenatesTokensWithSingleSpaces(t *testing.T) {
	f, sess, _, _, _ := newFrontend(t)
	f.Run([]string{"M disk0", "B hello world"})

	assert.Equal(t, byte('h'), sess.Buffer[0])
	assert.Equal(t, byte(' '), sess.Buffer[5])
	assert.Equal(t, byte('w'), sess.Buffer[6])
}

func TestEmptyLinesAreSkipped(t *testing.T) {
	f, _, _, _, errw := newFrontend(t)
	f.Run([]string{"M disk0", "", "L"})
	assert.Empty(t, errw.String())
}

func TestUnknownCommandLetterReportsCommandError(t *testing.T) {
	f, _, _, _, errw := newFrontend(t)
	f.Run([]string{"Z foo"})
	assert.Contains(t, errw.String(), "Command Error: script.txt, 1")
}

func TestMountPathTooLongReportsCommandError(t *testing.T) {
	f, _, _, _, errw := newFrontend(t)
	f.Run([]string{"M this-disk-path-is-too-long-to-be-valid"})
	assert.Contains(t, errw.String(), "Command Error: script.txt, 1")
	require.NotContains(t, errw.String(), "Cannot find disk")
}
