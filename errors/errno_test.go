package errors_test

import (
	stderrors "errors"
	"testing"

	"github.com/dargueta/blockfs/errors"
	"github.com/stretchr/testify/assert"
)

func TestDiskoErrorWithMessage(t *testing.T) {
	err := errors.ErrNoSpaceOnDevice.WithMessage("cannot allocate 5 KB on disk0")
	assert.Equal(t, "No space left on device: cannot allocate 5 KB on disk0", err.Error())
	assert.ErrorIs(t, err, errors.ErrNoSpaceOnDevice)
}

func TestDiskoErrorWrap(t *testing.T) {
	original := stderrors.New("short write")
	err := errors.ErrFileSystemCorrupted.WrapError(original)

	assert.ErrorIs(t, err, original)
	assert.Contains(t, err.Error(), "Structure needs cleaning")
}
