package verify_test

import (
	"testing"

	dt "github.com/dargueta/blockfs/testing"
	"github.com/dargueta/blockfs/verify"
	"github.com/stretchr/testify/assert"
)

func TestRunAgainstFixtures(t *testing.T) {
	names := []string{
		"fresh", "single_file", "nested_dir",
		"double_alloc", "dup_name", "dirty_free_inode",
		"bad_start_block", "dirty_directory", "bad_parent",
	}

	for _, name := range names {
		name := name
		t.Run(name, func(t *testing.T) {
			fixture := dt.LookupFixture(t, name)
			img := dt.BuildFixture(t, name)

			result := verify.Run(img)
			assert.Equal(
				t,
				verify.Code(fixture.ExpectedVerifyCode),
				result.Code,
				"fixture %q: %s", name, fixture.Description,
			)
		})
	}
}

func TestRunReturnsDetailsOnlyWhenDirty(t *testing.T) {
	img := dt.BuildFixture(t, "fresh")
	result := verify.Run(img)
	assert.Nil(t, result.Details)

	img = dt.BuildFixture(t, "dup_name")
	result = verify.Run(img)
	if assert.NotNil(t, result.Details) {
		assert.GreaterOrEqual(t, result.Details.Len(), 1)
	}
}
