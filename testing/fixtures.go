package testing

import (
	_ "embed"
	"fmt"
	"strings"
	"testing"

	"github.com/dargueta/blockfs/image"
	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/require"
)

// Fixture describes one named hand-built image used across the test
// suites, catalogued the way the teacher's disks.DiskGeometry rows
// catalog disk geometries: a declarative CSV table instead of scattered
// literals.
type Fixture struct {
	Name               string `csv:"name"`
	Description        string `csv:"description"`
	ExpectedVerifyCode int    `csv:"expected_verify_code"`
}

//go:embed testdata/fixtures.csv
var fixturesRawCSV string

var fixtureCatalog map[string]Fixture

func init() {
	fixtureCatalog = make(map[string]Fixture)
	reader := strings.NewReader(fixturesRawCSV)
	err := gocsv.UnmarshalToCallback(reader, func(row Fixture) error {
		if _, exists := fixtureCatalog[row.Name]; exists {
			return fmt.Errorf("duplicate fixture name %q", row.Name)
		}
		fixtureCatalog[row.Name] = row
		return nil
	})
	if err != nil {
		panic(err)
	}
}

// LookupFixture returns the catalog entry for name, failing the test if it
// isn't defined in testdata/fixtures.csv.
func LookupFixture(t *testing.T, name string) Fixture {
	t.Helper()
	f, ok := fixtureCatalog[name]
	require.True(t, ok, "no fixture named %q in testdata/fixtures.csv", name)
	return f
}

// BuildFixture constructs the named fixture's image in memory. Each case
// is grounded directly in the consistency check it's meant to exercise, or
// in spec.md §8's end-to-end scenarios for the clean ones.
func BuildFixture(t *testing.T, name string) *image.Image {
	t.Helper()
	LookupFixture(t, name) // ensures the name is a real catalog entry

	img := image.New()
	switch name {
	case "fresh":
		// all-zero but block 0, as built by image.New().

	case "single_file":
		img.Inodes[0].MakeFile("a", 3, 1, image.RootIndex)
		for b := 1; b <= 3; b++ {
			img.Bitmap().Set(b)
		}

	case "nested_dir":
		img.Inodes[0].MakeDirectory("sub", image.RootIndex)
		img.Inodes[1].MakeFile("f", 2, 1, 0)
		img.Bitmap().Set(1)
		img.Bitmap().Set(2)

	case "double_alloc":
		img.Inodes[0].MakeFile("a", 2, 5, image.RootIndex)
		img.Inodes[1].MakeFile("b", 2, 5, image.RootIndex)
		img.Bitmap().Set(5)
		img.Bitmap().Set(6)

	case "dup_name":
		img.Inodes[0].MakeDirectory("x", image.RootIndex)
		img.Inodes[1].MakeDirectory("x", image.RootIndex)

	case "dirty_free_inode":
		img.Inodes[5].StartBlock = 1 // a free inode (state bit 0) with a stray byte set

	case "bad_start_block":
		img.Inodes[0].MakeFile("a", 2, 0, image.RootIndex) // start_block 0 is out of range

	case "dirty_directory":
		img.Inodes[0].MakeDirectory("d", image.RootIndex)
		img.Inodes[0].StartBlock = 1 // directories must have start_block == 0

	case "bad_parent":
		img.Inodes[0].MakeFile("a", 1, 1, 126) // 126 is always a forbidden parent
		img.Bitmap().Set(1)

	default:
		t.Fatalf("fixture %q has no builder", name)
	}

	return img
}
