package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalkVisitsEveryFileOnce(t *testing.T) {
	fsys := newTree(t, map[string]string{
		"a.lua":                "1",
		"sub/b.json":           "2",
		"sub/deeper/c.png":     "3",
		"sub/deeper/more/d.md": "4",
	})
	require.NoError(t, fsys.MkdirAll("empty/dir", 0o755))

	seen := map[string]int{}
	require.NoError(t, Walk(fsys, ".", func(path string) error {
		seen[path]++
		return nil
	}))

	want := map[string]int{}
	for _, p := range []string{"a.lua", "sub/b.json", "sub/deeper/c.png", "sub/deeper/more/d.md"} {
		want[filepath.FromSlash(p)] = 1
	}
	assert.Equal(t, want, seen)
}

func TestWalkTwiceIsConsistent(t *testing.T) {
	fsys := newTree(t, map[string]string{"x/a.json": "{}", "x/y/b.lua": "return 1", "c.txt": "c"})
	assert.Equal(t, listFiles(t, fsys), listFiles(t, fsys))
}

func TestWalkDoesNotVisitFilesCreatedDuringPass(t *testing.T) {
	fsys := newTree(t, map[string]string{"a.lua": "1", "b.lua": "2"})

	var visited []string
	require.NoError(t, Walk(fsys, ".", func(path string) error {
		visited = append(visited, path)
		f, err := fsys.Create(path + "c")
		if err != nil {
			return err
		}
		return f.Close()
	}))
	assert.ElementsMatch(t, []string{"a.lua", "b.lua"}, visited)
}

func TestWalkMissingRoot(t *testing.T) {
	fsys := newTree(t, nil)
	err := Walk(fsys, "nope", func(string) error { return nil })
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWalkRootIsFile(t *testing.T) {
	fsys := newTree(t, map[string]string{"a.lua": "1"})
	err := Walk(fsys, "a.lua", func(string) error { return nil })
	assert.ErrorIs(t, err, ErrIO)
}

func TestWalkStopsOnVisitError(t *testing.T) {
	fsys := newTree(t, map[string]string{"a.lua": "1", "b.lua": "2", "c.lua": "3"})
	calls := 0
	err := Walk(fsys, ".", func(string) error {
		calls++
		return compressionError("a.lua", errInjected)
	})
	assert.ErrorIs(t, err, ErrCompressionFailed)
	assert.Equal(t, 1, calls)
}

// failingDirFS fails to list one directory.
type failingDirFS struct {
	billy.Filesystem
	dir string
}

func (f failingDirFS) ReadDir(path string) ([]os.FileInfo, error) {
	if filepath.Clean(path) == f.dir {
		return nil, errors.New("permission denied")
	}
	return f.Filesystem.ReadDir(path)
}

func TestWalkAbortsOnUnreadableSubdirectory(t *testing.T) {
	base := newTree(t, map[string]string{"a/x.lua": "1", "b/y.lua": "2", "c/z.lua": "3"})
	fsys := failingDirFS{Filesystem: base, dir: "b"}

	var visited []string
	err := Walk(fsys, ".", func(path string) error {
		visited = append(visited, path)
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIO)
	assert.NotContains(t, visited, filepath.Join("c", "z.lua"))
}

func TestWalkSkipsLinksAndReportsThem(t *testing.T) {
	fsys := newTree(t, map[string]string{"a.json": "{}", "sub/b.png": "p"})
	require.NoError(t, fsys.Symlink("a.json", "alias.json"))
	require.NoError(t, fsys.Symlink("sub", "subdir.link"))

	var visited, skipped []string
	err := walk(fsys, ".", func(path string) error {
		visited = append(visited, path)
		return nil
	}, func(path string, mode os.FileMode) {
		assert.NotZero(t, mode&os.ModeSymlink, path)
		skipped = append(skipped, path)
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.json", filepath.Join("sub", "b.png")}, visited)
	assert.ElementsMatch(t, []string{"alias.json", "subdir.link"}, skipped)
}

func TestWalkRejectsLinkedRoot(t *testing.T) {
	fsys := newTree(t, map[string]string{"assets/a.json": "{}"})
	require.NoError(t, fsys.Symlink("assets", "current"))

	err := Walk(fsys, "current", func(string) error { return nil })
	require.ErrorIs(t, err, ErrIO)
	assert.Contains(t, err.Error(), "symbolic link")
}
