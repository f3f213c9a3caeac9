package walk

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"gotest.tools/v3/assert"
)

func writeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	files := map[string]string{
		"a.txt":            "a",
		"b.log":            "b",
		"keep/c.txt":       "c",
		"skip/d.txt":       "d",
		"skip/nested.txt":  "nested",
	}
	for rel, content := range files {
		full := filepath.Join(root, rel)
		assert.NilError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		assert.NilError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func collectPaths(t *testing.T, root string, src Source, opts Options) []string {
	t.Helper()
	w := NewWalker(opts)
	var got []string
	err := w.Walk(src, func(e Entry) error {
		rel, _ := filepath.Rel(root, e.Path)
		got = append(got, rel)
		return nil
	})
	assert.NilError(t, err)
	sort.Strings(got)
	return got
}

func TestWalkVisitsAllFilesByDefault(t *testing.T) {
	root := writeTree(t)
	got := collectPaths(t, root, Source{Root: root}, Options{})
	assert.DeepEqual(t, got, []string{
		"a.txt", "b.log",
		filepath.Join("keep", "c.txt"),
		filepath.Join("skip", "d.txt"),
		filepath.Join("skip", "nested.txt"),
	})
}

func TestWalkExcludesMatchingDirectory(t *testing.T) {
	root := writeTree(t)
	got := collectPaths(t, root, Source{Root: root, Exclude: []string{"skip/"}}, Options{})
	assert.DeepEqual(t, got, []string{
		"a.txt", "b.log", filepath.Join("keep", "c.txt"),
	})
}

func TestWalkIncludeRestrictsToMatchingFiles(t *testing.T) {
	root := writeTree(t)
	got := collectPaths(t, root, Source{Root: root, Include: []string{"*.txt"}}, Options{})
	assert.DeepEqual(t, got, []string{
		"a.txt",
		filepath.Join("keep", "c.txt"),
		filepath.Join("skip", "d.txt"),
		filepath.Join("skip", "nested.txt"),
	})
}

func TestWalkSkipsUnfollowedSymlinks(t *testing.T) {
	root := t.TempDir()
	assert.NilError(t, os.WriteFile(filepath.Join(root, "real.txt"), []byte("x"), 0o644))
	err := os.Symlink(filepath.Join(root, "real.txt"), filepath.Join(root, "link.txt"))
	if err != nil {
		t.Skipf("symlinks unsupported in this environment: %v", err)
	}

	got := collectPaths(t, root, Source{Root: root}, Options{FollowSymlinks: false})
	assert.DeepEqual(t, got, []string{"real.txt"})
}
