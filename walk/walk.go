// Package walk traverses a configured source tree, applying gitignore-
// style include/exclude filtering, grounded on original_source/src/main.rs's
// WalkBuilder usage and original_source/src/cli.rs's Config/Source/
// SourceType structs.
package walk

import (
	"io/fs"
	"path/filepath"

	gitignore "github.com/crackcomm/go-gitignore"
)

// SourceType names how a source tree is expected to be written to.
// AppendOnly is the only value the original implementation defines
// (named Worm in an earlier prototype); it is carried here as a hook
// for future source types without inventing behavior the source never
// had.
type SourceType string

const AppendOnly SourceType = "append_only"

// Source is one root to walk, with include/exclude gitignore-style
// patterns.
type Source struct {
	Root    string
	Include []string
	Exclude []string
	Type    SourceType
}

// Options mirrors original_source/src/cli.rs's top-level Config flags
// that apply across every source.
type Options struct {
	FollowSymlinks bool
	SameFilesystem bool
}

// Entry is one file observed during a walk.
type Entry struct {
	Path string
	Info fs.FileInfo
}

// Walker drives filepath.WalkDir with gitignore-style filtering layered
// on top; there is no third-party recursive-walk library in the
// retrieval pack beyond the pattern-matching library itself, so
// traversal uses the stdlib primitive the teacher's own code favors for
// filesystem layers.
type Walker struct {
	opts Options
}

func NewWalker(opts Options) *Walker {
	return &Walker{opts: opts}
}

// Walk calls fn for every non-directory entry under src.Root that is not
// excluded and, when include patterns are set, matches one of them.
// Symlinks are skipped unless FollowSymlinks is set, in which case they
// are passed to fn as entries and not descended into. Walking stops at
// the first error fn or the traversal itself returns.
func (w *Walker) Walk(src Source, fn func(Entry) error) error {
	var matcher *gitignore.GitIgnore
	if len(src.Exclude) > 0 {
		m, err := gitignore.CompileIgnoreLines(src.Exclude...)
		if err != nil {
			return err
		}
		matcher = m
	}
	var includer *gitignore.GitIgnore
	if len(src.Include) > 0 {
		m, err := gitignore.CompileIgnoreLines(src.Include...)
		if err != nil {
			return err
		}
		includer = m
	}

	rootDev, err := deviceOf(src.Root)
	if err != nil {
		return err
	}

	return filepath.WalkDir(src.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.Type()&fs.ModeSymlink != 0 && !w.opts.FollowSymlinks {
			return nil
		}

		rel, relErr := filepath.Rel(src.Root, path)
		if relErr != nil {
			rel = path
		}

		if matcher != nil && matcher.MatchesPath(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if includer != nil && !d.IsDir() && !includer.MatchesPath(rel) {
			return nil
		}

		if d.IsDir() {
			if w.opts.SameFilesystem {
				dev, err := deviceOf(path)
				if err == nil && dev != rootDev {
					return filepath.SkipDir
				}
			}
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		return fn(Entry{Path: path, Info: info})
	})
}
