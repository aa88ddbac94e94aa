package fsutil

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Match is a file selected by a list of source patterns.
type Match struct {
	// Path is the file's location on disk.
	Path string
	// Rel is the slash-separated path relative to the pattern's base, i.e.
	// the part of the path matched by the glob. Literal paths keep only
	// their file name.
	Rel string
}

// Selection is the result of expanding a pattern list.
type Selection struct {
	Matches []Match
	// Missing lists literal (non-glob) patterns that did not exist.
	Missing []string
}

// IsGlob reports whether pattern contains glob meta characters.
func IsGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// SplitNegations separates "!pattern" exclusions from inclusions.
func SplitNegations(patterns []string) (include, exclude []string) {
	for _, p := range patterns {
		if strings.HasPrefix(p, "!") {
			exclude = append(exclude, strings.TrimPrefix(p, "!"))
			continue
		}
		include = append(include, p)
	}
	return include, exclude
}

// Base returns the static directory prefix of a pattern, the part before the
// first path segment containing glob meta characters. For a literal path it
// is the parent directory.
func Base(pattern string) string {
	pattern = path.Clean(filepath.ToSlash(pattern))
	if !IsGlob(pattern) {
		return path.Dir(pattern)
	}
	base, _ := doublestar.SplitPattern(pattern)
	return base
}

// Expand resolves source patterns relative to root, in declaration order.
// Exclusions ("!pattern") remove matches from every inclusion, and a file
// selected by more than one inclusion is returned once, for the first one.
func Expand(root string, patterns []string) (*Selection, error) {
	include, exclude := SplitNegations(patterns)
	for _, p := range append(append([]string{}, include...), exclude...) {
		if !doublestar.ValidatePattern(filepath.ToSlash(p)) {
			return nil, fmt.Errorf("invalid pattern '%s'", p)
		}
	}

	sel := &Selection{}
	seen := make(map[string]struct{})
	add := func(rootRel, rel string) {
		if _, dup := seen[rootRel]; dup || excluded(rootRel, exclude) {
			return
		}
		seen[rootRel] = struct{}{}
		sel.Matches = append(sel.Matches, Match{
			Path: resolve(root, filepath.FromSlash(rootRel)),
			Rel:  rel,
		})
	}

	for _, p := range include {
		p = path.Clean(filepath.ToSlash(p))

		if !IsGlob(p) {
			info, err := os.Stat(resolve(root, filepath.FromSlash(p)))
			if err != nil {
				if os.IsNotExist(err) {
					sel.Missing = append(sel.Missing, p)
					continue
				}
				return nil, err
			}
			if !info.IsDir() {
				add(p, path.Base(p))
			}
			continue
		}

		base, pattern := doublestar.SplitPattern(p)
		dir := resolve(root, filepath.FromSlash(base))
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		found, err := doublestar.Glob(os.DirFS(dir), pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("failed to expand '%s': %w", p, err)
		}
		sort.Strings(found)
		for _, m := range found {
			add(path.Join(base, m), m)
		}
	}
	return sel, nil
}

// MatchAny reports whether the slash path rel (relative to the pattern
// root) is selected by patterns, honouring "!" exclusions.
func MatchAny(patterns []string, rel string) bool {
	include, exclude := SplitNegations(patterns)
	rel = path.Clean(filepath.ToSlash(rel))
	if excluded(rel, exclude) {
		return false
	}
	for _, p := range include {
		if ok, _ := doublestar.Match(path.Clean(filepath.ToSlash(p)), rel); ok {
			return true
		}
	}
	return false
}

func excluded(rel string, exclude []string) bool {
	for _, p := range exclude {
		if ok, _ := doublestar.Match(path.Clean(filepath.ToSlash(p)), rel); ok {
			return true
		}
	}
	return false
}

func resolve(root, p string) string {
	if filepath.IsAbs(p) || root == "" {
		return p
	}
	return filepath.Join(root, p)
}
