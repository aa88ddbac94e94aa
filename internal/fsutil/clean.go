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

// Clean removes every path or glob in targets, relative to root. Missing
// targets are not an error, so cleaning twice in a row is a no-op the
// second time. Targets that resolve to root itself or escape it are refused.
// It returns the removed paths.
func Clean(root string, targets []string) ([]string, error) {
	var removed []string
	for _, target := range targets {
		target, err := guard(root, target)
		if err != nil {
			return removed, err
		}

		var victims []string
		if IsGlob(target) {
			base, pattern := doublestar.SplitPattern(target)
			dir := resolve(root, filepath.FromSlash(base))
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				continue
			}
			found, err := doublestar.Glob(os.DirFS(dir), pattern)
			if err != nil {
				return removed, fmt.Errorf("failed to expand '%s': %w", target, err)
			}
			// Deepest first, so removing a directory never races its children.
			sort.Sort(sort.Reverse(sort.StringSlice(found)))
			for _, m := range found {
				victims = append(victims, filepath.Join(dir, filepath.FromSlash(m)))
			}
		} else {
			victims = []string{resolve(root, filepath.FromSlash(target))}
		}

		for _, v := range victims {
			if _, err := os.Lstat(v); os.IsNotExist(err) {
				continue
			}
			if err := os.RemoveAll(v); err != nil {
				return removed, err
			}
			removed = append(removed, v)
		}
	}
	return removed, nil
}

// guard returns target as a clean slash path relative to root, or an error
// when it would reach root itself or anything outside it.
func guard(root, target string) (string, error) {
	original := target
	if filepath.IsAbs(target) {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return "", err
		}
		rel, err := filepath.Rel(absRoot, filepath.Clean(target))
		if err != nil {
			return "", fmt.Errorf("refusing to clean '%s': path must stay inside the project root", original)
		}
		target = rel
	}
	target = path.Clean(filepath.ToSlash(target))
	if target == "." || target == ".." || strings.HasPrefix(target, "../") || path.IsAbs(target) {
		return "", fmt.Errorf("refusing to clean '%s': path must stay inside the project root", original)
	}
	if IsGlob(target) {
		if base, _ := doublestar.SplitPattern(target); base == "." {
			return "", fmt.Errorf("refusing to clean '%s': glob must have a directory prefix", original)
		}
	}
	return target, nil
}
