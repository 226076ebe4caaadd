// Package pathutil normalizes filesystem paths for the File Registry
// (spec §4.2: "Absolute paths only (precondition)... normalized (resolve
// ./.., drop redundant separators) before hashing") and converts between
// absolute (internal) and relative (user-facing) representations.
package pathutil

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Normalize makes p absolute (relative to base when p itself is
// relative) and cleans it: resolves "." and ".." elements and collapses
// redundant separators. It does not resolve symlinks — the File
// Registry keys on the path a caller named, not its canonicalized
// target, so that two distinct symlinked paths to one file are tracked
// as distinct FileIDs (the spec does not require symlink-aware identity).
func Normalize(p, base string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("pathutil: empty path")
	}
	if !filepath.IsAbs(p) {
		if base == "" {
			var err error
			base, err = filepath.Abs(".")
			if err != nil {
				return "", fmt.Errorf("pathutil: resolve base: %w", err)
			}
		}
		p = filepath.Join(base, p)
	}
	return filepath.Clean(p), nil
}

// ToRelative converts an absolute path to one relative to rootDir for
// display; paths outside rootDir, or already relative, pass through
// unchanged.
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}
	if !filepath.IsAbs(absPath) {
		return absPath
	}
	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	rel, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		return absPath
	}
	if strings.HasPrefix(rel, "..") {
		return absPath
	}
	return rel
}

// HasPrefix reports whether path lies under (or equals) prefixDir, both
// assumed normalized. Used by the Query Engine's pathFilter arguments.
func HasPrefix(path, prefixDir string) bool {
	if prefixDir == "" {
		return true
	}
	path = filepath.Clean(path)
	prefixDir = filepath.Clean(prefixDir)
	if path == prefixDir {
		return true
	}
	return strings.HasPrefix(path, prefixDir+string(filepath.Separator))
}
