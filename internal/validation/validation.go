// Package validation provides input validation for API requests.
package validation

import (
	"errors"
	"path/filepath"
	"strings"
)

var (
	// ErrPathNotAbsolute indicates a relative path was submitted.
	ErrPathNotAbsolute = errors.New("path must be absolute")
	// ErrPathTraversal indicates the path contains parent references.
	ErrPathTraversal = errors.New("path must not contain parent references")
	// ErrPathInvalid indicates the path contains forbidden characters.
	ErrPathInvalid = errors.New("path contains invalid characters")
	// ErrNotAppBundle indicates the path does not name an .app bundle.
	ErrNotAppBundle = errors.New("path must point to an .app bundle")
)

// ValidateBundlePath checks a client-submitted application bundle path
// before any filesystem access happens. The daemon later writes next to
// whatever this path resolves to, so traversal tricks are rejected up
// front rather than at patch time.
func ValidateBundlePath(path string) error {
	if strings.ContainsAny(path, "\x00\n\r") {
		return ErrPathInvalid
	}
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}
	if strings.Contains(path, "..") {
		return ErrPathTraversal
	}
	if !strings.HasSuffix(filepath.Clean(path), ".app") {
		return ErrNotAppBundle
	}
	return nil
}
