// Package patch reads and writes the marker-delimited protection block at
// the top of a target application's entry script, keeping a one-time backup
// of the pre-patch content alongside it. The package is a stateless
// transformer over the paths it is given: it knows nothing about tracked
// applications or processes, and it treats everything outside its own marker
// block as opaque bytes.
package patch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// BackupSuffix is appended to an entry script path to form its backup path.
const BackupSuffix = ".ghostframe.backup"

// ErrPermissionDenied reports that the entry script cannot be written. The
// usual remediation is a macOS privacy grant, not a retry, so callers surface
// it differently from ordinary I/O errors.
var ErrPermissionDenied = errors.New("permission denied")

// Store applies and removes patch blocks. The marker strings are injected at
// construction so the store never depends on how snippets are generated.
type Store struct {
	startMarker string
	endMarker   string
}

// NewStore creates a patch store recognizing blocks delimited by the given
// marker lines.
func NewStore(startMarker, endMarker string) *Store {
	return &Store{
		startMarker: startMarker,
		endMarker:   endMarker,
	}
}

// BackupPath returns the backup file path for an entry script.
func (s *Store) BackupPath(entryPath string) string {
	return entryPath + BackupSuffix
}

// Apply writes the snippet to the top of the entry script. The original
// content is captured into a backup file the first time an entry script is
// patched; every apply rebuilds the file from that backup, so repeated
// applies (with the same or a different snippet) always yield exactly one
// block followed by the pristine original.
func (s *Store) Apply(entryPath, snippet string) error {
	info, err := os.Stat(entryPath)
	if err != nil {
		return fmt.Errorf("failed to stat entry script: %w", err)
	}

	// Writability check comes before the backup so a permissions problem
	// never leaves a backup behind for a patch that was never written.
	f, err := os.OpenFile(entryPath, os.O_WRONLY, 0)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, entryPath)
		}
		return fmt.Errorf("failed to open entry script: %w", err)
	}
	_ = f.Close()

	if err := s.ensureBackup(entryPath, info.Mode()); err != nil {
		return err
	}

	original, err := os.ReadFile(s.BackupPath(entryPath))
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}

	if !strings.HasSuffix(snippet, "\n") {
		snippet += "\n"
	}
	return s.writeAtomic(entryPath, append([]byte(snippet), original...), info.Mode())
}

// Remove restores the entry script from its backup. A missing backup means
// nothing was ever applied (or it was already restored) and is a no-op
// success. The backup file is never deleted; enable/disable cycles reuse it.
func (s *Store) Remove(entryPath string) error {
	original, err := os.ReadFile(s.BackupPath(entryPath))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}
	return s.writeAtomic(entryPath, original, entryMode(entryPath))
}

// IsPatched reports whether the entry script currently contains the start
// marker.
func (s *Store) IsPatched(entryPath string) (bool, error) {
	content, err := os.ReadFile(entryPath)
	if err != nil {
		return false, fmt.Errorf("failed to read entry script: %w", err)
	}
	return strings.Contains(string(content), s.startMarker), nil
}

// Verify reports whether the entry script begins with exactly the expected
// snippet. A block left over from an earlier flag combination still counts
// as patched for IsPatched but fails Verify, which is how drift is detected.
func (s *Store) Verify(entryPath, snippet string) (bool, error) {
	content, err := os.ReadFile(entryPath)
	if err != nil {
		return false, fmt.Errorf("failed to read entry script: %w", err)
	}
	return strings.HasPrefix(string(content), snippet), nil
}

// Restore forces the entry script back to its recorded original regardless
// of current content. When the backup is missing but a marker block is
// present, the block is stripped instead: the delimited region is exactly
// what Apply added, and everything after it is the untouched original.
func (s *Store) Restore(entryPath string) error {
	original, err := os.ReadFile(s.BackupPath(entryPath))
	if err == nil {
		return s.writeAtomic(entryPath, original, entryMode(entryPath))
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read backup: %w", err)
	}

	content, err := os.ReadFile(entryPath)
	if err != nil {
		return fmt.Errorf("failed to read entry script: %w", err)
	}
	text := string(content)
	if !strings.Contains(text, s.startMarker) {
		return nil
	}
	stripped, ok := s.stripBlock(text)
	if !ok {
		return fmt.Errorf("marker block in %s is truncated and no backup exists", filepath.Base(entryPath))
	}
	return s.writeAtomic(entryPath, []byte(stripped), entryMode(entryPath))
}

// ensureBackup captures the current entry content as the backup if no backup
// exists yet. An existing backup is never overwritten: the first capture is
// the only content every later apply and restore derives from, and
// re-capturing could record an already-patched file as the original.
func (s *Store) ensureBackup(entryPath string, mode fs.FileMode) error {
	backupPath := s.BackupPath(entryPath)
	if _, err := os.Stat(backupPath); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat backup: %w", err)
	}

	content, err := os.ReadFile(entryPath)
	if err != nil {
		return fmt.Errorf("failed to read entry script: %w", err)
	}
	return s.writeAtomic(backupPath, content, mode)
}

// writeAtomic writes content to path via a temp file in the same directory
// followed by a rename, so a crash mid-write cannot leave a truncated file.
func (s *Store) writeAtomic(path string, content []byte, mode fs.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".ghostframe-*")
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, filepath.Dir(path))
		}
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, mode.Perm()); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

// stripBlock removes the first marker-delimited block from text, including
// the newline terminating the end-marker line. Returns false when a start
// marker is present without a matching end marker.
func (s *Store) stripBlock(text string) (string, bool) {
	start := strings.Index(text, s.startMarker)
	if start == -1 {
		return text, true
	}
	end := strings.Index(text[start:], s.endMarker)
	if end == -1 {
		return text, false
	}
	after := start + end + len(s.endMarker)
	if after < len(text) && text[after] == '\n' {
		after++
	}
	return text[:start] + text[after:], true
}

func entryMode(path string) fs.FileMode {
	if info, err := os.Stat(path); err == nil {
		return info.Mode()
	}
	return 0644
}
