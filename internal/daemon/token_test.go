package daemon_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/GhostFramer/GhostFrame/internal/daemon"
)

func TestLoadOrCreateToken_GeneratesOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "token")

	token, err := daemon.LoadOrCreateToken(path)
	if err != nil {
		t.Fatalf("LoadOrCreateToken failed: %v", err)
	}
	if len(token) != 64 {
		t.Errorf("expected 64 hex chars, got %d (%q)", len(token), token)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("token file was not written: %v", err)
	}
	if string(data) != token+"\n" {
		t.Errorf("file content %q does not match token %q", data, token)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("failed to stat token file: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("expected mode 0600, got %o", perm)
		}
	}
}

func TestLoadOrCreateToken_ReturnsExistingToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("preexisting-token\n"), 0600); err != nil {
		t.Fatalf("failed to seed token file: %v", err)
	}

	token, err := daemon.LoadOrCreateToken(path)
	if err != nil {
		t.Fatalf("LoadOrCreateToken failed: %v", err)
	}
	if token != "preexisting-token" {
		t.Errorf("expected persisted token, got %q", token)
	}
}

func TestLoadOrCreateToken_StableAcrossCalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")

	first, err := daemon.LoadOrCreateToken(path)
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	second, err := daemon.LoadOrCreateToken(path)
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if first != second {
		t.Errorf("token changed between calls: %q vs %q", first, second)
	}
}

func TestLoadOrCreateToken_RegeneratesEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("\n"), 0600); err != nil {
		t.Fatalf("failed to seed empty token file: %v", err)
	}

	token, err := daemon.LoadOrCreateToken(path)
	if err != nil {
		t.Fatalf("LoadOrCreateToken failed: %v", err)
	}
	if len(token) != 64 {
		t.Errorf("expected a fresh token, got %q", token)
	}
}
