package daemon_test

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/GhostFramer/GhostFrame/internal/client"
	"github.com/GhostFramer/GhostFrame/internal/config"
	"github.com/GhostFramer/GhostFrame/internal/daemon"
	"github.com/GhostFramer/GhostFrame/internal/models"
	"github.com/GhostFramer/GhostFrame/internal/snippet"
)

const testToken = "daemon-test-token"

// startDaemon brings up a full instance on an ephemeral port with a
// file-backed database and an isolated scan root.
func startDaemon(t *testing.T) (*daemon.Daemon, string) {
	t.Helper()

	root := t.TempDir()
	watcherEnabled := false
	cfg := &config.Config{
		Server:   config.ServerConfig{Host: "127.0.0.1", Port: 0, AuthToken: testToken},
		Database: config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "daemon.db")},
		Scan:     config.ScanConfig{Roots: []string{root}},
		Watcher:  config.WatcherConfig{Enabled: &watcherEnabled},
	}

	d, err := daemon.New(cfg)
	if err != nil {
		t.Fatalf("failed to build daemon: %v", err)
	}
	if err := d.Start(); err != nil {
		t.Fatalf("failed to start daemon: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.Shutdown(ctx); err != nil {
			t.Errorf("shutdown failed: %v", err)
		}
	})

	return d, root
}

func makeBundle(t *testing.T, root, name string) (bundle, entry string) {
	t.Helper()
	bundle = filepath.Join(root, name)
	entry = filepath.Join(bundle, "Contents", "Resources", "app", "main.js")
	if err := os.MkdirAll(filepath.Dir(entry), 0755); err != nil {
		t.Fatalf("failed to create bundle dirs: %v", err)
	}
	if err := os.WriteFile(entry, []byte("console.log(\"start\")\n"), 0644); err != nil {
		t.Fatalf("failed to write entry script: %v", err)
	}
	return bundle, entry
}

func TestDaemon_ServesVersionProbe(t *testing.T) {
	d, _ := startDaemon(t)

	resp, err := http.Get("http://" + d.Addr() + "/api/version")
	if err != nil {
		t.Fatalf("version probe failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var info map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("failed to decode version info: %v", err)
	}
	if info["version"] == "" {
		t.Error("version info missing version field")
	}
}

func TestDaemon_TokenGuardsAPI(t *testing.T) {
	d, _ := startDaemon(t)

	resp, err := http.Get("http://" + d.Addr() + "/api/apps")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}

	api := client.New("http://"+d.Addr(), d.Token())
	apps, err := api.Apps(context.Background())
	if err != nil {
		t.Fatalf("authenticated list failed: %v", err)
	}
	if len(apps) != 0 {
		t.Errorf("expected empty registry, got %d apps", len(apps))
	}
}

func TestDaemon_UsesConfiguredToken(t *testing.T) {
	d, _ := startDaemon(t)
	if d.Token() != testToken {
		t.Errorf("expected configured token, got %q", d.Token())
	}
}

func TestDaemon_EndToEndProtectionCycle(t *testing.T) {
	d, root := startDaemon(t)
	api := client.New("http://"+d.Addr(), d.Token())
	ctx := context.Background()

	bundlePath, entry := makeBundle(t, root, "Teams.app")

	app, err := api.Track(ctx, bundlePath)
	if err != nil {
		t.Fatalf("track failed: %v", err)
	}
	if app.State != models.StateUnprotected {
		t.Errorf("expected unprotected after track, got %s", app.State)
	}

	app, err = api.SetProtection(ctx, app.ID, true)
	if err != nil {
		t.Fatalf("protect failed: %v", err)
	}
	if app.State != models.StateProtected {
		t.Errorf("expected protected state, got %s", app.State)
	}

	patched, err := os.ReadFile(entry)
	if err != nil {
		t.Fatalf("failed to read entry script: %v", err)
	}
	if !strings.HasPrefix(string(patched), snippet.StartMarker) {
		t.Error("entry script is not patched on disk")
	}

	warning, err := api.Untrack(ctx, app.ID)
	if err != nil {
		t.Fatalf("untrack failed: %v", err)
	}
	if warning != "" {
		t.Errorf("unexpected untrack warning: %q", warning)
	}

	restored, err := os.ReadFile(entry)
	if err != nil {
		t.Fatalf("failed to read entry script: %v", err)
	}
	if string(restored) != "console.log(\"start\")\n" {
		t.Errorf("entry script not restored: %q", restored)
	}
}

func TestDaemon_EventStreamDeliversHello(t *testing.T) {
	d, _ := startDaemon(t)
	api := client.New("http://"+d.Addr(), d.Token())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := api.Events(ctx)
	if err != nil {
		t.Fatalf("failed to open event stream: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var hello models.Event
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("failed to read hello frame: %v", err)
	}
	if hello.Type != models.EventHello {
		t.Errorf("expected %s frame, got %s", models.EventHello, hello.Type)
	}
}
