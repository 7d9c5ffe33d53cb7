// Package upgrade provides self-update from GitHub releases.
package upgrade

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/GhostFramer/GhostFrame/internal/version"
)

const (
	githubRepo = "GhostFramer/GhostFrame"
	githubAPI  = "https://api.github.com/repos/" + githubRepo + "/releases/latest"
)

var httpClient = &http.Client{Timeout: 5 * time.Minute}

// GitHubRelease represents a GitHub release with its metadata.
type GitHubRelease struct {
	TagName string `json:"tag_name"`
	Name    string `json:"name"`
	HTMLURL string `json:"html_url"`
	Body    string `json:"body"`
	Assets  []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

// CheckLatestVersion fetches the latest release from GitHub.
func CheckLatestVersion(ctx context.Context) (*GitHubRelease, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, githubAPI, nil)
	if err != nil {
		return nil, err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to check for updates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to check for updates: HTTP %d", resp.StatusCode)
	}

	var release GitHubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to parse release info: %w", err)
	}

	return &release, nil
}

// NeedsUpgrade compares the running version with the latest release tag.
// Dev builds always report true.
func NeedsUpgrade(latest string) bool {
	current := strings.TrimPrefix(version.Version, "v")
	latest = strings.TrimPrefix(latest, "v")

	if strings.Contains(current, "-") || current == "dev" {
		return true
	}

	return current != latest
}

// AssetName returns the release asset name for the current platform.
func AssetName() string {
	return fmt.Sprintf("ghostframe-%s-%s", runtime.GOOS, runtime.GOARCH)
}

// FindAssetURL finds the download URL for the current platform.
func FindAssetURL(release *GitHubRelease) (string, error) {
	expected := AssetName()

	for _, asset := range release.Assets {
		if asset.Name == expected {
			return asset.BrowserDownloadURL, nil
		}
	}

	return "", fmt.Errorf("no release asset found for %s/%s", runtime.GOOS, runtime.GOARCH)
}

// Download fetches the new binary into a temporary file and returns its
// path. progressFn, when non-nil, is called as bytes arrive.
func Download(ctx context.Context, url string, progressFn func(downloaded, total int64)) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download: HTTP %d", resp.StatusCode)
	}

	tmpFile, err := os.CreateTemp("", "ghostframe-upgrade-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer tmpFile.Close()

	var downloaded int64
	total := resp.ContentLength
	buf := make([]byte, 32*1024)

	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := tmpFile.Write(buf[:n]); writeErr != nil {
				os.Remove(tmpFile.Name())
				return "", fmt.Errorf("failed to write temp file: %w", writeErr)
			}
			downloaded += int64(n)
			if progressFn != nil {
				progressFn(downloaded, total)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			os.Remove(tmpFile.Name())
			return "", fmt.Errorf("failed to download: %w", err)
		}
	}

	return tmpFile.Name(), nil
}

// Install replaces the current binary with the downloaded one, keeping a
// backup until the swap succeeds.
func Install(tmpPath string) error {
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return fmt.Errorf("failed to resolve executable path: %w", err)
	}

	backupPath := execPath + ".backup"
	if err := os.Rename(execPath, backupPath); err != nil {
		return fmt.Errorf("failed to backup current binary: %w", err)
	}

	if err := os.Rename(tmpPath, execPath); err != nil {
		_ = os.Rename(backupPath, execPath)
		return fmt.Errorf("failed to install new binary: %w", err)
	}

	if err := os.Chmod(execPath, 0755); err != nil {
		_ = os.Rename(backupPath, execPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	_ = os.Remove(backupPath)

	return nil
}

// Run performs the full upgrade: check, download, swap the binary.
func Run(ctx context.Context, force bool) error {
	fmt.Printf("Current version: %s\n", version.Version)
	fmt.Println("Checking for updates...")

	release, err := CheckLatestVersion(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Latest version: %s\n", release.TagName)

	if !force && !NeedsUpgrade(release.TagName) {
		fmt.Println("You are already running the latest version.")
		return nil
	}

	assetURL, err := FindAssetURL(release)
	if err != nil {
		return err
	}

	fmt.Printf("Downloading %s...\n", AssetName())

	tmpPath, err := Download(ctx, assetURL, func(downloaded, total int64) {
		if total > 0 {
			pct := float64(downloaded) / float64(total) * 100
			fmt.Printf("\rDownloading: %.1f%% (%d/%d bytes)", pct, downloaded, total)
		} else {
			fmt.Printf("\rDownloading: %d bytes", downloaded)
		}
	})
	if err != nil {
		return err
	}
	fmt.Println()

	fmt.Println("Installing...")
	if err := Install(tmpPath); err != nil {
		os.Remove(tmpPath)
		return err
	}

	fmt.Printf("Successfully upgraded to %s!\n", release.TagName)
	fmt.Println("Restart the daemon to pick up the new binary (ghostframe daemon restart).")

	return nil
}
