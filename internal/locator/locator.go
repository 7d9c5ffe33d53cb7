// Package locator discovers installed Electron-based applications and
// resolves the entry script each one boots from. All lookups are
// point-in-time filesystem reads; nothing is cached between calls.
package locator

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotEligible reports that a bundle has no recognized entry script and
// therefore cannot be patched or tracked.
var ErrNotEligible = errors.New("application has no recognized entry script")

// frameworkMarker marks a bundle as Electron-based. Its presence is reported
// to callers but does not by itself make a bundle eligible: only a resolved
// entry script does, since that is the file every patch operates on.
const frameworkMarker = "Contents/Frameworks/Electron Framework.framework"

// entryCandidates is the fixed, ordered list of relative paths probed for a
// bundle's main-process script. The first existing regular file wins. The
// same list backs eligibility, discovery, and add-time resolution, so an
// application reported as discoverable always resolves an entry script.
// Paths inside asar archives are deliberately absent: the patch engine only
// works on plain files.
var entryCandidates = []string{
	"Contents/Resources/app/dist/main.js",
	"Contents/Resources/app/dist/index.js",
	"Contents/Resources/app/build/main.js",
	"Contents/Resources/app/out/main.js",
	"Contents/Resources/app/main.js",
	"Contents/Resources/app/index.js",
}

// Candidate is a discoverable or inspectable application bundle.
type Candidate struct {
	Name         string `json:"name"`
	BundleID     string `json:"bundle_id"`
	Path         string `json:"path"`
	EntryScript  string `json:"entry_script"`
	HasFramework bool   `json:"has_framework"`
}

// Locator scans a set of install roots for eligible applications.
type Locator struct {
	roots []string
}

// New creates a locator over the given install roots. Roots may use a
// leading "~" for the current user's home directory; expansion happens at
// scan time.
func New(roots []string) *Locator {
	return &Locator{roots: roots}
}

// Discover scans each root non-recursively for ".app" bundles, keeping the
// ones with a resolvable entry script. Bundles whose path appears in tracked
// are excluded so the caller never sees duplicate offers. Roots that do not
// exist or cannot be read are skipped. Results are sorted by name.
func (l *Locator) Discover(tracked map[string]bool) ([]Candidate, error) {
	var candidates []Candidate
	seen := make(map[string]bool)

	for _, root := range l.roots {
		root = expandHome(root)
		if root == "" {
			continue
		}
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() || !strings.HasSuffix(entry.Name(), ".app") {
				continue
			}
			bundlePath := filepath.Join(root, entry.Name())
			if tracked[bundlePath] || seen[bundlePath] {
				continue
			}
			candidate, err := l.Inspect(bundlePath)
			if err != nil {
				continue
			}
			seen[bundlePath] = true
			candidates = append(candidates, *candidate)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Name != candidates[j].Name {
			return candidates[i].Name < candidates[j].Name
		}
		return candidates[i].Path < candidates[j].Path
	})
	return candidates, nil
}

// IsEligible reports whether a bundle resolves an entry script.
func (l *Locator) IsEligible(bundlePath string) bool {
	_, err := l.ResolveEntryScript(bundlePath)
	return err == nil
}

// ResolveEntryScript probes the entry candidate paths in order and returns
// the first that exists as a regular file. Returns ErrNotEligible when none
// match.
func (l *Locator) ResolveEntryScript(bundlePath string) (string, error) {
	for _, rel := range entryCandidates {
		path := filepath.Join(bundlePath, filepath.FromSlash(rel))
		info, err := os.Stat(path)
		if err == nil && info.Mode().IsRegular() {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotEligible, bundlePath)
}

// Inspect resolves a single bundle for tracking: it validates the path is a
// directory, resolves the entry script, and reads display name and bundle
// identifier from Contents/Info.plist. A missing or unreadable plist never
// fails the inspection; the name degrades to the bundle directory name.
func (l *Locator) Inspect(bundlePath string) (*Candidate, error) {
	info, err := os.Stat(bundlePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat bundle: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not an application bundle: %s", bundlePath)
	}

	entry, err := l.ResolveEntryScript(bundlePath)
	if err != nil {
		return nil, err
	}

	name, bundleID := readBundleInfo(bundlePath)
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(bundlePath), ".app")
	}

	return &Candidate{
		Name:         name,
		BundleID:     bundleID,
		Path:         bundlePath,
		EntryScript:  entry,
		HasFramework: hasFramework(bundlePath),
	}, nil
}

func hasFramework(bundlePath string) bool {
	_, err := os.Stat(filepath.Join(bundlePath, filepath.FromSlash(frameworkMarker)))
	return err == nil
}

// readBundleInfo extracts the display name and bundle identifier from the
// bundle's Info.plist. Text plists are scanned directly; binary plists fall
// back to `defaults read`, which handles the conversion. Both results may be
// empty.
func readBundleInfo(bundlePath string) (name, bundleID string) {
	plistPath := filepath.Join(bundlePath, "Contents", "Info.plist")
	content, err := os.ReadFile(plistPath)
	if err != nil {
		return "", ""
	}

	text := string(content)
	if strings.HasPrefix(text, "bplist") {
		return defaultsRead(bundlePath, "CFBundleDisplayName", "CFBundleName"),
			defaultsRead(bundlePath, "CFBundleIdentifier")
	}

	name = plistStringValue(text, "CFBundleDisplayName")
	if name == "" {
		name = plistStringValue(text, "CFBundleName")
	}
	return name, plistStringValue(text, "CFBundleIdentifier")
}

// plistStringValue returns the <string> value following the given <key> in a
// text plist, or "" when the key is absent or not a string.
func plistStringValue(content, key string) string {
	idx := strings.Index(content, "<key>"+key+"</key>")
	if idx == -1 {
		return ""
	}
	rest := content[idx+len("<key>"+key+"</key>"):]

	// The value node follows immediately; another <key> first means this
	// key's value was not a string.
	start := strings.Index(rest, "<string>")
	if start == -1 {
		return ""
	}
	if next := strings.Index(rest, "<key>"); next != -1 && next < start {
		return ""
	}
	rest = rest[start+len("<string>"):]
	end := strings.Index(rest, "</string>")
	if end == -1 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}

// defaultsRead shells out to `defaults read` for the first key that yields a
// value. Returns "" when the tool is unavailable or no key resolves.
func defaultsRead(bundlePath string, keys ...string) string {
	plist := filepath.Join(bundlePath, "Contents", "Info")
	for _, key := range keys {
		out, err := exec.Command("defaults", "read", plist, key).Output()
		if err != nil {
			continue
		}
		if value := strings.TrimSpace(string(out)); value != "" {
			return value
		}
	}
	return ""
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
