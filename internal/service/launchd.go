// Package service manages the daemon's launchd agent registration.
package service

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"text/template"
)

const serviceLabel = "com.ghostframe.daemon"

// ServiceStatus represents the status of the launchd agent.
type ServiceStatus struct {
	IsInstalled bool   `json:"is_installed"`
	IsRunning   bool   `json:"is_running"`
	PID         int    `json:"pid,omitempty"`
	State       string `json:"state"`
}

// ServiceConfig holds configuration for agent installation.
type ServiceConfig struct {
	ExecPath   string
	ConfigPath string
	LogPath    string
}

// The agent runs in the user's GUI session: patching and relaunching apps
// only makes sense for the logged-in user, never system-wide.
const plistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{.Label}}</string>
	<key>ProgramArguments</key>
	<array>
		<string>{{.ExecPath}}</string>
		<string>daemon</string>
		<string>run</string>
		<string>--config</string>
		<string>{{.ConfigPath}}</string>
	</array>
	<key>RunAtLoad</key>
	<true/>
	<key>KeepAlive</key>
	<dict>
		<key>SuccessfulExit</key>
		<false/>
	</dict>
	<key>StandardOutPath</key>
	<string>{{.LogPath}}</string>
	<key>StandardErrorPath</key>
	<string>{{.LogPath}}</string>
	<key>ProcessType</key>
	<string>Background</string>
</dict>
</plist>
`

// IsDarwin returns true if running on macOS.
func IsDarwin() bool {
	return runtime.GOOS == "darwin"
}

// IsLaunchctlAvailable checks if the launchctl command is available.
func IsLaunchctlAvailable() bool {
	_, err := exec.LookPath("launchctl")
	return err == nil
}

// PlistPath returns the agent plist location in the user's LaunchAgents.
func PlistPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, "Library", "LaunchAgents", serviceLabel+".plist"), nil
}

// GeneratePlist generates the launchd agent plist content.
func GeneratePlist(cfg ServiceConfig) (string, error) {
	tmpl, err := template.New("plist").Parse(plistTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse plist template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, struct {
		ServiceConfig
		Label string
	}{cfg, serviceLabel})
	if err != nil {
		return "", fmt.Errorf("failed to execute plist template: %w", err)
	}

	return buf.String(), nil
}

// Install writes the agent plist and bootstraps it into the user's session.
func Install(cfg ServiceConfig) error {
	if !IsDarwin() {
		return fmt.Errorf("agent installation only supported on macOS")
	}
	if !IsLaunchctlAvailable() {
		return fmt.Errorf("launchctl not available on this system")
	}

	content, err := GeneratePlist(cfg)
	if err != nil {
		return err
	}

	path, err := PlistPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create LaunchAgents directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write agent plist: %w", err)
	}

	// A stale registration from a previous install would make bootstrap
	// fail with "service already loaded".
	_ = runLaunchctl("bootout", serviceTarget())

	if err := runLaunchctl("bootstrap", domainTarget(), path); err != nil {
		return fmt.Errorf("failed to bootstrap agent: %w", err)
	}

	return nil
}

// Uninstall removes the agent registration and its plist.
func Uninstall() error {
	if !IsDarwin() {
		return fmt.Errorf("agent uninstallation only supported on macOS")
	}
	if !IsLaunchctlAvailable() {
		return fmt.Errorf("launchctl not available on this system")
	}

	// Ignore bootout failure: the agent may not be loaded.
	_ = runLaunchctl("bootout", serviceTarget())

	path, err := PlistPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove agent plist: %w", err)
	}

	return nil
}

// Status returns the current agent status.
func Status() (*ServiceStatus, error) {
	status := &ServiceStatus{State: "not_available"}

	if !IsDarwin() || !IsLaunchctlAvailable() {
		return status, nil
	}

	path, err := PlistPath()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err == nil {
		status.IsInstalled = true
	}

	output, err := exec.Command("launchctl", "print", serviceTarget()).Output()
	if err != nil {
		status.State = "not_loaded"
		return status, nil
	}

	status.State = "loaded"
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "state = ") {
			status.State = strings.TrimPrefix(line, "state = ")
			status.IsRunning = status.State == "running"
		}
		if strings.HasPrefix(line, "pid = ") {
			if pid, err := strconv.Atoi(strings.TrimPrefix(line, "pid = ")); err == nil {
				status.PID = pid
			}
		}
	}

	return status, nil
}

// Restart kills and restarts the agent process.
func Restart() error {
	if !IsDarwin() {
		return fmt.Errorf("agent restart only supported on macOS")
	}
	if !IsLaunchctlAvailable() {
		return fmt.Errorf("launchctl not available on this system")
	}

	return runLaunchctl("kickstart", "-k", serviceTarget())
}

// Stop stops the agent process without unloading it.
func Stop() error {
	if !IsDarwin() {
		return fmt.Errorf("agent stop only supported on macOS")
	}
	if !IsLaunchctlAvailable() {
		return fmt.Errorf("launchctl not available on this system")
	}

	return runLaunchctl("kill", "SIGTERM", serviceTarget())
}

// IsRunningAsService checks if the current process was started by launchd.
func IsRunningAsService() bool {
	// launchd exports XPC_SERVICE_NAME to the jobs it spawns.
	if name := os.Getenv("XPC_SERVICE_NAME"); name != "" && name != "0" {
		return true
	}

	// Alternative: launchd is always PID 1 on macOS.
	return os.Getppid() == 1
}

// GetDefaultConfig returns default agent configuration.
func GetDefaultConfig() ServiceConfig {
	execPath, _ := os.Executable()
	execPath, _ = filepath.EvalSymlinks(execPath)

	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".ghostframe")

	return ServiceConfig{
		ExecPath:   execPath,
		ConfigPath: filepath.Join(base, "config.yaml"),
		LogPath:    filepath.Join(base, "daemon.log"),
	}
}

func domainTarget() string {
	return "gui/" + strconv.Itoa(os.Getuid())
}

func serviceTarget() string {
	return domainTarget() + "/" + serviceLabel
}

// runLaunchctl executes a launchctl command.
func runLaunchctl(args ...string) error {
	cmd := exec.Command("launchctl", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %s", err, string(output))
	}
	return nil
}
