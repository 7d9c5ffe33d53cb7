package services

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/GhostFramer/GhostFrame/internal/config"
	"github.com/GhostFramer/GhostFrame/internal/models"
)

// RunningState is a point-in-time snapshot of a tracked application's
// OS-level process. It is recomputed on every query, never cached.
type RunningState struct {
	CheckedAt time.Time `json:"checked_at"`
	PIDs      []int32   `json:"pids"`
	Running   bool      `json:"running"`
}

// runningProcess is one live process as seen by the enumerator.
type runningProcess struct {
	exe string
	pid int32
}

// ProcessService terminates and relaunches the OS processes behind tracked
// applications. A bundle's processes are matched by executable path prefix:
// everything the bundle runs lives under <bundle>/Contents/MacOS/.
type ProcessService struct {
	// Replaceable seams for tests; defaults enumerate via gopsutil, signal
	// via SIGTERM, and relaunch through LaunchServices.
	list      func() ([]runningProcess, error)
	terminate func(pid int32) error
	launch    func(bundlePath string) error

	pollInterval time.Duration
	settleDelay  time.Duration
	pollAttempts int
}

// NewProcessService creates a process controller with the configured poll
// and settle timings.
func NewProcessService(cfg *config.ProcessConfig) *ProcessService {
	return &ProcessService{
		list:         listProcesses,
		terminate:    terminateProcess,
		launch:       launchBundle,
		pollInterval: cfg.GetPollInterval(),
		settleDelay:  cfg.GetSettleDelay(),
		pollAttempts: cfg.GetPollAttempts(),
	}
}

// FindRunning returns the PIDs of every live process whose executable lives
// inside the application bundle.
func (s *ProcessService) FindRunning(app *models.TrackedApp) ([]int32, error) {
	procs, err := s.list()
	if err != nil {
		return nil, err
	}

	prefix := filepath.Join(app.Path, "Contents", "MacOS") + string(filepath.Separator)
	var pids []int32
	for _, p := range procs {
		if strings.HasPrefix(p.exe, prefix) {
			pids = append(pids, p.pid)
		}
	}
	return pids, nil
}

// IsRunning reports whether any process of the application is alive.
func (s *ProcessService) IsRunning(app *models.TrackedApp) (bool, error) {
	pids, err := s.FindRunning(app)
	if err != nil {
		return false, err
	}
	return len(pids) > 0, nil
}

// RunningState returns a fresh liveness snapshot for the application.
func (s *ProcessService) RunningState(app *models.TrackedApp) (*RunningState, error) {
	pids, err := s.FindRunning(app)
	if err != nil {
		return nil, err
	}
	if pids == nil {
		pids = []int32{}
	}
	return &RunningState{
		CheckedAt: time.Now(),
		PIDs:      pids,
		Running:   len(pids) > 0,
	}, nil
}

// Restart terminates the application's processes, waits a bounded time for
// them to exit, and relaunches the bundle. The wait is a hard ceiling: an
// application that ignores termination is relaunched anyway after the bound
// plus the settle delay. That admits a launch-while-dying race; macOS
// activation keeps the common case harmless because a relaunch request does
// not spawn a second instance while the first still holds its
// single-instance lock.
func (s *ProcessService) Restart(ctx context.Context, app *models.TrackedApp) error {
	pids, err := s.FindRunning(app)
	if err != nil {
		return err
	}

	if len(pids) > 0 {
		log.Printf("[Process] terminating %s (%d process(es))", app.Name, len(pids))
		for _, pid := range pids {
			if err := s.terminate(pid); err != nil {
				log.Printf("[Process] failed to signal pid %d: %v", pid, err)
			}
		}
		if err := s.waitForExit(ctx, app); err != nil {
			return err
		}
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.settleDelay):
	}

	log.Printf("[Process] launching %s", app.Name)
	return s.launch(app.Path)
}

// Launch starts the application if no instance is running.
func (s *ProcessService) Launch(app *models.TrackedApp) error {
	running, err := s.IsRunning(app)
	if err != nil {
		return err
	}
	if running {
		return nil
	}
	return s.launch(app.Path)
}

// waitForExit polls for process exit at the configured interval up to the
// configured attempt ceiling. Returns an error only on cancellation;
// exhausting the attempts is not an error because the caller relaunches
// regardless.
func (s *ProcessService) waitForExit(ctx context.Context, app *models.TrackedApp) error {
	for attempt := 0; attempt < s.pollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.pollInterval):
		}

		pids, err := s.FindRunning(app)
		if err != nil {
			log.Printf("[Process] enumeration failed while waiting for %s: %v", app.Name, err)
			continue
		}
		if len(pids) == 0 {
			return nil
		}
	}

	log.Printf("[Process] %s did not exit within %v, relaunching anyway",
		app.Name, time.Duration(s.pollAttempts)*s.pollInterval)
	return nil
}

func listProcesses() ([]runningProcess, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	entries := make([]runningProcess, 0, len(procs))
	for _, p := range procs {
		exe, err := p.Exe()
		if err != nil {
			// Kernel tasks and other users' processes hide their
			// executable path; none of them are patch targets.
			continue
		}
		entries = append(entries, runningProcess{exe: exe, pid: p.Pid})
	}
	return entries, nil
}

func terminateProcess(pid int32) error {
	p, err := process.NewProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to open process %d: %w", pid, err)
	}
	if err := p.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate process %d: %w", pid, err)
	}
	return nil
}

func launchBundle(bundlePath string) error {
	if err := exec.Command("open", bundlePath).Run(); err != nil {
		return fmt.Errorf("failed to launch %s: %w", bundlePath, err)
	}
	return nil
}
