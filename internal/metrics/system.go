// Package metrics collects the host snapshot shown in the status panel.
package metrics

import (
	"context"
	"sync"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostSnapshot describes the machine the daemon runs on. The platform
// version is the load-bearing field: window content protection and dock
// behavior shift between macOS releases, so support reports need it.
type HostSnapshot struct {
	Hostname        string         `json:"hostname"`
	Platform        string         `json:"platform"`
	PlatformVersion string         `json:"platform_version"`
	KernelArch      string         `json:"kernel_arch"`
	UptimeSeconds   int64          `json:"uptime_seconds"`
	LoadAvg         []float64      `json:"load_avg"`
	Memory          MemorySnapshot `json:"memory"`
}

// MemorySnapshot is the memory slice of the host snapshot.
type MemorySnapshot struct {
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	UsedPercent float64 `json:"used_percent"`
}

// CollectHost gathers the host snapshot. The sources are independent, so
// they run in parallel; a failing source leaves its fields zero rather than
// failing the snapshot.
func CollectHost(ctx context.Context) (*HostSnapshot, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	snapshot := &HostSnapshot{}
	var wg sync.WaitGroup
	var mu sync.Mutex

	wg.Add(1)
	go func() {
		defer wg.Done()
		if ctx.Err() != nil {
			return
		}
		info, err := host.Info()
		if err != nil {
			return
		}
		mu.Lock()
		snapshot.Hostname = info.Hostname
		snapshot.Platform = info.Platform
		snapshot.PlatformVersion = info.PlatformVersion
		snapshot.KernelArch = info.KernelArch
		snapshot.UptimeSeconds = int64(info.Uptime)
		mu.Unlock()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if ctx.Err() != nil {
			return
		}
		avg, err := load.Avg()
		if err != nil {
			return
		}
		mu.Lock()
		snapshot.LoadAvg = []float64{avg.Load1, avg.Load5, avg.Load15}
		mu.Unlock()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if ctx.Err() != nil {
			return
		}
		vmem, err := mem.VirtualMemory()
		if err != nil {
			return
		}
		mu.Lock()
		snapshot.Memory = MemorySnapshot{
			Total:       vmem.Total,
			Used:        vmem.Used,
			UsedPercent: vmem.UsedPercent,
		}
		mu.Unlock()
	}()

	wg.Wait()

	return snapshot, nil
}
