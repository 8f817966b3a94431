package utils

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemInfo is a snapshot of the host and Go runtime.
type SystemInfo struct {
	OS            string  `json:"os"`
	KernelVersion string  `json:"kernel_version"`
	GoVersion     string  `json:"go_version"`
	CPUCount      int     `json:"cpu_count"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemUsedMB     uint64  `json:"mem_used_mb"`
	MemTotalMB    uint64  `json:"mem_total_mb"`
	MemPercent    float64 `json:"mem_percent"`
	Goroutines    int     `json:"goroutines"`
	HostUptimeSec uint64  `json:"host_uptime_sec"`
}

// CollectSystemInfo gathers host statistics. Fields the host does not expose stay zero.
func CollectSystemInfo(ctx context.Context) SystemInfo {
	info := SystemInfo{
		GoVersion:  runtime.Version(),
		Goroutines: runtime.NumGoroutine(),
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		info.CPUCount = n
	}
	if p, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(p) > 0 {
		info.CPUPercent = p[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.MemUsedMB = vm.Used / 1024 / 1024
		info.MemTotalMB = vm.Total / 1024 / 1024
		info.MemPercent = vm.UsedPercent
	}
	if h, err := host.InfoWithContext(ctx); err == nil {
		info.OS = h.Platform + " " + h.PlatformVersion
		info.KernelVersion = h.KernelVersion
		info.HostUptimeSec = h.Uptime
	}
	return info
}
