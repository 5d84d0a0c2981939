package resource

import (
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

const bytesPerMB = 1024 * 1024

// cpuSampleInterval is how long the busy-cores estimate observes the CPU.
const cpuSampleInterval = 100 * time.Millisecond

// MemoryUsage is system memory state in megabytes.
type MemoryUsage struct {
	TotalMB     float64 `json:"total_mb"`
	AvailableMB float64 `json:"available_mb"`
	UsedMB      float64 `json:"used_mb"`
	Percent     float64 `json:"percent"`
}

// CPUUsage is system CPU state.
type CPUUsage struct {
	Cores   int     `json:"cores"`
	Percent float64 `json:"percent"`
}

// DiskUsage is the working volume's state in megabytes.
type DiskUsage struct {
	TotalMB float64 `json:"total_mb"`
	FreeMB  float64 `json:"free_mb"`
	UsedMB  float64 `json:"used_mb"`
	Percent float64 `json:"percent"`
}

// ProcessUsage is a tracked local process's live usage.
type ProcessUsage struct {
	Name       string        `json:"name"`
	MemoryMB   float64       `json:"memory_mb"`
	CPUPercent float64       `json:"cpu_percent"`
	Runtime    time.Duration `json:"runtime"`
}

// Snapshot is a point-in-time measurement of system resources and tracked
// processes. It is recomputed fresh on every query, never cached; admission
// checks compare against it as the authority.
type Snapshot struct {
	Memory    MemoryUsage            `json:"memory"`
	CPU       CPUUsage               `json:"cpu"`
	Disk      DiskUsage              `json:"disk"`
	Processes map[int32]ProcessUsage `json:"processes"`
}

// AvailableCores estimates idle cores: core count minus a busy-percent
// derived estimate of busy cores.
func (s *Snapshot) AvailableCores() float64 {
	return float64(s.CPU.Cores) - s.CPU.Percent/100*float64(s.CPU.Cores)
}

// collectSnapshot reads system memory, CPU, and disk state. Tracked
// processes are filled in by the Manager, which owns that map.
func collectSnapshot(workDir string) (*Snapshot, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil, fmt.Errorf("%w: memory: %v", ErrSnapshotFailed, err)
	}

	cores, err := cpu.Counts(true)
	if err != nil {
		return nil, fmt.Errorf("%w: cpu count: %v", ErrSnapshotFailed, err)
	}

	// A zero interval reports the delta since the previous call, which for a
	// fresh snapshot is meaningless; sample briefly instead.
	percents, err := cpu.Percent(cpuSampleInterval, false)
	if err != nil || len(percents) == 0 {
		return nil, fmt.Errorf("%w: cpu percent: %v", ErrSnapshotFailed, err)
	}

	if workDir == "" {
		workDir, err = os.Getwd()
		if err != nil {
			workDir = "/"
		}
	}
	du, err := disk.Usage(workDir)
	if err != nil {
		return nil, fmt.Errorf("%w: disk: %v", ErrSnapshotFailed, err)
	}

	return &Snapshot{
		Memory: MemoryUsage{
			TotalMB:     float64(vm.Total) / bytesPerMB,
			AvailableMB: float64(vm.Available) / bytesPerMB,
			UsedMB:      float64(vm.Used) / bytesPerMB,
			Percent:     vm.UsedPercent,
		},
		CPU: CPUUsage{
			Cores:   cores,
			Percent: percents[0],
		},
		Disk: DiskUsage{
			TotalMB: float64(du.Total) / bytesPerMB,
			FreeMB:  float64(du.Free) / bytesPerMB,
			UsedMB:  float64(du.Used) / bytesPerMB,
			Percent: du.UsedPercent,
		},
		Processes: make(map[int32]ProcessUsage),
	}, nil
}
