package resource

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/docker/docker/client"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/sirupsen/logrus"
)

const (
	dockerProbeTimeout  = 5 * time.Second
	networkProbeTimeout = 3 * time.Second

	// networkProbeAddr is the reachability test endpoint for plugins that
	// declare a network requirement.
	networkProbeAddr = "8.8.8.8:53"
)

// Config holds the Manager's resource ceilings and working volume.
type Config struct {
	// MaxMemoryMB caps container memory limits. Defaults to 4G.
	MaxMemoryMB int64
	// MaxCPU caps container CPU limits. Defaults to the host core count.
	MaxCPU float64
	// WorkDir is the volume disk checks run against. Defaults to the
	// process working directory.
	WorkDir string
}

// ConfigFromEnv loads ceilings from PROWL_MAX_MEMORY and PROWL_MAX_CPU,
// falling back to host defaults.
func ConfigFromEnv() Config {
	cfg := Config{
		MaxMemoryMB: ParseMemoryMB(getEnv("PROWL_MAX_MEMORY", "4G")),
		WorkDir:     getEnv("PROWL_WORK_DIR", ""),
	}

	if v, err := strconv.ParseFloat(getEnv("PROWL_MAX_CPU", ""), 64); err == nil && v > 0 {
		cfg.MaxCPU = v
	} else if cores, err := cpu.Counts(true); err == nil {
		cfg.MaxCPU = float64(cores)
	} else {
		cfg.MaxCPU = 1
	}

	return cfg
}

// trackedProcess is a locally running dispatch recorded for usage reporting.
type trackedProcess struct {
	name    string
	req     *Requirement
	started time.Time
}

// Manager queries live resource availability, evaluates requirements
// against it, tracks running local processes, and dispatches containerized
// runs when asked.
//
// The tracked-process map has no cross-Manager protection: the design
// assumes one orchestrated run is admitted and dispatched at a time per
// Manager, with concurrent callers serializing check+dispatch themselves.
type Manager struct {
	cfg Config
	log *logrus.Logger

	// docker is nil when the daemon did not respond at construction.
	docker *client.Client

	mu      sync.Mutex
	tracked map[int32]*trackedProcess

	// Overridable probes for tests.
	probeNetwork func(ctx context.Context) error
	pidAlive     func(pid int32) bool
}

// NewManager constructs a Manager, probing the Docker daemon once. An
// unreachable daemon is a normal, detected condition: container dispatch is
// simply reported unavailable.
func NewManager(cfg Config, log *logrus.Logger) *Manager {
	if log == nil {
		log = logrus.New()
	}

	m := &Manager{
		cfg:          cfg,
		log:          log,
		tracked:      make(map[int32]*trackedProcess),
		probeNetwork: probeNetwork,
		pidAlive:     pidAlive,
	}

	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), dockerProbeTimeout)
		defer cancel()
		if _, err := cli.Ping(ctx); err == nil {
			m.docker = cli
		} else {
			log.WithError(err).Debug("Docker daemon not reachable; container dispatch disabled")
			cli.Close()
		}
	} else {
		log.WithError(err).Debug("Docker client unavailable; container dispatch disabled")
	}

	return m
}

// DockerAvailable reports whether container dispatch was probed as working.
func (m *Manager) DockerAvailable() bool {
	return m.docker != nil
}

// MaxMemoryMB returns the configured memory ceiling.
func (m *Manager) MaxMemoryMB() int64 { return m.cfg.MaxMemoryMB }

// MaxCPU returns the configured CPU ceiling.
func (m *Manager) MaxCPU() float64 { return m.cfg.MaxCPU }

// CheckResources takes a fresh snapshot and evaluates the requirement
// against it, then performs a live connectivity probe if the requirement
// declares network need. The verdict carries a human-readable reason for
// the first failing dimension, checked memory -> CPU -> disk -> network.
func (m *Manager) CheckResources(ctx context.Context, req *Requirement) (bool, string) {
	snap, err := m.Usage()
	if err != nil {
		// Probe failures degrade to a conservative denial, never a fault.
		return false, fmt.Sprintf("Unable to read system resources: %v", err)
	}

	if ok, reason := Evaluate(req, snap); !ok {
		return false, reason
	}

	if req.Network {
		if err := m.probeNetwork(ctx); err != nil {
			return false, "Network connectivity check failed"
		}
	}

	return true, "Sufficient resources available"
}

// Evaluate compares a requirement against a snapshot for memory, CPU, and
// disk, in that order, short-circuiting on the first failing dimension so
// failure messages are deterministic. The network probe is live-only and
// handled by CheckResources.
func Evaluate(req *Requirement, snap *Snapshot) (bool, string) {
	if float64(req.MemoryMB) > snap.Memory.AvailableMB {
		return false, fmt.Sprintf("Not enough memory. Required: %dMB, Available: %.1fMB",
			req.MemoryMB, snap.Memory.AvailableMB)
	}

	if availCores := snap.AvailableCores(); req.CPUCores > availCores {
		return false, fmt.Sprintf("Not enough CPU. Required: %.1f cores, Available: %.1f cores",
			req.CPUCores, availCores)
	}

	if req.DiskMB > 0 && float64(req.DiskMB) > snap.Disk.FreeMB {
		return false, fmt.Sprintf("Not enough disk space. Required: %dMB, Available: %.1fMB",
			req.DiskMB, snap.Disk.FreeMB)
	}

	return true, "Sufficient resources available"
}

// TrackProcess records a locally running dispatch. Callers bracket a local
// run with TrackProcess/UntrackProcess; the Manager does not itself watch
// for termination.
func (m *Manager) TrackProcess(pid int32, name string, req *Requirement) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracked[pid] = &trackedProcess{name: name, req: req, started: time.Now()}
}

// UntrackProcess removes a tracked process. Unknown pids are ignored.
func (m *Manager) UntrackProcess(pid int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tracked, pid)
}

// TrackedCount returns the number of currently tracked processes.
func (m *Manager) TrackedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tracked)
}

// Usage returns a fresh Snapshot. Tracked processes that are no longer
// queryable are removed from tracking during the same call, a lazy
// garbage-collection policy rather than an active watcher.
func (m *Manager) Usage() (*Snapshot, error) {
	snap, err := collectSnapshot(m.cfg.WorkDir)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for pid, info := range m.tracked {
		if !m.pidAlive(pid) {
			delete(m.tracked, pid)
			continue
		}

		usage := ProcessUsage{
			Name:    info.name,
			Runtime: time.Since(info.started),
		}
		if p, err := process.NewProcess(pid); err == nil {
			if mi, err := p.MemoryInfo(); err == nil && mi != nil {
				usage.MemoryMB = float64(mi.RSS) / bytesPerMB
			}
			if pct, err := p.CPUPercent(); err == nil {
				usage.CPUPercent = pct
			}
		}
		snap.Processes[pid] = usage
	}

	return snap, nil
}

func pidAlive(pid int32) bool {
	exists, err := process.PidExists(pid)
	return err == nil && exists
}

func probeNetwork(ctx context.Context) error {
	d := net.Dialer{Timeout: networkProbeTimeout}
	conn, err := d.DialContext(ctx, "tcp", networkProbeAddr)
	if err != nil {
		return err
	}
	return conn.Close()
}

// getEnv returns an environment variable or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
