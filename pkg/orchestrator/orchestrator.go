package orchestrator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/prowlsec/prowl/pkg/observability"
	"github.com/prowlsec/prowl/pkg/plugin"
	"github.com/prowlsec/prowl/pkg/resource"
)

// Config holds orchestrator settings.
type Config struct {
	// Image is the container image used for out-of-band dispatch.
	Image string
	// DataDir is the shared data directory mounted into containers.
	DataDir string
	// PollInterval is the container status polling cadence.
	PollInterval time.Duration
}

// DefaultConfig returns the standard orchestrator settings.
func DefaultConfig() Config {
	return Config{
		Image:        "prowl:latest",
		DataDir:      "data",
		PollInterval: 5 * time.Second,
	}
}

// Orchestrator resolves plugins, gates them through admission, and drives
// the setup/execute/cleanup lifecycle with local or container dispatch.
type Orchestrator struct {
	registry *plugin.Registry
	gate     ResourceGate
	cfg      Config
	log      *logrus.Logger
	metrics  *observability.Metrics
}

// New creates an Orchestrator. metrics may be nil.
func New(registry *plugin.Registry, gate ResourceGate, cfg Config, log *logrus.Logger, metrics *observability.Metrics) *Orchestrator {
	if log == nil {
		log = logrus.New()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	if cfg.Image == "" {
		cfg.Image = DefaultConfig().Image
	}
	return &Orchestrator{
		registry: registry,
		gate:     gate,
		cfg:      cfg,
		log:      log,
		metrics:  metrics,
	}
}

// ListPlugins returns descriptors indexed by category and name, optionally
// filtered to a single category.
func (o *Orchestrator) ListPlugins(category string) map[string]map[string]*plugin.Descriptor {
	out := make(map[string]map[string]*plugin.Descriptor)
	for cat, entries := range o.registry.Discover() {
		if category != "" && cat != category {
			continue
		}
		out[cat] = make(map[string]*plugin.Descriptor, len(entries))
		for name, entry := range entries {
			out[cat][name] = entry.Descriptor
		}
	}
	return out
}

// Check performs the admission check for a plugin without dispatching it.
func (o *Orchestrator) Check(ctx context.Context, name string) (bool, string, error) {
	entry, ok := o.registry.Resolve(name)
	if !ok {
		return false, "", fmt.Errorf("plugin not found: %s", name)
	}

	req := resource.FromDeclaration(entry.Descriptor.Resources)
	admitted, reason := o.gate.CheckResources(ctx, req)
	return admitted, reason, nil
}

// Usage returns a fresh resource snapshot and refreshes the resource gauges.
func (o *Orchestrator) Usage() (*resource.Snapshot, error) {
	snap, err := o.gate.Usage()
	if err != nil {
		return nil, err
	}

	if o.metrics != nil {
		o.metrics.MemoryAvailableMB.Set(snap.Memory.AvailableMB)
		o.metrics.CPUAvailableCores.Set(snap.AvailableCores())
		o.metrics.DiskFreeMB.Set(snap.Disk.FreeMB)
		o.metrics.TrackedProcesses.Set(float64(len(snap.Processes)))
	}
	return snap, nil
}

// RunOptions modify a single orchestrated run.
type RunOptions struct {
	// ForceContainer dispatches into a container even when the local
	// admission check passes.
	ForceContainer bool
}

// Run executes a plugin end to end: resolve, admit, dispatch. Failures are
// always normalized into a failed Report; Run never panics and never returns
// a nil Result.
func (o *Orchestrator) Run(ctx context.Context, name, target string, options map[string]any, opts RunOptions) *Report {
	report := &Report{
		RunID:    uuid.NewString(),
		Plugin:   name,
		Target:   target,
		Dispatch: DispatchLocal,
		State:    StateResolving,
	}
	log := o.log.WithFields(logrus.Fields{"plugin": name, "run_id": report.RunID})

	// Resolving
	entry, ok := o.registry.Resolve(name)
	if !ok {
		report.State = StateFailed
		report.Result = plugin.Errorf("Plugin '%s' not found", name)
		return report
	}

	if entry.Descriptor.Category == plugin.CategoryUtility {
		report.Target = ""
		target = ""
	}

	// Admitting
	report.State = StateAdmitting
	req := resource.FromDeclaration(entry.Descriptor.Resources)
	admitted, reason := o.gate.CheckResources(ctx, req)
	if o.metrics != nil {
		o.metrics.ObserveAdmission(name, admitted, observability.DenialDimension(reason))
	}

	switch {
	case admitted && !opts.ForceContainer:
		report.State = StateDispatchingLocal
	case o.gate.DockerAvailable():
		if !admitted {
			log.WithField("reason", reason).Info("Insufficient local resources, falling back to container dispatch")
		}
		report.Dispatch = DispatchContainer
		report.State = StateDispatchingContainer
	case opts.ForceContainer:
		report.State = StateFailed
		report.Result = plugin.Errorf("Container dispatch requested but %v", resource.ErrDockerNotAvailable)
		return report
	default:
		report.State = StateFailed
		report.Result = plugin.Errorf("Insufficient resources: %s", reason)
		return report
	}

	if report.Dispatch == DispatchContainer {
		o.runContainer(ctx, entry, target, options, report)
	} else {
		o.runLocal(ctx, entry, target, options, req, report)
	}

	if o.metrics != nil {
		o.metrics.ObserveRun(name, report.Dispatch, string(report.Result.Status), report.Elapsed)
	}
	return report
}

// runLocal invokes Setup, then Execute under a guaranteed single Cleanup on
// every exit path. Elapsed wall time is measured around Execute only.
func (o *Orchestrator) runLocal(ctx context.Context, entry plugin.Entry, target string,
	options map[string]any, req *resource.Requirement, report *Report) {

	log := o.log.WithField("plugin", entry.Descriptor.Name)

	p := entry.New()
	if p == nil {
		report.State = StateFailed
		report.Result = plugin.Errorf("Plugin '%s' could not be instantiated", entry.Descriptor.Name)
		return
	}

	if err := p.Setup(); err != nil {
		// Setup failures are logged, never raised; the plugin reports its
		// own degraded state through the execute result.
		log.WithError(err).Warn("Plugin setup reported an error")
	}
	defer p.Cleanup()

	pid := int32(os.Getpid())
	o.gate.TrackProcess(pid, entry.Descriptor.Name, req)
	defer o.gate.UntrackProcess(pid)

	var (
		result *plugin.RunResult
		err    error
	)
	start := time.Now()
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				err = fmt.Errorf("plugin panicked: %v", rec)
			}
		}()
		result, err = p.Execute(ctx, target, options)
	}()
	report.Elapsed = time.Since(start)

	switch {
	case err != nil:
		report.State = StateFailed
		report.Result = plugin.Errorf("Error running plugin: %v", err)
	case result == nil:
		report.State = StateFailed
		report.Result = plugin.Errorf("Plugin '%s' returned no result", entry.Descriptor.Name)
	case result.Status != plugin.StatusSuccess:
		report.State = StateFailed
		report.Result = result
	default:
		report.State = StateCompleted
		report.Result = result
		log.WithField("elapsed", report.Elapsed.Round(time.Millisecond)).Info("Plugin completed")
	}
}
