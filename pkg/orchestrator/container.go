package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/prowlsec/prowl/pkg/plugin"
	"github.com/prowlsec/prowl/pkg/resource"
)

// containerDataDir is where the shared data directory is mounted inside the
// dispatch container.
const containerDataDir = "/app/data"

// runContainer re-invokes the runner out-of-band inside a container, then
// polls its status until a terminal state, surfacing the log tail at each
// poll. The loop is bounded by the caller's context: cancellation stops the
// container best-effort and fails the run.
func (o *Orchestrator) runContainer(ctx context.Context, entry plugin.Entry, target string,
	options map[string]any, report *Report) {

	log := o.log.WithField("plugin", entry.Descriptor.Name)

	command := []string{"prowl", "run", entry.Descriptor.Name}
	if entry.Descriptor.Category != plugin.CategoryUtility && target != "" {
		command = append(command, "--target", target)
	}
	if len(options) > 0 {
		encoded, err := json.Marshal(options)
		if err != nil {
			report.State = StateFailed
			report.Result = plugin.Errorf("Error encoding options: %v", err)
			return
		}
		command = append(command, "--options", string(encoded))
	}

	dataDir, err := filepath.Abs(o.cfg.DataDir)
	if err != nil {
		report.State = StateFailed
		report.Result = plugin.Errorf("Error resolving data directory: %v", err)
		return
	}

	limits := resource.FromDeclaration(entry.Descriptor.Resources)
	containerName := fmt.Sprintf("prowl-%s-%s", entry.Descriptor.Name, shortID())

	start := time.Now()
	id, err := o.gate.RunInContainer(ctx, o.cfg.Image, command,
		map[string]string{dataDir: containerDataDir},
		map[string]string{"PROWL_MODE": "standalone"},
		limits, containerName)
	if err != nil {
		report.State = StateFailed
		report.Result = plugin.Errorf("Error running container: %v", err)
		o.observeContainer(entry.Descriptor.Name, "launch_failed")
		return
	}
	report.ContainerID = id
	log = log.WithField("container_id", shorten(id))

	status, err := o.pollContainer(ctx, id, log)
	report.Elapsed = time.Since(start)

	// Finished containers are removed so repeated dispatches do not
	// accumulate stopped containers and their volumes.
	if err != nil || status.Status != resource.StatusNotFound {
		defer o.gate.RemoveContainer(context.WithoutCancel(ctx), id)
	}

	switch {
	case err != nil:
		o.gate.StopContainer(context.WithoutCancel(ctx), id)
		report.State = StateFailed
		report.Result = plugin.Errorf("Container run aborted: %v", err)
		o.observeContainer(entry.Descriptor.Name, "aborted")
	case status.Status == resource.StatusNotFound:
		report.State = StateFailed
		report.Result = plugin.Errorf("Container disappeared before completing")
		o.observeContainer(entry.Descriptor.Name, "not_found")
	case status.ExitCode != nil && *status.ExitCode == 0:
		report.State = StateCompleted
		report.Result = plugin.Success("Container completed successfully", map[string]any{
			"logs": status.Logs,
		})
		o.observeContainer(entry.Descriptor.Name, "completed")
	default:
		exitCode := -1
		if status.ExitCode != nil {
			exitCode = *status.ExitCode
		}
		report.State = StateFailed
		result := plugin.Errorf("Container exited with code %d", exitCode)
		if trimmed := strings.TrimSpace(status.Logs); trimmed != "" {
			result.Data = map[string]any{"logs": trimmed}
		}
		report.Result = result
		o.observeContainer(entry.Descriptor.Name, "failed")
	}
}

// pollContainer waits for a terminal container state, checking on a fixed
// interval. Inspect failures surface as errors; cancellation aborts the
// wait.
func (o *Orchestrator) pollContainer(ctx context.Context, id string, log *logrus.Entry) (*resource.ContainerStatus, error) {
	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	for {
		status, err := o.gate.ContainerStatus(ctx, id)
		if err != nil {
			return nil, err
		}

		log.WithField("status", status.Status).Debug("Container poll")
		if tail := strings.TrimSpace(status.Logs); tail != "" {
			log.WithField("logs", tail).Debug("Container log tail")
		}

		if status.Terminal() {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (o *Orchestrator) observeContainer(pluginName, outcome string) {
	if o.metrics != nil {
		o.metrics.ContainerDispatchTotal.WithLabelValues(pluginName, outcome).Inc()
	}
}

func shortID() string {
	return uuid.NewString()[:8]
}

func shorten(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
