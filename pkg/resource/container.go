package resource

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

const (
	imagePullTimeout = 5 * time.Minute

	// logTailLines bounds how much container output a status poll returns.
	logTailLines = "10"
)

// Container status values surfaced to callers. These mirror the daemon's
// state strings; StatusNotFound is synthesized for unknown handles.
const (
	StatusRunning  = "running"
	StatusCreated  = "created"
	StatusExited   = "exited"
	StatusDead     = "dead"
	StatusNotFound = "not_found"
)

// ContainerStatus is a poll result for a dispatched container. ExitCode is
// populated only once the status is terminal.
type ContainerStatus struct {
	Status   string `json:"status"`
	Logs     string `json:"logs"`
	ExitCode *int   `json:"exit_code,omitempty"`
}

// Terminal reports whether the container has stopped running.
func (s *ContainerStatus) Terminal() bool {
	return s.Status != StatusRunning && s.Status != StatusCreated
}

// RunInContainer launches a detached container with the given bind mounts
// (host path -> container path), environment, and memory/CPU limits taken
// from the requirement, returning the container ID as an opaque handle.
func (m *Manager) RunInContainer(ctx context.Context, img string, command []string,
	volumes map[string]string, environment map[string]string, limits *Requirement, name string) (string, error) {

	if m.docker == nil {
		return "", ErrDockerNotAvailable
	}

	if err := m.ensureImage(ctx, img); err != nil {
		return "", err
	}

	binds := make([]string, 0, len(volumes))
	for hostPath, containerPath := range volumes {
		binds = append(binds, fmt.Sprintf("%s:%s", hostPath, containerPath))
	}

	env := make([]string, 0, len(environment))
	for k, v := range environment {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	config := &container.Config{
		Image: img,
		Cmd:   command,
		Env:   env,
	}

	hostConfig := &container.HostConfig{
		Binds: binds,
	}
	if limits != nil {
		memMB := limits.MemoryMB
		if m.cfg.MaxMemoryMB > 0 && memMB > m.cfg.MaxMemoryMB {
			memMB = m.cfg.MaxMemoryMB
		}
		cpus := limits.CPUCores
		if m.cfg.MaxCPU > 0 && cpus > m.cfg.MaxCPU {
			cpus = m.cfg.MaxCPU
		}
		hostConfig.Resources = container.Resources{
			Memory:   memMB * bytesPerMB,
			NanoCPUs: int64(cpus * 1e9),
		}
	}

	resp, err := m.docker.ContainerCreate(ctx, config, hostConfig, nil, nil, name)
	if err != nil {
		return "", fmt.Errorf("%w: create: %v", ErrContainerFailed, err)
	}

	if err := m.docker.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", fmt.Errorf("%w: start: %v", ErrContainerFailed, err)
	}

	m.log.WithField("container_id", short(resp.ID)).Info("Started container")
	return resp.ID, nil
}

// ContainerStatus inspects a dispatched container. An unknown handle maps to
// a not_found status rather than an error; the exit code is populated only
// for terminal states.
func (m *Manager) ContainerStatus(ctx context.Context, id string) (*ContainerStatus, error) {
	if m.docker == nil {
		return nil, ErrDockerNotAvailable
	}

	info, err := m.docker.ContainerInspect(ctx, id)
	if err != nil {
		if client.IsErrNotFound(err) {
			return &ContainerStatus{Status: StatusNotFound}, nil
		}
		return nil, fmt.Errorf("%w: inspect: %v", ErrContainerFailed, err)
	}

	status := &ContainerStatus{Status: info.State.Status}
	if info.State.Status == StatusExited || info.State.Status == StatusDead {
		exitCode := info.State.ExitCode
		status.ExitCode = &exitCode
	}

	status.Logs = m.containerLogs(ctx, id)
	return status, nil
}

// StopContainer stops a container best-effort and reports whether the stop
// succeeded.
func (m *Manager) StopContainer(ctx context.Context, id string) bool {
	if m.docker == nil {
		return false
	}

	if err := m.docker.ContainerStop(ctx, id, container.StopOptions{}); err != nil {
		m.log.WithError(err).WithField("container_id", short(id)).Warn("Failed to stop container")
		return false
	}
	return true
}

// RemoveContainer force-removes a stopped container and its volumes.
func (m *Manager) RemoveContainer(ctx context.Context, id string) {
	if m.docker == nil {
		return
	}
	m.docker.ContainerRemove(ctx, id, container.RemoveOptions{
		Force:         true,
		RemoveVolumes: true,
	})
}

// ensureImage checks the image exists locally and pulls it if missing.
func (m *Manager) ensureImage(ctx context.Context, img string) error {
	if _, err := m.docker.ImageInspect(ctx, img); err == nil {
		return nil
	}

	pullCtx, cancel := context.WithTimeout(ctx, imagePullTimeout)
	defer cancel()

	reader, err := m.docker.ImagePull(pullCtx, img, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("%w: pull %s: %v", ErrContainerFailed, img, err)
	}
	defer reader.Close()

	// Drain the pull stream to completion.
	io.Copy(io.Discard, reader)
	return nil
}

// containerLogs returns a bounded tail of the container's combined output.
// Log retrieval is best-effort; a failure yields an empty string.
func (m *Manager) containerLogs(ctx context.Context, id string) string {
	logs, err := m.docker.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       logTailLines,
	})
	if err != nil {
		return ""
	}
	defer logs.Close()

	var stdout, stderr bytes.Buffer
	stdcopy.StdCopy(&stdout, &stderr, logs)
	if stderr.Len() == 0 {
		return stdout.String()
	}
	return stdout.String() + stderr.String()
}

func short(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
