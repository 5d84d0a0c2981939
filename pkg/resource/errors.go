package resource

import "errors"

var (
	// ErrDockerNotAvailable is returned when container dispatch is requested
	// but no Docker daemon responded at construction time
	ErrDockerNotAvailable = errors.New("docker is not available")

	// ErrContainerFailed is returned when a container fails to launch or inspect
	ErrContainerFailed = errors.New("container execution failed")

	// ErrSnapshotFailed is returned when the system probes cannot be read
	ErrSnapshotFailed = errors.New("failed to read system resources")
)
