// Package resource models plugin resource requirements and gates execution
// against live system availability.
//
// Requirement: normalized requirement parsed from a plugin's declaration
// Snapshot: point-in-time read of system memory/CPU/disk/process state
// Manager: admission checks, local process tracking, and Docker dispatch
//
// Admission checks compare a Requirement against a fresh Snapshot in the
// order memory, CPU, disk, network, returning the first failing dimension's
// reason. When local resources are insufficient and a Docker daemon is
// reachable, the Manager can instead launch the work detached in a container
// with matching memory/CPU limits.
package resource
