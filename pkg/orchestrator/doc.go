// Package orchestrator drives the plugin execution lifecycle.
//
// Each invocation moves through a small state machine: resolve the plugin in
// the registry, gate it through a resource admission check, then dispatch it
// either in-process or, when local resources are insufficient and a Docker
// daemon is available, inside an isolated container re-invoking the runner
// out-of-band.
//
// Local dispatch guarantees the plugin's Cleanup runs exactly once on every
// exit path, including panics out of Execute; no plugin failure escapes the
// orchestrator as a fault. Container dispatch polls the container on a fixed
// interval until a terminal state, surfacing the log tail at each poll, and
// is cancellable through the caller's context.
package orchestrator
