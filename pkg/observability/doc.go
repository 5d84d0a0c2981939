// Package observability provides Prometheus metrics for plugin execution:
// run counts and durations by plugin and dispatch mode, admission denials by
// dimension, and gauges for live system resource headroom.
package observability
