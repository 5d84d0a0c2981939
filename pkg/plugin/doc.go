// Package plugin defines the contract every unit of work implements and the
// registry that indexes implementations by category and name.
//
// # Plugin System
//
// Plugin interface: the capability set every plugin implements
// (Descriptor, Setup, Execute, Cleanup)
// Registry: explicit factory registration, indexed by category and name
// Descriptor: static metadata (name, category, description, version,
// dependencies, declared resources)
//
// # Registration
//
// Plugins register a factory explicitly rather than being discovered by
// filesystem scanning, so the set of available plugins is enumerable at
// startup:
//
//	reg := plugin.NewRegistry(log)
//	if err := reg.Register(func() plugin.Plugin { return echo.New() }); err != nil {
//		log.WithError(err).Warn("skipping plugin")
//	}
//
// Discover rebuilds the category index on every call; a plugin whose factory
// misbehaves is logged and skipped, never aborting the scan.
//
// # Execution Results
//
// Execute returns a RunResult with a status tag (success or error), a
// human-readable message, and a plugin-specific payload. Callers branch on
// the status tag only; the payload shape is opaque to the core.
//
// # Related Packages
//
//   - pkg/resource: parses Descriptor resource declarations and gates runs
//   - pkg/orchestrator: drives the setup/execute/cleanup lifecycle
package plugin
