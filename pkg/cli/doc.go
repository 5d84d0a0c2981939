// Package cli implements the prowl command line interface.
//
// Commands are plain flag.FlagSet wrappers dispatched by name from the root
// command. Every command runs against a locally assembled App: the plugin
// registry with builtins registered, the resource manager, the orchestrator,
// the config store, and the target workspace.
package cli
