// Package config is a YAML-file-backed key/value store.
//
// The core treats it as opaque storage for small persisted values (the
// currently selected target) plus optional per-plugin configuration files.
// Store.Watch uses fsnotify to reload the main file when it changes on disk,
// so a value edited by another process is visible without restart.
package config
