// Package target manages per-target workspace directories under the data
// root: a fixed subdirectory per plugin category for run artifacts plus a
// YAML metadata record describing the engagement.
package target
