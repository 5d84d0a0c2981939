package plugin

import (
	"context"
	"fmt"
)

// RunStatus is the outcome tag of a plugin execution.
type RunStatus string

const (
	StatusSuccess RunStatus = "success"
	StatusError   RunStatus = "error"
)

// RunResult is returned by every plugin execution. Callers must branch only
// on Status; Data is plugin-specific and opaque to the core.
type RunResult struct {
	Status  RunStatus      `json:"status"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

// Success builds a success result with the given message and payload.
func Success(message string, data map[string]any) *RunResult {
	return &RunResult{Status: StatusSuccess, Message: message, Data: data}
}

// Errorf builds an error result from a format string.
func Errorf(format string, args ...any) *RunResult {
	return &RunResult{Status: StatusError, Message: fmt.Sprintf(format, args...)}
}

// ResourceDeclaration is the raw resource requirement a plugin declares.
// Memory and Disk are magnitude strings ("500MB", "2G", "100"); empty or
// unparseable values fall back to documented defaults at admission time.
type ResourceDeclaration struct {
	Memory  string  `yaml:"memory" json:"memory"`
	CPU     float64 `yaml:"cpu" json:"cpu"`
	Disk    string  `yaml:"disk" json:"disk"`
	Network bool    `yaml:"network" json:"network"`
}

// Descriptor describes a plugin's static metadata.
type Descriptor struct {
	Name         string              `json:"name"`         // Unique registry key
	Category     string              `json:"category"`     // Grouping key (recon, scan, utility, ...)
	Description  string              `json:"description"`  // Human-readable description
	Version      string              `json:"version"`      // Semver
	Dependencies []string            `json:"dependencies"` // Plugin names expected to have run first (advisory)
	Resources    ResourceDeclaration `json:"resources"`    // Declared resource requirement
}

// CategoryUtility marks plugins that run without a target.
const CategoryUtility = "utility"

// Option declares a configurable parameter for the CLI and interactive
// shells. It is descriptive only; the core's dispatch logic never reads it.
type Option struct {
	Name    string `json:"name"`
	Type    string `json:"type"` // input, confirm
	Message string `json:"message"`
	Default any    `json:"default,omitempty"`
}

// Plugin is the base interface all plugins must implement.
//
// Setup is idempotent initialization; it may probe for external tool
// availability. A Setup error is logged by the orchestrator, not raised.
// Cleanup is always invoked after Execute, regardless of outcome.
type Plugin interface {
	Descriptor() *Descriptor
	Setup() error
	Execute(ctx context.Context, target string, options map[string]any) (*RunResult, error)
	Cleanup()
}

// OptionProvider is an optional plugin interface exposing declared options
// to the CLI shell.
type OptionProvider interface {
	Options() []Option
}

// Factory constructs a fresh plugin instance per run.
type Factory func() Plugin
