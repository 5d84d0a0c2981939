// Package echo is a trivial utility plugin that reflects its options back.
// It exists to verify the execution pipeline end to end with a near-zero
// resource footprint.
package echo

import (
	"context"

	"github.com/prowlsec/prowl/pkg/plugin"
)

// Echo reflects its options back as the run payload.
type Echo struct{}

// New constructs the plugin.
func New() *Echo { return &Echo{} }

// Factory adapts New for registry registration.
func Factory() plugin.Plugin { return New() }

func (e *Echo) Descriptor() *plugin.Descriptor {
	return &plugin.Descriptor{
		Name:        "echo",
		Category:    plugin.CategoryUtility,
		Description: "Echo options back; verifies the execution pipeline",
		Version:     "1.0.0",
		Resources: plugin.ResourceDeclaration{
			Memory: "10MB",
			CPU:    0.1,
			Disk:   "1MB",
		},
	}
}

func (e *Echo) Setup() error { return nil }

func (e *Echo) Execute(ctx context.Context, target string, options map[string]any) (*plugin.RunResult, error) {
	data := make(map[string]any, len(options))
	for k, v := range options {
		data[k] = v
	}
	return plugin.Success("Echo completed", data), nil
}

func (e *Echo) Cleanup() {}

func (e *Echo) Options() []plugin.Option {
	return []plugin.Option{
		{Name: "message", Type: "input", Message: "Message to echo", Default: ""},
	}
}
