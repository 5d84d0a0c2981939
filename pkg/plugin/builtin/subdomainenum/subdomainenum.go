// Package subdomainenum enumerates subdomains of a target domain by fanning
// out to whichever external enumeration tools are installed and merging
// their output.
package subdomainenum

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/prowlsec/prowl/pkg/plugin"
)

// knownTools maps tool binaries to the argument list that emits one
// subdomain per stdout line for a given domain.
var knownTools = map[string]func(domain string, passive bool) []string{
	"subfinder":   func(d string, _ bool) []string { return []string{"-silent", "-d", d} },
	"assetfinder": func(d string, _ bool) []string { return []string{"--subs-only", d} },
	"findomain":   func(d string, _ bool) []string { return []string{"-q", "-t", d} },
	"amass": func(d string, passive bool) []string {
		args := []string{"enum", "-d", d}
		if passive {
			args = append(args, "-passive")
		}
		return args
	},
}

// Enum is the subdomain enumeration plugin.
type Enum struct {
	log       *logrus.Logger
	available []string

	// lookPath is swappable for tests.
	lookPath func(string) (string, error)
	// runTool is swappable for tests; returns tool stdout.
	runTool func(ctx context.Context, tool string, args []string) ([]byte, error)
}

// New constructs the plugin.
func New(log *logrus.Logger) *Enum {
	if log == nil {
		log = logrus.New()
	}
	return &Enum{
		log:      log,
		lookPath: exec.LookPath,
		runTool:  runTool,
	}
}

// Factory adapts New for registry registration.
func Factory() plugin.Plugin { return New(nil) }

func (e *Enum) Descriptor() *plugin.Descriptor {
	return &plugin.Descriptor{
		Name:        "subdomain_enum",
		Category:    "recon",
		Description: "Enumerate subdomains using available external tools",
		Version:     "1.0.0",
		Resources: plugin.ResourceDeclaration{
			Memory:  "500MB",
			CPU:     1,
			Disk:    "50MB",
			Network: true,
		},
	}
}

// Setup probes which enumeration tools are on PATH. Having none is a
// degraded state, not a setup failure that blocks enrollment elsewhere.
func (e *Enum) Setup() error {
	e.available = e.available[:0]
	for tool := range knownTools {
		if _, err := e.lookPath(tool); err == nil {
			e.available = append(e.available, tool)
		}
	}
	sort.Strings(e.available)

	if len(e.available) == 0 {
		return fmt.Errorf("no subdomain enumeration tools available")
	}
	return nil
}

func (e *Enum) Execute(ctx context.Context, target string, options map[string]any) (*plugin.RunResult, error) {
	if target == "" {
		return plugin.Errorf("No target domain provided"), nil
	}
	if len(e.available) == 0 {
		return plugin.Errorf("No subdomain enumeration tools available"), nil
	}

	passive, _ := options["passive_only"].(bool)

	var (
		mu      sync.Mutex
		found   = make(map[string]struct{})
		sources = make(map[string]int)
	)

	// Tools run concurrently; a single tool failing is recorded and skipped,
	// it does not fail the run.
	g, gctx := errgroup.WithContext(ctx)
	for _, tool := range e.available {
		g.Go(func() error {
			args := knownTools[tool](target, passive)
			out, err := e.runTool(gctx, tool, args)
			if err != nil {
				e.log.WithError(err).WithField("tool", tool).Warn("Enumeration tool failed")
				return nil
			}

			count := 0
			scanner := bufio.NewScanner(bytes.NewReader(out))
			for scanner.Scan() {
				sub := strings.ToLower(strings.TrimSpace(scanner.Text()))
				if sub == "" || !strings.HasSuffix(sub, target) {
					continue
				}
				mu.Lock()
				found[sub] = struct{}{}
				mu.Unlock()
				count++
			}

			mu.Lock()
			sources[tool] = count
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	subdomains := make([]string, 0, len(found))
	for sub := range found {
		subdomains = append(subdomains, sub)
	}
	sort.Strings(subdomains)

	if dir, _ := options["output_dir"].(string); dir != "" {
		if err := writeResults(dir, target, subdomains); err != nil {
			e.log.WithError(err).Warn("Failed to write subdomain results")
		}
	}

	return plugin.Success(
		fmt.Sprintf("Found %d subdomains using %d tools", len(subdomains), len(e.available)),
		map[string]any{
			"subdomains": subdomains,
			"sources":    sources,
		}), nil
}

func (e *Enum) Cleanup() {}

func (e *Enum) Options() []plugin.Option {
	return []plugin.Option{
		{Name: "passive_only", Type: "confirm", Message: "Passive enumeration only?", Default: false},
		{Name: "output_dir", Type: "input", Message: "Directory for result artifacts", Default: ""},
	}
}

func runTool(ctx context.Context, tool string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Stderr = nil
	return cmd.Output()
}

func writeResults(dir, target string, subdomains []string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, fmt.Sprintf("subdomains_%s.txt", target))
	return os.WriteFile(path, []byte(strings.Join(subdomains, "\n")+"\n"), 0o644)
}
