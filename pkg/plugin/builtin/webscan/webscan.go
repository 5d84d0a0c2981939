// Package webscan runs external web vulnerability scanners against a target
// and normalizes their findings.
package webscan

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/prowlsec/prowl/pkg/plugin"
)

// Finding is one normalized scanner result.
type Finding struct {
	Tool     string `json:"tool"`
	Severity string `json:"severity"`
	Name     string `json:"name"`
	URL      string `json:"url"`
}

// Scan is the web vulnerability scanning plugin.
type Scan struct {
	log       *logrus.Logger
	available []string

	lookPath func(string) (string, error)
	runTool  func(ctx context.Context, tool string, args []string) ([]byte, error)
}

// New constructs the plugin.
func New(log *logrus.Logger) *Scan {
	if log == nil {
		log = logrus.New()
	}
	return &Scan{
		log:      log,
		lookPath: exec.LookPath,
		runTool:  runTool,
	}
}

// Factory adapts New for registry registration.
func Factory() plugin.Plugin { return New(nil) }

func (s *Scan) Descriptor() *plugin.Descriptor {
	return &plugin.Descriptor{
		Name:         "web_scan",
		Category:     "scan",
		Description:  "Scan web applications for vulnerabilities",
		Version:      "1.0.0",
		Dependencies: []string{"subdomain_enum"},
		Resources: plugin.ResourceDeclaration{
			Memory:  "1GB",
			CPU:     2,
			Disk:    "200MB",
			Network: true,
		},
	}
}

// scanners are probed in Setup; only nuclei output is currently parsed into
// findings, other tools surface raw line counts.
var scanners = []string{"nuclei", "nikto", "whatweb"}

func (s *Scan) Setup() error {
	s.available = s.available[:0]
	for _, tool := range scanners {
		if _, err := s.lookPath(tool); err == nil {
			s.available = append(s.available, tool)
		}
	}
	sort.Strings(s.available)

	if len(s.available) == 0 {
		return fmt.Errorf("no web scanning tools available")
	}
	return nil
}

func (s *Scan) Execute(ctx context.Context, target string, options map[string]any) (*plugin.RunResult, error) {
	if target == "" {
		return plugin.Errorf("No target provided"), nil
	}
	if len(s.available) == 0 {
		return plugin.Errorf("No web scanning tools available"), nil
	}

	url := target
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}

	mode, _ := options["mode"].(string)
	if mode == "" {
		mode = "standard"
	}

	var (
		findings  []Finding
		toolsUsed []string
	)

	for _, tool := range s.available {
		out, err := s.runTool(ctx, tool, s.toolArgs(tool, url, mode))
		if err != nil {
			s.log.WithError(err).WithField("tool", tool).Warn("Scanner failed")
			continue
		}
		toolsUsed = append(toolsUsed, tool)

		if tool == "nuclei" {
			findings = append(findings, parseNuclei(out)...)
		}
	}

	if len(toolsUsed) == 0 {
		return plugin.Errorf("All web scanning tools failed"), nil
	}

	return plugin.Success(
		fmt.Sprintf("Scanned %s with %d tools, %d findings", url, len(toolsUsed), len(findings)),
		map[string]any{
			"vulnerabilities": findings,
			"scan_info": map[string]any{
				"mode":       mode,
				"tools_used": toolsUsed,
			},
		}), nil
}

func (s *Scan) Cleanup() {}

func (s *Scan) Options() []plugin.Option {
	return []plugin.Option{
		{Name: "mode", Type: "input", Message: "Scan mode (basic, standard, thorough)", Default: "standard"},
	}
}

func (s *Scan) toolArgs(tool, url, mode string) []string {
	switch tool {
	case "nuclei":
		args := []string{"-u", url, "-jsonl", "-silent"}
		if mode == "basic" {
			args = append(args, "-severity", "high,critical")
		}
		return args
	case "nikto":
		return []string{"-h", url, "-nointeractive"}
	case "whatweb":
		return []string{"--quiet", url}
	default:
		return []string{url}
	}
}

// parseNuclei reads nuclei's JSONL output into findings; malformed lines
// are skipped.
func parseNuclei(out []byte) []Finding {
	var findings []Finding

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		var record struct {
			Info struct {
				Name     string `json:"name"`
				Severity string `json:"severity"`
			} `json:"info"`
			MatchedAt string `json:"matched-at"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			continue
		}
		if record.Info.Name == "" {
			continue
		}
		findings = append(findings, Finding{
			Tool:     "nuclei",
			Severity: record.Info.Severity,
			Name:     record.Info.Name,
			URL:      record.MatchedAt,
		})
	}
	return findings
}

func runTool(ctx context.Context, tool string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Stderr = nil
	return cmd.Output()
}
