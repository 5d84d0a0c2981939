// Package contentdiscovery brute-forces hidden files and directories on a
// target web server using whichever external discovery tools are installed.
package contentdiscovery

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/prowlsec/prowl/pkg/plugin"
)

// Finding is one discovered resource.
type Finding struct {
	URL    string `json:"url"`
	Status int    `json:"status"`
	Size   int    `json:"size"`
	Words  int    `json:"words"`
	Lines  int    `json:"lines"`
}

// toolPreference orders tools best-first; Setup records availability in this
// order and Execute picks the first available unless the tool option names
// another.
var toolPreference = []string{"feroxbuster", "ffuf", "gobuster", "dirsearch"}

// defaultWordlists are probed in order when no wordlist option is given.
var defaultWordlists = []string{
	filepath.Join("wordlists", "SecLists", "Discovery", "Web-Content", "directory-list-2.3-medium.txt"),
	filepath.Join("wordlists", "directory-list-2.3-medium.txt"),
	filepath.Join("wordlists", "content-discovery.txt"),
}

const (
	defaultThreads    = 10
	maxThreads        = 50
	defaultExtensions = "php,asp,aspx,jsp,html,js,txt"
	defaultUserAgent  = "prowl-content-discovery"
	matchCodes        = "200,201,202,203,204,301,302,307,401,403,405"
)

// Discovery is the content discovery plugin.
type Discovery struct {
	log       *logrus.Logger
	available []string

	// lookPath and runTool are swappable for tests.
	lookPath func(string) (string, error)
	runTool  func(ctx context.Context, tool string, args []string) ([]byte, error)
	// fileExists is swappable for tests; used for wordlist probing.
	fileExists func(string) bool
}

// New constructs the plugin.
func New(log *logrus.Logger) *Discovery {
	if log == nil {
		log = logrus.New()
	}
	return &Discovery{
		log:        log,
		lookPath:   exec.LookPath,
		runTool:    runTool,
		fileExists: fileExists,
	}
}

// Factory adapts New for registry registration.
func Factory() plugin.Plugin { return New(nil) }

func (d *Discovery) Descriptor() *plugin.Descriptor {
	return &plugin.Descriptor{
		Name:        "content_discovery",
		Category:    "recon",
		Description: "Discover hidden files and directories",
		Version:     "1.0.0",
		Resources: plugin.ResourceDeclaration{
			Memory:  "800MB",
			CPU:     2,
			Disk:    "100MB",
			Network: true,
		},
	}
}

// Setup probes which discovery tools are on PATH, keeping preference order.
func (d *Discovery) Setup() error {
	d.available = d.available[:0]
	for _, tool := range toolPreference {
		if _, err := d.lookPath(tool); err == nil {
			d.available = append(d.available, tool)
		}
	}

	if len(d.available) == 0 {
		return fmt.Errorf("no content discovery tools available")
	}
	return nil
}

func (d *Discovery) Execute(ctx context.Context, target string, options map[string]any) (*plugin.RunResult, error) {
	if target == "" {
		return plugin.Errorf("No target provided"), nil
	}
	if len(d.available) == 0 {
		return plugin.Errorf("No content discovery tools available"), nil
	}

	wordlist, _ := options["wordlist"].(string)
	if wordlist == "" {
		for _, path := range defaultWordlists {
			if d.fileExists(path) {
				wordlist = path
				break
			}
		}
		if wordlist == "" {
			return plugin.Errorf("No wordlist provided and no default wordlist found"), nil
		}
	}

	threads := optionInt(options, "threads", defaultThreads)
	if threads > maxThreads {
		threads = maxThreads
	}
	extensions, _ := options["extensions"].(string)
	if extensions == "" {
		extensions = defaultExtensions
	}
	userAgent, _ := options["user_agent"].(string)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	url := target
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}

	tool := d.pickTool(options)
	d.log.WithFields(logrus.Fields{"tool": tool, "wordlist": wordlist}).Info("Running content discovery")

	out, err := d.runTool(ctx, tool, toolArgs(tool, url, wordlist, threads, extensions, userAgent))
	if err != nil {
		return plugin.Errorf("Error running %s: %v", tool, err), nil
	}

	findings := parseTool(tool, out, url)
	sort.Slice(findings, func(i, j int) bool { return findings[i].URL < findings[j].URL })

	if dir, _ := options["output_dir"].(string); dir != "" {
		if err := writeResults(dir, target, findings); err != nil {
			d.log.WithError(err).Warn("Failed to write content discovery results")
		}
	}

	return plugin.Success(
		fmt.Sprintf("Found %d resources using %s", len(findings), tool),
		map[string]any{
			"findings": findings,
			"stats": map[string]any{
				"tool":           tool,
				"total_findings": len(findings),
			},
		}), nil
}

func (d *Discovery) Cleanup() {}

func (d *Discovery) Options() []plugin.Option {
	return []plugin.Option{
		{Name: "wordlist", Type: "input", Message: "Path to wordlist (empty for default)", Default: ""},
		{Name: "threads", Type: "input", Message: "Number of threads (max 50)", Default: defaultThreads},
		{Name: "extensions", Type: "input", Message: "File extensions to check (comma-separated)", Default: defaultExtensions},
		{Name: "user_agent", Type: "input", Message: "Custom User-Agent string", Default: defaultUserAgent},
		{Name: "tool", Type: "input", Message: "Preferred tool (empty for auto-select)", Default: ""},
		{Name: "output_dir", Type: "input", Message: "Directory for result artifacts", Default: ""},
	}
}

// pickTool honors the tool option when that tool is available, otherwise the
// best available tool wins.
func (d *Discovery) pickTool(options map[string]any) string {
	if tool, _ := options["tool"].(string); tool != "" {
		for _, available := range d.available {
			if available == tool {
				return tool
			}
		}
	}
	return d.available[0]
}

func toolArgs(tool, url, wordlist string, threads int, extensions, userAgent string) []string {
	switch tool {
	case "feroxbuster":
		args := []string{"--url", url, "--wordlist", wordlist, "--threads", strconv.Itoa(threads),
			"--json", "--output", "/dev/stdout"}
		for _, ext := range strings.Split(extensions, ",") {
			args = append(args, "--extensions", ext)
		}
		return append(args, "--user-agent", userAgent)
	case "ffuf":
		return []string{"-u", url + "/FUZZ", "-w", wordlist, "-t", strconv.Itoa(threads),
			"-mc", matchCodes, "-of", "json", "-o", "/dev/stdout",
			"-e", extensions, "-H", "User-Agent: " + userAgent}
	case "gobuster":
		return []string{"dir", "-u", url, "-w", wordlist, "-t", strconv.Itoa(threads),
			"-q", "-x", extensions, "-a", userAgent}
	case "dirsearch":
		return []string{"-u", url, "-w", wordlist, "-t", strconv.Itoa(threads),
			"-q", "--format=json", "-o", "/dev/stdout",
			"-e", extensions, "--user-agent", userAgent}
	default:
		return []string{url}
	}
}

func parseTool(tool string, out []byte, url string) []Finding {
	switch tool {
	case "feroxbuster":
		return parseFeroxbuster(out)
	case "ffuf":
		return parseFFUF(out)
	case "gobuster":
		return parseGobuster(out, url)
	case "dirsearch":
		return parseDirsearch(out)
	default:
		return nil
	}
}

// parseFeroxbuster reads feroxbuster's JSONL output; malformed lines are
// skipped.
func parseFeroxbuster(out []byte) []Finding {
	var findings []Finding

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		var record struct {
			URL           string `json:"url"`
			Status        int    `json:"status"`
			ContentLength int    `json:"content_length"`
			WordCount     int    `json:"word_count"`
			LineCount     int    `json:"line_count"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil || record.URL == "" {
			continue
		}
		findings = append(findings, Finding{
			URL:    record.URL,
			Status: record.Status,
			Size:   record.ContentLength,
			Words:  record.WordCount,
			Lines:  record.LineCount,
		})
	}
	return findings
}

func parseFFUF(out []byte) []Finding {
	var report struct {
		Results []struct {
			URL    string `json:"url"`
			Status int    `json:"status"`
			Length int    `json:"length"`
			Words  int    `json:"words"`
			Lines  int    `json:"lines"`
		} `json:"results"`
	}
	if err := json.Unmarshal(out, &report); err != nil {
		return nil
	}

	findings := make([]Finding, 0, len(report.Results))
	for _, result := range report.Results {
		findings = append(findings, Finding{
			URL:    result.URL,
			Status: result.Status,
			Size:   result.Length,
			Words:  result.Words,
			Lines:  result.Lines,
		})
	}
	return findings
}

// gobusterLine matches gobuster's "/path (Status: 200) [Size: 1234]" output.
var gobusterLine = regexp.MustCompile(`(/\S*) \(Status: (\d+)\)(?: \[Size: (\d+)\])?`)

func parseGobuster(out []byte, url string) []Finding {
	var findings []Finding

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		match := gobusterLine.FindStringSubmatch(scanner.Text())
		if match == nil {
			continue
		}
		status, _ := strconv.Atoi(match[2])
		size, _ := strconv.Atoi(match[3])
		findings = append(findings, Finding{
			URL:    url + match[1],
			Status: status,
			Size:   size,
		})
	}
	return findings
}

func parseDirsearch(out []byte) []Finding {
	report := make(map[string]map[string]struct {
		Status        int `json:"status"`
		ContentLength int `json:"content-length"`
	})
	if err := json.Unmarshal(out, &report); err != nil {
		return nil
	}

	var findings []Finding
	for base, results := range report {
		for path, result := range results {
			findings = append(findings, Finding{
				URL:    base + path,
				Status: result.Status,
				Size:   result.ContentLength,
			})
		}
	}
	return findings
}

func writeResults(dir, target string, findings []Finding) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(findings, "", "  ")
	if err != nil {
		return err
	}
	summary := filepath.Join(dir, fmt.Sprintf("content_discovery_%s.json", target))
	if err := os.WriteFile(summary, data, 0o644); err != nil {
		return err
	}

	endpoints := make([]string, 0, len(findings))
	for _, finding := range findings {
		endpoints = append(endpoints, finding.URL)
	}
	sort.Strings(endpoints)
	path := filepath.Join(dir, fmt.Sprintf("endpoints_%s.txt", target))
	return os.WriteFile(path, []byte(strings.Join(endpoints, "\n")+"\n"), 0o644)
}

func optionInt(options map[string]any, key string, fallback int) int {
	switch v := options[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func runTool(ctx context.Context, tool string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Stderr = nil
	return cmd.Output()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
