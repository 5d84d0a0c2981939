package cli

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prowlsec/prowl/pkg/config"
	"github.com/prowlsec/prowl/pkg/orchestrator"
	"github.com/prowlsec/prowl/pkg/plugin"
	"github.com/prowlsec/prowl/pkg/resource"
	"github.com/prowlsec/prowl/pkg/target"
)

// stubGate satisfies orchestrator.ResourceGate without touching the system.
type stubGate struct {
	admitted bool
	reason   string
	usage    *resource.Snapshot
}

func (g *stubGate) CheckResources(context.Context, *resource.Requirement) (bool, string) {
	return g.admitted, g.reason
}
func (g *stubGate) DockerAvailable() bool { return false }
func (g *stubGate) RunInContainer(context.Context, string, []string, map[string]string, map[string]string, *resource.Requirement, string) (string, error) {
	return "", resource.ErrDockerNotAvailable
}
func (g *stubGate) ContainerStatus(context.Context, string) (*resource.ContainerStatus, error) {
	return &resource.ContainerStatus{Status: resource.StatusNotFound}, nil
}
func (g *stubGate) StopContainer(context.Context, string) bool        { return false }
func (g *stubGate) RemoveContainer(context.Context, string)           {}
func (g *stubGate) TrackProcess(int32, string, *resource.Requirement) {}
func (g *stubGate) UntrackProcess(int32)                              {}
func (g *stubGate) Usage() (*resource.Snapshot, error)                { return g.usage, nil }

type stubPlugin struct {
	lastTarget  string
	lastOptions map[string]any
}

func (p *stubPlugin) Descriptor() *plugin.Descriptor {
	return &plugin.Descriptor{
		Name:        "probe",
		Category:    "recon",
		Description: "Test probe",
		Version:     "1.2.3",
	}
}
func (p *stubPlugin) Setup() error { return nil }
func (p *stubPlugin) Cleanup()     {}
func (p *stubPlugin) Execute(ctx context.Context, target string, options map[string]any) (*plugin.RunResult, error) {
	p.lastTarget = target
	p.lastOptions = options
	return plugin.Success("probe done", map[string]any{"target": target}), nil
}

func testApp(t *testing.T, gate *stubGate) (*App, *stubPlugin, *bytes.Buffer) {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	dir := t.TempDir()
	store, err := config.NewStore(filepath.Join(dir, "config"), log)
	require.NoError(t, err)

	targets, err := target.NewWorkspace(filepath.Join(dir, "targets"))
	require.NoError(t, err)

	probe := &stubPlugin{}
	reg := plugin.NewRegistry(log)
	require.NoError(t, reg.Register(func() plugin.Plugin { return probe }))

	buf := &bytes.Buffer{}
	return &App{
		Log:      log,
		Store:    store,
		Registry: reg,
		Orch:     orchestrator.New(reg, gate, orchestrator.DefaultConfig(), log, nil),
		Targets:  targets,
		Out:      buf,
	}, probe, buf
}

func TestRootUnknownCommand(t *testing.T) {
	app, _, _ := testApp(t, &stubGate{admitted: true})
	err := NewRootCommand(app).Execute([]string{"bogus"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestPluginsCommand(t *testing.T) {
	app, _, buf := testApp(t, &stubGate{admitted: true})
	require.NoError(t, NewRootCommand(app).Execute([]string{"plugins"}))

	out := buf.String()
	assert.Contains(t, out, "recon:")
	assert.Contains(t, out, "probe")
	assert.Contains(t, out, "1.2.3")
}

func TestPluginsCommandCategoryFilter(t *testing.T) {
	app, _, buf := testApp(t, &stubGate{admitted: true})
	require.NoError(t, NewRootCommand(app).Execute([]string{"plugins", "--category", "scan"}))
	assert.Contains(t, buf.String(), "No plugins registered")
}

func TestRunCommand(t *testing.T) {
	app, probe, buf := testApp(t, &stubGate{admitted: true})
	require.NoError(t, NewRootCommand(app).Execute([]string{"run", "probe", "--target", "example.com"}))

	assert.Equal(t, "example.com", probe.lastTarget)
	out := buf.String()
	assert.Contains(t, out, "State: completed")
	assert.Contains(t, out, "[success] probe done")
}

func TestRunCommandUsesSelectedTarget(t *testing.T) {
	app, probe, _ := testApp(t, &stubGate{admitted: true})
	require.NoError(t, app.Store.Set(currentTargetKey, "stored.example.com"))

	require.NoError(t, NewRootCommand(app).Execute([]string{"run", "probe"}))
	assert.Equal(t, "stored.example.com", probe.lastTarget)
}

func TestRunCommandOptionsOverridePluginConfig(t *testing.T) {
	app, probe, _ := testApp(t, &stubGate{admitted: true})
	require.NoError(t, app.Store.SetPluginConfig("probe", map[string]any{
		"mode":  "quick",
		"depth": 2,
	}))

	require.NoError(t, NewRootCommand(app).Execute(
		[]string{"run", "probe", "--target", "example.com", "--options", `{"mode":"deep"}`}))

	assert.Equal(t, "deep", probe.lastOptions["mode"])
	assert.Equal(t, 2, probe.lastOptions["depth"])
}

func TestRunCommandDefaultsArtifactDir(t *testing.T) {
	app, probe, _ := testApp(t, &stubGate{admitted: true})
	root := NewRootCommand(app)
	require.NoError(t, root.Execute([]string{"target", "add", "example.com"}))

	require.NoError(t, root.Execute([]string{"run", "probe"}))

	// Artifacts land in the target workspace's category directory.
	dir, _ := probe.lastOptions["output_dir"].(string)
	assert.Equal(t, filepath.Join(app.Targets.Root(), "example.com", "recon"), dir)
}

func TestRunCommandExplicitOutputDirWins(t *testing.T) {
	app, probe, _ := testApp(t, &stubGate{admitted: true})
	root := NewRootCommand(app)
	require.NoError(t, root.Execute([]string{"target", "add", "example.com"}))

	require.NoError(t, root.Execute([]string{"run", "probe", "--options", `{"output_dir":"/tmp/elsewhere"}`}))
	assert.Equal(t, "/tmp/elsewhere", probe.lastOptions["output_dir"])
}

func TestRunCommandNoWorkspaceNoArtifactDir(t *testing.T) {
	app, probe, _ := testApp(t, &stubGate{admitted: true})
	require.NoError(t, NewRootCommand(app).Execute([]string{"run", "probe", "--target", "example.com"}))
	assert.NotContains(t, probe.lastOptions, "output_dir")
}

func TestRunCommandBadOptionsJSON(t *testing.T) {
	app, _, _ := testApp(t, &stubGate{admitted: true})
	err := NewRootCommand(app).Execute([]string{"run", "probe", "--options", `{broken`})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --options JSON")
}

func TestRunCommandMissingPlugin(t *testing.T) {
	app, _, _ := testApp(t, &stubGate{admitted: true})
	err := NewRootCommand(app).Execute([]string{"run"})
	require.Error(t, err)
}

func TestRunCommandDeniedFails(t *testing.T) {
	app, _, buf := testApp(t, &stubGate{admitted: false, reason: "Not enough memory. Required: 100MB, Available: 50.0MB"})
	err := NewRootCommand(app).Execute([]string{"run", "probe", "--target", "example.com"})
	require.Error(t, err)
	assert.Contains(t, buf.String(), "Insufficient resources")
}

func TestCheckCommand(t *testing.T) {
	app, _, buf := testApp(t, &stubGate{admitted: true, reason: "Sufficient resources available"})
	require.NoError(t, NewRootCommand(app).Execute([]string{"check", "probe"}))
	assert.Contains(t, buf.String(), "probe: admitted")
}

func TestCheckCommandUnknownPlugin(t *testing.T) {
	app, _, _ := testApp(t, &stubGate{admitted: true})
	err := NewRootCommand(app).Execute([]string{"check", "ghost"})
	require.Error(t, err)
}

func TestTargetWorkflow(t *testing.T) {
	app, _, buf := testApp(t, &stubGate{admitted: true})
	root := NewRootCommand(app)

	require.NoError(t, root.Execute([]string{"target", "add", "example.com"}))
	// First target is selected automatically.
	assert.Equal(t, "example.com", app.Store.GetString(currentTargetKey, ""))

	require.NoError(t, root.Execute([]string{"target", "add", "other.example.com"}))
	assert.Equal(t, "example.com", app.Store.GetString(currentTargetKey, ""))

	buf.Reset()
	require.NoError(t, root.Execute([]string{"target", "list"}))
	assert.Contains(t, buf.String(), "* example.com")
	assert.Contains(t, buf.String(), "  other.example.com")

	require.NoError(t, root.Execute([]string{"target", "select", "other.example.com"}))
	assert.Equal(t, "other.example.com", app.Store.GetString(currentTargetKey, ""))

	buf.Reset()
	require.NoError(t, root.Execute([]string{"target", "show"}))
	assert.Contains(t, buf.String(), "Target: other.example.com")
}

func TestTargetSelectUnknown(t *testing.T) {
	app, _, _ := testApp(t, &stubGate{admitted: true})
	err := NewRootCommand(app).Execute([]string{"target", "select", "ghost.example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target not found")
}

func TestTargetAddDuplicate(t *testing.T) {
	app, _, _ := testApp(t, &stubGate{admitted: true})
	root := NewRootCommand(app)

	require.NoError(t, root.Execute([]string{"target", "add", "example.com"}))
	err := root.Execute([]string{"target", "add", "example.com"})
	require.Error(t, err)
	assert.ErrorIs(t, err, target.ErrTargetExists)
}

func TestConfigSetGet(t *testing.T) {
	app, _, buf := testApp(t, &stubGate{admitted: true})
	root := NewRootCommand(app)

	require.NoError(t, root.Execute([]string{"config", "set", "image", "prowl:dev"}))
	buf.Reset()
	require.NoError(t, root.Execute([]string{"config", "get", "image"}))
	assert.Contains(t, buf.String(), "prowl:dev")

	// YAML literals keep their type.
	require.NoError(t, root.Execute([]string{"config", "set", "depth", "3"}))
	assert.Equal(t, 3, app.Store.Get("depth", nil))
}

func TestConfigGetMissing(t *testing.T) {
	app, _, _ := testApp(t, &stubGate{admitted: true})
	err := NewRootCommand(app).Execute([]string{"config", "get", "ghost"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no value")
}

func TestConfigPluginSetFeedsRuns(t *testing.T) {
	app, probe, buf := testApp(t, &stubGate{admitted: true})
	root := NewRootCommand(app)

	require.NoError(t, root.Execute([]string{"config", "plugin", "probe", "mode", "deep"}))
	require.NoError(t, root.Execute([]string{"config", "plugin", "probe", "threads", "20"}))

	buf.Reset()
	require.NoError(t, root.Execute([]string{"config", "plugin", "probe"}))
	assert.Contains(t, buf.String(), "mode: deep")
	assert.Contains(t, buf.String(), "threads: 20")

	// Stored plugin config is the option baseline for runs.
	require.NoError(t, root.Execute([]string{"run", "probe", "--target", "example.com"}))
	assert.Equal(t, "deep", probe.lastOptions["mode"])
	assert.Equal(t, 20, probe.lastOptions["threads"])
}

func TestScheduleEntriesParsing(t *testing.T) {
	app, _, _ := testApp(t, &stubGate{admitted: true})
	require.NoError(t, app.Store.Set("schedules", []any{
		map[string]any{"cron": "0 3 * * *", "plugin": "probe", "target": "example.com"},
		map[string]any{"plugin": "missing-cron"},
		"not a map",
	}))

	entries := scheduleEntries(app)
	require.Len(t, entries, 1)
	assert.Equal(t, "0 3 * * *", entries[0].cron)
	assert.Equal(t, "probe", entries[0].plugin)
	assert.Equal(t, "example.com", entries[0].target)
}
