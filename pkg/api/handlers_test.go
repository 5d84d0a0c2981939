package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prowlsec/prowl/pkg/observability"
	"github.com/prowlsec/prowl/pkg/orchestrator"
	"github.com/prowlsec/prowl/pkg/plugin"
	"github.com/prowlsec/prowl/pkg/resource"
	"github.com/prowlsec/prowl/pkg/target"
)

// stubGate satisfies orchestrator.ResourceGate with scriptable admission.
type stubGate struct {
	admitted bool
	reason   string
	usage    *resource.Snapshot
	usageErr error
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
func (g *stubGate) Usage() (*resource.Snapshot, error)                { return g.usage, g.usageErr }

type stubPlugin struct {
	desc        *plugin.Descriptor
	lastOptions map[string]any
}

func (p *stubPlugin) Descriptor() *plugin.Descriptor { return p.desc }
func (p *stubPlugin) Setup() error                   { return nil }
func (p *stubPlugin) Cleanup()                       {}
func (p *stubPlugin) Execute(ctx context.Context, target string, options map[string]any) (*plugin.RunResult, error) {
	p.lastOptions = options
	return plugin.Success("done", map[string]any{"target": target}), nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestServer(t *testing.T, gate *stubGate) *Server {
	t.Helper()

	reg := plugin.NewRegistry(quietLogger())
	require.NoError(t, reg.Register(func() plugin.Plugin {
		return &stubPlugin{desc: &plugin.Descriptor{
			Name:     "probe",
			Category: "recon",
			Version:  "1.0.0",
		}}
	}))

	orch := orchestrator.New(reg, gate, orchestrator.DefaultConfig(), quietLogger(), nil)
	return NewServer(orch, nil, nil, quietLogger())
}

func doRequest(s *Server, method, path string, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, r)
	return w
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, &stubGate{admitted: true})
	w := doRequest(s, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestListPlugins(t *testing.T) {
	s := newTestServer(t, &stubGate{admitted: true})
	w := doRequest(s, http.MethodGet, "/api/v1/plugins", "")
	require.Equal(t, http.StatusOK, w.Code)

	var listing map[string]map[string]*plugin.Descriptor
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	require.Contains(t, listing, "recon")
	assert.Contains(t, listing["recon"], "probe")
}

func TestListPluginsCategoryFilter(t *testing.T) {
	s := newTestServer(t, &stubGate{admitted: true})
	w := doRequest(s, http.MethodGet, "/api/v1/plugins?category=scan", "")
	require.Equal(t, http.StatusOK, w.Code)

	var listing map[string]map[string]*plugin.Descriptor
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	assert.Empty(t, listing)
}

func TestGetPlugin(t *testing.T) {
	s := newTestServer(t, &stubGate{admitted: true})
	w := doRequest(s, http.MethodGet, "/api/v1/plugins/probe", "")
	require.Equal(t, http.StatusOK, w.Code)

	var desc plugin.Descriptor
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &desc))
	assert.Equal(t, "probe", desc.Name)
	assert.Equal(t, "recon", desc.Category)
}

func TestGetPluginNotFound(t *testing.T) {
	s := newTestServer(t, &stubGate{admitted: true})
	w := doRequest(s, http.MethodGet, "/api/v1/plugins/ghost", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckPlugin(t *testing.T) {
	s := newTestServer(t, &stubGate{admitted: false, reason: "Not enough memory. Required: 100MB, Available: 50.0MB"})
	w := doRequest(s, http.MethodGet, "/api/v1/plugins/probe/check", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp CheckResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "probe", resp.Plugin)
	assert.False(t, resp.Admitted)
	assert.Contains(t, resp.Reason, "Not enough memory")
}

func TestCheckPluginNotFound(t *testing.T) {
	s := newTestServer(t, &stubGate{admitted: true})
	w := doRequest(s, http.MethodGet, "/api/v1/plugins/ghost/check", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunPlugin(t *testing.T) {
	s := newTestServer(t, &stubGate{admitted: true, reason: "Sufficient resources available"})
	w := doRequest(s, http.MethodPost, "/api/v1/plugins/probe/run", `{"target":"example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var report orchestrator.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, orchestrator.StateCompleted, report.State)
	assert.Equal(t, orchestrator.DispatchLocal, report.Dispatch)
	assert.Equal(t, "example.com", report.Target)
	assert.NotEmpty(t, report.RunID)
	require.NotNil(t, report.Result)
	assert.Equal(t, plugin.StatusSuccess, report.Result.Status)
}

func TestRunPluginEmptyBody(t *testing.T) {
	s := newTestServer(t, &stubGate{admitted: true})
	w := doRequest(s, http.MethodPost, "/api/v1/plugins/probe/run", "")
	require.Equal(t, http.StatusOK, w.Code)

	var report orchestrator.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, orchestrator.StateCompleted, report.State)
}

func TestRunPluginBadJSON(t *testing.T) {
	s := newTestServer(t, &stubGate{admitted: true})
	w := doRequest(s, http.MethodPost, "/api/v1/plugins/probe/run", `{broken`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunPluginDefaultsArtifactDir(t *testing.T) {
	probe := &stubPlugin{desc: &plugin.Descriptor{
		Name:     "probe",
		Category: "recon",
		Version:  "1.0.0",
	}}
	reg := plugin.NewRegistry(quietLogger())
	require.NoError(t, reg.Register(func() plugin.Plugin { return probe }))

	ws, err := target.NewWorkspace(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, ws.Add("example.com"))

	orch := orchestrator.New(reg, &stubGate{admitted: true}, orchestrator.DefaultConfig(), quietLogger(), nil)
	s := NewServer(orch, ws, nil, quietLogger())

	w := doRequest(s, http.MethodPost, "/api/v1/plugins/probe/run", `{"target":"example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)

	dir, _ := probe.lastOptions["output_dir"].(string)
	assert.Equal(t, filepath.Join(ws.Root(), "example.com", "recon"), dir)
}

func TestRunPluginUnknownTargetLeavesOptionsAlone(t *testing.T) {
	probe := &stubPlugin{desc: &plugin.Descriptor{
		Name:     "probe",
		Category: "recon",
		Version:  "1.0.0",
	}}
	reg := plugin.NewRegistry(quietLogger())
	require.NoError(t, reg.Register(func() plugin.Plugin { return probe }))

	ws, err := target.NewWorkspace(t.TempDir())
	require.NoError(t, err)

	orch := orchestrator.New(reg, &stubGate{admitted: true}, orchestrator.DefaultConfig(), quietLogger(), nil)
	s := NewServer(orch, ws, nil, quietLogger())

	w := doRequest(s, http.MethodPost, "/api/v1/plugins/probe/run", `{"target":"ghost.example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, probe.lastOptions, "output_dir")
}

func TestRunPluginContainerQueryParam(t *testing.T) {
	s := newTestServer(t, &stubGate{admitted: true})
	w := doRequest(s, http.MethodPost, "/api/v1/plugins/probe/run?container=true", `{}`)
	require.Equal(t, http.StatusOK, w.Code)

	var report orchestrator.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, orchestrator.StateFailed, report.State)
	require.NotNil(t, report.Result)
	assert.Contains(t, report.Result.Message, "docker is not available")
}

func TestRunPluginBadContainerQueryParam(t *testing.T) {
	s := newTestServer(t, &stubGate{admitted: true})
	w := doRequest(s, http.MethodPost, "/api/v1/plugins/probe/run?container=banana", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunPluginNotFound(t *testing.T) {
	s := newTestServer(t, &stubGate{admitted: true})
	w := doRequest(s, http.MethodPost, "/api/v1/plugins/ghost/run", `{}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunPluginDenied(t *testing.T) {
	s := newTestServer(t, &stubGate{admitted: false, reason: "Network connectivity check failed"})
	w := doRequest(s, http.MethodPost, "/api/v1/plugins/probe/run", `{"target":"example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var report orchestrator.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, orchestrator.StateFailed, report.State)
	require.NotNil(t, report.Result)
	assert.Contains(t, report.Result.Message, "Insufficient resources")
}

func TestGetResources(t *testing.T) {
	gate := &stubGate{
		admitted: true,
		usage: &resource.Snapshot{
			Memory:    resource.MemoryUsage{TotalMB: 8192, AvailableMB: 4096},
			CPU:       resource.CPUUsage{Cores: 8, Percent: 25},
			Disk:      resource.DiskUsage{TotalMB: 100000, FreeMB: 50000},
			Processes: map[int32]resource.ProcessUsage{},
		},
	}
	s := newTestServer(t, gate)
	w := doRequest(s, http.MethodGet, "/api/v1/resources", "")
	require.Equal(t, http.StatusOK, w.Code)

	var snap resource.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, 8, snap.CPU.Cores)
	assert.InDelta(t, 4096, snap.Memory.AvailableMB, 0.01)
}

func TestGetResourcesError(t *testing.T) {
	s := newTestServer(t, &stubGate{admitted: true, usageErr: resource.ErrSnapshotFailed})
	w := doRequest(s, http.MethodGet, "/api/v1/resources", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	gate := &stubGate{admitted: true}
	reg := plugin.NewRegistry(quietLogger())
	orch := orchestrator.New(reg, gate, orchestrator.DefaultConfig(), quietLogger(), nil)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	s := NewServer(orch, nil, metrics, quietLogger())

	w := doRequest(s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestIDHeaderPresent(t *testing.T) {
	s := newTestServer(t, &stubGate{admitted: true})
	w := doRequest(s, http.MethodGet, "/healthz", "")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
