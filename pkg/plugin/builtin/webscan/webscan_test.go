package webscan

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prowlsec/prowl/pkg/plugin"
)

const nucleiOutput = `{"info":{"name":"Exposed Git Directory","severity":"medium"},"matched-at":"https://example.com/.git"}
not json
{"info":{"name":"Missing CSP Header","severity":"info"},"matched-at":"https://example.com"}
`

func stubbed(t *testing.T, outputs map[string]string) *Scan {
	t.Helper()
	s := New(nil)
	s.lookPath = func(tool string) (string, error) {
		if _, ok := outputs[tool]; ok {
			return "/usr/bin/" + tool, nil
		}
		return "", errors.New("not found")
	}
	s.runTool = func(ctx context.Context, tool string, args []string) ([]byte, error) {
		out, ok := outputs[tool]
		if !ok {
			return nil, errors.New("unexpected tool")
		}
		return []byte(out), nil
	}
	return s
}

func TestExecuteParsesNucleiFindings(t *testing.T) {
	s := stubbed(t, map[string]string{"nuclei": nucleiOutput})
	require.NoError(t, s.Setup())

	result, err := s.Execute(context.Background(), "example.com", nil)
	require.NoError(t, err)

	require.Equal(t, plugin.StatusSuccess, result.Status)
	findings := result.Data["vulnerabilities"].([]Finding)
	require.Len(t, findings, 2)
	assert.Equal(t, "Exposed Git Directory", findings[0].Name)
	assert.Equal(t, "medium", findings[0].Severity)
}

func TestExecuteAllToolsFail(t *testing.T) {
	s := stubbed(t, map[string]string{"nikto": ""})
	require.NoError(t, s.Setup())
	s.runTool = func(ctx context.Context, tool string, args []string) ([]byte, error) {
		return nil, errors.New("scanner crashed")
	}

	result, err := s.Execute(context.Background(), "example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, plugin.StatusError, result.Status)
}

func TestExecuteNoTarget(t *testing.T) {
	s := stubbed(t, map[string]string{"nuclei": ""})
	require.NoError(t, s.Setup())

	result, err := s.Execute(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Equal(t, plugin.StatusError, result.Status)
}

func TestSetupNoTools(t *testing.T) {
	s := stubbed(t, nil)
	assert.Error(t, s.Setup())
}
