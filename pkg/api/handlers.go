package api

import (
	"net/http"

	"github.com/prowlsec/prowl/pkg/httputil"
	"github.com/prowlsec/prowl/pkg/orchestrator"
	"github.com/prowlsec/prowl/pkg/plugin"
)

// RunRequest is the body of POST /api/v1/plugins/{name}/run.
type RunRequest struct {
	Target    string         `json:"target,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
	Container bool           `json:"container,omitempty"`
}

// CheckResponse is the body of GET /api/v1/plugins/{name}/check.
type CheckResponse struct {
	Plugin   string `json:"plugin"`
	Admitted bool   `json:"admitted"`
	Reason   string `json:"reason"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listPlugins(w http.ResponseWriter, r *http.Request) {
	category := httputil.QueryString(r, "category", "")
	httputil.WriteJSON(w, http.StatusOK, s.orch.ListPlugins(category))
}

// resolve finds a registered plugin's descriptor by name across all
// categories.
func (s *Server) resolve(name string) (*plugin.Descriptor, bool) {
	for _, entries := range s.orch.ListPlugins("") {
		if desc, ok := entries[name]; ok {
			return desc, true
		}
	}
	return nil, false
}

func (s *Server) getPlugin(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.PathStringOrError(w, r, "name")
	if !ok {
		return
	}
	desc, ok := s.resolve(name)
	if !ok {
		httputil.WriteNotFound(w, "plugin not found: "+name)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, desc)
}

func (s *Server) checkPlugin(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.PathStringOrError(w, r, "name")
	if !ok {
		return
	}
	admitted, reason, err := s.orch.Check(r.Context(), name)
	if err != nil {
		httputil.WriteNotFound(w, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CheckResponse{
		Plugin:   name,
		Admitted: admitted,
		Reason:   reason,
	})
}

func (s *Server) runPlugin(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.PathStringOrError(w, r, "name")
	if !ok {
		return
	}
	desc, ok := s.resolve(name)
	if !ok {
		httputil.WriteNotFound(w, "plugin not found: "+name)
		return
	}

	var req RunRequest
	if r.ContentLength != 0 && !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	// The container query parameter forces container dispatch without a body.
	force, err := httputil.QueryBool(r, "container", req.Container)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	// Runs against a known target deposit artifacts in its workspace unless
	// the request says otherwise.
	if req.Target != "" && s.targets != nil {
		if _, ok := req.Options["output_dir"]; !ok {
			if dir, err := s.targets.ArtifactDir(req.Target, desc.Category); err == nil {
				if req.Options == nil {
					req.Options = make(map[string]any)
				}
				req.Options["output_dir"] = dir
			}
		}
	}

	report := s.orch.Run(r.Context(), name, req.Target, req.Options,
		orchestrator.RunOptions{ForceContainer: force})
	httputil.WriteJSON(w, http.StatusOK, report)
}

func (s *Server) getResources(w http.ResponseWriter, r *http.Request) {
	snap, err := s.orch.Usage()
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}
