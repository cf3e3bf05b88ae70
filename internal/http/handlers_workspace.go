package http

import (
	"net/http"

	"tally/internal/core"
)

type nameRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "create workspace", err)
		return
	}
	ws, err := s.svc.Workspaces.Create(r.Context(), ownerFrom(r.Context()), req.Name)
	if err != nil {
		writeError(w, r, "create workspace", err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/v1/instances/"+ws.ID).
		Body(ws).
		Write(w)
}

func (s *Server) handleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Workspaces.List(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		writeError(w, r, "list workspaces", err)
		return
	}
	if list == nil {
		list = []core.Workspace{}
	}
	NewJSONResponse().Body(map[string]any{"instances": list}).Write(w)
}

func (s *Server) handleGetWorkspace(w http.ResponseWriter, r *http.Request) {
	detail, err := s.svc.Workspaces.Get(r.Context(), r.PathValue("id"), ownerFrom(r.Context()))
	if err != nil {
		writeError(w, r, "get workspace", err)
		return
	}
	NewJSONResponse().Body(detail).Write(w)
}

func (s *Server) handleUpdateWorkspace(w http.ResponseWriter, r *http.Request) {
	var patch core.WorkspacePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, "update workspace", err)
		return
	}
	ws, err := s.svc.Workspaces.Update(r.Context(), r.PathValue("id"), ownerFrom(r.Context()), patch)
	if err != nil {
		writeError(w, r, "update workspace", err)
		return
	}
	NewJSONResponse().Body(ws).Write(w)
}

func (s *Server) handleDeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.svc.Workspaces.Delete(r.Context(), id, ownerFrom(r.Context())); err != nil {
		writeError(w, r, "delete workspace", err)
		return
	}
	s.sessions.Invalidate(id)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// authorize checks that the caller owns the workspace named in the path
// and returns its id. On failure the error response is already written.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if _, err := s.svc.Workspaces.Authorize(r.Context(), id, ownerFrom(r.Context())); err != nil {
		writeError(w, r, "authorize", err)
		return "", false
	}
	return id, true
}
