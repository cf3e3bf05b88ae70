package http

import (
	"encoding/json"
	"net/http"

	"tally/internal/core"
)

func (s *Server) handleInitializeCategories(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Categories string `json:"categories"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "initialize categories", err)
		return
	}
	added, err := s.svc.Categories.Initialize(r.Context(), r.PathValue("id"), ownerFrom(r.Context()), req.Categories)
	if err != nil {
		writeError(w, r, "initialize categories", err)
		return
	}
	if added == nil {
		added = []core.Category{}
	}
	NewJSONResponse().Status(http.StatusCreated).Body(map[string]any{"categories": added}).Write(w)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authorize(w, r)
	if !ok {
		return
	}
	cats, err := s.svc.Categories.List(r.Context(), id)
	if err != nil {
		writeError(w, r, "list categories", err)
		return
	}
	if cats == nil {
		cats = []core.Category{}
	}
	NewJSONResponse().Body(map[string]any{"categories": cats}).Write(w)
}

func (s *Server) handleAddCategory(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "add category", err)
		return
	}
	c, err := s.svc.Categories.Add(r.Context(), r.PathValue("id"), ownerFrom(r.Context()), req.Name)
	if err != nil {
		writeError(w, r, "add category", err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(c).Write(w)
}

func (s *Server) handleRenameCategory(w http.ResponseWriter, r *http.Request) {
	cat, err := pathInt(r, "cat")
	if err != nil {
		writeError(w, r, "rename category", err)
		return
	}
	var req nameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "rename category", err)
		return
	}
	c, err := s.svc.Categories.Rename(r.Context(), r.PathValue("id"), ownerFrom(r.Context()), cat, req.Name)
	if err != nil {
		writeError(w, r, "rename category", err)
		return
	}
	NewJSONResponse().Body(c).Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	cat, err := pathInt(r, "cat")
	if err != nil {
		writeError(w, r, "delete category", err)
		return
	}
	if err := s.svc.Categories.Delete(r.Context(), r.PathValue("id"), ownerFrom(r.Context()), cat); err != nil {
		writeError(w, r, "delete category", err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authorize(w, r)
	if !ok {
		return
	}
	s.writeUtilisation(w, r, id)
}

func (s *Server) handleUpsertBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authorize(w, r)
	if !ok {
		return
	}
	var req struct {
		CategoryID int64           `json:"category_id"`
		Limit      json.RawMessage `json:"limit"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "upsert budget", err)
		return
	}
	limit, err := core.ParsePositiveAmount(core.AmountText(req.Limit))
	if err != nil {
		writeError(w, r, "upsert budget", core.Validation("limit must be a positive amount"))
		return
	}
	if err := s.svc.Budgets.Upsert(r.Context(), id, req.CategoryID, limit); err != nil {
		writeError(w, r, "upsert budget", err)
		return
	}
	s.writeUtilisation(w, r, id)
}

func (s *Server) writeUtilisation(w http.ResponseWriter, r *http.Request, workspace string) {
	usage, err := s.svc.Budgets.Utilisation(r.Context(), workspace)
	if err != nil {
		writeError(w, r, "budget utilisation", err)
		return
	}
	if usage == nil {
		usage = []core.BudgetUsage{}
	}
	NewJSONResponse().Body(map[string]any{"budgets": usage}).Write(w)
}
