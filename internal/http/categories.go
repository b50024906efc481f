package http

import (
	"net/http"

	"fintrack/internal/core"
)

type categoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

type categoryResponse struct {
	ID          int64                `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description,omitempty"`
	Type        core.TransactionType `json:"type"`
}

func toCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Type:        c.Type,
	}
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	typ, err := core.ParseTransactionType(req.Type)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	c := core.Category{
		UserID:      userID(r),
		Name:        req.Name,
		Description: req.Description,
		Type:        typ,
	}
	if err := c.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	saved, err := s.categories.Create(r.Context(), c)
	if err != nil {
		writeServiceError(r, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCategoryResponse(saved))
}

func (s *Server) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := s.categories.Get(r.Context(), userID(r), id)
	if err != nil {
		writeServiceError(r, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponse(c))
}

// handleUpdateCategory renames a category or changes its description. A type
// field in the body is ignored; type is fixed at creation.
func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	c := core.Category{
		ID:          id,
		UserID:      userID(r),
		Name:        req.Name,
		Description: req.Description,
	}
	saved, err := s.categories.Update(r.Context(), c)
	if err != nil {
		writeServiceError(r, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryResponse(saved))
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.categories.Delete(r.Context(), userID(r), id); err != nil {
		writeServiceError(r, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	var typ *core.TransactionType
	if raw := r.URL.Query().Get("type"); raw != "" {
		parsed, err := core.ParseTransactionType(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		typ = &parsed
	}

	cats, err := s.categories.List(r.Context(), userID(r), typ)
	if err != nil {
		writeServiceError(r, w, err)
		return
	}

	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, toCategoryResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}
