package http

import (
	"net/http"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

type budgetRequest struct {
	CategoryID int64      `json:"categoryId"`
	Amount     core.Money `json:"amount"`
	Month      core.Month `json:"month"`
}

// budgetResponse is the evaluated budget row: the stored amount plus the
// consumption derived from the month's expense transactions at read time.
type budgetResponse struct {
	ID              int64             `json:"id"`
	CategoryID      int64             `json:"categoryId"`
	CategoryName    string            `json:"categoryName"`
	Month           core.Month        `json:"month"`
	BudgetAmount    core.Money        `json:"budgetAmount"`
	SpentAmount     core.Money        `json:"spentAmount"`
	RemainingAmount core.Money        `json:"remainingAmount"`
	Status          core.BudgetStatus `json:"status"`
}

func toBudgetResponse(bp services.BudgetWithProgress) budgetResponse {
	return budgetResponse{
		ID:              bp.Budget.ID,
		CategoryID:      bp.Budget.CategoryID,
		CategoryName:    bp.CategoryName,
		Month:           bp.Budget.Month,
		BudgetAmount:    bp.Budget.Amount,
		SpentAmount:     bp.Progress.Spent,
		RemainingAmount: bp.Progress.Remaining,
		Status:          bp.Progress.Status,
	}
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	b := core.Budget{
		UserID:     userID(r),
		CategoryID: req.CategoryID,
		Amount:     req.Amount,
		Month:      req.Month,
	}
	if err := b.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	saved, err := s.budgets.Create(r.Context(), b)
	if err != nil {
		writeServiceError(r, w, err)
		return
	}

	// Return the evaluated row so the client sees current consumption.
	bp, err := s.budgets.Get(r.Context(), saved.UserID, saved.ID)
	if err != nil {
		writeServiceError(r, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBudgetResponse(bp))
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bp, err := s.budgets.Get(r.Context(), userID(r), id)
	if err != nil {
		writeServiceError(r, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetResponse(bp))
}

// handleUpdateBudget changes the budget amount. Category and month identify
// the budget and cannot move.
func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Amount.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	uid := userID(r)
	if _, err := s.budgets.Update(r.Context(), core.Budget{ID: id, UserID: uid, Amount: req.Amount}); err != nil {
		writeServiceError(r, w, err)
		return
	}

	bp, err := s.budgets.Get(r.Context(), uid, id)
	if err != nil {
		writeServiceError(r, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetResponse(bp))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.budgets.Delete(r.Context(), userID(r), id); err != nil {
		writeServiceError(r, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	s.listBudgets(w, r, nil)
}

func (s *Server) handleListBudgetsForMonth(w http.ResponseWriter, r *http.Request) {
	month, err := core.ParseMonth(r.PathValue("month"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.listBudgets(w, r, &month)
}

func (s *Server) listBudgets(w http.ResponseWriter, r *http.Request, month *core.Month) {
	budgets, err := s.budgets.List(r.Context(), userID(r), month)
	if err != nil {
		writeServiceError(r, w, err)
		return
	}

	out := make([]budgetResponse, 0, len(budgets))
	for _, bp := range budgets {
		out = append(out, toBudgetResponse(bp))
	}
	writeJSON(w, http.StatusOK, out)
}
