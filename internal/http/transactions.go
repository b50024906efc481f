package http

import (
	"net/http"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

type transactionRequest struct {
	CategoryID int64      `json:"categoryId"`
	Amount     core.Money `json:"amount"`
	Type       string     `json:"type"`
	Date       string     `json:"date"`
	Note       string     `json:"note"`
}

type transactionResponse struct {
	ID         int64                `json:"id"`
	CategoryID int64                `json:"categoryId"`
	Amount     core.Money           `json:"amount"`
	Type       core.TransactionType `json:"type"`
	Date       string               `json:"date"`
	Note       string               `json:"note,omitempty"`
}

func toTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:         tx.ID,
		CategoryID: tx.CategoryID,
		Amount:     tx.Amount,
		Type:       tx.Type,
		Date:       tx.Date.UTC().Format(time.RFC3339),
		Note:       tx.Note,
	}
}

func (s *Server) decodeTransaction(w http.ResponseWriter, r *http.Request) (core.Transaction, bool) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return core.Transaction{}, false
	}

	typ, err := core.ParseTransactionType(req.Type)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return core.Transaction{}, false
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return core.Transaction{}, false
	}

	tx := core.Transaction{
		UserID:     userID(r),
		CategoryID: req.CategoryID,
		Amount:     req.Amount,
		Type:       typ,
		Date:       date,
		Note:       req.Note,
	}
	if err := tx.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return core.Transaction{}, false
	}
	return tx, true
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	tx, ok := s.decodeTransaction(w, r)
	if !ok {
		return
	}

	saved, err := s.transactions.Create(r.Context(), tx)
	if err != nil {
		writeServiceError(r, w, err)
		return
	}

	s.logger.LogTransactionCreated(r.Context(), saved.UserID, saved.ID, saved.CategoryID, saved.Amount.Cents, string(saved.Type))
	writeJSON(w, http.StatusCreated, toTransactionResponse(saved))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := s.transactions.Get(r.Context(), userID(r), id)
	if err != nil {
		writeServiceError(r, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tx, ok := s.decodeTransaction(w, r)
	if !ok {
		return
	}
	tx.ID = id

	saved, err := s.transactions.Update(r.Context(), tx)
	if err != nil {
		writeServiceError(r, w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(saved))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.transactions.Delete(r.Context(), userID(r), id); err != nil {
		writeServiceError(r, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListTransactions supports the filters type, category, start, end.
// Start is inclusive, end exclusive.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := transactionFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	txs, err := s.transactions.List(r.Context(), userID(r), f)
	if err != nil {
		writeServiceError(r, w, err)
		return
	}

	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionResponse(tx))
	}
	writeJSON(w, http.StatusOK, out)
}

func transactionFilter(r *http.Request) (store.TransactionFilter, error) {
	var f store.TransactionFilter
	q := r.URL.Query()

	if raw := q.Get("type"); raw != "" {
		typ, err := core.ParseTransactionType(raw)
		if err != nil {
			return f, err
		}
		f.Type = &typ
	}
	if raw := q.Get("category"); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			return f, err
		}
		f.CategoryID = &id
	}
	if raw := q.Get("start"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return f, err
		}
		f.From = &t
	}
	if raw := q.Get("end"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			return f, err
		}
		f.To = &t
	}
	return f, nil
}
