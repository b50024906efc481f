package http

import (
	"net/http"
	"time"
)

// handleDashboard returns the composed summary over the user's full history,
// or over [start, end) when the optional query params are present. Every call
// recomputes from the stored transactions.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	var from, to *time.Time
	q := r.URL.Query()
	if raw := q.Get("start"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		from = &t
	}
	if raw := q.Get("end"); raw != "" {
		t, err := parseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		to = &t
	}

	summary, err := s.dashboard.Summary(r.Context(), userID(r), from, to)
	if err != nil {
		writeServiceError(r, w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
