package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"fintrack/internal/core"
)

type deleteYearResponse struct {
	Message      string `json:"message"`
	DeletedCount int64  `json:"deleted_count"`
}

func (s *Server) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseYearMonth(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	sum, err := s.svc.Dashboard.MonthSummary(r.Context(), principal(r.Context()).ID, year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleDeleteYear(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(mux.Vars(r)["year"])
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: year must be an integer", core.ErrValidation))
		return
	}
	n, err := s.svc.Dashboard.DeleteYear(r.Context(), principal(r.Context()).ID, year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteYearResponse{
		Message:      fmt.Sprintf("%d transactions from %d deleted", n, year),
		DeletedCount: n,
	})
}

func (s *Server) handleExpensesByCategory(w http.ResponseWriter, r *http.Request) {
	year, month, err := parseYearMonth(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	totals, err := s.svc.Reports.ExpensesByCategory(r.Context(), principal(r.Context()).ID, year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(totals))
}

// handleIncomeVsExpenses takes an inclusive end_date and reports over the
// window ending the day after it.
func (s *Server) handleIncomeVsExpenses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := queryDate(q, "start_date")
	if err == nil && start.IsZero() {
		err = fmt.Errorf("%w: start_date is required", core.ErrValidation)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	end, err := queryDate(q, "end_date")
	if err == nil && end.IsZero() {
		err = fmt.Errorf("%w: end_date is required", core.ErrValidation)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	exclusiveEnd := core.Date{Time: end.AddDate(0, 0, 1)}

	months, err := s.svc.Reports.IncomeVsExpenses(r.Context(), principal(r.Context()).ID, start, exclusiveEnd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(months))
}
