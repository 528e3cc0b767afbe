package handler

import (
	"net/http"

	"github.com/mtlprog/hrscore/internal/handler/dto"
)

// handleGetScore returns the employee's productivity score, grade and trend.
func (h *Handler) handleGetScore(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}
	employeeID, ok := extractID(w, r, "employee")
	if !ok {
		return
	}

	score, err := h.scores.GetScore(r.Context(), org, employeeID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, score)
}

// handleGetTrend returns the direction of the employee's score history.
func (h *Handler) handleGetTrend(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}
	employeeID, ok := extractID(w, r, "employee")
	if !ok {
		return
	}

	trend, err := h.scores.GetTrend(r.Context(), org, employeeID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, trend)
}

// handleScoreHistory lists persisted scores of the last ?days=N days (default 30).
func (h *Handler) handleScoreHistory(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}
	employeeID, ok := extractID(w, r, "employee")
	if !ok {
		return
	}

	days, err := dto.ParseHistoryDays(r.URL.Query().Get("days"))
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, dto.CodeValidation, err.Error())
		return
	}

	since := h.now().UTC().AddDate(0, 0, -days)
	entries, err := h.scores.History(r.Context(), org, employeeID, since)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToScoreHistoryResponse(employeeID, since, entries))
}

// handleSkillGaps returns the peer-required skills the employee lacks.
func (h *Handler) handleSkillGaps(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}
	employeeID, ok := extractID(w, r, "employee")
	if !ok {
		return
	}

	report, err := h.recommendations.DetectSkillGaps(r.Context(), org, employeeID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// handleRescore queues a recomputation of the employee's score.
func (h *Handler) handleRescore(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}
	employeeID, ok := extractID(w, r, "employee")
	if !ok {
		return
	}

	if err := h.tasks.RequestRescore(r.Context(), org, employeeID); err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusAccepted, dto.RescoreAcceptedResponse{
		EmployeeID: employeeID,
		Status:     "queued",
	})
}
