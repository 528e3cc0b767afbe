package handler

import (
	"encoding/json"
	"net/http"

	"github.com/mtlprog/hrscore/internal/domain"
	"github.com/mtlprog/hrscore/internal/handler/dto"
)

// handleRecommend returns the top candidates for a task.
func (h *Handler) handleRecommend(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}
	taskID, ok := extractID(w, r, "task")
	if !ok {
		return
	}

	rec, err := h.recommendations.Recommend(r.Context(), org, taskID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, rec)
}

// handleTransitionStatus moves a task to a new status.
func (h *Handler) handleTransitionStatus(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}
	taskID, ok := extractID(w, r, "task")
	if !ok {
		return
	}

	var req dto.TransitionStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, dto.CodeInvalidJSON, "Invalid request body")
		return
	}
	if req.Status == "" {
		respondError(w, http.StatusUnprocessableEntity, dto.CodeValidation, "status is required")
		return
	}

	event, err := h.tasks.TransitionStatus(r.Context(), org, taskID, domain.TaskStatus(req.Status))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToTaskEventResponse(event))
}

// handleTaskEvents returns the status history of a task.
func (h *Handler) handleTaskEvents(w http.ResponseWriter, r *http.Request) {
	org, ok := orgID(w, r)
	if !ok {
		return
	}
	taskID, ok := extractID(w, r, "task")
	if !ok {
		return
	}

	events, err := h.tasks.Events(r.Context(), org, taskID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToTaskEventsResponse(taskID, events))
}
