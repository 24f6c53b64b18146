package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mapalei/fiscal-cli/internal/leaves"
	"github.com/mapalei/fiscal-cli/internal/model"
	"github.com/mapalei/fiscal-cli/internal/pipeline"
	"github.com/mapalei/fiscal-cli/internal/store"
)

type apiHandlers struct {
	env                *appEnv
	monitorConcurrency int
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *apiHandlers) health(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := h.env.Store.Ping(r.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": status})
}

// Leaves

func (h *apiHandlers) listLeaves(w http.ResponseWriter, r *http.Request) {
	all, err := h.env.Leaves.List(r.Context())
	if err != nil {
		zap.L().Error("list leaves failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list leaves")
		return
	}
	if all == nil {
		all = []model.Leaf{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaves": all})
}

func (h *apiHandlers) createLeaf(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string `json:"name"`
		CategoryPath string `json:"category_path"`
		NCM          string `json:"ncm"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.CategoryPath == "" {
		writeError(w, http.StatusBadRequest, "name and category_path are required")
		return
	}

	leaf, err := h.env.Leaves.Create(r.Context(), req.Name, req.CategoryPath, req.NCM)
	if err != nil {
		zap.L().Error("create leaf failed", zap.String("category_path", req.CategoryPath), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create leaf")
		return
	}
	writeJSON(w, http.StatusCreated, leaf)
}

func (h *apiHandlers) getLeaf(w http.ResponseWriter, r *http.Request) {
	leaf, err := h.env.Leaves.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, leaves.ErrNotFound) {
			writeError(w, http.StatusNotFound, "leaf not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load leaf")
		return
	}
	writeJSON(w, http.StatusOK, leaf)
}

func (h *apiHandlers) leafCoverage(w http.ResponseWriter, r *http.Request) {
	report, err := h.env.Leaves.RefreshCoverage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, leaves.ErrNotFound) {
			writeError(w, http.StatusNotFound, "leaf not found")
			return
		}
		zap.L().Error("coverage refresh failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to compute coverage")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *apiHandlers) activateLeaf(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	taskIDs, err := h.env.Leaves.Activate(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, leaves.ErrNotFound):
			writeError(w, http.StatusNotFound, "leaf not found")
		case errors.Is(err, leaves.ErrAlreadyActivated):
			writeError(w, http.StatusConflict, "leaf already activated")
		default:
			zap.L().Error("activation failed", zap.String("leaf_id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to activate leaf")
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"leaf_id":       id,
		"tasks_created": len(taskIDs),
		"task_ids":      taskIDs,
	})
}

// Tasks

func (h *apiHandlers) listTasks(w http.ResponseWriter, r *http.Request) {
	filter := store.TaskFilter{
		LeafID: r.URL.Query().Get("leaf_id"),
		Status: model.TaskStatus(r.URL.Query().Get("status")),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	tasks, err := h.env.Store.ListTasks(r.Context(), filter)
	if err != nil {
		zap.L().Error("list tasks failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (h *apiHandlers) patchTask(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	var patch model.TaskPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if patch.Status != nil {
		valid := false
		for _, s := range model.KanbanStatuses {
			if *patch.Status == s {
				valid = true
				break
			}
		}
		if !valid {
			writeError(w, http.StatusBadRequest, "invalid task status")
			return
		}
	}

	task, err := h.env.Store.PatchTask(r.Context(), id, patch)
	if err != nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// Proposals

var outcomeStatus = map[pipeline.Outcome]int{
	pipeline.OutcomeQAFailed:    http.StatusUnprocessableEntity,
	pipeline.OutcomeRejected:    http.StatusUnprocessableEntity,
	pipeline.OutcomeRework:      http.StatusAccepted,
	pipeline.OutcomeWriteFailed: http.StatusInternalServerError,
	pipeline.OutcomeDone:        http.StatusCreated,
}

func (h *apiHandlers) submitProposal(w http.ResponseWriter, r *http.Request) {
	var proposal model.Proposal
	if err := json.NewDecoder(r.Body).Decode(&proposal); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := h.env.Pipeline.Run(r.Context(), proposal)
	writeJSON(w, outcomeStatus[result.Outcome], result)
}

// Monitor

func (h *apiHandlers) monitorCheck(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EvidenceID string `json:"evidence_id"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	if req.EvidenceID != "" {
		res, err := h.env.Monitor.CheckOne(r.Context(), req.EvidenceID)
		if err != nil {
			writeError(w, http.StatusNotFound, "evidence not found")
			return
		}
		writeJSON(w, http.StatusOK, res)
		return
	}

	results, err := h.env.Monitor.CheckAll(r.Context(), h.monitorConcurrency)
	if err != nil {
		zap.L().Error("monitor sweep failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "monitor sweep failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// Dashboard

func (h *apiHandlers) metrics(w http.ResponseWriter, r *http.Request) {
	m, err := h.env.Store.DashboardMetrics(r.Context())
	if err != nil {
		zap.L().Error("dashboard metrics failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to compute metrics")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *apiHandlers) fiscalMetrics(w http.ResponseWriter, r *http.Request) {
	if h.env.ClassificaAI == nil {
		writeError(w, http.StatusServiceUnavailable, "classificaai integration not configured")
		return
	}
	m, err := h.env.ClassificaAI.FiscalMetrics(r.Context())
	if err != nil {
		zap.L().Error("fiscal metrics proxy failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "classificaai unavailable")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *apiHandlers) fiscalAlerts(w http.ResponseWriter, r *http.Request) {
	if h.env.ClassificaAI == nil {
		writeError(w, http.StatusServiceUnavailable, "classificaai integration not configured")
		return
	}
	alerts, err := h.env.ClassificaAI.FiscalAlerts(r.Context())
	if err != nil {
		zap.L().Error("fiscal alerts proxy failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "classificaai unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}
