package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"go-pgcopy-export/internal/model"
	"go-pgcopy-export/internal/store"
)

const jobsPrefix = "/api/v1/jobs/"

// Tracker is the live view of the current run.
type Tracker interface {
	Snapshot(jobID string) (model.JobSnapshot, bool)
	Snapshots() []model.JobSnapshot
}

// History is the ledger of past runs.
type History interface {
	ListJobs(limit int) ([]store.Job, error)
	GetJob(id string) (store.Job, error)
}

// StatusHandler serves the status API. History may be nil.
type StatusHandler struct {
	RunID   string
	Tracker Tracker
	History History
	Log     logrus.FieldLogger
}

// RunStatus is the response of ListJobs.
type RunStatus struct {
	RunID string              `json:"run_id"`
	Jobs  []model.JobSnapshot `json:"jobs"`
	Count int                 `json:"count"`
}

func writeJSON(w http.ResponseWriter, log logrus.FieldLogger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil && log != nil {
		log.WithError(err).Warn("encoding response")
	}
}

// jobIDFromPath extracts the job ID between jobsPrefix and suffix.
func jobIDFromPath(path, suffix string) (string, bool) {
	if !strings.HasPrefix(path, jobsPrefix) || !strings.HasSuffix(path, suffix) {
		return "", false
	}
	id := path[len(jobsPrefix) : len(path)-len(suffix)]
	return id, id != ""
}

// ListJobs returns every job of the current run
// @Summary List jobs
// @Description Live state and counters of every job in the current run
// @Tags jobs
// @Produce json
// @Success 200 {object} handler.RunStatus
// @Router /jobs [get]
func (h *StatusHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := h.Tracker.Snapshots()
	writeJSON(w, h.Log, RunStatus{RunID: h.RunID, Jobs: jobs, Count: len(jobs)})
}

// GetJob returns one job of the current run
// @Summary Get job
// @Description Live state, counters and recorded errors of one job
// @Tags jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} model.JobSnapshot
// @Failure 400 {string} string "Job ID is required"
// @Failure 404 {string} string "Job not found"
// @Router /jobs/{id} [get]
func (h *StatusHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := jobIDFromPath(r.URL.Path, "")
	if !ok {
		http.Error(w, "Job ID is required", http.StatusBadRequest)
		return
	}
	snap, ok := h.Tracker.Snapshot(jobID)
	if !ok {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, h.Log, snap)
}

// GetJobErrors returns the errors recorded for one job
// @Summary Get job errors
// @Description Errors recorded for one job of the current run, oldest first
// @Tags jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {string} string "Job not found"
// @Router /jobs/{id}/errors [get]
func (h *StatusHandler) GetJobErrors(w http.ResponseWriter, r *http.Request) {
	jobID, ok := jobIDFromPath(r.URL.Path, "/errors")
	if !ok {
		http.Error(w, "Job ID is required", http.StatusBadRequest)
		return
	}
	snap, ok := h.Tracker.Snapshot(jobID)
	if !ok {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, h.Log, map[string]interface{}{
		"job_id":     jobID,
		"errors":     snap.Errors,
		"count":      len(snap.Errors),
		"row_errors": snap.RowErrors,
	})
}

// ListHistory returns recorded jobs of past runs
// @Summary List job history
// @Description Jobs recorded in the run ledger, newest first
// @Tags history
// @Produce json
// @Param limit query int false "Maximum number of jobs" default(100)
// @Success 200 {array} store.Job
// @Failure 404 {string} string "No ledger configured"
// @Failure 500 {string} string "Failed to read ledger"
// @Router /history [get]
func (h *StatusHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		http.Error(w, "No ledger configured", http.StatusNotFound)
		return
	}
	limit := 100
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}
	jobs, err := h.History.ListJobs(limit)
	if err != nil {
		h.Log.WithError(err).Error("reading ledger")
		http.Error(w, "Failed to read ledger", http.StatusInternalServerError)
		return
	}
	if jobs == nil {
		jobs = []store.Job{}
	}
	writeJSON(w, h.Log, jobs)
}

// GetHistoryJob returns one recorded job
// @Summary Get recorded job
// @Description One job from the run ledger with its errors
// @Tags history
// @Produce json
// @Param id path string true "Ledger job ID"
// @Success 200 {object} store.Job
// @Failure 404 {string} string "Job not found"
// @Router /history/{id} [get]
func (h *StatusHandler) GetHistoryJob(w http.ResponseWriter, r *http.Request) {
	if h.History == nil {
		http.Error(w, "No ledger configured", http.StatusNotFound)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/history/")
	job, err := h.History.GetJob(id)
	if errors.Is(err, store.ErrJobNotFound) {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.Log.WithError(err).Error("reading ledger")
		http.Error(w, "Failed to read ledger", http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.Log, job)
}
