package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/snowmigrate/snowmigrate-api/internal/connections"
	"github.com/snowmigrate/snowmigrate-api/internal/engine"
	"github.com/snowmigrate/snowmigrate-api/internal/jobstore"
	"github.com/snowmigrate/snowmigrate-api/internal/models"
)

type JobHandler struct {
	engine *engine.Engine
	logger zerolog.Logger
}

func NewJobHandler(eng *engine.Engine, logger zerolog.Logger) *JobHandler {
	return &JobHandler{engine: eng, logger: logger}
}

type createJobRequest struct {
	SourceConnectionID string `json:"source_connection_id"`
	TargetConnectionID string `json:"target_connection_id"`
	StagingAreaID      string `json:"staging_area_id"`
	TargetSchema       string `json:"target_schema"`
	Tables             []struct {
		SchemaName string `json:"schema_name"`
		TableName  string `json:"table_name"`
		RowCount   *int64 `json:"row_count"`
	} `json:"tables"`
}

func (h *JobHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var payload createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if payload.SourceConnectionID == "" || payload.TargetConnectionID == "" {
		http.Error(w, "Source and target connection IDs are required", http.StatusBadRequest)
		return
	}
	if len(payload.Tables) == 0 {
		http.Error(w, "At least one table must be selected", http.StatusBadRequest)
		return
	}

	spec := models.JobSpec{
		SourceConnectionID: payload.SourceConnectionID,
		TargetConnectionID: payload.TargetConnectionID,
		StagingAreaID:      payload.StagingAreaID,
		TargetSchema:       payload.TargetSchema,
	}
	for _, t := range payload.Tables {
		if t.SchemaName == "" || t.TableName == "" {
			http.Error(w, "Table selections require schema_name and table_name", http.StatusBadRequest)
			return
		}
		spec.Tables = append(spec.Tables, models.TableSelection{
			SchemaName: t.SchemaName,
			TableName:  t.TableName,
			RowCount:   t.RowCount,
		})
	}

	job := h.engine.CreateJob(spec)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(job)
}

func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	var jobs []models.Job
	if r.URL.Query().Get("active") == "true" {
		jobs = h.engine.ActiveJobs()
	} else {
		jobs = h.engine.Jobs()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(jobs)
}

func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.engine.Job(mux.Vars(r)["jobID"])
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job)
}

func (h *JobHandler) StartJob(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.engine.Start)
}

func (h *JobHandler) PauseJob(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.engine.Pause)
}

func (h *JobHandler) ResumeJob(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.engine.Resume)
}

func (h *JobHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.engine.Cancel)
}

func (h *JobHandler) transition(w http.ResponseWriter, r *http.Request, op func(string) error) {
	jobID := mux.Vars(r)["jobID"]
	if err := op(jobID); err != nil {
		h.writeEngineError(w, err)
		return
	}

	job, err := h.engine.Job(jobID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(job)
}

// StreamProgress sends progress snapshots as server-sent events until the
// job settles or the client disconnects.
func (h *JobHandler) StreamProgress(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobID"]

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	updates, err := h.engine.SubscribeProgress(r.Context(), jobID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	for progress := range updates {
		data, err := json.Marshal(progress)
		if err != nil {
			h.logger.Error().Err(err).Str("job_id", jobID).Msg("Failed to encode progress event")
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	// Final snapshot so clients see the terminal state.
	if job, err := h.engine.Job(jobID); err == nil {
		data, _ := json.Marshal(job)
		fmt.Fprintf(w, "event: done\ndata: %s\n\n", data)
		flusher.Flush()
	}
}

func (h *JobHandler) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, jobstore.ErrNotFound) || errors.Is(err, connections.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, engine.ErrInvalidState):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, engine.ErrConcurrencyLimit):
		http.Error(w, err.Error(), http.StatusTooManyRequests)
	default:
		h.logger.Error().Err(err).Msg("Job operation failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
