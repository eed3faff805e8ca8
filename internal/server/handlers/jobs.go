// Package handlers implements the HTTP endpoints of the diagnostics API.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apierrors "github.com/ColorsOutofSpace/net-check/internal/errors"
	"github.com/ColorsOutofSpace/net-check/internal/server/middleware"
	"github.com/ColorsOutofSpace/net-check/pkg/analysis"
	"github.com/ColorsOutofSpace/net-check/pkg/catalog"
	"github.com/ColorsOutofSpace/net-check/pkg/jobmanager"
)

// defaultEventBuffer is the per-client event backlog before a slow
// stream consumer is dropped.
const defaultEventBuffer = 256

// JobsHandler exposes job creation, inspection and the live event stream.
type JobsHandler struct {
	manager     *jobmanager.Manager
	catalog     *catalog.Catalog
	layers      []catalog.Layer
	analysisCfg analysis.Config
	logger      *zap.Logger
	eventBuffer int
}

func NewJobsHandler(m *jobmanager.Manager, cat *catalog.Catalog, layers []catalog.Layer, cfg analysis.Config, logger *zap.Logger) *JobsHandler {
	if layers == nil {
		layers = catalog.DefaultLayers()
	}
	return &JobsHandler{
		manager:     m,
		catalog:     cat,
		layers:      layers,
		analysisCfg: cfg,
		logger:      logger,
		eventBuffer: defaultEventBuffer,
	}
}

type createJobRequest struct {
	CheckID        string `json:"check_id"`
	Target         string `json:"target"`
	Count          int    `json:"count"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// Create starts a job for the requested check and returns its initial
// snapshot with 202.
func (h *JobsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.CodeValidation,
			"request body must be valid JSON", middleware.GetRequestID(r.Context()))
		return
	}
	if strings.TrimSpace(req.CheckID) == "" {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.CodeValidation,
			"check_id is required", middleware.GetRequestID(r.Context()))
		return
	}

	snap, err := h.manager.CreateJob(req.CheckID, jobmanager.Input{
		Target:         req.Target,
		Count:          req.Count,
		TimeoutSeconds: req.TimeoutSeconds,
	})
	if err != nil {
		apierrors.RespondWithError(w, err, middleware.GetRequestID(r.Context()))
		return
	}

	h.logger.Info("job created",
		zap.String("job_id", snap.ID),
		zap.String("check_id", snap.CheckID),
		zap.String("target", snap.Target))

	writeJSON(w, http.StatusAccepted, snap)
}

// Get returns the current snapshot of one job.
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	snap, err := h.manager.GetJob(jobID)
	if err != nil {
		apierrors.RespondWithError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// List returns every retained job snapshot, oldest first.
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"jobs": h.manager.Snapshots()})
}

// Events streams the job's event history and live tail as server-sent
// events. Replay is atomic with live delivery, so a late subscriber sees
// every event exactly once and in order.
func (h *JobsHandler) Events(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		apierrors.WriteError(w, http.StatusInternalServerError, apierrors.CodeInternal,
			"streaming unsupported by connection", middleware.GetRequestID(r.Context()))
		return
	}

	// Subscriber callbacks run under the job lock and must not block, so
	// hand events off through a buffered channel. A client too slow to
	// drain the buffer is dropped; the callback signals that by closing
	// the channel, so nothing but channel operations cross goroutines.
	events := make(chan jobmanager.Event, h.eventBuffer)
	dropped := false
	unsubscribe, err := h.manager.Subscribe(jobID, func(ev jobmanager.Event) {
		if dropped {
			return
		}
		select {
		case events <- ev:
		default:
			dropped = true
			close(events)
		}
	})
	if err != nil {
		apierrors.RespondWithError(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				h.logger.Warn("dropping slow event stream client", zap.String("job_id", jobID))
				return
			}
			if err := writeSSE(w, ev); err != nil {
				return
			}
			flusher.Flush()
			if ev.Kind == jobmanager.EventComplete {
				return
			}
		}
	}
}

// Checks lists the runnable checks of the catalog.
func (h *JobsHandler) Checks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"checks": h.catalog.List()})
}

// Summary rolls the retained jobs up into per-layer status and root causes.
func (h *JobsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	items := analysis.ItemsFromSnapshots(h.manager.Snapshots())
	summary := analysis.BuildSummaryWithConfig(items, h.layers, h.analysisCfg)
	writeJSON(w, http.StatusOK, summary)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSSE(w http.ResponseWriter, ev jobmanager.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
	return err
}
