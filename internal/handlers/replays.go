package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/jwebster45206/replay-engine/internal/events"
	"github.com/jwebster45206/replay-engine/internal/logger"
	"github.com/jwebster45206/replay-engine/internal/middleware"
	"github.com/jwebster45206/replay-engine/internal/queue"
	"github.com/jwebster45206/replay-engine/internal/storage"
	"github.com/jwebster45206/replay-engine/pkg/parser"
	"github.com/jwebster45206/replay-engine/pkg/replay"
)

// maxBodyBytes bounds a submitted capture; replay pages are large but not unbounded.
const maxBodyBytes = 64 << 20

// Enqueuer accepts parse jobs for asynchronous processing.
type Enqueuer interface {
	Enqueue(ctx context.Context, job *queue.Job) error
}

// ParseRequest is the body of POST /v1/replays.
type ParseRequest struct {
	ReplayID          string               `json:"replay_id"`
	PlayerPerspective string               `json:"player_perspective"`
	ReplayHTML        string               `json:"replay_html"`
	TableHTML         string               `json:"table_html,omitempty"`
	Assignment        json.RawMessage      `json:"assignment,omitempty"`
	Metadata          *replay.GameMetadata `json:"metadata,omitempty"`
	Reprocess         bool                 `json:"reprocess,omitempty"`
}

// JobResponse is returned when a capture was queued.
type JobResponse struct {
	JobID string `json:"job_id"`
}

// ListResponse is the body of GET /v1/replays.
type ListResponse struct {
	Records []storage.Summary `json:"records"`
	Count   int               `json:"count"`
}

type ReplayHandler struct {
	parser *parser.Parser
	store  storage.Store
	queue  Enqueuer
	events *events.Broadcaster
	logger *slog.Logger
}

// NewReplayHandler serves the replay endpoints. q may be nil, which disables async parsing.
func NewReplayHandler(p *parser.Parser, store storage.Store, q Enqueuer, logger *slog.Logger) *ReplayHandler {
	return &ReplayHandler{
		parser: p,
		store:  store,
		queue:  q,
		logger: logger,
	}
}

// WithEvents publishes a job.queued event for every async request.
func (h *ReplayHandler) WithEvents(b *events.Broadcaster) *ReplayHandler {
	h.events = b
	return h
}

// Register mounts the routes:
// POST   /v1/replays                              - Parse a capture (?async=true to queue it)
// GET    /v1/replays                              - List stored records
// GET    /v1/replays/{replay_id}/{perspective}    - Read one record
// DELETE /v1/replays/{replay_id}/{perspective}    - Delete one record
func (h *ReplayHandler) Register(r *mux.Router) {
	r.HandleFunc("/v1/replays", h.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/v1/replays", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/v1/replays/{replay_id}/{perspective}", h.handleRead).Methods(http.MethodGet)
	r.HandleFunc("/v1/replays/{replay_id}/{perspective}", h.handleDelete).Methods(http.MethodDelete)
}

func (h *ReplayHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	log := middleware.FromContext(r.Context(), h.logger)

	var req ParseRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		log.Warn("Invalid parse request body", "error", err)
		writeError(w, log, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ReplayID == "" {
		writeError(w, log, http.StatusBadRequest, "replay_id is required")
		return
	}
	if req.ReplayHTML == "" {
		writeError(w, log, http.StatusBadRequest, "replay_html is required")
		return
	}
	log = logger.WithReplay(log, req.ReplayID, req.PlayerPerspective)

	async, _ := strconv.ParseBool(r.URL.Query().Get("async"))
	if async {
		h.enqueue(w, r, log, req)
		return
	}

	rec, err := h.parser.Parse(parser.Capture{
		ReplayID:          req.ReplayID,
		PlayerPerspective: req.PlayerPerspective,
		ReplayHTML:        req.ReplayHTML,
		TableHTML:         req.TableHTML,
		Assignment:        req.Assignment,
		Metadata:          req.Metadata,
	})
	if err != nil {
		writeFailure(w, log, err, "parse replay")
		return
	}
	if err := h.store.SaveRecord(r.Context(), rec); err != nil {
		writeFailure(w, log, err, "save record")
		return
	}

	writeJSON(w, log, http.StatusCreated, rec)
}

func (h *ReplayHandler) enqueue(w http.ResponseWriter, r *http.Request, log *slog.Logger, req ParseRequest) {
	if h.queue == nil {
		writeError(w, log, http.StatusServiceUnavailable, "Async parsing is not enabled")
		return
	}
	if req.Metadata != nil {
		writeError(w, log, http.StatusBadRequest, "metadata is not supported for async parsing; send assignment or table_html")
		return
	}

	job := queue.NewJob(req.ReplayID, req.PlayerPerspective, req.ReplayHTML)
	job.TableHTML = req.TableHTML
	job.Assignment = req.Assignment
	job.Reprocess = req.Reprocess

	if err := h.queue.Enqueue(r.Context(), job); err != nil {
		writeFailure(w, log, err, "enqueue job")
		return
	}
	log.Info("Parse job enqueued", "job_id", job.JobID)
	if h.events != nil {
		if err := h.events.PublishJobQueued(r.Context(), job); err != nil {
			log.Warn("Failed to publish queued event", "error", err)
		}
	}
	writeJSON(w, log, http.StatusAccepted, JobResponse{JobID: job.JobID})
}

func (h *ReplayHandler) handleList(w http.ResponseWriter, r *http.Request) {
	log := middleware.FromContext(r.Context(), h.logger)

	summaries, err := h.store.ListRecords(r.Context())
	if err != nil {
		writeFailure(w, log, err, "list records")
		return
	}
	writeJSON(w, log, http.StatusOK, ListResponse{Records: summaries, Count: len(summaries)})
}

func (h *ReplayHandler) handleRead(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	log := logger.WithReplay(middleware.FromContext(r.Context(), h.logger), vars["replay_id"], vars["perspective"])

	rec, err := h.store.LoadRecord(r.Context(), vars["replay_id"], vars["perspective"])
	if err != nil {
		writeFailure(w, log, err, "load record")
		return
	}
	writeJSON(w, log, http.StatusOK, rec)
}

func (h *ReplayHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	log := logger.WithReplay(middleware.FromContext(r.Context(), h.logger), vars["replay_id"], vars["perspective"])

	if err := h.store.DeleteRecord(r.Context(), vars["replay_id"], vars["perspective"]); err != nil {
		writeFailure(w, log, err, "delete record")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
