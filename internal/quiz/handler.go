package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/mathquest/backend/internal/feedback"
	"github.com/mathquest/backend/internal/middleware"
	"github.com/mathquest/backend/internal/models"
	"github.com/mathquest/backend/internal/problems"
	"github.com/mathquest/backend/internal/stats"
)

// Handler exposes the quiz session lifecycle over HTTP. Countdown
// goroutines are parented to lifeCtx so server shutdown stops them all.
type Handler struct {
	registry *Registry
	stats    *stats.Service
	feedback *feedback.Service
	lifeCtx  context.Context
}

func NewHandler(lifeCtx context.Context, registry *Registry, statsSvc *stats.Service, feedbackSvc *feedback.Service) *Handler {
	return &Handler{
		registry: registry,
		stats:    statsSvc,
		feedback: feedbackSvc,
		lifeCtx:  lifeCtx,
	}
}

type startRequest struct {
	Difficulty models.Difficulty `json:"difficulty"`
	Operation  models.Operation  `json:"operation"`
}

type submitRequest struct {
	Answer string `json:"answer"`
}

// sessionResponse is the uniform reply for every session mutation. Stats
// and Feedback are present only on the response that finished the
// session.
type sessionResponse struct {
	Session View           `json:"session"`
	Outcome *SubmitOutcome `json:"outcome,omitempty"`
	// Stats is the post-session snapshot. StatsSaved false with a
	// non-nil Stats means persistence failed and the snapshot is the
	// optimistic in-memory view.
	Stats      *models.StatsSnapshot `json:"stats,omitempty"`
	StatsSaved bool                  `json:"stats_saved,omitempty"`
	Feedback   string                `json:"feedback,omitempty"`
}

// Start creates a session with a fresh problem sequence and begins the
// countdown.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if !req.Difficulty.Valid() {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Difficulty must be beginner, intermediate, or expert"})
		return
	}
	if !req.Operation.Valid() {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Operation must be add, sub, mul, div, or mixed"})
		return
	}

	userID := middleware.UserID(r.Context())
	seq := problems.Generate(req.Difficulty, req.Operation, problems.DefaultCount)

	session := NewSession(uuid.NewString(), userID, req.Difficulty, req.Operation, seq, DefaultDuration)
	h.registry.Put(session)
	session.StartCountdown(h.lifeCtx)

	log.Printf("[quiz] session %s started: user=%d difficulty=%s operation=%s", session.ID, userID, req.Difficulty, req.Operation)
	writeJSON(w, http.StatusCreated, sessionResponse{Session: session.Snapshot()})
}

// Get returns the current session view.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Session: session.Snapshot()})
}

// Answer grades one submission.
func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	outcome, err := session.SubmitAnswer(req.Answer)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	h.respond(w, r, session, outcome)
}

// Skip resolves the current question as incorrect after a failed
// attempt.
func (h *Handler) Skip(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	outcome, err := session.Skip()
	if err != nil {
		writeSessionError(w, err)
		return
	}

	h.respond(w, r, session, outcome)
}

// Restart replays the same problem sequence after a timeout.
func (h *Handler) Restart(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	if err := session.RestartAfterTimeout(); err != nil {
		writeSessionError(w, err)
		return
	}
	session.StartCountdown(h.lifeCtx)

	writeJSON(w, http.StatusOK, sessionResponse{Session: session.Snapshot()})
}

// Abandon drops the session without recording anything.
func (h *Handler) Abandon(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	h.registry.Remove(session.ID)
	w.WriteHeader(http.StatusNoContent)
}

// respond writes the post-mutation view and, when the mutation finished
// the session, reconciles stats and attaches feedback.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, session *Session, outcome SubmitOutcome) {
	resp := sessionResponse{Session: session.Snapshot(), Outcome: &outcome}

	if outcome.Finished {
		result := session.Result()

		ctx, cancel := context.WithTimeout(h.lifeCtx, 15*time.Second)
		defer cancel()

		snapshot, err := h.stats.RecordSession(ctx, session.UserID, *result)
		switch {
		case err == nil:
			resp.Stats = &snapshot
			resp.StatsSaved = true
		case errors.Is(err, stats.ErrWrongRole):
			// Teachers can play; their rounds are never recorded.
			resp.StatsSaved = false
		default:
			log.Printf("[quiz] session %s finished but stats failed: %v", session.ID, err)
			resp.StatsSaved = false
		}

		resp.Feedback = h.feedback.ForSession(ctx, *result, session.Difficulty, session.Operation)
	}

	writeJSON(w, http.StatusOK, resp)
}

// ownedSession loads the session and enforces ownership. A session
// belonging to another user reads as not found.
func (h *Handler) ownedSession(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id := mux.Vars(r)["id"]
	session, ok := h.registry.Get(id)
	if !ok || session.UserID != middleware.UserID(r.Context()) {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Session not found"})
		return nil, false
	}
	return session, true
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotActive):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "Session is not accepting answers"})
	case errors.Is(err, ErrSkipUnavailable):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "Skip is only available after a wrong attempt"})
	case errors.Is(err, ErrNotTimedOut):
		writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "Restart is only valid after a timeout"})
	default:
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
