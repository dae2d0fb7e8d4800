package leaderboard

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mathquest/backend/internal/middleware"
	"github.com/mathquest/backend/internal/models"
)

type Handler struct {
	board *Board
}

func NewHandler(board *Board) *Handler {
	return &Handler{board: board}
}

// Get serves a ranked snapshot. The caller's own row is flagged and, if
// the caller placed below the cut, appended with its true rank so the
// client can always show "you are #N".
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	limit := DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	entries, err := h.board.Top(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load leaderboard"})
		return
	}

	userID := middleware.UserID(r.Context())
	resp := models.LeaderboardResponse{Entries: entries}

	for i := range resp.Entries {
		if resp.Entries[i].UserID == userID {
			resp.Entries[i].IsCurrentUser = true
			me := resp.Entries[i]
			resp.CurrentUser = &me
			break
		}
	}
	if resp.CurrentUser == nil && userID != 0 {
		if me, ok := h.callerEntry(r, userID); ok {
			resp.CurrentUser = &me
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// callerEntry builds the caller's row when it placed below the cut.
func (h *Handler) callerEntry(r *http.Request, userID int64) (models.LeaderboardEntry, bool) {
	rank, _, err := h.board.Rank(r.Context(), userID)
	if err != nil || rank == 0 {
		return models.LeaderboardEntry{}, false
	}
	rows, err := h.board.source.Entries(r.Context(), []int64{userID})
	if err != nil || len(rows) == 0 {
		return models.LeaderboardEntry{}, false
	}
	me := rows[0]
	me.Rank = rank
	me.IsCurrentUser = true
	return me, true
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect cross-origin from the game frontend.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 45 * time.Second
)

// Live upgrades to a websocket and streams leaderboard snapshots: one
// immediately on connect, then on every score change and refresher tick.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[leaderboard] websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	feed, cancel := h.board.Hub().Subscribe()
	defer cancel()

	// Reader only consumes control frames; a read error means the
	// client went away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if entries, err := h.board.Top(r.Context(), DefaultLimit); err == nil {
		if err := writeSnapshot(conn, entries); err != nil {
			return
		}
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case entries, ok := <-feed:
			if !ok {
				return
			}
			if err := writeSnapshot(conn, entries); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeSnapshot(conn *websocket.Conn, entries []models.LeaderboardEntry) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(models.LeaderboardResponse{Entries: entries})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
