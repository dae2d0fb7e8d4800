package stats

import (
	"encoding/json"
	"net/http"

	"github.com/mathquest/backend/internal/middleware"
	"github.com/mathquest/backend/internal/models"
)

// Handler serves profile statistics reads.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Me returns the caller's persisted statistics snapshot.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.Snapshot(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load statistics"})
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
