package classroom

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/mathquest/backend/internal/middleware"
	"github.com/mathquest/backend/internal/models"
)

// StudentSource lists the stats snapshots of a teacher's linked
// students.
type StudentSource interface {
	StudentsOfTeacher(ctx context.Context, teacherID int64) ([]models.StatsSnapshot, error)
}

// Handler serves the teacher's class overview. Routes using it sit
// behind RequireRole(RoleTeacher).
type Handler struct {
	db       *sql.DB
	students StudentSource
}

func NewHandler(db *sql.DB, students StudentSource) *Handler {
	return &Handler{db: db, students: students}
}

type classResponse struct {
	ClassCode string                 `json:"class_code"`
	Students  []models.StatsSnapshot `json:"students"`
}

// GetClass returns the teacher's join code and per-student statistics,
// ordered by cumulative correct count.
func (h *Handler) GetClass(w http.ResponseWriter, r *http.Request) {
	teacherID := middleware.UserID(r.Context())

	var classCode string
	err := h.db.QueryRow(
		`SELECT COALESCE(class_code, '') FROM users WHERE id = $1 AND role = 'teacher'`,
		teacherID,
	).Scan(&classCode)
	if err == sql.ErrNoRows {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Teacher profile not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
		return
	}

	students, err := h.students.StudentsOfTeacher(r.Context(), teacherID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load class"})
		return
	}
	if students == nil {
		students = []models.StatsSnapshot{}
	}

	writeJSON(w, http.StatusOK, classResponse{ClassCode: classCode, Students: students})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
