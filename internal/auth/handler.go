package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/mathquest/backend/internal/database"
	"github.com/mathquest/backend/internal/middleware"
	"github.com/mathquest/backend/internal/models"
	"golang.org/x/crypto/bcrypt"
)

type Handler struct {
	db    *sql.DB
	stats StatsBootstrap
}

// StatsBootstrap creates the zero-valued stats document when an account
// is first linked.
type StatsBootstrap interface {
	EnsureStats(ctx context.Context, userID int64) error
}

func NewHandler(db *sql.DB, stats StatsBootstrap) *Handler {
	return &Handler{db: db, stats: stats}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	req.ClassCode = strings.TrimSpace(strings.ToUpper(req.ClassCode))
	if req.Role == "" {
		req.Role = models.RoleStudent
	}

	if req.Email == "" || req.DisplayName == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Email, display name, and password are required"})
		return
	}
	if !req.Role.Valid() {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Role must be student or teacher"})
		return
	}
	if len(req.Password) < 8 {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Password must be at least 8 characters"})
		return
	}

	// A student joining with a class code is linked to its teacher at
	// creation time; a bad code fails fast rather than creating an
	// unlinked account the student expected to be in a class.
	var teacherID *int64
	if req.Role == models.RoleStudent && req.ClassCode != "" {
		var id int64
		err := h.db.QueryRow(
			`SELECT id FROM users WHERE class_code = $1 AND role = 'teacher'`,
			req.ClassCode,
		).Scan(&id)
		if err == sql.ErrNoRows {
			writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Unknown class code"})
			return
		}
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
			return
		}
		teacherID = &id
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
		return
	}

	var user models.User
	var insertErr error
	if req.Role == models.RoleTeacher {
		// Teachers get a join code; retry on the rare collision.
		for attempt := 0; attempt < 5; attempt++ {
			code := database.GenerateClassCode()
			insertErr = h.db.QueryRow(
				`INSERT INTO users (email, display_name, role, class_code, password, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)
				 RETURNING id, email, display_name, role, class_code, created_at, updated_at`,
				req.Email, req.DisplayName, req.Role, code, string(hashedPassword), time.Now(), time.Now(),
			).Scan(&user.ID, &user.Email, &user.DisplayName, &user.Role, &user.ClassCode, &user.CreatedAt, &user.UpdatedAt)
			if insertErr == nil || !strings.Contains(insertErr.Error(), "users_class_code_key") {
				break
			}
		}
	} else {
		insertErr = h.db.QueryRow(
			`INSERT INTO users (email, display_name, role, teacher_id, password, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 RETURNING id, email, display_name, role, created_at, updated_at`,
			req.Email, req.DisplayName, req.Role, teacherID, string(hashedPassword), time.Now(), time.Now(),
		).Scan(&user.ID, &user.Email, &user.DisplayName, &user.Role, &user.CreatedAt, &user.UpdatedAt)
		user.TeacherID = teacherID
	}

	if insertErr != nil {
		if strings.Contains(insertErr.Error(), "duplicate key") {
			writeJSON(w, http.StatusConflict, models.ErrorResponse{Error: "An account with this email already exists"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to create account"})
		return
	}

	if err := h.stats.EnsureStats(r.Context(), user.ID); err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to create account"})
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.Role)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to generate token"})
		return
	}

	writeJSON(w, http.StatusCreated, models.AuthResponse{Token: token, User: user})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Email and password are required"})
		return
	}

	user, hashedPassword, err := h.lookupByEmail(req.Email)
	if err == sql.ErrNoRows {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid email or password"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(req.Password)); err != nil {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Invalid email or password"})
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.Role)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to generate token"})
		return
	}

	writeJSON(w, http.StatusOK, models.AuthResponse{Token: token, User: user})
}

func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var user models.User
	var teacherID sql.NullInt64
	var classCode sql.NullString
	err := h.db.QueryRow(
		`SELECT id, email, display_name, role, teacher_id, COALESCE(class_code, ''), created_at, updated_at
		 FROM users WHERE id = $1`,
		userID,
	).Scan(&user.ID, &user.Email, &user.DisplayName, &user.Role, &teacherID, &classCode, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "User not found"})
		return
	}
	if teacherID.Valid {
		user.TeacherID = &teacherID.Int64
	}
	user.ClassCode = classCode.String

	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) lookupByEmail(email string) (models.User, string, error) {
	var user models.User
	var teacherID sql.NullInt64
	var classCode sql.NullString
	var hashedPassword string
	err := h.db.QueryRow(
		`SELECT id, email, display_name, role, teacher_id, COALESCE(class_code, ''), password, created_at, updated_at
		 FROM users WHERE email = $1`,
		email,
	).Scan(&user.ID, &user.Email, &user.DisplayName, &user.Role, &teacherID, &classCode, &hashedPassword, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return models.User{}, "", err
	}
	if teacherID.Valid {
		user.TeacherID = &teacherID.Int64
	}
	user.ClassCode = classCode.String
	return user, hashedPassword, nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
