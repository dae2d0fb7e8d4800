package models

import "time"

// Role discriminates the two profile variants returned from a profile
// lookup. It is resolved once at load time; downstream logic switches on
// the tag instead of probing for field presence.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTeacher
}

type User struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
	// TeacherID is set on students linked to a teacher's class.
	TeacherID *int64 `json:"teacher_id,omitempty"`
	// ClassCode is set on teacher accounts only: the join code students
	// use at registration.
	ClassCode string    `json:"class_code,omitempty"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
	Role        Role   `json:"role"`
	// ClassCode links a registering student to a teacher. Optional.
	ClassCode string `json:"class_code,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
