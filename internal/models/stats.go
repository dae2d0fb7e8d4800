package models

import "time"

// DayCount is one daily-history bucket. Both values only ever increase.
type DayCount struct {
	Correct   int `json:"correct"`
	Incorrect int `json:"incorrect"`
}

// StatsSnapshot is a point-in-time read of a user's persisted statistics
// document. TotalCorrect and TotalIncorrect are monotonically
// non-decreasing for the life of the document: they are only incremented,
// never overwritten wholesale. DailyHistory keys are calendar dates
// ("2006-01-02") in the player's local timezone.
type StatsSnapshot struct {
	UserID      int64  `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
	// TeacherID links a student to a teacher's class. Nil when unlinked
	// and always nil for teacher profiles.
	TeacherID      *int64              `json:"teacher_id,omitempty"`
	TotalCorrect   int                 `json:"total_correct"`
	TotalIncorrect int                 `json:"total_incorrect"`
	Streak         int                 `json:"streak"`
	// LastPlayedDate is a calendar date string, empty if never played.
	LastPlayedDate string              `json:"last_played_date,omitempty"`
	LastActiveAt   time.Time           `json:"last_active_at"`
	DailyHistory   map[string]DayCount `json:"daily_history"`
	// Badges and BadgesCount are a denormalized cache derived from
	// TotalCorrect; the badge policy is the source of truth.
	Badges      []Badge `json:"badges"`
	BadgesCount int     `json:"badges_count"`
}

// Badge is an achievement unlocked at a cumulative-correct threshold.
// Purely derived from TotalCorrect.
type Badge struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	RequiredCorrect int    `json:"required_correct"`
	Icon            string `json:"icon"`
	Unlocked        bool   `json:"unlocked"`
}

// DateKey formats t as a daily-history key in t's location.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// ── Leaderboard ───────────────────────────────────────────

// LeaderboardEntry is a read-only projection of a stats snapshot,
// ordered by TotalCorrect descending. Never separately persisted.
type LeaderboardEntry struct {
	Rank          int       `json:"rank"`
	UserID        int64     `json:"user_id"`
	DisplayName   string    `json:"display_name"`
	Role          Role      `json:"role"`
	TotalCorrect  int       `json:"total_correct"`
	BadgesCount   int       `json:"badges_count"`
	LastActiveAt  time.Time `json:"last_active_at"`
	IsCurrentUser bool      `json:"is_current_user,omitempty"`
}

type LeaderboardResponse struct {
	Entries     []LeaderboardEntry `json:"entries"`
	CurrentUser *LeaderboardEntry  `json:"current_user,omitempty"`
}
