package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mathquest/backend/internal/models"
	"github.com/mathquest/backend/internal/stats"
)

// Store is the postgres-backed profile store. Counter fields are written
// as SET x = x + $n so concurrent reconciliations commute; non-counter
// fields are merged last-write-wins without touching unrelated columns.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureStats creates the zero-valued stats row for a user if absent.
// Called once at registration; safe to repeat.
func (s *Store) EnsureStats(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_stats (user_id) VALUES ($1)
		 ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("ensure stats: %w", err)
	}
	return nil
}

// GetProfile loads a user's full stats snapshot, role tag included.
func (s *Store) GetProfile(ctx context.Context, userID int64) (models.StatsSnapshot, error) {
	var snap models.StatsSnapshot
	var lastPlayed sql.NullString
	var teacherID sql.NullInt64
	var badgesJSON []byte

	err := s.db.QueryRowContext(ctx,
		`SELECT u.id, u.email, u.display_name, u.role, u.teacher_id,
		        st.total_correct, st.total_incorrect, st.streak,
		        st.last_played_date, st.last_active_at, st.badges, st.badges_count
		 FROM users u
		 JOIN user_stats st ON st.user_id = u.id
		 WHERE u.id = $1`,
		userID,
	).Scan(&snap.UserID, &snap.Email, &snap.DisplayName, &snap.Role, &teacherID,
		&snap.TotalCorrect, &snap.TotalIncorrect, &snap.Streak,
		&lastPlayed, &snap.LastActiveAt, &badgesJSON, &snap.BadgesCount)
	if err != nil {
		return models.StatsSnapshot{}, fmt.Errorf("get profile: %w", err)
	}

	if lastPlayed.Valid {
		snap.LastPlayedDate = lastPlayed.String
	}
	if teacherID.Valid {
		snap.TeacherID = &teacherID.Int64
	}
	if len(badgesJSON) > 0 {
		if err := json.Unmarshal(badgesJSON, &snap.Badges); err != nil {
			return models.StatsSnapshot{}, fmt.Errorf("decode badges: %w", err)
		}
	}

	snap.DailyHistory, err = s.dailyHistory(ctx, userID)
	if err != nil {
		return models.StatsSnapshot{}, err
	}
	return snap, nil
}

func (s *Store) dailyHistory(ctx context.Context, userID int64) (map[string]models.DayCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT day, correct, incorrect FROM user_daily_history WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("get daily history: %w", err)
	}
	defer rows.Close()

	history := make(map[string]models.DayCount)
	for rows.Next() {
		var day string
		var dc models.DayCount
		if err := rows.Scan(&day, &dc.Correct, &dc.Incorrect); err != nil {
			return nil, fmt.Errorf("scan daily history: %w", err)
		}
		history[day] = dc
	}
	return history, rows.Err()
}

// ApplyDelta merges one reconciliation into the user's document inside a
// single transaction. The cumulative counters and the daily bucket are
// additive, so deltas from concurrent sessions never lose counts; the
// streak, last-played, and badge-cache fields take the delta's value.
func (s *Store) ApplyDelta(ctx context.Context, delta stats.Delta) error {
	badgesJSON, err := json.Marshal(delta.Badges)
	if err != nil {
		return fmt.Errorf("encode badges: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin apply delta: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE user_stats SET
		    total_correct = total_correct + $2,
		    total_incorrect = total_incorrect + $3,
		    streak = $4,
		    last_played_date = $5,
		    last_active_at = $6,
		    badges = $7,
		    badges_count = $8,
		    updated_at = NOW()
		 WHERE user_id = $1`,
		delta.UserID, delta.AddedCorrect, delta.AddedIncorrect,
		delta.Streak, delta.LastPlayedDate, delta.LastActiveAt,
		badgesJSON, delta.BadgesCount,
	)
	if err != nil {
		return fmt.Errorf("apply stats delta: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("apply stats delta: no stats row for user %d", delta.UserID)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO user_daily_history (user_id, day, correct, incorrect)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, day) DO UPDATE SET
		    correct = user_daily_history.correct + EXCLUDED.correct,
		    incorrect = user_daily_history.incorrect + EXCLUDED.incorrect`,
		delta.UserID, delta.Day, delta.AddedCorrect, delta.AddedIncorrect,
	)
	if err != nil {
		return fmt.Errorf("apply daily bucket: %w", err)
	}

	return tx.Commit()
}

// Entries hydrates leaderboard rows for the given user ids, preserving
// the caller's (score-descending) order.
func (s *Store) Entries(ctx context.Context, userIDs []int64) ([]models.LeaderboardEntry, error) {
	entries := make([]models.LeaderboardEntry, 0, len(userIDs))
	for _, id := range userIDs {
		var e models.LeaderboardEntry
		err := s.db.QueryRowContext(ctx,
			`SELECT u.id, u.display_name, u.role, st.total_correct, st.badges_count, st.last_active_at
			 FROM users u
			 JOIN user_stats st ON st.user_id = u.id
			 WHERE u.id = $1`,
			id,
		).Scan(&e.UserID, &e.DisplayName, &e.Role, &e.TotalCorrect, &e.BadgesCount, &e.LastActiveAt)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("hydrate leaderboard entry %d: %w", id, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// TopByTotalCorrect is the store-side leaderboard query, used to seed
// the redis projection at startup and as the fallback read path.
func (s *Store) TopByTotalCorrect(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id, u.display_name, u.role, st.total_correct, st.badges_count, st.last_active_at
		 FROM users u
		 JOIN user_stats st ON st.user_id = u.id
		 WHERE u.role = 'student'
		 ORDER BY st.total_correct DESC, u.id ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("top by total correct: %w", err)
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.DisplayName, &e.Role, &e.TotalCorrect, &e.BadgesCount, &e.LastActiveAt); err != nil {
			return nil, fmt.Errorf("scan leaderboard entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// StudentsOfTeacher lists the stats snapshots of every student linked to
// the teacher's class, most recently active first.
func (s *Store) StudentsOfTeacher(ctx context.Context, teacherID int64) ([]models.StatsSnapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.id FROM users u
		 WHERE u.teacher_id = $1 AND u.role = 'student'
		 ORDER BY (SELECT st.last_active_at FROM user_stats st WHERE st.user_id = u.id) DESC`,
		teacherID,
	)
	if err != nil {
		return nil, fmt.Errorf("students of teacher: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	snaps := make([]models.StatsSnapshot, 0, len(ids))
	for _, id := range ids {
		snap, err := s.GetProfile(ctx, id)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}
