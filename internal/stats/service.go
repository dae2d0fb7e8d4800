package stats

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mathquest/backend/internal/models"
)

// ErrWrongRole is returned when a session result arrives for a profile
// that is not a student; reconciliation is aborted without a write.
var ErrWrongRole = errors.New("profile is not a student")

// ProfileStore is the slice of the remote profile store the reconciler
// consumes. Counter fields in the delta must be applied as atomic
// increments; non-counter fields merge without touching unrelated ones.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID int64) (models.StatsSnapshot, error)
	ApplyDelta(ctx context.Context, delta Delta) error
}

// ScoreBoard receives cumulative-correct increments for the live
// leaderboard projection.
type ScoreBoard interface {
	Bump(ctx context.Context, userID int64, addedCorrect int) error
}

// Service applies finished sessions to durable per-user statistics.
// The store and board are injected so tests can run against fakes.
type Service struct {
	store ProfileStore
	board ScoreBoard
	now   func() time.Time
}

func NewService(store ProfileStore, board ScoreBoard) *Service {
	return &Service{store: store, board: board, now: time.Now}
}

// NewServiceWithClock is test-only, for deterministic dates.
func NewServiceWithClock(store ProfileStore, board ScoreBoard, now func() time.Time) *Service {
	return &Service{store: store, board: board, now: now}
}

// RecordSession merges result into the user's persisted statistics.
//
// If the previous snapshot cannot be loaded, or the profile is not a
// student, no write is attempted and the error is returned; the caller
// surfaces it as "stats not saved" without blocking result display.
// Store write failures are logged and swallowed here: the updated
// in-memory snapshot is still returned so the UI can reflect the
// session optimistically even when persistence failed.
func (s *Service) RecordSession(ctx context.Context, userID int64, result models.SessionResult) (models.StatsSnapshot, error) {
	prev, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return models.StatsSnapshot{}, fmt.Errorf("load profile %d: %w", userID, err)
	}
	if prev.Role != models.RoleStudent {
		return models.StatsSnapshot{}, ErrWrongRole
	}

	next, delta := Reconcile(result, prev, s.now())

	if err := s.store.ApplyDelta(ctx, delta); err != nil {
		log.Printf("[stats] stats not saved for user %d: %v", userID, err)
		return next, nil
	}

	if s.board != nil && delta.AddedCorrect > 0 {
		if err := s.board.Bump(ctx, userID, delta.AddedCorrect); err != nil {
			log.Printf("[stats] leaderboard bump failed for user %d: %v", userID, err)
		}
	}

	return next, nil
}

// Snapshot returns the user's current persisted statistics.
func (s *Service) Snapshot(ctx context.Context, userID int64) (models.StatsSnapshot, error) {
	return s.store.GetProfile(ctx, userID)
}
