package stats

import (
	"time"

	"github.com/mathquest/backend/internal/badges"
	"github.com/mathquest/backend/internal/models"
)

// Delta is the minimal write payload produced by one reconciliation.
// AddedCorrect, AddedIncorrect, and the daily bucket are applied as
// atomic increments at the storage layer, so two concurrent sessions
// from the same account commute regardless of interleaving. The
// remaining fields are last-write-wins on the locally computed value.
type Delta struct {
	UserID         int64
	AddedCorrect   int
	AddedIncorrect int
	// Day is the single daily-history bucket touched by this session.
	Day            string
	Streak         int
	LastPlayedDate string
	LastActiveAt   time.Time
	// Badges and BadgesCount are a denormalized cache recomputed from
	// the post-increment total.
	Badges      []models.Badge
	BadgesCount int
}

// Reconcile merges a finished session into a stats snapshot.
//
// Replaying it with a stale previous snapshot is not idempotent: the
// caller must apply each genuine session completion exactly once. The
// store's increment primitive protects the counters even when the
// snapshot read used for streak and badge computation was stale;
// streak and daily-history values can still lose a race between true
// concurrent writers, an accepted limitation for this domain.
func Reconcile(result models.SessionResult, prev models.StatsSnapshot, today time.Time) (models.StatsSnapshot, Delta) {
	addedCorrect := result.Score
	addedIncorrect := result.TotalQuestions - result.Score

	todayKey := models.DateKey(today)
	yesterdayKey := models.DateKey(today.AddDate(0, 0, -1))

	// Same-day replay keeps the streak; a gap of two or more days (or a
	// first-ever session) resets it to 1.
	streak := prev.Streak
	switch prev.LastPlayedDate {
	case todayKey:
	case yesterdayKey:
		streak++
	default:
		streak = 1
	}

	next := prev
	next.TotalCorrect = prev.TotalCorrect + addedCorrect
	next.TotalIncorrect = prev.TotalIncorrect + addedIncorrect
	next.Streak = streak
	next.LastPlayedDate = todayKey
	next.LastActiveAt = today
	next.Badges = badges.Derive(next.TotalCorrect)
	next.BadgesCount = badges.CountUnlocked(next.TotalCorrect)

	next.DailyHistory = make(map[string]models.DayCount, len(prev.DailyHistory)+1)
	for k, v := range prev.DailyHistory {
		next.DailyHistory[k] = v
	}
	bucket := next.DailyHistory[todayKey]
	bucket.Correct += addedCorrect
	bucket.Incorrect += addedIncorrect
	next.DailyHistory[todayKey] = bucket

	delta := Delta{
		UserID:         prev.UserID,
		AddedCorrect:   addedCorrect,
		AddedIncorrect: addedIncorrect,
		Day:            todayKey,
		Streak:         streak,
		LastPlayedDate: todayKey,
		LastActiveAt:   today,
		Badges:         next.Badges,
		BadgesCount:    next.BadgesCount,
	}
	return next, delta
}
