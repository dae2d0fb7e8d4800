package stats

import (
	"testing"
	"time"

	"github.com/mathquest/backend/internal/models"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func result(score, total int) models.SessionResult {
	return models.SessionResult{Score: score, TotalQuestions: total}
}

func TestReconcileStreak(t *testing.T) {
	tests := []struct {
		name       string
		lastPlayed string
		prevStreak int
		today      string
		wantStreak int
	}{
		{"first session ever", "", 0, "2026-08-31", 1},
		{"same day replay", "2026-08-31", 4, "2026-08-31", 4},
		{"consecutive day", "2026-08-30", 4, "2026-08-31", 5},
		{"two day gap resets", "2026-08-29", 9, "2026-08-31", 1},
		{"long gap resets", "2026-01-15", 30, "2026-08-31", 1},
		{"month boundary", "2026-08-31", 2, "2026-09-01", 3},
		{"year boundary", "2025-12-31", 7, "2026-01-01", 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := models.StatsSnapshot{
				LastPlayedDate: tt.lastPlayed,
				Streak:         tt.prevStreak,
			}
			next, delta := Reconcile(result(5, 10), prev, day(tt.today))
			if next.Streak != tt.wantStreak {
				t.Errorf("Streak = %d, want %d", next.Streak, tt.wantStreak)
			}
			if delta.Streak != tt.wantStreak {
				t.Errorf("delta.Streak = %d, want %d", delta.Streak, tt.wantStreak)
			}
			if next.LastPlayedDate != tt.today {
				t.Errorf("LastPlayedDate = %s, want %s", next.LastPlayedDate, tt.today)
			}
		})
	}
}

func TestReconcileCounters(t *testing.T) {
	prev := models.StatsSnapshot{
		UserID:         7,
		TotalCorrect:   40,
		TotalIncorrect: 12,
	}

	next, delta := Reconcile(result(8, 10), prev, day("2026-08-31"))

	if next.TotalCorrect != 48 || next.TotalIncorrect != 14 {
		t.Errorf("totals = %d/%d, want 48/14", next.TotalCorrect, next.TotalIncorrect)
	}
	if delta.AddedCorrect != 8 || delta.AddedIncorrect != 2 {
		t.Errorf("delta adds = %d/%d, want 8/2", delta.AddedCorrect, delta.AddedIncorrect)
	}
	if delta.UserID != 7 {
		t.Errorf("delta.UserID = %d, want 7", delta.UserID)
	}
}

func TestReconcileDailyHistory(t *testing.T) {
	prev := models.StatsSnapshot{
		DailyHistory: map[string]models.DayCount{
			"2026-08-30": {Correct: 6, Incorrect: 4},
			"2026-08-31": {Correct: 3, Incorrect: 1},
		},
	}

	next, delta := Reconcile(result(7, 10), prev, day("2026-08-31"))

	// Today's bucket accumulates; other days untouched.
	if got := next.DailyHistory["2026-08-31"]; got != (models.DayCount{Correct: 10, Incorrect: 4}) {
		t.Errorf("today bucket = %+v, want {10 4}", got)
	}
	if got := next.DailyHistory["2026-08-30"]; got != (models.DayCount{Correct: 6, Incorrect: 4}) {
		t.Errorf("yesterday bucket = %+v, must not change", got)
	}
	if delta.Day != "2026-08-31" {
		t.Errorf("delta.Day = %s, want today only", delta.Day)
	}

	// The previous snapshot's map must not be mutated.
	if got := prev.DailyHistory["2026-08-31"]; got != (models.DayCount{Correct: 3, Incorrect: 1}) {
		t.Errorf("prev bucket mutated: %+v", got)
	}
}

func TestReconcileBadges(t *testing.T) {
	prev := models.StatsSnapshot{TotalCorrect: 45}

	next, delta := Reconcile(result(10, 10), prev, day("2026-08-31"))

	// 45 + 10 = 55 crosses the first threshold.
	if next.BadgesCount != 1 {
		t.Errorf("BadgesCount = %d, want 1 after crossing 50", next.BadgesCount)
	}
	unlocked := 0
	for _, b := range next.Badges {
		if b.Unlocked {
			unlocked++
		}
	}
	if unlocked != 1 {
		t.Errorf("unlocked badges = %d, want 1", unlocked)
	}
	if delta.BadgesCount != next.BadgesCount {
		t.Errorf("delta.BadgesCount = %d, want %d", delta.BadgesCount, next.BadgesCount)
	}
}

func TestReconcileCrossesBadgeThreshold(t *testing.T) {
	prev := models.StatsSnapshot{TotalCorrect: 93}
	prevUnlocked := false
	for _, b := range prev.Badges {
		if b.RequiredCorrect == 100 && b.Unlocked {
			prevUnlocked = true
		}
	}
	if prevUnlocked {
		t.Fatal("precondition: 100-correct badge must start locked")
	}

	next, _ := Reconcile(result(7, 10), prev, day("2026-08-31"))

	if next.TotalCorrect != 100 {
		t.Fatalf("TotalCorrect = %d, want 100", next.TotalCorrect)
	}
	var unlocked bool
	for _, b := range next.Badges {
		if b.RequiredCorrect == 100 {
			unlocked = b.Unlocked
		}
	}
	if !unlocked {
		t.Error("100-correct badge should unlock at exactly 100")
	}
}

// Streak and daily history are last-write-wins between two truly
// concurrent reconciliations for the same user; only the counters are
// protected by the store's increment primitive. This is an accepted
// limitation: the test pins the behavior so a future change is a
// conscious one.
func TestConcurrentReconciliationsStreakLastWriteWins(t *testing.T) {
	stale := models.StatsSnapshot{Streak: 2, LastPlayedDate: "2026-08-30"}

	// Both writers read the same stale snapshot.
	_, deltaA := Reconcile(result(5, 10), stale, day("2026-08-31"))
	_, deltaB := Reconcile(result(9, 10), stale, day("2026-08-31"))

	// Counters commute: applying both deltas in any order adds 14.
	if deltaA.AddedCorrect+deltaB.AddedCorrect != 14 {
		t.Errorf("combined added correct = %d, want 14", deltaA.AddedCorrect+deltaB.AddedCorrect)
	}
	// The streak does not: both carry the same value computed from the
	// stale read, and whichever lands last wins.
	if deltaA.Streak != 3 || deltaB.Streak != 3 {
		t.Errorf("streaks = %d/%d, both computed from the stale read", deltaA.Streak, deltaB.Streak)
	}
}

func TestReconcileZeroScoreSession(t *testing.T) {
	prev := models.StatsSnapshot{TotalCorrect: 10, TotalIncorrect: 5, Streak: 2, LastPlayedDate: "2026-08-30"}

	next, delta := Reconcile(result(0, 10), prev, day("2026-08-31"))

	// A fully wrong round still counts as playing: streak advances and
	// the incorrect counter moves.
	if next.Streak != 3 {
		t.Errorf("Streak = %d, want 3", next.Streak)
	}
	if delta.AddedCorrect != 0 || delta.AddedIncorrect != 10 {
		t.Errorf("delta = %d/%d, want 0/10", delta.AddedCorrect, delta.AddedIncorrect)
	}
	if next.TotalCorrect != 10 {
		t.Errorf("TotalCorrect = %d, must not move", next.TotalCorrect)
	}
}
