package leaderboard

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mathquest/backend/internal/models"
	"github.com/redis/go-redis/v9"
)

// fakeSource hydrates entries from an in-memory snapshot table,
// preserving the requested order the way the real store does.
type fakeSource struct {
	users map[int64]models.LeaderboardEntry
}

func (f *fakeSource) Entries(_ context.Context, userIDs []int64) ([]models.LeaderboardEntry, error) {
	out := make([]models.LeaderboardEntry, 0, len(userIDs))
	for _, id := range userIDs {
		if e, ok := f.users[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeSource) TopByTotalCorrect(_ context.Context, limit int) ([]models.LeaderboardEntry, error) {
	out := make([]models.LeaderboardEntry, 0, len(f.users))
	for _, e := range f.users {
		out = append(out, e)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func newTestBoard(t *testing.T) (*Board, *fakeSource) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	source := &fakeSource{users: map[int64]models.LeaderboardEntry{
		1: {UserID: 1, DisplayName: "Ada", Role: models.RoleStudent, TotalCorrect: 0},
		2: {UserID: 2, DisplayName: "Ben", Role: models.RoleStudent, TotalCorrect: 0},
		3: {UserID: 3, DisplayName: "Cleo", Role: models.RoleStudent, TotalCorrect: 0},
	}}
	return NewBoard(client, source), source
}

func TestBumpAccumulates(t *testing.T) {
	board, _ := newTestBoard(t)
	ctx := context.Background()

	if err := board.Bump(ctx, 1, 7); err != nil {
		t.Fatalf("bump: %v", err)
	}
	if err := board.Bump(ctx, 1, 3); err != nil {
		t.Fatalf("bump: %v", err)
	}

	_, score, err := board.Rank(ctx, 1)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if score != 10 {
		t.Errorf("score = %d, want 10", score)
	}
}

func TestBumpOrderIndependent(t *testing.T) {
	// Increments commute: the same set of session deltas lands on the
	// same score in any interleaving.
	deltas := []int{5, 9, 2}

	forward, _ := newTestBoard(t)
	reverse, _ := newTestBoard(t)
	ctx := context.Background()

	for _, d := range deltas {
		if err := forward.Bump(ctx, 1, d); err != nil {
			t.Fatalf("bump: %v", err)
		}
	}
	for i := len(deltas) - 1; i >= 0; i-- {
		if err := reverse.Bump(ctx, 1, deltas[i]); err != nil {
			t.Fatalf("bump: %v", err)
		}
	}

	_, a, _ := forward.Rank(ctx, 1)
	_, b, _ := reverse.Rank(ctx, 1)
	if a != b || a != 16 {
		t.Errorf("scores diverged: forward=%d reverse=%d, want 16", a, b)
	}
}

func TestTopOrdersByScoreDescending(t *testing.T) {
	board, _ := newTestBoard(t)
	ctx := context.Background()

	board.Bump(ctx, 1, 4)
	board.Bump(ctx, 2, 10)
	board.Bump(ctx, 3, 7)

	entries, err := board.Top(ctx, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}

	wantOrder := []string{"Ben", "Cleo", "Ada"}
	for i, want := range wantOrder {
		if entries[i].DisplayName != want {
			t.Errorf("entries[%d] = %s, want %s", i, entries[i].DisplayName, want)
		}
		if entries[i].Rank != i+1 {
			t.Errorf("entries[%d].Rank = %d, want %d", i, entries[i].Rank, i+1)
		}
	}
}

func TestTopRespectsLimit(t *testing.T) {
	board, _ := newTestBoard(t)
	ctx := context.Background()

	board.Bump(ctx, 1, 1)
	board.Bump(ctx, 2, 2)
	board.Bump(ctx, 3, 3)

	entries, err := board.Top(ctx, 2)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].DisplayName != "Cleo" {
		t.Errorf("entries[0] = %s, want Cleo", entries[0].DisplayName)
	}
}

func TestRankUnknownUser(t *testing.T) {
	board, _ := newTestBoard(t)

	rank, score, err := board.Rank(context.Background(), 99)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if rank != 0 || score != 0 {
		t.Errorf("rank=%d score=%d, want 0 0 for unranked user", rank, score)
	}
}

func TestSeedRebuildsProjection(t *testing.T) {
	board, source := newTestBoard(t)
	ctx := context.Background()

	source.users[1] = models.LeaderboardEntry{UserID: 1, DisplayName: "Ada", Role: models.RoleStudent, TotalCorrect: 120}
	source.users[2] = models.LeaderboardEntry{UserID: 2, DisplayName: "Ben", Role: models.RoleStudent, TotalCorrect: 45}

	if err := board.Seed(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rank, score, err := board.Rank(ctx, 1)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if rank != 1 || score != 120 {
		t.Errorf("rank=%d score=%d, want 1 120", rank, score)
	}
}

func TestHubBroadcastOnBump(t *testing.T) {
	board, _ := newTestBoard(t)
	ctx := context.Background()

	feed, cancel := board.Hub().Subscribe()
	defer cancel()

	if err := board.Bump(ctx, 2, 8); err != nil {
		t.Fatalf("bump: %v", err)
	}

	select {
	case entries := <-feed:
		if len(entries) != 1 || entries[0].UserID != 2 {
			t.Errorf("unexpected snapshot: %+v", entries)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot broadcast after bump")
	}
}

func TestHubDropsWhenSubscriberSlow(t *testing.T) {
	hub := NewHub()
	feed, cancel := hub.Subscribe()
	defer cancel()

	// Fill the buffer and keep publishing; Broadcast must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			hub.Broadcast([]models.LeaderboardEntry{{UserID: int64(i)}})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on slow subscriber")
	}

	if len(feed) == 0 {
		t.Error("expected at least one buffered snapshot")
	}
}
