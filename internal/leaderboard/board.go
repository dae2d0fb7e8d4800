package leaderboard

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/mathquest/backend/internal/models"
	"github.com/redis/go-redis/v9"
)

// scoreKey is the sorted set holding cumulative correct counts.
const scoreKey = "leaderboard:total_correct"

// DefaultLimit is the number of entries served per snapshot.
const DefaultLimit = 20

// EntrySource hydrates leaderboard rows from the profile store.
type EntrySource interface {
	Entries(ctx context.Context, userIDs []int64) ([]models.LeaderboardEntry, error)
	TopByTotalCorrect(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

// Board is the live leaderboard projection. Scores live in a redis
// sorted set and are advanced with ZINCRBY, which is associative and
// commutative: concurrent sessions bumping the same player can land in
// any order without losing count. Entries are hydrated from the profile
// store on read; the projection itself is disposable and reseedable.
type Board struct {
	client *redis.Client
	source EntrySource
	hub    *Hub
}

func NewBoard(client *redis.Client, source EntrySource) *Board {
	return &Board{client: client, source: source, hub: NewHub()}
}

// Hub exposes the subscription feed for the websocket layer.
func (b *Board) Hub() *Hub {
	return b.hub
}

// Seed rebuilds the sorted set from the durable store. Run at startup
// so a flushed or fresh redis converges with postgres.
func (b *Board) Seed(ctx context.Context) error {
	entries, err := b.source.TopByTotalCorrect(ctx, 1000)
	if err != nil {
		return fmt.Errorf("seed leaderboard: %w", err)
	}
	pipe := b.client.Pipeline()
	for _, e := range entries {
		pipe.ZAdd(ctx, scoreKey, redis.Z{
			Score:  float64(e.TotalCorrect),
			Member: strconv.FormatInt(e.UserID, 10),
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("seed leaderboard: %w", err)
	}
	log.Printf("[leaderboard] seeded %d entries", len(entries))
	return nil
}

// Bump adds a finished session's correct count to the player's score
// and pushes a fresh snapshot to subscribers.
func (b *Board) Bump(ctx context.Context, userID int64, addedCorrect int) error {
	member := strconv.FormatInt(userID, 10)
	if err := b.client.ZIncrBy(ctx, scoreKey, float64(addedCorrect), member).Err(); err != nil {
		return fmt.Errorf("bump score: %w", err)
	}
	b.publish(ctx)
	return nil
}

// Top returns the highest-scoring entries, rank assigned, ordered by
// cumulative correct count descending.
func (b *Board) Top(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	members, err := b.client.ZRevRangeWithScores(ctx, scoreKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("top scores: %w", err)
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(fmt.Sprint(m.Member), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	entries, err := b.source.Entries(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// Rank returns the player's 1-based rank and score, or 0 when the
// player has no score yet.
func (b *Board) Rank(ctx context.Context, userID int64) (int, int, error) {
	member := strconv.FormatInt(userID, 10)
	rank, err := b.client.ZRevRank(ctx, scoreKey, member).Result()
	if err == redis.Nil {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("rank: %w", err)
	}
	score, err := b.client.ZScore(ctx, scoreKey, member).Result()
	if err != nil && err != redis.Nil {
		return 0, 0, fmt.Errorf("rank score: %w", err)
	}
	return int(rank) + 1, int(score), nil
}

// StartRefresher periodically rebroadcasts the snapshot so idle clients
// still converge. Cadence is a presentation concern, not a core
// invariant.
func (b *Board) StartRefresher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Println("[leaderboard] refresher started")
	for {
		select {
		case <-ctx.Done():
			log.Println("[leaderboard] refresher shutting down")
			return
		case <-ticker.C:
			b.publish(ctx)
		}
	}
}

func (b *Board) publish(ctx context.Context) {
	if !b.hub.HasSubscribers() {
		return
	}
	entries, err := b.Top(ctx, DefaultLimit)
	if err != nil {
		log.Printf("[leaderboard] snapshot failed: %v", err)
		return
	}
	b.hub.Broadcast(entries)
}
