package leaderboard

import (
	"sync"

	"github.com/mathquest/backend/internal/models"
)

// Hub fans leaderboard snapshots out to websocket subscribers. Slow
// consumers are skipped rather than blocking the publisher; they catch
// up on the next broadcast.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan []models.LeaderboardEntry]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan []models.LeaderboardEntry]struct{})}
}

// Subscribe registers a feed channel. The returned cancel func must be
// called when the consumer disconnects.
func (h *Hub) Subscribe() (<-chan []models.LeaderboardEntry, func()) {
	ch := make(chan []models.LeaderboardEntry, 4)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
	return ch, cancel
}

// Broadcast delivers a snapshot to every subscriber without blocking.
func (h *Hub) Broadcast(entries []models.LeaderboardEntry) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- entries:
		default:
		}
	}
}

// HasSubscribers reports whether anyone is listening, letting the board
// skip snapshot queries when nobody cares.
func (h *Hub) HasSubscribers() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs) > 0
}

// SubscriberCount is exposed for the health endpoint.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
