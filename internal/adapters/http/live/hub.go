// Package live pushes leaderboard snapshots to websocket clients.
package live

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/okian/acerace/internal/domain/model"
	"github.com/okian/acerace/internal/domain/ranking"
	"github.com/okian/acerace/pkg/logger"
	"github.com/okian/acerace/pkg/metrics"
)

const (
	sendBuffer     = 16
	refreshTimeout = 5 * time.Second
)

// MessageTypeLeaderboard tags leaderboard snapshots.
const MessageTypeLeaderboard = "leaderboard"

// Message is the JSON frame sent to clients.
type Message struct {
	Type    string                 `json:"type"`
	Payload []model.LeaderboardRow `json:"payload"`
}

// LeaderboardSource supplies the rows to broadcast.
type LeaderboardSource interface {
	Leaderboard(ctx context.Context, key ranking.SortKey) ([]model.LeaderboardRow, error)
}

// Hub tracks connected clients and broadcasts a fresh leaderboard whenever
// it is notified. Notifications arriving while a refresh is pending are
// coalesced into that refresh.
type Hub struct {
	source LeaderboardSource
	log    logger.Logger

	allowedOrigins []string

	register   chan *client
	unregister chan *client
	notify     chan struct{}

	mu      sync.RWMutex
	clients map[*client]struct{}

	done chan struct{}
}

// NewHub creates a hub reading snapshots from source.
func NewHub(source LeaderboardSource, opts ...Option) *Hub {
	h := &Hub{
		source:     source,
		register:   make(chan *client),
		unregister: make(chan *client),
		notify:     make(chan struct{}, 1),
		clients:    make(map[*client]struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.log == nil {
		h.log = logger.Get().Named("live")
	}
	return h
}

// Run serves registrations and refreshes until ctx is done. All clients are
// disconnected on exit.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			metrics.UpdateLiveClients(0)
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			metrics.UpdateLiveClients(n)
			if msg, ok := h.snapshot(ctx); ok {
				h.deliver(c, msg)
			}

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				close(c.send)
				delete(h.clients, c)
			}
			n := len(h.clients)
			h.mu.Unlock()
			metrics.UpdateLiveClients(n)

		case <-h.notify:
			if h.Clients() == 0 {
				continue
			}
			msg, ok := h.snapshot(ctx)
			if !ok {
				continue
			}
			h.mu.RLock()
			for c := range h.clients {
				h.deliver(c, msg)
			}
			h.mu.RUnlock()
		}
	}
}

// Notify schedules a broadcast. It never blocks and matches the award
// callback signature of the worker pool.
func (h *Hub) Notify(_ context.Context, _ model.Award) {
	select {
	case h.notify <- struct{}{}:
	default:
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetStats reports the connected client count for GET /stats.
func (h *Hub) GetStats() map[string]any {
	return map[string]any{"liveClients": h.Clients()}
}

// Done is closed once Run returns.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) snapshot(ctx context.Context) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	rows, err := h.source.Leaderboard(ctx, ranking.DefaultSortKey)
	if err != nil {
		h.log.Warn(ctx, "leaderboard refresh failed", logger.Error(err))
		return nil, false
	}
	if rows == nil {
		rows = []model.LeaderboardRow{}
	}
	b, err := json.Marshal(Message{Type: MessageTypeLeaderboard, Payload: rows})
	if err != nil {
		h.log.Error(ctx, "encode leaderboard", logger.Error(err))
		return nil, false
	}
	return b, true
}

// deliver drops the frame for a client whose buffer is full; the next
// snapshot supersedes it anyway.
func (h *Hub) deliver(c *client, msg []byte) {
	select {
	case c.send <- msg:
	default:
		h.log.Debug(context.Background(), "slow live client, frame dropped", logger.String("remote", c.remote))
	}
}
