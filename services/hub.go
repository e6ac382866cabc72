package services

import (
	"encoding/json"
	"log/slog"
	"sync"

	"chat_back_end_go/logger"
	"chat_back_end_go/models"
)

// Connection is a push subscriber.
type Connection interface {
	Open() bool
	Send(payload []byte) error
}

// Hub fans message events out to every live subscriber.
//
// Delivery is best-effort: there is no queue, no replay for late subscribers
// and no acknowledgement. A failing subscriber never stops delivery to the
// others. Hub is safe for concurrent use.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[Connection]struct{}
	log         *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[Connection]struct{}),
		log:         log,
	}
}

func (h *Hub) Subscribe(conn Connection) {
	h.mu.Lock()
	h.subscribers[conn] = struct{}{}
	count := len(h.subscribers)
	h.mu.Unlock()

	h.log.Debug("subscriber registered", slog.Int("subscribers", count))
}

func (h *Hub) Unsubscribe(conn Connection) {
	h.mu.Lock()
	delete(h.subscribers, conn)
	count := len(h.subscribers)
	h.mu.Unlock()

	h.log.Debug("subscriber removed", slog.Int("subscribers", count))
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Broadcast delivers evt to the subscribers registered when it is called and
// returns how many accepted it.
func (h *Hub) Broadcast(evt models.MessageEvent) int {
	payload, err := json.Marshal(evt)
	if err != nil {
		h.log.Error("failed to encode message event", logger.Err(err))
		return 0
	}

	h.mu.RLock()
	snapshot := make([]Connection, 0, len(h.subscribers))
	for conn := range h.subscribers {
		snapshot = append(snapshot, conn)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, conn := range snapshot {
		if h.deliver(conn, payload) {
			delivered++
		}
	}

	h.log.Debug("message event broadcast",
		slog.String("chat_id", evt.ChatID.String()),
		slog.Int("delivered", delivered),
		slog.Int("subscribers", len(snapshot)),
	)

	return delivered
}

func (h *Hub) deliver(conn Connection, payload []byte) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("subscriber panicked during delivery", slog.Any("panic", r))
			ok = false
		}
	}()

	if !conn.Open() {
		return false
	}
	if err := conn.Send(payload); err != nil {
		h.log.Warn("failed to deliver message event", logger.Err(err))
		return false
	}
	return true
}
