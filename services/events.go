package services

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	EventMissionCreated      = "missionCreated"
	EventMissionActivated    = "missionActivated"
	EventMissionUpdated      = "missionUpdated"
	EventMissionCompleted    = "missionCompleted"
	EventMissionDeleted      = "missionDeleted"
	EventWorkoutCompleted    = "workoutCompleted"
	EventAchievementUnlocked = "achievementUnlocked"
)

// Notifier pushes an event to a user's room. Emit never fails from the
// caller's point of view; delivery problems are logged and dropped.
type Notifier interface {
	Emit(userID, name string, data any)
}

type Event struct {
	Name   string    `json:"event"`
	UserID string    `json:"user_id"`
	Data   any       `json:"data"`
	At     time.Time `json:"at"`
}

// subscriberBuffer bounds how far a slow stream may lag before events drop.
const subscriberBuffer = 32

type Subscription struct {
	C <-chan Event

	ch     chan Event
	userID string
	hub    *Hub
	once   sync.Once
}

// Close leaves the room. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.remove(s) })
}

// Hub holds one room per user id.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Subscription]struct{}
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[*Subscription]struct{}),
		logger: logger.Named("events"),
	}
}

func (h *Hub) Subscribe(userID string) *Subscription {
	ch := make(chan Event, subscriberBuffer)
	sub := &Subscription{C: ch, ch: ch, userID: userID, hub: h}

	h.mu.Lock()
	if h.rooms[userID] == nil {
		h.rooms[userID] = make(map[*Subscription]struct{})
	}
	h.rooms[userID][sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	if room, ok := h.rooms[s.userID]; ok {
		delete(room, s)
		if len(room) == 0 {
			delete(h.rooms, s.userID)
		}
	}
	h.mu.Unlock()
	// no Emit can reach s once it is out of the room
	close(s.ch)
}

// CloseRoom ends every stream in the user's room (logout teardown).
func (h *Hub) CloseRoom(userID string) {
	h.mu.Lock()
	room := h.rooms[userID]
	delete(h.rooms, userID)
	h.mu.Unlock()
	for sub := range room {
		sub.once.Do(func() { close(sub.ch) })
	}
}

func (h *Hub) RoomSize(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}

func (h *Hub) Emit(userID, name string, data any) {
	if userID == "" {
		return
	}
	ev := Event{Name: name, UserID: userID, Data: data, At: time.Now()}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.rooms[userID] {
		select {
		case sub.ch <- ev:
		default:
			h.logger.Warn("dropping event for slow subscriber",
				zap.String("user_id", userID), zap.String("event", name))
		}
	}
}
