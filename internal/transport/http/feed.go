package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"quran-quiz-bot/internal/domain"
	"quran-quiz-bot/internal/event"
)

const (
	subscriberBuffer = 16
	writeWait        = 10 * time.Second
	pingPeriod       = 30 * time.Second
)

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type resultPayload struct {
	SessionID string          `json:"sessionId"`
	UserID    string          `json:"userId"`
	Quiz      domain.QuizType `json:"quiz"`
	State     domain.State    `json:"state"`
	Outcome   domain.Outcome  `json:"outcome"`
	XPDelta   int             `json:"xpDelta"`
	XP        int             `json:"xp"`
	Level     int             `json:"level"`
	Streak    int             `json:"streak"`
}

type subscriber struct {
	userID string
	send   chan outboundMessage[resultPayload]
}

// Feed streams resolved sessions to websocket subscribers.
type Feed struct {
	upgrader websocket.Upgrader

	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

func NewFeed() *Feed {
	return &Feed{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		subs: make(map[*subscriber]struct{}),
	}
}

// Subscribe attaches the feed to the bus.
func (f *Feed) Subscribe(bus *event.Bus) {
	bus.Subscribe(domain.EventNameSessionResolved, func(_ context.Context, e event.Event) error {
		f.broadcast(e.(domain.EventSessionResolved).Result)
		return nil
	})
}

func (f *Feed) broadcast(r domain.Result) {
	msg := outboundMessage[resultPayload]{Type: "result", Payload: resultPayload{
		SessionID: r.Session.ID,
		UserID:    r.Session.SubjectID,
		Quiz:      r.Session.Quiz,
		State:     r.State,
		Outcome:   r.Outcome,
		XPDelta:   r.Delta.XP,
		XP:        r.Stats.XP,
		Level:     r.Stats.Level(),
		Streak:    r.Stats.Streak,
	}}

	f.mu.RLock()
	defer f.mu.RUnlock()
	for s := range f.subs {
		if s.userID != "" && s.userID != r.Session.SubjectID {
			continue
		}
		select {
		case s.send <- msg:
		default:
			slog.Warn("http: feed subscriber is slow, dropping result", "session", r.Session.ID)
		}
	}
}

// Subscribers returns the number of connected clients.
func (f *Feed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

// ServeWS upgrades the request and streams results until the client goes away.
// The optional userId query parameter limits the stream to one user.
func (f *Feed) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("http: ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	sub := &subscriber{
		userID: r.URL.Query().Get("userId"),
		send:   make(chan outboundMessage[resultPayload], subscriberBuffer),
	}
	f.mu.Lock()
	f.subs[sub] = struct{}{}
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		delete(f.subs, sub)
		f.mu.Unlock()
	}()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(outboundMessage[map[string]string]{Type: "subscribed", Payload: map[string]string{"userId": sub.userID}}); err != nil {
		return
	}
	for {
		select {
		case msg := <-sub.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				slog.Debug("http: ws write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
