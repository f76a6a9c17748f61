package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"quran-quiz-bot/internal/domain"
	"quran-quiz-bot/internal/event"
)

type fixedActive int

func (f fixedActive) Active() int { return int(f) }

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "quiz_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	server := httptest.NewServer(NewRouter(RouterConfig{Feed: NewFeed(), Sessions: fixedActive(2), Gatherer: reg}))
	defer server.Close()

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "ok", body["status"])
	require.EqualValues(t, 2, body["activeSessions"])

	resp, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(raw), "quiz_test_total 1")
}

func TestFeedStreamsResults(t *testing.T) {
	bus := event.NewBus()
	feed := NewFeed()
	feed.Subscribe(bus)

	server := httptest.NewServer(NewRouter(RouterConfig{Feed: feed, Gatherer: prometheus.NewRegistry()}))
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?userId=u1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	defer conn.Close()

	typ, _ := readNext(t, conn)
	require.Equal(t, "subscribed", typ)
	require.Eventually(t, func() bool { return feed.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	ctx := context.Background()
	other := domain.Result{Session: domain.Session{ID: "s0", SubjectID: "u2", Quiz: domain.QuizChapter}, State: domain.StateAnswered}
	mine := domain.Result{
		Session: domain.Session{ID: "s1", SubjectID: "u1", Quiz: domain.QuizTranslation},
		State:   domain.StateAnswered,
		Outcome: domain.OutcomeCorrect,
		Delta:   domain.ProgressDelta{XP: 6},
		Stats:   domain.UserStats{XP: 106, Streak: 3},
	}
	bus.Publish(ctx, domain.EventSessionResolved{Result: other})
	bus.Publish(ctx, domain.EventSessionResolved{Result: mine})
	bus.Stop()

	typ, payload := readNext(t, conn)
	require.Equal(t, "result", typ)
	require.Equal(t, "s1", payload["sessionId"])
	require.EqualValues(t, 6, payload["xpDelta"])
	require.EqualValues(t, 2, payload["level"])
}

func readNext(t *testing.T, conn *websocket.Conn) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	return msg.Type, msg.Payload
}
