package telemetry

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"quran-quiz-bot/internal/domain"
	"quran-quiz-bot/internal/event"
)

func TestMetricsFollowLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	created := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return created.Add(12 * time.Second) }

	bus := event.NewBus()
	m.Subscribe(bus)

	s := domain.Session{ID: "s1", Quiz: domain.QuizChapter, Tier: domain.TierBase, CreatedAt: created}
	ctx := context.Background()
	bus.Publish(ctx, domain.EventSessionStarted{Session: s})
	bus.Stop()
	require.Equal(t, 1.0, testutil.ToFloat64(m.active))

	bus.Publish(ctx, domain.EventSessionResolved{Result: domain.Result{
		Session: s,
		State:   domain.StateAnswered,
		Outcome: domain.OutcomeCorrect,
		Delta:   domain.ProgressDelta{XP: 10, Attempts: 1},
	}})
	bus.Publish(ctx, domain.EventQueueConflict{SubjectID: "u1", Quiz: domain.QuizTranslation})
	bus.Stop()

	require.Equal(t, 1.0, testutil.ToFloat64(m.started.WithLabelValues("chapter", "base")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.resolved.WithLabelValues("chapter", "answered", "correct")))
	require.Equal(t, 10.0, testutil.ToFloat64(m.xp.WithLabelValues("chapter")))
	require.Equal(t, 0.0, testutil.ToFloat64(m.active))
	require.Equal(t, 1.0, testutil.ToFloat64(m.queueConflicts.WithLabelValues("translation")))
	require.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestMonitorRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	require.NoError(t, MonitorRedis(client))
	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	require.Equal(t, "v", client.Get(context.Background(), "k").Val())
}
