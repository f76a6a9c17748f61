package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"quran-quiz-bot/internal/domain"
	"quran-quiz-bot/internal/event"
)

// Metrics counts session lifecycle events.
type Metrics struct {
	started        *prometheus.CounterVec
	resolved       *prometheus.CounterVec
	xp             *prometheus.CounterVec
	active         prometheus.Gauge
	duration       *prometheus.HistogramVec
	queueConflicts *prometheus.CounterVec
	now            func() time.Time
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		started: f.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_sessions_started_total",
			Help: "Total number of quiz sessions opened",
		}, []string{"quiz", "tier"}),
		resolved: f.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_sessions_resolved_total",
			Help: "Total number of quiz sessions finished, by terminal state and outcome",
		}, []string{"quiz", "state", "outcome"}),
		xp: f.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_xp_awarded_total",
			Help: "XP granted by correct answers",
		}, []string{"quiz"}),
		active: f.NewGauge(prometheus.GaugeOpts{
			Name: "quiz_sessions_active",
			Help: "Current number of open quiz sessions",
		}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quiz_session_duration_seconds",
			Help:    "Time from question to terminal state",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		}, []string{"quiz", "state"}),
		queueConflicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_queue_conflicts_total",
			Help: "Total number of refused commands because a queue slot was held",
		}, []string{"quiz"}),
		now: time.Now,
	}
}

// Subscribe attaches the metrics to the bus.
func (m *Metrics) Subscribe(bus *event.Bus) {
	bus.Subscribe(domain.EventNameSessionStarted, m.onStarted)
	bus.Subscribe(domain.EventNameSessionResolved, m.onResolved)
	bus.Subscribe(domain.EventNameQueueConflict, m.onQueueConflict)
}

func (m *Metrics) onStarted(_ context.Context, e event.Event) error {
	s := e.(domain.EventSessionStarted).Session
	m.started.WithLabelValues(string(s.Quiz), string(s.Tier)).Inc()
	m.active.Inc()
	return nil
}

func (m *Metrics) onResolved(_ context.Context, e event.Event) error {
	r := e.(domain.EventSessionResolved).Result
	quiz := string(r.Session.Quiz)
	m.resolved.WithLabelValues(quiz, string(r.State), string(r.Outcome)).Inc()
	m.active.Dec()
	m.duration.WithLabelValues(quiz, string(r.State)).Observe(m.now().Sub(r.Session.CreatedAt).Seconds())
	if r.Delta.XP > 0 {
		m.xp.WithLabelValues(quiz).Add(float64(r.Delta.XP))
	}
	return nil
}

func (m *Metrics) onQueueConflict(_ context.Context, e event.Event) error {
	c := e.(domain.EventQueueConflict)
	m.queueConflicts.WithLabelValues(string(c.Quiz)).Inc()
	return nil
}
