package event_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"quran-quiz-bot/internal/event"
)

type ping struct{ n int }

func (ping) Name() string { return "ping" }

type pong struct{}

func (pong) Name() string { return "pong" }

func TestBus_PublishSubscribe(t *testing.T) {
	b := event.NewBus()

	var (
		mu       sync.Mutex
		received []int
		pongs    atomic.Int32
	)
	b.Subscribe("ping", func(_ context.Context, e event.Event) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, e.(ping).n)
		return nil
	})
	b.Subscribe("pong", func(context.Context, event.Event) error {
		pongs.Add(1)
		return nil
	})

	for i := 0; i < 20; i++ {
		b.Publish(context.Background(), ping{n: i})
	}
	b.Stop()

	require.Len(t, received, 20)
	require.Zero(t, pongs.Load())
}

func TestBus_HandlerFailuresAreContained(t *testing.T) {
	b := event.NewBusWithPool(2)

	var calls atomic.Int32
	b.Subscribe("pong", func(context.Context, event.Event) error {
		calls.Add(1)
		panic("boom")
	})
	b.Subscribe("pong", func(context.Context, event.Event) error {
		calls.Add(1)
		return errors.New("failed")
	})

	b.Publish(context.Background(), pong{})
	b.Publish(context.Background(), pong{})
	b.Stop()

	require.EqualValues(t, 4, calls.Load())
}

func TestBus_HandlerOutlivesCanceledContext(t *testing.T) {
	b := event.NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var sawErr atomic.Value
	b.Subscribe("pong", func(ctx context.Context, _ event.Event) error {
		sawErr.Store(ctx.Err() == nil)
		return nil
	})
	b.Publish(ctx, pong{})
	b.Stop()

	require.Equal(t, true, sawErr.Load())
}
