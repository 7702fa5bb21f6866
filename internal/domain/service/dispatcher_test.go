package service_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonny/askuser-bot/internal/domain/model"
	"github.com/jonny/askuser-bot/internal/domain/service"
)

type awaited struct {
	ev  model.Event
	err error
}

func awaitWaiter(ctx context.Context, w *service.Waiter, timeout time.Duration) <-chan awaited {
	return await(func() awaited {
		ev, err := w.Await(ctx, timeout)
		return awaited{ev: ev, err: err}
	})
}

func armed(t *testing.T, clock *clockwork.FakeClock, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, n))
}

func TestDispatcherResponseJustBeforeTimeoutWins(t *testing.T) {
	clock := clockwork.NewFakeClock()
	d := service.NewDispatcher(clock)
	w := d.Register(nil, "approve:t1", "deny:t1")

	res := awaitWaiter(context.Background(), w, 60*time.Second)
	armed(t, clock, 1)

	clock.Advance(60*time.Second - time.Millisecond)
	ev := model.Event{Kind: model.EventAction, Key: "approve:t1"}
	require.True(t, d.Deliver(ev))
	clock.Advance(time.Second)

	got := result(t, res)
	require.NoError(t, got.err)
	assert.Equal(t, "approve:t1", got.ev.Key)

	assert.False(t, d.Deliver(model.Event{Kind: model.EventAction, Key: "deny:t1"}), "second event must be a no-op")
	assert.Equal(t, 0, d.Pending())
}

func TestDispatcherTimeout(t *testing.T) {
	clock := clockwork.NewFakeClock()
	d := service.NewDispatcher(clock)
	w := d.Register(nil, "approve:t2")

	res := awaitWaiter(context.Background(), w, 60*time.Second)
	armed(t, clock, 1)
	clock.Advance(60 * time.Second)

	got := result(t, res)
	assert.ErrorIs(t, got.err, service.ErrTimeout)
	assert.False(t, d.Deliver(model.Event{Kind: model.EventAction, Key: "approve:t2"}), "late click must not resolve")
	assert.Equal(t, 0, d.Pending())
}

func TestDispatcherEventBeforeAwait(t *testing.T) {
	d := service.NewDispatcher(clockwork.NewFakeClock())
	w := d.Register(nil, "select:t3")

	require.True(t, d.Deliver(model.Event{Kind: model.EventAction, Key: "select:t3", Values: []string{"x"}}))

	ev, err := w.Await(context.Background(), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "x", ev.Value())
}

func TestDispatcherAcceptFilter(t *testing.T) {
	clock := clockwork.NewFakeClock()
	d := service.NewDispatcher(clock)
	w := d.Register(func(ev model.Event) bool { return len(ev.Values) >= 2 }, "poll:t4")

	assert.False(t, d.Deliver(model.Event{Key: "poll:t4", Values: []string{"A"}}))
	assert.Equal(t, 1, d.Pending(), "rejected event leaves the waiter registered")

	require.True(t, d.Deliver(model.Event{Key: "poll:t4", Values: []string{"A", "C"}}))
	ev, err := w.Await(context.Background(), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, ev.Values)
}

func TestDispatcherUnknownKey(t *testing.T) {
	d := service.NewDispatcher(clockwork.NewFakeClock())
	d.Register(nil, "approve:a")
	assert.False(t, d.Deliver(model.Event{Key: "approve:b"}))
}

func TestDispatcherContextCancel(t *testing.T) {
	clock := clockwork.NewFakeClock()
	d := service.NewDispatcher(clock)
	w := d.Register(nil, "approve:t5")

	ctx, cancel := context.WithCancel(context.Background())
	res := awaitWaiter(ctx, w, time.Hour)
	armed(t, clock, 1)
	cancel()

	got := result(t, res)
	assert.ErrorIs(t, got.err, context.Canceled)
	assert.Equal(t, 0, d.Pending())
}

func TestDispatcherCancel(t *testing.T) {
	d := service.NewDispatcher(clockwork.NewFakeClock())
	w := d.Register(nil, "approve:t6")
	w.Cancel()
	assert.Equal(t, 0, d.Pending())
	assert.False(t, d.Deliver(model.Event{Key: "approve:t6"}))
}

func TestDispatcherConcurrentDeliveriesResolveOnce(t *testing.T) {
	clock := clockwork.NewFakeClock()
	d := service.NewDispatcher(clock)
	w := d.Register(nil, "approve:t7", "deny:t7")
	res := awaitWaiter(context.Background(), w, time.Minute)
	armed(t, clock, 1)

	var consumed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		key := "approve:t7"
		if i%2 == 1 {
			key = "deny:t7"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d.Deliver(model.Event{Kind: model.EventAction, Key: key}) {
				consumed.Add(1)
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		clock.Advance(time.Minute)
	}()
	wg.Wait()

	got := result(t, res)
	if got.err != nil {
		assert.ErrorIs(t, got.err, service.ErrTimeout)
		assert.Equal(t, int32(0), consumed.Load())
	} else {
		assert.Equal(t, int32(1), consumed.Load())
	}
}

func TestDispatcherSessionsDoNotCrossMatch(t *testing.T) {
	clock := clockwork.NewFakeClock()
	d := service.NewDispatcher(clock)
	first := d.Register(nil, model.ControlID("approve", "one"))
	second := d.Register(nil, model.ControlID("approve", "two"))

	require.True(t, d.Deliver(model.Event{Key: model.ControlID("approve", "two")}))
	assert.Equal(t, 1, d.Pending())

	ev, err := second.Await(context.Background(), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "approve:two", ev.Key)
	first.Cancel()
}
