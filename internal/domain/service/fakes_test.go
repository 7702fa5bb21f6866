package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/jonny/askuser-bot/internal/domain/model"
	"github.com/jonny/askuser-bot/internal/domain/port/outbound"
	"github.com/jonny/askuser-bot/internal/domain/service"
)

const waitFor = 2 * time.Second

// fakeChannel records everything sent to the chat platform.
type fakeChannel struct {
	mu        sync.Mutex
	seq       int
	posts     []model.Message
	updates   []model.Message
	forms     []model.Form
	triggers  []string
	postErr   error
	updateErr error
	formErr   error

	posted chan model.Message
	opened chan model.Form
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		posted: make(chan model.Message, 32),
		opened: make(chan model.Form, 32),
	}
}

func (f *fakeChannel) PostMessage(_ context.Context, msg model.Message) (model.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return model.MessageRef{}, f.postErr
	}
	f.seq++
	f.posts = append(f.posts, msg)
	f.posted <- msg
	return model.MessageRef{ChannelID: "C123", Timestamp: fmt.Sprintf("1700000000.%06d", f.seq)}, nil
}

func (f *fakeChannel) UpdateMessage(_ context.Context, _ model.MessageRef, msg model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, msg)
	return nil
}

func (f *fakeChannel) OpenForm(_ context.Context, triggerID string, form model.Form) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.formErr != nil {
		return f.formErr
	}
	f.forms = append(f.forms, form)
	f.triggers = append(f.triggers, triggerID)
	f.opened <- form
	return nil
}

func (f *fakeChannel) calls() (posts, updates, forms int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posts), len(f.updates), len(f.forms)
}

func (f *fakeChannel) postAt(i int) model.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.posts[i]
}

func (f *fakeChannel) lastUpdate() model.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.updates) == 0 {
		return model.Message{}
	}
	return f.updates[len(f.updates)-1]
}

var _ outbound.ChatChannel = (*fakeChannel)(nil)

// fakeHistory collects finished records.
type fakeHistory struct {
	mu      sync.Mutex
	records []model.InteractionRecord
}

func (h *fakeHistory) Record(_ context.Context, rec model.InteractionRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, rec)
	return nil
}

func (h *fakeHistory) List(_ context.Context, _ outbound.HistoryFilter, _ outbound.PageRequest) (outbound.PageResult[model.InteractionRecord], error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	items := append([]model.InteractionRecord(nil), h.records...)
	return outbound.PageResult[model.InteractionRecord]{Items: items, TotalCount: int64(len(items))}, nil
}

func (h *fakeHistory) all() []model.InteractionRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]model.InteractionRecord(nil), h.records...)
}

// countingMetrics counts reminder and session telemetry.
type countingMetrics struct {
	mu        sync.Mutex
	sessions  map[model.Outcome]int
	scheduled int
	finished  map[string]int
	pending   int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{
		sessions: make(map[model.Outcome]int),
		finished: make(map[string]int),
	}
}

func (m *countingMetrics) SessionFinished(_ model.Kind, outcome model.Outcome, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[outcome]++
}

func (m *countingMetrics) ReminderScheduled() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scheduled++
}

func (m *countingMetrics) ReminderFinished(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished[result]++
}

func (m *countingMetrics) SetPendingReminders(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = n
}

func (m *countingMetrics) finishedCount(result string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finished[result]
}

type harness struct {
	svc     *service.Service
	gate    *service.Gate
	ch      *fakeChannel
	clock   *clockwork.FakeClock
	history *fakeHistory
	metrics *countingMetrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		gate:    service.NewGate(),
		ch:      newFakeChannel(),
		clock:   clockwork.NewFakeClock(),
		history: &fakeHistory{},
		metrics: newCountingMetrics(),
	}
	h.svc = service.NewService(h.gate, service.Options{
		Clock:   h.clock,
		History: h.history,
		Metrics: h.metrics,
	})
	require.NoError(t, h.gate.BeginConnect())
	require.NoError(t, h.gate.MarkReady(h.ch))
	return h
}

// waitPost returns the next message posted to the fake channel.
func (h *harness) waitPost(t *testing.T) model.Message {
	t.Helper()
	select {
	case msg := <-h.ch.posted:
		return msg
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for a posted message")
		return model.Message{}
	}
}

// waitForm returns the next form opened on the fake channel.
func (h *harness) waitForm(t *testing.T) model.Form {
	t.Helper()
	select {
	case f := <-h.ch.opened:
		return f
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for a form")
		return model.Form{}
	}
}

// waitArmed blocks until n timers are registered on the fake clock.
func (h *harness) waitArmed(t *testing.T, n int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, h.clock.BlockUntilContext(ctx, n))
}

func (h *harness) click(t *testing.T, key string) {
	t.Helper()
	require.True(t, h.svc.Deliver(model.Event{
		Kind:      model.EventAction,
		Key:       key,
		TriggerID: "trigger-" + key,
		UserID:    "U42",
	}), "event %s was not consumed", key)
}

// await runs fn in the background and returns a receiver for its result.
func await[T any](fn func() T) <-chan T {
	out := make(chan T, 1)
	go func() { out <- fn() }()
	return out
}

func result[T any](t *testing.T, c <-chan T) T {
	t.Helper()
	select {
	case v := <-c:
		return v
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for a result")
		var zero T
		return zero
	}
}
