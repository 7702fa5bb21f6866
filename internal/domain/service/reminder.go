package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jonny/askuser-bot/internal/domain/model"
	"github.com/jonny/askuser-bot/internal/domain/port/outbound"
)

const reminderDeliveryTimeout = 30 * time.Second

// ReminderScheduler keeps one-shot delayed notifications keyed by id.
// An entry leaves the registry exactly once: when its timer fires, when it is
// cancelled, or when CancelAll tears everything down.
type ReminderScheduler struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	timers  map[string]clockwork.Timer
	metrics outbound.MetricsRecorder
	logger  *slog.Logger
}

func NewReminderScheduler(clock clockwork.Clock, metrics outbound.MetricsRecorder, logger *slog.Logger) *ReminderScheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if metrics == nil {
		metrics = outbound.NopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReminderScheduler{
		clock:   clock,
		timers:  make(map[string]clockwork.Timer),
		metrics: metrics,
		logger:  logger,
	}
}

// Schedule arms a reminder and returns its id without waiting for delivery.
// ch is captured now; later gate changes do not redirect the reminder.
func (s *ReminderScheduler) Schedule(ch outbound.ChatChannel, message string, delay time.Duration) string {
	id := model.NewToken()

	s.mu.Lock()
	s.timers[id] = s.clock.AfterFunc(delay, func() {
		s.fire(id, ch, message)
	})
	n := len(s.timers)
	s.mu.Unlock()

	s.metrics.ReminderScheduled()
	s.metrics.SetPendingReminders(n)
	s.logger.Debug("reminder scheduled", "reminderID", id, "delay", delay)
	return id
}

func (s *ReminderScheduler) fire(id string, ch outbound.ChatChannel, message string) {
	if !s.claim(id) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), reminderDeliveryTimeout)
	defer cancel()

	_, err := ch.PostMessage(ctx, model.Message{Text: "🔔 *Reminder*\n\n" + message})
	if err != nil {
		s.logger.Error("failed to send reminder", "reminderID", id, "error", err)
		s.metrics.ReminderFinished(outbound.ReminderFailed)
		return
	}
	s.metrics.ReminderFinished(outbound.ReminderDelivered)
}

// claim removes id from the registry, reporting whether it was still there.
func (s *ReminderScheduler) claim(id string) bool {
	s.mu.Lock()
	_, ok := s.timers[id]
	delete(s.timers, id)
	n := len(s.timers)
	s.mu.Unlock()

	if ok {
		s.metrics.SetPendingReminders(n)
	}
	return ok
}

// Cancel stops a pending reminder. Unknown, fired and cancelled ids all
// yield ErrReminderNotFound.
func (s *ReminderScheduler) Cancel(id string) error {
	s.mu.Lock()
	t, ok := s.timers[id]
	if ok {
		t.Stop()
		delete(s.timers, id)
	}
	n := len(s.timers)
	s.mu.Unlock()

	if !ok {
		return ErrReminderNotFound
	}
	s.metrics.ReminderFinished(outbound.ReminderCancelled)
	s.metrics.SetPendingReminders(n)
	return nil
}

// CancelAll stops every pending reminder without delivering any of them.
func (s *ReminderScheduler) CancelAll() {
	s.mu.Lock()
	dropped := len(s.timers)
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	for i := 0; i < dropped; i++ {
		s.metrics.ReminderFinished(outbound.ReminderDropped)
	}
	s.metrics.SetPendingReminders(0)
	if dropped > 0 {
		s.logger.Info("dropped pending reminders", "count", dropped)
	}
}

func (s *ReminderScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
