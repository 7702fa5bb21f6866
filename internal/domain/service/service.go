package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jonny/askuser-bot/internal/domain/model"
	"github.com/jonny/askuser-bot/internal/domain/port/inbound"
	"github.com/jonny/askuser-bot/internal/domain/port/outbound"
)

// editTimeout bounds the best-effort terminal edits and history writes that
// run after a session has already decided its result.
const editTimeout = 10 * time.Second

// Options carries the optional collaborators of a Service.
type Options struct {
	Clock   clockwork.Clock
	History outbound.HistoryRepository
	Metrics outbound.MetricsRecorder
	Logger  *slog.Logger
}

// Service implements every capability on top of the gate, the dispatcher and
// the reminder scheduler.
type Service struct {
	gate       *Gate
	dispatcher *Dispatcher
	reminders  *ReminderScheduler
	clock      clockwork.Clock
	history    outbound.HistoryRepository
	metrics    outbound.MetricsRecorder
	logger     *slog.Logger
}

var _ inbound.Capabilities = (*Service)(nil)
var _ inbound.Interactions = (*Service)(nil)

// NewService wires a Service to gate. Pending reminders are dropped whenever
// the gate disconnects.
func NewService(gate *Gate, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Metrics == nil {
		opts.Metrics = outbound.NopMetrics{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Service{
		gate:       gate,
		dispatcher: NewDispatcher(opts.Clock),
		reminders:  NewReminderScheduler(opts.Clock, opts.Metrics, opts.Logger),
		clock:      opts.Clock,
		history:    opts.History,
		metrics:    opts.Metrics,
		logger:     opts.Logger,
	}
	gate.OnDisconnect(s.reminders.CancelAll)
	return s
}

// Deliver implements inbound.EventSink.
func (s *Service) Deliver(ev model.Event) bool {
	ok := s.dispatcher.Deliver(ev)
	if !ok {
		s.logger.Debug("no session waiting for event", "key", ev.Key, "kind", ev.Kind)
	}
	return ok
}

// PendingSessions reports how many session stages are waiting for a user.
func (s *Service) PendingSessions() int {
	return s.dispatcher.Pending()
}

// PendingReminders reports how many reminders are armed.
func (s *Service) PendingReminders() int {
	return s.reminders.Pending()
}

// Notify posts a plain notification.
func (s *Service) Notify(ctx context.Context, req model.NotifyRequest) model.NotifyResult {
	ch, ok := s.gate.Channel()
	if !ok {
		return model.NotifyResult{Error: ErrNotConnected.Error()}
	}

	if _, err := ch.PostMessage(ctx, model.Message{Text: "📢 " + req.Message}); err != nil {
		s.logger.Error("notify failed", "error", err)
		return model.NotifyResult{Error: err.Error()}
	}
	return model.NotifyResult{Success: true}
}

// NotifyWithStatus posts a coloured status panel.
func (s *Service) NotifyWithStatus(ctx context.Context, req model.StatusNotifyRequest) model.NotifyResult {
	ch, ok := s.gate.Channel()
	if !ok {
		return model.NotifyResult{Error: ErrNotConnected.Error()}
	}
	if err := ValidateStatus(req.Status); err != nil {
		return model.NotifyResult{Error: err.Error()}
	}

	style, _ := req.Status.Style()
	panel := &model.Panel{
		Title:       fmt.Sprintf("%s %s", style.Emoji, style.Title),
		Description: req.Message,
		Color:       style.Color,
		Timestamp:   s.clock.Now(),
	}
	if req.Details != "" {
		panel.Fields = append(panel.Fields, model.PanelField{Name: "Details", Value: req.Details})
	}

	msg := model.Message{Text: panel.Title, Panel: panel}
	if _, err := ch.PostMessage(ctx, msg); err != nil {
		s.logger.Error("status notify failed", "status", req.Status, "error", err)
		return model.NotifyResult{Error: err.Error()}
	}
	return model.NotifyResult{Success: true}
}

// ScheduleReminder arms a delayed notification and returns immediately.
func (s *Service) ScheduleReminder(_ context.Context, req model.ReminderRequest) model.ReminderResult {
	ch, ok := s.gate.Channel()
	if !ok {
		return model.ReminderResult{Error: ErrNotConnected.Error()}
	}
	if err := ValidateReminderDelay(req.DelaySeconds); err != nil {
		return model.ReminderResult{Error: err.Error()}
	}

	id := s.reminders.Schedule(ch, req.Message, seconds(req.DelaySeconds))
	return model.ReminderResult{ReminderID: id, Success: true}
}

// CancelReminder stops a reminder that has not fired yet.
func (s *Service) CancelReminder(_ context.Context, reminderID string) model.CancelReminderResult {
	if !s.gate.Ready() {
		return model.CancelReminderResult{Error: ErrNotConnected.Error()}
	}
	if err := s.reminders.Cancel(reminderID); err != nil {
		return model.CancelReminderResult{Error: err.Error()}
	}
	return model.CancelReminderResult{Success: true}
}

// CreateThread posts a thread starter and an optional first reply. The thread
// id is the starter message timestamp.
func (s *Service) CreateThread(ctx context.Context, req model.ThreadRequest) model.ThreadResult {
	ch, ok := s.gate.Channel()
	if !ok {
		return model.ThreadResult{Error: ErrNotConnected.Error()}
	}
	if err := ValidateThread(req); err != nil {
		return model.ThreadResult{Error: err.Error()}
	}

	ref, err := ch.PostMessage(ctx, model.Message{Text: "🧵 *" + req.Name + "*"})
	if err != nil {
		s.logger.Error("create thread failed", "error", err)
		return model.ThreadResult{Error: err.Error()}
	}

	if req.InitialMessage != "" {
		_, err := ch.PostMessage(ctx, model.Message{Text: req.InitialMessage, ThreadID: ref.Timestamp})
		if err != nil {
			s.logger.Error("posting initial thread message failed", "threadID", ref.Timestamp, "error", err)
			return model.ThreadResult{ThreadID: ref.Timestamp, Error: err.Error()}
		}
	}
	return model.ThreadResult{ThreadID: ref.Timestamp, Success: true}
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
