package inbound

import (
	"context"

	"github.com/jonny/askuser-bot/internal/domain/model"
)

// EventSink accepts user interactions from the chat platform. Deliver reports
// whether a waiting session consumed the event.
type EventSink interface {
	Deliver(ev model.Event) bool
}

// Capabilities is the tool surface. No method returns a Go error: every
// failure is folded into the result's Error field.
type Capabilities interface {
	RequestApproval(ctx context.Context, req model.ApprovalRequest) model.ApprovalResult
	Notify(ctx context.Context, req model.NotifyRequest) model.NotifyResult
	NotifyWithStatus(ctx context.Context, req model.StatusNotifyRequest) model.NotifyResult
	AskQuestion(ctx context.Context, req model.QuestionRequest) model.QuestionResult
	Poll(ctx context.Context, req model.PollRequest) model.PollResult
	RequestTextInput(ctx context.Context, req model.TextInputRequest) model.TextInputResult
	ConfirmWithDiff(ctx context.Context, req model.DiffConfirmRequest) model.ApprovalResult
	RequestApprovalWithReason(ctx context.Context, req model.ReasonApprovalRequest) model.ReasonApprovalResult
	ScheduleReminder(ctx context.Context, req model.ReminderRequest) model.ReminderResult
	CancelReminder(ctx context.Context, reminderID string) model.CancelReminderResult
	CreateThread(ctx context.Context, req model.ThreadRequest) model.ThreadResult
}

// StatusReporter exposes in-flight counts for operator status output.
type StatusReporter interface {
	PendingSessions() int
	PendingReminders() int
}

// Interactions is what the chat adapter needs from the domain.
type Interactions interface {
	EventSink
	StatusReporter
}
