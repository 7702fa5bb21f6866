package outbound

import (
	"time"

	"github.com/jonny/askuser-bot/internal/domain/model"
)

// Reminder completion results reported to MetricsRecorder.
const (
	ReminderDelivered = "delivered"
	ReminderFailed    = "failed"
	ReminderCancelled = "cancelled"
	ReminderDropped   = "dropped"
)

// MetricsRecorder receives session and reminder telemetry.
type MetricsRecorder interface {
	SessionFinished(kind model.Kind, outcome model.Outcome, d time.Duration)
	ReminderScheduled()
	ReminderFinished(result string)
	SetPendingReminders(n int)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) SessionFinished(model.Kind, model.Outcome, time.Duration) {}
func (NopMetrics) ReminderScheduled()                                      {}
func (NopMetrics) ReminderFinished(string)                                 {}
func (NopMetrics) SetPendingReminders(int)                                 {}
