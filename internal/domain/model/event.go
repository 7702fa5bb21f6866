package model

// EventKind distinguishes the inbound interactions a session can wait on.
type EventKind string

const (
	EventAction     EventKind = "action"
	EventSubmission EventKind = "submission"
	EventFormClosed EventKind = "form_closed"
)

// Event is a user interaction translated out of the chat platform payload.
// Key carries the control or form identifier used for correlation.
type Event struct {
	Kind      EventKind
	Key       string
	Values    []string
	Text      string
	TriggerID string
	UserID    string
}

// Value returns the first selected value, if any.
func (e Event) Value() string {
	if len(e.Values) == 0 {
		return ""
	}
	return e.Values[0]
}
