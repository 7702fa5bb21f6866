package model

import "fmt"

// NotificationStatus classifies a status notification.
type NotificationStatus string

const (
	StatusSuccess NotificationStatus = "success"
	StatusError   NotificationStatus = "error"
	StatusWarning NotificationStatus = "warning"
	StatusInfo    NotificationStatus = "info"
)

// AllStatuses lists the accepted statuses in display order.
var AllStatuses = []NotificationStatus{StatusSuccess, StatusError, StatusWarning, StatusInfo}

// StatusStyle is the visual treatment of a status panel.
type StatusStyle struct {
	Color string
	Emoji string
	Title string
}

var statusStyles = map[NotificationStatus]StatusStyle{
	StatusSuccess: {Color: "#57f287", Emoji: "✅", Title: "Success"},
	StatusError:   {Color: "#ed4245", Emoji: "❌", Title: "Error"},
	StatusWarning: {Color: "#fee75c", Emoji: "⚠️", Title: "Warning"},
	StatusInfo:    {Color: "#5865f2", Emoji: "ℹ️", Title: "Info"},
}

func (s NotificationStatus) IsValid() bool {
	_, ok := statusStyles[s]
	return ok
}

// Style returns the panel style for s, or an error for an unknown status.
func (s NotificationStatus) Style() (StatusStyle, error) {
	st, ok := statusStyles[s]
	if !ok {
		return StatusStyle{}, fmt.Errorf("unknown notification status %q", s)
	}
	return st, nil
}
