package model

import "time"

// ButtonStyle mirrors the three button looks every chat platform offers.
type ButtonStyle string

const (
	ButtonDefault ButtonStyle = ""
	ButtonPrimary ButtonStyle = "primary"
	ButtonDanger  ButtonStyle = "danger"
)

// Panel colours used outside of status notifications.
const (
	ColorNeutral = "#5865f2"
	ColorSuccess = "#57f287"
	ColorDanger  = "#ed4245"
	ColorMuted   = "#99aab5"
)

// Message is a platform-neutral outbound chat message. A nil Panel, empty
// Buttons and nil Select produce a plain text message.
type Message struct {
	Text     string
	Panel    *Panel
	Buttons  []Button
	Select   *Select
	ThreadID string
}

// HasControls reports whether the message carries anything a user can click.
func (m Message) HasControls() bool {
	return len(m.Buttons) > 0 || m.Select != nil
}

type Panel struct {
	Title       string
	Description string
	Color       string
	Fields      []PanelField
	Footer      string
	Timestamp   time.Time
}

type PanelField struct {
	Name   string
	Value  string
	Inline bool
}

type Button struct {
	ID    string
	Label string
	Style ButtonStyle
}

// Select is a single or multi choice menu. Option labels and values are
// already truncated to the platform limit by the time they reach here.
type Select struct {
	ID            string
	Placeholder   string
	Options       []string
	Multi         bool
	MinSelections int
	MaxSelections int
}

// Form is a modal with a single text field.
type Form struct {
	ID            string
	Title         string
	FieldID       string
	Label         string
	Placeholder   string
	Multiline     bool
	Optional      bool
	NotifyOnClose bool
}

// MessageRef identifies a posted message so it can be edited later.
type MessageRef struct {
	ChannelID string
	Timestamp string
}
