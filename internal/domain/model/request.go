package model

// Kind identifies a human-facing capability.
type Kind string

const (
	KindApproval           Kind = "approval"
	KindNotify             Kind = "notify"
	KindQuestion           Kind = "question"
	KindPoll               Kind = "poll"
	KindTextInput          Kind = "text_input"
	KindDiffConfirm        Kind = "diff_confirm"
	KindApprovalWithReason Kind = "approval_with_reason"
	KindReminder           Kind = "reminder"
	KindThread             Kind = "thread"
)

// DefaultTimeoutSec is applied by the tool layer when the caller omits a timeout.
const DefaultTimeoutSec = 300

type ApprovalRequest struct {
	Message    string
	TimeoutSec int
}

type NotifyRequest struct {
	Message string
}

type StatusNotifyRequest struct {
	Message string
	Status  NotificationStatus
	Details string
}

type QuestionRequest struct {
	Question   string
	Options    []string
	TimeoutSec int
}

// PollRequest asks for zero or more selections. A nil MaxSelections means
// "as many as there are options".
type PollRequest struct {
	Question      string
	Options       []string
	MinSelections int
	MaxSelections *int
	TimeoutSec    int
}

// EffectiveMax resolves MaxSelections against the option count.
func (r PollRequest) EffectiveMax() int {
	if r.MaxSelections == nil {
		return len(r.Options)
	}
	return *r.MaxSelections
}

type TextInputRequest struct {
	Title       string
	Prompt      string
	Placeholder string
	Multiline   bool
	TimeoutSec  int
}

type DiffConfirmRequest struct {
	Message    string
	Diff       string
	Filename   string
	TimeoutSec int
}

type ReasonApprovalRequest struct {
	Message    string
	TimeoutSec int
}

type ReminderRequest struct {
	Message      string
	DelaySeconds int
}

type ThreadRequest struct {
	Name           string
	InitialMessage string
}
