package model

type ApprovalResult struct {
	Approved bool   `json:"approved"`
	TimedOut bool   `json:"timedOut"`
	Error    string `json:"error,omitempty"`
}

type NotifyResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// QuestionResult carries a nil Selected on timeout or error.
type QuestionResult struct {
	Selected *string `json:"selected"`
	TimedOut bool    `json:"timedOut"`
	Error    string  `json:"error,omitempty"`
}

// PollResult always carries a non-nil Selected slice so it encodes as [].
type PollResult struct {
	Selected []string `json:"selected"`
	TimedOut bool     `json:"timedOut"`
	Error    string   `json:"error,omitempty"`
}

type TextInputResult struct {
	Text      *string `json:"text"`
	TimedOut  bool    `json:"timedOut"`
	Cancelled bool    `json:"cancelled"`
	Error     string  `json:"error,omitempty"`
}

type ReasonApprovalResult struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason"`
	TimedOut bool   `json:"timedOut"`
	Error    string `json:"error,omitempty"`
}

type ReminderResult struct {
	ReminderID string `json:"reminderId"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

type CancelReminderResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type ThreadResult struct {
	ThreadID string `json:"threadId"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}
