package service

import (
	"strings"
	"unicode/utf8"

	"github.com/jonny/askuser-bot/internal/domain/model"
)

// Limits enforced before any message is posted.
const (
	MinOptions          = 2
	MaxOptions          = 25
	MinReminderDelay    = 1
	MaxReminderDelay    = 3600
	MaxTitleLength      = 45
	MaxPlaceholderLen   = 100
	MaxThreadNameLength = 100
	MinFormTimeout      = 1
	MaxFormTimeout      = 900
)

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

// ValidateOptions checks the option count shared by questions and polls.
func ValidateOptions(options []string) error {
	if len(options) < MinOptions {
		return invalid("options", "at least 2 options are required")
	}
	if len(options) > MaxOptions {
		return invalid("options", "no more than 25 options are allowed")
	}
	return nil
}

// ValidatePoll checks options and selection bounds. MaxSelections defaults to
// the option count when unset.
func ValidatePoll(req model.PollRequest) error {
	if err := ValidateOptions(req.Options); err != nil {
		return err
	}
	n := len(req.Options)
	max := req.EffectiveMax()

	if req.MinSelections < 0 {
		return invalid("min_selections", "min_selections must be 0 or greater")
	}
	if req.MinSelections > n {
		return invalid("min_selections", "min_selections must not exceed the number of options")
	}
	if max < 1 {
		return invalid("max_selections", "max_selections must be 1 or greater")
	}
	if max > n {
		return invalid("max_selections", "max_selections must not exceed the number of options")
	}
	if req.MinSelections > max {
		return invalid("min_selections", "min_selections must not exceed max_selections")
	}
	return nil
}

func ValidateReminderDelay(delaySeconds int) error {
	if delaySeconds < MinReminderDelay || delaySeconds > MaxReminderDelay {
		return invalid("delay_seconds", "delay_seconds must be between 1 and 3600")
	}
	return nil
}

func validateFormTimeout(timeoutSec int) error {
	if timeoutSec < MinFormTimeout || timeoutSec > MaxFormTimeout {
		return invalid("timeout", "timeout must be between 1 and 900 seconds")
	}
	return nil
}

func ValidateTextInput(req model.TextInputRequest) error {
	if isBlank(req.Title) {
		return invalid("title", "title is required")
	}
	if runeLen(req.Title) > MaxTitleLength {
		return invalid("title", "title must be 45 characters or fewer")
	}
	if isBlank(req.Prompt) {
		return invalid("prompt", "prompt is required")
	}
	if req.Placeholder != "" && runeLen(req.Placeholder) > MaxPlaceholderLen {
		return invalid("placeholder", "placeholder must be 100 characters or fewer")
	}
	return validateFormTimeout(req.TimeoutSec)
}

func ValidateDiffConfirm(req model.DiffConfirmRequest) error {
	if isBlank(req.Message) {
		return invalid("message", "message is required")
	}
	if isBlank(req.Diff) {
		return invalid("diff", "diff is required")
	}
	return validateFormTimeout(req.TimeoutSec)
}

func ValidateReasonApproval(req model.ReasonApprovalRequest) error {
	if isBlank(req.Message) {
		return invalid("message", "message is required")
	}
	return validateFormTimeout(req.TimeoutSec)
}

func ValidateStatus(status model.NotificationStatus) error {
	if !status.IsValid() {
		return invalid("status", "invalid status, valid values: success, error, warning, info")
	}
	return nil
}

func ValidateThread(req model.ThreadRequest) error {
	if isBlank(req.Name) {
		return invalid("name", "thread name is required")
	}
	if runeLen(req.Name) > MaxThreadNameLength {
		return invalid("name", "thread name must be 100 characters or fewer")
	}
	return nil
}
