package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonny/askuser-bot/internal/domain/model"
	"github.com/jonny/askuser-bot/internal/domain/port/inbound"
	"github.com/jonny/askuser-bot/internal/domain/service"
)

// toolFunc decodes arguments and runs one capability. A non-nil error means
// the arguments could not be decoded; capability failures travel in errMsg.
type toolFunc func(ctx context.Context, caps inbound.Capabilities, args json.RawMessage) (result any, errMsg string, err error)

type tool struct {
	def  *mcpsdk.Tool
	call toolFunc
}

func intp(n int) *int { return &n }

func floatp(n int) *float64 {
	f := float64(n)
	return &f
}

func object(required []string, props map[string]*jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Properties: props, Required: required}
}

func text(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: desc}
}

func boundedText(desc string, maxLen int) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: desc, MaxLength: intp(maxLen)}
}

func timeoutSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "integer",
		Description: fmt.Sprintf("Seconds to wait for a response (default %d)", model.DefaultTimeoutSec),
		Minimum:     floatp(1),
	}
}

func formTimeoutSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "integer",
		Description: fmt.Sprintf("Seconds to wait for a response, %d-%d (default %d)",
			service.MinFormTimeout, service.MaxFormTimeout, model.DefaultTimeoutSec),
		Minimum: floatp(service.MinFormTimeout),
		Maximum: floatp(service.MaxFormTimeout),
	}
}

func optionsSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "array",
		Description: fmt.Sprintf("Choices to offer, %d-%d entries", service.MinOptions, service.MaxOptions),
		Items:       &jsonschema.Schema{Type: "string"},
		MinItems:    intp(service.MinOptions),
		MaxItems:    intp(service.MaxOptions),
	}
}

func registry() []tool {
	return []tool{
		{
			def: &mcpsdk.Tool{
				Name: "request_approval",
				Description: "Post an approval request to Slack and wait for the user to approve or deny. " +
					"Use before any operation that needs explicit confirmation.",
				InputSchema: object([]string{"message"}, map[string]*jsonschema.Schema{
					"message": text("What is being approved, stated clearly"),
					"timeout": timeoutSchema(),
				}),
			},
			call: callRequestApproval,
		},
		{
			def: &mcpsdk.Tool{
				Name:        "notify",
				Description: "Post a one-way notification to Slack. No response is awaited.",
				InputSchema: object([]string{"message"}, map[string]*jsonschema.Schema{
					"message": text("Notification text"),
				}),
			},
			call: callNotify,
		},
		{
			def: &mcpsdk.Tool{
				Name:        "notify_with_status",
				Description: "Post a colour-coded status notification (success, error, warning or info) to Slack.",
				InputSchema: object([]string{"message", "status"}, map[string]*jsonschema.Schema{
					"message": text("Notification text"),
					"status": {Type: "string", Description: "Status level",
						Enum: []any{"success", "error", "warning", "info"}},
					"details": text("Optional extra detail shown in its own field"),
				}),
			},
			call: callNotifyWithStatus,
		},
		{
			def: &mcpsdk.Tool{
				Name:        "ask_question",
				Description: "Ask a question with a fixed list of choices in Slack and wait for exactly one selection.",
				InputSchema: object([]string{"question", "options"}, map[string]*jsonschema.Schema{
					"question": text("Question text"),
					"options":  optionsSchema(),
					"timeout":  timeoutSchema(),
				}),
			},
			call: callAskQuestion,
		},
		{
			def: &mcpsdk.Tool{
				Name: "poll",
				Description: "Ask a multiple-choice question in Slack and wait for the user to submit between " +
					"minSelections and maxSelections options.",
				InputSchema: object([]string{"question", "options"}, map[string]*jsonschema.Schema{
					"question": text("Question text"),
					"options":  optionsSchema(),
					"minSelections": {Type: "integer", Description: "Fewest options that may be selected (default 0)",
						Minimum: floatp(0)},
					"maxSelections": {Type: "integer", Description: "Most options that may be selected (default: number of options)",
						Minimum: floatp(1)},
					"timeout": timeoutSchema(),
				}),
			},
			call: callPoll,
		},
		{
			def: &mcpsdk.Tool{
				Name:        "request_text_input",
				Description: "Ask the user in Slack to type free-form text into a form and wait for the submission.",
				InputSchema: object([]string{"title", "prompt"}, map[string]*jsonschema.Schema{
					"title":       boundedText("Form title", service.MaxTitleLength),
					"prompt":      text("What the user should enter"),
					"placeholder": boundedText("Hint shown in the empty field", service.MaxPlaceholderLen),
					"multiline":   {Type: "boolean", Description: "Use a paragraph field (default false)"},
					"timeout":     formTimeoutSchema(),
				}),
			},
			call: callRequestTextInput,
		},
		{
			def: &mcpsdk.Tool{
				Name:        "confirm_with_diff",
				Description: "Show a code diff in Slack and wait for the user to approve or deny the change.",
				InputSchema: object([]string{"message", "diff"}, map[string]*jsonschema.Schema{
					"message":  text("Summary of the change"),
					"diff":     text("Unified diff or changed code"),
					"filename": text("File being changed, used for syntax highlighting"),
					"timeout":  formTimeoutSchema(),
				}),
			},
			call: callConfirmWithDiff,
		},
		{
			def: &mcpsdk.Tool{
				Name:        "request_approval_with_reason",
				Description: "Post an approval request to Slack; after approving or denying, the user may give a reason.",
				InputSchema: object([]string{"message"}, map[string]*jsonschema.Schema{
					"message": text("What is being approved, stated clearly"),
					"timeout": formTimeoutSchema(),
				}),
			},
			call: callRequestApprovalWithReason,
		},
		{
			def: &mcpsdk.Tool{
				Name:        "schedule_reminder",
				Description: "Post a reminder to Slack after a delay. Returns immediately with a reminder ID.",
				InputSchema: object([]string{"message", "delaySeconds"}, map[string]*jsonschema.Schema{
					"message": text("Reminder text"),
					"delaySeconds": {Type: "integer",
						Description: fmt.Sprintf("Delay before posting, %d-%d seconds", service.MinReminderDelay, service.MaxReminderDelay),
						Minimum:     floatp(service.MinReminderDelay),
						Maximum:     floatp(service.MaxReminderDelay)},
				}),
			},
			call: callScheduleReminder,
		},
		{
			def: &mcpsdk.Tool{
				Name:        "cancel_reminder",
				Description: "Cancel a pending reminder by ID.",
				InputSchema: object([]string{"reminderId"}, map[string]*jsonschema.Schema{
					"reminderId": text("ID returned by schedule_reminder"),
				}),
			},
			call: callCancelReminder,
		},
		{
			def: &mcpsdk.Tool{
				Name:        "create_thread",
				Description: "Start a Slack thread with a parent message and an optional first reply.",
				InputSchema: object([]string{"name"}, map[string]*jsonschema.Schema{
					"name":           boundedText("Thread name", service.MaxThreadNameLength),
					"initialMessage": text("Optional first message in the thread"),
				}),
			},
			call: callCreateThread,
		},
	}
}

// --- argument decoding ---

type argError struct{ msg string }

func (e *argError) Error() string { return e.msg }

func missing(name string) error {
	return &argError{msg: "missing required argument: " + name}
}

func decodeArgs(raw json.RawMessage, dst any) error {
	if len(bytes.TrimSpace(raw)) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &argError{msg: fmt.Sprintf("decoding arguments: %v", err)}
	}
	return nil
}

func timeoutOr(p *int) int {
	if p == nil {
		return model.DefaultTimeoutSec
	}
	return *p
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// --- tool implementations ---

func callRequestApproval(ctx context.Context, caps inbound.Capabilities, raw json.RawMessage) (any, string, error) {
	var a struct {
		Message *string `json:"message"`
		Timeout *int    `json:"timeout"`
	}
	if err := decodeArgs(raw, &a); err != nil {
		return nil, "", err
	}
	if a.Message == nil {
		return nil, "", missing("message")
	}
	res := caps.RequestApproval(ctx, model.ApprovalRequest{Message: *a.Message, TimeoutSec: timeoutOr(a.Timeout)})
	return res, res.Error, nil
}

func callNotify(ctx context.Context, caps inbound.Capabilities, raw json.RawMessage) (any, string, error) {
	var a struct {
		Message *string `json:"message"`
	}
	if err := decodeArgs(raw, &a); err != nil {
		return nil, "", err
	}
	if a.Message == nil {
		return nil, "", missing("message")
	}
	res := caps.Notify(ctx, model.NotifyRequest{Message: *a.Message})
	return res, res.Error, nil
}

func callNotifyWithStatus(ctx context.Context, caps inbound.Capabilities, raw json.RawMessage) (any, string, error) {
	var a struct {
		Message *string `json:"message"`
		Status  *string `json:"status"`
		Details string  `json:"details"`
	}
	if err := decodeArgs(raw, &a); err != nil {
		return nil, "", err
	}
	if a.Message == nil {
		return nil, "", missing("message")
	}
	if a.Status == nil {
		return nil, "", missing("status")
	}
	res := caps.NotifyWithStatus(ctx, model.StatusNotifyRequest{
		Message: *a.Message,
		Status:  model.NotificationStatus(*a.Status),
		Details: a.Details,
	})
	return res, res.Error, nil
}

func callAskQuestion(ctx context.Context, caps inbound.Capabilities, raw json.RawMessage) (any, string, error) {
	var a struct {
		Question *string  `json:"question"`
		Options  []string `json:"options"`
		Timeout  *int     `json:"timeout"`
	}
	if err := decodeArgs(raw, &a); err != nil {
		return nil, "", err
	}
	if a.Question == nil {
		return nil, "", missing("question")
	}
	if a.Options == nil {
		return nil, "", missing("options")
	}
	res := caps.AskQuestion(ctx, model.QuestionRequest{
		Question:   *a.Question,
		Options:    a.Options,
		TimeoutSec: timeoutOr(a.Timeout),
	})
	return res, res.Error, nil
}

func callPoll(ctx context.Context, caps inbound.Capabilities, raw json.RawMessage) (any, string, error) {
	var a struct {
		Question      *string  `json:"question"`
		Options       []string `json:"options"`
		MinSelections int      `json:"minSelections"`
		MaxSelections *int     `json:"maxSelections"`
		Timeout       *int     `json:"timeout"`
	}
	if err := decodeArgs(raw, &a); err != nil {
		return nil, "", err
	}
	if a.Question == nil {
		return nil, "", missing("question")
	}
	if a.Options == nil {
		return nil, "", missing("options")
	}
	res := caps.Poll(ctx, model.PollRequest{
		Question:      *a.Question,
		Options:       a.Options,
		MinSelections: a.MinSelections,
		MaxSelections: a.MaxSelections,
		TimeoutSec:    timeoutOr(a.Timeout),
	})
	return res, res.Error, nil
}

func callRequestTextInput(ctx context.Context, caps inbound.Capabilities, raw json.RawMessage) (any, string, error) {
	var a struct {
		Title       *string `json:"title"`
		Prompt      *string `json:"prompt"`
		Placeholder string  `json:"placeholder"`
		Multiline   bool    `json:"multiline"`
		Timeout     *int    `json:"timeout"`
	}
	if err := decodeArgs(raw, &a); err != nil {
		return nil, "", err
	}
	if a.Title == nil {
		return nil, "", missing("title")
	}
	if a.Prompt == nil {
		return nil, "", missing("prompt")
	}
	res := caps.RequestTextInput(ctx, model.TextInputRequest{
		Title:       *a.Title,
		Prompt:      *a.Prompt,
		Placeholder: a.Placeholder,
		Multiline:   a.Multiline,
		TimeoutSec:  timeoutOr(a.Timeout),
	})
	return res, res.Error, nil
}

func callConfirmWithDiff(ctx context.Context, caps inbound.Capabilities, raw json.RawMessage) (any, string, error) {
	var a struct {
		Message  *string `json:"message"`
		Diff     *string `json:"diff"`
		Filename string  `json:"filename"`
		Timeout  *int    `json:"timeout"`
	}
	if err := decodeArgs(raw, &a); err != nil {
		return nil, "", err
	}
	if a.Message == nil {
		return nil, "", missing("message")
	}
	if a.Diff == nil {
		return nil, "", missing("diff")
	}
	res := caps.ConfirmWithDiff(ctx, model.DiffConfirmRequest{
		Message:    *a.Message,
		Diff:       *a.Diff,
		Filename:   a.Filename,
		TimeoutSec: timeoutOr(a.Timeout),
	})
	return res, res.Error, nil
}

func callRequestApprovalWithReason(ctx context.Context, caps inbound.Capabilities, raw json.RawMessage) (any, string, error) {
	var a struct {
		Message *string `json:"message"`
		Timeout *int    `json:"timeout"`
	}
	if err := decodeArgs(raw, &a); err != nil {
		return nil, "", err
	}
	if a.Message == nil {
		return nil, "", missing("message")
	}
	res := caps.RequestApprovalWithReason(ctx, model.ReasonApprovalRequest{
		Message:    *a.Message,
		TimeoutSec: timeoutOr(a.Timeout),
	})
	return res, res.Error, nil
}

func callScheduleReminder(ctx context.Context, caps inbound.Capabilities, raw json.RawMessage) (any, string, error) {
	var a struct {
		Message      *string `json:"message"`
		DelaySeconds *int    `json:"delaySeconds"`
	}
	if err := decodeArgs(raw, &a); err != nil {
		return nil, "", err
	}
	if a.Message == nil {
		return nil, "", missing("message")
	}
	if a.DelaySeconds == nil {
		return nil, "", missing("delaySeconds")
	}
	res := caps.ScheduleReminder(ctx, model.ReminderRequest{Message: *a.Message, DelaySeconds: *a.DelaySeconds})
	return res, res.Error, nil
}

func callCancelReminder(ctx context.Context, caps inbound.Capabilities, raw json.RawMessage) (any, string, error) {
	var a struct {
		ReminderID *string `json:"reminderId"`
	}
	if err := decodeArgs(raw, &a); err != nil {
		return nil, "", err
	}
	if a.ReminderID == nil {
		return nil, "", missing("reminderId")
	}
	res := caps.CancelReminder(ctx, *a.ReminderID)
	return res, res.Error, nil
}

func callCreateThread(ctx context.Context, caps inbound.Capabilities, raw json.RawMessage) (any, string, error) {
	var a struct {
		Name           *string `json:"name"`
		InitialMessage *string `json:"initialMessage"`
	}
	if err := decodeArgs(raw, &a); err != nil {
		return nil, "", err
	}
	if a.Name == nil {
		return nil, "", missing("name")
	}
	res := caps.CreateThread(ctx, model.ThreadRequest{Name: *a.Name, InitialMessage: deref(a.InitialMessage)})
	return res, res.Error, nil
}
