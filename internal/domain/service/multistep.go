package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/jonny/askuser-bot/internal/domain/model"
)

// textInputField is the form field carrying the typed answer.
const textInputField = "text_input_value"

// RequestTextInput runs a two stage exchange: a message with enter and cancel
// buttons, then a form opened from the enter click. Each stage gets its own
// full timeout window.
func (s *Service) RequestTextInput(ctx context.Context, req model.TextInputRequest) model.TextInputResult {
	ch, ok := s.gate.Channel()
	if !ok {
		return model.TextInputResult{Error: ErrNotConnected.Error()}
	}
	if err := ValidateTextInput(req); err != nil {
		return model.TextInputResult{Error: err.Error()}
	}

	ss := s.newSession(ch, model.KindTextInput, req.Prompt)
	enterID, cancelID := ss.id("text_input"), ss.id("text_input_cancel")
	msg := model.Message{
		Text: "✏️ *" + req.Title + "*\n\n" + req.Prompt,
		Buttons: []model.Button{
			{ID: enterID, Label: "✏️ Enter text", Style: model.ButtonPrimary},
			{ID: cancelID, Label: "Cancel"},
		},
	}

	click, err := ss.exchange(ctx, msg, req.TimeoutSec, isAction, enterID, cancelID)
	if err != nil {
		return s.textInputFailed(ctx, ss, req, err)
	}
	if click.Key == cancelID {
		ss.edit(ctx, model.Message{Text: "❌ *Cancelled*\n\n" + strike(req.Prompt)})
		ss.finish(ctx, model.OutcomeCancelled, click.UserID)
		return model.TextInputResult{Cancelled: true}
	}

	form := model.Form{
		ID:        ss.id("text_input_modal"),
		Title:     truncate(req.Title, maxFormTitle),
		FieldID:   textInputField,
		Label:     truncate(req.Prompt, maxFormLabel),
		Multiline: req.Multiline,
	}
	if req.Placeholder != "" {
		form.Placeholder = truncate(req.Placeholder, maxFormHint)
	}

	// Closing the form is not an answer; the stage runs on to its timeout.
	sub, err := ss.openForm(ctx, click, form, req.TimeoutSec, isSubmission)
	if err != nil {
		return s.textInputFailed(ctx, ss, req, err)
	}

	text := sub.Text
	ss.edit(ctx, model.Message{
		Text: "✅ *Input received*\n\n" + req.Prompt + "\n\n*Input:*\n```\n" + preview(text, maxInputPreview) + "\n```",
	})
	ss.finish(ctx, model.OutcomeResponded, sub.UserID, "length", strconv.Itoa(runeLen(text)))
	return model.TextInputResult{Text: &text}
}

func (s *Service) textInputFailed(ctx context.Context, ss *session, req model.TextInputRequest, err error) model.TextInputResult {
	if errors.Is(err, ErrTimeout) {
		ss.edit(ctx, model.Message{Text: timedOutText(req.Prompt)})
		ss.finish(ctx, model.OutcomeTimedOut, "")
		return model.TextInputResult{TimedOut: true}
	}
	ss.fail(ctx, err)
	return model.TextInputResult{Error: err.Error()}
}

// RequestApprovalWithReason asks for a decision and then an optional reason.
// Dismissing the reason form keeps the decision with an empty reason.
func (s *Service) RequestApprovalWithReason(ctx context.Context, req model.ReasonApprovalRequest) model.ReasonApprovalResult {
	ch, ok := s.gate.Channel()
	if !ok {
		return model.ReasonApprovalResult{Error: ErrNotConnected.Error()}
	}
	if err := ValidateReasonApproval(req); err != nil {
		return model.ReasonApprovalResult{Error: err.Error()}
	}

	ss := s.newSession(ch, model.KindApprovalWithReason, req.Message)
	approveID, denyID := ss.id("reason_approve"), ss.id("reason_deny")
	msg := model.Message{
		Text:    "🔔 *Approval request*\n\n" + req.Message,
		Buttons: approvalButtons(approveID, denyID),
	}

	click, err := ss.exchange(ctx, msg, req.TimeoutSec, isAction, approveID, denyID)
	if err != nil {
		return s.reasonFailed(ctx, ss, req, err)
	}
	approved := click.Key == approveID

	form := model.Form{
		ID:            ss.id("reason_modal"),
		Title:         "Approved",
		FieldID:       "reason",
		Label:         "Reason",
		Placeholder:   "Optional reason for your decision",
		Multiline:     true,
		Optional:      true,
		NotifyOnClose: true,
	}
	if !approved {
		form.Title = "Denied"
	}

	accept := func(ev model.Event) bool {
		return ev.Kind == model.EventSubmission || ev.Kind == model.EventFormClosed
	}
	sub, err := ss.openForm(ctx, click, form, req.TimeoutSec, accept)
	if errors.Is(err, ErrTimeout) || (err != nil && ctx.Err() != nil) {
		return s.reasonFailed(ctx, ss, req, err)
	}

	// The click is the decision; a form that cannot be shown only loses the reason.
	reason := ""
	if err != nil {
		s.logger.Warn("reason form unavailable, keeping decision",
			"token", ss.token, "decision", decision(approved), "error", err)
	} else if sub.Kind == model.EventSubmission {
		reason = sub.Text
	}

	text := decisionHeader(approved) + "\n\n" + strike(req.Message)
	if reason != "" {
		text += "\n\n*Reason:* " + reason
	}
	ss.edit(ctx, model.Message{Text: text})
	ss.finish(ctx, model.OutcomeResponded, click.UserID, "decision", decision(approved), "reason", reason)
	return model.ReasonApprovalResult{Approved: approved, Reason: reason}
}

func (s *Service) reasonFailed(ctx context.Context, ss *session, req model.ReasonApprovalRequest, err error) model.ReasonApprovalResult {
	if errors.Is(err, ErrTimeout) {
		ss.edit(ctx, model.Message{Text: timedOutText(req.Message)})
		ss.finish(ctx, model.OutcomeTimedOut, "")
		return model.ReasonApprovalResult{TimedOut: true}
	}
	ss.fail(ctx, err)
	return model.ReasonApprovalResult{Error: err.Error()}
}
