package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonny/askuser-bot/internal/domain/model"
	"github.com/jonny/askuser-bot/internal/domain/port/outbound"
)

// session owns one outstanding exchange against the channel.
type session struct {
	svc    *Service
	ch     outbound.ChatChannel
	token  string
	record model.InteractionRecord
	ref    model.MessageRef
}

func (s *Service) newSession(ch outbound.ChatChannel, kind model.Kind, summary string) *session {
	token := model.NewToken()
	return &session{
		svc:    s,
		ch:     ch,
		token:  token,
		record: model.NewInteractionRecord(kind, token, summary, s.clock.Now()),
	}
}

func (ss *session) id(purpose string) string {
	return model.ControlID(purpose, ss.token)
}

// exchange registers a waiter for keys, posts msg and waits for the first
// accepted event. The waiter exists before the message does, so a fast click
// cannot be missed.
func (ss *session) exchange(ctx context.Context, msg model.Message, timeoutSec int,
	accept func(model.Event) bool, keys ...string) (model.Event, error) {
	w := ss.svc.dispatcher.Register(accept, keys...)

	ref, err := ss.ch.PostMessage(ctx, msg)
	if err != nil {
		w.Cancel()
		return model.Event{}, fmt.Errorf("posting %s message: %w", ss.record.Kind, err)
	}
	ss.ref = ref
	return w.Await(ctx, seconds(timeoutSec))
}

// openForm presents form in response to trigger and waits for it to be
// submitted or, when accepted, closed.
func (ss *session) openForm(ctx context.Context, trigger model.Event, form model.Form, timeoutSec int,
	accept func(model.Event) bool) (model.Event, error) {
	w := ss.svc.dispatcher.Register(accept, form.ID)

	if err := ss.ch.OpenForm(ctx, trigger.TriggerID, form); err != nil {
		w.Cancel()
		return model.Event{}, fmt.Errorf("opening form: %w", err)
	}
	return w.Await(ctx, seconds(timeoutSec))
}

// edit replaces the posted message. Failures are logged only: the result is
// already decided by the time an edit runs.
func (ss *session) edit(ctx context.Context, msg model.Message) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), editTimeout)
	defer cancel()

	if err := ss.ch.UpdateMessage(ctx, ss.ref, msg); err != nil {
		ss.svc.logger.Warn("failed to update message",
			"kind", ss.record.Kind, "token", ss.token, "error", err)
	}
}

// finish records the terminal outcome in history and metrics.
func (ss *session) finish(ctx context.Context, outcome model.Outcome, actor string, meta ...string) {
	rec := ss.record.Finish(outcome, actor, ss.svc.clock.Now())
	for i := 0; i+1 < len(meta); i += 2 {
		rec = rec.WithMetadata(meta[i], meta[i+1])
	}
	ss.svc.metrics.SessionFinished(rec.Kind, rec.Outcome, rec.Duration())

	if ss.svc.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), editTimeout)
	defer cancel()
	if err := ss.svc.history.Record(ctx, rec); err != nil {
		ss.svc.logger.Warn("failed to record interaction", "kind", rec.Kind, "error", err)
	}
}

// fail finishes a session that ended on anything but a response or timeout.
func (ss *session) fail(ctx context.Context, err error) {
	outcome := model.OutcomeError
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		outcome = model.OutcomeCancelled
	}
	ss.svc.logger.Error("interaction failed", "kind", ss.record.Kind, "token", ss.token, "error", err)
	// A posted message whose session is gone must not keep live controls.
	if ss.ref.Timestamp != "" {
		header := "⚠️ *Interaction failed*"
		if outcome == model.OutcomeCancelled {
			header = "🚫 *Cancelled*"
		}
		ss.edit(ctx, model.Message{Text: header + "\n\n" + strike(ss.record.Summary)})
	}
	ss.finish(ctx, outcome, "", "error", err.Error())
}

func isAction(ev model.Event) bool {
	return ev.Kind == model.EventAction
}

func isSubmission(ev model.Event) bool {
	return ev.Kind == model.EventSubmission
}

func approvalButtons(approveID, denyID string) []model.Button {
	return []model.Button{
		{ID: approveID, Label: "✅ Approve", Style: model.ButtonPrimary},
		{ID: denyID, Label: "❌ Deny", Style: model.ButtonDanger},
	}
}

func decisionHeader(approved bool) string {
	if approved {
		return "✅ *Approved*"
	}
	return "❌ *Denied*"
}

func decision(approved bool) string {
	if approved {
		return "approved"
	}
	return "denied"
}

func selectionHint(min, max int) string {
	if min == 0 {
		return fmt.Sprintf("Select up to %d, then press Submit.", max)
	}
	if min == max {
		return fmt.Sprintf("Select %d, then press Submit.", min)
	}
	return fmt.Sprintf("Select %d to %d, then press Submit.", min, max)
}

func timedOutText(body string) string {
	return "⏰ *Timed out*\n\n" + strike(body)
}

// RequestApproval asks for a yes/no decision.
func (s *Service) RequestApproval(ctx context.Context, req model.ApprovalRequest) model.ApprovalResult {
	ch, ok := s.gate.Channel()
	if !ok {
		return model.ApprovalResult{Error: ErrNotConnected.Error()}
	}

	ss := s.newSession(ch, model.KindApproval, req.Message)
	approveID, denyID := ss.id("approve"), ss.id("deny")
	msg := model.Message{
		Text:    "🔔 *Approval request*\n\n" + req.Message,
		Buttons: approvalButtons(approveID, denyID),
	}

	ev, err := ss.exchange(ctx, msg, req.TimeoutSec, isAction, approveID, denyID)
	switch {
	case errors.Is(err, ErrTimeout):
		ss.edit(ctx, model.Message{Text: timedOutText(req.Message)})
		ss.finish(ctx, model.OutcomeTimedOut, "")
		return model.ApprovalResult{TimedOut: true}
	case err != nil:
		ss.fail(ctx, err)
		return model.ApprovalResult{Error: err.Error()}
	}

	approved := ev.Key == approveID
	ss.edit(ctx, model.Message{Text: decisionHeader(approved) + "\n\n" + strike(req.Message)})
	ss.finish(ctx, model.OutcomeResponded, ev.UserID, "decision", decision(approved))
	return model.ApprovalResult{Approved: approved}
}

// AskQuestion asks for exactly one of the options.
func (s *Service) AskQuestion(ctx context.Context, req model.QuestionRequest) model.QuestionResult {
	ch, ok := s.gate.Channel()
	if !ok {
		return model.QuestionResult{Error: ErrNotConnected.Error()}
	}
	if err := ValidateOptions(req.Options); err != nil {
		return model.QuestionResult{Error: err.Error()}
	}

	ss := s.newSession(ch, model.KindQuestion, req.Question)
	selectID := ss.id("select")
	msg := model.Message{
		Text: "❓ *Question*\n\n" + req.Question,
		Select: &model.Select{
			ID:            selectID,
			Placeholder:   "Select an option...",
			Options:       truncateAll(req.Options, maxOptionLength),
			MinSelections: 1,
			MaxSelections: 1,
		},
	}
	accept := func(ev model.Event) bool {
		return isAction(ev) && len(ev.Values) == 1
	}

	ev, err := ss.exchange(ctx, msg, req.TimeoutSec, accept, selectID)
	switch {
	case errors.Is(err, ErrTimeout):
		ss.edit(ctx, model.Message{Text: timedOutText(req.Question)})
		ss.finish(ctx, model.OutcomeTimedOut, "")
		return model.QuestionResult{TimedOut: true}
	case err != nil:
		ss.fail(ctx, err)
		return model.QuestionResult{Error: err.Error()}
	}

	selected := ev.Value()
	ss.edit(ctx, model.Message{
		Text: fmt.Sprintf("✅ *Answered*\n\n%s\n\n*Selection:* %s", req.Question, selected),
	})
	ss.finish(ctx, model.OutcomeResponded, ev.UserID, "selected", selected)
	return model.QuestionResult{Selected: &selected}
}

// Poll asks for between MinSelections and the effective maximum options.
func (s *Service) Poll(ctx context.Context, req model.PollRequest) model.PollResult {
	ch, ok := s.gate.Channel()
	if !ok {
		return model.PollResult{Selected: []string{}, Error: ErrNotConnected.Error()}
	}
	if err := ValidatePoll(req); err != nil {
		return model.PollResult{Selected: []string{}, Error: err.Error()}
	}

	min, max := req.MinSelections, req.EffectiveMax()
	placeholder := fmt.Sprintf("Select up to %d options...", max)
	if min > 0 {
		placeholder = fmt.Sprintf("Select %d to %d options...", min, max)
	}

	// Selection changes are not answers. Only the submit click settles the
	// poll, carrying the menu state at the moment of the click.
	ss := s.newSession(ch, model.KindPoll, req.Question)
	selectID, submitID := ss.id("poll"), ss.id("poll_submit")
	msg := model.Message{
		Text: "📊 *Poll*\n\n" + req.Question + "\n\n_" + selectionHint(min, max) + "_",
		Select: &model.Select{
			ID:            selectID,
			Placeholder:   placeholder,
			Options:       truncateAll(req.Options, maxOptionLength),
			Multi:         true,
			MinSelections: min,
			MaxSelections: max,
		},
		Buttons: []model.Button{{ID: submitID, Label: "Submit", Style: model.ButtonPrimary}},
	}
	accept := func(ev model.Event) bool {
		return isAction(ev) && len(ev.Values) >= min && len(ev.Values) <= max
	}

	ev, err := ss.exchange(ctx, msg, req.TimeoutSec, accept, submitID)
	switch {
	case errors.Is(err, ErrTimeout):
		ss.edit(ctx, model.Message{Text: timedOutText(req.Question)})
		ss.finish(ctx, model.OutcomeTimedOut, "")
		return model.PollResult{Selected: []string{}, TimedOut: true}
	case err != nil:
		ss.fail(ctx, err)
		return model.PollResult{Selected: []string{}, Error: err.Error()}
	}

	selected := append([]string{}, ev.Values...)
	var b strings.Builder
	fmt.Fprintf(&b, "✅ *Poll closed*\n\n%s\n\n*Selected (%d):*", req.Question, len(selected))
	for _, v := range selected {
		b.WriteString("\n• " + v)
	}
	ss.edit(ctx, model.Message{Text: b.String()})
	ss.finish(ctx, model.OutcomeResponded, ev.UserID, "selected", strings.Join(selected, ", "))
	return model.PollResult{Selected: selected}
}

// ConfirmWithDiff shows a code change and asks for approval.
func (s *Service) ConfirmWithDiff(ctx context.Context, req model.DiffConfirmRequest) model.ApprovalResult {
	ch, ok := s.gate.Channel()
	if !ok {
		return model.ApprovalResult{Error: ErrNotConnected.Error()}
	}
	if err := ValidateDiffConfirm(req); err != nil {
		return model.ApprovalResult{Error: err.Error()}
	}

	ss := s.newSession(ch, model.KindDiffConfirm, req.Message)
	approveID, denyID := ss.id("diff_approve"), ss.id("diff_deny")
	panel := diffPanel(req, s.clock.Now())
	msg := model.Message{
		Text:    "📝 Review code change",
		Panel:   panel,
		Buttons: approvalButtons(approveID, denyID),
	}

	ev, err := ss.exchange(ctx, msg, req.TimeoutSec, isAction, approveID, denyID)
	switch {
	case errors.Is(err, ErrTimeout):
		done := *panel
		done.Title, done.Color = "⏰ Timed out", model.ColorMuted
		ss.edit(ctx, model.Message{Text: done.Title, Panel: &done})
		ss.finish(ctx, model.OutcomeTimedOut, "")
		return model.ApprovalResult{TimedOut: true}
	case err != nil:
		ss.fail(ctx, err)
		return model.ApprovalResult{Error: err.Error()}
	}

	approved := ev.Key == approveID
	done := *panel
	if approved {
		done.Title, done.Color = "✅ Approved", model.ColorSuccess
	} else {
		done.Title, done.Color = "❌ Denied", model.ColorDanger
	}
	ss.edit(ctx, model.Message{Text: done.Title, Panel: &done})
	ss.finish(ctx, model.OutcomeResponded, ev.UserID,
		"decision", decision(approved), "filename", req.Filename)
	return model.ApprovalResult{Approved: approved}
}

func diffPanel(req model.DiffConfirmRequest, now time.Time) *model.Panel {
	shown, truncated := displayDiff(req.Diff)
	lang := languageFor(req.Filename)

	p := &model.Panel{
		Title:       "📝 Review code change",
		Description: req.Message,
		Color:       model.ColorNeutral,
		Timestamp:   now,
	}
	if req.Filename != "" {
		p.Fields = append(p.Fields, model.PanelField{Name: "File", Value: "`" + req.Filename + "`", Inline: true})
	}
	p.Fields = append(p.Fields, model.PanelField{
		Name:  fmt.Sprintf("Diff (%s)", lang),
		Value: "```\n" + shown + "\n```",
	})
	if truncated {
		p.Footer = fmt.Sprintf("Diff truncated, full length %d characters", runeLen(req.Diff))
	}
	return p
}
