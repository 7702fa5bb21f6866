package slackbot

import (
	"context"
	"fmt"
	"strings"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/jonny/askuser-bot/internal/adapter/inbound/slackbot/template"
	"github.com/jonny/askuser-bot/internal/domain/model"
)

// handleInteraction acknowledges an interactive payload and hands the
// translated events to the waiting sessions. An empty acknowledgement of a
// view submission closes the modal.
func (b *Bot) handleInteraction(evt socketmode.Event) {
	b.acknowledge(evt)

	callback, ok := evt.Data.(slackapi.InteractionCallback)
	if !ok {
		return
	}

	for _, ev := range TranslateInteraction(callback) {
		if b.interactions.Deliver(ev) {
			continue
		}
		purpose, token, ok := model.SplitControlID(ev.Key)
		if !ok {
			b.logger.Debug("ignoring interaction on a foreign control", "kind", ev.Kind, "key", ev.Key)
			continue
		}
		// Menu changes and late clicks land here; only a waiting stage consumes events.
		b.logger.Debug("interaction not consumed",
			"kind", ev.Kind, "purpose", purpose, "token", token, "user", ev.UserID)
	}
}

// TranslateInteraction maps a Slack interaction payload to domain events.
// Payload types that no session waits on yield nothing.
func TranslateInteraction(cb slackapi.InteractionCallback) []model.Event {
	switch cb.Type {
	case slackapi.InteractionTypeBlockActions:
		events := make([]model.Event, 0, len(cb.ActionCallback.BlockActions))
		for _, a := range cb.ActionCallback.BlockActions {
			values, ok := blockState(cb, a)
			if !ok {
				values = actionValues(a)
			}
			events = append(events, model.Event{
				Kind:      model.EventAction,
				Key:       a.ActionID,
				Values:    values,
				TriggerID: cb.TriggerID,
				UserID:    cb.User.ID,
			})
		}
		return events
	case slackapi.InteractionTypeViewSubmission:
		return []model.Event{{
			Kind:   model.EventSubmission,
			Key:    cb.View.CallbackID,
			Text:   formValue(cb.View),
			UserID: cb.User.ID,
		}}
	case slackapi.InteractionTypeViewClosed:
		return []model.Event{{
			Kind:   model.EventFormClosed,
			Key:    cb.View.CallbackID,
			UserID: cb.User.ID,
		}}
	}
	return nil
}

func actionValues(a *slackapi.BlockAction) []string {
	switch {
	case len(a.SelectedOptions) > 0:
		values := make([]string, 0, len(a.SelectedOptions))
		for _, o := range a.SelectedOptions {
			values = append(values, o.Value)
		}
		return values
	case a.SelectedOption.Value != "":
		return []string{a.SelectedOption.Value}
	case a.Value != "":
		return []string{a.Value}
	}
	return nil
}

// blockState returns what the menus sharing a clicked button's block held at
// the time of the click. ok is false for clicks in blocks without menus.
func blockState(cb slackapi.InteractionCallback, a *slackapi.BlockAction) ([]string, bool) {
	if cb.BlockActionState == nil || a.Type != "button" {
		return nil, false
	}
	values := []string{}
	found := false
	for id, st := range cb.BlockActionState.Values[a.BlockID] {
		if id == a.ActionID {
			continue
		}
		found = true
		values = append(values, actionValues(&st)...)
	}
	return values, found
}

// formValue reads the single text field of a form submission.
func formValue(view slackapi.View) string {
	if view.State == nil {
		return ""
	}
	for _, v := range view.State.Values[template.FormBlockID] {
		return v.Value
	}
	return ""
}

const replyTimeout = 10 * time.Second

// handleEventsAPI answers mentions of the bot in the target channel with the
// status text. Other Events API payloads are only acknowledged.
func (b *Bot) handleEventsAPI(evt socketmode.Event) {
	b.acknowledge(evt)

	payload, ok := evt.Data.(slackevents.EventsAPIEvent)
	if !ok {
		return
	}
	mention, ok := payload.InnerEvent.Data.(*slackevents.AppMentionEvent)
	if !ok || mention.Channel != b.cfg.ChannelID {
		return
	}

	thread := mention.ThreadTimeStamp
	if thread == "" {
		thread = mention.TimeStamp
	}

	ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
	defer cancel()
	_, err := b.channel.PostMessage(ctx, model.Message{Text: b.statusText(), ThreadID: thread})
	if err != nil {
		b.logger.Warn("failed to answer mention", "user", mention.User, "error", err)
	}
}

func (b *Bot) statusText() string {
	return fmt.Sprintf(":robot_face: *askuser* is connected. %d session(s) waiting, %d reminder(s) pending.",
		b.interactions.PendingSessions(), b.interactions.PendingReminders())
}

// handleSlashCommand processes /askuser slash commands.
func (b *Bot) handleSlashCommand(evt socketmode.Event) {
	cmd, ok := evt.Data.(slackapi.SlashCommand)
	if !ok {
		b.acknowledge(evt)
		return
	}

	var responseText string
	switch strings.TrimSpace(strings.ToLower(cmd.Text)) {
	case "status", "":
		responseText = b.statusText()
	case "help":
		responseText = buildHelpText()
	default:
		sanitized := cmd.Text
		if len(sanitized) > 100 {
			sanitized = sanitized[:100]
		}
		sanitized = strings.ReplaceAll(sanitized, "`", "'")
		responseText = fmt.Sprintf(":question: Unknown command `%s`. Try `/askuser help`.", sanitized)
	}

	b.acknowledge(evt, map[string]string{
		"text": responseText,
	})
}

// buildHelpText returns the help message for the /askuser slash command.
func buildHelpText() string {
	return strings.Join([]string{
		":robot_face: *askuser commands*",
		"",
		"• `/askuser status` shows waiting sessions and pending reminders",
		"• `/askuser help` shows this message",
		"",
		"Answer requests with the buttons and menus on each message.",
	}, "\n")
}
