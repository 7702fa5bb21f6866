package slack

import (
	"context"
	"fmt"

	slackapi "github.com/slack-go/slack"

	"github.com/jonny/askuser-bot/internal/adapter/inbound/slackbot/template"
	"github.com/jonny/askuser-bot/internal/domain/model"
	"github.com/jonny/askuser-bot/internal/domain/port/outbound"
)

// API is the part of the Slack Web API the channel uses. *slack.Client
// satisfies it.
type API interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
	UpdateMessageContext(ctx context.Context, channelID, timestamp string, options ...slackapi.MsgOption) (string, string, string, error)
	OpenViewContext(ctx context.Context, triggerID string, view slackapi.ModalViewRequest) (*slackapi.ViewResponse, error)
}

// Channel implements outbound.ChatChannel for one Slack conversation.
type Channel struct {
	api       API
	channelID string
}

var _ outbound.ChatChannel = (*Channel)(nil)

// NewChannel creates a Channel posting to channelID.
func NewChannel(api API, channelID string) *Channel {
	return &Channel{api: api, channelID: channelID}
}

// PostMessage posts msg and returns the reference needed to edit it.
func (c *Channel) PostMessage(ctx context.Context, msg model.Message) (model.MessageRef, error) {
	opts := messageOptions(msg)
	if msg.ThreadID != "" {
		opts = append(opts, slackapi.MsgOptionTS(msg.ThreadID))
	}

	channel, ts, err := c.api.PostMessageContext(ctx, c.channelID, opts...)
	if err != nil {
		return model.MessageRef{}, fmt.Errorf("slack PostMessage: %w", err)
	}
	return model.MessageRef{ChannelID: channel, Timestamp: ts}, nil
}

// UpdateMessage replaces the content of a posted message.
func (c *Channel) UpdateMessage(ctx context.Context, ref model.MessageRef, msg model.Message) error {
	channel := ref.ChannelID
	if channel == "" {
		channel = c.channelID
	}

	_, _, _, err := c.api.UpdateMessageContext(ctx, channel, ref.Timestamp, messageOptions(msg)...)
	if err != nil {
		return fmt.Errorf("slack UpdateMessage: %w", err)
	}
	return nil
}

// OpenForm opens form as a modal. triggerID must come from an interaction
// no more than a few seconds old.
func (c *Channel) OpenForm(ctx context.Context, triggerID string, form model.Form) error {
	if _, err := c.api.OpenViewContext(ctx, triggerID, template.BuildFormView(form)); err != nil {
		return fmt.Errorf("slack OpenForm: %w", err)
	}
	return nil
}

// messageOptions renders msg. The text always travels as the notification
// fallback.
func messageOptions(msg model.Message) []slackapi.MsgOption {
	opts := []slackapi.MsgOption{slackapi.MsgOptionText(msg.Text, false)}
	if blocks := template.BuildMessageBlocks(msg); len(blocks) > 0 {
		opts = append(opts, slackapi.MsgOptionBlocks(blocks...))
	}
	if att, ok := template.BuildPanelAttachment(msg); ok {
		opts = append(opts, slackapi.MsgOptionAttachments(att))
	}
	return opts
}
