package slackbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"

	"github.com/jonny/askuser-bot/internal/domain/port/inbound"
	"github.com/jonny/askuser-bot/internal/domain/port/outbound"
)

// DefaultConnectTimeout bounds Connect when Config leaves it unset.
const DefaultConnectTimeout = 30 * time.Second

// Config holds Slack bot configuration.
type Config struct {
	ChannelID      string
	ConnectTimeout time.Duration
}

// Gate is the connection state the bot drives.
type Gate interface {
	BeginConnect() error
	MarkReady(ch outbound.ChatChannel) error
	MarkFailed(err error)
	Disconnect()
}

// API is the part of the Slack Web API used while connecting.
type API interface {
	AuthTestContext(ctx context.Context) (*slackapi.AuthTestResponse, error)
	GetConversationInfoContext(ctx context.Context, input *slackapi.GetConversationInfoInput) (*slackapi.Channel, error)
}

// Bot handles incoming Slack events via Socket Mode and owns the connection
// lifecycle of the gate.
type Bot struct {
	api          API
	socketMode   *socketmode.Client
	ack          func(req socketmode.Request, payload ...interface{})
	channel      outbound.ChatChannel
	gate         Gate
	interactions inbound.Interactions
	cfg          Config
	logger       *slog.Logger

	connected  chan struct{}
	authFailed chan error
}

// NewBot creates a new Bot with Socket Mode enabled. client must carry the
// app level token.
func NewBot(client *slackapi.Client, cfg Config, channel outbound.ChatChannel, gate Gate,
	interactions inbound.Interactions, logger *slog.Logger) *Bot {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	sm := socketmode.New(client)
	return &Bot{
		api:          client,
		socketMode:   sm,
		ack:          sm.Ack,
		channel:      channel,
		gate:         gate,
		interactions: interactions,
		cfg:          cfg,
		logger:       logger,
		connected:    make(chan struct{}, 1),
		authFailed:   make(chan error, 1),
	}
}

// Run processes Slack events. It blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	go b.handleEvents(ctx)
	return b.socketMode.RunContext(ctx)
}

// Connect moves the gate to Ready once the socket is up, the token
// authenticates and the target channel checks out. Any failure, including
// ConnectTimeout elapsing, leaves the gate Failed.
func (b *Bot) Connect(ctx context.Context) error {
	if err := b.gate.BeginConnect(); err != nil {
		return fmt.Errorf("slack connect: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.cfg.ConnectTimeout)
	defer cancel()

	if err := b.connect(ctx); err != nil {
		b.gate.MarkFailed(err)
		return err
	}
	return nil
}

func (b *Bot) connect(ctx context.Context) error {
	auth, err := b.api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack auth: %w", err)
	}
	b.logger.Info("slack authenticated", "team", auth.Team, "user", auth.User)

	select {
	case <-b.connected:
	case err := <-b.authFailed:
		return fmt.Errorf("slack socket mode: %w", err)
	case <-ctx.Done():
		return fmt.Errorf("slack connection timed out after %s: %w", b.cfg.ConnectTimeout, ctx.Err())
	}

	info, err := b.api.GetConversationInfoContext(ctx, &slackapi.GetConversationInfoInput{ChannelID: b.cfg.ChannelID})
	if err != nil {
		return fmt.Errorf("channel %s not found: %w", b.cfg.ChannelID, err)
	}
	if err := checkChannel(info); err != nil {
		return fmt.Errorf("channel %s: %w", b.cfg.ChannelID, err)
	}

	if err := b.gate.MarkReady(b.channel); err != nil {
		return err
	}
	b.logger.Info("slack ready", "channel", b.cfg.ChannelID, "name", info.Name)
	return nil
}

// checkChannel rejects conversations the bot cannot post into.
func checkChannel(ch *slackapi.Channel) error {
	switch {
	case ch == nil:
		return errors.New("no channel info returned")
	case ch.IsArchived:
		return errors.New("channel is archived")
	case !ch.IsChannel && !ch.IsGroup && !ch.IsIM && !ch.IsMpIM:
		return errors.New("not a text channel")
	case (ch.IsChannel || ch.IsGroup) && !ch.IsMember:
		return errors.New("bot is not a member of the channel")
	}
	return nil
}

// Disconnect clears the gate, which also drops pending reminders.
func (b *Bot) Disconnect() {
	b.gate.Disconnect()
	b.logger.Info("slack disconnected")
}

// handleEvents dispatches incoming Socket Mode events to the appropriate handler.
func (b *Bot) handleEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-b.socketMode.Events:
			if !ok {
				return
			}
			b.handleEvent(evt)
		}
	}
}

func (b *Bot) handleEvent(evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeConnecting:
		b.logger.Debug("connecting to slack socket mode")
	case socketmode.EventTypeConnected:
		b.logger.Info("slack socket mode connected")
		select {
		case b.connected <- struct{}{}:
		default:
		}
	case socketmode.EventTypeConnectionError:
		b.logger.Warn("slack socket mode connection error", "data", evt.Data)
	case socketmode.EventTypeInvalidAuth:
		b.logger.Error("slack rejected the app token")
		select {
		case b.authFailed <- errors.New("invalid app token"):
		default:
		}
	case socketmode.EventTypeInteractive:
		b.handleInteraction(evt)
	case socketmode.EventTypeSlashCommand:
		b.handleSlashCommand(evt)
	case socketmode.EventTypeEventsAPI:
		b.handleEventsAPI(evt)
	default:
		b.acknowledge(evt)
	}
}

func (b *Bot) acknowledge(evt socketmode.Event, payload ...interface{}) {
	if evt.Request == nil {
		return
	}
	b.ack(*evt.Request, payload...)
}
