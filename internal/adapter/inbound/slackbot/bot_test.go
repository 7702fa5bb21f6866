package slackbot

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/jonny/askuser-bot/internal/domain/model"
	"github.com/jonny/askuser-bot/internal/domain/port/outbound"
)

type fakeAPI struct {
	authErr error
	channel *slackapi.Channel
	infoErr error
}

func (f *fakeAPI) AuthTestContext(context.Context) (*slackapi.AuthTestResponse, error) {
	if f.authErr != nil {
		return nil, f.authErr
	}
	return &slackapi.AuthTestResponse{Team: "acme", User: "askuser"}, nil
}

func (f *fakeAPI) GetConversationInfoContext(_ context.Context, _ *slackapi.GetConversationInfoInput) (*slackapi.Channel, error) {
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	return f.channel, nil
}

type fakeGate struct {
	mu           sync.Mutex
	state        string
	ready        outbound.ChatChannel
	failed       error
	disconnected int
}

func (g *fakeGate) BeginConnect() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == "connecting" || g.state == "ready" {
		return errors.New("busy")
	}
	g.state = "connecting"
	return nil
}

func (g *fakeGate) MarkReady(ch outbound.ChatChannel) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = "ready"
	g.ready = ch
	return nil
}

func (g *fakeGate) MarkFailed(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = "failed"
	g.failed = err
}

func (g *fakeGate) Disconnect() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = "disconnected"
	g.disconnected++
}

type nopChannel struct{}

func (nopChannel) PostMessage(context.Context, model.Message) (model.MessageRef, error) {
	return model.MessageRef{}, nil
}
func (nopChannel) UpdateMessage(context.Context, model.MessageRef, model.Message) error { return nil }
func (nopChannel) OpenForm(context.Context, string, model.Form) error              { return nil }

type recordingInteractions struct {
	mu     sync.Mutex
	events []model.Event
	reject bool
}

func (r *recordingInteractions) Deliver(ev model.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return !r.reject
}

func (r *recordingInteractions) PendingSessions() int  { return 2 }
func (r *recordingInteractions) PendingReminders() int { return 1 }

func textChannel() *slackapi.Channel {
	ch := &slackapi.Channel{IsChannel: true, IsMember: true}
	ch.Name = "approvals"
	return ch
}

func newTestBot(api API, gate Gate, interactions *recordingInteractions, timeout time.Duration) (*Bot, *[]interface{}) {
	var acked []interface{}
	b := &Bot{
		api:          api,
		channel:      nopChannel{},
		gate:         gate,
		interactions: interactions,
		cfg:          Config{ChannelID: "C123", ConnectTimeout: timeout},
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		connected:    make(chan struct{}, 1),
		authFailed:   make(chan error, 1),
	}
	b.ack = func(_ socketmode.Request, payload ...interface{}) {
		acked = append(acked, payload...)
		if len(payload) == 0 {
			acked = append(acked, nil)
		}
	}
	return b, &acked
}

func TestConnect_Ready(t *testing.T) {
	gate := &fakeGate{}
	b, _ := newTestBot(&fakeAPI{channel: textChannel()}, gate, &recordingInteractions{}, time.Second)
	b.handleEvent(socketmode.Event{Type: socketmode.EventTypeConnected})

	if err := b.Connect(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gate.state != "ready" || gate.ready == nil {
		t.Errorf("expected ready gate, got %q", gate.state)
	}
}

func TestConnect_Timeout(t *testing.T) {
	gate := &fakeGate{}
	b, _ := newTestBot(&fakeAPI{channel: textChannel()}, gate, &recordingInteractions{}, 20*time.Millisecond)

	err := b.Connect(context.Background())
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if gate.state != "failed" {
		t.Errorf("expected failed gate, got %q", gate.state)
	}
}

func TestConnect_InvalidAuth(t *testing.T) {
	gate := &fakeGate{}
	b, _ := newTestBot(&fakeAPI{channel: textChannel()}, gate, &recordingInteractions{}, time.Second)
	b.handleEvent(socketmode.Event{Type: socketmode.EventTypeInvalidAuth})

	if err := b.Connect(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if gate.state != "failed" {
		t.Errorf("expected failed gate, got %q", gate.state)
	}
}

func TestConnect_AuthError(t *testing.T) {
	gate := &fakeGate{}
	b, _ := newTestBot(&fakeAPI{authErr: errors.New("invalid_auth")}, gate, &recordingInteractions{}, time.Second)

	err := b.Connect(context.Background())
	if err == nil || !strings.Contains(err.Error(), "invalid_auth") {
		t.Fatalf("expected auth error, got %v", err)
	}
	if gate.state != "failed" {
		t.Errorf("expected failed gate, got %q", gate.state)
	}
}

func TestConnect_ChannelMissing(t *testing.T) {
	gate := &fakeGate{}
	b, _ := newTestBot(&fakeAPI{infoErr: errors.New("channel_not_found")}, gate, &recordingInteractions{}, time.Second)
	b.handleEvent(socketmode.Event{Type: socketmode.EventTypeConnected})

	err := b.Connect(context.Background())
	if err == nil || !strings.Contains(err.Error(), "C123") {
		t.Fatalf("expected channel error naming the channel, got %v", err)
	}
	if gate.state != "failed" {
		t.Errorf("auth succeeded but the gate must still fail, got %q", gate.state)
	}
}

func TestConnect_AlreadyConnecting(t *testing.T) {
	gate := &fakeGate{state: "connecting"}
	b, _ := newTestBot(&fakeAPI{channel: textChannel()}, gate, &recordingInteractions{}, time.Second)
	if err := b.Connect(context.Background()); err == nil {
		t.Fatal("expected error while a connection is in progress")
	}
}

func TestCheckChannel(t *testing.T) {
	archived := textChannel()
	archived.IsArchived = true

	notMember := textChannel()
	notMember.IsMember = false

	dm := &slackapi.Channel{}
	dm.IsIM = true

	tests := []struct {
		name    string
		ch      *slackapi.Channel
		wantErr bool
	}{
		{"public member", textChannel(), false},
		{"direct message", dm, false},
		{"archived", archived, true},
		{"not a member", notMember, true},
		{"unknown type", &slackapi.Channel{}, true},
		{"nil", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkChannel(tt.ch)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkChannel() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHandleEvent_InteractiveDelivers(t *testing.T) {
	rec := &recordingInteractions{}
	b, acked := newTestBot(&fakeAPI{}, &fakeGate{}, rec, time.Second)

	cb := slackapi.InteractionCallback{Type: slackapi.InteractionTypeBlockActions, TriggerID: "trig"}
	cb.User.ID = "U1"
	cb.ActionCallback.BlockActions = []*slackapi.BlockAction{{ActionID: "approve:tok", Value: "approve:tok"}}

	b.handleEvent(socketmode.Event{Type: socketmode.EventTypeInteractive, Data: cb, Request: &socketmode.Request{EnvelopeID: "env-1"}})

	if len(*acked) != 1 {
		t.Errorf("expected one ack, got %d", len(*acked))
	}
	if len(rec.events) != 1 || rec.events[0].Key != "approve:tok" {
		t.Fatalf("unexpected events: %+v", rec.events)
	}
	if rec.events[0].TriggerID != "trig" || rec.events[0].UserID != "U1" {
		t.Errorf("expected trigger and user to be carried, got %+v", rec.events[0])
	}
}

func TestHandleEvent_UnconsumedInteractionsAreAttributed(t *testing.T) {
	rec := &recordingInteractions{reject: true}
	b, _ := newTestBot(&fakeAPI{}, &fakeGate{}, rec, time.Second)
	var logs bytes.Buffer
	b.logger = slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	cb := slackapi.InteractionCallback{Type: slackapi.InteractionTypeBlockActions}
	cb.User.ID = "U1"
	cb.ActionCallback.BlockActions = []*slackapi.BlockAction{
		{ActionID: "poll:tok-1", Type: "multi_static_select"},
		{ActionID: "someone_elses_button", Value: "x"},
	}

	b.handleEvent(socketmode.Event{Type: socketmode.EventTypeInteractive, Data: cb, Request: &socketmode.Request{EnvelopeID: "env-2"}})

	out := logs.String()
	if !strings.Contains(out, "interaction not consumed") || !strings.Contains(out, "purpose=poll") || !strings.Contains(out, "token=tok-1") {
		t.Errorf("expected the stale control to be attributed, got %q", out)
	}
	if !strings.Contains(out, "foreign control") || !strings.Contains(out, "key=someone_elses_button") {
		t.Errorf("expected the foreign control to be reported, got %q", out)
	}
}

func TestHandleEvent_SlashStatus(t *testing.T) {
	b, acked := newTestBot(&fakeAPI{}, &fakeGate{}, &recordingInteractions{}, time.Second)

	b.handleEvent(socketmode.Event{
		Type:    socketmode.EventTypeSlashCommand,
		Data:    slackapi.SlashCommand{Command: "/askuser", Text: "status"},
		Request: &socketmode.Request{EnvelopeID: "env-2"},
	})

	if len(*acked) != 1 {
		t.Fatalf("expected one ack, got %d", len(*acked))
	}
	payload, ok := (*acked)[0].(map[string]string)
	if !ok {
		t.Fatalf("expected text payload, got %T", (*acked)[0])
	}
	if !strings.Contains(payload["text"], "2 session(s) waiting") {
		t.Errorf("unexpected status text: %s", payload["text"])
	}
}

func TestHandleEvent_NilRequestIsNotAcked(t *testing.T) {
	b, acked := newTestBot(&fakeAPI{}, &fakeGate{}, &recordingInteractions{}, time.Second)
	b.handleEvent(socketmode.Event{Type: socketmode.EventTypeHello})
	if len(*acked) != 0 {
		t.Errorf("expected no ack, got %d", len(*acked))
	}
}

func TestDisconnect(t *testing.T) {
	gate := &fakeGate{state: "ready"}
	b, _ := newTestBot(&fakeAPI{}, gate, &recordingInteractions{}, time.Second)
	b.Disconnect()
	if gate.disconnected != 1 {
		t.Errorf("expected gate to be disconnected once, got %d", gate.disconnected)
	}
}

type postRecorder struct {
	nopChannel
	posts []model.Message
}

func (p *postRecorder) PostMessage(_ context.Context, msg model.Message) (model.MessageRef, error) {
	p.posts = append(p.posts, msg)
	return model.MessageRef{}, nil
}

func TestHandleEvent_MentionInTargetChannel(t *testing.T) {
	b, acked := newTestBot(&fakeAPI{}, &fakeGate{}, &recordingInteractions{}, time.Second)
	rec := &postRecorder{}
	b.channel = rec

	mention := func(channel string) socketmode.Event {
		return socketmode.Event{
			Type: socketmode.EventTypeEventsAPI,
			Data: slackevents.EventsAPIEvent{
				InnerEvent: slackevents.EventsAPIInnerEvent{
					Data: &slackevents.AppMentionEvent{Channel: channel, User: "U1", TimeStamp: "1700.01"},
				},
			},
			Request: &socketmode.Request{EnvelopeID: "env-3"},
		}
	}

	b.handleEvent(mention("C999"))
	b.handleEvent(mention("C123"))

	if len(*acked) != 2 {
		t.Errorf("expected both events acked, got %d", len(*acked))
	}
	if len(rec.posts) != 1 {
		t.Fatalf("expected one reply, got %d", len(rec.posts))
	}
	if rec.posts[0].ThreadID != "1700.01" || !strings.Contains(rec.posts[0].Text, "1 reminder(s) pending") {
		t.Errorf("unexpected reply %+v", rec.posts[0])
	}
}
