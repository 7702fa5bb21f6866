package outbound

import (
	"context"

	"github.com/jonny/askuser-bot/internal/domain/model"
)

// ChatChannel is the narrow view of the chat platform the sessions need.
// Implementations post to a single, already resolved channel.
type ChatChannel interface {
	PostMessage(ctx context.Context, msg model.Message) (model.MessageRef, error)
	UpdateMessage(ctx context.Context, ref model.MessageRef, msg model.Message) error
	OpenForm(ctx context.Context, triggerID string, form model.Form) error
}
