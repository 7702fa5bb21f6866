package history

import (
	"context"
	"log/slog"

	"github.com/jonny/askuser-bot/internal/domain/model"
	"github.com/jonny/askuser-bot/internal/domain/port/outbound"
)

// NoopHistory logs finished interactions instead of storing them.
// Used when the database is disabled.
type NoopHistory struct {
	logger *slog.Logger
}

var _ outbound.HistoryRepository = (*NoopHistory)(nil)

// NewNoopHistory creates a new NoopHistory.
func NewNoopHistory(logger *slog.Logger) *NoopHistory {
	return &NoopHistory{logger: logger}
}

func (n *NoopHistory) Record(_ context.Context, rec model.InteractionRecord) error {
	n.logger.Info("interaction finished",
		"kind", rec.Kind,
		"token", rec.Token,
		"outcome", rec.Outcome,
		"actor", rec.Actor,
		"duration", rec.Duration(),
	)
	return nil
}

// List always returns an empty page.
func (n *NoopHistory) List(_ context.Context, _ outbound.HistoryFilter, page outbound.PageRequest) (outbound.PageResult[model.InteractionRecord], error) {
	return outbound.PageResult[model.InteractionRecord]{Page: page.Page, Size: page.Size}, nil
}
