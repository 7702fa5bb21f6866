package outbound

import (
	"context"
	"time"

	"github.com/jonny/askuser-bot/internal/domain/model"
)

type PageRequest struct {
	Page    int
	Size    int
	OrderBy string
	Desc    bool
}

type PageResult[T any] struct {
	Items      []T
	TotalCount int64
	Page       int
	Size       int
}

type HistoryFilter struct {
	Kind    model.Kind
	Outcome model.Outcome
	Since   *time.Time
	Until   *time.Time
}

// HistoryRepository stores finished interactions. It never holds in-flight state.
type HistoryRepository interface {
	Record(ctx context.Context, rec model.InteractionRecord) error
	List(ctx context.Context, filter HistoryFilter, page PageRequest) (PageResult[model.InteractionRecord], error)
}
