package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonny/askuser-bot/internal/domain/model"
	"github.com/jonny/askuser-bot/internal/domain/port/outbound"
)

// HistoryRepo implements outbound.HistoryRepository using SQLite.
type HistoryRepo struct {
	db *sql.DB
}

var _ outbound.HistoryRepository = (*HistoryRepo)(nil)

// NewHistoryRepo creates a new HistoryRepo backed by the given store.
func NewHistoryRepo(store *Store) *HistoryRepo {
	return &HistoryRepo{db: store.DB}
}

// Record inserts one finished interaction.
func (r *HistoryRepo) Record(ctx context.Context, rec model.InteractionRecord) error {
	meta, err := marshalStringMap(rec.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	const q = `INSERT INTO interactions
		(id, kind, token, outcome, actor, summary, metadata, started_at, finished_at)
		VALUES (?,?,?,?,?,?,?,?,?)`

	_, err = r.db.ExecContext(ctx, q,
		rec.ID, string(rec.Kind), rec.Token, string(rec.Outcome),
		rec.Actor, rec.Summary, meta,
		rec.StartedAt.UTC(), rec.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting interaction: %w", err)
	}
	return nil
}

// allowedHistoryOrderColumns defines valid columns for ORDER BY to prevent SQL injection.
var allowedHistoryOrderColumns = map[string]bool{
	"started_at": true, "finished_at": true, "kind": true, "outcome": true,
}

// List returns a paginated, filtered list of interactions.
func (r *HistoryRepo) List(ctx context.Context, filter outbound.HistoryFilter, page outbound.PageRequest) (outbound.PageResult[model.InteractionRecord], error) {
	where, args := buildHistoryWhere(filter)

	countQ := "SELECT COUNT(*) FROM interactions" + where
	var total int64
	if err := r.db.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return outbound.PageResult[model.InteractionRecord]{}, fmt.Errorf("counting interactions: %w", err)
	}

	orderCol := "started_at"
	if page.OrderBy != "" {
		if !allowedHistoryOrderColumns[page.OrderBy] {
			return outbound.PageResult[model.InteractionRecord]{}, fmt.Errorf("invalid order column: %q", page.OrderBy)
		}
		orderCol = page.OrderBy
	}
	dir := "ASC"
	if page.Desc {
		dir = "DESC"
	}
	size := page.Size
	if size <= 0 {
		size = 20
	}
	offset := page.Page * size

	dataQ := fmt.Sprintf(`SELECT id, kind, token, outcome, actor, summary, metadata, started_at, finished_at
		FROM interactions%s ORDER BY %s %s LIMIT ? OFFSET ?`, where, orderCol, dir)

	rows, err := r.db.QueryContext(ctx, dataQ, append(args, size, offset)...)
	if err != nil {
		return outbound.PageResult[model.InteractionRecord]{}, fmt.Errorf("listing interactions: %w", err)
	}
	defer rows.Close()

	var items []model.InteractionRecord
	for rows.Next() {
		rec, err := scanInteraction(rows)
		if err != nil {
			return outbound.PageResult[model.InteractionRecord]{}, fmt.Errorf("scanning interaction: %w", err)
		}
		items = append(items, rec)
	}
	if err := rows.Err(); err != nil {
		return outbound.PageResult[model.InteractionRecord]{}, fmt.Errorf("iterating interactions: %w", err)
	}

	return outbound.PageResult[model.InteractionRecord]{
		Items:      items,
		TotalCount: total,
		Page:       page.Page,
		Size:       size,
	}, nil
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInteraction(s rowScanner) (model.InteractionRecord, error) {
	var rec model.InteractionRecord
	var kind, outcome, metaJSON string

	err := s.Scan(
		&rec.ID, &kind, &rec.Token, &outcome,
		&rec.Actor, &rec.Summary, &metaJSON,
		&rec.StartedAt, &rec.FinishedAt,
	)
	if err != nil {
		return model.InteractionRecord{}, err
	}

	rec.Kind = model.Kind(kind)
	rec.Outcome = model.Outcome(outcome)
	if err := json.Unmarshal([]byte(metaJSON), &rec.Metadata); err != nil || rec.Metadata == nil {
		rec.Metadata = make(map[string]string)
	}
	return rec, nil
}

func buildHistoryWhere(f outbound.HistoryFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.Outcome != "" {
		clauses = append(clauses, "outcome = ?")
		args = append(args, string(f.Outcome))
	}
	if f.Since != nil {
		clauses = append(clauses, "started_at >= ?")
		args = append(args, f.Since.UTC())
	}
	if f.Until != nil {
		clauses = append(clauses, "started_at <= ?")
		args = append(args, f.Until.UTC())
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func marshalStringMap(m map[string]string) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
