package sqlite_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonny/askuser-bot/internal/adapter/outbound/persistence/sqlite"
	"github.com/jonny/askuser-bot/internal/domain/model"
	"github.com/jonny/askuser-bot/internal/domain/port/outbound"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.NewStore(sqlite.Config{
		Path:              ":memory:",
		MaxOpenConns:      1,
		PragmaJournalMode: "WAL",
		PragmaBusyTimeout: 5000,
	})
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func makeRecord(kind model.Kind, outcome model.Outcome, startOffset time.Duration) model.InteractionRecord {
	rec := model.NewInteractionRecord(kind, model.NewToken(), "Deploy to prod?", base.Add(startOffset))
	return rec.Finish(outcome, "U42", base.Add(startOffset+30*time.Second)).WithMetadata("decision", "approved")
}

func TestHistoryRepo_RecordAndList(t *testing.T) {
	store := newTestStore(t)
	repo := sqlite.NewHistoryRepo(store)
	ctx := context.Background()

	rec := makeRecord(model.KindApproval, model.OutcomeResponded, 0)
	if err := repo.Record(ctx, rec); err != nil {
		t.Fatalf("Record: %v", err)
	}

	page, err := repo.List(ctx, outbound.HistoryFilter{}, outbound.PageRequest{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.TotalCount != 1 || len(page.Items) != 1 {
		t.Fatalf("expected 1 record, got total %d items %d", page.TotalCount, len(page.Items))
	}

	got := page.Items[0]
	if got.ID != rec.ID || got.Token != rec.Token {
		t.Errorf("identity mismatch: got %s/%s", got.ID, got.Token)
	}
	if got.Kind != model.KindApproval || got.Outcome != model.OutcomeResponded {
		t.Errorf("kind/outcome: got %s/%s", got.Kind, got.Outcome)
	}
	if got.Actor != "U42" {
		t.Errorf("Actor: got %q", got.Actor)
	}
	if got.Metadata["decision"] != "approved" {
		t.Errorf("Metadata: got %v", got.Metadata)
	}
	if got.Duration() != 30*time.Second {
		t.Errorf("Duration: got %s", got.Duration())
	}
	if page.Size != 20 {
		t.Errorf("default page size: got %d", page.Size)
	}
}

func TestHistoryRepo_DuplicateID(t *testing.T) {
	store := newTestStore(t)
	repo := sqlite.NewHistoryRepo(store)
	ctx := context.Background()

	rec := makeRecord(model.KindPoll, model.OutcomeTimedOut, 0)
	if err := repo.Record(ctx, rec); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := repo.Record(ctx, rec); err == nil {
		t.Error("expected duplicate id to fail")
	}
}

func TestHistoryRepo_ListFilters(t *testing.T) {
	store := newTestStore(t)
	repo := sqlite.NewHistoryRepo(store)
	ctx := context.Background()

	records := []model.InteractionRecord{
		makeRecord(model.KindApproval, model.OutcomeResponded, 0),
		makeRecord(model.KindApproval, model.OutcomeTimedOut, time.Hour),
		makeRecord(model.KindQuestion, model.OutcomeResponded, 2*time.Hour),
		makeRecord(model.KindTextInput, model.OutcomeCancelled, 3*time.Hour),
	}
	for _, r := range records {
		if err := repo.Record(ctx, r); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	since := base.Add(90 * time.Minute)
	until := base.Add(150 * time.Minute)

	tests := []struct {
		name   string
		filter outbound.HistoryFilter
		want   int64
	}{
		{"all", outbound.HistoryFilter{}, 4},
		{"by kind", outbound.HistoryFilter{Kind: model.KindApproval}, 2},
		{"by outcome", outbound.HistoryFilter{Outcome: model.OutcomeResponded}, 2},
		{"kind and outcome", outbound.HistoryFilter{Kind: model.KindApproval, Outcome: model.OutcomeTimedOut}, 1},
		{"since", outbound.HistoryFilter{Since: &since}, 2},
		{"window", outbound.HistoryFilter{Since: &since, Until: &until}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := repo.List(ctx, tt.filter, outbound.PageRequest{})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if page.TotalCount != tt.want {
				t.Errorf("TotalCount: got %d want %d", page.TotalCount, tt.want)
			}
		})
	}
}

func TestHistoryRepo_ListPaginationAndOrder(t *testing.T) {
	store := newTestStore(t)
	repo := sqlite.NewHistoryRepo(store)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := repo.Record(ctx, makeRecord(model.KindNotify, model.OutcomeResponded, time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	page, err := repo.List(ctx, outbound.HistoryFilter{}, outbound.PageRequest{Page: 1, Size: 2, OrderBy: "started_at", Desc: true})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.TotalCount != 5 || len(page.Items) != 2 {
		t.Fatalf("expected 2 of 5, got %d of %d", len(page.Items), page.TotalCount)
	}
	if !page.Items[0].StartedAt.After(page.Items[1].StartedAt) {
		t.Error("expected descending order")
	}
	if !page.Items[0].StartedAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("unexpected first item start %s", page.Items[0].StartedAt)
	}
}

func TestHistoryRepo_InvalidOrderColumn(t *testing.T) {
	repo := sqlite.NewHistoryRepo(newTestStore(t))
	_, err := repo.List(context.Background(), outbound.HistoryFilter{}, outbound.PageRequest{OrderBy: "summary; DROP TABLE interactions"})
	if err == nil {
		t.Error("expected error for invalid order column")
	}
}

func TestNewStore_InvalidJournalMode(t *testing.T) {
	_, err := sqlite.NewStore(sqlite.Config{Path: ":memory:", PragmaJournalMode: "bogus"})
	if err == nil {
		t.Error("expected error for invalid journal mode")
	}
}

func TestStore_HealthCheck(t *testing.T) {
	store := newTestStore(t)
	if err := store.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck: %v", err)
	}
}

func TestNewStore_EmptyPath(t *testing.T) {
	if _, err := sqlite.NewStore(sqlite.Config{}); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestNewStore_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state", "history.db")
	store, err := sqlite.NewStore(sqlite.Config{Path: path, PragmaBusyTimeout: 1000})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	if store.Path() != path {
		t.Errorf("Path() = %q, want %q", store.Path(), path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file not created: %v", err)
	}

	repo := sqlite.NewHistoryRepo(store)
	if err := repo.Record(context.Background(), makeRecord(model.KindNotify, model.OutcomeResponded, 0)); err != nil {
		t.Fatalf("Record: %v", err)
	}
}
