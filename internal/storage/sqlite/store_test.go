package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/finwise/advisor/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "advisor.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func insertAdviceAt(t *testing.T, store *Store, userID string, createdAt time.Time) string {
	t.Helper()
	id, err := store.InsertAdvice(context.Background(), &storage.AdviceRecord{
		UserID:       userID,
		SnapshotHash: "hash",
		Provider:     "groq",
		Advice:       json.RawMessage(`{"summary":"s"}`),
		CreatedAt:    createdAt,
	})
	if err != nil {
		t.Fatalf("InsertAdvice() error = %v", err)
	}
	return id
}

func TestInsertAndListAdvice(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := &storage.AdviceRecord{
		UserID:         "user-1",
		SnapshotHash:   "abc123",
		Provider:       "groq",
		PromptVersion:  1,
		Advice:         json.RawMessage(`{"summary":"Spend less.","positive_points":[],"areas_for_improvement":[]}`),
		TokensIn:       120,
		TokensOut:      340,
		CostEstimate:   0.000046,
		UsageEstimated: true,
	}

	id, err := store.InsertAdvice(ctx, rec)
	if err != nil {
		t.Fatalf("InsertAdvice() error = %v", err)
	}
	if id == "" {
		t.Fatal("InsertAdvice() returned empty id")
	}

	records, err := store.ListAdvice(ctx, "user-1", 10)
	if err != nil {
		t.Fatalf("ListAdvice() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	got := records[0]
	if got.ID != id || got.SnapshotHash != "abc123" || got.Provider != "groq" {
		t.Errorf("record = %+v", got)
	}
	if got.TokensIn != 120 || got.TokensOut != 340 {
		t.Errorf("tokens = (%d, %d)", got.TokensIn, got.TokensOut)
	}
	if !got.UsageEstimated {
		t.Error("UsageEstimated not round-tripped")
	}

	var advice storage.Advice
	if err := json.Unmarshal(got.Advice, &advice); err != nil {
		t.Fatalf("advice column not JSON: %v", err)
	}
	if advice.Summary != "Spend less." {
		t.Errorf("Summary = %q", advice.Summary)
	}
}

func TestListAdvice_OrderAndLimit(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		insertAdviceAt(t, store, "user-1", now.Add(time.Duration(i)*time.Minute))
	}
	insertAdviceAt(t, store, "user-2", now)

	records, err := store.ListAdvice(context.Background(), "user-1", 3)
	if err != nil {
		t.Fatalf("ListAdvice() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	for i := 1; i < len(records); i++ {
		if records[i].CreatedAt.After(records[i-1].CreatedAt) {
			t.Error("records not ordered newest first")
		}
	}
}

func TestCountAdviceSince(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()

	insertAdviceAt(t, store, "user-1", now.Add(-time.Hour))
	insertAdviceAt(t, store, "user-1", now.Add(-2*time.Hour))
	insertAdviceAt(t, store, "user-1", now.Add(-30*time.Hour)) // outside window
	insertAdviceAt(t, store, "user-2", now)

	count, err := store.CountAdviceSince(context.Background(), "user-1", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("CountAdviceSince() error = %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestInsertAndListTransactions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dates := []time.Time{
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	}
	for i, d := range dates {
		err := store.InsertTransaction(ctx, &storage.Transaction{
			UserID:      "user-1",
			Date:        d,
			Description: "Item",
			Amount:      float64(i),
		})
		if err != nil {
			t.Fatalf("InsertTransaction() error = %v", err)
		}
	}

	txs, err := store.ListTransactions(ctx, "user-1", 2)
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txs))
	}
	if !txs[0].Date.After(txs[1].Date) {
		t.Error("transactions not ordered newest first")
	}
	if txs[0].ID == "" {
		t.Error("transaction id not generated")
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "advisor.db")

	store, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	insertAdviceAt(t, store, "user-1", time.Now().UTC())
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("New() after reopen error = %v", err)
	}
	defer reopened.Close()

	records, err := reopened.ListAdvice(context.Background(), "user-1", 10)
	if err != nil {
		t.Fatalf("ListAdvice() error = %v", err)
	}
	if len(records) != 1 {
		t.Errorf("got %d records after reopen, want 1", len(records))
	}
}
