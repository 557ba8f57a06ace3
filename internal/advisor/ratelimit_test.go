package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/finwise/advisor/internal/storage"
	"github.com/finwise/advisor/internal/storage/memory"
)

func seedAdvice(t *testing.T, store *memory.Store, userID string, createdAt time.Time) {
	t.Helper()
	_, err := store.InsertAdvice(context.Background(), &storage.AdviceRecord{
		UserID:       userID,
		SnapshotHash: "hash",
		Provider:     ProviderName,
		Advice:       json.RawMessage(`{"summary":"s"}`),
		CreatedAt:    createdAt,
	})
	if err != nil {
		t.Fatalf("InsertAdvice() error = %v", err)
	}
}

func TestLimiter_Allow(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name          string
		recent        int
		stale         int
		wantErr       error
		wantRemaining int
	}{
		{name: "no history", recent: 0, wantRemaining: 4},
		{name: "under limit", recent: 4, wantRemaining: 0},
		{name: "at limit", recent: 5, wantErr: ErrQuotaExceeded},
		{name: "over limit", recent: 7, wantErr: ErrQuotaExceeded},
		{name: "old requests outside window ignored", recent: 2, stale: 10, wantRemaining: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			for i := 0; i < tt.recent; i++ {
				seedAdvice(t, store, "user-1", now.Add(-time.Hour))
			}
			for i := 0; i < tt.stale; i++ {
				seedAdvice(t, store, "user-1", now.Add(-25*time.Hour))
			}
			// Another user's history must not count.
			seedAdvice(t, store, "user-2", now.Add(-time.Minute))

			limiter := NewLimiter(store, 5, 24*time.Hour)
			remaining, err := limiter.Allow(context.Background(), "user-1", now)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Allow() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Allow() error = %v", err)
			}
			if remaining != tt.wantRemaining {
				t.Errorf("remaining = %d, want %d", remaining, tt.wantRemaining)
			}
		})
	}
}
