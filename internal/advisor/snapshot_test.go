package advisor

import (
	"strings"
	"testing"
	"time"

	"github.com/finwise/advisor/internal/storage"
)

func TestRenderSnapshot(t *testing.T) {
	txs := []storage.Transaction{
		{Date: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), Description: "Coffee", Amount: 4.5},
		{Date: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Description: "Groceries", Amount: 82.13},
	}

	got := RenderSnapshot(txs)
	want := "2026-03-02: Coffee ($4.50)\n2026-03-01: Groceries ($82.13)"
	if got != want {
		t.Errorf("RenderSnapshot() = %q, want %q", got, want)
	}
}

func TestRenderSnapshot_Empty(t *testing.T) {
	if got := RenderSnapshot(nil); got != "" {
		t.Errorf("RenderSnapshot(nil) = %q, want empty", got)
	}
}

func TestSnapshotHash(t *testing.T) {
	a := SnapshotHash("2026-03-02: Coffee ($4.50)")
	b := SnapshotHash("2026-03-02: Coffee ($4.50)")
	c := SnapshotHash("2026-03-02: Coffee ($4.51)")

	if a != b {
		t.Error("identical snapshots must hash identically")
	}
	if a == c {
		t.Error("different snapshots must not collide")
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(a))
	}
}

func TestBuildMessages(t *testing.T) {
	msgs := BuildMessages("2026-03-02: Coffee ($4.50)")

	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != "system" {
		t.Errorf("first role = %q, want system", msgs[0].Role)
	}
	if !strings.Contains(msgs[0].Content, "financial advisor") {
		t.Error("system prompt missing advisor instruction")
	}
	if msgs[1].Role != "user" {
		t.Errorf("second role = %q, want user", msgs[1].Role)
	}
	if !strings.Contains(msgs[1].Content, "Coffee ($4.50)") {
		t.Error("user prompt missing snapshot")
	}
}
