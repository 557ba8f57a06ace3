// Package storage defines the persistence interfaces consumed by the advice
// relay. Implementations live in the sqlite and memory subpackages.
package storage

import (
	"context"
	"encoding/json"
	"time"
)

// Transaction is one imported ledger line for a user. Transactions are
// append-only from the relay's point of view; they are read to build the
// prompt snapshot and never mutated here.
type Transaction struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Date        time.Time `db:"date" json:"date"`
	Description string    `db:"description" json:"description"`
	Amount      float64   `db:"amount" json:"amount"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Advice is the structured payload the model is asked to produce.
type Advice struct {
	Summary             string   `json:"summary"`
	PositivePoints      []string `json:"positive_points"`
	AreasForImprovement []string `json:"areas_for_improvement"`
}

// AdviceRecord is the durable result of one completed advice stream.
// It is written exactly once, after the terminal event, and is immutable
// after creation.
type AdviceRecord struct {
	ID             string          `db:"id" json:"id"`
	UserID         string          `db:"user_id" json:"user_id"`
	SnapshotHash   string          `db:"snapshot_hash" json:"snapshot_hash"`
	Provider       string          `db:"provider" json:"provider"`
	PromptVersion  int             `db:"prompt_version" json:"prompt_version"`
	Advice         json.RawMessage `db:"advice" json:"advice"`
	TokensIn       int             `db:"tokens_in" json:"tokens_in"`
	TokensOut      int             `db:"tokens_out" json:"tokens_out"`
	CostEstimate   float64         `db:"cost_estimate" json:"cost_estimate"`
	UsageEstimated bool            `db:"usage_estimated" json:"usage_estimated"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// Store is the external data store collaborator. The advice table doubles as
// the rate-limit counter (one row per past request); it and the transactions
// table are the only shared mutable state in the system, accessed
// read-then-write with no cross-row transaction.
type Store interface {
	// CountAdviceSince counts advice records for a user created at or after
	// the given instant. Used by the rate limiter.
	CountAdviceSince(ctx context.Context, userID string, since time.Time) (int, error)

	// InsertAdvice writes one advice record and returns its ID.
	InsertAdvice(ctx context.Context, rec *AdviceRecord) (string, error)

	// ListAdvice returns a user's advice records, newest first.
	ListAdvice(ctx context.Context, userID string, limit int) ([]*AdviceRecord, error)

	// ListTransactions returns a user's most recent transactions by date,
	// newest first, capped at limit.
	ListTransactions(ctx context.Context, userID string, limit int) ([]Transaction, error)

	// InsertTransaction records one ledger line. The relay itself never
	// calls this; it exists for import tooling and tests.
	InsertTransaction(ctx context.Context, tx *Transaction) error

	Close() error
}
