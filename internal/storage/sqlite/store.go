// Package sqlite provides the SQLite-backed Store used in production.
package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/finwise/advisor/internal/storage"
)

// Store is a SQLite implementation of storage.Store.
type Store struct {
	db *sqlx.DB
}

var _ storage.Store = (*Store)(nil)

// New opens (or creates) the database at dbPath and initializes the schema.
func New(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			date TIMESTAMP NOT NULL,
			description TEXT NOT NULL,
			amount REAL NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ai_advice (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			snapshot_hash TEXT NOT NULL,
			provider TEXT NOT NULL,
			prompt_version INTEGER NOT NULL,
			advice TEXT NOT NULL,
			tokens_in INTEGER NOT NULL,
			tokens_out INTEGER NOT NULL,
			cost_estimate REAL NOT NULL,
			usage_estimated INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions(user_id, date)`,
		`CREATE INDEX IF NOT EXISTS idx_ai_advice_user_created ON ai_advice(user_id, created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

func (s *Store) CountAdviceSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM ai_advice WHERE user_id = ? AND created_at >= ?`,
		userID, since)
	if err != nil {
		return 0, fmt.Errorf("failed to count advice: %w", err)
	}
	return count, nil
}

func (s *Store) InsertAdvice(ctx context.Context, rec *storage.AdviceRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = "adv_" + uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ai_advice (id, user_id, snapshot_hash, provider, prompt_version, advice,
		 tokens_in, tokens_out, cost_estimate, usage_estimated, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.SnapshotHash, rec.Provider, rec.PromptVersion,
		string(rec.Advice), rec.TokensIn, rec.TokensOut, rec.CostEstimate,
		rec.UsageEstimated, rec.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("failed to insert advice: %w", err)
	}

	return rec.ID, nil
}

func (s *Store) ListAdvice(ctx context.Context, userID string, limit int) ([]*storage.AdviceRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	var records []*storage.AdviceRecord
	err := s.db.SelectContext(ctx, &records,
		`SELECT id, user_id, snapshot_hash, provider, prompt_version, advice,
		 tokens_in, tokens_out, cost_estimate, usage_estimated, created_at
		 FROM ai_advice WHERE user_id = ?
		 ORDER BY created_at DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list advice: %w", err)
	}

	return records, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID string, limit int) ([]storage.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}

	var txs []storage.Transaction
	err := s.db.SelectContext(ctx, &txs,
		`SELECT id, user_id, date, description, amount, created_at
		 FROM transactions WHERE user_id = ?
		 ORDER BY date DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	return txs, nil
}

func (s *Store) InsertTransaction(ctx context.Context, tx *storage.Transaction) error {
	if tx.ID == "" {
		tx.ID = "txn_" + uuid.New().String()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (id, user_id, date, description, amount, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, tx.Date, tx.Description, tx.Amount, tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
