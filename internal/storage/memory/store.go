// Package memory provides an in-memory Store for tests and local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/finwise/advisor/internal/storage"
)

// Store is an in-memory implementation of storage.Store.
type Store struct {
	mu           sync.RWMutex
	advice       []*storage.AdviceRecord
	transactions []storage.Transaction
}

var _ storage.Store = (*Store)(nil)

// New creates a new in-memory store.
func New() *Store {
	return &Store{}
}

func (s *Store) CountAdviceSince(ctx context.Context, userID string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, rec := range s.advice {
		if rec.UserID == userID && !rec.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *Store) InsertAdvice(ctx context.Context, rec *storage.AdviceRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = "adv_" + uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	cp := *rec
	s.advice = append(s.advice, &cp)
	return rec.ID, nil
}

func (s *Store) ListAdvice(ctx context.Context, userID string, limit int) ([]*storage.AdviceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	var records []*storage.AdviceRecord
	for _, rec := range s.advice {
		if rec.UserID == userID {
			cp := *rec
			records = append(records, &cp)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})

	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID string, limit int) ([]storage.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	var txs []storage.Transaction
	for _, tx := range s.transactions {
		if tx.UserID == userID {
			txs = append(txs, tx)
		}
	}

	sort.Slice(txs, func(i, j int) bool {
		return txs[i].Date.After(txs[j].Date)
	})

	if len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}

func (s *Store) InsertTransaction(ctx context.Context, tx *storage.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ID == "" {
		tx.ID = "txn_" + uuid.New().String()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	s.transactions = append(s.transactions, *tx)
	return nil
}

func (s *Store) Close() error {
	return nil
}
