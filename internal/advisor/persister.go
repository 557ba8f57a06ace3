package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/finwise/advisor/internal/server"
	"github.com/finwise/advisor/internal/sse"
	"github.com/finwise/advisor/internal/storage"
)

// ErrUnparsableAdvice is returned when the accumulated completion text is
// not the structured advice payload the prompt asked for.
var ErrUnparsableAdvice = errors.New("completion text is not a structured advice payload")

const persistTimeout = 5 * time.Second

// Persister turns a finished accumulation into one durable advice record.
// Persistence is best-effort: by the time it runs the client stream has
// already closed, so failures are logged, never retried, and never surfaced
// to the caller.
type Persister struct {
	store           storage.Store
	model           string
	pricePerMillion float64
	logger          *slog.Logger
	wg              sync.WaitGroup
}

// NewPersister creates a persister writing to store. pricePerMillion is the
// provider's unit price per million tokens, used for the cost estimate.
func NewPersister(store storage.Store, model string, pricePerMillion float64, logger *slog.Logger) *Persister {
	return &Persister{
		store:           store,
		model:           model,
		pricePerMillion: pricePerMillion,
		logger:          logger,
	}
}

// PersistAsync spawns a detached task persisting the accumulated result.
// The task survives the request context (clients disconnecting right after
// the terminal event must not lose the record) but carries the request ID
// for log correlation and a short timeout of its own.
func (p *Persister) PersistAsync(ctx context.Context, userID, snapshotHash string, acc *Accumulated) {
	base := context.Background()
	if reqID := server.GetRequestID(ctx); reqID != "" {
		base = server.WithRequestID(base, reqID)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		persistCtx, cancel := context.WithTimeout(base, persistTimeout)
		defer cancel()

		if _, err := p.Persist(persistCtx, userID, snapshotHash, acc); err != nil {
			p.logger.Error("failed to persist advice",
				slog.String("request_id", server.GetRequestID(persistCtx)),
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// Wait blocks until all in-flight persistence tasks finish. Called during
// shutdown so fire-and-forget writes are not lost to process exit.
func (p *Persister) Wait() {
	p.wg.Wait()
}

// Persist parses the accumulated text, computes the cost estimate, and
// writes one record. On parse failure the raw text is logged for diagnosis
// and ErrUnparsableAdvice returned; the request already succeeded from the
// client's point of view.
func (p *Persister) Persist(ctx context.Context, userID, snapshotHash string, acc *Accumulated) (string, error) {
	advice, err := parseAdvice(acc.Text())
	if err != nil {
		p.logger.Error("unparsable advice payload",
			slog.String("user_id", userID),
			slog.String("raw", acc.Text()),
		)
		return "", err
	}

	usage, estimated := p.resolveUsage(acc)

	rec := &storage.AdviceRecord{
		UserID:         userID,
		SnapshotHash:   snapshotHash,
		Provider:       ProviderName,
		PromptVersion:  PromptVersion,
		Advice:         advice,
		TokensIn:       usage.PromptTokens,
		TokensOut:      usage.CompletionTokens,
		CostEstimate:   CostEstimate(usage.TotalTokens, p.pricePerMillion),
		UsageEstimated: estimated,
	}

	id, err := p.store.InsertAdvice(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("failed to insert advice record: %w", err)
	}

	p.logger.Info("persisted advice",
		slog.String("advice_id", id),
		slog.String("user_id", userID),
		slog.Int("tokens_total", usage.TotalTokens),
		slog.Bool("usage_estimated", estimated),
	)
	return id, nil
}

// resolveUsage returns the stream's reported usage, or a local estimate
// when the stream terminated without ever reporting one. The estimate
// covers only the completion side; the prompt side is left at zero rather
// than guessed.
func (p *Persister) resolveUsage(acc *Accumulated) (sse.Usage, bool) {
	if acc.Usage != nil {
		return *acc.Usage, false
	}

	out, err := estimateTokens(p.model, acc.Text())
	if err != nil {
		p.logger.Warn("token estimation failed", slog.String("error", err.Error()))
		return sse.Usage{}, true
	}
	return sse.Usage{CompletionTokens: out, TotalTokens: out}, true
}

// CostEstimate computes the price of a request from its total token count.
func CostEstimate(totalTokens int, pricePerMillion float64) float64 {
	return float64(totalTokens) / 1_000_000 * pricePerMillion
}

// parseAdvice validates the completion text as the structured advice
// payload and returns it re-encoded in canonical field order.
func parseAdvice(text string) (json.RawMessage, error) {
	var advice storage.Advice
	if err := json.Unmarshal([]byte(text), &advice); err != nil {
		return nil, ErrUnparsableAdvice
	}
	if advice.Summary == "" {
		return nil, ErrUnparsableAdvice
	}

	out, err := json.Marshal(advice)
	if err != nil {
		return nil, ErrUnparsableAdvice
	}
	return out, nil
}
