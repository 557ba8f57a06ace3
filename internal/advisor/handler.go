// Package advisor implements the streaming advice relay: quota check,
// upstream completion call, token relay with accumulation, and best-effort
// persistence of the finished result.
package advisor

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/finwise/advisor/internal/api/groq"
	"github.com/finwise/advisor/internal/server"
	"github.com/finwise/advisor/internal/sse"
	"github.com/finwise/advisor/internal/storage"
)

// Handler serves the advice endpoints.
type Handler struct {
	store     storage.Store
	upstream  *groq.Client
	limiter   *Limiter
	persister *Persister
	model     string
	logger    *slog.Logger
}

// NewHandler wires the advice pipeline.
func NewHandler(store storage.Store, upstream *groq.Client, limiter *Limiter, persister *Persister, model string, logger *slog.Logger) *Handler {
	return &Handler{
		store:     store,
		upstream:  upstream,
		limiter:   limiter,
		persister: persister,
		model:     model,
		logger:    logger,
	}
}

// HandleCreateAdvice runs the full pipeline for one request: quota check,
// snapshot build, upstream call, relay loop, detached persistence. Failures
// before the relay begins map to structured error statuses; once the first
// token has been forwarded, errors can only terminate the stream.
func (h *Handler) HandleCreateAdvice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user := server.GetUser(ctx)
	if user == nil {
		server.WriteJSONError(w, http.StatusUnauthorized, "authentication failed")
		return
	}

	remaining, err := h.limiter.Allow(ctx, user.ID, time.Now())
	if err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			server.SetRateLimits(ctx, h.limiter.Limit(), 0)
			server.WriteJSONError(w, http.StatusTooManyRequests, "rate limit exceeded, try again tomorrow")
			return
		}
		server.AddError(ctx, err)
		server.WriteJSONError(w, http.StatusInternalServerError, "could not verify usage")
		return
	}
	server.SetRateLimits(ctx, h.limiter.Limit(), remaining)

	txs, err := h.store.ListTransactions(ctx, user.ID, SnapshotLimit)
	if err != nil {
		server.AddError(ctx, err)
		server.WriteJSONError(w, http.StatusInternalServerError, "failed to fetch transactions")
		return
	}

	snapshot := RenderSnapshot(txs)
	snapshotHash := SnapshotHash(snapshot)
	server.AddLogField(ctx, "snapshot_hash", snapshotHash)

	body, err := h.upstream.OpenChatStream(ctx, &groq.ChatCompletionRequest{
		Model:    h.model,
		Messages: BuildMessages(snapshot),
	})
	if err != nil {
		var upstreamErr *groq.UpstreamError
		if errors.As(err, &upstreamErr) {
			h.logger.Error("upstream rejected advice request",
				slog.String("request_id", server.GetRequestID(ctx)),
				slog.Int("upstream_status", upstreamErr.Status),
				slog.String("upstream_body", upstreamErr.Body),
			)
		}
		server.AddError(ctx, err)
		server.WriteJSONError(w, http.StatusInternalServerError, "failed to get advice from AI provider")
		return
	}
	defer body.Close()

	flusher, ok := w.(http.Flusher)
	if !ok {
		server.WriteJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// The body is raw forwarded token text; the prompt asks for a JSON
	// object, so the reassembled stream is one.
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	acc, err := Relay(ctx, sse.NewDecoder(body), w, flusher.Flush, h.logger)
	if err != nil {
		// Mid-stream failure: partially delivered content cannot be un-sent
		// and partial accumulation is never persisted. Closing the response
		// here ends the stream abnormally for the client.
		server.AddError(ctx, err)
		return
	}

	h.persister.PersistAsync(ctx, user.ID, snapshotHash, acc)
}

// HandleListAdvice returns the caller's recent advice records, newest first.
func (h *Handler) HandleListAdvice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user := server.GetUser(ctx)
	if user == nil {
		server.WriteJSONError(w, http.StatusUnauthorized, "authentication failed")
		return
	}

	records, err := h.store.ListAdvice(ctx, user.ID, 20)
	if err != nil {
		server.AddError(ctx, err)
		server.WriteJSONError(w, http.StatusInternalServerError, "failed to fetch advice history")
		return
	}
	if records == nil {
		records = []*storage.AdviceRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}
