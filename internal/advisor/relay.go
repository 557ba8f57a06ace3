package advisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/finwise/advisor/internal/sse"
)

// ErrStreamTruncated is returned when the upstream stream ends without a
// terminal event. The partial result is discarded: an incomplete advice
// record is worse than none.
var ErrStreamTruncated = errors.New("upstream stream ended without terminal event")

// Accumulated is the single-owner state of one relay: the reconstructed
// response text and the latest usage totals. It is mutated only by the
// goroutine driving the stream and read once, at the terminal event, by the
// persister.
type Accumulated struct {
	text   strings.Builder
	Usage  *sse.Usage
	Deltas int // monotonically increasing delta count, for ordering diagnostics
}

// Text returns the concatenated completion text so far.
func (a *Accumulated) Text() string {
	return a.text.String()
}

func (a *Accumulated) append(s string) {
	a.text.WriteString(s)
	a.Deltas++
}

// Relay drives the decode loop for one request. Each decoded event is fully
// handled before the next upstream read: token deltas are appended to the
// accumulator and forwarded to w immediately (flush is called after each
// write, so client backpressure throttles the upstream read loop), usage
// reports overwrite the running totals (last value wins), malformed lines
// are logged and skipped.
//
// Relay returns the accumulated result only when the terminal event is
// seen. A client write failure, a context cancellation, or an upstream read
// error aborts the loop with an error; callers must discard the partial
// accumulation and persist nothing.
func Relay(ctx context.Context, dec *sse.Decoder, w io.Writer, flush func(), logger *slog.Logger) (*Accumulated, error) {
	acc := &Accumulated{}

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("relay cancelled: %w", err)
		}

		ev, err := dec.Next()
		if err == io.EOF {
			return nil, ErrStreamTruncated
		}
		if err != nil {
			return nil, fmt.Errorf("stream read failure: %w", err)
		}

		switch ev.Type {
		case sse.EventDelta:
			acc.append(ev.Text)
			if _, err := io.WriteString(w, ev.Text); err != nil {
				return nil, fmt.Errorf("client write failed: %w", err)
			}
			if flush != nil {
				flush()
			}

		case sse.EventUsage:
			acc.Usage = ev.Usage

		case sse.EventDone:
			return acc, nil

		case sse.EventMalformed:
			logger.Warn("skipping malformed stream line", slog.String("raw", ev.Raw))
		}
	}
}
