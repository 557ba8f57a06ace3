// Package sse decodes an upstream server-sent-event chat completion stream
// into a lazy sequence of provider events.
//
// The upstream protocol is newline-delimited records prefixed with "data: ".
// A record whose payload is the literal token [DONE] terminates the stream.
// The decoder never assumes one network read equals one complete record;
// partial lines are buffered until the rest arrives.
package sse

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// EventType discriminates decoded events.
type EventType int

const (
	// EventDelta carries a fragment of completion text.
	EventDelta EventType = iota
	// EventUsage carries a (possibly running) token usage report.
	EventUsage
	// EventDone is the terminal marker; no further events follow.
	EventDone
	// EventMalformed is a data line that failed structural parsing. It is
	// reported so callers can log it, and never terminates the stream.
	EventMalformed
)

func (t EventType) String() string {
	switch t {
	case EventDelta:
		return "delta"
	case EventUsage:
		return "usage"
	case EventDone:
		return "done"
	case EventMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Usage is a token usage report from the provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Event is one decoded provider event.
type Event struct {
	Type  EventType
	Text  string // set for EventDelta
	Usage *Usage // set for EventUsage
	Raw   string // set for EventMalformed: the offending payload
}

// chunk mirrors the subset of the provider's streaming payload we care
// about. Usage may arrive OpenAI-style at the top level or under the
// provider's x_groq extension.
type chunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Usage *Usage `json:"usage"`
	XGroq *struct {
		Usage *Usage `json:"usage"`
	} `json:"x_groq"`
}

// Decoder turns a raw byte stream into provider events. It holds no state
// across streams; create one per upstream response.
type Decoder struct {
	scanner *bufio.Scanner
	pending []Event
	done    bool
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	// Allow for large individual chunks
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	return &Decoder{scanner: scanner}
}

// Next returns the next event. It returns io.EOF when the underlying stream
// ends without a terminal marker, and after the terminal event has been
// delivered any remaining input is discarded.
func (d *Decoder) Next() (Event, error) {
	if len(d.pending) > 0 {
		ev := d.pending[0]
		d.pending = d.pending[1:]
		return ev, nil
	}

	if d.done {
		return Event{}, io.EOF
	}

	for d.scanner.Scan() {
		line := d.scanner.Text()

		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")

		if strings.TrimSpace(data) == "[DONE]" {
			d.done = true
			return Event{Type: EventDone}, nil
		}

		events := d.decodePayload(data)
		if len(events) == 0 {
			continue
		}

		ev := events[0]
		d.pending = events[1:]
		return ev, nil
	}

	if err := d.scanner.Err(); err != nil {
		return Event{}, fmt.Errorf("stream read error: %w", err)
	}
	return Event{}, io.EOF
}

// decodePayload parses one data payload. A chunk may carry both a content
// delta and a usage report; the delta is emitted first.
func (d *Decoder) decodePayload(data string) []Event {
	var c chunk
	if err := json.Unmarshal([]byte(data), &c); err != nil {
		return []Event{{Type: EventMalformed, Raw: data}}
	}

	var events []Event
	if len(c.Choices) > 0 && c.Choices[0].Delta.Content != "" {
		events = append(events, Event{Type: EventDelta, Text: c.Choices[0].Delta.Content})
	}

	usage := c.Usage
	if usage == nil && c.XGroq != nil {
		usage = c.XGroq.Usage
	}
	if usage != nil {
		events = append(events, Event{Type: EventUsage, Usage: usage})
	}

	return events
}
