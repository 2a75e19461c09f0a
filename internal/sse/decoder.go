// Package sse decodes the backend's Server-Sent Events stream into discrete
// typed events.
package sse

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/txray-labs/txray/internal/constants"
)

// DefaultType is assumed for frames that carry no "event:" field.
const DefaultType = "message"

const (
	eventPrefix = "event: "
	dataPrefix  = "data: "
)

// Event is one decoded SSE frame. Data is nil when the frame carried no data
// field or its payload failed to parse as JSON.
type Event struct {
	Type string
	Data json.RawMessage
}

// Decoder reassembles SSE frames from arbitrarily-chunked byte input.
//
// The only state carried across Feed calls is the trailing incomplete
// fragment. Frames are delimited by a blank line; the delimiter may itself be
// split across chunks. Splitting at the byte level is safe for UTF-8 payloads
// because a newline byte never occurs inside a multi-byte sequence.
type Decoder struct {
	buf bytes.Buffer
}

// NewDecoder creates an empty decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends a chunk and returns the events completed by it, in order.
func (d *Decoder) Feed(chunk []byte) []Event {
	d.buf.Write(chunk)

	parts := strings.Split(d.buf.String(), "\n\n")
	d.buf.Reset()
	// The final segment is either empty (chunk ended exactly on a delimiter)
	// or an incomplete frame; keep it for the next chunk.
	d.buf.WriteString(parts[len(parts)-1])

	var events []Event
	for _, frame := range parts[:len(parts)-1] {
		ev, ok := parseFrame(frame)
		if !ok {
			continue
		}
		logEvent(ev)
		events = append(events, ev)
	}
	return events
}

// Pending reports whether an incomplete frame is buffered. Anything still
// pending when the stream closes is discarded; well-formed streams always
// terminate their final frame with the blank-line delimiter.
func (d *Decoder) Pending() bool {
	return d.buf.Len() > 0
}

// parseFrame splits one frame into lines and extracts the event type and
// JSON data payload. Empty frames yield no event.
func parseFrame(frame string) (Event, bool) {
	if strings.TrimSpace(frame) == "" {
		return Event{}, false
	}

	ev := Event{Type: DefaultType}
	for _, line := range strings.Split(frame, "\n") {
		switch {
		case strings.HasPrefix(line, eventPrefix):
			ev.Type = strings.TrimSpace(strings.TrimPrefix(line, eventPrefix))
		case strings.HasPrefix(line, dataPrefix):
			raw := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
			if !json.Valid([]byte(raw)) {
				// Malformed data must not abort the stream; the event
				// survives with an absent payload.
				log.Warn().Str("event", ev.Type).Msg("failed to parse SSE data")
				continue
			}
			ev.Data = json.RawMessage(raw)
		}
		// Other fields (id:, retry:, comment lines) are ignored.
	}
	return ev, true
}

// logEvent records a decoded event for observability. Token events are
// skipped to avoid drowning the log; payloads are truncated.
func logEvent(ev Event) {
	if ev.Type == "token" {
		return
	}
	data := string(ev.Data)
	if len(data) > constants.EventLogMaxChars {
		data = data[:constants.EventLogMaxChars] + "...(truncated)"
	}
	log.Debug().Str("event", ev.Type).Str("data", data).Msg("SSE event")
}
