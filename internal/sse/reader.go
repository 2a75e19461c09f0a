package sse

import (
	"io"
)

const readChunkSize = 4 * 1024

// Reader yields events lazily from a streaming response body. It is bounded
// by the body's lifetime and cannot be restarted; decoding a stream again
// requires a fresh response.
type Reader struct {
	r       io.Reader
	dec     *Decoder
	pending []Event
	chunk   []byte
	err     error
}

// NewReader wraps a response body.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		r:     r,
		dec:   NewDecoder(),
		chunk: make([]byte, readChunkSize),
	}
}

// Next returns the next event in arrival order. It blocks on the underlying
// read until bytes arrive or the stream ends. Returns io.EOF once the stream
// is exhausted; any unterminated trailing frame is discarded.
func (r *Reader) Next() (Event, error) {
	for len(r.pending) == 0 {
		if r.err != nil {
			return Event{}, r.err
		}

		n, err := r.r.Read(r.chunk)
		if n > 0 {
			r.pending = r.dec.Feed(r.chunk[:n])
		}
		if err != nil {
			// Deliver events completed by the final chunk before
			// surfacing the error.
			r.err = err
		}
	}

	ev := r.pending[0]
	r.pending = r.pending[1:]
	return ev, nil
}
