// Package sse decodes the analysis service's streaming response body.
//
// The body is a sequence of newline-delimited event lines. Lines prefixed
// with "data:" carry either a human-readable progress message or the final
// JSON-encoded summary; everything else is ignored. Chunk boundaries do not
// align with line boundaries, so decoding is incremental: bytes are buffered
// until a terminator arrives.
package sse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
)

// ErrNoSummary is returned when the stream ends without ever producing a
// parseable JSON payload. The text is user-visible.
var ErrNoSummary = errors.New("No JSON summary received")

// dataPrefix frames an event line.
const dataPrefix = "data:"

// ProgressFunc observes transient progress messages. It is called in
// stream order and must not retain the string across calls.
type ProgressFunc func(message string)

// Decoder incrementally consumes byte chunks and separates progress lines
// from the one terminal JSON payload. A Decoder is single-use and owned by
// one decode operation; it is not safe for concurrent use.
type Decoder struct {
	onProgress ProgressFunc
	buf        []byte
	payload    json.RawMessage
}

// NewDecoder returns a decoder forwarding progress lines to onProgress,
// which may be nil.
func NewDecoder(onProgress ProgressFunc) *Decoder {
	return &Decoder{onProgress: onProgress}
}

// Feed appends a chunk and processes any completed lines.
func (d *Decoder) Feed(chunk []byte) {
	d.buf = append(d.buf, chunk...)
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			return
		}
		line := string(d.buf[:i])
		d.buf = d.buf[i+1:]
		d.processLine(line)
	}
}

// Close flushes a final unterminated line and returns the last
// successfully-parsed JSON payload, or ErrNoSummary if none was seen.
func (d *Decoder) Close() (json.RawMessage, error) {
	if len(d.buf) > 0 {
		line := string(d.buf)
		d.buf = nil
		d.processLine(line)
	}
	if d.payload == nil {
		return nil, ErrNoSummary
	}
	return d.payload, nil
}

// processLine handles one complete event line. A data payload that parses
// as JSON becomes the candidate terminal payload; the service should emit
// at most one, but when several appear the most recent wins. Anything else
// is a progress message.
func (d *Decoder) processLine(line string) {
	line = strings.TrimRight(line, "\r")
	if !strings.HasPrefix(line, dataPrefix) {
		return
	}
	data := strings.TrimSpace(line[len(dataPrefix):])
	if json.Valid([]byte(data)) {
		d.payload = json.RawMessage(data)
		return
	}
	if d.onProgress != nil {
		d.onProgress(data)
	}
}

// Decode consumes r to the end and returns the terminal JSON payload.
// Chunks are read as the transport delivers them, so progress messages are
// observed while the stream is still running.
func Decode(ctx context.Context, r io.Reader, onProgress ProgressFunc) (json.RawMessage, error) {
	d := NewDecoder(onProgress)
	buf := make([]byte, 4096)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.Read(buf)
		if n > 0 {
			d.Feed(buf[:n])
		}
		if err == io.EOF {
			return d.Close()
		}
		if err != nil {
			return nil, err
		}
	}
}
