// Package sseparser implements the byte-stream-to-event scanner described in
// SPEC_FULL.md §4.G, grounded on
// original_source/src/gemini/streaming.rs (parse_sse_stream/parse_sse_event).
//
// This is deliberately NOT built on bufio.Scanner: a Scanner is line-based
// and cannot express "whichever of LF-LF or CRLF-CRLF occurs earliest in the
// buffer wins" — the tie-break needs direct access to byte offsets within an
// accumulation buffer that persists across chunk boundaries.
package sseparser

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/howard-nolan/geminiproxy/internal/geminiapi"
	"go.uber.org/zap"
)

// MaxBufferSize is the safety valve: if the accumulation buffer grows past
// this without finding an event delimiter, the stream is aborted.
const MaxBufferSize = 10 * 1024 * 1024

// ErrBufferOverflow is returned by Feed when MaxBufferSize is exceeded.
var ErrBufferOverflow = errors.New("sseparser: buffer exceeded 10MiB without a delimiter")

// Parser accumulates bytes across chunks and yields complete upstream
// events. One instance per stream; not safe for concurrent use.
type Parser struct {
	buf []byte
	log *zap.Logger
}

// New returns an empty Parser. log may be nil.
func New(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log}
}

// Feed appends a chunk of raw bytes and returns every complete
// GenerateContentResponse event found so far. It never blocks and never
// retains the input slice.
func (p *Parser) Feed(chunk []byte) ([]geminiapi.GenerateContentResponse, error) {
	p.buf = append(p.buf, chunk...)

	var events []geminiapi.GenerateContentResponse
	for {
		lfPos := bytes.Index(p.buf, []byte("\n\n"))
		crlfPos := bytes.Index(p.buf, []byte("\r\n\r\n"))

		var eventEnd, delimLen int
		switch {
		case lfPos >= 0 && crlfPos >= 0:
			if lfPos <= crlfPos {
				eventEnd, delimLen = lfPos, 2
			} else {
				eventEnd, delimLen = crlfPos, 4
			}
		case lfPos >= 0:
			eventEnd, delimLen = lfPos, 2
		case crlfPos >= 0:
			eventEnd, delimLen = crlfPos, 4
		default:
			if len(p.buf) > MaxBufferSize {
				return events, ErrBufferOverflow
			}
			return events, nil
		}

		block := p.buf[:eventEnd]
		p.buf = p.buf[eventEnd+delimLen:]

		if evt, ok := p.parseEvent(block); ok {
			events = append(events, evt)
		}
	}
}

// Flush parses any non-empty residual buffer as a final event, for streams
// that close without a trailing delimiter.
func (p *Parser) Flush() (geminiapi.GenerateContentResponse, bool) {
	if len(bytes.TrimSpace(p.buf)) == 0 {
		return geminiapi.GenerateContentResponse{}, false
	}
	evt, ok := p.parseEvent(p.buf)
	p.buf = nil
	return evt, ok
}

func (p *Parser) parseEvent(block []byte) (geminiapi.GenerateContentResponse, bool) {
	var dataLine string
	found := false
	for _, line := range strings.Split(string(block), "\n") {
		line = strings.TrimRight(line, "\r")
		if rest, ok := strings.CutPrefix(line, "data: "); ok {
			dataLine = rest
			found = true
			break
		}
		if rest, ok := strings.CutPrefix(line, "data:"); ok {
			dataLine = strings.TrimSpace(rest)
			found = true
			break
		}
	}
	if !found {
		return geminiapi.GenerateContentResponse{}, false
	}
	if dataLine == "" || dataLine == "[DONE]" {
		p.log.Debug("filtered SSE control marker", zap.String("data", dataLine))
		return geminiapi.GenerateContentResponse{}, false
	}

	var resp geminiapi.GenerateContentResponse
	if err := json.Unmarshal([]byte(dataLine), &resp); err != nil {
		p.log.Warn("JSON decode error in SSE stream", zap.Error(err))
		return geminiapi.GenerateContentResponse{}, false
	}
	return resp, true
}
