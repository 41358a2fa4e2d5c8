package translate

import "strings"

const (
	openTag  = "<think>"
	closeTag = "</think>"
	// maxThinkBuffer is the safety valve: if the carry-over buffer grows
	// past this without resolving a tag, force-strip and reset rather
	// than buffer forever against a pathological upstream.
	maxThinkBuffer = 10 * 1024 * 1024
)

// segmentKind distinguishes plain text from extracted thinking content.
type segmentKind int

const (
	segText segmentKind = iota
	segThinking
)

type segment struct {
	kind segmentKind
	text string
}

// thinkExtractor is the stateful two-state machine ({outside, inside}) that
// finds <think>...</think> spans in plain-text Part content, tolerant of the
// tag being split across separate chunks. Grounded on
// original_source/src/translation/streaming.rs's process_text_chunk and
// find_partial_tag; see SPEC_FULL.md §4.J and its Tie-breaks note.
//
// Do not replace this with a regular expression: a regex can't see across
// chunk boundaries without re-buffering the entire stream, which is exactly
// what this carry-over buffer avoids.
type thinkExtractor struct {
	buffer     string
	inThinking bool
}

// feed processes one more piece of plain text and returns the ordered list
// of text/thinking segments it produces. Any unresolved partial tag suffix
// is retained internally for the next call.
func (e *thinkExtractor) feed(text string) []segment {
	working := e.buffer + text
	e.buffer = ""

	if len(working) > maxThinkBuffer {
		stripped := strings.ReplaceAll(working, openTag, "")
		stripped = strings.ReplaceAll(stripped, closeTag, "")
		e.inThinking = false
		if stripped == "" {
			return nil
		}
		return []segment{{kind: segText, text: stripped}}
	}

	var out []segment
	for {
		if e.inThinking {
			if pos := strings.Index(working, closeTag); pos >= 0 {
				if content := working[:pos]; content != "" {
					out = append(out, segment{kind: segThinking, text: content})
				}
				working = working[pos+len(closeTag):]
				e.inThinking = false
				continue
			}
			if partial := findPartialTag(working, closeTag); partial >= 0 {
				if before := working[:partial]; before != "" {
					out = append(out, segment{kind: segThinking, text: before})
				}
				e.buffer = working[partial:]
				return out
			}
			if working != "" {
				out = append(out, segment{kind: segThinking, text: working})
			}
			return out
		}

		if pos := strings.Index(working, openTag); pos >= 0 {
			if content := working[:pos]; content != "" {
				out = append(out, segment{kind: segText, text: content})
			}
			working = working[pos+len(openTag):]
			e.inThinking = true
			continue
		}
		if partial := findPartialTag(working, openTag); partial >= 0 {
			if before := working[:partial]; before != "" {
				out = append(out, segment{kind: segText, text: before})
			}
			e.buffer = working[partial:]
			return out
		}
		if working != "" {
			out = append(out, segment{kind: segText, text: working})
		}
		return out
	}
}

// findPartialTag looks for a suffix of text that is itself a non-empty,
// strict prefix of tag — the case where a tag has started but not yet fully
// arrived. It checks candidate prefix lengths in increasing order and
// returns the position (byte offset into text) of the first one found.
//
// For the two tags this is ever called with ("<think>", "</think>"),
// at most one candidate length can match at a time (neither tag
// self-overlaps), so "first found" and "leftmost" coincide; the increasing
// scan order is kept for fidelity with the source this is grounded on.
func findPartialTag(text, tag string) int {
	for i := 1; i < len(tag); i++ {
		if strings.HasSuffix(text, tag[:i]) {
			return len(text) - i
		}
	}
	return -1
}
