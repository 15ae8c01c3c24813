// Package patch implements the anchor-based modification engine: locating
// anchor occurrences in file content, selecting which ones an edit targets,
// and computing the resulting content plus a diff. Everything here is a pure
// function over string values; nothing touches the filesystem.
package patch

import (
	"fmt"
	"strings"
)

// Action describes what to do at a resolved anchor position.
type Action string

const (
	// ActionBefore inserts content immediately preceding the matched span.
	ActionBefore Action = "before"
	// ActionAfter inserts content immediately following the matched span.
	ActionAfter Action = "after"
	// ActionReplace substitutes the matched span with new content.
	// Empty replacement content deletes the spanned text.
	ActionReplace Action = "replace"
)

// ParseAction validates an action string from a tool request.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionBefore, ActionAfter, ActionReplace:
		return Action(s), nil
	default:
		return "", fmt.Errorf("invalid action %q: use %q, %q, or %q", s, ActionBefore, ActionAfter, ActionReplace)
	}
}

// Occurrence selector values with special meaning. Any other positive N
// selects the Nth match (1-indexed).
const (
	OccurrenceFirst = 1
	OccurrenceLast  = -1
	OccurrenceAll   = 0
)

// Span is a half-open byte range [Start, End) in the original content.
// Boundary spans (empty anchor) have Start == End.
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes the span covers.
func (s Span) Len() int { return s.End - s.Start }

// AnchorNotFoundError reports that a non-empty anchor has no match.
type AnchorNotFoundError struct {
	Anchor string
}

func (e *AnchorNotFoundError) Error() string {
	return fmt.Sprintf("anchor not found: %q", truncateAnchor(e.Anchor))
}

// OccurrenceError reports an occurrence selector that cannot resolve to a
// match: either a selector beyond the available match count, or a value
// outside the valid set (1, -1, 0, N>0).
type OccurrenceError struct {
	Occurrence int
	Matches    int
}

func (e *OccurrenceError) Error() string {
	return fmt.Sprintf("invalid occurrence %d (found %d matches)", e.Occurrence, e.Matches)
}

// FindSpans locates the span(s) an edit targets.
//
// With an empty anchor it returns a single synthetic boundary span chosen by
// the action: start-of-file for "before", end-of-file for "after", and the
// whole file for "replace". The occurrence selector is ignored for boundary
// spans since there is exactly one.
//
// With a non-empty anchor it scans for exact, case-sensitive, non-overlapping
// matches left to right (after a match at P the scan resumes at P+len(anchor))
// and then applies the occurrence selector: 1 first, -1 last, 0 all, any other
// positive N the Nth match. Selecting beyond the match count is an error, not
// a clamp. All offsets are relative to the unmodified content.
func FindSpans(content, anchor string, action Action, occurrence int) ([]Span, error) {
	if anchor == "" {
		switch action {
		case ActionBefore:
			return []Span{{0, 0}}, nil
		case ActionAfter:
			return []Span{{len(content), len(content)}}, nil
		default:
			return []Span{{0, len(content)}}, nil
		}
	}

	if occurrence < OccurrenceLast {
		return nil, &OccurrenceError{Occurrence: occurrence}
	}

	var spans []Span
	pos := 0
	for {
		idx := strings.Index(content[pos:], anchor)
		if idx == -1 {
			break
		}
		start := pos + idx
		spans = append(spans, Span{start, start + len(anchor)})
		pos = start + len(anchor)
	}

	if len(spans) == 0 {
		return nil, &AnchorNotFoundError{Anchor: anchor}
	}

	switch {
	case occurrence == OccurrenceAll:
		return spans, nil
	case occurrence == OccurrenceLast:
		return spans[len(spans)-1:], nil
	case occurrence <= len(spans):
		return spans[occurrence-1 : occurrence], nil
	default:
		return nil, &OccurrenceError{Occurrence: occurrence, Matches: len(spans)}
	}
}

func truncateAnchor(anchor string) string {
	if len(anchor) > 50 {
		return anchor[:50] + "..."
	}
	return anchor
}
