package patch

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// EditOp classifies a single applied edit for presentation.
type EditOp string

const (
	EditInsert  EditOp = "insert"
	EditReplace EditOp = "replace"
	EditDelete  EditOp = "delete"
)

// Edit records one changed span: the operation, the byte range it affected in
// the original content, and the text that was inserted (empty for deletions).
// Diff granularity is per edited span, not per character.
type Edit struct {
	Op       EditOp
	OldStart int
	OldEnd   int
	Text     string
}

// Patch is the complete old-to-new transformation for one file. It is a pure
// value: either the whole New content is written or nothing is. Identical
// Old/New content is a valid patch with zero edits.
type Patch struct {
	Old   string
	New   string
	Edits []Edit
}

// Changed reports whether applying the patch would alter the content.
func (p Patch) Changed() bool { return p.Old != p.New }

// Summary describes the patch in one line for confirmation prompts.
func (p Patch) Summary() string {
	if !p.Changed() {
		return "no changes"
	}
	delta := len(p.New) - len(p.Old)
	return fmt.Sprintf("%d edit(s), %d -> %d bytes (%+d)", len(p.Edits), len(p.Old), len(p.New), delta)
}

// UnifiedDiff renders the patch as a unified diff for presentation.
func (p Patch) UnifiedDiff(path string) string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(p.Old),
		B:        difflib.SplitLines(p.New),
		FromFile: path + " (before)",
		ToFile:   path + " (after)",
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return ""
	}
	return text
}

// Apply computes the new content produced by performing the same action with
// the same replacement text at every span. Spans must be non-overlapping and
// sorted ascending with offsets into content, as produced by FindSpans.
//
// Spans are applied in descending offset order so that edits at higher
// offsets never invalidate the original offsets of earlier spans. Edits that
// do not change any bytes (empty insertion, or replacing a span with
// identical text) are not recorded.
func Apply(content string, spans []Span, action Action, newContent string) Patch {
	p := Patch{Old: content, New: content}

	for i := len(spans) - 1; i >= 0; i-- {
		span := spans[i]
		switch action {
		case ActionBefore:
			if newContent == "" {
				continue
			}
			p.New = p.New[:span.Start] + newContent + p.New[span.Start:]
			p.Edits = append(p.Edits, Edit{Op: EditInsert, OldStart: span.Start, OldEnd: span.Start, Text: newContent})
		case ActionAfter:
			if newContent == "" {
				continue
			}
			p.New = p.New[:span.End] + newContent + p.New[span.End:]
			p.Edits = append(p.Edits, Edit{Op: EditInsert, OldStart: span.End, OldEnd: span.End, Text: newContent})
		case ActionReplace:
			if content[span.Start:span.End] == newContent {
				continue
			}
			op := EditReplace
			if newContent == "" {
				op = EditDelete
			}
			p.New = p.New[:span.Start] + newContent + p.New[span.End:]
			p.Edits = append(p.Edits, Edit{Op: op, OldStart: span.Start, OldEnd: span.End, Text: newContent})
		}
	}

	// Edits were collected back to front; present them in ascending order.
	for i, j := 0, len(p.Edits)-1; i < j; i, j = i+1, j-1 {
		p.Edits[i], p.Edits[j] = p.Edits[j], p.Edits[i]
	}

	return p
}
