// Package tools implements the sandboxed tool-execution pipeline: the closed
// set of file operations, the confirmation gate in front of mutations, and
// the executor that runs one validated request to a single structured result.
package tools

import (
	"errors"
	"fmt"

	"github.com/benreeve1984/ronin/internal/patch"
	"github.com/benreeve1984/ronin/internal/sandbox"
)

// ErrorKind classifies tool failures. Every kind is terminal for the
// operation that raised it: the same inputs would fail the same way, so
// nothing is retried automatically.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindSandboxViolation
	KindUnsupportedFileType
	KindFileNotFound
	KindFileAlreadyExists
	KindFileTooLarge
	KindAnchorNotFound
	KindInvalidOccurrence
	KindInvalidArgument
	KindIOFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindSandboxViolation:
		return "sandbox_violation"
	case KindUnsupportedFileType:
		return "unsupported_file_type"
	case KindFileNotFound:
		return "file_not_found"
	case KindFileAlreadyExists:
		return "file_already_exists"
	case KindFileTooLarge:
		return "file_too_large"
	case KindAnchorNotFound:
		return "anchor_not_found"
	case KindInvalidOccurrence:
		return "invalid_occurrence"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindIOFailure:
		return "io_failure"
	default:
		return "unknown"
	}
}

// ToolError carries a failure kind plus enough structured context (path,
// anchor, occurrence, underlying cause) for the calling layer to explain the
// problem without the core formatting prose.
type ToolError struct {
	Kind       ErrorKind
	Path       string
	Anchor     string
	Occurrence int
	Err        error
}

func (e *ToolError) Error() string {
	switch {
	case e.Err != nil && e.Path != "":
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Path)
	default:
		return e.Kind.String()
	}
}

func (e *ToolError) Unwrap() error { return e.Err }

// Kind extracts the error kind, or KindUnknown for foreign errors.
func Kind(err error) ErrorKind {
	var te *ToolError
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindUnknown
}

func pathError(kind ErrorKind, path string, err error) *ToolError {
	return &ToolError{Kind: kind, Path: path, Err: err}
}

// classifyError maps errors surfaced by the sandbox and patch layers onto
// the taxonomy. Anything unrecognized is an IOFailure surfaced as-is.
func classifyError(path string, err error) *ToolError {
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}

	var violation *sandbox.ViolationError
	if errors.As(err, &violation) {
		return pathError(KindSandboxViolation, path, err)
	}
	var ext *sandbox.ExtensionError
	if errors.As(err, &ext) {
		return pathError(KindUnsupportedFileType, path, err)
	}
	var notFound *patch.AnchorNotFoundError
	if errors.As(err, &notFound) {
		return &ToolError{Kind: KindAnchorNotFound, Path: path, Anchor: notFound.Anchor, Err: err}
	}
	var occ *patch.OccurrenceError
	if errors.As(err, &occ) {
		return &ToolError{Kind: KindInvalidOccurrence, Path: path, Occurrence: occ.Occurrence, Err: err}
	}

	return pathError(KindIOFailure, path, err)
}
