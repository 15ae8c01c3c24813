package tools

import "fmt"

// Status tags the outcome of a single tool invocation.
type Status int

const (
	// StatusOK means the operation completed and, for mutations, was applied.
	StatusOK Status = iota
	// StatusRejected means the user declined the change; disk is untouched.
	StatusRejected
	// StatusSkipped means dry-run policy computed but did not commit the change.
	StatusSkipped
	// StatusFailed means validation, resolution, or execution failed.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusRejected:
		return "rejected"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FileInfo describes one entry in a list_files result.
type FileInfo struct {
	Path  string
	Size  int64
	Lines int
}

// SearchMatch is one matching line from search_files with its context.
type SearchMatch struct {
	Path   string
	Line   int
	Text   string
	Before []string
	After  []string
}

// Result is the single structured outcome of a tool invocation. Exactly one
// Result is produced per call; which payload fields are populated depends on
// the operation and the status.
type Result struct {
	Status  Status
	Op      Op
	Path    string
	Summary string

	// Content holds read_file output.
	Content string
	// Files holds list_files output.
	Files []FileInfo
	// Matches holds search_files output.
	Matches []SearchMatch
	// Diff holds the unified diff for mutations (including skipped dry runs).
	Diff string

	// Err is set when Status is StatusFailed.
	Err *ToolError
}

func okResult(op Op, path, summary string) Result {
	return Result{Status: StatusOK, Op: op, Path: path, Summary: summary}
}

func rejectedResult(op Op, path, reason string) Result {
	return Result{Status: StatusRejected, Op: op, Path: path, Summary: reason}
}

func skippedResult(op Op, path, summary, diff string) Result {
	return Result{Status: StatusSkipped, Op: op, Path: path, Summary: summary, Diff: diff}
}

func failedResult(op Op, err *ToolError) Result {
	return Result{
		Status:  StatusFailed,
		Op:      op,
		Path:    err.Path,
		Summary: fmt.Sprintf("%s failed: %v", op, err),
		Err:     err,
	}
}
