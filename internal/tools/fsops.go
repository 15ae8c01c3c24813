package tools

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/benreeve1984/ronin/internal/sandbox"
)

// maxListEntries caps list_files output so a huge tree cannot flood the model.
const maxListEntries = 200

// listFiles walks the sandbox and returns allow-listed files whose
// root-relative path matches the glob pattern. "**" is supported; a bare
// pattern like "*.md" also matches in subdirectories, mirroring the recursive
// glob the tool has always exposed.
func (x *Executor) listFiles(req Request) Result {
	pattern := req.Pattern
	if pattern == "" {
		pattern = "*"
	}
	if !doublestar.ValidatePattern(pattern) {
		return failedResult(req.Op, &ToolError{
			Kind: KindInvalidArgument,
			Err:  fmt.Errorf("invalid glob pattern %q", pattern),
		})
	}

	root := x.session.Guard.Root()
	var files []FileInfo
	truncated := false

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !matchGlob(pattern, rel) {
			return nil
		}
		handle, info, ok := x.walkCandidate(rel)
		if !ok {
			return nil
		}
		if len(files) >= maxListEntries {
			truncated = true
			return filepath.SkipAll
		}
		lines, err := countFileLines(handle.Path)
		if err != nil {
			return err
		}
		files = append(files, FileInfo{Path: rel, Size: info.Size(), Lines: lines})
		return nil
	})
	if err != nil {
		return failedResult(req.Op, pathError(KindIOFailure, "", err))
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	summary := fmt.Sprintf("found %d file(s) matching %q", len(files), pattern)
	if truncated {
		summary += fmt.Sprintf(" (showing first %d)", maxListEntries)
	}
	res := okResult(req.Op, "", summary)
	res.Files = files
	return res
}

// walkCandidate vets a file met during a workspace walk the same way
// path-addressed operations are vetted: through the guard, so a symlink
// pointing outside the sandbox is skipped instead of followed. Entries that
// fail validation, no longer exist, or turn out to be directories are not
// candidates.
func (x *Executor) walkCandidate(rel string) (sandbox.Handle, os.FileInfo, bool) {
	handle, err := x.session.Guard.Resolve(rel)
	if err != nil {
		return sandbox.Handle{}, nil, false
	}
	info, err := os.Stat(handle.Path)
	if err != nil || info.IsDir() {
		return sandbox.Handle{}, nil, false
	}
	return handle, info, true
}

// matchGlob matches a root-relative slash path against the pattern, also
// trying the basename-anywhere form so "*.md" finds docs/guide.md.
func matchGlob(pattern, rel string) bool {
	if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
		return true
	}
	if !strings.ContainsRune(pattern, '/') {
		if ok, err := doublestar.Match(pattern, filepath.Base(rel)); err == nil && ok {
			return true
		}
	}
	return false
}

// readFile returns file contents, optionally restricted to a 1-indexed
// inclusive line range.
func (x *Executor) readFile(req Request) Result {
	handle, info, terr := x.resolveExisting(req.Op, req.Path)
	if terr != nil {
		return failedResult(req.Op, terr)
	}
	if terr := x.checkSize(req.Path, info); terr != nil {
		return failedResult(req.Op, terr)
	}

	data, err := os.ReadFile(handle.Path)
	if err != nil {
		return failedResult(req.Op, pathError(KindIOFailure, req.Path, err))
	}
	content := string(data)
	total := countLines(content)

	summary := fmt.Sprintf("read %s (%d lines, %d bytes)", req.Path, total, len(data))
	if req.StartLine > 0 || req.EndLine > 0 {
		var start, end int
		content, start, end = sliceLines(content, req.StartLine, req.EndLine)
		if start <= total && end > total {
			end = total
		}
		summary = fmt.Sprintf("read %s lines %d-%d (%d of %d lines)",
			req.Path, start, end, countLines(content), total)
	}

	res := okResult(req.Op, req.Path, summary)
	res.Content = content
	return res
}

// sliceLines extracts lines start..end (1-indexed, inclusive) and returns the
// clamped bounds it actually used. Zero values mean "from the beginning" and
// "to the end". A start past the last line yields an empty slice.
func sliceLines(content string, start, end int) (string, int, int) {
	lines := strings.Split(content, "\n")
	if start < 1 {
		start = 1
	}
	if end < 1 || end > len(lines) {
		end = len(lines)
	}
	if start > len(lines) || start > end {
		return "", start, start - 1
	}
	return strings.Join(lines[start-1:end], "\n"), start, end
}

// createFile creates a new file, confirmation-gated. It fails if the target
// exists unless the request sets Overwrite. Parent directories are created
// as needed.
func (x *Executor) createFile(ctx context.Context, req Request) Result {
	handle, err := x.session.Guard.Resolve(req.Path)
	if err != nil {
		return failedResult(req.Op, classifyError(req.Path, err))
	}

	if _, err := os.Stat(handle.Path); err == nil {
		if !req.Overwrite {
			return failedResult(req.Op, pathError(KindFileAlreadyExists, req.Path,
				fmt.Errorf("file already exists: %s", req.Path)))
		}
	} else if !os.IsNotExist(err) {
		return failedResult(req.Op, pathError(KindIOFailure, req.Path, err))
	}

	detail := fmt.Sprintf("%s (%d lines, %d bytes)", req.Path, countLines(req.Content), len(req.Content))
	summary := "create " + detail
	decision, derr := x.gate.Decide(ctx, Proposal{Path: req.Path, Summary: summary, Diff: previewContent(req.Content)})
	switch decision {
	case DecisionSkipped:
		return skippedResult(req.Op, req.Path, "[dry run] would "+summary, "")
	case DecisionRejected:
		reason := "user declined file creation"
		if derr != nil {
			reason = fmt.Sprintf("confirmation aborted for %s: %v", req.Path, derr)
		}
		return rejectedResult(req.Op, req.Path, reason)
	}

	if err := writeFileAtomic(handle.Path, req.Content, true); err != nil {
		return failedResult(req.Op, pathError(KindIOFailure, req.Path, err))
	}

	return okResult(req.Op, req.Path, "created "+detail)
}

// deleteFile removes a file, confirmation-gated.
func (x *Executor) deleteFile(ctx context.Context, req Request) Result {
	handle, info, terr := x.resolveExisting(req.Op, req.Path)
	if terr != nil {
		return failedResult(req.Op, terr)
	}

	summary := fmt.Sprintf("delete %s (%d bytes)", req.Path, info.Size())
	decision, derr := x.gate.Decide(ctx, Proposal{Path: req.Path, Summary: summary})
	switch decision {
	case DecisionSkipped:
		return skippedResult(req.Op, req.Path, "[dry run] would "+summary, "")
	case DecisionRejected:
		reason := "user declined deletion"
		if derr != nil {
			reason = fmt.Sprintf("confirmation aborted for %s: %v", req.Path, derr)
		}
		return rejectedResult(req.Op, req.Path, reason)
	}

	if err := os.Remove(handle.Path); err != nil {
		return failedResult(req.Op, pathError(KindIOFailure, req.Path, err))
	}

	return okResult(req.Op, req.Path, fmt.Sprintf("deleted %s (%d bytes)", req.Path, info.Size()))
}

// writeFileAtomic stages content in a temp file in the target's directory and
// renames it into place, so a concurrent reader never observes a partial
// write. With mkdirParents set, missing parent directories are created first.
func writeFileAtomic(path, content string, mkdirParents bool) error {
	dir := filepath.Dir(path)
	if mkdirParents {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create parent directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, ".ronin-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	// Preserve the original mode when replacing an existing file.
	if info, err := os.Stat(path); err == nil {
		_ = os.Chmod(tmpPath, info.Mode())
	} else {
		_ = os.Chmod(tmpPath, 0644)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

// countLines counts lines the way an editor does: a trailing newline does not
// start an extra line, and empty content has zero lines.
func countLines(content string) int {
	if content == "" {
		return 0
	}
	n := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		n++
	}
	return n
}

func countFileLines(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return countLines(string(data)), nil
}

// previewContent truncates new-file content for the confirmation prompt.
func previewContent(content string) string {
	const max = 400
	if len(content) > max {
		return content[:max] + "\n... (truncated)"
	}
	return content
}
