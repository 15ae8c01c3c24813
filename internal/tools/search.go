package tools

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	defaultContextLines = 2
	maxSearchMatches    = 100
	maxMatchesPerFile   = 10
)

// searchFiles runs a regex query across allow-listed files whose relative
// path matches the optional glob pattern. Search is the one place regular
// expressions are supported; modification anchors stay literal. Matching is
// case-insensitive unless the request says otherwise, and each match carries
// a few lines of surrounding context.
func (x *Executor) searchFiles(req Request) Result {
	if req.Query == "" {
		return failedResult(req.Op, &ToolError{
			Kind: KindInvalidArgument,
			Err:  fmt.Errorf("search query must be non-empty"),
		})
	}

	expr := req.Query
	if !req.CaseSensitive {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return failedResult(req.Op, &ToolError{
			Kind: KindInvalidArgument,
			Err:  fmt.Errorf("invalid search pattern %q: %w", req.Query, err),
		})
	}

	pattern := req.Pattern
	if pattern == "" {
		pattern = "*"
	}
	contextLines := req.ContextLines
	if contextLines < 0 {
		contextLines = 0
	}

	root := x.session.Guard.Root()
	var matches []SearchMatch
	filesWithMatches := 0
	truncated := false

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
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
		if info.Size() > x.session.MaxFileSize {
			// Oversized files are skipped rather than partially scanned.
			return nil
		}

		data, err := os.ReadFile(handle.Path)
		if err != nil {
			return err
		}

		fileMatches := searchContent(re, rel, string(data), contextLines)
		if len(fileMatches) == 0 {
			return nil
		}
		filesWithMatches++
		matches = append(matches, fileMatches...)
		if len(matches) >= maxSearchMatches {
			truncated = true
			matches = matches[:maxSearchMatches]
			return filepath.SkipAll
		}
		return nil
	})
	if walkErr != nil {
		return failedResult(req.Op, pathError(KindIOFailure, "", walkErr))
	}

	summary := fmt.Sprintf("found %q %d time(s) in %d file(s)", req.Query, len(matches), filesWithMatches)
	if truncated {
		summary += fmt.Sprintf(" (showing first %d)", maxSearchMatches)
	}
	res := okResult(req.Op, "", summary)
	res.Matches = matches
	return res
}

// searchContent collects matching lines in one file, capped per file so a
// single repetitive document cannot crowd out the rest of the tree.
func searchContent(re *regexp.Regexp, rel, content string, contextLines int) []SearchMatch {
	lines := strings.Split(content, "\n")
	var out []SearchMatch
	for i, line := range lines {
		if !re.MatchString(line) {
			continue
		}
		m := SearchMatch{Path: rel, Line: i + 1, Text: line}
		for j := i - contextLines; j < i; j++ {
			if j >= 0 {
				m.Before = append(m.Before, lines[j])
			}
		}
		for j := i + 1; j <= i+contextLines && j < len(lines); j++ {
			m.After = append(m.After, lines[j])
		}
		out = append(out, m)
		if len(out) >= maxMatchesPerFile {
			break
		}
	}
	return out
}
