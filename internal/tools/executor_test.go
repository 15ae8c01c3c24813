package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/benreeve1984/ronin/internal/sandbox"
)

// newTestExecutor builds an executor over a fresh temp workspace.
func newTestExecutor(t *testing.T, policy Policy, provider DecisionProvider) (*Executor, string) {
	t.Helper()
	root := t.TempDir()
	guard, err := sandbox.NewGuard(root, []string{".md", ".txt"})
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}
	x := NewExecutor(Session{Guard: guard, Policy: policy, Provider: provider})
	return x, guard.Root()
}

func writeTestFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readTestFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestModifyFileRoundTrip(t *testing.T) {
	x, root := newTestExecutor(t, PolicyAutoApprove, nil)
	path := writeTestFile(t, root, "notes.md", "# Notes\n")

	res := x.Execute(context.Background(), Request{
		Op: OpModifyFile, Path: "notes.md",
		Anchor: "", Action: "after", Content: "appended\n", Occurrence: 1,
	})
	if res.Status != StatusOK {
		t.Fatalf("status = %v, err = %v", res.Status, res.Err)
	}
	if got := readTestFile(t, path); got != "# Notes\nappended\n" {
		t.Errorf("content = %q", got)
	}
	if res.Diff == "" {
		t.Error("expected a diff on an applied modification")
	}
}

func TestModifyFileOccurrences(t *testing.T) {
	tests := []struct {
		name       string
		occurrence int
		want       string
	}{
		{"first", 1, "b-a-a"},
		{"last", -1, "a-a-b"},
		{"all", 0, "b-b-b"},
		{"second", 2, "a-b-a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, root := newTestExecutor(t, PolicyAutoApprove, nil)
			path := writeTestFile(t, root, "f.txt", "a-a-a")

			res := x.Execute(context.Background(), Request{
				Op: OpModifyFile, Path: "f.txt",
				Anchor: "a", Action: "replace", Content: "b", Occurrence: tt.occurrence,
			})
			if res.Status != StatusOK {
				t.Fatalf("status = %v, err = %v", res.Status, res.Err)
			}
			if got := readTestFile(t, path); got != tt.want {
				t.Errorf("content = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestModifyFileAnchorNotFoundLeavesDiskUnchanged(t *testing.T) {
	x, root := newTestExecutor(t, PolicyAutoApprove, nil)
	path := writeTestFile(t, root, "f.md", "original content")

	res := x.Execute(context.Background(), Request{
		Op: OpModifyFile, Path: "f.md",
		Anchor: "missing", Action: "replace", Content: "x", Occurrence: 1,
	})
	if res.Status != StatusFailed || res.Err.Kind != KindAnchorNotFound {
		t.Fatalf("status = %v, err = %v", res.Status, res.Err)
	}
	if got := readTestFile(t, path); got != "original content" {
		t.Errorf("file changed after failed modify: %q", got)
	}
}

func TestModifyFileInvalidOccurrence(t *testing.T) {
	x, root := newTestExecutor(t, PolicyAutoApprove, nil)
	writeTestFile(t, root, "f.md", "a b a")

	res := x.Execute(context.Background(), Request{
		Op: OpModifyFile, Path: "f.md",
		Anchor: "a", Action: "replace", Content: "x", Occurrence: 5,
	})
	if res.Status != StatusFailed || res.Err.Kind != KindInvalidOccurrence {
		t.Fatalf("status = %v, err = %v", res.Status, res.Err)
	}
	if res.Err.Occurrence != 5 {
		t.Errorf("Occurrence = %d, want 5", res.Err.Occurrence)
	}
}

func TestModifyFileNoOp(t *testing.T) {
	x, root := newTestExecutor(t, PolicyInteractive, DecisionFunc(func(context.Context, Proposal) (bool, error) {
		t.Error("no-op modification must not prompt")
		return false, nil
	}))
	path := writeTestFile(t, root, "f.md", "same text")

	res := x.Execute(context.Background(), Request{
		Op: OpModifyFile, Path: "f.md",
		Anchor: "same", Action: "replace", Content: "same", Occurrence: 1,
	})
	if res.Status != StatusOK {
		t.Fatalf("status = %v, err = %v", res.Status, res.Err)
	}
	if !strings.Contains(res.Summary, "no changes") {
		t.Errorf("Summary = %q", res.Summary)
	}
	if got := readTestFile(t, path); got != "same text" {
		t.Errorf("content = %q", got)
	}
}

func TestModifyFileErrors(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want ErrorKind
	}{
		{
			"missing file",
			Request{Op: OpModifyFile, Path: "absent.md", Action: "after", Occurrence: 1},
			KindFileNotFound,
		},
		{
			"escape",
			Request{Op: OpModifyFile, Path: "../escape.md", Action: "after", Occurrence: 1},
			KindSandboxViolation,
		},
		{
			"wrong extension",
			Request{Op: OpModifyFile, Path: "main.go", Action: "after", Occurrence: 1},
			KindUnsupportedFileType,
		},
		{
			"bad action",
			Request{Op: OpModifyFile, Path: "f.md", Action: "append", Occurrence: 1},
			KindInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, root := newTestExecutor(t, PolicyAutoApprove, nil)
			writeTestFile(t, root, "f.md", "content")

			res := x.Execute(context.Background(), tt.req)
			if res.Status != StatusFailed {
				t.Fatalf("status = %v", res.Status)
			}
			if res.Err.Kind != tt.want {
				t.Errorf("kind = %v, want %v", res.Err.Kind, tt.want)
			}
		})
	}
}

func TestModifyFileDirectoryTarget(t *testing.T) {
	x, root := newTestExecutor(t, PolicyAutoApprove, nil)
	if err := os.MkdirAll(filepath.Join(root, "dir.md"), 0755); err != nil {
		t.Fatal(err)
	}

	res := x.Execute(context.Background(), Request{
		Op: OpModifyFile, Path: "dir.md", Action: "after", Content: "x", Occurrence: 1,
	})
	if res.Status != StatusFailed || res.Err.Kind != KindUnsupportedFileType {
		t.Fatalf("status = %v, err = %v", res.Status, res.Err)
	}
}

func TestModifyFileTooLarge(t *testing.T) {
	root := t.TempDir()
	guard, err := sandbox.NewGuard(root, []string{".md"})
	if err != nil {
		t.Fatal(err)
	}
	x := NewExecutor(Session{Guard: guard, Policy: PolicyAutoApprove, MaxFileSize: 10})
	path := writeTestFile(t, root, "big.md", strings.Repeat("x", 100))

	res := x.Execute(context.Background(), Request{
		Op: OpModifyFile, Path: "big.md", Action: "after", Content: "y", Occurrence: 1,
	})
	if res.Status != StatusFailed || res.Err.Kind != KindFileTooLarge {
		t.Fatalf("status = %v, err = %v", res.Status, res.Err)
	}
	if got := readTestFile(t, path); got != strings.Repeat("x", 100) {
		t.Error("oversized file was modified")
	}
}

func TestDryRunNeverMutates(t *testing.T) {
	x, root := newTestExecutor(t, PolicyDryRun, nil)
	existing := writeTestFile(t, root, "keep.md", "before")

	requests := []Request{
		{Op: OpModifyFile, Path: "keep.md", Anchor: "before", Action: "replace", Content: "after", Occurrence: 1},
		{Op: OpCreateFile, Path: "new.md", Content: "hello"},
		{Op: OpDeleteFile, Path: "keep.md"},
	}
	for _, req := range requests {
		res := x.Execute(context.Background(), req)
		if res.Status != StatusSkipped {
			t.Errorf("%s: status = %v, err = %v", req.Op, res.Status, res.Err)
		}
		if !strings.Contains(res.Summary, "[dry run]") {
			t.Errorf("%s: summary = %q", req.Op, res.Summary)
		}
	}

	if got := readTestFile(t, existing); got != "before" {
		t.Errorf("dry run modified file: %q", got)
	}
	if _, err := os.Stat(filepath.Join(root, "new.md")); !os.IsNotExist(err) {
		t.Error("dry run created a file")
	}
}

func TestDryRunNoOpStillSkips(t *testing.T) {
	x, root := newTestExecutor(t, PolicyDryRun, nil)
	writeTestFile(t, root, "f.md", "same")

	res := x.Execute(context.Background(), Request{
		Op: OpModifyFile, Path: "f.md", Anchor: "same", Action: "replace", Content: "same", Occurrence: 1,
	})
	if res.Status != StatusSkipped {
		t.Fatalf("status = %v, want skipped", res.Status)
	}
}

func TestInteractiveDecisions(t *testing.T) {
	tests := []struct {
		name       string
		provider   DecisionProvider
		wantStatus Status
		wantOnDisk string
	}{
		{
			"approved",
			DecisionFunc(func(context.Context, Proposal) (bool, error) { return true, nil }),
			StatusOK,
			"after",
		},
		{
			"declined",
			DecisionFunc(func(context.Context, Proposal) (bool, error) { return false, nil }),
			StatusRejected,
			"before",
		},
		{
			"provider error",
			DecisionFunc(func(context.Context, Proposal) (bool, error) { return false, fmt.Errorf("tty gone") }),
			StatusRejected,
			"before",
		},
		{
			"nil provider",
			nil,
			StatusRejected,
			"before",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, root := newTestExecutor(t, PolicyInteractive, tt.provider)
			path := writeTestFile(t, root, "f.md", "before")

			res := x.Execute(context.Background(), Request{
				Op: OpModifyFile, Path: "f.md", Anchor: "before", Action: "replace", Content: "after", Occurrence: 1,
			})
			if res.Status != tt.wantStatus {
				t.Fatalf("status = %v, want %v (err = %v)", res.Status, tt.wantStatus, res.Err)
			}
			if got := readTestFile(t, path); got != tt.wantOnDisk {
				t.Errorf("content = %q, want %q", got, tt.wantOnDisk)
			}
		})
	}
}

func TestInteractiveProposalCarriesDiff(t *testing.T) {
	var seen Proposal
	x, root := newTestExecutor(t, PolicyInteractive, DecisionFunc(func(_ context.Context, p Proposal) (bool, error) {
		seen = p
		return true, nil
	}))
	writeTestFile(t, root, "f.md", "one\ntwo\n")

	res := x.Execute(context.Background(), Request{
		Op: OpModifyFile, Path: "f.md", Anchor: "two", Action: "replace", Content: "TWO", Occurrence: 1,
	})
	if res.Status != StatusOK {
		t.Fatalf("status = %v, err = %v", res.Status, res.Err)
	}
	if seen.Path != "f.md" || !strings.Contains(seen.Diff, "+TWO") {
		t.Errorf("proposal = %+v", seen)
	}
}

func TestContextCancelledRejects(t *testing.T) {
	x, root := newTestExecutor(t, PolicyInteractive, DecisionFunc(func(context.Context, Proposal) (bool, error) {
		t.Error("provider must not be consulted after cancellation")
		return true, nil
	}))
	path := writeTestFile(t, root, "f.md", "before")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := x.Execute(ctx, Request{
		Op: OpModifyFile, Path: "f.md", Anchor: "before", Action: "replace", Content: "after", Occurrence: 1,
	})
	if res.Status != StatusRejected {
		t.Fatalf("status = %v, want rejected", res.Status)
	}
	if got := readTestFile(t, path); got != "before" {
		t.Errorf("content = %q", got)
	}
}

func TestParseOp(t *testing.T) {
	for _, name := range []string{"list_files", "read_file", "create_file", "delete_file", "modify_file", "search_files"} {
		if _, err := ParseOp(name); err != nil {
			t.Errorf("ParseOp(%q): %v", name, err)
		}
	}
	if _, err := ParseOp("run_shell"); err == nil {
		t.Error("ParseOp(run_shell) expected error")
	}
}

func TestOpMutating(t *testing.T) {
	mutating := map[Op]bool{
		OpListFiles: false, OpReadFile: false, OpSearchFiles: false,
		OpCreateFile: true, OpDeleteFile: true, OpModifyFile: true,
	}
	for op, want := range mutating {
		if got := op.Mutating(); got != want {
			t.Errorf("%s.Mutating() = %v, want %v", op, got, want)
		}
	}
}
