package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCreateFile(t *testing.T) {
	x, root := newTestExecutor(t, PolicyAutoApprove, nil)

	res := x.Execute(context.Background(), Request{
		Op: OpCreateFile, Path: "docs/new.md", Content: "# New\n",
	})
	if res.Status != StatusOK {
		t.Fatalf("status = %v, err = %v", res.Status, res.Err)
	}
	if got := readTestFile(t, filepath.Join(root, "docs", "new.md")); got != "# New\n" {
		t.Errorf("content = %q", got)
	}
}

func TestCreateReadRoundTrip(t *testing.T) {
	x, _ := newTestExecutor(t, PolicyAutoApprove, nil)
	content := "exact content\nwith two lines"

	res := x.Execute(context.Background(), Request{Op: OpCreateFile, Path: "rt.md", Content: content})
	if res.Status != StatusOK {
		t.Fatalf("create: status = %v, err = %v", res.Status, res.Err)
	}

	res = x.Execute(context.Background(), Request{Op: OpReadFile, Path: "rt.md"})
	if res.Status != StatusOK {
		t.Fatalf("read: status = %v, err = %v", res.Status, res.Err)
	}
	if res.Content != content {
		t.Errorf("round trip content = %q, want %q", res.Content, content)
	}
}

func TestDeleteThenReadFails(t *testing.T) {
	x, root := newTestExecutor(t, PolicyAutoApprove, nil)
	writeTestFile(t, root, "gone.md", "x")

	res := x.Execute(context.Background(), Request{Op: OpDeleteFile, Path: "gone.md"})
	if res.Status != StatusOK {
		t.Fatalf("delete: status = %v, err = %v", res.Status, res.Err)
	}

	res = x.Execute(context.Background(), Request{Op: OpReadFile, Path: "gone.md"})
	if res.Status != StatusFailed || res.Err.Kind != KindFileNotFound {
		t.Fatalf("read after delete: status = %v, err = %v", res.Status, res.Err)
	}
}

func TestCreateFileAlreadyExists(t *testing.T) {
	x, root := newTestExecutor(t, PolicyAutoApprove, nil)
	path := writeTestFile(t, root, "taken.md", "original")

	res := x.Execute(context.Background(), Request{
		Op: OpCreateFile, Path: "taken.md", Content: "clobber",
	})
	if res.Status != StatusFailed || res.Err.Kind != KindFileAlreadyExists {
		t.Fatalf("status = %v, err = %v", res.Status, res.Err)
	}
	if got := readTestFile(t, path); got != "original" {
		t.Errorf("content = %q", got)
	}

	// Overwrite is an explicit opt-in.
	res = x.Execute(context.Background(), Request{
		Op: OpCreateFile, Path: "taken.md", Content: "replaced", Overwrite: true,
	})
	if res.Status != StatusOK {
		t.Fatalf("overwrite: status = %v, err = %v", res.Status, res.Err)
	}
	if got := readTestFile(t, path); got != "replaced" {
		t.Errorf("content = %q", got)
	}
}

func TestCreateFileOutsideSandbox(t *testing.T) {
	x, _ := newTestExecutor(t, PolicyAutoApprove, nil)

	res := x.Execute(context.Background(), Request{
		Op: OpCreateFile, Path: "../outside.md", Content: "x",
	})
	if res.Status != StatusFailed || res.Err.Kind != KindSandboxViolation {
		t.Fatalf("status = %v, err = %v", res.Status, res.Err)
	}
}

func TestDeleteFile(t *testing.T) {
	x, root := newTestExecutor(t, PolicyAutoApprove, nil)
	path := writeTestFile(t, root, "doomed.md", "bye")

	res := x.Execute(context.Background(), Request{Op: OpDeleteFile, Path: "doomed.md"})
	if res.Status != StatusOK {
		t.Fatalf("status = %v, err = %v", res.Status, res.Err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file still exists after delete")
	}

	// Deleting it again fails cleanly.
	res = x.Execute(context.Background(), Request{Op: OpDeleteFile, Path: "doomed.md"})
	if res.Status != StatusFailed || res.Err.Kind != KindFileNotFound {
		t.Fatalf("second delete: status = %v, err = %v", res.Status, res.Err)
	}
}

func TestDeleteFileDeclined(t *testing.T) {
	x, root := newTestExecutor(t, PolicyInteractive, DecisionFunc(func(context.Context, Proposal) (bool, error) {
		return false, nil
	}))
	path := writeTestFile(t, root, "keep.md", "stay")

	res := x.Execute(context.Background(), Request{Op: OpDeleteFile, Path: "keep.md"})
	if res.Status != StatusRejected {
		t.Fatalf("status = %v", res.Status)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("declined delete removed the file")
	}
}

func TestListFiles(t *testing.T) {
	x, root := newTestExecutor(t, PolicyAutoApprove, nil)
	writeTestFile(t, root, "readme.md", "a\nb\n")
	writeTestFile(t, root, "notes.txt", "c")
	writeTestFile(t, root, "docs/guide.md", "d")
	writeTestFile(t, root, "main.go", "package main") // not allow-listed

	tests := []struct {
		name    string
		pattern string
		want    []string
	}{
		{"all", "", []string{"docs/guide.md", "notes.txt", "readme.md"}},
		{"markdown anywhere", "*.md", []string{"docs/guide.md", "readme.md"}},
		{"subdirectory", "docs/*", []string{"docs/guide.md"}},
		{"doublestar", "**/*.txt", []string{"notes.txt"}},
		{"no match", "*.rst", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := x.Execute(context.Background(), Request{Op: OpListFiles, Pattern: tt.pattern})
			if res.Status != StatusOK {
				t.Fatalf("status = %v, err = %v", res.Status, res.Err)
			}
			var got []string
			for _, f := range res.Files {
				got = append(got, f.Path)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("files = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("files = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestListFilesSkipsSymlinkEscape(t *testing.T) {
	x, root := newTestExecutor(t, PolicyAutoApprove, nil)
	outside := t.TempDir()

	target := filepath.Join(outside, "secret.md")
	if err := os.WriteFile(target, []byte("TOPSECRET token\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(target, filepath.Join(root, "alias.md")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	real := writeTestFile(t, root, "real.md", "visible\n")
	if err := os.Symlink(real, filepath.Join(root, "inner.md")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	res := x.Execute(context.Background(), Request{Op: OpListFiles})
	if res.Status != StatusOK {
		t.Fatalf("status = %v, err = %v", res.Status, res.Err)
	}
	var got []string
	for _, f := range res.Files {
		got = append(got, f.Path)
	}
	// A symlink escaping the sandbox is invisible; one staying inside is not.
	want := []string{"inner.md", "real.md"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("files = %v, want %v", got, want)
	}
}

func TestListFilesInvalidPattern(t *testing.T) {
	x, _ := newTestExecutor(t, PolicyAutoApprove, nil)
	res := x.Execute(context.Background(), Request{Op: OpListFiles, Pattern: "[unclosed"})
	if res.Status != StatusFailed || res.Err.Kind != KindInvalidArgument {
		t.Fatalf("status = %v, err = %v", res.Status, res.Err)
	}
}

func TestListFilesReportsLineCounts(t *testing.T) {
	x, root := newTestExecutor(t, PolicyAutoApprove, nil)
	writeTestFile(t, root, "three.md", "a\nb\nc\n")

	res := x.Execute(context.Background(), Request{Op: OpListFiles})
	if res.Status != StatusOK || len(res.Files) != 1 {
		t.Fatalf("res = %+v", res)
	}
	if res.Files[0].Lines != 3 || res.Files[0].Size != 6 {
		t.Errorf("FileInfo = %+v", res.Files[0])
	}
}

func TestReadFile(t *testing.T) {
	x, root := newTestExecutor(t, PolicyAutoApprove, nil)
	writeTestFile(t, root, "f.md", "l1\nl2\nl3\nl4\nl5\n")

	tests := []struct {
		name      string
		start     int
		end       int
		want      string
	}{
		{"whole file", 0, 0, "l1\nl2\nl3\nl4\nl5\n"},
		{"middle range", 2, 4, "l2\nl3\nl4"},
		{"from line to end", 4, 0, "l4\nl5\n"},
		{"end clamps", 4, 99, "l4\nl5\n"},
		{"start beyond file", 99, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := x.Execute(context.Background(), Request{
				Op: OpReadFile, Path: "f.md", StartLine: tt.start, EndLine: tt.end,
			})
			if res.Status != StatusOK {
				t.Fatalf("status = %v, err = %v", res.Status, res.Err)
			}
			if res.Content != tt.want {
				t.Errorf("Content = %q, want %q", res.Content, tt.want)
			}
		})
	}
}

func TestReadFileRangedSummary(t *testing.T) {
	x, root := newTestExecutor(t, PolicyAutoApprove, nil)
	writeTestFile(t, root, "f.md", "l1\nl2\nl3\nl4\nl5\n")

	res := x.Execute(context.Background(), Request{Op: OpReadFile, Path: "f.md", StartLine: 2, EndLine: 4})
	if res.Status != StatusOK {
		t.Fatalf("status = %v, err = %v", res.Status, res.Err)
	}
	// The summary describes the returned slice, not the whole file.
	if !strings.Contains(res.Summary, "lines 2-4") || !strings.Contains(res.Summary, "3 of 5") {
		t.Errorf("Summary = %q", res.Summary)
	}

	// Clamped bounds are reported as used.
	res = x.Execute(context.Background(), Request{Op: OpReadFile, Path: "f.md", StartLine: 4, EndLine: 99})
	if res.Status != StatusOK {
		t.Fatalf("status = %v, err = %v", res.Status, res.Err)
	}
	if !strings.Contains(res.Summary, "lines 4-5") {
		t.Errorf("Summary = %q", res.Summary)
	}
}

func TestReadFileErrors(t *testing.T) {
	x, _ := newTestExecutor(t, PolicyAutoApprove, nil)

	res := x.Execute(context.Background(), Request{Op: OpReadFile, Path: "absent.md"})
	if res.Status != StatusFailed || res.Err.Kind != KindFileNotFound {
		t.Fatalf("status = %v, err = %v", res.Status, res.Err)
	}
}

func TestCountLines(t *testing.T) {
	tests := []struct {
		content string
		want    int
	}{
		{"", 0},
		{"one", 1},
		{"one\n", 1},
		{"one\ntwo", 2},
		{"one\ntwo\n", 2},
		{"\n", 1},
	}
	for _, tt := range tests {
		if got := countLines(tt.content); got != tt.want {
			t.Errorf("countLines(%q) = %d, want %d", tt.content, got, tt.want)
		}
	}
}

func TestWriteFileAtomicPreservesMode(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "exec.md")
	if err := os.WriteFile(path, []byte("old"), 0600); err != nil {
		t.Fatal(err)
	}

	if err := writeFileAtomic(path, "new", false); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
	if got := readTestFile(t, path); got != "new" {
		t.Errorf("content = %q", got)
	}

	// No stray temp files left behind.
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".ronin-") {
			t.Errorf("leftover temp file %s", e.Name())
		}
	}
}
