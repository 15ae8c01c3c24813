package tools

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/benreeve1984/ronin/internal/patch"
	"github.com/benreeve1984/ronin/internal/sandbox"
)

// Op is the closed set of tool operations. Dispatch is a single exhaustive
// switch; adding an operation is a compile-time enumeration change, not a
// registry entry.
type Op string

const (
	OpListFiles   Op = "list_files"
	OpReadFile    Op = "read_file"
	OpCreateFile  Op = "create_file"
	OpDeleteFile  Op = "delete_file"
	OpModifyFile  Op = "modify_file"
	OpSearchFiles Op = "search_files"
)

// ParseOp validates an operation name.
func ParseOp(s string) (Op, error) {
	switch Op(s) {
	case OpListFiles, OpReadFile, OpCreateFile, OpDeleteFile, OpModifyFile, OpSearchFiles:
		return Op(s), nil
	default:
		return "", fmt.Errorf("unknown tool %q", s)
	}
}

// Mutating reports whether the operation changes on-disk state and therefore
// routes through the confirmation gate.
func (o Op) Mutating() bool {
	switch o {
	case OpCreateFile, OpDeleteFile, OpModifyFile:
		return true
	default:
		return false
	}
}

// Request is the typed argument record for one tool invocation. Fields
// irrelevant to the requested operation are ignored.
type Request struct {
	Op Op

	// Path is the target file, relative to the sandbox root or absolute.
	Path string

	// modify_file arguments.
	Anchor     string
	Action     string
	Content    string
	Occurrence int

	// create_file: allow replacing an existing file when set.
	Overwrite bool

	// read_file: optional 1-indexed inclusive line range (0 = unbounded).
	StartLine int
	EndLine   int

	// list_files / search_files: glob over relative paths ("**" supported).
	Pattern string

	// search_files arguments. ContextLines is the exact count; zero means no
	// context. DecodeRequest fills in the default when the argument is omitted.
	Query         string
	CaseSensitive bool
	ContextLines  int
}

// Session is the immutable per-session context threaded through every call:
// sandbox guard, execution policy, limits, and the confirmation collaborator.
// Nothing here changes between session start and shutdown.
type Session struct {
	Guard       *sandbox.Guard
	Policy      Policy
	MaxFileSize int64
	Provider    DecisionProvider
	Logger      *zap.Logger
}

// Executor runs tool requests to completion, one at a time. Each call is
// validated, resolved through the path guard, computed, gated if it mutates,
// and reported as exactly one Result; failures carry their originating error
// kind and are never swallowed.
type Executor struct {
	session Session
	gate    *Gate
	logger  *zap.Logger
}

// NewExecutor creates an executor for a session.
func NewExecutor(s Session) *Executor {
	if s.Logger == nil {
		s.Logger = zap.NewNop()
	}
	if s.MaxFileSize <= 0 {
		s.MaxFileSize = DefaultMaxFileSize
	}
	return &Executor{
		session: s,
		gate:    NewGate(s.Policy, s.Provider, s.Logger),
		logger:  s.Logger,
	}
}

// DefaultMaxFileSize bounds whole-file reads when the session does not
// configure a limit.
const DefaultMaxFileSize = 120 * 1024

// Root returns the canonical sandbox root for this session.
func (x *Executor) Root() string { return x.session.Guard.Root() }

// Policy returns the session's execution policy.
func (x *Executor) Policy() Policy { return x.session.Policy }

// Execute runs one tool request and returns its structured result.
func (x *Executor) Execute(ctx context.Context, req Request) Result {
	start := time.Now()

	var res Result
	switch req.Op {
	case OpListFiles:
		res = x.listFiles(req)
	case OpReadFile:
		res = x.readFile(req)
	case OpSearchFiles:
		res = x.searchFiles(req)
	case OpCreateFile:
		res = x.createFile(ctx, req)
	case OpDeleteFile:
		res = x.deleteFile(ctx, req)
	case OpModifyFile:
		res = x.modifyFile(ctx, req)
	default:
		res = failedResult(req.Op, &ToolError{
			Kind: KindInvalidArgument,
			Err:  fmt.Errorf("unknown tool %q", req.Op),
		})
	}

	fields := []zap.Field{
		zap.String("tool", string(req.Op)),
		zap.String("path", req.Path),
		zap.String("status", res.Status.String()),
		zap.Duration("duration", time.Since(start)),
	}
	if res.Err != nil {
		fields = append(fields, zap.String("error_kind", res.Err.Kind.String()), zap.Error(res.Err))
	}
	x.logger.Info("tool executed", fields...)

	return res
}

// resolveExisting validates the path and additionally requires the file to
// exist on disk.
func (x *Executor) resolveExisting(op Op, path string) (sandbox.Handle, os.FileInfo, *ToolError) {
	handle, err := x.session.Guard.Resolve(path)
	if err != nil {
		return sandbox.Handle{}, nil, classifyError(path, err)
	}
	info, err := os.Stat(handle.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return sandbox.Handle{}, nil, pathError(KindFileNotFound, path, err)
		}
		return sandbox.Handle{}, nil, pathError(KindIOFailure, path, err)
	}
	if info.IsDir() {
		return sandbox.Handle{}, nil, pathError(KindUnsupportedFileType, path, fmt.Errorf("%q is a directory", path))
	}
	return handle, info, nil
}

// checkSize enforces the configured maximum before any content is loaded, so
// an oversized file fails fast instead of being partially read.
func (x *Executor) checkSize(path string, info os.FileInfo) *ToolError {
	if info.Size() > x.session.MaxFileSize {
		return pathError(KindFileTooLarge, path,
			fmt.Errorf("file is %d bytes, limit is %d", info.Size(), x.session.MaxFileSize))
	}
	return nil
}

// modifyFile applies an anchor-based edit: resolve the target, locate the
// anchor span(s), compute the patch against the unmodified content, then gate
// and commit. The file on disk is only written after an approved decision, so
// any failure before that point leaves it byte-identical.
func (x *Executor) modifyFile(ctx context.Context, req Request) Result {
	action, err := patch.ParseAction(req.Action)
	if err != nil {
		return failedResult(req.Op, &ToolError{Kind: KindInvalidArgument, Path: req.Path, Err: err})
	}

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

	spans, err := patch.FindSpans(content, req.Anchor, action, req.Occurrence)
	if err != nil {
		return failedResult(req.Op, classifyError(req.Path, err))
	}

	p := patch.Apply(content, spans, action, req.Content)
	diff := p.UnifiedDiff(req.Path)
	summary := fmt.Sprintf("modify %s: %s %s, %s", req.Path, action, describeAnchor(req.Anchor), p.Summary())

	// A no-op patch is valid but needs no confirmation and no write. Dry run
	// still reports Skipped so the caller can tell nothing was committed.
	if !p.Changed() && x.session.Policy != PolicyDryRun {
		return okResult(req.Op, req.Path, fmt.Sprintf("no changes to %s (content already matches)", req.Path))
	}

	decision, err := x.gate.Decide(ctx, Proposal{Path: req.Path, Summary: summary, Diff: diff})
	switch decision {
	case DecisionSkipped:
		return skippedResult(req.Op, req.Path, "[dry run] would "+summary, diff)
	case DecisionRejected:
		reason := "user declined changes to " + req.Path
		if err != nil {
			reason = fmt.Sprintf("confirmation aborted for %s: %v", req.Path, err)
		}
		return rejectedResult(req.Op, req.Path, reason)
	}

	if err := writeFileAtomic(handle.Path, p.New, false); err != nil {
		return failedResult(req.Op, pathError(KindIOFailure, req.Path, err))
	}

	res := okResult(req.Op, req.Path, fmt.Sprintf("modified %s: %s", req.Path, p.Summary()))
	res.Diff = diff
	return res
}

func describeAnchor(anchor string) string {
	if anchor == "" {
		return "file boundary"
	}
	if len(anchor) > 30 {
		return fmt.Sprintf("anchor %q...", anchor[:30])
	}
	return fmt.Sprintf("anchor %q", anchor)
}
