package tools

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Policy controls whether computed changes reach the disk. It is set once at
// session start and is read-only during a tool invocation.
type Policy string

const (
	// PolicyAutoApprove applies every computed change without asking.
	PolicyAutoApprove Policy = "auto_approve"
	// PolicyInteractive asks the decision provider before each change.
	PolicyInteractive Policy = "interactive"
	// PolicyDryRun computes and records changes but never touches disk.
	PolicyDryRun Policy = "dry_run"
)

// ParsePolicy validates a policy name from configuration.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyAutoApprove, PolicyInteractive, PolicyDryRun:
		return Policy(s), nil
	default:
		return "", fmt.Errorf("invalid execution policy %q: use %q, %q, or %q",
			s, PolicyAutoApprove, PolicyInteractive, PolicyDryRun)
	}
}

// Decision is the gate's verdict on a proposed change.
type Decision int

const (
	DecisionApplied Decision = iota
	DecisionSkipped
	DecisionRejected
)

// Proposal describes a pending mutation for presentation to the confirming
// side: the target path, a one-line summary, and the full diff (empty for
// create/delete where the summary carries the preview).
type Proposal struct {
	Path    string
	Summary string
	Diff    string
}

// DecisionProvider supplies yes/no answers for interactive confirmation.
// The terminal prompt in cmd/ronin implements it for real sessions; tests
// substitute a scripted provider. Confirm blocks until a decision arrives or
// ctx is cancelled; cancellation counts as declining.
type DecisionProvider interface {
	Confirm(ctx context.Context, p Proposal) (bool, error)
}

// DecisionFunc adapts a function to the DecisionProvider interface.
type DecisionFunc func(ctx context.Context, p Proposal) (bool, error)

func (f DecisionFunc) Confirm(ctx context.Context, p Proposal) (bool, error) { return f(ctx, p) }

// Gate decides whether a computed change is committed, per the session
// policy. The gate only decides; the executor performs the staged write when
// the decision is DecisionApplied, so a rejection can never leave a partial
// write behind.
type Gate struct {
	policy   Policy
	provider DecisionProvider
	logger   *zap.Logger
}

// NewGate creates a confirmation gate. The provider may be nil unless the
// policy is interactive. A nil logger disables recording.
func NewGate(policy Policy, provider DecisionProvider, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{policy: policy, provider: provider, logger: logger}
}

// Policy returns the gate's execution policy.
func (g *Gate) Policy() Policy { return g.policy }

// Decide resolves a proposal to a Decision. Dry-run records the would-be diff
// and skips; auto-approve applies; interactive blocks on the provider with no
// timeout of its own. Context cancellation while waiting is equivalent to a
// rejection: the target file stays untouched.
func (g *Gate) Decide(ctx context.Context, p Proposal) (Decision, error) {
	switch g.policy {
	case PolicyDryRun:
		g.logger.Info("dry run",
			zap.String("path", p.Path),
			zap.String("summary", p.Summary),
			zap.String("diff", p.Diff),
		)
		return DecisionSkipped, nil

	case PolicyAutoApprove:
		g.logger.Info("auto approved", zap.String("path", p.Path), zap.String("summary", p.Summary))
		return DecisionApplied, nil

	case PolicyInteractive:
		if g.provider == nil {
			return DecisionRejected, fmt.Errorf("interactive policy requires a decision provider")
		}
		if err := ctx.Err(); err != nil {
			return DecisionRejected, err
		}
		approved, err := g.provider.Confirm(ctx, p)
		if err != nil {
			g.logger.Info("confirmation aborted", zap.String("path", p.Path), zap.Error(err))
			return DecisionRejected, err
		}
		if !approved {
			g.logger.Info("user declined", zap.String("path", p.Path))
			return DecisionRejected, nil
		}
		g.logger.Info("user approved", zap.String("path", p.Path))
		return DecisionApplied, nil

	default:
		return DecisionRejected, fmt.Errorf("unknown execution policy %q", g.policy)
	}
}
