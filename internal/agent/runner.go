package agent

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"

	"github.com/benreeve1984/ronin/internal/llm"
	"github.com/benreeve1984/ronin/internal/tools"
)

// Runner owns one conversation with the model. It is not safe for concurrent
// use; the CLI drives it from a single goroutine.
type Runner struct {
	client   *llm.Client
	executor *tools.Executor
	logger   *Logger
	system   string
	tools    []anthropic.ToolUnionParam
	maxSteps int
	out      io.Writer
	usage    llm.Usage
}

// Options configures a Runner.
type Options struct {
	Client   *llm.Client
	Executor *tools.Executor
	Logger   *Logger
	System   string
	MaxSteps int
	Out      io.Writer
}

const defaultMaxSteps = 10

// NewRunner wires the loop together. Tool definitions come from the closed
// operation set, so the model can never be offered a tool the executor does
// not implement.
func NewRunner(opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = NopLogger()
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = defaultMaxSteps
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	return &Runner{
		client:   opts.Client,
		executor: opts.Executor,
		logger:   opts.Logger,
		system:   opts.System,
		tools:    llm.BuildTools(tools.Definitions()),
		maxSteps: opts.MaxSteps,
		out:      opts.Out,
	}
}

// Usage returns the cumulative token usage for this runner.
func (r *Runner) Usage() llm.Usage { return r.usage }

// Run executes one user turn: it sends the conversation, performs any tool
// calls the model requests, and repeats until the model responds without
// tools or the step limit is hit. The returned slice is the conversation
// including everything this turn added.
func (r *Runner) Run(ctx context.Context, messages []anthropic.MessageParam) ([]anthropic.MessageParam, error) {
	for step := 1; step <= r.maxSteps; step++ {
		start := time.Now()
		msg, err := r.client.Chat(ctx, r.system, r.tools, messages)
		if err != nil {
			return messages, err
		}
		r.usage.Add(msg)
		r.logger.LLMCall(r.client.Model(), msg.Usage.InputTokens, msg.Usage.OutputTokens, time.Since(start))

		var toolUses []anthropic.ContentBlockUnion
		for _, block := range msg.Content {
			switch block.Type {
			case "text":
				if text := strings.TrimSpace(block.Text); text != "" {
					fmt.Fprintln(r.out, text)
				}
			case "tool_use":
				toolUses = append(toolUses, block)
			}
		}

		messages = append(messages, msg.ToParam())
		r.logger.Step(step, len(toolUses))

		if msg.StopReason != anthropic.StopReasonToolUse || len(toolUses) == 0 {
			return messages, nil
		}

		results := make([]anthropic.ContentBlockParamUnion, 0, len(toolUses))
		for _, use := range toolUses {
			results = append(results, r.runTool(ctx, use))
		}
		messages = append(messages, anthropic.NewUserMessage(results...))
	}

	fmt.Fprintln(r.out, color.YellowString("reached step limit (%d); stopping this turn", r.maxSteps))
	return messages, nil
}

// runTool executes one tool_use block and renders the outcome as a tool
// result. Rejected and failed calls go back as errors so the model can adjust
// instead of assuming the change landed.
func (r *Runner) runTool(ctx context.Context, use anthropic.ContentBlockUnion) anthropic.ContentBlockParamUnion {
	color.New(color.FgCyan).Fprintf(r.out, "→ %s\n", use.Name)

	req, err := tools.DecodeRequest(use.Name, []byte(use.Input))
	if err != nil {
		r.logger.Error("tool decode failed", err)
		fmt.Fprintln(r.out, color.RedString("  %v", err))
		return anthropic.NewToolResultBlock(use.ID, fmt.Sprintf("invalid tool call: %v", err), true)
	}

	res := r.executor.Execute(ctx, req)
	r.printResult(res)
	isError := res.Status == tools.StatusFailed || res.Status == tools.StatusRejected
	return anthropic.NewToolResultBlock(use.ID, RenderResult(res), isError)
}

func (r *Runner) printResult(res tools.Result) {
	switch res.Status {
	case tools.StatusOK:
		fmt.Fprintf(r.out, "  %s\n", res.Summary)
	case tools.StatusSkipped:
		fmt.Fprintf(r.out, "  %s\n", color.YellowString(res.Summary))
	case tools.StatusRejected:
		fmt.Fprintf(r.out, "  %s\n", color.YellowString(res.Summary))
	case tools.StatusFailed:
		fmt.Fprintf(r.out, "  %s\n", color.RedString("error: %v", res.Err))
	}
}

// RenderResult formats a tool result as the text the model receives.
func RenderResult(res tools.Result) string {
	switch res.Status {
	case tools.StatusFailed:
		return fmt.Sprintf("Error (%s): %v", res.Err.Kind, res.Err)
	case tools.StatusRejected:
		return res.Summary
	case tools.StatusSkipped:
		if res.Diff != "" {
			return res.Summary + "\n\n" + res.Diff
		}
		return res.Summary
	}

	var sb strings.Builder
	sb.WriteString(res.Summary)

	if len(res.Files) > 0 {
		sb.WriteString("\n")
		for _, f := range res.Files {
			fmt.Fprintf(&sb, "\n%s (%d lines, %d bytes)", f.Path, f.Lines, f.Size)
		}
	}
	if len(res.Matches) > 0 {
		sb.WriteString("\n")
		for _, m := range res.Matches {
			fmt.Fprintf(&sb, "\n%s:%d:", m.Path, m.Line)
			for _, line := range m.Before {
				fmt.Fprintf(&sb, "\n  %s", line)
			}
			fmt.Fprintf(&sb, "\n> %s", m.Text)
			for _, line := range m.After {
				fmt.Fprintf(&sb, "\n  %s", line)
			}
		}
	}
	if res.Content != "" {
		sb.WriteString("\n\n")
		sb.WriteString(res.Content)
	}
	if res.Diff != "" {
		sb.WriteString("\n\n")
		sb.WriteString(res.Diff)
	}
	return sb.String()
}
