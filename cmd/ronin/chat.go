package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/benreeve1984/ronin/internal/agent"
)

// runChat is the interactive loop: read a line, run a turn, repeat. The
// conversation accumulates across turns so the model remembers earlier
// changes.
func runChat(ctx context.Context, runner *agent.Runner, workspaceRoot string) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          color.New(color.FgGreen, color.Bold).Sprint("ronin> "),
		HistoryFile:     filepath.Join(workspaceRoot, ".ronin_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("initialize readline: %w", err)
	}
	defer rl.Close()

	fmt.Println("Type a request, or /help for commands.")
	fmt.Println()

	var messages []anthropic.MessageParam
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				break
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if quit := handleCommand(line, &messages, runner); quit {
				break
			}
			continue
		}

		messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(line)))
		messages, err = runner.Run(ctx, messages)
		if err != nil {
			color.Red("error: %v", err)
			// Drop the failed turn so the transcript never ends with an
			// unanswered tool_use block.
			messages = trimToLastUserTurn(messages)
		}
		fmt.Println()
	}

	usage := runner.Usage()
	fmt.Printf("%s\n", color.HiBlackString("tokens: %d in, %d out", usage.InputTokens, usage.OutputTokens))
	return nil
}

// handleCommand runs a slash command; it reports whether the loop should end.
func handleCommand(line string, messages *[]anthropic.MessageParam, runner *agent.Runner) bool {
	switch strings.ToLower(strings.Fields(line)[0]) {
	case "/quit", "/exit", "/q":
		return true
	case "/clear":
		*messages = nil
		fmt.Println("Conversation cleared.")
	case "/usage":
		usage := runner.Usage()
		fmt.Printf("tokens: %d in, %d out\n", usage.InputTokens, usage.OutputTokens)
	case "/help":
		fmt.Println("Commands:")
		fmt.Println("  /clear  start a fresh conversation")
		fmt.Println("  /usage  show token usage so far")
		fmt.Println("  /quit   exit")
		fmt.Println()
		fmt.Println("Anything else is sent to the agent as a request.")
	default:
		fmt.Printf("Unknown command %s (try /help)\n", line)
	}
	return false
}

// trimToLastUserTurn cuts the conversation back to just before the most
// recent user message, discarding a turn that errored mid-flight.
func trimToLastUserTurn(messages []anthropic.MessageParam) []anthropic.MessageParam {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == anthropic.MessageParamRoleUser && isPlainText(messages[i]) {
			return messages[:i]
		}
	}
	return nil
}

// isPlainText reports whether a user message carries only text blocks, which
// distinguishes real user turns from tool result messages.
func isPlainText(msg anthropic.MessageParam) bool {
	for _, block := range msg.Content {
		if block.OfText == nil {
			return false
		}
	}
	return len(msg.Content) > 0
}
