// Package llm wraps the Anthropic Messages API for the agent loop.
package llm

import (
	"context"
	"fmt"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/benreeve1984/ronin/internal/tools"
)

const defaultMaxTokens = 4096

// Client is a thin wrapper over the Anthropic SDK holding the session's
// model and token budget.
type Client struct {
	api       anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewClient creates a client for the given model. The API key must be
// non-empty; credential storage is the caller's concern.
func NewClient(apiKey, model string, maxTokens int) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("anthropic client requires an API key")
	}
	tokens := int64(maxTokens)
	if tokens <= 0 {
		tokens = defaultMaxTokens
	}
	return &Client{
		api:       anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     anthropic.Model(model),
		maxTokens: tokens,
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return string(c.model) }

// Usage accumulates token counts across a run.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// Add accumulates another message's usage.
func (u *Usage) Add(msg *anthropic.Message) {
	if msg == nil {
		return
	}
	u.InputTokens += msg.Usage.InputTokens
	u.OutputTokens += msg.Usage.OutputTokens
}

// Chat sends one turn of the conversation and returns the model's message.
func (c *Client) Chat(ctx context.Context, system string, toolParams []anthropic.ToolUnionParam, messages []anthropic.MessageParam) (*anthropic.Message, error) {
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  messages,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(toolParams) > 0 {
		params.Tools = toolParams
	}

	msg, err := c.api.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic completion failed: %w", err)
	}
	return msg, nil
}

// BuildTools converts tool definitions into Anthropic tool parameters.
func BuildTools(defs []tools.ToolDef) []anthropic.ToolUnionParam {
	result := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		schema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}
		if props, ok := def.Schema["properties"]; ok {
			schema.Properties = props
		}
		if req, ok := def.Schema["required"].([]string); ok {
			schema.Required = req
		}

		tool := &anthropic.ToolParam{
			Name:        def.Name,
			InputSchema: schema,
			Type:        anthropic.ToolTypeCustom,
		}
		if def.Description != "" {
			tool.Description = anthropic.String(def.Description)
		}
		result = append(result, anthropic.ToolUnionParam{OfTool: tool})
	}
	return result
}
