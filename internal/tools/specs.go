package tools

import (
	"encoding/json"
	"fmt"
)

// ToolDef describes one operation for the model: its name, what it does, and
// the JSON schema of its arguments. Definitions and request decoding live
// together so the schema and the decoder cannot drift apart.
type ToolDef struct {
	Name        string
	Description string
	Schema      map[string]any
	Mutating    bool
}

// Definitions returns the specs for the closed operation set, in a fixed
// order for deterministic prompts.
func Definitions() []ToolDef {
	return []ToolDef{
		{
			Name:        string(OpListFiles),
			Description: "List editable text files with sizes and line counts. Shows how big files are so you can decide how much to read.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"pattern": map[string]any{
						"type":        "string",
						"description": "Glob pattern (e.g. '*.md', 'docs/*', '**/*.txt'). Default: all files",
					},
				},
			},
		},
		{
			Name:        string(OpReadFile),
			Description: "Read a text file's contents or specific lines. Can read the entire file or just lines X to Y.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Relative path to file (e.g. 'README.md', 'docs/guide.txt')",
					},
					"start_line": map[string]any{
						"type":        "integer",
						"description": "Line to start from (1-indexed). Default: 1",
					},
					"end_line": map[string]any{
						"type":        "integer",
						"description": "Line to end at (inclusive). Default: end of file",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        string(OpSearchFiles),
			Description: "Search for a regex pattern across files, like grep. Case-insensitive by default. Shows context around matches.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"text": map[string]any{
						"type":        "string",
						"description": "Regex pattern to search for",
					},
					"pattern": map[string]any{
						"type":        "string",
						"description": "Which files to search (e.g. '*.md', 'docs/*'). Default: all files",
					},
					"case_sensitive": map[string]any{
						"type":        "boolean",
						"description": "Make the search case-sensitive. Default: false",
					},
					"context_lines": map[string]any{
						"type":        "integer",
						"description": "Lines of context before/after each match. Default: 2",
					},
				},
				"required": []string{"text"},
			},
		},
		{
			Name:        string(OpCreateFile),
			Description: "Create a new text file. Fails if the file already exists unless overwrite is set. Creates parent directories automatically.",
			Mutating:    true,
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Path for the new file (e.g. 'notes.md', 'docs/new.txt')",
					},
					"content": map[string]any{
						"type":        "string",
						"description": "Initial content for the file",
					},
					"overwrite": map[string]any{
						"type":        "boolean",
						"description": "Replace the file if it already exists. Default: false",
					},
				},
				"required": []string{"path", "content"},
			},
		},
		{
			Name:        string(OpDeleteFile),
			Description: "Delete a file permanently. The user will be asked to confirm.",
			Mutating:    true,
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Path to the file to delete",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name: string(OpModifyFile),
			Description: "Modify a file using anchor-based operations. This is the main editing tool. " +
				"Find an anchor text (or use empty for file boundaries) and perform an action. " +
				"Examples: append (empty anchor, after), prepend (empty anchor, before), " +
				"replace whole file (empty anchor, replace), insert after text (anchor='text', after), " +
				"delete text (anchor='text', replace with empty content), replace all occurrences (occurrence=0).",
			Mutating: true,
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Path to the file to modify",
					},
					"anchor": map[string]any{
						"type":        "string",
						"description": "Exact text to find. Empty means file boundaries (start/end/whole file)",
					},
					"action": map[string]any{
						"type":        "string",
						"enum":        []string{"before", "after", "replace"},
						"description": "What to do at the anchor: insert before, insert after, or replace it",
					},
					"content": map[string]any{
						"type":        "string",
						"description": "New content to insert or replace with. Empty deletes the anchor",
					},
					"occurrence": map[string]any{
						"type":        "integer",
						"description": "Which match to edit: 1=first, -1=last, 0=all, N=the Nth. Default: 1",
					},
				},
				"required": []string{"path", "action"},
			},
		},
	}
}

// DecodeRequest converts a named tool call with raw JSON arguments into a
// validated Request. Unknown names and malformed arguments are invalid
// arguments, not panics.
func DecodeRequest(name string, input []byte) (Request, error) {
	op, err := ParseOp(name)
	if err != nil {
		return Request{}, err
	}

	var args struct {
		Path          string `json:"path"`
		Anchor        string `json:"anchor"`
		Action        string `json:"action"`
		Content       string `json:"content"`
		Occurrence    *int   `json:"occurrence"`
		Overwrite     bool   `json:"overwrite"`
		Pattern       string `json:"pattern"`
		Text          string `json:"text"`
		CaseSensitive bool   `json:"case_sensitive"`
		ContextLines  *int   `json:"context_lines"`
		StartLine     int    `json:"start_line"`
		EndLine       int    `json:"end_line"`
	}
	if len(input) > 0 {
		if err := json.Unmarshal(input, &args); err != nil {
			return Request{}, fmt.Errorf("invalid arguments for %s: %w", name, err)
		}
	}

	occurrence := 1
	if args.Occurrence != nil {
		occurrence = *args.Occurrence
	}

	// Explicit zero means "no context"; only an omitted argument defaults.
	contextLines := defaultContextLines
	if args.ContextLines != nil {
		contextLines = *args.ContextLines
	}

	return Request{
		Op:            op,
		Path:          args.Path,
		Anchor:        args.Anchor,
		Action:        args.Action,
		Content:       args.Content,
		Occurrence:    occurrence,
		Overwrite:     args.Overwrite,
		Pattern:       args.Pattern,
		Query:         args.Text,
		CaseSensitive: args.CaseSensitive,
		ContextLines:  contextLines,
		StartLine:     args.StartLine,
		EndLine:       args.EndLine,
	}, nil
}
