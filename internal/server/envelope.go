package server

import (
	"fmt"
	"strings"
)

type callToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// callToolResult is the uniform tool-call envelope. Every call produces one,
// success or failure: errors never escape as transport-level faults, so a
// failing call cannot tear down the caller's session.
type callToolResult struct {
	Content           []contentBlock `json:"content"`
	IsError           bool           `json:"isError"`
	StructuredContent map[string]any `json:"structuredContent,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func resultFromExecution(name string, payload map[string]any) callToolResult {
	return callToolResult{
		Content: []contentBlock{
			{
				Type: "text",
				Text: fmt.Sprintf("tool %s executed", strings.TrimSpace(name)),
			},
		},
		IsError: false,
		StructuredContent: map[string]any{
			"tool":   strings.TrimSpace(name),
			"status": "ok",
			"result": payload,
		},
	}
}

func resultFromError(name string, failure classifiedError) callToolResult {
	structured := map[string]any{
		"tool":   strings.TrimSpace(name),
		"status": "error",
		"error": map[string]any{
			"status":  failure.status,
			"message": failure.message,
		},
	}
	if failure.correlationID != "" {
		structured["correlation_id"] = failure.correlationID
	}
	return callToolResult{
		Content: []contentBlock{
			{
				Type: "text",
				Text: failure.message,
			},
		},
		IsError:           true,
		StructuredContent: structured,
	}
}
