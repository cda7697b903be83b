// Package audit provides structured audit logging for MCP tool calls.
package audit

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	bearerTokenPattern = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9\-._~+/]+=*`)
	keyValuePattern    = regexp.MustCompile(`(?i)\b(token|secret|password|authorization)\s*[:=]\s*([^\s,;]+)`)
)

// ToolCallCompletion captures one finalized tool-call outcome.
type ToolCallCompletion struct {
	RequestID     string
	Transport     string
	ToolName      string
	CallerID      string
	Arguments     map[string]any
	Result        string
	ErrorDetail   string
	CorrelationID string
	Duration      time.Duration
	ResponseCode  int
}

// TargetSummary is a redacted summary of what a call operated on.
type TargetSummary struct {
	Organization string `json:"organization,omitempty"`
	Project      string `json:"project,omitempty"`
	IssueID      string `json:"issue_id,omitempty"`
	EventID      string `json:"event_id,omitempty"`
	Version      string `json:"version,omitempty"`
}

// Logger emits structured audit entries.
type Logger struct {
	logger zerolog.Logger
}

// NewLogger creates an audit logger.
func NewLogger(logger zerolog.Logger) *Logger {
	return &Logger{
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// Complete writes a single completion log entry for one tool call.
func (l *Logger) Complete(event ToolCallCompletion) {
	if l == nil {
		return
	}

	result := strings.TrimSpace(event.Result)
	if result == "" {
		result = "error"
	}
	tool := strings.TrimSpace(event.ToolName)
	if tool == "" {
		tool = "unknown"
	}
	duration := event.Duration
	if duration < 0 {
		duration = 0
	}

	entry := l.logger.Info().
		Str("event", "mcp.tool_call.completed").
		Str("request_id", strings.TrimSpace(event.RequestID)).
		Str("transport", strings.TrimSpace(event.Transport)).
		Str("tool", tool).
		Str("caller_id", strings.TrimSpace(event.CallerID)).
		Str("result", result).
		Int64("duration_ms", duration.Milliseconds()).
		Interface("target", SummarizeTarget(event.Arguments))

	if event.ResponseCode > 0 {
		entry = entry.Int("response_code", event.ResponseCode)
	}
	if correlationID := strings.TrimSpace(event.CorrelationID); correlationID != "" {
		entry = entry.Str("correlation_id", correlationID)
	}
	if redactedError := RedactSensitiveText(event.ErrorDetail); redactedError != "" {
		entry = entry.Str("error_detail", redactedError)
	}

	entry.Msg("tool call completed")
}

// SummarizeTarget builds a compact target summary from tool arguments.
func SummarizeTarget(args map[string]any) TargetSummary {
	if args == nil {
		return TargetSummary{}
	}
	return TargetSummary{
		Organization: readString(args, "organization_slug"),
		Project:      firstNonEmpty(readString(args, "project_slug"), readString(args, "project_slug_or_id")),
		IssueID:      readString(args, "issue_id"),
		EventID:      readString(args, "event_id"),
		Version:      readString(args, "version"),
	}
}

// RedactSensitiveText removes obvious secrets from free-text error details.
func RedactSensitiveText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	redacted := bearerTokenPattern.ReplaceAllString(trimmed, "Bearer [REDACTED]")
	redacted = keyValuePattern.ReplaceAllStringFunc(redacted, func(match string) string {
		parts := strings.SplitN(match, ":", 2)
		if len(parts) == 2 {
			return fmt.Sprintf("%s: [REDACTED]", strings.TrimSpace(parts[0]))
		}
		parts = strings.SplitN(match, "=", 2)
		if len(parts) == 2 {
			return fmt.Sprintf("%s=[REDACTED]", strings.TrimSpace(parts[0]))
		}
		return "[REDACTED]"
	})
	return redacted
}

func readString(args map[string]any, key string) string {
	raw, ok := args[key]
	if !ok {
		return ""
	}
	asString, ok := raw.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(asString)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
