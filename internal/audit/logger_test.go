package audit

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestComplete_EmitsStructuredEntry(t *testing.T) {
	var buffer bytes.Buffer
	logger := NewLogger(zerolog.New(&buffer))

	logger.Complete(ToolCallCompletion{
		RequestID: "req-1",
		Transport: "stdio",
		ToolName:  "issue.get",
		CallerID:  "tester",
		Arguments: map[string]any{
			"organization_slug": "acme",
			"issue_id":          "TRAKD-42",
		},
		Result:       "success",
		Duration:     42 * time.Millisecond,
		ResponseCode: 200,
	})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buffer.Bytes(), &entry))
	require.Equal(t, "mcp.tool_call.completed", entry["event"])
	require.Equal(t, "issue.get", entry["tool"])
	require.Equal(t, "success", entry["result"])
	require.Equal(t, float64(42), entry["duration_ms"])

	target := entry["target"].(map[string]any)
	require.Equal(t, "acme", target["organization"])
	require.Equal(t, "TRAKD-42", target["issue_id"])
}

func TestComplete_IncludesCorrelationAndRedactedError(t *testing.T) {
	var buffer bytes.Buffer
	logger := NewLogger(zerolog.New(&buffer))

	logger.Complete(ToolCallCompletion{
		ToolName:      "issue.update",
		Result:        "error",
		ErrorDetail:   "request rejected with token=sk-abc123 attached",
		CorrelationID: "corr-9",
	})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buffer.Bytes(), &entry))
	require.Equal(t, "corr-9", entry["correlation_id"])
	require.Contains(t, entry["error_detail"], "[REDACTED]")
	require.NotContains(t, entry["error_detail"], "sk-abc123")
}

func TestSummarizeTarget_ProjectAlias(t *testing.T) {
	summary := SummarizeTarget(map[string]any{
		"project_slug_or_id": "storefront",
		"version":            "1.2.3",
	})
	require.Equal(t, "storefront", summary.Project)
	require.Equal(t, "1.2.3", summary.Version)

	// The canonical parameter wins over the alias.
	summary = SummarizeTarget(map[string]any{
		"project_slug":       "storefront",
		"project_slug_or_id": "legacy",
	})
	require.Equal(t, "storefront", summary.Project)
}

func TestRedactSensitiveText(t *testing.T) {
	require.Equal(t, "", RedactSensitiveText("   "))

	redacted := RedactSensitiveText("used Bearer eyJhbGciOiJIUzI1NiJ9.payload.sig and failed")
	require.NotContains(t, redacted, "eyJhbGciOiJIUzI1NiJ9")
	require.Equal(t, "used Bearer [REDACTED] and failed", redacted)

	redacted = RedactSensitiveText("config had password=hunter2, retrying")
	require.Equal(t, "config had password=[REDACTED], retrying", redacted)

	// Plain identifiers survive untouched.
	require.Equal(t, "issue TRAKD-42 not found", RedactSensitiveText("issue TRAKD-42 not found"))
}
