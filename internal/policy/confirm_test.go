package policy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequireConfirmation_FlaggedToolNeedsConfirm(t *testing.T) {
	err := RequireConfirmation("project.create", true, map[string]any{"name": "api"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "confirm=true")
}

func TestRequireConfirmation_FlaggedToolWithConfirmPasses(t *testing.T) {
	require.NoError(t, RequireConfirmation("project.create", true, map[string]any{"confirm": true}))
}

func TestRequireConfirmation_ResolvingIssueNeedsConfirm(t *testing.T) {
	err := RequireConfirmation("issue.update", false, map[string]any{"status": "resolved"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "status=resolved")
}

func TestRequireConfirmation_IgnoringIssueNeedsConfirm(t *testing.T) {
	require.Error(t, RequireConfirmation("issue.update", false, map[string]any{"status": "ignored"}))
}

func TestRequireConfirmation_ReopeningIssueDoesNot(t *testing.T) {
	require.NoError(t, RequireConfirmation("issue.update", false, map[string]any{"status": "unresolved"}))
}

func TestRequireConfirmation_ConfirmMustBeBooleanTrue(t *testing.T) {
	require.Error(t, RequireConfirmation("issue.update", false, map[string]any{"status": "resolved", "confirm": "yes"}))
}

func TestRequireConfirmation_UnflaggedReadTool(t *testing.T) {
	require.NoError(t, RequireConfirmation("issue.list", false, nil))
}
