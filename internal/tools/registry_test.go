package tools

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/trakdhq/trakd-mcp/internal/constraint"
	"github.com/trakdhq/trakd-mcp/internal/policy"
)

const testContract = `
version: "1"
service: trakd-mcp
tools:
  - name: issue.get
    capability: read
    requiredScopes: [event:read]
    inputSchema:
      type: object
      properties:
        organization_slug:
          type: string
        issue_id:
          type: string
      required: [organization_slug, issue_id]
  - name: issue.update
    capability: write
    requiredScopes: [event:write]
  - name: search.issues
    capability: read
    requiredSkill: triage
  - name: search.events
    capability: read
    requiredSkill: triage
  - name: whoami
    capability: read
`

func testLogger() zerolog.Logger {
	return zerolog.New(bytes.NewBuffer(nil))
}

func TestNewRegistry_ParsesContract(t *testing.T) {
	registry, err := NewRegistry([]byte(testContract), "", testLogger())
	require.NoError(t, err)
	require.Len(t, registry.List(), 5)

	tool, ok := registry.Lookup("issue.get")
	require.True(t, ok)
	require.Equal(t, "read", tool.Capability)
	require.Equal(t, policy.Requirement{Scopes: []policy.Scope{policy.ScopeEventRead}}, tool.Requirement())

	skillTool, ok := registry.Lookup("search.issues")
	require.True(t, ok)
	require.Equal(t, policy.Requirement{Skill: policy.SkillTriage}, skillTool.Requirement())
}

func TestNewRegistry_DenylistRemovesMatchingTools(t *testing.T) {
	registry, err := NewRegistry([]byte(testContract), "^search\\.", testLogger())
	require.NoError(t, err)
	require.Len(t, registry.List(), 3)

	_, ok := registry.Lookup("search.issues")
	require.False(t, ok)
	_, ok = registry.Lookup("search.events")
	require.False(t, ok)
	_, ok = registry.Lookup("issue.get")
	require.True(t, ok)
}

func TestNewRegistry_InvalidDenylistFailsOpen(t *testing.T) {
	var logBuffer bytes.Buffer
	logger := zerolog.New(&logBuffer)

	registry, err := NewRegistry([]byte(testContract), "^search\\.[", logger)
	require.NoError(t, err)
	require.Len(t, registry.List(), 5, "an invalid pattern must leave the tool set unfiltered")
	require.Contains(t, logBuffer.String(), "invalid tool denylist pattern")
}

func TestNewRegistry_DenylistExcludingEverythingIsFatal(t *testing.T) {
	_, err := NewRegistry([]byte(testContract), ".*", testLogger())
	require.Error(t, err)
}

func TestNewRegistry_RejectsUnknownCapability(t *testing.T) {
	contract := `
tools:
  - name: bad.tool
    capability: execute
`
	_, err := NewRegistry([]byte(contract), "", testLogger())
	require.Error(t, err)
}

func TestNewRegistry_RejectsDuplicateTools(t *testing.T) {
	contract := `
tools:
  - name: issue.get
    capability: read
  - name: issue.get
    capability: read
`
	_, err := NewRegistry([]byte(contract), "", testLogger())
	require.Error(t, err)
}

func TestNewRegistry_RejectsUnknownRequiredScope(t *testing.T) {
	contract := `
tools:
  - name: bad.tool
    capability: read
    requiredScopes: [cheese:eat]
`
	_, err := NewRegistry([]byte(contract), "", testLogger())
	require.Error(t, err)
}

func TestValidateArgs_EnforcesCompiledSchema(t *testing.T) {
	registry, err := NewRegistry([]byte(testContract), "", testLogger())
	require.NoError(t, err)

	require.NoError(t, registry.ValidateArgs("issue.get", map[string]any{
		"organization_slug": "acme",
		"issue_id":          "TRAKD-42",
	}))

	err = registry.ValidateArgs("issue.get", map[string]any{"organization_slug": "acme"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid arguments")

	// Tools without a schema accept anything.
	require.NoError(t, registry.ValidateArgs("whoami", nil))
}

func TestPublished_FiltersConstraintControlledParameters(t *testing.T) {
	registry, err := NewRegistry([]byte(testContract), "", testLogger())
	require.NoError(t, err)

	published := registry.Published(constraint.Set{Organization: "acme"})
	for _, descriptor := range published {
		if descriptor.Name != "issue.get" {
			continue
		}
		properties := descriptor.InputSchema["properties"].(map[string]any)
		require.NotContains(t, properties, "organization_slug")
		require.Contains(t, properties, "issue_id")
	}

	// The registry's own copy of the schema must stay intact.
	tool, _ := registry.Lookup("issue.get")
	properties := tool.InputSchema["properties"].(map[string]any)
	require.Contains(t, properties, "organization_slug")
}
