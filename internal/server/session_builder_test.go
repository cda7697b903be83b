package server

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/trakdhq/trakd-mcp/internal/config"
	"github.com/trakdhq/trakd-mcp/internal/policy"
)

func TestBuildSession_UnsetScopesStayNil(t *testing.T) {
	sess, err := BuildSession(config.Config{}, "opaque-token", zerolog.New(bytes.NewBuffer(nil)))
	require.NoError(t, err)
	require.Nil(t, sess.Scopes, "unset scopes must stay nil so the default grant applies")
	require.Nil(t, sess.Skills)
	require.Equal(t, "mcp-session", sess.CallerID)
	require.Equal(t, policy.DefaultGrantedScopes, sess.GrantedScopes())
}

func TestBuildSession_ExplicitEmptyScopesGrantNothing(t *testing.T) {
	cfg := config.Config{
		GrantedScopes:    "",
		GrantedScopesSet: true,
	}
	sess, err := BuildSession(cfg, "", zerolog.New(bytes.NewBuffer(nil)))
	require.NoError(t, err)
	require.NotNil(t, sess.Scopes)
	require.Empty(t, sess.Scopes)
	require.Empty(t, sess.GrantedScopes())
}

func TestBuildSession_ParsesGrantsAndConstraints(t *testing.T) {
	cfg := config.Config{
		GrantedScopes:          "org:read, event:write",
		GrantedScopesSet:       true,
		GrantedSkills:          "triage,analysis",
		GrantedSkillsSet:       true,
		OrganizationConstraint: "acme",
		ProjectConstraint:      "storefront",
		RegionConstraint:       "https://eu.trakd.io",
	}
	sess, err := BuildSession(cfg, "", zerolog.New(bytes.NewBuffer(nil)))
	require.NoError(t, err)
	require.Equal(t, []policy.Scope{policy.ScopeOrgRead, policy.ScopeEventWrite}, sess.Scopes)
	require.Equal(t, []policy.Skill{policy.SkillTriage, policy.SkillAnalysis}, sess.Skills)
	require.Equal(t, "acme", sess.Constraints.Organization)
	require.Equal(t, "storefront", sess.Constraints.Project)
	require.Equal(t, "https://eu.trakd.io", sess.Constraints.Region)
}

func TestBuildSession_UnknownTokensAreFatal(t *testing.T) {
	_, err := BuildSession(config.Config{
		GrantedScopes:    "org:read, cheese:eat",
		GrantedScopesSet: true,
	}, "", zerolog.New(bytes.NewBuffer(nil)))
	require.Error(t, err)
	require.Contains(t, err.Error(), "cheese:eat")

	_, err = BuildSession(config.Config{
		GrantedSkills:    "triage, juggling",
		GrantedSkillsSet: true,
	}, "", zerolog.New(bytes.NewBuffer(nil)))
	require.Error(t, err)
	require.Contains(t, err.Error(), "juggling")
}

func TestBuildSession_CallerIDFromJWTSubject(t *testing.T) {
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"svc-reporter"}`))
	token := "eyJhbGciOiJub25lIn0." + payload + ".sig"

	sess, err := BuildSession(config.Config{}, token, zerolog.New(bytes.NewBuffer(nil)))
	require.NoError(t, err)
	require.Equal(t, "svc-reporter", sess.CallerID)
}
