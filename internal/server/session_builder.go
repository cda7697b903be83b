package server

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/trakdhq/trakd-mcp/internal/config"
	"github.com/trakdhq/trakd-mcp/internal/constraint"
	"github.com/trakdhq/trakd-mcp/internal/policy"
	"github.com/trakdhq/trakd-mcp/internal/session"
)

// BuildSession assembles the immutable request context for this deployment
// from configuration and the resolved upstream token. Capability grants and
// constraints are fixed here, at session establishment, and are never
// caller-settable afterwards.
//
// An unset scope list keeps Scopes nil so the dispatcher applies the
// default read-only grant; an explicitly empty list grants nothing.
func BuildSession(cfg config.Config, token string, logger zerolog.Logger) (*session.Session, error) {
	sess := &session.Session{
		CallerID: "mcp-session",
		Token:    strings.TrimSpace(token),
		Constraints: constraint.Set{
			Organization: cfg.OrganizationConstraint,
			Project:      cfg.ProjectConstraint,
			Region:       cfg.RegionConstraint,
		},
	}

	if subject := subjectFromToken(sess.Token); subject != "" {
		sess.CallerID = subject
	}

	if cfg.GrantedScopesSet {
		scopes, unknown := policy.ParseScopeList(cfg.GrantedScopes)
		if len(unknown) > 0 {
			return nil, fmt.Errorf("unknown scope(s) in TRAKD_MCP_SCOPES: %s", strings.Join(unknown, ", "))
		}
		if scopes == nil {
			scopes = []policy.Scope{}
		}
		sess.Scopes = scopes
	}

	if cfg.GrantedSkillsSet {
		skills, unknown := policy.ParseSkillList(cfg.GrantedSkills)
		if len(unknown) > 0 {
			return nil, fmt.Errorf("unknown skill(s) in TRAKD_MCP_SKILLS: %s", strings.Join(unknown, ", "))
		}
		if skills == nil {
			skills = []policy.Skill{}
		}
		sess.Skills = skills
	}

	logger.Info().
		Strs("scopes", policy.ScopeStrings(sess.GrantedScopes())).
		Strs("skills", policy.SkillStrings(sess.GrantedSkills())).
		Str("organization", sess.Constraints.Organization).
		Str("project", sess.Constraints.Project).
		Str("region", sess.Constraints.Region).
		Msg("session established")

	return sess, nil
}
