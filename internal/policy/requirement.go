package policy

import (
	"fmt"
	"strings"
)

// Requirement is a tool's declared capability gate. Exactly one of Scopes or
// Skill is set; the zero value means the tool is ungated. A tool declares its
// requirement in one vocabulary only; the dispatcher evaluates whichever one
// is declared and never mixes the two.
type Requirement struct {
	Scopes []Scope
	Skill  Skill
}

// IsZero reports whether no gate is declared.
func (r Requirement) IsZero() bool {
	return len(r.Scopes) == 0 && r.Skill == ""
}

// Validate rejects requirements declaring both vocabularies or unknown tokens.
func (r Requirement) Validate() error {
	if len(r.Scopes) > 0 && r.Skill != "" {
		return fmt.Errorf("requirement declares both scopes and skill")
	}
	for _, scope := range r.Scopes {
		if !KnownScope(scope) {
			return fmt.Errorf("unknown required scope %q", scope)
		}
	}
	if r.Skill != "" && !KnownSkill(r.Skill) {
		return fmt.Errorf("unknown required skill %q", r.Skill)
	}
	return nil
}

// Allows evaluates the gate against a session's grants. A nil grantedScopes
// slice falls back to DefaultGrantedScopes; there is no skill fallback.
func (r Requirement) Allows(grantedScopes []Scope, grantedSkills []Skill) bool {
	switch {
	case r.IsZero():
		return true
	case r.Skill != "":
		return HasSkill(r.Skill, grantedSkills)
	default:
		if grantedScopes == nil {
			grantedScopes = DefaultGrantedScopes
		}
		return HasScopes(r.Scopes, grantedScopes)
	}
}

// Describe renders the requirement for denial messages without exposing
// anything beyond the missing grant.
func (r Requirement) Describe() string {
	if r.Skill != "" {
		return fmt.Sprintf("skill %s", r.Skill)
	}
	if len(r.Scopes) > 0 {
		return fmt.Sprintf("scope(s) %s", strings.Join(ScopeStrings(r.Scopes), ", "))
	}
	return "no grant"
}
