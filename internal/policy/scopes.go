// Package policy defines the capability model gating MCP tool execution.
package policy

import (
	"slices"
	"strings"
)

// Scope is a fine-grained permission token of the form "resource:action".
type Scope string

// Known scopes, grouped by resource. Within a resource, admin implies
// write implies read.
const (
	ScopeOrgRead      Scope = "org:read"
	ScopeOrgWrite     Scope = "org:write"
	ScopeOrgAdmin     Scope = "org:admin"
	ScopeProjectRead  Scope = "project:read"
	ScopeProjectWrite Scope = "project:write"
	ScopeProjectAdmin Scope = "project:admin"
	ScopeTeamRead     Scope = "team:read"
	ScopeTeamWrite    Scope = "team:write"
	ScopeTeamAdmin    Scope = "team:admin"
	ScopeEventRead    Scope = "event:read"
	ScopeEventWrite   Scope = "event:write"
	ScopeEventAdmin   Scope = "event:admin"
	ScopeReleaseRead  Scope = "release:read"
	ScopeReleaseWrite Scope = "release:write"
	ScopeReleaseAdmin Scope = "release:admin"
)

// scopeHierarchy maps each scope to the full set it implies, itself included.
// Expansion over this table is reflexive and transitive by construction, so
// expanding an already-expanded set changes nothing.
var scopeHierarchy = map[Scope][]Scope{
	ScopeOrgRead:      {ScopeOrgRead},
	ScopeOrgWrite:     {ScopeOrgWrite, ScopeOrgRead},
	ScopeOrgAdmin:     {ScopeOrgAdmin, ScopeOrgWrite, ScopeOrgRead},
	ScopeProjectRead:  {ScopeProjectRead},
	ScopeProjectWrite: {ScopeProjectWrite, ScopeProjectRead},
	ScopeProjectAdmin: {ScopeProjectAdmin, ScopeProjectWrite, ScopeProjectRead},
	ScopeTeamRead:     {ScopeTeamRead},
	ScopeTeamWrite:    {ScopeTeamWrite, ScopeTeamRead},
	ScopeTeamAdmin:    {ScopeTeamAdmin, ScopeTeamWrite, ScopeTeamRead},
	ScopeEventRead:    {ScopeEventRead},
	ScopeEventWrite:   {ScopeEventWrite, ScopeEventRead},
	ScopeEventAdmin:   {ScopeEventAdmin, ScopeEventWrite, ScopeEventRead},
	ScopeReleaseRead:  {ScopeReleaseRead},
	ScopeReleaseWrite: {ScopeReleaseWrite, ScopeReleaseRead},
	ScopeReleaseAdmin: {ScopeReleaseAdmin, ScopeReleaseWrite, ScopeReleaseRead},
}

// DefaultGrantedScopes is the minimal read-only grant applied when a session
// declares no explicit scopes.
var DefaultGrantedScopes = []Scope{
	ScopeOrgRead,
	ScopeProjectRead,
	ScopeTeamRead,
	ScopeEventRead,
	ScopeReleaseRead,
}

// KnownScope reports whether s appears in the scope hierarchy table.
func KnownScope(s Scope) bool {
	_, ok := scopeHierarchy[s]
	return ok
}

// ExpandScopes returns granted plus every scope implied by the hierarchy.
// Scopes absent from the hierarchy table pass through unchanged. The result
// is sorted and de-duplicated; ExpandScopes(ExpandScopes(s)) == ExpandScopes(s).
func ExpandScopes(granted []Scope) []Scope {
	if len(granted) == 0 {
		return nil
	}

	seen := make(map[Scope]struct{}, len(granted)*3)
	for _, scope := range granted {
		trimmed := Scope(strings.TrimSpace(string(scope)))
		if trimmed == "" {
			continue
		}
		implied, ok := scopeHierarchy[trimmed]
		if !ok {
			seen[trimmed] = struct{}{}
			continue
		}
		for _, s := range implied {
			seen[s] = struct{}{}
		}
	}

	expanded := make([]Scope, 0, len(seen))
	for s := range seen {
		expanded = append(expanded, s)
	}
	slices.Sort(expanded)
	return expanded
}

// HasScopes reports whether every scope in required is covered by the
// expansion of granted.
func HasScopes(required, granted []Scope) bool {
	if len(required) == 0 {
		return true
	}
	expanded := ExpandScopes(granted)
	for _, scope := range required {
		if !slices.Contains(expanded, scope) {
			return false
		}
	}
	return true
}

// MissingScopes returns the required scopes not covered by the expansion of
// granted, in required order.
func MissingScopes(required, granted []Scope) []Scope {
	expanded := ExpandScopes(granted)
	missing := make([]Scope, 0, len(required))
	for _, scope := range required {
		if !slices.Contains(expanded, scope) {
			missing = append(missing, scope)
		}
	}
	return missing
}

// ParseScopeList splits a comma-separated scope list into known scopes and
// unknown tokens. Tokens are trimmed and de-duplicated; empty tokens are
// dropped. It never fails: callers decide whether unknown tokens are fatal.
func ParseScopeList(input string) (valid []Scope, invalid []string) {
	seen := make(map[string]struct{})
	for _, raw := range strings.Split(input, ",") {
		token := strings.TrimSpace(raw)
		if token == "" {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		if KnownScope(Scope(token)) {
			valid = append(valid, Scope(token))
		} else {
			invalid = append(invalid, token)
		}
	}
	return valid, invalid
}

// ScopeStrings converts a scope slice for logging and error messages.
func ScopeStrings(scopes []Scope) []string {
	out := make([]string, 0, len(scopes))
	for _, s := range scopes {
		out = append(out, string(s))
	}
	return out
}
