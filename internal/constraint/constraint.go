// Package constraint models session-fixed restrictions that are injected
// into tool call parameters. A bound constraint always wins over whatever
// the caller supplied; constraint-controlled parameter names are stripped
// from published tool schemas so callers never see them as settable.
package constraint

import "strings"

// Constraint-controlled parameter names as they appear in tool input schemas.
// The project constraint is accepted under two names because some tools take
// a slug and others take a slug-or-numeric-id form.
const (
	ParamOrganizationSlug = "organization_slug"
	ParamProjectSlug      = "project_slug"
	ParamProjectSlugOrID  = "project_slug_or_id"
	ParamRegionURL        = "region_url"
)

// Set is the immutable triple of session constraints. An empty string means
// the constraint is unbound and the tool may accept the parameter normally.
type Set struct {
	Organization string
	Project      string
	Region       string
}

// IsZero reports whether no constraint is bound.
func (s Set) IsZero() bool {
	return s.Organization == "" && s.Project == "" && s.Region == ""
}

// ControlledParameterNames returns every parameter name reserved for
// constraint injection, aliases included, regardless of which constraints
// are bound in a given session.
func ControlledParameterNames() map[string]struct{} {
	return map[string]struct{}{
		ParamOrganizationSlug: {},
		ParamProjectSlug:      {},
		ParamProjectSlugOrID:  {},
		ParamRegionURL:        {},
	}
}

// controlledBy maps each controlled parameter name to the bound value that
// governs it, or "" when that constraint is unbound.
func (s Set) controlledBy(name string) (string, bool) {
	switch name {
	case ParamOrganizationSlug:
		return strings.TrimSpace(s.Organization), true
	case ParamProjectSlug, ParamProjectSlugOrID:
		return strings.TrimSpace(s.Project), true
	case ParamRegionURL:
		return strings.TrimSpace(s.Region), true
	default:
		return "", false
	}
}

// FilterSchema returns a deep copy of a tool's JSON input schema with every
// parameter controlled by a bound constraint removed from "properties" and
// "required". The original schema is never mutated. Unbound constraints
// leave their parameters visible so the caller can set them normally.
func (s Set) FilterSchema(schema map[string]any) map[string]any {
	if schema == nil {
		return nil
	}

	filtered := deepCopyMap(schema)

	properties, ok := filtered["properties"].(map[string]any)
	if !ok {
		return filtered
	}
	for name := range properties {
		value, controlled := s.controlledBy(name)
		if controlled && value != "" {
			delete(properties, name)
		}
	}

	if required, ok := filtered["required"].([]any); ok {
		kept := make([]any, 0, len(required))
		for _, item := range required {
			name, isString := item.(string)
			if isString {
				if value, controlled := s.controlledBy(name); controlled && value != "" {
					continue
				}
			}
			kept = append(kept, item)
		}
		filtered["required"] = kept
	}

	return filtered
}

// Inject sets each bound constraint value into args for every controlled
// parameter name that the tool's original (unfiltered) schema declares,
// overwriting anything the caller supplied. Tools that do not declare a
// controlled parameter get no injection for it. The returned map is a copy;
// args is not mutated.
func (s Set) Inject(args map[string]any, schema map[string]any) map[string]any {
	out := make(map[string]any, len(args)+3)
	for k, v := range args {
		out[k] = v
	}

	properties, ok := schema["properties"].(map[string]any)
	if !ok {
		return out
	}
	for name := range properties {
		value, controlled := s.controlledBy(name)
		if controlled && value != "" {
			out[name] = value
		}
	}
	return out
}

func deepCopyMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		return deepCopyMap(typed)
	case []any:
		copied := make([]any, len(typed))
		for i, item := range typed {
			copied[i] = deepCopyValue(item)
		}
		return copied
	default:
		return v
	}
}
