// Package tools provides the MCP tool registry and tool execution backed by
// the trakd API client.
package tools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/trakdhq/trakd-mcp/internal/constraint"
	"github.com/trakdhq/trakd-mcp/internal/policy"
)

// ToolSpec represents a single MCP tool contract entry.
type ToolSpec struct {
	Name                 string         `yaml:"name" json:"name"`
	Capability           string         `yaml:"capability" json:"capability"`
	Description          string         `yaml:"description,omitempty" json:"description,omitempty"`
	RequiredScopes       []string       `yaml:"requiredScopes,omitempty" json:"requiredScopes,omitempty"`
	RequiredSkill        string         `yaml:"requiredSkill,omitempty" json:"requiredSkill,omitempty"`
	ConfirmationRequired bool           `yaml:"confirmationRequired,omitempty" json:"confirmationRequired,omitempty"`
	InputSchema          map[string]any `yaml:"inputSchema,omitempty" json:"inputSchema,omitempty"`
}

// Requirement converts the contract's declaration into the policy gate.
func (t ToolSpec) Requirement() policy.Requirement {
	if t.RequiredSkill != "" {
		return policy.Requirement{Skill: policy.Skill(t.RequiredSkill)}
	}
	scopes := make([]policy.Scope, 0, len(t.RequiredScopes))
	for _, s := range t.RequiredScopes {
		scopes = append(scopes, policy.Scope(strings.TrimSpace(s)))
	}
	return policy.Requirement{Scopes: scopes}
}

type toolContract struct {
	Version string     `yaml:"version"`
	Service string     `yaml:"service"`
	Tools   []ToolSpec `yaml:"tools"`
}

// Registry provides read-only access to the parsed, filtered tool set.
// It is constructed once at startup and freely shared across calls.
type Registry struct {
	specs   []ToolSpec
	byName  map[string]ToolSpec
	schemas map[string]*jsonschema.Schema
}

// NewRegistry parses the tool contract YAML, validates it, applies the
// optional denylist regex, and compiles every input schema.
//
// An invalid denyPattern logs a warning and leaves the tool set unfiltered:
// a configuration typo must not silently hide every tool.
func NewRegistry(contractYAML []byte, denyPattern string, logger zerolog.Logger) (*Registry, error) {
	var parsed toolContract
	if err := yaml.Unmarshal(contractYAML, &parsed); err != nil {
		return nil, fmt.Errorf("decoding tool contract: %w", err)
	}
	if len(parsed.Tools) == 0 {
		return nil, fmt.Errorf("tool contract has no tools")
	}

	deny := compileDenyPattern(denyPattern, logger)

	specs := make([]ToolSpec, 0, len(parsed.Tools))
	byName := make(map[string]ToolSpec, len(parsed.Tools))
	schemas := make(map[string]*jsonschema.Schema, len(parsed.Tools))

	for _, tool := range parsed.Tools {
		name := strings.TrimSpace(tool.Name)
		if name == "" {
			return nil, fmt.Errorf("tool contract contains empty tool name")
		}
		if _, exists := byName[name]; exists {
			return nil, fmt.Errorf("tool contract contains duplicate tool %q", name)
		}
		tool.Name = name
		tool.Capability = strings.TrimSpace(tool.Capability)
		if tool.Capability != "read" && tool.Capability != "write" {
			return nil, fmt.Errorf("tool %q has invalid capability %q", name, tool.Capability)
		}
		if err := tool.Requirement().Validate(); err != nil {
			return nil, fmt.Errorf("tool %q: %w", name, err)
		}

		if deny != nil && deny.MatchString(name) {
			logger.Debug().Str("tool", name).Msg("tool excluded by denylist")
			continue
		}

		schema, err := compileInputSchema(name, tool.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("tool %q input schema: %w", name, err)
		}
		if schema != nil {
			schemas[name] = schema
		}

		specs = append(specs, tool)
		byName[name] = tool
	}

	if len(specs) == 0 {
		return nil, fmt.Errorf("denylist %q excludes every tool", denyPattern)
	}

	return &Registry{
		specs:   specs,
		byName:  byName,
		schemas: schemas,
	}, nil
}

func compileDenyPattern(denyPattern string, logger zerolog.Logger) *regexp.Regexp {
	pattern := strings.TrimSpace(denyPattern)
	if pattern == "" {
		return nil
	}
	deny, err := regexp.Compile(pattern)
	if err != nil {
		logger.Warn().
			Str("pattern", pattern).
			Err(err).
			Msg("invalid tool denylist pattern, leaving tool set unfiltered")
		return nil
	}
	return deny
}

func compileInputSchema(name string, schema map[string]any) (*jsonschema.Schema, error) {
	if len(schema) == 0 {
		return nil, nil
	}
	encoded, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encoding schema: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	resource := fmt.Sprintf("inline://%s.json", name)
	if err := compiler.AddResource(resource, doc); err != nil {
		return nil, fmt.Errorf("adding schema resource: %w", err)
	}
	compiled, err := compiler.Compile(resource)
	if err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}
	return compiled, nil
}

// List returns all registered tools in contract order.
func (r *Registry) List() []ToolSpec {
	items := make([]ToolSpec, 0, len(r.specs))
	items = append(items, r.specs...)
	return items
}

// Lookup returns a tool by name.
func (r *Registry) Lookup(name string) (ToolSpec, bool) {
	tool, ok := r.byName[strings.TrimSpace(name)]
	return tool, ok
}

// Descriptor is the caller-visible tool metadata surface.
type Descriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema,omitempty"`
}

// Published returns the caller-visible descriptors, with every parameter
// controlled by a bound constraint removed from the advertised schemas.
func (r *Registry) Published(constraints constraint.Set) []Descriptor {
	out := make([]Descriptor, 0, len(r.specs))
	for _, tool := range r.specs {
		out = append(out, Descriptor{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: constraints.FilterSchema(tool.InputSchema),
		})
	}
	return out
}

// ValidateArgs checks finalized call arguments against the tool's compiled
// input schema. The dispatcher injects bound constraint values before this
// check, so required constraint-controlled parameters are satisfied by the
// session, never by the caller.
func (r *Registry) ValidateArgs(name string, args map[string]any) error {
	schema, ok := r.schemas[strings.TrimSpace(name)]
	if !ok {
		return nil
	}
	instance := any(args)
	if args == nil {
		instance = map[string]any{}
	}
	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}
