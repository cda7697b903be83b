package policy

import (
	"slices"
	"strings"
)

// Skill is a coarse-grained capability bundle. Skills are orthogonal: one
// skill never implies another, and there is no default grant — a session
// without skills passes no skill gate.
type Skill string

const (
	SkillTriage    Skill = "triage"
	SkillProjects  Skill = "projects"
	SkillTelemetry Skill = "telemetry"
	SkillReleases  Skill = "releases"
	SkillAnalysis  Skill = "analysis"
)

var knownSkills = []Skill{
	SkillTriage,
	SkillProjects,
	SkillTelemetry,
	SkillReleases,
	SkillAnalysis,
}

// KnownSkill reports whether s is a recognized skill key.
func KnownSkill(s Skill) bool {
	return slices.Contains(knownSkills, s)
}

// HasSkill reports whether required is a member of granted. An empty grant
// allows nothing.
func HasSkill(required Skill, granted []Skill) bool {
	return slices.Contains(granted, required)
}

// ParseSkillList splits a comma-separated skill list into known skills and
// unknown tokens, trimming and de-duplicating. It never fails.
func ParseSkillList(input string) (valid []Skill, invalid []string) {
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
		if KnownSkill(Skill(token)) {
			valid = append(valid, Skill(token))
		} else {
			invalid = append(invalid, token)
		}
	}
	return valid, invalid
}

// SkillStrings converts a skill slice for logging and error messages.
func SkillStrings(skills []Skill) []string {
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		out = append(out, string(s))
	}
	return out
}
