package policy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHasSkill_RequiresExplicitMembership(t *testing.T) {
	granted := []Skill{SkillTriage, SkillAnalysis}
	require.True(t, HasSkill(SkillTriage, granted))
	require.False(t, HasSkill(SkillReleases, granted))
}

func TestHasSkill_EmptyGrantAllowsNothing(t *testing.T) {
	require.False(t, HasSkill(SkillTriage, nil))
	require.False(t, HasSkill(SkillTriage, []Skill{}))
}

func TestParseSkillList_PartitionsKnownAndUnknown(t *testing.T) {
	valid, invalid := ParseSkillList("triage, wizardry, analysis, triage")
	require.Equal(t, []Skill{SkillTriage, SkillAnalysis}, valid)
	require.Equal(t, []string{"wizardry"}, invalid)
}
