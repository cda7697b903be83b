package tools

import (
	"context"

	"github.com/trakdhq/trakd-mcp/internal/trackerapi"
)

type teamListArgs struct {
	OrganizationSlug string `json:"organization_slug"`
	RegionURL        string `json:"region_url,omitempty"`
}

func (r *Runner) teamList(ctx context.Context, args map[string]any) (map[string]any, error) {
	var in teamListArgs
	if err := decodeArgsStrict(args, &in); err != nil {
		return nil, err
	}
	org, err := requireString(in.OrganizationSlug, "organization_slug")
	if err != nil {
		return nil, err
	}

	teams, err := r.api.ListTeams(ctx, org)
	if err != nil {
		return nil, mapExecutionError(err, "listing teams", map[string]string{"organization_slug": org})
	}
	return map[string]any{
		"organization": org,
		"count":        len(teams),
		"teams":        teams,
	}, nil
}

type teamCreateArgs struct {
	OrganizationSlug string `json:"organization_slug"`
	RegionURL        string `json:"region_url,omitempty"`
	Name             string `json:"name"`
	Slug             string `json:"slug,omitempty"`
}

func (r *Runner) teamCreate(ctx context.Context, args map[string]any) (map[string]any, error) {
	var in teamCreateArgs
	if err := decodeArgsStrict(args, &in); err != nil {
		return nil, err
	}
	org, err := requireString(in.OrganizationSlug, "organization_slug")
	if err != nil {
		return nil, err
	}
	name, err := requireString(in.Name, "name")
	if err != nil {
		return nil, err
	}

	team, err := r.api.CreateTeam(ctx, org, trackerapi.CreateTeamRequest{
		Name: name,
		Slug: in.Slug,
	})
	if err != nil {
		return nil, mapExecutionError(err, "creating team", map[string]string{"organization_slug": org})
	}
	return toMap(team)
}
