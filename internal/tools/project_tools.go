package tools

import (
	"context"

	"github.com/trakdhq/trakd-mcp/internal/trackerapi"
)

type projectListArgs struct {
	OrganizationSlug string `json:"organization_slug"`
	RegionURL        string `json:"region_url,omitempty"`
}

func (r *Runner) projectList(ctx context.Context, args map[string]any) (map[string]any, error) {
	var in projectListArgs
	if err := decodeArgsStrict(args, &in); err != nil {
		return nil, err
	}
	org, err := requireString(in.OrganizationSlug, "organization_slug")
	if err != nil {
		return nil, err
	}

	projects, err := r.api.ListProjects(ctx, org)
	if err != nil {
		return nil, mapExecutionError(err, "listing projects", map[string]string{"organization_slug": org})
	}
	return map[string]any{
		"organization": org,
		"count":        len(projects),
		"projects":     projects,
	}, nil
}

type projectCreateArgs struct {
	OrganizationSlug string `json:"organization_slug"`
	RegionURL        string `json:"region_url,omitempty"`
	Name             string `json:"name"`
	Slug             string `json:"slug,omitempty"`
	TeamSlug         string `json:"team_slug"`
	Platform         string `json:"platform,omitempty"`
	Confirm          bool   `json:"confirm,omitempty"`
}

func (r *Runner) projectCreate(ctx context.Context, args map[string]any) (map[string]any, error) {
	var in projectCreateArgs
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
	team, err := requireString(in.TeamSlug, "team_slug")
	if err != nil {
		return nil, err
	}

	project, err := r.api.CreateProject(ctx, org, trackerapi.CreateProjectRequest{
		Name:     name,
		Slug:     in.Slug,
		TeamSlug: team,
		Platform: in.Platform,
	})
	if err != nil {
		return nil, mapExecutionError(err, "creating project", map[string]string{
			"organization_slug": org,
			"team_slug":         team,
		})
	}
	return toMap(project)
}
