package tools

import (
	"context"

	"github.com/trakdhq/trakd-mcp/internal/trackerapi"
)

type releaseListArgs struct {
	OrganizationSlug string `json:"organization_slug"`
	ProjectSlug      string `json:"project_slug"`
	RegionURL        string `json:"region_url,omitempty"`
}

func (r *Runner) releaseList(ctx context.Context, args map[string]any) (map[string]any, error) {
	var in releaseListArgs
	if err := decodeArgsStrict(args, &in); err != nil {
		return nil, err
	}
	org, err := requireString(in.OrganizationSlug, "organization_slug")
	if err != nil {
		return nil, err
	}
	project, err := requireString(in.ProjectSlug, "project_slug")
	if err != nil {
		return nil, err
	}

	releases, err := r.api.ListReleases(ctx, org, project)
	if err != nil {
		return nil, mapExecutionError(err, "listing releases", map[string]string{
			"organization_slug": org,
			"project_slug":      project,
		})
	}
	return map[string]any{
		"organization": org,
		"project":      project,
		"count":        len(releases),
		"releases":     releases,
	}, nil
}

type releaseCreateArgs struct {
	OrganizationSlug string `json:"organization_slug"`
	ProjectSlug      string `json:"project_slug"`
	RegionURL        string `json:"region_url,omitempty"`
	Version          string `json:"version"`
	Ref              string `json:"ref,omitempty"`
	URL              string `json:"url,omitempty"`
}

func (r *Runner) releaseCreate(ctx context.Context, args map[string]any) (map[string]any, error) {
	var in releaseCreateArgs
	if err := decodeArgsStrict(args, &in); err != nil {
		return nil, err
	}
	org, err := requireString(in.OrganizationSlug, "organization_slug")
	if err != nil {
		return nil, err
	}
	project, err := requireString(in.ProjectSlug, "project_slug")
	if err != nil {
		return nil, err
	}
	version, err := requireString(in.Version, "version")
	if err != nil {
		return nil, err
	}

	release, err := r.api.CreateRelease(ctx, org, project, trackerapi.CreateReleaseRequest{
		Version: version,
		Ref:     in.Ref,
		URL:     in.URL,
	})
	if err != nil {
		return nil, mapExecutionError(err, "creating release", map[string]string{
			"organization_slug": org,
			"project_slug":      project,
			"version":           version,
		})
	}
	return toMap(release)
}
