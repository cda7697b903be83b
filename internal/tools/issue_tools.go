package tools

import (
	"context"
	"strings"

	"github.com/trakdhq/trakd-mcp/internal/trackerapi"
)

type issueListArgs struct {
	OrganizationSlug string `json:"organization_slug"`
	ProjectSlug      string `json:"project_slug"`
	RegionURL        string `json:"region_url,omitempty"`
	Query            string `json:"query,omitempty"`
	Status           string `json:"status,omitempty"`
	Limit            int    `json:"limit,omitempty"`
}

func (r *Runner) issueList(ctx context.Context, args map[string]any) (map[string]any, error) {
	var in issueListArgs
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

	issues, err := r.api.ListIssues(ctx, org, project, trackerapi.IssueListOptions{
		Query:  in.Query,
		Status: in.Status,
		Limit:  in.Limit,
	})
	if err != nil {
		return nil, mapExecutionError(err, "listing issues", map[string]string{
			"organization_slug": org,
			"project_slug":      project,
		})
	}
	return map[string]any{
		"organization": org,
		"project":      project,
		"count":        len(issues),
		"issues":       issues,
	}, nil
}

type issueGetArgs struct {
	OrganizationSlug string `json:"organization_slug"`
	RegionURL        string `json:"region_url,omitempty"`
	IssueID          string `json:"issue_id"`
}

func (r *Runner) issueGet(ctx context.Context, args map[string]any) (map[string]any, error) {
	var in issueGetArgs
	if err := decodeArgsStrict(args, &in); err != nil {
		return nil, err
	}
	org, err := requireString(in.OrganizationSlug, "organization_slug")
	if err != nil {
		return nil, err
	}
	issueID, err := requireString(in.IssueID, "issue_id")
	if err != nil {
		return nil, err
	}

	issue, err := r.api.GetIssue(ctx, org, issueID)
	if err != nil {
		return nil, mapExecutionError(err, "fetching issue", map[string]string{
			"organization_slug": org,
			"issue_id":          issueID,
		})
	}
	return toMap(issue)
}

type issueUpdateArgs struct {
	OrganizationSlug string `json:"organization_slug"`
	RegionURL        string `json:"region_url,omitempty"`
	IssueID          string `json:"issue_id"`
	Status           string `json:"status,omitempty"`
	Assignee         string `json:"assignee,omitempty"`
	Confirm          bool   `json:"confirm,omitempty"`
}

var allowedIssueStatuses = map[string]struct{}{
	"resolved":   {},
	"unresolved": {},
	"ignored":    {},
}

func (r *Runner) issueUpdate(ctx context.Context, args map[string]any) (map[string]any, error) {
	var in issueUpdateArgs
	if err := decodeArgsStrict(args, &in); err != nil {
		return nil, err
	}
	org, err := requireString(in.OrganizationSlug, "organization_slug")
	if err != nil {
		return nil, err
	}
	issueID, err := requireString(in.IssueID, "issue_id")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Status) == "" && strings.TrimSpace(in.Assignee) == "" {
		return nil, validationErrorf("issue.update requires status or assignee")
	}

	update := trackerapi.IssueUpdate{}
	if status := strings.ToLower(strings.TrimSpace(in.Status)); status != "" {
		if _, ok := allowedIssueStatuses[status]; !ok {
			return nil, validationErrorf("invalid status %q (allowed: resolved|unresolved|ignored)", in.Status)
		}
		update.Status = &status
	}
	if assignee := strings.TrimSpace(in.Assignee); assignee != "" {
		update.Assignee = &assignee
	}

	issue, err := r.api.UpdateIssue(ctx, org, issueID, update)
	if err != nil {
		return nil, mapExecutionError(err, "updating issue", map[string]string{
			"organization_slug": org,
			"issue_id":          issueID,
		})
	}
	return toMap(issue)
}

type searchIssuesArgs struct {
	OrganizationSlug string `json:"organization_slug"`
	ProjectSlug      string `json:"project_slug"`
	RegionURL        string `json:"region_url,omitempty"`
	Query            string `json:"query"`
	Limit            int    `json:"limit,omitempty"`
}

func (r *Runner) searchIssues(ctx context.Context, args map[string]any) (map[string]any, error) {
	var in searchIssuesArgs
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
	query, err := requireString(in.Query, "query")
	if err != nil {
		return nil, err
	}

	issues, err := r.api.ListIssues(ctx, org, project, trackerapi.IssueListOptions{
		Query: query,
		Limit: in.Limit,
	})
	if err != nil {
		return nil, mapExecutionError(err, "searching issues", map[string]string{
			"organization_slug": org,
			"project_slug":      project,
		})
	}
	return map[string]any{
		"organization": org,
		"project":      project,
		"query":        query,
		"count":        len(issues),
		"issues":       issues,
	}, nil
}
