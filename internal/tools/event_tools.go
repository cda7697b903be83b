package tools

import "context"

type eventGetArgs struct {
	OrganizationSlug string `json:"organization_slug"`
	ProjectSlug      string `json:"project_slug"`
	RegionURL        string `json:"region_url,omitempty"`
	EventID          string `json:"event_id"`
}

func (r *Runner) eventGet(ctx context.Context, args map[string]any) (map[string]any, error) {
	var in eventGetArgs
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
	eventID, err := requireString(in.EventID, "event_id")
	if err != nil {
		return nil, err
	}

	event, err := r.api.GetEvent(ctx, org, project, eventID)
	if err != nil {
		return nil, mapExecutionError(err, "fetching event", map[string]string{
			"organization_slug": org,
			"project_slug":      project,
			"event_id":          eventID,
		})
	}
	return toMap(event)
}
