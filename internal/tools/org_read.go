package tools

import "context"

func (r *Runner) whoAmI(ctx context.Context) (map[string]any, error) {
	user, err := r.api.WhoAmI(ctx)
	if err != nil {
		return nil, mapExecutionError(err, "fetching authenticated user", nil)
	}
	return toMap(user)
}

func (r *Runner) orgList(ctx context.Context) (map[string]any, error) {
	orgs, err := r.api.ListOrganizations(ctx)
	if err != nil {
		return nil, mapExecutionError(err, "listing organizations", nil)
	}
	return map[string]any{
		"count":         len(orgs),
		"organizations": orgs,
	}, nil
}
