package tools

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/trakdhq/trakd-mcp/internal/trackerapi"
)

const (
	defaultAnalysisPollInterval = 5 * time.Second
	defaultAnalysisBudget       = 2 * time.Minute
)

type analysisRunArgs struct {
	OrganizationSlug string `json:"organization_slug"`
	RegionURL        string `json:"region_url,omitempty"`
	IssueID          string `json:"issue_id"`
}

// analysisIssueRun drives a server-side analysis job: reuse an existing
// terminal run if one exists, otherwise start one and poll on a fixed
// interval until a terminal state or the wall-clock budget is reached.
// Budget exhaustion is not an error; the caller gets the last observed
// state and instructions to re-invoke.
func (r *Runner) analysisIssueRun(ctx context.Context, args map[string]any) (map[string]any, error) {
	var in analysisRunArgs
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
	identifiers := map[string]string{
		"organization_slug": org,
		"issue_id":          issueID,
	}

	run, err := r.api.GetIssueAnalysis(ctx, org, issueID)
	switch {
	case err == nil && run.Terminal():
		return analysisResult(run, false), nil
	case err == nil:
		// A run is already in flight; fall through to polling it.
	case isNotFound(err):
		run, err = r.api.StartIssueAnalysis(ctx, org, issueID)
		if err != nil {
			return nil, mapExecutionError(err, "starting issue analysis", identifiers)
		}
		if run.Terminal() {
			return analysisResult(run, false), nil
		}
	default:
		return nil, mapExecutionError(err, "checking issue analysis state", identifiers)
	}

	deadline := time.Now().Add(r.analysisBudget)
	ticker := time.NewTicker(r.analysisPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, mapExecutionError(ctx.Err(), "polling issue analysis", identifiers)
		case <-ticker.C:
		}

		latest, pollErr := r.api.GetIssueAnalysis(ctx, org, issueID)
		if pollErr != nil {
			return nil, mapExecutionError(pollErr, "polling issue analysis", identifiers)
		}
		run = latest
		if run.Terminal() {
			return analysisResult(run, false), nil
		}
		if time.Now().After(deadline) {
			return analysisResult(run, true), nil
		}
	}
}

func analysisResult(run *trackerapi.AnalysisRun, timedOut bool) map[string]any {
	out := map[string]any{
		"run_id":   run.ID,
		"issue_id": run.IssueID,
		"state":    run.State,
	}
	if run.Summary != "" {
		out["summary"] = run.Summary
	}
	if run.RootCause != "" {
		out["root_cause"] = run.RootCause
	}
	if run.Remediation != "" {
		out["remediation"] = run.Remediation
	}
	if run.State == trackerapi.AnalysisStateNeedsInput {
		out["next_step"] = "the analysis is waiting for human input; review it in the trakd UI"
	}
	if timedOut {
		out["timed_out"] = true
		out["next_step"] = "the analysis is still running; invoke analysis.issue.run again later to fetch the result"
	}
	return out
}

func isNotFound(err error) bool {
	var apiErr *trackerapi.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
