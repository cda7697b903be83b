package tools

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trakdhq/trakd-mcp/internal/trackerapi"
)

// fakeTracker implements trackerClient with overridable function fields.
// Calls without an override fail the test.
type fakeTracker struct {
	t *testing.T

	whoAmI             func(ctx context.Context) (*trackerapi.User, error)
	listOrganizations  func(ctx context.Context) ([]trackerapi.Organization, error)
	listProjects       func(ctx context.Context, org string) ([]trackerapi.Project, error)
	createProject      func(ctx context.Context, org string, req trackerapi.CreateProjectRequest) (*trackerapi.Project, error)
	listTeams          func(ctx context.Context, org string) ([]trackerapi.Team, error)
	createTeam         func(ctx context.Context, org string, req trackerapi.CreateTeamRequest) (*trackerapi.Team, error)
	listIssues         func(ctx context.Context, org, project string, opts trackerapi.IssueListOptions) ([]trackerapi.Issue, error)
	getIssue           func(ctx context.Context, org, issueID string) (*trackerapi.Issue, error)
	updateIssue        func(ctx context.Context, org, issueID string, update trackerapi.IssueUpdate) (*trackerapi.Issue, error)
	getEvent           func(ctx context.Context, org, project, eventID string) (*trackerapi.Event, error)
	listReleases       func(ctx context.Context, org, project string) ([]trackerapi.Release, error)
	createRelease      func(ctx context.Context, org, project string, req trackerapi.CreateReleaseRequest) (*trackerapi.Release, error)
	startIssueAnalysis func(ctx context.Context, org, issueID string) (*trackerapi.AnalysisRun, error)
	getIssueAnalysis   func(ctx context.Context, org, issueID string) (*trackerapi.AnalysisRun, error)
}

func (f *fakeTracker) WhoAmI(ctx context.Context) (*trackerapi.User, error) {
	if f.whoAmI == nil {
		f.t.Fatal("unexpected WhoAmI call")
	}
	return f.whoAmI(ctx)
}

func (f *fakeTracker) ListOrganizations(ctx context.Context) ([]trackerapi.Organization, error) {
	if f.listOrganizations == nil {
		f.t.Fatal("unexpected ListOrganizations call")
	}
	return f.listOrganizations(ctx)
}

func (f *fakeTracker) ListProjects(ctx context.Context, org string) ([]trackerapi.Project, error) {
	if f.listProjects == nil {
		f.t.Fatal("unexpected ListProjects call")
	}
	return f.listProjects(ctx, org)
}

func (f *fakeTracker) CreateProject(ctx context.Context, org string, req trackerapi.CreateProjectRequest) (*trackerapi.Project, error) {
	if f.createProject == nil {
		f.t.Fatal("unexpected CreateProject call")
	}
	return f.createProject(ctx, org, req)
}

func (f *fakeTracker) ListTeams(ctx context.Context, org string) ([]trackerapi.Team, error) {
	if f.listTeams == nil {
		f.t.Fatal("unexpected ListTeams call")
	}
	return f.listTeams(ctx, org)
}

func (f *fakeTracker) CreateTeam(ctx context.Context, org string, req trackerapi.CreateTeamRequest) (*trackerapi.Team, error) {
	if f.createTeam == nil {
		f.t.Fatal("unexpected CreateTeam call")
	}
	return f.createTeam(ctx, org, req)
}

func (f *fakeTracker) ListIssues(ctx context.Context, org, project string, opts trackerapi.IssueListOptions) ([]trackerapi.Issue, error) {
	if f.listIssues == nil {
		f.t.Fatal("unexpected ListIssues call")
	}
	return f.listIssues(ctx, org, project, opts)
}

func (f *fakeTracker) GetIssue(ctx context.Context, org, issueID string) (*trackerapi.Issue, error) {
	if f.getIssue == nil {
		f.t.Fatal("unexpected GetIssue call")
	}
	return f.getIssue(ctx, org, issueID)
}

func (f *fakeTracker) UpdateIssue(ctx context.Context, org, issueID string, update trackerapi.IssueUpdate) (*trackerapi.Issue, error) {
	if f.updateIssue == nil {
		f.t.Fatal("unexpected UpdateIssue call")
	}
	return f.updateIssue(ctx, org, issueID, update)
}

func (f *fakeTracker) GetEvent(ctx context.Context, org, project, eventID string) (*trackerapi.Event, error) {
	if f.getEvent == nil {
		f.t.Fatal("unexpected GetEvent call")
	}
	return f.getEvent(ctx, org, project, eventID)
}

func (f *fakeTracker) ListReleases(ctx context.Context, org, project string) ([]trackerapi.Release, error) {
	if f.listReleases == nil {
		f.t.Fatal("unexpected ListReleases call")
	}
	return f.listReleases(ctx, org, project)
}

func (f *fakeTracker) CreateRelease(ctx context.Context, org, project string, req trackerapi.CreateReleaseRequest) (*trackerapi.Release, error) {
	if f.createRelease == nil {
		f.t.Fatal("unexpected CreateRelease call")
	}
	return f.createRelease(ctx, org, project, req)
}

func (f *fakeTracker) StartIssueAnalysis(ctx context.Context, org, issueID string) (*trackerapi.AnalysisRun, error) {
	if f.startIssueAnalysis == nil {
		f.t.Fatal("unexpected StartIssueAnalysis call")
	}
	return f.startIssueAnalysis(ctx, org, issueID)
}

func (f *fakeTracker) GetIssueAnalysis(ctx context.Context, org, issueID string) (*trackerapi.AnalysisRun, error) {
	if f.getIssueAnalysis == nil {
		f.t.Fatal("unexpected GetIssueAnalysis call")
	}
	return f.getIssueAnalysis(ctx, org, issueID)
}

func newTestRunner(api trackerClient) *Runner {
	return &Runner{
		api:                  api,
		analysisPollInterval: defaultAnalysisPollInterval,
		analysisBudget:       defaultAnalysisBudget,
	}
}

func TestCall_UnknownTool(t *testing.T) {
	runner := newTestRunner(&fakeTracker{t: t})

	_, err := runner.Call(context.Background(), "does.not.exist", nil)
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	require.Equal(t, http.StatusBadRequest, toolErr.StatusCode())
}

func TestCall_WhoAmI(t *testing.T) {
	api := &fakeTracker{
		t: t,
		whoAmI: func(ctx context.Context) (*trackerapi.User, error) {
			return &trackerapi.User{ID: "u1", Name: "Ada", Email: "ada@acme.dev"}, nil
		},
	}
	runner := newTestRunner(api)

	result, err := runner.Call(context.Background(), "whoami", nil)
	require.NoError(t, err)
	require.Equal(t, "u1", result["id"])
	require.Equal(t, "ada@acme.dev", result["email"])
}

func TestCall_IssueList(t *testing.T) {
	api := &fakeTracker{
		t: t,
		listIssues: func(ctx context.Context, org, project string, opts trackerapi.IssueListOptions) ([]trackerapi.Issue, error) {
			require.Equal(t, "acme", org)
			require.Equal(t, "storefront", project)
			require.Equal(t, "unresolved", opts.Status)
			return []trackerapi.Issue{
				{ID: "1", ShortID: "STOREFRONT-1", Title: "nil deref", Status: "unresolved"},
				{ID: "2", ShortID: "STOREFRONT-2", Title: "timeout", Status: "unresolved"},
			}, nil
		},
	}
	runner := newTestRunner(api)

	result, err := runner.Call(context.Background(), "issue.list", map[string]any{
		"organization_slug": "acme",
		"project_slug":      "storefront",
		"status":            "unresolved",
	})
	require.NoError(t, err)
	require.Equal(t, 2, result["count"])
	require.Equal(t, "acme", result["organization"])
}

func TestCall_MissingRequiredArgument(t *testing.T) {
	runner := newTestRunner(&fakeTracker{t: t})

	_, err := runner.Call(context.Background(), "issue.get", map[string]any{
		"organization_slug": "acme",
	})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	require.Equal(t, http.StatusBadRequest, toolErr.StatusCode())
	require.Contains(t, toolErr.Error(), "issue_id is required")
}

func TestCall_UnknownArgumentRejected(t *testing.T) {
	runner := newTestRunner(&fakeTracker{t: t})

	_, err := runner.Call(context.Background(), "issue.get", map[string]any{
		"organization_slug": "acme",
		"issue_id":          "TRAKD-1",
		"surprise":          true,
	})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	require.Equal(t, http.StatusBadRequest, toolErr.StatusCode())
}

func TestCall_Remote4xxGainsIdentifiers(t *testing.T) {
	api := &fakeTracker{
		t: t,
		getIssue: func(ctx context.Context, org, issueID string) (*trackerapi.Issue, error) {
			return nil, &trackerapi.APIError{StatusCode: http.StatusNotFound, Detail: "issue not found"}
		},
	}
	runner := newTestRunner(api)

	_, err := runner.Call(context.Background(), "issue.get", map[string]any{
		"organization_slug": "acme",
		"issue_id":          "TRAKD-404",
	})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	require.Equal(t, http.StatusNotFound, toolErr.StatusCode())
	require.Contains(t, toolErr.Error(), "verify these identifiers are correct")
	require.Contains(t, toolErr.Error(), "issue_id=TRAKD-404")
	require.Contains(t, toolErr.Error(), "organization_slug=acme")
}

func TestCall_Remote5xxKeepsStatusWithoutIdentifierHint(t *testing.T) {
	api := &fakeTracker{
		t: t,
		listProjects: func(ctx context.Context, org string) ([]trackerapi.Project, error) {
			return nil, &trackerapi.APIError{StatusCode: http.StatusBadGateway, Detail: "upstream unavailable"}
		},
	}
	runner := newTestRunner(api)

	_, err := runner.Call(context.Background(), "project.list", map[string]any{
		"organization_slug": "acme",
	})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	require.Equal(t, http.StatusBadGateway, toolErr.StatusCode())
	require.NotContains(t, toolErr.Error(), "verify these identifiers")
}

func TestCall_IssueUpdateValidatesStatus(t *testing.T) {
	runner := newTestRunner(&fakeTracker{t: t})

	_, err := runner.Call(context.Background(), "issue.update", map[string]any{
		"organization_slug": "acme",
		"issue_id":          "TRAKD-1",
		"status":            "archived",
	})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	require.Contains(t, toolErr.Error(), "invalid status")

	_, err = runner.Call(context.Background(), "issue.update", map[string]any{
		"organization_slug": "acme",
		"issue_id":          "TRAKD-1",
	})
	require.ErrorAs(t, err, &toolErr)
	require.Contains(t, toolErr.Error(), "requires status or assignee")
}

func TestCall_IssueUpdateSendsOnlyPopulatedFields(t *testing.T) {
	api := &fakeTracker{
		t: t,
		updateIssue: func(ctx context.Context, org, issueID string, update trackerapi.IssueUpdate) (*trackerapi.Issue, error) {
			require.NotNil(t, update.Status)
			require.Equal(t, "resolved", *update.Status)
			require.Nil(t, update.Assignee)
			return &trackerapi.Issue{ID: issueID, Status: *update.Status}, nil
		},
	}
	runner := newTestRunner(api)

	result, err := runner.Call(context.Background(), "issue.update", map[string]any{
		"organization_slug": "acme",
		"issue_id":          "TRAKD-1",
		"status":            "Resolved",
		"confirm":           true,
	})
	require.NoError(t, err)
	require.Equal(t, "resolved", result["status"])
}
