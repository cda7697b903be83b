package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/trakdhq/trakd-mcp/internal/trackerapi"
)

// trackerClient is the slice of the trakd API the tool runner needs.
type trackerClient interface {
	WhoAmI(ctx context.Context) (*trackerapi.User, error)
	ListOrganizations(ctx context.Context) ([]trackerapi.Organization, error)
	ListProjects(ctx context.Context, org string) ([]trackerapi.Project, error)
	CreateProject(ctx context.Context, org string, req trackerapi.CreateProjectRequest) (*trackerapi.Project, error)
	ListTeams(ctx context.Context, org string) ([]trackerapi.Team, error)
	CreateTeam(ctx context.Context, org string, req trackerapi.CreateTeamRequest) (*trackerapi.Team, error)
	ListIssues(ctx context.Context, org, project string, opts trackerapi.IssueListOptions) ([]trackerapi.Issue, error)
	GetIssue(ctx context.Context, org, issueID string) (*trackerapi.Issue, error)
	UpdateIssue(ctx context.Context, org, issueID string, update trackerapi.IssueUpdate) (*trackerapi.Issue, error)
	GetEvent(ctx context.Context, org, project, eventID string) (*trackerapi.Event, error)
	ListReleases(ctx context.Context, org, project string) ([]trackerapi.Release, error)
	CreateRelease(ctx context.Context, org, project string, req trackerapi.CreateReleaseRequest) (*trackerapi.Release, error)
	StartIssueAnalysis(ctx context.Context, org, issueID string) (*trackerapi.AnalysisRun, error)
	GetIssueAnalysis(ctx context.Context, org, issueID string) (*trackerapi.AnalysisRun, error)
}

// Runner executes MCP tool calls against the trakd API.
type Runner struct {
	api trackerClient

	analysisPollInterval time.Duration
	analysisBudget       time.Duration
}

// NewRunner creates a tool runner backed by the given API client.
func NewRunner(api *trackerapi.Client) *Runner {
	return &Runner{
		api:                  api,
		analysisPollInterval: defaultAnalysisPollInterval,
		analysisBudget:       defaultAnalysisBudget,
	}
}

// Call executes one tool by name. Arguments arrive fully finalized: the
// dispatcher has already gated the call and injected constraint values.
func (r *Runner) Call(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	switch strings.TrimSpace(name) {
	case "whoami":
		return r.whoAmI(ctx)
	case "org.list":
		return r.orgList(ctx)

	case "project.list":
		return r.projectList(ctx, args)
	case "project.create":
		return r.projectCreate(ctx, args)

	case "team.list":
		return r.teamList(ctx, args)
	case "team.create":
		return r.teamCreate(ctx, args)

	case "issue.list":
		return r.issueList(ctx, args)
	case "issue.get":
		return r.issueGet(ctx, args)
	case "issue.update":
		return r.issueUpdate(ctx, args)

	case "event.get":
		return r.eventGet(ctx, args)
	case "search.issues":
		return r.searchIssues(ctx, args)

	case "release.list":
		return r.releaseList(ctx, args)
	case "release.create":
		return r.releaseCreate(ctx, args)

	case "analysis.issue.run":
		return r.analysisIssueRun(ctx, args)

	default:
		return nil, validationErrorf("tool %s is not implemented", strings.TrimSpace(name))
	}
}

// ToolError carries an HTTP-style status code and message for tool failures.
type ToolError struct {
	statusCode int
	message    string
}

// Error implements error.
func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	return strings.TrimSpace(e.message)
}

// StatusCode returns the attached status code.
func (e *ToolError) StatusCode() int {
	if e == nil || e.statusCode == 0 {
		return http.StatusInternalServerError
	}
	return e.statusCode
}

func validationErrorf(format string, args ...any) error {
	return &ToolError{
		statusCode: http.StatusBadRequest,
		message:    fmt.Sprintf(format, args...),
	}
}

// mapExecutionError folds API client failures into tool errors. Remote 4xx
// responses keep their status and gain the caller's identifiers so the
// caller can self-correct; everything else surfaces as an upstream fault.
func mapExecutionError(err error, fallback string, identifiers map[string]string) error {
	if err == nil {
		return nil
	}
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr
	}
	var apiErr *trackerapi.APIError
	if errors.As(err, &apiErr) {
		detail := strings.TrimSpace(apiErr.Detail)
		if detail == "" {
			detail = fallback
		}
		if apiErr.StatusCode < 500 {
			return &ToolError{
				statusCode: apiErr.StatusCode,
				message:    fmt.Sprintf("%s; verify these identifiers are correct: %s", detail, formatIdentifiers(identifiers)),
			}
		}
		return &ToolError{
			statusCode: apiErr.StatusCode,
			message:    detail,
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ToolError{
			statusCode: http.StatusGatewayTimeout,
			message:    fallback + ": request timed out",
		}
	}
	if errors.Is(err, context.Canceled) {
		return &ToolError{
			statusCode: http.StatusRequestTimeout,
			message:    fallback + ": request canceled",
		}
	}
	return &ToolError{
		statusCode: http.StatusInternalServerError,
		message:    fmt.Sprintf("%s: %v", fallback, err),
	}
}

func formatIdentifiers(identifiers map[string]string) string {
	if len(identifiers) == 0 {
		return "none supplied"
	}
	parts := make([]string, 0, len(identifiers))
	for key, value := range identifiers {
		parts = append(parts, fmt.Sprintf("%s=%s", key, value))
	}
	return strings.Join(parts, ", ")
}

func decodeArgsStrict(args map[string]any, out any) error {
	if args == nil {
		args = map[string]any{}
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return validationErrorf("invalid tool arguments: %v", err)
	}
	decoder := json.NewDecoder(bytes.NewReader(encoded))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return validationErrorf("invalid tool arguments: %v", err)
	}
	if decoder.More() {
		return validationErrorf("tool arguments must be a single JSON object")
	}
	return nil
}

func toMap(v any) (map[string]any, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding tool response: %w", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		return nil, fmt.Errorf("decoding tool response: %w", err)
	}
	return decoded, nil
}

func requireString(value, name string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", validationErrorf("%s is required", name)
	}
	return trimmed, nil
}
