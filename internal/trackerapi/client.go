// Package trackerapi is a thin typed client for the trakd REST API. It wraps
// HTTP plumbing only; authorization and constraint decisions live in the
// dispatcher, which always passes fully-resolved identifiers down here.
package trackerapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultMaxRetries     = 3
)

// APIError carries the remote API's status code and detail text. 4xx codes
// mean the request itself was wrong; 5xx codes are upstream faults.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	detail := strings.TrimSpace(e.Detail)
	if detail == "" {
		detail = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("trakd API %d: %s", e.StatusCode, detail)
}

// Config configures the trakd API client.
type Config struct {
	BaseURL string
	Token   string
	// RegionURL overrides BaseURL for region-pinned sessions.
	RegionURL string

	HTTPClient *http.Client
	MaxRetries int
}

// Client talks to the trakd REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
}

// New creates a client. The region URL, when set, takes precedence over the
// base URL so every request stays inside the session's region.
func New(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.RegionURL)
	if base == "" {
		base = strings.TrimSpace(cfg.BaseURL)
	}
	if base == "" {
		return nil, fmt.Errorf("trakd API base URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid trakd API base URL: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		token:      strings.TrimSpace(cfg.Token),
		httpClient: httpClient,
		maxRetries: maxRetries,
	}, nil
}

// WhoAmI returns the principal behind the configured token.
func (c *Client) WhoAmI(ctx context.Context) (*User, error) {
	var out User
	if err := c.get(ctx, "/api/0/auth/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListOrganizations lists organizations visible to the token.
func (c *Client) ListOrganizations(ctx context.Context) ([]Organization, error) {
	var out []Organization
	if err := c.get(ctx, "/api/0/organizations/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListProjects lists an organization's projects.
func (c *Client) ListProjects(ctx context.Context, org string) ([]Project, error) {
	var out []Project
	if err := c.get(ctx, fmt.Sprintf("/api/0/organizations/%s/projects/", url.PathEscape(org)), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateProject creates a project inside one of the organization's teams.
func (c *Client) CreateProject(ctx context.Context, org string, req CreateProjectRequest) (*Project, error) {
	var out Project
	path := fmt.Sprintf("/api/0/teams/%s/%s/projects/", url.PathEscape(org), url.PathEscape(req.TeamSlug))
	if err := c.do(ctx, http.MethodPost, path, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTeams lists an organization's teams.
func (c *Client) ListTeams(ctx context.Context, org string) ([]Team, error) {
	var out []Team
	if err := c.get(ctx, fmt.Sprintf("/api/0/organizations/%s/teams/", url.PathEscape(org)), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTeam creates a team in an organization.
func (c *Client) CreateTeam(ctx context.Context, org string, req CreateTeamRequest) (*Team, error) {
	var out Team
	path := fmt.Sprintf("/api/0/organizations/%s/teams/", url.PathEscape(org))
	if err := c.do(ctx, http.MethodPost, path, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListIssues lists or searches a project's issues.
func (c *Client) ListIssues(ctx context.Context, org, project string, opts IssueListOptions) ([]Issue, error) {
	query := url.Values{}
	if strings.TrimSpace(opts.Query) != "" {
		query.Set("query", strings.TrimSpace(opts.Query))
	}
	if strings.TrimSpace(opts.Status) != "" {
		query.Set("status", strings.TrimSpace(opts.Status))
	}
	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	var out []Issue
	path := fmt.Sprintf("/api/0/projects/%s/%s/issues/", url.PathEscape(org), url.PathEscape(project))
	if err := c.get(ctx, path, query, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetIssue fetches one issue by ID or short ID.
func (c *Client) GetIssue(ctx context.Context, org, issueID string) (*Issue, error) {
	var out Issue
	path := fmt.Sprintf("/api/0/organizations/%s/issues/%s/", url.PathEscape(org), url.PathEscape(issueID))
	if err := c.get(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateIssue mutates an issue's status or assignee.
func (c *Client) UpdateIssue(ctx context.Context, org, issueID string, update IssueUpdate) (*Issue, error) {
	var out Issue
	path := fmt.Sprintf("/api/0/organizations/%s/issues/%s/", url.PathEscape(org), url.PathEscape(issueID))
	if err := c.do(ctx, http.MethodPut, path, nil, update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetEvent fetches one event from a project.
func (c *Client) GetEvent(ctx context.Context, org, project, eventID string) (*Event, error) {
	var out Event
	path := fmt.Sprintf("/api/0/projects/%s/%s/events/%s/", url.PathEscape(org), url.PathEscape(project), url.PathEscape(eventID))
	if err := c.get(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListReleases lists a project's releases.
func (c *Client) ListReleases(ctx context.Context, org, project string) ([]Release, error) {
	var out []Release
	path := fmt.Sprintf("/api/0/projects/%s/%s/releases/", url.PathEscape(org), url.PathEscape(project))
	if err := c.get(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateRelease registers a release version for a project.
func (c *Client) CreateRelease(ctx context.Context, org, project string, req CreateReleaseRequest) (*Release, error) {
	var out Release
	path := fmt.Sprintf("/api/0/projects/%s/%s/releases/", url.PathEscape(org), url.PathEscape(project))
	if err := c.do(ctx, http.MethodPost, path, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StartIssueAnalysis starts, or returns the existing, analysis run for an
// issue. The server is idempotent here: a second start while a run is in
// flight returns that run.
func (c *Client) StartIssueAnalysis(ctx context.Context, org, issueID string) (*AnalysisRun, error) {
	var out AnalysisRun
	path := fmt.Sprintf("/api/0/organizations/%s/issues/%s/analysis/", url.PathEscape(org), url.PathEscape(issueID))
	if err := c.do(ctx, http.MethodPost, path, nil, struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetIssueAnalysis fetches the current analysis run state for an issue. A
// 404 means no run exists yet.
func (c *Client) GetIssueAnalysis(ctx context.Context, org, issueID string) (*AnalysisRun, error) {
	var out AnalysisRun
	path := fmt.Sprintf("/api/0/organizations/%s/issues/%s/analysis/", url.PathEscape(org), url.PathEscape(issueID))
	if err := c.get(ctx, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// do runs one API request with bounded retries. Only transport errors and
// 5xx responses are retried; 4xx responses are returned immediately because
// retrying an invalid request cannot help.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	operation := func() ([]byte, error) {
		var reader io.Reader
		if encoded != nil {
			reader = bytes.NewReader(encoded)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("building request: %w", err))
		}
		req.Header.Set("Accept", "application/json")
		if encoded != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return nil, fmt.Errorf("reading response body: %w", err)
		}

		if resp.StatusCode >= 400 {
			apiErr := &APIError{
				StatusCode: resp.StatusCode,
				Detail:     extractDetail(payload),
			}
			if resp.StatusCode >= 500 {
				return nil, apiErr
			}
			return nil, backoff.Permanent(apiErr)
		}
		return payload, nil
	}

	payload, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(c.maxRetries)),
	)
	if err != nil {
		return err
	}

	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}
	return nil
}

func extractDetail(payload []byte) string {
	var problem struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(payload, &problem); err == nil {
		if strings.TrimSpace(problem.Detail) != "" {
			return strings.TrimSpace(problem.Detail)
		}
		if strings.TrimSpace(problem.Error) != "" {
			return strings.TrimSpace(problem.Error)
		}
	}
	return strings.TrimSpace(string(payload))
}
