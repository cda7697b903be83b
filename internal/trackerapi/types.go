package trackerapi

// User is the authenticated principal behind the access token.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Organization is a trakd organization.
type Organization struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Project belongs to one organization.
type Project struct {
	ID       string `json:"id"`
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Platform string `json:"platform,omitempty"`
}

// Team belongs to one organization.
type Team struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Issue is a grouped error or problem report.
type Issue struct {
	ID        string `json:"id"`
	ShortID   string `json:"shortId"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	Level     string `json:"level,omitempty"`
	Assignee  string `json:"assignee,omitempty"`
	Count     int64  `json:"count"`
	FirstSeen string `json:"firstSeen,omitempty"`
	LastSeen  string `json:"lastSeen,omitempty"`
	Permalink string `json:"permalink,omitempty"`
}

// Event is a single occurrence within an issue.
type Event struct {
	ID       string         `json:"id"`
	IssueID  string         `json:"issueId"`
	Message  string         `json:"message"`
	Platform string         `json:"platform,omitempty"`
	Received string         `json:"dateReceived,omitempty"`
	Tags     map[string]any `json:"tags,omitempty"`
}

// Release is a deployable version of a project.
type Release struct {
	Version  string `json:"version"`
	Ref      string `json:"ref,omitempty"`
	URL      string `json:"url,omitempty"`
	Created  string `json:"dateCreated,omitempty"`
	Projects int    `json:"projectCount,omitempty"`
}

// Analysis run states. Completed, failed, and needs-input are terminal for
// polling purposes; anything else means the run is still in progress.
const (
	AnalysisStateQueued     = "queued"
	AnalysisStateProcessing = "processing"
	AnalysisStateCompleted  = "completed"
	AnalysisStateFailed     = "failed"
	AnalysisStateNeedsInput = "needs_input"
)

// AnalysisRun is a server-side AI root-cause analysis job for one issue.
type AnalysisRun struct {
	ID          string `json:"id"`
	IssueID     string `json:"issueId"`
	State       string `json:"state"`
	Summary     string `json:"summary,omitempty"`
	RootCause   string `json:"rootCause,omitempty"`
	Remediation string `json:"remediation,omitempty"`
}

// Terminal reports whether the run has reached a state polling stops at.
func (r AnalysisRun) Terminal() bool {
	switch r.State {
	case AnalysisStateCompleted, AnalysisStateFailed, AnalysisStateNeedsInput:
		return true
	default:
		return false
	}
}

// IssueListOptions narrows issue listing and search.
type IssueListOptions struct {
	Query  string
	Status string
	Limit  int
}

// IssueUpdate carries the mutable issue fields. Nil fields are untouched.
type IssueUpdate struct {
	Status   *string `json:"status,omitempty"`
	Assignee *string `json:"assignedTo,omitempty"`
}

// CreateProjectRequest creates a project inside a team.
type CreateProjectRequest struct {
	Name     string `json:"name"`
	Slug     string `json:"slug,omitempty"`
	TeamSlug string `json:"team"`
	Platform string `json:"platform,omitempty"`
}

// CreateTeamRequest creates a team in an organization.
type CreateTeamRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// CreateReleaseRequest registers a release version for a project.
type CreateReleaseRequest struct {
	Version string `json:"version"`
	Ref     string `json:"ref,omitempty"`
	URL     string `json:"url,omitempty"`
}
