package githubapi

import "encoding/json"

// Event is a single entry from the public events stream. Only PushEvent
// entries carry a Payload the rest of this package understands; other
// types are decoded far enough to be filtered out by the caller.
type Event struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Actor   Actor           `json:"actor"`
	Repo    EventRepo       `json:"repo"`
	Payload json.RawMessage `json:"payload"`
	// Raw is not present on the upstream wire shape; it is filled in by
	// ListPublicEvents and carried through job args so the handle-event
	// job can persist the exact original bytes.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// Actor identifies who triggered an event.
type Actor struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	URL   string `json:"url"`
}

// EventRepo is the repository reference embedded in an event. Name is the
// "owner/name" composite form.
type EventRepo struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// PushPayload is the payload shape of a PushEvent.
type PushPayload struct {
	RepositoryID int64  `json:"repository_id"`
	PushID       int64  `json:"push_id"`
	Ref          string `json:"ref"`
	Head         string `json:"head"`
	Before       string `json:"before"`
}

// User is the decoded shape of a GET /users/{handle} response.
type User struct {
	ID                int64   `json:"id"`
	Login             string  `json:"login"`
	Name              *string `json:"name"`
	AvatarURL         string  `json:"avatar_url"`
	GravatarID        *string `json:"gravatar_id"`
	URL               string  `json:"url"`
	HTMLURL           string  `json:"html_url"`
	Type              string  `json:"type"`
	SiteAdmin         bool    `json:"site_admin"`
	Company           *string `json:"company"`
	Blog              *string `json:"blog"`
	Location          *string `json:"location"`
	Email             *string `json:"email"`
	Hireable          *bool   `json:"hireable"`
	Bio               *string `json:"bio"`
	TwitterUsername   *string `json:"twitter_username"`
	PublicRepos       int64   `json:"public_repos"`
	PublicGists       int64   `json:"public_gists"`
	Followers         int64   `json:"followers"`
	Following         int64   `json:"following"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`
}

// License is the flattened license object on a Repository response.
type License struct {
	Key    string  `json:"key"`
	Name   string  `json:"name"`
	SPDXID *string `json:"spdx_id"`
	URL    *string `json:"url"`
	NodeID string  `json:"node_id"`
}

// Repository is the decoded shape of a GET /repos/{owner}/{name} response.
type Repository struct {
	ID              int64     `json:"id"`
	NodeID          string    `json:"node_id"`
	Name            string    `json:"name"`
	FullName        string    `json:"full_name"`
	Owner           Actor     `json:"owner"`
	Private         bool      `json:"private"`
	HTMLURL         string    `json:"html_url"`
	Description     *string   `json:"description"`
	Fork            bool      `json:"fork"`
	URL             string    `json:"url"`
	Homepage        *string   `json:"homepage"`
	Size            int64     `json:"size"`
	StargazersCount int64     `json:"stargazers_count"`
	WatchersCount   int64     `json:"watchers_count"`
	Language        *string   `json:"language"`
	ForksCount      int64     `json:"forks_count"`
	OpenIssuesCount int64     `json:"open_issues_count"`
	DefaultBranch   string    `json:"default_branch"`
	Topics          []string  `json:"topics"`
	Archived        bool      `json:"archived"`
	Disabled        bool      `json:"disabled"`
	HasIssues       bool      `json:"has_issues"`
	HasWiki         bool      `json:"has_wiki"`
	HasPages        bool      `json:"has_pages"`
	HasDownloads    bool      `json:"has_downloads"`
	License         *License  `json:"license"`
	CreatedAt       string    `json:"created_at"`
	UpdatedAt       string    `json:"updated_at"`
	PushedAt        string    `json:"pushed_at"`
}

// Organization is the decoded shape of a GET /orgs/{handle} response.
type Organization struct {
	ID          int64   `json:"id"`
	Login       string  `json:"login"`
	URL         string  `json:"url"`
	AvatarURL   string  `json:"avatar_url"`
	Description *string `json:"description"`
	Name        *string `json:"name"`
	Company     *string `json:"company"`
	Blog        *string `json:"blog"`
	Location    *string `json:"location"`
	Email       *string `json:"email"`
	PublicRepos int64   `json:"public_repos"`
	Followers   int64   `json:"followers"`
	Following   int64   `json:"following"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}
