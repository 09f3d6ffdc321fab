// Package store persists the decoded upstream entities (push events,
// users, repositories, organizations) using hand-written SQL over pgx —
// no generic upsert, since conflict detection on the push event's JSON
// column is unreliable on some backends (spec.md §4.6).
package store

import (
	"encoding/json"
	"time"
)

// PushEvent is append-only: once created, a row is never overwritten by a
// later save of the same ID.
type PushEvent struct {
	ID           string
	ActorID      int64
	RepositoryID int64
	PushID       int64
	Ref          string
	Head         string
	Before       string
	Raw          json.RawMessage
	CreatedAt    time.Time
}

// User mirrors the upstream user object, flattened and with upstream
// timestamps renamed to avoid colliding with local record timestamps.
type User struct {
	ID                int64
	Login             string
	Name              *string
	AvatarURL         string
	AvatarKey         *string
	GravatarID        *string
	URL               string
	HTMLURL           string
	Type              string
	SiteAdmin         bool
	Company           *string
	Blog              *string
	Location          *string
	Email             *string
	Hireable          *bool
	Bio               *string
	TwitterUsername   *string
	PublicRepos       int64
	PublicGists       int64
	Followers         int64
	Following         int64
	UpstreamCreatedAt *time.Time
	UpstreamUpdatedAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Repository mirrors the upstream repository object. OwnerID is extracted
// from the nested owner object; license fields are flattened with a
// license_ prefix; Topics preserves upstream order.
type Repository struct {
	ID                int64
	NodeID            string
	Name              string
	FullName          string
	OwnerID           int64
	Private           bool
	HTMLURL           string
	Description       *string
	Fork              bool
	URL               string
	Homepage          *string
	Size              int64
	StargazersCount   int64
	WatchersCount     int64
	Language          *string
	ForksCount        int64
	OpenIssuesCount   int64
	DefaultBranch     string
	Topics            []string
	Archived          bool
	Disabled          bool
	HasIssues         bool
	HasWiki           bool
	HasPages          bool
	HasDownloads      bool
	LicenseKey        *string
	LicenseName       *string
	LicenseSPDXID     *string
	LicenseURL        *string
	LicenseNodeID     *string
	UpstreamCreatedAt *time.Time
	UpstreamUpdatedAt *time.Time
	UpstreamPushedAt  *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Organization mirrors the upstream organization object.
type Organization struct {
	ID                int64
	Login             string
	URL               string
	AvatarURL         string
	Description       *string
	Name              *string
	Company           *string
	Blog              *string
	Location          *string
	Email             *string
	PublicRepos       int64
	Followers         int64
	Following         int64
	UpstreamCreatedAt *time.Time
	UpstreamUpdatedAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
