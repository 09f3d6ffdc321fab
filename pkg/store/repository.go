package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wisbric/ghingest/pkg/githubapi"
)

// RepositoryStore persists repositories, last-writer-wins on every
// non-key column.
type RepositoryStore struct {
	pooled
}

// NewRepositoryStore creates a RepositoryStore backed by the given pool.
func NewRepositoryStore(pool *pgxpool.Pool) *RepositoryStore {
	return &RepositoryStore{pooled{pool: pool}}
}

const repositoryColumns = `id, node_id, name, full_name, owner_id, private, html_url, description,
	fork, url, homepage, size, stargazers_count, watchers_count, language, forks_count,
	open_issues_count, default_branch, topics, archived, disabled, has_issues, has_wiki,
	has_pages, has_downloads, license_key, license_name, license_spdx_id, license_url,
	license_node_id, upstream_created_at, upstream_updated_at, upstream_pushed_at,
	created_at, updated_at`

func scanRepositoryRow(row pgx.Row) (Repository, error) {
	var r Repository
	err := row.Scan(
		&r.ID, &r.NodeID, &r.Name, &r.FullName, &r.OwnerID, &r.Private, &r.HTMLURL, &r.Description,
		&r.Fork, &r.URL, &r.Homepage, &r.Size, &r.StargazersCount, &r.WatchersCount, &r.Language, &r.ForksCount,
		&r.OpenIssuesCount, &r.DefaultBranch, &r.Topics, &r.Archived, &r.Disabled, &r.HasIssues, &r.HasWiki,
		&r.HasPages, &r.HasDownloads, &r.LicenseKey, &r.LicenseName, &r.LicenseSPDXID, &r.LicenseURL,
		&r.LicenseNodeID, &r.UpstreamCreatedAt, &r.UpstreamUpdatedAt, &r.UpstreamPushedAt,
		&r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}

// RepositoryFromUpstream maps a decoded upstream repository payload to a
// Repository row, flattening the owner and license sub-objects.
func RepositoryFromUpstream(r githubapi.Repository) Repository {
	repo := Repository{
		ID:                r.ID,
		NodeID:            r.NodeID,
		Name:              r.Name,
		FullName:          r.FullName,
		OwnerID:           r.Owner.ID,
		Private:           r.Private,
		HTMLURL:           r.HTMLURL,
		Description:       r.Description,
		Fork:              r.Fork,
		URL:               r.URL,
		Homepage:          r.Homepage,
		Size:              r.Size,
		StargazersCount:   r.StargazersCount,
		WatchersCount:     r.WatchersCount,
		Language:          r.Language,
		ForksCount:        r.ForksCount,
		OpenIssuesCount:   r.OpenIssuesCount,
		DefaultBranch:     r.DefaultBranch,
		Topics:            r.Topics,
		Archived:          r.Archived,
		Disabled:          r.Disabled,
		HasIssues:         r.HasIssues,
		HasWiki:           r.HasWiki,
		HasPages:          r.HasPages,
		HasDownloads:      r.HasDownloads,
		UpstreamCreatedAt: parseUpstreamTime(r.CreatedAt),
		UpstreamUpdatedAt: parseUpstreamTime(r.UpdatedAt),
		UpstreamPushedAt:  parseUpstreamTime(r.PushedAt),
	}
	if r.License != nil {
		repo.LicenseKey = &r.License.Key
		repo.LicenseName = &r.License.Name
		repo.LicenseSPDXID = r.License.SPDXID
		repo.LicenseURL = r.License.URL
		repo.LicenseNodeID = &r.License.NodeID
	}
	return repo
}

// Save writes r: inserts if no row with r.ID exists, otherwise updates
// every non-key column.
func (s *RepositoryStore) Save(ctx context.Context, r Repository) (Repository, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Repository{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var existingID int64
	err = tx.QueryRow(ctx, `SELECT id FROM repositories WHERE id = $1 FOR UPDATE`, r.ID).Scan(&existingID)
	exists := err == nil
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return Repository{}, fmt.Errorf("looking up repository: %w", err)
	}

	args := []any{
		r.ID, r.NodeID, r.Name, r.FullName, r.OwnerID, r.Private, r.HTMLURL, r.Description,
		r.Fork, r.URL, r.Homepage, r.Size, r.StargazersCount, r.WatchersCount, r.Language, r.ForksCount,
		r.OpenIssuesCount, r.DefaultBranch, r.Topics, r.Archived, r.Disabled, r.HasIssues, r.HasWiki,
		r.HasPages, r.HasDownloads, r.LicenseKey, r.LicenseName, r.LicenseSPDXID, r.LicenseURL,
		r.LicenseNodeID, r.UpstreamCreatedAt, r.UpstreamUpdatedAt, r.UpstreamPushedAt,
	}

	var row pgx.Row
	if exists {
		row = tx.QueryRow(ctx, `UPDATE repositories SET
			node_id=$2, name=$3, full_name=$4, owner_id=$5, private=$6, html_url=$7, description=$8,
			fork=$9, url=$10, homepage=$11, size=$12, stargazers_count=$13, watchers_count=$14,
			language=$15, forks_count=$16, open_issues_count=$17, default_branch=$18, topics=$19,
			archived=$20, disabled=$21, has_issues=$22, has_wiki=$23, has_pages=$24, has_downloads=$25,
			license_key=$26, license_name=$27, license_spdx_id=$28, license_url=$29, license_node_id=$30,
			upstream_created_at=$31, upstream_updated_at=$32, upstream_pushed_at=$33, updated_at=now()
			WHERE id=$1
			RETURNING `+repositoryColumns, args...)
	} else {
		row = tx.QueryRow(ctx, `INSERT INTO repositories (
			id, node_id, name, full_name, owner_id, private, html_url, description,
			fork, url, homepage, size, stargazers_count, watchers_count, language, forks_count,
			open_issues_count, default_branch, topics, archived, disabled, has_issues, has_wiki,
			has_pages, has_downloads, license_key, license_name, license_spdx_id, license_url,
			license_node_id, upstream_created_at, upstream_updated_at, upstream_pushed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,
			$23,$24,$25,$26,$27,$28,$29,$30,$31,$32,$33)
			RETURNING `+repositoryColumns, args...)
	}

	saved, err := scanRepositoryRow(row)
	if err != nil {
		return Repository{}, fmt.Errorf("saving repository: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Repository{}, fmt.Errorf("committing repository save: %w", err)
	}
	return saved, nil
}

// GetByFullName returns a repository by its "owner/name" composite, or
// ErrRecordNotFound.
func (s *RepositoryStore) GetByFullName(ctx context.Context, fullName string) (Repository, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+repositoryColumns+` FROM repositories WHERE full_name = $1`, fullName)
	r, err := scanRepositoryRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Repository{}, ErrRecordNotFound
	}
	if err != nil {
		return Repository{}, fmt.Errorf("getting repository by full name: %w", err)
	}
	return r, nil
}
