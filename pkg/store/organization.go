package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wisbric/ghingest/pkg/githubapi"
)

// OrganizationStore persists organizations, last-writer-wins on every
// non-key column.
type OrganizationStore struct {
	pooled
}

// NewOrganizationStore creates an OrganizationStore backed by the given pool.
func NewOrganizationStore(pool *pgxpool.Pool) *OrganizationStore {
	return &OrganizationStore{pooled{pool: pool}}
}

const organizationColumns = `id, login, url, avatar_url, description, name, company, blog, location,
	email, public_repos, followers, following, upstream_created_at, upstream_updated_at,
	created_at, updated_at`

func scanOrganizationRow(row pgx.Row) (Organization, error) {
	var o Organization
	err := row.Scan(
		&o.ID, &o.Login, &o.URL, &o.AvatarURL, &o.Description, &o.Name, &o.Company, &o.Blog, &o.Location,
		&o.Email, &o.PublicRepos, &o.Followers, &o.Following, &o.UpstreamCreatedAt, &o.UpstreamUpdatedAt,
		&o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

// OrganizationFromUpstream maps a decoded upstream organization payload to
// an Organization row.
func OrganizationFromUpstream(o githubapi.Organization) Organization {
	return Organization{
		ID:                o.ID,
		Login:             o.Login,
		URL:               o.URL,
		AvatarURL:         o.AvatarURL,
		Description:       o.Description,
		Name:              o.Name,
		Company:           o.Company,
		Blog:              o.Blog,
		Location:          o.Location,
		Email:             o.Email,
		PublicRepos:       o.PublicRepos,
		Followers:         o.Followers,
		Following:         o.Following,
		UpstreamCreatedAt: parseUpstreamTime(o.CreatedAt),
		UpstreamUpdatedAt: parseUpstreamTime(o.UpdatedAt),
	}
}

// Save writes o: inserts if no row with o.ID exists, otherwise updates
// every non-key column.
func (s *OrganizationStore) Save(ctx context.Context, o Organization) (Organization, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Organization{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var existingID int64
	err = tx.QueryRow(ctx, `SELECT id FROM organizations WHERE id = $1 FOR UPDATE`, o.ID).Scan(&existingID)
	exists := err == nil
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return Organization{}, fmt.Errorf("looking up organization: %w", err)
	}

	var row pgx.Row
	if exists {
		row = tx.QueryRow(ctx, `UPDATE organizations SET
			login=$2, url=$3, avatar_url=$4, description=$5, name=$6, company=$7, blog=$8,
			location=$9, email=$10, public_repos=$11, followers=$12, following=$13,
			upstream_created_at=$14, upstream_updated_at=$15, updated_at=now()
			WHERE id=$1
			RETURNING `+organizationColumns,
			o.ID, o.Login, o.URL, o.AvatarURL, o.Description, o.Name, o.Company, o.Blog,
			o.Location, o.Email, o.PublicRepos, o.Followers, o.Following,
			o.UpstreamCreatedAt, o.UpstreamUpdatedAt,
		)
	} else {
		row = tx.QueryRow(ctx, `INSERT INTO organizations (
			id, login, url, avatar_url, description, name, company, blog, location, email,
			public_repos, followers, following, upstream_created_at, upstream_updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
			RETURNING `+organizationColumns,
			o.ID, o.Login, o.URL, o.AvatarURL, o.Description, o.Name, o.Company, o.Blog,
			o.Location, o.Email, o.PublicRepos, o.Followers, o.Following,
			o.UpstreamCreatedAt, o.UpstreamUpdatedAt,
		)
	}

	saved, err := scanOrganizationRow(row)
	if err != nil {
		return Organization{}, fmt.Errorf("saving organization: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Organization{}, fmt.Errorf("committing organization save: %w", err)
	}
	return saved, nil
}

// GetByLogin returns an organization by handle, or ErrRecordNotFound.
func (s *OrganizationStore) GetByLogin(ctx context.Context, login string) (Organization, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE login = $1`, login)
	o, err := scanOrganizationRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Organization{}, ErrRecordNotFound
	}
	if err != nil {
		return Organization{}, fmt.Errorf("getting organization by login: %w", err)
	}
	return o, nil
}
