package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wisbric/ghingest/pkg/githubapi"
)

// ErrRecordNotFound is returned when a lookup or an update targets a row
// that does not exist. The job runtime treats it as permanent, not retried.
var ErrRecordNotFound = errors.New("store: record not found")

// UserStore persists users. Saves are last-writer-wins on every column
// except the avatar key, which only UpdateAvatarKey touches.
type UserStore struct {
	pooled
}

// NewUserStore creates a UserStore backed by the given pool.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pooled{pool: pool}}
}

const userColumns = `id, login, name, avatar_url, avatar_key, gravatar_id, url, html_url, type,
	site_admin, company, blog, location, email, hireable, bio, twitter_username,
	public_repos, public_gists, followers, following,
	upstream_created_at, upstream_updated_at, created_at, updated_at`

func scanUserRow(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Login, &u.Name, &u.AvatarURL, &u.AvatarKey, &u.GravatarID, &u.URL, &u.HTMLURL, &u.Type,
		&u.SiteAdmin, &u.Company, &u.Blog, &u.Location, &u.Email, &u.Hireable, &u.Bio, &u.TwitterUsername,
		&u.PublicRepos, &u.PublicGists, &u.Followers, &u.Following,
		&u.UpstreamCreatedAt, &u.UpstreamUpdatedAt, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

// UserFromUpstream maps a decoded upstream user payload to a User row. Missing
// upstream fields become null rather than aborting the save.
func UserFromUpstream(u githubapi.User) User {
	return User{
		ID:                u.ID,
		Login:             u.Login,
		Name:              u.Name,
		AvatarURL:         u.AvatarURL,
		GravatarID:        u.GravatarID,
		URL:               u.URL,
		HTMLURL:           u.HTMLURL,
		Type:              u.Type,
		SiteAdmin:         u.SiteAdmin,
		Company:           u.Company,
		Blog:              u.Blog,
		Location:          u.Location,
		Email:             u.Email,
		Hireable:          u.Hireable,
		Bio:               u.Bio,
		TwitterUsername:   u.TwitterUsername,
		PublicRepos:       u.PublicRepos,
		PublicGists:       u.PublicGists,
		Followers:         u.Followers,
		Following:         u.Following,
		UpstreamCreatedAt: parseUpstreamTime(u.CreatedAt),
		UpstreamUpdatedAt: parseUpstreamTime(u.UpdatedAt),
	}
}

// Save writes u: inserts if no row with u.ID exists, otherwise updates
// every non-key column. The avatar key is never touched here.
func (s *UserStore) Save(ctx context.Context, u User) (User, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return User{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var existingID int64
	err = tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, u.ID).Scan(&existingID)
	exists := err == nil
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return User{}, fmt.Errorf("looking up user: %w", err)
	}

	var row pgx.Row
	if exists {
		row = tx.QueryRow(ctx, `UPDATE users SET
			login = $2, name = $3, avatar_url = $4, gravatar_id = $5, url = $6, html_url = $7,
			type = $8, site_admin = $9, company = $10, blog = $11, location = $12, email = $13,
			hireable = $14, bio = $15, twitter_username = $16, public_repos = $17, public_gists = $18,
			followers = $19, following = $20, upstream_created_at = $21, upstream_updated_at = $22,
			updated_at = now()
			WHERE id = $1
			RETURNING `+userColumns,
			u.ID, u.Login, u.Name, u.AvatarURL, u.GravatarID, u.URL, u.HTMLURL,
			u.Type, u.SiteAdmin, u.Company, u.Blog, u.Location, u.Email,
			u.Hireable, u.Bio, u.TwitterUsername, u.PublicRepos, u.PublicGists,
			u.Followers, u.Following, u.UpstreamCreatedAt, u.UpstreamUpdatedAt,
		)
	} else {
		row = tx.QueryRow(ctx, `INSERT INTO users (
			id, login, name, avatar_url, gravatar_id, url, html_url, type, site_admin,
			company, blog, location, email, hireable, bio, twitter_username,
			public_repos, public_gists, followers, following,
			upstream_created_at, upstream_updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
			RETURNING `+userColumns,
			u.ID, u.Login, u.Name, u.AvatarURL, u.GravatarID, u.URL, u.HTMLURL, u.Type, u.SiteAdmin,
			u.Company, u.Blog, u.Location, u.Email, u.Hireable, u.Bio, u.TwitterUsername,
			u.PublicRepos, u.PublicGists, u.Followers, u.Following,
			u.UpstreamCreatedAt, u.UpstreamUpdatedAt,
		)
	}

	saved, err := scanUserRow(row)
	if err != nil {
		return User{}, fmt.Errorf("saving user: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return User{}, fmt.Errorf("committing user save: %w", err)
	}
	return saved, nil
}

// GetByLogin returns a user by handle, or ErrRecordNotFound.
func (s *UserStore) GetByLogin(ctx context.Context, login string) (User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE login = $1`, login)
	u, err := scanUserRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrRecordNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("getting user by login: %w", err)
	}
	return u, nil
}

// UpdateAvatarKey sets the avatar key for the user by primary key. Returns
// ErrRecordNotFound if no such user exists; this error is not retried.
func (s *UserStore) UpdateAvatarKey(ctx context.Context, id int64, key string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET avatar_key = $2, updated_at = now() WHERE id = $1`, id, key)
	if err != nil {
		return fmt.Errorf("updating avatar key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}
