// Package avatar implements the three-step avatar pipeline: derive a
// stable blob key from an upstream avatar URL, download and store the
// blob, and record the key on the owning user (spec.md §4.13).
package avatar

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"

	"github.com/wisbric/ghingest/internal/telemetry"
	"github.com/wisbric/ghingest/pkg/blobdownload"
	"github.com/wisbric/ghingest/pkg/blobstore"
	"github.com/wisbric/ghingest/pkg/store"
)

// ErrInvalidURL is returned by DeriveKey when the avatar URL's scheme,
// host, or path does not match the expected shape, or when its `v` query
// parameter is not a number.
var ErrInvalidURL = errors.New("avatar: invalid url")

const maxAvatarBytes = 10 * 1024 * 1024

var hostPattern = regexp.MustCompile(`^(avatars\.)?githubusercontent\.com$`)
var userIDPattern = regexp.MustCompile(`^/u/(\d+)$`)

// DeriveKey parses an upstream avatar URL and produces its stable blob
// key. Same URL always yields the same key. A `v` query parameter, when
// present, is folded into the key so a new avatar version gets a new key.
func DeriveKey(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme %q", ErrInvalidURL, u.Scheme)
	}
	if !hostPattern.MatchString(u.Host) {
		return "", fmt.Errorf("%w: host %q", ErrInvalidURL, u.Host)
	}
	match := userIDPattern.FindStringSubmatch(u.Path)
	if match == nil {
		return "", fmt.Errorf("%w: path %q", ErrInvalidURL, u.Path)
	}
	id := match[1]

	if v := u.Query().Get("v"); v != "" {
		if _, err := strconv.Atoi(v); err != nil {
			return "", fmt.Errorf("%w: version %q", ErrInvalidURL, v)
		}
		return "avatars/" + id + "-" + v, nil
	}
	return "avatars/" + id, nil
}

// Args is the process-avatar job payload: the owning user's primary key
// and the upstream avatar URL to fetch.
type Args struct {
	UserID    int64  `json:"user_id"`
	AvatarURL string `json:"avatar_url"`
}

// Pipeline wires the download client and blob store together and records
// the resulting key on the user row.
type Pipeline struct {
	downloader *blobdownload.Client
	store      *blobstore.Store
	users      *store.UserStore
}

// NewPipeline builds a Pipeline from its three collaborators.
func NewPipeline(downloader *blobdownload.Client, blobs *blobstore.Store, users *store.UserStore) *Pipeline {
	return &Pipeline{downloader: downloader, store: blobs, users: users}
}

// Process runs all three pipeline steps for one user's avatar.
func (p *Pipeline) Process(ctx context.Context, args Args) error {
	key, err := DeriveKey(args.AvatarURL)
	if err != nil {
		telemetry.AvatarUploadsTotal.WithLabelValues("invalid_url").Inc()
		return err
	}

	uploaded, err := p.downloadAndStore(ctx, key, args.AvatarURL)
	if err != nil {
		telemetry.AvatarUploadsTotal.WithLabelValues("failed").Inc()
		return err
	}

	if err := p.users.UpdateAvatarKey(ctx, args.UserID, key); err != nil {
		telemetry.AvatarUploadsTotal.WithLabelValues("record_failed").Inc()
		return err
	}

	outcome := "stored"
	if !uploaded {
		outcome = "skipped"
	}
	telemetry.AvatarUploadsTotal.WithLabelValues(outcome).Inc()
	return nil
}

// downloadAndStore implements step 2: skip if the key already exists,
// otherwise head-check the size, stream to a temp file under the same
// cap, and put the result to blob storage.
func (p *Pipeline) downloadAndStore(ctx context.Context, key, avatarURL string) (bool, error) {
	exists, err := p.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("checking existing avatar: %w", err)
	}
	if exists {
		return false, nil
	}

	head, err := p.downloader.Head(ctx, avatarURL)
	if err != nil {
		return false, err
	}
	if head.ContentLength > 0 && head.ContentLength > maxAvatarBytes {
		return false, blobdownload.ErrFileSizeExceeded
	}

	tmp, err := os.CreateTemp("", "ghingest-avatar-*")
	if err != nil {
		return false, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	result, err := p.downloader.Download(ctx, avatarURL, tmp, maxAvatarBytes)
	if err != nil {
		return false, err
	}

	if _, err := tmp.Seek(0, 0); err != nil {
		return false, fmt.Errorf("rewinding temp file: %w", err)
	}
	if err := p.store.Put(ctx, key, tmp, result.ContentType); err != nil {
		return false, fmt.Errorf("storing avatar blob: %w", err)
	}
	return true, nil
}
