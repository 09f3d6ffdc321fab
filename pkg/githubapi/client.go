// Package githubapi is a GET-only client for the subset of the GitHub
// REST API this service consumes: the public events stream, and
// user/repository/organization lookups.
package githubapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/wisbric/ghingest/pkg/ratelimit"
)

const (
	acceptHeader    = "application/vnd.github+json"
	apiVersion      = "2022-11-28"
	apiVersionField = "X-GitHub-Api-Version"
)

var rateLimitMessage = regexp.MustCompile(`(?i)rate limit`)

// Client calls the upstream hosting API, throttling via a ratelimit.Manager
// ahead of every call and recording the response headers afterward.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	limiter    *ratelimit.Manager
}

// New creates a Client against baseURL (e.g. https://api.github.com).
// token may be empty for unauthenticated calls.
func New(baseURL, token string, limiter *ratelimit.Manager) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		limiter:    limiter,
	}
}

// ListPublicEvents fetches the public events stream. Each Event's Raw
// field holds the exact bytes of its entry in the response body, verbatim
// including key order and duplicates, for storage in push_events.raw.
func (c *Client) ListPublicEvents(ctx context.Context) ([]Event, error) {
	var rawEvents []json.RawMessage
	if err := c.get(ctx, "/events", &rawEvents); err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(rawEvents))
	for _, raw := range rawEvents {
		var e Event
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, &APIError{Kind: ErrServerError, Body: "unparseable event: " + err.Error()}
		}
		e.Raw = raw
		events = append(events, e)
	}
	return events, nil
}

// GetUser fetches a user by login handle.
func (c *Client) GetUser(ctx context.Context, handle string) (*User, error) {
	var user User
	if err := c.get(ctx, "/users/"+handle, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetRepository fetches a repository by owner and name.
func (c *Client) GetRepository(ctx context.Context, owner, name string) (*Repository, error) {
	var repo Repository
	if err := c.get(ctx, "/repos/"+owner+"/"+name, &repo); err != nil {
		return nil, err
	}
	return &repo, nil
}

// GetOrganization fetches an organization by login handle.
func (c *Client) GetOrganization(ctx context.Context, handle string) (*Organization, error) {
	var org Organization
	if err := c.get(ctx, "/orgs/"+handle, &org); err != nil {
		return nil, err
	}
	return &org, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	// The resource class isn't known until the response arrives; "core"
	// covers every endpoint this client calls.
	coordinator := c.limiter.For("core")
	if err := coordinator.CheckLimit(ctx); err != nil {
		return fmt.Errorf("checking rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set(apiVersionField, apiVersion)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &APIError{Kind: ErrServerError, StatusCode: 0, Body: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return &APIError{Kind: ErrServerError, StatusCode: resp.StatusCode, Body: readErr.Error()}
	}

	resource := resp.Header.Get("X-RateLimit-Resource")
	if err := c.limiter.For(resource).RecordLimit(ctx, resp.Header); err != nil {
		return fmt.Errorf("recording rate limit: %w", err)
	}

	if apiErr := classify(resp, body); apiErr != nil {
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return &APIError{Kind: ErrServerError, StatusCode: resp.StatusCode, Body: "unparseable JSON body: " + err.Error()}
		}
	}
	return nil
}

// classify maps a response to the error taxonomy, or nil for success.
func classify(resp *http.Response, body []byte) error {
	status := resp.StatusCode

	switch {
	case status == http.StatusNotModified:
		return &APIError{Kind: ErrNotModified, StatusCode: status, Body: string(body)}

	case status == http.StatusTooManyRequests:
		return &APIError{Kind: ErrRateLimited, StatusCode: status, Body: string(body)}

	case status == http.StatusForbidden && looksRateLimited(resp, body):
		return &APIError{Kind: ErrRateLimited, StatusCode: status, Body: string(body)}

	case status >= 400 && status < 500:
		return &APIError{Kind: ErrClientError, StatusCode: status, Body: string(body)}

	case status >= 500:
		return &APIError{Kind: ErrServerError, StatusCode: status, Body: string(body)}
	}

	return nil
}

// looksRateLimited implements the 403 heuristics from the error taxonomy:
// a zero remaining-header, a retry-after header, or a rate-limit message
// in the body.
func looksRateLimited(resp *http.Response, body []byte) bool {
	if resp.Header.Get("X-RateLimit-Remaining") == "0" {
		return true
	}
	if resp.Header.Get("Retry-After") != "" {
		return true
	}

	var decoded struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &decoded); err == nil && rateLimitMessage.MatchString(decoded.Message) {
		return true
	}
	return false
}
