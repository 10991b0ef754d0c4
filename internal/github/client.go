// Package github wraps the GitHub Releases API behind a small client
// interface so the updater can be tested against a mock registry.
package github

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/go-github/v84/github"

	execpkg "github.com/grove-sh/grove/internal/exec"
)

// ghAuthTimeout is the timeout for the gh auth token command.
const ghAuthTimeout = 5 * time.Second

var (
	// ErrRegistryUnavailable is returned when the release registry cannot
	// be reached (connection failure, timeout, no response).
	ErrRegistryUnavailable = errors.New("release registry unavailable")

	// ErrMalformedRelease is returned when the registry response lacks a
	// tag identifier or cannot be interpreted as a release.
	ErrMalformedRelease = errors.New("malformed release metadata")

	// ErrReleaseNotFound is returned when the repository or release does not exist.
	ErrReleaseNotFound = errors.New("release not found")

	// ErrRateLimitExceeded is returned when the GitHub API rate limit is exceeded.
	ErrRateLimitExceeded = errors.New("github API rate limit exceeded")
)

// Asset is one downloadable file attached to a release.
// Immutable once parsed from the registry response.
type Asset struct {
	Name        string
	DownloadURL string
}

// Release describes a published release: its tag and the assets
// attached to it, in registry-provided order. Produced fresh on every
// check and never persisted.
type Release struct {
	TagName string
	Name    string
	HTMLURL string
	Assets  []Asset
}

// Client defines the registry operations the updater needs.
type Client interface {
	// GetLatestRelease retrieves the latest release for a repository.
	GetLatestRelease(ctx context.Context, owner, repo string) (*Release, error)

	// GetReleaseByTag retrieves the release published under the given tag.
	GetReleaseByTag(ctx context.Context, owner, repo, tag string) (*Release, error)

	// IsAuthenticated reports whether requests carry a token.
	IsAuthenticated() bool
}

// SDKClient implements Client using the go-github SDK.
type SDKClient struct {
	client        *github.Client
	authenticated bool
}

// Option configures an SDKClient.
type Option func(*SDKClient)

// WithToken forces a specific API token instead of discovering one.
func WithToken(token string) Option {
	return func(c *SDKClient) {
		if token != "" {
			c.client = c.client.WithAuthToken(token)
			c.authenticated = true
		}
	}
}

// WithBaseURL points the client at an alternate API endpoint (tests).
func WithBaseURL(base string) Option {
	return func(c *SDKClient) {
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}

		if u, err := url.Parse(base); err == nil {
			c.client.BaseURL = u
		}
	}
}

// NewClient creates a GitHub API client. Unless a token is supplied via
// WithToken, one is discovered from the environment or the gh CLI;
// unauthenticated clients still work, with lower rate limits.
func NewClient(opts ...Option) *SDKClient {
	c := &SDKClient{client: github.NewClient(http.DefaultClient)}

	for _, opt := range opts {
		opt(c)
	}

	if !c.authenticated {
		if token := discoverToken(); token != "" {
			c.client = c.client.WithAuthToken(token)
			c.authenticated = true
		}
	}

	return c
}

// discoverToken retrieves a GitHub token from the environment or the gh CLI.
func discoverToken() string {
	if token := os.Getenv("GH_TOKEN"); token != "" {
		return token
	}

	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token
	}

	tools := execpkg.NewToolChecker()
	if !tools.IsAvailable("gh") {
		return ""
	}

	ctx, cancel := context.WithTimeout(context.Background(), ghAuthTimeout)
	defer cancel()

	runner := execpkg.NewCommandRunner(ghAuthTimeout)

	result := runner.Run(ctx, "gh", "auth", "token")
	if result.Failed() {
		return ""
	}

	return strings.TrimSpace(result.Stdout)
}

// IsAuthenticated reports whether requests carry a token.
func (c *SDKClient) IsAuthenticated() bool {
	return c.authenticated
}

// GetLatestRelease retrieves the latest release for a repository.
func (c *SDKClient) GetLatestRelease(
	ctx context.Context,
	owner, repo string,
) (*Release, error) {
	release, resp, err := c.client.Repositories.GetLatestRelease(ctx, owner, repo)
	if err != nil {
		return nil, classifyError(resp, err)
	}

	return convertRelease(release)
}

// GetReleaseByTag retrieves the release published under the given tag.
func (c *SDKClient) GetReleaseByTag(
	ctx context.Context,
	owner, repo, tag string,
) (*Release, error) {
	release, resp, err := c.client.Repositories.GetReleaseByTag(ctx, owner, repo, tag)
	if err != nil {
		return nil, classifyError(resp, err)
	}

	return convertRelease(release)
}

// convertRelease maps the SDK release to our model, preserving the
// registry-provided asset order. Unknown response fields are ignored by
// the SDK's JSON decoding.
func convertRelease(release *github.RepositoryRelease) (*Release, error) {
	if release.GetTagName() == "" {
		return nil, errors.Wrap(ErrMalformedRelease, "release has no tag")
	}

	assets := make([]Asset, 0, len(release.Assets))
	for _, a := range release.Assets {
		assets = append(assets, Asset{
			Name:        a.GetName(),
			DownloadURL: a.GetBrowserDownloadURL(),
		})
	}

	return &Release{
		TagName: release.GetTagName(),
		Name:    release.GetName(),
		HTMLURL: release.GetHTMLURL(),
		Assets:  assets,
	}, nil
}

// classifyError converts GitHub API errors to our error taxonomy.
// A nil response means the request never completed: the registry is
// unreachable rather than rejecting us.
func classifyError(resp *github.Response, err error) error {
	if resp == nil {
		return errors.Mark(err, ErrRegistryUnavailable)
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return ErrReleaseNotFound
	case http.StatusForbidden:
		if resp.Rate.Remaining == 0 {
			return ErrRateLimitExceeded
		}

		return err
	default:
		return err
	}
}
