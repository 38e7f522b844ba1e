package notes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/adamancini/upkeep/internal/update"
)

const maxRemoteBytes = 1 << 20

// RemoteSource fetches bullets from the GitHub release for a tag.
type RemoteSource struct {
	baseURL string
	owner   string
	repo    string
	token   string
	client  *http.Client
}

// NewRemoteSource returns a source querying
// {baseURL}/repos/{owner}/{repo}/releases/tags/v{version}.
func NewRemoteSource(baseURL, owner, repo string) *RemoteSource {
	if baseURL == "" {
		baseURL = update.DefaultAPIBase
	}
	return &RemoteSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		owner:   owner,
		repo:    repo,
		client:  &http.Client{},
	}
}

// WithToken sets an optional bearer token.
func (s *RemoteSource) WithToken(token string) *RemoteSource {
	s.token = strings.TrimSpace(token)
	return s
}

// WithHTTPClient replaces the HTTP client.
func (s *RemoteSource) WithHTTPClient(client *http.Client) *RemoteSource {
	if client != nil {
		s.client = client
	}
	return s
}

// Name implements Source.
func (s *RemoteSource) Name() string {
	return fmt.Sprintf("remote:%s/%s", s.owner, s.repo)
}

// Bullets implements Source. The release body is preferred; the release
// name is used when the body yields nothing.
func (s *RemoteSource) Bullets(ctx context.Context, version update.Version) ([]string, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/tags/%s", s.baseURL, s.owner, s.repo, version.Tag())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotesUnavailable, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotesUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s returned status %d", ErrNotesUnavailable, url, resp.StatusCode)
	}

	var release struct {
		Body string `json:"body"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxRemoteBytes)).Decode(&release); err != nil {
		return nil, fmt.Errorf("%w: decode release: %v", ErrNotesUnavailable, err)
	}

	if bullets := Extract(release.Body); len(bullets) > 0 {
		return bullets, nil
	}
	return Extract(release.Name), nil
}
