package update

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

// Default configuration values.
const (
	DefaultAPIBase = "https://api.github.com"
	DefaultTimeout = 30 * time.Second

	maxReleaseBytes = 4 << 20
	releasePageSize = 30
)

// GitHubRelease represents a GitHub release response
type GitHubRelease struct {
	TagName     string               `json:"tag_name"`
	Name        string               `json:"name"`
	Body        string               `json:"body"`
	HTMLURL     string               `json:"html_url"`
	Draft       bool                 `json:"draft"`
	Prerelease  bool                 `json:"prerelease"`
	PublishedAt time.Time            `json:"published_at"`
	Assets      []GitHubReleaseAsset `json:"assets"`
}

// GitHubReleaseAsset is a downloadable file attached to a release.
type GitHubReleaseAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
}

type stagedUpdate struct {
	version   Version
	path      string
	dir       string
	installed bool
}

// GitHubFeed is an update feed backed by the GitHub releases API.
// It checks for a newer release, downloads and verifies the platform asset,
// and swaps the running binary when asked to install.
type GitHubFeed struct {
	currentVersion    string
	owner             string
	repo              string
	token             string
	baseURL           string
	client            *http.Client
	includePrerelease bool
	binaryPrefix      string
	platform          Platform
	downloader        Downloader
	retryTimeout      time.Duration
	executable        string
	newReplacer       func(path string) Replacer
	restart           func(path string, args []string) error
	exit              func(code int)
	backup            BackupFunc

	mu     sync.Mutex
	staged *stagedUpdate
}

// FeedOption configures a GitHubFeed.
type FeedOption func(*GitHubFeed)

// WithToken sets an optional GitHub token for authentication
func WithToken(token string) FeedOption {
	return func(f *GitHubFeed) {
		f.token = strings.TrimSpace(token)
	}
}

// WithBaseURL overrides the GitHub API base URL.
func WithBaseURL(baseURL string) FeedOption {
	return func(f *GitHubFeed) {
		if baseURL != "" {
			f.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient sets the client used for API requests.
// The feed works on a copy, so later options never modify client.
func WithHTTPClient(client *http.Client) FeedOption {
	return func(f *GitHubFeed) {
		if client != nil {
			c := *client
			f.client = &c
		}
	}
}

// WithTimeout sets the per-request timeout and the overall retry budget of a check.
func WithTimeout(timeout time.Duration) FeedOption {
	return func(f *GitHubFeed) {
		c := *f.client
		c.Timeout = timeout
		f.client = &c
		f.retryTimeout = timeout
	}
}

// WithRetryTimeout bounds how long transient check failures are retried.
// Zero disables retries.
func WithRetryTimeout(timeout time.Duration) FeedOption {
	return func(f *GitHubFeed) {
		f.retryTimeout = timeout
	}
}

// WithPrerelease makes prereleases eligible as updates.
func WithPrerelease(include bool) FeedOption {
	return func(f *GitHubFeed) {
		f.includePrerelease = include
	}
}

// WithBinaryPrefix sets the asset name prefix, e.g. "notes-app" for "notes-app-linux-amd64".
func WithBinaryPrefix(prefix string) FeedOption {
	return func(f *GitHubFeed) {
		f.binaryPrefix = prefix
	}
}

// WithPlatform overrides the detected platform.
func WithPlatform(p Platform) FeedOption {
	return func(f *GitHubFeed) {
		f.platform = p
	}
}

// WithDownloader replaces the artifact downloader.
func WithDownloader(d Downloader) FeedOption {
	return func(f *GitHubFeed) {
		if d != nil {
			f.downloader = d
		}
	}
}

// WithExecutablePath sets the binary that installs replace.
// By default the running executable is used.
func WithExecutablePath(path string) FeedOption {
	return func(f *GitHubFeed) {
		f.executable = path
	}
}

// WithReplacer sets the constructor for the binary replacer.
func WithReplacer(fn func(path string) Replacer) FeedOption {
	return func(f *GitHubFeed) {
		if fn != nil {
			f.newReplacer = fn
		}
	}
}

// WithRestarter sets how the process relaunches after an immediate install
// and how the current process exits afterwards.
func WithRestarter(restart func(path string, args []string) error, exit func(code int)) FeedOption {
	return func(f *GitHubFeed) {
		if restart != nil {
			f.restart = restart
		}
		if exit != nil {
			f.exit = exit
		}
	}
}

// BackupFunc saves the binary at target, currently at version current,
// before it is replaced by next.
type BackupFunc func(target, current string, next Version) error

// WithBackup saves the installed binary before each install. A failed
// backup is logged and does not stop the install.
func WithBackup(fn BackupFunc) FeedOption {
	return func(f *GitHubFeed) {
		f.backup = fn
	}
}

// NewGitHubFeed creates a feed for owner/repo that compares releases against currentVersion.
func NewGitHubFeed(currentVersion, owner, repo string, opts ...FeedOption) *GitHubFeed {
	f := &GitHubFeed{
		currentVersion: currentVersion,
		owner:          owner,
		repo:           repo,
		baseURL:        DefaultAPIBase,
		client: &http.Client{
			Timeout: DefaultTimeout,
		},
		retryTimeout: DefaultTimeout,
		binaryPrefix: DefaultBinaryPrefix,
		platform:     Detect(),
		newReplacer: func(path string) Replacer {
			return NewBinaryReplacer(path)
		},
		restart: StartProcess,
		exit:    os.Exit,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.downloader == nil {
		f.downloader = NewHTTPDownloader().WithToken(f.token)
	}
	return f
}

// CheckForUpdate returns the newest eligible release when it is newer than
// the current version, or nil when there is nothing to install.
// Development builds never see updates.
func (f *GitHubFeed) CheckForUpdate(ctx context.Context) (*Info, error) {
	if IsDevelopmentVersion(f.currentVersion) {
		log.Debugf("skipping update check for development build %q", f.currentVersion)
		return nil, nil
	}
	current, err := ParseVersion(f.currentVersion)
	if err != nil {
		log.Debugf("skipping update check: %v", err)
		return nil, nil
	}

	var release *GitHubRelease
	err = f.retry(ctx, func() error {
		var ferr error
		release, ferr = f.latestRelease(ctx)
		return ferr
	})
	if err != nil {
		return nil, err
	}
	if release == nil {
		log.Debugf("no published releases for %s/%s", f.owner, f.repo)
		return nil, nil
	}

	latest, err := ParseVersion(release.TagName)
	if err != nil {
		return nil, fmt.Errorf("%w: release tag %q: %v", ErrFeedMalformed, release.TagName, err)
	}
	if !current.IsLessThan(latest) {
		log.Debugf("current version %s is up to date (latest %s)", current, latest)
		return nil, nil
	}

	assetName := f.platform.BinaryName(f.binaryPrefix)
	assetURL, checksumURL := findAssetURLs(release, assetName)

	return &Info{
		Version:         latest,
		CurrentVersion:  current,
		ReleaseName:     release.Name,
		ReleaseURL:      release.HTMLURL,
		RawReleaseNotes: release.Body,
		AssetName:       assetName,
		AssetURL:        assetURL,
		ChecksumURL:     checksumURL,
		PublishedAt:     release.PublishedAt,
		Prerelease:      release.Prerelease,
	}, nil
}

// DownloadUpdate fetches the platform asset for info, verifies it when the
// release publishes checksums, and stages it for installation.
// progress receives fractions in [0,1] when the size is known.
func (f *GitHubFeed) DownloadUpdate(ctx context.Context, info *Info, progress func(float64)) error {
	if info == nil {
		return errors.New("no update to download")
	}
	if !f.platform.IsSupported() {
		return fmt.Errorf("%w: %s", ErrUnsupportedTarget, f.platform)
	}
	if info.AssetURL == "" {
		return fmt.Errorf("%w: %s (%s)", ErrNoAsset, info.AssetName, f.platform)
	}

	dir, err := os.MkdirTemp("", "upkeep-update-*")
	if err != nil {
		return fmt.Errorf("create download directory: %w", err)
	}
	dst := filepath.Join(dir, info.AssetName)

	report := func(done, total int64) {
		if progress != nil && total > 0 {
			progress(float64(done) / float64(total))
		}
	}
	if err := f.downloader.Download(ctx, info.AssetURL, dst, report); err != nil {
		_ = os.RemoveAll(dir)
		return fmt.Errorf("download %s: %w", info.AssetName, err)
	}

	if info.ChecksumURL != "" {
		if err := f.downloader.VerifyChecksum(ctx, dst, info.ChecksumURL); err != nil {
			_ = os.RemoveAll(dir)
			return fmt.Errorf("verify %s: %w", info.AssetName, err)
		}
	} else {
		log.Warnf("release %s publishes no %s, skipping verification", info.Version.Tag(), ChecksumAssetName)
	}

	if progress != nil {
		progress(1)
	}

	f.mu.Lock()
	if f.staged != nil && !f.staged.installed {
		_ = os.RemoveAll(f.staged.dir)
	}
	f.staged = &stagedUpdate{version: info.Version, path: dst, dir: dir}
	f.mu.Unlock()

	log.Infof("staged update %s at %s", info.Version.Tag(), dst)
	return nil
}

// StagedVersion reports the version waiting to be installed, if any.
func (f *GitHubFeed) StagedVersion() (Version, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.staged == nil || f.staged.installed {
		return Version{}, false
	}
	return f.staged.version, true
}

// QuitAndInstall installs the staged update, relaunches the binary and exits
// the current process. It only returns when something went wrong.
func (f *GitHubFeed) QuitAndInstall(ctx context.Context) error {
	path, err := f.install(ctx)
	if err != nil {
		return err
	}
	if err := f.restart(path, os.Args[1:]); err != nil {
		return fmt.Errorf("relaunch %s: %w", path, err)
	}
	f.exit(0)
	return nil
}

// InstallOnQuit installs the staged update without relaunching.
// It is a no-op when the staged update was already installed.
func (f *GitHubFeed) InstallOnQuit(ctx context.Context) error {
	_, err := f.install(ctx)
	return err
}

func (f *GitHubFeed) install(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.staged == nil {
		return "", ErrNoStagedUpdate
	}

	target, err := f.executablePath()
	if err != nil {
		return "", err
	}
	if f.staged.installed {
		return target, nil
	}

	if f.backup != nil {
		if err := f.backup(target, f.currentVersion, f.staged.version); err != nil {
			log.Warnf("backup of %s failed, installing anyway: %v", target, err)
		}
	}

	if err := f.newReplacer(target).Replace(f.staged.path); err != nil {
		return "", fmt.Errorf("install %s: %w", f.staged.version.Tag(), err)
	}
	f.staged.installed = true
	_ = os.RemoveAll(f.staged.dir)

	log.Infof("installed %s to %s", f.staged.version.Tag(), target)
	return target, nil
}

func (f *GitHubFeed) executablePath() (string, error) {
	if f.executable != "" {
		return f.executable, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate running executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return exe, nil
}

// latestRelease returns the newest eligible release, or nil when none exist.
func (f *GitHubFeed) latestRelease(ctx context.Context) (*GitHubRelease, error) {
	if !f.includePrerelease {
		var release GitHubRelease
		url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", f.baseURL, f.owner, f.repo)
		found, err := f.getJSON(ctx, url, &release)
		if err != nil || !found {
			return nil, err
		}
		return &release, nil
	}

	var releases []GitHubRelease
	url := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=%d", f.baseURL, f.owner, f.repo, releasePageSize)
	found, err := f.getJSON(ctx, url, &releases)
	if err != nil || !found {
		return nil, err
	}
	return newestRelease(releases), nil
}

// newestRelease picks the highest versioned non-draft release.
// Releases with unparseable tags are ignored.
func newestRelease(releases []GitHubRelease) *GitHubRelease {
	var (
		best    *GitHubRelease
		bestVer Version
	)
	for i := range releases {
		r := &releases[i]
		if r.Draft {
			continue
		}
		v, err := ParseVersion(r.TagName)
		if err != nil {
			log.Debugf("ignoring release with tag %q: %v", r.TagName, err)
			continue
		}
		if best == nil || v.IsGreaterThan(bestVer) {
			best, bestVer = r, v
		}
	}
	return best
}

// getJSON fetches url into v. found is false on 404.
// Errors that are worth retrying are returned as-is; the rest are wrapped
// in backoff.Permanent.
func (f *GitHubFeed) getJSON(ctx context.Context, url string, v any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, backoff.Permanent(fmt.Errorf("%w: %v", ErrFeedUnreachable, err))
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", userAgent)
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, backoff.Permanent(fmt.Errorf("%w: %v", ErrFeedUnreachable, ctx.Err()))
		}
		return false, fmt.Errorf("%w: %v", ErrFeedUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return false, fmt.Errorf("%w: GitHub API returned status %d", ErrFeedUnreachable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return false, backoff.Permanent(fmt.Errorf("%w: GitHub API returned status %d", ErrFeedUnreachable, resp.StatusCode))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxReleaseBytes)).Decode(v); err != nil {
		return false, backoff.Permanent(fmt.Errorf("%w: failed to decode response: %v", ErrFeedMalformed, err))
	}
	return true, nil
}

// retry runs op with exponential backoff until it succeeds, fails
// permanently, or the retry budget runs out.
func (f *GitHubFeed) retry(ctx context.Context, op backoff.Operation) error {
	var err error
	if f.retryTimeout <= 0 {
		err = op()
	} else {
		bo := backoff.WithContext(&backoff.ExponentialBackOff{
			InitialInterval:     250 * time.Millisecond,
			RandomizationFactor: backoff.DefaultRandomizationFactor,
			Multiplier:          backoff.DefaultMultiplier,
			MaxInterval:         5 * time.Second,
			MaxElapsedTime:      f.retryTimeout,
			Stop:                backoff.Stop,
			Clock:               backoff.SystemClock,
		}, ctx)
		err = backoff.RetryNotify(op, bo, func(err error, next time.Duration) {
			log.Debugf("update check failed, retrying in %s: %v", next, err)
		})
	}

	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	if err != nil && ctx.Err() != nil && !errors.Is(err, ErrFeedUnreachable) {
		return fmt.Errorf("%w: %v", ErrFeedUnreachable, err)
	}
	return err
}

// findAssetURLs finds the binary and checksum URLs for the named asset
func findAssetURLs(release *GitHubRelease, binaryName string) (string, string) {
	var assetURL, checksumURL string

	for _, asset := range release.Assets {
		switch asset.Name {
		case binaryName:
			assetURL = asset.BrowserDownloadURL
		case ChecksumAssetName:
			checksumURL = asset.BrowserDownloadURL
		}
	}

	return assetURL, checksumURL
}
