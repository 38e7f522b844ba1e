package update

import (
	"context"
	"errors"
	"time"
)

// Error variables for specific feed conditions.
var (
	ErrFeedUnreachable   = errors.New("update feed unreachable")
	ErrFeedMalformed     = errors.New("update feed response malformed")
	ErrChecksumMismatch  = errors.New("checksum mismatch")
	ErrNoAsset           = errors.New("no release asset for this platform")
	ErrNoStagedUpdate    = errors.New("no downloaded update is staged")
	ErrUnsupportedTarget = errors.New("unsupported platform")
)

// Info describes an available update. It is immutable once returned by a feed.
type Info struct {
	Version         Version   // Version offered by the feed
	CurrentVersion  Version   // Currently installed version
	ReleaseName     string    // Human readable release title
	ReleaseURL      string    // URL to the release page
	RawReleaseNotes any       // Release notes in whatever shape the feed delivered
	AssetName       string    // File name of the binary for this platform
	AssetURL        string    // Direct download URL for the binary
	ChecksumURL     string    // URL to checksums file
	PublishedAt     time.Time // Publication time reported by the feed
	Prerelease      bool      // Whether the release is marked as a prerelease
}

// Platform describes the current system platform
type Platform struct {
	OS   string // Operating system (darwin, linux, windows)
	Arch string // Architecture (amd64, arm64)
}

// ProgressFunc receives byte counts while a download streams.
// total is -1 when the server did not announce a length.
type ProgressFunc func(done, total int64)

// Downloader downloads and verifies binaries
type Downloader interface {
	Download(ctx context.Context, url, dst string, progress ProgressFunc) error
	VerifyChecksum(ctx context.Context, file, checksumURL string) error
}

// Replacer safely replaces the binary with rollback support
type Replacer interface {
	Replace(newBinary string) error
	Rollback() error
}
