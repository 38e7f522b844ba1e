package orchestrator

import (
	"context"
	"errors"

	"github.com/adamancini/upkeep/internal/update"
)

// Error variables for orchestrator conditions.
var (
	ErrCheckInProgress    = errors.New("an update session is already in progress")
	ErrDownloadInProgress = errors.New("a download is already in progress")
	ErrDownloadFailed     = errors.New("update download failed")
	ErrPromptUnavailable  = errors.New("prompt surface unavailable")
	ErrStopped            = errors.New("orchestrator stopped")
)

// Feed is the update feed capability set.
// update.GitHubFeed implements it.
type Feed interface {
	// CheckForUpdate returns nil info when no newer version exists.
	CheckForUpdate(ctx context.Context) (*update.Info, error)
	// DownloadUpdate stages the artifact, reporting fractions in [0,1].
	DownloadUpdate(ctx context.Context, info *update.Info, progress func(float64)) error
	// QuitAndInstall installs the staged update and restarts.
	// It returns only on failure.
	QuitAndInstall(ctx context.Context) error
	// InstallOnQuit installs the staged update without restarting.
	InstallOnQuit(ctx context.Context) error
}

// Resolver turns an update into display bullets. It never fails.
// notes.Resolver implements it.
type Resolver interface {
	Resolve(ctx context.Context, info *update.Info) []string
}

// Prompter shows a modal choice and returns the chosen option index.
type Prompter interface {
	ShowChoice(ctx context.Context, title, message string, options []string) (int, error)
}

// Notifier shows a best effort notification.
type Notifier interface {
	Notify(title, body string)
}

// ProgressReporter renders download progress.
type ProgressReporter interface {
	SetProgress(fraction float64)
	ClearProgress()
}

// Opener opens an external reference such as a changelog URL.
type Opener interface {
	OpenExternal(url string) error
}

// Surface bundles the host capabilities the orchestrator drives.
type Surface interface {
	Prompter
	Notifier
	ProgressReporter
	Opener
}
