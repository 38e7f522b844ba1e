package orchestrator

import (
	"github.com/adamancini/upkeep/internal/types"
	"github.com/adamancini/upkeep/internal/update"
)

// State is one state of the update state machine.
type State interface {
	Name() types.StateName
}

// Idle is the resting state. Outcome records how the last session ended.
type Idle struct {
	Outcome types.Outcome
}

// Checking waits for the feed.
type Checking struct{}

// ResolvingNotes waits for release notes of a found update.
type ResolvingNotes struct {
	Info *update.Info
}

// AwaitingConsent waits for the "update available" decision.
type AwaitingConsent struct {
	Info    *update.Info
	Bullets []string
}

// Downloading streams the artifact.
type Downloading struct {
	Info     *update.Info
	Fraction float64
}

// Downloaded holds a staged artifact before the install prompt opens.
type Downloaded struct {
	Info *update.Info
}

// AwaitingInstallDecision waits for the "update downloaded" decision.
type AwaitingInstallDecision struct {
	Info *update.Info
}

// InstallPending holds a staged update that installs on quit.
type InstallPending struct {
	Version update.Version
}

// Installing is terminal; the process is being replaced.
type Installing struct {
	Info *update.Info
}

func (Idle) Name() types.StateName                    { return types.StateIdle }
func (Checking) Name() types.StateName                { return types.StateChecking }
func (ResolvingNotes) Name() types.StateName          { return types.StateResolvingNotes }
func (AwaitingConsent) Name() types.StateName         { return types.StateAwaitingConsent }
func (Downloading) Name() types.StateName             { return types.StateDownloading }
func (Downloaded) Name() types.StateName              { return types.StateDownloaded }
func (AwaitingInstallDecision) Name() types.StateName { return types.StateAwaitingInstallDecision }
func (InstallPending) Name() types.StateName          { return types.StateInstallPending }
func (Installing) Name() types.StateName              { return types.StateInstalling }

// Status is a point in time snapshot of the orchestrator.
type Status struct {
	State          types.StateName `json:"state" yaml:"state"`
	Session        uint64          `json:"session" yaml:"session"`
	Version        string          `json:"version,omitempty" yaml:"version,omitempty"`
	Bullets        []string        `json:"bullets,omitempty" yaml:"bullets,omitempty"`
	Progress       float64         `json:"progress,omitempty" yaml:"progress,omitempty"`
	PendingInstall bool            `json:"pending_install" yaml:"pending_install"`
	LastError      string          `json:"last_error,omitempty" yaml:"last_error,omitempty"`
	LastOutcome    types.Outcome   `json:"last_outcome,omitempty" yaml:"last_outcome,omitempty"`

	err error
}

// Err returns the error recorded by the last failed step, if any.
func (s Status) Err() error {
	return s.err
}
