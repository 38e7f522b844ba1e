package orchestrator

import (
	"context"

	"github.com/adamancini/upkeep/internal/types"
	"github.com/adamancini/upkeep/internal/update"
)

// EventKind names a lifecycle event.
type EventKind string

const (
	EventChecking         EventKind = "checking"
	EventNoUpdateFound    EventKind = "no_update_found"
	EventUpdateFound      EventKind = "update_found"
	EventNotesResolved    EventKind = "notes_resolved"
	EventConsentDecided   EventKind = "consent_decided"
	EventDownloadProgress EventKind = "download_progress"
	EventDownloaded       EventKind = "downloaded"
	EventDownloadFailed   EventKind = "download_failed"
	EventInstallDecided   EventKind = "install_decided"
	EventInstallPending   EventKind = "install_pending"
	EventInstalling       EventKind = "installing"
	EventSessionEnded     EventKind = "session_ended"
)

// Event is a lifecycle notification delivered to observers.
// Only the fields relevant to Kind are set.
type Event struct {
	Kind     EventKind
	Session  uint64
	Info     *update.Info
	Bullets  []string
	Consent  types.ConsentDecision
	Install  types.InstallDecision
	Progress float64
	Outcome  types.Outcome
	Err      error
}

// loopEvent is a result posted to the loop by a helper goroutine.
type loopEvent interface {
	sessionID() uint64
}

type checkDone struct {
	session uint64
	info    *update.Info
	err     error
}

type notesDone struct {
	session uint64
	bullets []string
}

type consentDone struct {
	session  uint64
	decision types.ConsentDecision
	err      error
}

type progressMade struct {
	session  uint64
	fraction float64
}

type downloadDone struct {
	session uint64
	err     error
}

type installDecisionDone struct {
	session  uint64
	decision types.InstallDecision
	err      error
}

type installFailed struct {
	session uint64
	err     error
}

func (e checkDone) sessionID() uint64           { return e.session }
func (e notesDone) sessionID() uint64           { return e.session }
func (e consentDone) sessionID() uint64         { return e.session }
func (e progressMade) sessionID() uint64        { return e.session }
func (e downloadDone) sessionID() uint64        { return e.session }
func (e installDecisionDone) sessionID() uint64 { return e.session }
func (e installFailed) sessionID() uint64       { return e.session }

// requests sent by the public API.

type checkRequest struct {
	reply chan checkReply
}

type checkReply struct {
	info *update.Info
	err  error
}

type statusRequest struct {
	reply chan Status
}

type quitRequest struct {
	ctx   context.Context
	reply chan error
}
