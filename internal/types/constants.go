// Package types provides type-safe constants for the upkeep update lifecycle.
//
// This package centralizes all enumerated types used throughout the codebase,
// replacing magic strings with typed constants that provide compile-time safety
// and validation methods.
//
// SYNC REQUIREMENT: the option labels in ConsentOptions and InstallOptions
// must stay in the same order as the decisions they map to.
package types

import (
	"fmt"
	"strings"
)

// ConsentDecision is the user's answer to the "update available" prompt.
type ConsentDecision string

const (
	// ConsentAccept starts the download.
	ConsentAccept ConsentDecision = "accept"
	// ConsentViewChangelog opens the changelog and defers the update.
	ConsentViewChangelog ConsentDecision = "view_changelog"
	// ConsentDefer ends the session without downloading.
	ConsentDefer ConsentDecision = "defer"
)

// ConsentOptions are the prompt labels, index-aligned with AllConsentDecisions.
var ConsentOptions = []string{"Download", "View Changelog", "Later"}

// AllConsentDecisions returns all valid consent decisions in prompt order.
func AllConsentDecisions() []ConsentDecision {
	return []ConsentDecision{ConsentAccept, ConsentViewChangelog, ConsentDefer}
}

// Validate checks if the ConsentDecision is a valid value.
func (d ConsentDecision) Validate() error {
	switch d {
	case ConsentAccept, ConsentViewChangelog, ConsentDefer:
		return nil
	case "":
		return fmt.Errorf("consent decision is required")
	default:
		return fmt.Errorf("invalid consent decision '%s' (must be accept, view_changelog, or defer)", d)
	}
}

// String returns the string representation of the ConsentDecision.
func (d ConsentDecision) String() string {
	return string(d)
}

// ConsentFromChoice maps a prompt option index to a decision.
func ConsentFromChoice(index int) (ConsentDecision, error) {
	all := AllConsentDecisions()
	if index < 0 || index >= len(all) {
		return "", fmt.Errorf("consent choice %d out of range", index)
	}
	return all[index], nil
}

// ParseConsentDecision parses a string into a ConsentDecision.
// Returns an error if the string is not a valid decision.
func ParseConsentDecision(s string) (ConsentDecision, error) {
	d := ConsentDecision(strings.ToLower(strings.TrimSpace(s)))
	if err := d.Validate(); err != nil {
		return "", err
	}
	return d, nil
}

// InstallDecision is the user's answer to the "update downloaded" prompt.
type InstallDecision string

const (
	// InstallRestartNow installs and relaunches immediately.
	InstallRestartNow InstallDecision = "restart_now"
	// InstallLater installs when the application quits.
	InstallLater InstallDecision = "later"
)

// InstallOptions are the prompt labels, index-aligned with AllInstallDecisions.
var InstallOptions = []string{"Restart Now", "Later"}

// AllInstallDecisions returns all valid install decisions in prompt order.
func AllInstallDecisions() []InstallDecision {
	return []InstallDecision{InstallRestartNow, InstallLater}
}

// Validate checks if the InstallDecision is a valid value.
func (d InstallDecision) Validate() error {
	switch d {
	case InstallRestartNow, InstallLater:
		return nil
	case "":
		return fmt.Errorf("install decision is required")
	default:
		return fmt.Errorf("invalid install decision '%s' (must be restart_now or later)", d)
	}
}

// String returns the string representation of the InstallDecision.
func (d InstallDecision) String() string {
	return string(d)
}

// InstallFromChoice maps a prompt option index to a decision.
func InstallFromChoice(index int) (InstallDecision, error) {
	all := AllInstallDecisions()
	if index < 0 || index >= len(all) {
		return "", fmt.Errorf("install choice %d out of range", index)
	}
	return all[index], nil
}

// ParseInstallDecision parses a string into an InstallDecision.
func ParseInstallDecision(s string) (InstallDecision, error) {
	d := InstallDecision(strings.ToLower(strings.TrimSpace(s)))
	if err := d.Validate(); err != nil {
		return "", err
	}
	return d, nil
}

// StateName identifies a state of the orchestrator state machine.
type StateName string

const (
	StateIdle                    StateName = "idle"
	StateChecking                StateName = "checking"
	StateResolvingNotes          StateName = "resolving_notes"
	StateAwaitingConsent         StateName = "awaiting_consent"
	StateDownloading             StateName = "downloading"
	StateDownloaded              StateName = "downloaded"
	StateAwaitingInstallDecision StateName = "awaiting_install_decision"
	StateInstallPending          StateName = "install_pending"
	StateInstalling              StateName = "installing"
)

// AllStateNames returns all state names in lifecycle order.
func AllStateNames() []StateName {
	return []StateName{
		StateIdle,
		StateChecking,
		StateResolvingNotes,
		StateAwaitingConsent,
		StateDownloading,
		StateDownloaded,
		StateAwaitingInstallDecision,
		StateInstallPending,
		StateInstalling,
	}
}

// String returns the string representation of the StateName.
func (s StateName) String() string {
	return string(s)
}

// IsSettled reports whether a new check may start from this state.
func (s StateName) IsSettled() bool {
	return s == StateIdle || s == StateInstallPending
}

// IsTerminal reports whether the process is about to restart.
func (s StateName) IsTerminal() bool {
	return s == StateInstalling
}

// Outcome records how a session ended.
type Outcome string

const (
	OutcomeNone           Outcome = ""
	OutcomeNoUpdate       Outcome = "no_update"
	OutcomeCheckFailed    Outcome = "check_failed"
	OutcomeDeferred       Outcome = "deferred"
	OutcomeDownloadFailed Outcome = "download_failed"
	OutcomeInstallPending Outcome = "install_pending"
	OutcomeInstalling     Outcome = "installing"
	OutcomeAbandoned      Outcome = "abandoned"
)

// String returns the string representation of the Outcome.
func (o Outcome) String() string {
	if o == OutcomeNone {
		return "none"
	}
	return string(o)
}

// IsFailure reports whether the outcome was caused by an error.
func (o Outcome) IsFailure() bool {
	return o == OutcomeCheckFailed || o == OutcomeDownloadFailed
}
