package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/adamancini/upkeep/internal/types"
	"github.com/adamancini/upkeep/internal/update"
)

const consentTitle = "Update available"

// ConsentGate asks whether a found update should be downloaded.
type ConsentGate struct {
	prompter     Prompter
	autoDownload bool
}

// NewConsentGate creates a gate. autoDownload selects Accept instead of
// Defer when the prompt cannot be shown.
func NewConsentGate(prompter Prompter, autoDownload bool) *ConsentGate {
	return &ConsentGate{prompter: prompter, autoDownload: autoDownload}
}

// RequestConsent blocks until the user decides. On prompt failure it
// returns the fallback decision together with an error wrapping
// ErrPromptUnavailable.
func (g *ConsentGate) RequestConsent(ctx context.Context, info *update.Info, bullets []string) (types.ConsentDecision, error) {
	choice, err := g.prompter.ShowChoice(ctx, consentTitle, consentMessage(info, bullets), types.ConsentOptions)
	if err == nil {
		var decision types.ConsentDecision
		if decision, err = types.ConsentFromChoice(choice); err == nil {
			return decision, nil
		}
	}

	if ctx.Err() != nil {
		return types.ConsentDefer, ctx.Err()
	}

	fallback := types.ConsentDefer
	if g.autoDownload {
		fallback = types.ConsentAccept
	}
	return fallback, promptError(err)
}

func consentMessage(info *update.Info, bullets []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Version %s is available", info.Version)
	if !info.CurrentVersion.IsZero() {
		fmt.Fprintf(&b, " (you have %s)", info.CurrentVersion)
	}
	b.WriteString(".")
	if len(bullets) > 0 {
		b.WriteString("\n\n")
		b.WriteString(strings.Join(bullets, "\n"))
	}
	return b.String()
}

func promptError(err error) error {
	if errors.Is(err, ErrPromptUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPromptUnavailable, err)
}
