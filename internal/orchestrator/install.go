package orchestrator

import (
	"context"
	"fmt"

	"github.com/adamancini/upkeep/internal/types"
	"github.com/adamancini/upkeep/internal/update"
)

const installTitle = "Update ready"

// InstallScheduler asks when a downloaded update should be installed.
type InstallScheduler struct {
	prompter Prompter
}

// NewInstallScheduler creates a scheduler.
func NewInstallScheduler(prompter Prompter) *InstallScheduler {
	return &InstallScheduler{prompter: prompter}
}

// RequestInstallDecision blocks until the user decides. On prompt failure
// it returns InstallLater with an error wrapping ErrPromptUnavailable, so
// the process is never restarted without consent.
func (s *InstallScheduler) RequestInstallDecision(ctx context.Context, info *update.Info) (types.InstallDecision, error) {
	message := fmt.Sprintf("Version %s has been downloaded. Restart now to install it, or it will be installed when you quit.", info.Version)

	choice, err := s.prompter.ShowChoice(ctx, installTitle, message, types.InstallOptions)
	if err == nil {
		var decision types.InstallDecision
		if decision, err = types.InstallFromChoice(choice); err == nil {
			return decision, nil
		}
	}

	if ctx.Err() != nil {
		return types.InstallLater, ctx.Err()
	}
	return types.InstallLater, promptError(err)
}
