package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/adamancini/upkeep/internal/interactive"
	"github.com/adamancini/upkeep/internal/orchestrator"
	"github.com/adamancini/upkeep/internal/types"
	"github.com/adamancini/upkeep/internal/update"
)

func newRunCmd() *cobra.Command {
	var autoDownload bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one interactive update session",
		Long: `Check for an update and walk through the full session in the terminal:
release notes, download consent, progress, and the install decision.

Choosing Later stages the update and installs it when upkeep exits.

Examples:
  upkeep run
  upkeep run --auto-download    # Download without asking when no terminal is attached`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("auto-download") {
				env.settings.AutoDownload = autoDownload
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			surface := interactive.NewTerminal()
			return runSession(ctx, env, env.newFeed(), surface)
		},
	}

	cmd.Flags().BoolVar(&autoDownload, "auto-download", false, "Accept updates when the consent prompt cannot be shown")

	return cmd
}

// stagedFeed is implemented by feeds that can report the downloaded version
// waiting for install.
type stagedFeed interface {
	StagedVersion() (update.Version, bool)
}

// runSession drives one session to a settled state, then runs the exit hook.
// A successful restart install never returns here; a failed one ends the
// session with the update pending.
func runSession(ctx context.Context, env *appEnv, feed orchestrator.Feed, surface orchestrator.Surface) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ended := make(chan orchestrator.Event, 1)
	observer := func(ev orchestrator.Event) {
		switch ev.Kind {
		case orchestrator.EventSessionEnded:
			select {
			case ended <- ev:
			default:
			}
		case orchestrator.EventInstallPending:
			log.Infof("update %s staged for install on exit", ev.Info.Version)
		}
	}

	o := orchestrator.New(feed, env.newResolver(), surface,
		orchestrator.WithAutoDownload(env.settings.AutoDownload),
		orchestrator.WithChangelog(env.changelogURL),
		orchestrator.WithObserver(observer),
	)

	loopCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := o.Run(loopCtx); err != nil && loopCtx.Err() == nil {
			log.Errorf("update loop stopped: %v", err)
		}
	}()

	info, err := o.CheckForUpdate(ctx)
	if err != nil {
		_ = o.Quit(context.Background())
		return fmt.Errorf("failed to check for updates: %w", err)
	}
	if info == nil {
		surface.Notify("Up to date", fmt.Sprintf("%s is the latest version", env.version))
		return o.Quit(context.Background())
	}

	var outcome orchestrator.Event
	select {
	case outcome = <-ended:
		log.Debugf("session ended with outcome %s", outcome.Outcome)
	case <-ctx.Done():
		log.Infof("interrupted, abandoning update session")
	}

	if status, err := o.Status(context.Background()); err == nil && status.State == types.StateInstallPending {
		pending := status.Version
		if sf, ok := feed.(stagedFeed); ok {
			if v, staged := sf.StagedVersion(); staged {
				pending = v.String()
			}
		}
		surface.Notify("Update pending", fmt.Sprintf("%s is installed as upkeep exits", pending))
	}

	if err := o.Quit(context.Background()); err != nil {
		return err
	}
	if outcome.Outcome.IsFailure() {
		return fmt.Errorf("update %s: %w", outcome.Outcome, outcome.Err)
	}
	return nil
}
