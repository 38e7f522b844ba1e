package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/adamancini/upkeep/internal/interactive"
)

// VersionInfo is the output of upkeep version.
type VersionInfo struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
	Date    string `json:"date" yaml:"date"`
}

func (v VersionInfo) String() string {
	return fmt.Sprintf("upkeep version %s (commit %s, built %s)", v.Version, v.Commit, v.Date)
}

func newVersionCmd() *cobra.Command {
	var checkOnly bool
	var doUpdate bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information and check for updates",
		Long: `Display the current upkeep version and optionally check for or install updates.

Examples:
  upkeep version              # Show current version
  upkeep version --check      # Check if update is available
  upkeep version --update     # Run an interactive update session`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !checkOnly && !doUpdate {
				return newWriter(cmd.OutOrStdout()).Write(VersionInfo{
					Version: buildVersion,
					Commit:  buildCommit,
					Date:    buildDate,
				})
			}

			env, err := loadEnv()
			if err != nil {
				return err
			}

			if checkOnly {
				result, err := runCheck(cmd.Context(), env)
				if err != nil {
					return err
				}
				return newWriter(cmd.OutOrStdout()).Write(result)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runSession(ctx, env, env.newFeed(), interactive.NewTerminal())
		},
	}

	cmd.Flags().BoolVar(&checkOnly, "check", false, "Check for updates without installing")
	cmd.Flags().BoolVar(&doUpdate, "update", false, "Update to the latest version")
	cmd.MarkFlagsMutuallyExclusive("check", "update")

	return cmd
}
