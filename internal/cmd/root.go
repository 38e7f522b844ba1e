package cmd

import (
	"github.com/spf13/cobra"

	"github.com/adamancini/upkeep/internal/output"
)

var (
	// Global flags
	outputFormat string
	configPath   string
	manifestPath string
	logLevel     string
	logFile      string
	verbose      bool
	quiet        bool

	// Build information
	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

// Execute runs the root command.
func Execute(version, commit, date string) error {
	return newRootCmd(version, commit, date).Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	buildVersion, buildCommit, buildDate = version, commit, date

	rootCmd := &cobra.Command{
		Use:   "upkeep",
		Short: "Update orchestration for desktop applications",
		Long: `upkeep discovers, describes and installs new versions of an application
published as GitHub releases.

It checks the release feed, shows the release notes, asks before downloading,
and installs either immediately or when the application quits. It also ships
the release tooling that keeps RELEASE_NOTES.md, CHANGELOG.md and tags in step.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := output.ParseFormat(outputFormat); err != nil {
				return err
			}
			return initLogging()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json, yaml")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to upkeep settings file")
	rootCmd.PersistentFlags().StringVar(&manifestPath, "manifest", "", "Path to the packaging manifest (default from settings)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Log file path, or console")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (errors only)")

	// Add subcommands
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newNotesCmd())
	rootCmd.AddCommand(newTagCmd())
	rootCmd.AddCommand(newBackupCmd())
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	// Register completion function for output flag
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return output.AllFormats(), cobra.ShellCompDirectiveNoFileComp
	})

	return rootCmd
}
