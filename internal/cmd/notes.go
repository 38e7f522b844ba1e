package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adamancini/upkeep/internal/git"
	"github.com/adamancini/upkeep/internal/notes"
	"github.com/adamancini/upkeep/internal/update"
)

// NotesResult is the output of upkeep notes show.
type NotesResult struct {
	Version string   `json:"version" yaml:"version"`
	Bullets []string `json:"bullets" yaml:"bullets"`
}

func (r NotesResult) String() string {
	if len(r.Bullets) == 0 {
		return fmt.Sprintf("No release notes found for %s", r.Version)
	}
	return fmt.Sprintf("Release notes for %s:\n%s", r.Version, strings.Join(r.Bullets, "\n"))
}

type generateOutput struct {
	notes.GenerateResult `yaml:",inline"`
}

func (r generateOutput) String() string {
	var lines []string
	if r.SectionAdded {
		lines = append(lines, fmt.Sprintf("Added v%s to %s", r.Version, r.ReleaseNotes))
	} else {
		lines = append(lines, fmt.Sprintf("%s already documents v%s", r.ReleaseNotes, r.Version))
	}
	if r.Changelog != "" {
		if r.ChangelogUpdated {
			lines = append(lines, fmt.Sprintf("Added v%s to %s", r.Version, r.Changelog))
		} else {
			lines = append(lines, fmt.Sprintf("%s already documents v%s", r.Changelog, r.Version))
		}
	}
	return strings.Join(lines, "\n")
}

type verifyOutput struct {
	notes.VerifyResult `yaml:",inline"`
}

func (r verifyOutput) String() string {
	return fmt.Sprintf("v%s is documented in %s", r.Version, strings.Join(r.Checked, ", "))
}

func newNotesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Show, generate, and verify release notes",
		Long: `Work with the release notes that update prompts summarize.

Notes for a version are looked up in the local RELEASE_NOTES.md first and
then in the release on GitHub.`,
	}

	cmd.AddCommand(newNotesShowCmd(), newNotesGenerateCmd(), newNotesVerifyCmd())
	return cmd
}

func newNotesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <version>",
		Short: "Print the release note bullets for a version",
		Example: `  upkeep notes show 1.4.0
  upkeep notes show v1.4.0 -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := update.ParseVersion(args[0])
			if err != nil {
				return err
			}
			env, err := loadEnv()
			if err != nil {
				return err
			}
			bullets := env.newResolver().Lookup(cmd.Context(), version)
			return newWriter(cmd.OutOrStdout()).Write(NotesResult{Version: version.Tag(), Bullets: bullets})
		},
	}
}

func newNotesGenerateCmd() *cobra.Command {
	var version string
	var changelog bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Scaffold a release notes section for the current version",
		Long: `Append a section for the version to RELEASE_NOTES.md, summarizing the
commits since the latest tag. Existing sections are left untouched.

The version defaults to the one in the manifest.`,
		Example: `  upkeep notes generate
  upkeep notes generate --version 1.5.0 --changelog`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv()
			if err != nil {
				return err
			}
			if version == "" {
				version = env.version
			}
			wd, err := os.Getwd()
			if err != nil {
				return err
			}

			var commits notes.CommitLog
			if repo := git.NewRepo(wd); repo.IsWorkTree() {
				commits = repo
			}
			result, err := notes.NewGenerator(wd, env.manifest.DisplayName(), commits).Generate(version, changelog)
			if err != nil {
				return err
			}
			return newWriter(cmd.OutOrStdout()).Write(generateOutput{result})
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "Version to document (default: manifest version)")
	cmd.Flags().BoolVar(&changelog, "changelog", false, "Also add an entry to CHANGELOG.md")

	return cmd
}

func newNotesVerifyCmd() *cobra.Command {
	var version string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that the changelog and release notes mention a version",
		Example: `  upkeep notes verify
  upkeep notes verify --version 1.5.0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv()
			if err != nil {
				return err
			}
			if version == "" {
				version = env.version
			}
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			result, err := notes.Verify(wd, version)
			if err != nil {
				return err
			}
			return newWriter(cmd.OutOrStdout()).Write(verifyOutput{result})
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "Version to verify (default: manifest version)")

	return cmd
}
