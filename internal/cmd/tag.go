package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/adamancini/upkeep/internal/git"
	"github.com/adamancini/upkeep/internal/interactive"
	"github.com/adamancini/upkeep/internal/notes"
	"github.com/adamancini/upkeep/internal/update"
)

type tagOutput struct {
	git.TagResult `yaml:",inline"`
}

func (r tagOutput) String() string {
	action := "Created"
	if r.Replaced {
		action = "Replaced"
	} else if !r.Created {
		action = "Pushed existing"
	}
	return fmt.Sprintf("%s tag %s on %s (%s)", action, r.Tag, r.Remote, r.RemoteURL)
}

func newTagCmd() *cobra.Command {
	var version string
	var force bool
	var skipVerify bool

	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Tag the current version and push it to origin",
		Long: `Create the v<version> tag for the manifest version and push it to origin,
which triggers the release build. The changelog and release notes must
mention the version first.

--force deletes an existing tag locally and on origin before re-creating it.

Examples:
  upkeep tag
  upkeep tag --version 1.5.0
  upkeep tag --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv()
			if err != nil {
				return err
			}
			if version == "" {
				version = env.version
			}
			v, err := update.ParseVersion(version)
			if err != nil {
				return err
			}

			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			if !skipVerify {
				if _, err := notes.Verify(wd, v.String()); err != nil {
					return err
				}
			}

			if force && interactive.IsTerminal() {
				term := interactive.NewTerminal()
				if !term.Confirm(cmd.Context(), fmt.Sprintf("Replace tag %s locally and on %s?", v.Tag(), git.DefaultRemote)) {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
					return nil
				}
			}

			result, err := git.NewTagger(git.NewRepo(wd)).Tag(v.Tag(), force)
			if err != nil {
				return err
			}
			return newWriter(cmd.OutOrStdout()).Write(tagOutput{result})
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "Version to tag (default: manifest version)")
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing tag")
	cmd.Flags().BoolVar(&skipVerify, "skip-verify", false, "Tag without checking the changelog and release notes")

	return cmd
}
