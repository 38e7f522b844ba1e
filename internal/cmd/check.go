package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// CheckResult is the outcome of upkeep check.
type CheckResult struct {
	Repository     string   `json:"repository" yaml:"repository"`
	CurrentVersion string   `json:"current_version" yaml:"current_version"`
	LatestVersion  string   `json:"latest_version,omitempty" yaml:"latest_version,omitempty"`
	Available      bool     `json:"available" yaml:"available"`
	ReleaseURL     string   `json:"release_url,omitempty" yaml:"release_url,omitempty"`
	AssetURL       string   `json:"asset_url,omitempty" yaml:"asset_url,omitempty"`
	Bullets        []string `json:"bullets,omitempty" yaml:"bullets,omitempty"`
}

func (r CheckResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current version: %s\n", r.CurrentVersion)
	if !r.Available {
		b.WriteString("Already running latest version")
		return b.String()
	}

	fmt.Fprintf(&b, "Latest version: %s available", r.LatestVersion)
	if len(r.Bullets) > 0 {
		b.WriteString("\n\nRelease notes:\n")
		b.WriteString(strings.Join(r.Bullets, "\n"))
	}
	if r.ReleaseURL != "" {
		fmt.Fprintf(&b, "\n\n%s", r.ReleaseURL)
	}
	b.WriteString("\n\nRun 'upkeep run' to install")
	return b.String()
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check the release feed for a newer version",
		Long: `Query the release feed once and report whether a newer version exists,
together with its release notes. Nothing is downloaded.

Examples:
  upkeep check              # Human readable summary
  upkeep check -o json      # Machine readable result`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv()
			if err != nil {
				return err
			}
			result, err := runCheck(cmd.Context(), env)
			if err != nil {
				return err
			}
			return newWriter(cmd.OutOrStdout()).Write(result)
		},
	}
}

func runCheck(ctx context.Context, env *appEnv) (CheckResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	result := CheckResult{
		Repository:     env.coords().String(),
		CurrentVersion: env.version,
	}

	info, err := env.newFeed().CheckForUpdate(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to check for updates: %w", err)
	}
	if info == nil {
		return result, nil
	}

	result.Available = true
	result.LatestVersion = info.Version.String()
	result.ReleaseURL = info.ReleaseURL
	result.AssetURL = info.AssetURL
	result.Bullets = env.newResolver().Resolve(ctx, info)
	return result, nil
}
