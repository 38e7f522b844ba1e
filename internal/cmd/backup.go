package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/adamancini/upkeep/internal/backup"
	"github.com/adamancini/upkeep/internal/interactive"
	"github.com/adamancini/upkeep/internal/update"
)

type backupList struct {
	Dir     string              `json:"dir" yaml:"dir"`
	Backups []backup.BackupInfo `json:"backups" yaml:"backups"`
}

func (l backupList) String() string {
	if len(l.Backups) == 0 {
		return fmt.Sprintf("No backups found.\nBackup directory: %s", l.Dir)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Backups stored in %s:\n\n", l.Dir)
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCreated\tVersion\tNote\tSize")
	for _, bak := range l.Backups {
		note := bak.Note
		if note == "" {
			note = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			bak.ID,
			bak.CreatedAt.Format("2006-01-02 15:04:05"),
			bak.Version,
			note,
			formatSize(bak.Size),
		)
	}
	_ = w.Flush()
	return strings.TrimRight(b.String(), "\n")
}

type pruneOutput struct {
	backup.PruneResult `yaml:",inline"`
}

func (p pruneOutput) String() string {
	if len(p.Deleted) == 0 {
		return fmt.Sprintf("No backups to prune. Keeping %d backups.", p.Kept)
	}
	lines := []string{fmt.Sprintf("Pruned %d backup(s), keeping %d:", len(p.Deleted), p.Kept)}
	for _, b := range p.Deleted {
		lines = append(lines, fmt.Sprintf("  - %s (%s)", b.ID, b.CreatedAt.Format("2006-01-02 15:04:05")))
	}
	return strings.Join(lines, "\n")
}

func newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage copies of binaries replaced by updates",
		Long: `Before each install upkeep copies the binary it replaces into
~/.cache/upkeep/backups/, keeping the number set by backup.keep.

Use 'upkeep backup restore' to go back to a previous version.`,
	}

	cmd.AddCommand(newBackupListCmd())
	cmd.AddCommand(newBackupRestoreCmd())
	cmd.AddCommand(newBackupDeleteCmd())
	cmd.AddCommand(newBackupPruneCmd())

	return cmd
}

func newBackupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all backups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := backupManager()
			if err != nil {
				return err
			}
			backups, err := manager.List()
			if err != nil {
				return err
			}
			return newWriter(cmd.OutOrStdout()).Write(backupList{Dir: manager.BackupDir(), Backups: backups})
		},
	}
}

func newBackupRestoreCmd() *cobra.Command {
	var yes bool
	var target string

	cmd := &cobra.Command{
		Use:   "restore [id]",
		Short: "Reinstall a backed up binary",
		Long: `Restore puts a backed up binary back in place of the installed one.

The ID defaults to 'latest', the most recent backup. The binary goes back to
the path it was saved from unless --target is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := "latest"
			if len(args) == 1 {
				id = args[0]
			}

			manager, err := backupManager()
			if err != nil {
				return err
			}
			bak, err := manager.Get(id)
			if err != nil {
				return err
			}
			if target == "" {
				target = bak.Target
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Restoring %s from backup %s (%s)\n", bak.Version, bak.ID, bak.CreatedAt.Format("2006-01-02 15:04:05"))

			if !yes {
				term := interactive.NewTerminalWithIO(cmd.InOrStdin(), out)
				if !term.Confirm(cmd.Context(), fmt.Sprintf("Replace %s?", target)) {
					_, _ = fmt.Fprintln(out, "Restore cancelled.")
					return nil
				}
			}

			if err := update.NewBinaryReplacer(target).Replace(manager.BinaryPath(bak.ID)); err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}
			_, _ = fmt.Fprintf(out, "Restored %s to %s\n", bak.Version, target)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip confirmation prompt")
	cmd.Flags().StringVar(&target, "target", "", "Binary to replace (default: the path the backup was taken from)")

	return cmd
}

func newBackupDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := backupManager()
			if err != nil {
				return err
			}
			if err := manager.Delete(args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Backup deleted: %s\n", args[0])
			return nil
		},
	}
}

func newBackupPruneCmd() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove old backups",
		Long: `Prune deletes old backups, keeping only the most recent N.

Without --keep the backup.keep setting is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnv()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("keep") {
				keep = env.settings.Backup.Keep
			}
			manager, err := env.newBackupManager()
			if err != nil {
				return err
			}
			result, err := manager.Prune(keep)
			if err != nil {
				return err
			}
			return newWriter(cmd.OutOrStdout()).Write(pruneOutput{*result})
		},
	}

	cmd.Flags().IntVar(&keep, "keep", backup.DefaultKeepCount, "Number of backups to keep")

	return cmd
}

func backupManager() (*backup.Manager, error) {
	env, err := loadEnv()
	if err != nil {
		return nil, err
	}
	return env.newBackupManager()
}

// formatSize formats a byte size as a human-readable string.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
