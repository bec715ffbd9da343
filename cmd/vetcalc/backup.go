package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/charlie0129/vetcalc/pkg/client"
)

func NewBackupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "backup",
		Short:   "Show scheduled backups of custom calculators",
		GroupID: gAdvanced,
		Long: `Show scheduled backups of custom calculators.

Backups are configured in the daemon config file with "backupSchedule" (a cron
expression such as '0 3 * * *' or '@daily') and "backupDir".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := apiClient.GetBackup()
			if err != nil {
				return err
			}
			printBackup(cmd, st)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "skip",
		Short: "Skip the next scheduled backup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := apiClient.SkipBackup()
			if err != nil {
				return err
			}
			cmd.Println("Next scheduled backup skipped.")
			printBackup(cmd, st)
			return nil
		},
	})

	cmd.AddCommand(newBackupPostponeCommand())

	return cmd
}

func newBackupPostponeCommand() *cobra.Command {
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "postpone [duration]",
		Short: "Postpone the next scheduled backup",
		Example: `  vetcalc backup postpone      (Postpone by 1 hour)
  vetcalc backup postpone 90m  (Postpone by 90 minutes)`,
		Long: `Postpone the next scheduled backup by a duration. The postponed backup must
still run before the one after it. If no duration is given, defaults to 1 hour.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := duration
			if len(args) > 0 {
				parsed, err := time.ParseDuration(args[0])
				if err != nil {
					return fmt.Errorf("invalid duration %q: %w", args[0], err)
				}
				d = parsed
			}
			st, err := apiClient.PostponeBackup(d)
			if err != nil {
				return err
			}
			cmd.Printf("Next backup postponed by %s.\n", d)
			printBackup(cmd, st)
			return nil
		},
	}

	cmd.Flags().DurationVar(&duration, "duration", time.Hour, "Duration to postpone (e.g., 1h, 90m)")
	return cmd
}

func printBackup(cmd *cobra.Command, st *client.BackupStatus) {
	cmd.Printf("  Schedule: %s\n", bold("%s", st.Schedule))
	cmd.Printf("  Directory: %s\n", st.Dir)
	if !st.NextRun.IsZero() {
		cmd.Printf("  Next run: %s\n", st.NextRun.Local().Format(time.DateTime))
	}
	if st.Running {
		cmd.Println("  A backup is running now.")
	}
}
