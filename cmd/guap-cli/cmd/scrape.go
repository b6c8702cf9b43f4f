package cmd

import (
	"fmt"

	"guapassist-backend/internal/store"

	"github.com/spf13/cobra"
)

var (
	year int
	week int
)

func init() {
	scheduleCmd.Flags().IntVar(&year, "year", 0, "ISO year, defaults to the current one.")
	scheduleCmd.Flags().IntVar(&week, "week", 0, "ISO week, defaults to the current one.")
	rootCmd.AddCommand(scheduleCmd, dayCmd, tasksCmd, reportsCmd, profileCmd, recordCmd, forgetCmd)
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Prints the weekly class schedule.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := credentials()
		if err != nil {
			return err
		}
		res, err := gateway.WeekSchedule(cmd.Context(), creds, year, week)
		if err != nil {
			return err
		}
		if flags.json {
			return printJSON(stdout, res)
		}
		renderWeek(stdout, res)
		return nil
	},
}

var dayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "Prints the classes of one day.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := credentials()
		if err != nil {
			return err
		}
		res, err := gateway.DaySchedule(cmd.Context(), creds, args[0])
		if err != nil {
			return err
		}
		if flags.json {
			return printJSON(stdout, res)
		}
		renderDay(stdout, res)
		return nil
	},
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Prints every task with its deadline and status.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := credentials()
		if err != nil {
			return err
		}
		res, err := gateway.Tasks(cmd.Context(), creds)
		if err != nil {
			return err
		}
		if flags.json {
			return printJSON(stdout, res)
		}
		renderTasks(stdout, res)
		return nil
	},
}

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Prints every uploaded report with its score.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := credentials()
		if err != nil {
			return err
		}
		res, err := gateway.Reports(cmd.Context(), creds)
		if err != nil {
			return err
		}
		if flags.json {
			return printJSON(stdout, res)
		}
		renderReports(stdout, res)
		return nil
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Prints the student profile.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := credentials()
		if err != nil {
			return err
		}
		res, err := gateway.Profile(cmd.Context(), creds)
		if err != nil {
			return err
		}
		if flags.json {
			return printJSON(stdout, res)
		}
		renderProfile(stdout, res)
		return nil
	},
}

var recordCmd = &cobra.Command{
	Use:   "record <username> [kind]",
	Short: "Prints the last stored payload of a scrape (schedule, schedule-day, tasks, reports, profile), or every payload of the user.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			records, err := gateway.Records(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(stdout, records)
		}
		kind, err := store.ParseKind(args[1])
		if err != nil {
			return err
		}
		record, err := gateway.Record(cmd.Context(), args[0], kind)
		if err != nil {
			return err
		}
		return printJSON(stdout, record)
	},
}

var forgetCmd = &cobra.Command{
	Use:   "forget <username>",
	Short: "Deletes every stored payload of the user.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := gateway.DeleteRecords(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "deleted %d records of %s\n", n, args[0])
		return nil
	},
}
