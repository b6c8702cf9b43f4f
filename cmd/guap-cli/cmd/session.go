package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(healthCmd, sessionsCmd, loginCmd, checkCmd, logoutCmd)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Checks that the gateway is up.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		health, err := gateway.Health(cmd.Context())
		if err != nil {
			return err
		}
		if flags.json {
			return printJSON(stdout, health)
		}
		fmt.Fprintf(stdout, "%s: %s\n", health.Service, health.Status)
		return nil
	},
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Lists the browser sessions held by the gateway.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := gateway.Sessions(cmd.Context())
		if err != nil {
			return err
		}
		if flags.json {
			return printJSON(stdout, res)
		}
		renderSessions(stdout, res.Stats, res.Sessions)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Logs in and keeps the session warm on the gateway.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := credentials()
		if err != nil {
			return err
		}
		res, err := gateway.InitSession(cmd.Context(), creds)
		if err != nil {
			return err
		}
		if flags.json {
			return printJSON(stdout, res)
		}
		fmt.Fprintln(stdout, res.Message)
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check [username]",
	Short: "Reports whether a live session exists for a user.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := flags.username
		if len(args) == 1 {
			username = args[0]
		}
		res, err := gateway.CheckSession(cmd.Context(), username)
		if err != nil {
			return err
		}
		if flags.json {
			return printJSON(stdout, res)
		}
		fmt.Fprintln(stdout, res.Message)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout [username]",
	Short: "Closes the session of a user.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := flags.username
		if len(args) == 1 {
			username = args[0]
		}
		res, err := gateway.Logout(cmd.Context(), username)
		if err != nil {
			return err
		}
		if flags.json {
			return printJSON(stdout, res)
		}
		if !res.Closed {
			fmt.Fprintln(stdout, "no session was open")
			return nil
		}
		fmt.Fprintln(stdout, res.Message)
		return nil
	},
}
