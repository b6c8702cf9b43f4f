package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"guapassist-backend/internal/apperr"
	"guapassist-backend/internal/components/telemetry"
	"guapassist-backend/internal/session"
	"guapassist-backend/lib/restyutil"
	libtelemetry "guapassist-backend/lib/telemetry"
	"guapassist-backend/pkg/client"

	"github.com/spf13/cobra"
)

type globalFlags struct {
	baseURL  string
	token    string
	username string
	password string
	retries  int
	timeout  time.Duration
	json     bool
	verbose  bool
	dump     string
}

var flags globalFlags

var gateway *client.Client

var stdout io.Writer = os.Stdout

var rootCmd = &cobra.Command{
	Use:           "guap-cli",
	Short:         "guap-cli drives a running GUAP parser gateway.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		libtelemetry.InitSlog(flags.verbose || flags.dump != "")

		options := client.Options{
			BaseURL:     flags.baseURL,
			AccessToken: flags.token,
			Timeout:     flags.timeout,
			Retries:     flags.retries,
		}
		if flags.dump != "" {
			output, err := restyutil.NewFilesystemOutput(flags.dump)
			if err != nil {
				return err
			}
			options.Dump = output
		}
		gateway = client.New(options, telemetry.NewSlogAPI())
		return nil
	},
}

func envOr(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	return value
}

func init() {
	persistent := rootCmd.PersistentFlags()
	persistent.StringVar(&flags.baseURL, "url", envOr("GUAP_PARSER_URL", "http://localhost:3001"), "Gateway base url ($GUAP_PARSER_URL).")
	persistent.StringVar(&flags.token, "token", os.Getenv("GUAP_PARSER_TOKEN"), "Gateway access token ($GUAP_PARSER_TOKEN).")
	persistent.StringVarP(&flags.username, "username", "u", os.Getenv("GUAP_USERNAME"), "Portal login ($GUAP_USERNAME).")
	persistent.StringVarP(&flags.password, "password", "p", os.Getenv("GUAP_PASSWORD"), "Portal password ($GUAP_PASSWORD).")
	persistent.IntVar(&flags.retries, "retries", 2, "Retries of transient failures.")
	persistent.DurationVar(&flags.timeout, "timeout", 3*time.Minute, "Timeout of a single attempt.")
	persistent.BoolVar(&flags.json, "json", false, "Print raw json instead of tables.")
	persistent.BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging.")
	persistent.StringVar(&flags.dump, "dump", "", "Write every http exchange into this directory.")
}

func credentials() (session.Credentials, error) {
	creds := session.Credentials{Username: flags.username, Password: flags.password}
	err := creds.Validate()
	if err != nil {
		return session.Credentials{}, fmt.Errorf("%w (use -u/-p or $GUAP_USERNAME/$GUAP_PASSWORD)", err)
	}
	return creds, nil
}

// describe renders a gateway failure with its kind so scripts can tell a
// rejected password from an outage.
func describe(err error) string {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		return err.Error()
	}
	message := apperr.MessageOf(err, err.Error())
	if appErr.Kind == apperr.KindUnknown {
		return message
	}
	return fmt.Sprintf("%s [%s]", message, appErr.Kind)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		os.Exit(1)
	}
}
