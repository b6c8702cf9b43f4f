package cmd

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"guapassist-backend/internal/apperr"
	gw "guapassist-backend/internal/gateway"
	"guapassist-backend/internal/scrapers/guap/guaptest"
	"guapassist-backend/internal/session"
	"guapassist-backend/internal/store"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, child := range c.Commands() {
		resetFlags(child)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	resetFlags(rootCmd)
	var out bytes.Buffer
	stdout = &out
	t.Cleanup(func() { stdout = nil })

	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func newGateway(t *testing.T) (*guaptest.Env, string) {
	env := guaptest.NewEnv()
	g := gw.NewGateway(env.Portal, env.Sessions, nil, env.Tel, gw.Options{})
	server := httptest.NewServer(g.Handler())
	t.Cleanup(server.Close)
	return env, server.URL
}

func TestTasksCommand(t *testing.T) {
	env, url := newGateway(t)
	env.Fake.ServePaginated("/inside/student/tasks/",
		guaptest.TasksPage(3, guaptest.Tasks(1, 2), guaptest.Pager(1, 1)),
		guaptest.TasksPage(3, guaptest.Tasks(3, 1), guaptest.Pager(2, -1)),
	)

	out, err := run(t, "--url", url, "-u", guaptest.Username, "-p", guaptest.Password, "tasks")
	require.NoError(t, err)
	require.Contains(t, out, "Задание 1")
	require.Contains(t, out, "Задание 3")
	require.Contains(t, out, "Дисциплина 2")

	out, err = run(t, "--url", url, "sessions")
	require.NoError(t, err)
	require.Contains(t, out, "1 total")
	require.Contains(t, out, guaptest.Username)
}

func TestRecordCommands(t *testing.T) {
	env := guaptest.NewEnv()
	database, err := store.Open(context.Background(), store.Config{Driver: store.DriverSqlite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	records := store.NewStore(database, store.DriverSqlite, env.Clock, env.Tel)
	server := httptest.NewServer(gw.NewGateway(env.Portal, env.Sessions, records, env.Tel, gw.Options{}).Handler())
	t.Cleanup(server.Close)

	env.Fake.Serve("/inside/profile", guaptest.Fixture("profile"))
	_, err = run(t, "--url", server.URL, "-u", guaptest.Username, "-p", guaptest.Password, "profile")
	require.NoError(t, err)

	out, err := run(t, "--url", server.URL, "record", guaptest.Username)
	require.NoError(t, err)
	require.Contains(t, out, `"kind": "profile"`)

	out, err = run(t, "--url", server.URL, "forget", guaptest.Username)
	require.NoError(t, err)
	require.Contains(t, out, "deleted 1 records")

	out, err = run(t, "--url", server.URL, "record", guaptest.Username)
	require.NoError(t, err)
	require.NotContains(t, out, "profile")
}

func TestLoginAndLogout(t *testing.T) {
	env, url := newGateway(t)

	out, err := run(t, "--url", url, "-u", guaptest.Username, "-p", guaptest.Password, "login")
	require.NoError(t, err)
	require.Contains(t, out, "✅")

	out, err = run(t, "--url", url, "--json", "check", guaptest.Username)
	require.NoError(t, err)
	require.Contains(t, out, `"sessionActive": true`)

	out, err = run(t, "--url", url, "logout", guaptest.Username)
	require.NoError(t, err)
	require.NotContains(t, out, "no session was open")
	require.Zero(t, env.Launcher.OpenPages())

	out, err = run(t, "--url", url, "logout", guaptest.Username)
	require.NoError(t, err)
	require.Contains(t, out, "no session was open")
}

func TestCommandErrors(t *testing.T) {
	_, url := newGateway(t)

	_, err := run(t, "--url", url, "--username=", "--password=", "profile")
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = run(t, "--url", url, "--retries", "0", "-u", guaptest.Username, "-p", "wrong", "profile")
	require.Equal(t, apperr.KindAuth, apperr.KindOf(err))
	require.Equal(t, session.MessageBadCredentials+" [auth]", describe(err))

	_, err = run(t, "--url", url, "record", guaptest.Username, "grades")
	require.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestDescribe(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		expected string
	}{
		{"plain", errors.New("dial tcp: refused"), "dial tcp: refused"},
		{"validation", apperr.Validation("⛔ Укажите логин и пароль"), "⛔ Укажите логин и пароль [validation]"},
		{"transient without message", apperr.Transient("", errors.New("timeout")), "transient: timeout [transient]"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.expected, describe(c.err))
		})
	}
}
