package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"guapassist-backend/internal/apperr"
	"guapassist-backend/internal/components/chrono"
	"guapassist-backend/internal/scrapers/guap/guaptest"
	"guapassist-backend/internal/session"

	"github.com/stretchr/testify/require"
)

func TestCreateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("logs in", func(t *testing.T) {
		env := guaptest.NewEnv()
		result := env.Sessions.CreateSession(ctx, guaptest.Credentials())
		require.True(t, result.Success)
		require.Equal(t, guaptest.Username, result.SessionId)
		require.NoError(t, result.AsError())
		require.Equal(t, session.Stats{Total: 1, Active: 1}, env.Sessions.Stats())
	})

	t.Run("replaces the previous session", func(t *testing.T) {
		env := guaptest.NewEnv()
		require.True(t, env.Sessions.CreateSession(ctx, guaptest.Credentials()).Success)
		require.True(t, env.Sessions.CreateSession(ctx, guaptest.Credentials()).Success)

		pages := env.Launcher.Pages()
		require.Len(t, pages, 2)
		require.True(t, pages[0].Closed())
		require.Equal(t, 1, env.Launcher.OpenPages())
		require.Equal(t, 1, env.Sessions.Stats().Total)
	})

	t.Run("replacement waits for the holder of the previous session", func(t *testing.T) {
		env := guaptest.NewEnv()
		require.True(t, env.Sessions.CreateSession(ctx, guaptest.Credentials()).Success)
		held, ok := env.Sessions.GetSession(ctx, guaptest.Username)
		require.True(t, ok)
		held.Acquire()

		done := make(chan session.CreateResult, 1)
		go func() {
			done <- env.Sessions.CreateSession(ctx, guaptest.Credentials())
		}()

		select {
		case <-done:
			t.Fatal("previous session replaced while held")
		case <-time.After(100 * time.Millisecond):
		}
		require.False(t, env.Launcher.Pages()[0].Closed())

		held.Release()
		require.True(t, (<-done).Success)
		pages := env.Launcher.Pages()
		require.Len(t, pages, 2)
		require.True(t, pages[0].Closed())
		require.Equal(t, 1, env.Launcher.OpenPages())
	})

	t.Run("wrong password", func(t *testing.T) {
		env := guaptest.NewEnv()
		result := env.Sessions.CreateSession(ctx, session.Credentials{Username: guaptest.Username, Password: "wrong"})
		require.False(t, result.Success)
		require.True(t, result.CredentialFailure())
		require.Equal(t, session.MessageBadCredentials, result.Message)
		require.Zero(t, env.Sessions.Stats().Total)
		require.Zero(t, env.Launcher.OpenPages())
	})

	t.Run("missing credentials never launch a browser", func(t *testing.T) {
		env := guaptest.NewEnv()
		result := env.Sessions.CreateSession(ctx, session.Credentials{Username: "  ", Password: "x"})
		require.False(t, result.Success)
		require.Equal(t, apperr.KindValidation, result.Kind)
		require.Equal(t, session.MessageMissingCredentials, result.Message)
		require.Empty(t, env.Launcher.Pages())
	})

	t.Run("browser does not start", func(t *testing.T) {
		env := guaptest.NewEnv()
		env.Launcher.LaunchErr = apperr.Transient("", errors.New("no chrome binary"))
		result := env.Sessions.CreateSession(ctx, guaptest.Credentials())
		require.False(t, result.Success)
		require.False(t, result.CredentialFailure())
		require.Equal(t, session.MessageConnection, result.Message)
	})
}

func TestGetSession(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown user", func(t *testing.T) {
		env := guaptest.NewEnv()
		_, ok := env.Sessions.GetSession(ctx, "nobody")
		require.False(t, ok)
	})

	t.Run("activity keeps a session alive", func(t *testing.T) {
		env := guaptest.NewEnv()
		env.Sessions.CreateSession(ctx, guaptest.Credentials())

		env.Clock.Advance(20 * time.Minute)
		_, ok := env.Sessions.GetSession(ctx, guaptest.Username)
		require.True(t, ok)
		env.Clock.Advance(20 * time.Minute)
		_, ok = env.Sessions.GetSession(ctx, guaptest.Username)
		require.True(t, ok)
	})

	t.Run("idle session expires", func(t *testing.T) {
		env := guaptest.NewEnv()
		env.Sessions.CreateSession(ctx, guaptest.Credentials())

		env.Clock.Advance(guaptest.IdleTimeout)
		_, ok := env.Sessions.GetSession(ctx, guaptest.Username)
		require.False(t, ok)
		require.Zero(t, env.Launcher.OpenPages())
		require.Zero(t, env.Sessions.Stats().Total)
	})

	t.Run("detached page is evicted", func(t *testing.T) {
		env := guaptest.NewEnv()
		env.Sessions.CreateSession(ctx, guaptest.Credentials())

		env.Launcher.Pages()[0].Detach()
		_, ok := env.Sessions.GetSession(ctx, guaptest.Username)
		require.False(t, ok)
		require.Zero(t, env.Sessions.Stats().Total)
	})

	t.Run("held session is returned without a ping", func(t *testing.T) {
		env := guaptest.NewEnv()
		env.Sessions.CreateSession(ctx, guaptest.Credentials())
		held, ok := env.Sessions.GetSession(ctx, guaptest.Username)
		require.True(t, ok)
		held.Acquire()

		page := env.Launcher.Pages()[0]
		page.StallPings(true)
		s, ok := env.Sessions.GetSession(ctx, guaptest.Username)
		require.True(t, ok)
		require.Same(t, held, s)
		require.False(t, page.Closed())
		require.Equal(t, 1, env.Sessions.Stats().Total)

		held.Release()
		_, ok = env.Sessions.GetSession(ctx, guaptest.Username)
		require.False(t, ok, "an idle session that does not answer is evicted")
		require.True(t, page.Closed())
	})

	t.Run("held session past the timeout is left to its holder", func(t *testing.T) {
		env := guaptest.NewEnv()
		env.Sessions.CreateSession(ctx, guaptest.Credentials())
		held, ok := env.Sessions.GetSession(ctx, guaptest.Username)
		require.True(t, ok)
		held.Acquire()
		defer held.Release()

		env.Clock.Advance(guaptest.IdleTimeout)
		_, ok = env.Sessions.GetSession(ctx, guaptest.Username)
		require.False(t, ok)
		require.False(t, env.Launcher.Pages()[0].Closed())
	})
}

func TestIsSessionActive(t *testing.T) {
	ctx := context.Background()

	t.Run("logged in", func(t *testing.T) {
		env := guaptest.NewEnv()
		env.Sessions.CreateSession(ctx, guaptest.Credentials())
		require.True(t, env.Sessions.IsSessionActive(ctx, guaptest.Username))
	})

	t.Run("no session", func(t *testing.T) {
		env := guaptest.NewEnv()
		require.False(t, env.Sessions.IsSessionActive(ctx, guaptest.Username))
	})

	t.Run("held session is active without navigating", func(t *testing.T) {
		env := guaptest.NewEnv()
		env.Sessions.CreateSession(ctx, guaptest.Credentials())
		held, ok := env.Sessions.GetSession(ctx, guaptest.Username)
		require.True(t, ok)
		held.Acquire()
		defer held.Release()

		page := env.Launcher.Pages()[0]
		before := len(page.Navigations())
		env.Fake.Expire()
		require.True(t, env.Sessions.IsSessionActive(ctx, guaptest.Username))
		require.Len(t, page.Navigations(), before)
		require.True(t, env.Sessions.List()[0].IsValid)
	})

	t.Run("portal logged the user out", func(t *testing.T) {
		env := guaptest.NewEnv()
		env.Sessions.CreateSession(ctx, guaptest.Credentials())
		env.Fake.Expire()

		require.False(t, env.Sessions.IsSessionActive(ctx, guaptest.Username))
		require.Equal(t, session.Stats{Total: 1}, env.Sessions.Stats())
		require.False(t, env.Sessions.List()[0].IsValid)

		_, ok := env.Sessions.GetSession(ctx, guaptest.Username)
		require.False(t, ok, "an invalid session is evicted on next use")
		require.Zero(t, env.Launcher.OpenPages())
	})
}

func TestCleanup(t *testing.T) {
	ctx := context.Background()
	env := guaptest.NewEnv()
	env.Fake.AddUser("u2", "pw2")
	cron := chrono.NewManualCron()
	require.NoError(t, env.Sessions.StartCleanup(cron, 5*time.Minute))

	env.Sessions.CreateSession(ctx, guaptest.Credentials())
	env.Clock.Advance(20 * time.Minute)
	env.Sessions.CreateSession(ctx, session.Credentials{Username: "u2", Password: "pw2"})
	env.Clock.Advance(15 * time.Minute)

	require.Equal(t, session.Stats{Total: 2, Active: 1, Expired: 1}, env.Sessions.Stats())

	list := env.Sessions.List()
	require.Len(t, list, 2)
	require.Equal(t, guaptest.Username, list[0].UserId)
	require.True(t, list[0].Expired)
	require.Equal(t, (35 * time.Minute).Milliseconds(), list[0].Age)
	require.Equal(t, "u2", list[1].UserId)
	require.False(t, list[1].Expired)

	require.Equal(t, 1, cron.Fire("@every 5m0s"))
	require.Equal(t, session.Stats{Total: 1, Active: 1}, env.Sessions.Stats())
	require.True(t, env.Launcher.Pages()[0].Closed())

	require.Equal(t, 1, env.Sessions.CleanupAllSessions(ctx))
	require.Zero(t, env.Launcher.OpenPages())
}

func TestCleanupSkipsBusySessions(t *testing.T) {
	ctx := context.Background()
	env := guaptest.NewEnv()
	env.Sessions.CreateSession(ctx, guaptest.Credentials())

	s, ok := env.Sessions.GetSession(ctx, guaptest.Username)
	require.True(t, ok)
	s.Acquire()
	env.Clock.Advance(time.Hour)

	require.Zero(t, env.Sessions.CleanupExpiredSessions(ctx))
	s.Release()
	require.Equal(t, 1, env.Sessions.CleanupExpiredSessions(ctx))
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	env := guaptest.NewEnv()
	env.Sessions.CreateSession(ctx, guaptest.Credentials())

	require.True(t, env.Sessions.Invalidate(guaptest.Username))
	require.False(t, env.Sessions.Invalidate(guaptest.Username))
	require.Zero(t, env.Launcher.OpenPages())
}
