package guaptest

import (
	"time"

	"guapassist-backend/internal/browser/browsertest"
	"guapassist-backend/internal/components/chrono"
	"guapassist-backend/internal/components/telemetry"
	"guapassist-backend/internal/scrapers/guap"
	"guapassist-backend/internal/session"
)

const (
	Username = "u1"
	Password = "secret"

	IdleTimeout = 30 * time.Minute
)

// Timeouts are short enough for tests that wait out a timeout on purpose.
func Timeouts() guap.Timeouts {
	return guap.Timeouts{
		LoginForm:         300 * time.Millisecond,
		SubmitControl:     300 * time.Millisecond,
		SubmitNavigation:  300 * time.Millisecond,
		Navigation:        time.Second,
		ReportsNavigation: time.Second,
		DomReady:          300 * time.Millisecond,
		PageRows:          50 * time.Millisecond,
	}
}

// Env wires a scraping stack against a fake portal.
type Env struct {
	Fake     *Portal
	Launcher *browsertest.Launcher
	Clock    *chrono.Fake
	Tel      *telemetry.RecordingAPI
	Auth     guap.AuthStrategy
	Sessions *session.Manager
	Portal   *guap.Portal
}

func NewEnv() *Env {
	moscow := time.FixedZone("MSK", 3*60*60)
	env := &Env{
		Fake:  NewPortal().AddUser(Username, Password),
		Clock: chrono.NewFake(time.Date(2025, time.March, 10, 12, 0, 0, 0, moscow)),
		Tel:   telemetry.NewRecordingAPI(),
	}
	env.Launcher = browsertest.NewLauncher(env.Fake)
	env.Auth = guap.NewAuthStrategy(URLs(), Timeouts(), env.Tel)
	env.Sessions = session.NewManager(env.Launcher, env.Auth, env.Clock, env.Tel, session.Options{
		IdleTimeout:  IdleTimeout,
		ProbeURL:     URLs().Root(),
		ProbeTimeout: time.Second,
	})
	env.Portal = guap.NewPortal(env.Sessions, env.Auth, URLs(), Timeouts(), env.Clock, env.Tel)
	return env
}

func Credentials() session.Credentials {
	return session.Credentials{Username: Username, Password: Password}
}
