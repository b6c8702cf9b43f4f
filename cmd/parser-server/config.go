package main

import (
	"time"

	"guapassist-backend/internal/browser"
	"guapassist-backend/internal/scrapers/guap"
	"guapassist-backend/internal/session"
	"guapassist-backend/internal/store"
	"guapassist-backend/lib/configutil"
	"guapassist-backend/lib/telemetry"
)

type PortalConfig struct {
	BaseURL  string `json:"base_url"`
	LoginURL string `json:"login_url"`
}

func (c PortalConfig) urls() guap.URLs {
	urls := guap.DefaultURLs()
	if c.BaseURL != "" {
		urls.Base = c.BaseURL
	}
	if c.LoginURL != "" {
		urls.Login = c.LoginURL
	}
	return urls
}

type BrowserConfig struct {
	Headless             *bool   `json:"headless"`
	NoSandbox            bool    `json:"no_sandbox"`
	ExecPath             string  `json:"exec_path"`
	UserAgent            string  `json:"user_agent"`
	NavigationsPerSecond float64 `json:"navigations_per_second"`
}

func (c BrowserConfig) options() browser.ChromeOptions {
	headless := true
	if c.Headless != nil {
		headless = *c.Headless
	}
	return browser.ChromeOptions{
		Headless:             headless,
		NoSandbox:            c.NoSandbox,
		ExecPath:             c.ExecPath,
		UserAgent:            c.UserAgent,
		NavigationsPerSecond: c.NavigationsPerSecond,
	}
}

type TimeoutsConfig struct {
	LoginForm         configutil.Duration `json:"login_form"`
	SubmitControl     configutil.Duration `json:"submit_control"`
	SubmitNavigation  configutil.Duration `json:"submit_navigation"`
	Navigation        configutil.Duration `json:"navigation"`
	ReportsNavigation configutil.Duration `json:"reports_navigation"`
	DomReady          configutil.Duration `json:"dom_ready"`
	PageRows          configutil.Duration `json:"page_rows"`
	PaginationSettle  configutil.Duration `json:"pagination_settle"`

	SessionIdle     configutil.Duration `json:"session_idle"`
	Probe           configutil.Duration `json:"probe"`
	CleanupInterval configutil.Duration `json:"cleanup_interval"`
	Shutdown        configutil.Duration `json:"shutdown"`
}

func (c TimeoutsConfig) scraper() guap.Timeouts {
	defaults := guap.DefaultTimeouts()
	return guap.Timeouts{
		LoginForm:         c.LoginForm.Or(defaults.LoginForm),
		SubmitControl:     c.SubmitControl.Or(defaults.SubmitControl),
		SubmitNavigation:  c.SubmitNavigation.Or(defaults.SubmitNavigation),
		Navigation:        c.Navigation.Or(defaults.Navigation),
		ReportsNavigation: c.ReportsNavigation.Or(defaults.ReportsNavigation),
		DomReady:          c.DomReady.Or(defaults.DomReady),
		PageRows:          c.PageRows.Or(defaults.PageRows),
		PaginationSettle:  c.PaginationSettle.Or(defaults.PaginationSettle),
	}
}

func (c TimeoutsConfig) sessions(probeURL string) session.Options {
	return session.Options{
		IdleTimeout:  c.SessionIdle.Or(30 * time.Minute),
		ProbeURL:     probeURL,
		ProbeTimeout: c.Probe.Or(10 * time.Second),
	}
}

type StoreConfig struct {
	store.Config
	// Retention prunes records not refreshed for this long, 0 keeps them forever.
	Retention configutil.Duration `json:"retention"`
}

type Config struct {
	Port        int              `json:"port"`
	AccessToken string           `json:"access_token"`
	Portal      PortalConfig     `json:"portal"`
	Browser     BrowserConfig    `json:"browser"`
	Timeouts    TimeoutsConfig   `json:"timeouts"`
	Store       StoreConfig      `json:"store"`
	Telemetry   telemetry.Config `json:"telemetry"`
}

func (c Config) port() int {
	if c.Port == 0 {
		return 3001
	}
	return c.Port
}
