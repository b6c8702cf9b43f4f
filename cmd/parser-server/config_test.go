package main

import (
	"testing"
	"time"

	"guapassist-backend/internal/scrapers/guap"
	"guapassist-backend/internal/store"
	"guapassist-backend/lib/configutil"

	"github.com/stretchr/testify/require"
)

func TestShippedConfig(t *testing.T) {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	require.NoError(t, err)

	require.Equal(t, 3001, cfg.port())
	require.Equal(t, guap.DefaultURLs(), cfg.Portal.urls())
	require.True(t, cfg.Browser.options().Headless)

	timeouts := cfg.Timeouts.scraper()
	require.Equal(t, 30*time.Second, timeouts.Navigation)
	require.Equal(t, 45*time.Second, timeouts.ReportsNavigation)
	require.Equal(t, guap.DefaultTimeouts().PageRows, timeouts.PageRows, "unset values fall back to defaults")

	options := cfg.Timeouts.sessions("https://pro.guap.ru/")
	require.Equal(t, 30*time.Minute, options.IdleTimeout)
	require.Equal(t, 10*time.Second, options.ProbeTimeout)

	require.True(t, cfg.Store.Enabled())
	require.Equal(t, store.DriverSqlite, cfg.Store.Driver)
	require.Equal(t, 720*time.Hour, time.Duration(cfg.Store.Retention))
}

func TestEmptyConfigDefaults(t *testing.T) {
	var cfg Config
	require.Equal(t, 3001, cfg.port())
	require.True(t, cfg.Browser.options().Headless)
	require.Equal(t, guap.DefaultTimeouts(), cfg.Timeouts.scraper())
	require.False(t, cfg.Store.Enabled())
}
