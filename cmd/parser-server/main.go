package main

import (
	"context"
	"flag"
	"log/slog"
	"time"

	"guapassist-backend/internal/browser"
	"guapassist-backend/internal/components/chrono"
	tel "guapassist-backend/internal/components/telemetry"
	"guapassist-backend/internal/gateway"
	"guapassist-backend/internal/scrapers/guap"
	"guapassist-backend/internal/session"
	"guapassist-backend/internal/store"
	"guapassist-backend/lib/configutil"
	"guapassist-backend/lib/serviceutil"
	"guapassist-backend/lib/telemetry"
)

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging.")
	configPath := flag.String("config", "config.json5", "Path to the config file.")
	flag.Parse()

	ctx := serviceutil.SignalContext()
	telemetry.InitSlog(*verbose)

	cfg, err := configutil.ReadConfig[Config](*configPath)
	if err != nil {
		serviceutil.Fatal("read config", err)
	}

	providers, err := telemetry.Setup(ctx, "guap-parser", cfg.Telemetry)
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	defer providers.Shutdown(context.Background())
	if cfg.Telemetry.PerfStats {
		telemetry.InstrumentPerfStats(ctx, 30*time.Second)
	}

	reporter := tel.NewSlogAPI()
	clock, err := chrono.NewStandardImpl()
	if err != nil {
		serviceutil.Fatal("load portal timezone", err)
	}
	cron := chrono.NewStandardCron(reporter, clock)
	defer cron.Stop()

	urls := cfg.Portal.urls()
	timeouts := cfg.Timeouts.scraper()

	launcher := browser.NewChromeLauncher(cfg.Browser.options(), reporter)
	defer launcher.Close()

	auth := guap.NewAuthStrategy(urls, timeouts, reporter)
	sessions := session.NewManager(launcher, auth, clock, reporter, cfg.Timeouts.sessions(urls.Root()))
	err = sessions.StartCleanup(cron, cfg.Timeouts.CleanupInterval.Or(5*time.Minute))
	if err != nil {
		serviceutil.Fatal("schedule session cleanup", err)
	}
	portal := guap.NewPortal(sessions, auth, urls, timeouts, clock, reporter)

	var records gateway.Recorder
	if cfg.Store.Enabled() {
		database, err := store.Open(ctx, cfg.Store.Config)
		if err != nil {
			serviceutil.Fatal("open record store", err)
		}
		defer database.Close()
		recordStore := store.NewStore(database, cfg.Store.Driver, clock, reporter)
		err = schedulePrune(cron, recordStore, time.Duration(cfg.Store.Retention))
		if err != nil {
			serviceutil.Fatal("schedule record pruning", err)
		}
		records = recordStore
		slog.Info("record store enabled", "driver", cfg.Store.Driver)
	}

	g := gateway.NewGateway(portal, sessions, records, reporter, gateway.Options{
		AccessToken: cfg.AccessToken,
	})

	err = serviceutil.ServeHttp(ctx, cfg.port(), g.Handler(), cfg.Timeouts.Shutdown.Or(30*time.Second))
	if err != nil {
		slog.Error("http server", "err", err)
	}

	closed := sessions.CleanupAllSessions(context.Background())
	slog.Info("shutdown complete", "closed_sessions", closed)
}

func schedulePrune(cron chrono.CronAPI, records store.Store, retention time.Duration) error {
	if retention <= 0 {
		return nil
	}
	return cron.Cron("@every 1h", func() {
		// failures are reported by the store
		records.Prune(context.Background(), retention)
	})
}
