package gateway

import (
	"context"
	"net/http"

	"guapassist-backend/internal/assert"
	"guapassist-backend/internal/components/telemetry"
	"guapassist-backend/internal/scrapers/guap"
	"guapassist-backend/internal/session"
	"guapassist-backend/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	report_encode  = "gateway.encode"
	report_persist = "gateway.persist"
	report_request = "gateway.request"
)

// Recorder persists scrape results, store.Store implements it.
type Recorder interface {
	Put(ctx context.Context, userId string, kind store.Kind, value any) error
	Get(ctx context.Context, userId string, kind store.Kind) (store.Record, error)
	List(ctx context.Context, userId string) ([]store.Record, error)
	Delete(ctx context.Context, userId string) (int64, error)
}

type Options struct {
	// AccessToken guards the /scrape routes and record deletion with a bearer
	// token when set.
	AccessToken string
}

// Gateway exposes the scrapers and the session manager over JSON.
type Gateway struct {
	portal   *guap.Portal
	sessions *session.Manager
	records  Recorder
	tel      telemetry.API
	options  Options
}

// NewGateway creates a gateway, records may be nil to disable persistence.
func NewGateway(
	portal *guap.Portal,
	sessions *session.Manager,
	records Recorder,
	tel telemetry.API,
	options Options,
) Gateway {
	assert.NotNil(portal, "portal")
	assert.NotNil(sessions, "sessions")
	assert.NotNil(tel, "tel")

	return Gateway{
		portal:   portal,
		sessions: sessions,
		records:  records,
		tel:      telemetry.NewScopedAPI("gateway", tel),
		options:  options,
	}
}

func (g Gateway) routes(r chi.Router) {
	r.Get("/health", g.health)
	r.Get("/sessions", g.listSessions)
	r.Get("/sessions/stats", g.sessionStats)
	r.Get("/records/{username}", g.listRecords)
	r.Get("/records/{username}/{kind}", g.getRecord)
	r.With(verifyAccessToken(g.options.AccessToken)).Delete("/records/{username}", g.deleteRecords)

	r.Route("/scrape", func(r chi.Router) {
		r.Use(verifyAccessToken(g.options.AccessToken))

		r.Post("/init-session", g.initSession)
		r.Post("/check-session", g.checkSession)
		r.Post("/logout", g.logout)
		r.Post("/schedule", g.weekSchedule)
		r.Post("/daily-schedule", g.daySchedule)
		r.Post("/tasks", g.tasks)
		r.Post("/reports", g.reports)
		r.Post("/profile", g.profile)
	})
}

// Handler returns the instrumented router, every route is served both at the
// root and under /api.
func (g Gateway) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(g.logRequests)
	r.Use(middleware.Recoverer)

	g.routes(r)
	r.Route("/api", g.routes)

	return otelhttp.NewHandler(r, "gateway")
}
