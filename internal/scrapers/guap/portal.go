package guap

import (
	"context"
	"fmt"
	"time"

	"guapassist-backend/internal/apperr"
	"guapassist-backend/internal/assert"
	"guapassist-backend/internal/browser"
	"guapassist-backend/internal/components/chrono"
	"guapassist-backend/internal/components/telemetry"
	"guapassist-backend/internal/session"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("guapassist.internal.scrapers.guap")

const (
	report_authenticated_page = "portal.authenticated-page"
	report_scrape             = "portal.scrape"

	messageNoSession     = "Не удалось получить рабочую сессию браузера"
	messageNotConfirmed  = "Не удалось подтвердить авторизацию после входа"
	messageLoginRejected = "Не удалось войти в ЛК ГУАП"
)

// Portal is the shared base of every scraper: it turns credentials into a
// logged in page of the user's session.
type Portal struct {
	sessions *session.Manager
	auth     AuthStrategy
	urls     URLs
	timeouts Timeouts
	time     chrono.API
	tel      telemetry.API
}

func NewPortal(
	sessions *session.Manager,
	auth AuthStrategy,
	urls URLs,
	timeouts Timeouts,
	clock chrono.API,
	tel telemetry.API,
) *Portal {
	assert.NotNil(sessions, "sessions")
	assert.NotNil(clock, "clock")
	assert.NotNil(tel, "tel")
	assert.NotEmptyStr(urls.Base, "urls.Base")
	assert.NotEmptyStr(urls.Login, "urls.Login")

	return &Portal{
		sessions: sessions,
		auth:     auth,
		urls:     urls,
		timeouts: timeouts,
		time:     clock,
		tel:      telemetry.NewScopedAPI("guap", tel),
	}
}

// isLoggedIn opens an authenticated-only page and checks that the portal did
// not bounce it to the identity provider.
func (p *Portal) isLoggedIn(ctx context.Context, page browser.Page) (bool, error) {
	err := page.Navigate(ctx, p.urls.Profile(), p.timeouts.DomReady)
	if err != nil {
		return false, fmt.Errorf("open profile: %w", err)
	}
	current, err := page.URL(ctx)
	if err != nil {
		return false, err
	}
	return p.auth.IsLoginSuccessful(current), nil
}

// AuthenticatedPage returns the user's session acquired for exclusive use and
// logged in. The caller must Release it.
//
// A session whose page stopped responding is replaced once, a second failure
// is returned as is.
func (p *Portal) AuthenticatedPage(ctx context.Context, creds session.Credentials) (*session.Session, error) {
	ctx, span := tracer.Start(ctx, "Portal.AuthenticatedPage")
	defer span.End()
	span.SetAttributes(attribute.String("username", creds.Username))

	s, err := p.authenticatedPage(ctx, creds)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "could not acquire page")
	}
	return s, err
}

func (p *Portal) authenticatedPage(ctx context.Context, creds session.Credentials) (*session.Session, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	const maxAttempts = 2
	for attempt := 0; attempt < maxAttempts; attempt++ {
		s, ok := p.sessions.GetSession(ctx, creds.Username)
		if !ok {
			result := p.sessions.CreateSession(ctx, creds)
			if !result.Success {
				return nil, result.AsError()
			}
			s, ok = p.sessions.GetSession(ctx, creds.Username)
			if !ok {
				continue
			}
		}

		s.Acquire()
		// the page may have detached while waiting for the previous user of the session
		if s.Page.Closed() || s.Page.Ping(ctx) != nil {
			s.Release()
			p.sessions.Discard(s)
			p.tel.ReportDebug("replacing unresponsive session", creds.Username, attempt)
			continue
		}

		err := p.ensureLoggedIn(ctx, s, creds)
		if err != nil {
			s.Release()
			p.sessions.Discard(s)
			return nil, err
		}
		p.sessions.Touch(creds.Username)
		return s, nil
	}

	p.tel.ReportWarning(report_authenticated_page, creds.Username)
	return nil, apperr.Transient(messageNoSession, apperr.ErrDetached)
}

func (p *Portal) ensureLoggedIn(ctx context.Context, s *session.Session, creds session.Credentials) error {
	loggedIn, err := p.isLoggedIn(ctx, s.Page)
	if err != nil {
		return err
	}
	if loggedIn {
		return nil
	}

	p.tel.ReportDebug("session logged out, logging in again", creds.Username)
	finalUrl, err := p.auth.Login(ctx, s.Page, creds)
	if err != nil {
		return err
	}
	if !p.auth.IsLoginSuccessful(finalUrl) {
		return apperr.Auth(messageLoginRejected, fmt.Errorf("login ended on %s", finalUrl))
	}

	loggedIn, err = p.isLoggedIn(ctx, s.Page)
	if err != nil {
		return err
	}
	if !loggedIn {
		return apperr.Auth(messageNotConfirmed, nil)
	}
	return nil
}

// scrape runs fn against the user's logged in page. Any error discards the
// session so that the next call starts from a fresh browser.
func (p *Portal) scrape(
	ctx context.Context,
	creds session.Credentials,
	name string,
	fn func(ctx context.Context, page browser.Page) error,
) error {
	ctx, span := tracer.Start(ctx, name)
	defer span.End()

	s, err := p.AuthenticatedPage(ctx, creds)
	if err != nil {
		return err
	}

	err = fn(ctx, s.Page)
	s.Release()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scrape failed")
		p.sessions.Discard(s)
		if apperr.KindOf(err) == apperr.KindStructural {
			p.tel.ReportBroken(report_scrape, name, err)
		} else {
			p.tel.ReportWarning(report_scrape, name, err)
		}
		return err
	}

	p.sessions.Touch(creds.Username)
	return nil
}

// openPage navigates to target and waits until container is found, an empty
// marker shows up or loading indicators disappear.
func (p *Portal) openPage(
	ctx context.Context,
	page browser.Page,
	target string,
	navigation ...navigationOption,
) (browser.Snapshot, State, error) {
	options := navigationOptions{
		timeout:   p.timeouts.Navigation,
		readyWait: p.timeouts.DomReady,
		container: "table",
	}
	for _, apply := range navigation {
		apply(&options)
	}

	err := page.Navigate(ctx, target, options.timeout)
	if err != nil {
		return browser.Snapshot{}, NotRecognized, fmt.Errorf("navigate to %s: %w", target, err)
	}

	snapshot, err := browser.WaitFor(ctx, page, options.readyWait, func(s browser.Snapshot) bool {
		if p.auth.onSso(s.URL) {
			return true
		}
		state := detect(s, options.container)
		if state != NotRecognized {
			return true
		}
		return options.settleOnIdle && !s.Has(selectorLoading)
	})
	if err != nil {
		return snapshot, NotRecognized, fmt.Errorf("%w: wait for %s: %w", apperr.ErrNavigation, target, err)
	}
	if p.auth.onSso(snapshot.URL) {
		return snapshot, NotRecognized, apperr.Auth(messageSessionExpired, fmt.Errorf("redirected to %s", snapshot.URL))
	}
	return snapshot, detect(snapshot, options.container), nil
}

const messageSessionExpired = "Сессия истекла, требуется повторный вход"

type navigationOptions struct {
	timeout      time.Duration
	readyWait    time.Duration
	container    string
	settleOnIdle bool
}

type navigationOption func(*navigationOptions)

func withContainer(selector string) navigationOption {
	return func(o *navigationOptions) {
		o.container = selector
	}
}

func withTimeouts(navigation, ready time.Duration) navigationOption {
	return func(o *navigationOptions) {
		o.timeout = navigation
		o.readyWait = ready
	}
}

// withSettleOnIdle also accepts a page without loading indicators as ready.
func withSettleOnIdle() navigationOption {
	return func(o *navigationOptions) {
		o.settleOnIdle = true
	}
}
