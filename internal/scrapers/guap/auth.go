package guap

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"guapassist-backend/internal/apperr"
	"guapassist-backend/internal/browser"
	"guapassist-backend/internal/components/telemetry"
	"guapassist-backend/internal/session"
	"guapassist-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/codes"
)

const (
	selectorUsername    = "#username"
	selectorPassword    = "#password-input"
	selectorSubmit      = `input[type="submit"]`
	selectorLoginError  = `.alert-error, .error, [class*="error"]`
	selectorNavMarker   = `[class*="navigation"], [class*="menu"], nav`
	selectorUserMarker  = `[class*="user"], [class*="profile"], .username`
	messageUnconfirmed  = "Не удалось подтвердить успешность авторизации"
	report_login_submit = "auth.login-submit"
)

// AuthStrategy logs a page into the portal through the SSO login form.
type AuthStrategy struct {
	urls     URLs
	timeouts Timeouts
	tel      telemetry.API
}

func NewAuthStrategy(urls URLs, timeouts Timeouts, tel telemetry.API) AuthStrategy {
	return AuthStrategy{
		urls:     urls,
		timeouts: timeouts,
		tel:      telemetry.NewScopedAPI("guap", tel),
	}
}

var _ session.Authenticator = AuthStrategy{}

func (a AuthStrategy) onPortal(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.EqualFold(parsed.Hostname(), a.urls.PortalHost())
}

func (a AuthStrategy) onSso(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.EqualFold(parsed.Hostname(), a.urls.SsoHost())
}

// IsLoginSuccessful is the url heuristic: the page is on the portal host,
// which includes the oauth callback. The host is compared rather than the
// whole url because the SSO login url carries the portal address in its
// redirect_uri parameter.
func (a AuthStrategy) IsLoginSuccessful(raw string) bool {
	return a.onPortal(raw)
}

// DetailedLoginCheck requires the portal url, no login fields and some
// element only shown to authenticated users.
func (a AuthStrategy) DetailedLoginCheck(snapshot browser.Snapshot) bool {
	if !a.IsLoginSuccessful(snapshot.URL) {
		return false
	}
	if snapshot.Has(selectorUsername) || snapshot.Has(selectorPassword) {
		return false
	}
	return snapshot.Has(selectorNavMarker) || snapshot.Has(selectorUserMarker)
}

func loginFormReady(s browser.Snapshot) bool {
	return s.Has(selectorUsername) && s.Has(selectorPassword)
}

// Login fills in the SSO form and returns the url the page settled on.
func (a AuthStrategy) Login(ctx context.Context, page browser.Page, creds session.Credentials) (string, error) {
	ctx, span := tracer.Start(ctx, "AuthStrategy.Login")
	defer span.End()

	finalUrl, err := a.login(ctx, page, creds)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
	}
	return finalUrl, err
}

func (a AuthStrategy) login(ctx context.Context, page browser.Page, creds session.Credentials) (string, error) {
	err := page.Navigate(ctx, a.urls.Login, a.timeouts.Navigation)
	if err != nil {
		return "", fmt.Errorf("open login page: %w", err)
	}

	form, err := browser.WaitFor(ctx, page, a.timeouts.LoginForm, func(s browser.Snapshot) bool {
		return loginFormReady(s) || a.onPortal(s.URL)
	})
	if err != nil {
		return "", fmt.Errorf("wait for login form: %w", err)
	}
	// a live SSO session redirects straight back to the portal
	if !loginFormReady(form) {
		if a.DetailedLoginCheck(form) {
			return form.URL, nil
		}
		return form.URL, apperr.Auth(messageUnconfirmed, fmt.Errorf("redirected to %s without a login form", form.URL))
	}
	if err = page.Type(ctx, selectorUsername, creds.Username); err != nil {
		return "", fmt.Errorf("type username: %w", err)
	}
	if err = page.Type(ctx, selectorPassword, creds.Password); err != nil {
		return "", fmt.Errorf("type password: %w", err)
	}

	_, err = browser.WaitFor(ctx, page, a.timeouts.SubmitControl, func(s browser.Snapshot) bool {
		return s.Has(selectorSubmit)
	})
	if err != nil {
		return "", fmt.Errorf("wait for submit: %w", err)
	}
	if err = page.Click(ctx, selectorSubmit); err != nil {
		return "", fmt.Errorf("submit login form: %w", err)
	}

	// navigation after submit is allowed to time out, the page is inspected either way
	snapshot, err := browser.WaitFor(ctx, page, a.timeouts.SubmitNavigation, func(s browser.Snapshot) bool {
		return !a.onSso(s.URL) || a.inlineError(s) != ""
	})
	if err != nil {
		a.tel.ReportDebug("login navigation did not settle", creds.Username, err)
		snapshot, err = browser.TakeSnapshot(ctx, page)
		if err != nil {
			return "", fmt.Errorf("inspect page after submit: %w", err)
		}
	}

	if message := a.inlineError(snapshot); message != "" {
		return snapshot.URL, apperr.Auth(message, session.ErrRejected)
	}
	if !a.DetailedLoginCheck(snapshot) {
		a.tel.ReportWarning(report_login_submit, creds.Username, snapshot.URL)
		return snapshot.URL, apperr.Auth(messageUnconfirmed, fmt.Errorf("landed on %s", snapshot.URL))
	}

	a.tel.ReportDebug("logged in", creds.Username)
	return snapshot.URL, nil
}

// inlineError returns the login form's error text, only while still on the
// identity provider where the selector cannot match portal markup.
func (a AuthStrategy) inlineError(s browser.Snapshot) string {
	if s.Doc == nil || !a.onSso(s.URL) {
		return ""
	}
	text := ""
	s.Doc.Find(selectorLoginError).EachWithBreak(func(_ int, el *goquery.Selection) bool {
		text = htmlutil.Text(el)
		return text == ""
	})
	return text
}
