package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"guapassist-backend/internal/apperr"
	"guapassist-backend/internal/assert"
	"guapassist-backend/internal/browser"
	"guapassist-backend/internal/components/chrono"
	"guapassist-backend/internal/components/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("guapassist.internal.session")

const (
	report_create_session = "manager.create-session"
	report_close_session  = "manager.close-session"
	report_probe_session  = "manager.is-session-active"
	report_cleanup        = "manager.cleanup-expired"
	report_session_count  = "manager.sessions"
)

type Options struct {
	// IdleTimeout is how long a session may go unused before it is evicted.
	IdleTimeout time.Duration
	// ProbeURL is navigated by IsSessionActive.
	ProbeURL     string
	ProbeTimeout time.Duration
}

// Manager owns every browser session, keyed by username.
type Manager struct {
	mutex     sync.Mutex
	sessions  map[string]*Session
	userLocks map[string]*sync.Mutex

	launcher browser.Launcher
	auth     Authenticator
	time     chrono.API
	tel      telemetry.API
	options  Options
}

func NewManager(
	launcher browser.Launcher,
	auth Authenticator,
	clock chrono.API,
	tel telemetry.API,
	options Options,
) *Manager {
	assert.NotNil(launcher, "launcher")
	assert.NotNil(auth, "auth")
	assert.NotNil(clock, "clock")
	assert.NotNil(tel, "tel")
	assert.PositiveDuration(options.IdleTimeout, "options.IdleTimeout")
	assert.PositiveDuration(options.ProbeTimeout, "options.ProbeTimeout")
	assert.NotEmptyStr(options.ProbeURL, "options.ProbeURL")

	return &Manager{
		sessions:  map[string]*Session{},
		userLocks: map[string]*sync.Mutex{},
		launcher:  launcher,
		auth:      auth,
		time:      clock,
		tel:       telemetry.NewScopedAPI("session", tel),
		options:   options,
	}
}

func (m *Manager) lockUser(username string) func() {
	m.mutex.Lock()
	lock, ok := m.userLocks[username]
	if !ok {
		lock = &sync.Mutex{}
		m.userLocks[username] = lock
	}
	m.mutex.Unlock()

	lock.Lock()
	return lock.Unlock
}

func (m *Manager) expired(s *Session, now time.Time) bool {
	return now.Sub(s.lastActivityAt) >= m.options.IdleTimeout
}

func (m *Manager) closeSession(s *Session, reason string) {
	err := s.Page.Close()
	if err != nil {
		m.tel.ReportWarning(report_close_session, fmt.Errorf("close session %s (%s): %w", s.Username, reason, err))
		return
	}
	m.tel.ReportDebug("closed session", s.Username, reason)
}

// closeWhenIdle waits for the holder of s to release it before closing the
// page. s must already be out of the registry.
func (m *Manager) closeWhenIdle(s *Session, reason string) {
	s.Acquire()
	defer s.Release()
	m.closeSession(s, reason)
}

// take removes the session of username from the registry if it is still s (or
// any session when s is nil) and returns what was removed.
func (m *Manager) take(username string, s *Session) *Session {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	current, ok := m.sessions[username]
	if !ok || (s != nil && current != s) {
		return nil
	}
	delete(m.sessions, username)
	m.reportCount()
	return current
}

// must be called while holding m.mutex
func (m *Manager) reportCount() {
	m.tel.ReportCount(report_session_count, int64(len(m.sessions)))
}

func failure(err error) CreateResult {
	kind := apperr.KindOf(err)
	result := CreateResult{Kind: kind, Err: err}

	switch {
	case kind == apperr.KindValidation:
		result.Message = apperr.MessageOf(err, MessageMissingCredentials)
	case errors.Is(err, ErrRejected):
		result.Message = MessageBadCredentials
	case kind == apperr.KindAuth:
		result.Message = MessageLoginFailed
	case errors.Is(err, apperr.ErrTimeout):
		result.Message = MessageTimeout
	case kind == apperr.KindTransient:
		result.Message = MessageConnection
	default:
		if result.Kind == apperr.KindUnknown {
			result.Kind = apperr.KindTransient
		}
		result.Message = MessageLoginFailed
	}
	return result
}

// CreateSession replaces any session of the user with a freshly launched and
// logged in one. It never returns an error, failures are reported in the result
// and leave no browser behind.
func (m *Manager) CreateSession(ctx context.Context, creds Credentials) CreateResult {
	ctx, span := tracer.Start(ctx, "CreateSession")
	defer span.End()
	span.SetAttributes(attribute.String("username", creds.Username))

	if err := creds.Validate(); err != nil {
		return failure(err)
	}

	unlock := m.lockUser(creds.Username)
	defer unlock()

	if prior := m.take(creds.Username, nil); prior != nil {
		m.closeWhenIdle(prior, "replaced")
	}

	page, err := m.launcher.Launch(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to launch browser")
		m.tel.ReportBroken(report_create_session, fmt.Errorf("launch: %w", err), creds.Username)
		return failure(err)
	}

	finalUrl, err := m.auth.Login(ctx, page, creds)
	if err == nil && !m.auth.IsLoginSuccessful(finalUrl) {
		err = apperr.Auth(MessageLoginFailed, fmt.Errorf("login ended on %s", finalUrl))
	}
	if err != nil {
		closeErr := page.Close()
		if closeErr != nil {
			m.tel.ReportWarning(report_close_session, closeErr)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
		if apperr.KindOf(err) == apperr.KindAuth {
			m.tel.ReportDebug("login rejected", creds.Username, err)
		} else {
			m.tel.ReportWarning(report_create_session, err, creds.Username)
		}
		return failure(err)
	}

	now := m.time.Now()
	s := &Session{
		Username:       creds.Username,
		Page:           page,
		CreatedAt:      now,
		lastActivityAt: now,
		valid:          true,
	}

	m.mutex.Lock()
	raced := m.sessions[creds.Username]
	m.sessions[creds.Username] = s
	m.reportCount()
	m.mutex.Unlock()
	if raced != nil {
		m.closeWhenIdle(raced, "replaced")
	}

	m.tel.ReportDebug("created session", creds.Username)
	return CreateResult{Success: true, SessionId: creds.Username}
}

// GetSession returns the live session of username. Sessions that are idle past
// the timeout, marked invalid or whose page no longer responds are evicted and
// closed instead. A returned session has its activity bumped.
//
// A session held by another caller is returned without pinging its page, the
// caller checks it after Acquire. GetSession never closes a held session.
func (m *Manager) GetSession(ctx context.Context, username string) (*Session, bool) {
	m.mutex.Lock()
	s, ok := m.sessions[username]
	if !ok {
		m.mutex.Unlock()
		return nil, false
	}
	stale := m.expired(s, m.time.Now()) || !s.valid
	m.mutex.Unlock()

	if !s.busy.TryLock() {
		if stale {
			return nil, false
		}
		m.bump(s)
		return s, true
	}
	defer s.busy.Unlock()

	if stale {
		if removed := m.take(username, s); removed != nil {
			m.closeSession(removed, "expired")
		}
		return nil, false
	}

	if s.Page.Closed() || s.Page.Ping(ctx) != nil {
		if removed := m.take(username, s); removed != nil {
			m.closeSession(removed, "unresponsive")
		}
		return nil, false
	}

	m.bump(s)
	return s, true
}

func (m *Manager) bump(s *Session) {
	m.mutex.Lock()
	s.lastActivityAt = m.time.Now()
	m.mutex.Unlock()
}

// IsSessionActive navigates the session to the portal root and checks that it
// stays on the authenticated domain. A failed check marks the session invalid
// but leaves it registered.
//
// A session held by a running scrape is reported active without navigating,
// its page is in use and the scrape itself discards it on failure.
func (m *Manager) IsSessionActive(ctx context.Context, username string) bool {
	ctx, span := tracer.Start(ctx, "IsSessionActive")
	defer span.End()

	m.mutex.Lock()
	s, ok := m.sessions[username]
	var valid, expired bool
	if ok {
		valid = s.valid
		expired = m.expired(s, m.time.Now())
	}
	m.mutex.Unlock()

	if !ok || !valid || expired {
		return false
	}

	if !s.busy.TryLock() {
		return true
	}
	defer s.busy.Unlock()

	active := true
	err := s.Page.Navigate(ctx, m.options.ProbeURL, m.options.ProbeTimeout)
	if err == nil {
		var current string
		current, err = s.Page.URL(ctx)
		active = err == nil && m.auth.IsLoginSuccessful(current)
	}
	if err != nil {
		active = false
		span.RecordError(err)
		m.tel.ReportWarning(report_probe_session, err, username)
	}

	if !active {
		m.mutex.Lock()
		s.valid = false
		m.mutex.Unlock()
	}
	return active
}

// Touch bumps the activity timestamp of username's session.
func (m *Manager) Touch(username string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if s, ok := m.sessions[username]; ok {
		s.lastActivityAt = m.time.Now()
	}
}

// Invalidate closes and evicts the session of username, it reports whether
// there was one.
func (m *Manager) Invalidate(username string) bool {
	removed := m.take(username, nil)
	if removed == nil {
		return false
	}
	m.closeSession(removed, "invalidated")
	return true
}

// Discard closes and evicts s if it is still the registered session of its
// user, a newer session of the same user is left alone.
func (m *Manager) Discard(s *Session) {
	if removed := m.take(s.Username, s); removed != nil {
		m.closeSession(removed, "discarded")
	}
}

// CleanupExpiredSessions evicts and closes every session idle past the
// timeout. Sessions currently in use are skipped. Close errors are reported
// but never returned.
func (m *Manager) CleanupExpiredSessions(ctx context.Context) int {
	now := m.time.Now()

	m.mutex.Lock()
	expired := []*Session{}
	for username, s := range m.sessions {
		if !m.expired(s, now) {
			continue
		}
		if !s.busy.TryLock() {
			continue
		}
		s.busy.Unlock()
		delete(m.sessions, username)
		expired = append(expired, s)
	}
	if len(expired) > 0 {
		m.reportCount()
	}
	m.mutex.Unlock()

	for _, s := range expired {
		m.closeSession(s, "expired")
	}
	if len(expired) > 0 {
		m.tel.ReportDebug("cleaned up expired sessions", len(expired))
	}
	return len(expired)
}

// CleanupAllSessions closes every session, it is used on shutdown.
func (m *Manager) CleanupAllSessions(ctx context.Context) int {
	m.mutex.Lock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.sessions = map[string]*Session{}
	m.reportCount()
	m.mutex.Unlock()

	for _, s := range all {
		m.closeSession(s, "shutdown")
	}
	return len(all)
}

// StartCleanup registers CleanupExpiredSessions on the given interval.
func (m *Manager) StartCleanup(cron chrono.CronAPI, interval time.Duration) error {
	assert.PositiveDuration(interval, "interval")
	return cron.Cron(fmt.Sprintf("@every %s", interval), func() {
		n := m.CleanupExpiredSessions(context.Background())
		if n > 0 {
			m.tel.ReportWarning(report_cleanup, fmt.Sprintf("evicted %d idle sessions", n))
		}
	})
}

func (m *Manager) Stats() Stats {
	now := m.time.Now()
	m.mutex.Lock()
	defer m.mutex.Unlock()

	stats := Stats{Total: len(m.sessions)}
	for _, s := range m.sessions {
		if m.expired(s, now) {
			stats.Expired++
			continue
		}
		if s.valid {
			stats.Active++
		}
	}
	return stats
}

func (m *Manager) List() []Info {
	now := m.time.Now()
	m.mutex.Lock()
	out := make([]Info, 0, len(m.sessions))
	for username, s := range m.sessions {
		out = append(out, Info{
			UserId:       username,
			CreatedAt:    s.CreatedAt,
			LastActivity: s.lastActivityAt,
			Age:          now.Sub(s.CreatedAt).Milliseconds(),
			IsValid:      s.valid,
			Expired:      m.expired(s, now),
		})
	}
	m.mutex.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].UserId < out[j].UserId
	})
	return out
}
