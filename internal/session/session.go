package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"guapassist-backend/internal/apperr"
	"guapassist-backend/internal/browser"
)

const (
	MessageMissingCredentials = "⛔ Укажите логин и пароль"
	MessageBadCredentials     = "❌ Неверный логин или пароль ЛК ГУАП"
	MessageLoginFailed        = "❌ Ошибка входа в ЛК ГУАП"
	MessageConnection         = "❌ Проблема с подключением к серверу ГУАП"
	MessageTimeout            = "❌ Превышено время ожидания ответа от ГУАП"
)

// ErrRejected marks a login the portal explicitly refused.
var ErrRejected = errors.New("credentials rejected by the portal")

// Credentials are passed per call and never stored by the manager.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Username) == "" || c.Password == "" {
		return apperr.Validation(MessageMissingCredentials)
	}
	return nil
}

// Authenticator logs a page into the portal.
type Authenticator interface {
	// Login drives the login form and returns the url the page ended on.
	Login(ctx context.Context, page browser.Page, creds Credentials) (string, error)
	// IsLoginSuccessful reports whether url belongs to the authenticated portal.
	IsLoginSuccessful(url string) bool
}

// Session is one logged in browser bound to a username.
type Session struct {
	Username  string
	Page      browser.Page
	CreatedAt time.Time

	// guarded by Manager.mutex
	lastActivityAt time.Time
	valid          bool

	busy sync.Mutex
}

// Acquire serializes use of the page, one navigation at a time per user.
func (s *Session) Acquire() {
	s.busy.Lock()
}

func (s *Session) Release() {
	s.busy.Unlock()
}

// Info is the introspection view of a session.
type Info struct {
	UserId       string    `json:"userId"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
	// Age is in milliseconds.
	Age     int64 `json:"age"`
	IsValid bool  `json:"isValid"`
	Expired bool  `json:"expired"`
}

type Stats struct {
	Total   int `json:"total"`
	Active  int `json:"active"`
	Expired int `json:"expired"`
}

// CreateResult is the tagged outcome of CreateSession, failures are values
// rather than errors so callers can serialize them directly.
type CreateResult struct {
	Success   bool
	SessionId string
	Kind      apperr.Kind
	Message   string
	Err       error
}

// AsError converts a failed result into an *apperr.Error, nil on success.
func (r CreateResult) AsError() error {
	if r.Success {
		return nil
	}
	return &apperr.Error{Kind: r.Kind, Message: r.Message, Err: r.Err}
}

// CredentialFailure reports whether the portal rejected the credentials.
func (r CreateResult) CredentialFailure() bool {
	return !r.Success && r.Kind == apperr.KindAuth
}
