package guap

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL  = "https://pro.guap.ru"
	DefaultLoginURL = "https://sso.guap.ru/realms/master/protocol/openid-connect/auth?state=8b484836b81aba3fd74d30292f4211b9&scope=profile%20email&response_type=code&approval_prompt=auto&redirect_uri=https%3A%2F%2Fpro.guap.ru%2Foauth%2Fcallback&client_id=prosuai"
)

// URLs addresses every portal page the scrapers visit.
type URLs struct {
	Base  string
	Login string
}

func DefaultURLs() URLs {
	return URLs{Base: DefaultBaseURL, Login: DefaultLoginURL}
}

func (u URLs) base() string {
	return strings.TrimRight(u.Base, "/")
}

func (u URLs) Root() string {
	return u.base() + "/"
}

func (u URLs) Profile() string {
	return u.base() + "/inside/profile"
}

func (u URLs) WeekSchedule(year, week int) string {
	return fmt.Sprintf("%s/inside/students/classes/schedule/week/%d/%d", u.base(), year, week)
}

func (u URLs) DaySchedule(date string) string {
	return fmt.Sprintf("%s/inside/students/classes/schedule/day/%s", u.base(), date)
}

func (u URLs) Tasks() string {
	return u.base() + "/inside/student/tasks/"
}

func (u URLs) Reports() string {
	return u.base() + "/inside/student/reports/"
}

func hostOf(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

// PortalHost is the host of the authenticated portal.
func (u URLs) PortalHost() string {
	return hostOf(u.Base)
}

// SsoHost is the host of the identity provider.
func (u URLs) SsoHost() string {
	return hostOf(u.Login)
}

// Timeouts bound every wait the scrapers perform.
type Timeouts struct {
	LoginForm         time.Duration
	SubmitControl     time.Duration
	SubmitNavigation  time.Duration
	Navigation        time.Duration
	ReportsNavigation time.Duration
	DomReady          time.Duration
	// PageRows bounds the wait for a new page of a paginated table.
	PageRows         time.Duration
	PaginationSettle time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		LoginForm:         15 * time.Second,
		SubmitControl:     10 * time.Second,
		SubmitNavigation:  20 * time.Second,
		Navigation:        30 * time.Second,
		ReportsNavigation: 45 * time.Second,
		DomReady:          15 * time.Second,
		PageRows:          10 * time.Second,
		PaginationSettle:  time.Second,
	}
}
