// Package guaptest fakes the portal and its identity provider on top of
// browsertest pages.
package guaptest

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"guapassist-backend/internal/apperr"
	"guapassist-backend/internal/browser/browsertest"
	"guapassist-backend/internal/scrapers/guap"
)

const (
	BaseURL  = "https://pro.guap.ru"
	LoginURL = "https://sso.guap.ru/realms/master/protocol/openid-connect/auth?client_id=prosuai&redirect_uri=https%3A%2F%2Fpro.guap.ru%2Foauth%2Fcallback"

	// RejectionText is shown by the login form for wrong credentials.
	RejectionText = "Неверное имя пользователя или пароль."
)

func URLs() guap.URLs {
	return guap.URLs{Base: BaseURL, Login: LoginURL}
}

// Portal is a browsertest.Handler serving a login flow and fixture pages.
// Login state is tracked per page, like cookies of separate browsers.
type Portal struct {
	mutex    sync.Mutex
	users    map[string]string
	loggedIn map[*browsertest.Page]bool
	attempts int

	pages     map[string]string
	paginated map[string][]string
}

func NewPortal() *Portal {
	return &Portal{
		users:     map[string]string{},
		loggedIn:  map[*browsertest.Page]bool{},
		pages:     map[string]string{},
		paginated: map[string][]string{},
	}
}

// AddUser registers credentials the login form accepts.
func (p *Portal) AddUser(username, password string) *Portal {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.users[username] = password
	return p
}

// Serve makes path (relative to BaseURL) render html for logged in pages.
func (p *Portal) Serve(path, html string) *Portal {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.pages[BaseURL+path] = html
	return p
}

// ServePaginated makes path render pages[0], pagination links choose the
// next index through their data-page attribute.
func (p *Portal) ServePaginated(path string, pages ...string) *Portal {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.paginated[BaseURL+path] = pages
	return p
}

// LoginAttempts counts submissions of the login form.
func (p *Portal) LoginAttempts() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.attempts
}

// Expire logs every page out, as if the portal dropped its sessions.
func (p *Portal) Expire() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.loggedIn = map[*browsertest.Page]bool{}
}

func (p *Portal) isLoggedIn(page *browsertest.Page) bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.loggedIn[page]
}

func (p *Portal) Navigate(page *browsertest.Page, target string) error {
	parsed, err := url.Parse(target)
	if err != nil {
		return apperr.Transient("", fmt.Errorf("%w: %s", apperr.ErrNavigation, err))
	}

	switch parsed.Hostname() {
	case "sso.guap.ru":
		if p.isLoggedIn(page) {
			page.Load(BaseURL+"/", Dashboard())
			return nil
		}
		page.Load(LoginURL, LoginForm(""))
		return nil
	case "pro.guap.ru":
	default:
		return apperr.Transient("", fmt.Errorf("%w: unknown host %s", apperr.ErrNavigation, parsed.Hostname()))
	}

	if !p.isLoggedIn(page) {
		page.Load(LoginURL, LoginForm(""))
		return nil
	}

	p.mutex.Lock()
	sequence, paginated := p.paginated[target]
	html, ok := p.pages[target]
	p.mutex.Unlock()

	switch {
	case paginated && len(sequence) > 0:
		page.Load(target, sequence[0])
	case ok:
		page.Load(target, html)
	case parsed.Path == "/" || parsed.Path == "/inside/profile":
		page.Load(target, Dashboard())
	default:
		page.Load(target, NotFound())
	}
	return nil
}

func (p *Portal) Click(page *browsertest.Page, selector string) error {
	doc := page.Document()
	current, _ := url.Parse(page.CurrentURL())

	if current != nil && current.Hostname() == "sso.guap.ru" && selector == `input[type="submit"]` {
		p.submitLogin(page)
		return nil
	}

	target := doc.Find(selector).First()
	index, ok := target.Attr("data-page")
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(index)
	if err != nil {
		return err
	}

	key := page.CurrentURL()
	p.mutex.Lock()
	sequence := p.paginated[key]
	p.mutex.Unlock()
	if n < 0 || n >= len(sequence) {
		return fmt.Errorf("no page %d for %s", n, key)
	}
	page.Load(key, sequence[n])
	return nil
}

func (p *Portal) submitLogin(page *browsertest.Page) {
	username := strings.TrimSpace(page.Field("#username"))
	password := page.Field("#password-input")

	p.mutex.Lock()
	p.attempts++
	expected, known := p.users[username]
	accepted := known && expected == password
	if accepted {
		p.loggedIn[page] = true
	}
	p.mutex.Unlock()

	if accepted {
		page.Load(BaseURL+"/", Dashboard())
		return
	}
	page.Load(LoginURL, LoginForm(RejectionText))
}
