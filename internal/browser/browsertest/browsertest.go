// Package browsertest provides a browser.Page that replays fixture HTML, so
// scrapers can be tested without a real browser.
package browsertest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"guapassist-backend/internal/apperr"
	"guapassist-backend/internal/browser"

	"github.com/PuerkitoBio/goquery"
)

// Handler decides what the page shows after a navigation or a click. It
// calls Page.Load to change the current document.
type Handler interface {
	Navigate(page *Page, url string) error
	Click(page *Page, selector string) error
}

type Page struct {
	mutex   sync.Mutex
	handler Handler
	url     string
	html    string
	fields  map[string]string
	closed  bool
	pingErr error

	pingStalled bool

	navigations []string
	clicks      []string
}

func NewPage(handler Handler) *Page {
	return &Page{
		handler: handler,
		url:     "about:blank",
		html:    "<html><body></body></html>",
		fields:  map[string]string{},
	}
}

// Load replaces the current document and forgets typed input, handlers call it.
func (p *Page) Load(url, html string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.url = url
	p.html = html
	p.fields = map[string]string{}
}

// CurrentURL returns the url of the current document.
func (p *Page) CurrentURL() string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.url
}

// Document parses the current document.
func (p *Page) Document() *goquery.Document {
	p.mutex.Lock()
	content := p.html
	p.mutex.Unlock()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		panic(err)
	}
	return doc
}

// Field returns the text typed into selector so far.
func (p *Page) Field(selector string) string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.fields[selector]
}

// Detach makes every further call fail as if the target crashed.
func (p *Page) Detach() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.pingErr = apperr.Transient("", apperr.ErrDetached)
}

// StallPings makes Ping time out while every other call keeps working, the
// way a page busy with a long navigation behaves.
func (p *Page) StallPings(stalled bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.pingStalled = stalled
}

func (p *Page) Navigations() []string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return append([]string{}, p.navigations...)
}

func (p *Page) Clicks() []string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return append([]string{}, p.clicks...)
}

func (p *Page) check() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.closed {
		return apperr.Transient("", apperr.ErrDetached)
	}
	return p.pingErr
}

func (p *Page) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := p.check(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return apperr.Transient("", err)
	}
	p.mutex.Lock()
	p.navigations = append(p.navigations, url)
	p.mutex.Unlock()
	return p.handler.Navigate(p, url)
}

func (p *Page) URL(ctx context.Context) (string, error) {
	if err := p.check(); err != nil {
		return "", err
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.url, nil
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	if err := p.check(); err != nil {
		return "", err
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.html, nil
}

func (p *Page) Type(ctx context.Context, selector, text string) error {
	if err := p.check(); err != nil {
		return err
	}
	if p.Document().Find(selector).Length() == 0 {
		return apperr.Transient("", fmt.Errorf("%w: %s", apperr.ErrTimeout, selector))
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.fields[selector] += text
	return nil
}

func (p *Page) Click(ctx context.Context, selector string) error {
	if err := p.check(); err != nil {
		return err
	}
	if p.Document().Find(selector).Length() == 0 {
		return apperr.Structural("", fmt.Errorf("%w: %s", browser.ErrNoElement, selector))
	}
	p.mutex.Lock()
	p.clicks = append(p.clicks, selector)
	p.mutex.Unlock()
	return p.handler.Click(p, selector)
}

func (p *Page) Ping(ctx context.Context) error {
	if err := p.check(); err != nil {
		return err
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.pingStalled {
		return apperr.Transient("", fmt.Errorf("%w: ping", apperr.ErrTimeout))
	}
	return nil
}

func (p *Page) Closed() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.closed
}

func (p *Page) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.closed = true
	return nil
}

// Launcher hands out fixture pages backed by one handler.
type Launcher struct {
	mutex   sync.Mutex
	handler Handler
	pages   []*Page
	// LaunchErr makes Launch fail when set.
	LaunchErr error
}

func NewLauncher(handler Handler) *Launcher {
	return &Launcher{handler: handler}
}

func (l *Launcher) Launch(ctx context.Context) (browser.Page, error) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if l.LaunchErr != nil {
		return nil, l.LaunchErr
	}
	page := NewPage(l.handler)
	l.pages = append(l.pages, page)
	return page, nil
}

// Pages returns every page launched so far.
func (l *Launcher) Pages() []*Page {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return append([]*Page{}, l.pages...)
}

// OpenPages counts launched pages that were never closed.
func (l *Launcher) OpenPages() int {
	count := 0
	for _, page := range l.Pages() {
		if !page.Closed() {
			count++
		}
	}
	return count
}
