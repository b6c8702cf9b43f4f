package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"guapassist-backend/internal/apperr"

	"github.com/PuerkitoBio/goquery"
)

// Page is the narrow surface of a browser tab that scrapers depend on.
//
// Every method returns *apperr.Error of KindTransient when the browser is
// unreachable, the call timed out or the page was closed underneath it.
//
// note: fault injection point
type Page interface {
	// Navigate loads url and waits for the document to be ready.
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	URL(ctx context.Context) (string, error)
	// HTML returns the serialized DOM of the current document.
	HTML(ctx context.Context) (string, error)
	// Type types text into the element matching selector.
	Type(ctx context.Context, selector, text string) error
	// Click clicks the first element matching selector.
	Click(ctx context.Context, selector string) error
	// Ping checks that the document is still reachable.
	Ping(ctx context.Context) error
	Closed() bool
	Close() error
}

// Launcher starts an isolated browser and returns its only page.
type Launcher interface {
	Launch(ctx context.Context) (Page, error)
}

var ErrNoElement = errors.New("no element matches selector")

const pollInterval = 200 * time.Millisecond

// Snapshot is a parsed copy of the page at one point in time.
type Snapshot struct {
	URL string
	Doc *goquery.Document
}

// Base returns the parsed snapshot URL for resolving relative links.
func (s Snapshot) Base() *url.URL {
	parsed, err := url.Parse(s.URL)
	if err != nil {
		return nil
	}
	return parsed
}

// Has reports whether the snapshot contains an element matching selector.
func (s Snapshot) Has(selector string) bool {
	return s.Doc != nil && s.Doc.Find(selector).Length() > 0
}

func (s Snapshot) BodyText() string {
	if s.Doc == nil {
		return ""
	}
	return s.Doc.Find("body").Text()
}

func TakeSnapshot(ctx context.Context, page Page) (Snapshot, error) {
	current, err := page.URL(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	content, err := page.HTML(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return Snapshot{}, apperr.Structural("", fmt.Errorf("parse page html: %w", err))
	}
	return Snapshot{URL: current, Doc: doc}, nil
}

// WaitFor polls the page until ready returns true or timeout elapses. Snapshot
// failures while the page is alive are treated as "not ready yet", a closed page
// aborts the wait immediately.
func WaitFor(ctx context.Context, page Page, timeout time.Duration, ready func(Snapshot) bool) (Snapshot, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var last Snapshot
	var lastErr error
	for {
		snapshot, err := TakeSnapshot(ctx, page)
		if err == nil {
			last = snapshot
			if ready(snapshot) {
				return snapshot, nil
			}
		} else {
			lastErr = err
			if page.Closed() || errors.Is(err, apperr.ErrDetached) {
				return last, err
			}
		}

		select {
		case <-ctx.Done():
			return last, apperr.Transient("", ctx.Err())
		case <-deadline.C:
			cause := fmt.Errorf("%w: condition not met after %s", apperr.ErrTimeout, timeout)
			if lastErr != nil {
				cause = fmt.Errorf("%w: %w", cause, lastErr)
			}
			return last, apperr.Transient("", cause)
		case <-ticker.C:
		}
	}
}

// Sleep pauses for d unless ctx is cancelled first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
