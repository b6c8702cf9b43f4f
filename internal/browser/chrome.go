package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"guapassist-backend/internal/apperr"
	"guapassist-backend/internal/components/telemetry"

	"github.com/chromedp/chromedp"
	"golang.org/x/time/rate"
)

const (
	report_chrome_launch = "chrome.launch"
	report_chrome_close  = "chrome.close"
)

type ChromeOptions struct {
	Headless  bool
	NoSandbox bool
	// ExecPath overrides the chrome binary, empty means autodetect.
	ExecPath  string
	UserAgent string
	// NavigationsPerSecond paces Navigate on every page, 0 disables pacing.
	NavigationsPerSecond float64
}

// ChromeLauncher starts one chrome process per Launch through chromedp.
type ChromeLauncher struct {
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	options     ChromeOptions
	tel         telemetry.API
}

func NewChromeLauncher(options ChromeOptions, tel telemetry.API) *ChromeLauncher {
	allocOptions := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", options.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", options.NoSandbox),
		chromedp.WindowSize(1920, 1080),
	)
	if options.ExecPath != "" {
		allocOptions = append(allocOptions, chromedp.ExecPath(options.ExecPath))
	}
	if options.UserAgent != "" {
		allocOptions = append(allocOptions, chromedp.UserAgent(options.UserAgent))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), allocOptions...)
	return &ChromeLauncher{
		allocCtx:    allocCtx,
		cancelAlloc: cancel,
		options:     options,
		tel:         telemetry.NewScopedAPI("browser", tel),
	}
}

func (l *ChromeLauncher) Launch(ctx context.Context) (Page, error) {
	browserCtx, cancel := chromedp.NewContext(l.allocCtx)

	// the first Run allocates the browser, cancelling its context would kill
	// the process, so it is not bound to ctx directly.
	started := make(chan error, 1)
	go func() {
		started <- chromedp.Run(browserCtx)
	}()

	select {
	case err := <-started:
		if err != nil {
			cancel()
			l.tel.ReportBroken(report_chrome_launch, err)
			return nil, apperr.Transient("", fmt.Errorf("launch chrome: %w", err))
		}
	case <-ctx.Done():
		cancel()
		return nil, apperr.Transient("", fmt.Errorf("launch chrome: %w", ctx.Err()))
	}

	page := &chromePage{
		ctx:    browserCtx,
		cancel: cancel,
		tel:    l.tel,
	}
	if l.options.NavigationsPerSecond > 0 {
		page.limiter = rate.NewLimiter(rate.Limit(l.options.NavigationsPerSecond), 1)
	}
	return page, nil
}

// Close shuts down every browser started by the launcher.
func (l *ChromeLauncher) Close() {
	l.cancelAlloc()
}

type chromePage struct {
	ctx     context.Context
	cancel  context.CancelFunc
	limiter *rate.Limiter
	closed  atomic.Bool
	tel     telemetry.API
}

func (p *chromePage) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if p.Closed() {
		return apperr.Transient("", apperr.ErrDetached)
	}

	runCtx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err == nil {
		return nil
	}
	if p.ctx.Err() != nil {
		p.closed.Store(true)
		return apperr.Transient("", fmt.Errorf("%w: %w", apperr.ErrDetached, err))
	}
	if ctx.Err() != nil {
		return apperr.Transient("", ctx.Err())
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return apperr.Transient("", fmt.Errorf("%w: %w", apperr.ErrTimeout, err))
	}
	return apperr.Transient("", fmt.Errorf("%w: %w", apperr.ErrNavigation, err))
}

func (p *chromePage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return apperr.Transient("", err)
		}
	}
	return p.run(
		ctx, timeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (p *chromePage) URL(ctx context.Context) (string, error) {
	var location string
	err := p.run(ctx, 5*time.Second, chromedp.Location(&location))
	return location, err
}

func (p *chromePage) HTML(ctx context.Context) (string, error) {
	var content string
	err := p.run(ctx, 10*time.Second, chromedp.OuterHTML("html", &content, chromedp.ByQuery))
	return content, err
}

func (p *chromePage) Type(ctx context.Context, selector, text string) error {
	return p.run(
		ctx, 10*time.Second,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
}

func (p *chromePage) Click(ctx context.Context, selector string) error {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return err
	}
	expr := fmt.Sprintf(
		`(() => { const el = document.querySelector(%s); if (!el) { return false; } el.click(); return true; })()`,
		quoted,
	)

	var clicked bool
	err = p.run(ctx, 10*time.Second, chromedp.Evaluate(expr, &clicked))
	if err != nil {
		return err
	}
	if !clicked {
		return apperr.Structural("", fmt.Errorf("%w: %s", ErrNoElement, selector))
	}
	return nil
}

func (p *chromePage) Ping(ctx context.Context) error {
	var state string
	return p.run(ctx, 5*time.Second, chromedp.Evaluate(`document.readyState`, &state))
}

func (p *chromePage) Closed() bool {
	return p.closed.Load() || p.ctx.Err() != nil
}

func (p *chromePage) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	defer p.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Cancel(p.ctx)
	}()
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			p.tel.ReportWarning(report_chrome_close, err)
			return err
		}
	case <-ctx.Done():
		p.tel.ReportWarning(report_chrome_close, ctx.Err())
		return ctx.Err()
	}
	return nil
}
