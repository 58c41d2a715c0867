// Package browser adapts a Playwright-driven Chromium to the portal and
// announce packages: it signs in to the schedule portal, caches the session
// and exposes the rendered schedule as a portal.Surface.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/example/class-booker/internal/portal"
	"github.com/example/class-booker/internal/wait"
)

const (
	loginLabel         = "כניסה"
	passwordLoginLabel = "כניסה עם שם משתמש וסיסמה"
)

// Options configures the portal session provider.
type Options struct {
	PortalURL   string
	NavLinks    []string
	FrameHost   string
	Email       string
	Password    string
	SessionPath string
	Headless    bool
	// RenderDelay is waited after navigation for the schedule frame to render.
	RenderDelay time.Duration
	// LoginTimeout bounds how long the login affordance may take to disappear.
	LoginTimeout time.Duration
	// ActionTimeout is Playwright's default timeout for every action.
	ActionTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.RenderDelay <= 0 {
		o.RenderDelay = 3 * time.Second
	}
	if o.LoginTimeout <= 0 {
		o.LoginTimeout = 15 * time.Second
	}
	if o.ActionTimeout <= 0 {
		o.ActionTimeout = 10 * time.Second
	}
	return o
}

// Provider opens authenticated portal views in a fresh headless Chromium.
type Provider struct {
	opts   Options
	logger *slog.Logger
}

var _ portal.Provider = (*Provider)(nil)

// NewProvider constructs a provider using the default logger.
func NewProvider(opts Options) *Provider {
	return NewProviderWithLogger(opts, nil)
}

// NewProviderWithLogger constructs a provider.
func NewProviderWithLogger(opts Options, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{opts: opts.withDefaults(), logger: logger.With("component", "browser")}
}

// Acquire implements portal.Provider. A cached session is reused when the
// schedule opens without the login affordance; otherwise the provider signs
// in and writes a new cache.
func (p *Provider) Acquire(ctx context.Context) (_ portal.Session, err error) {
	rt, err := launch(p.opts.Headless)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			rt.close()
		}
	}()

	page, reused, err := p.cachedPage(ctx, rt)
	if err != nil {
		return nil, err
	}
	if page == nil {
		if page, err = p.login(ctx, rt); err != nil {
			return nil, err
		}
	}
	if err := wait.Sleep(ctx, p.opts.RenderDelay); err != nil {
		return nil, err
	}
	p.logger.InfoContext(ctx, "portal view ready", "cached_session", reused)
	return &session{runtime: rt, page: page, surface: NewSurface(page, p.opts.FrameHost), path: p.opts.SessionPath, logger: p.logger}, nil
}

func (p *Provider) newContext(rt *runtime, withCache bool) (playwright.BrowserContext, error) {
	options := playwright.BrowserNewContextOptions{Viewport: &playwright.Size{Width: 1440, Height: 900}}
	if withCache {
		options.StorageStatePath = playwright.String(p.opts.SessionPath)
	}
	bctx, err := rt.browser.NewContext(options)
	if err != nil {
		return nil, fmt.Errorf("open browser context: %w", err)
	}
	bctx.SetDefaultTimeout(float64(p.opts.ActionTimeout.Milliseconds()))
	rt.context = bctx
	return bctx, nil
}

// cachedPage returns a page on the schedule if the session cache is still
// signed in, or nil when a fresh login is needed.
func (p *Provider) cachedPage(ctx context.Context, rt *runtime) (playwright.Page, bool, error) {
	if p.opts.SessionPath == "" {
		return nil, false, nil
	}
	if _, err := os.Stat(p.opts.SessionPath); err != nil {
		return nil, false, nil
	}
	bctx, err := p.newContext(rt, true)
	if err != nil {
		return nil, false, err
	}
	page, err := bctx.NewPage()
	if err != nil {
		return nil, false, fmt.Errorf("open page: %w", err)
	}
	if p.signedIn(ctx, page) {
		return page, true, nil
	}
	p.logger.InfoContext(ctx, "cached session expired; signing in again", "session_path", p.opts.SessionPath)
	if err := bctx.Close(); err != nil {
		p.logger.WarnContext(ctx, "failed to close stale context", "error", err)
	}
	rt.context = nil
	return nil, false, nil
}

// signedIn navigates to the schedule and reports whether the login affordance is absent.
func (p *Provider) signedIn(ctx context.Context, page playwright.Page) bool {
	if err := p.navigate(ctx, page); err != nil {
		p.logger.WarnContext(ctx, "schedule navigation failed during session check", "error", err)
		return false
	}
	if err := wait.Sleep(ctx, p.opts.RenderDelay); err != nil {
		return false
	}
	frame := scheduleScope(page, p.opts.FrameHost)
	if _, resolved := frame.(frameScope); !resolved {
		return false
	}
	visible, err := frame.Role("button", loginLabel, false).First().IsVisible()
	return err == nil && !visible
}

func (p *Provider) login(ctx context.Context, rt *runtime) (playwright.Page, error) {
	if p.opts.Email == "" || p.opts.Password == "" {
		return nil, fmt.Errorf("%w: portal credentials are not configured", portal.ErrSessionInvalid)
	}
	p.logger.InfoContext(ctx, "signing in to portal")
	bctx, err := p.newContext(rt, false)
	if err != nil {
		return nil, err
	}
	page, err := bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	if err := p.navigate(ctx, page); err != nil {
		return nil, err
	}

	frame := iframeScope{frame: page.FrameLocator("iframe").First()}
	email := frame.Locator(`input[type="email"]`)
	steps := []struct {
		name string
		run  func() error
	}{
		{"open login", func() error { return frame.Role("button", loginLabel, false).First().DispatchEvent("click", nil) }},
		{"choose password login", func() error { return frame.Role("button", passwordLoginLabel, false).DispatchEvent("click", nil) }},
		{"focus email", func() error { return email.DispatchEvent("click", nil) }},
		{"fill email", func() error { return email.Fill(p.opts.Email) }},
		{"leave email", func() error { return email.Press("Tab") }},
		{"fill password", func() error { return frame.Locator(`input[type="password"]`).Fill(p.opts.Password) }},
		{"submit", func() error {
			return frame.Role("dialog", "", false).GetByRole("button", playwright.LocatorGetByRoleOptions{
				Name: loginLabel, Exact: playwright.Bool(true),
			}).DispatchEvent("click", nil)
		}},
		{"await login", func() error {
			return frame.Role("button", loginLabel, false).First().WaitFor(playwright.LocatorWaitForOptions{
				State:   playwright.WaitForSelectorStateHidden,
				Timeout: playwright.Float(float64(p.opts.LoginTimeout.Milliseconds())),
			})
		}},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := step.run(); err != nil {
			if step.name == "await login" {
				return nil, fmt.Errorf("%w: login did not complete: %w", portal.ErrTimedOut, err)
			}
			return nil, fmt.Errorf("%w: login %s: %w", portal.ErrSessionInvalid, step.name, err)
		}
	}

	if _, err := bctx.StorageState(p.opts.SessionPath); err != nil {
		p.logger.WarnContext(ctx, "failed to write session cache", "session_path", p.opts.SessionPath, "error", err)
	} else {
		p.logger.InfoContext(ctx, "portal session cached", "session_path", p.opts.SessionPath)
	}
	return page, nil
}

// navigate opens the portal and follows the configured links to the schedule.
func (p *Provider) navigate(ctx context.Context, page playwright.Page) error {
	if _, err := page.Goto(p.opts.PortalURL, playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateLoad}); err != nil {
		return fmt.Errorf("open portal %s: %w", p.opts.PortalURL, err)
	}
	for i, name := range p.opts.NavLinks {
		if err := ctx.Err(); err != nil {
			return err
		}
		link := page.GetByRole("link", playwright.PageGetByRoleOptions{Name: name})
		if i == 0 {
			link = page.GetByRole("navigation").GetByRole("link", playwright.LocatorGetByRoleOptions{Name: name})
		}
		if err := link.First().Click(); err != nil {
			return fmt.Errorf("follow link %q: %w", name, err)
		}
		if err := page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{State: playwright.LoadStateLoad}); err != nil {
			return fmt.Errorf("load after %q: %w", name, err)
		}
	}
	return nil
}

type session struct {
	runtime *runtime
	page    playwright.Page
	surface *Surface
	path    string
	logger  *slog.Logger
}

func (s *session) Surface() portal.Surface {
	return s.surface
}

// Release writes the session cache and closes the browser.
func (s *session) Release(ctx context.Context) error {
	if s.path != "" && s.runtime.context != nil {
		if _, err := s.runtime.context.StorageState(s.path); err != nil {
			s.logger.WarnContext(ctx, "failed to write session cache", "session_path", s.path, "error", err)
		}
	}
	return s.runtime.close()
}

// runtime owns one Playwright driver, browser and optional context.
type runtime struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
}

func launch(headless bool) (*runtime, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{Headless: playwright.Bool(headless)})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	return &runtime{pw: pw, browser: browser}, nil
}

func (r *runtime) close() error {
	var errs []error
	if err := r.browser.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close browser: %w", err))
	}
	if err := r.pw.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop playwright: %w", err))
	}
	return errors.Join(errs...)
}
