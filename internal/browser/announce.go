package browser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/playwright-community/playwright-go"
)

// AnnouncementFetcher reads the day's announcement from the studio site.
type AnnouncementFetcher struct {
	URL      string
	Link     string
	Headless bool
	Logger   *slog.Logger
}

// Fetch opens the site, follows the announcement link from the navigation bar
// to the latest entry and returns its article text.
func (f AnnouncementFetcher) Fetch(ctx context.Context) (string, error) {
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rt, err := launch(f.Headless)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := rt.close(); err != nil {
			logger.WarnContext(ctx, "failed to close browser", "error", err)
		}
	}()

	page, err := rt.browser.NewPage()
	if err != nil {
		return "", fmt.Errorf("open page: %w", err)
	}
	logger.InfoContext(ctx, "opening announcement site", "url", f.URL)
	if _, err := page.Goto(f.URL); err != nil {
		return "", fmt.Errorf("open %s: %w", f.URL, err)
	}
	if err := page.GetByRole("navigation").GetByRole("link", playwright.LocatorGetByRoleOptions{Name: f.Link}).Click(); err != nil {
		return "", fmt.Errorf("follow link %q: %w", f.Link, err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := page.Locator("main a").First().Click(); err != nil {
		return "", fmt.Errorf("open latest entry: %w", err)
	}
	if err := page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{State: playwright.LoadStateNetworkidle}); err != nil {
		return "", fmt.Errorf("wait for entry: %w", err)
	}
	text, err := page.Locator("article").First().InnerText()
	if err != nil {
		return "", fmt.Errorf("read entry: %w", err)
	}
	return text, nil
}
