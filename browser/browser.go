// Package browser drives a headless Chromium for menu pages that only
// render client-side. A single Session is shared across scrapers; each
// Render call borrows a tab from the page pool.
package browser

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/saratoga-data/menuharvest/config"
	"github.com/saratoga-data/menuharvest/models"
)

const maxPages = 4

// Session manages the global browser lifecycle and the page pool.
// It is safe for concurrent use.
type Session struct {
	browser  *rod.Browser
	pagePool rod.Pool[rod.Page]
	cfg      config.BrowserConfig
}

// Request describes one page render.
type Request struct {
	URL     string
	Headers map[string]string
	Cookies []*http.Cookie

	// TabSelector, when set, makes Render click every matching element
	// (menu tabs) and hand each resulting DOM state to OnTab.
	TabSelector string
	OnTab       func(label, html string) error
}

// New launches a headless browser and initialises the reusable page pool.
func New(cfg config.BrowserConfig) (*Session, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}

	// Stealth flags; restaurant ordering platforms block obvious automation.
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	return &Session{
		browser:  b,
		pagePool: rod.NewPagePool(maxPages),
		cfg:      cfg,
	}, nil
}

// Render navigates to req.URL, waits for the DOM to settle, and returns the
// rendered HTML. With a TabSelector set it instead walks the tabs and feeds
// each state to req.OnTab, returning the HTML of the last tab.
//
// The lifecycle ordering matters: stealth JS and resource blocking only take
// effect for navigations that happen after they are installed, so both are
// set up before Navigate.
func (s *Session) Render(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.NavigationTimeout)
	defer cancel()

	page, acquireErr := s.pagePool.Get(func() (*rod.Page, error) {
		return s.browser.Page(proto.TargetCreateTarget{})
	})
	if acquireErr != nil {
		return "", models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to acquire page from pool",
			acquireErr,
		)
	}

	// Park the tab on about:blank before returning it so retained DOM does
	// not pile up across sites. Uses the original page reference, without
	// the request context, so cleanup succeeds even after a timeout.
	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
		}
		s.pagePool.Put(page)
	}()

	if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
	}

	installHeaders(page, req)
	installCookies(page, req)

	router := setupHijack(page)
	defer func() { _ = router.Stop() }()

	p := page.Context(ctx)

	if navErr := p.Navigate(req.URL); navErr != nil {
		return "", categorizeError(navErr, "navigation to menu page failed")
	}
	if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"error", stableErr,
		)
	}

	if req.TabSelector != "" && req.OnTab != nil {
		return s.walkTabs(ctx, p, req)
	}

	html, htmlErr := p.HTML()
	if htmlErr != nil {
		return "", categorizeError(htmlErr, "failed to extract page HTML")
	}
	return html, nil
}

// walkTabs clicks each element matching req.TabSelector in turn, waits for
// the pane to settle, and passes the tab's label and the full DOM to OnTab.
func (s *Session) walkTabs(ctx context.Context, p *rod.Page, req Request) (string, error) {
	tabs, err := p.Elements(req.TabSelector)
	if err != nil {
		return "", categorizeError(err, "failed to locate menu tabs")
	}
	if len(tabs) == 0 {
		return "", models.NewScrapeError(
			models.ErrCodeParse,
			"no menu tabs matched "+req.TabSelector,
			nil,
		)
	}
	slog.Debug("walking menu tabs", "url", req.URL, "tabs", len(tabs))

	var lastHTML string
	for i, tab := range tabs {
		if ctx.Err() != nil {
			return "", categorizeError(ctx.Err(), "tab walk interrupted")
		}

		label, textErr := tab.Text()
		if textErr != nil {
			label = ""
		}

		if clickErr := tab.Click(proto.InputMouseButtonLeft, 1); clickErr != nil {
			slog.Warn("tab click failed, skipping",
				"url", req.URL, "tab", i, "label", label, "error", clickErr,
			)
			continue
		}
		_ = p.WaitDOMStable(300*time.Millisecond, 0.1)

		html, htmlErr := p.HTML()
		if htmlErr != nil {
			return "", categorizeError(htmlErr, "failed to extract tab HTML")
		}
		lastHTML = html

		if cbErr := req.OnTab(label, html); cbErr != nil {
			return "", cbErr
		}
	}
	return lastHTML, nil
}

// installHeaders sets extra HTTP headers for all requests from this page.
// A Google search referer is added unless the caller supplies one.
func installHeaders(page *rod.Page, req Request) {
	extra := make(map[string]string, len(req.Headers)+1)
	if _, hasReferer := req.Headers["Referer"]; !hasReferer {
		if u, parseErr := url.Parse(req.URL); parseErr == nil {
			extra["Referer"] = "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())
		}
	}
	for k, v := range req.Headers {
		extra[k] = v
	}
	if len(extra) > 0 {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(extra),
		}.Call(page)
	}
}

// installCookies sets any pre-baked cookies (e.g. Shopify session markers)
// before navigation so the first request already carries them.
func installCookies(page *rod.Page, req Request) {
	for _, cookie := range req.Cookies {
		domain := cookie.Domain
		if domain == "" {
			if u, parseErr := url.Parse(req.URL); parseErr == nil {
				domain = u.Host
			}
		}
		path := cookie.Path
		if path == "" {
			path = "/"
		}
		_, _ = proto.NetworkSetCookie{
			Name:   cookie.Name,
			Value:  cookie.Value,
			Domain: domain,
			Path:   path,
		}.Call(page)
	}
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw errors into typed ScrapeErrors so callers can
// tell timeouts from genuine navigation failures.
func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "render canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}

// Close drains the page pool and kills the browser process.
// Call this on shutdown to prevent zombie Chrome processes.
func (s *Session) Close() {
	slog.Info("browser shutting down: draining page pool")
	s.pagePool.Cleanup(func(p *rod.Page) {
		_ = p.Close()
	})
	s.browser.MustClose()
	slog.Info("browser shutdown complete")
}
