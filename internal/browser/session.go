package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/MikeSquared-Agency/scribe/internal/config"
)

// ErrCredentialInvalid means the console did not show its logged-in view:
// the saved login has expired or the page is unreachable.
var ErrCredentialInvalid = errors.New("credential invalid")

// Options configures the browser session.
type Options struct {
	URL        string
	AuthFile   string
	Bin        string // browser binary; empty lets the launcher pick one
	Headless   bool
	NavTimeout time.Duration
}

const (
	loginMarkerWait = 5 * time.Second
	popupWait       = 10 * time.Second
	popupHideWait   = 5 * time.Second
)

// Session owns the browser and the console page.
type Session struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	sel      config.Selectors
	logger   *slog.Logger
}

// Open launches a browser with the saved login, opens the console and checks
// that it is logged in. Popups covering the console are dismissed.
func Open(ctx context.Context, opts Options, sel config.Selectors, logger *slog.Logger) (*Session, error) {
	state, err := LoadStorageState(opts.AuthFile)
	if err != nil {
		return nil, err
	}
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = 30 * time.Second
	}

	l := launcher.New().Headless(opts.Headless)
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	s := &Session{launcher: l, browser: b, sel: sel, logger: logger}

	if err := b.SetCookies(state.CookieParams()); err != nil {
		s.Close()
		return nil, fmt.Errorf("set cookies: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}
	s.page = page

	logger.Info("opening console", "url", opts.URL, "cookies", len(state.Cookies))
	s.navigate(ctx, opts.URL, opts.NavTimeout)

	if s.restoreLocalStorage(ctx, opts.URL, state) {
		s.navigate(ctx, opts.URL, opts.NavTimeout)
	}

	if err := s.verifyLogin(ctx); err != nil {
		s.Close()
		return nil, err
	}
	logger.Info("login verified")

	s.dismissPopup(ctx)
	return s, nil
}

// Page returns the console page.
func (s *Session) Page() *rod.Page {
	return s.page
}

// Close shuts the browser down.
func (s *Session) Close() error {
	var err error
	if s.browser != nil {
		err = s.browser.Close()
	}
	if s.launcher != nil {
		s.launcher.Kill()
	}
	return err
}

// navigate retries transport failures. A slow load is not fatal: the login
// check decides whether the page is usable.
func (s *Session) navigate(ctx context.Context, target string, timeout time.Duration) {
	op := func() error {
		tctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		p := s.page.Context(tctx)
		if err := p.Navigate(target); err != nil {
			return err
		}
		return p.WaitLoad()
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	notify := func(err error, next time.Duration) {
		s.logger.Warn("navigation failed, retrying", "error", err, "retry_in", next)
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		s.logger.Warn("page load incomplete, continuing", "error", err)
	}
}

// restoreLocalStorage writes the saved entries for the console's origin and
// reports whether any were written.
func (s *Session) restoreLocalStorage(ctx context.Context, target string, state *StorageState) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	entries := state.LocalStorageFor(u.Scheme + "://" + u.Host)
	if len(entries) == 0 {
		return false
	}
	p := s.page.Context(ctx)
	for _, e := range entries {
		if _, err := p.Eval(`(k, v) => localStorage.setItem(k, v)`, e.Name, e.Value); err != nil {
			s.logger.Warn("failed to restore localStorage entry", "key", e.Name, "error", err)
		}
	}
	return true
}

func (s *Session) verifyLogin(ctx context.Context) error {
	tctx, cancel := context.WithTimeout(ctx, loginMarkerWait)
	defer cancel()

	marker := regexp.QuoteMeta(s.sel.LoginMarkerText)
	if _, err := s.page.Context(tctx).ElementR("body *", marker); err != nil {
		return fmt.Errorf("%w: %q not shown within %s", ErrCredentialInvalid, s.sel.LoginMarkerText, loginMarkerWait)
	}
	return nil
}

// dismissPopup waits for a blocking popup and clicks it away. No popup within
// the wait is the normal case.
func (s *Session) dismissPopup(ctx context.Context) {
	if len(s.sel.PopupButtonTexts) == 0 {
		return
	}
	quoted := make([]string, len(s.sel.PopupButtonTexts))
	for i, t := range s.sel.PopupButtonTexts {
		quoted[i] = regexp.QuoteMeta(t)
	}
	pattern := `^\s*(` + strings.Join(quoted, "|") + `)\s*$`

	s.logger.Info("waiting for popup", "timeout", popupWait)
	wctx, cancel := context.WithTimeout(ctx, popupWait)
	btn, err := s.page.Context(wctx).ElementR("button", pattern)
	cancel()
	if err != nil {
		s.logger.Info("no popup shown")
		return
	}
	btn = btn.Context(ctx)

	if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		s.logger.Warn("failed to click popup button", "error", err)
		return
	}
	hctx, cancel := context.WithTimeout(ctx, popupHideWait)
	defer cancel()
	if err := btn.Context(hctx).WaitInvisible(); err != nil {
		s.logger.Warn("popup still visible", "error", err)
		return
	}
	s.logger.Info("popup dismissed")
}
