// Package portal drives a headless Chromium session through the SSO entry
// point into the nested timetable application and week-by-week through the
// schedule view.
//
// Every control is located by walking an ordered selector probe list from
// the locale table; the first selector with a non-zero element count wins
// and the rest are never evaluated. A failed probe degrades silently (an
// empty week), except for the login fields and the timetable link, which
// are fatal for the run.
package portal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"mocal/internal/config"
	"mocal/internal/locale"
	appLog "mocal/internal/log"
)

const (
	// navTimeout bounds any single navigation or DOM interaction.
	navTimeout = 45 * time.Second

	// loginSettle / pageSettle / weekSettle are fixed waits after the DOM
	// reports ready; the portal keeps loading widgets well past that point.
	loginSettle = 2 * time.Second
	pageSettle  = 2 * time.Second
	weekSettle  = 1200 * time.Millisecond

	// popupWait is how long a clicked link gets to open a new tab before
	// the click is treated as same-tab navigation.
	popupWait = 5 * time.Second
)

var (
	// ErrAuthentication marks a login that could not even be attempted
	// (no credential fields on the page) or was rejected.
	ErrAuthentication = errors.New("portal: authentication failed")

	// ErrNavigation marks a run that could not reach the timetable view.
	ErrNavigation = errors.New("portal: timetable unreachable")

	errNoProbeMatch = errors.New("portal: no selector matched")
)

// Session owns one browser process and its active page for the duration of
// a run. When the timetable link opens a new tab, the new tab is adopted as
// the active page and all later operations target it.
type Session struct {
	cfg *config.Config
	loc *locale.Table

	page    context.Context // active page (replaced on popup adoption)
	cancels []context.CancelFunc
}

// Open launches the browser (headless unless cfg.Headful) and returns a
// session bound to a fresh page.
func Open(parent context.Context, cfg *config.Config, loc *locale.Table) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !cfg.Headful),
		chromedp.Flag("disable-gpu", true),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	pageCtx, pageCancel := chromedp.NewContext(allocCtx)

	// Start the browser before any navigation so a missing Chromium
	// surfaces immediately.
	if err := chromedp.Run(pageCtx); err != nil {
		pageCancel()
		allocCancel()
		return nil, fmt.Errorf("portal: starting browser: %w", err)
	}

	return &Session{
		cfg:     cfg,
		loc:     loc,
		page:    pageCtx,
		cancels: []context.CancelFunc{allocCancel, pageCancel},
	}, nil
}

// Close tears down the adopted pages and the browser process.
func (s *Session) Close() {
	for i := len(s.cancels) - 1; i >= 0; i-- {
		s.cancels[i]()
	}
}

// Login navigates to the SSO entry page, locates the credential fields by
// probing, fills them and submits. Submission clicks the first matching
// submit button, or presses Enter in the password field if none matched.
func (s *Session) Login() error {
	ctx, cancel := context.WithTimeout(s.page, navTimeout)
	defer cancel()

	appLog.Info("portal: opening sso entry",
		"url", s.cfg.SSOEntryURL,
		"user", appLog.Redact(s.cfg.SSOUser),
	)

	if err := chromedp.Run(ctx,
		chromedp.Navigate(s.cfg.SSOEntryURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("portal: sso entry unreachable: %w", err)
	}

	userSel, _, uerr := probe(ctx, s.loc.UserField)
	if uerr != nil && !errors.Is(uerr, errNoProbeMatch) {
		return uerr
	}
	passSel, _, perr := probe(ctx, s.loc.PasswordField)
	if perr != nil && !errors.Is(perr, errNoProbeMatch) {
		return perr
	}
	if uerr != nil && perr != nil {
		return fmt.Errorf("%w: no username or password field found", ErrAuthentication)
	}

	if uerr == nil {
		if err := chromedp.Run(ctx, chromedp.SendKeys(userSel, s.cfg.SSOUser, chromedp.ByQuery)); err != nil {
			return fmt.Errorf("portal: filling username: %w", err)
		}
	} else {
		appLog.Warn("portal: no username field; assuming prefilled session")
	}
	if perr == nil {
		if err := chromedp.Run(ctx, chromedp.SendKeys(passSel, s.cfg.SSOPassword, chromedp.ByQuery)); err != nil {
			return fmt.Errorf("portal: filling password: %w", err)
		}
	}

	if submitSel, xp, err := probe(ctx, s.loc.SubmitButton); err == nil {
		if err := chromedp.Run(ctx, chromedp.Click(submitSel, clickBy(xp))); err != nil {
			return fmt.Errorf("portal: submit click: %w", err)
		}
	} else if perr == nil {
		if err := chromedp.Run(ctx, chromedp.SendKeys(passSel, kb.Enter, chromedp.ByQuery)); err != nil {
			return fmt.Errorf("portal: submit via enter: %w", err)
		}
	}

	return s.quiesce(loginSettle)
}

// EnterTimetable crosses from the SSO portal into the timetable application,
// either via the configured direct URL or by clicking the first matching
// timetable link. A link that opens a new tab causes the session to adopt
// that tab as the active page.
func (s *Session) EnterTimetable() error {
	ctx, cancel := context.WithTimeout(s.page, navTimeout)
	defer cancel()

	if s.cfg.TimetableDirectURL != "" {
		if err := chromedp.Run(ctx, chromedp.Navigate(s.cfg.TimetableDirectURL)); err != nil {
			return fmt.Errorf("%w: direct url: %v", ErrNavigation, err)
		}
		return s.quiesce(pageSettle)
	}

	sel, xp, err := probe(ctx, s.loc.TimetableLink)
	if err != nil {
		if errors.Is(err, errNoProbeMatch) {
			return fmt.Errorf("%w: no timetable link found", ErrNavigation)
		}
		return err
	}

	popup := chromedp.WaitNewTarget(s.page, func(info *target.Info) bool {
		return info.Type == "page" && info.URL != "" && info.URL != "about:blank"
	})

	if err := chromedp.Run(ctx, chromedp.Click(sel, clickBy(xp))); err != nil {
		return fmt.Errorf("%w: link click: %v", ErrNavigation, err)
	}

	select {
	case id := <-popup:
		pctx, pcancel := chromedp.NewContext(s.page, chromedp.WithTargetID(id))
		s.cancels = append(s.cancels, pcancel)
		s.page = pctx
		appLog.Info("portal: timetable opened in new tab; adopted")
	case <-time.After(popupWait):
		// Same-tab navigation.
	}

	return s.quiesce(pageSettle)
}

// OpenWeekView clicks the localized school-life menu entry that hosts the
// weekly timetable widget. A miss is not fatal: the run continues and the
// week simply yields no cells.
func (s *Session) OpenWeekView() error {
	ctx, cancel := context.WithTimeout(s.page, navTimeout)
	defer cancel()

	sel, xp, err := probe(ctx, s.loc.SchoolLifeTab)
	if err != nil {
		if errors.Is(err, errNoProbeMatch) {
			appLog.Warn("portal: school-life tab not found; continuing on current view")
			return nil
		}
		return err
	}

	if err := chromedp.Run(ctx, chromedp.Click(sel, clickBy(xp))); err != nil {
		return fmt.Errorf("portal: school-life tab click: %w", err)
	}
	return s.quiesce(weekSettle)
}

// Snapshot returns the page's rendered HTML for the grid parser.
func (s *Session) Snapshot(ctx context.Context) (string, error) {
	runCtx, cancel := context.WithTimeout(s.page, navTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("portal: snapshot: %w", err)
	}
	return html, nil
}

// NextWeek clicks the first matching next-week control and reports whether a
// click happened. false without error is the normal end of the window: the
// caller stops advancing.
func (s *Session) NextWeek(ctx context.Context) (bool, error) {
	runCtx, cancel := context.WithTimeout(s.page, navTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	sel, xp, err := probe(runCtx, s.loc.NextWeek)
	if err != nil {
		if errors.Is(err, errNoProbeMatch) {
			return false, nil
		}
		return false, err
	}

	if err := chromedp.Run(runCtx, chromedp.Click(sel, clickBy(xp))); err != nil {
		return false, fmt.Errorf("portal: next-week click: %w", err)
	}
	if err := s.quiesce(weekSettle); err != nil {
		return false, err
	}
	return true, nil
}

// quiesce waits for the DOM to report ready, then a fixed settle delay for
// the portal's late-loading widgets.
func (s *Session) quiesce(settle time.Duration) error {
	ctx, cancel := context.WithTimeout(s.page, navTimeout)
	defer cancel()
	return chromedp.Run(ctx,
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(settle),
	)
}

// probe walks an ordered selector list and returns the first selector that
// matches at least one element, along with whether it is an XPath selector.
func probe(ctx context.Context, selectors []string) (string, bool, error) {
	for _, sel := range selectors {
		xp := isXPath(sel)
		by := chromedp.ByQueryAll
		if xp {
			by = chromedp.BySearch
		}
		var nodes []*cdp.Node
		if err := chromedp.Run(ctx, chromedp.Nodes(sel, &nodes, by, chromedp.AtLeast(0))); err != nil {
			return "", false, fmt.Errorf("portal: probing %q: %w", sel, err)
		}
		if len(nodes) > 0 {
			return sel, xp, nil
		}
	}
	return "", false, errNoProbeMatch
}

func isXPath(sel string) bool {
	return strings.HasPrefix(sel, "//") || strings.HasPrefix(sel, "(")
}

// clickBy picks the query option for acting on a probed selector: first
// CSS match, or XPath search.
func clickBy(xpath bool) chromedp.QueryOption {
	if xpath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}
