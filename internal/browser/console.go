package browser

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"github.com/MikeSquared-Agency/scribe/internal/config"
	"github.com/MikeSquared-Agency/scribe/internal/extract"
	"github.com/MikeSquared-Agency/scribe/internal/harvest"
)

// Timing holds the waits the console's UI transitions need.
type Timing struct {
	ElementWait   time.Duration // waiting for a control to appear
	PanelWait     time.Duration // waiting for the message list of a panel
	ExpandWait    time.Duration // waiting for the full-history control
	InputSettle   time.Duration // after confirming the start date
	FilterSettle  time.Duration // after confirming the end date
	ResultsSettle time.Duration // after searching
	CloseSettle   time.Duration // after closing a panel
	PageSettle    time.Duration // after turning a page
}

// DefaultTiming returns the waits observed to work against the live console.
func DefaultTiming() Timing {
	return Timing{
		ElementWait:   10 * time.Second,
		PanelWait:     3 * time.Second,
		ExpandWait:    2 * time.Second,
		InputSettle:   300 * time.Millisecond,
		FilterSettle:  500 * time.Millisecond,
		ResultsSettle: 2 * time.Second,
		CloseSettle:   500 * time.Millisecond,
		PageSettle:    2 * time.Second,
	}
}

// Console drives the history table of the seller console.
type Console struct {
	page   *rod.Page
	sel    config.Selectors
	timing Timing
	logger *slog.Logger
}

var _ harvest.Console = (*Console)(nil)

func NewConsole(page *rod.Page, sel config.Selectors, timing Timing, logger *slog.Logger) *Console {
	return &Console{page: page, sel: sel, timing: timing, logger: logger}
}

// SetDate sets both ends of the date range to date and searches. Leaving the
// end date untouched would keep the previous day's range.
func (c *Console) SetDate(ctx context.Context, date string) error {
	p := c.page.Context(ctx)

	start, err := c.waitElement(ctx, c.sel.StartDateInput)
	if err != nil {
		return fmt.Errorf("start date input: %w", err)
	}
	if err := fillDate(start, date); err != nil {
		return fmt.Errorf("fill start date: %w", err)
	}
	if err := sleep(ctx, c.timing.InputSettle); err != nil {
		return err
	}

	has, end, err := p.Has(c.sel.EndDateInput)
	if err != nil {
		return fmt.Errorf("end date input: %w", err)
	}
	if has && visible(end) {
		if err := fillDate(end, date); err != nil {
			return fmt.Errorf("fill end date: %w", err)
		}
	} else if err := start.Type(input.Enter); err != nil {
		return fmt.Errorf("close date range: %w", err)
	}
	if err := sleep(ctx, c.timing.FilterSettle); err != nil {
		return err
	}

	search, err := c.waitElementText(ctx, "button", c.sel.SearchButton)
	if err != nil {
		return fmt.Errorf("search button: %w", err)
	}
	if err := search.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click search: %w", err)
	}
	return sleep(ctx, c.timing.ResultsSettle)
}

func (c *Console) RowCount(ctx context.Context) (int, error) {
	rows, err := c.rows(ctx)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// OpenRow re-locates the rows on every call since the table re-renders after
// each panel.
func (c *Console) OpenRow(ctx context.Context, i int) (string, error) {
	rows, err := c.rows(ctx)
	if err != nil {
		return "", err
	}
	if i >= len(rows) {
		return "", harvest.ErrRowMissing
	}
	row := rows[i]

	text, err := row.Text()
	if err != nil {
		return "", fmt.Errorf("row text: %w", err)
	}

	wctx, cancel := context.WithTimeout(ctx, c.timing.ElementWait)
	defer cancel()
	link, err := row.Context(wctx).ElementR("a", regexp.QuoteMeta(c.sel.ViewLinkText))
	if err != nil {
		return "", fmt.Errorf("view link: %w", err)
	}
	if err := link.Context(ctx).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return "", fmt.Errorf("click view link: %w", err)
	}
	return text, nil
}

func (c *Console) Panel(ctx context.Context) (extract.Container, error) {
	wctx, cancel := context.WithTimeout(ctx, c.timing.PanelWait)
	defer cancel()
	el, err := c.page.Context(wctx).Element(c.sel.MessageContainer)
	if err != nil {
		return nil, fmt.Errorf("message container %s: %w", c.sel.MessageContainer, err)
	}
	return &panel{console: c, el: el.Context(ctx)}, nil
}

// ClosePanel clicks the first visible close control, or presses Escape.
func (c *Console) ClosePanel(ctx context.Context) error {
	p := c.page.Context(ctx)
	closed := false
	for _, selector := range c.sel.CloseButtons {
		has, btn, err := p.Has(selector)
		if err != nil || !has || !visible(btn) {
			continue
		}
		if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return fmt.Errorf("click close: %w", err)
		}
		closed = true
		break
	}
	if !closed {
		if err := c.Escape(ctx); err != nil {
			return err
		}
	}
	return sleep(ctx, c.timing.CloseSettle)
}

// Escape dispatches the key events directly on the context-bound page:
// page.Keyboard stays bound to the page it was created with and would
// ignore ctx.
func (c *Console) Escape(ctx context.Context) error {
	p := c.page.Context(ctx)
	for _, ev := range escapeKeyEvents() {
		if err := ev.Call(p); err != nil {
			return fmt.Errorf("press escape: %w", err)
		}
	}
	return nil
}

func escapeKeyEvents() []proto.InputDispatchKeyEvent {
	down := proto.InputDispatchKeyEvent{
		Type:                  proto.InputDispatchKeyEventTypeKeyDown,
		Key:                   "Escape",
		Code:                  "Escape",
		WindowsVirtualKeyCode: 27,
	}
	up := down
	up.Type = proto.InputDispatchKeyEventTypeKeyUp
	return []proto.InputDispatchKeyEvent{down, up}
}

// NextPage clicks the next-page control unless it is missing, hidden or
// disabled.
func (c *Console) NextPage(ctx context.Context) (bool, error) {
	has, btn, err := c.page.Context(ctx).Has(c.sel.NextPageButton)
	if err != nil {
		return false, fmt.Errorf("next page button: %w", err)
	}
	if !has || !visible(btn) {
		return false, nil
	}

	res, err := btn.Eval(`function (classes) {
		if (this.hasAttribute('disabled') || this.getAttribute('aria-disabled') === 'true') return true;
		return classes.some((c) => this.classList.contains(c));
	}`, c.sel.DisabledClasses)
	if err != nil {
		return false, fmt.Errorf("next page state: %w", err)
	}
	if res.Value.Bool() {
		return false, nil
	}

	if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return false, fmt.Errorf("click next page: %w", err)
	}
	return true, sleep(ctx, c.timing.PageSettle)
}

// rows returns the table rows that carry a view-conversation link.
func (c *Console) rows(ctx context.Context) ([]*rod.Element, error) {
	all, err := c.page.Context(ctx).Elements(c.sel.TableRow)
	if err != nil {
		return nil, fmt.Errorf("list rows: %w", err)
	}
	var rows []*rod.Element
	for _, el := range all {
		text, err := el.Text()
		if err != nil {
			continue
		}
		if strings.Contains(text, c.sel.ViewLinkText) {
			rows = append(rows, el)
		}
	}
	return rows, nil
}

func (c *Console) waitElement(ctx context.Context, selector string) (*rod.Element, error) {
	wctx, cancel := context.WithTimeout(ctx, c.timing.ElementWait)
	defer cancel()
	el, err := c.page.Context(wctx).Element(selector)
	if err != nil {
		return nil, err
	}
	return el.Context(ctx), nil
}

func (c *Console) waitElementText(ctx context.Context, selector, text string) (*rod.Element, error) {
	wctx, cancel := context.WithTimeout(ctx, c.timing.ElementWait)
	defer cancel()
	el, err := c.page.Context(wctx).ElementR(selector, regexp.QuoteMeta(text))
	if err != nil {
		return nil, err
	}
	return el.Context(ctx), nil
}

func fillDate(el *rod.Element, date string) error {
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		return err
	}
	if err := el.Input(date); err != nil {
		return err
	}
	return el.Type(input.Enter)
}

func visible(el *rod.Element) bool {
	ok, err := el.Visible()
	return err == nil && ok
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
