package extract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/scribe/internal/chat"
)

// Container is a scrollable, virtualized message list. Only items near the
// current scroll position are rendered; scrolling toward the top renders
// earlier ones.
type Container interface {
	VisibleItems(ctx context.Context) ([]Node, error)
	ScrollTop(ctx context.Context) (float64, error)
	SetScrollTop(ctx context.Context, offset float64) error
}

// Expander is implemented by containers that can switch to the full
// history view. ExpandHistory reports whether the control was present.
type Expander interface {
	ExpandHistory(ctx context.Context) (bool, error)
}

// Options bounds the scroll loop.
type Options struct {
	MaxCycles    int
	Step         float64
	Settle       time.Duration
	ExpandSettle time.Duration
}

// DefaultOptions returns the timings the console is known to need.
func DefaultOptions() Options {
	return Options{
		MaxCycles:    30,
		Step:         500,
		Settle:       600 * time.Millisecond,
		ExpandSettle: time.Second,
	}
}

// Stats describes how a Collect call ended.
type Stats struct {
	Cycles     int
	ReachedTop bool
	Err        error // fault that cut collection short, if any
}

// Collector rebuilds a full transcript from a virtualized list by reading the
// rendered window, scrolling up a step, and reading again until the top.
type Collector struct {
	parser *Parser
	opts   Options
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewCollector creates a collector. Zero-valued options fall back to defaults.
func NewCollector(parser *Parser, opts Options, logger *slog.Logger) *Collector {
	def := DefaultOptions()
	if opts.MaxCycles <= 0 {
		opts.MaxCycles = def.MaxCycles
	}
	if opts.Step <= 0 {
		opts.Step = def.Step
	}
	if opts.Settle <= 0 {
		opts.Settle = def.Settle
	}
	if opts.ExpandSettle <= 0 {
		opts.ExpandSettle = def.ExpandSettle
	}
	return &Collector{
		parser: parser,
		opts:   opts,
		logger: logger,
		sleep:  sleepCtx,
	}
}

// Collect returns the deduplicated, time-ordered messages of the open panel.
// A fault mid-loop keeps whatever was gathered; it is reported in Stats.Err.
func (c *Collector) Collect(ctx context.Context, ct Container) ([]chat.Message, Stats) {
	var stats Stats

	if ex, ok := ct.(Expander); ok {
		clicked, err := ex.ExpandHistory(ctx)
		if err != nil {
			c.logger.Debug("expand history skipped", "error", err)
		}
		if clicked {
			if err := c.sleep(ctx, c.opts.ExpandSettle); err != nil {
				stats.Err = err
				return []chat.Message{}, stats
			}
		}
	}

	seen := make(map[string]int)
	collected := []chat.Message{}

	stats.Err = c.scroll(ctx, ct, &stats, func(m chat.Message) {
		key := m.Key()
		if i, ok := seen[key]; ok {
			collected[i] = m
			return
		}
		seen[key] = len(collected)
		collected = append(collected, m)
	})
	if stats.Err != nil {
		c.logger.Warn("chat extraction cut short",
			"cycles", stats.Cycles,
			"collected", len(collected),
			"error", stats.Err,
		)
	}

	chat.SortMessages(collected)
	return collected, stats
}

func (c *Collector) scroll(ctx context.Context, ct Container, stats *Stats, add func(chat.Message)) error {
	for attempt := 0; attempt < c.opts.MaxCycles; attempt++ {
		stats.Cycles++

		// Items read before a fault are still kept.
		items, err := ct.VisibleItems(ctx)
		for _, item := range items {
			msg := c.parser.Parse(item)
			if msg.Content == "" {
				continue
			}
			add(msg)
		}
		if err != nil {
			return fmt.Errorf("read items: %w", err)
		}

		offset, err := ct.ScrollTop(ctx)
		if err != nil {
			return fmt.Errorf("read scroll offset: %w", err)
		}
		if offset <= 0 && attempt > 0 {
			stats.ReachedTop = true
			return nil
		}

		next := offset - c.opts.Step
		if next < 0 {
			next = 0
		}
		if err := ct.SetScrollTop(ctx, next); err != nil {
			return fmt.Errorf("scroll to %.0f: %w", next, err)
		}
		if err := c.sleep(ctx, c.opts.Settle); err != nil {
			return err
		}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
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
