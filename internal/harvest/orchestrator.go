package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/scribe/internal/chat"
)

// ErrDateFilter wraps failures to apply a date filter; the date is abandoned.
var ErrDateFilter = errors.New("date filter")

// Orchestrator harvests every conversation listed for one date.
type Orchestrator struct {
	console    Console
	visitor    *Visitor
	rowTimeout time.Duration
	logger     *slog.Logger
}

// NewOrchestrator creates an orchestrator. rowTimeout bounds each row visit;
// zero means unbounded.
func NewOrchestrator(console Console, ext Extractor, rowTimeout time.Duration, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		console:    console,
		visitor:    NewVisitor(console, ext, logger),
		rowTimeout: rowTimeout,
		logger:     logger,
	}
}

// Harvest sets the date filter and walks every result page. Row faults are
// logged and skipped; only a failed date filter aborts the date.
func (o *Orchestrator) Harvest(ctx context.Context, date string) ([]chat.Conversation, error) {
	if err := o.console.SetDate(ctx, date); err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrDateFilter, date, err)
	}

	convs := []chat.Conversation{}
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return convs, err
		}

		rows, err := o.console.RowCount(ctx)
		if err != nil {
			o.logger.Warn("failed to count rows", "date", date, "page", page, "error", err)
			break
		}
		if rows == 0 {
			o.logger.Info("page has no rows", "date", date, "page", page)
			break
		}

		o.logger.Info("harvesting page", "date", date, "page", page, "rows", rows)

		for i := 0; i < rows; i++ {
			if err := ctx.Err(); err != nil {
				return convs, err
			}

			conv, err := o.visitRow(ctx, date, i)
			if err != nil {
				if errors.Is(err, ErrRowMissing) {
					continue
				}
				o.logger.Warn("row failed", "date", date, "page", page, "row", i+1, "error", err)
				_ = o.console.Escape(ctx)
				continue
			}

			convs = append(convs, conv)
			o.logger.Info("row harvested",
				"date", date,
				"page", page,
				"row", fmt.Sprintf("%d/%d", i+1, rows),
				"messages", len(conv.Messages),
			)
		}

		more, err := o.console.NextPage(ctx)
		if err != nil {
			o.logger.Warn("failed to advance page", "date", date, "page", page, "error", err)
			break
		}
		if !more {
			break
		}
	}

	return convs, nil
}

func (o *Orchestrator) visitRow(ctx context.Context, date string, i int) (chat.Conversation, error) {
	if o.rowTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.rowTimeout)
		defer cancel()
	}
	return o.visitor.Visit(ctx, date, i)
}
