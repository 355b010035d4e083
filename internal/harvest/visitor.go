package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MikeSquared-Agency/scribe/internal/chat"
	"github.com/MikeSquared-Agency/scribe/internal/extract"
)

// ErrRowMissing is returned by OpenRow when the row index no longer exists,
// e.g. because the table re-rendered with fewer rows.
var ErrRowMissing = errors.New("row missing")

// Console is the history view of the seller console.
type Console interface {
	// SetDate filters the result table to a single day and runs the search.
	SetDate(ctx context.Context, date string) error
	// RowCount returns the number of conversation rows on the current page.
	RowCount(ctx context.Context) (int, error)
	// OpenRow opens the detail panel of row i and returns the row's text.
	OpenRow(ctx context.Context, i int) (string, error)
	// Panel returns the open panel's message list.
	Panel(ctx context.Context) (extract.Container, error)
	// ClosePanel closes the detail panel.
	ClosePanel(ctx context.Context) error
	// Escape dismisses whatever overlay is open.
	Escape(ctx context.Context) error
	// NextPage advances the table. It returns false when there is no
	// enabled next page.
	NextPage(ctx context.Context) (bool, error)
}

// Extractor collects the transcript of an open panel.
type Extractor interface {
	Collect(ctx context.Context, ct extract.Container) ([]chat.Message, extract.Stats)
}

const infoMaxRunes = 30

// Visitor records one conversation row: open, collect, close.
type Visitor struct {
	console   Console
	extractor Extractor
	logger    *slog.Logger
}

func NewVisitor(console Console, ext Extractor, logger *slog.Logger) *Visitor {
	return &Visitor{console: console, extractor: ext, logger: logger}
}

// Visit opens row i and returns its conversation. A panel whose message list
// never appears still yields a conversation with no messages.
func (v *Visitor) Visit(ctx context.Context, date string, i int) (chat.Conversation, error) {
	rowText, err := v.console.OpenRow(ctx, i)
	if err != nil {
		return chat.Conversation{}, fmt.Errorf("open row %d: %w", i+1, err)
	}

	conv := chat.Conversation{
		Info:     rowSummary(rowText),
		Date:     date,
		Messages: []chat.Message{},
	}

	panel, err := v.console.Panel(ctx)
	if err != nil {
		v.logger.Warn("message list not found", "date", date, "row", i+1, "error", err)
	} else {
		msgs, stats := v.extractor.Collect(ctx, panel)
		conv.Messages = msgs
		v.logger.Debug("panel collected",
			"date", date,
			"row", i+1,
			"cycles", stats.Cycles,
			"reached_top", stats.ReachedTop,
		)
	}

	if err := v.console.ClosePanel(ctx); err != nil {
		v.logger.Warn("close panel failed, escaping", "row", i+1, "error", err)
		_ = v.console.Escape(ctx)
	}

	return conv, nil
}

// rowSummary keeps the first line of the row text, capped at 30 characters.
func rowSummary(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	r := []rune(line)
	if len(r) > infoMaxRunes {
		r = r[:infoMaxRunes]
	}
	return string(r)
}
