package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/scribe/internal/archive"
	"github.com/MikeSquared-Agency/scribe/internal/chat"
)

// SubjectDayArchived is published after a day file is written.
const SubjectDayArchived = "scribe.day.archived"

// ErrMissingCredentials is fatal: the saved login state is required.
var ErrMissingCredentials = errors.New("credential file not found")

// CheckCredentials fails with ErrMissingCredentials when path does not exist.
func CheckCredentials(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrMissingCredentials, path)
		}
		return fmt.Errorf("stat credentials: %w", err)
	}
	return nil
}

// Harvester collects the conversations of one date.
type Harvester interface {
	Harvest(ctx context.Context, date string) ([]chat.Conversation, error)
}

// Mirror receives a copy of every archived day.
type Mirror interface {
	WriteDay(ctx context.Context, runID uuid.UUID, date string, convs []chat.Conversation) error
}

// Publisher announces archived days.
type Publisher interface {
	Publish(subject string, data any) error
}

// Annotator attaches risk analyses to a day's conversations before they
// are archived and returns how many are flagged.
type Annotator interface {
	Annotate(convs []chat.Conversation) int
}

// Notifier posts the end-of-run summary.
type Notifier interface {
	PostMessage(ctx context.Context, text string) error
}

// Config holds the run configuration.
type Config struct {
	Days int
}

// Runner walks the target date range, newest first.
type Runner struct {
	cfg       Config
	harvester Harvester
	archive   *archive.Archive
	mirror    Mirror
	publisher Publisher
	notifier  Notifier
	annotator Annotator
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures optional runner collaborators.
type Option func(*Runner)

func WithMirror(m Mirror) Option       { return func(r *Runner) { r.mirror = m } }
func WithPublisher(p Publisher) Option { return func(r *Runner) { r.publisher = p } }
func WithNotifier(n Notifier) Option   { return func(r *Runner) { r.notifier = n } }
func WithAnnotator(a Annotator) Option { return func(r *Runner) { r.annotator = a } }
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a run driver. A negative Days is treated as zero.
func NewRunner(cfg Config, h Harvester, a *archive.Archive, logger *slog.Logger, opts ...Option) *Runner {
	if cfg.Days < 0 {
		cfg.Days = 0
	}
	r := &Runner{
		cfg:       cfg,
		harvester: h,
		archive:   a,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dates returns the target dates, today first.
func (r *Runner) Dates() []string {
	today := r.now()
	dates := make([]string, 0, r.cfg.Days)
	for i := 0; i < r.cfg.Days; i++ {
		dates = append(dates, today.AddDate(0, 0, -i).Format(archive.DateLayout))
	}
	return dates
}

// Run harvests every target date that is not archived yet. Date failures are
// logged and recorded in the summaries; only cancellation or an unusable
// archive stops the run.
func (r *Runner) Run(ctx context.Context) ([]DaySummary, error) {
	if err := r.archive.Ensure(); err != nil {
		return nil, fmt.Errorf("prepare archive: %w", err)
	}

	runID := uuid.New()
	r.logger.Info("run started", "run_id", runID, "days", r.cfg.Days, "dir", r.archive.Dir())

	var summaries []DaySummary
	for _, date := range r.Dates() {
		select {
		case <-ctx.Done():
			r.logger.Info("run interrupted", "run_id", runID, "date", date)
			r.postSummary(context.WithoutCancel(ctx), summaries)
			return summaries, ctx.Err()
		default:
		}

		summaries = append(summaries, r.runDate(ctx, runID, date))
	}

	r.postSummary(ctx, summaries)
	r.logger.Info("run complete", "run_id", runID, "dates", len(summaries))
	return summaries, nil
}

func (r *Runner) runDate(ctx context.Context, runID uuid.UUID, date string) DaySummary {
	sum := DaySummary{Date: date}

	if r.archive.Exists(date) {
		r.logger.Info("date already archived, skipping", "date", date)
		sum.Status = StatusSkipped
		return sum
	}

	r.logger.Info("harvesting date", "date", date)
	convs, err := r.harvester.Harvest(ctx, date)
	if err != nil {
		r.logger.Error("date failed", "date", date, "error", err)
		sum.Status = StatusFailed
		sum.Error = err.Error()
		return sum
	}

	sum.Conversations = len(convs)
	sum.Messages = chat.CountMessages(convs)
	if len(convs) == 0 {
		r.logger.Warn("no conversations found", "date", date)
		sum.Status = StatusEmpty
		return sum
	}

	if r.annotator != nil {
		sum.Flagged = r.annotator.Annotate(convs)
	}

	path, err := r.archive.Write(date, convs)
	if err != nil {
		r.logger.Error("failed to write day", "date", date, "error", err)
		sum.Status = StatusFailed
		sum.Error = err.Error()
		return sum
	}
	sum.Status = StatusWritten
	sum.Path = path
	r.logger.Info("day archived",
		"date", date,
		"conversations", sum.Conversations,
		"messages", sum.Messages,
		"flagged", sum.Flagged,
		"path", path,
	)

	if r.mirror != nil {
		if err := r.mirror.WriteDay(ctx, runID, date, convs); err != nil {
			r.logger.Warn("mirror write failed", "date", date, "error", err)
		}
	}
	if r.publisher != nil {
		if err := r.publisher.Publish(SubjectDayArchived, map[string]any{
			"run_id":        runID.String(),
			"date":          date,
			"conversations": sum.Conversations,
			"messages":      sum.Messages,
			"flagged":       sum.Flagged,
			"path":          path,
		}); err != nil {
			r.logger.Warn("failed to publish archived day", "date", date, "error", err)
		}
	}

	return sum
}

// postSummary posts the run summary, or logs it when no notifier is set.
func (r *Runner) postSummary(ctx context.Context, summaries []DaySummary) {
	if len(summaries) == 0 {
		return
	}

	text := FormatRunSummary(summaries)

	if r.notifier == nil {
		r.logger.Info("run summary (no Slack configured)", "summary", text)
		return
	}
	if err := r.notifier.PostMessage(ctx, text); err != nil {
		r.logger.Warn("failed to post run summary to Slack, logging instead",
			"error", err,
			"summary", text,
		)
	}
}
