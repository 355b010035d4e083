package risk

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/scribe/internal/archive"
	"github.com/MikeSquared-Agency/scribe/internal/chat"
)

// Action is a manual review step on a conversation's analysis.
type Action string

const (
	ActionSubmitAppeal Action = "submit_appeal"
	ActionConfirmRisk  Action = "confirm_risk"
	ActionApprove      Action = "admin_approve"
	ActionReject       Action = "admin_reject"
	ActionReset        Action = "admin_reset"
)

var (
	ErrUnknownAction        = errors.New("unknown review action")
	ErrConversationNotFound = errors.New("conversation not found")
)

// ParseAction validates a review action name.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionSubmitAppeal, ActionConfirmRisk, ActionApprove, ActionReject, ActionReset:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
}

// ApplyReview moves an analysis through the review workflow. Approval
// clears the risk and restores a full score; the rule score is kept in
// OriginalScore so reject and reset can put it back.
func ApplyReview(a *chat.Analysis, action Action) error {
	switch action {
	case ActionSubmitAppeal:
		a.ReviewStatus = chat.ReviewPending
		a.ManualReviewed = true
	case ActionConfirmRisk:
		a.ReviewStatus = chat.ReviewConfirmed
		a.IsRisk = true
		a.ManualReviewed = true
	case ActionApprove:
		if a.OriginalScore == nil {
			score := a.Score
			a.OriginalScore = &score
		}
		a.ReviewStatus = chat.ReviewApproved
		a.IsRisk = false
		a.Score = maxScore
		a.ManualReviewed = true
	case ActionReject:
		a.ReviewStatus = chat.ReviewRejected
		restoreScore(a)
		a.ManualReviewed = true
	case ActionReset:
		a.ReviewStatus = chat.ReviewNone
		a.ManualReviewed = false
		restoreScore(a)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	return nil
}

func restoreScore(a *chat.Analysis) {
	if a.OriginalScore != nil {
		a.Score = *a.OriginalScore
	}
}

// Reviewer applies review actions to archived days.
type Reviewer struct {
	archive  *archive.Archive
	analyzer *Analyzer
	logger   *slog.Logger
}

func NewReviewer(a *archive.Archive, an *Analyzer, logger *slog.Logger) *Reviewer {
	return &Reviewer{archive: a, analyzer: an, logger: logger}
}

// Review applies action to conversation id of date and rewrites the day
// file. A conversation archived without an analysis is analyzed first.
// Callers serialise reviews of the same day.
func (r *Reviewer) Review(date, id string, action Action) (chat.Analysis, error) {
	convs, err := r.archive.Read(date)
	if err != nil {
		return chat.Analysis{}, err
	}

	idx := -1
	for i, c := range convs {
		cid := c.ID
		if cid == "" {
			cid = ConversationID(c.Info, i)
		}
		if cid == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return chat.Analysis{}, fmt.Errorf("%w: %s on %s", ErrConversationNotFound, id, date)
	}

	c := &convs[idx]
	if c.ID == "" {
		c.ID = id
	}
	if c.Analysis == nil {
		res := r.analyzer.Analyze(c.Messages)
		c.Analysis = &res
	}
	if err := ApplyReview(c.Analysis, action); err != nil {
		return chat.Analysis{}, err
	}

	if _, err := r.archive.Write(date, convs); err != nil {
		return chat.Analysis{}, err
	}
	r.logger.Info("review saved", "date", date, "id", id, "action", action, "status", c.Analysis.ReviewStatus)
	return *c.Analysis, nil
}

// AnnotateArchive analyzes every archived day that still has conversations
// without an analysis. It returns the number of rewritten days.
func (r *Reviewer) AnnotateArchive() (int, error) {
	dates, err := r.archive.Dates()
	if err != nil {
		return 0, err
	}

	rewritten := 0
	for _, date := range dates {
		convs, err := r.archive.Read(date)
		if err != nil {
			r.logger.Warn("failed to read day, skipping", "date", date, "error", err)
			continue
		}
		if !needsAnalysis(convs) {
			continue
		}
		flagged := r.analyzer.Annotate(convs)
		if _, err := r.archive.Write(date, convs); err != nil {
			return rewritten, fmt.Errorf("write %s: %w", date, err)
		}
		rewritten++
		r.logger.Info("day analyzed", "date", date, "conversations", len(convs), "flagged", flagged)
	}
	return rewritten, nil
}

func needsAnalysis(convs []chat.Conversation) bool {
	for _, c := range convs {
		if c.ID == "" || c.Analysis == nil {
			return true
		}
	}
	return false
}
