package risk

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/MikeSquared-Agency/scribe/internal/archive"
	"github.com/MikeSquared-Agency/scribe/internal/chat"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestApplyReview(t *testing.T) {
	tests := []struct {
		name       string
		actions    []Action
		wantStatus chat.ReviewStatus
		wantScore  int
		wantRisk   bool
		wantManual bool
	}{
		{"appeal", []Action{ActionSubmitAppeal}, chat.ReviewPending, 50, true, true},
		{"confirm", []Action{ActionConfirmRisk}, chat.ReviewConfirmed, 50, true, true},
		{"approve", []Action{ActionApprove}, chat.ReviewApproved, 100, false, true},
		{"approve twice keeps rule score", []Action{ActionApprove, ActionApprove, ActionReject}, chat.ReviewRejected, 50, false, true},
		{"reject after approve", []Action{ActionApprove, ActionReject}, chat.ReviewRejected, 50, false, true},
		{"reset after approve", []Action{ActionApprove, ActionReset}, chat.ReviewNone, 50, false, false},
		{"reject without approve", []Action{ActionReject}, chat.ReviewRejected, 50, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &chat.Analysis{Score: 50, IsRisk: true}
			for _, act := range tt.actions {
				if err := ApplyReview(a, act); err != nil {
					t.Fatalf("ApplyReview(%s) failed: %v", act, err)
				}
			}
			if a.ReviewStatus != tt.wantStatus || a.Score != tt.wantScore ||
				a.IsRisk != tt.wantRisk || a.ManualReviewed != tt.wantManual {
				t.Errorf("got status=%q score=%d risk=%v manual=%v",
					a.ReviewStatus, a.Score, a.IsRisk, a.ManualReviewed)
			}
		})
	}
}

func TestParseAction(t *testing.T) {
	if a, err := ParseAction("admin_approve"); err != nil || a != ActionApprove {
		t.Errorf("ParseAction(admin_approve) = %q, %v", a, err)
	}
	if _, err := ParseAction("delete"); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("expected ErrUnknownAction, got %v", err)
	}
	if err := ApplyReview(&chat.Analysis{}, Action("delete")); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("expected ErrUnknownAction, got %v", err)
	}
}

func TestReviewer_Review(t *testing.T) {
	arc := archive.New(t.TempDir())
	date := "2024-01-02"
	if _, err := arc.Write(date, []chat.Conversation{
		{Info: "ID：7", Date: date, Messages: []chat.Message{msg(chat.SenderService, "加我微信")}},
	}); err != nil {
		t.Fatal(err)
	}
	r := NewReviewer(arc, NewAnalyzer(), discardLogger())

	got, err := r.Review(date, "7", ActionApprove)
	if err != nil {
		t.Fatalf("Review failed: %v", err)
	}
	if got.ReviewStatus != chat.ReviewApproved || got.Score != 100 {
		t.Errorf("returned analysis = %+v", got)
	}

	convs, err := arc.Read(date)
	if err != nil {
		t.Fatal(err)
	}
	a := convs[0].Analysis
	if convs[0].ID != "7" || a == nil || a.ReviewStatus != chat.ReviewApproved {
		t.Fatalf("stored conversation = %+v", convs[0])
	}
	if a.OriginalScore == nil || *a.OriginalScore != 50 {
		t.Errorf("original score = %v, want 50", a.OriginalScore)
	}
}

func TestReviewer_Errors(t *testing.T) {
	arc := archive.New(t.TempDir())
	date := "2024-01-02"
	if _, err := arc.Write(date, []chat.Conversation{{Info: "ID：1", Date: date}}); err != nil {
		t.Fatal(err)
	}
	r := NewReviewer(arc, NewAnalyzer(), discardLogger())

	if _, err := r.Review(date, "404", ActionApprove); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("expected ErrConversationNotFound, got %v", err)
	}
	if _, err := r.Review("2024-01-03", "1", ActionApprove); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
	if _, err := r.Review("bad", "1", ActionApprove); !errors.Is(err, archive.ErrInvalidDate) {
		t.Errorf("expected ErrInvalidDate, got %v", err)
	}
}

func TestReviewer_AnnotateArchive(t *testing.T) {
	arc := archive.New(t.TempDir())
	if _, err := arc.Write("2024-01-01", []chat.Conversation{
		{Info: "ID：1", Date: "2024-01-01", Messages: []chat.Message{msg(chat.SenderUser, "我要投诉")}},
	}); err != nil {
		t.Fatal(err)
	}
	done := []chat.Conversation{{ID: "2", Info: "ID：2", Date: "2024-01-02", Analysis: &chat.Analysis{Score: 100}}}
	if _, err := arc.Write("2024-01-02", done); err != nil {
		t.Fatal(err)
	}
	r := NewReviewer(arc, NewAnalyzer(), discardLogger())

	n, err := r.AnnotateArchive()
	if err != nil {
		t.Fatalf("AnnotateArchive failed: %v", err)
	}
	if n != 1 {
		t.Errorf("rewritten days = %d, want 1", n)
	}
	convs, err := arc.Read("2024-01-01")
	if err != nil {
		t.Fatal(err)
	}
	if convs[0].Analysis == nil || !convs[0].Analysis.IsRisk {
		t.Errorf("expected analysis on 2024-01-01, got %+v", convs[0].Analysis)
	}
}
