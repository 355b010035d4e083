package harvest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/scribe/internal/archive"
	"github.com/MikeSquared-Agency/scribe/internal/chat"
)

type fakeHarvester struct {
	calls   []string
	results map[string][]chat.Conversation
	errs    map[string]error
}

func (f *fakeHarvester) Harvest(_ context.Context, date string) ([]chat.Conversation, error) {
	f.calls = append(f.calls, date)
	if err := f.errs[date]; err != nil {
		return nil, err
	}
	return f.results[date], nil
}

type fakeMirror struct {
	runIDs []uuid.UUID
	dates  []string
}

func (f *fakeMirror) WriteDay(_ context.Context, runID uuid.UUID, date string, _ []chat.Conversation) error {
	f.runIDs = append(f.runIDs, runID)
	f.dates = append(f.dates, date)
	return nil
}

type fakePublisher struct {
	subjects []string
	payloads []any
}

func (f *fakePublisher) Publish(subject string, data any) error {
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

type fakeNotifier struct {
	texts []string
	err   error
}

func (f *fakeNotifier) PostMessage(_ context.Context, text string) error {
	f.texts = append(f.texts, text)
	return f.err
}

type fakeAnnotator struct {
	seen int
}

func (f *fakeAnnotator) Annotate(convs []chat.Conversation) int {
	f.seen += len(convs)
	for i := range convs {
		convs[i].ID = "annotated"
	}
	return len(convs)
}

func fixedClock(date string) func() time.Time {
	t, _ := time.Parse(archive.DateLayout, date)
	return func() time.Time { return t.Add(15 * time.Hour) }
}

func oneConv(date string) []chat.Conversation {
	return []chat.Conversation{{
		Info:     "ID：1",
		Date:     date,
		Messages: []chat.Message{{Time: "09:00", Sender: chat.SenderUser, Content: "hi", Type: chat.TypeText}},
	}}
}

func TestRunner_Dates(t *testing.T) {
	r := NewRunner(Config{Days: 3}, &fakeHarvester{}, archive.New(t.TempDir()), discardLogger(),
		WithClock(fixedClock("2024-03-01")))

	got := strings.Join(r.Dates(), ",")
	want := "2024-03-01,2024-02-29,2024-02-28"
	if got != want {
		t.Errorf("Dates() = %s, want %s", got, want)
	}
}

func TestRunner_NegativeDaysHarvestsNothing(t *testing.T) {
	h := &fakeHarvester{}
	r := NewRunner(Config{Days: -1}, h, archive.New(t.TempDir()), discardLogger(),
		WithClock(fixedClock("2024-03-01")))

	if got := r.Dates(); len(got) != 0 {
		t.Errorf("Dates() = %v, want none", got)
	}
	sums, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(sums) != 0 || len(h.calls) != 0 {
		t.Errorf("expected no work, got summaries %v calls %v", sums, h.calls)
	}
}

func TestRunner_AnnotatesBeforeArchiving(t *testing.T) {
	a := archive.New(t.TempDir())
	h := &fakeHarvester{results: map[string][]chat.Conversation{"2024-01-01": oneConv("2024-01-01")}}
	an := &fakeAnnotator{}
	r := NewRunner(Config{Days: 1}, h, a, discardLogger(),
		WithClock(fixedClock("2024-01-01")), WithAnnotator(an))

	sums, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if an.seen != 1 || sums[0].Flagged != 1 {
		t.Errorf("annotator saw %d, flagged %d", an.seen, sums[0].Flagged)
	}
	convs, err := a.Read("2024-01-01")
	if err != nil {
		t.Fatal(err)
	}
	if convs[0].ID != "annotated" {
		t.Errorf("archived conversation not annotated: %+v", convs[0])
	}
}

func TestRunner_SkipsArchivedDates(t *testing.T) {
	a := archive.New(t.TempDir())
	if _, err := a.Write("2024-01-01", oneConv("2024-01-01")); err != nil {
		t.Fatal(err)
	}
	h := &fakeHarvester{results: map[string][]chat.Conversation{"2024-01-02": oneConv("2024-01-02")}}
	r := NewRunner(Config{Days: 2}, h, a, discardLogger(), WithClock(fixedClock("2024-01-02")))

	sums, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(h.calls) != 1 || h.calls[0] != "2024-01-02" {
		t.Errorf("harvester calls = %v, want only 2024-01-02", h.calls)
	}
	if sums[0].Status != StatusWritten || sums[1].Status != StatusSkipped {
		t.Errorf("unexpected summaries: %+v", sums)
	}
	if !a.Exists("2024-01-02") {
		t.Error("expected 2024-01-02 to be archived")
	}
}

func TestRunner_FailedAndEmptyDatesNotArchived(t *testing.T) {
	a := archive.New(t.TempDir())
	h := &fakeHarvester{
		results: map[string][]chat.Conversation{"2024-01-01": oneConv("2024-01-01")},
		errs:    map[string]error{"2024-01-03": ErrDateFilter},
	}
	r := NewRunner(Config{Days: 3}, h, a, discardLogger(), WithClock(fixedClock("2024-01-03")))

	sums, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{StatusFailed, StatusEmpty, StatusWritten}
	for i, s := range sums {
		if s.Status != want[i] {
			t.Errorf("%s: status %s, want %s", s.Date, s.Status, want[i])
		}
	}
	if a.Exists("2024-01-03") || a.Exists("2024-01-02") {
		t.Error("failed or empty dates must stay unarchived so the next run retries them")
	}
	if sums[0].Error == "" {
		t.Error("expected error recorded for failed date")
	}
}

func TestRunner_MirrorsPublishesAndNotifies(t *testing.T) {
	a := archive.New(t.TempDir())
	h := &fakeHarvester{results: map[string][]chat.Conversation{"2024-01-01": oneConv("2024-01-01")}}
	m := &fakeMirror{}
	p := &fakePublisher{}
	n := &fakeNotifier{}
	r := NewRunner(Config{Days: 1}, h, a, discardLogger(),
		WithClock(fixedClock("2024-01-01")), WithMirror(m), WithPublisher(p), WithNotifier(n))

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(m.dates) != 1 || m.dates[0] != "2024-01-01" || m.runIDs[0] == uuid.Nil {
		t.Errorf("mirror calls = %v %v", m.dates, m.runIDs)
	}
	if len(p.subjects) != 1 || p.subjects[0] != SubjectDayArchived {
		t.Errorf("published subjects = %v", p.subjects)
	}
	payload := p.payloads[0].(map[string]any)
	if payload["date"] != "2024-01-01" || payload["messages"] != 1 {
		t.Errorf("payload = %v", payload)
	}
	if len(n.texts) != 1 || !strings.Contains(n.texts[0], "2024-01-01 [written]") {
		t.Errorf("notifier texts = %q", n.texts)
	}
}

func TestRunner_NotifierFailureDoesNotFailRun(t *testing.T) {
	h := &fakeHarvester{}
	n := &fakeNotifier{err: errors.New("slack down")}
	r := NewRunner(Config{Days: 1}, h, archive.New(t.TempDir()), discardLogger(), WithNotifier(n))

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
}

func TestRunner_CancelledStopsBeforeNextDate(t *testing.T) {
	h := &fakeHarvester{}
	r := NewRunner(Config{Days: 3}, h, archive.New(t.TempDir()), discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(h.calls) != 0 {
		t.Errorf("expected no harvests, got %v", h.calls)
	}
}

func TestCheckCredentials(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "auth.json")

	if err := CheckCredentials(missing); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials, got %v", err)
	}

	if err := os.WriteFile(missing, []byte(`{"cookies":[],"origins":[]}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := CheckCredentials(missing); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestFormatRunSummary(t *testing.T) {
	text := FormatRunSummary([]DaySummary{
		{Date: "2024-01-02", Status: StatusWritten, Conversations: 3, Messages: 40, Flagged: 2},
		{Date: "2024-01-01", Status: StatusFailed, Error: "date filter 2024-01-01: timeout"},
		{Date: "2023-12-31", Status: StatusSkipped},
	})

	for _, want := range []string{
		"3 dates, 3 conversations, 40 messages (1 failed)",
		"2024-01-02 [written]: 3 conversations, 40 messages, 2 flagged",
		"2024-01-01 [failed]: date filter 2024-01-01: timeout",
		"2023-12-31 [skipped]",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected summary to contain %q, got:\n%s", want, text)
		}
	}
}
