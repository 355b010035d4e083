package harvest

import (
	"fmt"
	"strings"
)

// Day outcomes.
const (
	StatusSkipped = "skipped"
	StatusWritten = "written"
	StatusEmpty   = "empty"
	StatusFailed  = "failed"
)

// DaySummary is the outcome of one target date.
type DaySummary struct {
	Date          string `json:"date"`
	Status        string `json:"status"`
	Conversations int    `json:"conversations"`
	Messages      int    `json:"messages"`
	Flagged       int    `json:"flagged,omitempty"`
	Path          string `json:"path,omitempty"`
	Error         string `json:"error,omitempty"`
}

// FormatRunSummary renders the per-date outcomes of a run.
func FormatRunSummary(summaries []DaySummary) string {
	var sb strings.Builder
	sb.WriteString("*Chat History Harvest*\n")

	totalConvs, totalMsgs, failed := 0, 0, 0
	for _, s := range summaries {
		totalConvs += s.Conversations
		totalMsgs += s.Messages
		if s.Status == StatusFailed {
			failed++
		}
	}
	fmt.Fprintf(&sb, "%d dates, %d conversations, %d messages", len(summaries), totalConvs, totalMsgs)
	if failed > 0 {
		fmt.Fprintf(&sb, " (%d failed)", failed)
	}
	sb.WriteString("\n")

	for _, s := range summaries {
		fmt.Fprintf(&sb, "  - %s [%s]", s.Date, s.Status)
		if s.Status == StatusWritten {
			fmt.Fprintf(&sb, ": %d conversations, %d messages", s.Conversations, s.Messages)
			if s.Flagged > 0 {
				fmt.Fprintf(&sb, ", %d flagged", s.Flagged)
			}
		}
		if s.Error != "" {
			fmt.Fprintf(&sb, ": %s", s.Error)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
