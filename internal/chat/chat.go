package chat

import "sort"

// Sender identifies who produced a message in a conversation.
type Sender string

const (
	SenderUser    Sender = "User"
	SenderService Sender = "Service"
	SenderSystem  Sender = "System"
)

// Type is the kind of content a message carries.
type Type string

const (
	TypeText   Type = "text"
	TypeImage  Type = "image"
	TypeSystem Type = "system"
)

// Message is a single entry of a conversation transcript.
type Message struct {
	Time    string `json:"time"` // HH:mm or HH:mm:ss, may be empty
	Sender  Sender `json:"sender"`
	Content string `json:"content"` // text, image URL or system notice
	Type    Type   `json:"type"`
}

// Key returns the dedup identity of the message. Sender is not part of it.
func (m Message) Key() string {
	return m.Time + "_" + m.Content
}

// Conversation is the transcript of one detail panel visit. ID and Analysis
// are filled in by risk analysis and omitted when absent.
type Conversation struct {
	ID       string    `json:"id,omitempty"`
	Info     string    `json:"info"`
	Date     string    `json:"date"` // YYYY-MM-DD
	Messages []Message `json:"messages"`
	Analysis *Analysis `json:"ai_analysis,omitempty"`
}

// ReviewStatus is the manual review state of an analysis.
type ReviewStatus string

const (
	ReviewNone      ReviewStatus = ""
	ReviewPending   ReviewStatus = "pending"
	ReviewConfirmed ReviewStatus = "confirmed"
	ReviewApproved  ReviewStatus = "approved"
	ReviewRejected  ReviewStatus = "rejected"
)

// Checkpoint is one rule hit inside a conversation.
type Checkpoint struct {
	Point  int    `json:"point"`
	Type   string `json:"type"`
	Reason string `json:"reason"`
	Text   string `json:"text"`
}

// Analysis is the rule-based risk assessment of a conversation, plus its
// manual review state.
type Analysis struct {
	Score            int          `json:"score"` // 0..100, 100 = clean
	IsRisk           bool         `json:"is_risk"`
	Summary          string       `json:"summary"`
	Checkpoints      []Checkpoint `json:"checkpoints"`
	HighlightIndices []int        `json:"highlight_indices"` // indexes into Messages
	ReviewStatus     ReviewStatus `json:"review_status,omitempty"`
	ManualReviewed   bool         `json:"manual_reviewed,omitempty"`
	OriginalScore    *int         `json:"original_score,omitempty"`
}

// SortMessages orders messages by ascending time string. Messages without a
// time go last; equal times keep their collection order.
func SortMessages(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		a, b := msgs[i].Time, msgs[j].Time
		switch {
		case a == "":
			return false
		case b == "":
			return true
		}
		return a < b
	})
}

// CountMessages sums the messages across conversations.
func CountMessages(convs []Conversation) int {
	n := 0
	for _, c := range convs {
		n += len(c.Messages)
	}
	return n
}
