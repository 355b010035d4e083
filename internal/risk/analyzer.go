package risk

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/MikeSquared-Agency/scribe/internal/chat"
)

const minUserRunes = 2

// Analyzer scores conversations against the built-in rule sets.
type Analyzer struct {
	service   []Rule
	quality   []Rule
	complaint []Rule
}

func NewAnalyzer() *Analyzer {
	return &Analyzer{
		service:   defaultServiceRules(),
		quality:   defaultQualityRules(),
		complaint: defaultComplaintRules(),
	}
}

// CheckService returns the checkpoint of the first service rule content trips.
func (a *Analyzer) CheckService(content string) (chat.Checkpoint, bool) {
	for _, r := range a.service {
		if r.Match(content) {
			return chat.Checkpoint{
				Point:  PointServiceRisk,
				Type:   TypeServiceRisk,
				Reason: "命中[" + r.Label + "]",
				Text:   content,
			}, true
		}
	}
	return chat.Checkpoint{}, false
}

// CheckUser looks for quality feedback first, then service complaints.
func (a *Analyzer) CheckUser(content string) (chat.Checkpoint, bool) {
	if utf8.RuneCountInString(content) < minUserRunes || trivialReplies[content] {
		return chat.Checkpoint{}, false
	}
	for _, r := range a.quality {
		if r.Match(content) {
			return chat.Checkpoint{
				Point:  PointQuality,
				Type:   TypeQuality,
				Reason: "疑似品质/故障反馈",
				Text:   content,
			}, true
		}
	}
	for _, r := range a.complaint {
		if r.Match(content) {
			return chat.Checkpoint{
				Point:  PointComplaint,
				Type:   TypeComplaint,
				Reason: "疑似[" + r.Label + "]",
				Text:   content,
			}, true
		}
	}
	return chat.Checkpoint{}, false
}

// Analyze scores one transcript. System notices are ignored.
func (a *Analyzer) Analyze(msgs []chat.Message) chat.Analysis {
	res := chat.Analysis{
		Checkpoints:      []chat.Checkpoint{},
		HighlightIndices: []int{},
	}

	deduction, apologies := 0, 0
	for i, m := range msgs {
		if m.Type == chat.TypeSystem {
			continue
		}
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}

		var (
			cp  chat.Checkpoint
			hit bool
		)
		switch m.Sender {
		case chat.SenderService:
			cp, hit = a.CheckService(content)
			if apologyPattern.MatchString(content) {
				apologies++
			}
		case chat.SenderUser:
			cp, hit = a.CheckUser(content)
		}
		if !hit {
			continue
		}
		res.Checkpoints = append(res.Checkpoints, cp)
		res.HighlightIndices = append(res.HighlightIndices, i)
		deduction += Deduction(m.Sender, cp)
	}

	if apologies >= ApologyThreshold && deduction == 0 {
		deduction += PointApology
		res.Checkpoints = append(res.Checkpoints, chat.Checkpoint{
			Point:  PointApology,
			Type:   TypeWarning,
			Reason: fmt.Sprintf("客服频繁道歉(>%d次)，可能存在处理困难", ApologyThreshold-1),
			Text:   "(全局检测)",
		})
	}

	res.Score = Score(deduction)
	res.IsRisk = len(res.Checkpoints) > 0
	if res.IsRisk {
		res.Summary = fmt.Sprintf("发现 %d 处异常", len(res.Checkpoints))
	}
	return res
}

// Annotate assigns IDs and analyses to conversations that lack them and
// returns how many of the conversations are flagged. Existing analyses are
// kept so manual reviews survive.
func (a *Analyzer) Annotate(convs []chat.Conversation) int {
	flagged := 0
	for i := range convs {
		c := &convs[i]
		if c.ID == "" {
			c.ID = ConversationID(c.Info, i)
		}
		if c.Analysis == nil {
			res := a.Analyze(c.Messages)
			c.Analysis = &res
		}
		if c.Analysis.IsRisk {
			flagged++
		}
	}
	return flagged
}

// ConversationID derives a stable ID from the row info ("ID：123" → "123").
// Rows without info are numbered by their position in the day.
func ConversationID(info string, i int) string {
	id := strings.TrimSpace(strings.ReplaceAll(info, "ID：", ""))
	if id == "" {
		return fmt.Sprintf("UNKNOWN_%d", i+1)
	}
	return id
}
