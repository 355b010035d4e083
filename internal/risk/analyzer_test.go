package risk

import (
	"testing"

	"github.com/MikeSquared-Agency/scribe/internal/chat"
)

func TestCheckService(t *testing.T) {
	a := NewAnalyzer()

	tests := []struct {
		name    string
		content string
		hit     bool
		reason  string
	}{
		{"offline trade", "加我微信聊", true, "命中[引导线下/私下交易]"},
		{"offline trade case-insensitive", "加我qq吧", true, "命中[引导线下/私下交易]"},
		{"offline trade ignored for coupons", "加微信领优惠券", false, ""},
		{"abuse", "你眼瞎啊", true, "命中[辱骂/攻击用户]"},
		{"abuse ignored with negation", "别去死磕了", false, ""},
		{"shirking", "这边不管的", true, "命中[直接推诿/不耐烦]"},
		{"shirking to courier", "自己去问快递", true, "命中[直接推诿/不耐烦]"},
		{"shirking ignored with suggestion", "建议您自己去问快递", false, ""},
		{"normal reply", "亲，已经为您安排发货了", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cp, hit := a.CheckService(tt.content)
			if hit != tt.hit {
				t.Fatalf("CheckService(%q) hit = %v, want %v", tt.content, hit, tt.hit)
			}
			if !hit {
				return
			}
			if cp.Reason != tt.reason || cp.Type != TypeServiceRisk || cp.Point != PointServiceRisk {
				t.Errorf("checkpoint = %+v", cp)
			}
			if cp.Text != tt.content {
				t.Errorf("text = %q, want %q", cp.Text, tt.content)
			}
		})
	}
}

func TestCheckUser(t *testing.T) {
	a := NewAnalyzer()

	tests := []struct {
		name    string
		content string
		hit     bool
		typ     string
		reason  string
	}{
		{"trivial reply", "在吗", false, "", ""},
		{"too short", "坏", false, "", ""},
		{"quality complaint", "质量太差了", true, TypeQuality, "疑似品质/故障反馈"},
		{"broken on its own", "坏了", true, TypeQuality, "疑似品质/故障反馈"},
		{"counterfeit", "是假货吧", true, TypeQuality, "疑似品质/故障反馈"},
		{"unusable", "根本用不了", true, TypeQuality, "疑似品质/故障反馈"},
		{"trust", "你们就是骗子", true, TypeComplaint, "疑似[信任/诚信投诉]"},
		{"escalation", "我要投诉", true, TypeComplaint, "疑似[威胁投诉/升级]"},
		{"delay", "怎么还没发", true, TypeComplaint, "疑似[时效/拖延投诉]"},
		{"attitude", "客服态度很差", true, TypeComplaint, "疑似[服务态度投诉]"},
		{"quality wins over complaint", "东西太烂了我要投诉", true, TypeQuality, "疑似品质/故障反馈"},
		{"thanks", "谢谢你", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cp, hit := a.CheckUser(tt.content)
			if hit != tt.hit {
				t.Fatalf("CheckUser(%q) hit = %v, want %v", tt.content, hit, tt.hit)
			}
			if !hit {
				return
			}
			if cp.Type != tt.typ || cp.Reason != tt.reason {
				t.Errorf("checkpoint = %+v, want type %q reason %q", cp, tt.typ, tt.reason)
			}
		})
	}
}

func msg(sender chat.Sender, content string) chat.Message {
	typ := chat.TypeText
	if sender == chat.SenderSystem {
		typ = chat.TypeSystem
	}
	return chat.Message{Time: "10:00", Sender: sender, Content: content, Type: typ}
}

func TestAnalyze_OnlyServiceHitsDeduct(t *testing.T) {
	a := NewAnalyzer()

	res := a.Analyze([]chat.Message{
		msg(chat.SenderService, "加我微信聊"),
		msg(chat.SenderUser, "好的"),
		msg(chat.SenderUser, "质量太差了"),
	})

	if res.Score != 50 {
		t.Errorf("score = %d, want 50", res.Score)
	}
	if !res.IsRisk || res.Summary != "发现 2 处异常" {
		t.Errorf("is_risk=%v summary=%q", res.IsRisk, res.Summary)
	}
	if len(res.HighlightIndices) != 2 || res.HighlightIndices[0] != 0 || res.HighlightIndices[1] != 2 {
		t.Errorf("highlight = %v, want [0 2]", res.HighlightIndices)
	}
}

func TestAnalyze_CleanTranscript(t *testing.T) {
	res := NewAnalyzer().Analyze([]chat.Message{
		msg(chat.SenderUser, "在吗"),
		msg(chat.SenderService, "您好，请问有什么可以帮您"),
		msg(chat.SenderSystem, "用户投诉已关闭"),
	})

	if res.Score != 100 || res.IsRisk || res.Summary != "" {
		t.Errorf("unexpected analysis %+v", res)
	}
	if res.Checkpoints == nil || res.HighlightIndices == nil {
		t.Error("expected empty, non-nil slices")
	}
}

func TestAnalyze_FrequentApologies(t *testing.T) {
	a := NewAnalyzer()
	sorry := []chat.Message{
		msg(chat.SenderService, "抱歉"),
		msg(chat.SenderService, "对不起"),
		msg(chat.SenderService, "不好意思"),
		msg(chat.SenderService, "请谅解"),
	}

	res := a.Analyze(sorry)
	if res.Score != 80 || len(res.Checkpoints) != 1 || res.Checkpoints[0].Type != TypeWarning {
		t.Errorf("expected apology warning, got %+v", res)
	}
	if len(res.HighlightIndices) != 0 {
		t.Errorf("apology warning must not highlight messages, got %v", res.HighlightIndices)
	}

	res = a.Analyze(sorry[:3])
	if res.Score != 100 || res.IsRisk {
		t.Errorf("three apologies must not warn, got %+v", res)
	}

	withViolation := append(append([]chat.Message{}, sorry[:3]...), msg(chat.SenderService, "抱歉，加我微信"))
	res = a.Analyze(withViolation)
	if res.Score != 50 || len(res.Checkpoints) != 1 {
		t.Errorf("apology warning only applies to otherwise clean chats, got %+v", res)
	}
}

func TestScore_Clamped(t *testing.T) {
	tests := []struct {
		deduction int
		want      int
	}{
		{0, 100},
		{50, 50},
		{150, 0},
		{-10, 100},
	}
	for _, tt := range tests {
		if got := Score(tt.deduction); got != tt.want {
			t.Errorf("Score(%d) = %d, want %d", tt.deduction, got, tt.want)
		}
	}
}

func TestDeduction(t *testing.T) {
	cp := chat.Checkpoint{Point: PointQuality}
	if got := Deduction(chat.SenderUser, cp); got != 0 {
		t.Errorf("customer checkpoint deduction = %d, want 0", got)
	}
	if got := Deduction(chat.SenderService, chat.Checkpoint{Point: PointServiceRisk}); got != PointServiceRisk {
		t.Errorf("service checkpoint deduction = %d, want %d", got, PointServiceRisk)
	}
}

func TestAnnotate(t *testing.T) {
	kept := &chat.Analysis{Score: 100, ReviewStatus: chat.ReviewApproved}
	convs := []chat.Conversation{
		{Info: "ID：123", Messages: []chat.Message{msg(chat.SenderUser, "我要投诉")}},
		{Info: "", Messages: []chat.Message{msg(chat.SenderUser, "在吗")}},
		{ID: "9", Info: "ID：9", Messages: []chat.Message{msg(chat.SenderService, "加我微信")}, Analysis: kept},
	}

	flagged := NewAnalyzer().Annotate(convs)

	if flagged != 1 {
		t.Errorf("flagged = %d, want 1", flagged)
	}
	if convs[0].ID != "123" || convs[1].ID != "UNKNOWN_2" || convs[2].ID != "9" {
		t.Errorf("ids = %q %q %q", convs[0].ID, convs[1].ID, convs[2].ID)
	}
	if convs[0].Analysis == nil || !convs[0].Analysis.IsRisk {
		t.Errorf("expected first conversation flagged, got %+v", convs[0].Analysis)
	}
	if convs[2].Analysis != kept {
		t.Error("existing analysis must be kept")
	}
}
