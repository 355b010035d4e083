package risk

import "regexp"

// Checkpoint types.
const (
	TypeServiceRisk = "客服风险"
	TypeQuality     = "品质反馈"
	TypeComplaint   = "服务投诉"
	TypeWarning     = "服务预警"
)

// Rule matches a message when one trigger hits and no ignore pattern does.
type Rule struct {
	Label    string
	Triggers []*regexp.Regexp
	Ignore   []*regexp.Regexp
}

// Match reports whether content trips the rule.
func (r Rule) Match(content string) bool {
	for _, re := range r.Ignore {
		if re.MatchString(content) {
			return false
		}
	}
	for _, re := range r.Triggers {
		if re.MatchString(content) {
			return true
		}
	}
	return false
}

func patterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile("(?i)" + e)
	}
	return out
}

// Service-side violations. Each hit costs the conversation points.
func defaultServiceRules() []Rule {
	return []Rule{
		{
			Label:    "引导线下/私下交易",
			Triggers: patterns(`(加|发|留|转).{0,5}(微信|V|v|QQ|支付宝|私下|转账)`),
			Ignore:   patterns(`(优惠券|领券|发货|教程|视频|核实|单号|JD|SF|链接|截图)`),
		},
		{
			Label:    "辱骂/攻击用户",
			Triggers: patterns(`(滚|傻(B|b|X|x|逼)|脑子(有病|进水)|眼瞎|去死|神经病|听不懂|弱智)`),
			Ignore:   patterns(`(不|别|垃圾袋|垃圾桶|开玩笑)`),
		},
		{
			Label: "直接推诿/不耐烦",
			Triggers: patterns(
				`(我|这边).{0,5}(不管|不负责|没法弄|没空)`,
				`(自己).{0,5}(去|找|问).{0,5}(快递|官网)`,
			),
			Ignore: patterns(`(建议|可以|麻烦|核实|打包|运输)`),
		},
	}
}

// Customer reports about the product itself.
func defaultQualityRules() []Rule {
	return []Rule{
		{Triggers: patterns(`(质量|做工|手感|面料|材质|东西|实物|屏幕|开关|按键|电池|蓝牙|声音|画面).{0,10}(差|烂|硬|薄|粗糙|垃圾|不行|太次|坏|裂|碎|失灵|没反应|不亮|花屏)`)},
		{Triggers: patterns(`(假货|旧的|二手的|次品|有人用过|翻新机)`)},
		{Triggers: patterns(`^(坏了|坏的|开不了机|没反应|用不了|打不开|烂了|太差了)$`)},
		{Triggers: patterns(`(根本|完全|直接).{0,5}(用不了|没法用|坏了)`)},
	}
}

// Customer complaints about the service or the shop.
func defaultComplaintRules() []Rule {
	return []Rule{
		{Label: "信任/诚信投诉", Triggers: patterns(`(骗子|骗人|忽悠|欺诈|黑店|垃圾店|没信用|没有信用|抹黑|大企业.*结果|恶心|套路)`)},
		{Label: "威胁投诉/升级", Triggers: patterns(`(投诉|举报|315|黑猫|工商|报警|曝光|媒体|差评)`)},
		{Label: "时效/拖延投诉", Triggers: patterns(`(超时|太慢|拖延|墨迹|等到什么时候|还没发|几天了)`)},
		{Label: "服务态度投诉", Triggers: patterns(`(态度|嘴脸|复读机|机器人).{0,10}(差|不行|恶劣|敷衍)`)},
	}
}

var apologyPattern = regexp.MustCompile(`(抱歉|对不起|不好意思|谅解)`)

// Short customer replies that never carry feedback.
var trivialReplies = map[string]bool{
	"怎么弄": true, "在吗": true, "好的": true, "哦哦": true,
	"谢谢": true, "发货": true, "什么": true, "怎么": true,
}
