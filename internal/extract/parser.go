package extract

import (
	"regexp"
	"strings"

	"github.com/MikeSquared-Agency/scribe/internal/chat"
)

var timePattern = regexp.MustCompile(`\d{1,2}:\d{2}(:\d{2})?`)

var separatorReplacer = strings.NewReplacer("\u2028", "\n", "\u2029", "\n")

// ParserConfig carries the product-specific markers the parser looks for.
type ParserConfig struct {
	ImageAlt      string   // alt text of chat images
	ServiceStyles []string // inline style declarations marking agent-side rows
	SystemPhrases []string // content substrings that mark system notices
}

// Parser turns a message element snapshot into a chat.Message.
type Parser struct {
	cfg ParserConfig
}

// NewParser creates a parser with the given markers.
func NewParser(cfg ParserConfig) *Parser {
	return &Parser{cfg: cfg}
}

// Parse never fails: elements it cannot classify come back as system
// messages built from their visible text. Callers drop empty-content results.
func (p *Parser) Parse(n Node) chat.Message {
	msg := chat.Message{
		Time:   timePattern.FindString(n.Text),
		Sender: chat.SenderUser,
	}

	if img, ok := n.Find(p.isImage); ok {
		msg.Type = chat.TypeImage
		msg.Content = img.Attr("src")
	} else if pre, ok := n.Find(func(c Node) bool { return c.Tag == "pre" }); ok {
		msg.Type = chat.TypeText
		msg.Content = pre.Text
	} else {
		msg.Type = chat.TypeSystem
		msg.Content = n.Text
		if msg.Time != "" {
			msg.Content = strings.Replace(msg.Content, msg.Time, "", 1)
		}
	}
	msg.Content = normalize(msg.Content)

	if len(p.cfg.ServiceStyles) > 0 && n.HasStyle(p.cfg.ServiceStyles...) {
		msg.Sender = chat.SenderService
	}
	for _, phrase := range p.cfg.SystemPhrases {
		if phrase != "" && strings.Contains(msg.Content, phrase) {
			msg.Sender = chat.SenderSystem
			break
		}
	}

	return msg
}

func (p *Parser) isImage(n Node) bool {
	if n.Tag != "img" {
		return false
	}
	return p.cfg.ImageAlt == "" || n.Attr("alt") == p.cfg.ImageAlt
}

func normalize(s string) string {
	return strings.TrimSpace(separatorReplacer.Replace(s))
}
