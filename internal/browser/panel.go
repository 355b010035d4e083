package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/MikeSquared-Agency/scribe/internal/extract"
)

// snapshotJS serialises an element subtree into the extract.Node layout.
const snapshotJS = `function () {
	const walk = (el) => {
		const attrs = {};
		for (const a of el.attributes) attrs[a.name] = a.value;
		if (el.tagName === 'IMG' && el.src) attrs.src = el.src;
		return {
			tag: el.tagName.toLowerCase(),
			attrs: attrs,
			text: el.innerText || el.textContent || '',
			children: Array.from(el.children).map(walk),
		};
	};
	return JSON.stringify(walk(this));
}`

// panel is the message list of an open detail panel.
type panel struct {
	console *Console
	el      *rod.Element
}

var (
	_ extract.Container = (*panel)(nil)
	_ extract.Expander  = (*panel)(nil)
)

func (p *panel) VisibleItems(ctx context.Context) ([]extract.Node, error) {
	items, err := p.el.Context(ctx).Elements(p.console.sel.MessageItem)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	nodes := make([]extract.Node, 0, len(items))
	for _, item := range items {
		n, err := snapshot(item)
		if err != nil {
			return nodes, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (p *panel) ScrollTop(ctx context.Context) (float64, error) {
	res, err := p.el.Context(ctx).Eval(`function () { return this.scrollTop; }`)
	if err != nil {
		return 0, err
	}
	return res.Value.Num(), nil
}

func (p *panel) SetScrollTop(ctx context.Context, offset float64) error {
	_, err := p.el.Context(ctx).Eval(`function (v) { this.scrollTop = v; }`, offset)
	return err
}

// ExpandHistory clicks the "all messages of this user" control when shown.
func (p *panel) ExpandHistory(ctx context.Context) (bool, error) {
	c := p.console
	wctx, cancel := context.WithTimeout(ctx, c.timing.ExpandWait)
	btn, err := c.page.Context(wctx).ElementR("button", regexp.QuoteMeta(c.sel.ExpandButtonText))
	cancel()
	if err != nil {
		return false, nil
	}
	btn = btn.Context(ctx)
	if !visible(btn) {
		return false, nil
	}
	if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return false, fmt.Errorf("click expand: %w", err)
	}
	return true, nil
}

func snapshot(el *rod.Element) (extract.Node, error) {
	res, err := el.Eval(snapshotJS)
	if err != nil {
		return extract.Node{}, fmt.Errorf("snapshot: %w", err)
	}
	return decodeNode(res.Value.Str())
}

func decodeNode(raw string) (extract.Node, error) {
	var n extract.Node
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		return extract.Node{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return n, nil
}
