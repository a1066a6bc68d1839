package slides

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// block is one top-level markdown block reduced to plain lines.
type block struct {
	heading bool
	list    bool
	level   int
	lines   []string
}

var md = goldmark.New()

// parseBlocks parses src as markdown and flattens the top-level blocks.
func parseBlocks(src []byte) []block {
	doc := md.Parser().Parse(text.NewReader(src))

	var out []block
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		out = append(out, blocksFor(n, src)...)
	}
	return out
}

func blocksFor(n ast.Node, src []byte) []block {
	switch b := n.(type) {
	case *ast.Heading:
		title := strings.Join(splitLines(inlineText(b, src)), " ")
		if title == "" {
			return nil
		}
		return []block{{heading: true, level: b.Level, lines: []string{title}}}
	case *ast.Paragraph, *ast.TextBlock:
		if lines := splitLines(inlineText(b, src)); len(lines) > 0 {
			return []block{{lines: lines}}
		}
	case *ast.List:
		if items := listItems(b, src); len(items) > 0 {
			return []block{{list: true, lines: items}}
		}
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		var lines []string
		segs := n.Lines()
		for i := 0; i < segs.Len(); i++ {
			seg := segs.At(i)
			if l := strings.TrimRight(string(seg.Value(src)), "\r\n"); strings.TrimSpace(l) != "" {
				lines = append(lines, l)
			}
		}
		if len(lines) > 0 {
			return []block{{lines: lines}}
		}
	case *ast.Blockquote:
		var out []block
		for c := b.FirstChild(); c != nil; c = c.NextSibling() {
			out = append(out, blocksFor(c, src)...)
		}
		return out
	}
	return nil
}

// listItems flattens a list, nested lists included, into one line per item.
func listItems(list *ast.List, src []byte) []string {
	var items []string
	for item := list.FirstChild(); item != nil; item = item.NextSibling() {
		var parts []string
		var nested []string
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if sub, ok := c.(*ast.List); ok {
				nested = append(nested, listItems(sub, src)...)
				continue
			}
			parts = append(parts, splitLines(inlineText(c, src))...)
		}
		if line := strings.Join(parts, " "); line != "" {
			items = append(items, line)
		}
		items = append(items, nested...)
	}
	return items
}

func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(t.Value)
		case *ast.AutoLink:
			buf.Write(t.Label(src))
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func splitLines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		l = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(l), "•·▪"))
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}
